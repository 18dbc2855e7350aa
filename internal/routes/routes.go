package routes

import (
	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"dispatch-system/internal/authz"
	"dispatch-system/internal/controllers"
	"dispatch-system/internal/entities"
	"dispatch-system/internal/listeners"
	"dispatch-system/internal/repositories"
	"dispatch-system/internal/repositories/memory"
	"dispatch-system/internal/services"
	"dispatch-system/pkg/config"
	"dispatch-system/pkg/eventbus"
	"dispatch-system/pkg/filestorage"
	"dispatch-system/pkg/middleware"
	"dispatch-system/pkg/service"
	"dispatch-system/pkg/websocket"
)

// Repositories - набор хранилищ, из которых собираются сервисы.
type Repositories struct {
	Tx              repositories.TxManagerInterface
	Dispatches      repositories.DispatchRepositoryInterface
	Technicians     repositories.TechnicianDirectoryInterface
	WorkingHours    repositories.WorkingHoursRepositoryInterface
	Leaves          repositories.LeaveRepositoryInterface
	DispatchHistory repositories.DispatchHistoryRepositoryInterface
	StatusHistory   repositories.TechnicianStatusHistoryRepositoryInterface
	TimeEntries     repositories.CostEntryRepositoryInterface[*entities.TimeEntry]
	Expenses        repositories.CostEntryRepositoryInterface[*entities.Expense]
	Materials       repositories.CostEntryRepositoryInterface[*entities.Material]
	Attachments     repositories.AttachmentRepositoryInterface
	Notes           repositories.NoteRepositoryInterface
	Jobs            repositories.JobCatalogInterface
	Cache           repositories.CacheRepositoryInterface
}

// NewPostgresRepositories - рабочая конфигурация: postgres и кеш каталога в Redis.
func NewPostgresRepositories(dbConn *pgxpool.Pool, redisClient *redis.Client, cfg *config.Config, logger *zap.Logger) *Repositories {
	cache := repositories.NewRedisCacheRepository(redisClient)
	jobs := repositories.NewCachedJobCatalog(
		repositories.NewJobCatalogRepository(dbConn, logger),
		cache,
		cfg.Dispatch.CatalogCacheTTL,
		logger,
	)
	return &Repositories{
		Tx:              repositories.NewTxManager(dbConn),
		Dispatches:      repositories.NewDispatchRepository(dbConn, logger),
		Technicians:     repositories.NewTechnicianRepository(dbConn, logger),
		WorkingHours:    repositories.NewWorkingHoursRepository(dbConn, logger),
		Leaves:          repositories.NewLeaveRepository(dbConn, logger),
		DispatchHistory: repositories.NewDispatchHistoryRepository(dbConn, logger),
		StatusHistory:   repositories.NewTechnicianStatusHistoryRepository(dbConn, logger),
		TimeEntries:     repositories.NewTimeEntryRepository(dbConn, logger),
		Expenses:        repositories.NewExpenseRepository(dbConn, logger),
		Materials:       repositories.NewMaterialRepository(dbConn, logger),
		Attachments:     repositories.NewAttachmentRepository(dbConn, logger),
		Notes:           repositories.NewNoteRepository(dbConn, logger),
		Jobs:            jobs,
		Cache:           cache,
	}
}

// NewMemoryRepositories - всё в памяти процесса, для локального запуска и тестов.
func NewMemoryRepositories(store *memory.Store, cfg *config.Config, logger *zap.Logger) *Repositories {
	cache := memory.NewCache()
	return &Repositories{
		Tx:              store.TxManager(),
		Dispatches:      store.Dispatches(),
		Technicians:     store.Technicians(),
		WorkingHours:    store.WorkingHours(),
		Leaves:          store.Leaves(),
		DispatchHistory: store.DispatchHistory(),
		StatusHistory:   store.StatusHistory(),
		TimeEntries:     store.TimeEntries(),
		Expenses:        store.Expenses(),
		Materials:       store.Materials(),
		Attachments:     store.Attachments(),
		Notes:           store.Notes(),
		Jobs:            repositories.NewCachedJobCatalog(store.Jobs(), cache, cfg.Dispatch.CatalogCacheTTL, logger),
		Cache:           cache,
	}
}

// Dependencies - инфраструктура, созданная в main.
type Dependencies struct {
	Repos       *Repositories
	Bus         *eventbus.Bus
	Hub         *websocket.Hub
	FileStorage filestorage.FileStorageInterface
	JWT         service.JWTService
}

func InitRouter(e *echo.Echo, deps Dependencies, cfg *config.Config, logger *zap.Logger) {
	logger.Info("InitRouter: Начало создания маршрутов")
	repos := deps.Repos

	// --- 0. ОБЩИЕ КОМПОНЕНТЫ ---
	api := e.Group("/api")
	authMW := middleware.NewAuthMiddleware(deps.JWT, logger)
	gatekeeper := authz.NewGatekeeper()
	timeout := cfg.Server.RequestTimeout

	listeners.NewAuditListener(repos.DispatchHistory, repos.StatusHistory, cfg.Audit, logger).Register(deps.Bus)
	listeners.NewBoardListener(deps.Hub, logger).Register(deps.Bus)

	// --- 1. СЕРВИСЫ ---
	auditService := services.NewAuditService(deps.Bus, repos.DispatchHistory, repos.StatusHistory, logger)
	availabilityService := services.NewAvailabilityService(repos.Technicians, repos.WorkingHours, repos.Leaves, logger)
	eligibilityService := services.NewEligibilityService(repos.Technicians, repos.Dispatches, availabilityService, cfg.Dispatch, logger)
	numbers := services.NewDispatchNumberGenerator(repos.Cache, cfg.Dispatch.NumberPrefix, logger)
	dispatchService := services.NewDispatchService(
		repos.Tx, repos.Dispatches, repos.Technicians, repos.Jobs,
		eligibilityService, auditService, numbers, gatekeeper, logger,
	)
	costService := services.NewCostEntryService(
		repos.Tx, repos.Dispatches, repos.TimeEntries, repos.Expenses, repos.Materials,
		auditService, gatekeeper, cfg.Dispatch, logger,
	)
	reportService := services.NewReportService(costService, logger)
	leaveService := services.NewLeaveService(repos.Tx, repos.Leaves, repos.Technicians, gatekeeper, logger)
	workingHoursService := services.NewWorkingHoursService(repos.WorkingHours, repos.Technicians, gatekeeper, logger)
	technicianService := services.NewTechnicianService(repos.Tx, repos.Technicians, auditService, gatekeeper, logger)
	attachmentService := services.NewAttachmentService(repos.Attachments, repos.Dispatches, deps.FileStorage, gatekeeper, logger)
	noteService := services.NewNoteService(repos.Notes, repos.Dispatches, gatekeeper, logger)

	// --- 2. КОНТРОЛЛЕРЫ ---
	dispatchCtrl := controllers.NewDispatchController(dispatchService, timeout, logger)
	costCtrl := controllers.NewCostController(costService, reportService, timeout, logger)
	attachmentCtrl := controllers.NewAttachmentController(attachmentService, noteService, timeout, logger)
	schedulingCtrl := controllers.NewSchedulingController(availabilityService, eligibilityService, timeout, logger)
	technicianCtrl := controllers.NewTechnicianController(technicianService, workingHoursService, leaveService, timeout, logger)
	boardCtrl := controllers.NewWebSocketController(deps.Hub, logger)

	// --- 3. РОУТЕРЫ ---
	if cfg.Storage.Driver == "" || cfg.Storage.Driver == "local" {
		e.Static(filestorage.LocalPublicPrefix, cfg.Storage.BasePath)
	}

	secureGroup := api.Group("", authMW.Auth)

	runDispatchRouter(secureGroup, dispatchCtrl, gatekeeper)
	runCostRouter(secureGroup, costCtrl, gatekeeper)
	runAttachmentRouter(secureGroup, attachmentCtrl, gatekeeper)
	runSchedulingRouter(secureGroup, schedulingCtrl, gatekeeper)
	runTechnicianRouter(secureGroup, technicianCtrl, gatekeeper)
	runBoardRouter(secureGroup, boardCtrl, gatekeeper)

	logger.Info("INIT_ROUTER: Создание маршрутов завершено")
}
