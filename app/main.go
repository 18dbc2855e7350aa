// Файл: main.go

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"dispatch-system/internal/repositories/memory"
	"dispatch-system/internal/routes"
	"dispatch-system/pkg/api"
	"dispatch-system/pkg/config"
	"dispatch-system/pkg/database/migrations"
	"dispatch-system/pkg/database/postgresql"
	apperrors "dispatch-system/pkg/errors"
	"dispatch-system/pkg/eventbus"
	"dispatch-system/pkg/filestorage"
	applogger "dispatch-system/pkg/logger"
	"dispatch-system/pkg/middleware"
	"dispatch-system/pkg/service"
	"dispatch-system/pkg/validation"
	"dispatch-system/pkg/websocket"
)

func main() {
	// 1. Конфиг и логгер
	cfg := config.New()
	logger := applogger.NewLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Echo и middleware
	e := echo.New()
	e.HideBanner = true
	e.Validator = validation.New()

	e.Use(echomw.RecoverWithConfig(echomw.RecoverConfig{
		DisableStackAll: true,
		StackSize:       1 << 10,
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			logger.Error("!!! ОБНАРУЖЕНА ПАНИКА (PANIC) !!!",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Error(err),
				zap.String("stack", string(stack)),
			)
			if !c.Response().Committed {
				httpErr := apperrors.NewHttpError(http.StatusInternalServerError, "Внутренняя ошибка сервера", err, nil)
				_ = api.ErrorResponse(c, httpErr)
			}
			return err
		},
	}))
	e.Use(middleware.InjectLogger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		ExposeHeaders: []string{"Content-Disposition"},
	}))

	// 3. Хранилища
	var repos *routes.Repositories
	switch cfg.Store.Driver {
	case "memory":
		logger.Warn("Используется хранилище в памяти, данные не переживут перезапуск")
		repos = routes.NewMemoryRepositories(memory.NewStore(), cfg, logger)
	default:
		dbConn, err := postgresql.ConnectDB(ctx, cfg.Postgres, logger)
		if err != nil {
			logger.Fatal("не удалось подключиться к PostgreSQL", zap.Error(err))
		}
		defer dbConn.Close()

		if cfg.Postgres.RunMigrations {
			if err := migrations.Up(ctx, dbConn); err != nil {
				logger.Fatal("не удалось применить миграции", zap.Error(err))
			}
		}

		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		if _, err := redisClient.Ping(ctx).Result(); err != nil {
			logger.Fatal("не удалось подключиться к Redis", zap.Error(err), zap.String("address", cfg.Redis.Address))
		}

		repos = routes.NewPostgresRepositories(dbConn, redisClient, cfg, logger)
	}

	fileStorage, err := filestorage.New(ctx, cfg.Storage)
	if err != nil {
		logger.Fatal("не удалось создать файловое хранилище", zap.Error(err))
	}

	// 4. Шина событий и доска диспетчера
	bus := eventbus.New(logger)
	hub := websocket.NewHub(logger)
	hubCtx, stopHub := context.WithCancel(context.Background())
	go hub.Run(hubCtx)

	jwtSvc := service.NewJWTService(cfg.JWT.SecretKey, cfg.JWT.AccessTokenTTL, cfg.JWT.RefreshTokenTTL)

	// 5. Роуты
	routes.InitRouter(e, routes.Dependencies{
		Repos:       repos,
		Bus:         bus,
		Hub:         hub,
		FileStorage: fileStorage,
		JWT:         jwtSvc,
	}, cfg, logger)

	// 6. Запуск и корректная остановка
	go func() {
		logger.Info("🚀 Сервер запущен", zap.String("port", cfg.Server.Port))
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Ошибка запуска сервера", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Получен сигнал остановки, завершаем работу")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Ошибка остановки HTTP сервера", zap.Error(err))
	}
	// журнал должен дописаться до закрытия пула
	if err := bus.Wait(shutdownCtx); err != nil {
		logger.Warn("Не все события журнала доставлены до остановки", zap.Error(err))
	}
	stopHub()
	logger.Info("Сервер остановлен")
}
