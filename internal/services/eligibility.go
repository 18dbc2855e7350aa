package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"dispatch-system/internal/entities"
	"dispatch-system/internal/repositories"
	"dispatch-system/pkg/config"
	"dispatch-system/pkg/constants"
	apperrors "dispatch-system/pkg/errors"
	"dispatch-system/pkg/types"
	"dispatch-system/pkg/utils"
)

type EligibilityQuery struct {
	RequiredSkills []string
	Date           civil.Date
	Window         types.TimeWindow
	// CandidateIDs пуст - кандидаты все техники справочника.
	CandidateIDs []string
	// ExcludeDispatchID не считается занятостью (переназначение того же выезда).
	ExcludeDispatchID string
}

type EligibilityServiceInterface interface {
	// FindEligible: подходящие техники по возрастанию нагрузки, при равенстве по id. Пустой результат не ошибка.
	FindEligible(ctx context.Context, q EligibilityQuery) ([]string, error)
	// Evaluate возвращает причину отказа или nil. tx нужен, чтобы проверка занятости шла внутри блокировки.
	Evaluate(ctx context.Context, tx pgx.Tx, tech *entities.Technician, q EligibilityQuery) (*apperrors.EligibilityFailure, error)
}

type EligibilityService struct {
	directory    repositories.TechnicianDirectoryInterface
	dispatches   repositories.DispatchRepositoryInterface
	availability AvailabilityServiceInterface
	cfg          config.DispatchConfig
	logger       *zap.Logger
}

func NewEligibilityService(
	directory repositories.TechnicianDirectoryInterface,
	dispatches repositories.DispatchRepositoryInterface,
	availability AvailabilityServiceInterface,
	cfg config.DispatchConfig,
	logger *zap.Logger,
) EligibilityServiceInterface {
	return &EligibilityService{
		directory:    directory,
		dispatches:   dispatches,
		availability: availability,
		cfg:          cfg,
		logger:       logger,
	}
}

func (s *EligibilityService) candidates(ctx context.Context, ids []string) ([]*entities.Technician, error) {
	if len(ids) == 0 {
		return s.directory.ListByRole(ctx, constants.RoleTechnician)
	}
	ids = utils.Dedupe(ids)
	found, err := s.directory.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	list := make([]*entities.Technician, 0, len(found))
	for _, id := range ids {
		if t, ok := found[id]; ok {
			list = append(list, t)
		}
	}
	return list, nil
}

func (s *EligibilityService) FindEligible(ctx context.Context, q EligibilityQuery) ([]string, error) {
	pool, err := s.candidates(ctx, q.CandidateIDs)
	if err != nil {
		return nil, err
	}

	accepted := make([]bool, len(pool))
	g, gctx := errgroup.WithContext(ctx)
	limit := s.cfg.EligibilityConcurrency
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)

	for i, tech := range pool {
		// Go блокируется при исчерпании лимита; отмена ctx прекращает выдачу новых задач.
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			failure, err := s.Evaluate(gctx, nil, tech, q)
			if err != nil {
				return err
			}
			accepted[i] = failure == nil
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	// Дедлайн мог истечь, пока задачи не выдавались.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	eligible := make([]string, 0, len(pool))
	for i, tech := range pool {
		if accepted[i] {
			eligible = append(eligible, tech.ID)
		}
	}
	if len(eligible) == 0 {
		return eligible, nil
	}

	workload, err := s.dispatches.CountActiveWorkload(ctx, eligible)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		a, b := eligible[i], eligible[j]
		if workload[a] != workload[b] {
			return workload[a] < workload[b]
		}
		return a < b
	})
	return eligible, nil
}

func (s *EligibilityService) Evaluate(ctx context.Context, tx pgx.Tx, tech *entities.Technician, q EligibilityQuery) (*apperrors.EligibilityFailure, error) {
	if !tech.HasSkills(q.RequiredSkills) {
		return &apperrors.EligibilityFailure{
			TechnicianID: tech.ID,
			Reason:       apperrors.ReasonSkillMismatch,
			Detail:       "не хватает навыков: " + strings.Join(missingSkills(tech, q.RequiredSkills), ", "),
		}, nil
	}

	avail, err := s.availability.CheckTechnician(ctx, tech, q.Date, q.Window)
	if err != nil {
		return nil, err
	}
	if !avail.Available {
		return &apperrors.EligibilityFailure{TechnicianID: tech.ID, Reason: avail.Reason, Detail: avail.Detail}, nil
	}

	return s.checkCapacity(ctx, tx, tech, q)
}

// checkCapacity: статус over_capacity, двойное бронирование или дневной лимит выездов.
func (s *EligibilityService) checkCapacity(ctx context.Context, tx pgx.Tx, tech *entities.Technician, q EligibilityQuery) (*apperrors.EligibilityFailure, error) {
	overCapacity := func(detail string) *apperrors.EligibilityFailure {
		return &apperrors.EligibilityFailure{TechnicianID: tech.ID, Reason: apperrors.ReasonOverCapacity, Detail: detail}
	}

	if tech.CurrentStatus == entities.TechnicianOverCapacity {
		return overCapacity("техник перегружен"), nil
	}

	bookings, err := s.dispatches.FindActiveBookings(ctx, tx, tech.ID, q.Date, q.ExcludeDispatchID)
	if err != nil {
		return nil, err
	}
	requested := types.Schedule{Date: q.Date, Window: q.Window}
	for _, b := range bookings {
		if b.Schedule != nil && b.Schedule.Overlaps(requested) {
			return overCapacity(fmt.Sprintf("пересекается с выездом %s", b.DispatchNumber)), nil
		}
	}
	if s.cfg.MaxDailyDispatches > 0 && len(bookings) >= s.cfg.MaxDailyDispatches {
		return overCapacity(fmt.Sprintf("достигнут лимит %d выездов в день", s.cfg.MaxDailyDispatches)), nil
	}
	return nil, nil
}

func missingSkills(tech *entities.Technician, required []string) []string {
	have := make(map[string]struct{}, len(tech.Skills))
	for _, s := range tech.Skills {
		have[s] = struct{}{}
	}
	missing := make([]string, 0)
	for _, s := range required {
		if _, ok := have[s]; !ok {
			missing = append(missing, s)
		}
	}
	return missing
}
