package services

import (
	"context"
	"errors"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"dispatch-system/internal/approval"
	"dispatch-system/internal/authz"
	"dispatch-system/internal/dto"
	"dispatch-system/internal/entities"
	"dispatch-system/internal/repositories"
	"dispatch-system/pkg/config"
	apperrors "dispatch-system/pkg/errors"
	"dispatch-system/pkg/types"
)

type CostEntryServiceInterface interface {
	SubmitTimeEntry(ctx context.Context, dispatchID string, in dto.CreateTimeEntryDTO) (*entities.TimeEntry, error)
	SubmitExpense(ctx context.Context, dispatchID string, in dto.CreateExpenseDTO) (*entities.Expense, error)
	SubmitMaterial(ctx context.Context, dispatchID string, in dto.CreateMaterialDTO) (*entities.Material, error)
	// Decide: approved или rejected, только из pending.
	Decide(ctx context.Context, kind entities.CostKind, id string, to approval.Status, comment *string) (entities.CostEntry, error)
	DispatchCosts(ctx context.Context, dispatchID string) (*dto.DispatchCostsDTO, error)
}

type CostEntryService struct {
	tx          repositories.TxManagerInterface
	dispatches  repositories.DispatchRepositoryInterface
	timeEntries repositories.CostEntryRepositoryInterface[*entities.TimeEntry]
	expenses    repositories.CostEntryRepositoryInterface[*entities.Expense]
	materials   repositories.CostEntryRepositoryInterface[*entities.Material]
	audit       AuditServiceInterface
	gatekeeper  *authz.Gatekeeper
	cfg         config.DispatchConfig
	logger      *zap.Logger
	now         clock
}

func NewCostEntryService(
	tx repositories.TxManagerInterface,
	dispatches repositories.DispatchRepositoryInterface,
	timeEntries repositories.CostEntryRepositoryInterface[*entities.TimeEntry],
	expenses repositories.CostEntryRepositoryInterface[*entities.Expense],
	materials repositories.CostEntryRepositoryInterface[*entities.Material],
	audit AuditServiceInterface,
	gatekeeper *authz.Gatekeeper,
	cfg config.DispatchConfig,
	logger *zap.Logger,
) CostEntryServiceInterface {
	return &CostEntryService{
		tx:          tx,
		dispatches:  dispatches,
		timeEntries: timeEntries,
		expenses:    expenses,
		materials:   materials,
		audit:       audit,
		gatekeeper:  gatekeeper,
		cfg:         cfg,
		logger:      logger,
		now:         systemClock,
	}
}

var costDispatchStatuses = map[entities.DispatchStatus]bool{
	entities.DispatchInProgress: true,
	entities.DispatchCompleted:  true,
}

func (s *CostEntryService) SubmitTimeEntry(ctx context.Context, dispatchID string, in dto.CreateTimeEntryDTO) (*entities.TimeEntry, error) {
	if !in.EndTime.After(in.StartTime) {
		return nil, apperrors.NewValidationError("end_time", "конец работы должен быть позже начала")
	}
	rate := decimal.Zero
	if in.HourlyRate != "" {
		r, err := parseAmount("hourly_rate", in.HourlyRate)
		if err != nil {
			return nil, err
		}
		rate = r
	}
	billable := true
	if in.Billable.Valid {
		billable = in.Billable.Bool
	}

	elapsed := in.EndTime.Sub(in.StartTime)
	total := decimal.Zero
	if billable {
		hours := decimal.NewFromInt(int64(elapsed.Seconds())).Div(decimal.NewFromInt(3600))
		total = hours.Mul(rate).Round(2)
	}

	now := s.now()
	entry := &entities.TimeEntry{
		ID:           newID(),
		DispatchID:   dispatchID,
		TechnicianID: in.TechnicianID,
		WorkType:     in.WorkType.Ptr(),
		StartTime:    in.StartTime.UTC(),
		EndTime:      in.EndTime.UTC(),
		Duration:     int(elapsed.Minutes()),
		Description:  in.Description.Ptr(),
		Billable:     billable,
		HourlyRate:   rate,
		TotalCost:    total,
		State:        approval.NewPending(now),
	}
	return submit(ctx, s, s.timeEntries, entry)
}

func (s *CostEntryService) SubmitExpense(ctx context.Context, dispatchID string, in dto.CreateExpenseDTO) (*entities.Expense, error) {
	amount, err := parseAmount("amount", in.Amount)
	if err != nil {
		return nil, err
	}
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = s.cfg.DefaultCurrency
	}
	var date *civil.Date
	if in.Date != "" {
		d, err := types.ParseDate(in.Date)
		if err != nil {
			return nil, apperrors.NewValidationError("date", "%s", err.Error())
		}
		date = &d
	}

	entry := &entities.Expense{
		ID:           newID(),
		DispatchID:   dispatchID,
		TechnicianID: in.TechnicianID,
		Type:         in.Type,
		Amount:       amount.Round(2),
		Currency:     currency,
		Description:  in.Description.Ptr(),
		Date:         date,
		State:        approval.NewPending(s.now()),
	}
	return submit(ctx, s, s.expenses, entry)
}

func (s *CostEntryService) SubmitMaterial(ctx context.Context, dispatchID string, in dto.CreateMaterialDTO) (*entities.Material, error) {
	if in.Quantity < 1 {
		return nil, apperrors.NewValidationError("quantity", "количество должно быть положительным")
	}
	price, err := parseAmount("unit_price", in.UnitPrice)
	if err != nil {
		return nil, err
	}

	entry := &entities.Material{
		ID:           newID(),
		DispatchID:   dispatchID,
		TechnicianID: in.TechnicianID,
		ArticleID:    in.ArticleID,
		ArticleName:  in.ArticleName.Ptr(),
		SKU:          in.SKU.Ptr(),
		Quantity:     in.Quantity,
		UnitPrice:    price,
		TotalPrice:   price.Mul(decimal.NewFromInt(int64(in.Quantity))).Round(2),
		UsedAt:       in.UsedAt.Ptr(),
		State:        approval.NewPending(s.now()),
	}
	return submit(ctx, s, s.materials, entry)
}

// submit - общий путь подачи записи любого вида.
// Выезд блокируется, чтобы его статус не сменился между проверкой и записью.
func submit[T entities.CostEntry](ctx context.Context, s *CostEntryService, repo repositories.CostEntryRepositoryInterface[T], entry T) (T, error) {
	var zero T
	actorID, role, err := actorFrom(ctx)
	if err != nil {
		return zero, err
	}
	perms := authz.PermissionsFor(role)
	technicianID := technicianOf(entry)

	var snapshot *entities.Dispatch
	err = s.tx.RunInTransaction(ctx, func(tx pgx.Tx) error {
		d, err := s.dispatches.FindForUpdate(ctx, tx, entry.EntryDispatchID())
		if err != nil {
			return err
		}
		if !s.gatekeeper.Can(actorID, role, authz.CostsSubmit, d) {
			return apperrors.ErrForbidden
		}
		// Техник подает записи только от своего имени.
		if !perms[authz.Superuser] && !perms[authz.ScopeAll] && technicianID != actorID {
			return apperrors.ErrForbidden
		}
		if !costDispatchStatuses[d.Status] {
			return apperrors.NewValidationError("dispatch_id", "записи затрат принимаются только для выезда в работе или завершенного, текущий статус %s", d.Status)
		}
		if !d.HasTechnician(technicianID) {
			return apperrors.NewValidationError("technician_id", "техник %s не назначен на выезд", technicianID)
		}
		if err := repo.Create(ctx, tx, entry); err != nil {
			return err
		}
		snapshot = d
		return nil
	})
	if err != nil {
		return zero, err
	}

	s.recordCost(ctx, entry, "submitted", actorID, snapshot)
	return entry, nil
}

func (s *CostEntryService) Decide(ctx context.Context, kind entities.CostKind, id string, to approval.Status, comment *string) (entities.CostEntry, error) {
	if to != approval.StatusApproved && to != approval.StatusRejected {
		return nil, apperrors.NewValidationError("status", "решение может быть только approved или rejected")
	}
	switch kind {
	case entities.CostKindTime:
		return asCostEntry(decide(ctx, s, s.timeEntries, id, to, comment))
	case entities.CostKindExpense:
		return asCostEntry(decide(ctx, s, s.expenses, id, to, comment))
	case entities.CostKindMaterial:
		return asCostEntry(decide(ctx, s, s.materials, id, to, comment))
	}
	return nil, apperrors.NewValidationError("kind", "неизвестный вид записи %q", kind)
}

func decide[T entities.CostEntry](ctx context.Context, s *CostEntryService, repo repositories.CostEntryRepositoryInterface[T], id string, to approval.Status, comment *string) (T, error) {
	var zero T
	actorID, role, err := actorFrom(ctx)
	if err != nil {
		return zero, err
	}
	if !s.gatekeeper.Can(actorID, role, authz.CostsApprove, nil) {
		return zero, apperrors.ErrForbidden
	}

	var decided T
	err = s.tx.RunInTransaction(ctx, func(tx pgx.Tx) error {
		current, err := repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		// Выезд блокируется раньше записи, как при подаче. Удаленный выезд дает NotFound.
		if _, err := s.dispatches.FindForUpdate(ctx, tx, current.EntryDispatchID()); err != nil {
			return err
		}
		entry, err := repo.FindForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		from := entry.Approval().Status
		next, err := approval.CostEntries.Apply(entry.Approval(), to, actorID, comment, s.now())
		if err != nil {
			if errors.Is(err, approval.ErrIllegalTransition) {
				return apperrors.NewInvalidTransitionError(string(entry.Kind())+"_entry", id, string(from), string(to))
			}
			return err
		}
		entry.SetApproval(next)
		if err := repo.UpdateApproval(ctx, tx, entry, from); err != nil {
			return err
		}
		decided = entry
		return nil
	})
	if err != nil {
		return zero, err
	}

	s.recordCost(ctx, decided, string(to), actorID, nil)
	return decided, nil
}

// asCostEntry не превращает nil-указатель в непустой интерфейс.
func asCostEntry[T entities.CostEntry](e T, err error) (entities.CostEntry, error) {
	if err != nil {
		return nil, err
	}
	return e, nil
}

// recordCost пишет событие updated в историю выезда.
func (s *CostEntryService) recordCost(ctx context.Context, entry entities.CostEntry, operation, actorID string, snapshot *entities.Dispatch) {
	s.audit.RecordDispatch(ctx, entities.DispatchHistoryEvent{
		DispatchID: entry.EntryDispatchID(),
		Action:     entities.ActionUpdated,
		NewValue:   mustJSON(entry),
		ChangedBy:  actorID,
		ChangedAt:  s.now(),
		Metadata: mustJSON(map[string]interface{}{
			"cost_kind": entry.Kind(),
			"entry_id":  entry.EntryID(),
			"operation": operation,
			"total":     entry.Total(),
		}),
	}, snapshot)
}

func (s *CostEntryService) DispatchCosts(ctx context.Context, dispatchID string) (*dto.DispatchCostsDTO, error) {
	actorID, role, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	d, err := s.dispatches.FindByID(ctx, dispatchID)
	if err != nil {
		return nil, err
	}
	if !s.gatekeeper.Can(actorID, role, authz.CostsView, d) {
		return nil, apperrors.ErrForbidden
	}

	timeEntries, err := s.timeEntries.FindByDispatch(ctx, dispatchID)
	if err != nil {
		return nil, err
	}
	expenses, err := s.expenses.FindByDispatch(ctx, dispatchID)
	if err != nil {
		return nil, err
	}
	materials, err := s.materials.FindByDispatch(ctx, dispatchID)
	if err != nil {
		return nil, err
	}

	out := &dto.DispatchCostsDTO{
		DispatchID:  dispatchID,
		TimeEntries: timeEntries,
		Expenses:    expenses,
		Materials:   materials,
		Totals: []dto.CostTotals{
			totalsOf(entities.CostKindTime, timeEntries),
			totalsOf(entities.CostKindExpense, expenses),
			totalsOf(entities.CostKindMaterial, materials),
		},
		GrandTotal: decimal.Zero,
	}
	for _, t := range out.Totals {
		out.GrandTotal = out.GrandTotal.Add(t.Total)
	}
	return out, nil
}

// totalsOf: Total не включает отклоненные записи.
func totalsOf[T entities.CostEntry](kind entities.CostKind, entries []T) dto.CostTotals {
	totals := dto.CostTotals{Kind: kind, ByStatus: make(map[string]decimal.Decimal), Total: decimal.Zero}
	for _, e := range entries {
		status := string(e.Approval().Status)
		totals.ByStatus[status] = totals.ByStatus[status].Add(e.Total())
		if e.Approval().Status != approval.StatusRejected {
			totals.Total = totals.Total.Add(e.Total())
		}
	}
	return totals
}

func technicianOf(e entities.CostEntry) string {
	switch v := e.(type) {
	case *entities.TimeEntry:
		return v.TechnicianID
	case *entities.Expense:
		return v.TechnicianID
	case *entities.Material:
		return v.TechnicianID
	}
	return ""
}

func parseAmount(field, raw string) (decimal.Decimal, error) {
	v, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, apperrors.NewValidationError(field, "некорректная сумма %q", raw)
	}
	if v.IsNegative() {
		return decimal.Zero, apperrors.NewValidationError(field, "сумма не может быть отрицательной")
	}
	return v, nil
}
