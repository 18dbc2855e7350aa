package services

import (
	"bytes"
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"dispatch-system/internal/approval"
	"dispatch-system/internal/dto"
	"dispatch-system/pkg/utils"
)

type ReportServiceInterface interface {
	// CostsXLSX - выгрузка затрат выезда: лист записей и лист итогов.
	CostsXLSX(ctx context.Context, dispatchID string) ([]byte, error)
}

type reportService struct {
	costs  CostEntryServiceInterface
	logger *zap.Logger
}

func NewReportService(costs CostEntryServiceInterface, logger *zap.Logger) ReportServiceInterface {
	return &reportService{costs: costs, logger: logger}
}

const (
	entriesSheet = "Затраты"
	totalsSheet  = "Итоги"
)

var entryHeaders = []interface{}{
	"Вид", "ID", "Техник", "Описание", "Количество", "Цена", "Сумма", "Статус", "Создано", "Решение",
}

func (s *reportService) CostsXLSX(ctx context.Context, dispatchID string) ([]byte, error) {
	costs, err := s.costs.DispatchCosts(ctx, dispatchID)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", entriesSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(totalsSheet); err != nil {
		return nil, err
	}
	style, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})

	if err := f.SetSheetRow(entriesSheet, "A1", &entryHeaders); err != nil {
		return nil, err
	}
	_ = f.SetCellStyle(entriesSheet, "A1", "J1", style)

	rows := costRows(costs)
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(entriesSheet, cell, &row); err != nil {
			return nil, err
		}
	}
	_ = f.SetColWidth(entriesSheet, "B", "C", 38)
	_ = f.SetColWidth(entriesSheet, "D", "D", 40)
	_ = f.SetColWidth(entriesSheet, "I", "J", 22)

	totalsHeader := []interface{}{"Вид", "pending", "approved", "rejected", "Итого"}
	if err := f.SetSheetRow(totalsSheet, "A1", &totalsHeader); err != nil {
		return nil, err
	}
	_ = f.SetCellStyle(totalsSheet, "A1", "E1", style)
	for i, t := range costs.Totals {
		row := []interface{}{
			string(t.Kind),
			amount(t.ByStatus[string(approval.StatusPending)]),
			amount(t.ByStatus[string(approval.StatusApproved)]),
			amount(t.ByStatus[string(approval.StatusRejected)]),
			amount(t.Total),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(totalsSheet, cell, &row); err != nil {
			return nil, err
		}
	}
	grand := []interface{}{"Всего", nil, nil, nil, amount(costs.GrandTotal)}
	cell, _ := excelize.CoordinatesToCellName(1, len(costs.Totals)+2)
	if err := f.SetSheetRow(totalsSheet, cell, &grand); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		s.logger.Error("не удалось сформировать xlsx", zap.String("dispatchID", dispatchID), zap.Error(err))
		return nil, err
	}
	return buf.Bytes(), nil
}

func costRows(c *dto.DispatchCostsDTO) [][]interface{} {
	rows := make([][]interface{}, 0, len(c.TimeEntries)+len(c.Expenses)+len(c.Materials))
	for _, e := range c.TimeEntries {
		rows = append(rows, []interface{}{
			string(e.Kind()), e.ID, e.TechnicianID, utils.SafeDeref(e.Description),
			fmt.Sprintf("%d мин", e.Duration), amount(e.HourlyRate), amount(e.TotalCost),
			string(e.Status), e.CreatedAt.Format("2006-01-02 15:04"), decidedAt(e.State),
		})
	}
	for _, e := range c.Expenses {
		rows = append(rows, []interface{}{
			string(e.Kind()), e.ID, e.TechnicianID, e.Type + " " + utils.SafeDeref(e.Description),
			1, amount(e.Amount), amount(e.Amount) + " " + e.Currency,
			string(e.Status), e.CreatedAt.Format("2006-01-02 15:04"), decidedAt(e.State),
		})
	}
	for _, e := range c.Materials {
		rows = append(rows, []interface{}{
			string(e.Kind()), e.ID, e.TechnicianID, e.ArticleID + " " + utils.SafeDeref(e.ArticleName),
			e.Quantity, amount(e.UnitPrice), amount(e.TotalPrice),
			string(e.Status), e.CreatedAt.Format("2006-01-02 15:04"), decidedAt(e.State),
		})
	}
	return rows
}

func amount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func decidedAt(s approval.State) string {
	if s.DecidedAt == nil {
		return ""
	}
	return s.DecidedAt.Format("2006-01-02 15:04")
}
