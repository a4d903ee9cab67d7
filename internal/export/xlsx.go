// Package export renders a period ledger as an Excel workbook.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"michaucha/internal/core"
)

const (
	SheetTransactions = "Movimientos"
	SheetSummary      = "Resumen"
	ContentType       = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	clpFormat         = `"$"#,##0`
)

var transactionHeaders = []string{"Fecha", "Descripción", "Categoría", "Medio de pago", "Monto"}

// WriteLedger writes the dashboard's transactions and summary figures to w.
func WriteLedger(w io.Writer, d core.Dashboard) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetTransactions); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(SheetSummary); err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}

	money, err := f.NewStyle(&excelize.Style{CustomNumFmt: strPtr(clpFormat)})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}

	if err := writeTransactions(f, d.Transactions, money, bold); err != nil {
		return err
	}
	if err := writeSummary(f, d.Summary, money, bold); err != nil {
		return err
	}
	return f.Write(w)
}

func writeTransactions(f *excelize.File, txs []core.Transaction, money, bold int) error {
	if err := f.SetSheetRow(SheetTransactions, "A1", &transactionHeaders); err != nil {
		return fmt.Errorf("write headers: %w", err)
	}
	if err := f.SetCellStyle(SheetTransactions, "A1", "E1", bold); err != nil {
		return err
	}
	for i, tx := range txs {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{tx.Date.Format("2006-01-02"), tx.Description, tx.CategoryName, string(tx.PaymentMethod), tx.Amount}
		if err := f.SetSheetRow(SheetTransactions, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if len(txs) > 0 {
		last := fmt.Sprintf("E%d", len(txs)+1)
		if err := f.SetCellStyle(SheetTransactions, "E2", last, money); err != nil {
			return err
		}
	}
	return f.SetColWidth(SheetTransactions, "B", "B", 40)
}

func writeSummary(f *excelize.File, s core.PeriodSummary, money, bold int) error {
	rows := [][]any{
		{"Gasto total", s.TotalSpend},
		{"Movimientos", s.TransactionTotal},
		{"Gastos fijos pagados", s.VirtualFixedTotal},
		{"Presupuesto", s.Budget},
		{"Disponible", s.Remaining},
		{"Meta de ahorro", s.SavingsGoal},
		{"Promedio diario", s.DailyAverage},
		{"Mayor gasto", s.MaxExpense.Amount},
		{"Categoría mayor gasto", s.MaxExpense.Category},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetSummary, cell, &row); err != nil {
			return fmt.Errorf("write summary row: %w", err)
		}
	}
	if err := f.SetCellStyle(SheetSummary, "A1", fmt.Sprintf("A%d", len(rows)), bold); err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetSummary, "B1", fmt.Sprintf("B%d", len(rows)-1), money); err != nil {
		return err
	}
	return f.SetColWidth(SheetSummary, "A", "A", 24)
}

func strPtr(s string) *string { return &s }

// Filename names the workbook after the period start, or "sin-periodo".
func Filename(d core.Dashboard) string {
	if d.Summary.Period == nil {
		return "movimientos-sin-periodo.xlsx"
	}
	return "movimientos-" + d.Summary.Period.Start.Format("2006-01-02") + ".xlsx"
}
