// Package google mirrors the ledger into a Google Sheets spreadsheet.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"michaucha/internal/core"
	"michaucha/internal/ports"
)

const (
	DefaultTransactionsSheet = "Movimientos"
	DefaultPeriodsSheet      = "Periodos"
)

var _ ports.TransactionExporter = (*Exporter)(nil)

type Config struct {
	SpreadsheetID     string
	TransactionsSheet string
	PeriodsSheet      string
	// CredentialsJSON wins over CredentialsFile. With neither set the
	// GOOGLE_APPLICATION_CREDENTIALS file is used.
	CredentialsJSON string
	CredentialsFile string
}

type Exporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	txSheet       string
	periodsSheet  string
}

// New builds an exporter with service-account credentials. Extra client
// options replace credential resolution entirely.
func New(ctx context.Context, cfg Config, opts ...goption.ClientOption) (*Exporter, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	if len(opts) == 0 {
		creds, err := credentials(cfg)
		if err != nil {
			return nil, err
		}
		opts = []goption.ClientOption{
			goption.WithCredentialsJSON(creds),
			goption.WithScopes(gsheet.SpreadsheetsScope),
			goption.WithHTTPClient(pooledHTTPClient()),
		}
	}
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	e := &Exporter{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		txSheet:       cfg.TransactionsSheet,
		periodsSheet:  cfg.PeriodsSheet,
	}
	if e.txSheet == "" {
		e.txSheet = DefaultTransactionsSheet
	}
	if e.periodsSheet == "" {
		e.periodsSheet = DefaultPeriodsSheet
	}
	slog.InfoContext(ctx, "Google Sheets exporter ready",
		"spreadsheet_id", e.spreadsheetID,
		"transactions_sheet", e.txSheet,
		"periods_sheet", e.periodsSheet)
	return e, nil
}

func credentials(cfg Config) ([]byte, error) {
	if js := strings.TrimSpace(cfg.CredentialsJSON); js != "" {
		return []byte(js), nil
	}
	path := strings.TrimSpace(cfg.CredentialsFile)
	if path == "" {
		path = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if path == "" {
		return nil, errors.New("missing service account credentials")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	return b, nil
}

func pooledHTTPClient() *http.Client {
	dialer := &net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second}
	return &http.Client{
		Transport: &http.Transport{
			DialContext:           dialer.DialContext,
			MaxIdleConns:          20,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 30 * time.Second,
			ForceAttemptHTTP2:     true,
		},
		Timeout: 60 * time.Second,
	}
}

// ExportTransaction appends one row per transaction. A row that already
// carries the ID is left alone so redelivered events do not duplicate it.
func (e *Exporter) ExportTransaction(ctx context.Context, t core.Transaction) error {
	row, err := e.rowOf(ctx, e.txSheet, t.ID)
	if err != nil {
		return err
	}
	if row > 0 {
		slog.InfoContext(ctx, "Transaction already exported", "id", t.ID, "row", row)
		return nil
	}

	vr := &gsheet.ValueRange{Values: [][]any{{
		t.ID,
		t.Date.Format("2006-01-02"),
		t.Description,
		t.CategoryName,
		string(t.PaymentMethod),
		t.Amount,
	}}}
	rng := e.txSheet + "!A:F"
	resp, err := e.svc.Spreadsheets.Values.Append(e.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to %s: %w", e.txSheet, err)
	}

	ref := ""
	if resp.Updates != nil {
		ref = resp.Updates.UpdatedRange
	}
	slog.InfoContext(ctx, "Transaction exported", "id", t.ID, "amount", t.Amount, "sheets_ref", ref)
	return nil
}

// RemoveTransaction clears the row holding id. Missing rows are ignored.
func (e *Exporter) RemoveTransaction(ctx context.Context, id int64) error {
	row, err := e.rowOf(ctx, e.txSheet, id)
	if err != nil {
		return err
	}
	if row == 0 {
		slog.WarnContext(ctx, "Transaction not found in sheet", "id", id)
		return nil
	}
	rng := fmt.Sprintf("%s!A%d:F%d", e.txSheet, row, row)
	if _, err := e.svc.Spreadsheets.Values.Clear(e.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}
	slog.InfoContext(ctx, "Transaction removed from sheet", "id", id, "range", rng)
	return nil
}

// ExportPeriodSummary appends the closing figures of a period.
func (e *Exporter) ExportPeriodSummary(ctx context.Context, p core.Period, s core.PeriodSummary) error {
	row, err := e.rowOf(ctx, e.periodsSheet, p.ID)
	if err != nil {
		return err
	}
	if row > 0 {
		return nil
	}

	end := ""
	if p.EndDate != nil {
		end = p.EndDate.Format("2006-01-02")
	}
	vr := &gsheet.ValueRange{Values: [][]any{{
		p.ID,
		p.StartDate.Format("2006-01-02"),
		end,
		s.TransactionTotal,
		s.VirtualFixedTotal,
		s.TotalSpend,
		s.Budget,
		s.Remaining,
		s.SavingsGoal,
		s.DailyAverage,
		s.MaxExpense.Category,
		s.MaxExpense.Amount,
	}}}
	if _, err := e.svc.Spreadsheets.Values.Append(e.spreadsheetID, e.periodsSheet+"!A:L", vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("append to %s: %w", e.periodsSheet, err)
	}
	slog.InfoContext(ctx, "Period summary exported", "period_id", p.ID, "total_spend", s.TotalSpend)
	return nil
}

// rowOf returns the 1-based row whose column A equals id, or 0.
func (e *Exporter) rowOf(ctx context.Context, sheet string, id int64) (int, error) {
	rng := sheet + "!A:A"
	resp, err := e.svc.Spreadsheets.Values.Get(e.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", rng, err)
	}
	want := strconv.FormatInt(id, 10)
	for i, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[0])) == want {
			return i + 1, nil
		}
	}
	return 0, nil
}
