package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"michaucha/internal/core"
	"michaucha/internal/export"
	"michaucha/internal/parser"
	"michaucha/internal/ports"
	"michaucha/internal/services"
	"michaucha/internal/storage/memory"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type sentMessage struct {
	chatID int64
	text   string
}

type fakeMessenger struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (m *fakeMessenger) SendMessage(_ context.Context, chatID int64, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMessage{chatID, text})
	return nil
}

type fakeFiles map[string][]byte

func (f fakeFiles) DownloadFile(_ context.Context, id string) ([]byte, error) {
	return f[id], nil
}

type fakeTranscriber struct{ text string }

func (f fakeTranscriber) Transcribe(context.Context, []byte, string) (string, error) {
	return f.text, nil
}

type testServer struct {
	*Server
	clock     *testClock
	messenger *fakeMessenger
}

func newTestServer(t *testing.T, mods ...func(*Options)) *testServer {
	t.Helper()
	return newTestServerWithStore(t, memory.NewSeeded(), mods...)
}

func newTestServerWithStore(t *testing.T, store ports.Store, mods ...func(*Options)) *testServer {
	t.Helper()
	clk := &testClock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	opt := services.WithClock(clk.now)

	p := parser.New(parser.WithClock(clk.now))
	fixed := services.NewFixedExpenseService(store, nil, nil, opt)
	txs := services.NewTransactionService(store, nil, fixed, opt)
	periods := services.NewPeriodService(store, nil, nil, opt)
	svc := Services{
		Parser:       p,
		Transactions: txs,
		Fixed:        fixed,
		Periods:      periods,
		Summary:      services.NewSummaryService(store, opt),
		Assistant:    services.NewAssistantService(p, txs, fixed, fakeTranscriber{text: "locomoción 4500 visa"}),
	}

	if _, err := periods.Current(context.Background()); err != nil {
		t.Fatalf("open period: %v", err)
	}
	clk.advance(time.Hour)

	m := &fakeMessenger{}
	opts := Options{
		Messenger:         m,
		Files:             fakeFiles{"voice-1": []byte("ogg")},
		N8NSecret:         "s3cret",
		RequestsPerMinute: 1000,
		Now:               clk.now,
	}
	for _, mod := range mods {
		mod(&opts)
	}
	srv, err := NewServer(":0", svc, opts)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return &testServer{Server: srv, clock: clk, messenger: m}
}

func (ts *testServer) do(t *testing.T, method, target, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if strings.HasPrefix(body, "{") {
		req.Header.Set("Content-Type", "application/json")
	} else if body != "" {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	ts.Handler.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func TestHealthAndReady(t *testing.T) {
	ts := newTestServer(t)

	if w := ts.do(t, http.MethodGet, "/healthz", ""); w.Code != http.StatusOK {
		t.Errorf("/healthz = %d", w.Code)
	}
	ts.do(t, http.MethodGet, "/.env", "")
	w := ts.do(t, http.MethodGet, "/readyz", "")
	if w.Code != http.StatusOK {
		t.Errorf("/readyz = %d", w.Code)
	}
	ready := decode[readyView](t, w)
	if ready.Status != "ready" || ready.Requests < 2 || ready.SuspiciousScans != 1 {
		t.Errorf("ready = %+v", ready)
	}

	down := newTestServer(t, func(o *Options) {
		o.Ready = func(context.Context) error { return context.DeadlineExceeded }
	})
	if w := down.do(t, http.MethodGet, "/readyz", ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("/readyz with failing backend = %d", w.Code)
	}
}

func TestServer_RequestIDAndSecurityHeaders(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodGet, "/healthz", "", "X-Request-ID", "abc-123")

	if got := w.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("X-Request-ID = %q", got)
	}
	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if w := ts.do(t, http.MethodGet, "/.env", ""); w.Code != http.StatusNotFound {
		t.Errorf("scan = %d, want 404", w.Code)
	}
}

func TestParseEndpoint(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/parse", `{"text":"almuerzo 5000 visa"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body)
	}
	res := decode[parser.Result](t, w)
	if res.Kind != parser.KindTransaction || res.Transaction.Amount != 5000 {
		t.Errorf("result = %+v", res)
	}

	w = ts.do(t, http.MethodPost, "/api/parse", `{"text":"hola"}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("unparseable status = %d", w.Code)
	}
}

func TestTransactionsLifecycle(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/transactions", `{"text":"almuerzo 5000"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d body=%s", w.Code, w.Body)
	}
	created := decode[transactionView](t, w)
	if created.Category != "Almuerzos" || created.Amount != 5000 {
		t.Errorf("created = %+v", created)
	}
	if loc := w.Header().Get("Location"); !strings.HasSuffix(loc, "/api/transactions/"+jsonInt(created.ID)) {
		t.Errorf("Location = %q", loc)
	}

	w = ts.do(t, http.MethodPost, "/api/transactions", "amount=12000&category=luz&paymentMethod=visa&description=boleta")
	if w.Code != http.StatusCreated {
		t.Fatalf("form create status = %d body=%s", w.Code, w.Body)
	}

	w = ts.do(t, http.MethodGet, "/api/transactions?method=VISA", "")
	visa := decode[[]transactionView](t, w)
	if len(visa) != 1 || visa[0].Category != "Luz" {
		t.Errorf("visa list = %+v", visa)
	}

	w = ts.do(t, http.MethodDelete, "/api/transactions/"+jsonInt(created.ID), "")
	if w.Code != http.StatusNoContent {
		t.Errorf("delete status = %d", w.Code)
	}
	w = ts.do(t, http.MethodDelete, "/api/transactions/"+jsonInt(created.ID), "")
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d", w.Code)
	}
}

func TestCreateTransaction_Rejections(t *testing.T) {
	ts := newTestServer(t)
	tests := []struct {
		name string
		body string
		want int
	}{
		{"zero amount", `{"amount":0}`, http.StatusBadRequest},
		{"negative amount", `{"amount":-5}`, http.StatusBadRequest},
		{"bad method", `{"amount":10,"paymentMethod":"cheque"}`, http.StatusBadRequest},
		{"bad date", `{"amount":10,"date":"ayer"}`, http.StatusBadRequest},
		{"unparseable text", `{"text":"nada por aqui"}`, http.StatusUnprocessableEntity},
		{"fixed payment text", `{"text":"arriendo pagado"}`, http.StatusBadRequest},
		{"malformed", `{"amount":`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := ts.do(t, http.MethodPost, "/api/transactions", tt.body); w.Code != tt.want {
				t.Errorf("status = %d, want %d body=%s", w.Code, tt.want, w.Body)
			}
		})
	}
}

func TestDashboard_ActivePeriodIsNotCached(t *testing.T) {
	ts := newTestServer(t)

	for i := 0; i < 2; i++ {
		if w := ts.do(t, http.MethodGet, "/api/dashboard", ""); w.Header().Get("X-Cache") != "BYPASS" {
			t.Errorf("request %d X-Cache = %q, want BYPASS", i, w.Header().Get("X-Cache"))
		}
	}
	before := decode[dashboardView](t, ts.do(t, http.MethodGet, "/api/dashboard", ""))

	ts.do(t, http.MethodPost, "/api/transactions", `{"amount":7000,"category":"Vtr"}`)
	ts.clock.advance(48 * time.Hour)

	after := decode[dashboardView](t, ts.do(t, http.MethodGet, "/api/dashboard", ""))
	if after.Summary.TransactionTotal != before.Summary.TransactionTotal+7000 {
		t.Errorf("transaction total %d -> %d", before.Summary.TransactionTotal, after.Summary.TransactionTotal)
	}
	// 7000 over ceil(49h) = 3 days
	if after.Summary.DailyAverage != 2333 {
		t.Errorf("daily average = %d, want 2333 from the current clock", after.Summary.DailyAverage)
	}
}

func TestDashboard_ClosedPeriodCacheInvalidatedByWrites(t *testing.T) {
	ts := newTestServer(t)

	ts.do(t, http.MethodPost, "/api/transactions", `{"amount":7000,"category":"Vtr"}`)
	ts.clock.advance(24 * time.Hour)
	res := decode[map[string]periodView](t, ts.do(t, http.MethodPost, "/api/periods/close", ""))
	closed := jsonInt(res["closed"].ID)

	w := ts.do(t, http.MethodGet, "/api/dashboard?period="+closed, "")
	if w.Header().Get("X-Cache") != "MISS" {
		t.Errorf("first X-Cache = %q", w.Header().Get("X-Cache"))
	}
	before := decode[dashboardView](t, w)
	if w := ts.do(t, http.MethodGet, "/api/dashboard?period="+closed, ""); w.Header().Get("X-Cache") != "HIT" {
		t.Errorf("second X-Cache = %q", w.Header().Get("X-Cache"))
	}

	list := decode[[]fixedExpenseView](t, ts.do(t, http.MethodGet, "/api/fixed-expenses?period="+closed, ""))
	var celular fixedExpenseView
	for _, fe := range list {
		if fe.Name == "Celular" {
			celular = fe
		}
	}
	ts.do(t, http.MethodPost, "/api/fixed-expenses/"+jsonInt(celular.ID)+"/toggle?period="+closed, "")

	w = ts.do(t, http.MethodGet, "/api/dashboard?period="+closed, "")
	if w.Header().Get("X-Cache") != "MISS" {
		t.Errorf("after write X-Cache = %q", w.Header().Get("X-Cache"))
	}
	after := decode[dashboardView](t, w)
	if after.Summary.VirtualFixedTotal != before.Summary.VirtualFixedTotal+celular.Amount {
		t.Errorf("virtual total %d -> %d, want +%d", before.Summary.VirtualFixedTotal, after.Summary.VirtualFixedTotal, celular.Amount)
	}
}

func TestCreateTransaction_DoesNotSettleFixedExpense(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/transactions", `{"amount":5000,"category":"Almuerzos"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d body=%s", w.Code, w.Body)
	}
	for _, fe := range decode[[]fixedExpenseView](t, ts.do(t, http.MethodGet, "/api/fixed-expenses", "")) {
		if fe.IsPaid {
			t.Errorf("%s marked paid by a plain transaction", fe.Name)
		}
	}
}

// splitBrainStore reports two active periods, which only a corrupted
// database can produce.
type splitBrainStore struct {
	*memory.Store
}

func (s splitBrainStore) ListActivePeriods(ctx context.Context) ([]core.Period, error) {
	active, err := s.Store.ListActivePeriods(ctx)
	if err != nil || len(active) == 0 {
		return active, err
	}
	dup := active[0]
	dup.ID += 100
	return append(active, dup), nil
}

func TestDashboard_TwoActivePeriodsIsServerError(t *testing.T) {
	ts := newTestServerWithStore(t, splitBrainStore{memory.NewSeeded()})

	w := ts.do(t, http.MethodGet, "/api/dashboard", "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d body=%s, want 500", w.Code, w.Body)
	}
	if msg := decode[map[string]string](t, w)["error"]; msg != "internal error" {
		t.Errorf("error = %q", msg)
	}
}

func TestFixedExpenses_ToggleAndAmount(t *testing.T) {
	ts := newTestServer(t)

	list := decode[[]fixedExpenseView](t, ts.do(t, http.MethodGet, "/api/fixed-expenses", ""))
	var celular fixedExpenseView
	for _, fe := range list {
		if fe.Name == "Celular" {
			celular = fe
		}
	}
	if celular.ID == 0 || celular.IsPaid {
		t.Fatalf("celular = %+v", celular)
	}
	path := "/api/fixed-expenses/" + jsonInt(celular.ID)

	w := ts.do(t, http.MethodPost, path+"/toggle", "")
	if w.Code != http.StatusOK {
		t.Fatalf("toggle status = %d body=%s", w.Code, w.Body)
	}
	if p := decode[paymentView](t, w); !p.IsPaid || p.PaidAt == nil {
		t.Errorf("payment = %+v", p)
	}

	w = ts.do(t, http.MethodPost, path+"/toggle", `{"isPaid":false}`)
	if p := decode[paymentView](t, w); p.IsPaid {
		t.Errorf("untoggled payment = %+v", p)
	}

	if w := ts.do(t, http.MethodPut, path+"/amount", `{"amount":15990}`); w.Code != http.StatusNoContent {
		t.Errorf("amount status = %d", w.Code)
	}
	if w := ts.do(t, http.MethodPut, path+"/amount", `{"amount":-1}`); w.Code != http.StatusBadRequest {
		t.Errorf("negative amount status = %d", w.Code)
	}
	if w := ts.do(t, http.MethodPost, "/api/fixed-expenses/9999/toggle", ""); w.Code != http.StatusNotFound {
		t.Errorf("unknown toggle status = %d", w.Code)
	}
}

func TestPeriods_BudgetAndClose(t *testing.T) {
	ts := newTestServer(t)

	current := decode[periodView](t, ts.do(t, http.MethodGet, "/api/periods/current", ""))
	if !current.IsActive {
		t.Fatalf("current = %+v", current)
	}

	if w := ts.do(t, http.MethodGet, "/api/budget", ""); w.Code != http.StatusNotFound {
		t.Errorf("unset budget status = %d", w.Code)
	}
	w := ts.do(t, http.MethodPut, "/api/budget", `{"amount":900000}`)
	if b := decode[budgetView](t, w); b.Amount != 900000 || b.PeriodID != current.ID {
		t.Errorf("budget = %+v", b)
	}
	w = ts.do(t, http.MethodPut, "/api/periods/savings-goal", `{"amount":100000}`)
	if p := decode[periodView](t, w); p.SavingsGoal == nil || *p.SavingsGoal != 100000 {
		t.Errorf("savings goal = %+v", p)
	}

	ts.clock.advance(24 * time.Hour)
	w = ts.do(t, http.MethodPost, "/api/periods/close", "")
	if w.Code != http.StatusOK {
		t.Fatalf("close status = %d body=%s", w.Code, w.Body)
	}
	res := decode[map[string]periodView](t, w)
	if res["closed"].ID != current.ID || res["closed"].IsActive || res["closed"].EndDate == nil {
		t.Errorf("closed = %+v", res["closed"])
	}
	if !res["next"].IsActive || res["next"].ID == current.ID {
		t.Errorf("next = %+v", res["next"])
	}

	w = ts.do(t, http.MethodGet, "/api/budget?period="+jsonInt(current.ID), "")
	if b := decode[budgetView](t, w); b.Amount != 900000 {
		t.Errorf("closed period budget = %+v", b)
	}
}

func TestAnalysis(t *testing.T) {
	ts := newTestServer(t)

	if w := ts.do(t, http.MethodGet, "/api/analysis?periods=0", ""); w.Code != http.StatusBadRequest {
		t.Errorf("periods=0 status = %d", w.Code)
	}
	if w := ts.do(t, http.MethodGet, "/api/analysis?periods=abc", ""); w.Code != http.StatusBadRequest {
		t.Errorf("periods=abc status = %d", w.Code)
	}

	ts.do(t, http.MethodPost, "/api/transactions", `{"amount":20000,"category":"Vtr"}`)
	ts.clock.advance(time.Hour)
	ts.do(t, http.MethodPost, "/api/periods/close", "")

	w := ts.do(t, http.MethodGet, "/api/analysis", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body)
	}
	a := decode[struct {
		PeriodCount     int   `json:"periodCount"`
		AverageSpending int64 `json:"averageSpending"`
	}](t, w)
	if a.PeriodCount != 1 || a.AverageSpending != 20000 {
		t.Errorf("analysis = %+v", a)
	}
}

func TestExportTransactions(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodPost, "/api/transactions", `{"amount":3000,"category":"Luz"}`)

	w := ts.do(t, http.MethodGet, "/api/export/transactions.xlsx", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body)
	}
	if ct := w.Header().Get("Content-Type"); ct != export.ContentType {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.HasPrefix(cd, "attachment;") || !strings.Contains(cd, ".xlsx") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	// xlsx is a zip archive.
	if !strings.HasPrefix(w.Body.String(), "PK") {
		t.Error("body is not a zip archive")
	}
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t, func(o *Options) { o.RequestsPerMinute = 2 })
	for i := 0; i < 2; i++ {
		if w := ts.do(t, http.MethodGet, "/healthz", ""); w.Code != http.StatusOK {
			t.Fatalf("request %d = %d", i, w.Code)
		}
	}
	if w := ts.do(t, http.MethodGet, "/healthz", ""); w.Code != http.StatusTooManyRequests {
		t.Errorf("third request = %d, want 429", w.Code)
	}
}

func jsonInt(v int64) string { return strconv.FormatInt(v, 10) }
