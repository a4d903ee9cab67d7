package http

import (
	"fmt"
	"net/http"
	"strconv"

	"michaucha/internal/core"
	"michaucha/internal/parser"
)

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	body := NewRequestBodyParser(r)
	if err := body.Parse(); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.svc.Parser.Parse(body.Get("text"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().JSON(res).Write(w)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	periodID, err := optionalID(r.URL.Query(), "period")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var key string
	if periodID != nil {
		key = strconv.FormatInt(*periodID, 10)
		if v, ok := s.dashboards.Get(key); ok {
			NewResponse().Header("X-Cache", "HIT").JSON(v).Write(w)
			return
		}
	}

	gen := s.dashboards.Generation()
	d, err := s.svc.Summary.PeriodSummary(r.Context(), periodID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	v := toDashboardView(d)
	// Open periods depend on the clock (daily average, end = now).
	status := "BYPASS"
	if key != "" && d.Summary.Period != nil && !d.Summary.Period.IsActive {
		s.dashboards.SetAt(gen, key, v)
		status = "MISS"
	}
	NewResponse().Header("X-Cache", status).JSON(v).Write(w)
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	n := s.opts.HistoryPeriods
	if raw := r.URL.Query().Get("periods"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 || v > 24 {
			writeError(w, r, invalid("periods must be between 1 and 24"))
			return
		}
		n = v
	}
	key := strconv.Itoa(n)
	if v, ok := s.analyses.Get(key); ok {
		NewResponse().JSON(v).Write(w)
		return
	}
	gen := s.analyses.Generation()
	a, err := s.svc.Summary.HistoricalAnalysis(r.Context(), n)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.analyses.SetAt(gen, key, a)
	NewResponse().JSON(a).Write(w)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	periodID, err := optionalID(q, "period")
	if err != nil {
		writeError(w, r, err)
		return
	}
	categoryID, err := optionalID(q, "category")
	if err != nil {
		writeError(w, r, err)
		return
	}
	method, err := optionalMethod(q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	txs, err := s.svc.Transactions.ListForPeriod(r.Context(), periodID, method, categoryID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().JSON(toTransactionViews(txs)).Write(w)
}

// handleCreateTransaction accepts free text ({"text": "..."}) or explicit
// fields (amount, category, description, paymentMethod, date).
func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	body := NewRequestBodyParser(r)
	if err := body.Parse(); err != nil {
		writeError(w, r, err)
		return
	}

	var draft parser.TransactionDraft
	if text := body.Get("text"); text != "" && !body.Has("amount") {
		res, err := s.svc.Parser.Parse(text)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if res.Kind != parser.KindTransaction {
			writeError(w, r, invalid("text is a fixed payment acknowledgment, use the toggle endpoint"))
			return
		}
		draft = *res.Transaction
	} else {
		d, err := s.draftFromFields(body)
		if err != nil {
			writeError(w, r, err)
			return
		}
		draft = d
	}

	tx, err := s.svc.Transactions.Create(r.Context(), draft)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().Status(http.StatusCreated).
		Header("Location", fmt.Sprintf("/api/transactions/%d", tx.ID)).
		JSON(toTransactionView(tx)).
		Write(w)
}

func (s *Server) draftFromFields(body *RequestBodyParser) (parser.TransactionDraft, error) {
	amount, err := body.Int64("amount")
	if err != nil {
		return parser.TransactionDraft{}, err
	}
	if amount <= 0 {
		return parser.TransactionDraft{}, core.ErrInvalidAmount
	}
	method, err := core.ParsePaymentMethod(body.Get("paymentMethod"))
	if err != nil {
		return parser.TransactionDraft{}, err
	}
	date, err := parseDate(body.Get("date"), s.opts.Now().Location())
	if err != nil {
		return parser.TransactionDraft{}, err
	}
	return parser.TransactionDraft{
		Amount:        amount,
		Category:      body.Get("category"),
		Description:   body.Get("description"),
		PaymentMethod: method,
		Date:          date,
	}, nil
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.Transactions.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListFixedExpenses(w http.ResponseWriter, r *http.Request) {
	periodID, err := optionalID(r.URL.Query(), "period")
	if err != nil {
		writeError(w, r, err)
		return
	}
	st, err := s.svc.Fixed.ListWithStatus(r.Context(), periodID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().JSON(toFixedExpenseViews(st)).Write(w)
}

// handleToggleFixedExpense sets isPaid (default true) for the expense.
func (s *Server) handleToggleFixedExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	body := NewRequestBodyParser(r)
	if err := body.Parse(); err != nil {
		writeError(w, r, err)
		return
	}
	isPaid := true
	if body.Has("isPaid") {
		if isPaid, err = body.Bool("isPaid"); err != nil {
			writeError(w, r, err)
			return
		}
	}
	periodID, err := optionalID(r.URL.Query(), "period")
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := s.svc.Fixed.Toggle(r.Context(), id, periodID, isPaid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().JSON(toPaymentView(p)).Write(w)
}

func (s *Server) handleUpdateFixedExpenseAmount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	body := NewRequestBodyParser(r)
	if err := body.Parse(); err != nil {
		writeError(w, r, err)
		return
	}
	amount, err := body.Int64("amount")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.Fixed.UpdateAmount(r.Context(), id, amount); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCurrentPeriod(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.Periods.Current(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().JSON(toPeriodView(p)).Write(w)
}

func (s *Server) handleClosePeriod(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.Periods.Close(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().JSON(map[string]periodView{
		"closed": toPeriodView(res.Closed),
		"next":   toPeriodView(res.Next),
	}).Write(w)
}

func (s *Server) amountWithPeriod(r *http.Request) (int64, *int64, error) {
	body := NewRequestBodyParser(r)
	if err := body.Parse(); err != nil {
		return 0, nil, err
	}
	amount, err := body.Int64("amount")
	if err != nil {
		return 0, nil, err
	}
	periodID, err := optionalID(r.URL.Query(), "period")
	return amount, periodID, err
}

func (s *Server) handleSavingsGoal(w http.ResponseWriter, r *http.Request) {
	amount, periodID, err := s.amountWithPeriod(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := s.svc.Periods.UpdateSavingsGoal(r.Context(), periodID, amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().JSON(toPeriodView(p)).Write(w)
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	amount, periodID, err := s.amountWithPeriod(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	b, err := s.svc.Periods.SetBudget(r.Context(), periodID, amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().JSON(toBudgetView(b)).Write(w)
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	periodID, err := optionalID(r.URL.Query(), "period")
	if err != nil {
		writeError(w, r, err)
		return
	}
	b, err := s.svc.Periods.Budget(r.Context(), periodID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().JSON(toBudgetView(b)).Write(w)
}
