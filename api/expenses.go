package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/billbatista/easychore/home"
	"github.com/billbatista/easychore/ledger"
)

type debtorRequest struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
	Paid   bool            `json:"paid"`
}

type createExpenseRequest struct {
	HomeID    string          `json:"homeId"`
	Payer     string          `json:"payer"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason"`
	SplitType string          `json:"splitType"`
	Debtors   []debtorRequest `json:"debtors"`
}

type markPaidRequest struct {
	DebtorName string `json:"debtorName"`
	PaidMethod string `json:"paidMethod"`
}

// Amounts leave the API as plain JSON numbers with two decimals.
type debtorView struct {
	Name       string            `json:"name"`
	Amount     json.Number       `json:"amount"`
	Paid       bool              `json:"paid"`
	PaidMethod ledger.PaidMethod `json:"paidMethod,omitempty"`
	PaidDate   *time.Time        `json:"paidDate"`
}

type expenseView struct {
	ID        string           `json:"id"`
	HomeID    string           `json:"homeId"`
	Payer     string           `json:"payer"`
	Amount    json.Number      `json:"amount"`
	Reason    string           `json:"reason"`
	SplitType ledger.SplitType `json:"splitType"`
	Debtors   []debtorView     `json:"debtors"`
	Date      time.Time        `json:"date"`
	CreatedBy string           `json:"createdBy"`
}

type balanceView struct {
	Name   string      `json:"name"`
	Amount json.Number `json:"amount"`
}

func money(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(2))
}

func newExpenseView(e *ledger.Expense) expenseView {
	debtors := make([]debtorView, 0, len(e.Debtors))
	for _, d := range e.Debtors {
		debtors = append(debtors, debtorView{
			Name:       d.Name,
			Amount:     money(d.Amount),
			Paid:       d.Paid,
			PaidMethod: d.PaidMethod,
			PaidDate:   d.PaidDate,
		})
	}
	return expenseView{
		ID:        e.ID.String(),
		HomeID:    e.HomeID,
		Payer:     e.Payer,
		Amount:    money(e.Amount),
		Reason:    e.Reason,
		SplitType: e.SplitType,
		Debtors:   debtors,
		Date:      e.Date,
		CreatedBy: e.CreatedBy,
	}
}

func (s *Server) createExpense(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req createExpenseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	params := ledger.NewExpenseParams{
		HomeID:    home.NormalizeCode(req.HomeID),
		Payer:     req.Payer,
		Amount:    req.Amount,
		Reason:    req.Reason,
		SplitType: ledger.SplitType(req.SplitType),
	}
	for _, d := range req.Debtors {
		params.Debtors = append(params.Debtors, ledger.DebtorInput{Name: d.Name, Amount: d.Amount, Paid: d.Paid})
	}

	expense, err := s.Ledger.Create(r.Context(), params, id.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"expense": newExpenseView(expense)})
}

func (s *Server) listExpenses(w http.ResponseWriter, r *http.Request) {
	if _, err := caller(r); err != nil {
		writeError(w, r, err)
		return
	}

	expenses, err := s.Ledger.List(r.Context(), home.NormalizeCode(chi.URLParam(r, "homeID")))
	if err != nil {
		writeError(w, r, err)
		return
	}

	views := make([]expenseView, 0, len(expenses))
	for i := range expenses {
		views = append(views, newExpenseView(&expenses[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"expenses": views})
}

func (s *Server) balances(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	balances, err := s.Ledger.Balances(r.Context(), home.NormalizeCode(chi.URLParam(r, "homeID")), id.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	views := make([]balanceView, 0, len(balances))
	for _, b := range balances {
		views = append(views, balanceView{Name: b.Name, Amount: money(b.Amount)})
	}
	writeJSON(w, http.StatusOK, map[string]any{"balances": views})
}

func (s *Server) getExpense(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	expense, err := s.Ledger.Get(r.Context(), chi.URLParam(r, "expenseID"), id.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"expense": newExpenseView(expense)})
}

func (s *Server) deleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.Ledger.Delete(r.Context(), chi.URLParam(r, "expenseID"), id.ID); err != nil {
		writeError(w, r, err)
		return
	}

	writeMessage(w, http.StatusOK, "Expense deleted successfully")
}

func (s *Server) markPaidByPayer(w http.ResponseWriter, r *http.Request) {
	s.markPaid(w, r, s.Ledger.MarkPaidByPayer, "Payment marked as paid")
}

func (s *Server) markPaidBySelf(w http.ResponseWriter, r *http.Request) {
	s.markPaid(w, r, s.Ledger.MarkPaidBySelf, "Your payment has been marked as paid")
}

type settleFunc func(ctx context.Context, expenseID, debtorName, method, requester string) (*ledger.Expense, error)

func (s *Server) markPaid(w http.ResponseWriter, r *http.Request, settle settleFunc, msg string) {
	id, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req markPaidRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	expense, err := settle(r.Context(), chi.URLParam(r, "expenseID"), req.DebtorName, req.PaidMethod, id.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": msg,
		"expense": newExpenseView(expense),
	})
}
