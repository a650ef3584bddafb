package http

import (
	"net/http"

	"coinpath/internal/core"
	"coinpath/internal/ledger"
)

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	p, snap, ok := s.monthRows(w, r)
	if !ok {
		return
	}
	NewJSONResponse().
		Data(newSummaryView(ledger.Summarize(snap.Transactions), p, s.settings)).
		Notice(snap.Notice).
		Write(w)
}

func (s *Server) handleBreakdown(w http.ResponseWriter, r *http.Request) {
	p, snap, ok := s.monthRows(w, r)
	if !ok {
		return
	}
	kind, err := ParseKindParam(r.URL.Query())
	if err != nil {
		BadRequestError("kind must be income or expense").Write(w)
		return
	}

	rows := ledger.BreakdownByCategory(snap.Transactions, kind)
	sum := ledger.Summarize(snap.Transactions)
	total := sum.Expense
	if kind == core.Income {
		total = sum.Income
	}
	NewJSONResponse().
		Data(breakdownView{
			Year:       p.Year,
			Month:      p.Month,
			Kind:       kind.String(),
			Total:      amount(total),
			Categories: newCategoryViews(rows),
		}).
		Notice(snap.Notice).
		Write(w)
}

func (s *Server) handleFlow(w http.ResponseWriter, r *http.Request) {
	p, snap, ok := s.monthRows(w, r)
	if !ok {
		return
	}
	NewJSONResponse().
		Data(newFlowView(ledger.FlowGraph(snap.Transactions), p)).
		Notice(snap.Notice).
		Write(w)
}

func (s *Server) handleCashFlow(w http.ResponseWriter, r *http.Request) {
	p, snap, ok := s.monthRows(w, r)
	if !ok {
		return
	}
	NewJSONResponse().
		Data(map[string]interface{}{
			"year":   p.Year,
			"month":  p.Month,
			"points": newCashFlowViews(ledger.CumulativeFlow(snap.Transactions)),
		}).
		Notice(snap.Notice).
		Write(w)
}

func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	p, snap, ok := s.monthRows(w, r)
	if !ok {
		return
	}
	NewJSONResponse().
		Data(map[string]interface{}{
			"year":  p.Year,
			"month": p.Month,
			"days":  newDailyViews(ledger.DailyTrend(snap.Transactions, p.Year, p.Month)),
		}).
		Notice(snap.Notice).
		Write(w)
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	p, snap, ok := s.monthRows(w, r)
	if !ok {
		return
	}
	v := insightsView{
		Year:    p.Year,
		Month:   p.Month,
		Budgets: newBudgetViews(ledger.BudgetReport(snap.Transactions, s.settings.Budgets)),
	}
	if top, share, found := ledger.TopExpenseShare(snap.Transactions); found {
		v.TopCategory = &categoryView{Name: top.Name, Amount: amount(top.Amount)}
		v.TopShare = share.StringFixed(1)
	}
	NewJSONResponse().Data(v).Notice(snap.Notice).Write(w)
}
