package http

import (
	"coinpath/internal/core"
	"coinpath/internal/ledger"
	"coinpath/internal/settings"
)

// JSON views of the domain types. Amounts are fixed two-decimal strings so
// clients never see a binary float.

type transactionView struct {
	Date     string `json:"date"`
	Type     string `json:"type"`
	Mode     string `json:"mode"`
	Category string `json:"category"`
	Amount   string `json:"amount"`
	Notes    string `json:"notes,omitempty"`
}

type transactionsView struct {
	Year         int               `json:"year,omitempty"`
	Month        int               `json:"month,omitempty"`
	Source       string            `json:"source"`
	Count        int               `json:"count"`
	Transactions []transactionView `json:"transactions"`
}

type summaryView struct {
	Year      int    `json:"year"`
	Month     int    `json:"month"`
	Currency  string `json:"currency"`
	Income    string `json:"income"`
	Expense   string `json:"expense"`
	Balance   string `json:"balance"`
	Formatted struct {
		Income  string `json:"income"`
		Expense string `json:"expense"`
		Balance string `json:"balance"`
	} `json:"formatted"`
}

type categoryView struct {
	Name   string `json:"name"`
	Amount string `json:"amount"`
}

type breakdownView struct {
	Year       int            `json:"year"`
	Month      int            `json:"month"`
	Kind       string         `json:"kind"`
	Total      string         `json:"total"`
	Categories []categoryView `json:"categories"`
}

type flowNodeView struct {
	Label string `json:"label"`
	Kind  string `json:"kind,omitempty"`
}

type flowLinkView struct {
	Source int    `json:"source"`
	Target int    `json:"target"`
	Value  string `json:"value"`
}

type flowView struct {
	Year  int            `json:"year"`
	Month int            `json:"month"`
	Nodes []flowNodeView `json:"nodes"`
	Links []flowLinkView `json:"links"`
}

type cashFlowPointView struct {
	Date       string `json:"date"`
	Net        string `json:"net"`
	Cumulative string `json:"cumulative"`
}

type dailyView struct {
	Date    string `json:"date"`
	Income  string `json:"income"`
	Expense string `json:"expense"`
}

type budgetView struct {
	Category  string `json:"category"`
	Budget    string `json:"budget"`
	Spent     string `json:"spent"`
	Remaining string `json:"remaining"`
	Over      bool   `json:"over"`
}

type insightsView struct {
	Year        int           `json:"year"`
	Month       int           `json:"month"`
	TopCategory *categoryView `json:"top_category,omitempty"`
	TopShare    string        `json:"top_share_percent,omitempty"`
	Budgets     []budgetView  `json:"budgets"`
}

type receiptView struct {
	Transaction transactionView `json:"transaction"`
	Backend     string          `json:"backend"`
	Ref         string          `json:"ref,omitempty"`
	FellBack    bool            `json:"fell_back"`
}

type importView struct {
	Mode     string `json:"mode"`
	Added    int    `json:"added"`
	Total    int    `json:"total"`
	Skipped  int    `json:"skipped"`
	Rejected int    `json:"rejected"`
	Backend  string `json:"backend"`
	FellBack bool   `json:"fell_back"`
}

type settingsView struct {
	Currency   string   `json:"currency"`
	Symbol     string   `json:"symbol"`
	Modes      []string `json:"modes"`
	Categories struct {
		Income  []string `json:"income"`
		Expense []string `json:"expense"`
	} `json:"categories"`
	Budgets   map[string]string `json:"budgets,omitempty"`
	Recurring int               `json:"recurring"`
}

type diagnosticsView struct {
	Primary        string `json:"primary"`
	Fallback       string `json:"fallback,omitempty"`
	Degraded       bool   `json:"degraded"`
	LastNotice     string `json:"last_notice,omitempty"`
	ServiceAccount string `json:"service_account,omitempty"`
	CachedMonths   int    `json:"cached_months"`
	Requests       int64  `json:"requests"`
	RateLimited    int64  `json:"rate_limited"`
}

func newTransactionView(tx core.Transaction) transactionView {
	return transactionView{
		Date:     tx.Date.String(),
		Type:     tx.Kind.String(),
		Mode:     tx.Mode,
		Category: tx.Category,
		Amount:   amount(tx.Amount),
		Notes:    tx.Notes,
	}
}

func newTransactionsView(snap ledger.Snapshot, txs []core.Transaction, p MonthParams) transactionsView {
	v := transactionsView{
		Source:       snap.Source,
		Count:        len(txs),
		Transactions: make([]transactionView, 0, len(txs)),
	}
	if p.Month != 0 {
		v.Year, v.Month = p.Year, p.Month
	}
	for _, tx := range txs {
		v.Transactions = append(v.Transactions, newTransactionView(tx))
	}
	return v
}

func newSummaryView(s core.Summary, p MonthParams, st *settings.Settings) summaryView {
	v := summaryView{
		Year:     p.Year,
		Month:    p.Month,
		Currency: st.Currency,
		Income:   amount(s.Income),
		Expense:  amount(s.Expense),
		Balance:  amount(s.Balance),
	}
	v.Formatted.Income = st.Format(s.Income)
	v.Formatted.Expense = st.Format(s.Expense)
	v.Formatted.Balance = st.Format(s.Balance)
	return v
}

func newCategoryViews(in []core.CategoryAmount) []categoryView {
	out := make([]categoryView, 0, len(in))
	for _, c := range in {
		out = append(out, categoryView{Name: c.Name, Amount: amount(c.Amount)})
	}
	return out
}

func newFlowView(g core.FlowGraph, p MonthParams) flowView {
	v := flowView{
		Year:  p.Year,
		Month: p.Month,
		Nodes: make([]flowNodeView, 0, len(g.Nodes)),
		Links: make([]flowLinkView, 0, len(g.Links)),
	}
	for _, n := range g.Nodes {
		v.Nodes = append(v.Nodes, flowNodeView{Label: n.Label, Kind: n.Kind.String()})
	}
	for _, l := range g.Links {
		v.Links = append(v.Links, flowLinkView{Source: l.Source, Target: l.Target, Value: amount(l.Value)})
	}
	return v
}

func newCashFlowViews(points []core.CashFlowPoint) []cashFlowPointView {
	out := make([]cashFlowPointView, 0, len(points))
	for _, pt := range points {
		out = append(out, cashFlowPointView{Date: pt.Date.String(), Net: amount(pt.Net), Cumulative: amount(pt.Cumulative)})
	}
	return out
}

func newDailyViews(days []core.DailyTotals) []dailyView {
	out := make([]dailyView, 0, len(days))
	for _, d := range days {
		out = append(out, dailyView{Date: d.Date.String(), Income: amount(d.Income), Expense: amount(d.Expense)})
	}
	return out
}

func newBudgetViews(lines []core.BudgetLine) []budgetView {
	out := make([]budgetView, 0, len(lines))
	for _, l := range lines {
		out = append(out, budgetView{
			Category:  l.Category,
			Budget:    amount(l.Budget),
			Spent:     amount(l.Spent),
			Remaining: amount(l.Remaining),
			Over:      l.Over,
		})
	}
	return out
}

func newReceiptView(tx core.Transaction, rc ledger.Receipt) receiptView {
	return receiptView{
		Transaction: newTransactionView(tx),
		Backend:     rc.Backend,
		Ref:         rc.Ref,
		FellBack:    rc.FellBack,
	}
}

func newSettingsView(st *settings.Settings) settingsView {
	v := settingsView{
		Currency:  st.Currency,
		Symbol:    st.Symbol(),
		Modes:     st.Modes,
		Recurring: len(st.Recurring),
	}
	v.Categories.Income = st.Categories.Income
	v.Categories.Expense = st.Categories.Expense
	if len(st.Budgets) > 0 {
		v.Budgets = make(map[string]string, len(st.Budgets))
		for cat, b := range st.Budgets {
			v.Budgets[cat] = amount(b)
		}
	}
	return v
}
