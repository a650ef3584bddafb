// Package ledger owns the transaction collection and the monthly views
// derived from it.
package ledger

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"coinpath/internal/core"
)

var hundred = decimal.NewFromInt(100)

// Monthly keeps the transactions dated in the given year and month.
// Transactions with a zero date never match.
func Monthly(txs []core.Transaction, year, month int) []core.Transaction {
	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.Date.In(year, month) {
			out = append(out, tx)
		}
	}
	return out
}

// Summarize totals income and expense; balance is their exact difference.
func Summarize(txs []core.Transaction) core.Summary {
	income, expense := decimal.Zero, decimal.Zero
	for _, tx := range txs {
		switch tx.Kind {
		case core.Income:
			income = income.Add(tx.Amount)
		case core.Expense:
			expense = expense.Add(tx.Amount)
		}
	}
	return core.Summary{Income: income, Expense: expense, Balance: income.Sub(expense)}
}

// BreakdownByCategory sums amounts of one kind per category, largest first.
// Equal totals are ordered by name.
func BreakdownByCategory(txs []core.Transaction, kind core.Kind) []core.CategoryAmount {
	totals := map[string]decimal.Decimal{}
	for _, tx := range txs {
		if tx.Kind != kind {
			continue
		}
		totals[tx.Category] = totals[tx.Category].Add(tx.Amount)
	}
	out := make([]core.CategoryAmount, 0, len(totals))
	for name, amt := range totals {
		out = append(out, core.CategoryAmount{Name: name, Amount: amt})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// FlowGraph builds the two-stage money flow: every income category feeds
// the hub node, which feeds every expense category. Categories are sorted
// by name within each kind and categories with a zero total get no link.
// An income and an expense category sharing a label are separate nodes.
func FlowGraph(txs []core.Transaction) core.FlowGraph {
	income := byName(BreakdownByCategory(txs, core.Income))
	expense := byName(BreakdownByCategory(txs, core.Expense))

	var g core.FlowGraph
	for _, c := range income {
		g.Nodes = append(g.Nodes, core.FlowNode{Label: c.Name, Kind: core.Income})
	}
	hub := len(g.Nodes)
	g.Nodes = append(g.Nodes, core.FlowNode{Label: core.FlowHub})
	for _, c := range expense {
		g.Nodes = append(g.Nodes, core.FlowNode{Label: c.Name, Kind: core.Expense})
	}

	for i, c := range income {
		if c.Amount.IsPositive() {
			g.Links = append(g.Links, core.FlowLink{Source: i, Target: hub, Value: c.Amount})
		}
	}
	for i, c := range expense {
		if c.Amount.IsPositive() {
			g.Links = append(g.Links, core.FlowLink{Source: hub, Target: hub + 1 + i, Value: c.Amount})
		}
	}
	return g
}

func byName(in []core.CategoryAmount) []core.CategoryAmount {
	sort.SliceStable(in, func(i, j int) bool { return in[i].Name < in[j].Name })
	return in
}

// CumulativeFlow orders dated transactions by date, keeping append order
// within a day, and accumulates their signed amounts.
func CumulativeFlow(txs []core.Transaction) []core.CashFlowPoint {
	dated := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if !tx.Date.IsZero() {
			dated = append(dated, tx)
		}
	}
	sort.SliceStable(dated, func(i, j int) bool { return dated[i].Date.Before(dated[j].Date.Time) })

	out := make([]core.CashFlowPoint, 0, len(dated))
	running := decimal.Zero
	for _, tx := range dated {
		running = running.Add(tx.Signed())
		out = append(out, core.CashFlowPoint{Date: tx.Date, Net: tx.Signed(), Cumulative: running})
	}
	return out
}

// DailyTrend returns one entry per calendar day of the month, zero days included.
func DailyTrend(txs []core.Transaction, year, month int) []core.DailyTotals {
	days := time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
	out := make([]core.DailyTotals, days)
	for d := range out {
		out[d] = core.DailyTotals{Date: core.NewDate(year, month, d+1), Income: decimal.Zero, Expense: decimal.Zero}
	}
	for _, tx := range Monthly(txs, year, month) {
		d := &out[tx.Date.Day()-1]
		switch tx.Kind {
		case core.Income:
			d.Income = d.Income.Add(tx.Amount)
		case core.Expense:
			d.Expense = d.Expense.Add(tx.Amount)
		}
	}
	return out
}

// TopExpenseShare returns the largest expense category and its share of
// total spending in percent, rounded to one decimal. ok is false when
// there is no spending.
func TopExpenseShare(txs []core.Transaction) (top core.CategoryAmount, percent decimal.Decimal, ok bool) {
	breakdown := BreakdownByCategory(txs, core.Expense)
	if len(breakdown) == 0 {
		return core.CategoryAmount{}, decimal.Zero, false
	}
	total := Summarize(txs).Expense
	if !total.IsPositive() {
		return core.CategoryAmount{}, decimal.Zero, false
	}
	top = breakdown[0]
	return top, top.Amount.Mul(hundred).Div(total).Round(1), true
}

// BudgetReport compares expense totals against per-category budgets.
// Categories without a positive budget are left out; lines are sorted by name.
func BudgetReport(txs []core.Transaction, budgets map[string]decimal.Decimal) []core.BudgetLine {
	spent := map[string]decimal.Decimal{}
	for _, c := range BreakdownByCategory(txs, core.Expense) {
		spent[c.Name] = c.Amount
	}
	out := make([]core.BudgetLine, 0, len(budgets))
	for cat, budget := range budgets {
		if !budget.IsPositive() {
			continue
		}
		s := spent[cat]
		out = append(out, core.BudgetLine{
			Category:  cat,
			Budget:    budget,
			Spent:     s,
			Remaining: budget.Sub(s),
			Over:      s.GreaterThan(budget),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}

// Report computes the month's headline figures, breakdowns and flow graph.
func Report(txs []core.Transaction, year, month int) core.MonthReport {
	m := Monthly(txs, year, month)
	return core.MonthReport{
		Year:     year,
		Month:    month,
		Summary:  Summarize(m),
		Income:   BreakdownByCategory(m, core.Income),
		Expenses: BreakdownByCategory(m, core.Expense),
		Flow:     FlowGraph(m),
	}
}

// MergeExact appends the incoming rows that have no exact match in existing.
// Duplicates within incoming are kept; it returns the merged collection and
// how many rows were added.
func MergeExact(existing, incoming []core.Transaction) ([]core.Transaction, int) {
	merged := append([]core.Transaction(nil), existing...)
	added := 0
	for _, tx := range incoming {
		if Contains(existing, tx) {
			continue
		}
		merged = append(merged, tx)
		added++
	}
	return merged, added
}

// Contains reports whether txs holds a row identical to tx.
func Contains(txs []core.Transaction, tx core.Transaction) bool {
	for _, have := range txs {
		if have.Equal(tx) {
			return true
		}
	}
	return false
}
