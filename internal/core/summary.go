package core

import "github.com/shopspring/decimal"

// FlowHub is the label of the aggregate node in the money-flow graph.
const FlowHub = "Total Income"

// Summary holds the three monthly headline figures.
type Summary struct {
	Income  decimal.Decimal
	Expense decimal.Decimal
	Balance decimal.Decimal
}

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount decimal.Decimal
}

// FlowNode is a node of the money-flow graph. Kind is empty for the hub.
type FlowNode struct {
	Label string
	Kind  Kind
}

// FlowLink connects two nodes by index with the category total as weight.
type FlowLink struct {
	Source int
	Target int
	Value  decimal.Decimal
}

// FlowGraph is the two-stage Sankey view: income categories -> hub -> expense categories.
type FlowGraph struct {
	Nodes []FlowNode
	Links []FlowLink
}

// CashFlowPoint is one step of the cumulative cash flow.
type CashFlowPoint struct {
	Date       Date
	Net        decimal.Decimal
	Cumulative decimal.Decimal
}

// DailyTotals is the income/expense of a single day.
type DailyTotals struct {
	Date    Date
	Income  decimal.Decimal
	Expense decimal.Decimal
}

// BudgetLine compares spending in a category against its monthly budget.
type BudgetLine struct {
	Category  string
	Budget    decimal.Decimal
	Spent     decimal.Decimal
	Remaining decimal.Decimal
	Over      bool
}

// MonthReport is everything the monthly views need, computed in one pass.
type MonthReport struct {
	Year     int
	Month    int // 1-12
	Summary  Summary
	Income   []CategoryAmount
	Expenses []CategoryAmount
	Flow     FlowGraph
}
