// Package report renders derived financial reports for the terminal.
package report

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"haushalt/internal/analytics"
)

// Render writes the full report as a sequence of tables.
func Render(w io.Writer, r analytics.Report) {
	renderSummary(w, r)
	renderMonthly(w, r)
	renderTopCategories(w, "Top Categories (All Time)", r.TopCategoriesAllTime)
	renderTopCategories(w, fmt.Sprintf("Top Categories (%s)", r.ReportMonth), r.TopCategoriesThisMonth)
	renderTrends(w, r)
	renderBudget(w, r)
}

func renderSummary(w io.Writer, r analytics.Report) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.SetTitle("Summary %s", r.ReportMonth)
	t.AppendRows([]table.Row{
		{"Total Income", euro(r.TotalIncome)},
		{"Total Expenses", euro(r.TotalExpense)},
		{"Monthly Avg Income", euro(r.MonthlyAvgIncome)},
		{"Monthly Avg Expense", euro(r.MonthlyAvgExpense)},
		{"Total Savings", euro(r.TotalSavings)},
		{"Savings Rate", fmt.Sprintf("%.1f%%", r.SavingsRate)},
	})
	t.Render()
}

func renderMonthly(w io.Writer, r analytics.Report) {
	if len(r.Monthly) == 0 {
		return
	}
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.SetTitle("Monthly Income vs Expenses")
	t.AppendHeader(table.Row{"Month", "Income", "Expense"})
	for _, m := range r.Monthly {
		t.AppendRow(table.Row{m.Month, euro(m.Income), euro(m.Expense)})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
	})
	t.Render()
}

func renderTopCategories(w io.Writer, title string, cats []analytics.CategoryTotal) {
	if len(cats) == 0 {
		return
	}
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.SetTitle(title)
	t.AppendHeader(table.Row{"Category", "Total"})
	for _, c := range cats {
		t.AppendRow(table.Row{c.Category, euro(c.Total)})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
	})
	t.Render()
}

func renderTrends(w io.Writer, r analytics.Report) {
	if len(r.TopIncreasing) == 0 && len(r.TopDecreasing) == 0 {
		return
	}
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.SetTitle("Category Trends vs Trailing 3-Month Average")
	t.AppendHeader(table.Row{"", "Category", "Avg Prev 3", "This Month", "Change"})
	for _, tr := range r.TopIncreasing {
		t.AppendRow(table.Row{
			text.FgRed.Sprint("▲"), tr.Category,
			euro(tr.AvgPrev3), euro(tr.CurrExpense), percent(tr.PctChange),
		})
	}
	t.AppendSeparator()
	for _, tr := range r.TopDecreasing {
		t.AppendRow(table.Row{
			text.FgGreen.Sprint("▼"), tr.Category,
			euro(tr.AvgPrev3), euro(tr.CurrExpense), percent(tr.PctChange),
		})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})
	t.Render()
}

func renderBudget(w io.Writer, r analytics.Report) {
	if len(r.Budget) == 0 {
		return
	}
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.SetTitle("Budget vs Spent (%s)", r.ReportMonth)
	t.AppendHeader(table.Row{"Category", "Budget", "Spent", "Remaining"})
	for _, b := range r.Budget {
		remaining := euro(b.Remaining)
		if b.Remaining < 0 {
			remaining = text.FgRed.Sprint(remaining)
		}
		t.AppendRow(table.Row{b.Category, euro(b.Limit), euro(b.Spent), remaining})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})
	t.Render()
}

func euro(v float64) string {
	return fmt.Sprintf("%.2f €", v)
}

func percent(v float64) string {
	return fmt.Sprintf("%+.1f%%", v)
}
