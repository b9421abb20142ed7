// Package analytics derives monthly financial reports from a classified
// transaction snapshot.
//
// Every call recomputes from the full snapshot for the selected scope;
// no aggregate state survives between calls. The engine is total over
// well-typed input: an empty snapshot yields an all-zero report.
package analytics

import (
	"log/slog"
	"sort"
	"time"

	"haushalt/internal/core"
)

const topCategoryLimit = 10
const trendLimit = 3
const trendWindow = 3

type (
	// MonthlyTotals is one row of the income-vs-expense series.
	MonthlyTotals struct {
		Month   string
		Income  float64
		Expense float64
	}

	// CumulativePoint is one step of the intra-month burn curve: the
	// running signed sum after the transaction on Date.
	CumulativePoint struct {
		Date    time.Time
		Amount  float64
		Running float64
	}

	// CategoryTotal ranks a category by its total expense magnitude.
	CategoryTotal struct {
		Category string
		Total    float64
	}

	// CategoryTrend compares a category's report-month expense against
	// the trailing average of up to three preceding months.
	CategoryTrend struct {
		Category    string
		AvgPrev3    float64
		CurrExpense float64
		PctChange   float64
	}

	// BudgetLine is budget-vs-actual for one budgeted category. Remaining
	// goes negative on overspend; consumers color it, the engine only
	// exposes the sign.
	BudgetLine struct {
		Category  string
		Limit     float64
		Spent     float64
		Remaining float64
	}

	// Report is the full derived view for one scope.
	Report struct {
		ReportMonth       string
		TotalIncome       float64
		TotalExpense      float64
		MonthlyAvgIncome  float64
		MonthlyAvgExpense float64
		TotalSavings      float64
		SavingsRate       float64

		Monthly    []MonthlyTotals
		Cumulative []CumulativePoint

		TopCategoriesAllTime   []CategoryTotal
		TopCategoriesThisMonth []CategoryTotal

		TopIncreasing []CategoryTrend
		TopDecreasing []CategoryTrend

		Budget []BudgetLine
	}
)

// Aggregator computes reports against a fixed budget table. It carries no
// other state; Aggregate is deterministic for a given snapshot.
type Aggregator struct {
	budgets core.Budgets
}

func NewAggregator(budgets core.Budgets) *Aggregator {
	return &Aggregator{budgets: budgets}
}

// Aggregate computes the report for the given account selection and
// reporting month ("YYYY-MM"). An empty account list selects all
// accounts; an empty month selects the latest month in scope.
func (a *Aggregator) Aggregate(txs []core.Transaction, accounts []string, reportMonth string) Report {
	scoped := scope(txs, accounts, reportMonth)
	if len(scoped) == 0 {
		return Report{ReportMonth: reportMonth}
	}
	if reportMonth == "" {
		reportMonth = scoped[len(scoped)-1].YearMonth()
	}
	scopeStart := scoped[0].YearMonth()

	var nonTransfer, transfers []core.Transaction
	for _, t := range scoped {
		if t.IsTransfer() {
			transfers = append(transfers, t)
		} else {
			nonTransfer = append(nonTransfer, t)
		}
	}

	r := Report{ReportMonth: reportMonth}
	for _, t := range nonTransfer {
		if t.Amount > 0 {
			r.TotalIncome += t.Amount
		} else {
			r.TotalExpense += -t.Amount
		}
	}
	for _, t := range transfers {
		r.TotalSavings += t.Amount
	}
	r.TotalSavings = abs(r.TotalSavings)
	if r.TotalIncome != 0 {
		r.SavingsRate = r.TotalSavings / r.TotalIncome * 100
	}

	r.Monthly = monthlySeries(nonTransfer)
	r.MonthlyAvgIncome = meanOf(r.Monthly, func(m MonthlyTotals) float64 { return m.Income })
	r.MonthlyAvgExpense = meanOf(r.Monthly, func(m MonthlyTotals) float64 { return m.Expense })

	r.Cumulative = cumulativeCurve(nonTransfer, reportMonth)

	r.TopCategoriesAllTime = topCategories(nonTransfer, "")
	r.TopCategoriesThisMonth = topCategories(nonTransfer, reportMonth)

	r.TopIncreasing, r.TopDecreasing = trends(nonTransfer, scopeStart, reportMonth)

	r.Budget = a.budgetReport(nonTransfer, reportMonth)

	return r
}

// scope applies the account filter, fills unclassified categories, drops
// the earliest month present (the source's initial month holds only
// onboarding fees) and cuts off after the reporting month.
func scope(txs []core.Transaction, accounts []string, reportMonth string) []core.Transaction {
	selected := make(map[string]bool, len(accounts))
	for _, a := range accounts {
		selected[a] = true
	}

	var out []core.Transaction
	minMonth := ""
	for _, t := range txs {
		if len(selected) > 0 && !selected[t.Account] {
			continue
		}
		t.Category = t.DisplayCategory()
		out = append(out, t)
		if ym := t.YearMonth(); minMonth == "" || ym < minMonth {
			minMonth = ym
		}
	}

	out = filterTx(out, func(t core.Transaction) bool {
		ym := t.YearMonth()
		if ym == minMonth {
			return false
		}
		return reportMonth == "" || ym <= reportMonth
	})

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].BookingDate.Before(out[j].BookingDate)
	})
	return out
}

// monthlySeries builds the per-month income/expense table from category
// nets. Income-flagged categories always route to income, even when their
// net is negative; otherwise positive nets count as income and negative
// nets as expense.
func monthlySeries(nonTransfer []core.Transaction) []MonthlyTotals {
	type key struct{ month, category string }
	nets := make(map[key]float64)
	for _, t := range nonTransfer {
		nets[key{t.YearMonth(), t.Category}] += t.Amount
	}

	byMonth := make(map[string]*MonthlyTotals)
	for k, net := range nets {
		row := byMonth[k.month]
		if row == nil {
			row = &MonthlyTotals{Month: k.month}
			byMonth[k.month] = row
		}
		switch {
		case core.IsIncomeCategory(k.category):
			row.Income += net
		case net > 0:
			row.Income += net
		default:
			row.Expense += -net
		}
	}

	out := make([]MonthlyTotals, 0, len(byMonth))
	for _, row := range byMonth {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

// cumulativeCurve runs a signed sum over the report month's non-transfer
// transactions in date order, so inflows pull the curve back up.
func cumulativeCurve(nonTransfer []core.Transaction, reportMonth string) []CumulativePoint {
	var out []CumulativePoint
	running := 0.0
	for _, t := range nonTransfer {
		if t.YearMonth() != reportMonth {
			continue
		}
		running += t.Amount
		out = append(out, CumulativePoint{Date: t.BookingDate, Amount: t.Amount, Running: running})
	}
	return out
}

// topCategories ranks categories by expense magnitude over the window
// (all scoped months, or a single month when month is non-empty).
// Net-positive categories are excluded.
func topCategories(nonTransfer []core.Transaction, month string) []CategoryTotal {
	nets := make(map[string]float64)
	for _, t := range nonTransfer {
		if month != "" && t.YearMonth() != month {
			continue
		}
		nets[t.Category] += t.Amount
	}

	var out []CategoryTotal
	for cat, net := range nets {
		if net < 0 {
			out = append(out, CategoryTotal{Category: cat, Total: -net})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Category < out[j].Category
	})
	if len(out) > topCategoryLimit {
		out = out[:topCategoryLimit]
	}
	return out
}

// trends compares each category's report-month expense against its
// trailing average. The per-category series is calendar-complete from the
// earliest scoped month through the month before reportMonth; months
// without activity contribute a true zero.
func trends(nonTransfer []core.Transaction, scopeStart, reportMonth string) (increasing, decreasing []CategoryTrend) {
	expenses := make(map[string]map[string]float64) // month -> category -> expense
	categories := make(map[string]bool)
	for _, t := range nonTransfer {
		if t.Amount >= 0 {
			continue
		}
		ym := t.YearMonth()
		if expenses[ym] == nil {
			expenses[ym] = make(map[string]float64)
		}
		expenses[ym][t.Category] += -t.Amount
		categories[t.Category] = true
	}
	if len(categories) == 0 {
		return nil, nil
	}

	priorMonths := monthRange(scopeStart, reportMonth)
	if len(priorMonths) < trendWindow {
		slog.Warn("Trend window has fewer than 3 prior months, using shorter window",
			"available_months", len(priorMonths), "report_month", reportMonth)
	}

	var all []CategoryTrend
	for cat := range categories {
		series := make([]float64, len(priorMonths))
		for i, ym := range priorMonths {
			series[i] = expenses[ym][cat]
		}
		window := series
		if len(window) > trendWindow {
			window = window[len(window)-trendWindow:]
		}
		avg := mean(window)
		curr := expenses[reportMonth][cat]
		pct := 0.0
		if avg != 0 {
			pct = (curr - avg) / avg * 100
		}
		all = append(all, CategoryTrend{Category: cat, AvgPrev3: avg, CurrExpense: curr, PctChange: pct})
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].PctChange != all[j].PctChange {
			return all[i].PctChange > all[j].PctChange
		}
		return all[i].Category < all[j].Category
	})
	increasing = firstN(all, trendLimit)

	sort.Slice(all, func(i, j int) bool {
		if all[i].PctChange != all[j].PctChange {
			return all[i].PctChange < all[j].PctChange
		}
		return all[i].Category < all[j].Category
	})
	decreasing = firstN(all, trendLimit)
	return increasing, decreasing
}

// budgetReport computes spent/remaining per budgeted category for the
// report month. The sentinel "Other" bucket collects spending in every
// category without its own budget line.
func (a *Aggregator) budgetReport(nonTransfer []core.Transaction, reportMonth string) []BudgetLine {
	if len(a.budgets) == 0 {
		return nil
	}

	spent := make(map[string]float64)
	other := 0.0
	for _, t := range nonTransfer {
		if t.Amount >= 0 || t.YearMonth() != reportMonth {
			continue
		}
		if _, budgeted := a.budgets[t.Category]; budgeted {
			spent[t.Category] += -t.Amount
		} else {
			other += -t.Amount
		}
	}

	names := make([]string, 0, len(a.budgets))
	for cat := range a.budgets {
		if cat != "Other" {
			names = append(names, cat)
		}
	}
	sort.Strings(names)
	// The sentinel bucket always closes the table, budgeted or not.
	names = append(names, "Other")

	out := make([]BudgetLine, 0, len(names))
	for _, cat := range names {
		line := BudgetLine{Category: cat, Limit: a.budgets[cat]}
		if cat == "Other" {
			line.Spent = other
		} else {
			line.Spent = spent[cat]
		}
		line.Remaining = line.Limit - line.Spent
		out = append(out, line)
	}
	return out
}

// monthRange lists calendar months from first (inclusive) up to before
// (exclusive), both "YYYY-MM".
func monthRange(first, before string) []string {
	start, err := time.Parse("2006-01", first)
	if err != nil {
		return nil
	}
	end, err := time.Parse("2006-01", before)
	if err != nil {
		return nil
	}
	var out []string
	for m := start; m.Before(end); m = m.AddDate(0, 1, 0) {
		out = append(out, m.Format("2006-01"))
	}
	return out
}

func filterTx(txs []core.Transaction, keep func(core.Transaction) bool) []core.Transaction {
	var out []core.Transaction
	for _, t := range txs {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}

func firstN(trends []CategoryTrend, n int) []CategoryTrend {
	if len(trends) > n {
		trends = trends[:n]
	}
	out := make([]CategoryTrend, len(trends))
	copy(out, trends)
	return out
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func meanOf(rows []MonthlyTotals, pick func(MonthlyTotals) float64) float64 {
	if len(rows) == 0 {
		return 0
	}
	sum := 0.0
	for _, row := range rows {
		sum += pick(row)
	}
	return sum / float64(len(rows))
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
