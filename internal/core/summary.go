package core

import "sort"

// MaxSummaryMonths caps MonthlySummary to the most recent months.
const MaxSummaryMonths = 12

const (
	SortDateDesc   SortKey = "date-desc"
	SortDateAsc    SortKey = "date-asc"
	SortAmountDesc SortKey = "amount-desc"
	SortAmountAsc  SortKey = "amount-asc"
)

type (
	SortKey string

	// Criteria selects transactions. Empty fields impose no constraint.
	Criteria struct {
		Type     TransactionType
		Category string
		Month    string // year-month prefix, e.g. "2024-01"
	}

	Totals struct {
		Income  float64 `json:"income"`
		Expense float64 `json:"expense"`
		Balance float64 `json:"balance"`
	}

	// MonthSummary is the income/expense pair of one year-month.
	MonthSummary struct {
		Month   string  `json:"month"`
		Income  float64 `json:"income"`
		Expense float64 `json:"expense"`
	}
)

// ParseSortKey maps a query value to a SortKey; unknown values fall back to
// SortDateDesc.
func ParseSortKey(s string) SortKey {
	switch k := SortKey(s); k {
	case SortDateAsc, SortDateDesc, SortAmountAsc, SortAmountDesc:
		return k
	default:
		return SortDateDesc
	}
}

// Filter returns the transactions matching every non-empty criterion, in
// input order.
func Filter(txs []Transaction, c Criteria) []Transaction {
	out := make([]Transaction, 0, len(txs))
	for _, t := range txs {
		if c.Type != "" && t.Type != c.Type {
			continue
		}
		if c.Category != "" && t.Category != c.Category {
			continue
		}
		if c.Month != "" && t.Month() != c.Month {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Sort returns a sorted copy. Ties keep their input order.
func Sort(txs []Transaction, key SortKey) []Transaction {
	out := make([]Transaction, len(txs))
	copy(out, txs)

	var less func(i, j int) bool
	switch ParseSortKey(string(key)) {
	case SortDateAsc:
		less = func(i, j int) bool { return out[i].Date < out[j].Date }
	case SortAmountDesc:
		less = func(i, j int) bool { return out[i].Amount > out[j].Amount }
	case SortAmountAsc:
		less = func(i, j int) bool { return out[i].Amount < out[j].Amount }
	default:
		less = func(i, j int) bool { return out[i].Date > out[j].Date }
	}
	sort.SliceStable(out, less)
	return out
}

// ComputeTotals sums income and everything else as expense.
func ComputeTotals(txs []Transaction) Totals {
	var income, expense accumulator
	for _, t := range txs {
		if t.Type.IsIncome() {
			income.add(t.Amount)
		} else {
			expense.add(t.Amount)
		}
	}
	balance := accumulator{sum: income.sum.Sub(expense.sum)}
	return Totals{
		Income:  income.value(),
		Expense: expense.value(),
		Balance: balance.value(),
	}
}

// SavingsTotal sums the monthly (income - expense) differences. The result
// always equals ComputeTotals(txs).Balance.
func SavingsTotal(txs []Transaction) float64 {
	byMonth := make(map[string]*accumulator)
	for _, t := range txs {
		acc, ok := byMonth[t.Month()]
		if !ok {
			acc = &accumulator{}
			byMonth[t.Month()] = acc
		}
		if t.Type.IsIncome() {
			acc.add(t.Amount)
		} else {
			acc.sub(t.Amount)
		}
	}
	var total accumulator
	for _, acc := range byMonth {
		total.sum = total.sum.Add(acc.sum)
	}
	return total.value()
}

// ExpenseByCategory sums expense amounts per category. Categories without
// expenses are absent from the result.
func ExpenseByCategory(txs []Transaction) map[string]float64 {
	sums := make(map[string]*accumulator)
	for _, t := range txs {
		if t.Type.IsIncome() {
			continue
		}
		acc, ok := sums[t.Category]
		if !ok {
			acc = &accumulator{}
			sums[t.Category] = acc
		}
		acc.add(t.Amount)
	}
	out := make(map[string]float64, len(sums))
	for cat, acc := range sums {
		out[cat] = acc.value()
	}
	return out
}

// MonthlySummary groups by year-month and returns the most recent
// MaxSummaryMonths groups, newest first.
func MonthlySummary(txs []Transaction) []MonthSummary {
	type pair struct{ income, expense accumulator }
	groups := make(map[string]*pair)
	for _, t := range txs {
		p, ok := groups[t.Month()]
		if !ok {
			p = &pair{}
			groups[t.Month()] = p
		}
		if t.Type.IsIncome() {
			p.income.add(t.Amount)
		} else {
			p.expense.add(t.Amount)
		}
	}

	months := make([]string, 0, len(groups))
	for m := range groups {
		months = append(months, m)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(months)))
	if len(months) > MaxSummaryMonths {
		months = months[:MaxSummaryMonths]
	}

	out := make([]MonthSummary, 0, len(months))
	for _, m := range months {
		p := groups[m]
		out = append(out, MonthSummary{Month: m, Income: p.income.value(), Expense: p.expense.value()})
	}
	return out
}
