package core

import (
	"sort"
	"strings"
	"time"
)

// Summary is the derived income/expense/profit triple for a set of records.
// It is recomputed on every read and never stored.
type Summary struct {
	Income  Money `json:"income"`
	Expense Money `json:"expense"`
	Profit  Money `json:"profit"`
}

// DailyPoint is one entry of the trend series.
type DailyPoint struct {
	Date    string `json:"date"`
	Income  Money  `json:"income"`
	Expense Money  `json:"expense"`
}

// FilterByPeriod keeps records whose date starts with period (YYYY-MM).
// This is a plain prefix match: malformed dates that do not share the
// prefix are dropped, never reported.
func FilterByPeriod(txs []Transaction, period string) []Transaction {
	out := make([]Transaction, 0, len(txs))
	for _, t := range txs {
		if strings.HasPrefix(t.Date, period) {
			out = append(out, t)
		}
	}
	return out
}

// FilterByExactDate keeps records dated exactly date.
func FilterByExactDate(txs []Transaction, date string) []Transaction {
	out := make([]Transaction, 0, len(txs))
	for _, t := range txs {
		if t.Date == date {
			out = append(out, t)
		}
	}
	return out
}

// Summarize sums income and expense in integer cents.
func Summarize(txs []Transaction) Summary {
	var s Summary
	for _, t := range txs {
		switch t.Type {
		case Income:
			s.Income = s.Income.Add(t.Amount)
		case Expense:
			s.Expense = s.Expense.Add(t.Amount)
		}
	}
	s.Profit = s.Income.Sub(s.Expense)
	return s
}

// ToDailySeries groups records by date in ascending calendar order. Days
// without records are absent; the series is never zero-filled.
func ToDailySeries(txs []Transaction) []DailyPoint {
	byDate := make(map[string]*DailyPoint)
	for _, t := range txs {
		p, ok := byDate[t.Date]
		if !ok {
			p = &DailyPoint{Date: t.Date}
			byDate[t.Date] = p
		}
		switch t.Type {
		case Income:
			p.Income = p.Income.Add(t.Amount)
		case Expense:
			p.Expense = p.Expense.Add(t.Amount)
		}
	}

	out := make([]DailyPoint, 0, len(byDate))
	for _, p := range byDate {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		return dateLess(out[i].Date, out[j].Date)
	})
	return out
}

// dateLess orders parseable dates by calendar, then unparseable ones lexically.
func dateLess(a, b string) bool {
	ta, errA := time.Parse(DateLayout, a)
	tb, errB := time.Parse(DateLayout, b)
	switch {
	case errA == nil && errB == nil:
		return ta.Before(tb)
	case errA == nil:
		return true
	case errB == nil:
		return false
	default:
		return a < b
	}
}

// SortNewestFirst orders records by date descending, keeping insertion order
// for records on the same day.
func SortNewestFirst(txs []Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		return dateLess(txs[j].Date, txs[i].Date)
	})
}

// CurrentPeriod returns the YYYY-MM key of now.
func CurrentPeriod(now time.Time) string {
	return now.Format(PeriodLayout)
}

// Today returns the YYYY-MM-DD key of now.
func Today(now time.Time) string {
	return now.Format(DateLayout)
}
