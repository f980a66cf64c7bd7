package core

import (
	"testing"
	"time"
)

func tx(date string, typ TxType, cents int64) Transaction {
	return Transaction{ID: date + string(typ), Description: "x", Amount: Money{Cents: cents}, Type: typ, Date: date, UserID: "u"}
}

func TestFilterByPeriodIsPrefixMatch(t *testing.T) {
	txs := []Transaction{
		tx("2024-03-01", Income, 1),
		tx("2024-03-31", Expense, 1),
		tx("2024-3-1", Income, 1),
		tx("2024-04-01", Income, 1),
		tx("garbage", Income, 1),
		tx("2023-03-15", Income, 1),
	}
	got := FilterByPeriod(txs, "2024-03")
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d: %+v", len(got), got)
	}
	for _, r := range got {
		if r.Date != "2024-03-01" && r.Date != "2024-03-31" {
			t.Fatalf("unexpected record %q", r.Date)
		}
	}
	if len(FilterByPeriod(nil, "2024-03")) != 0 {
		t.Fatalf("expected empty result for nil input")
	}
}

func TestFilterByExactDate(t *testing.T) {
	txs := []Transaction{tx("2024-03-01", Income, 1), tx("2024-03-011", Income, 1), tx("2024-03-02", Income, 1)}
	got := FilterByExactDate(txs, "2024-03-01")
	if len(got) != 1 || got[0].Date != "2024-03-01" {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestSummarize(t *testing.T) {
	cases := []struct {
		name                    string
		in                      []Transaction
		income, expense, profit int64
	}{
		{"empty", nil, 0, 0, 0},
		{"income only", []Transaction{tx("2024-01-01", Income, 1050)}, 1050, 0, 1050},
		{"loss", []Transaction{tx("2024-01-01", Income, 100), tx("2024-01-02", Expense, 250)}, 100, 250, -150},
		{"ignores unknown type", []Transaction{tx("2024-01-01", "Refund", 999)}, 0, 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := Summarize(tc.in)
			if s.Income.Cents != tc.income || s.Expense.Cents != tc.expense || s.Profit.Cents != tc.profit {
				t.Fatalf("got %+v", s)
			}
			if s.Profit != s.Income.Sub(s.Expense) {
				t.Fatalf("profit must equal income - expense")
			}
		})
	}
}

func TestSummarizeIsExactAtScale(t *testing.T) {
	// 100k records of 0.10 each would drift with float64 accumulation.
	txs := make([]Transaction, 0, 100000)
	for i := 0; i < 100000; i++ {
		txs = append(txs, tx("2024-01-01", Income, 10))
	}
	if got := Summarize(txs).Income.String(); got != "10000.00" {
		t.Fatalf("expected 10000.00, got %s", got)
	}
}

func TestScenarioMonthSummary(t *testing.T) {
	sale, _ := ParseAmount("100")
	rent, _ := ParseAmount("40")
	all := []Transaction{
		{ID: "1", Description: "Sale", Amount: sale, Type: Income, Date: "2024-06-01", UserID: "U"},
		{ID: "2", Description: "Rent", Amount: rent, Type: Expense, Date: "2024-06-02", UserID: "U"},
	}
	s := Summarize(FilterByPeriod(all, "2024-06"))
	if s.Income.String() != "100.00" || s.Expense.String() != "40.00" || s.Profit.String() != "60.00" {
		t.Fatalf("unexpected summary %+v", s)
	}
}

func TestToDailySeries(t *testing.T) {
	if got := ToDailySeries(nil); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil series, got %#v", got)
	}

	txs := []Transaction{
		tx("2024-06-10", Expense, 300),
		tx("2024-06-02", Income, 100),
		tx("2024-06-10", Income, 500),
		tx("2024-06-02", Income, 50),
	}
	got := ToDailySeries(txs)
	if len(got) != 2 {
		t.Fatalf("expected 2 days (no gap filling), got %d", len(got))
	}
	if got[0].Date != "2024-06-02" || got[0].Income.Cents != 150 || got[0].Expense.Cents != 0 {
		t.Fatalf("unexpected first point %+v", got[0])
	}
	if got[1].Date != "2024-06-10" || got[1].Income.Cents != 500 || got[1].Expense.Cents != 300 {
		t.Fatalf("unexpected second point %+v", got[1])
	}
}

func TestSortNewestFirst(t *testing.T) {
	txs := []Transaction{tx("2024-01-01", Income, 1), tx("2024-03-01", Income, 2), tx("2024-02-01", Income, 3)}
	SortNewestFirst(txs)
	if txs[0].Date != "2024-03-01" || txs[2].Date != "2024-01-01" {
		t.Fatalf("unexpected order: %v %v %v", txs[0].Date, txs[1].Date, txs[2].Date)
	}
}

func TestPeriodKeys(t *testing.T) {
	now := time.Date(2024, time.March, 5, 23, 0, 0, 0, time.UTC)
	if CurrentPeriod(now) != "2024-03" || Today(now) != "2024-03-05" {
		t.Fatalf("unexpected keys %s %s", CurrentPeriod(now), Today(now))
	}
}
