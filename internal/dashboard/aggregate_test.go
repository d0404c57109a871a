package dashboard

import (
	"fmt"
	"testing"
	"time"

	"github.com/dvloznov/finance-assistant/internal/domain"
)

func TestAggregate_Totals(t *testing.T) {
	txs := []domain.Transaction{
		{ID: "1", Type: domain.TypeExpense, Amount: 50000, Category: "Makanan", Date: "2025-05-03"},
		{ID: "2", Type: domain.TypeExpense, Amount: 100000, Category: "Makanan", Date: "2025-05-04"},
		{ID: "3", Type: domain.TypeIncome, Amount: 5000000, Category: "Gaji", Date: "2025-05-01"},
	}

	s := Aggregate(txs, nil)

	if s.TotalIncome != 5000000 {
		t.Errorf("TotalIncome = %v, want 5000000", s.TotalIncome)
	}
	if s.TotalExpense != 150000 {
		t.Errorf("TotalExpense = %v, want 150000", s.TotalExpense)
	}
	if s.TotalBalance != 4850000 {
		t.Errorf("TotalBalance = %v, want 4850000", s.TotalBalance)
	}
	if len(s.CategoryBreakdown) != 1 {
		t.Fatalf("CategoryBreakdown = %+v, want exactly one entry", s.CategoryBreakdown)
	}
	got := s.CategoryBreakdown[0]
	if got.Name != "Makanan" || got.Value != 150000 || got.Color != "#10b981" {
		t.Errorf("CategoryBreakdown[0] = %+v", got)
	}
	if s.TotalSavings != 0 {
		t.Errorf("TotalSavings = %v, want 0", s.TotalSavings)
	}
}

func TestAggregate_Savings(t *testing.T) {
	s := Aggregate(nil, []domain.SavingsGoal{
		{CurrentAmount: 1000000},
		{CurrentAmount: 250000},
	})
	if s.TotalSavings != 1250000 {
		t.Errorf("TotalSavings = %v", s.TotalSavings)
	}
	if s.IncomeExpenseTrend == nil || s.CategoryBreakdown == nil || s.SavingsTrend == nil || s.RecentTransactions == nil {
		t.Error("empty series must be non-nil so they encode as []")
	}
}

func TestAggregate_TrendChronologicalAcrossYears(t *testing.T) {
	txs := []domain.Transaction{
		{Type: domain.TypeIncome, Amount: 300, Date: "2025-01-10"},
		{Type: domain.TypeExpense, Amount: 100, Date: "2024-12-20"},
		{Type: domain.TypeIncome, Amount: 500, Date: "2024-01-05"},
		{Type: domain.TypeExpense, Amount: 50, Date: "2025-01-11"},
	}

	s := Aggregate(txs, nil)

	wantPeriods := []string{"2024-01", "2024-12", "2025-01"}
	wantMonths := []string{"Jan", "Des", "Jan"}
	if len(s.IncomeExpenseTrend) != len(wantPeriods) {
		t.Fatalf("trend = %+v", s.IncomeExpenseTrend)
	}
	for i, p := range s.IncomeExpenseTrend {
		if p.Period != wantPeriods[i] || p.Month != wantMonths[i] {
			t.Errorf("trend[%d] = %+v, want %s/%s", i, p, wantPeriods[i], wantMonths[i])
		}
	}

	last := s.IncomeExpenseTrend[2]
	if last.Income != 300 || last.Expense != 50 {
		t.Errorf("2025-01 = %+v", last)
	}
	if s.SavingsTrend[2].Savings != 250 {
		t.Errorf("savings 2025-01 = %v, want 250", s.SavingsTrend[2].Savings)
	}
	if s.SavingsTrend[1].Savings != -100 {
		t.Errorf("savings 2024-12 = %v, want -100", s.SavingsTrend[1].Savings)
	}
}

func TestAggregate_CategoryBreakdown(t *testing.T) {
	txs := []domain.Transaction{
		{Type: domain.TypeExpense, Amount: 10, Category: "", Date: "2025-01-01"},
		{Type: domain.TypeExpense, Amount: 30, Category: "Transportasi", Date: "2025-01-01"},
		{Type: domain.TypeExpense, Amount: 20, Category: "Kopi", Date: "2025-01-01"},
		{Type: domain.TypeIncome, Amount: 999, Category: "Gaji", Date: "2025-01-01"},
	}

	s := Aggregate(txs, nil)

	want := []CategorySlice{
		{Name: "Transportasi", Value: 30, Color: "#3b82f6"},
		{Name: "Kopi", Value: 20, Color: domain.FallbackColor},
		{Name: "Lainnya", Value: 10, Color: "#6b7280"},
	}
	if len(s.CategoryBreakdown) != len(want) {
		t.Fatalf("breakdown = %+v", s.CategoryBreakdown)
	}
	for i := range want {
		if s.CategoryBreakdown[i] != want[i] {
			t.Errorf("breakdown[%d] = %+v, want %+v", i, s.CategoryBreakdown[i], want[i])
		}
	}
}

func TestAggregate_RecentTransactions(t *testing.T) {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	var txs []domain.Transaction
	for i := 0; i < 15; i++ {
		txs = append(txs, domain.Transaction{
			ID:        fmt.Sprintf("tx-%02d", i),
			Type:      domain.TypeExpense,
			Amount:    1,
			Date:      base.AddDate(0, 0, i).Format(domain.DateFormat),
			CreatedAt: base,
		})
	}

	s := Aggregate(txs, nil)

	if len(s.RecentTransactions) != RecentLimit {
		t.Fatalf("len = %d, want %d", len(s.RecentTransactions), RecentLimit)
	}
	if s.RecentTransactions[0].ID != "tx-14" {
		t.Errorf("first = %s, want newest tx-14", s.RecentTransactions[0].ID)
	}
	if s.RecentTransactions[9].ID != "tx-05" {
		t.Errorf("last = %s, want tx-05", s.RecentTransactions[9].ID)
	}
	if txs[0].ID != "tx-00" {
		t.Error("input slice was reordered")
	}
}

func TestParseTimeRange(t *testing.T) {
	tests := map[string]TimeRange{
		"1m": Range1Month,
		"3m": Range3Months,
		"6m": Range6Months,
		"1y": Range1Year,
		"":   Range6Months,
		"2w": Range6Months,
	}
	for in, want := range tests {
		if got := ParseTimeRange(in); got != want {
			t.Errorf("ParseTimeRange(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTimeRange_Since(t *testing.T) {
	now := time.Date(2025, 8, 15, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		r    TimeRange
		want string
	}{
		{Range1Month, "2025-07-15"},
		{Range3Months, "2025-05-15"},
		{Range6Months, "2025-02-15"},
		{Range1Year, "2024-08-15"},
	}
	for _, tt := range tests {
		if got := tt.r.Since(now).Format(domain.DateFormat); got != tt.want {
			t.Errorf("%s.Since = %s, want %s", tt.r, got, tt.want)
		}
	}
}
