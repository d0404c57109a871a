// Package dashboard aggregates a user's persisted transactions into the
// summary the dashboard page renders.
package dashboard

import (
	"sort"
	"strconv"

	"github.com/dvloznov/finance-assistant/internal/domain"
)

// RecentLimit is the number of transactions returned in RecentTransactions.
const RecentLimit = 10

var monthNames = [12]string{"Jan", "Feb", "Mar", "Apr", "Mei", "Jun", "Jul", "Agu", "Sep", "Okt", "Nov", "Des"}

type Summary struct {
	TotalBalance       float64             `json:"totalBalance"`
	TotalIncome        float64             `json:"totalIncome"`
	TotalExpense       float64             `json:"totalExpense"`
	TotalSavings       float64             `json:"totalSavings"`
	IncomeExpenseTrend []TrendPoint        `json:"incomeExpenseTrend"`
	CategoryBreakdown  []CategorySlice     `json:"categoryBreakdown"`
	SavingsTrend       []SavingsPoint      `json:"savingsTrend"`
	RecentTransactions []RecentTransaction `json:"recentTransactions"`
}

// TrendPoint is one month of income and expense. Period is YYYY-MM.
type TrendPoint struct {
	Month   string  `json:"month"`
	Period  string  `json:"period"`
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
}

type CategorySlice struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Color string  `json:"color"`
}

// SavingsPoint is the net (income minus expense) of one month.
type SavingsPoint struct {
	Month   string  `json:"month"`
	Period  string  `json:"period"`
	Savings float64 `json:"savings"`
}

type RecentTransaction struct {
	ID          string                 `json:"id"`
	Type        domain.TransactionType `json:"type"`
	Category    string                 `json:"category"`
	Amount      float64                `json:"amount"`
	Date        string                 `json:"date"`
	Description string                 `json:"description"`
}

// Aggregate computes the dashboard summary over txs and savings. It is pure:
// the input slices are not modified.
func Aggregate(txs []domain.Transaction, savings []domain.SavingsGoal) Summary {
	s := Summary{
		IncomeExpenseTrend: []TrendPoint{},
		CategoryBreakdown:  []CategorySlice{},
		SavingsTrend:       []SavingsPoint{},
		RecentTransactions: []RecentTransaction{},
	}

	monthly := map[string]*TrendPoint{}
	byCategory := map[string]float64{}

	for _, tx := range txs {
		period := periodOf(tx.Date)
		point, ok := monthly[period]
		if !ok {
			point = &TrendPoint{Month: monthLabel(period), Period: period}
			monthly[period] = point
		}

		switch tx.Type {
		case domain.TypeIncome:
			s.TotalIncome += tx.Amount
			point.Income += tx.Amount
		case domain.TypeExpense:
			s.TotalExpense += tx.Amount
			point.Expense += tx.Amount

			category := tx.Category
			if category == "" {
				category = domain.FallbackCategory
			}
			byCategory[category] += tx.Amount
		}
	}
	s.TotalBalance = s.TotalIncome - s.TotalExpense

	for _, g := range savings {
		s.TotalSavings += g.CurrentAmount
	}

	periods := make([]string, 0, len(monthly))
	for p := range monthly {
		periods = append(periods, p)
	}
	sort.Strings(periods)
	for _, p := range periods {
		point := monthly[p]
		s.IncomeExpenseTrend = append(s.IncomeExpenseTrend, *point)
		s.SavingsTrend = append(s.SavingsTrend, SavingsPoint{
			Month:   point.Month,
			Period:  point.Period,
			Savings: point.Income - point.Expense,
		})
	}

	for name, value := range byCategory {
		s.CategoryBreakdown = append(s.CategoryBreakdown, CategorySlice{
			Name:  name,
			Value: value,
			Color: domain.ExpenseColor(name),
		})
	}
	sort.Slice(s.CategoryBreakdown, func(i, j int) bool {
		a, b := s.CategoryBreakdown[i], s.CategoryBreakdown[j]
		if a.Value != b.Value {
			return a.Value > b.Value
		}
		return a.Name < b.Name
	})

	recent := append([]domain.Transaction(nil), txs...)
	sort.SliceStable(recent, func(i, j int) bool {
		if recent[i].Date != recent[j].Date {
			return recent[i].Date > recent[j].Date
		}
		return recent[i].CreatedAt.After(recent[j].CreatedAt)
	})
	if len(recent) > RecentLimit {
		recent = recent[:RecentLimit]
	}
	for _, tx := range recent {
		s.RecentTransactions = append(s.RecentTransactions, RecentTransaction{
			ID:          tx.ID,
			Type:        tx.Type,
			Category:    tx.Category,
			Amount:      tx.Amount,
			Date:        tx.Date,
			Description: tx.Description,
		})
	}

	return s
}

// periodOf returns the YYYY-MM prefix of a YYYY-MM-DD date.
func periodOf(date string) string {
	if len(date) >= 7 {
		return date[:7]
	}
	return date
}

func monthLabel(period string) string {
	if len(period) != 7 {
		return period
	}
	m, err := strconv.Atoi(period[5:7])
	if err != nil || m < 1 || m > 12 {
		return period
	}
	return monthNames[m-1]
}
