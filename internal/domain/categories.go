package domain

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// FallbackCategory is used for expenses recorded without a category.
const FallbackCategory = "Lainnya"

// FallbackColor is the chart color for categories not in the table.
const FallbackColor = "#6b7280"

// Category is one entry of the shared suggestion table.
type Category struct {
	Name  string          `json:"name"`
	Type  TransactionType `json:"type"`
	Color string          `json:"color"`
}

// Categories is the single lookup table shared by the normalizer defaults,
// the classifier prompt and the dashboard colors. Order matters: the first
// entry of each type is its default.
var Categories = []Category{
	{Name: "Gaji", Type: TypeIncome, Color: "#22c55e"},
	{Name: "Bonus", Type: TypeIncome, Color: "#84cc16"},
	{Name: "Investasi", Type: TypeIncome, Color: "#14b8a6"},
	{Name: "Freelance", Type: TypeIncome, Color: "#0ea5e9"},
	{Name: "Lainnya", Type: TypeIncome, Color: FallbackColor},

	{Name: "Makanan", Type: TypeExpense, Color: "#10b981"},
	{Name: "Transportasi", Type: TypeExpense, Color: "#3b82f6"},
	{Name: "Belanja", Type: TypeExpense, Color: "#f59e0b"},
	{Name: "Hiburan", Type: TypeExpense, Color: "#ef4444"},
	{Name: "Tagihan", Type: TypeExpense, Color: "#8b5cf6"},
	{Name: "Kesehatan", Type: TypeExpense, Color: "#ec4899"},
	{Name: "Pendidikan", Type: TypeExpense, Color: "#06b6d4"},
	{Name: "Lainnya", Type: TypeExpense, Color: FallbackColor},
}

// Suggestions returns the ordered category names for a transaction type.
func Suggestions(t TransactionType) []string {
	var names []string
	for _, c := range Categories {
		if c.Type == t {
			names = append(names, c.Name)
		}
	}
	return names
}

// DefaultCategory returns the first suggestion for t.
func DefaultCategory(t TransactionType) string {
	if s := Suggestions(t); len(s) > 0 {
		return s[0]
	}
	return FallbackCategory
}

// ExpenseColor returns the chart color of an expense category.
func ExpenseColor(name string) string {
	for _, c := range Categories {
		if c.Type == TypeExpense && c.Name == name {
			return c.Color
		}
	}
	return FallbackColor
}

var rupiahPrinter = message.NewPrinter(language.Indonesian)

// FormatRupiah formats an amount the way the dashboard displays it, e.g. "Rp 50.000".
func FormatRupiah(amount float64) string {
	return rupiahPrinter.Sprintf("Rp %d", int64(math.Round(amount)))
}
