package expenses

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

const trendMonths = 6

type CategoryTotal struct {
	Category string          `json:"_id"`
	Total    decimal.Decimal `json:"total"`
	Count    int             `json:"count"`
}

type YearMonth struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

type MonthTotal struct {
	Period YearMonth       `json:"_id"`
	Total  decimal.Decimal `json:"total"`
	Count  int             `json:"count"`
}

type Stats struct {
	TotalExpenses     decimal.Decimal `json:"totalExpenses"`
	MonthlyExpenses   decimal.Decimal `json:"monthlyExpenses"`
	CategoryBreakdown []CategoryTotal `json:"categoryBreakdown"`
	MonthlyTrend      []MonthTotal    `json:"monthlyTrend"`
}

// Compute derives every statistic from one snapshot so they agree with each
// other. now decides the current month and the trend window.
func Compute(items []Expense, now time.Time) Stats {
	return Stats{
		TotalExpenses:     Total(items),
		MonthlyExpenses:   MonthlyTotal(items, now),
		CategoryBreakdown: CategoryBreakdown(items),
		MonthlyTrend:      MonthlyTrend(items, now),
	}
}

func Total(items []Expense) decimal.Decimal {
	sum := decimal.Zero
	for _, e := range items {
		sum = sum.Add(e.Amount)
	}
	return sum
}

// MonthBounds returns the first instant of now's calendar month and of the
// month after it, in UTC.
func MonthBounds(now time.Time) (time.Time, time.Time) {
	now = now.UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

// MonthlyTotal sums expenses dated anywhere within now's calendar month.
func MonthlyTotal(items []Expense, now time.Time) decimal.Decimal {
	start, end := MonthBounds(now)
	sum := decimal.Zero
	for _, e := range items {
		if !e.Date.Before(start) && e.Date.Before(end) {
			sum = sum.Add(e.Amount)
		}
	}
	return sum
}

// CategoryBreakdown groups by category, largest total first. Equal totals are
// ordered by category name.
func CategoryBreakdown(items []Expense) []CategoryTotal {
	idx := map[string]int{}
	out := []CategoryTotal{}
	for _, e := range items {
		i, ok := idx[e.Category]
		if !ok {
			i = len(out)
			idx[e.Category] = i
			out = append(out, CategoryTotal{Category: e.Category, Total: decimal.Zero})
		}
		out[i].Total = out[i].Total.Add(e.Amount)
		out[i].Count++
	}
	sort.Slice(out, func(a, b int) bool {
		if c := out[a].Total.Cmp(out[b].Total); c != 0 {
			return c > 0
		}
		return out[a].Category < out[b].Category
	})
	return out
}

// MonthlyTrend groups expenses dated on or after six calendar months before
// now by (year, month), oldest first. Months with no expenses are absent.
func MonthlyTrend(items []Expense, now time.Time) []MonthTotal {
	cutoff := now.UTC().AddDate(0, -trendMonths, 0)
	idx := map[YearMonth]int{}
	out := []MonthTotal{}
	for _, e := range items {
		d := e.Date.UTC()
		if d.Before(cutoff) {
			continue
		}
		key := YearMonth{Year: d.Year(), Month: int(d.Month())}
		i, ok := idx[key]
		if !ok {
			i = len(out)
			idx[key] = i
			out = append(out, MonthTotal{Period: key, Total: decimal.Zero})
		}
		out[i].Total = out[i].Total.Add(e.Amount)
		out[i].Count++
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Period.Year != out[b].Period.Year {
			return out[a].Period.Year < out[b].Period.Year
		}
		return out[a].Period.Month < out[b].Period.Month
	})
	return out
}
