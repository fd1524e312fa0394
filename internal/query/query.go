// Package query derives filtered lists, sums and per-category breakdowns from
// a snapshot of ledger entries. Every function is pure: inputs are never
// mutated and results are freshly allocated.
package query

import (
	"sort"
	"time"

	"expenses/internal/core"

	"github.com/shopspring/decimal"
)

// AllCategories disables category filtering.
const AllCategories = "all"

// Filter selects entries for the chronological list. Zero values match everything.
type Filter struct {
	Category string
	Date     string
}

// FilterBy returns the entries matching f, newest date first. Entries sharing a
// date keep their input order.
func FilterBy(entries []core.Entry, f Filter) []core.Entry {
	out := make([]core.Entry, 0, len(entries))
	for _, e := range entries {
		if f.Category != "" && f.Category != AllCategories && string(e.Category) != f.Category {
			continue
		}
		if f.Date != "" && e.Date != f.Date {
			continue
		}
		out = append(out, e)
	}
	sortByDateDesc(out)
	return out
}

// SumAmounts returns the total of all amounts, zero for no entries.
func SumAmounts(entries []core.Entry) core.Money {
	var total core.Money
	for _, e := range entries {
		total = total.Add(e.Amount)
	}
	return total
}

// CategoryBreakdown sums amounts per category. Only categories present in
// entries appear, largest sum first; equal sums keep first-seen order.
func CategoryBreakdown(entries []core.Entry) []core.CategoryAmount {
	pos := make(map[core.Category]int)
	var out []core.CategoryAmount
	for _, e := range entries {
		i, ok := pos[e.Category]
		if !ok {
			i = len(out)
			pos[e.Category] = i
			out = append(out, core.CategoryAmount{Category: e.Category})
		}
		out[i].Amount = out[i].Amount.Add(e.Amount)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Amount.Cents > out[j].Amount.Cents
	})
	return out
}

// DaysInMonth returns the calendar length of month (1-12) in year.
func DaysInMonth(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DailyAverage divides the total of entries by the number of days in the
// given month. No entries yields zero.
func DailyAverage(entries []core.Entry, year, month int) decimal.Decimal {
	if len(entries) == 0 {
		return decimal.Zero
	}
	days := decimal.NewFromInt(int64(DaysInMonth(year, month)))
	return SumAmounts(entries).Decimal().Div(days)
}

// MonthEntries returns the entries of year+month, newest date first.
func MonthEntries(entries []core.Entry, year, month int) []core.Entry {
	key := core.MonthKey(year, month)
	out := make([]core.Entry, 0)
	for _, e := range entries {
		if e.Month == key {
			out = append(out, e)
		}
	}
	sortByDateDesc(out)
	return out
}

// Monthly builds the aggregate view of year+month.
func Monthly(entries []core.Entry, year, month int) core.MonthlyView {
	monthEntries := MonthEntries(entries, year, month)
	return core.MonthlyView{
		Year:         year,
		Month:        month,
		Total:        SumAmounts(monthEntries),
		DailyAverage: DailyAverage(monthEntries, year, month),
		Breakdown:    CategoryBreakdown(monthEntries),
		Entries:      monthEntries,
	}
}

// Summarize computes the list header totals relative to today (YYYY-MM-DD).
func Summarize(entries []core.Entry, today string) core.Summary {
	month := core.MonthKeyOf(today)
	s := core.Summary{Count: len(entries)}
	for _, e := range entries {
		s.Total = s.Total.Add(e.Amount)
		if e.Date == today {
			s.Today = s.Today.Add(e.Amount)
		}
		if e.Month == month {
			s.Month = s.Month.Add(e.Amount)
		}
	}
	return s
}

// ISO dates order lexically.
func sortByDateDesc(entries []core.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Date > entries[j].Date
	})
}
