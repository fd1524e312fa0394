package query

import (
	"math"
	"testing"

	"expenses/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(id, date string, cat core.Category, cents int64) core.Entry {
	return core.Entry{
		ID:          id,
		Date:        date,
		Month:       core.MonthKeyOf(date),
		Description: id,
		Category:    cat,
		Amount:      core.Money{Cents: cents},
	}
}

func ids(entries []core.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func TestFilterBy(t *testing.T) {
	entries := []core.Entry{
		entry("a", "2024-05-01", core.Food, 100),
		entry("b", "2024-05-03", core.Transport, 200),
		entry("c", "2024-05-02", core.Food, 300),
		entry("d", "2024-05-03", core.Food, 400),
		entry("e", "2024-05-02", core.Food, 500),
	}

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{
			name:   "no filter sorts newest first and keeps ties stable",
			filter: Filter{},
			want:   []string{"b", "d", "c", "e", "a"},
		},
		{
			name:   "all is the same as no category filter",
			filter: Filter{Category: AllCategories},
			want:   []string{"b", "d", "c", "e", "a"},
		},
		{
			name:   "category only",
			filter: Filter{Category: "food"},
			want:   []string{"d", "c", "e", "a"},
		},
		{
			name:   "date only",
			filter: Filter{Date: "2024-05-03"},
			want:   []string{"b", "d"},
		},
		{
			name:   "category and date",
			filter: Filter{Category: "food", Date: "2024-05-02"},
			want:   []string{"c", "e"},
		},
		{
			name:   "no match",
			filter: Filter{Category: "health"},
			want:   []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(FilterBy(entries, tt.filter)))
		})
	}

	// input order untouched
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, ids(entries))
}

func TestSumAmounts(t *testing.T) {
	assert.Equal(t, core.Money{}, SumAmounts(nil))

	a, err := core.ParseAmount("10.5")
	require.NoError(t, err)
	b, err := core.ParseAmount("5")
	require.NoError(t, err)
	sum := SumAmounts([]core.Entry{{Amount: a}, {Amount: b}})
	assert.True(t, sum.Decimal().Equal(decimal.RequireFromString("15.5")), "got %s", sum)

	huge := core.Money{Cents: 1 << 62}
	sum = SumAmounts([]core.Entry{{Amount: huge}, {Amount: huge}, {Amount: huge}})
	assert.Equal(t, int64(math.MaxInt64), sum.Cents)
}

func TestCategoryBreakdown(t *testing.T) {
	got := CategoryBreakdown([]core.Entry{
		entry("a", "2024-05-01", core.Food, 10000),
		entry("b", "2024-05-01", core.Food, 5000),
		entry("c", "2024-05-01", core.Transport, 3000),
	})
	assert.Equal(t, []core.CategoryAmount{
		{Category: core.Food, Amount: core.Money{Cents: 15000}},
		{Category: core.Transport, Amount: core.Money{Cents: 3000}},
	}, got)

	// larger later category moves first; equal sums keep first-seen order
	got = CategoryBreakdown([]core.Entry{
		entry("a", "2024-05-01", core.Bills, 100),
		entry("b", "2024-05-01", core.Health, 100),
		entry("c", "2024-05-01", core.Shopping, 900),
	})
	require.Len(t, got, 3)
	assert.Equal(t, []core.Category{core.Shopping, core.Bills, core.Health},
		[]core.Category{got[0].Category, got[1].Category, got[2].Category})

	assert.Empty(t, CategoryBreakdown(nil))
}

func TestDaysInMonth(t *testing.T) {
	cases := map[[2]int]int{
		{2024, 2}:  29,
		{2023, 2}:  28,
		{1900, 2}:  28,
		{2000, 2}:  29,
		{2024, 4}:  30,
		{2024, 5}:  31,
		{2024, 12}: 31,
	}
	for in, want := range cases {
		assert.Equal(t, want, DaysInMonth(in[0], in[1]), "%d-%02d", in[0], in[1])
	}
}

func TestDailyAverage(t *testing.T) {
	assert.True(t, DailyAverage(nil, 2024, 2).IsZero())

	feb := []core.Entry{
		entry("a", "2024-02-01", core.Food, 20000),
		entry("b", "2024-02-10", core.Bills, 9000),
	}
	avg := DailyAverage(feb, 2024, 2)
	assert.True(t, avg.Equal(decimal.NewFromInt(10)), "got %s", avg)
}

func TestMonthly(t *testing.T) {
	entries := []core.Entry{
		entry("a", "2024-05-01", core.Food, 20000),
		entry("b", "2024-05-02", core.Transport, 5000),
		entry("c", "2024-04-30", core.Food, 99900),
	}

	view := Monthly(entries, 2024, 5)
	assert.Equal(t, 2024, view.Year)
	assert.Equal(t, 5, view.Month)
	assert.Equal(t, int64(25000), view.Total.Cents)
	assert.Equal(t, []core.CategoryAmount{
		{Category: core.Food, Amount: core.Money{Cents: 20000}},
		{Category: core.Transport, Amount: core.Money{Cents: 5000}},
	}, view.Breakdown)
	want := decimal.NewFromInt(250).Div(decimal.NewFromInt(31))
	assert.True(t, view.DailyAverage.Equal(want), "got %s want %s", view.DailyAverage, want)
	assert.Equal(t, []string{"b", "a"}, ids(view.Entries))

	empty := Monthly(entries, 2024, 6)
	assert.Empty(t, empty.Entries)
	assert.True(t, empty.DailyAverage.IsZero())
	assert.Equal(t, core.Money{}, empty.Total)
}

func TestSummarize(t *testing.T) {
	entries := []core.Entry{
		entry("a", "2024-05-10", core.Food, 100),
		entry("b", "2024-05-02", core.Transport, 200),
		entry("c", "2024-04-30", core.Food, 400),
	}
	s := Summarize(entries, "2024-05-10")
	assert.Equal(t, core.Summary{
		Total: core.Money{Cents: 700},
		Today: core.Money{Cents: 100},
		Month: core.Money{Cents: 300},
		Count: 3,
	}, s)
}
