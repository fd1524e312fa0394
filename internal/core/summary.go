package core

import "github.com/shopspring/decimal"

// CategoryAmount represents an amount aggregated by category.
type CategoryAmount struct {
	Category Category
	Amount   Money
}

// MonthlyView is the aggregate shown for a specific year+month.
type MonthlyView struct {
	Year         int
	Month        int // 1-12
	Total        Money
	DailyAverage decimal.Decimal
	Breakdown    []CategoryAmount
	Entries      []Entry
}

// Summary is the header of the chronological list view.
type Summary struct {
	Total Money
	Today Money
	Month Money
	Count int
}
