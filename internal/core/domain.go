package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// DateLayout is the ISO 8601 calendar date layout used for Entry.Date.
const DateLayout = "2006-01-02"

const (
	Food          Category = "food"
	Transport     Category = "transport"
	Shopping      Category = "shopping"
	Entertainment Category = "entertainment"
	Bills         Category = "bills"
	Health        Category = "health"
	Education     Category = "education"
	Other         Category = "other"
)

const maxDescriptionLength = 200

type (
	Category string

	// Entry is one recorded expense. Month is derived from Date and CreatedAt is
	// only used for tie-breaking.
	Entry struct {
		ID          string
		Date        string // YYYY-MM-DD
		Month       string // YYYY-MM
		Description string
		Category    Category
		Amount      Money
		CreatedAt   time.Time
	}
)

var (
	// ErrValidation wraps every input rejection at the boundary.
	ErrValidation = errors.New("validation error")

	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidCategory    = errors.New("invalid category")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrEmptyDescription   = errors.New("empty description")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
	ErrMonthMismatch      = errors.New("month does not match date")
	ErrEmptyID            = errors.New("empty id")
)

var categoryLabels = map[Category]string{
	Food:          "Food & Dining",
	Transport:     "Transportation",
	Shopping:      "Shopping",
	Entertainment: "Entertainment",
	Bills:         "Bills & Utilities",
	Health:        "Health",
	Education:     "Education",
	Other:         "Other",
}

// Categories returns the closed set of categories in display order.
func Categories() []Category {
	return []Category{Food, Transport, Shopping, Entertainment, Bills, Health, Education, Other}
}

// ParseCategory normalises s and checks it against the closed set.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
	}
	return c, nil
}

func (c Category) IsValid() bool {
	_, ok := categoryLabels[c]
	return ok
}

// Label returns the human readable name of the category.
func (c Category) Label() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return string(c)
}

func (c Category) String() string {
	return string(c)
}

// MonthKeyOf returns the YYYY-MM key of an ISO date string.
func MonthKeyOf(date string) string {
	if len(date) < 7 {
		return date
	}
	return date[:7]
}

// MonthKey formats a year and month (1-12) as YYYY-MM.
func MonthKey(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}

// ParseDate checks that s is a real calendar date in YYYY-MM-DD form.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrInvalidDate
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

// Validate checks every invariant of a stored entry.
func (e Entry) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return ErrEmptyID
	}
	if _, err := ParseDate(e.Date); err != nil {
		return err
	}
	if e.Month != MonthKeyOf(e.Date) {
		return fmt.Errorf("%w: month %q, date %q", ErrMonthMismatch, e.Month, e.Date)
	}
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	if utf8.RuneCountInString(e.Description) > maxDescriptionLength {
		return ErrDescriptionTooLong
	}
	if !e.Category.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, e.Category)
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	return nil
}
