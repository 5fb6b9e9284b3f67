package core

import (
	"errors"
	"strings"
	"time"
)

type (
	// Money is a monetary amount in kopecks. Arithmetic stays in integer
	// kopecks; floating point is for display only.
	Money struct {
		Kopecks int64
	}

	// User is a chat participant, created on first contact.
	User struct {
		ID           int64
		DisplayName  string
		RegisteredAt time.Time
	}

	// ExpenseRecord is a single spending event. Records are immutable once
	// written; CreatedAt is assigned by the store, never by the user.
	ExpenseRecord struct {
		ID          int64
		UserID      int64
		Amount      Money
		Category    string
		Description string
		CreatedAt   time.Time
	}

	// Category is one entry of the fixed catalog seeded at startup.
	Category struct {
		Name  string
		Glyph string
	}
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrEmptyCategory = errors.New("empty category")
)

// Catalog is the fixed set of expense categories, in seed order.
var Catalog = []Category{
	{Name: "Еда", Glyph: "🍔"},
	{Name: "Бензин", Glyph: "⛽️"},
	{Name: "Дом", Glyph: "🏠"},
	{Name: "Одежда", Glyph: "👗"},
	{Name: "Здоровье", Glyph: "💊"},
	{Name: "Посиделки", Glyph: "🍺"},
	{Name: "Связь", Glyph: "📱"},
	{Name: "Коммуналка", Glyph: "💡"},
	{Name: "Подарки", Glyph: "🎁"},
	{Name: "Кредиты", Glyph: "💸"},
	{Name: "Курение", Glyph: "🚬"},
	{Name: "Животные", Glyph: "🐈"},
}

// Label returns the display form of the category, glyph first.
func (c Category) Label() string {
	return c.Glyph + " " + c.Name
}

// CatalogNames returns the bare category names in seed order.
func CatalogNames() []string {
	names := make([]string, len(Catalog))
	for i, c := range Catalog {
		names[i] = c.Name
	}
	return names
}

// ContainsCatalogGlyph reports whether s contains any rune of a catalog
// glyph. This drives the free-text classifier heuristic: a description that
// happens to contain a category glyph will be taken for a category filter.
func ContainsCatalogGlyph(s string) bool {
	for _, c := range Catalog {
		for _, r := range c.Glyph {
			if strings.ContainsRune(s, r) {
				return true
			}
		}
	}
	return false
}

// StripGlyph removes the leading display glyph from a category label by
// dropping the first whitespace-delimited token when the label contains
// whitespace. Bare names pass through unchanged. The strip is lossy on
// purpose: stored categories never carry their glyph.
func StripGlyph(label string) string {
	if !strings.Contains(label, " ") {
		return label
	}
	fields := strings.Fields(label)
	if len(fields) < 2 {
		return ""
	}
	return strings.Join(fields[1:], " ")
}

func (m Money) Validate() error {
	if m.Kopecks <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Rubles returns the ruble value as a float64 for display purposes.
// Use kopecks for calculations to avoid floating-point precision issues.
func (m Money) Rubles() float64 {
	return float64(m.Kopecks) / 100.0
}

func (r ExpenseRecord) Validate() error {
	if err := r.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(r.Category) == "" {
		return ErrEmptyCategory
	}
	return nil
}
