package core

import "math"

// CategoryAmount is an amount aggregated under one category name.
type CategoryAmount struct {
	Name   string
	Amount Money
}

// Summary is the total plus per-category breakdown for a set of records.
type Summary struct {
	Total      Money
	ByCategory []CategoryAmount
}

// Summarize folds records into a total and a per-category breakdown. The
// breakdown is ordered by first appearance of each category among the
// records, which keeps rendering deterministic.
func Summarize(records []ExpenseRecord) Summary {
	var s Summary
	index := make(map[string]int)
	for _, r := range records {
		s.Total.Kopecks += r.Amount.Kopecks
		if i, ok := index[r.Category]; ok {
			s.ByCategory[i].Amount.Kopecks += r.Amount.Kopecks
			continue
		}
		index[r.Category] = len(s.ByCategory)
		s.ByCategory = append(s.ByCategory, CategoryAmount{
			Name:   r.Category,
			Amount: r.Amount,
		})
	}
	return s
}

// Percentage returns part's share of total as a percentage rounded to one
// decimal place. A zero total yields 0, which covers windows with no
// records.
func Percentage(part, total Money) float64 {
	if total.Kopecks == 0 {
		return 0
	}
	p := float64(part.Kopecks) / float64(total.Kopecks) * 100
	return math.Round(p*10) / 10
}
