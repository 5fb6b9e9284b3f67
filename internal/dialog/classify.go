package dialog

import (
	"strings"
	"time"

	"traty/internal/chat"
	"traty/internal/core"
)

// FreeTextKind is the classification of free text that arrives while the
// dialogue is idle and matches no menu label.
type FreeTextKind int

const (
	// KindUnrecognized means the text matched nothing; the user is pointed
	// back at the menu.
	KindUnrecognized FreeTextKind = iota
	// KindCurrentMonth is the current-month period keyword.
	KindCurrentMonth
	// KindDateRange is a dd.mm.yyyy-dd.mm.yyyy period.
	KindDateRange
	// KindCategoryFilter is text containing a catalog glyph.
	KindCategoryFilter
)

// Classification is the outcome of classifying idle free text. Start/End
// are set only for KindDateRange.
type Classification struct {
	Kind  FreeTextKind
	Start time.Time
	End   time.Time
}

// Classify routes ambiguous idle free text. Decision order: the
// current-month keyword, then a strict two-endpoint date range, then the
// category-glyph heuristic, then unrecognized.
//
// The glyph check is a heuristic, not a guarantee: any text containing a
// catalog glyph classifies as a category filter, even a date string or a
// note that merely mentions one. This ambiguity is inherited behavior and
// deliberately left in place.
func Classify(text string) Classification {
	if strings.EqualFold(strings.TrimSpace(text), chat.KeywordCurrentMonth) {
		return Classification{Kind: KindCurrentMonth}
	}
	if start, end, ok := parseDateRange(text); ok {
		return Classification{Kind: KindDateRange, Start: start, End: end}
	}
	if core.ContainsCatalogGlyph(text) {
		return Classification{Kind: KindCategoryFilter}
	}
	return Classification{Kind: KindUnrecognized}
}

// parseDateRange accepts exactly one hyphen separating two strict
// dd.mm.yyyy endpoints.
func parseDateRange(text string) (start, end time.Time, ok bool) {
	text = strings.TrimSpace(text)
	if strings.Count(text, "-") != 1 {
		return time.Time{}, time.Time{}, false
	}
	parts := strings.SplitN(text, "-", 2)
	start, ok = parseStrictDate(parts[0])
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	end, ok = parseStrictDate(parts[1])
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

// parseStrictDate accepts exactly dd.mm.yyyy: 10 characters, dots at
// positions 2 and 5, numeric segments, day 1-31, month 1-12, year
// 2000-2100. time.Parse alone is too lenient here: it normalizes
// out-of-range days instead of rejecting them.
func parseStrictDate(s string) (time.Time, bool) {
	if len(s) != 10 || s[2] != '.' || s[5] != '.' {
		return time.Time{}, false
	}
	day, ok := parseNumeric(s[0:2])
	if !ok || day < 1 || day > 31 {
		return time.Time{}, false
	}
	month, ok := parseNumeric(s[3:5])
	if !ok || month < 1 || month > 12 {
		return time.Time{}, false
	}
	year, ok := parseNumeric(s[6:10])
	if !ok || year < 2000 || year > 2100 {
		return time.Time{}, false
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.Local), true
}

func parseNumeric(s string) (int, bool) {
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
		n = n*10 + int(s[i]-'0')
	}
	return n, true
}
