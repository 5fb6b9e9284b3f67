// Package core holds the expense domain: money, categories, time windows
// and aggregation over flat expense records.
package core

import (
	"strconv"
	"strings"
)

// ParseAmount converts a decimal string to Money with half-up rounding on
// the third fractional digit.
//
// Both dot (150.50) and comma (150,50) decimal separators are accepted,
// because chat users type whichever their keyboard offers. The result is
// always positive; zero, negative and malformed input return
// ErrInvalidAmount.
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return Money{}, ErrInvalidAmount
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return Money{}, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	// ASCII digits only: the fraction is converted with byte arithmetic
	// below, and unicode digit classes would slip through that.
	for _, r := range intPart {
		if r < '0' || r > '9' {
			return Money{}, ErrInvalidAmount
		}
	}
	for _, r := range fracPart {
		if r < '0' || r > '9' {
			return Money{}, ErrInvalidAmount
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	// Prevent overflow when multiplying by 100
	const maxSafeInt64 = (1<<63 - 1) / 100
	if iv > maxSafeInt64 {
		return Money{}, ErrInvalidAmount
	}
	// Take first two fractional digits; half-up rounding on the third
	var frac int64
	if len(fracPart) > 0 {
		frac = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			frac += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				frac++
			}
		}
	}
	kopecks := iv*100 + frac
	if kopecks <= 0 {
		return Money{}, ErrInvalidAmount
	}
	return Money{Kopecks: kopecks}, nil
}
