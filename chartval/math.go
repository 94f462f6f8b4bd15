// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package chartval

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/ericlagergren/decimal"
)

const NearZero = 0.000001

// Returns a new decimal containing the delta percentage value.
func CalculateDeltaPercentage(baseValue, currentValue *decimal.Big) *decimal.Big {
	percentage := new(decimal.Big)
	// Check for non-zero, see https://github.com/ericlagergren/decimal/pull/157
	if baseValue.Sign() != 0 {
		percentage.Quo(currentValue, baseValue)
		percentage.Sub(percentage, decimal.New(1, 0))
		percentage.Mul(percentage, decimal.New(100, 0))
	}
	return percentage
}

// The builtin decimal.Big conversion from float64 is an "exact" conversion, and useless for our cases.
// Therefore, convert using string conversion, even though this requires memory allocation.
// See also https://github.com/ericlagergren/decimal/issues/142

// Convert float to string and then to decimal.
func ConvertFloatToDecimal(v float64, bitSize int) *decimal.Big {
	d, _ := new(decimal.Big).SetString(strconv.FormatFloat(v, 'f', -1, bitSize))
	return d
}

// Convert an exchange price string to a float for plotting.
// Invalid values are mapped to zero.
func ParsePriceValue(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func IsGreenCandle(o, c float64) bool {
	// this may be adjusted based on whether it is considered to be green if open price equals close price.
	return c >= o
}

// RoundToPrecision rounds v to the given number of digits after the decimal point.
func RoundToPrecision(v float64, digits int) float64 {
	p := math.Pow10(digits)
	return math.Round(v*p) / p
}

// FormatPrice formats a price with thousands separators and a fixed
// number of digits after the decimal point.
func FormatPrice(v float64, digits int) string {
	s := strconv.FormatFloat(v, 'f', digits, 64)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	intPart := s
	fracPart := ""
	if dot := strings.IndexByte(s, '.'); dot >= 0 {
		intPart = s[:dot]
		fracPart = s[dot:]
	}
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	b.WriteString(fracPart)
	return b.String()
}

// FormatDateTime formats a timestamp for price line titles,
// without leading zeros in day, month and hour.
func FormatDateTime(t time.Time) string {
	return fmt.Sprintf("%d/%d/%d %d:%02d:%02d",
		t.Day(), int(t.Month()), t.Year(), t.Hour(), t.Minute(), t.Second())
}

// FormatTimeAgo formats an elapsed duration as "1h 2m 3s ago".
// Zero components at the front are omitted.
func FormatTimeAgo(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm %ds ago", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm %ds ago", m, s)
	default:
		return fmt.Sprintf("%ds ago", s)
	}
}

// Calculate the number of segments for a plot grid
func CalcNumSegments(pos int, margin int, grid int) int {
	if grid == 0 {
		return 0
	}
	return max((pos-margin+grid)/grid, 0)
}
