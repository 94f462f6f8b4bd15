// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package chartval

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCalculateDeltaPercentage(t *testing.T) {
	p := CalculateDeltaPercentage(ConvertFloatToDecimal(100, 64), ConvertFloatToDecimal(110, 64))
	v, ok := p.Float64()
	assert.True(t, ok)
	assert.InDelta(t, 10, v, NearZero)
	p = CalculateDeltaPercentage(ConvertFloatToDecimal(0, 64), ConvertFloatToDecimal(110, 64))
	assert.Equal(t, 0, p.Sign())
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "1,234,567.89", FormatPrice(1234567.891, 2))
	assert.Equal(t, "0.1235", FormatPrice(0.12345, 4))
	assert.Equal(t, "-1,000", FormatPrice(-1000, 0))
	assert.Equal(t, "42.00", FormatPrice(42, 2))
}

func TestRoundToPrecision(t *testing.T) {
	assert.InDelta(t, 1.23, RoundToPrecision(1.2345, 2), NearZero)
	assert.InDelta(t, 1.235, RoundToPrecision(1.2345, 3), NearZero)
	assert.InDelta(t, 1, RoundToPrecision(1.2345, 0), NearZero)
}

func TestFormatTimeAgo(t *testing.T) {
	assert.Equal(t, "1h 2m 3s ago", FormatTimeAgo(time.Hour+2*time.Minute+3*time.Second))
	assert.Equal(t, "2m 0s ago", FormatTimeAgo(2*time.Minute))
	assert.Equal(t, "5s ago", FormatTimeAgo(5*time.Second))
	assert.Equal(t, "0s ago", FormatTimeAgo(-time.Second))
}

func TestFormatDateTime(t *testing.T) {
	ts := time.Date(2024, time.February, 3, 4, 5, 6, 0, time.UTC)
	assert.Equal(t, "3/2/2024 4:05:06", FormatDateTime(ts))
}

func TestNewCandleDirection(t *testing.T) {
	c := NewCandle("BTCUSDT", IntervalOneMinute, time.Unix(60, 0), 10, 12, 9, 11, 100)
	assert.Equal(t, DirectionUp, c.Direction)
	c = NewCandle("BTCUSDT", IntervalOneMinute, time.Unix(60, 0), 11, 12, 9, 10, 100)
	assert.Equal(t, DirectionDown, c.Direction)
	assert.Equal(t, time.Unix(120, 0), c.CloseTime)
}

func TestParsePriceValue(t *testing.T) {
	assert.InDelta(t, 123.45, ParsePriceValue("123.45"), NearZero)
	assert.Equal(t, float64(0), ParsePriceValue("garbage"))
}
