// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package chartplot

import (
	"minicharts/chartval"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLinearTicks(t *testing.T) {
	ticks := LinearTicks(0, 1, 5)
	expected := []float64{0, 0.2, 0.4, 0.6, 0.8, 1}
	assert.Len(t, ticks, len(expected))
	for i := range expected {
		assert.InDelta(t, expected[i], ticks[i], chartval.NearZero)
	}
	ticks = LinearTicks(0, 100, 5)
	assert.Equal(t, []float64{0, 20, 40, 60, 80, 100}, ticks)
	assert.Nil(t, LinearTicks(1, 1, 5))
	assert.Nil(t, LinearTicks(0, 1, 0))
}

func TestTimeTicksAligned(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 7, 13, 0, time.UTC)
	x := NewTimeScale(start, start.Add(50*time.Minute), 600)
	ticks := TimeTicks(x, 10)
	assert.NotEmpty(t, ticks)
	for _, tick := range ticks {
		assert.False(t, tick.Before(start))
		assert.False(t, tick.After(start.Add(50*time.Minute)))
		assert.Zero(t, tick.Second())
	}
}

func TestFormatRelativePercent(t *testing.T) {
	candles := []chartval.Candle{
		{Low: 100, High: 150},
		{Low: 110, High: 200},
	}
	assert.Equal(t, "0.0%", FormatRelativePercent(100, candles))
	assert.Equal(t, "100.0%", FormatRelativePercent(200, candles))
	assert.Equal(t, "50.0%", FormatRelativePercent(150, candles))
	// Empty window falls back to the [0, 1] range.
	assert.Equal(t, "50.0%", FormatRelativePercent(0.5, nil))
}
