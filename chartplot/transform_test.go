// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package chartplot

import (
	"context"
	"math"
	"minicharts/chartval"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newVolatileCandles(n int) []chartval.Candle {
	prices := []float64{100, 104, 98, 103, 97, 105, 110, 94, 101, 99}
	candles := make([]chartval.Candle, n)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range candles {
		o := prices[i%len(prices)]
		c := prices[(i+1)%len(prices)]
		h := math.Max(o, c) + 1.5
		l := math.Min(o, c) - 1.5
		candles[i] = chartval.NewCandle("BTCUSDT", chartval.IntervalOneMinute,
			start.Add(time.Duration(i)*time.Minute), o, h, l, c, 100)
	}
	return candles
}

func TestHeikinAshiValues(t *testing.T) {
	candles := newVolatileCandles(10)
	ha := HeikinAshi(candles)
	assert.Len(t, ha, len(candles))

	// First open is the midpoint of the first raw candle.
	assert.InDelta(t, (candles[0].Open+candles[0].Close)/2, ha[0].Open, chartval.NearZero)

	for i := range ha {
		c := candles[i]
		expectedClose := (c.Open + c.Close + c.High + c.Low) / 4
		assert.InDelta(t, expectedClose, ha[i].Close, chartval.NearZero)
		if i > 0 {
			// Each open is the midpoint of the previous aggregated candle.
			assert.InDelta(t, (ha[i-1].Open+ha[i-1].Close)/2, ha[i].Open, chartval.NearZero)
		}
		assert.GreaterOrEqual(t, ha[i].High, math.Max(ha[i].Open, ha[i].Close))
		assert.LessOrEqual(t, ha[i].Low, math.Min(ha[i].Open, ha[i].Close))
		if ha[i].Open <= ha[i].Close {
			assert.Equal(t, chartval.DirectionUp, ha[i].Direction)
		} else {
			assert.Equal(t, chartval.DirectionDown, ha[i].Direction)
		}
	}
	// Input candles are not modified.
	assert.InDelta(t, 100, candles[0].Open, chartval.NearZero)
}

func TestHeikinAshiActualPriceKeepsLastClose(t *testing.T) {
	candles := newVolatileCandles(10)
	ha := HeikinAshiActualPrice(candles)
	assert.InDelta(t, candles[len(candles)-1].Close, ha[len(ha)-1].Close, chartval.NearZero)
	// The real high/low range is kept.
	for i := range ha {
		assert.InDelta(t, candles[i].High, ha[i].High, chartval.NearZero)
		assert.InDelta(t, candles[i].Low, ha[i].Low, chartval.NearZero)
	}
}

func TestHeikinAshiActualPriceNoGaps(t *testing.T) {
	candles := newVolatileCandles(20)
	ha := HeikinAshiActualPrice(candles)
	for i := 1; i < len(ha); i++ {
		prevLo := math.Min(ha[i-1].Open, ha[i-1].Close)
		prevHi := math.Max(ha[i-1].Open, ha[i-1].Close)
		// Each open must touch the body of the previous candle.
		assert.GreaterOrEqual(t, ha[i].Open, prevLo-chartval.NearZero, "gap at candle %d", i)
		assert.LessOrEqual(t, ha[i].Open, prevHi+chartval.NearZero, "gap at candle %d", i)
	}
}

func TestTransformCandlesIdentity(t *testing.T) {
	candles := newVolatileCandles(5)
	result := TransformCandles(candles, chartval.ChartTypeCandle)
	assert.Equal(t, candles, result)
}

func TestTransformerAsync(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{}, 1)
	tr := NewTransformer()
	tr.Start(ctx, func() {
		select {
		case done <- struct{}{}:
		default:
		}
	})
	candles := newVolatileCandles(10)
	tr.Transform(candles, chartval.ChartTypeHeikinAshi)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("transformer did not complete")
	}
	latest, latestType := tr.Latest()
	assert.Equal(t, chartval.ChartTypeHeikinAshi, latestType)
	assert.Equal(t, HeikinAshi(candles), latest)
}
