// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package chartplot

import (
	"minicharts/chartval"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestCandles(n int, base float64) []chartval.Candle {
	candles := make([]chartval.Candle, n)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range candles {
		o := base + float64(i)
		candles[i] = chartval.NewCandle("BTCUSDT", chartval.IntervalOneMinute,
			start.Add(time.Duration(i)*time.Minute), o, o+2, o-2, o+1, 100)
	}
	return candles
}

func TestTimeScaleRoundtrip(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	s := NewTimeScale(start, end, 600)
	assert.InDelta(t, 0, s.Px(start), chartval.NearZero)
	assert.InDelta(t, 600, s.Px(end), chartval.NearZero)
	assert.InDelta(t, 300, s.Px(start.Add(30*time.Minute)), chartval.NearZero)
	assert.Equal(t, start.Add(30*time.Minute).UnixMilli(), s.Invert(300).UnixMilli())
}

func TestZoomRescaleIdentity(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewTimeScale(start, start.Add(time.Hour), 600)
	r := IdentityZoom().RescaleX(s)
	lo, hi := r.Domain()
	assert.Equal(t, start.UnixMilli(), lo.UnixMilli())
	assert.Equal(t, start.Add(time.Hour).UnixMilli(), hi.UnixMilli())
}

func TestZoomRescaleZoomIn(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewTimeScale(start, start.Add(time.Hour), 600)
	// Zoom in by 2x around the left edge keeps the left domain bound.
	z := IdentityZoom().ScaledBy(2, 0, 0)
	r := z.RescaleX(s)
	lo, hi := r.Domain()
	assert.Equal(t, start.UnixMilli(), lo.UnixMilli())
	assert.Equal(t, start.Add(30*time.Minute).UnixMilli(), hi.UnixMilli())
}

func TestZoomTranslate(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewTimeScale(start, start.Add(time.Hour), 600)
	// Panning by -300px shifts the window half an hour to the right.
	z := IdentityZoom().TranslatedBy(-300, 0)
	r := z.RescaleX(s)
	lo, _ := r.Domain()
	assert.Equal(t, start.Add(30*time.Minute).UnixMilli(), lo.UnixMilli())
}

func TestLinearPriceScale(t *testing.T) {
	s := NewLinearPriceScale(200)
	s.SetDomain(100, 200)
	assert.InDelta(t, 200, s.Px(100), chartval.NearZero)
	assert.InDelta(t, 0, s.Px(200), chartval.NearZero)
	assert.InDelta(t, 100, s.Px(150), chartval.NearZero)
	assert.InDelta(t, 150, s.Invert(100), chartval.NearZero)
}

func TestSymlogPriceScaleRoundtrip(t *testing.T) {
	s := NewSymlogPriceScale(200)
	s.SetConstant(0.1)
	s.SetDomain(0.05, 10)
	for _, v := range []float64{0.05, 0.1, 1, 5, 10} {
		px := s.Px(v)
		assert.InDelta(t, v, s.Invert(px), 0.0001)
	}
	assert.InDelta(t, 200, s.Px(0.05), chartval.NearZero)
	assert.InDelta(t, 0, s.Px(10), chartval.NearZero)
}

func TestSymlogConstant(t *testing.T) {
	assert.InDelta(t, 1, symlogConstant(2), chartval.NearZero)
	assert.InDelta(t, 0.1, symlogConstant(0.5), chartval.NearZero)
	assert.InDelta(t, 0.01, symlogConstant(0.05), chartval.NearZero)
	assert.InDelta(t, 0.001, symlogConstant(0.005), chartval.NearZero)
}

func TestScaleModelEmptyDomains(t *testing.T) {
	m := NewScaleModel()
	m.Resize(600, 200)
	m.Update(nil)
	lo, hi := m.X().Domain()
	assert.Equal(t, time.Unix(0, 0).UnixMilli(), lo.UnixMilli())
	assert.True(t, hi.After(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
	yLo, yHi := m.Y().Domain()
	assert.InDelta(t, 0, yLo, chartval.NearZero)
	assert.InDelta(t, 1, yHi, chartval.NearZero)
}

func TestScaleModelXDomain(t *testing.T) {
	m := NewScaleModel()
	m.Resize(300, 200)
	candles := newTestCandles(500, 100)
	m.Update(candles)
	lo, hi := m.X().Domain()
	// 300px wide plot shows the last 100 candles.
	assert.Equal(t, candles[400].Time.UnixMilli(), lo.UnixMilli())
	assert.Equal(t, candles[499].Time.UnixMilli(), hi.UnixMilli())
}

func TestScaleModelYDomainPadding(t *testing.T) {
	m := NewScaleModel()
	m.Resize(600, 200)
	m.SetPadding(20, 20)
	m.SetPricePrecision(2)
	candles := newTestCandles(50, 100)
	m.Update(candles)
	lo, hi := m.Y().Domain()
	// Lowest low is 98, highest high is 151, plus padding.
	assert.Less(t, lo, 98.0)
	assert.Greater(t, hi, 151.0)
}

func TestVisibleCandles(t *testing.T) {
	candles := newTestCandles(60, 100)
	x := NewTimeScale(candles[10].Time, candles[20].Time, 600)
	visible := VisibleCandles(candles, x)
	assert.Len(t, visible, 11)
	assert.Equal(t, candles[10].Time, visible[0].Time)
	assert.Equal(t, candles[20].Time, visible[len(visible)-1].Time)
}
