// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package chartgrid

import (
	"testing"
	"time"

	"minicharts/chartconfig"
	"minicharts/chartval"
	"minicharts/marketdata"
	"minicharts/widgets"

	"github.com/stretchr/testify/assert"
	"github.com/zhangyunhao116/skipmap"
	"gioui.org/layout"
)

type nopUpdater struct{}

func (nopUpdater) Invalidate() {}

func newTestView(symbol string) *MinichartView {
	info := chartval.SymbolInfo{
		Symbol:         symbol,
		BaseAsset:      "BTC",
		QuoteAsset:     "USDT",
		PricePrecision: 2,
	}
	return NewMinichartView(info, widgets.NewDarkChartTheme(), nopUpdater{}, nil, nil, nil)
}

func tickerAt(symbol string, price, quoteVolume float64) marketdata.TickerUpdate {
	return marketdata.TickerUpdate{
		Symbol:      symbol,
		Price:       chartval.ConvertFloatToDecimal(price, 64),
		QuoteVolume: chartval.ConvertFloatToDecimal(quoteVolume, 64),
		Time:        time.Now(),
	}
}

func newTestGrid(views ...*MinichartView) *Grid {
	g := NewGrid(chartconfig.NewTestConfig(), nil)
	g.settings = chartconfig.NewAppConfig()
	g.viewMap = skipmap.NewString[*MinichartView]()
	g.rowList = layout.List{Axis: layout.Vertical}
	for _, v := range views {
		g.viewMap.Store(v.Symbol.Symbol, v)
		g.views = append(g.views, v)
	}
	return g
}

func gridOrder(g *Grid) []string {
	order := make([]string, 0, len(g.views))
	for _, v := range g.views {
		order = append(order, v.Symbol.Symbol)
	}
	return order
}

func TestSortViewsAlphabetically(t *testing.T) {
	g := newTestGrid(newTestView("ETHUSDT"), newTestView("BTCUSDT"), newTestView("ADAUSDT"))
	g.settings.SortBy = chartval.SortAlphabetically
	g.settings.SortDescending = false
	g.sortViews()
	assert.Equal(t, []string{"ADAUSDT", "BTCUSDT", "ETHUSDT"}, gridOrder(g))
}

func TestSortViewsByVolumeDescending(t *testing.T) {
	a := newTestView("AAAUSDT")
	b := newTestView("BBBUSDT")
	c := newTestView("CCCUSDT")
	a.HandleTicker(tickerAt("AAAUSDT", 1, 100))
	b.HandleTicker(tickerAt("BBBUSDT", 1, 300))
	c.HandleTicker(tickerAt("CCCUSDT", 1, 200))
	g := newTestGrid(a, b, c)
	g.settings.SortBy = chartval.SortByVolume
	g.settings.SortDescending = true
	g.sortViews()
	assert.Equal(t, []string{"BBBUSDT", "CCCUSDT", "AAAUSDT"}, gridOrder(g))
}

func TestSortViewsPinsPositionSymbols(t *testing.T) {
	a := newTestView("AAAUSDT")
	b := newTestView("BBBUSDT")
	c := newTestView("CCCUSDT")
	a.HandleTicker(tickerAt("AAAUSDT", 1, 100))
	b.HandleTicker(tickerAt("BBBUSDT", 1, 300))
	c.HandleTicker(tickerAt("CCCUSDT", 1, 200))
	g := newTestGrid(a, b, c)
	g.settings.SortBy = chartval.SortByVolume
	g.settings.SortDescending = true
	// The lowest volume symbol has an open position and leads anyway.
	g.positions["AAAUSDT"] = &chartval.Position{Symbol: "AAAUSDT", Side: chartval.SideBuy}
	g.sortViews()
	assert.Equal(t, []string{"AAAUSDT", "BBBUSDT", "CCCUSDT"}, gridOrder(g))
}

func TestSortViewsByVolumeChange(t *testing.T) {
	a := newTestView("AAAUSDT")
	b := newTestView("BBBUSDT")
	// First update seeds the session baseline.
	a.HandleTicker(tickerAt("AAAUSDT", 1, 100))
	b.HandleTicker(tickerAt("BBBUSDT", 1, 1000))
	a.HandleTicker(tickerAt("AAAUSDT", 1, 500))
	b.HandleTicker(tickerAt("BBBUSDT", 1, 1010))
	assert.InDelta(t, 400, a.VolumeChange(), chartval.NearZero)
	assert.InDelta(t, 10, b.VolumeChange(), chartval.NearZero)

	g := newTestGrid(a, b)
	g.settings.SortBy = chartval.SortByVolumeChange
	g.settings.SortDescending = true
	g.sortViews()
	assert.Equal(t, []string{"AAAUSDT", "BBBUSDT"}, gridOrder(g))
}

func TestSaveSymbolAlerts(t *testing.T) {
	g := newTestGrid()
	alerts := []chartval.AlertItem{{Price: 100}, {Price: 200}}
	g.saveSymbolAlerts("BTCUSDT", alerts)
	c, err := g.config.Copy()
	assert.NoError(t, err)
	assert.Equal(t, alerts, c.SymbolAlerts["BTCUSDT"])

	// An empty set removes the symbol entry.
	g.saveSymbolAlerts("BTCUSDT", nil)
	c, err = g.config.Copy()
	assert.NoError(t, err)
	_, ok := c.SymbolAlerts["BTCUSDT"]
	assert.False(t, ok)
}

func TestPruneSymbolAlerts(t *testing.T) {
	g := newTestGrid()
	g.saveSymbolAlerts("BTCUSDT", []chartval.AlertItem{{Price: 100}})
	g.saveSymbolAlerts("OLDUSDT", []chartval.AlertItem{{Price: 50}})
	g.pruneSymbolAlerts([]chartval.SymbolInfo{{Symbol: "BTCUSDT"}})
	c, err := g.config.Copy()
	assert.NoError(t, err)
	_, ok := c.SymbolAlerts["BTCUSDT"]
	assert.True(t, ok)
	_, ok = c.SymbolAlerts["OLDUSDT"]
	assert.False(t, ok)
}

func TestMinichartRealtimeCandleMerge(t *testing.T) {
	v := newTestView("BTCUSDT")
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	first := chartval.NewCandle("BTCUSDT", chartval.IntervalOneMinute, start, 100, 101, 99, 100, 10)
	v.SetCandles([]chartval.Candle{first}, 3)

	// An update of the open candle replaces the last entry.
	update := chartval.NewCandle("BTCUSDT", chartval.IntervalOneMinute, start, 100, 102, 99, 101, 12)
	v.AddRealtimeCandle(update)
	assert.Len(t, v.candles, 1)
	assert.InDelta(t, 101, v.candles[0].Close, chartval.NearZero)

	// Newer candles append, the window limit trims the head.
	for i := 1; i <= 3; i++ {
		c := chartval.NewCandle("BTCUSDT", chartval.IntervalOneMinute,
			start.Add(time.Duration(i)*time.Minute), 100, 101, 99, 100, 10)
		v.AddRealtimeCandle(c)
	}
	assert.Len(t, v.candles, 3)
	assert.Equal(t, start.Add(time.Minute), v.candles[0].Time)

	// Stale candles are dropped.
	v.AddRealtimeCandle(first)
	assert.Len(t, v.candles, 3)
	assert.Equal(t, start.Add(time.Minute), v.candles[0].Time)
}

func TestMinichartVolumeAnomalyCallback(t *testing.T) {
	var gotSymbol string
	var gotVolume float64
	count := 0
	info := chartval.SymbolInfo{Symbol: "BTCUSDT", BaseAsset: "BTC", PricePrecision: 2}
	v := NewMinichartView(info, widgets.NewDarkChartTheme(), nopUpdater{}, nil, nil,
		func(symbol string, price float64, volume float64, _ time.Time) {
			gotSymbol = symbol
			gotVolume = volume
			count++
		})
	v.SetAnomalySettings(10, 3)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]chartval.Candle, 0, 4)
	for i := 0; i < 3; i++ {
		c := chartval.NewCandle("BTCUSDT", chartval.IntervalOneMinute,
			start.Add(time.Duration(i)*time.Minute), 100, 101, 99, 100, 100)
		c.Closed = true
		candles = append(candles, c)
	}
	v.SetCandles(candles, 100)

	spike := chartval.NewCandle("BTCUSDT", chartval.IntervalOneMinute,
		start.Add(3*time.Minute), 100, 101, 99, 100, 5000)
	// The open candle never alerts, only the closed one does.
	v.AddRealtimeCandle(spike)
	assert.Equal(t, 0, count)
	spike.Closed = true
	v.AddRealtimeCandle(spike)
	assert.Equal(t, 1, count)
	assert.Equal(t, "BTCUSDT", gotSymbol)
	assert.InDelta(t, 5000, gotVolume, chartval.NearZero)
	// Repeated closed updates of the same bucket stay silent.
	v.AddRealtimeCandle(spike)
	assert.Equal(t, 1, count)
}

func TestMinichartDeltaPercentage(t *testing.T) {
	v := newTestView("BTCUSDT")
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	v.SetCandles([]chartval.Candle{
		chartval.NewCandle("BTCUSDT", chartval.IntervalOneMinute, start, 100, 101, 99, 100, 10),
	}, 10)
	_, ok := v.deltaPercentage()
	assert.False(t, ok)

	v.HandleTicker(tickerAt("BTCUSDT", 105, 1000))
	delta, ok := v.deltaPercentage()
	assert.True(t, ok)
	value, _ := delta.Float64()
	assert.InDelta(t, 5, value, chartval.NearZero)
}
