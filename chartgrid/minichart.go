// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package chartgrid

import (
	"context"
	"log"
	"sync"
	"time"

	"minicharts/chartlines"
	"minicharts/chartplot"
	"minicharts/chartval"
	"minicharts/marketdata"
	"minicharts/widgets"

	"gioui.org/layout"
	"gioui.org/unit"
	"gioui.org/widget/material"
	"github.com/ericlagergren/decimal"
)

// UiUpdater schedules a redraw from a non-UI goroutine.
type UiUpdater interface {
	Invalidate()
}

// MinichartView is one grid cell, a chart with price line overlays and
// a header showing symbol, price and delta.
type MinichartView struct {
	Symbol chartval.SymbolInfo

	chart       *chartplot.ChartController
	lines       *chartlines.LineSet
	transformer *chartplot.Transformer
	link        widgets.SymbolLink
	anomaly     *VolumeAnomalyDetector

	uiUpdater       UiUpdater
	onVolumeAnomaly func(symbol string, price float64, volume float64, t time.Time)

	candlesMutex sync.Mutex
	candles      []chartval.Candle
	candlesLimit int

	priceMutex    sync.Mutex
	lastPrice     *decimal.Big
	quoteVolume   *decimal.Big
	initialVolume *decimal.Big
}

func NewMinichartView(symbol chartval.SymbolInfo, theme *widgets.ChartTheme, uiUpdater UiUpdater,
	onAlertUpdate func([]chartval.AlertItem),
	onAlertTrigger func(alertType chartval.AlertType, price float64),
	onVolumeAnomaly func(symbol string, price float64, volume float64, t time.Time)) *MinichartView {
	v := &MinichartView{
		Symbol:          symbol,
		transformer:     chartplot.NewTransformer(),
		uiUpdater:       uiUpdater,
		onVolumeAnomaly: onVolumeAnomaly,
	}
	v.chart = chartplot.NewChartController(theme, v.transformer)
	v.lines = chartlines.NewLineSet(theme, onAlertUpdate, onAlertTrigger)
	v.chart.Lines = v.lines
	v.chart.OnRightClick = func(price float64) {
		v.lines.Alerts.AddAlert(price)
	}
	v.chart.SetPricePrecision(symbol.PricePrecision)
	v.lines.SetPricePrecision(symbol.PricePrecision)
	v.link.SetSymbol(symbol.Symbol)
	return v
}

// Start runs the background workers of this view until ctx ends.
func (v *MinichartView) Start(ctx context.Context) {
	v.transformer.Start(ctx, v.uiUpdater.Invalidate)
	v.lines.Alerts.StartSweep(ctx, v.uiUpdater.Invalidate)
}

func (v *MinichartView) Lines() *chartlines.LineSet {
	return v.lines
}

func (v *MinichartView) SetChartType(t chartval.ChartType) {
	v.chart.SetChartType(t)
}

func (v *MinichartView) SetScaleType(t chartval.ScaleType) {
	v.chart.SetScaleType(t)
}

func (v *MinichartView) SetAnomalySettings(ratio float64, window int) {
	v.anomaly = NewVolumeAnomalyDetector(ratio, window)
}

// SetCandles replaces the loaded candle window.
func (v *MinichartView) SetCandles(candles []chartval.Candle, limit int) {
	v.candlesMutex.Lock()
	defer v.candlesMutex.Unlock()
	v.candles = candles
	v.candlesLimit = limit
}

// AddRealtimeCandle merges a streamed candle into the loaded window.
// An update of the open candle replaces the last entry, a new open
// time appends and trims to the window limit.
func (v *MinichartView) AddRealtimeCandle(candle chartval.Candle) {
	v.candlesMutex.Lock()
	defer v.candlesMutex.Unlock()
	if len(v.candles) > 0 {
		last := v.candles[len(v.candles)-1]
		if candle.Interval != last.Interval {
			return
		}
		if candle.Time.Equal(last.Time) {
			v.candles[len(v.candles)-1] = candle
		} else if candle.Time.After(last.Time) {
			v.candles = append(v.candles, candle)
			if v.candlesLimit > 0 && len(v.candles) > v.candlesLimit {
				v.candles = v.candles[len(v.candles)-v.candlesLimit:]
			}
		} else {
			log.Printf("ignoring stale candle for %s at %v", candle.Symbol, candle.Time)
			return
		}
	} else {
		v.candles = []chartval.Candle{candle}
	}
	v.checkVolumeAnomaly()
}

// checkVolumeAnomaly is called with candlesMutex held.
func (v *MinichartView) checkVolumeAnomaly() {
	if v.anomaly == nil || v.onVolumeAnomaly == nil {
		return
	}
	last := v.candles[len(v.candles)-1]
	if !last.Closed {
		return
	}
	if v.anomaly.Check(v.candles) {
		v.onVolumeAnomaly(last.Symbol, last.Close, last.Volume, last.CloseTime)
	}
}

// SetRealtimeCandlesChan consumes a candle stream until the channel is
// closed.
func (v *MinichartView) SetRealtimeCandlesChan(candleChan <-chan chartval.Candle) {
	go func() {
		for candle := range candleChan {
			v.AddRealtimeCandle(candle)
			v.uiUpdater.Invalidate()
		}
	}()
}

// HandleTicker feeds an all-market ticker entry into the price line,
// the alert engine and the volume counters used for sorting.
func (v *MinichartView) HandleTicker(t marketdata.TickerUpdate) {
	price, _ := t.Price.Float64()
	v.lines.UpdatePrice(price, t.Time)

	v.priceMutex.Lock()
	defer v.priceMutex.Unlock()
	v.lastPrice = t.Price
	v.quoteVolume = t.QuoteVolume
	if v.initialVolume == nil {
		v.initialVolume = t.QuoteVolume
	}
}

// QuoteVolume returns the latest 24h quote volume.
func (v *MinichartView) QuoteVolume() float64 {
	v.priceMutex.Lock()
	defer v.priceMutex.Unlock()
	if v.quoteVolume == nil {
		return 0
	}
	volume, _ := v.quoteVolume.Float64()
	return volume
}

// VolumeChange returns the quote volume gained since the first ticker
// update of this session.
func (v *MinichartView) VolumeChange() float64 {
	v.priceMutex.Lock()
	defer v.priceMutex.Unlock()
	if v.quoteVolume == nil || v.initialVolume == nil {
		return 0
	}
	change := new(decimal.Big).Sub(v.quoteVolume, v.initialVolume)
	result, _ := change.Float64()
	return result
}

// deltaPercentage is the price change over the loaded candle window.
func (v *MinichartView) deltaPercentage() (*decimal.Big, bool) {
	v.priceMutex.Lock()
	lastPrice := v.lastPrice
	v.priceMutex.Unlock()
	v.candlesMutex.Lock()
	defer v.candlesMutex.Unlock()
	if lastPrice == nil || len(v.candles) == 0 || v.candles[0].Open <= 0 {
		return nil, false
	}
	base := chartval.ConvertFloatToDecimal(v.candles[0].Open, 64)
	return chartval.CalculateDeltaPercentage(base, lastPrice), true
}

func (v *MinichartView) candlesCopy() []chartval.Candle {
	v.candlesMutex.Lock()
	defer v.candlesMutex.Unlock()
	return append([]chartval.Candle(nil), v.candles...)
}

func (v *MinichartView) Layout(gtx layout.Context, th *material.Theme, chartTheme *widgets.ChartTheme, heightPx int) layout.Dimensions {
	v.chart.SetCandles(v.candlesCopy())
	return layout.Flex{Axis: layout.Vertical}.Layout(gtx,
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			return v.layoutHeader(gtx, th, chartTheme)
		}),
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			gtx.Constraints.Min.Y = heightPx
			gtx.Constraints.Max.Y = heightPx
			return v.chart.Layout(gtx, th)
		}),
	)
}

func (v *MinichartView) layoutHeader(gtx layout.Context, th *material.Theme, chartTheme *widgets.ChartTheme) layout.Dimensions {
	return layout.Inset{Left: 4, Right: 4, Top: 2, Bottom: 2}.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
		return layout.Flex{Axis: layout.Horizontal, Alignment: layout.Middle}.Layout(gtx,
			layout.Rigid(func(gtx layout.Context) layout.Dimensions {
				return v.link.Layout(th, gtx)
			}),
			layout.Flexed(1, layout.Spacer{}.Layout),
			layout.Rigid(func(gtx layout.Context) layout.Dimensions {
				return v.layoutPriceInfo(gtx, th, chartTheme)
			}),
		)
	})
}

func (v *MinichartView) layoutPriceInfo(gtx layout.Context, th *material.Theme, chartTheme *widgets.ChartTheme) layout.Dimensions {
	v.priceMutex.Lock()
	lastPrice := v.lastPrice
	v.priceMutex.Unlock()
	if lastPrice == nil {
		return layout.Dimensions{}
	}
	price, _ := lastPrice.Float64()
	priceText := chartval.FormatPrice(price, v.Symbol.PricePrecision)
	deltaText := ""
	deltaColor := chartTheme.SymbolTextColor
	if delta, ok := v.deltaPercentage(); ok {
		deltaValue, _ := delta.Float64()
		deltaText = chartval.FormatPrice(deltaValue, 2) + "%"
		if deltaValue >= 0 {
			deltaText = "+" + deltaText
			deltaColor = chartTheme.PriceUpTextColor
		} else {
			deltaColor = chartTheme.PriceDownTextColor
		}
	}
	return layout.Flex{Axis: layout.Horizontal, Alignment: layout.Middle}.Layout(gtx,
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			label := material.Label(th, unit.Sp(13), priceText)
			label.Color = chartTheme.SymbolTextColor
			return label.Layout(gtx)
		}),
		layout.Rigid(layout.Spacer{Width: 6}.Layout),
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			label := material.Label(th, unit.Sp(13), deltaText)
			label.Color = deltaColor
			return label.Layout(gtx)
		}),
	)
}
