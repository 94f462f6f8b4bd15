// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package chartplot

import (
	"context"
	"math"
	"minicharts/chartval"
	"sync"
)

// TransformCandles maps raw candles to the representation of the
// requested chart type. The input slice is never modified.
func TransformCandles(candles []chartval.Candle, chartType chartval.ChartType) []chartval.Candle {
	switch chartType {
	case chartval.ChartTypeHeikinAshi:
		return HeikinAshi(candles)
	case chartval.ChartTypeHeikinAshiActualPrice:
		return HeikinAshiActualPrice(candles)
	default:
		return candles
	}
}

// HeikinAshi returns the Heikin-Ashi aggregation of the given candles.
// Each open price is the midpoint of the previous aggregated candle,
// so consecutive candles share an edge.
func HeikinAshi(candles []chartval.Candle) []chartval.Candle {
	newCandles := make([]chartval.Candle, len(candles))
	for i := range candles {
		c := candles[i]
		newClose := (c.Open + c.Close + c.High + c.Low) / 4
		var newOpen float64
		if i > 0 {
			newOpen = (newCandles[i-1].Open + newCandles[i-1].Close) / 2
		} else {
			newOpen = (c.Open + c.Close) / 2
		}
		c.Close = newClose
		c.Open = newOpen
		c.High = math.Max(c.High, math.Max(newOpen, newClose))
		c.Low = math.Min(c.Low, math.Min(newOpen, newClose))
		c.Direction = haDirection(newOpen, newClose)
		newCandles[i] = c
	}
	return newCandles
}

// HeikinAshiActualPrice smooths open prices like Heikin-Ashi but keeps
// the real high/low range and the real close of the newest candle, so
// the current price stays readable. Previous candles are adjusted so
// that no gaps appear between bodies.
func HeikinAshiActualPrice(candles []chartval.Candle) []chartval.Candle {
	newCandles := make([]chartval.Candle, len(candles))
	for i := range candles {
		c := candles[i]
		var newOpen float64
		if i > 0 {
			newOpen = (newCandles[i-1].Open + newCandles[i-1].Close) / 2
		} else {
			newOpen = (c.Open + c.Close) / 2
		}
		newClose := (c.Open + c.Close + c.High + c.Low) / 4
		newDirection := haDirection(newOpen, newClose)

		// Clamp new open to the real trading range.
		if newDirection == chartval.DirectionUp {
			newOpen = math.Max(newOpen, c.Low)
		} else {
			newOpen = math.Min(newOpen, c.High)
		}

		// Keep the newest close as vanilla to visually keep track of price.
		if i == len(candles)-1 {
			newClose = c.Close
		}

		c.Open = newOpen
		c.Close = newClose
		c.Direction = newDirection
		newCandles[i] = c

		// Adjust close/open of the previous candle, we don't want gaps.
		if i > 0 {
			previous := &newCandles[i-1]
			if newDirection == previous.Direction {
				if previous.Direction == chartval.DirectionUp {
					previous.Close = math.Max(previous.Close, newOpen)
				} else {
					previous.Close = math.Min(previous.Close, newOpen)
				}
			} else {
				if previous.Direction == chartval.DirectionDown {
					previous.Open = math.Max(previous.Open, newOpen)
				} else {
					previous.Open = math.Min(previous.Open, newOpen)
				}
			}
		}
	}
	return newCandles
}

func haDirection(open, close float64) chartval.Direction {
	if open <= close {
		return chartval.DirectionUp
	}
	return chartval.DirectionDown
}

type transformRequest struct {
	candles   []chartval.Candle
	chartType chartval.ChartType
}

// Transformer executes candle transforms on a worker goroutine, so
// that large Heikin-Ashi recalculations do not block frame layout.
// Only the most recent request is kept, older pending requests are
// dropped.
type Transformer struct {
	requestChan chan transformRequest
	dataMutex   sync.RWMutex
	latest      []chartval.Candle
	latestType  chartval.ChartType
}

func NewTransformer() *Transformer {
	return &Transformer{
		requestChan: make(chan transformRequest, 1),
	}
}

// Start runs the worker until ctx is cancelled. notify is called after
// each completed transform and may be used to invalidate the ui.
func (t *Transformer) Start(ctx context.Context, notify func()) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case req := <-t.requestChan:
				result := TransformCandles(req.candles, req.chartType)
				t.dataMutex.Lock()
				t.latest = result
				t.latestType = req.chartType
				t.dataMutex.Unlock()
				if notify != nil {
					notify()
				}
			}
		}
	}()
}

// Transform queues a new request, replacing any pending one.
func (t *Transformer) Transform(candles []chartval.Candle, chartType chartval.ChartType) {
	req := transformRequest{candles: candles, chartType: chartType}
	for {
		select {
		case t.requestChan <- req:
			return
		default:
			select {
			case <-t.requestChan:
			default:
			}
		}
	}
}

// Latest returns the result of the most recently completed transform.
// A stale result may be returned while a newer request is in flight.
func (t *Transformer) Latest() ([]chartval.Candle, chartval.ChartType) {
	t.dataMutex.RLock()
	defer t.dataMutex.RUnlock()
	return t.latest, t.latestType
}
