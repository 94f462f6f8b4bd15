// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package chartval

import (
	"time"
)

// Direction of a candle, derived from open/close prices.
// Transforms which modify prices keep the direction which was
// determined before any clamping.
type Direction int

const (
	DirectionUp Direction = iota
	DirectionDown
)

// Side of an order or position.
type Side int

const (
	SideBuy Side = iota
	SideSell
)

// Sign returns +1 for buy and -1 for sell.
// It is used to fold long/short calculations into a single formula.
func (s Side) Sign() float64 {
	if s == SideBuy {
		return 1
	}
	return -1
}

func (s Side) String() string {
	if s == SideBuy {
		return "BUY"
	}
	return "SELL"
}

type ChartType int

const (
	ChartTypeCandle ChartType = iota
	ChartTypeHeikinAshi
	ChartTypeHeikinAshiActualPrice
)

func ChartTypeUiStringList() []string {
	return []string{
		"Candles",
		"Heikin-Ashi",
		"Heikin-Ashi (actual price)",
	}
}

type ScaleType int

const (
	ScaleLinear ScaleType = iota
	ScaleSymlog
)

func ScaleTypeUiStringList() []string {
	return []string{
		"Linear",
		"Logarithmic",
	}
}

// Candle contains a single aggregation bucket with float values
// prepared for plotting. Decimal values are converted at the
// market data boundary.
type Candle struct {
	Symbol    string
	Interval  CandleInterval
	Time      time.Time
	CloseTime time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	Direction Direction
	Closed    bool
}

func NewCandle(symbol string, interval CandleInterval, t time.Time, o, h, l, c, v float64) Candle {
	candle := Candle{
		Symbol:   symbol,
		Interval: interval,
		Time:     t,
		Open:     o,
		High:     h,
		Low:      l,
		Close:    c,
		Volume:   v,
	}
	candle.CloseTime = t.Add(interval.GetDuration(t))
	if IsGreenCandle(o, c) {
		candle.Direction = DirectionUp
	} else {
		candle.Direction = DirectionDown
	}
	return candle
}

// For sorting
type CandleList []Candle

func (x CandleList) Len() int           { return len(x) }
func (x CandleList) Less(i, j int) bool { return x[i].Time.Before(x[j].Time) }
func (x CandleList) Swap(i, j int)      { x[i], x[j] = x[j], x[i] }

type OrderType int

const (
	OrderTypeLimit OrderType = iota
	OrderTypeStop
	OrderTypeStopMarket
	OrderTypeTakeProfit
	OrderTypeTakeProfitMarket
)

// Order is an open futures order.
type Order struct {
	Symbol        string
	ClientOrderId string
	Side          Side
	Type          OrderType
	Price         float64
	StopPrice     float64
	OrigQty       float64
	ExecutedQty   float64
	ReduceOnly    bool
	// IsCanceled marks orders the exchange still reports after a
	// cancel request, before they drop out of the open order list.
	IsCanceled bool
	Leverage   float64
}

// Position is an open futures position.
type Position struct {
	Symbol           string
	Side             Side
	EntryPrice       float64
	PositionAmt      float64
	Leverage         float64
	LiquidationPrice float64
}

// LeverageBracket describes one maintenance margin tier.
type LeverageBracket struct {
	Bracket          int
	InitialLeverage  float64
	NotionalCap      float64
	NotionalFloor    float64
	MaintMarginRatio float64
	Cum              float64
}

type AlertType string

const (
	AlertPriceUp       AlertType = "PRICE_UP"
	AlertPriceDown     AlertType = "PRICE_DOWN"
	AlertVolumeAnomaly AlertType = "VOLUME_ANOMALY"
)

// AlertItem is a single price alert. A zero TriggeredTime means
// the alert is still pending.
type AlertItem struct {
	Price         float64   `yaml:"price"`
	TriggeredTime time.Time `yaml:"triggeredTime,omitempty"`
}

func (a AlertItem) IsTriggered() bool {
	return !a.TriggeredTime.IsZero()
}

// AlertLogItem is one entry of the global alert history.
type AlertLogItem struct {
	Type   AlertType `yaml:"type"`
	Symbol string    `yaml:"symbol"`
	Price  float64   `yaml:"price"`
	Volume float64   `yaml:"volume"`
	Time   time.Time `yaml:"time"`
}

// SymbolInfo contains static exchange metadata of a futures symbol.
type SymbolInfo struct {
	Symbol            string
	BaseAsset         string
	QuoteAsset        string
	PricePrecision    int
	QuantityPrecision int
}

// For sorting
type SymbolInfoList []SymbolInfo

func (x SymbolInfoList) Len() int           { return len(x) }
func (x SymbolInfoList) Less(i, j int) bool { return x[i].Symbol < x[j].Symbol }
func (x SymbolInfoList) Swap(i, j int)      { x[i], x[j] = x[j], x[i] }

type SortBy int

const (
	SortAlphabetically SortBy = iota
	SortByVolume
	SortByVolumeChange
)

func SortByUiStringList() []string {
	return []string{
		"Alphabetically",
		"Volume",
		"Volume change",
	}
}

type SortDirection int

const (
	SortAscending SortDirection = iota
	SortDescending
)

func IndexOf[T comparable](values []T, value T) int {
	for i := range values {
		if values[i] == value {
			return i
		}
	}
	return -1
}
