// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package marketdata

import (
	"context"
	"minicharts/chartconfig"
	"minicharts/chartval"
	"time"

	"github.com/ericlagergren/decimal"
)

type SymbolsRequest struct {
	RequestId string
}

type SymbolsResponse struct {
	SymbolsRequest
	Error   error
	Symbols []chartval.SymbolInfo
}

type CandlesRequest struct {
	Symbol   string
	Interval chartval.CandleInterval
	Limit    int
}

type CandlesResponse struct {
	Symbol   string
	Interval chartval.CandleInterval
	Error    error
	Candles  []chartval.Candle
}

// TickerUpdate is one entry of the all-market ticker stream.
// Prices are decimals until they reach the plotting boundary.
type TickerUpdate struct {
	Symbol      string
	Price       *decimal.Big
	QuoteVolume *decimal.Big
	Time        time.Time
}

// DeltaPercentage returns the percentage distance to a previous price.
func (t TickerUpdate) DeltaPercentage(previousPrice *decimal.Big) *decimal.Big {
	return chartval.CalculateDeltaPercentage(previousPrice, t.Price)
}

type RealtimeSubscription int

const (
	RealtimeSubscribe RealtimeSubscription = iota
	RealtimeUnsubscribe
)

type SubscribeCandlesRequest struct {
	Symbol   string
	Interval chartval.CandleInterval
	Type     RealtimeSubscription
}

type SubscribeCandlesResponse struct {
	Symbol   string
	Interval chartval.CandleInterval
	Error    error
	Type     RealtimeSubscription
	Candles  chan chartval.Candle
}

type SubscribeTickersRequest struct {
	Type RealtimeSubscription
}

type SubscribeTickersResponse struct {
	Error   error
	Type    RealtimeSubscription
	Tickers chan TickerUpdate
}

// MarketConnector provides futures market data. All queries run as
// worker goroutines reading requests from a channel and replying on a
// response channel, so slow exchange calls never block the UI.
type MarketConnector interface {
	RemainingApiLimit() int
	ReadConfig(c chartconfig.Config) error
	QuerySymbols(ctx context.Context, request <-chan SymbolsRequest, response chan<- SymbolsResponse)
	QueryCandles(ctx context.Context, request <-chan CandlesRequest, response chan<- CandlesResponse)
	SubscribeCandles(ctx context.Context, request <-chan SubscribeCandlesRequest, response chan<- SubscribeCandlesResponse)
	SubscribeTickers(ctx context.Context, request <-chan SubscribeTickersRequest, response chan<- SubscribeTickersResponse)
}
