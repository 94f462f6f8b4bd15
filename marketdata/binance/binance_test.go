// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package binance

import (
	"encoding/json"
	"minicharts/chartval"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapKlineRow(t *testing.T) {
	var row []any
	err := json.Unmarshal([]byte(`[1607444700000,"18879.99","18900.00","18878.98","18896.13","492.363",1607444759999,"9302145.66",1874,"385.983","7292402.33","0"]`), &row)
	assert.NoError(t, err)

	candle, err := mapKlineRow("BTCUSDT", chartval.IntervalOneMinute, row)
	assert.NoError(t, err)
	assert.Equal(t, "BTCUSDT", candle.Symbol)
	assert.Equal(t, int64(1607444700000), candle.Time.UnixMilli())
	assert.InDelta(t, 18879.99, candle.Open, chartval.NearZero)
	assert.InDelta(t, 18900.00, candle.High, chartval.NearZero)
	assert.InDelta(t, 18878.98, candle.Low, chartval.NearZero)
	assert.InDelta(t, 18896.13, candle.Close, chartval.NearZero)
	assert.InDelta(t, 492.363, candle.Volume, chartval.NearZero)
	assert.Equal(t, chartval.DirectionUp, candle.Direction)
	assert.True(t, candle.Closed)
}

func TestMapKlineRowInvalid(t *testing.T) {
	_, err := mapKlineRow("BTCUSDT", chartval.IntervalOneMinute, []any{float64(1)})
	assert.Error(t, err)
	_, err = mapKlineRow("BTCUSDT", chartval.IntervalOneMinute,
		[]any{"notatime", "1", "1", "1", "1", "1", float64(2)})
	assert.Error(t, err)
}

func TestMapKlineEvent(t *testing.T) {
	var event klineEvent
	err := json.Unmarshal([]byte(`{
		"e":"kline","E":1607444700123,"s":"ETHUSDT",
		"k":{"t":1607444700000,"T":1607444759999,"i":"5m",
		"o":"590.10","h":"592.00","l":"589.00","c":"589.50","v":"1000.5","x":false}}`), &event)
	assert.NoError(t, err)
	assert.Equal(t, eventTypeKline, event.EventType)
	// The uppercase event time key must not collide with the
	// case-insensitive match of the event type key.
	assert.Equal(t, int64(1607444700123), event.EventTime)

	candle := mapKlineEvent(event)
	assert.Equal(t, "ETHUSDT", candle.Symbol)
	assert.Equal(t, chartval.IntervalFiveMinutes, candle.Interval)
	assert.InDelta(t, 590.10, candle.Open, chartval.NearZero)
	assert.InDelta(t, 589.50, candle.Close, chartval.NearZero)
	assert.Equal(t, chartval.DirectionDown, candle.Direction)
	assert.False(t, candle.Closed)
}

func TestMapTickerEvent(t *testing.T) {
	var event miniTickerEvent
	err := json.Unmarshal([]byte(`{"e":"24hrMiniTicker","E":1607444700123,"s":"BTCUSDT","c":"18896.13","q":"9302145.66"}`), &event)
	assert.NoError(t, err)

	ticker := mapTickerEvent(event)
	assert.Equal(t, "BTCUSDT", ticker.Symbol)
	price, _ := ticker.Price.Float64()
	assert.InDelta(t, 18896.13, price, chartval.NearZero)
	quoteVolume, _ := ticker.QuoteVolume.Float64()
	assert.InDelta(t, 9302145.66, quoteVolume, chartval.NearZero)
	assert.Equal(t, int64(1607444700123), ticker.Time.UnixMilli())
}

func TestCandleStreamKey(t *testing.T) {
	assert.Equal(t, "btcusdt@kline_1m", candleStreamKey("BTCUSDT", chartval.IntervalOneMinute))
	assert.Equal(t, "ethusdt@kline_1d", candleStreamKey("ETHUSDT", chartval.IntervalOneDay))
}

func TestIsChartableSymbol(t *testing.T) {
	assert.True(t, isChartableSymbol(exchangeSymbol{
		Symbol: "BTCUSDT", QuoteAsset: "USDT", ContractType: "PERPETUAL", Status: "TRADING"}))
	assert.False(t, isChartableSymbol(exchangeSymbol{
		Symbol: "BTCUSDT_210326", QuoteAsset: "USDT", ContractType: "CURRENT_QUARTER", Status: "TRADING"}))
	assert.False(t, isChartableSymbol(exchangeSymbol{
		Symbol: "BTCBUSD", QuoteAsset: "BUSD", ContractType: "PERPETUAL", Status: "TRADING"}))
	assert.False(t, isChartableSymbol(exchangeSymbol{
		Symbol: "OLDUSDT", QuoteAsset: "USDT", ContractType: "PERPETUAL", Status: "SETTLING"}))
}
