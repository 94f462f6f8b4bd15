// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"minicharts/cache"
	"minicharts/chartconfig"
	"minicharts/chartval"
	"minicharts/marketdata"
	"minicharts/webclient"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ericlagergren/decimal"
	"github.com/gorilla/websocket"
)

// We are not using an exchange SDK, because the available ones use
// float32 or interface soup for prices. We unmarshal the few messages
// we need directly.
type binanceConnector struct {
	rateLimiter *webclient.RateLimiter
	apiClient   *http.Client
	// The candle and ticker subscription workers share one stream
	// connection, the mutex guards connect and command writes.
	connMutex    sync.Mutex
	realtimeConn *websocket.Conn
	candleMap    *marketdata.ChanMap[chartval.Candle]
	tickerMap    *marketdata.ChanMap[marketdata.TickerUpdate]
	cache        cache.SymbolCache
	config       chartconfig.ConnectorConfig
	commandId    atomic.Int64
}

// REST request weights, see the exchange API documentation.
const (
	weightExchangeInfo = 1
	weightKlines       = 10
)

const tickersStreamKey = "!miniTicker@arr"

type exchangeSymbol struct {
	Symbol            string `json:"symbol"`
	BaseAsset         string `json:"baseAsset"`
	QuoteAsset        string `json:"quoteAsset"`
	ContractType      string `json:"contractType"`
	Status            string `json:"status"`
	PricePrecision    int    `json:"pricePrecision"`
	QuantityPrecision int    `json:"quantityPrecision"`
}

type exchangeInfo struct {
	Symbols []exchangeSymbol `json:"symbols"`
}

type klineEvent struct {
	EventType string `json:"e"`
	EventTime int64  `json:"E"`
	Symbol    string `json:"s"`
	Kline     struct {
		OpenTime  int64  `json:"t"`
		CloseTime int64  `json:"T"`
		Interval  string `json:"i"`
		Open      string `json:"o"`
		High      string `json:"h"`
		Low       string `json:"l"`
		Close     string `json:"c"`
		Volume    string `json:"v"`
		Closed    bool   `json:"x"`
	} `json:"k"`
}

type miniTickerEvent struct {
	EventType   string `json:"e"`
	EventTime   int64  `json:"E"`
	Symbol      string `json:"s"`
	Close       string `json:"c"`
	QuoteVolume string `json:"q"`
}

type realtimeCommand struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
	Id     int64    `json:"id"`
}

const eventTypeKline = "kline"

func getRealtimeCommandStr(s marketdata.RealtimeSubscription) string {
	switch s {
	case marketdata.RealtimeSubscribe:
		return "SUBSCRIBE"
	case marketdata.RealtimeUnsubscribe:
		return "UNSUBSCRIBE"
	default:
		panic("unsupported realtime data subscription mode")
	}
}

func NewConnector() marketdata.MarketConnector {
	return &binanceConnector{
		rateLimiter: webclient.NewRateLimiter(time.Minute, 0),
		apiClient:   &http.Client{},
		candleMap:   marketdata.NewChanMap[chartval.Candle](),
		tickerMap:   marketdata.NewChanMap[marketdata.TickerUpdate](),
		cache:       cache.NewLocalSymbolCache(GetConnectorId()),
	}
}

func GetConnectorId() chartconfig.ConnectorId {
	return "binance-futures"
}

func (rq *binanceConnector) RemainingApiLimit() int {
	return rq.rateLimiter.Remaining()
}

func (rq *binanceConnector) ReadConfig(c chartconfig.Config) error {
	appConfig, err := c.Copy()
	if err != nil {
		return err
	}
	rq.config = appConfig.ConnectorConfig[GetConnectorId()]
	rq.apiClient.Timeout = time.Second * time.Duration(rq.config.DataTimeoutSeconds)
	rq.rateLimiter = webclient.NewRateLimiter(time.Minute, uint32(rq.config.WeightLimitPerMinute))
	return nil
}

func (rq *binanceConnector) runRequest(ctx context.Context, cmd string, query url.Values, weight uint32) (*http.Response, error) {
	retry := true
	var resp *http.Response
	for retry {
		err := rq.rateLimiter.Wait(ctx, weight)
		if err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, "GET", rq.config.DataUrl+cmd, nil)
		if err != nil {
			return nil, err
		}
		req.URL.RawQuery = query.Encode()

		resp, err = rq.apiClient.Do(req)
		if err != nil {
			return nil, err
		}
		retry, err = rq.rateLimiter.HandleResponseWithWait(ctx, resp)
		if err != nil {
			resp.Body.Close()
			return nil, err
		}
		if retry {
			resp.Body.Close()
		}
	}
	return resp, nil
}

func mapSymbolData(s exchangeSymbol) chartval.SymbolInfo {
	return chartval.SymbolInfo{
		Symbol:            s.Symbol,
		BaseAsset:         s.BaseAsset,
		QuoteAsset:        s.QuoteAsset,
		PricePrecision:    s.PricePrecision,
		QuantityPrecision: s.QuantityPrecision,
	}
}

// isChartableSymbol filters for actively traded USDT perpetuals.
func isChartableSymbol(s exchangeSymbol) bool {
	return s.ContractType == "PERPETUAL" && s.QuoteAsset == "USDT" && s.Status == "TRADING"
}

func (rq *binanceConnector) QuerySymbols(ctx context.Context, request <-chan marketdata.SymbolsRequest, response chan<- marketdata.SymbolsResponse) {
	defer close(response)

	for entry := range request {
		symbols := rq.cache.GetSymbolList(ctx, rq.requestSymbols)
		response <- marketdata.SymbolsResponse{
			SymbolsRequest: entry,
			Symbols:        symbols,
		}
	}
	log.Println("binance QuerySymbols terminating.")
}

func (rq *binanceConnector) requestSymbols(ctx context.Context) ([]chartval.SymbolInfo, error) {
	resp, err := rq.runRequest(ctx, "/exchangeInfo", nil, weightExchangeInfo)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var info exchangeInfo
	if err = webclient.ParseJsonResponse(resp, &info); err != nil {
		return nil, err
	}
	symbols := make([]chartval.SymbolInfo, 0, len(info.Symbols))
	for _, s := range info.Symbols {
		if isChartableSymbol(s) {
			symbols = append(symbols, mapSymbolData(s))
		}
	}
	return symbols, nil
}

func (rq *binanceConnector) QueryCandles(ctx context.Context, request <-chan marketdata.CandlesRequest, response chan<- marketdata.CandlesResponse) {
	defer close(response)

	for req := range request {
		resp := rq.querySymbolCandles(ctx, req)
		if resp.Error != nil {
			log.Print(resp.Error)
		}
		response <- resp
	}
	log.Println("binance QueryCandles terminating.")
}

func (rq *binanceConnector) querySymbolCandles(ctx context.Context, req marketdata.CandlesRequest) marketdata.CandlesResponse {
	query := make(url.Values)
	query.Add("symbol", req.Symbol)
	query.Add("interval", string(req.Interval))
	if req.Limit > 0 {
		query.Add("limit", fmt.Sprint(req.Limit))
	}
	resp, err := rq.runRequest(ctx, "/klines", query, weightKlines)
	if err != nil {
		return marketdata.CandlesResponse{Symbol: req.Symbol, Interval: req.Interval, Error: err}
	}
	defer resp.Body.Close()

	var rows [][]any
	if err = webclient.ParseJsonResponse(resp, &rows); err != nil {
		return marketdata.CandlesResponse{Symbol: req.Symbol, Interval: req.Interval, Error: err}
	}

	data := make([]chartval.Candle, 0, len(rows))
	for _, row := range rows {
		candle, err := mapKlineRow(req.Symbol, req.Interval, row)
		if err != nil {
			return marketdata.CandlesResponse{Symbol: req.Symbol, Interval: req.Interval, Error: err}
		}
		data = append(data, candle)
	}
	return marketdata.CandlesResponse{
		Symbol:   req.Symbol,
		Interval: req.Interval,
		Candles:  data,
	}
}

// mapKlineRow converts one REST kline entry. The row is a mixed
// array: [openTime, open, high, low, close, volume, closeTime, ...],
// with prices as strings.
func mapKlineRow(symbol string, interval chartval.CandleInterval, row []any) (chartval.Candle, error) {
	if len(row) < 7 {
		return chartval.Candle{}, fmt.Errorf("kline row of %s has %d fields", symbol, len(row))
	}
	openTime, ok := row[0].(float64)
	if !ok {
		return chartval.Candle{}, fmt.Errorf("kline row of %s has an invalid open time", symbol)
	}
	values := make([]float64, 5)
	for i := range values {
		s, ok := row[i+1].(string)
		if !ok {
			return chartval.Candle{}, fmt.Errorf("kline row of %s has an invalid price field", symbol)
		}
		values[i] = chartval.ParsePriceValue(s)
	}
	candle := chartval.NewCandle(symbol, interval, time.UnixMilli(int64(openTime)),
		values[0], values[1], values[2], values[3], values[4])
	candle.Closed = true
	return candle, nil
}

func mapKlineEvent(event klineEvent) chartval.Candle {
	interval := chartval.CandleIntervalFromString(event.Kline.Interval)
	candle := chartval.NewCandle(event.Symbol, interval, time.UnixMilli(event.Kline.OpenTime),
		chartval.ParsePriceValue(event.Kline.Open),
		chartval.ParsePriceValue(event.Kline.High),
		chartval.ParsePriceValue(event.Kline.Low),
		chartval.ParsePriceValue(event.Kline.Close),
		chartval.ParsePriceValue(event.Kline.Volume))
	candle.Closed = event.Kline.Closed
	return candle
}

func mapTickerEvent(event miniTickerEvent) marketdata.TickerUpdate {
	price, _ := new(decimal.Big).SetString(event.Close)
	quoteVolume, _ := new(decimal.Big).SetString(event.QuoteVolume)
	return marketdata.TickerUpdate{
		Symbol:      event.Symbol,
		Price:       price,
		QuoteVolume: quoteVolume,
		Time:        time.UnixMilli(event.EventTime),
	}
}

// candleStreamKey is both the exchange stream name and the fan-out
// channel key of a kline subscription.
func candleStreamKey(symbol string, interval chartval.CandleInterval) string {
	return fmt.Sprintf("%s@kline_%s", toStreamSymbol(symbol), interval)
}

func toStreamSymbol(symbol string) string {
	b := []byte(symbol)
	for i := range b {
		if b[i] >= 'A' && b[i] <= 'Z' {
			b[i] += 'a' - 'A'
		}
	}
	return string(b)
}

func (rq *binanceConnector) initRealtimeConnection(ctx context.Context) error {
	if rq.realtimeConn != nil {
		log.Fatal("only a single realtime connection is supported")
	}
	log.Printf("establishing binance realtime connection.")
	var err error
	rq.realtimeConn, _, err = websocket.DefaultDialer.DialContext(ctx, rq.config.WsUrl, nil)
	if err != nil {
		return fmt.Errorf("could not connect to binance websocket: %v", err)
	}
	return nil
}

func (rq *binanceConnector) handleRealtimeData(conn *websocket.Conn) {
	for {
		_, msg, err := conn.ReadMessage()

		rq.candleMap.ClearPendingClose()
		rq.tickerMap.ClearPendingClose()

		if err != nil {
			rq.candleMap.Clear()
			rq.tickerMap.Clear()
			log.Print("binance realtime connection was terminated.")
			break
		}
		if len(msg) == 0 {
			continue
		}
		if msg[0] == '[' {
			// The all market ticker stream pushes event arrays.
			var tickers []miniTickerEvent
			if err := json.Unmarshal(msg, &tickers); err != nil {
				log.Printf("invalid ticker message: %v", err)
				continue
			}
			for _, ticker := range tickers {
				if err := rq.tickerMap.Publish(tickersStreamKey, mapTickerEvent(ticker)); err != nil {
					log.Println(err)
				}
			}
			continue
		}
		var event klineEvent
		if err := json.Unmarshal(msg, &event); err != nil {
			log.Printf("invalid stream message: %v", err)
			continue
		}
		// Command confirmations have no event type and are skipped.
		if event.EventType != eventTypeKline {
			continue
		}
		candle := mapKlineEvent(event)
		key := candleStreamKey(event.Symbol, candle.Interval)
		if err := rq.candleMap.Publish(key, candle); err != nil {
			log.Println(err)
		}
	}
}

func (rq *binanceConnector) sendStreamCommand(subscription marketdata.RealtimeSubscription, streamName string) error {
	cmd := realtimeCommand{
		Method: getRealtimeCommandStr(subscription),
		Params: []string{streamName},
		Id:     rq.commandId.Add(1),
	}
	msg, _ := json.Marshal(cmd)
	rq.connMutex.Lock()
	defer rq.connMutex.Unlock()
	return rq.realtimeConn.WriteMessage(websocket.TextMessage, msg)
}

// ensureRealtimeConnection connects on the first subscription, so no
// websocket is opened when realtime data is never used.
func (rq *binanceConnector) ensureRealtimeConnection(ctx context.Context) error {
	rq.connMutex.Lock()
	defer rq.connMutex.Unlock()
	if rq.realtimeConn != nil {
		return nil
	}
	if err := rq.initRealtimeConnection(ctx); err != nil {
		return err
	}
	go rq.handleRealtimeData(rq.realtimeConn)
	return nil
}

func (rq *binanceConnector) SubscribeCandles(ctx context.Context, request <-chan marketdata.SubscribeCandlesRequest, response chan<- marketdata.SubscribeCandlesResponse) {
	defer close(response)
	for entry := range request {
		err := rq.ensureRealtimeConnection(ctx)
		var candleChan chan chartval.Candle
		key := candleStreamKey(entry.Symbol, entry.Interval)
		if err == nil {
			switch entry.Type {
			case marketdata.RealtimeSubscribe:
				candleChan, err = rq.candleMap.Subscribe(key)
			case marketdata.RealtimeUnsubscribe:
				err = rq.candleMap.Unsubscribe(key)
			default:
				panic("unsupported realtime data subscription mode")
			}
		}
		if err == nil {
			err = rq.sendStreamCommand(entry.Type, key)
		}
		response <- marketdata.SubscribeCandlesResponse{
			Symbol:   entry.Symbol,
			Interval: entry.Interval,
			Error:    err,
			Type:     entry.Type,
			Candles:  candleChan,
		}
	}
	rq.closeRealtimeConnection()
}

func (rq *binanceConnector) SubscribeTickers(ctx context.Context, request <-chan marketdata.SubscribeTickersRequest, response chan<- marketdata.SubscribeTickersResponse) {
	defer close(response)
	for entry := range request {
		err := rq.ensureRealtimeConnection(ctx)
		var tickerChan chan marketdata.TickerUpdate
		if err == nil {
			switch entry.Type {
			case marketdata.RealtimeSubscribe:
				tickerChan, err = rq.tickerMap.Subscribe(tickersStreamKey)
			case marketdata.RealtimeUnsubscribe:
				err = rq.tickerMap.Unsubscribe(tickersStreamKey)
			default:
				panic("unsupported realtime data subscription mode")
			}
		}
		if err == nil {
			err = rq.sendStreamCommand(entry.Type, tickersStreamKey)
		}
		response <- marketdata.SubscribeTickersResponse{
			Error:   err,
			Type:    entry.Type,
			Tickers: tickerChan,
		}
	}
}

func (rq *binanceConnector) closeRealtimeConnection() {
	rq.connMutex.Lock()
	defer rq.connMutex.Unlock()
	if rq.realtimeConn != nil {
		rq.realtimeConn.Close()
		rq.realtimeConn = nil
	}
}
