// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package chartgrid

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"minicharts/chartconfig"
	"minicharts/chartval"
	"minicharts/marketdata"
	"minicharts/widgets"

	"gioui.org/app"
	"gioui.org/layout"
	"gioui.org/widget/material"
	"github.com/zhangyunhao116/skipmap"
	"golang.org/x/exp/maps"
)

const periodicUpdateInterval = 20 * time.Second

// Grid owns all minichart views, the market data plumbing and the
// sorted render order.
type Grid struct {
	config    chartconfig.Config
	connector marketdata.MarketConnector

	window        *app.Window
	materialTheme *material.Theme
	chartTheme    *widgets.ChartTheme
	rowList       layout.List
	messageField  *widgets.MessageField

	viewMap   *skipmap.StringMap[*MinichartView]
	viewMutex sync.Mutex
	views     []*MinichartView

	settingsMutex sync.Mutex
	settings      chartconfig.AppConfig

	tradingMutex sync.Mutex
	positions    map[string]*chartval.Position
	orders       map[string][]chartval.Order
	brackets     map[string][]chartval.LeverageBracket

	lastInvalidate atomic.Int64

	ctx context.Context

	symbolsRequestChan           chan marketdata.SymbolsRequest
	symbolsResponseChan          chan marketdata.SymbolsResponse
	candlesRequestChan           chan marketdata.CandlesRequest
	candlesResponseChan          chan marketdata.CandlesResponse
	subscribeCandlesRequestChan  chan marketdata.SubscribeCandlesRequest
	subscribeCandlesResponseChan chan marketdata.SubscribeCandlesResponse
	subscribeTickersRequestChan  chan marketdata.SubscribeTickersRequest
	subscribeTickersResponseChan chan marketdata.SubscribeTickersResponse
}

func NewGrid(config chartconfig.Config, connector marketdata.MarketConnector) *Grid {
	return &Grid{
		config:       config,
		connector:    connector,
		rowList:      layout.List{Axis: layout.Vertical},
		messageField: widgets.NewMessageField(),
		viewMap:      skipmap.NewString[*MinichartView](),
		positions: make(map[string]*chartval.Position),
		orders:    make(map[string][]chartval.Order),
		brackets:  make(map[string][]chartval.LeverageBracket),
	}
}

// Initialize reads the configuration, connects the market data workers
// and requests the symbol list. Must be called before Run.
func (g *Grid) Initialize(ctx context.Context) error {
	g.ctx = ctx
	settings, err := g.config.Copy()
	if err != nil {
		return fmt.Errorf("unable to read configuration: %w", err)
	}
	g.settings = settings
	if settings.LightTheme {
		g.materialTheme = widgets.NewLightMaterialTheme()
		g.chartTheme = widgets.NewLightChartTheme()
	} else {
		g.materialTheme = widgets.NewDarkMaterialTheme()
		g.chartTheme = widgets.NewDarkChartTheme()
	}
	if err = g.connector.ReadConfig(g.config); err != nil {
		return fmt.Errorf("unable to configure market data connector: %w", err)
	}

	g.symbolsRequestChan = make(chan marketdata.SymbolsRequest)
	g.symbolsResponseChan = make(chan marketdata.SymbolsResponse)
	g.candlesRequestChan = make(chan marketdata.CandlesRequest)
	g.candlesResponseChan = make(chan marketdata.CandlesResponse)
	g.subscribeCandlesRequestChan = make(chan marketdata.SubscribeCandlesRequest)
	g.subscribeCandlesResponseChan = make(chan marketdata.SubscribeCandlesResponse)
	g.subscribeTickersRequestChan = make(chan marketdata.SubscribeTickersRequest)
	g.subscribeTickersResponseChan = make(chan marketdata.SubscribeTickersResponse)

	go g.connector.QuerySymbols(ctx, g.symbolsRequestChan, g.symbolsResponseChan)
	go g.connector.QueryCandles(ctx, g.candlesRequestChan, g.candlesResponseChan)
	go g.connector.SubscribeCandles(ctx, g.subscribeCandlesRequestChan, g.subscribeCandlesResponseChan)
	go g.connector.SubscribeTickers(ctx, g.subscribeTickersRequestChan, g.subscribeTickersResponseChan)

	go g.handleSymbolsResponses(ctx)
	go g.handleCandlesResponses(ctx)
	go g.handleSubscribeCandlesResponses(ctx)
	go g.handleSubscribeTickersResponses(ctx)
	go g.handlePeriodicUpdate(ctx)

	g.symbolsRequestChan <- marketdata.SymbolsRequest{RequestId: "startup"}
	g.subscribeTickersRequestChan <- marketdata.SubscribeTickersRequest{Type: marketdata.RealtimeSubscribe}
	return nil
}

// Invalidate schedules a redraw, rate limited by the configured
// throttle delay. Implements UiUpdater.
func (g *Grid) Invalidate() {
	if g.window == nil {
		return
	}
	g.settingsMutex.Lock()
	delay := int64(g.settings.ThrottleDelayMs)
	g.settingsMutex.Unlock()
	now := time.Now().UnixMilli()
	last := g.lastInvalidate.Load()
	if now-last < delay {
		return
	}
	if g.lastInvalidate.CompareAndSwap(last, now) {
		g.window.Invalidate()
	}
}

// invalidateNow bypasses the throttle, used for sparse events such as
// triggered alerts.
func (g *Grid) invalidateNow() {
	if g.window != nil {
		g.lastInvalidate.Store(time.Now().UnixMilli())
		g.window.Invalidate()
	}
}

func (g *Grid) handleSymbolsResponses(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case resp, ok := <-g.symbolsResponseChan:
			if !ok {
				return
			}
			if resp.Error != nil {
				log.Printf("error: symbol query failed: %v", resp.Error)
				continue
			}
			g.createViews(resp.Symbols)
		}
	}
}

func (g *Grid) createViews(symbols []chartval.SymbolInfo) {
	g.settingsMutex.Lock()
	settings := g.settings
	g.settingsMutex.Unlock()

	for _, symbol := range symbols {
		if _, exists := g.viewMap.Load(symbol.Symbol); exists {
			continue
		}
		view := g.newView(symbol, settings)
		g.viewMap.Store(symbol.Symbol, view)
		g.viewMutex.Lock()
		g.views = append(g.views, view)
		g.viewMutex.Unlock()

		g.candlesRequestChan <- marketdata.CandlesRequest{
			Symbol:   symbol.Symbol,
			Interval: settings.Interval,
			Limit:    settings.CandlesLimit,
		}
		g.subscribeCandlesRequestChan <- marketdata.SubscribeCandlesRequest{
			Symbol:   symbol.Symbol,
			Interval: settings.Interval,
			Type:     marketdata.RealtimeSubscribe,
		}
	}
	g.pruneSymbolAlerts(symbols)
	g.sortViews()
	g.Invalidate()
}

func (g *Grid) newView(symbol chartval.SymbolInfo, settings chartconfig.AppConfig) *MinichartView {
	symbolName := symbol.Symbol
	view := NewMinichartView(symbol, g.chartTheme, g,
		func(alerts []chartval.AlertItem) {
			g.saveSymbolAlerts(symbolName, alerts)
		},
		func(alertType chartval.AlertType, price float64) {
			g.appendAlertLog(chartval.AlertLogItem{
				Type:   alertType,
				Symbol: symbolName,
				Price:  price,
				Time:   time.Now(),
			})
		},
		func(symbol string, price float64, volume float64, t time.Time) {
			g.appendAlertLog(chartval.AlertLogItem{
				Type:   chartval.AlertVolumeAnomaly,
				Symbol: symbol,
				Price:  price,
				Volume: volume,
				Time:   t,
			})
		})
	view.SetChartType(settings.ChartType)
	view.SetScaleType(settings.ScaleType)
	view.SetAnomalySettings(settings.AnomalyVolumeRatio, settings.AnomalyWindowSize)
	if alerts, ok := settings.SymbolAlerts[symbolName]; ok {
		view.Lines().Alerts.UpdateAlerts(alerts)
	}
	view.Start(g.ctx)
	return view
}

// pruneSymbolAlerts drops persisted alerts of symbols which are no
// longer listed on the exchange.
func (g *Grid) pruneSymbolAlerts(symbols []chartval.SymbolInfo) {
	listed := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		listed[s.Symbol] = struct{}{}
	}
	appConfig, err := g.config.Lock()
	if err != nil {
		log.Printf("error: unable to lock configuration: %v", err)
		return
	}
	for _, symbol := range maps.Keys(appConfig.SymbolAlerts) {
		if _, ok := listed[symbol]; !ok {
			delete(appConfig.SymbolAlerts, symbol)
		}
	}
	if err = g.config.Unlock(appConfig); err != nil {
		log.Printf("error: unable to update configuration: %v", err)
	}
}

func (g *Grid) saveSymbolAlerts(symbol string, alerts []chartval.AlertItem) {
	appConfig, err := g.config.Lock()
	if err != nil {
		log.Printf("error: unable to lock configuration: %v", err)
		return
	}
	if appConfig.SymbolAlerts == nil {
		appConfig.SymbolAlerts = make(map[string][]chartval.AlertItem)
	}
	if len(alerts) > 0 {
		appConfig.SymbolAlerts[symbol] = alerts
	} else {
		delete(appConfig.SymbolAlerts, symbol)
	}
	if err = g.config.Unlock(appConfig); err != nil {
		log.Printf("error: unable to update configuration: %v", err)
	}
}

func (g *Grid) appendAlertLog(item chartval.AlertLogItem) {
	appConfig, err := g.config.Lock()
	if err != nil {
		log.Printf("error: unable to lock configuration: %v", err)
		return
	}
	appConfig.AppendAlertLog(item)
	if err = g.config.Unlock(appConfig); err != nil {
		log.Printf("error: unable to update configuration: %v", err)
	}
	log.Printf("alert: %s %s at %v", item.Type, item.Symbol, item.Price)
	g.invalidateNow()
}

func (g *Grid) handleCandlesResponses(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case resp, ok := <-g.candlesResponseChan:
			if !ok {
				return
			}
			if resp.Error != nil {
				log.Printf("error: candle query for %s failed: %v", resp.Symbol, resp.Error)
				continue
			}
			if view, ok := g.viewMap.Load(resp.Symbol); ok {
				g.settingsMutex.Lock()
				limit := g.settings.CandlesLimit
				g.settingsMutex.Unlock()
				view.SetCandles(resp.Candles, limit)
				g.Invalidate()
			}
		}
	}
}

func (g *Grid) handleSubscribeCandlesResponses(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case resp, ok := <-g.subscribeCandlesResponseChan:
			if !ok {
				return
			}
			if resp.Error != nil {
				log.Printf("error: candle subscription for %s failed: %v", resp.Symbol, resp.Error)
				continue
			}
			if resp.Type != marketdata.RealtimeSubscribe {
				continue
			}
			if view, ok := g.viewMap.Load(resp.Symbol); ok {
				view.SetRealtimeCandlesChan(resp.Candles)
			}
		}
	}
}

func (g *Grid) handleSubscribeTickersResponses(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case resp, ok := <-g.subscribeTickersResponseChan:
			if !ok {
				return
			}
			if resp.Error != nil {
				log.Printf("error: ticker subscription failed: %v", resp.Error)
				continue
			}
			if resp.Type == marketdata.RealtimeSubscribe {
				go g.handleTickerStream(resp.Tickers)
			}
		}
	}
}

func (g *Grid) handleTickerStream(tickerChan <-chan marketdata.TickerUpdate) {
	for update := range tickerChan {
		if view, ok := g.viewMap.Load(update.Symbol); ok {
			view.HandleTicker(update)
			g.Invalidate()
		}
	}
}

// handlePeriodicUpdate keeps the volume based sort orders fresh.
func (g *Grid) handlePeriodicUpdate(ctx context.Context) {
	ticker := time.NewTicker(periodicUpdateInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.settingsMutex.Lock()
			sortBy := g.settings.SortBy
			g.settingsMutex.Unlock()
			if sortBy != chartval.SortAlphabetically {
				g.sortViews()
				g.Invalidate()
			}
		}
	}
}

// SetTradingData updates position, order and leverage bracket state of
// one symbol and refreshes the affected overlay lines. Symbols with an
// open position are pinned to the top of the grid.
func (g *Grid) SetTradingData(symbol string, position *chartval.Position,
	orders []chartval.Order, brackets []chartval.LeverageBracket) {
	g.tradingMutex.Lock()
	if position != nil {
		g.positions[symbol] = position
	} else {
		delete(g.positions, symbol)
	}
	g.orders[symbol] = orders
	g.brackets[symbol] = brackets
	g.tradingMutex.Unlock()

	if view, ok := g.viewMap.Load(symbol); ok {
		lines := view.Lines()
		lines.Positions.UpdatePositionLine(position, view.Symbol.BaseAsset)
		lines.Orders.UpdateOrderLines(orders)
		lines.Liquidation.UpdateLiquidationLines(position, orders, brackets)
	}
	g.sortViews()
	g.invalidateNow()
}

func (g *Grid) pinnedSymbols() map[string]struct{} {
	g.tradingMutex.Lock()
	defer g.tradingMutex.Unlock()
	pinned := make(map[string]struct{}, len(g.positions))
	for symbol := range g.positions {
		pinned[symbol] = struct{}{}
	}
	return pinned
}

// sortViews orders the grid by the configured mode. Symbols with an
// open position always come first.
func (g *Grid) sortViews() {
	g.settingsMutex.Lock()
	sortBy := g.settings.SortBy
	descending := g.settings.SortDescending
	g.settingsMutex.Unlock()
	pinned := g.pinnedSymbols()

	g.viewMutex.Lock()
	defer g.viewMutex.Unlock()
	sort.SliceStable(g.views, func(i, j int) bool {
		_, pi := pinned[g.views[i].Symbol.Symbol]
		_, pj := pinned[g.views[j].Symbol.Symbol]
		if pi != pj {
			return pi
		}
		switch sortBy {
		case chartval.SortByVolume:
			a, b := g.views[i].QuoteVolume(), g.views[j].QuoteVolume()
			if descending {
				return a > b
			}
			return a < b
		case chartval.SortByVolumeChange:
			a, b := g.views[i].VolumeChange(), g.views[j].VolumeChange()
			if descending {
				return a > b
			}
			return a < b
		default:
			a, b := g.views[i].Symbol.Symbol, g.views[j].Symbol.Symbol
			if descending {
				return a > b
			}
			return a < b
		}
	})
}

// sortedViews returns a snapshot of the current render order.
func (g *Grid) sortedViews() []*MinichartView {
	g.viewMutex.Lock()
	defer g.viewMutex.Unlock()
	return append([]*MinichartView(nil), g.views...)
}
