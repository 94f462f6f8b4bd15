// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package cache

import (
	"context"
	"encoding/json"
	"log"
	"minicharts/chartconfig"
	"minicharts/chartval"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/lotodore/localcache"
)

const cacheKeySymbols = "symbols"

// SymbolCache provides the tradable symbol list, loading it from the
// exchange only when the cached copy is missing or outdated.
type SymbolCache interface {
	GetSymbolList(ctx context.Context, req func(ctx context.Context) ([]chartval.SymbolInfo, error)) []chartval.SymbolInfo
}

type localSymbolCache struct {
	connector chartconfig.ConnectorId
	data      *localcache.Cache
	initLock  sync.Mutex
}

func NewLocalSymbolCache(connector chartconfig.ConnectorId) SymbolCache {
	c := localSymbolCache{
		connector: connector,
	}
	var err error
	c.data, err = localcache.New(filepath.Join(chartconfig.AppName, string(connector)))
	if err != nil {
		log.Fatalf("error initializing symbol cache: %v", err)
	}
	return &c
}

func (c *localSymbolCache) GetSymbolList(ctx context.Context, req func(ctx context.Context) ([]chartval.SymbolInfo, error)) []chartval.SymbolInfo {
	// Listed futures contracts rarely change, cache them for some hours.
	err := c.data.PurgeKey(cacheKeySymbols, time.Hour*12)
	if err != nil {
		log.Printf("error purging cache %s, symbol data may be outdated", cacheKeySymbols)
	}
	symbols := c.readSymbolsFromCache()
	if symbols == nil {
		symbols, err = c.initSymbolCache(ctx, req)
		if err != nil {
			log.Printf("error requesting futures symbols: %v", err)
		}
	}
	if symbols == nil {
		log.Printf("error loading %s symbols, the chart grid will be empty", c.connector)
		symbols = make([]chartval.SymbolInfo, 0)
	}
	return symbols
}

func (c *localSymbolCache) readSymbolsFromCache() []chartval.SymbolInfo {
	rawSymbols, err := c.data.ReadFile(cacheKeySymbols)
	if err == nil {
		var symbols []chartval.SymbolInfo
		err := json.Unmarshal(rawSymbols, &symbols)
		if err == nil {
			return symbols
		}
		log.Printf("%s symbol cache contains invalid data", c.connector)
		err = c.data.Remove(cacheKeySymbols)
		if err != nil {
			log.Printf("error deleting cache %s, symbol data may be invalid", cacheKeySymbols)
		}
	}
	return nil
}

func (c *localSymbolCache) initSymbolCache(ctx context.Context, req func(ctx context.Context) ([]chartval.SymbolInfo, error)) ([]chartval.SymbolInfo, error) {
	c.initLock.Lock()
	defer c.initLock.Unlock()
	// retry reading cache within lock, to avoid requesting the data twice.
	cachedSymbols := c.readSymbolsFromCache()
	if cachedSymbols != nil {
		return cachedSymbols, nil
	}
	log.Printf("requesting %s futures symbols...", c.connector)
	symbols, err := req(ctx)
	if err != nil {
		return nil, err
	}
	sort.Sort(chartval.SymbolInfoList(symbols))
	symbolsText, err := json.Marshal(&symbols)
	if err != nil {
		return nil, err
	}
	err = c.data.WriteFile(cacheKeySymbols, symbolsText)
	if err != nil {
		return nil, err
	}
	return symbols, nil
}
