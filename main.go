// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package main

import (
	"context"
	"log"

	"minicharts/chartconfig"
	"minicharts/chartgrid"
	"minicharts/marketdata/binance"

	"gioui.org/app"
)

func main() {
	config := chartconfig.NewGlobalConfig()
	connector := binance.NewConnector()
	grid := chartgrid.NewGrid(config, connector)
	ctx := context.Background()
	if err := grid.Initialize(ctx); err != nil {
		log.Fatalf("initialization failed: %v", err)
	}
	// The Gio main loop needs the main goroutine.
	go grid.Run(ctx)
	app.Main()
}
