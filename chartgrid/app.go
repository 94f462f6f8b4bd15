// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package chartgrid

import (
	"context"
	"log"
	"os"

	"gioui.org/app"
	"gioui.org/io/system"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/paint"
	"gioui.org/unit"
	"github.com/inkeliz/giohyperlink"
)

// Run opens the grid window and blocks until it is closed. Initialize
// must have been called. Gio requires app.Main on the main goroutine,
// so Run is started as a goroutine from main.
func (g *Grid) Run(ctx context.Context) {
	g.window = app.NewWindow(
		app.Title("minicharts"),
		app.Size(unit.Dp(1600), unit.Dp(900)),
	)
	if err := g.handleEvents(); err != nil {
		log.Printf("error: terminating due to window error: %v", err)
	}
	g.terminate()
	os.Exit(0)
}

func (g *Grid) handleEvents() error {
	var ops op.Ops
	for {
		e := g.window.NextEvent()
		giohyperlink.ListenEvents(e)
		switch e := e.(type) {
		case system.DestroyEvent:
			return e.Err
		case system.FrameEvent:
			gtx := layout.NewContext(&ops, e)
			paint.Fill(gtx.Ops, g.chartTheme.BackgroundColor)
			g.layoutGrid(gtx)
			e.Frame(gtx.Ops)
		}
	}
}

func (g *Grid) layoutGrid(gtx layout.Context) layout.Dimensions {
	g.settingsMutex.Lock()
	columns := g.settings.GridColumns
	chartHeight := g.settings.ChartHeightPx
	g.settingsMutex.Unlock()
	if columns < 1 {
		columns = 1
	}
	views := g.sortedViews()
	rowCount := (len(views) + columns - 1) / columns

	dims := g.rowList.Layout(gtx, rowCount, func(gtx layout.Context, row int) layout.Dimensions {
		return g.layoutRow(gtx, views, row, columns, chartHeight)
	})

	if g.connector.RemainingApiLimit() < 1 {
		g.messageField.Layout("Exchange rate limit reached, updates are paused.", gtx, g.materialTheme)
	}
	return dims
}

func (g *Grid) layoutRow(gtx layout.Context, views []*MinichartView, row int, columns int, chartHeight int) layout.Dimensions {
	children := make([]layout.FlexChild, 0, columns)
	for col := 0; col < columns; col++ {
		index := row*columns + col
		if index < len(views) {
			view := views[index]
			children = append(children, layout.Flexed(1/float32(columns), func(gtx layout.Context) layout.Dimensions {
				return view.Layout(gtx, g.materialTheme, g.chartTheme, gtx.Dp(unit.Dp(chartHeight)))
			}))
		} else {
			children = append(children, layout.Flexed(1/float32(columns), layout.Spacer{}.Layout))
		}
	}
	return layout.Flex{Axis: layout.Horizontal}.Layout(gtx, children...)
}

// terminate stops the market data workers and flushes the
// configuration.
func (g *Grid) terminate() {
	close(g.symbolsRequestChan)
	close(g.candlesRequestChan)
	close(g.subscribeCandlesRequestChan)
	close(g.subscribeTickersRequestChan)
	g.saveConfiguration()
}

func (g *Grid) saveConfiguration() {
	appConfig, err := g.config.Lock()
	if err != nil {
		log.Printf("error: unable to lock configuration: %v", err)
		return
	}
	appConfig.Sanitize()
	if err = g.config.Unlock(appConfig); err != nil {
		log.Printf("error: unable to save configuration: %v", err)
	}
}
