// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package chartlines

import (
	"image"
	"minicharts/chartplot"
	"minicharts/chartval"
	"minicharts/widgets"
	"time"

	"gioui.org/f32"
	"gioui.org/layout"
	"gioui.org/widget/material"
)

// LineSet bundles all price line overlays of one chart and routes
// pointer events to them.
type LineSet struct {
	Liquidation *LiquidationPriceLines
	Positions   *PositionPriceLines
	Orders      *OrderPriceLines
	Current     *CurrentPriceLines
	Alerts      *AlertPriceLines
	Crosshair   *CrosshairPriceLines
}

func NewLineSet(theme *widgets.ChartTheme,
	onAlertUpdate func([]chartval.AlertItem),
	onAlertTrigger func(alertType chartval.AlertType, price float64)) *LineSet {
	return &LineSet{
		Liquidation: NewLiquidationPriceLines(theme),
		Positions:   NewPositionPriceLines(theme),
		Orders:      NewOrderPriceLines(theme),
		Current:     NewCurrentPriceLines(theme),
		Alerts:      NewAlertPriceLines(theme, onAlertUpdate, onAlertTrigger),
		Crosshair:   NewCrosshairPriceLines(theme),
	}
}

func (s *LineSet) SetPricePrecision(p int) {
	s.Liquidation.SetPricePrecision(p)
	s.Positions.SetPricePrecision(p)
	s.Orders.SetPricePrecision(p)
	s.Current.SetPricePrecision(p)
	s.Alerts.SetPricePrecision(p)
	s.Crosshair.SetPricePrecision(p)
}

// UpdatePrice feeds a traded price to the current price line and the
// alert engine.
func (s *LineSet) UpdatePrice(price float64, now time.Time) {
	s.Current.UpdatePrice(price)
	s.Alerts.CheckPrice(price, now)
}

// Draw paints back to front, the crosshair on top.
func (s *LineSet) Draw(gtx layout.Context, th *material.Theme, m *chartplot.ScaleModel, clipRect image.Rectangle) {
	s.Liquidation.Engine.Draw(gtx, th, m, clipRect)
	s.Positions.Engine.Draw(gtx, th, m, clipRect)
	s.Orders.Engine.Draw(gtx, th, m, clipRect)
	s.Current.Engine.Draw(gtx, th, m, clipRect)
	s.Alerts.Draw(gtx, th, m, clipRect)
	s.Crosshair.Engine.Draw(gtx, th, m, clipRect)
}

func (s *LineSet) HandleHover(pos f32.Point, m *chartplot.ScaleModel) {
	s.Crosshair.Show(pos, m)
	s.Alerts.HandleHover(pos, m)
	s.Positions.Engine.HandleHover(pos, m)
	s.Orders.Engine.HandleHover(pos, m)
	s.Liquidation.Engine.HandleHover(pos, m)
}

// HandleLeave hides the crosshair when the pointer leaves the plot.
func (s *LineSet) HandleLeave() {
	s.Crosshair.Hide()
}

// HandlePress reports whether a line consumed the press. Only alert
// lines are interactive, the other overlays ignore the pointer.
func (s *LineSet) HandlePress(pos f32.Point, m *chartplot.ScaleModel) bool {
	return s.Alerts.HandlePress(pos, m)
}

func (s *LineSet) HandleDrag(pos f32.Point, m *chartplot.ScaleModel) {
	s.Alerts.HandleDrag(pos, m)
}

func (s *LineSet) HandleRelease(pos f32.Point, m *chartplot.ScaleModel) {
	s.Alerts.HandleRelease(pos, m)
}
