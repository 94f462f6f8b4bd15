// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package chartlines

import (
	"minicharts/chartplot"
	"minicharts/widgets"

	"gioui.org/f32"
)

const crosshairId = "crosshair"

// CrosshairPriceLines paints a dotted horizontal and vertical line at
// the pointer position.
type CrosshairPriceLines struct {
	*Engine
}

func NewCrosshairPriceLines(theme *widgets.ChartTheme) *CrosshairPriceLines {
	c := &CrosshairPriceLines{
		Engine: NewEngine(theme, Config{
			Color:     theme.CrosshairColor,
			ShowX:     true,
			LineStyle: LineStyleDotted,
			NoPointer: true,
		}),
	}
	c.SetItems([]Item{{Id: crosshairId, Hidden: true}})
	return c
}

// Show moves the crosshair to the given plot position.
func (c *CrosshairPriceLines) Show(pos f32.Point, m *chartplot.ScaleModel) {
	c.UpdateItem(crosshairId, func(item *Item) {
		item.Hidden = false
		item.XValue = m.ScaledX().Invert(float64(pos.X))
		item.YValue = m.Y().Invert(float64(pos.Y))
	})
}

// Hide removes the crosshair, e.g. when the pointer leaves the plot.
func (c *CrosshairPriceLines) Hide() {
	c.UpdateItem(crosshairId, func(item *Item) {
		item.Hidden = true
	})
}
