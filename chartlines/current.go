// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package chartlines

import "minicharts/widgets"

const currentPriceId = "lastPrice"

// CurrentPriceLines tracks the most recent traded price with a single
// dotted line.
type CurrentPriceLines struct {
	*Engine
	lastPrice float64
}

func NewCurrentPriceLines(theme *widgets.ChartTheme) *CurrentPriceLines {
	c := &CurrentPriceLines{
		Engine: NewEngine(theme, Config{
			Color:     theme.CurrentPriceColor,
			LineStyle: LineStyleDotted,
			NoPointer: true,
		}),
	}
	c.SetItems([]Item{{Id: currentPriceId, Hidden: true}})
	return c
}

// UpdatePrice moves the line. Unchanged prices are ignored so the
// retained item is not rewritten on every ticker event.
func (c *CurrentPriceLines) UpdatePrice(price float64) {
	if price == c.lastPrice {
		return
	}
	c.lastPrice = price
	c.UpdateItem(currentPriceId, func(item *Item) {
		item.Hidden = price == 0
		item.YValue = price
	})
}
