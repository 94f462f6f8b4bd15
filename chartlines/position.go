// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package chartlines

import (
	"fmt"
	"minicharts/chartval"
	"minicharts/widgets"
)

const (
	positionLineId        = "position"
	positionLiquidationId = "liquidation"
)

// PositionPriceLines shows the entry price of the open position and
// the liquidation price reported by the exchange.
type PositionPriceLines struct {
	*Engine
}

func NewPositionPriceLines(theme *widgets.ChartTheme) *PositionPriceLines {
	p := &PositionPriceLines{
		Engine: NewEngine(theme, Config{
			Color:           theme.PositionColor,
			TitleVisibility: TitleVisible,
			NoPointer:       true,
		}),
	}
	p.SetItems([]Item{
		{
			Id:              positionLiquidationId,
			Hidden:          true,
			Title:           "Pos. liquidation",
			TitleVisibility: TitleOnHover,
			Color:           theme.LiquidationColor,
		},
		{Id: positionLineId, Hidden: true},
	})
	return p
}

// UpdatePositionLine rebinds both lines to the given position.
// A nil position hides them.
func (p *PositionPriceLines) UpdatePositionLine(position *chartval.Position, baseAsset string) {
	if position == nil {
		p.UpdateItem(positionLineId, func(item *Item) { item.Hidden = true })
		p.UpdateItem(positionLiquidationId, func(item *Item) { item.Hidden = true })
		return
	}
	p.UpdateItem(positionLineId, func(item *Item) {
		item.Hidden = false
		item.YValue = position.EntryPrice
		item.Title = fmt.Sprintf("%g %s", position.PositionAmt, baseAsset)
		item.Color = p.Theme.GetCandleColor(position.Side == chartval.SideBuy)
	})
	p.UpdateItem(positionLiquidationId, func(item *Item) {
		item.Hidden = position.LiquidationPrice == 0
		item.YValue = position.LiquidationPrice
	})
}
