// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package chartlines

import (
	"fmt"
	"minicharts/chartval"
	"minicharts/widgets"
	"strings"
)

// OrderPriceLines shows one line per open order, plus an extra line
// for the stop price of stop and take profit orders.
type OrderPriceLines struct {
	*Engine
	// forcedPrices pins a line to a price the user dragged it to
	// while the exchange has not yet confirmed the modification.
	forcedPrices map[string]float64
}

func NewOrderPriceLines(theme *widgets.ChartTheme) *OrderPriceLines {
	return &OrderPriceLines{
		Engine: NewEngine(theme, Config{
			Color:           theme.OrderColor,
			TitleVisibility: TitleOnHover,
			NoPointer:       true,
		}),
		forcedPrices: make(map[string]float64),
	}
}

// SetForcedPrice pins the order line until the next confirmed update.
func (o *OrderPriceLines) SetForcedPrice(clientOrderId string, price float64) {
	o.forcedPrices[clientOrderId] = price
}

func (o *OrderPriceLines) ClearForcedPrice(clientOrderId string) {
	delete(o.forcedPrices, clientOrderId)
}

// UpdateOrderLines rebuilds the lines from the open order list.
func (o *OrderPriceLines) UpdateOrderLines(orders []chartval.Order) {
	items := make([]Item, 0, len(orders))
	for _, order := range orders {
		price := order.Price
		if forced, ok := o.forcedPrices[order.ClientOrderId]; ok {
			price = forced
		}
		item := Item{
			Id:     order.ClientOrderId,
			YValue: price,
			Title:  orderTitle(order),
			Color:  o.Theme.GetCandleColor(order.Side == chartval.SideBuy),
		}
		// Canceled orders stay visible until the exchange drops them,
		// dimmed and without pointer interaction.
		if order.IsCanceled {
			item.Color = o.Theme.CanceledOrderColor
			item.NoPointer = true
		}
		items = append(items, item)
	}
	for _, order := range orders {
		if order.StopPrice == 0 {
			continue
		}
		item := Item{
			Id:     order.ClientOrderId + "_stop",
			YValue: order.StopPrice,
			Title:  "Stop price",
			Color:  o.Theme.StopOrderColor,
		}
		if order.IsCanceled {
			item.Color = o.Theme.CanceledOrderColor
			item.NoPointer = true
		}
		items = append(items, item)
	}
	o.SetItems(items)
}

func orderTitle(order chartval.Order) string {
	remaining := order.OrigQty - order.ExecutedQty
	baseAsset := strings.TrimSuffix(order.Symbol, "USDT")
	return fmt.Sprintf("Limit %g %s", remaining, baseAsset)
}
