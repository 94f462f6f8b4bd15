// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package chartlines

import (
	"math"
	"minicharts/chartval"
	"minicharts/widgets"
	"sort"
)

// PriceSize is one fill contributing to a hypothetical position.
type PriceSize struct {
	Price  float64
	Amount float64
}

// LiquidationSizes collects the fills of the given side: the open
// position first, then all open orders of that side.
func LiquidationSizes(side chartval.Side, position *chartval.Position, orders []chartval.Order) []PriceSize {
	var sizes []PriceSize
	if position != nil && position.Side == side && position.PositionAmt != 0 {
		sizes = append(sizes, PriceSize{Price: position.EntryPrice, Amount: math.Abs(position.PositionAmt)})
	}
	for _, order := range orders {
		if order.Side != side {
			continue
		}
		sizes = append(sizes, PriceSize{Price: order.Price, Amount: math.Abs(order.OrigQty)})
	}
	return sizes
}

// EstimateLiquidation predicts the liquidation price of the position
// which results when all given fills execute, using the isolated
// margin formula with the exchange leverage brackets.
//
// Fills execute worst first, buys from the highest price down and
// sells from the lowest price up. Accumulation stops once a fill
// could no longer execute before the liquidation price it implies.
// The second return value is false when there are no fills at all.
// Without bracket data the estimate is 0.
func EstimateLiquidation(side chartval.Side, sizes []PriceSize,
	brackets []chartval.LeverageBracket, leverage float64) (float64, bool) {
	if len(sizes) == 0 {
		return 0, false
	}
	if leverage <= 0 {
		leverage = 1
	}
	direction := side.Sign()
	sorted := append([]PriceSize{}, sizes...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if direction > 0 {
			return sorted[i].Price > sorted[j].Price
		}
		return sorted[i].Price < sorted[j].Price
	})
	if len(brackets) == 0 {
		return 0, true
	}
	var liquidation float64
	var totalAveragePrice, totalAmount, totalMargin float64
	for _, size := range sorted {
		if liquidation != 0 && direction*size.Price <= direction*liquidation {
			break
		}
		weightedTotalPrice := size.Price*size.Amount + totalAveragePrice*totalAmount
		amount := size.Amount + totalAmount
		totalAveragePrice = weightedTotalPrice / amount
		totalMargin += size.Amount * size.Price / leverage
		totalAmount = amount
		positionValue := direction * totalAmount * totalAveragePrice
		bracket := brackets[0]
		for _, b := range brackets {
			if b.NotionalCap > totalAmount*totalAveragePrice {
				bracket = b
				break
			}
		}
		liquidation = (totalMargin + bracket.Cum - positionValue) /
			(totalAmount * (bracket.MaintMarginRatio - direction))
	}
	return liquidation, true
}

// LiquidationPriceLines predicts the liquidation price for each side
// if all open orders of that side were to fill.
type LiquidationPriceLines struct {
	*Engine
	leverage float64
}

func NewLiquidationPriceLines(theme *widgets.ChartTheme) *LiquidationPriceLines {
	l := &LiquidationPriceLines{
		Engine: NewEngine(theme, Config{
			Color:           theme.LiquidationColor,
			TitleVisibility: TitleOnHover,
			LineStyle:       LineStyleDashed,
			NoPointer:       true,
		}),
		leverage: 1,
	}
	l.SetItems([]Item{
		{Id: chartval.SideBuy.String(), Hidden: true, Title: "Buy liquidation"},
		{Id: chartval.SideSell.String(), Hidden: true, Title: "Sell liquidation"},
	})
	return l
}

// UpdateLiquidationLines recomputes both estimates. The leverage of
// the latest order or position update wins.
func (l *LiquidationPriceLines) UpdateLiquidationLines(position *chartval.Position,
	orders []chartval.Order, brackets []chartval.LeverageBracket) {
	if len(orders) > 0 && orders[0].Leverage > 0 {
		l.leverage = orders[0].Leverage
	} else if position != nil && position.Leverage > 0 {
		l.leverage = position.Leverage
	}
	for _, side := range []chartval.Side{chartval.SideBuy, chartval.SideSell} {
		sizes := LiquidationSizes(side, position, orders)
		value, ok := EstimateLiquidation(side, sizes, brackets, l.leverage)
		l.UpdateItem(side.String(), func(item *Item) {
			item.Hidden = !ok
			item.YValue = value
		})
	}
}
