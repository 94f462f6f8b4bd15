// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package chartlines

import (
	"minicharts/chartval"
	"minicharts/widgets"
	"testing"

	"github.com/stretchr/testify/assert"
)

func testBrackets() []chartval.LeverageBracket {
	return []chartval.LeverageBracket{
		{Bracket: 1, InitialLeverage: 125, NotionalCap: 50000, MaintMarginRatio: 0.004, Cum: 0},
		{Bracket: 2, InitialLeverage: 100, NotionalCap: 250000, MaintMarginRatio: 0.005, Cum: 50},
	}
}

func singleBracket(maintMarginRatio float64) []chartval.LeverageBracket {
	return []chartval.LeverageBracket{
		{Bracket: 1, InitialLeverage: 125, NotionalCap: 1e12, MaintMarginRatio: maintMarginRatio},
	}
}

func TestLiquidationSizes(t *testing.T) {
	position := &chartval.Position{Side: chartval.SideBuy, EntryPrice: 100, PositionAmt: -2}
	orders := []chartval.Order{
		{Side: chartval.SideBuy, Price: 95, OrigQty: 1},
		{Side: chartval.SideSell, Price: 120, OrigQty: 1},
		{Side: chartval.SideBuy, Price: 90, OrigQty: 3},
	}
	sizes := LiquidationSizes(chartval.SideBuy, position, orders)
	// The position comes first, amounts are absolute values.
	assert.Equal(t, []PriceSize{{100, 2}, {95, 1}, {90, 3}}, sizes)

	sizes = LiquidationSizes(chartval.SideSell, position, orders)
	assert.Equal(t, []PriceSize{{120, 1}}, sizes)

	assert.Empty(t, LiquidationSizes(chartval.SideSell, nil, nil))
}

func TestEstimateLiquidationEmpty(t *testing.T) {
	_, ok := EstimateLiquidation(chartval.SideBuy, nil, testBrackets(), 10)
	assert.False(t, ok)
}

func TestEstimateLiquidationNoBrackets(t *testing.T) {
	value, ok := EstimateLiquidation(chartval.SideBuy, []PriceSize{{100, 1}}, nil, 10)
	assert.True(t, ok)
	assert.Zero(t, value)
}

func TestEstimateLiquidationSingleFill(t *testing.T) {
	// One long fill: liq = p * (1/L - 1) / (m - 1).
	value, ok := EstimateLiquidation(chartval.SideBuy,
		[]PriceSize{{100, 1}}, singleBracket(0.01), 10)
	assert.True(t, ok)
	assert.InDelta(t, 100*(0.1-1)/(0.01-1), value, 0.0001)
	assert.Less(t, value, 100.0)

	// One short fill: liq = p * (1/L + 1) / (m + 1).
	value, ok = EstimateLiquidation(chartval.SideSell,
		[]PriceSize{{100, 1}}, singleBracket(0.01), 10)
	assert.True(t, ok)
	assert.InDelta(t, 100*(0.1+1)/(0.01+1), value, 0.0001)
	assert.Greater(t, value, 100.0)
}

func TestEstimateLiquidationAccumulatesWorstFirst(t *testing.T) {
	// Both fills execute, the highest buy first.
	value, ok := EstimateLiquidation(chartval.SideBuy,
		[]PriceSize{{105, 1}, {110, 1}}, singleBracket(0.01), 10)
	assert.True(t, ok)
	// After the 110 fill: margin 11, liq (11-110)/-0.99 = 100.
	// After the 105 fill: avg 107.5, margin 21.5, liq (21.5-215)/-1.98.
	assert.InDelta(t, 97.727272, value, 0.0001)
}

func TestEstimateLiquidationStopsAtUnreachableFill(t *testing.T) {
	// The 100 order sits exactly on the liquidation price implied by
	// the first fill and can never execute.
	value, ok := EstimateLiquidation(chartval.SideBuy,
		[]PriceSize{{100, 1}, {110, 1}}, singleBracket(0.01), 10)
	assert.True(t, ok)
	assert.InDelta(t, 100, value, 0.0001)
}

func TestEstimateLiquidationLeverage(t *testing.T) {
	// Lower leverage moves the long liquidation further away.
	low, _ := EstimateLiquidation(chartval.SideBuy,
		[]PriceSize{{100, 1}}, singleBracket(0.01), 5)
	high, _ := EstimateLiquidation(chartval.SideBuy,
		[]PriceSize{{100, 1}}, singleBracket(0.01), 50)
	assert.Less(t, low, high)
}

func TestEstimateLiquidationBracketSelection(t *testing.T) {
	// A large notional falls into the second bracket with its higher
	// maintenance margin ratio and cum offset.
	small, _ := EstimateLiquidation(chartval.SideBuy,
		[]PriceSize{{100, 1}}, testBrackets(), 10)
	large, _ := EstimateLiquidation(chartval.SideBuy,
		[]PriceSize{{100, 1000}}, testBrackets(), 10)
	assert.NotEqual(t, small, large)
	assert.Less(t, small, 100.0)
}

func TestLiquidationPriceLines(t *testing.T) {
	l := NewLiquidationPriceLines(widgets.NewDarkChartTheme())
	buyLine := l.find(chartval.SideBuy.String())
	sellLine := l.find(chartval.SideSell.String())
	assert.True(t, buyLine.Hidden)
	assert.True(t, sellLine.Hidden)

	orders := []chartval.Order{
		{Side: chartval.SideBuy, Price: 100, OrigQty: 1, Leverage: 10},
	}
	l.UpdateLiquidationLines(nil, orders, singleBracket(0.01))
	assert.False(t, buyLine.Hidden)
	assert.InDelta(t, 100*(0.1-1)/(0.01-1), buyLine.YValue, 0.0001)
	// No sell side fills, the sell line stays hidden.
	assert.True(t, sellLine.Hidden)

	l.UpdateLiquidationLines(nil, nil, singleBracket(0.01))
	assert.True(t, buyLine.Hidden)
}
