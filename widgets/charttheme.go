// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package widgets

import (
	"image"
	"image/color"

	"gioui.org/layout"
	"gioui.org/unit"
	"golang.org/x/image/colornames"
)

type DpPoint struct {
	X unit.Dp
	Y unit.Dp
}

func (p *DpPoint) Dp(gtx layout.Context) image.Point {
	return image.Point{
		X: gtx.Dp(p.X),
		Y: gtx.Dp(p.Y),
	}
}

func rgb(c color.RGBA) color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: 255}
}

// ChartTheme contains colors and metrics of a single minichart.
type ChartTheme struct {
	AxesMarginMax        DpPoint
	TextMargin           DpPoint
	AxesFontSize         int
	LineLabelFontSize    int
	TitleFontSize        int
	AxesColor            color.NRGBA
	AxesTextColor        color.NRGBA
	GridColor            color.NRGBA
	CandleUpColor        color.NRGBA
	CandleDownColor      color.NRGBA
	CurrentPriceColor    color.NRGBA
	CurrentPriceDashes   []float32
	CrosshairColor       color.NRGBA
	AlertPendingColor    color.NRGBA
	AlertTriggeredColor  color.NRGBA
	OrderColor           color.NRGBA
	StopOrderColor       color.NRGBA
	CanceledOrderColor   color.NRGBA
	PositionColor        color.NRGBA
	LiquidationColor     color.NRGBA
	LineDashes           []float32
	LineLabelTextColor   color.NRGBA
	TitleTextColor       color.NRGBA
	TitleBgColor         color.NRGBA
	SymbolTextColor      color.NRGBA
	PriceUpTextColor     color.NRGBA
	PriceDownTextColor   color.NRGBA
	BackgroundColor      color.NRGBA
	PaddingTopPercent    float64
	PaddingBottomPercent float64
}

func NewDarkChartTheme() *ChartTheme {
	return &ChartTheme{
		AxesMarginMax:        DpPoint{X: 55, Y: 30},
		TextMargin:           DpPoint{X: 4, Y: 4},
		AxesFontSize:         11,
		LineLabelFontSize:    10,
		TitleFontSize:        10,
		AxesColor:            color.NRGBA{R: 150, G: 150, B: 150, A: 255},
		AxesTextColor:        color.NRGBA{R: 200, G: 200, B: 200, A: 255},
		GridColor:            color.NRGBA{R: 60, G: 60, B: 60, A: 255},
		CandleUpColor:        color.NRGBA{R: 0, G: 180, B: 90, A: 255},
		CandleDownColor:      color.NRGBA{R: 220, G: 60, B: 60, A: 255},
		CurrentPriceColor:    rgb(colornames.White),
		CurrentPriceDashes:   []float32{2, 4},
		CrosshairColor:       color.NRGBA{R: 120, G: 120, B: 120, A: 255},
		AlertPendingColor:    rgb(colornames.Orange),
		AlertTriggeredColor:  rgb(colornames.Gray),
		OrderColor:           rgb(colornames.Dodgerblue),
		StopOrderColor:       rgb(colornames.Mediumpurple),
		CanceledOrderColor:   color.NRGBA{R: 128, G: 128, B: 128, A: 204},
		PositionColor:        rgb(colornames.Gold),
		LiquidationColor:     rgb(colornames.Red),
		LineDashes:           []float32{4, 4},
		LineLabelTextColor:   color.NRGBA{R: 0, G: 0, B: 0, A: 255},
		TitleTextColor:       color.NRGBA{R: 230, G: 230, B: 230, A: 255},
		TitleBgColor:         color.NRGBA{R: 40, G: 40, B: 55, A: 255},
		SymbolTextColor:      rgb(colornames.White),
		PriceUpTextColor:     rgb(colornames.Lightgreen),
		PriceDownTextColor:   rgb(colornames.Salmon),
		BackgroundColor:      color.NRGBA{R: 20, G: 20, B: 26, A: 255},
		PaddingTopPercent:    10,
		PaddingBottomPercent: 10,
	}
}

func NewLightChartTheme() *ChartTheme {
	th := NewDarkChartTheme()
	th.AxesColor = color.NRGBA{R: 80, G: 80, B: 80, A: 255}
	th.AxesTextColor = color.NRGBA{R: 40, G: 40, B: 40, A: 255}
	th.GridColor = color.NRGBA{R: 225, G: 225, B: 225, A: 255}
	th.CurrentPriceColor = rgb(colornames.Black)
	th.CrosshairColor = color.NRGBA{R: 160, G: 160, B: 160, A: 255}
	th.TitleTextColor = color.NRGBA{R: 30, G: 30, B: 30, A: 255}
	th.TitleBgColor = color.NRGBA{R: 230, G: 230, B: 240, A: 255}
	th.SymbolTextColor = rgb(colornames.Black)
	th.BackgroundColor = rgb(colornames.White)
	return th
}

// GetCandleColor returns the body color for the given direction.
func (th *ChartTheme) GetCandleColor(isGreenCandle bool) color.NRGBA {
	if isGreenCandle {
		return th.CandleUpColor
	}
	return th.CandleDownColor
}
