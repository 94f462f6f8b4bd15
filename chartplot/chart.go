// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package chartplot

import (
	"image"
	"math"
	"minicharts/chartval"
	"minicharts/widgets"
	"time"

	"gioui.org/f32"
	"gioui.org/io/key"
	"gioui.org/io/pointer"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/widget/material"
)

// LineLayer paints price line overlays and receives pointer events of
// the plot area. Implemented by the chartlines package.
type LineLayer interface {
	Draw(gtx layout.Context, th *material.Theme, m *ScaleModel, clipRect image.Rectangle)
	HandleHover(pos f32.Point, m *ScaleModel)
	HandleLeave()
	HandlePress(pos f32.Point, m *ScaleModel) bool
	HandleDrag(pos f32.Point, m *ScaleModel)
	HandleRelease(pos f32.Point, m *ScaleModel)
}

type chartTag struct {
	c *ChartController
}

const resizeDebounce = 500 * time.Millisecond

// ChartController combines scales, plot, axes, grid and line overlays
// of a single chart and handles zooming and panning.
type ChartController struct {
	Theme *widgets.ChartTheme
	Lines LineLayer
	// OnRightClick is invoked with the price at the pointer position.
	OnRightClick func(price float64)

	model       *ScaleModel
	plot        *PlotRenderer
	axes        *AxesRenderer
	grid        *GridRenderer
	transformer *Transformer
	chartType   chartval.ChartType
	candles     []chartval.Candle
	interval    chartval.CandleInterval
	symbol      string

	requestedType chartval.ChartType
	requestedLen  int

	pointerPressPos  f32.Point
	draggingLine     bool
	hasInitialScroll bool

	curSize        image.Point
	pendingSize    image.Point
	resizeDeadline time.Time
}

func NewChartController(theme *widgets.ChartTheme, transformer *Transformer) *ChartController {
	return &ChartController{
		Theme:       theme,
		model:       NewScaleModel(),
		plot:        NewPlotRenderer(theme),
		axes:        NewAxesRenderer(theme),
		grid:        NewGridRenderer(theme),
		transformer: transformer,
	}
}

func (c *ChartController) Model() *ScaleModel {
	return c.model
}

// SetCandles replaces the chart data. Interval or symbol switches
// reset the zoom transform.
func (c *ChartController) SetCandles(candles []chartval.Candle) {
	if len(candles) > 0 {
		if candles[0].Symbol != c.symbol || candles[0].Interval != c.interval {
			c.symbol = candles[0].Symbol
			c.interval = candles[0].Interval
			c.model.SetZoom(IdentityZoom())
			c.hasInitialScroll = false
		}
	}
	c.candles = candles
}

func (c *ChartController) SetChartType(t chartval.ChartType) {
	c.chartType = t
}

func (c *ChartController) SetScaleType(t chartval.ScaleType) {
	c.model.SetScaleType(t)
}

func (c *ChartController) SetPricePrecision(p int) {
	c.model.SetPricePrecision(p)
}

// transformedCandles returns the candles in chart type representation.
// With a transformer attached the last completed result is used, so a
// stale frame may be shown while a transform is in flight.
func (c *ChartController) transformedCandles() []chartval.Candle {
	if c.chartType == chartval.ChartTypeCandle {
		return c.candles
	}
	if c.transformer == nil {
		return TransformCandles(c.candles, c.chartType)
	}
	if c.requestedType != c.chartType || c.requestedLen != len(c.candles) {
		c.transformer.Transform(c.candles, c.chartType)
		c.requestedType = c.chartType
		c.requestedLen = len(c.candles)
	}
	latest, latestType := c.transformer.Latest()
	if latestType == c.chartType && len(latest) > 0 {
		return latest
	}
	return c.candles
}

func (c *ChartController) updateSize(gtx layout.Context) {
	size := gtx.Constraints.Max
	if c.curSize == (image.Point{}) {
		c.curSize = size
		return
	}
	if size != c.curSize {
		now := gtx.Now
		if size != c.pendingSize {
			c.pendingSize = size
			c.resizeDeadline = now.Add(resizeDebounce)
			op.InvalidateOp{At: c.resizeDeadline}.Add(gtx.Ops)
		} else if !now.Before(c.resizeDeadline) {
			c.curSize = size
		} else {
			op.InvalidateOp{At: c.resizeDeadline}.Add(gtx.Ops)
		}
	}
}

func (c *ChartController) plotRect(gtx layout.Context) image.Rectangle {
	return image.Rectangle{
		Max: image.Point{
			X: c.curSize.X - gtx.Dp(c.Theme.AxesMarginMax.X),
			Y: c.curSize.Y - gtx.Dp(c.Theme.AxesMarginMax.Y),
		},
	}
}

func (c *ChartController) Layout(gtx layout.Context, th *material.Theme) layout.Dimensions {
	c.updateSize(gtx)
	clipRect := c.plotRect(gtx)

	candles := c.transformedCandles()
	c.model.Resize(float64(clipRect.Dx()), float64(clipRect.Dy()))
	c.model.SetPadding(paddingTopPx, paddingBottomPx)
	c.model.Update(candles)

	if !c.hasInitialScroll && len(candles) > 0 {
		// Scroll left once, so the newest candle is not glued to the
		// price axis.
		c.hasInitialScroll = true
		c.model.SetZoom(c.model.Zoom().TranslatedBy(-paddingRightPx, 0))
		c.model.Update(candles)
	}

	c.handleInput(gtx)
	c.registerInputOps(gtx, clipRect)

	paint.FillShape(gtx.Ops, c.Theme.BackgroundColor, clip.Rect(image.Rectangle{Max: c.curSize}).Op())
	c.grid.Draw(gtx, c.model, clipRect)
	c.plot.Draw(gtx, candles, c.model, c.chartType, clipRect)
	c.axes.DrawXAxisText(gtx, th, c.model, c.interval, clipRect)
	c.axes.DrawYAxisText(gtx, th, c.model, VisibleCandles(candles, c.model.ScaledX()), clipRect)
	if c.Lines != nil {
		c.Lines.Draw(gtx, th, c.model, clipRect)
	}
	return layout.Dimensions{Size: c.curSize}
}

const (
	paddingTopPx    = 65
	paddingRightPx  = 30
	paddingBottomPx = 20
)

func (c *ChartController) registerInputOps(gtx layout.Context, clipRect image.Rectangle) {
	area := clip.Rect(clipRect).Push(gtx.Ops)
	pointer.InputOp{
		Tag:   chartTag{c: c},
		Kinds: pointer.Press | pointer.Release | pointer.Drag | pointer.Scroll | pointer.Move | pointer.Leave,
		ScrollBounds: image.Rectangle{
			Min: image.Point{X: 0, Y: math.MinInt},
			Max: image.Point{X: 0, Y: math.MaxInt},
		},
	}.Add(gtx.Ops)
	area.Pop()
}

func (c *ChartController) handleInput(gtx layout.Context) {
	for _, gtxEvent := range gtx.Events(chartTag{c: c}) {
		e, ok := gtxEvent.(pointer.Event)
		if !ok {
			continue
		}
		switch e.Kind {
		case pointer.Press:
			if e.Buttons&pointer.ButtonSecondary != 0 {
				if c.OnRightClick != nil {
					c.OnRightClick(c.model.Y().Invert(float64(e.Position.Y)))
				}
				break
			}
			c.pointerPressPos = e.Position
			if c.Lines != nil {
				c.draggingLine = c.Lines.HandlePress(e.Position, c.model)
			}
		case pointer.Drag:
			if c.draggingLine {
				c.Lines.HandleDrag(e.Position, c.model)
			} else {
				posDelta := e.Position.Sub(c.pointerPressPos)
				if posDelta.X != 0 {
					c.model.SetZoom(c.model.Zoom().TranslatedBy(float64(posDelta.X), 0))
				}
				c.pointerPressPos = e.Position
			}
			op.InvalidateOp{}.Add(gtx.Ops)
		case pointer.Release, pointer.Cancel:
			if c.draggingLine {
				c.Lines.HandleRelease(e.Position, c.model)
				c.draggingLine = false
			}
		case pointer.Scroll:
			// Zoom only if the shift key is pressed, plain scrolling
			// is reserved for the surrounding grid.
			if e.Modifiers.Contain(key.ModShift) && e.Scroll.Y != 0 {
				factor := math.Pow(2, -float64(e.Scroll.Y)*0.002)
				c.model.SetZoom(c.model.Zoom().ScaledBy(factor, float64(e.Position.X), float64(e.Position.Y)))
				op.InvalidateOp{}.Add(gtx.Ops)
			}
		case pointer.Move:
			if c.Lines != nil {
				c.Lines.HandleHover(e.Position, c.model)
			}
		case pointer.Leave:
			if c.Lines != nil {
				c.Lines.HandleLeave()
			}
		}
	}
}
