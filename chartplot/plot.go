// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package chartplot

import (
	"image"
	"image/color"
	"math"
	"minicharts/chartval"
	"minicharts/widgets"
	"time"

	"gioui.org/f32"
	"gioui.org/layout"
	"gioui.org/op/clip"
	"gioui.org/op/paint"

	// The builtin gio stroke has a lot of issues, one being that horizontal and vertical lines
	// may have different thickness, even if the same width is specified.
	// We use the "x/stroke" extension instead, it works like a charm.
	"gioui.org/x/stroke"
)

// BodyWidth returns the candle body width in pixels for the given
// zoom factor. Width is clamped on high zoom out levels.
func BodyWidth(zoomScale float64) float64 {
	switch {
	case zoomScale < 0.3:
		return 1
	case zoomScale < 0.8:
		return 1.5
	case zoomScale < 1.5:
		return 2
	case zoomScale < 3.0:
		return 3
	default:
		return zoomScale
	}
}

type plotMemo struct {
	valid     bool
	width     float64
	symbol    string
	interval  chartval.CandleInterval
	lastTime  time.Time
	zoom      ZoomTransform
	chartType chartval.ChartType
	yLo       float64
	yHi       float64
}

// PlotRenderer paints candles of a single chart. Historical candles
// are cached as stroke segments and only rebuilt when geometry or
// data identity changed, the newest candle is rebuilt every frame.
type PlotRenderer struct {
	Theme *widgets.ChartTheme
	memo  plotMemo
	frame struct {
		upBodySegments       []stroke.Segment
		upWickSegments       []stroke.Segment
		downBodySegments     []stroke.Segment
		downWickSegments     []stroke.Segment
		lastUpBodySegments   []stroke.Segment
		lastUpWickSegments   []stroke.Segment
		lastDownBodySegments []stroke.Segment
		lastDownWickSegments []stroke.Segment
	}
}

func NewPlotRenderer(theme *widgets.ChartTheme) *PlotRenderer {
	return &PlotRenderer{Theme: theme}
}

func (p *PlotRenderer) Draw(gtx layout.Context, candles []chartval.Candle, m *ScaleModel,
	chartType chartval.ChartType, clipRect image.Rectangle) {
	if len(candles) == 0 {
		return
	}
	// Only draw within the plot area.
	defer clip.Rect(clipRect).Push(gtx.Ops).Pop()

	width, _ := m.Size()
	yLo, yHi := m.Y().Domain()
	last := candles[len(candles)-1]
	bodyWidth := BodyWidth(m.Zoom().K)

	memo := plotMemo{
		valid:     true,
		width:     width,
		symbol:    last.Symbol,
		interval:  last.Interval,
		lastTime:  last.Time,
		zoom:      m.Zoom(),
		chartType: chartType,
		yLo:       yLo,
		yHi:       yHi,
	}
	// Rebuild historical segments only if zoom, size, domain or the
	// newest candle changed.
	if p.memo != memo {
		p.rebuildHistory(candles[:len(candles)-1], m, clipRect, bodyWidth)
		p.memo = memo
	}

	p.frame.lastUpBodySegments = p.frame.lastUpBodySegments[:0]
	p.frame.lastUpWickSegments = p.frame.lastUpWickSegments[:0]
	p.frame.lastDownBodySegments = p.frame.lastDownBodySegments[:0]
	p.frame.lastDownWickSegments = p.frame.lastDownWickSegments[:0]
	if last.Direction == chartval.DirectionUp {
		p.appendCandle(&p.frame.lastUpBodySegments, &p.frame.lastUpWickSegments, last, m, clipRect, bodyWidth)
	} else {
		p.appendCandle(&p.frame.lastDownBodySegments, &p.frame.lastDownWickSegments, last, m, clipRect, bodyWidth)
	}

	wickWidth := float32(gtx.Dp(1))
	p.strokeSegments(gtx, p.frame.upWickSegments, wickWidth, p.Theme.CandleUpColor)
	p.strokeSegments(gtx, p.frame.upBodySegments, float32(bodyWidth), p.Theme.CandleUpColor)
	p.strokeSegments(gtx, p.frame.downWickSegments, wickWidth, p.Theme.CandleDownColor)
	p.strokeSegments(gtx, p.frame.downBodySegments, float32(bodyWidth), p.Theme.CandleDownColor)
	p.strokeSegments(gtx, p.frame.lastUpWickSegments, wickWidth, p.Theme.CandleUpColor)
	p.strokeSegments(gtx, p.frame.lastUpBodySegments, float32(bodyWidth), p.Theme.CandleUpColor)
	p.strokeSegments(gtx, p.frame.lastDownWickSegments, wickWidth, p.Theme.CandleDownColor)
	p.strokeSegments(gtx, p.frame.lastDownBodySegments, float32(bodyWidth), p.Theme.CandleDownColor)
}

func (p *PlotRenderer) rebuildHistory(candles []chartval.Candle, m *ScaleModel,
	clipRect image.Rectangle, bodyWidth float64) {
	// Reuse segment buffers from the previous frame. These may grow a
	// lot, but reusing considerably improves performance.
	p.frame.upBodySegments = p.frame.upBodySegments[:0]
	p.frame.upWickSegments = p.frame.upWickSegments[:0]
	p.frame.downBodySegments = p.frame.downBodySegments[:0]
	p.frame.downWickSegments = p.frame.downWickSegments[:0]
	for i := range candles {
		if candles[i].Direction == chartval.DirectionUp {
			p.appendCandle(&p.frame.upBodySegments, &p.frame.upWickSegments, candles[i], m, clipRect, bodyWidth)
		} else {
			p.appendCandle(&p.frame.downBodySegments, &p.frame.downWickSegments, candles[i], m, clipRect, bodyWidth)
		}
	}
}

func (p *PlotRenderer) appendCandle(bodies, wicks *[]stroke.Segment, c chartval.Candle,
	m *ScaleModel, clipRect image.Rectangle, bodyWidth float64) {
	xPos := math.Round(m.ScaledX().Px(c.Time))
	// Performance: Skip candles which are outside of the visible plot
	// range. This will also implicitly be done by clipping to the plot
	// area, but we are filtering here to avoid paint operations in
	// case there is a lot of data.
	if int(xPos)+int(bodyWidth/2) < clipRect.Min.X || int(xPos)-int(bodyWidth/2) > clipRect.Max.X {
		return
	}
	y := m.Y()
	y1Pos := math.Round(y.Px(c.Low))
	y2Pos := math.Round(y.Px(c.High))
	if y1Pos == y2Pos {
		y2Pos++ // Stroke does not draw zero length lines, see https://github.com/andybalholm/stroke/issues/3
	}
	if !((int(y1Pos) < clipRect.Min.Y && int(y2Pos) < clipRect.Min.Y) ||
		(int(y1Pos) > clipRect.Max.Y && int(y2Pos) > clipRect.Max.Y)) {
		*wicks = append(*wicks,
			stroke.MoveTo(f32.Pt(float32(xPos), float32(y1Pos))),
			stroke.LineTo(f32.Pt(float32(xPos), float32(y2Pos))),
		)
	}

	y3Pos := math.Round(y.Px(c.Open))
	y4Pos := math.Round(y.Px(c.Close))
	// Draw the body using a minimum height of 1 px.
	if y3Pos == y4Pos {
		y4Pos--
	}
	// clip.Rect does not work well to draw candles, because it has integer resolution
	// and will lead to jumping of candles during scrolling.
	// Therefore, we are drawing candles as "thick lines" with a flat cap.
	*bodies = append(*bodies,
		stroke.MoveTo(f32.Pt(float32(xPos), float32(y3Pos))),
		stroke.LineTo(f32.Pt(float32(xPos), float32(y4Pos))),
	)
}

func (p *PlotRenderer) strokeSegments(gtx layout.Context, seg []stroke.Segment, lineWidth float32, lineColor color.NRGBA) {
	if len(seg) == 0 {
		return
	}
	var path stroke.Path
	path.Segments = seg
	paint.FillShape(
		gtx.Ops,
		lineColor,
		stroke.Stroke{Path: path, Width: lineWidth, Cap: stroke.FlatCap}.Op(gtx.Ops),
	)
}
