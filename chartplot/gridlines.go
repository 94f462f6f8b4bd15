// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package chartplot

import (
	"image"
	"math"
	"minicharts/widgets"

	"gioui.org/f32"
	"gioui.org/layout"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/x/stroke"
)

// GridRenderer paints faint vertical and horizontal helper lines at
// the axis tick positions.
type GridRenderer struct {
	Theme        *widgets.ChartTheme
	gridSegments []stroke.Segment
}

func NewGridRenderer(theme *widgets.ChartTheme) *GridRenderer {
	return &GridRenderer{Theme: theme}
}

func (g *GridRenderer) Draw(gtx layout.Context, m *ScaleModel, clipRect image.Rectangle) {
	width, height := m.Size()
	// Only draw within the plot area.
	defer clip.Rect(clipRect).Push(gtx.Ops).Pop()

	var path stroke.Path
	// Reuse the segment buffer from the previous frame.
	path.Segments = g.gridSegments[:0]
	for _, t := range TimeTicks(m.ScaledX(), int(math.Round(width/50))) {
		posX := float32(m.ScaledX().Px(t))
		path.Segments = append(path.Segments,
			stroke.MoveTo(f32.Pt(posX, float32(clipRect.Min.Y))),
			stroke.LineTo(f32.Pt(posX, float32(clipRect.Max.Y))),
		)
	}
	lo, hi := m.Y().Domain()
	for _, v := range LinearTicks(lo, hi, int(height/80)) {
		posY := float32(m.Y().Px(v))
		path.Segments = append(path.Segments,
			stroke.MoveTo(f32.Pt(float32(clipRect.Min.X), posY)),
			stroke.LineTo(f32.Pt(float32(clipRect.Max.X), posY)),
		)
	}
	g.gridSegments = path.Segments
	area := stroke.Stroke{Path: path, Width: float32(gtx.Dp(1))}.Op(gtx.Ops)
	paint.FillShape(gtx.Ops, g.Theme.GridColor, area)
}
