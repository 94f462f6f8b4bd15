// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package chartlines

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"minicharts/chartplot"
	"minicharts/chartval"
	"minicharts/widgets"
	"time"

	"gioui.org/f32"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/text"
	"gioui.org/unit"
	"gioui.org/widget/material"
	"gioui.org/x/stroke"
)

type TitleVisibility int

const (
	// TitleDefault inherits the engine setting on items and means
	// hidden on the engine itself.
	TitleDefault TitleVisibility = iota
	TitleVisible
	TitleOnHover
	TitleHidden
)

type LineStyle int

const (
	LineStyleDefault LineStyle = iota
	LineStyleSolid
	LineStyleDashed
	LineStyleDotted
)

func dashPattern(s LineStyle) []float32 {
	switch s {
	case LineStyleDashed:
		return []float32{10, 7}
	case LineStyleDotted:
		return []float32{2, 4}
	default:
		return nil
	}
}

// Item is one retained price line. Items are reconciled by Id.
type Item struct {
	Id              string
	YValue          float64
	XValue          time.Time
	Title           string
	Color           color.NRGBA
	Hidden          bool
	Draggable       bool
	Closable        bool
	NoPointer       bool
	TitleVisibility TitleVisibility
	LineStyle       LineStyle
	Hovered         bool
	Data            any
}

// Handler callbacks receive the affected item and the full item list.
type Handler func(item *Item, items []*Item)

type Config struct {
	Color           color.NRGBA
	ShowX           bool
	TitleVisibility TitleVisibility
	LineStyle       LineStyle
	BackgroundFill  bool
	NoPointer       bool
	OnDrag          Handler
	OnDragEnd       Handler
	OnAdd           Handler
	OnRemove        Handler
	OnClickClose    Handler
}

// ResolveTitleVisible applies the engine and item title settings to
// the hover state.
func ResolveTitleVisible(engineVis, itemVis TitleVisibility, hovered bool) bool {
	if engineVis == TitleDefault || engineVis == TitleHidden {
		return false
	}
	if engineVis == TitleOnHover && !hovered {
		return false
	}
	if itemVis == TitleHidden {
		return false
	}
	if itemVis == TitleOnHover && !hovered {
		return false
	}
	return true
}

const (
	hoverDistancePx  = 5
	labelNotchHeight = 14
	labelNotchPoint  = 4
	labelNotchTick   = 6
	priceLabelWidth  = 50
	timeLabelWidth   = 100
	titleMarginRight = 15
)

// Engine owns a retained set of price lines, reconciles updates by id
// and paints horizontal (and optionally vertical) lines with axis
// labels and title boxes.
type Engine struct {
	Theme          *widgets.ChartTheme
	cfg            Config
	items          []*Item
	pricePrecision int
	draggedIndex   int
	closeRects     map[string]image.Rectangle
	lineSegments   []stroke.Segment
}

func NewEngine(theme *widgets.ChartTheme, cfg Config) *Engine {
	return &Engine{
		Theme:        theme,
		cfg:          cfg,
		draggedIndex: -1,
		closeRects:   make(map[string]image.Rectangle),
	}
}

func (e *Engine) SetPricePrecision(p int) {
	e.pricePrecision = p
}

// Items returns the retained items. The engine keeps ownership.
func (e *Engine) Items() []*Item {
	return e.items
}

// SetItems reconciles the retained set against the given items.
// Existing items are updated in place and keep their hover state, new
// ids enter, ids which are no longer present exit.
func (e *Engine) SetItems(items []Item) {
	existing := make(map[string]*Item, len(e.items))
	for _, it := range e.items {
		if _, ok := existing[it.Id]; ok {
			panic(fmt.Sprintf("duplicate price line id %q", it.Id))
		}
		existing[it.Id] = it
	}
	next := make([]*Item, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for i := range items {
		incoming := items[i]
		if _, ok := seen[incoming.Id]; ok {
			panic(fmt.Sprintf("duplicate price line id %q", incoming.Id))
		}
		seen[incoming.Id] = struct{}{}
		if node, ok := existing[incoming.Id]; ok {
			hovered := node.Hovered
			*node = incoming
			node.Hovered = hovered
			next = append(next, node)
		} else {
			node := incoming
			next = append(next, &node)
		}
	}
	e.items = next
	e.draggedIndex = -1
}

// AddItem appends a new line and invokes the OnAdd handler.
func (e *Engine) AddItem(item Item) {
	node := item
	e.items = append(e.items, &node)
	if e.cfg.OnAdd != nil {
		e.cfg.OnAdd(&node, e.items)
	}
}

// UpdateItem modifies the item with the given id.
// It panics if the id is unknown.
func (e *Engine) UpdateItem(id string, apply func(*Item)) {
	apply(e.mustFind(id))
}

// RemoveItem removes the item with the given id and invokes the
// OnRemove handler. It panics if the id is unknown.
func (e *Engine) RemoveItem(id string) {
	item := e.mustFind(id)
	idx := chartval.IndexOf(e.items, item)
	e.items = append(e.items[:idx], e.items[idx+1:]...)
	if e.draggedIndex == idx {
		e.draggedIndex = -1
	}
	if e.cfg.OnRemove != nil {
		e.cfg.OnRemove(item, e.items)
	}
}

func (e *Engine) mustFind(id string) *Item {
	for _, it := range e.items {
		if it.Id == id {
			return it
		}
	}
	panic(fmt.Sprintf("unable to find price line %q", id))
}

func (e *Engine) find(id string) *Item {
	for _, it := range e.items {
		if it.Id == id {
			return it
		}
	}
	return nil
}

func (e *Engine) itemColor(item *Item) color.NRGBA {
	if item.Color != (color.NRGBA{}) {
		return item.Color
	}
	return e.cfg.Color
}

func (e *Engine) itemLineStyle(item *Item) LineStyle {
	if item.LineStyle != LineStyleDefault {
		return item.LineStyle
	}
	return e.cfg.LineStyle
}

func (e *Engine) itemPointerEventsNone(item *Item) bool {
	return item.NoPointer || e.cfg.NoPointer
}

// Draw paints all visible lines with labels and titles.
func (e *Engine) Draw(gtx layout.Context, th *material.Theme, m *chartplot.ScaleModel, clipRect image.Rectangle) {
	clear(e.closeRects)
	for _, item := range e.items {
		if item.Hidden {
			continue
		}
		e.drawHorizontal(gtx, th, m, clipRect, item)
		if e.cfg.ShowX && !item.XValue.IsZero() {
			e.drawVertical(gtx, th, m, clipRect, item)
		}
	}
}

func (e *Engine) drawHorizontal(gtx layout.Context, th *material.Theme, m *chartplot.ScaleModel,
	clipRect image.Rectangle, item *Item) {
	yPos := m.Y().Px(item.YValue)
	lineColor := e.itemColor(item)

	var path stroke.Path
	path.Segments = e.lineSegments[:0]
	path.Segments = append(path.Segments,
		stroke.MoveTo(f32.Pt(float32(clipRect.Min.X), float32(yPos))),
		stroke.LineTo(f32.Pt(float32(clipRect.Max.X), float32(yPos))),
	)
	e.lineSegments = path.Segments
	paint.FillShape(
		gtx.Ops,
		lineColor,
		stroke.Stroke{
			Path:   path,
			Width:  float32(gtx.Dp(1)),
			Dashes: stroke.Dashes{Dashes: dashPattern(e.itemLineStyle(item))},
		}.Op(gtx.Ops),
	)

	e.drawPriceLabel(gtx, th, clipRect, item, yPos, lineColor)
	if ResolveTitleVisible(e.cfg.TitleVisibility, item.TitleVisibility, item.Hovered) && item.Title != "" {
		e.drawTitle(gtx, th, clipRect, item, yPos)
	}
}

func (e *Engine) drawPriceLabel(gtx layout.Context, th *material.Theme, clipRect image.Rectangle,
	item *Item, yPos float64, lineColor color.NRGBA) {
	basePos := f32.Pt(float32(clipRect.Max.X), float32(yPos))
	fillNotchPath(gtx.Ops, basePos, false, lineColor)
	labelText := chartval.FormatPrice(item.YValue, e.pricePrecision)
	call, textSize := recordLabelText(labelText, e.Theme.LineLabelTextColor, e.Theme.LineLabelFontSize, gtx, th)
	stack := op.Offset(image.Point{
		X: clipRect.Max.X + labelNotchTick + 2,
		Y: int(yPos) - textSize.Y/2,
	}).Push(gtx.Ops)
	call.Add(gtx.Ops)
	stack.Pop()
}

func (e *Engine) drawVertical(gtx layout.Context, th *material.Theme, m *chartplot.ScaleModel,
	clipRect image.Rectangle, item *Item) {
	xPos := m.ScaledX().Px(item.XValue)
	lineColor := e.itemColor(item)

	var path stroke.Path
	path.Segments = []stroke.Segment{
		stroke.MoveTo(f32.Pt(float32(xPos), float32(clipRect.Min.Y))),
		stroke.LineTo(f32.Pt(float32(xPos), float32(clipRect.Max.Y))),
	}
	paint.FillShape(
		gtx.Ops,
		lineColor,
		stroke.Stroke{
			Path:   path,
			Width:  float32(gtx.Dp(1)),
			Dashes: stroke.Dashes{Dashes: dashPattern(e.itemLineStyle(item))},
		}.Op(gtx.Ops),
	)

	basePos := f32.Pt(float32(xPos), float32(clipRect.Max.Y))
	fillNotchPath(gtx.Ops, basePos, true, lineColor)
	labelText := chartval.FormatDateTime(item.XValue)
	call, textSize := recordLabelText(labelText, e.Theme.LineLabelTextColor, e.Theme.LineLabelFontSize, gtx, th)
	stack := op.Offset(image.Point{
		X: int(xPos) - textSize.X/2,
		Y: clipRect.Max.Y + labelNotchTick + 1,
	}).Push(gtx.Ops)
	call.Add(gtx.Ops)
	stack.Pop()
}

func (e *Engine) drawTitle(gtx layout.Context, th *material.Theme, clipRect image.Rectangle,
	item *Item, yPos float64) {
	titleText := item.Title
	closable := item.Closable && e.cfg.OnClickClose != nil
	if closable {
		titleText += "  ×"
	}
	call, textSize := recordLabelText(titleText, e.Theme.TitleTextColor, e.Theme.TitleFontSize, gtx, th)
	margin := e.Theme.TextMargin.Dp(gtx)
	boxSize := textSize.Add(image.Point{X: 2 * margin.X, Y: 2 * margin.Y})
	boxPos := image.Point{
		X: clipRect.Max.X - gtx.Dp(titleMarginRight) - boxSize.X,
		Y: int(yPos) - boxSize.Y/2,
	}
	bgColor := e.Theme.TitleBgColor
	if e.cfg.BackgroundFill && item.Color != (color.NRGBA{}) {
		bgColor = item.Color
	}
	box := image.Rectangle{Min: boxPos, Max: boxPos.Add(boxSize)}
	paint.FillShape(gtx.Ops, bgColor, clip.UniformRRect(box, gtx.Dp(4)).Op(gtx.Ops))

	stack := op.Offset(boxPos.Add(margin)).Push(gtx.Ops)
	call.Add(gtx.Ops)
	stack.Pop()

	if closable {
		// The close glyph occupies the right end of the title box.
		e.closeRects[item.Id] = image.Rectangle{
			Min: image.Point{X: box.Max.X - boxSize.Y, Y: box.Min.Y},
			Max: box.Max,
		}
	}
}

// fillNotchPath paints the label background, a rectangle with a small
// arrow pointing at the axis position.
func fillNotchPath(ops *op.Ops, base f32.Point, bottom bool, fillColor color.NRGBA) {
	var p clip.Path
	p.Begin(ops)
	if bottom {
		w := float32(timeLabelWidth/2 - labelNotchPoint)
		p.MoveTo(base.Add(f32.Pt(1, 0)))
		p.Line(f32.Pt(-labelNotchPoint, labelNotchTick))
		p.Line(f32.Pt(-w, 0))
		p.Line(f32.Pt(0, labelNotchHeight))
		p.Line(f32.Pt(timeLabelWidth, 0))
		p.Line(f32.Pt(0, -labelNotchHeight))
		p.Line(f32.Pt(-w, 0))
	} else {
		h := float32(labelNotchHeight/2 - labelNotchPoint)
		p.MoveTo(base.Add(f32.Pt(0, 1)))
		p.Line(f32.Pt(labelNotchTick, -labelNotchPoint))
		p.Line(f32.Pt(0, -h))
		p.Line(f32.Pt(priceLabelWidth, 0))
		p.Line(f32.Pt(0, labelNotchHeight))
		p.Line(f32.Pt(-priceLabelWidth, 0))
		p.Line(f32.Pt(0, -h))
	}
	p.Close()
	paint.FillShape(ops, fillColor, clip.Outline{Path: p.End()}.Op())
}

func recordLabelText(labelText string, c color.NRGBA, fontSize int, gtx layout.Context, th *material.Theme) (op.CallOp, image.Point) {
	macro := op.Record(gtx.Ops)
	lbl := material.Label(
		th,
		unit.Sp(fontSize),
		labelText,
	)
	lbl.Color = c
	lbl.Alignment = text.Start
	dims := lbl.Layout(gtx)
	return macro.Stop(), dims.Size
}

// HandleHover updates the hover state of all interactive lines.
func (e *Engine) HandleHover(pos f32.Point, m *chartplot.ScaleModel) {
	for _, item := range e.items {
		if item.Hidden || e.itemPointerEventsNone(item) {
			continue
		}
		yPos := m.Y().Px(item.YValue)
		item.Hovered = math.Abs(yPos-float64(pos.Y)) <= hoverDistancePx
	}
}

// HandlePress starts a drag if the press hits a draggable line.
// A press on the close affordance removes the item instead and never
// starts a drag, so releasing over the plot cannot move the line.
func (e *Engine) HandlePress(pos f32.Point, m *chartplot.ScaleModel) bool {
	for _, item := range e.items {
		if rect, ok := e.closeRects[item.Id]; ok {
			if image.Pt(int(pos.X), int(pos.Y)).In(rect) {
				e.cfg.OnClickClose(item, e.items)
				return true
			}
		}
	}
	for i, item := range e.items {
		if item.Hidden || !item.Draggable || e.itemPointerEventsNone(item) {
			continue
		}
		yPos := m.Y().Px(item.YValue)
		if math.Abs(yPos-float64(pos.Y)) <= hoverDistancePx {
			e.draggedIndex = i
			return true
		}
	}
	return false
}

// HandleDrag moves the dragged line to the pointer position.
func (e *Engine) HandleDrag(pos f32.Point, m *chartplot.ScaleModel) {
	if e.draggedIndex < 0 || e.draggedIndex >= len(e.items) {
		return
	}
	item := e.items[e.draggedIndex]
	if e.cfg.OnDrag != nil {
		e.cfg.OnDrag(item, e.items)
	}
	item.YValue = m.Y().Invert(float64(pos.Y))
}

// HandleRelease ends a drag.
func (e *Engine) HandleRelease(pos f32.Point, m *chartplot.ScaleModel) {
	if e.draggedIndex < 0 {
		return
	}
	item := e.items[e.draggedIndex]
	e.draggedIndex = -1
	if e.cfg.OnDragEnd != nil {
		e.cfg.OnDragEnd(item, e.items)
	}
}

// Dragging reports whether a line drag is in progress.
func (e *Engine) Dragging() bool {
	return e.draggedIndex >= 0
}
