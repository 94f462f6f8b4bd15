// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package chartplot

import (
	"image"
	"image/color"
	"math"
	"minicharts/chartval"
	"minicharts/widgets"
	"strconv"
	"time"

	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/text"
	"gioui.org/unit"
	"gioui.org/widget/material"
)

// LinearTicks returns rounded tick values covering [start, stop].
func LinearTicks(start, stop float64, count int) []float64 {
	if count <= 0 || start >= stop {
		return nil
	}
	step := tickIncrement(start, stop, count)
	if step == 0 || math.IsInf(step, 0) {
		return nil
	}
	var ticks []float64
	if step > 0 {
		first := math.Ceil(start / step)
		last := math.Floor(stop / step)
		for v := first; v <= last; v++ {
			ticks = append(ticks, v*step)
		}
	} else {
		step = -step
		first := math.Ceil(start * step)
		last := math.Floor(stop * step)
		for v := first; v <= last; v++ {
			ticks = append(ticks, v/step)
		}
	}
	return ticks
}

func tickIncrement(start, stop float64, count int) float64 {
	step := (stop - start) / float64(max(count, 1))
	power := math.Floor(math.Log10(step))
	err := step / math.Pow(10, power)
	factor := 1.0
	switch {
	case err >= math.Sqrt(50):
		factor = 10
	case err >= math.Sqrt(10):
		factor = 5
	case err >= math.Sqrt(2):
		factor = 2
	}
	if power >= 0 {
		return factor * math.Pow(10, power)
	}
	return -math.Pow(10, -power) / factor
}

var timeTickSteps = []time.Duration{
	time.Second,
	5 * time.Second,
	15 * time.Second,
	30 * time.Second,
	time.Minute,
	5 * time.Minute,
	15 * time.Minute,
	30 * time.Minute,
	time.Hour,
	3 * time.Hour,
	6 * time.Hour,
	12 * time.Hour,
	24 * time.Hour,
	2 * 24 * time.Hour,
	7 * 24 * time.Hour,
	30 * 24 * time.Hour,
	90 * 24 * time.Hour,
	365 * 24 * time.Hour,
}

// TimeTicks returns aligned tick times of the scale domain.
func TimeTicks(x TimeScale, count int) []time.Time {
	lo, hi := x.Domain()
	if count <= 0 || !lo.Before(hi) {
		return nil
	}
	target := hi.Sub(lo) / time.Duration(count)
	step := timeTickSteps[len(timeTickSteps)-1]
	for _, s := range timeTickSteps {
		if s >= target {
			step = s
			break
		}
	}
	first := lo.Truncate(step)
	if first.Before(lo) {
		first = first.Add(step)
	}
	var ticks []time.Time
	for t := first; !t.After(hi); t = t.Add(step) {
		ticks = append(ticks, t)
	}
	return ticks
}

// FormatRelativePercent formats a price as percentage position within
// the low/high range of the given candles. An empty candle window
// falls back to the range [0, 1].
func FormatRelativePercent(v float64, candles []chartval.Candle) string {
	lo := math.Inf(1)
	hi := math.Inf(-1)
	for i := range candles {
		lo = math.Min(lo, candles[i].Low)
		hi = math.Max(hi, candles[i].High)
	}
	if math.IsInf(lo, 1) {
		lo, hi = 0, 1
	}
	if hi == lo {
		return "0.0%"
	}
	return strconv.FormatFloat((v-lo)/(hi-lo)*100, 'f', 1, 64) + "%"
}

func recordAxesLabelText(labelText string, c color.NRGBA, fontSize int, gtx layout.Context, th *material.Theme) (op.CallOp, image.Point) {
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

// AxesRenderer paints the time axis below and the relative percentage
// axis right of the plot area.
type AxesRenderer struct {
	Theme *widgets.ChartTheme
}

func NewAxesRenderer(theme *widgets.ChartTheme) *AxesRenderer {
	return &AxesRenderer{Theme: theme}
}

func (a *AxesRenderer) DrawXAxisText(gtx layout.Context, th *material.Theme, m *ScaleModel,
	interval chartval.CandleInterval, clipRect image.Rectangle) (maxTextSizeY int) {
	width, _ := m.Size()
	ticks := TimeTicks(m.ScaledX(), int(math.Round(width/50)))
	formatStr := interval.FormatString()
	textMargin := a.Theme.TextMargin.Dp(gtx)
	for _, t := range ticks {
		posX := int(m.ScaledX().Px(t))
		if posX < clipRect.Min.X || posX > clipRect.Max.X {
			continue
		}
		call, textSize := recordAxesLabelText(t.Format(formatStr), a.Theme.AxesTextColor, a.Theme.AxesFontSize, gtx, th)
		if textSize.Y > maxTextSizeY {
			maxTextSizeY = textSize.Y
		}
		stack := op.Offset(image.Point{X: posX - textSize.X/2, Y: clipRect.Max.Y + textMargin.Y}).Push(gtx.Ops)
		// Run recorded drawing.
		call.Add(gtx.Ops)
		stack.Pop()
	}
	return
}

func (a *AxesRenderer) DrawYAxisText(gtx layout.Context, th *material.Theme, m *ScaleModel,
	visible []chartval.Candle, clipRect image.Rectangle) (maxTextSizeX int) {
	_, height := m.Size()
	lo, hi := m.Y().Domain()
	ticks := LinearTicks(lo, hi, int(height/40))
	textMargin := a.Theme.TextMargin.Dp(gtx)
	var labelText string
	for _, v := range ticks {
		newLabelText := FormatRelativePercent(v, visible)
		if newLabelText == labelText {
			continue // do not print text twice if it is unchanged due to precision
		}
		labelText = newLabelText
		posY := int(m.Y().Px(v))
		if posY < clipRect.Min.Y || posY > clipRect.Max.Y {
			continue
		}
		// Record drawing to pre-calculate text size.
		call, textSize := recordAxesLabelText(labelText, a.Theme.AxesTextColor, a.Theme.AxesFontSize, gtx, th)
		if textSize.X > maxTextSizeX {
			maxTextSizeX = textSize.X
		}
		stack := op.Offset(image.Point{X: clipRect.Max.X + textMargin.X, Y: posY - textSize.Y/2}).Push(gtx.Ops)
		// Run recorded drawing.
		call.Add(gtx.Ops)
		stack.Pop()
	}
	return
}
