// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package chartplot

import (
	"math"
	"minicharts/chartval"
	"time"
)

// TimeScale linearly maps timestamps to horizontal pixels.
type TimeScale struct {
	d0, d1 float64 // domain in unix milliseconds
	r0, r1 float64 // pixel range
}

func NewTimeScale(start, end time.Time, width float64) TimeScale {
	return TimeScale{
		d0: float64(start.UnixMilli()),
		d1: float64(end.UnixMilli()),
		r0: 0,
		r1: width,
	}
}

func (s TimeScale) Px(t time.Time) float64 {
	return s.PxMilli(float64(t.UnixMilli()))
}

func (s TimeScale) PxMilli(ms float64) float64 {
	if s.d1 == s.d0 {
		return s.r0
	}
	return s.r0 + (ms-s.d0)/(s.d1-s.d0)*(s.r1-s.r0)
}

func (s TimeScale) Invert(px float64) time.Time {
	return time.UnixMilli(int64(s.InvertMilli(px)))
}

func (s TimeScale) InvertMilli(px float64) float64 {
	if s.r1 == s.r0 {
		return s.d0
	}
	return s.d0 + (px-s.r0)/(s.r1-s.r0)*(s.d1-s.d0)
}

func (s TimeScale) Domain() (time.Time, time.Time) {
	return time.UnixMilli(int64(s.d0)), time.UnixMilli(int64(s.d1))
}

func (s TimeScale) Range() (float64, float64) {
	return s.r0, s.r1
}

// ZoomTransform is an affine pixel transform with scale K and
// translation X/Y. The identity transform has K=1.
type ZoomTransform struct {
	K float64
	X float64
	Y float64
}

func IdentityZoom() ZoomTransform {
	return ZoomTransform{K: 1}
}

// RescaleX returns a copy of s whose domain is transformed so that
// painting through the new scale shows the zoomed/panned window.
func (z ZoomTransform) RescaleX(s TimeScale) TimeScale {
	if z.K == 0 {
		z.K = 1
	}
	return TimeScale{
		d0: s.InvertMilli((s.r0 - z.X) / z.K),
		d1: s.InvertMilli((s.r1 - z.X) / z.K),
		r0: s.r0,
		r1: s.r1,
	}
}

// ScaledBy zooms by factor k around the pixel position px.
func (z ZoomTransform) ScaledBy(k float64, px float64, py float64) ZoomTransform {
	if z.K == 0 {
		z.K = 1
	}
	return ZoomTransform{
		K: z.K * k,
		X: px - (px-z.X)*k,
		Y: py - (py-z.Y)*k,
	}
}

// TranslatedBy pans by the given pixel deltas.
func (z ZoomTransform) TranslatedBy(dx float64, dy float64) ZoomTransform {
	z.X += dx
	z.Y += dy
	return z
}

func (z ZoomTransform) IsIdentity() bool {
	return z.K == 1 && z.X == 0 && z.Y == 0
}

// PriceScale maps prices to vertical pixels. The range runs from the
// plot height (lowest price) to zero (highest price).
type PriceScale interface {
	Px(v float64) float64
	Invert(px float64) float64
	SetDomain(lo, hi float64)
	Domain() (float64, float64)
	SetRange(bottom, top float64)
}

type LinearPriceScale struct {
	d0, d1 float64
	r0, r1 float64
}

func NewLinearPriceScale(height float64) *LinearPriceScale {
	return &LinearPriceScale{d0: 0, d1: 1, r0: height, r1: 0}
}

func (s *LinearPriceScale) SetDomain(lo, hi float64) { s.d0, s.d1 = lo, hi }
func (s *LinearPriceScale) Domain() (float64, float64) {
	return s.d0, s.d1
}
func (s *LinearPriceScale) SetRange(bottom, top float64) { s.r0, s.r1 = bottom, top }

func (s *LinearPriceScale) Px(v float64) float64 {
	if s.d1 == s.d0 {
		return s.r0
	}
	return s.r0 + (v-s.d0)/(s.d1-s.d0)*(s.r1-s.r0)
}

func (s *LinearPriceScale) Invert(px float64) float64 {
	if s.r1 == s.r0 {
		return s.d0
	}
	return s.d0 + (px-s.r0)/(s.r1-s.r0)*(s.d1-s.d0)
}

// SymlogPriceScale is a sign-preserving logarithmic scale which stays
// defined through zero. The constant defines the linear pivot region.
type SymlogPriceScale struct {
	d0, d1   float64
	r0, r1   float64
	constant float64
}

func NewSymlogPriceScale(height float64) *SymlogPriceScale {
	return &SymlogPriceScale{d0: 0, d1: 1, r0: height, r1: 0, constant: 1}
}

func (s *SymlogPriceScale) SetDomain(lo, hi float64)    { s.d0, s.d1 = lo, hi }
func (s *SymlogPriceScale) Domain() (float64, float64)  { return s.d0, s.d1 }
func (s *SymlogPriceScale) SetRange(bottom, top float64) { s.r0, s.r1 = bottom, top }

func (s *SymlogPriceScale) SetConstant(c float64) {
	if c > 0 {
		s.constant = c
	}
}

func (s *SymlogPriceScale) Constant() float64 {
	return s.constant
}

func (s *SymlogPriceScale) transform(v float64) float64 {
	return sign(v) * math.Log1p(math.Abs(v/s.constant))
}

func (s *SymlogPriceScale) untransform(y float64) float64 {
	return sign(y) * s.constant * (math.Exp(math.Abs(y)) - 1)
}

func (s *SymlogPriceScale) Px(v float64) float64 {
	t0 := s.transform(s.d0)
	t1 := s.transform(s.d1)
	if t1 == t0 {
		return s.r0
	}
	return s.r0 + (s.transform(v)-t0)/(t1-t0)*(s.r1-s.r0)
}

func (s *SymlogPriceScale) Invert(px float64) float64 {
	t0 := s.transform(s.d0)
	t1 := s.transform(s.d1)
	if s.r1 == s.r0 {
		return s.d0
	}
	return s.untransform(t0 + (px-s.r0)/(s.r1-s.r0)*(t1-t0))
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}

// symlogConstant picks the linear pivot of the symlog scale based on
// the magnitude of the lower domain bound. Small-priced symbols need
// a smaller pivot, otherwise the scale degenerates to almost linear.
func symlogConstant(domainLow float64) float64 {
	c := 1.0
	if domainLow < 1 {
		c = 0.1
	}
	if domainLow < 0.1 {
		c = 0.01
	}
	if domainLow < 0.01 {
		c = 0.001
	}
	return c
}

// ScaleModel owns the x/y scales of one chart and recomputes their
// domains from the candle data and the current zoom transform.
type ScaleModel struct {
	width          float64
	height         float64
	scaleType      chartval.ScaleType
	pricePrecision int
	paddingTopPx   float64
	paddingBottomPx float64
	x              TimeScale
	scaledX        TimeScale
	y              PriceScale
	zoom           ZoomTransform
}

func NewScaleModel() *ScaleModel {
	m := &ScaleModel{
		pricePrecision: 2,
		zoom:           IdentityZoom(),
	}
	m.y = NewLinearPriceScale(0)
	m.x = NewTimeScale(time.Unix(0, 0), time.Now(), 0)
	m.scaledX = m.x
	return m
}

func (m *ScaleModel) Resize(width, height float64) {
	m.width = width
	m.height = height
}

func (m *ScaleModel) Size() (float64, float64) {
	return m.width, m.height
}

func (m *ScaleModel) SetPricePrecision(p int) {
	m.pricePrecision = p
}

func (m *ScaleModel) PricePrecision() int {
	return m.pricePrecision
}

// SetPadding configures asymmetric vertical padding in pixels.
func (m *ScaleModel) SetPadding(topPx, bottomPx float64) {
	m.paddingTopPx = topPx
	m.paddingBottomPx = bottomPx
}

func (m *ScaleModel) SetScaleType(t chartval.ScaleType) {
	m.scaleType = t
}

func (m *ScaleModel) ScaleType() chartval.ScaleType {
	return m.scaleType
}

func (m *ScaleModel) SetZoom(z ZoomTransform) {
	m.zoom = z
	m.scaledX = z.RescaleX(m.x)
}

func (m *ScaleModel) Zoom() ZoomTransform {
	return m.zoom
}

func (m *ScaleModel) X() TimeScale {
	return m.x
}

func (m *ScaleModel) ScaledX() TimeScale {
	return m.scaledX
}

func (m *ScaleModel) Y() PriceScale {
	return m.y
}

// Update recomputes the x domain from the candle data and the
// y domain from the candles visible inside the zoomed window.
func (m *ScaleModel) Update(candles []chartval.Candle) {
	m.updateXDomain(candles)
	m.scaledX = m.zoom.RescaleX(m.x)
	m.updateYDomain(candles)
}

func (m *ScaleModel) updateXDomain(candles []chartval.Candle) {
	if len(candles) == 0 {
		m.x = NewTimeScale(time.Unix(0, 0), time.Now(), m.width)
		return
	}
	// Show roughly one candle per three pixels initially.
	num := int(math.Round(m.width / 3))
	if num < 1 {
		num = 1
	}
	first := 0
	if len(candles) > num {
		first = len(candles) - num
	}
	last := candles[len(candles)-1]
	m.x = NewTimeScale(candles[first].Time, last.Time, m.width)
}

func (m *ScaleModel) updateYDomain(candles []chartval.Candle) {
	lo := math.Inf(1)
	hi := math.Inf(-1)
	visible := VisibleCandles(candles, m.scaledX)
	for i := range visible {
		lo = math.Min(lo, visible[i].Low)
		hi = math.Max(hi, visible[i].High)
	}
	if math.IsInf(lo, 1) {
		lo, hi = 0, 1
	}
	switch m.scaleType {
	case chartval.ScaleSymlog:
		s := NewSymlogPriceScale(m.height)
		if lo != 0 {
			s.SetConstant(symlogConstant(lo))
		}
		m.y = s
	default:
		m.y = NewLinearPriceScale(m.height)
	}
	m.y.SetRange(m.height, 0)
	m.y.SetDomain(lo, hi)
	// Convert the pixel padding to price deltas via scale inversion,
	// then extend the domain by the rounded deltas.
	topDelta := m.y.Invert(-m.paddingTopPx) - m.y.Invert(0)
	bottomDelta := m.y.Invert(m.height) - m.y.Invert(m.height+m.paddingBottomPx)
	hi += chartval.RoundToPrecision(topDelta, m.pricePrecision)
	lo -= chartval.RoundToPrecision(bottomDelta, m.pricePrecision)
	m.y.SetDomain(lo, hi)
}

// VisibleCandles returns the candles whose open time lies within the
// domain of the given (zoomed) time scale.
func VisibleCandles(candles []chartval.Candle, x TimeScale) []chartval.Candle {
	lo, hi := x.Domain()
	first := len(candles)
	last := 0
	for i := range candles {
		if !candles[i].Time.Before(lo) && !candles[i].Time.After(hi) {
			if i < first {
				first = i
			}
			last = i + 1
		}
	}
	if first >= last {
		return nil
	}
	return candles[first:last]
}
