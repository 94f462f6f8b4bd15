// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package chartlines

import (
	"context"
	"fmt"
	"image"
	"minicharts/chartplot"
	"minicharts/chartval"
	"minicharts/widgets"
	"sync"
	"time"

	"gioui.org/f32"
	"gioui.org/layout"
	"gioui.org/widget/material"
)

const (
	pendingAlertTitle = "alert"
	// Triggered alerts disappear automatically after two hours.
	triggeredAlertRetention = 2 * time.Hour
)

// AlertPriceLines manages user defined price alerts. A pending alert
// is a draggable line. When the traded price crosses it, the alert
// triggers exactly once, becomes immutable and shows its age until it
// is swept away.
//
// CheckPrice and Sweep are called from stream and timer goroutines,
// so all access to the underlying line engine is serialized here.
type AlertPriceLines struct {
	engine        *Engine
	mutex         sync.Mutex
	alerts        []chartval.AlertItem
	previousPrice float64
	idCounter     int
	onUpdate      func([]chartval.AlertItem)
	onTrigger     func(alertType chartval.AlertType, price float64)
}

func NewAlertPriceLines(theme *widgets.ChartTheme,
	onUpdate func([]chartval.AlertItem),
	onTrigger func(alertType chartval.AlertType, price float64)) *AlertPriceLines {
	a := &AlertPriceLines{
		onUpdate:  onUpdate,
		onTrigger: onTrigger,
	}
	a.engine = NewEngine(theme, Config{
		Color:           theme.AlertPendingColor,
		TitleVisibility: TitleVisible,
		LineStyle:       LineStyleDashed,
		OnDragEnd: func(item *Item, items []*Item) {
			a.notifyUpdate()
		},
		OnAdd: func(item *Item, items []*Item) {
			a.notifyUpdate()
		},
		OnRemove: func(item *Item, items []*Item) {
			a.notifyUpdate()
		},
		OnClickClose: func(item *Item, items []*Item) {
			a.engine.RemoveItem(item.Id)
		},
	})
	return a
}

func (a *AlertPriceLines) SetPricePrecision(p int) {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	a.engine.SetPricePrecision(p)
}

// UpdateAlerts replaces the alert set, e.g. after loading settings.
// An unchanged set keeps the retained lines untouched.
func (a *AlertPriceLines) UpdateAlerts(alerts []chartval.AlertItem) {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	if alertItemsEqual(a.alerts, alerts) {
		return
	}
	a.alerts = append([]chartval.AlertItem{}, alerts...)
	items := make([]Item, 0, len(alerts))
	for _, alert := range alerts {
		items = append(items, a.newAlertItem(alert, time.Now()))
	}
	a.engine.SetItems(items)
}

// Alerts returns the current alert set.
func (a *AlertPriceLines) Alerts() []chartval.AlertItem {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	return append([]chartval.AlertItem{}, a.alerts...)
}

// AddAlert creates a pending alert at the given price.
func (a *AlertPriceLines) AddAlert(price float64) {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	a.engine.AddItem(a.newAlertItem(chartval.AlertItem{Price: price}, time.Now()))
}

// RemoveAlertAt removes the first alert at the given price.
func (a *AlertPriceLines) RemoveAlertAt(price float64) {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	for _, item := range a.engine.Items() {
		if item.YValue == price {
			a.engine.RemoveItem(item.Id)
			return
		}
	}
}

// CheckPrice tests all pending alerts against the new traded price.
// An upward crossing is detected before a downward one and at most
// one alert triggers per price update.
func (a *AlertPriceLines) CheckPrice(price float64, now time.Time) {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	previous := a.previousPrice
	a.previousPrice = price
	if previous == 0 {
		return
	}
	var up, down *Item
	for _, item := range a.engine.Items() {
		if a.itemTriggered(item) {
			continue
		}
		if up == nil && price >= item.YValue && previous < item.YValue {
			up = item
		}
		if down == nil && price <= item.YValue && previous > item.YValue {
			down = item
		}
	}
	if up != nil {
		a.triggerAlert(up, chartval.AlertPriceUp, now)
	} else if down != nil {
		a.triggerAlert(down, chartval.AlertPriceDown, now)
	}
}

func (a *AlertPriceLines) triggerAlert(item *Item, alertType chartval.AlertType, now time.Time) {
	if a.itemTriggered(item) {
		return
	}
	item.Data = now
	item.Draggable = false
	item.Color = a.engine.Theme.AlertTriggeredColor
	item.TitleVisibility = TitleVisible
	item.Title = chartval.FormatTimeAgo(0)
	if a.onTrigger != nil {
		a.onTrigger(alertType, item.YValue)
	}
	a.notifyUpdate()
}

// Sweep refreshes the age titles of triggered alerts and removes
// those older than the retention period.
func (a *AlertPriceLines) Sweep(now time.Time) {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	var expired []string
	for _, item := range a.engine.Items() {
		triggerTime, ok := item.Data.(time.Time)
		if !ok || triggerTime.IsZero() {
			continue
		}
		if now.Sub(triggerTime) > triggeredAlertRetention {
			expired = append(expired, item.Id)
			continue
		}
		item.Title = chartval.FormatTimeAgo(now.Sub(triggerTime))
	}
	for _, id := range expired {
		a.engine.RemoveItem(id)
	}
}

// StartSweep runs Sweep once per second until the context ends.
// The notify callback requests a redraw.
func (a *AlertPriceLines) StartSweep(ctx context.Context, notify func()) {
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				a.Sweep(now)
				if notify != nil {
					notify()
				}
			}
		}
	}()
}

func (a *AlertPriceLines) newAlertItem(alert chartval.AlertItem, now time.Time) Item {
	a.idCounter++
	item := Item{
		Id:              fmt.Sprintf("alert_%s_%d", now.Format(time.RFC3339Nano), a.idCounter),
		YValue:          alert.Price,
		Title:           pendingAlertTitle,
		Draggable:       true,
		Closable:        true,
		TitleVisibility: TitleOnHover,
	}
	if alert.IsTriggered() {
		item.Data = alert.TriggeredTime
		item.Draggable = false
		item.Color = a.engine.Theme.AlertTriggeredColor
		item.TitleVisibility = TitleVisible
		item.Title = chartval.FormatTimeAgo(now.Sub(alert.TriggeredTime))
	}
	return item
}

func (a *AlertPriceLines) itemTriggered(item *Item) bool {
	triggerTime, ok := item.Data.(time.Time)
	return ok && !triggerTime.IsZero()
}

// notifyUpdate rebuilds the alert set from the retained lines and
// reports it, e.g. for persisting to the settings file.
// Callers hold the mutex.
func (a *AlertPriceLines) notifyUpdate() {
	alerts := make([]chartval.AlertItem, 0, len(a.engine.Items()))
	for _, item := range a.engine.Items() {
		alert := chartval.AlertItem{Price: item.YValue}
		if triggerTime, ok := item.Data.(time.Time); ok {
			alert.TriggeredTime = triggerTime
		}
		alerts = append(alerts, alert)
	}
	a.alerts = alerts
	if a.onUpdate != nil {
		a.onUpdate(append([]chartval.AlertItem{}, alerts...))
	}
}

func alertItemsEqual(a, b []chartval.AlertItem) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Price != b[i].Price || !a[i].TriggeredTime.Equal(b[i].TriggeredTime) {
			return false
		}
	}
	return true
}

// The methods below serialize pointer and paint access with the
// stream goroutines.

func (a *AlertPriceLines) Draw(gtx layout.Context, th *material.Theme, m *chartplot.ScaleModel, clipRect image.Rectangle) {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	a.engine.Draw(gtx, th, m, clipRect)
}

func (a *AlertPriceLines) HandleHover(pos f32.Point, m *chartplot.ScaleModel) {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	a.engine.HandleHover(pos, m)
}

func (a *AlertPriceLines) HandlePress(pos f32.Point, m *chartplot.ScaleModel) bool {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	return a.engine.HandlePress(pos, m)
}

func (a *AlertPriceLines) HandleDrag(pos f32.Point, m *chartplot.ScaleModel) {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	a.engine.HandleDrag(pos, m)
}

func (a *AlertPriceLines) HandleRelease(pos f32.Point, m *chartplot.ScaleModel) {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	a.engine.HandleRelease(pos, m)
}
