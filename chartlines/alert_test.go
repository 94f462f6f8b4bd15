// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package chartlines

import (
	"minicharts/chartval"
	"minicharts/widgets"
	"testing"
	"time"

	"gioui.org/f32"
	"github.com/stretchr/testify/assert"
)

type alertRecorder struct {
	updates  [][]chartval.AlertItem
	triggers []chartval.AlertType
	prices   []float64
}

func (r *alertRecorder) newLines() *AlertPriceLines {
	return NewAlertPriceLines(widgets.NewDarkChartTheme(),
		func(alerts []chartval.AlertItem) {
			r.updates = append(r.updates, alerts)
		},
		func(alertType chartval.AlertType, price float64) {
			r.triggers = append(r.triggers, alertType)
			r.prices = append(r.prices, price)
		})
}

func TestAlertTriggerUpward(t *testing.T) {
	var rec alertRecorder
	a := rec.newLines()
	a.UpdateAlerts([]chartval.AlertItem{{Price: 100}})

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	// The first price only seeds the previous value.
	a.CheckPrice(99, now)
	assert.Empty(t, rec.triggers)

	a.CheckPrice(101, now)
	assert.Equal(t, []chartval.AlertType{chartval.AlertPriceUp}, rec.triggers)
	assert.Equal(t, []float64{100}, rec.prices)
	alerts := a.Alerts()
	assert.Len(t, alerts, 1)
	assert.True(t, alerts[0].IsTriggered())

	// A triggered alert never fires again.
	a.CheckPrice(99, now)
	a.CheckPrice(101, now)
	assert.Len(t, rec.triggers, 1)
}

func TestAlertTriggerDownward(t *testing.T) {
	var rec alertRecorder
	a := rec.newLines()
	a.UpdateAlerts([]chartval.AlertItem{{Price: 100}})
	now := time.Now()
	a.CheckPrice(101, now)
	a.CheckPrice(99, now)
	assert.Equal(t, []chartval.AlertType{chartval.AlertPriceDown}, rec.triggers)
}

func TestAlertTriggerAtMostOnePerUpdate(t *testing.T) {
	var rec alertRecorder
	a := rec.newLines()
	a.UpdateAlerts([]chartval.AlertItem{{Price: 100}, {Price: 100.5}})
	now := time.Now()
	a.CheckPrice(99, now)
	// One price update crosses both alerts, only the first fires.
	a.CheckPrice(101, now)
	assert.Len(t, rec.triggers, 1)
	assert.Equal(t, []float64{100}, rec.prices)
}

func TestAlertNoTriggerWithoutCrossing(t *testing.T) {
	var rec alertRecorder
	a := rec.newLines()
	a.UpdateAlerts([]chartval.AlertItem{{Price: 100}})
	now := time.Now()
	a.CheckPrice(101, now)
	a.CheckPrice(102, now)
	a.CheckPrice(100.5, now)
	assert.Empty(t, rec.triggers)
}

func TestAlertSweepRetention(t *testing.T) {
	var rec alertRecorder
	a := rec.newLines()
	triggerTime := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	a.UpdateAlerts([]chartval.AlertItem{
		{Price: 100, TriggeredTime: triggerTime},
		{Price: 200},
	})

	// A young triggered alert keeps its line and shows its age.
	a.Sweep(triggerTime.Add(65 * time.Second))
	assert.Len(t, a.Alerts(), 2)
	assert.Equal(t, "1m 5s ago", a.engine.Items()[0].Title)

	// After the retention period the triggered alert is removed, the
	// pending one stays.
	a.Sweep(triggerTime.Add(2*time.Hour + time.Second))
	alerts := a.Alerts()
	assert.Len(t, alerts, 1)
	assert.InDelta(t, 200, alerts[0].Price, chartval.NearZero)
	assert.NotEmpty(t, rec.updates)
}

func TestAlertUpdateUnchangedKeepsLines(t *testing.T) {
	var rec alertRecorder
	a := rec.newLines()
	a.UpdateAlerts([]chartval.AlertItem{{Price: 100}})
	id := a.engine.Items()[0].Id
	a.UpdateAlerts([]chartval.AlertItem{{Price: 100}})
	assert.Equal(t, id, a.engine.Items()[0].Id)
}

func TestAlertAddAndRemove(t *testing.T) {
	var rec alertRecorder
	a := rec.newLines()
	a.AddAlert(150)
	assert.Len(t, a.Alerts(), 1)
	assert.Len(t, rec.updates, 1)
	// Pending alerts are draggable and only titled on hover.
	item := a.engine.Items()[0]
	assert.True(t, item.Draggable)
	assert.Equal(t, TitleOnHover, item.TitleVisibility)

	a.RemoveAlertAt(150)
	assert.Empty(t, a.Alerts())
	assert.Len(t, rec.updates, 2)
}

func TestAlertDragReportsNewPrice(t *testing.T) {
	m := newTestModel(t)
	var rec alertRecorder
	a := rec.newLines()
	a.AddAlert(100)

	assert.True(t, a.HandlePress(f32.Pt(10, 100), m))
	a.HandleDrag(f32.Pt(10, 60), m)
	a.HandleRelease(f32.Pt(10, 60), m)

	alerts := a.Alerts()
	assert.Len(t, alerts, 1)
	assert.InDelta(t, 104, alerts[0].Price, chartval.NearZero)
}

func TestAlertIdsUnique(t *testing.T) {
	var rec alertRecorder
	a := rec.newLines()
	a.AddAlert(100)
	a.AddAlert(100)
	a.AddAlert(100)
	items := a.engine.Items()
	assert.Len(t, items, 3)
	seen := make(map[string]struct{})
	for _, item := range items {
		seen[item.Id] = struct{}{}
	}
	assert.Len(t, seen, 3)
}
