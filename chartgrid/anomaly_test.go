// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package chartgrid

import (
	"minicharts/chartval"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newVolumeCandles(volumes []float64) []chartval.Candle {
	candleList := make([]chartval.Candle, len(volumes))
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, v := range volumes {
		candleList[i] = chartval.NewCandle("BTCUSDT", chartval.IntervalOneMinute,
			start.Add(time.Duration(i)*time.Minute), 100, 101, 99, 100, v)
	}
	return candleList
}

func TestVolumeAnomalyDetected(t *testing.T) {
	d := NewVolumeAnomalyDetector(10, 5)
	// Average of the previous five candles is 100.
	candleList := newVolumeCandles([]float64{100, 100, 100, 100, 100, 1500})
	assert.True(t, d.Check(candleList))
	// The same candle bucket never alerts twice.
	assert.False(t, d.Check(candleList))
}

func TestVolumeAnomalyBelowRatio(t *testing.T) {
	d := NewVolumeAnomalyDetector(10, 5)
	candleList := newVolumeCandles([]float64{100, 100, 100, 100, 100, 900})
	assert.False(t, d.Check(candleList))
}

func TestVolumeAnomalyTooFewCandles(t *testing.T) {
	d := NewVolumeAnomalyDetector(10, 5)
	candleList := newVolumeCandles([]float64{100, 100, 1500})
	assert.False(t, d.Check(candleList))
}

func TestVolumeAnomalyNewBucketAlertsAgain(t *testing.T) {
	d := NewVolumeAnomalyDetector(10, 3)
	candleList := newVolumeCandles([]float64{100, 100, 100, 1500})
	assert.True(t, d.Check(candleList))
	// The next candle is anomalous as well, with a fresh bucket.
	next := newVolumeCandles([]float64{100, 100, 100, 1500, 99000})
	assert.True(t, d.Check(next))
}
