// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package chartgrid

import (
	"minicharts/chartval"
	"time"

	"github.com/cinar/indicator"
)

// VolumeAnomalyDetector flags candles whose volume exceeds a multiple
// of the average volume of the preceding candles. Ratio and window
// are injected from the configuration.
type VolumeAnomalyDetector struct {
	Ratio  float64
	Window int
	// At most one alert per candle bucket.
	lastBucket time.Time
}

func NewVolumeAnomalyDetector(ratio float64, window int) *VolumeAnomalyDetector {
	return &VolumeAnomalyDetector{
		Ratio:  ratio,
		Window: window,
	}
}

// Check examines the most recent candle. It reports true at most once
// per candle open time.
func (d *VolumeAnomalyDetector) Check(candleList []chartval.Candle) bool {
	if d.Window < 2 || len(candleList) < d.Window+1 {
		return false
	}
	current := candleList[len(candleList)-1]
	if current.Time.Equal(d.lastBucket) {
		return false
	}
	previous := candleList[len(candleList)-1-d.Window : len(candleList)-1]
	volumes := make([]float64, len(previous))
	for i := range previous {
		volumes[i] = previous[i].Volume
	}
	sma := indicator.Sma(d.Window, volumes)
	average := sma[len(sma)-1]
	if average <= 0 || current.Volume <= average*d.Ratio {
		return false
	}
	d.lastBucket = current.Time
	return true
}
