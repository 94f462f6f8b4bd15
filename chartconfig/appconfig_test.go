// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package chartconfig

import (
	"fmt"
	"minicharts/chartval"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeClampsValues(t *testing.T) {
	c := AppConfig{GridColumns: 0, ChartHeightPx: 10, AnomalyVolumeRatio: 0.5, AnomalyWindowSize: 1}
	c.Sanitize()
	assert.Equal(t, 1, c.GridColumns)
	assert.Equal(t, 100, c.ChartHeightPx)
	assert.InDelta(t, 10, c.AnomalyVolumeRatio, chartval.NearZero)
	assert.Equal(t, 50, c.AnomalyWindowSize)
	assert.NotNil(t, c.SymbolAlerts)
	assert.NotEmpty(t, c.ConnectorConfig["binance-futures"].DataUrl)
}

func TestAlertLogCapped(t *testing.T) {
	c := NewAppConfig()
	for i := 0; i < AlertLogSize+20; i++ {
		c.AppendAlertLog(chartval.AlertLogItem{
			Type:   chartval.AlertPriceUp,
			Symbol: fmt.Sprintf("SYM%d", i),
			Time:   time.Now(),
		})
	}
	assert.Len(t, c.AlertLog, AlertLogSize)
	// The oldest entries are dropped.
	assert.Equal(t, "SYM20", c.AlertLog[0].Symbol)
}

func TestRemoveRestoreDefaults(t *testing.T) {
	c := NewAppConfig()
	c.RemoveDefaults()
	assert.Empty(t, c.ConnectorConfig["binance-futures"].DataUrl)
	c.RestoreDefaults()
	assert.Equal(t, "https://fapi.binance.com/fapi/v1", c.ConnectorConfig["binance-futures"].DataUrl)
}

func TestConfigLockUnlock(t *testing.T) {
	cfg := NewTestConfig()
	locked, err := cfg.Lock()
	assert.NoError(t, err)
	locked.GridColumns = 7
	assert.NoError(t, cfg.Unlock(locked))
	c, err := cfg.Copy()
	assert.NoError(t, err)
	assert.Equal(t, 7, c.GridColumns)
}
