// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package chartconfig

import (
	"minicharts/chartval"

	"github.com/barkimedes/go-deepcopy"
)

type ConnectorId string

// AlertLogSize limits the global alert history.
const AlertLogSize = 100

type AppConfig struct {
	LightTheme      bool `yaml:",omitempty"`
	GridColumns     int
	ChartHeightPx   int
	Interval        chartval.CandleInterval
	ChartType       chartval.ChartType
	ScaleType       chartval.ScaleType
	SortBy          chartval.SortBy
	SortDescending  bool
	CandlesLimit    int
	ThrottleDelayMs int
	// AnomalyVolumeRatio is the multiple of the average volume which
	// counts as an anomaly, AnomalyWindowSize the number of candles
	// the average is taken over.
	AnomalyVolumeRatio float64
	AnomalyWindowSize  int
	SymbolAlerts       map[string][]chartval.AlertItem `yaml:",omitempty"`
	AlertLog           []chartval.AlertLogItem         `yaml:",omitempty"`
	ConnectorConfig    map[ConnectorId]ConnectorConfig
}

type ConnectorConfig struct {
	DataUrl string `yaml:",omitempty"`
	WsUrl   string `yaml:",omitempty"`
	// Binance accounts REST requests in weight units per minute.
	WeightLimitPerMinute int `yaml:",omitempty"`
	DataTimeoutSeconds   int `yaml:",omitempty"`
}

var defaultConnectorConfig = NewConnectorConfigMap()

func NewAppConfig() AppConfig {
	return AppConfig{
		GridColumns:        4,
		ChartHeightPx:      250,
		Interval:           chartval.IntervalOneMinute,
		ChartType:          chartval.ChartTypeCandle,
		ScaleType:          chartval.ScaleLinear,
		SortBy:             chartval.SortByVolume,
		SortDescending:     true,
		CandlesLimit:       500,
		ThrottleDelayMs:    1000,
		AnomalyVolumeRatio: 10,
		AnomalyWindowSize:  50,
		SymbolAlerts:       make(map[string][]chartval.AlertItem),
		ConnectorConfig:    NewConnectorConfigMap(),
	}
}

func NewConnectorConfigMap() map[ConnectorId]ConnectorConfig {
	return map[ConnectorId]ConnectorConfig{
		"binance-futures": {
			DataUrl:              "https://fapi.binance.com/fapi/v1",
			WsUrl:                "wss://fstream.binance.com/ws",
			WeightLimitPerMinute: 2400,
			DataTimeoutSeconds:   10,
		},
	}
}

func (a *AppConfig) deepCopy() AppConfig {
	c, err := deepcopy.Anything(a)
	if err != nil {
		panic(err)
	}
	return *c.(*AppConfig)
}

// AppendAlertLog adds a history entry, dropping the oldest entries
// beyond the log size.
func (a *AppConfig) AppendAlertLog(item chartval.AlertLogItem) {
	a.AlertLog = append(a.AlertLog, item)
	if len(a.AlertLog) > AlertLogSize {
		a.AlertLog = a.AlertLog[len(a.AlertLog)-AlertLogSize:]
	}
}

func (a *AppConfig) Sanitize() {
	if a.GridColumns < 1 {
		a.GridColumns = 1
	}
	if a.ChartHeightPx < 100 {
		a.ChartHeightPx = 100
	}
	if a.CandlesLimit < 10 {
		a.CandlesLimit = 10
	}
	if a.ThrottleDelayMs < 0 {
		a.ThrottleDelayMs = 0
	}
	if a.AnomalyVolumeRatio <= 1 {
		a.AnomalyVolumeRatio = 10
	}
	if a.AnomalyWindowSize < 2 {
		a.AnomalyWindowSize = 50
	}
	if len(a.AlertLog) > AlertLogSize {
		a.AlertLog = a.AlertLog[len(a.AlertLog)-AlertLogSize:]
	}
	if a.SymbolAlerts == nil {
		a.SymbolAlerts = make(map[string][]chartval.AlertItem)
	}
	if a.ConnectorConfig == nil {
		a.ConnectorConfig = NewConnectorConfigMap()
	}
	a.RestoreDefaults()
}

// We do not want to store certain default values in the configuration file,
// in order to avoid having to patch them.
func (a *AppConfig) RemoveDefaults() {
	for key, c := range a.ConnectorConfig {
		def := defaultConnectorConfig[key]
		if c.DataUrl == def.DataUrl {
			c.DataUrl = ""
		}
		if c.WsUrl == def.WsUrl {
			c.WsUrl = ""
		}
		a.ConnectorConfig[key] = c
	}
}

// Restore certain default values which are not stored in the configuration file.
func (a *AppConfig) RestoreDefaults() {
	for key, c := range a.ConnectorConfig {
		def := defaultConnectorConfig[key]
		if len(c.DataUrl) == 0 {
			c.DataUrl = def.DataUrl
		}
		if len(c.WsUrl) == 0 {
			c.WsUrl = def.WsUrl
		}
		if c.WeightLimitPerMinute == 0 {
			c.WeightLimitPerMinute = def.WeightLimitPerMinute
		}
		if c.DataTimeoutSeconds == 0 {
			c.DataTimeoutSeconds = def.DataTimeoutSeconds
		}
		a.ConnectorConfig[key] = c
	}
}
