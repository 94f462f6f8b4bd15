// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package chartval

import (
	"time"
)

// CandleInterval uses the identifiers of the exchange kline streams.
type CandleInterval string

const (
	IntervalOneMinute      CandleInterval = "1m"
	IntervalThreeMinutes   CandleInterval = "3m"
	IntervalFiveMinutes    CandleInterval = "5m"
	IntervalFifteenMinutes CandleInterval = "15m"
	IntervalThirtyMinutes  CandleInterval = "30m"
	IntervalOneHour        CandleInterval = "1h"
	IntervalTwoHours       CandleInterval = "2h"
	IntervalFourHours      CandleInterval = "4h"
	IntervalSixHours       CandleInterval = "6h"
	IntervalEightHours     CandleInterval = "8h"
	IntervalTwelveHours    CandleInterval = "12h"
	IntervalOneDay         CandleInterval = "1d"
	IntervalThreeDays      CandleInterval = "3d"
	IntervalOneWeek        CandleInterval = "1w"
	IntervalOneMonth       CandleInterval = "1M"
)

func CandleIntervalList() []CandleInterval {
	return []CandleInterval{
		IntervalOneMinute,
		IntervalThreeMinutes,
		IntervalFiveMinutes,
		IntervalFifteenMinutes,
		IntervalThirtyMinutes,
		IntervalOneHour,
		IntervalTwoHours,
		IntervalFourHours,
		IntervalSixHours,
		IntervalEightHours,
		IntervalTwelveHours,
		IntervalOneDay,
		IntervalThreeDays,
		IntervalOneWeek,
		IntervalOneMonth,
	}
}

func CandleIntervalFromString(s string) CandleInterval {
	i := CandleInterval(s)
	if IndexOf(CandleIntervalList(), i) < 0 {
		// Return a sane default if invalid.
		return IntervalOneMinute
	}
	return i
}

func (i CandleInterval) GetDuration(context time.Time) time.Duration {
	switch i {
	case IntervalOneMinute:
		return time.Minute
	case IntervalThreeMinutes:
		return time.Minute * 3
	case IntervalFiveMinutes:
		return time.Minute * 5
	case IntervalFifteenMinutes:
		return time.Minute * 15
	case IntervalThirtyMinutes:
		return time.Minute * 30
	case IntervalOneHour:
		return time.Hour
	case IntervalTwoHours:
		return time.Hour * 2
	case IntervalFourHours:
		return time.Hour * 4
	case IntervalSixHours:
		return time.Hour * 6
	case IntervalEightHours:
		return time.Hour * 8
	case IntervalTwelveHours:
		return time.Hour * 12
	case IntervalOneDay:
		return getDayDuration(context)
	case IntervalThreeDays:
		return getDayDuration(context) * 3
	case IntervalOneWeek:
		return getDayDuration(context) * 7
	case IntervalOneMonth:
		return getMonthDuration(context)
	default:
		panic("unsupported candle interval")
	}
}

func (i CandleInterval) FormatString() string {
	switch i {
	case IntervalOneMinute, IntervalThreeMinutes, IntervalFiveMinutes,
		IntervalFifteenMinutes, IntervalThirtyMinutes,
		IntervalOneHour, IntervalTwoHours, IntervalFourHours,
		IntervalSixHours, IntervalEightHours, IntervalTwelveHours:
		return "15:04"
	case IntervalOneDay, IntervalThreeDays, IntervalOneWeek, IntervalOneMonth:
		return "02 Jan 06"
	default:
		panic("unsupported candle interval")
	}
}

func getDayDuration(t time.Time) time.Duration {
	y := t.Year()
	m := t.Month()
	d := t.Day()
	return time.Date(y, m, d+1, 0, 0, 0, 0, t.Location()).Sub(
		time.Date(y, m, d, 0, 0, 0, 0, t.Location()),
	)
}

func getMonthDuration(t time.Time) time.Duration {
	// Use "Sub" call so that daylight saving time is considered.
	y := t.Year()
	m := t.Month()
	s := time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
	return time.Date(y, m+1, 1, 0, 0, 0, 0, t.Location()).Sub(s)
}
