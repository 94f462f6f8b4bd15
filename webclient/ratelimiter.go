// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package webclient

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"
)

// Client side weight bucket rate limiter. The exchange accounts REST
// requests in weight units within a fixed interval and reports the
// used weight in a response header, which is used to resynchronize
// the local counter.
// Sadly, I could not find a proper client library for this job.
type RateLimiter struct {
	limitCounter uint64 // Use atomic accessor. High 32 bits limit, low 32 bits counter.
	interval     int64  // Use atomic accessor
	startTime    int64  // Use atomic accessor
}

const MinWaitTime = time.Millisecond * 250
const MinReconnectWaitTime = time.Second * 10

const usedWeightHeader = "X-Mbx-Used-Weight-1m"

func NewRateLimiter(interval time.Duration, limit uint32) *RateLimiter {
	return &RateLimiter{
		limitCounter: uint64(limit) << 32,
		interval:     int64(interval),
	}
}

// Wait blocks until the given weight fits into the current interval.
func (l *RateLimiter) Wait(ctx context.Context, weight uint32) error {
	for {
		limitCounter := atomic.LoadUint64(&l.limitCounter)
		limit := limitCounter >> 32
		if limit == 0 {
			return nil // no limitation
		}
		counter := limitCounter & 0xffffffff

		interval := atomic.LoadInt64(&l.interval)
		startTime := atomic.LoadInt64(&l.startTime)
		if interval > 0 && startTime > 0 {
			endTime := time.UnixMilli(startTime).Add(time.Duration(interval))
			// reset counter after time interval
			if time.Since(endTime) > 0 {
				if atomic.CompareAndSwapInt64(&l.startTime, startTime, endTime.UnixMilli()) {
					// Subtract instead of setting to zero in order to avoid race conditions.
					atomic.AddUint64(&l.limitCounter, -counter)
					limitCounter -= counter
					counter = 0
				} else {
					continue
				}
			}
		}
		if counter+uint64(weight) <= limit {
			if atomic.CompareAndSwapUint64(&l.limitCounter, limitCounter, limitCounter+uint64(weight)) {
				return nil
			} else {
				continue
			}
		}
		// too many requests, need to wait
		// poll every MinWaitTime
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(MinWaitTime):
		}
	}
}

// Return the remaining weight or max int if not limited.
func (l *RateLimiter) Remaining() int {
	limitCounter := atomic.LoadUint64(&l.limitCounter)
	limit := limitCounter >> 32
	if limit == 0 {
		return math.MaxInt
	}
	counter := limitCounter & 0xffffffff
	remaining := int(limit) - int(counter)
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// HandleResponseWithWait resynchronizes the counter from the used
// weight header and enforces a delay when the server complains.
// 418 means the client was banned for repeatedly ignoring 429.
func (l *RateLimiter) HandleResponseWithWait(ctx context.Context, resp *http.Response) (retry bool, err error) {
	if resp.StatusCode == 429 || resp.StatusCode == 418 {
		waitTime := MinWaitTime
		if retryAfter, err := strconv.ParseInt(resp.Header.Get("Retry-After"), 10, 32); err == nil && retryAfter > 0 {
			waitTime = time.Second * time.Duration(retryAfter)
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(waitTime):
			return true, nil
		}
	}
	l.initStartTime()
	usedWeight, parseErr := strconv.ParseUint(resp.Header.Get(usedWeightHeader), 10, 32)
	if parseErr != nil {
		return false, nil
	}
	// The server side counter is authoritative if it is ahead.
	for {
		limitCounter := atomic.LoadUint64(&l.limitCounter)
		limit := limitCounter >> 32
		counter := limitCounter & 0xffffffff
		if limit == 0 || usedWeight <= counter {
			return false, nil
		}
		if atomic.CompareAndSwapUint64(&l.limitCounter, limitCounter, (limit<<32)|usedWeight) {
			return false, nil
		}
	}
}

func (l *RateLimiter) initStartTime() {
	if atomic.LoadInt64(&l.interval) > 0 && atomic.LoadInt64(&l.startTime) == 0 {
		// Initialize start time after first call.
		atomic.CompareAndSwapInt64(&l.startTime, 0, time.Now().UnixMilli())
	}
}
