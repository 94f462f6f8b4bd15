// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package marketdata

import (
	"fmt"
	"sync"

	"github.com/zhangyunhao116/skipmap"
)

// ChanMap fans incoming stream data out to per-key subscriber
// channels. The stream reader writes concurrently with UI driven
// subscribe/unsubscribe calls, which is why the map is lock free.
type ChanMap[T any] struct {
	sm                    *skipmap.StringMap[chan T]
	pendingCloseList      []chan T
	pendingCloseListMutex sync.Mutex
}

func NewChanMap[T any]() *ChanMap[T] {
	return &ChanMap[T]{
		sm: skipmap.NewString[chan T](),
	}
}

func (m *ChanMap[T]) addPendingClose(c chan T) {
	m.pendingCloseListMutex.Lock()
	m.pendingCloseList = append(m.pendingCloseList, c)
	m.pendingCloseListMutex.Unlock()
}

// ClearPendingClose closes channels of unsubscribed keys. It is
// called by the stream reader between messages, so a channel is never
// closed while data for it may still be in flight.
func (m *ChanMap[T]) ClearPendingClose() {
	m.pendingCloseListMutex.Lock()
	for _, c := range m.pendingCloseList {
		close(c)
	}
	m.pendingCloseList = nil
	m.pendingCloseListMutex.Unlock()
}

// Clear closes all subscriber channels, e.g. when the stream
// connection terminates.
func (m *ChanMap[T]) Clear() {
	m.sm.Range(
		func(k string, c chan T) bool {
			close(c)
			return true
		},
	)
	m.sm = skipmap.NewString[chan T]()
}

func (m *ChanMap[T]) Subscribe(key string) (chan T, error) {
	// Buffered, so that old entries can be dropped when the consumer
	// is too slow. New realtime data always wins over old data.
	c := make(chan T, 1024)
	var err error
	_, exists := m.sm.LoadOrStore(key, c)
	if exists {
		err = fmt.Errorf("already subscribed to %s", key)
		c = nil
	}
	return c, err
}

func (m *ChanMap[T]) Unsubscribe(key string) error {
	var err error
	if c, exists := m.sm.LoadAndDelete(key); exists {
		// Closing here could race with the stream reader, so the
		// channel is closed on its next ClearPendingClose call.
		m.addPendingClose(c)
	} else {
		err = fmt.Errorf("cannot unsubscribe %s: not subscribed", key)
	}
	return err
}

// Publish sends data to the subscriber of the key, dropping the
// oldest buffered entry when the channel is full.
func (m *ChanMap[T]) Publish(key string, data T) error {
	c, exists := m.sm.Load(key)
	var err error
	if exists {
		select {
		case c <- data:
		default:
			select {
			case <-c:
				select {
				case c <- data:
					err = fmt.Errorf("%s: buffer overflow, old realtime data was dropped", key)
				default:
					err = fmt.Errorf("%s: buffer overflow, new realtime data was dropped", key)
				}
			default:
				err = fmt.Errorf("%s: buffer cannot be read from or written to", key)
			}
		}
	}
	// Silently ignore unknown keys, this happens while unsubscribing.
	return err
}
