/*
Copyright 2017 Google Inc. All Rights Reserved.
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package aggregator implements the Frame Aggregator: it gathers
// per-digitiser event lists belonging to the same frame and emits a single
// aggregated frame once every expected digitiser has contributed, or once
// the frame's TTL elapses, whichever comes first.
package aggregator

import (
	"sort"
	"time"

	"github.com/golang/groupcache/lru"

	"github.com/pulsemuon/pulse-pipeline/clock"
	"github.com/pulsemuon/pulse-pipeline/messages"
	"github.com/pulsemuon/pulse-pipeline/metrics"
)

// recentlyEmittedSize bounds the recency set used to catch a digitiser
// contribution that arrives after its frame has already been emitted and
// evicted from the active map.
const recentlyEmittedSize = 4096

// PartialFrame is a frame under construction: the set of digitisers that
// have contributed so far, their combined event columns, and an expiry.
type PartialFrame struct {
	Metadata     messages.FrameMetadata
	Contributors map[uint8]bool
	Digitizers   []uint8
	Channel      []uint32
	Time         []uint32
	Voltage      []uint16
	Expiry       time.Time
}

// FrameCache holds every PartialFrame currently under construction.
// Per spec §4.2, it is owned exclusively by the hosting event loop: no
// locking, no concurrent access.
type FrameCache struct {
	expected []uint8
	ttl      time.Duration
	clock    clock.Clock
	metrics  *metrics.Registry

	partials map[messages.FrameKey]*PartialFrame
	// order preserves insertion order; pollCursor rotates through it so
	// that repeated Poll calls are fair (spec §4.2: "no frame is starved
	// indefinitely").
	order      []messages.FrameKey
	pollCursor int

	recent *lru.Cache
}

// NewFrameCache returns an empty FrameCache. expectedDigitisers need not be
// sorted; it is sorted once here for completion comparisons.
func NewFrameCache(expectedDigitisers []uint8, ttl time.Duration, clk clock.Clock, m *metrics.Registry) *FrameCache {
	expected := append([]uint8(nil), expectedDigitisers...)
	sort.Slice(expected, func(i, j int) bool { return expected[i] < expected[j] })

	return &FrameCache{
		expected: expected,
		ttl:      ttl,
		clock:    clk,
		metrics:  m,
		partials: make(map[messages.FrameKey]*PartialFrame),
		recent:   lru.New(recentlyEmittedSize),
	}
}

// Push inserts or merges ev into the PartialFrame identified by meta,
// creating it if absent (spec §4.2's push operation). A (digitiser, frame)
// pair that has already contributed to the still-open partial is rejected
// as a duplicate. Any push for a frame already emitted and still held in
// the recency set is rejected the same way, whichever digitiser sends it.
func (c *FrameCache) Push(digitiserID uint8, meta messages.FrameMetadata, ev messages.DigitiserEventListMessage) {
	key := meta.Key()

	if pf, ok := c.partials[key]; ok {
		if pf.Contributors[digitiserID] {
			c.rejectDuplicate()
			return
		}
		pf.Contributors[digitiserID] = true
		pf.Metadata.VetoFlags |= meta.VetoFlags
		pf.Digitizers = append(pf.Digitizers, digitiserID)
		pf.Channel = append(pf.Channel, ev.Channel...)
		pf.Time = append(pf.Time, ev.Time...)
		pf.Voltage = append(pf.Voltage, ev.Voltage...)
		return
	}

	if _, ok := c.recent.Get(key); ok {
		c.rejectDuplicate()
		return
	}

	pf := &PartialFrame{
		Metadata:     meta,
		Contributors: map[uint8]bool{digitiserID: true},
		Digitizers:   []uint8{digitiserID},
		Channel:      append([]uint32(nil), ev.Channel...),
		Time:         append([]uint32(nil), ev.Time...),
		Voltage:      append([]uint16(nil), ev.Voltage...),
		Expiry:       c.clock.Now().Add(c.ttl),
	}
	c.partials[key] = pf
	c.order = append(c.order, key)
}

func (c *FrameCache) rejectDuplicate() {
	if c.metrics != nil && c.metrics.DuplicateFramesRejected != nil {
		c.metrics.DuplicateFramesRejected.Inc()
	}
}

// Poll returns at most one AggregatedFrame per call: the first partial
// frame found complete (every expected digitiser contributed) or expired
// (TTL elapsed), whichever it reaches first while rotating through the
// insertion order starting from where the previous call left off.
func (c *FrameCache) Poll() (messages.FrameAssembledEventListMessage, bool) {
	n := len(c.order)
	if n == 0 {
		return messages.FrameAssembledEventListMessage{}, false
	}

	now := c.clock.Now()
	for i := 0; i < n; i++ {
		idx := (c.pollCursor + i) % n
		key := c.order[idx]
		pf := c.partials[key]

		complete := c.isComplete(pf)
		expired := now.After(pf.Expiry)
		if !complete && !expired {
			continue
		}

		c.order = append(c.order[:idx], c.order[idx+1:]...)
		delete(c.partials, key)
		c.pollCursor = idx
		c.recent.Add(key, struct{}{})

		if c.metrics != nil {
			if complete && c.metrics.FramesCompleted != nil {
				c.metrics.FramesCompleted.Inc()
			} else if !complete && c.metrics.FramesExpiredIncomplete != nil {
				c.metrics.FramesExpiredIncomplete.Inc()
			}
		}

		return assembleFrame(pf, complete), true
	}

	return messages.FrameAssembledEventListMessage{}, false
}

func (c *FrameCache) isComplete(pf *PartialFrame) bool {
	if len(pf.Contributors) != len(c.expected) {
		return false
	}
	for _, id := range c.expected {
		if !pf.Contributors[id] {
			return false
		}
	}
	return true
}

func assembleFrame(pf *PartialFrame, complete bool) messages.FrameAssembledEventListMessage {
	digitizers := append([]uint8(nil), pf.Digitizers...)
	sort.Slice(digitizers, func(i, j int) bool { return digitizers[i] < digitizers[j] })

	return messages.FrameAssembledEventListMessage{
		Metadata:   pf.Metadata,
		Channel:    pf.Channel,
		Time:       pf.Time,
		Voltage:    pf.Voltage,
		Digitizers: digitizers,
		Complete:   complete,
	}
}

// Len reports the number of partial frames currently under construction.
func (c *FrameCache) Len() int { return len(c.order) }
