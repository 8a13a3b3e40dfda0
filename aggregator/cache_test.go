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

package aggregator

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pulsemuon/pulse-pipeline/clock"
	"github.com/pulsemuon/pulse-pipeline/messages"
	"github.com/pulsemuon/pulse-pipeline/metrics"
)

func newTestMetrics() *metrics.Registry {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg, "test")
	m.RegisterAggregatorCounters(reg, prometheus.Labels{"service": "test"})
	return m
}

func frameMeta(frameNumber uint32, vetoFlags uint16) messages.FrameMetadata {
	return messages.FrameMetadata{FrameNumber: frameNumber, PeriodNumber: 1, VetoFlags: vetoFlags}
}

func TestPollEmitsOnceEveryDigitiserContributed(t *testing.T) {
	fc := NewFrameCache([]uint8{0, 1}, time.Minute, clock.NewFakeClock(time.Unix(0, 0)), nil)

	if _, ok := fc.Poll(); ok {
		t.Fatal("Poll() on an empty cache returned a frame")
	}

	fc.Push(0, frameMeta(1, 0), messages.DigitiserEventListMessage{Channel: []uint32{3}, Time: []uint32{10}, Voltage: []uint16{20}})
	if _, ok := fc.Poll(); ok {
		t.Fatal("Poll() returned a frame before every digitiser contributed")
	}

	fc.Push(1, frameMeta(1, 0), messages.DigitiserEventListMessage{Channel: []uint32{4}, Time: []uint32{11}, Voltage: []uint16{21}})
	frame, ok := fc.Poll()
	if !ok {
		t.Fatal("Poll() returned no frame once every digitiser contributed")
	}
	if frame.NumEvents() != 2 {
		t.Errorf("assembled frame has %d events, want 2", frame.NumEvents())
	}
	if got, want := frame.Digitizers, []uint8{0, 1}; len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("Digitizers = %v, want %v", got, want)
	}
}

func TestPollEmitsExpiredIncompleteFrame(t *testing.T) {
	fakeClock := clock.NewFakeClock(time.Unix(0, 0))
	fc := NewFrameCache([]uint8{0, 1}, time.Second, fakeClock, nil)

	fc.Push(0, frameMeta(1, 0), messages.DigitiserEventListMessage{Channel: []uint32{3}})
	fakeClock.Advance(2 * time.Second)

	frame, ok := fc.Poll()
	if !ok {
		t.Fatal("Poll() did not emit an expired incomplete frame")
	}
	if len(frame.Digitizers) != 1 || frame.Digitizers[0] != 0 {
		t.Errorf("expired frame Digitizers = %v, want [0]", frame.Digitizers)
	}
}

func TestPushDuplicateDigitiserIsRejected(t *testing.T) {
	fc := NewFrameCache([]uint8{0, 1}, time.Minute, clock.NewFakeClock(time.Unix(0, 0)), nil)

	fc.Push(0, frameMeta(1, 0), messages.DigitiserEventListMessage{Channel: []uint32{1}})
	fc.Push(0, frameMeta(1, 0), messages.DigitiserEventListMessage{Channel: []uint32{2}})

	fc.Push(1, frameMeta(1, 0), messages.DigitiserEventListMessage{Channel: []uint32{3}})
	frame, ok := fc.Poll()
	if !ok {
		t.Fatal("Poll() returned no frame")
	}
	if frame.NumEvents() != 2 {
		t.Errorf("assembled frame has %d events, want 2 (duplicate push from digitiser 0 must be dropped)", frame.NumEvents())
	}
}

func TestPushVetoFlagsAreOred(t *testing.T) {
	fc := NewFrameCache([]uint8{0, 1}, time.Minute, clock.NewFakeClock(time.Unix(0, 0)), nil)

	fc.Push(0, frameMeta(1, 0b0001), messages.DigitiserEventListMessage{})
	fc.Push(1, frameMeta(1, 0b0010), messages.DigitiserEventListMessage{})

	frame, ok := fc.Poll()
	if !ok {
		t.Fatal("Poll() returned no frame")
	}
	if frame.Metadata.VetoFlags != 0b0011 {
		t.Errorf("Metadata.VetoFlags = %b, want %b", frame.Metadata.VetoFlags, 0b0011)
	}
}

func TestPollIsFairAcrossRepeatedPolling(t *testing.T) {
	fakeClock := clock.NewFakeClock(time.Unix(0, 0))
	fc := NewFrameCache([]uint8{0, 1}, time.Second, fakeClock, nil)

	// Three frames expire simultaneously; repeated Poll calls must return
	// all three rather than only ever returning the first in order.
	fc.Push(0, frameMeta(1, 0), messages.DigitiserEventListMessage{})
	fc.Push(0, frameMeta(2, 0), messages.DigitiserEventListMessage{})
	fc.Push(0, frameMeta(3, 0), messages.DigitiserEventListMessage{})
	fakeClock.Advance(2 * time.Second)

	seen := map[uint32]bool{}
	for i := 0; i < 3; i++ {
		frame, ok := fc.Poll()
		if !ok {
			t.Fatalf("Poll() call %d returned no frame, want one of the 3 expired frames", i)
		}
		seen[frame.Metadata.FrameNumber] = true
	}
	if len(seen) != 3 {
		t.Errorf("Poll() returned %d distinct frames over 3 calls, want 3: %v", len(seen), seen)
	}
	if _, ok := fc.Poll(); ok {
		t.Error("Poll() returned a 4th frame, want cache drained")
	}
}

func TestPushLateDuplicateAfterEmissionIsRejected(t *testing.T) {
	m := newTestMetrics()
	fakeClock := clock.NewFakeClock(time.Unix(0, 0))
	fc := NewFrameCache([]uint8{0}, time.Second, fakeClock, m)

	fc.Push(0, frameMeta(1, 0), messages.DigitiserEventListMessage{})
	if _, ok := fc.Poll(); !ok {
		t.Fatal("Poll() did not emit the completed frame")
	}

	fc.Push(0, frameMeta(1, 0), messages.DigitiserEventListMessage{})
	if fc.Len() != 0 {
		t.Errorf("a late duplicate push re-created the evicted frame; FrameCache.Len() = %d, want 0", fc.Len())
	}
}
