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

package writer

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pulsemuon/pulse-pipeline/messages"
	"github.com/pulsemuon/pulse-pipeline/metrics"
	"github.com/pulsemuon/pulse-pipeline/writer/nexus"
)

func newTestRunCache(t *testing.T) (*RunCache, map[string]*fakeFile) {
	t.Helper()
	files := map[string]*fakeFile{}
	reg := prometheus.NewRegistry()
	m := metrics.New(reg, "run-writer")
	m.RegisterWriterCounters(reg, prometheus.Labels{"service": "run-writer"})
	c := NewRunCache("/data", nexus.Config{EventChunkSize: 64, FrameChunkSize: 64}, m)
	c.openFile = newFakeOpenFile(files)
	return c, files
}

func atSeconds(s int64) time.Time { return time.Unix(s, 0).UTC() }

func frameAt(s int64, complete bool, digitizers []uint8) messages.FrameAssembledEventListMessage {
	return messages.FrameAssembledEventListMessage{
		Metadata: messages.FrameMetadata{
			Timestamp:       messages.NewGpsTime(atSeconds(s)),
			ProtonsPerPulse: 10,
		},
		Channel:    []uint32{0},
		Time:       []uint32{100},
		Voltage:    []uint16{42},
		Digitizers: digitizers,
		Complete:   complete,
	}
}

// TestRunStartEventRunStop exercises scenario S4: start run, one frame
// lands inside its window, then the run is stopped.
func TestRunStartEventRunStop(t *testing.T) {
	c, files := newTestRunCache(t)

	if err := c.Start(messages.RunStart{RunName: "R1", InstrumentName: "MuSR", StartTimeMs: 15000}); err != nil {
		t.Fatalf("Start: %v", err)
	}

	frame := frameAt(16, true, []uint8{1, 2})
	if err := c.PushEventList(frame); err != nil {
		t.Fatalf("PushEventList: %v", err)
	}

	if err := c.Stop(messages.RunStop{RunName: "R1", StopTimeMs: 17000}); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	f, ok := files["/data/R1"]
	if !ok {
		t.Fatalf("run R1's structured file was never created")
	}
	if diff := cmp.Diff([]messages.FrameAssembledEventListMessage{frame}, f.events); diff != "" {
		t.Errorf("events appended (-want +got):\n%s", diff)
	}
	if f.endTime == nil {
		t.Fatal("end_time was never written")
	}
	if f.rawFrames != 1 || f.goodFrames != 1 {
		t.Errorf("frame counts = good:%d raw:%d, want good:1 raw:1", f.goodFrames, f.rawFrames)
	}
}

// TestRunStartWithoutStopRejectsSecondStart exercises scenario S5.
func TestRunStartWithoutStopRejectsSecondStart(t *testing.T) {
	c, _ := newTestRunCache(t)

	if err := c.Start(messages.RunStart{RunName: "R1", StartTimeMs: 0}); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	err := c.Start(messages.RunStart{RunName: "R2", StartTimeMs: 0})
	if err != ErrUnexpectedRunStart {
		t.Errorf("second Start error = %v, want ErrUnexpectedRunStart", err)
	}
	if c.Len() != 1 || c.tail().Name != "R1" {
		t.Errorf("run_cache = %v, want only R1", c.runs)
	}
}

// TestEventOutsideAnyRunIsDropped exercises scenario S6.
func TestEventOutsideAnyRunIsDropped(t *testing.T) {
	c, files := newTestRunCache(t)

	frame := frameAt(5, true, []uint8{1})
	if err := c.PushEventList(frame); err != nil {
		t.Fatalf("PushEventList: %v", err)
	}
	if len(files) != 0 {
		t.Errorf("no run was open; expected no structured file to be created, got %v", files)
	}
}

func TestStopWithoutOpenRunIsRejected(t *testing.T) {
	c, _ := newTestRunCache(t)
	if err := c.Stop(messages.RunStop{RunName: "R1", StopTimeMs: 0}); err != ErrUnexpectedRunStop {
		t.Errorf("Stop on empty cache = %v, want ErrUnexpectedRunStop", err)
	}
}

func TestStopBeforeStartTimeIsRejected(t *testing.T) {
	c, _ := newTestRunCache(t)
	if err := c.Start(messages.RunStart{RunName: "R1", StartTimeMs: 10000}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	err := c.Stop(messages.RunStop{RunName: "R1", StopTimeMs: 10000})
	if err != ErrRunStopBeforeRunStart {
		t.Errorf("Stop at == start time = %v, want ErrRunStopBeforeRunStart", err)
	}
}

func TestDuplicateStopIsRejected(t *testing.T) {
	c, _ := newTestRunCache(t)
	if err := c.Start(messages.RunStart{RunName: "R1", StartTimeMs: 0}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := c.Stop(messages.RunStop{RunName: "R1", StopTimeMs: 1000}); err != nil {
		t.Fatalf("first Stop: %v", err)
	}
	if err := c.Stop(messages.RunStop{RunName: "R1", StopTimeMs: 2000}); err != ErrDuplicateRunStop {
		t.Errorf("second Stop = %v, want ErrDuplicateRunStop", err)
	}
}

// TestRunStartAllowedAfterPriorRunStopped confirms a second run can open
// once the first's tail is bounded, matching the FIFO/tail-only model.
func TestRunStartAllowedAfterPriorRunStopped(t *testing.T) {
	c, files := newTestRunCache(t)

	if err := c.Start(messages.RunStart{RunName: "R1", StartTimeMs: 0}); err != nil {
		t.Fatalf("Start R1: %v", err)
	}
	if err := c.Stop(messages.RunStop{RunName: "R1", StopTimeMs: 1000}); err != nil {
		t.Fatalf("Stop R1: %v", err)
	}
	if err := c.Start(messages.RunStart{RunName: "R2", StartTimeMs: 2000}); err != nil {
		t.Fatalf("Start R2: %v", err)
	}
	if c.Len() != 2 {
		t.Errorf("run_cache length = %d, want 2", c.Len())
	}
	if _, ok := files["/data/R2"]; !ok {
		t.Error("R2's structured file was never created")
	}
}

// TestFlushClosesOnlyIdleBoundedRuns exercises the flush(delay) operation.
func TestFlushClosesOnlyIdleBoundedRuns(t *testing.T) {
	c, files := newTestRunCache(t)

	if err := c.Start(messages.RunStart{RunName: "R1", StartTimeMs: 0}); err != nil {
		t.Fatalf("Start R1: %v", err)
	}
	if err := c.Stop(messages.RunStop{RunName: "R1", StopTimeMs: 1000}); err != nil {
		t.Fatalf("Stop R1: %v", err)
	}

	c.Flush(atSeconds(1).Add(time.Second), 5*time.Second)
	if c.Len() != 1 {
		t.Fatalf("run flushed before idle delay elapsed: run_cache length = %d", c.Len())
	}

	c.Flush(atSeconds(1).Add(10*time.Second), 5*time.Second)
	if c.Len() != 0 {
		t.Errorf("run_cache length = %d after idle flush, want 0", c.Len())
	}
	if !files["/data/R1"].closed {
		t.Error("R1's structured file was never closed")
	}
}

// TestFlushIsIdempotent confirms repeated flush calls with no intervening
// writes don't error or re-close an already-removed run.
func TestFlushIsIdempotent(t *testing.T) {
	c, _ := newTestRunCache(t)
	if err := c.Start(messages.RunStart{RunName: "R1", StartTimeMs: 0}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := c.Stop(messages.RunStop{RunName: "R1", StopTimeMs: 1000}); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	now := atSeconds(1).Add(time.Hour)
	c.Flush(now, time.Second)
	c.Flush(now, time.Second)
	c.Flush(now, time.Second)
	if c.Len() != 0 {
		t.Errorf("run_cache length = %d, want 0", c.Len())
	}
}
