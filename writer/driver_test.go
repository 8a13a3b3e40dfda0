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
	"context"
	"testing"
	"time"

	"github.com/pulsemuon/pulse-pipeline/broker"
	"github.com/pulsemuon/pulse-pipeline/clock"
	"github.com/pulsemuon/pulse-pipeline/messages"
)

// pushAndReceive encodes payload under schemaID, seeds it into fb, and
// reads it straight back as the broker.Message a real Receive would yield.
func pushAndReceive(t *testing.T, ctx context.Context, fb *broker.FakeBroker, schemaID messages.SchemaID, payload interface{}) broker.Message {
	t.Helper()
	encoded, err := messages.Encode(schemaID, payload)
	if err != nil {
		t.Fatalf("Encode(%s): %v", schemaID, err)
	}
	fb.Push(nil, encoded)
	msg, err := fb.Consumer().Receive(ctx)
	if err != nil {
		t.Fatalf("Receive(): %v", err)
	}
	return msg
}

func TestDriverRoutesRunStartEventRunStop(t *testing.T) {
	ctx := context.Background()
	cache, files := newTestRunCache(t)
	fb := broker.NewFakeBroker("control")
	d := &Driver{Cache: cache, Consumer: fb.Consumer()}

	d.handleMessage(ctx, pushAndReceive(t, ctx, fb, messages.SchemaRunStart,
		messages.RunStart{RunName: "R1", StartTimeMs: 15000}))
	d.handleMessage(ctx, pushAndReceive(t, ctx, fb, messages.SchemaFrameAssembledEventList,
		frameAt(16, true, []uint8{1})))
	d.handleMessage(ctx, pushAndReceive(t, ctx, fb, messages.SchemaRunStop,
		messages.RunStop{RunName: "R1", StopTimeMs: 17000}))

	f, ok := files["/data/R1"]
	if !ok {
		t.Fatal("run R1 was never started")
	}
	if len(f.events) != 1 {
		t.Errorf("events appended = %d, want 1", len(f.events))
	}
	if f.endTime == nil {
		t.Error("end_time was never written")
	}
}

func TestDriverDropsEventListOutsideAnyRun(t *testing.T) {
	ctx := context.Background()
	cache, files := newTestRunCache(t)
	fb := broker.NewFakeBroker("frames")
	d := &Driver{Cache: cache, Consumer: fb.Consumer()}

	d.handleMessage(ctx, pushAndReceive(t, ctx, fb, messages.SchemaFrameAssembledEventList,
		frameAt(5, true, []uint8{1})))

	if len(files) != 0 {
		t.Errorf("expected no run to be created, got %v", files)
	}
}

func TestDriverUnexpectedRunStartIsLoggedNotFatal(t *testing.T) {
	ctx := context.Background()
	cache, _ := newTestRunCache(t)
	fb := broker.NewFakeBroker("control")
	d := &Driver{Cache: cache, Consumer: fb.Consumer()}

	d.handleMessage(ctx, pushAndReceive(t, ctx, fb, messages.SchemaRunStart,
		messages.RunStart{RunName: "R1", StartTimeMs: 0}))
	d.handleMessage(ctx, pushAndReceive(t, ctx, fb, messages.SchemaRunStart,
		messages.RunStart{RunName: "R2", StartTimeMs: 0}))

	if cache.Len() != 1 || cache.tail().Name != "R1" {
		t.Errorf("run_cache should still contain only R1, got length %d", cache.Len())
	}
}

func TestDriverFlushTickClosesIdleBoundedRun(t *testing.T) {
	cache, files := newTestRunCache(t)
	if err := cache.Start(messages.RunStart{RunName: "R1", StartTimeMs: 0}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := cache.Stop(messages.RunStop{RunName: "R1", StopTimeMs: 1000}); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	fc := clock.NewFakeClock(atSeconds(1).Add(time.Hour))
	d := &Driver{Cache: cache, Clock: fc, FlushDelay: time.Second}
	d.Cache.Flush(d.Clock.Now(), d.FlushDelay)

	if cache.Len() != 0 {
		t.Errorf("run_cache length = %d, want 0 after idle flush", cache.Len())
	}
	if !files["/data/R1"].closed {
		t.Error("R1's structured file was never closed")
	}
}
