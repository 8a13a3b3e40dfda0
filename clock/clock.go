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

// Package clock abstracts wall-clock time and periodic wakeups so the
// frame-expiry and run-flush timers in the pipeline can be driven
// deterministically in tests.
package clock

import "time"

// Clock is a thin indirection over time.Now, so components can be tested
// with a fixed or controllable notion of "now".
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// New returns a Clock backed by the real wall clock.
func New() Clock { return realClock{} }

// Ticker is a thin indirection over time.Ticker, allowing periodic-wakeup
// loops (cache polling, run flushing) to be driven by a fake in tests.
type Ticker interface {
	GetChannel() <-chan time.Time
	Stop()
}

type realTicker struct {
	t *time.Ticker
}

// NewTicker returns a Ticker that fires every d, backed by a real time.Ticker.
func NewTicker(d time.Duration) Ticker {
	return &realTicker{t: time.NewTicker(d)}
}

func (r *realTicker) GetChannel() <-chan time.Time { return r.t.C }
func (r *realTicker) Stop()                        { r.t.Stop() }

// FakeClock is a controllable Clock for tests.
type FakeClock struct {
	now time.Time
}

// NewFakeClock returns a FakeClock initialized to t.
func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{now: t}
}

func (f *FakeClock) Now() time.Time { return f.now }

// Advance moves the fake clock forward by d.
func (f *FakeClock) Advance(d time.Duration) {
	f.now = f.now.Add(d)
}

// Set moves the fake clock to t.
func (f *FakeClock) Set(t time.Time) {
	f.now = t
}

// FakeTicker is a controllable Ticker for tests: tests call Tick to
// simulate one firing instead of waiting on a real timer.
type FakeTicker struct {
	c chan time.Time
}

// NewFakeTicker returns a FakeTicker whose channel only fires when Tick is
// called explicitly.
func NewFakeTicker() *FakeTicker {
	return &FakeTicker{c: make(chan time.Time, 1)}
}

func (f *FakeTicker) GetChannel() <-chan time.Time { return f.c }
func (f *FakeTicker) Stop()                        {}

// Tick fires the ticker once with the given time.
func (f *FakeTicker) Tick(t time.Time) {
	f.c <- t
}
