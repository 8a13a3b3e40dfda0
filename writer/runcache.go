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

// Package writer implements the Run Writer: it owns a cache of open runs,
// bounds them by explicit run-start/run-stop commands, routes incoming
// frames/logs/selog/alarms to whichever run's collection window they fall
// in, and flushes idle runs to their structured file.
package writer

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/golang/glog"
	"golang.org/x/time/rate"

	"github.com/pulsemuon/pulse-pipeline/messages"
	"github.com/pulsemuon/pulse-pipeline/metrics"
	"github.com/pulsemuon/pulse-pipeline/writer/nexus"
)

// dropLogRate bounds how often "dropped outside run" warnings are logged
// under a sustained storm of misrouted messages; the counter in metrics
// still sees every occurrence, only the log line is throttled.
const dropLogRate = 1 // per second

// RunCache is the FIFO-ordered set of currently open runs named in
// spec §4.3. At most one run may lack a CollectUntil: a run-start is
// rejected unless the cache is empty or its tail run has already stopped.
type RunCache struct {
	baseDir  string
	cfg      nexus.Config
	metrics  *metrics.Registry
	dropLog  *rate.Limiter
	openFile openFileFunc

	// runs is kept in insertion order; index 0 is the oldest. The tail
	// (last element) is the only run that may still be Open.
	runs []*Run
}

// NewRunCache returns an empty RunCache rooted at baseDir, writing every
// new run's structured file with cfg.
func NewRunCache(baseDir string, cfg nexus.Config, m *metrics.Registry) *RunCache {
	return &RunCache{
		baseDir:  baseDir,
		cfg:      cfg,
		metrics:  m,
		dropLog:  rate.NewLimiter(dropLogRate, 1),
		openFile: openNexusFile,
	}
}

// Len returns the number of runs currently tracked, open or bounded.
func (c *RunCache) Len() int {
	return len(c.runs)
}

// tail returns the most recently started run, or nil if the cache is empty.
func (c *RunCache) tail() *Run {
	if len(c.runs) == 0 {
		return nil
	}
	return c.runs[len(c.runs)-1]
}

// Start opens a new run, failing with ErrUnexpectedRunStart if the tail
// run is still open (spec §4.3's start operation).
func (c *RunCache) Start(msg messages.RunStart) error {
	if t := c.tail(); t != nil && !t.IsBounded() {
		return ErrUnexpectedRunStart
	}

	path := filepath.Join(c.baseDir, msg.RunName)
	file, err := c.openFile(path, c.cfg)
	if err != nil {
		return fmt.Errorf("writer: opening structured file for run %q: %w", msg.RunName, err)
	}

	collectFrom := time.UnixMilli(int64(msg.StartTimeMs)).UTC()
	if err := file.WriteHeader(nexus.Header{
		ProgramName:    "pulse-pipeline",
		RunNumber:      msg.RunNumber,
		StartTime:      collectFrom,
		InstrumentName: msg.InstrumentName,
	}); err != nil {
		file.Close()
		return fmt.Errorf("writer: writing header for run %q: %w", msg.RunName, err)
	}

	run := &Run{
		Name:           msg.RunName,
		InstrumentName: msg.InstrumentName,
		RunNumber:      msg.RunNumber,
		CollectFrom:    collectFrom,
		LastModified:   collectFrom,
		File:           file,
	}
	c.runs = append(c.runs, run)
	glog.Infof("writer: run %q started at %s", run.Name, collectFrom)
	return nil
}

// Stop bounds the tail run's collection window. It applies only to the
// tail run (spec §4.3's stop operation).
func (c *RunCache) Stop(msg messages.RunStop) error {
	run := c.tail()
	if run == nil {
		return ErrUnexpectedRunStop
	}
	if run.IsBounded() {
		return ErrDuplicateRunStop
	}

	stopTime := time.UnixMilli(int64(msg.StopTimeMs)).UTC()
	if !stopTime.After(run.CollectFrom) {
		return ErrRunStopBeforeRunStart
	}

	run.CollectUntil = &stopTime
	run.LastModified = stopTime
	if err := run.File.WriteEndTime(run.CollectFrom, stopTime); err != nil {
		return fmt.Errorf("writer: writing end time for run %q: %w", run.Name, err)
	}
	glog.Infof("writer: run %q stopped at %s", run.Name, stopTime)
	return nil
}

// findRun returns the first (in insertion order) run whose strictly-open
// collection window contains t (spec §4.3's routing rule).
func (c *RunCache) findRun(t time.Time) (*Run, bool) {
	for _, r := range c.runs {
		if r.Contains(t) {
			return r, true
		}
	}
	return nil, false
}

// PushEventList routes an assembled frame into whichever run's window
// contains its timestamp, appending its events and updating the run's
// frame/proton-charge accumulators. A frame matching no open run is
// logged and dropped (spec §4.3).
func (c *RunCache) PushEventList(frame messages.FrameAssembledEventListMessage) error {
	t := frame.Metadata.Timestamp.Time()
	run, ok := c.findRun(t)
	if !ok {
		c.dropOutsideRun("event-list", t)
		return nil
	}

	if err := run.File.AppendEvents(frame); err != nil {
		return fmt.Errorf("writer: appending events to run %q: %w", run.Name, err)
	}

	run.RawFrames++
	if frame.Complete {
		run.GoodFrames++
	}
	run.addProtonCharge(frame.Metadata.ProtonsPerPulse)
	if err := run.File.WriteFrameCounts(run.GoodFrames, run.RawFrames); err != nil {
		return fmt.Errorf("writer: writing frame counts for run %q: %w", run.Name, err)
	}
	if err := run.File.WriteProtonCharge(run.ProtonCharge); err != nil {
		return fmt.Errorf("writer: writing proton charge for run %q: %w", run.Name, err)
	}

	run.LastModified = t
	return nil
}

// PushLogData routes a run-log sample the same way as PushEventList.
func (c *RunCache) PushLogData(d messages.LogData) error {
	t := time.Unix(0, d.TimestampNs).UTC()
	run, ok := c.findRun(t)
	if !ok {
		c.dropOutsideRun("logdata", t)
		return nil
	}
	if err := run.File.AppendLogData(d); err != nil {
		return fmt.Errorf("writer: appending logdata to run %q: %w", run.Name, err)
	}
	run.LastModified = t
	return nil
}

// PushSelog routes a sample-environment packet the same way as
// PushEventList.
func (c *RunCache) PushSelog(d messages.SampleEnvData) error {
	t := time.Unix(0, d.PacketTimestampNs).UTC()
	run, ok := c.findRun(t)
	if !ok {
		c.dropOutsideRun("selog", t)
		return nil
	}
	if err := run.File.AppendSelog(d); err != nil {
		return fmt.Errorf("writer: appending selog to run %q: %w", run.Name, err)
	}
	run.LastModified = t
	return nil
}

// PushAlarm routes an alarm the same way as PushEventList.
func (c *RunCache) PushAlarm(a messages.Alarm) error {
	t := time.Unix(0, a.TimestampNs).UTC()
	run, ok := c.findRun(t)
	if !ok {
		c.dropOutsideRun("alarm", t)
		return nil
	}
	if err := run.File.AppendAlarm(a); err != nil {
		return fmt.Errorf("writer: appending alarm to run %q: %w", run.Name, err)
	}
	run.LastModified = t
	return nil
}

func (c *RunCache) dropOutsideRun(kind string, t time.Time) {
	if c.metrics != nil && c.metrics.EventsRoutedOutsideRun != nil {
		c.metrics.EventsRoutedOutsideRun.Inc()
	}
	if c.dropLog.Allow() {
		glog.Warningf("writer: dropping %s at %s: no open run's window contains it", kind, t)
	}
}

// Flush closes and removes every bounded run whose idle time (now minus
// LastModified) exceeds delay (spec §4.3). Open runs, and bounded runs
// still within delay, are left in the cache.
func (c *RunCache) Flush(now time.Time, delay time.Duration) {
	kept := c.runs[:0]
	for _, r := range c.runs {
		if r.IsBounded() && now.Sub(r.LastModified) > delay {
			if err := r.File.Close(); err != nil {
				glog.Errorf("writer: closing run %q: %v", r.Name, err)
			}
			if c.metrics != nil && c.metrics.RunsFlushed != nil {
				c.metrics.RunsFlushed.Inc()
			}
			glog.Infof("writer: run %q flushed", r.Name)
			continue
		}
		kept = append(kept, r)
	}
	c.runs = kept
}
