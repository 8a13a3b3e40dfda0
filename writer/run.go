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

import "time"

// protonChargeMicroAmpHoursPerPulse is the facility-specific scaling
// constant this writer uses to turn protons-per-pulse into an
// approximate µAh accumulation. The real calibration is facility
// configuration outside this spec's scope; see DESIGN.md.
const protonChargeMicroAmpHoursPerPulse = 1e-9

// Run is the writer's in-memory state for one run: its parsed run-start
// parameters, an open structured file, and the accumulators populated as
// frames are appended.
type Run struct {
	Name           string
	InstrumentName string
	RunNumber      uint32

	// CollectFrom is the run's opening instant; events strictly after it
	// are eligible for this run.
	CollectFrom time.Time
	// CollectUntil is nil while the run is still Open; set on stop.
	CollectUntil *time.Time
	// LastModified advances on every successful write, and drives the
	// idle-based flush.
	LastModified time.Time

	File runFile

	GoodFrames   uint32
	RawFrames    uint32
	ProtonCharge float64
}

// IsBounded reports whether the run has been stopped (collect_until set).
func (r *Run) IsBounded() bool {
	return r.CollectUntil != nil
}

// Contains reports whether t falls within this run's strictly-open
// collection window, treating an unset CollectUntil as +∞ (spec §4.3).
func (r *Run) Contains(t time.Time) bool {
	if !t.After(r.CollectFrom) {
		return false
	}
	if r.CollectUntil != nil && !t.Before(*r.CollectUntil) {
		return false
	}
	return true
}

// addProtonCharge accumulates one frame's contribution, in µAh, keyed by
// its protons-per-pulse reading.
func (r *Run) addProtonCharge(protonsPerPulse uint8) {
	r.ProtonCharge += float64(protonsPerPulse) * protonChargeMicroAmpHoursPerPulse
}
