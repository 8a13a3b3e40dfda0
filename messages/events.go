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

package messages

// PulseEvent is one detected pulse on one channel, the unit both detector
// algorithms emit.
type PulseEvent struct {
	Channel uint32
	// TimeNs is the pulse's time within the frame, in nanoseconds (the
	// start edge for mode A, the steepest-rise sample for mode B).
	TimeNs uint32
	// Intensity is the detector's estimate of pulse amplitude (peak height
	// for mode B; always zero for mode A, which records timing only).
	Intensity uint16
}

// DigitiserEventListMessage is the Pulse Detector's output: one digitiser's
// detected pulses for one frame, stored as parallel columns to mirror the
// wire layout described in spec §6.
type DigitiserEventListMessage struct {
	DigitizerID uint8
	Metadata    FrameMetadata
	Channel     []uint32
	Time        []uint32
	Voltage     []uint16
}

// NumEvents returns the number of events in the list.
func (m DigitiserEventListMessage) NumEvents() int {
	return len(m.Channel)
}

// AppendEvent appends one PulseEvent's columns in place.
func (m *DigitiserEventListMessage) AppendEvent(e PulseEvent) {
	m.Channel = append(m.Channel, e.Channel)
	m.Time = append(m.Time, e.TimeNs)
	m.Voltage = append(m.Voltage, e.Intensity)
}

// FrameAssembledEventListMessage is the Frame Aggregator's output: the
// union of every digitiser's events for one completed or expired frame.
type FrameAssembledEventListMessage struct {
	Metadata FrameMetadata
	Channel  []uint32
	Time     []uint32
	Voltage  []uint16
	// Digitizers lists, in ascending order, the digitiser IDs that
	// contributed to this frame (spec §4.2's "contributing set").
	Digitizers []uint8
	// Complete reports whether every expected digitiser contributed
	// before this frame was emitted, as opposed to having been emitted
	// early because its TTL expired (spec §4.2's completion/expiry
	// tie-break; consumed by the Run Writer's good/raw frame counters).
	Complete bool
}

// NumEvents returns the number of events in the assembled frame.
func (m FrameAssembledEventListMessage) NumEvents() int {
	return len(m.Channel)
}
