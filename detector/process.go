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

package detector

import (
	"fmt"
	"sync"

	"github.com/pulsemuon/pulse-pipeline/messages"
	"github.com/pulsemuon/pulse-pipeline/metrics"
)

// Detector is the Pulse Detector's "process trace -> event list"
// capability (spec §4.1), bound to one selected algorithm for the life of
// the process.
type Detector struct {
	Algorithm ChannelAlgorithm
	Metrics   *metrics.Registry // may be nil in tests
}

// New returns a Detector running algo.
func New(algo ChannelAlgorithm, reg *metrics.Registry) *Detector {
	return &Detector{Algorithm: algo, Metrics: reg}
}

// ProcessTrace is process_trace from spec §4.1: a pure function of msg
// under the Detector's fixed configuration. Channels are processed
// independently (and may run concurrently) but are always reassembled in
// their input order before the single output message is returned.
func (d *Detector) ProcessTrace(msg messages.DigitizerAnalogTraceMessage) (messages.DigitiserEventListMessage, error) {
	if msg.SampleRate == 0 {
		return messages.DigitiserEventListMessage{}, fmt.Errorf("detector: trace for digitiser %d has a zero sample rate", msg.DigitizerID)
	}
	intervalNs := msg.SampleIntervalNs()

	perChannel := make([][]messages.PulseEvent, len(msg.Channels))
	var wg sync.WaitGroup
	for i, ch := range msg.Channels {
		wg.Add(1)
		go func(i int, ch messages.ChannelTrace) {
			defer wg.Done()
			perChannel[i] = d.detectChannel(ch, intervalNs)
		}(i, ch)
	}
	wg.Wait()

	out := messages.DigitiserEventListMessage{
		DigitizerID: msg.DigitizerID,
		Metadata:    msg.Metadata,
	}
	for _, events := range perChannel {
		for _, e := range events {
			out.AppendEvent(e)
		}
	}
	return out, nil
}

// detectChannel runs the algorithm on one channel and converts its raw
// pulses into wire events. An empty sample vector is a malformed channel
// and is dropped silently, per spec §4.1's failure semantics.
func (d *Detector) detectChannel(ch messages.ChannelTrace, intervalNs float64) []messages.PulseEvent {
	if len(ch.Voltage) == 0 {
		return nil
	}

	raw := d.Algorithm.DetectChannel(ch.Voltage)
	events := make([]messages.PulseEvent, 0, len(raw))
	for _, p := range raw {
		timeNs := float64(p.sampleIndex) * intervalNs
		if timeNs < 0 {
			if d.Metrics != nil && d.Metrics.NegativeTimePulsesDropped != nil {
				d.Metrics.NegativeTimePulsesDropped.Inc()
			}
			continue
		}
		events = append(events, messages.PulseEvent{
			Channel:   ch.Channel,
			TimeNs:    uint32(timeNs),
			Intensity: saturateUint16(p.amplitude),
		})
	}
	return events
}
