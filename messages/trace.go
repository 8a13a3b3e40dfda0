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

// ChannelTrace is one digitised channel's raw waveform within a single
// frame, as produced by the digitiser hardware.
type ChannelTrace struct {
	Channel uint32
	Voltage []uint16
}

// DigitizerAnalogTraceMessage is the wire record consumed by the Pulse
// Detector: one digitiser's full set of channel traces for one frame.
type DigitizerAnalogTraceMessage struct {
	DigitizerID uint8
	// SampleRate is in samples per second; it converts a trace sample
	// index into a time-within-frame offset.
	SampleRate uint64
	Metadata   FrameMetadata
	Channels   []ChannelTrace
}

// SampleIntervalNs is the duration, in nanoseconds, between two consecutive
// samples at this trace's sample rate.
func (m DigitizerAnalogTraceMessage) SampleIntervalNs() float64 {
	if m.SampleRate == 0 {
		return 0
	}
	return 1e9 / float64(m.SampleRate)
}
