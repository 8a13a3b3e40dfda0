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

// NumericArray is a typed array of samples, as carried by an se00 selog
// packet's Values field.
type NumericArray struct {
	Kind   ValueKind
	Ints   []int64
	Floats []float64
}

// Len returns the number of values, regardless of Kind.
func (a NumericArray) Len() int {
	if a.Kind == ValueKindFloat {
		return len(a.Floats)
	}
	return len(a.Ints)
}

// SampleEnvData is one se00 selog packet: a batch of samples for a single
// named sample-environment channel (spec §6), each with its own timestamp.
type SampleEnvData struct {
	Name string
	// PacketTimestampNs is nanoseconds since the Unix epoch, used for run
	// routing per spec §4.3.
	PacketTimestampNs int64
	// Timestamps holds one entry per sample, nanoseconds since the Unix
	// epoch, parallel to Values.
	Timestamps []int64
	Values     NumericArray
}
