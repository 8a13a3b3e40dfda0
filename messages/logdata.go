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

// ValueKind tags which field of a LogValue or NumericArray is populated,
// since the wire record carries a single typed scalar or array per message
// rather than a Go interface.
type ValueKind int

const (
	// ValueKindInt marks the Int/Ints field as populated.
	ValueKindInt ValueKind = iota
	// ValueKindFloat marks the Float/Floats field as populated.
	ValueKindFloat
)

// LogValue is a single typed scalar sample, as carried by an f144 logdata
// record.
type LogValue struct {
	Kind  ValueKind
	Int   int64
	Float float64
}

// LogData is one f144 logdata record: a single named process-variable
// sample at a point in time (spec §6).
type LogData struct {
	SourceName string
	// TimestampNs is nanoseconds since the Unix epoch.
	TimestampNs int64
	Value       LogValue
}
