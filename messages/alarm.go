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

// Severity is an alarm's severity level, as carried by an al00 record.
type Severity int

const (
	SeverityOK Severity = iota
	SeverityMinor
	SeverityMajor
	SeverityInvalid
)

func (s Severity) String() string {
	switch s {
	case SeverityOK:
		return "OK"
	case SeverityMinor:
		return "MINOR"
	case SeverityMajor:
		return "MAJOR"
	case SeverityInvalid:
		return "INVALID"
	default:
		return "UNKNOWN"
	}
}

// Alarm is one al00 alarm record: a named source's severity change, with an
// optional human-readable message (spec §6).
type Alarm struct {
	SourceName string
	// TimestampNs is nanoseconds since the Unix epoch.
	TimestampNs int64
	Severity    Severity
	Message     string
}
