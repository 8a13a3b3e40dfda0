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

// Package messages defines the records carried on the message bus between
// the Pulse Detector, Frame Aggregator and Run Writer. The wire schema of
// each record is treated as opaque (see the codec in codec.go); this file
// and its siblings only name the fields the core pipeline reads and writes.
package messages

import (
	"time"

	"github.com/golang/protobuf/ptypes"
	tspb "github.com/golang/protobuf/ptypes/timestamp"
)

// GpsTime is an absolute wall-clock instant as carried on the wire. It
// round-trips through the well-known protobuf Timestamp type, the same
// conversion helper the rest of this lineage uses for canonical time
// marshalling.
type GpsTime struct {
	Seconds int64
	Nanos   int32
}

// NewGpsTime converts a time.Time into wire form.
func NewGpsTime(t time.Time) GpsTime {
	ts, err := ptypes.TimestampProto(t)
	if err != nil {
		// Out-of-range instants clamp to the zero time rather than panic;
		// callers that need a valid frame window should never produce one.
		return GpsTime{}
	}
	return GpsTime{Seconds: ts.Seconds, Nanos: ts.Nanos}
}

// Time converts back to a time.Time.
func (g GpsTime) Time() time.Time {
	t, err := ptypes.Timestamp(&tspb.Timestamp{Seconds: g.Seconds, Nanos: g.Nanos})
	if err != nil {
		return time.Unix(g.Seconds, int64(g.Nanos)).UTC()
	}
	return t
}

// UnixNano returns the instant as nanoseconds since the Unix epoch, used as
// the comparable component of FrameKey.
func (g GpsTime) UnixNano() int64 {
	return g.Seconds*int64(time.Second) + int64(g.Nanos)
}

// FrameMetadata is the composite identity of a frame (spec §3). Equality
// and hashing (via Key) deliberately exclude VetoFlags: they are merged by
// OR as digitisers contribute to a partial frame (spec §4.2).
type FrameMetadata struct {
	Timestamp       GpsTime
	FrameNumber     uint32
	PeriodNumber    uint64
	ProtonsPerPulse uint8
	Running         bool
	VetoFlags       uint16
}

// FrameKey is the comparable, hashable identity of a FrameMetadata, usable
// directly as a Go map key. It excludes VetoFlags.
type FrameKey struct {
	TimestampUnixNano int64
	FrameNumber       uint32
	PeriodNumber      uint64
	ProtonsPerPulse   uint8
	Running           bool
}

// Key returns the map key for this metadata, ignoring VetoFlags.
func (m FrameMetadata) Key() FrameKey {
	return FrameKey{
		TimestampUnixNano: m.Timestamp.UnixNano(),
		FrameNumber:       m.FrameNumber,
		PeriodNumber:      m.PeriodNumber,
		ProtonsPerPulse:   m.ProtonsPerPulse,
		Running:           m.Running,
	}
}
