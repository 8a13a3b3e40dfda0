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

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestEncodeDecodeDigitiserEventList(t *testing.T) {
	want := DigitiserEventListMessage{
		DigitizerID: 3,
		Metadata: FrameMetadata{
			FrameNumber:     7,
			PeriodNumber:    1,
			ProtonsPerPulse: 10,
			Running:         true,
		},
		Channel: []uint32{0, 1, 0},
		Time:    []uint32{100, 150, 9000},
		Voltage: []uint16{512, 600, 480},
	}

	data, err := Encode(SchemaDigitiserEventList, want)
	if err != nil {
		t.Fatalf("Encode() returned error: %v", err)
	}

	gotSchema, err := PeekSchemaID(data)
	if err != nil {
		t.Fatalf("PeekSchemaID() returned error: %v", err)
	}
	if gotSchema != SchemaDigitiserEventList {
		t.Errorf("PeekSchemaID() = %q, want %q", gotSchema, SchemaDigitiserEventList)
	}

	got, err := DecodeDigitiserEventList(data)
	if err != nil {
		t.Fatalf("DecodeDigitiserEventList() returned error: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("DecodeDigitiserEventList() mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeSchemaMismatch(t *testing.T) {
	data, err := Encode(SchemaAlarm, Alarm{SourceName: "vacuum"})
	if err != nil {
		t.Fatalf("Encode() returned error: %v", err)
	}
	if _, err := DecodeRunStart(data); err == nil {
		t.Error("DecodeRunStart() on an al00 envelope: got nil error, want mismatch error")
	}
}

func TestFrameMetadataKeyIgnoresVetoFlags(t *testing.T) {
	a := FrameMetadata{FrameNumber: 1, PeriodNumber: 2, ProtonsPerPulse: 3, Running: true, VetoFlags: 0}
	b := a
	b.VetoFlags = 0xFF

	if a.Key() != b.Key() {
		t.Errorf("Key() differs after only VetoFlags changed: %+v vs %+v", a.Key(), b.Key())
	}
}

func TestFrameMetadataKeyDistinguishesFrameNumber(t *testing.T) {
	a := FrameMetadata{FrameNumber: 1}
	b := FrameMetadata{FrameNumber: 2}

	if a.Key() == b.Key() {
		t.Error("Key() equal for different FrameNumber values")
	}
}
