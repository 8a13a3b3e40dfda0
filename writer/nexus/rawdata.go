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

package nexus

import (
	"fmt"
	"time"
)

// idfVersion is the fixed instrument definition file version this writer
// targets (spec §6: "idf_version (scalar u32, fixed = 2)").
const idfVersion uint32 = 2

// definition is the fixed NeXus application definition name for a muon
// raw-data file, matching the original writer's schematic.
const definition = "muonTD"

// Header is the immutable run header, written once at run start.
type Header struct {
	ProgramName    string
	RunNumber      uint32
	StartTime      time.Time
	InstrumentName string
}

// WriteHeader writes the fixed fields of spec §6's raw_data_1 layout, and
// the fixed placeholder sample/user/instrument sub-groups supplementing
// the distilled spec's layout.
func (f *File) WriteHeader(h Header) error {
	if err := writeScalarU32(f.rawData, "idf_version", idfVersion, ""); err != nil {
		return err
	}
	if err := writeScalarString(f.rawData, "definition", definition); err != nil {
		return err
	}
	if err := writeScalarString(f.rawData, "program_name", h.ProgramName); err != nil {
		return err
	}
	if err := writeScalarU32(f.rawData, "run_number", h.RunNumber, ""); err != nil {
		return err
	}
	if err := writeScalarString(f.rawData, "start_time", h.StartTime.UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	if err := writeStringAttribute(f.rawData, "instrument_name", h.InstrumentName); err != nil {
		return err
	}
	for _, name := range []string{"sample", "user", "instrument"} {
		if _, err := f.rawData.CreateGroup(name); err != nil {
			return fmt.Errorf("nexus: creating %s group: %w", name, err)
		}
	}
	return nil
}

// WriteEndTime records end_time and duration once the run is stopped.
func (f *File) WriteEndTime(start, end time.Time) error {
	if err := overwriteScalarString(f.rawData, "end_time", end.UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	duration := uint32(end.Sub(start).Round(time.Second).Seconds())
	return writeScalarU32(f.rawData, "duration", duration, "second")
}

// WriteFrameCounts records how many frames this run accumulated: every
// frame the Run Writer routed to it (raw) and the subset marked complete
// by the Frame Aggregator (good).
func (f *File) WriteFrameCounts(good, raw uint32) error {
	if err := overwriteScalarU32(f.rawData, "good_frames", good); err != nil {
		return err
	}
	return overwriteScalarU32(f.rawData, "raw_frames", raw)
}

// WriteProtonCharge records the run's accumulated proton charge, in µAh.
// See DESIGN.md for the approximation this value is built from.
func (f *File) WriteProtonCharge(microAmpHours float64) error {
	ds, err := f.rawData.OpenDataset("proton_charge")
	if err != nil {
		return writeScalarF64(f.rawData, "proton_charge", microAmpHours, "uAh")
	}
	defer ds.Close()
	if err := ds.Write(microAmpHours); err != nil {
		return fmt.Errorf("nexus: overwriting scalar proton_charge: %w", err)
	}
	return nil
}
