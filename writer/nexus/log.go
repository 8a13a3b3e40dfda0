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

	"gonum.org/v1/hdf5"

	"github.com/pulsemuon/pulse-pipeline/messages"
)

const logChunkSize = 256

// openOrCreateSubGroup walks group/name, creating name if absent.
func openOrCreateSubGroup(group *hdf5.Group, name string) (*hdf5.Group, error) {
	g, err := group.OpenGroup(name)
	if err == nil {
		return g, nil
	}
	g, err = group.CreateGroup(name)
	if err != nil {
		return nil, fmt.Errorf("nexus: creating %s group: %w", name, err)
	}
	return g, nil
}

// AppendLogData appends one f144 sample onto runlog/<source_name>/time and
// .../value, creating the source's sub-group on first sight (spec §6's
// "runlog/<source_name>/ ... created lazily on first message").
func (f *File) AppendLogData(d messages.LogData) error {
	runlog, err := openOrCreateSubGroup(f.rawData, "runlog")
	if err != nil {
		return err
	}
	defer runlog.Close()

	source, err := openOrCreateSubGroup(runlog, d.SourceName)
	if err != nil {
		return err
	}
	defer source.Close()

	if err := appendI64(source, "time", logChunkSize, []int64{d.TimestampNs}); err != nil {
		return err
	}

	switch d.Value.Kind {
	case messages.ValueKindFloat:
		return appendF64(source, "value", logChunkSize, []float64{d.Value.Float})
	default:
		return appendI64(source, "value", logChunkSize, []int64{d.Value.Int})
	}
}

// AppendSelog appends one se00 packet's samples onto
// selog/<name>/value_log/time and .../value (spec §6), extending both
// datasets by the whole batch in one call.
func (f *File) AppendSelog(d messages.SampleEnvData) error {
	valueLog, err := f.selogValueLog(d.Name)
	if err != nil {
		return err
	}
	defer valueLog.Close()

	if err := appendI64(valueLog, "time", logChunkSize, d.Timestamps); err != nil {
		return err
	}

	switch d.Values.Kind {
	case messages.ValueKindFloat:
		return appendF64(valueLog, "value", logChunkSize, d.Values.Floats)
	default:
		return appendI64(valueLog, "value", logChunkSize, d.Values.Ints)
	}
}

// selogValueLog returns (creating if necessary) selog/<name>/value_log.
func (f *File) selogValueLog(name string) (*hdf5.Group, error) {
	selog, err := openOrCreateSubGroup(f.rawData, "selog")
	if err != nil {
		return nil, err
	}
	defer selog.Close()

	source, err := openOrCreateSubGroup(selog, name)
	if err != nil {
		return nil, err
	}
	defer source.Close()

	return openOrCreateSubGroup(source, "value_log")
}

// AppendAlarm appends one al00 alarm onto
// selog/<source_name>/alarm_time, alarm_severity and alarm_status,
// alongside whatever value_log the same source already has (spec §6:
// "alarms attach to the selog source they name, independent of whether a
// sample-environment value for that source has arrived yet").
func (f *File) AppendAlarm(a messages.Alarm) error {
	selog, err := openOrCreateSubGroup(f.rawData, "selog")
	if err != nil {
		return err
	}
	defer selog.Close()

	source, err := openOrCreateSubGroup(selog, a.SourceName)
	if err != nil {
		return err
	}
	defer source.Close()

	if err := appendI64(source, "alarm_time", logChunkSize, []int64{a.TimestampNs}); err != nil {
		return err
	}
	if err := appendU16(source, "alarm_severity", logChunkSize, []uint16{uint16(a.Severity)}); err != nil {
		return err
	}
	return writeAlarmStatus(source, a.Message)
}

// writeAlarmStatus appends the alarm's human-readable message onto
// alarm_status, a variable-length string dataset (the one append target
// in this layout that isn't a fixed-width numeric type).
func writeAlarmStatus(group *hdf5.Group, message string) error {
	dtype, err := hdf5.NewDatatypeFromValue(message)
	if err != nil {
		return fmt.Errorf("nexus: building string datatype for alarm_status: %w", err)
	}
	ds, err := group.OpenDataset("alarm_status")
	if err == nil {
		defer ds.Close()
		return appendScalarStringRow(ds, message)
	}

	space, err := newChunkedDataspace()
	if err != nil {
		return fmt.Errorf("nexus: creating dataspace for alarm_status: %w", err)
	}
	defer space.Close()

	pl, err := chunkPropList(logChunkSize)
	if err != nil {
		return fmt.Errorf("nexus: setting chunk size for alarm_status: %w", err)
	}
	defer pl.Close()

	ds, err = group.CreateDatasetWith("alarm_status", dtype, space, pl)
	if err != nil {
		return fmt.Errorf("nexus: creating alarm_status dataset: %w", err)
	}
	defer ds.Close()
	return appendScalarStringRow(ds, message)
}

func appendScalarStringRow(ds *hdf5.Dataset, message string) error {
	return extendAndWrite(ds, false, 1, func(offset, count uint, memSpace, fileSpace *hdf5.Dataspace) error {
		return ds.WriteSubset(&message, memSpace, fileSpace)
	})
}
