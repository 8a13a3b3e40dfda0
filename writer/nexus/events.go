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

const detectorGroupName = "detector_1"

// detectorGroup returns (creating if necessary) the detector_1 group that
// holds the four parallel event datasets named in spec §6.
func (f *File) detectorGroup() (*hdf5.Group, error) {
	g, err := f.rawData.OpenGroup(detectorGroupName)
	if err == nil {
		return g, nil
	}
	g, err = f.rawData.CreateGroup(detectorGroupName)
	if err != nil {
		return nil, fmt.Errorf("nexus: creating %s group: %w", detectorGroupName, err)
	}
	return g, nil
}

// AppendEvents appends one assembled frame's events onto detector_1's four
// parallel appendable datasets: event_id (channel), event_index
// (intra-frame event ordinal, u32), event_time_offset (time within frame,
// ns), and event_time_zero (the frame's own GPS time, repeated once per
// event so every row is independently addressable).
func (f *File) AppendEvents(frame messages.FrameAssembledEventListMessage) error {
	n := frame.NumEvents()
	if n == 0 {
		return nil
	}
	g, err := f.detectorGroup()
	if err != nil {
		return err
	}
	defer g.Close()

	chunk := f.cfg.EventChunkSize

	index := make([]uint32, n)
	zero := make([]int64, n)
	frameTime := frame.Metadata.Timestamp.UnixNano()
	for i := range index {
		index[i] = uint32(i)
		zero[i] = frameTime
	}

	if err := appendU32(g, "event_id", chunk, frame.Channel); err != nil {
		return err
	}
	if err := appendU32(g, "event_index", chunk, index); err != nil {
		return err
	}
	if err := appendU32(g, "event_time_offset", chunk, frame.Time); err != nil {
		return err
	}
	if err := appendI64(g, "event_time_zero", chunk, zero); err != nil {
		return err
	}
	return nil
}
