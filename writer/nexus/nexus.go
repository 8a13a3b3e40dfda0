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

// Package nexus is a thin wrapper over gonum.org/v1/hdf5 implementing the
// structured-file layout from spec §6: one file per run, rooted at
// /<run_name>/raw_data_1, with an immutable header, one appendable event
// group per digitiser-independent detector bank, and lazily-created
// per-source runlog/selog sub-groups.
package nexus

import (
	"fmt"

	"gonum.org/v1/hdf5"
)

// Config names the dataset chunk sizes and SWMR mode fixed at process
// startup (spec §4.3's "writer configuration... never change").
type Config struct {
	EventChunkSize int
	FrameChunkSize int
	UseSWMR        bool
}

// File is one run's open structured file.
type File struct {
	cfg     Config
	handle  *hdf5.File
	rawData *hdf5.Group
}

// Create opens a new structured file at path and creates the raw_data_1
// group the rest of the layout hangs off. It fails if path already exists,
// matching spec §4.3's "two simultaneously-open runs with the same name...
// must fail file creation".
func Create(path string, cfg Config) (*File, error) {
	h, err := hdf5.CreateFile(path, hdf5.F_ACC_EXCL)
	if err != nil {
		return nil, fmt.Errorf("nexus: creating %s: %w", path, err)
	}
	group, err := h.CreateGroup("raw_data_1")
	if err != nil {
		h.Close()
		return nil, fmt.Errorf("nexus: creating raw_data_1 group in %s: %w", path, err)
	}
	return &File{cfg: cfg, handle: h, rawData: group}, nil
}

// Close flushes and releases every handle owned by this File.
func (f *File) Close() error {
	if err := f.handle.Close(); err != nil {
		return fmt.Errorf("nexus: closing file: %w", err)
	}
	return nil
}
