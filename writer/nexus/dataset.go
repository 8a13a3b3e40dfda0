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
)

// newChunkedDataspace returns a 1-D, unlimited-extent dataspace starting
// at length 0, the shape every appendable dataset in this layout uses.
func newChunkedDataspace() (*hdf5.Dataspace, error) {
	return hdf5.CreateSimpleDataspace([]uint{0}, []uint{hdf5.CountUnlimited})
}

func chunkPropList(chunkSize int) (*hdf5.PropList, error) {
	pl, err := hdf5.NewPropList(hdf5.P_DATASET_CREATE)
	if err != nil {
		return nil, err
	}
	if err := pl.SetChunk([]uint{uint(chunkSize)}); err != nil {
		pl.Close()
		return nil, err
	}
	return pl, nil
}

// appendU32 appends values onto the uint32 dataset name within group,
// creating it (empty, chunked at chunkSize) if it does not yet exist.
// Append-only: existing data is never rewritten or shortened (spec §4.3).
func appendU32(group *hdf5.Group, name string, chunkSize int, values []uint32) error {
	if len(values) == 0 {
		return nil
	}
	ds, isNew, err := openOrCreateDataset(group, name, chunkSize, hdf5.T_NATIVE_UINT32)
	if err != nil {
		return err
	}
	defer ds.Close()
	return extendAndWrite(ds, isNew, len(values), func(offset uint, count uint, memSpace, fileSpace *hdf5.Dataspace) error {
		return ds.WriteSubset(&values[0], memSpace, fileSpace)
	})
}

// appendI64 appends values onto the int64 dataset name within group.
func appendI64(group *hdf5.Group, name string, chunkSize int, values []int64) error {
	if len(values) == 0 {
		return nil
	}
	ds, isNew, err := openOrCreateDataset(group, name, chunkSize, hdf5.T_NATIVE_INT64)
	if err != nil {
		return err
	}
	defer ds.Close()
	return extendAndWrite(ds, isNew, len(values), func(offset uint, count uint, memSpace, fileSpace *hdf5.Dataspace) error {
		return ds.WriteSubset(&values[0], memSpace, fileSpace)
	})
}

// appendU16 appends values onto the uint16 dataset name within group.
func appendU16(group *hdf5.Group, name string, chunkSize int, values []uint16) error {
	if len(values) == 0 {
		return nil
	}
	ds, isNew, err := openOrCreateDataset(group, name, chunkSize, hdf5.T_NATIVE_UINT16)
	if err != nil {
		return err
	}
	defer ds.Close()
	return extendAndWrite(ds, isNew, len(values), func(offset uint, count uint, memSpace, fileSpace *hdf5.Dataspace) error {
		return ds.WriteSubset(&values[0], memSpace, fileSpace)
	})
}

// appendF64 appends values onto the float64 dataset name within group.
func appendF64(group *hdf5.Group, name string, chunkSize int, values []float64) error {
	if len(values) == 0 {
		return nil
	}
	ds, isNew, err := openOrCreateDataset(group, name, chunkSize, hdf5.T_NATIVE_DOUBLE)
	if err != nil {
		return err
	}
	defer ds.Close()
	return extendAndWrite(ds, isNew, len(values), func(offset uint, count uint, memSpace, fileSpace *hdf5.Dataspace) error {
		return ds.WriteSubset(&values[0], memSpace, fileSpace)
	})
}

func openOrCreateDataset(group *hdf5.Group, name string, chunkSize int, dtype *hdf5.Datatype) (ds *hdf5.Dataset, isNew bool, err error) {
	ds, err = group.OpenDataset(name)
	if err == nil {
		return ds, false, nil
	}

	space, err := newChunkedDataspace()
	if err != nil {
		return nil, false, fmt.Errorf("nexus: creating dataspace for %s: %w", name, err)
	}
	defer space.Close()

	pl, err := chunkPropList(chunkSize)
	if err != nil {
		return nil, false, fmt.Errorf("nexus: setting chunk size for %s: %w", name, err)
	}
	defer pl.Close()

	ds, err = group.CreateDatasetWith(name, dtype, space, pl)
	if err != nil {
		return nil, false, fmt.Errorf("nexus: creating dataset %s: %w", name, err)
	}
	return ds, true, nil
}

// extendAndWrite grows ds by count elements and writes the new tail
// through a hyperslab selection, via write (which already has the new
// values closed over).
func extendAndWrite(ds *hdf5.Dataset, isNew bool, count int, write func(offset, count uint, memSpace, fileSpace *hdf5.Dataspace) error) error {
	fileSpace, err := ds.Space()
	if err != nil {
		return fmt.Errorf("nexus: reading dataspace: %w", err)
	}
	defer fileSpace.Close()

	dims, _, err := fileSpace.SimpleExtentDims()
	if err != nil {
		return fmt.Errorf("nexus: reading extent: %w", err)
	}
	offset := dims[0]
	newLen := offset + uint(count)

	if err := ds.SetExtent([]uint{newLen}); err != nil {
		return fmt.Errorf("nexus: extending dataset: %w", err)
	}

	grown, err := ds.Space()
	if err != nil {
		return fmt.Errorf("nexus: reading extended dataspace: %w", err)
	}
	defer grown.Close()
	if err := grown.SelectHyperslab([]uint{offset}, nil, []uint{uint(count)}, nil); err != nil {
		return fmt.Errorf("nexus: selecting hyperslab: %w", err)
	}

	memSpace, err := hdf5.CreateSimpleDataspace([]uint{uint(count)}, nil)
	if err != nil {
		return fmt.Errorf("nexus: creating memory dataspace: %w", err)
	}
	defer memSpace.Close()

	return write(offset, uint(count), memSpace, grown)
}
