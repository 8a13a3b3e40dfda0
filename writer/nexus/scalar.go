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

// writeScalarString creates and writes a fixed scalar string dataset,
// used for the immutable header fields in spec §6's layout. It fails if
// the dataset already exists; overwriteScalarString rewrites one.
func writeScalarString(group *hdf5.Group, name, value string) error {
	dtype, err := hdf5.NewDatatypeFromValue(value)
	if err != nil {
		return fmt.Errorf("nexus: building string datatype for %s: %w", name, err)
	}
	return writeScalar(group, name, dtype, value, "")
}

// writeScalarU32 writes a fixed scalar uint32 dataset, with an optional
// units attribute.
func writeScalarU32(group *hdf5.Group, name string, value uint32, units string) error {
	return writeScalar(group, name, hdf5.T_NATIVE_UINT32, value, units)
}

// writeScalarF64 writes a fixed scalar float64 dataset, with an optional
// units attribute.
func writeScalarF64(group *hdf5.Group, name string, value float64, units string) error {
	return writeScalar(group, name, hdf5.T_NATIVE_DOUBLE, value, units)
}

func writeScalar(group *hdf5.Group, name string, dtype *hdf5.Datatype, value interface{}, units string) error {
	space, err := hdf5.CreateDataspace(hdf5.S_SCALAR)
	if err != nil {
		return fmt.Errorf("nexus: creating scalar dataspace for %s: %w", name, err)
	}
	defer space.Close()

	ds, err := group.CreateDataset(name, dtype, space)
	if err != nil {
		return fmt.Errorf("nexus: creating scalar dataset %s: %w", name, err)
	}
	defer ds.Close()

	if err := ds.Write(value); err != nil {
		return fmt.Errorf("nexus: writing scalar %s: %w", name, err)
	}

	if units == "" {
		return nil
	}
	return writeStringAttribute(ds, "units", units)
}

// overwriteScalarString rewrites an already-existing scalar string dataset
// (end_time is written once at stop, after start_time already exists).
func overwriteScalarString(group *hdf5.Group, name, value string) error {
	ds, err := group.OpenDataset(name)
	if err != nil {
		return writeScalarString(group, name, value)
	}
	defer ds.Close()
	if err := ds.Write(value); err != nil {
		return fmt.Errorf("nexus: overwriting scalar %s: %w", name, err)
	}
	return nil
}

func overwriteScalarU32(group *hdf5.Group, name string, value uint32) error {
	ds, err := group.OpenDataset(name)
	if err != nil {
		return writeScalarU32(group, name, value, "")
	}
	defer ds.Close()
	if err := ds.Write(value); err != nil {
		return fmt.Errorf("nexus: overwriting scalar %s: %w", name, err)
	}
	return nil
}

type attributeSetter interface {
	CreateAttribute(name string, dtype *hdf5.Datatype, space *hdf5.Dataspace) (*hdf5.Attribute, error)
}

func writeStringAttribute(obj attributeSetter, name, value string) error {
	dtype, err := hdf5.NewDatatypeFromValue(value)
	if err != nil {
		return fmt.Errorf("nexus: building datatype for attribute %s: %w", name, err)
	}
	space, err := hdf5.CreateDataspace(hdf5.S_SCALAR)
	if err != nil {
		return fmt.Errorf("nexus: creating dataspace for attribute %s: %w", name, err)
	}
	defer space.Close()

	attr, err := obj.CreateAttribute(name, dtype, space)
	if err != nil {
		return fmt.Errorf("nexus: creating attribute %s: %w", name, err)
	}
	defer attr.Close()

	if err := attr.Write(value, dtype); err != nil {
		return fmt.Errorf("nexus: writing attribute %s: %w", name, err)
	}
	return nil
}
