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

// RunStart marks the start of a run and opens its collection window.
type RunStart struct {
	RunName        string
	InstrumentName string
	// StartTimeMs is milliseconds since the Unix epoch, matching the
	// coarser timestamp resolution the facility control system uses for
	// run boundaries (spec §6).
	StartTimeMs uint64
	RunNumber   uint32
}

// RunStop marks the end of a run's collection window.
type RunStop struct {
	RunName    string
	StopTimeMs uint64
}
