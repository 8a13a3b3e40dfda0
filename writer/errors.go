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

package writer

import "errors"

// Stateful-rejection errors from RunCache.Start/Stop (spec §4.3, spec §7's
// stateful-rejection error class).
var (
	// ErrUnexpectedRunStart is returned by Start when the cache is
	// non-empty and its tail run has not yet been stopped.
	ErrUnexpectedRunStart = errors.New("writer: unexpected run start: tail run still open")
	// ErrUnexpectedRunStop is returned by Stop when the cache is empty.
	ErrUnexpectedRunStop = errors.New("writer: unexpected run stop: no open run")
	// ErrRunStopBeforeRunStart is returned by Stop when the stop time is
	// not strictly greater than the tail run's CollectFrom.
	ErrRunStopBeforeRunStart = errors.New("writer: run stop time not after run start time")
	// ErrDuplicateRunStop is returned by Stop when the tail run is already
	// bounded.
	ErrDuplicateRunStop = errors.New("writer: run already stopped")
)
