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

import (
	"time"

	"github.com/pulsemuon/pulse-pipeline/messages"
	"github.com/pulsemuon/pulse-pipeline/writer/nexus"
)

// runFile is the narrow slice of *nexus.File that RunCache needs, so tests
// can exercise the cache's run-selection and state-machine logic against
// an in-memory fake instead of a real structured file (mirroring the
// broker package's Consumer/Producer interfaces).
type runFile interface {
	WriteHeader(nexus.Header) error
	WriteEndTime(start, end time.Time) error
	WriteFrameCounts(good, raw uint32) error
	WriteProtonCharge(microAmpHours float64) error
	AppendEvents(messages.FrameAssembledEventListMessage) error
	AppendLogData(messages.LogData) error
	AppendSelog(messages.SampleEnvData) error
	AppendAlarm(messages.Alarm) error
	Close() error
}

// openFileFunc constructs the runFile backing a newly started run.
// Tests substitute this to avoid touching a real structured file.
type openFileFunc func(path string, cfg nexus.Config) (runFile, error)

func openNexusFile(path string, cfg nexus.Config) (runFile, error) {
	f, err := nexus.Create(path, cfg)
	if err != nil {
		return nil, err
	}
	return f, nil
}
