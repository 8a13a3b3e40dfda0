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

// fakeFile is an in-memory runFile for tests, recording every call instead
// of touching a real structured file.
type fakeFile struct {
	header     nexus.Header
	endTime    *time.Time
	goodFrames uint32
	rawFrames  uint32
	charge     float64
	events     []messages.FrameAssembledEventListMessage
	logs       []messages.LogData
	selogs     []messages.SampleEnvData
	alarms     []messages.Alarm
	closed     bool
}

func newFakeOpenFile(files map[string]*fakeFile) openFileFunc {
	return func(path string, cfg nexus.Config) (runFile, error) {
		f := &fakeFile{}
		files[path] = f
		return f, nil
	}
}

func (f *fakeFile) WriteHeader(h nexus.Header) error {
	f.header = h
	return nil
}

func (f *fakeFile) WriteEndTime(start, end time.Time) error {
	f.endTime = &end
	return nil
}

func (f *fakeFile) WriteFrameCounts(good, raw uint32) error {
	f.goodFrames, f.rawFrames = good, raw
	return nil
}

func (f *fakeFile) WriteProtonCharge(microAmpHours float64) error {
	f.charge = microAmpHours
	return nil
}

func (f *fakeFile) AppendEvents(frame messages.FrameAssembledEventListMessage) error {
	f.events = append(f.events, frame)
	return nil
}

func (f *fakeFile) AppendLogData(d messages.LogData) error {
	f.logs = append(f.logs, d)
	return nil
}

func (f *fakeFile) AppendSelog(d messages.SampleEnvData) error {
	f.selogs = append(f.selogs, d)
	return nil
}

func (f *fakeFile) AppendAlarm(a messages.Alarm) error {
	f.alarms = append(f.alarms, a)
	return nil
}

func (f *fakeFile) Close() error {
	f.closed = true
	return nil
}
