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
	"context"
	"errors"
	"time"

	"github.com/golang/glog"

	"github.com/pulsemuon/pulse-pipeline/broker"
	"github.com/pulsemuon/pulse-pipeline/clock"
	"github.com/pulsemuon/pulse-pipeline/messages"
	"github.com/pulsemuon/pulse-pipeline/metrics"
)

// Driver is the Run Writer's single-threaded event loop: it dispatches
// every inbound control/data message by schema id and flushes idle runs
// on a timer (spec §4.3/§5).
type Driver struct {
	Cache      *RunCache
	Consumer   broker.Consumer
	Ticker     clock.Ticker
	Clock      clock.Clock
	FlushDelay time.Duration
	Metrics    *metrics.Registry
}

// Run processes messages until ctx is done.
func (d *Driver) Run(ctx context.Context) {
	msgCh := make(chan broker.Message)
	errCh := make(chan error)
	go d.receiveLoop(ctx, msgCh, errCh)

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-msgCh:
			d.handleMessage(ctx, msg)
		case err := <-errCh:
			if !errors.Is(err, broker.ErrNoMessage) {
				glog.Warningf("writer: receiving message: %v", err)
			}
		case <-d.Ticker.GetChannel():
			d.Cache.Flush(d.Clock.Now(), d.FlushDelay)
		}
	}
}

func (d *Driver) receiveLoop(ctx context.Context, msgCh chan<- broker.Message, errCh chan<- error) {
	for {
		msg, err := d.Consumer.Receive(ctx)
		if err != nil {
			select {
			case errCh <- err:
			case <-ctx.Done():
				return
			}
			continue
		}
		select {
		case msgCh <- msg:
		case <-ctx.Done():
			return
		}
	}
}

func (d *Driver) handleMessage(ctx context.Context, msg broker.Message) {
	schemaID, err := messages.PeekSchemaID(msg.Value)
	if err != nil {
		d.decodeFailed(schemaID, err)
		return
	}

	// Every handler below absorbs its own decode/stateful/downstream-I/O
	// failures into a log line and a counter and returns normally: a
	// message this service can't apply is skipped, not retried (spec
	// §4.3's "bubble up to a per-message warning and skip that message"),
	// so the offset always advances here.
	switch schemaID {
	case messages.SchemaRunStart:
		d.handleRunStart(msg.Value)
	case messages.SchemaRunStop:
		d.handleRunStop(msg.Value)
	case messages.SchemaFrameAssembledEventList:
		d.handleEventList(msg.Value)
	case messages.SchemaLogData:
		d.handleLogData(msg.Value)
	case messages.SchemaSampleEnvData:
		d.handleSelog(msg.Value)
	case messages.SchemaAlarm:
		d.handleAlarm(msg.Value)
	default:
		d.decodeFailed(schemaID, errors.New("writer: unrecognised schema id"))
		return
	}

	if err := d.Consumer.Commit(ctx, msg); err != nil {
		if d.Metrics != nil {
			d.Metrics.DownstreamIOErrors.WithLabelValues("commit").Inc()
		}
		glog.Warningf("writer: committing offset: %v", err)
	}
}

func (d *Driver) decodeFailed(schemaID messages.SchemaID, err error) {
	if d.Metrics != nil {
		d.Metrics.DecodeErrors.WithLabelValues(string(schemaID)).Inc()
	}
	glog.Warningf("writer: decoding message: %v", err)
}

func (d *Driver) handleRunStart(data []byte) {
	m, err := messages.DecodeRunStart(data)
	if err != nil {
		d.decodeFailed(messages.SchemaRunStart, err)
		return
	}
	if err := d.Cache.Start(m); err != nil {
		d.stateful("run-start", err)
	}
}

func (d *Driver) handleRunStop(data []byte) {
	m, err := messages.DecodeRunStop(data)
	if err != nil {
		d.decodeFailed(messages.SchemaRunStop, err)
		return
	}
	if err := d.Cache.Stop(m); err != nil {
		d.stateful("run-stop", err)
	}
}

func (d *Driver) handleEventList(data []byte) {
	m, err := messages.DecodeFrameAssembledEventList(data)
	if err != nil {
		d.decodeFailed(messages.SchemaFrameAssembledEventList, err)
		return
	}
	if err := d.Cache.PushEventList(m); err != nil {
		d.downstreamIO("event-list", err)
	}
}

func (d *Driver) handleLogData(data []byte) {
	m, err := messages.DecodeLogData(data)
	if err != nil {
		d.decodeFailed(messages.SchemaLogData, err)
		return
	}
	if err := d.Cache.PushLogData(m); err != nil {
		d.downstreamIO("logdata", err)
	}
}

func (d *Driver) handleSelog(data []byte) {
	m, err := messages.DecodeSampleEnvData(data)
	if err != nil {
		d.decodeFailed(messages.SchemaSampleEnvData, err)
		return
	}
	if err := d.Cache.PushSelog(m); err != nil {
		d.downstreamIO("selog", err)
	}
}

func (d *Driver) handleAlarm(data []byte) {
	m, err := messages.DecodeAlarm(data)
	if err != nil {
		d.decodeFailed(messages.SchemaAlarm, err)
		return
	}
	if err := d.Cache.PushAlarm(m); err != nil {
		d.downstreamIO("alarm", err)
	}
}

func (d *Driver) stateful(reason string, err error) {
	if d.Metrics != nil {
		d.Metrics.StatefulRejections.WithLabelValues(reason).Inc()
	}
	glog.Warningf("writer: %s rejected: %v", reason, err)
}

func (d *Driver) downstreamIO(sink string, err error) {
	if d.Metrics != nil {
		d.Metrics.DownstreamIOErrors.WithLabelValues(sink).Inc()
	}
	glog.Errorf("writer: writing %s: %v", sink, err)
}
