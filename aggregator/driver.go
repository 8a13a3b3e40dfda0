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

package aggregator

import (
	"context"
	"errors"

	"github.com/golang/glog"

	"github.com/pulsemuon/pulse-pipeline/broker"
	"github.com/pulsemuon/pulse-pipeline/clock"
	"github.com/pulsemuon/pulse-pipeline/messages"
	"github.com/pulsemuon/pulse-pipeline/metrics"
)

// Driver interleaves reading digitiser event-list messages with a poll
// timer, invoking Cache.Poll until it is dry after either kind of event
// (spec §4.2's driver loop).
type Driver struct {
	Cache    *FrameCache
	Consumer broker.Consumer
	Producer broker.Producer
	Ticker   clock.Ticker
	Metrics  *metrics.Registry
}

// Run processes events until ctx is done. It is the single-threaded
// cooperative event loop named in spec §5: one select between the next
// inbound message and the cache's poll-interval ticker.
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
			d.drain(ctx)
		case err := <-errCh:
			if !errors.Is(err, broker.ErrNoMessage) {
				glog.Warningf("aggregator: receiving event list: %v", err)
			}
		case <-d.Ticker.GetChannel():
			d.drain(ctx)
		}
	}
}

// receiveLoop feeds Run's select from a separate goroutine since
// broker.Consumer.Receive blocks; Run itself never waits on Receive inside
// its select, preserving its ability to also react to ticks. Commit and
// Publish are still called synchronously from Run.
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
	if err != nil || schemaID != messages.SchemaDigitiserEventList {
		if d.Metrics != nil {
			d.Metrics.DecodeErrors.WithLabelValues(string(schemaID)).Inc()
		}
		glog.Warningf("aggregator: decoding event list: %v", err)
		return
	}

	ev, err := messages.DecodeDigitiserEventList(msg.Value)
	if err != nil {
		if d.Metrics != nil {
			d.Metrics.DecodeErrors.WithLabelValues(string(messages.SchemaDigitiserEventList)).Inc()
		}
		glog.Warningf("aggregator: decoding event list: %v", err)
		return
	}

	d.Cache.Push(ev.DigitizerID, ev.Metadata, ev)

	if err := d.Consumer.Commit(ctx, msg); err != nil {
		if d.Metrics != nil {
			d.Metrics.DownstreamIOErrors.WithLabelValues("commit").Inc()
		}
		glog.Warningf("aggregator: committing offset: %v", err)
	}
}

// drain calls Cache.Poll until it returns nothing, publishing each
// resulting AggregatedFrame as one downstream message.
func (d *Driver) drain(ctx context.Context) {
	for {
		frame, ok := d.Cache.Poll()
		if !ok {
			return
		}
		out, err := messages.Encode(messages.SchemaFrameAssembledEventList, frame)
		if err != nil {
			glog.Errorf("aggregator: encoding assembled frame: %v", err)
			continue
		}
		if err := d.Producer.Publish(ctx, nil, out); err != nil {
			if d.Metrics != nil {
				d.Metrics.DownstreamIOErrors.WithLabelValues("frame-assembled-event-list").Inc()
			}
			glog.Warningf("aggregator: publishing assembled frame: %v", err)
		}
	}
}
