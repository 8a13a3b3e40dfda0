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

package broker

import (
	"context"
	"sync"
)

// FakeBroker is an in-memory Consumer+Producer pair used by driver-loop
// tests that need real queueing semantics (ordering, a committed-offset
// high watermark) without a gomock expectation for every call. Receive
// removes a message from the queue whether or not it is later committed,
// so uncommitted messages are not re-delivered.
type FakeBroker struct {
	mu        sync.Mutex
	topic     string
	pending   []Message
	nextOff   int64
	committed int64
}

// NewFakeBroker returns a FakeBroker serving a single topic.
func NewFakeBroker(topic string) *FakeBroker {
	return &FakeBroker{topic: topic}
}

// Push enqueues value (with key) as if produced by a FakeBroker.Publish
// call, for tests that want to seed input without going through Publish.
func (f *FakeBroker) Push(key, value []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = append(f.pending, Message{
		Topic:  f.topic,
		Offset: f.nextOff,
		Key:    key,
		Value:  value,
	})
	f.nextOff++
}

// Consumer returns a Consumer view over this broker's queue.
func (f *FakeBroker) Consumer() Consumer { return (*fakeConsumer)(f) }

// Producer returns a Producer view that enqueues onto this broker's queue.
func (f *FakeBroker) Producer() Producer { return (*fakeProducer)(f) }

type fakeConsumer FakeBroker

func (f *fakeConsumer) Receive(ctx context.Context) (Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.pending) == 0 {
		return Message{}, ErrNoMessage
	}
	m := f.pending[0]
	f.pending = f.pending[1:]
	return m, nil
}

func (f *fakeConsumer) Commit(ctx context.Context, msg Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if msg.Offset > f.committed {
		f.committed = msg.Offset
	}
	return nil
}

func (f *fakeConsumer) Close() error { return nil }

type fakeProducer FakeBroker

func (f *fakeProducer) Publish(ctx context.Context, key, value []byte) error {
	(*FakeBroker)(f).Push(key, value)
	return nil
}

func (f *fakeProducer) Close() error { return nil }
