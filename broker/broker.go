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

// Package broker narrows the message bus down to the handful of operations
// the pipeline's three services actually need: read one message at a time
// with an explicit commit, and publish one message to a named topic. The
// narrow interfaces are what let every service under test run against an
// in-memory fake instead of a real cluster.
package broker

import (
	"context"
	"errors"
)

// ErrNoMessage is returned by Consumer.Receive when no message is
// available within the call's context deadline; callers treat this the
// same as a ticker firing (spec §5's "select on next message vs. timer").
var ErrNoMessage = errors.New("broker: no message available")

// Message is one bus record: an opaque payload plus the coordinates a
// Consumer needs to commit it once processing succeeds.
type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Key       []byte
	Value     []byte
}

// Consumer reads messages from one or more topics with manual offset
// commit: a message is only considered processed, and its offset
// advanced, once Commit is called for it. This mirrors spec §7's
// requirement that a downstream I/O failure must not silently drop input.
type Consumer interface {
	// Receive blocks until a message is available or ctx is done, and
	// returns ErrNoMessage if ctx expires first.
	Receive(ctx context.Context) (Message, error)
	// Commit advances the read offset past msg. It is only called after
	// msg has been fully and successfully handled.
	Commit(ctx context.Context, msg Message) error
	Close() error
}

// Producer publishes messages to a single topic.
type Producer interface {
	Publish(ctx context.Context, key, value []byte) error
	Close() error
}
