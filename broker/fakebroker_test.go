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
	"errors"
	"testing"
)

func TestFakeBrokerPublishThenReceiveInOrder(t *testing.T) {
	fb := NewFakeBroker("traces")
	producer := fb.Producer()
	ctx := context.Background()

	if err := producer.Publish(ctx, []byte("k1"), []byte("v1")); err != nil {
		t.Fatalf("Publish() returned error: %v", err)
	}
	if err := producer.Publish(ctx, []byte("k2"), []byte("v2")); err != nil {
		t.Fatalf("Publish() returned error: %v", err)
	}

	consumer := fb.Consumer()
	first, err := consumer.Receive(ctx)
	if err != nil {
		t.Fatalf("Receive() returned error: %v", err)
	}
	if string(first.Value) != "v1" {
		t.Errorf("Receive() = %q, want %q", first.Value, "v1")
	}

	second, err := consumer.Receive(ctx)
	if err != nil {
		t.Fatalf("Receive() returned error: %v", err)
	}
	if string(second.Value) != "v2" {
		t.Errorf("Receive() = %q, want %q", second.Value, "v2")
	}
}

func TestFakeBrokerReceiveEmptyReturnsErrNoMessage(t *testing.T) {
	fb := NewFakeBroker("traces")
	_, err := fb.Consumer().Receive(context.Background())
	if !errors.Is(err, ErrNoMessage) {
		t.Errorf("Receive() on empty broker returned %v, want ErrNoMessage", err)
	}
}

func TestFakeBrokerCommitTracksHighWatermark(t *testing.T) {
	fb := NewFakeBroker("traces")
	producer := fb.Producer()
	ctx := context.Background()
	producer.Publish(ctx, nil, []byte("v1"))
	producer.Publish(ctx, nil, []byte("v2"))

	consumer := fb.Consumer()
	m1, _ := consumer.Receive(ctx)
	m2, _ := consumer.Receive(ctx)

	if err := consumer.Commit(ctx, m2); err != nil {
		t.Fatalf("Commit() returned error: %v", err)
	}
	if err := consumer.Commit(ctx, m1); err != nil {
		t.Fatalf("Commit() returned error: %v", err)
	}
	if fb.committed != m2.Offset {
		t.Errorf("committed offset = %d, want %d (committing an older offset after a newer one must not regress)", fb.committed, m2.Offset)
	}
}
