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
	"fmt"
)

// MultiTopicKafkaConsumer fans in several single-topic KafkaConsumers into
// one Consumer, for the Run Writer: spec §6 names five distinct inbound
// topics (control, frame, log, selog, alarm) that the single-threaded
// driver loop still wants to read through one Receive call.
type MultiTopicKafkaConsumer struct {
	readers []*KafkaConsumer
	msgCh   chan Message
	errCh   chan error
	cancel  context.CancelFunc
}

// NewMultiTopicKafkaConsumer opens one KafkaConsumer per topic and starts a
// goroutine per topic forwarding into a single shared channel.
func NewMultiTopicKafkaConsumer(cfg KafkaConsumerConfig, topics []string) *MultiTopicKafkaConsumer {
	ctx, cancel := context.WithCancel(context.Background())
	m := &MultiTopicKafkaConsumer{
		msgCh:  make(chan Message),
		errCh:  make(chan error),
		cancel: cancel,
	}
	for _, topic := range topics {
		perTopic := cfg
		perTopic.Topic = topic
		reader := NewKafkaConsumer(perTopic)
		m.readers = append(m.readers, reader)
		go m.pump(ctx, reader)
	}
	return m
}

func (m *MultiTopicKafkaConsumer) pump(ctx context.Context, reader *KafkaConsumer) {
	for {
		msg, err := reader.Receive(ctx)
		if err != nil {
			if errors.Is(err, ErrNoMessage) {
				continue
			}
			select {
			case m.errCh <- err:
			case <-ctx.Done():
				return
			}
			continue
		}
		select {
		case m.msgCh <- msg:
		case <-ctx.Done():
			return
		}
	}
}

// Receive returns the next message from any of this consumer's topics.
func (m *MultiTopicKafkaConsumer) Receive(ctx context.Context) (Message, error) {
	select {
	case msg := <-m.msgCh:
		return msg, nil
	case err := <-m.errCh:
		return Message{}, err
	case <-ctx.Done():
		return Message{}, ErrNoMessage
	}
}

// Commit routes the commit to whichever underlying reader owns msg's
// topic.
func (m *MultiTopicKafkaConsumer) Commit(ctx context.Context, msg Message) error {
	for _, r := range m.readers {
		if r.reader.Config().Topic == msg.Topic {
			return r.Commit(ctx, msg)
		}
	}
	return fmt.Errorf("broker: no reader for topic %q", msg.Topic)
}

// Close stops every underlying reader and their pump goroutines.
func (m *MultiTopicKafkaConsumer) Close() error {
	m.cancel()
	var firstErr error
	for _, r := range m.readers {
		if err := r.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
