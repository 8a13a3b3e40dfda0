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

	kafka "github.com/segmentio/kafka-go"
)

// KafkaConsumer is a Consumer backed by a kafka-go Reader, one per consumer
// group member. Fetch/commit are split exactly as kafka-go exposes them so
// a message is only acknowledged once the caller has finished with it.
type KafkaConsumer struct {
	reader *kafka.Reader
}

// KafkaConsumerConfig names the cluster and topic a KafkaConsumer reads.
type KafkaConsumerConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

// NewKafkaConsumer dials no brokers eagerly; the underlying Reader connects
// lazily on first Receive.
func NewKafkaConsumer(cfg KafkaConsumerConfig) *KafkaConsumer {
	return &KafkaConsumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers: cfg.Brokers,
			Topic:   cfg.Topic,
			GroupID: cfg.GroupID,
		}),
	}
}

func (c *KafkaConsumer) Receive(ctx context.Context) (Message, error) {
	m, err := c.reader.FetchMessage(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return Message{}, ErrNoMessage
		}
		return Message{}, fmt.Errorf("broker: fetching from %s: %w", c.reader.Config().Topic, err)
	}
	return Message{
		Topic:     m.Topic,
		Partition: m.Partition,
		Offset:    m.Offset,
		Key:       m.Key,
		Value:     m.Value,
	}, nil
}

func (c *KafkaConsumer) Commit(ctx context.Context, msg Message) error {
	err := c.reader.CommitMessages(ctx, kafka.Message{
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
	})
	if err != nil {
		return fmt.Errorf("broker: committing offset %d on %s/%d: %w", msg.Offset, msg.Topic, msg.Partition, err)
	}
	return nil
}

func (c *KafkaConsumer) Close() error {
	return c.reader.Close()
}

// KafkaProducer is a Producer backed by a kafka-go Writer.
type KafkaProducer struct {
	writer *kafka.Writer
}

// NewKafkaProducer returns a Producer publishing to topic across brokers,
// balancing across partitions by key hash so that, per spec §5, all
// messages sharing a digitiser/frame key land on the same partition and so
// are observed in send order by any single consumer.
func NewKafkaProducer(brokers []string, topic string) *KafkaProducer {
	return &KafkaProducer{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.Hash{},
		},
	}
}

func (p *KafkaProducer) Publish(ctx context.Context, key, value []byte) error {
	err := p.writer.WriteMessages(ctx, kafka.Message{Key: key, Value: value})
	if err != nil {
		return fmt.Errorf("broker: publishing to %s: %w", p.writer.Topic, err)
	}
	return nil
}

func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}
