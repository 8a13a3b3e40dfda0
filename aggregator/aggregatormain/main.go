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

// Command aggregatormain runs the Frame Aggregator service: it gathers
// per-digitiser event lists belonging to the same frame and publishes one
// assembled frame once complete or expired.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pulsemuon/pulse-pipeline/aggregator"
	"github.com/pulsemuon/pulse-pipeline/broker"
	"github.com/pulsemuon/pulse-pipeline/clock"
	"github.com/pulsemuon/pulse-pipeline/metrics"
)

var (
	brokers            string
	eventTopic         string
	frameTopic         string
	groupID            string
	expectedDigitisers string
	ttl                time.Duration
	pollInterval       time.Duration
)

func init() {
	flag.StringVar(&brokers, "brokers", "localhost:9092", "Comma-separated list of broker addresses.")
	flag.StringVar(&eventTopic, "event-topic", "digitiser-events", "Topic carrying inbound per-digitiser event lists.")
	flag.StringVar(&frameTopic, "frame-topic", "assembled-frames", "Topic to publish outbound assembled frames to.")
	flag.StringVar(&groupID, "group-id", "frame-aggregator", "Consumer group id.")
	flag.StringVar(&expectedDigitisers, "expected-digitisers", "", "Comma-separated digitiser ids expected to contribute to every frame. Must be set!")
	flag.DurationVar(&ttl, "frame-ttl", 20*time.Second, "How long a partial frame waits for every digitiser before it is emitted incomplete.")
	flag.DurationVar(&pollInterval, "cache-poll-interval", time.Second, "How often the cache is polled for completed/expired frames.")
	flag.Parse()

	if expectedDigitisers == "" {
		fmt.Fprintln(os.Stderr, "The -expected-digitisers flag must be set. Run 'aggregatormain -h' for more info about flags.")
		os.Exit(1)
	}
}

func parseDigitisers(s string) []uint8 {
	parts := strings.Split(s, ",")
	ids := make([]uint8, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || v < 0 || v > 255 {
			fmt.Fprintf(os.Stderr, "invalid digitiser id %q in -expected-digitisers\n", p)
			os.Exit(1)
		}
		ids = append(ids, uint8(v))
	}
	return ids
}

func main() {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg, "frame-aggregator")
	m.RegisterAggregatorCounters(reg, prometheus.Labels{"service": "frame-aggregator"})

	cache := aggregator.NewFrameCache(parseDigitisers(expectedDigitisers), ttl, clock.New(), m)

	brokerList := strings.Split(brokers, ",")
	consumer := broker.NewKafkaConsumer(broker.KafkaConsumerConfig{
		Brokers: brokerList,
		Topic:   eventTopic,
		GroupID: groupID,
	})
	defer consumer.Close()
	producer := broker.NewKafkaProducer(brokerList, frameTopic)
	defer producer.Close()

	driver := &aggregator.Driver{
		Cache:    cache,
		Consumer: consumer,
		Producer: producer,
		Ticker:   clock.NewTicker(pollInterval),
		Metrics:  m,
	}

	glog.Infof("frame aggregator starting: brokers=%s event-topic=%s frame-topic=%s ttl=%s poll-interval=%s",
		brokers, eventTopic, frameTopic, ttl, pollInterval)
	driver.Run(context.Background())
}
