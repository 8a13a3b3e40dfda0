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

// Command writermain runs the Run Writer service: it maintains a cache of
// open runs and routes incoming aggregated frames, run-logs,
// sample-environment logs, and alarms into the correct run's structured
// file.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pulsemuon/pulse-pipeline/broker"
	"github.com/pulsemuon/pulse-pipeline/clock"
	"github.com/pulsemuon/pulse-pipeline/metrics"
	"github.com/pulsemuon/pulse-pipeline/writer"
	"github.com/pulsemuon/pulse-pipeline/writer/nexus"
)

var (
	brokers        string
	controlTopic   string
	frameTopic     string
	logTopic       string
	selogTopic     string
	alarmTopic     string
	groupID        string
	outputPath     string
	frameChunkSize int
	eventChunkSize int
	useSWMR        bool
	flushDelay     time.Duration
	flushInterval  time.Duration
)

func init() {
	flag.StringVar(&brokers, "brokers", "localhost:9092", "Comma-separated list of broker addresses.")
	flag.StringVar(&controlTopic, "control-topic", "run-control", "Topic carrying inbound run-start/run-stop messages.")
	flag.StringVar(&frameTopic, "frame-topic", "assembled-frames", "Topic carrying inbound assembled frames.")
	flag.StringVar(&logTopic, "log-topic", "run-logs", "Topic carrying inbound run-log messages.")
	flag.StringVar(&selogTopic, "selog-topic", "sample-env-logs", "Topic carrying inbound sample-environment messages.")
	flag.StringVar(&alarmTopic, "alarm-topic", "alarms", "Topic carrying inbound alarm messages.")
	flag.StringVar(&groupID, "group-id", "run-writer", "Consumer group id.")
	flag.StringVar(&outputPath, "file-output-path", "", "Base directory structured run files are created under. Must be set!")
	flag.IntVar(&frameChunkSize, "frame-chunk-size", 1024, "Chunk size, in elements, for per-frame datasets (stored in the writer configuration; the current layout has no per-frame dataset that uses it).")
	flag.IntVar(&eventChunkSize, "event-chunk-size", 4096, "Chunk size, in elements, for per-event datasets.")
	flag.BoolVar(&useSWMR, "use-swmr", false, "Single-writer/multiple-reader mode flag (stored in the writer configuration; files are not opened in SWMR mode).")
	flag.DurationVar(&flushDelay, "flush-delay", 30*time.Second, "How long a bounded run may sit idle before its file is closed.")
	flag.DurationVar(&flushInterval, "flush-check-interval", 5*time.Second, "How often idle runs are checked for flushing.")
	flag.Parse()

	if outputPath == "" {
		fmt.Fprintln(os.Stderr, "The -file-output-path flag must be set. Run 'writermain -h' for more info about flags.")
		os.Exit(1)
	}
}

func main() {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg, "run-writer")
	m.RegisterWriterCounters(reg, prometheus.Labels{"service": "run-writer"})

	if err := os.MkdirAll(outputPath, 0o755); err != nil {
		glog.Fatalf("writer: creating output directory %q: %v", outputPath, err)
	}

	cfg := nexus.Config{
		FrameChunkSize: frameChunkSize,
		EventChunkSize: eventChunkSize,
		UseSWMR:        useSWMR,
	}
	cache := writer.NewRunCache(outputPath, cfg, m)

	brokerList := strings.Split(brokers, ",")
	consumer := broker.NewMultiTopicKafkaConsumer(broker.KafkaConsumerConfig{
		Brokers: brokerList,
		GroupID: groupID,
	}, []string{controlTopic, frameTopic, logTopic, selogTopic, alarmTopic})
	defer consumer.Close()

	driver := &writer.Driver{
		Cache:      cache,
		Consumer:   consumer,
		Ticker:     clock.NewTicker(flushInterval),
		Clock:      clock.New(),
		FlushDelay: flushDelay,
		Metrics:    m,
	}

	glog.Infof("run writer starting: brokers=%s output-path=%s flush-delay=%s", brokers, outputPath, flushDelay)
	driver.Run(context.Background())
}
