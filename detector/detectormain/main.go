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

// Command detectormain runs the Pulse Detector service: it consumes
// digitiser trace messages, runs one configured detection algorithm per
// channel, and publishes one digitiser event-list message per input
// trace.
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

	"github.com/pulsemuon/pulse-pipeline/broker"
	"github.com/pulsemuon/pulse-pipeline/detector"
	"github.com/pulsemuon/pulse-pipeline/messages"
	"github.com/pulsemuon/pulse-pipeline/metrics"
)

const (
	// publishTimeout bounds how long the detector waits for a send-ack of
	// its output message before logging and moving on (spec §5).
	publishTimeout = 100 * time.Millisecond
)

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// thresholdDuration parses a "<value>,<duration>" flag value into a
// detector.ThresholdDuration, matching the CLI surface named in spec §6.
func thresholdDuration(s string) (detector.ThresholdDuration, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return detector.ThresholdDuration{}, fmt.Errorf("expected \"<threshold>,<min_duration>\", got %q", s)
	}
	threshold, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return detector.ThresholdDuration{}, fmt.Errorf("parsing threshold in %q: %w", s, err)
	}
	minDuration, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return detector.ThresholdDuration{}, fmt.Errorf("parsing min_duration in %q: %w", s, err)
	}
	return detector.ThresholdDuration{Threshold: threshold, MinDuration: minDuration}, nil
}

type commonFlags struct {
	brokers    string
	traceTopic string
	eventTopic string
	groupID    string
}

func bindCommonFlags(fs *flag.FlagSet, c *commonFlags) {
	fs.StringVar(&c.brokers, "brokers", "localhost:9092", "Comma-separated list of broker addresses.")
	fs.StringVar(&c.traceTopic, "trace-topic", "digitiser-traces", "Topic carrying inbound trace messages.")
	fs.StringVar(&c.eventTopic, "event-topic", "digitiser-events", "Topic to publish outbound event-list messages to.")
	fs.StringVar(&c.groupID, "group-id", "pulse-detector", "Consumer group id.")
}

func parseAlgorithm(args []string) (detector.ChannelAlgorithm, commonFlags) {
	if len(args) < 1 {
		fatalf("usage: detectormain <constant-phase-discriminator|advanced-muon-detector> [flags]")
	}

	switch args[0] {
	case "constant-phase-discriminator":
		fs := flag.NewFlagSet("constant-phase-discriminator", flag.ExitOnError)
		var c commonFlags
		bindCommonFlags(fs, &c)
		threshold := fs.String("threshold-trigger", "", "\"<threshold>,<min_duration>\" for the phase discriminator.")
		falling := fs.Bool("falling", false, "Trigger on a falling edge instead of rising.")
		fs.Parse(args[1:])

		if *threshold == "" {
			fatalf("-threshold-trigger is required for constant-phase-discriminator")
		}
		td, err := thresholdDuration(*threshold)
		if err != nil {
			fatalf("invalid -threshold-trigger: %v", err)
		}
		dir := detector.DirectionRising
		if *falling {
			dir = detector.DirectionFalling
		}
		return detector.ConstantPhaseDiscriminator{
			Threshold:   td.Threshold,
			Direction:   dir,
			MinDuration: td.MinDuration,
		}, c

	case "advanced-muon-detector":
		fs := flag.NewFlagSet("advanced-muon-detector", flag.ExitOnError)
		var c commonFlags
		bindCommonFlags(fs, &c)
		warmUp := fs.Int("baseline-warm-up", 20, "Number of leading samples used to seed the baseline.")
		alpha := fs.Float64("baseline-smoothing", 0.1, "Baseline EMA factor, 0 < alpha <= 1.")
		window := fs.Int("smoothing-window", 5, "Width of the centred smoothing window.")
		onset := fs.String("muon-onset", "", "\"<threshold>,<min_duration>\"")
		fall := fs.String("muon-fall", "", "\"<threshold>,<min_duration>\"")
		termination := fs.String("muon-termination", "", "\"<threshold>,<min_duration>\"")
		duration := fs.Int("duration", 0, "Muon pulse duration, in derivative-stream samples (stored in the detector configuration; the state machine does not apply it).")
		minAmplitude := fs.Float64("min-amplitude", 0, "If nonzero, discard pulses peaking below this.")
		maxAmplitude := fs.Float64("max-amplitude", 0, "If nonzero, discard pulses peaking above this.")
		fs.Parse(args[1:])

		onsetTD, err := thresholdDuration(*onset)
		if err != nil {
			fatalf("invalid -muon-onset: %v", err)
		}
		fallTD, err := thresholdDuration(*fall)
		if err != nil {
			fatalf("invalid -muon-fall: %v", err)
		}
		termTD, err := thresholdDuration(*termination)
		if err != nil {
			fatalf("invalid -muon-termination: %v", err)
		}

		algo := detector.AdvancedMuonDetector{
			BaselineWarmUp:    *warmUp,
			BaselineSmoothing: *alpha,
			SmoothingWindow:   *window,
			Onset:             onsetTD,
			Fall:              fallTD,
			Termination:       termTD,
			MuonDuration:      *duration,
		}
		if *minAmplitude != 0 {
			algo.MinAmplitude = minAmplitude
		}
		if *maxAmplitude != 0 {
			algo.MaxAmplitude = maxAmplitude
		}
		return algo, c

	default:
		fatalf("unknown detector mode %q", args[0])
		panic("unreachable")
	}
	panic("unreachable")
}

func main() {
	algo, common := parseAlgorithm(os.Args[1:])

	reg := prometheus.NewRegistry()
	m := metrics.New(reg, "pulse-detector")
	m.RegisterDetectorCounters(reg, prometheus.Labels{"service": "pulse-detector"})

	d := detector.New(algo, m)

	consumer := broker.NewKafkaConsumer(broker.KafkaConsumerConfig{
		Brokers: strings.Split(common.brokers, ","),
		Topic:   common.traceTopic,
		GroupID: common.groupID,
	})
	defer consumer.Close()
	producer := broker.NewKafkaProducer(strings.Split(common.brokers, ","), common.eventTopic)
	defer producer.Close()

	glog.Infof("pulse detector starting: brokers=%s trace-topic=%s event-topic=%s", common.brokers, common.traceTopic, common.eventTopic)

	ctx := context.Background()
	for {
		msg, err := consumer.Receive(ctx)
		if err != nil {
			glog.Warningf("receiving trace message: %v", err)
			continue
		}

		trace, err := messages.DecodeDigitizerAnalogTrace(msg.Value)
		if err != nil {
			m.DecodeErrors.WithLabelValues(string(messages.SchemaDigitizerAnalogTrace)).Inc()
			glog.Warningf("decoding trace message: %v", err)
			continue
		}

		events, err := d.ProcessTrace(trace)
		if err != nil {
			m.DecodeErrors.WithLabelValues(string(messages.SchemaDigitizerAnalogTrace)).Inc()
			glog.Warningf("processing trace for digitiser %d: %v", trace.DigitizerID, err)
			continue
		}

		out, err := messages.Encode(messages.SchemaDigitiserEventList, events)
		if err != nil {
			glog.Errorf("encoding event list for digitiser %d: %v", trace.DigitizerID, err)
			continue
		}

		pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
		err = producer.Publish(pubCtx, msg.Key, out)
		cancel()
		if err != nil {
			m.DownstreamIOErrors.WithLabelValues(common.eventTopic).Inc()
			glog.Warningf("publishing event list for digitiser %d: %v", trace.DigitizerID, err)
			continue
		}

		if err := consumer.Commit(ctx, msg); err != nil {
			m.DownstreamIOErrors.WithLabelValues("commit").Inc()
			glog.Warningf("committing offset for digitiser %d: %v", trace.DigitizerID, err)
		}
	}
}
