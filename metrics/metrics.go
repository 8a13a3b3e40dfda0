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

// Package metrics registers the operator-visible counters named in the
// error-handling design: one vector per error taxonomy class (spec §7),
// plus the domain counters each service adds for its own rejected input.
// Exporting these (an HTTP /metrics endpoint, a push gateway) is out of
// scope; registration alone lets every service increment the same
// collector whether or not anything ever scrapes it.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry groups every counter one service instance increments. Each
// pipeline binary (detector, aggregator, writer) constructs its own
// Registry against its own prometheus.Registerer so none of the three
// share a default global registry.
type Registry struct {
	DecodeErrors       *prometheus.CounterVec
	StatefulRejections *prometheus.CounterVec
	DownstreamIOErrors *prometheus.CounterVec
	FatalStartupErrors *prometheus.CounterVec

	// Domain counters, one per service; only the relevant fields are
	// populated by that service's main, the others are left nil.
	NegativeTimePulsesDropped prometheus.Counter
	FramesCompleted           prometheus.Counter
	FramesExpiredIncomplete   prometheus.Counter
	DuplicateFramesRejected   prometheus.Counter
	EventsRoutedOutsideRun    prometheus.Counter
	RunsFlushed               prometheus.Counter
}

// New creates and registers a Registry's collectors against reg. service
// is the pipeline binary name ("pulse-detector", "frame-aggregator",
// "run-writer"), attached as a constant label so all three can share one
// scrape target if ever wired together.
func New(reg prometheus.Registerer, service string) *Registry {
	constLabels := prometheus.Labels{"service": service}

	r := &Registry{
		DecodeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "pulse_pipeline_decode_errors_total",
			Help:        "Messages dropped because they failed to decode (spec error class: decode).",
			ConstLabels: constLabels,
		}, []string{"schema_id"}),
		StatefulRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "pulse_pipeline_stateful_rejections_total",
			Help:        "Messages rejected due to a violated stateful invariant (spec error class: stateful rejection).",
			ConstLabels: constLabels,
		}, []string{"reason"}),
		DownstreamIOErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "pulse_pipeline_downstream_io_errors_total",
			Help:        "Downstream publish/write/commit failures, logged and not retried (spec error class: downstream I/O).",
			ConstLabels: constLabels,
		}, []string{"sink"}),
		FatalStartupErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "pulse_pipeline_fatal_startup_errors_total",
			Help:        "Fatal startup errors observed before exit (spec error class: fatal startup); exposed for a scrape that races the process exit.",
			ConstLabels: constLabels,
		}, []string{"component"}),
	}

	reg.MustRegister(r.DecodeErrors, r.StatefulRejections, r.DownstreamIOErrors, r.FatalStartupErrors)
	return r
}

// RegisterDetectorCounters adds the Pulse Detector's domain counters: dropped
// negative-time-within-frame pulses (spec §4.1's edge case).
func (r *Registry) RegisterDetectorCounters(reg prometheus.Registerer, constLabels prometheus.Labels) {
	r.NegativeTimePulsesDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "pulse_pipeline_negative_time_pulses_dropped_total",
		Help:        "Pulses dropped for resolving to a negative time-within-frame.",
		ConstLabels: constLabels,
	})
	reg.MustRegister(r.NegativeTimePulsesDropped)
}

// RegisterAggregatorCounters adds the Frame Aggregator's domain counters.
func (r *Registry) RegisterAggregatorCounters(reg prometheus.Registerer, constLabels prometheus.Labels) {
	r.FramesCompleted = prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "pulse_pipeline_frames_completed_total",
		Help:        "Frames emitted because every expected digitiser contributed.",
		ConstLabels: constLabels,
	})
	r.FramesExpiredIncomplete = prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "pulse_pipeline_frames_expired_incomplete_total",
		Help:        "Frames emitted because their TTL elapsed before every digitiser contributed.",
		ConstLabels: constLabels,
	})
	r.DuplicateFramesRejected = prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "pulse_pipeline_duplicate_frames_rejected_total",
		Help:        "Digitiser contributions rejected as a duplicate (digitiser, frame) pair.",
		ConstLabels: constLabels,
	})
	reg.MustRegister(r.FramesCompleted, r.FramesExpiredIncomplete, r.DuplicateFramesRejected)
}

// RegisterWriterCounters adds the Run Writer's domain counters.
func (r *Registry) RegisterWriterCounters(reg prometheus.Registerer, constLabels prometheus.Labels) {
	r.EventsRoutedOutsideRun = prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "pulse_pipeline_events_routed_outside_run_total",
		Help:        "Messages dropped because their timestamp fell outside every open run's collection window.",
		ConstLabels: constLabels,
	})
	r.RunsFlushed = prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "pulse_pipeline_runs_flushed_total",
		Help:        "Runs flushed to the structured output file.",
		ConstLabels: constLabels,
	})
	reg.MustRegister(r.EventsRoutedOutsideRun, r.RunsFlushed)
}
