// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package metrics holds the Prometheus instrumentation of synthesis sessions.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

const namespace = "vtsynth"

// Metrics is one set of synthesis collectors.
type Metrics struct {
	Frames        prometheus.Counter
	Samples       prometheus.Counter
	Spectra       prometheus.Counter
	Recoveries    prometheus.Counter
	Clamped       prometheus.Counter
	Sessions      prometheus.Gauge
	BlockDuration prometheus.Histogram
}

// New creates the collectors and registers them with reg, when not nil.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Frames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "Total number of parameter frames synthesized",
		}),
		Samples: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_total",
			Help:      "Total number of audio samples produced",
		}),
		Spectra: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "spectra_total",
			Help:      "Total number of transfer functions computed",
		}),
		Recoveries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "numeric_recoveries_total",
			Help:      "Total number of acoustic state resets after a non-finite sample",
		}),
		Clamped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "clamped_values_total",
			Help:      "Total number of tube values raised to their numerical floors",
		}),
		Sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of open synthesis sessions",
		}),
		BlockDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "block_duration_seconds",
			Help:      "Histogram of block synthesis duration in seconds",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range m.collectors() {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{m.Frames, m.Samples, m.Spectra, m.Recoveries, m.Clamped, m.Sessions, m.BlockDuration}
}

// AddFrames records n synthesized frames.
func (m *Metrics) AddFrames(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.Frames.Add(float64(n))
}

// AddSamples records n produced samples.
func (m *Metrics) AddSamples(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.Samples.Add(float64(n))
}

func (m *Metrics) IncSpectra() {
	if m == nil {
		return
	}
	m.Spectra.Inc()
}

func (m *Metrics) AddRecoveries(n uint64) {
	if m == nil || n == 0 {
		return
	}
	m.Recoveries.Add(float64(n))
}

func (m *Metrics) AddClamped(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.Clamped.Add(float64(n))
}

// SessionOpened and SessionClosed track the open sessions.
func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.Sessions.Inc()
}

func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.Sessions.Dec()
}

// ObserveBlock records the duration of one block synthesis.
func (m *Metrics) ObserveBlock(d time.Duration) {
	if m == nil {
		return
	}
	m.BlockDuration.Observe(d.Seconds())
}

// WriteText writes everything g gathers in the text exposition format.
func WriteText(w io.Writer, g prometheus.Gatherer) error {
	mfs, err := g.Gather()
	if err != nil {
		return err
	}
	for _, mf := range mfs {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

// Values returns the summed counter and gauge values by metric name, and the sample
// count of histograms.
func Values(g prometheus.Gatherer) (map[string]float64, error) {
	mfs, err := g.Gather()
	if err != nil {
		return nil, err
	}
	vals := make(map[string]float64, len(mfs))
	for _, mf := range mfs {
		vals[mf.GetName()] = familyValue(mf)
	}
	return vals, nil
}

func familyValue(mf *dto.MetricFamily) float64 {
	v := 0.0
	for _, m := range mf.GetMetric() {
		switch mf.GetType() {
		case dto.MetricType_COUNTER:
			v += m.GetCounter().GetValue()
		case dto.MetricType_GAUGE:
			v += m.GetGauge().GetValue()
		case dto.MetricType_HISTOGRAM:
			v += float64(m.GetHistogram().GetSampleCount())
		}
	}
	return v
}
