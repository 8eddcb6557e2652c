// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package synth turns parameter frames into audio. A Session binds one speaker to a
// tube geometry model, an acoustic model and an incremental synthesis stream; block
// synthesis and transfer functions run on private engines and may be called
// concurrently, incremental synthesis needs a single caller.
package synth

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/emer/vtsynth/acoustic"
	"github.com/emer/vtsynth/metrics"
	"github.com/emer/vtsynth/speaker"
	"github.com/emer/vtsynth/transfer"
	"github.com/emer/vtsynth/trm"
	"github.com/emer/vtsynth/tube"
)

const version = "vtsynth 1.0.0"

var (
	ErrParamLength = errors.New("parameter vector length mismatch")
	ErrNoFrames    = errors.New("no frames")
	ErrFrameRate   = errors.New("frame rate must be positive")
	ErrClosed      = errors.New("session closed")
)

// Version returns the library version string.
func Version() string { return version }

// Constants are the fixed sizes of a session.
type Constants struct {
	SampleRate       int `json:"sample_rate"`
	NumTubeSections  int `json:"num_tube_sections"`
	NumTractParams   int `json:"num_tract_params"`
	NumGlottisParams int `json:"num_glottis_params"`
	NumNasalSections int `json:"num_nasal_sections"`
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger. The default discards everything.
func WithLogger(lg *zap.Logger) Option {
	return func(s *Session) { s.log = lg }
}

// WithMetrics records the session activity in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

// WithAcousticModel replaces the default lumped acoustic model.
func WithAcousticModel(m acoustic.Model) Option {
	return func(s *Session) { s.model = m }
}

// Session is one synthesizer instance.
type Session struct {
	ID uuid.UUID

	cfg      *speaker.Config
	geom     *tube.Model
	model    acoustic.Model
	tcfg     trm.Config
	gmap     trm.GlottisMap
	limits   tube.Limits
	analyzer transfer.Analyzer
	log      *zap.Logger
	metrics  *metrics.Metrics

	inc    *Interpolator
	target tube.State
	closed atomic.Bool
}

// NewSession validates the speaker and builds a session from a private copy of it.
func NewSession(cfg *speaker.Config, opts ...Option) (*Session, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil speaker", speaker.ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Session{ID: uuid.New(), cfg: cfg.Clone()}
	for _, o := range opts {
		o(s)
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.model == nil {
		s.model = acoustic.NewLumped(s.cfg.Temperature)
	}
	var err error
	if s.geom, err = tube.NewModel(s.cfg); err != nil {
		return nil, err
	}
	if s.gmap, err = trm.NewGlottisMap(s.cfg); err != nil {
		return nil, err
	}
	s.limits = s.geom.Limits()
	nasal := s.geom.Nasal()
	s.tcfg = trm.ConfigFromSpeaker(s.cfg, nasal)
	s.analyzer = transfer.Analyzer{Model: s.model, Nasal: nasal, Limits: s.limits}
	eng, err := trm.NewEngine(s.model, s.tcfg)
	if err != nil {
		return nil, err
	}
	s.inc = NewInterpolator(eng, s.gmap, s.cfg.NumGlottisParams())
	s.metrics.SessionOpened()
	s.log.Info("session opened",
		zap.String("session", s.ID.String()),
		zap.String("speaker", s.cfg.Name),
		zap.Int("sections", s.cfg.NumTubeSections),
		zap.Int("sample_rate", s.cfg.AudioSamplingRate),
		zap.Int("oversampling", eng.Oversampling()))
	return s, nil
}

// Close releases the session. Later calls fail with ErrClosed.
func (s *Session) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	s.metrics.SessionClosed()
	s.log.Info("session closed", zap.String("session", s.ID.String()))
	return nil
}

func (s *Session) check() error {
	if s.closed.Load() {
		return ErrClosed
	}
	return nil
}

// Speaker returns a copy of the session's speaker configuration.
func (s *Session) Speaker() *speaker.Config { return s.cfg.Clone() }

// Logger returns the session logger.
func (s *Session) Logger() *zap.Logger { return s.log }

// Constants returns the fixed sizes of the session.
func (s *Session) Constants() Constants {
	return Constants{
		SampleRate:       s.cfg.AudioSamplingRate,
		NumTubeSections:  s.cfg.NumTubeSections,
		NumTractParams:   s.cfg.NumTractParams(),
		NumGlottisParams: s.cfg.NumGlottisParams(),
		NumNasalSections: len(s.cfg.Nasal.Sections),
	}
}

// TractParamInfo returns the tract parameter descriptions in vector order.
func (s *Session) TractParamInfo() []speaker.Param {
	return append([]speaker.Param(nil), s.cfg.TractParams...)
}

// GlottisParamInfo returns the glottis parameter descriptions in vector order.
func (s *Session) GlottisParamInfo() []speaker.Param {
	return append([]speaker.Param(nil), s.cfg.GlottisParams...)
}

// TractParams returns the tract vector of a named shape, or speaker.ErrShapeNotFound.
func (s *Session) TractParams(shape string) ([]float64, error) {
	return s.cfg.Shape(shape)
}

// NeutralGlottis returns the neutral glottis vector.
func (s *Session) NeutralGlottis() []float64 { return s.cfg.NeutralGlottis() }

func (s *Session) checkLengths(tract, glottis []float64, frames int) error {
	nt, ng := s.cfg.NumTractParams(), s.cfg.NumGlottisParams()
	if len(tract) != frames*nt {
		return fmt.Errorf("%w: %d tract values for %d frames of %d", ErrParamLength, len(tract), frames, nt)
	}
	if glottis != nil && len(glottis) != frames*ng {
		return fmt.Errorf("%w: %d glottis values for %d frames of %d", ErrParamLength, len(glottis), frames, ng)
	}
	return nil
}

// Tube returns the clamped tube geometry of one frame. A nil glottis vector means
// the neutral one.
func (s *Session) Tube(tract, glottis []float64) (tube.State, error) {
	if err := s.check(); err != nil {
		return tube.State{}, err
	}
	if glottis == nil {
		glottis = s.cfg.NeutralGlottis()
	}
	if err := s.checkLengths(tract, glottis, 1); err != nil {
		return tube.State{}, err
	}
	st := s.geom.State(tract, glottis)
	s.metrics.AddClamped(st.Clamp(s.limits))
	return st, nil
}

// TransferFunction returns the glottis to lips transfer function of a tract vector
// at n frequencies over [0, sample rate).
func (s *Session) TransferFunction(tract []float64, n int) (transfer.Spectrum, error) {
	st, err := s.Tube(tract, nil)
	if err != nil {
		return transfer.Spectrum{}, err
	}
	sp, err := s.analyzer.Compute(&st, n, float64(s.cfg.AudioSamplingRate))
	if err != nil {
		return sp, err
	}
	s.metrics.IncSpectra()
	return sp, nil
}
