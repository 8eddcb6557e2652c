// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package synth

import (
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/emer/vtsynth/trm"
	"github.com/emer/vtsynth/tube"
)

// BlockResult is the output of a block synthesis.
type BlockResult struct {
	Audio      []float64
	NumSamples int
	// Tubes holds the tube geometry of every frame.
	Tubes []tube.State
}

// AreasCM2 returns the section areas of all frames in cm², frame after frame.
func (br *BlockResult) AreasCM2() []float64 {
	var a []float64
	for i := range br.Tubes {
		for _, s := range br.Tubes[i].Sections {
			a = append(a, s.Area*1e4)
		}
	}
	return a
}

// LengthsCM returns the section lengths of all frames in cm, frame after frame.
func (br *BlockResult) LengthsCM() []float64 {
	var l []float64
	for i := range br.Tubes {
		for _, s := range br.Tubes[i].Sections {
			l = append(l, s.Length*1e2)
		}
	}
	return l
}

// Articulators returns the section articulators of all frames, frame after frame.
func (br *BlockResult) Articulators() []tube.Articulator {
	var a []tube.Articulator
	for i := range br.Tubes {
		for _, s := range br.Tubes[i].Sections {
			a = append(a, s.Articulator)
		}
	}
	return a
}

// SynthBlock synthesizes numFrames frames of tract and glottis vectors, concatenated
// frame after frame, at frameRate frames per second. The geometry is interpolated
// linearly between frames; frame k spans SamplesPerFrame(k) samples. The session's
// incremental stream is not touched.
func (s *Session) SynthBlock(tract, glottis []float64, numFrames int, frameRate float64) (BlockResult, error) {
	if err := s.check(); err != nil {
		return BlockResult{}, err
	}
	if numFrames <= 0 {
		return BlockResult{}, fmt.Errorf("%w: %d", ErrNoFrames, numFrames)
	}
	if !(frameRate > 0) || math.IsInf(frameRate, 0) {
		return BlockResult{}, fmt.Errorf("%w: %g", ErrFrameRate, frameRate)
	}
	if glottis == nil {
		return BlockResult{}, fmt.Errorf("%w: no glottis values", ErrParamLength)
	}
	if err := s.checkLengths(tract, glottis, numFrames); err != nil {
		return BlockResult{}, err
	}
	start := time.Now()

	eng, err := trm.NewEngine(s.model, s.tcfg)
	if err != nil {
		return BlockResult{}, err
	}
	nt, ng := s.cfg.NumTractParams(), s.cfg.NumGlottisParams()
	sr := s.cfg.AudioSamplingRate
	ip := NewInterpolator(eng, s.gmap, ng)
	res := BlockResult{
		Audio: make([]float64, 0, BlockSampleCount(numFrames, sr, frameRate)),
		Tubes: make([]tube.State, numFrames),
	}
	clamped := 0
	for k := 0; k < numFrames; k++ {
		g := glottis[k*ng : (k+1)*ng]
		st := &res.Tubes[k]
		*st = s.geom.State(tract[k*nt:(k+1)*nt], g)
		clamped += st.Clamp(s.limits)
		res.Audio = ip.Add(res.Audio, SamplesPerFrame(k, sr, frameRate), st, g)
	}
	res.NumSamples = len(res.Audio)

	rec := eng.Recoveries()
	s.metrics.AddFrames(numFrames)
	s.metrics.AddSamples(res.NumSamples)
	s.metrics.AddClamped(clamped)
	s.metrics.AddRecoveries(rec)
	s.metrics.ObserveBlock(time.Since(start))
	if rec > 0 {
		s.log.Debug("numeric recoveries", zap.String("session", s.ID.String()), zap.Uint64("count", rec))
	}
	s.log.Debug("block synthesized",
		zap.String("session", s.ID.String()),
		zap.Int("frames", numFrames),
		zap.Int("samples", res.NumSamples),
		zap.Duration("elapsed", time.Since(start)))
	return res, nil
}
