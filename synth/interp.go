// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package synth

import (
	"math"

	"github.com/emer/vtsynth/trm"
	"github.com/emer/vtsynth/tube"
)

// SamplesPerFrame returns the number of audio samples frame k spans at sampling rate
// sampleRate and frameRate frames per second: floor((k+1)·S/R) - floor(k·S/R).
func SamplesPerFrame(k, sampleRate int, frameRate float64) int {
	s := float64(sampleRate)
	return int(math.Floor(float64(k+1)*s/frameRate)) - int(math.Floor(float64(k)*s/frameRate))
}

// BlockSampleCount returns the samples produced by numFrames frames: floor(F·S/R).
func BlockSampleCount(numFrames, sampleRate int, frameRate float64) int {
	return int(math.Floor(float64(numFrames) * float64(sampleRate) / frameRate))
}

// Interpolator drives an engine from a current tube and glottis state toward
// successive targets. It is not safe for concurrent use.
type Interpolator struct {
	engine *trm.Engine
	gmap   trm.GlottisMap

	cur     tube.State
	curG    []float64
	mix     tube.State
	mixG    []float64
	started bool
}

// NewInterpolator wraps engine; gm converts glottis vectors of nGlottis values.
func NewInterpolator(engine *trm.Engine, gm trm.GlottisMap, nGlottis int) *Interpolator {
	return &Interpolator{
		engine: engine,
		gmap:   gm,
		curG:   make([]float64, nGlottis),
		mixG:   make([]float64, nGlottis),
	}
}

// Engine returns the driven engine.
func (ip *Interpolator) Engine() *trm.Engine { return ip.engine }

// Reset silences the engine and forgets the current state: the next Add starts
// from its own target.
func (ip *Interpolator) Reset() {
	ip.engine.Reset()
	ip.started = false
}

// Add synthesizes n samples moving linearly from the current state to target,
// reaching it exactly on the last sample (ratio (i+1)/n), appends them to dst and
// makes target the current state.
func (ip *Interpolator) Add(dst []float64, n int, target *tube.State, glottis []float64) []float64 {
	if !ip.started {
		ip.cur.CopyFrom(target)
		copy(ip.curG, glottis)
		ip.started = true
	}
	for i := 0; i < n; i++ {
		r := float64(i+1) / float64(n)
		ip.mix.Lerp(&ip.cur, target, r)
		for j := range ip.mixG {
			ip.mixG[j] = ip.curG[j]*(1-r) + glottis[j]*r
		}
		dst = append(dst, ip.engine.Step(&ip.mix, ip.gmap.Glottis(ip.mixG)))
	}
	ip.cur.CopyFrom(target)
	copy(ip.curG, glottis)
	return dst
}
