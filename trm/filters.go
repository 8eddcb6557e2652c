// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/***************************************************************************
 *  Copyright 1991, 1992, 1993, 1994, 1995, 1996, 2001, 2002               *
 *    David R. Hill, Leonard Manzara, Craig Schock                         *
 *                                                                         *
 *  This program is free software: you can redistribute it and/or modify   *
 *  it under the terms of the GNU General Public License as published by   *
 *  the Free Software Foundation, either version 3 of the License, or      *
 *  (at your option) any later version.                                    *
 *                                                                         *
 *  This program is distributed in the hope that it will be useful,        *
 *  but WITHOUT ANY WARRANTY; without even the implied warranty of         *
 *  MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the          *
 *  GNU General Public License for more details.                           *
 *                                                                         *
 *  You should have received a copy of the GNU General Public License      *
 *  along with this program.  If not, see <http://www.gnu.org/licenses/>.  *
 ***************************************************************************/
// 2014-09
// This file was copied from Gnuspeech and modified by Marcelo Y. Matuda.

// 2019-02
// This is a port to golang of the C++ Gnuspeech port by Marcelo Y. Matuda


package trm

import "math"

// The source filters of the engine. All of them run once per audio sample except
// the decimator, which runs once per internal step.

// Noise is a deterministic white noise generator: a multiplicative congruential
// sequence on the fractional part of the seed. Two generators reset together
// produce identical sequences.
type Noise struct {
	seed float32
}

const (
	noiseFactor = 377.0
	noiseSeed   = 0.7892347
)

// Reset restarts the sequence.
func (nz *Noise) Reset() { nz.seed = noiseSeed }

// Next returns the next value in [-0.5, 0.5).
func (nz *Noise) Next() float32 {
	if nz.seed == 0 {
		nz.Reset()
	}
	// the product is formed in float64 so the fractional part is exact
	p := float64(nz.seed) * noiseFactor
	nz.seed = float32(p - math.Trunc(p))
	return nz.seed - 0.5
}

// Lowpass is a one-pole lowpass filter with unit DC gain.
type Lowpass struct {
	a0, b1 float64
	y      float64
}

// NewLowpass returns a lowpass with the given cutoff.
func NewLowpass(sampleRate, cutoff float64) Lowpass {
	b1 := math.Exp(-2 * math.Pi * cutoff / sampleRate)
	return Lowpass{a0: 1 - b1, b1: b1}
}

func (lp *Lowpass) Reset() { lp.y = 0 }

func (lp *Lowpass) Filter(x float64) float64 {
	lp.y = lp.a0*x + lp.b1*lp.y
	return lp.y
}

// DCBlocker is a one-zero, one-pole highpass filter with its zero at DC.
type DCBlocker struct {
	g      float64
	x1, y1 float64
}

// NewDCBlocker places the pole for the given cutoff.
func NewDCBlocker(sampleRate, cutoff float64) DCBlocker {
	return DCBlocker{g: math.Exp(-2 * math.Pi * cutoff / sampleRate)}
}

func (dc *DCBlocker) Reset() { dc.x1, dc.y1 = 0, 0 }

func (dc *DCBlocker) Filter(x float64) float64 {
	y := dc.g * (x - dc.x1 + dc.y1)
	dc.x1, dc.y1 = x, y
	return y
}

// Bandpass is a second order bandpass filter with variable center frequency and
// bandwidth. It colours the frication noise.
type Bandpass struct {
	alpha, beta, gamma float64
	x1, x2, y1, y2     float64

	rate, bw, center float64
}

// Tune sets the coefficients, skipping unchanged settings. Center and bandwidth
// are kept below Nyquist.
func (bp *Bandpass) Tune(sampleRate, bandwidth, center float64) {
	if sampleRate == bp.rate && bandwidth == bp.bw && center == bp.center {
		return
	}
	bp.rate, bp.bw, bp.center = sampleRate, bandwidth, center
	nyq := 0.5 * sampleRate
	center = math.Min(center, 0.95*nyq)
	bandwidth = math.Min(bandwidth, 0.95*nyq)
	tn := math.Tan(math.Pi * bandwidth / sampleRate)
	bp.beta = (1 - tn) / (2 * (1 + tn))
	bp.gamma = (0.5 + bp.beta) * math.Cos(2*math.Pi*center/sampleRate)
	bp.alpha = (0.5 - bp.beta) / 2
}

func (bp *Bandpass) Reset() { bp.x1, bp.x2, bp.y1, bp.y2 = 0, 0, 0, 0 }

func (bp *Bandpass) Filter(x float64) float64 {
	y := 2 * (bp.alpha*(x-bp.x2) + bp.gamma*bp.y1 - bp.beta*bp.y2)
	bp.x2, bp.x1 = bp.x1, x
	bp.y2, bp.y1 = bp.y1, y
	return y
}

// Throat is the sound radiated through the throat walls: a lowpassed glottal flow
// derivative scaled by a fixed gain.
type Throat struct {
	lp   Lowpass
	gain float64
}

// NewThroat returns a throat with the given cutoff and volume in dB (0 - VolMax).
func NewThroat(sampleRate, cutoff, volume float64) Throat {
	a0 := math.Min(2*cutoff/sampleRate, 1)
	return Throat{lp: Lowpass{a0: a0, b1: 1 - a0}, gain: Amplitude(volume)}
}

func (th *Throat) Reset() { th.lp.Reset() }

func (th *Throat) Filter(x float64) float64 { return th.lp.Filter(x) * th.gain }

// Decimator is a boxcar average over the internal steps of one audio sample.
type Decimator struct {
	buf []float64
	pos int
	sum float64
}

// NewDecimator averages n values.
func NewDecimator(n int) Decimator {
	return Decimator{buf: make([]float64, max(n, 1))}
}

func (d *Decimator) Reset() {
	clear(d.buf)
	d.pos, d.sum = 0, 0
}

// Filter adds x and returns the current average.
func (d *Decimator) Filter(x float64) float64 {
	d.sum += x - d.buf[d.pos]
	d.buf[d.pos] = x
	d.pos = (d.pos + 1) % len(d.buf)
	return d.sum / float64(len(d.buf))
}
