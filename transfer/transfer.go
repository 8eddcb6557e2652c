// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package transfer computes the volume velocity transfer function from the glottis to
// the lips of a static tube, in the frequency domain, from the same lumped elements
// the trm engine integrates.
package transfer

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"github.com/emer/vtsynth/acoustic"
	"github.com/emer/vtsynth/tube"
)

// ErrSpectrumSize is returned for a spectrum with fewer than 2 or more than
// MaxSpectrumSamples samples.
var ErrSpectrumSize = errors.New("invalid spectrum size")

// MaxSpectrumSamples is the largest spectrum Compute evaluates.
const MaxSpectrumSamples = 1 << 16

// minFormantFreq is the lowest frequency reported as a formant, Hz.
const minFormantFreq = 100.0

// Analyzer evaluates transfer functions for one acoustic model and nasal cavity.
// It holds no mutable state and is safe for concurrent use.
type Analyzer struct {
	Model acoustic.Model
	Nasal tube.Nasal
	// Limits floor section lengths and areas like the trm engine does. A port
	// narrower than Limits.MinArea counts as closed. Zero limits mean
	// tube.DefaultLimits.
	Limits tube.Limits
}

// Compute is a shortcut for an Analyzer with tube.DefaultLimits.
func Compute(model acoustic.Model, nasal tube.Nasal, st *tube.State, n int, fs float64) (Spectrum, error) {
	an := Analyzer{Model: model, Nasal: nasal}
	return an.Compute(st, n, fs)
}

func (an *Analyzer) limits() tube.Limits {
	if an.Limits.MinArea > 0 && an.Limits.MinLength > 0 {
		return an.Limits
	}
	return tube.DefaultLimits
}

// Compute returns the spectrum of U_lips / U_glottis at n equally spaced frequencies
// over [0, fs). Bins above fs/2 mirror the lower half as complex conjugates.
// Degenerate section lengths and areas are floored, never reported.
func (an *Analyzer) Compute(st *tube.State, n int, fs float64) (Spectrum, error) {
	if n < 2 || n > MaxSpectrumSamples {
		return Spectrum{}, fmt.Errorf("%w: %d", ErrSpectrumSize, n)
	}
	if !(fs > 0) || math.IsInf(fs, 0) {
		return Spectrum{}, fmt.Errorf("transfer: sampling rate %g", fs)
	}
	if st.Len() == 0 {
		return Spectrum{}, fmt.Errorf("transfer: empty tube")
	}
	nw := newNetwork(an, st)
	sp := Spectrum{
		Magnitude:  make([]float64, n),
		Phase:      make([]float64, n),
		SampleRate: fs,
	}
	for k := 0; k <= n/2; k++ {
		h := nw.response(2 * math.Pi * sp.Freq(k))
		sp.Magnitude[k] = cmplx.Abs(h)
		sp.Phase[k] = cmplx.Phase(h)
		if k > 0 && k < n-k {
			sp.Magnitude[n-k] = sp.Magnitude[k]
			sp.Phase[n-k] = -sp.Phase[k]
		}
	}
	return sp, nil
}

// network holds the frequency independent element values of one tube.
type network struct {
	el   []acoustic.Element
	lb   []float64
	rb   []float64
	rad  acoustic.Load
	junc int
	open bool
	port acoustic.Port

	nel  []acoustic.Element
	nlb  []float64
	nrb  []float64
	nrad acoustic.Load
}

// boundaries sums half sections into boundary values, like the time domain line.
func boundaries(el []acoustic.Element) (lb, rb []float64) {
	n := len(el)
	lb = make([]float64, n+1)
	rb = make([]float64, n+1)
	lb[0], rb[0] = el[0].Inertance, el[0].Resistance
	for j := 1; j < n; j++ {
		lb[j] = el[j-1].Inertance + el[j].Inertance
		rb[j] = el[j-1].Resistance + el[j].Resistance
	}
	lb[n], rb[n] = el[n-1].Inertance, el[n-1].Resistance
	return lb, rb
}

func newNetwork(an *Analyzer, st *tube.State) *network {
	lim := an.limits()
	nw := &network{el: make([]acoustic.Element, st.Len())}
	area := make([]float64, st.Len())
	for j, s := range st.Sections {
		s = lim.Floor(s)
		nw.el[j] = an.Model.Section(s)
		area[j] = s.Area
	}
	nw.lb, nw.rb = boundaries(nw.el)
	nw.rad = an.Model.Radiation(area[len(area)-1])

	m := len(an.Nasal.Sections)
	if m == 0 {
		return nw
	}
	nw.junc = st.SectionAt(an.Nasal.JunctionPos)
	// the port is never wider than the section it opens from
	av := math.Min(st.VelumArea, area[nw.junc])
	nw.open = av >= lim.MinArea
	if !nw.open {
		return nw
	}
	nw.port = an.Model.Port(av, lim.FloorLength(an.Nasal.PortLength))
	nw.nel = make([]acoustic.Element, m)
	var last tube.Section
	for i, s := range an.Nasal.Sections {
		last = lim.Floor(s)
		nw.nel[i] = an.Model.NasalSection(last)
	}
	nw.nlb, nw.nrb = boundaries(nw.nel)
	nw.nrad = an.Model.Radiation(last.Area)
	return nw
}

func series(l, r, w float64) complex128 {
	return complex(r, w*l)
}

func shunt(e *acoustic.Element, w float64) complex128 {
	return complex(0, w*e.Compliance) + e.Wall.Admittance(w)
}

// nasalAdmittance returns the admittance the nasal branch presents at the junction,
// port included.
func (nw *network) nasalAdmittance(w float64) complex128 {
	if !nw.open {
		return 0
	}
	m := len(nw.nel)
	z := nw.nrad.Impedance(w)
	for i := m - 1; i >= 0; i-- {
		z += series(nw.nlb[i+1], nw.nrb[i+1], w)
		if z != 0 {
			z = 1 / (shunt(&nw.nel[i], w) + 1/z)
		}
	}
	z += series(nw.port.Inertance+nw.nlb[0], nw.port.Resistance+nw.nrb[0], w)
	if z == 0 {
		return 0
	}
	return 1 / z
}

// response propagates a unit lip flow back to the glottis through the chain of
// series boundary and shunt section elements: H = 1 / U_glottis.
func (nw *network) response(w float64) complex128 {
	n := len(nw.el)
	u := complex(1, 0)
	p := nw.rad.Impedance(w) * u
	yn := nw.nasalAdmittance(w)
	for j := n - 1; j >= 0; j-- {
		p += series(nw.lb[j+1], nw.rb[j+1], w) * u
		y := shunt(&nw.el[j], w)
		if nw.open && j == nw.junc {
			y += yn
		}
		u += y * p
	}
	if u == 0 {
		return 0
	}
	return 1 / u
}
