// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package trm is the acoustic propagation engine: a time-domain transmission line
// simulation of the vocal tract, nasal cavity, glottis and radiation, producing one
// audio sample per call.
//
// The tract is a staggered grid: each section j carries a pressure p[j] and each
// boundary j (0 glottis .. n lips) a volume velocity u[j]. Boundaries see the
// inertance and viscous resistance of the two adjacent half sections plus a flow
// dependent expansion loss, sections see their compliance and a yielding wall branch.
// Flows are advanced first, then pressures, several times per audio sample.
package trm

import (
	"fmt"
	"math"

	"github.com/emer/vtsynth/acoustic"
	"github.com/emer/vtsynth/tube"
)

const (
	aspirationCutoff = 2000.0
	dcCutoff         = 20.0
	obstacleGain     = 1.0
)

// line is a chain of sections ending in a radiation load: the oral tract or the
// nasal cavity.
type line struct {
	el   []acoustic.Element
	area []float64
	lb   []float64 // boundary inertance
	rb   []float64 // boundary viscous resistance
	p    []float64
	u    []float64
	uw   []float64
	xw   []float64
	rad  acoustic.Load
	uRad float64 // flow through the radiation inertance
}

func newLine(n int) line {
	return line{
		el:   make([]acoustic.Element, n),
		area: make([]float64, n),
		lb:   make([]float64, n+1),
		rb:   make([]float64, n+1),
		p:    make([]float64, n),
		u:    make([]float64, n+1),
		uw:   make([]float64, n),
		xw:   make([]float64, n),
	}
}

// boundaries sums the half-section values into the boundary elements. The first
// boundary gets only the half of section 0.
func (ln *line) boundaries() {
	n := len(ln.el)
	ln.lb[0] = ln.el[0].Inertance
	ln.rb[0] = ln.el[0].Resistance
	for j := 1; j < n; j++ {
		ln.lb[j] = ln.el[j-1].Inertance + ln.el[j].Inertance
		ln.rb[j] = ln.el[j-1].Resistance + ln.el[j].Resistance
	}
	ln.lb[n] = ln.el[n-1].Inertance
	ln.rb[n] = ln.el[n-1].Resistance
}

func (ln *line) reset() {
	zero(ln.p)
	zero(ln.u)
	zero(ln.uw)
	zero(ln.xw)
	ln.uRad = 0
}

// radiate advances the last boundary flow together with the radiation inertance
// flow, both implicitly. src is an extra pressure source at the boundary.
func (ln *line) radiate(dt, src float64) {
	n := len(ln.el)
	a := ln.lb[n] / dt
	r := ln.rad.Resistance
	g := dt * r / ln.rad.Inertance
	rr := r / (1 + g)
	u := (a*ln.u[n] + ln.p[n-1] + src + rr*ln.uRad) / (a + ln.rb[n] + rr)
	ln.u[n] = u
	ln.uRad = (ln.uRad + g*u) / (1 + g)
}

// walls advances the wall flows and displacements.
func (ln *line) walls(dt float64) {
	for j := range ln.el {
		w := &ln.el[j].Wall
		m := w.Mass / dt
		ln.uw[j] = (m*ln.uw[j] + ln.p[j] - w.Stiffness*ln.xw[j]) / (m + w.Resistance)
		ln.xw[j] += dt * ln.uw[j]
	}
}

// pressures integrates the section pressures from the net inflow.
func (ln *line) pressures(dt float64) {
	for j := range ln.el {
		ln.p[j] += dt / ln.el[j].Compliance * (ln.u[j] - ln.u[j+1] - ln.uw[j])
	}
}

// State is a snapshot of the acoustic state.
type State struct {
	Pressures      []float64
	Flows          []float64
	WallFlows      []float64
	NasalPressures []float64
	NasalFlows     []float64
	PortFlow       float64
}

// Engine integrates the acoustics of one synthesis stream. It is not safe for
// concurrent use.
type Engine struct {
	model acoustic.Model
	cfg   Config
	lim   tube.Limits
	air   acoustic.Medium
	k     int
	dt    float64

	tract line
	nose  line
	nasal []tube.Section
	src   []float64 // noise pressure sources per tract boundary

	junction int
	portOpen bool
	port     acoustic.Port

	glottalArea float64
	glottal     WavetableGlottalSource
	prevAmp     float32
	noise       Noise
	aspFilter   Lowpass
	fricFilter  Bandpass
	obstFilter  Bandpass
	throat      Throat
	dcBlock     DCBlocker
	decim       Decimator

	prevRad    float64
	prevGlot   float64
	recoveries uint64
	mismatches uint64
}

// NewEngine creates an engine for tubes of cfg.Sections sections. It fails with
// ErrUnstable when the shortest allowed section would need more than
// cfg.MaxOversampling internal steps per audio sample.
func NewEngine(model acoustic.Model, cfg Config) (*Engine, error) {
	if cfg.Sections < 2 {
		return nil, fmt.Errorf("trm: %d sections", cfg.Sections)
	}
	if len(cfg.Nasal.Sections) == 0 {
		return nil, fmt.Errorf("trm: no nasal sections")
	}
	if cfg.NoiseLimit == 0 {
		cfg.Defaults()
	}
	air := model.Medium()
	k, err := cfg.Oversampling(air.SoundSpeed)
	if err != nil {
		return nil, err
	}
	e := &Engine{
		model: model,
		cfg:   cfg,
		lim:   cfg.Limits(),
		air:   air,
		k:     k,
		dt:    1 / (cfg.SampleRate * float64(k)),
		tract: newLine(cfg.Sections),
		nose:  newLine(len(cfg.Nasal.Sections)),
		nasal: append([]tube.Section(nil), cfg.Nasal.Sections...),
		src:   make([]float64, cfg.Sections+1),
	}
	for i, s := range e.nasal {
		s = e.lim.Floor(s)
		e.nasal[i] = s
		e.nose.el[i] = model.NasalSection(s)
		e.nose.area[i] = s.Area
	}
	e.nose.boundaries()
	e.nose.rad = model.Radiation(e.nose.area[len(e.nasal)-1])

	sp := &cfg.Source
	e.glottal.Init(sp.WaveForm, float32(cfg.SampleRate), float32(sp.PulseRise), float32(sp.PulseFallMin), float32(sp.PulseFallMax))
	e.aspFilter = NewLowpass(cfg.SampleRate, aspirationCutoff)
	e.throat = NewThroat(cfg.SampleRate, cfg.ThroatCutoff, cfg.ThroatVolume)
	e.dcBlock = NewDCBlocker(cfg.SampleRate, dcCutoff)
	e.decim = NewDecimator(k)
	obst := model.Noise(tube.LowerIncisor)
	e.obstFilter.Tune(cfg.SampleRate, obst.Bandwidth, obst.CenterFreq)
	e.Reset()
	return e, nil
}

// Oversampling returns the number of internal steps per audio sample.
func (e *Engine) Oversampling() int { return e.k }

// Recoveries returns how often a non-finite sample forced a reset.
func (e *Engine) Recoveries() uint64 { return e.recoveries }

// Mismatches returns how many Step calls were given a tube with the wrong number of
// sections.
func (e *Engine) Mismatches() uint64 { return e.mismatches }

// Reset zeroes the acoustic state, filter memories and the glottal and noise
// sources.
func (e *Engine) Reset() {
	e.tract.reset()
	e.nose.reset()
	zero(e.src)
	e.glottal.Reset()
	e.prevAmp = -1
	e.noise.Reset()
	e.aspFilter.Reset()
	e.fricFilter.Reset()
	e.obstFilter.Reset()
	e.throat.Reset()
	e.dcBlock.Reset()
	e.decim.Reset()
	e.prevRad = 0
	e.prevGlot = 0
}

// State returns a copy of the acoustic state.
func (e *Engine) State() State {
	return State{
		Pressures:      append([]float64(nil), e.tract.p...),
		Flows:          append([]float64(nil), e.tract.u...),
		WallFlows:      append([]float64(nil), e.tract.uw...),
		NasalPressures: append([]float64(nil), e.nose.p...),
		NasalFlows:     append([]float64(nil), e.nose.u...),
		PortFlow:       e.nose.u[0],
	}
}

// setGeometry derives the element values of the tract for one audio sample.
func (e *Engine) setGeometry(st *tube.State) {
	tr := &e.tract
	for j := range st.Sections {
		s := e.lim.Floor(st.Sections[j])
		tr.el[j] = e.model.Section(s)
		tr.area[j] = s.Area
	}
	tr.boundaries()
	tr.rad = e.model.Radiation(tr.area[len(tr.area)-1])

	e.junction = st.SectionAt(e.cfg.Nasal.JunctionPos)
	// the port is never wider than the section it opens from
	av := math.Min(st.VelumArea, tr.area[e.junction])
	e.portOpen = av >= e.cfg.MinArea
	if e.portOpen {
		e.port = e.model.Port(av, e.lim.FloorLength(e.cfg.Nasal.PortLength))
	}
}

// turbulence returns the pressure scale of jet noise for flow u through area a.
func (e *Engine) turbulence(u, a float64) float64 {
	v := math.Abs(u) / a
	d := 2 * math.Sqrt(a/math.Pi)
	vc := e.cfg.CriticalReynolds * e.air.Viscosity / (e.air.Density * d)
	if v <= vc {
		return 0
	}
	return math.Min(0.5*e.air.Density*(v*v-vc*vc), e.cfg.NoiseLimit)
}

// setNoise places the aspiration, frication and obstacle noise sources.
func (e *Engine) setNoise(st *tube.State) {
	zero(e.src)
	tr := &e.tract
	n := len(tr.area)
	white := float64(e.noise.Next())

	asp := e.aspFilter.Filter(white)
	if e.glottalArea > 0 {
		amp := Amplitude(st.AspirationDB + VolMax)
		e.src[1] += amp * asp * e.turbulence(tr.u[0], e.glottalArea)
	}

	// narrowest section from the nasal junction forward
	c := e.junction
	for j := e.junction + 1; j < n; j++ {
		if tr.area[j] < tr.area[c] {
			c = j
		}
	}
	art := st.Sections[c].Articulator
	nz := e.model.Noise(art)
	e.fricFilter.Tune(e.cfg.SampleRate, nz.Bandwidth, nz.CenterFreq)
	fric := e.fricFilter.Filter(white)
	obst := e.obstFilter.Filter(white)
	turb := e.turbulence(tr.u[c+1], tr.area[c])
	e.src[c+1] += nz.Gain * fric * turb

	inc := st.SectionAt(st.IncisorPos)
	if c < inc && art != tube.LowerLip {
		on := e.model.Noise(tube.LowerIncisor)
		e.src[inc+1] += obstacleGain * on.Gain * obst * turb
	}
}

// Step synthesizes one audio sample for the given tube geometry and glottis input.
// Non-finite results reset the acoustic state and yield 0.
//
// The tube must have exactly the configured number of sections. Any other tube is
// not synthesized: Step returns 0, leaves the acoustic state untouched and counts
// the call in Mismatches.
func (e *Engine) Step(st *tube.State, g Glottis) float64 {
	if st.Len() != len(e.tract.el) {
		e.mismatches++
		return 0
	}
	e.setGeometry(st)

	amp := float32(g.Pressure / e.cfg.Source.MaxPressure)
	if !(amp >= 0) {
		amp = 0
	} else if amp > 1 {
		amp = 1
	}
	if amp != e.prevAmp {
		e.glottal.Update(amp)
		e.prevAmp = amp
	}
	f0 := g.F0
	if !(f0 >= 0) {
		f0 = 0
	} else if f0 > e.cfg.SampleRate/2 {
		f0 = e.cfg.SampleRate / 2
	}
	pulse := float64(e.glottal.GetSample(float32(f0)))
	if pulse < 0 {
		pulse = 0
	}
	e.glottalArea = math.Max(0, g.ChinkArea) + math.Max(0, g.OpenArea)*pulse
	e.setNoise(st)

	var rad, glot float64
	for i := 0; i < e.k; i++ {
		e.substep(g.Pressure)
		q := e.tract.u[len(e.tract.el)] + e.nose.u[len(e.nose.el)]
		rad = e.decim.Filter((q - e.prevRad) / e.dt)
		e.prevRad = q
		glot += e.tract.u[0]
	}
	glot /= float64(e.k)
	dglot := (glot - e.prevGlot) * e.cfg.SampleRate
	e.prevGlot = glot

	scale := e.air.Density / (4 * math.Pi)
	out := scale * rad
	out += e.throat.Filter(scale * dglot)
	out = e.dcBlock.Filter(out) * e.cfg.OutputGain
	if math.IsNaN(out) || math.IsInf(out, 0) {
		e.Reset()
		e.recoveries++
		return 0
	}
	switch {
	case out > 1:
		out = 1
	case out < -1:
		out = -1
	}
	return out
}

// substep advances all flows and then all pressures by one internal step.
func (e *Engine) substep(psub float64) {
	dt := e.dt
	tr := &e.tract
	n := len(tr.el)
	rho := e.air.Density

	// glottis
	if ag := e.glottalArea; ag > 0 {
		lg := rho*e.cfg.GlottisThickness/ag + tr.lb[0]
		rg := rho*math.Abs(tr.u[0])/(2*ag*ag) +
			12*e.air.Viscosity*e.cfg.GlottisThickness*e.cfg.GlottisLength*e.cfg.GlottisLength/(ag*ag*ag) +
			tr.rb[0]
		tr.u[0] = (lg/dt*tr.u[0] + psub - tr.p[0]) / (lg/dt + rg)
	} else {
		tr.u[0] = 0
	}

	for j := 1; j < n; j++ {
		l := tr.lb[j] / dt
		r := tr.rb[j] + e.model.Kinetic(tr.u[j], tr.area[j-1], tr.area[j])
		tr.u[j] = (l*tr.u[j] + tr.p[j-1] - tr.p[j] + e.src[j]) / (l + r)
	}
	tr.radiate(dt, e.src[n])

	// velopharyngeal port feeds the first nasal boundary
	ns := &e.nose
	m := len(ns.el)
	if e.portOpen {
		l := (e.port.Inertance + ns.lb[0]) / dt
		r := e.port.Resistance + ns.rb[0]
		ns.u[0] = (l*ns.u[0] + tr.p[e.junction] - ns.p[0]) / (l + r)
	} else {
		ns.u[0] = 0
	}
	for i := 1; i < m; i++ {
		l := ns.lb[i] / dt
		ns.u[i] = (l*ns.u[i] + ns.p[i-1] - ns.p[i]) / (l + ns.rb[i])
	}
	ns.radiate(dt, 0)

	tr.walls(dt)
	ns.walls(dt)

	tr.pressures(dt)
	tr.p[e.junction] -= dt / tr.el[e.junction].Compliance * ns.u[0]
	ns.pressures(dt)
}

func zero(s []float64) {
	for i := range s {
		s[i] = 0
	}
}
