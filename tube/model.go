// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tube

import (
	"errors"
	"fmt"
	"math"

	"github.com/emer/vtsynth/speaker"
)

// ErrMissingParam is returned when a speaker lacks a parameter the geometry needs.
var ErrMissingParam = errors.New("missing required parameter")

// MinAspirationDB is the aspiration floor applied by Clamp.
const MinAspirationDB = -100.0

// tract parameter roles
const (
	roleHX = iota
	roleHY
	roleJX
	roleJA
	roleLP
	roleLD
	roleVS
	roleVO
	roleWC
	roleTCX
	roleTCY
	roleTTX
	roleTTY
	roleTBX
	roleTBY
	roleTRX
	roleTRY
	roleTS1
	roleTS2
	roleTS3
	roleTS4
	roleMA1
	roleMA2
	roleMA3
	numRoles
)

var roleAbbrs = [numRoles]string{
	"HX", "HY", "JX", "JA", "LP", "LD", "VS", "VO", "WC",
	"TCX", "TCY", "TTX", "TTY", "TBX", "TBY", "TRX", "TRY",
	"TS1", "TS2", "TS3", "TS4", "MA1", "MA2", "MA3",
}

// RequiredRoles lists the tract parameters a speaker must define. The other roles
// stay at their neutral effect when absent.
var RequiredRoles = []string{"JA", "LD", "VO", "TCX", "TCY", "TTX", "TTY"}

// relative positions along the tract (0 glottis, 1 lips)
const (
	pharynxEnd  = 0.45
	oralStart   = 0.55
	rootPos     = 0.28
	bodyPos     = 0.62
	bladePos    = 0.74
	tipPos      = 0.82
	tonguePre   = 0.08
	tonguePost  = 0.03
	minLipLenCM = 0.3
)

var sidePos = [4]float64{0.5, 0.6, 0.7, 0.78}

// Model maps tract and glottis parameter vectors to a State. It is immutable after
// construction and safe for concurrent use.
type Model struct {
	cfg      *speaker.Config
	idx      [numRoles]int
	neutral  [numRoles]float64
	aspIdx   int
	sections int
	junction float64
}

// NewModel binds the speaker's parameters to their geometric roles.
func NewModel(cfg *speaker.Config) (*Model, error) {
	m := &Model{cfg: cfg, sections: cfg.NumTubeSections, aspIdx: cfg.GlottisParamIndex("aspiration_strength")}
	for r := 0; r < numRoles; r++ {
		m.idx[r] = cfg.TractParamIndex(roleAbbrs[r])
		if m.idx[r] >= 0 {
			m.neutral[r] = cfg.TractParams[m.idx[r]].Neutral
		}
	}
	for _, abbr := range RequiredRoles {
		if cfg.TractParamIndex(abbr) < 0 {
			return nil, fmt.Errorf("%w: tract parameter %q", ErrMissingParam, abbr)
		}
	}
	m.junction = cfg.Nasal.JunctionPos / cfg.Tract.Length
	return m, nil
}

// NumSections returns the number of sections of every State the model produces.
func (m *Model) NumSections() int { return m.sections }

// Limits returns the numerical floors in SI units.
func (m *Model) Limits() Limits {
	return Limits{
		MinArea:       m.cfg.Tract.MinArea * 1e-4,
		MinLength:     m.cfg.Tract.MinSectionLength * 1e-2,
		MinAspiration: MinAspirationDB,
	}
}

// Nasal returns the nasal cavity of the speaker in SI units.
func (m *Model) Nasal() Nasal {
	n := Nasal{
		Sections:    make([]Section, len(m.cfg.Nasal.Sections)),
		JunctionPos: m.cfg.Nasal.JunctionPos * 1e-2,
		PortLength:  m.cfg.Nasal.PortLength * 1e-2,
	}
	for i, s := range m.cfg.Nasal.Sections {
		n.Sections[i] = Section{Length: s.Length * 1e-2, Area: s.Area * 1e-4, Articulator: Other}
	}
	return n
}

// params holds clamped role values, neutral where a role is unbound.
type params [numRoles]float64

func (m *Model) params(tract []float64) params {
	var p params
	for r := 0; r < numRoles; r++ {
		i := m.idx[r]
		if i < 0 || i >= len(tract) {
			p[r] = m.neutral[r]
			continue
		}
		p[r] = m.cfg.TractParams[i].Clamp(tract[i])
	}
	return p
}

// d returns the offset of role r from its neutral value.
func (p *params) d(m *Model, r int) float64 { return p[r] - m.neutral[r] }

// State computes the tube geometry for one frame. Out-of-range parameters are clamped;
// the result always has NumSections sections with finite positive lengths and areas.
func (m *Model) State(tract, glottis []float64) State {
	st := State{Sections: make([]Section, m.sections)}
	m.Fill(&st, tract, glottis)
	return st
}

// Fill computes the geometry into st, reusing its section storage.
func (m *Model) Fill(st *State, tract, glottis []float64) {
	tc := &m.cfg.Tract
	p := m.params(tract)

	lipLen := math.Max(minLipLenCM, tc.LipLength+0.5*p.d(m, roleLP))
	length := tc.Length + 0.5*(m.neutral[roleHY]-p[roleHY]) + 0.5*p.d(m, roleJX) + (lipLen - tc.LipLength)
	incisor := length - lipLen
	n := m.sections
	dl := length / float64(n)

	jawOpen := (m.neutral[roleJA] - p[roleJA]) / 7
	pharScale := 0.3*p.d(m, roleHX) + 0.08*p.d(m, roleTCX) - 0.2*p.d(m, roleWC)
	lipArea := math.Max(0, p[roleLD]) * tc.LipWidth

	dRoot := degree(0.1 - 0.15*p.d(m, roleTRX))
	sRoot := rootPos + 0.015*p.d(m, roleTRY)
	dBody := degree(0.3 + 0.25*p.d(m, roleTCY))
	sBody := bodyPos + 0.045*p.d(m, roleTCX)
	dBlade := degree(0.05 + 0.15*p.d(m, roleTBY))
	sBlade := bladePos + 0.02*p.d(m, roleTBX)
	dTip := degree(0.1 + 0.35*p.d(m, roleTTY))
	sTip := tipPos + 0.02*p.d(m, roleTTX)

	ma1 := math.Max(0, p[roleMA1])
	ma2 := math.Max(0, p[roleMA2])
	ma3 := math.Max(0, p[roleMA3])

	// constriction plateau, wide enough to cover one section fully
	pl := math.Max(0.6/float64(n), 0.015)

	tongueStart := sRoot - tonguePre
	tongueEnd := sTip + tonguePost

	if cap(st.Sections) < n {
		st.Sections = make([]Section, n)
	}
	st.Sections = st.Sections[:n]
	for j := 0; j < n; j++ {
		x0 := float64(j) * dl
		x := x0 + 0.5*dl
		s := x / length

		a := m.profileAt(s)
		wp := 1 - smoothstep(pharynxEnd, oralStart, s)
		a *= 1 + wp*pharScale
		a *= 1 - 0.3*p[roleVS]*gauss(s, m.junction, 0.05)
		a *= 1 + (1-wp)*jawOpen
		a *= 1 - dRoot*bump(s, sRoot, pl, 0.08)
		a *= 1 - dBody*bump(s, sBody, pl, 0.1)
		a *= 1 - dBlade*bump(s, sBlade, pl, 0.05)
		a *= 1 - dTip*bump(s, sTip, pl, 0.035)
		for i, sp := range sidePos {
			a *= 1 - 0.08*p[roleTS1+i]*gauss(s, sp, 0.05)
		}

		wl := clamp01(0.5 + (x-incisor)/dl)
		a = a*(1-wl) + lipArea*wl

		wt := smoothstep(tongueStart-0.02, tongueStart, s) * (1 - smoothstep(tongueEnd, tongueEnd+0.02, s))
		floor := tc.MinArea + math.Max(ma1*wt, math.Max(ma2*bump(s, sTip, pl, 0.035), ma3*wl))
		if !(a >= floor) {
			a = floor
		}

		art := Other
		switch {
		case x0 <= incisor && incisor < x0+dl:
			art = LowerIncisor
		case x0 > incisor:
			art = LowerLip
		case s >= tongueStart && s <= tongueEnd:
			art = Tongue
		}
		st.Sections[j] = Section{Length: dl * 1e-2, Area: a * 1e-4, Articulator: art}
	}
	st.IncisorPos = incisor * 1e-2
	st.VelumArea = math.Max(0, p[roleVO]) * tc.MaxVelumArea * 1e-4
	st.AspirationDB = m.cfg.Glottis.AspirationDB
	if m.aspIdx >= 0 && m.aspIdx < len(glottis) {
		st.AspirationDB = m.cfg.GlottisParams[m.aspIdx].Clamp(glottis[m.aspIdx])
	}
	st.Clamp(m.Limits())
}

// profileAt linearly interpolates the neutral area profile at relative position s.
func (m *Model) profileAt(s float64) float64 {
	prof := m.cfg.Tract.AreaProfile
	f := clamp01(s) * float64(len(prof)-1)
	i := int(f)
	if i >= len(prof)-1 {
		return prof[len(prof)-1]
	}
	fr := f - float64(i)
	return prof[i] + (prof[i+1]-prof[i])*fr
}

// degree limits a constriction degree: 1 closes, negative values widen.
func degree(d float64) float64 {
	return math.Max(-0.6, math.Min(1, d))
}

func gauss(s, mu, sigma float64) float64 {
	z := (s - mu) / sigma
	return math.Exp(-0.5 * z * z)
}

// bump is 1 within plateau of mu and falls off as a Gaussian outside.
func bump(s, mu, plateau, sigma float64) float64 {
	z := math.Abs(s-mu) - plateau
	if z <= 0 {
		return 1
	}
	z /= sigma
	return math.Exp(-0.5 * z * z)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

func smoothstep(e0, e1, x float64) float64 {
	t := clamp01((x - e0) / (e1 - e0))
	return t * t * (3 - 2*t)
}
