// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package tube describes the vocal tract as a chain of short cylindrical sections,
// from the glottis to the lips, and maps articulatory parameters onto it.
package tube

import (
	"fmt"
	"math"
)

// Articulator identifies the structure bounding a tube section.
type Articulator int

const (
	Tongue Articulator = iota
	LowerIncisor
	LowerLip
	Other

	NumArticulators
)

var articulatorNames = [NumArticulators]string{"Tongue", "LowerIncisor", "LowerLip", "Other"}

// codes used in the feedback stream
var articulatorCodes = [NumArticulators]byte{'T', 'I', 'L', 'N'}

func (a Articulator) String() string {
	if a < 0 || a >= NumArticulators {
		return fmt.Sprintf("Articulator(%d)", int(a))
	}
	return articulatorNames[a]
}

// Code returns the single letter code of the articulator.
func (a Articulator) Code() byte {
	if a < 0 || a >= NumArticulators {
		return '?'
	}
	return articulatorCodes[a]
}

// Section is one cylindrical tube section. Length in m, Area in m².
type Section struct {
	Length      float64
	Area        float64
	Articulator Articulator
}

// State is the tube geometry at one instant.
type State struct {
	Sections     []Section
	IncisorPos   float64 `desc:"distance of the lower incisors from the glottis, m"`
	VelumArea    float64 `desc:"velopharyngeal port area, m²"`
	AspirationDB float64 `desc:"aspiration noise strength, dB"`
}

// Len returns the number of sections.
func (st *State) Len() int { return len(st.Sections) }

// TotalLength returns the summed section length.
func (st *State) TotalLength() float64 {
	l := 0.0
	for i := range st.Sections {
		l += st.Sections[i].Length
	}
	return l
}

// Clone returns a deep copy.
func (st *State) Clone() State {
	ns := *st
	ns.Sections = append([]Section(nil), st.Sections...)
	return ns
}

// CopyFrom copies src into st, reusing the section storage.
func (st *State) CopyFrom(src *State) {
	secs := st.Sections
	if cap(secs) < len(src.Sections) {
		secs = make([]Section, len(src.Sections))
	}
	secs = secs[:len(src.Sections)]
	copy(secs, src.Sections)
	*st = *src
	st.Sections = secs
}

// Areas returns the section areas.
func (st *State) Areas() []float64 {
	a := make([]float64, len(st.Sections))
	for i := range st.Sections {
		a[i] = st.Sections[i].Area
	}
	return a
}

// Lerp sets st to the linear interpolation between a and b at ratio r. Lengths, areas
// and the scalar fields are interpolated; articulator tags switch from a to b at
// r = 0.5. a and b must have the same number of sections.
func (st *State) Lerp(a, b *State, r float64) {
	n := len(b.Sections)
	if cap(st.Sections) < n {
		st.Sections = make([]Section, n)
	}
	st.Sections = st.Sections[:n]
	for i := 0; i < n; i++ {
		sa, sb := &a.Sections[i], &b.Sections[i]
		s := &st.Sections[i]
		s.Length = lerp(sa.Length, sb.Length, r)
		s.Area = lerp(sa.Area, sb.Area, r)
		if r < 0.5 {
			s.Articulator = sa.Articulator
		} else {
			s.Articulator = sb.Articulator
		}
	}
	st.IncisorPos = lerp(a.IncisorPos, b.IncisorPos, r)
	st.VelumArea = lerp(a.VelumArea, b.VelumArea, r)
	st.AspirationDB = lerp(a.AspirationDB, b.AspirationDB, r)
}

// lerp is exact at both ends.
func lerp(x, y, r float64) float64 {
	return x*(1-r) + y*r
}

// Limits are the numerical floors applied to a State.
type Limits struct {
	MinArea       float64 `desc:"m²"`
	MinLength     float64 `desc:"m"`
	MinAspiration float64 `desc:"dB, also used for non-finite aspiration values"`
}

// DefaultLimits are the floors of the built-in speaker.
var DefaultLimits = Limits{MinArea: 1e-7, MinLength: 2e-3, MinAspiration: MinAspirationDB}

// FloorLength raises l to MinLength; non-finite lengths become MinLength.
func (lim Limits) FloorLength(l float64) float64 {
	if !(l >= lim.MinLength) || math.IsInf(l, 1) {
		return lim.MinLength
	}
	return l
}

// FloorArea raises a to MinArea; non-finite areas become MinArea.
func (lim Limits) FloorArea(a float64) float64 {
	if !(a >= lim.MinArea) || math.IsInf(a, 1) {
		return lim.MinArea
	}
	return a
}

// Floor returns s with its length and area floored.
func (lim Limits) Floor(s Section) Section {
	s.Length = lim.FloorLength(s.Length)
	s.Area = lim.FloorArea(s.Area)
	return s
}

// Clamp raises lengths and areas to the floors, replaces non-finite values and returns
// the number of values changed.
func (st *State) Clamp(lim Limits) int {
	n := 0
	for i := range st.Sections {
		s := &st.Sections[i]
		f := lim.Floor(*s)
		if f.Length != s.Length {
			n++
		}
		if f.Area != s.Area {
			n++
		}
		*s = f
		if s.Articulator < 0 || s.Articulator >= NumArticulators {
			s.Articulator = Other
			n++
		}
	}
	if !(st.VelumArea >= 0) || math.IsInf(st.VelumArea, 1) {
		st.VelumArea = 0
		n++
	}
	if !(st.AspirationDB >= lim.MinAspiration) || math.IsInf(st.AspirationDB, 1) {
		st.AspirationDB = lim.MinAspiration
		n++
	}
	tl := st.TotalLength()
	switch {
	case math.IsNaN(st.IncisorPos) || st.IncisorPos > tl:
		st.IncisorPos = tl
		n++
	case st.IncisorPos < 0:
		st.IncisorPos = 0
		n++
	}
	return n
}

// SectionAt returns the index of the section containing the position pos, measured
// from the glottis. Positions outside the tube map to the first or last section.
func (st *State) SectionAt(pos float64) int {
	x := 0.0
	for i := range st.Sections {
		x += st.Sections[i].Length
		if pos < x {
			return i
		}
	}
	return len(st.Sections) - 1
}

// Nasal is the fixed nasal cavity coupled to the tract at JunctionPos through a port
// of PortLength. Sections run from the port to the nostrils.
type Nasal struct {
	Sections    []Section
	JunctionPos float64
	PortLength  float64
}
