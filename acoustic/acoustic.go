// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package acoustic provides the lumped acoustic element values of tube sections,
// walls, the velopharyngeal port and the radiation load. The time-domain engine and
// the transfer function analysis both take their physics from a Model so the two stay
// consistent.
package acoustic

import (
	"math"

	"github.com/emer/vtsynth/tube"
)

// Medium holds the properties of the air in the tract, SI units.
type Medium struct {
	Density    float64 `desc:"kg/m³"`
	SoundSpeed float64 `desc:"m/s"`
	Viscosity  float64 `desc:"dynamic viscosity, Pa s"`
}

// SpeedOfSound returns the speed of sound in air at temperature temp (C).
func SpeedOfSound(temp float64) float64 {
	return 331.4 + (0.6 * temp)
}

// Air returns the medium at temperature temp (C).
func Air(temp float64) Medium {
	return Medium{
		Density:    1.2929 * 273.15 / (273.15 + temp),
		SoundSpeed: SpeedOfSound(temp),
		Viscosity:  1.86e-5,
	}
}

// Wall holds soft tissue mechanics per unit wall area.
type Wall struct {
	Mass       float64 `desc:"kg/m²"`
	Resistance float64 `desc:"kg/(m² s)"`
	Stiffness  float64 `desc:"N/m³"`
}

// WallElement is a lumped wall branch seen by the volume velocity: p = M du/dt + R u + K ∫u.
type WallElement struct {
	Mass       float64
	Resistance float64
	Stiffness  float64
}

// Admittance returns the wall admittance at angular frequency w. It is zero at w = 0.
func (we WallElement) Admittance(w float64) complex128 {
	jw := complex(0, w)
	den := jw*complex(we.Resistance, 0) + complex(we.Stiffness-w*w*we.Mass, 0)
	if den == 0 {
		return 0
	}
	return jw / den
}

// Element holds the lumped values of one tube section. Inertance and Resistance are
// for half the section so that a boundary between two sections sums the adjacent
// halves.
type Element struct {
	Inertance  float64
	Resistance float64
	Compliance float64
	Wall       WallElement
}

// Port is the series element of the velopharyngeal port.
type Port struct {
	Inertance  float64
	Resistance float64
}

// Load is a parallel resistance and inertance radiation impedance.
type Load struct {
	Resistance float64
	Inertance  float64
}

// Impedance returns the load impedance at angular frequency w. It is zero at w = 0.
func (ld Load) Impedance(w float64) complex128 {
	jwl := complex(0, w*ld.Inertance)
	r := complex(ld.Resistance, 0)
	return r * jwl / (r + jwl)
}

// Noise describes a turbulence noise source.
type Noise struct {
	Gain       float64
	CenterFreq float64 `desc:"Hz"`
	Bandwidth  float64 `desc:"Hz"`
}

// Model supplies element values. Implementations must be safe for concurrent use.
type Model interface {
	// Medium returns the air properties.
	Medium() Medium
	// Section returns the element values of a vocal tract section.
	Section(s tube.Section) Element
	// NasalSection returns the element values of a nasal cavity section.
	NasalSection(s tube.Section) Element
	// Port returns the velopharyngeal port element for the given opening.
	Port(area, length float64) Port
	// Radiation returns the radiation load of an opening.
	Radiation(area float64) Load
	// Kinetic returns the flow dependent series resistance between two adjacent
	// areas for volume velocity u, flowing from a1 to a2 when positive.
	Kinetic(u, a1, a2 float64) float64
	// Noise returns the frication noise source for a constriction bounded by a.
	Noise(a tube.Articulator) Noise
}

// Lumped is the default Model: Poiseuille and boundary layer viscous losses,
// Borda-Carnot expansion losses, yielding walls by articulator, and a piston in an
// infinite baffle radiation load.
type Lumped struct {
	Air       Medium
	Walls     [tube.NumArticulators]Wall
	NasalWall Wall
	Frication [tube.NumArticulators]Noise
	LossFreq  float64 `desc:"reference frequency of the boundary layer loss, Hz"`
}

// NewLumped returns the default model for air at temperature temp (C).
func NewLumped(temp float64) *Lumped {
	lm := &Lumped{Air: Air(temp)}
	lm.Defaults()
	return lm
}

// Defaults sets the tissue and noise values, keeping Air.
func (lm *Lumped) Defaults() {
	lm.Walls[tube.Tongue] = Wall{Mass: 21, Resistance: 8000, Stiffness: 845000}
	lm.Walls[tube.LowerIncisor] = Wall{Mass: 100, Resistance: 100000, Stiffness: 1e8}
	lm.Walls[tube.LowerLip] = Wall{Mass: 15, Resistance: 16000, Stiffness: 3e6}
	lm.Walls[tube.Other] = Wall{Mass: 25, Resistance: 10000, Stiffness: 1e6}
	lm.NasalWall = Wall{Mass: 21, Resistance: 12000, Stiffness: 1e6}
	lm.Frication[tube.Tongue] = Noise{Gain: 1.0, CenterFreq: 3500, Bandwidth: 4000}
	lm.Frication[tube.LowerIncisor] = Noise{Gain: 1.5, CenterFreq: 6000, Bandwidth: 5000}
	lm.Frication[tube.LowerLip] = Noise{Gain: 0.6, CenterFreq: 1500, Bandwidth: 3000}
	lm.Frication[tube.Other] = Noise{Gain: 0.5, CenterFreq: 2500, Bandwidth: 4000}
	lm.LossFreq = 1000
}

func (lm *Lumped) Medium() Medium { return lm.Air }

func (lm *Lumped) Section(s tube.Section) Element {
	a := int(s.Articulator)
	if a < 0 || a >= int(tube.NumArticulators) {
		a = int(tube.Other)
	}
	return lm.element(s.Length, s.Area, &lm.Walls[a])
}

func (lm *Lumped) NasalSection(s tube.Section) Element {
	return lm.element(s.Length, s.Area, &lm.NasalWall)
}

func (lm *Lumped) element(l, a float64, w *Wall) Element {
	rho, c := lm.Air.Density, lm.Air.SoundSpeed
	surf := 2 * math.Sqrt(math.Pi*a) * l
	return Element{
		Inertance:  rho * l / (2 * a),
		Resistance: 0.5 * lm.viscous(l, a),
		Compliance: l * a / (rho * c * c),
		Wall: WallElement{
			Mass:       w.Mass / surf,
			Resistance: w.Resistance / surf,
			Stiffness:  w.Stiffness / surf,
		},
	}
}

// viscous returns the larger of the Poiseuille and the boundary layer resistance of a
// section of length l and area a.
func (lm *Lumped) viscous(l, a float64) float64 {
	mu, rho := lm.Air.Viscosity, lm.Air.Density
	pois := 8 * math.Pi * mu * l / (a * a)
	perim := 2 * math.Sqrt(math.Pi*a)
	bl := l * perim / (a * a) * math.Sqrt(math.Pi*lm.LossFreq*rho*mu)
	return math.Max(pois, bl)
}

func (lm *Lumped) Port(area, length float64) Port {
	return Port{
		Inertance:  lm.Air.Density * length / area,
		Resistance: 8 * math.Pi * lm.Air.Viscosity * length / (area * area),
	}
}

func (lm *Lumped) Radiation(area float64) Load {
	rho, c := lm.Air.Density, lm.Air.SoundSpeed
	return Load{
		Resistance: 128 * rho * c / (9 * math.Pi * math.Pi * area),
		Inertance:  8 * rho / (3 * math.Pi * math.Sqrt(math.Pi*area)),
	}
}

func (lm *Lumped) Kinetic(u, a1, a2 float64) float64 {
	up, down := a1, a2
	if u < 0 {
		up, down = a2, a1
	}
	if down <= up {
		return 0
	}
	d := 1/up - 1/down
	return 0.5 * lm.Air.Density * math.Abs(u) * d * d
}

func (lm *Lumped) Noise(a tube.Articulator) Noise {
	if a < 0 || a >= tube.NumArticulators {
		a = tube.Other
	}
	return lm.Frication[a]
}
