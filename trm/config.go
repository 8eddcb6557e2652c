// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package trm

import (
	"errors"
	"fmt"
	"math"

	"github.com/emer/vtsynth/speaker"
	"github.com/emer/vtsynth/tube"
)

// ErrUnstable is returned when the configuration would need more internal
// oversampling than allowed.
var ErrUnstable = errors.New("simulation would be unstable")

// VolMax is the dB level of full amplitude.
const VolMax = 60

// CFL is the fraction of the shortest section's travel time used as time step.
const CFL = 0.5

// WaveForm selects the glottal oscillator table.
type WaveForm int32

const (
	Pulse WaveForm = iota
	Sine
)

func (w WaveForm) String() string {
	if w == Sine {
		return "sine"
	}
	return "pulse"
}

// SourceParams shape the glottal pulse, in percent of the period.
type SourceParams struct {
	WaveForm     WaveForm
	PulseRise    float64 `desc:"% glottal pulse rise time"`
	PulseFallMin float64 `desc:"% glottal pulse fall time minimum"`
	PulseFallMax float64 `desc:"% glottal pulse fall time maximum"`
	MaxPressure  float64 `desc:"subglottal pressure in Pa giving the shortest fall"`
}

// Config holds everything an Engine needs besides the acoustic model.
type Config struct {
	SampleRate       float64
	Sections         int
	MaxOversampling  int
	MinLength        float64 `desc:"section length floor, m"`
	MinArea          float64 `desc:"section area floor, m²"`
	OutputGain       float64
	ThroatCutoff     float64 `desc:"Hz"`
	ThroatVolume     float64 `desc:"dB, 0 - 60"`
	CriticalReynolds float64
	NoiseLimit       float64 `desc:"largest noise source pressure, Pa"`
	GlottisThickness float64 `desc:"m"`
	GlottisLength    float64 `desc:"m"`
	Source           SourceParams
	Nasal            tube.Nasal
}

// Defaults sets the values that do not come from a speaker.
func (cfg *Config) Defaults() {
	cfg.NoiseLimit = 1000
	if cfg.CriticalReynolds == 0 {
		cfg.CriticalReynolds = 1800
	}
}

// Limits returns the geometry floors the engine applies.
func (cfg *Config) Limits() tube.Limits {
	return tube.Limits{MinArea: cfg.MinArea, MinLength: cfg.MinLength, MinAspiration: tube.MinAspirationDB}
}

// ConfigFromSpeaker builds the engine configuration of a speaker.
func ConfigFromSpeaker(sp *speaker.Config, nasal tube.Nasal) Config {
	g := &sp.Glottis
	cfg := Config{
		SampleRate:       float64(sp.AudioSamplingRate),
		Sections:         sp.NumTubeSections,
		MaxOversampling:  sp.MaxOversampling,
		MinLength:        sp.Tract.MinSectionLength * 1e-2,
		MinArea:          sp.Tract.MinArea * 1e-4,
		OutputGain:       sp.OutputGain,
		ThroatCutoff:     g.ThroatCutoff,
		ThroatVolume:     g.ThroatVolume,
		CriticalReynolds: g.NoiseCritical,
		GlottisThickness: g.Thickness * 1e-2,
		GlottisLength:    g.FoldLength * 1e-2,
		Source: SourceParams{
			PulseRise:    g.PulseRise,
			PulseFallMin: g.PulseFallMin,
			PulseFallMax: g.PulseFallMax,
			MaxPressure:  g.MaxPressure / 10,
		},
		Nasal: nasal,
	}
	if g.Waveform == "sine" {
		cfg.Source.WaveForm = Sine
	}
	cfg.Defaults()
	return cfg
}

// Oversampling returns the internal steps per audio sample for the speed of sound c,
// or ErrUnstable.
func (cfg *Config) Oversampling(c float64) (int, error) {
	if cfg.SampleRate <= 0 || cfg.MinLength <= 0 {
		return 0, fmt.Errorf("%w: sample rate %g, min length %g", ErrUnstable, cfg.SampleRate, cfg.MinLength)
	}
	k := int(math.Ceil(c / (cfg.SampleRate * cfg.MinLength * CFL)))
	if k < 1 {
		k = 1
	}
	if k > cfg.MaxOversampling {
		return k, fmt.Errorf("%w: needs %d internal steps per sample, max %d", ErrUnstable, k, cfg.MaxOversampling)
	}
	return k, nil
}

// Amplitude converts a dB level on the 0 - VolMax scale to a linear amplitude.
func Amplitude(decibelLevel float64) float64 {
	decibelLevel -= VolMax
	if decibelLevel <= -VolMax {
		return 0
	}
	if decibelLevel >= 0.0 {
		return 1.0
	}
	return math.Pow(10.0, decibelLevel/20.0)
}

// Glottis is the glottis input of one audio sample, SI units.
type Glottis struct {
	F0        float64 `desc:"Hz"`
	Pressure  float64 `desc:"subglottal pressure, Pa"`
	OpenArea  float64 `desc:"peak glottal area, m²"`
	ChinkArea float64 `desc:"posterior leak area, m²"`
}

// GlottisMap converts glottis parameter vectors into Glottis values.
type GlottisMap struct {
	params                   []speaker.Param
	f0, pressure, open, leak int
	openDefault              float64
}

// NewGlottisMap binds the glottis parameters of a speaker. f0 and pressure are
// required; open_area and chink_area are optional.
func NewGlottisMap(sp *speaker.Config) (GlottisMap, error) {
	gm := GlottisMap{
		params:      sp.GlottisParams,
		f0:          sp.GlottisParamIndex("f0"),
		pressure:    sp.GlottisParamIndex("pressure"),
		open:        sp.GlottisParamIndex("open_area"),
		leak:        sp.GlottisParamIndex("chink_area"),
		openDefault: sp.Glottis.OpenArea * 1e-4,
	}
	if gm.f0 < 0 {
		return gm, fmt.Errorf("%w: glottis parameter %q", tube.ErrMissingParam, "f0")
	}
	if gm.pressure < 0 {
		return gm, fmt.Errorf("%w: glottis parameter %q", tube.ErrMissingParam, "pressure")
	}
	return gm, nil
}

func (gm *GlottisMap) value(v []float64, i int) float64 {
	return gm.params[i].Clamp(v[i])
}

// Glottis converts a parameter vector (f0 Hz, pressure dPa, areas cm²), clamping
// every value into its range.
func (gm *GlottisMap) Glottis(v []float64) Glottis {
	g := Glottis{
		F0:       gm.value(v, gm.f0),
		Pressure: gm.value(v, gm.pressure) / 10,
		OpenArea: gm.openDefault,
	}
	if gm.open >= 0 {
		g.OpenArea = gm.value(v, gm.open) * 1e-4
	}
	if gm.leak >= 0 {
		g.ChinkArea = gm.value(v, gm.leak) * 1e-4
	}
	return g
}
