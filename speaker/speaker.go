// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package speaker holds the anatomical and control-parameter description of one
// speaker: tract and glottis parameter tables, the neutral area function, the nasal
// cavity and the named vocal tract shapes.
package speaker

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidConfig is returned when a speaker configuration is inconsistent.
	ErrInvalidConfig = errors.New("invalid speaker configuration")
	// ErrShapeNotFound is returned by Shape for unknown shape names.
	ErrShapeNotFound = errors.New("shape not found")
)

// Param describes one control parameter.
type Param struct {
	Abbr    string  `yaml:"abbr" json:"abbr" desc:"short name, used to bind the parameter to its role"`
	Name    string  `yaml:"name" json:"name"`
	Unit    string  `yaml:"unit" json:"unit"`
	Min     float64 `yaml:"min" json:"min"`
	Max     float64 `yaml:"max" json:"max"`
	Neutral float64 `yaml:"neutral" json:"neutral" desc:"value used when a shape does not set the parameter"`
}

// Clamp limits v to the parameter range. NaN maps to the neutral value.
func (p *Param) Clamp(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return p.Neutral
	case v < p.Min:
		return p.Min
	case v > p.Max:
		return p.Max
	}
	return v
}

// Shape is a named vocal tract configuration. Params maps parameter abbreviations to
// values; parameters not listed take their neutral value.
type Shape struct {
	Name   string             `yaml:"name" json:"name"`
	Params map[string]float64 `yaml:"params" json:"params"`
}

// NasalSection is one fixed section of the nasal cavity, from the velopharyngeal port
// to the nostrils.
type NasalSection struct {
	Length float64 `yaml:"length_cm" json:"length_cm"`
	Area   float64 `yaml:"area_cm2" json:"area_cm2"`
}

// Tract holds the neutral anatomy of the vocal tract.
type Tract struct {
	Length           float64   `yaml:"length_cm" json:"length_cm" desc:"neutral length from glottis to lip opening"`
	AreaProfile      []float64 `yaml:"area_profile_cm2" json:"area_profile_cm2" desc:"neutral area function, glottis to lips, resampled onto the tube sections"`
	LipLength        float64   `yaml:"lip_length_cm" json:"lip_length_cm" desc:"distance from the lower incisors to the lip opening"`
	LipWidth         float64   `yaml:"lip_width_cm" json:"lip_width_cm" desc:"lip opening area per cm of lip distance"`
	MinArea          float64   `yaml:"min_area_cm2" json:"min_area_cm2" desc:"area floor of every section"`
	MinSectionLength float64   `yaml:"min_section_length_cm" json:"min_section_length_cm"`
	MaxVelumArea     float64   `yaml:"max_velum_area_cm2" json:"max_velum_area_cm2" desc:"velopharyngeal port area at full velum opening"`
}

// Nasal holds the nasal cavity description.
type Nasal struct {
	JunctionPos float64        `yaml:"junction_pos_cm" json:"junction_pos_cm" desc:"distance of the velopharyngeal port from the glottis"`
	PortLength  float64        `yaml:"port_length_cm" json:"port_length_cm"`
	Sections    []NasalSection `yaml:"sections" json:"sections"`
}

// Glottis holds the glottis source settings.
type Glottis struct {
	Waveform      string  `yaml:"waveform" json:"waveform" desc:"pulse or sine"`
	PulseRise     float64 `yaml:"pulse_rise" json:"pulse_rise" desc:"rise time of the glottal pulse, percent of the period"`
	PulseFallMin  float64 `yaml:"pulse_fall_min" json:"pulse_fall_min" desc:"fall time at full amplitude, percent of the period"`
	PulseFallMax  float64 `yaml:"pulse_fall_max" json:"pulse_fall_max" desc:"fall time at zero amplitude, percent of the period"`
	Thickness     float64 `yaml:"thickness_cm" json:"thickness_cm" desc:"vocal fold depth in flow direction"`
	FoldLength    float64 `yaml:"fold_length_cm" json:"fold_length_cm"`
	OpenArea      float64 `yaml:"open_area_cm2" json:"open_area_cm2" desc:"peak area when open_area is not a glottis parameter"`
	AspirationDB  float64 `yaml:"aspiration_db" json:"aspiration_db" desc:"aspiration strength when aspiration_strength is not a glottis parameter"`
	MaxPressure   float64 `yaml:"max_pressure_dpa" json:"max_pressure_dpa" desc:"pressure at which the pulse has its shortest fall"`
	ThroatCutoff  float64 `yaml:"throat_cutoff_hz" json:"throat_cutoff_hz"`
	ThroatVolume  float64 `yaml:"throat_volume_db" json:"throat_volume_db"`
	NoiseCritical float64 `yaml:"critical_reynolds" json:"critical_reynolds" desc:"Reynolds number above which turbulence noise starts"`
}

// Config is a complete speaker description.
type Config struct {
	Name              string  `yaml:"name" json:"name"`
	AudioSamplingRate int     `yaml:"audio_sampling_rate" json:"audio_sampling_rate"`
	NumTubeSections   int     `yaml:"num_tube_sections" json:"num_tube_sections"`
	Temperature       float64 `yaml:"temperature" json:"temperature" desc:"tract air temperature in degrees C"`
	OutputGain        float64 `yaml:"output_gain" json:"output_gain" desc:"scale from radiated pressure in Pa at 1 m to sample units"`
	MaxOversampling   int     `yaml:"max_oversampling" json:"max_oversampling" desc:"largest accepted internal oversampling factor"`
	Tract             Tract   `yaml:"tract" json:"tract"`
	Nasal             Nasal   `yaml:"nasal" json:"nasal"`
	Glottis           Glottis `yaml:"glottis" json:"glottis"`
	TractParams       []Param `yaml:"tract_params" json:"tract_params"`
	GlottisParams     []Param `yaml:"glottis_params" json:"glottis_params"`
	Shapes            []Shape `yaml:"shapes" json:"shapes"`
}

// NumTractParams is the length of a tract parameter vector.
func (c *Config) NumTractParams() int { return len(c.TractParams) }

// NumGlottisParams is the length of a glottis parameter vector.
func (c *Config) NumGlottisParams() int { return len(c.GlottisParams) }

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	switch {
	case c.AudioSamplingRate <= 0:
		return fmt.Errorf("%w: audio sampling rate %d", ErrInvalidConfig, c.AudioSamplingRate)
	case c.NumTubeSections < 2:
		return fmt.Errorf("%w: %d tube sections, need at least 2", ErrInvalidConfig, c.NumTubeSections)
	case c.Tract.Length <= 0:
		return fmt.Errorf("%w: tract length %g", ErrInvalidConfig, c.Tract.Length)
	case len(c.Tract.AreaProfile) < 2:
		return fmt.Errorf("%w: area profile needs at least 2 points", ErrInvalidConfig)
	case c.Tract.MinArea <= 0:
		return fmt.Errorf("%w: min area %g", ErrInvalidConfig, c.Tract.MinArea)
	case c.Tract.MinSectionLength <= 0:
		return fmt.Errorf("%w: min section length %g", ErrInvalidConfig, c.Tract.MinSectionLength)
	case c.Tract.LipLength <= 0 || c.Tract.LipLength >= c.Tract.Length:
		return fmt.Errorf("%w: lip length %g", ErrInvalidConfig, c.Tract.LipLength)
	case c.Nasal.JunctionPos <= 0 || c.Nasal.JunctionPos >= c.Tract.Length:
		return fmt.Errorf("%w: nasal junction at %g cm", ErrInvalidConfig, c.Nasal.JunctionPos)
	case c.Glottis.Waveform != "pulse" && c.Glottis.Waveform != "sine":
		return fmt.Errorf("%w: glottis waveform %q", ErrInvalidConfig, c.Glottis.Waveform)
	case c.Glottis.PulseRise <= 0 || c.Glottis.PulseRise+c.Glottis.PulseFallMax >= 100:
		return fmt.Errorf("%w: glottal pulse timing", ErrInvalidConfig)
	case c.Glottis.PulseFallMin > c.Glottis.PulseFallMax:
		return fmt.Errorf("%w: pulse_fall_min above pulse_fall_max", ErrInvalidConfig)
	case c.MaxOversampling < 1:
		return fmt.Errorf("%w: max oversampling %d", ErrInvalidConfig, c.MaxOversampling)
	}
	for i, a := range c.Tract.AreaProfile {
		if !(a > 0) {
			return fmt.Errorf("%w: area profile point %d is %g", ErrInvalidConfig, i, a)
		}
	}
	for i, s := range c.Nasal.Sections {
		if !(s.Length > 0) || !(s.Area > 0) {
			return fmt.Errorf("%w: nasal section %d", ErrInvalidConfig, i)
		}
	}
	if err := validateParams("tract", c.TractParams); err != nil {
		return err
	}
	if err := validateParams("glottis", c.GlottisParams); err != nil {
		return err
	}
	for _, s := range c.Shapes {
		for abbr := range s.Params {
			if c.TractParamIndex(abbr) < 0 {
				return fmt.Errorf("%w: shape %q sets unknown parameter %q", ErrInvalidConfig, s.Name, abbr)
			}
		}
	}
	return nil
}

func validateParams(kind string, ps []Param) error {
	if len(ps) == 0 {
		return fmt.Errorf("%w: no %s parameters", ErrInvalidConfig, kind)
	}
	seen := make(map[string]bool, len(ps))
	for _, p := range ps {
		if p.Abbr == "" {
			return fmt.Errorf("%w: %s parameter without abbreviation", ErrInvalidConfig, kind)
		}
		if seen[p.Abbr] {
			return fmt.Errorf("%w: duplicate %s parameter %q", ErrInvalidConfig, kind, p.Abbr)
		}
		seen[p.Abbr] = true
		if p.Min > p.Max || p.Neutral < p.Min || p.Neutral > p.Max {
			return fmt.Errorf("%w: %s parameter %q range [%g, %g] neutral %g", ErrInvalidConfig, kind, p.Abbr, p.Min, p.Max, p.Neutral)
		}
	}
	return nil
}

// TractParamIndex returns the index of the tract parameter with the given
// abbreviation, or -1.
func (c *Config) TractParamIndex(abbr string) int {
	return paramIndex(c.TractParams, abbr)
}

// GlottisParamIndex returns the index of the glottis parameter with the given
// abbreviation, or -1.
func (c *Config) GlottisParamIndex(abbr string) int {
	return paramIndex(c.GlottisParams, abbr)
}

func paramIndex(ps []Param, abbr string) int {
	for i := range ps {
		if ps[i].Abbr == abbr {
			return i
		}
	}
	return -1
}

// NeutralTract returns the neutral tract parameter vector.
func (c *Config) NeutralTract() []float64 {
	return neutral(c.TractParams)
}

// NeutralGlottis returns the neutral glottis parameter vector.
func (c *Config) NeutralGlottis() []float64 {
	return neutral(c.GlottisParams)
}

func neutral(ps []Param) []float64 {
	v := make([]float64, len(ps))
	for i := range ps {
		v[i] = ps[i].Neutral
	}
	return v
}

// Shape returns the tract parameter vector of the named shape.
func (c *Config) Shape(name string) ([]float64, error) {
	for _, s := range c.Shapes {
		if s.Name != name {
			continue
		}
		v := c.NeutralTract()
		for abbr, val := range s.Params {
			if i := c.TractParamIndex(abbr); i >= 0 {
				v[i] = c.TractParams[i].Clamp(val)
			}
		}
		return v, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrShapeNotFound, name)
}

// ShapeNames lists the shape names in configuration order.
func (c *Config) ShapeNames() []string {
	names := make([]string, len(c.Shapes))
	for i, s := range c.Shapes {
		names[i] = s.Name
	}
	return names
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	nc := *c
	nc.Tract.AreaProfile = append([]float64(nil), c.Tract.AreaProfile...)
	nc.Nasal.Sections = append([]NasalSection(nil), c.Nasal.Sections...)
	nc.TractParams = append([]Param(nil), c.TractParams...)
	nc.GlottisParams = append([]Param(nil), c.GlottisParams...)
	nc.Shapes = make([]Shape, len(c.Shapes))
	for i, s := range c.Shapes {
		ns := Shape{Name: s.Name, Params: make(map[string]float64, len(s.Params))}
		for k, v := range s.Params {
			ns.Params[k] = v
		}
		nc.Shapes[i] = ns
	}
	return &nc
}
