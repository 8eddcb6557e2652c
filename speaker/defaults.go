// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package speaker

// Default returns the built-in adult speaker: 24 tract parameters, 5 glottis
// parameters, 40 tube sections at 22050 Hz.
func Default() *Config {
	c := &Config{
		Name:              "adult",
		AudioSamplingRate: 22050,
		NumTubeSections:   40,
		Temperature:       32,
		OutputGain:        4,
		MaxOversampling:   32,
		Tract: Tract{
			Length:           16.0,
			AreaProfile:      []float64{0.4, 0.9, 1.8, 2.6, 3.0, 3.1, 3.2, 3.4, 3.6, 3.8, 3.6, 3.2, 3.0, 2.8},
			LipLength:        1.0,
			LipWidth:         2.5,
			MinArea:          0.001,
			MinSectionLength: 0.2,
			MaxVelumArea:     2.0,
		},
		Nasal: Nasal{
			JunctionPos: 7.5,
			PortLength:  1.0,
			Sections: []NasalSection{
				{1.4, 1.6}, {1.4, 3.0}, {1.4, 4.0}, {1.4, 3.6},
				{1.4, 2.8}, {1.4, 2.0}, {1.4, 1.4}, {1.4, 1.0},
			},
		},
		Glottis: Glottis{
			Waveform:      "pulse",
			PulseRise:     40,
			PulseFallMin:  16,
			PulseFallMax:  32,
			Thickness:     0.3,
			FoldLength:    1.4,
			OpenArea:      0.1,
			AspirationDB:  -40,
			MaxPressure:   16000,
			ThroatCutoff:  1500,
			ThroatVolume:  6,
			NoiseCritical: 1800,
		},
		TractParams: []Param{
			{"HX", "Horz. hyoid pos.", "cm", 0, 1, 1},
			{"HY", "Vert. hyoid pos.", "cm", -6, -3.5, -4.75},
			{"JX", "Horz. jaw pos.", "cm", -0.5, 0, 0},
			{"JA", "Jaw angle", "deg", -7, 0, -2},
			{"LP", "Lip protrusion", "cm", -1, 1, -0.07},
			{"LD", "Lip distance", "cm", -2, 4, 0.95},
			{"VS", "Velum shape", "", 0, 1, 0},
			{"VO", "Velic opening", "", -0.1, 1, -0.1},
			{"WC", "Pharyngeal wall", "", 0, 1, 0},
			{"TCX", "Tongue body X", "cm", -3, 4, -0.4},
			{"TCY", "Tongue body Y", "cm", -3, 1, -1.46},
			{"TTX", "Tongue tip X", "cm", 1.5, 5.5, 3.5},
			{"TTY", "Tongue tip Y", "cm", -3, 2.5, -1},
			{"TBX", "Tongue blade X", "cm", -3, 4, 2},
			{"TBY", "Tongue blade Y", "cm", -3, 5, 0.5},
			{"TRX", "Tongue root X", "cm", -4, 2, 0},
			{"TRY", "Tongue root Y", "cm", -6, 0, 0},
			{"TS1", "Tongue side elevation 1", "cm", -1.4, 1.4, 0},
			{"TS2", "Tongue side elevation 2", "cm", -1.4, 1.4, 0.06},
			{"TS3", "Tongue side elevation 3", "cm", -1.4, 1.4, 0.15},
			{"TS4", "Tongue side elevation 4", "cm", -1.4, 1.4, 0.15},
			{"MA1", "Min. area tongue body", "cm^2", -0.05, 0.3, -0.05},
			{"MA2", "Min. area tongue tip", "cm^2", -0.05, 0.3, -0.05},
			{"MA3", "Min. area lips", "cm^2", -0.05, 0.3, -0.05},
		},
		GlottisParams: []Param{
			{"f0", "Fundamental frequency", "Hz", 40, 600, 120},
			{"pressure", "Subglottal pressure", "dPa", 0, 20000, 8000},
			{"open_area", "Peak glottal opening", "cm^2", 0, 0.3, 0.1},
			{"chink_area", "Chink area", "cm^2", 0, 0.2, 0.02},
			{"aspiration_strength", "Aspiration strength", "dB", -40, 0, -40},
		},
		Shapes: []Shape{
			{Name: "schwa", Params: map[string]float64{}},
			{Name: "a", Params: map[string]float64{"JA": -5.5, "TCX": -2.5, "TCY": -2.5, "TRX": -3, "TTY": -2, "LD": 2}},
			{Name: "i", Params: map[string]float64{"JA": -1.5, "TCX": 3.5, "TCY": 0.8, "TRX": 1.5, "TTY": -0.5, "TBX": 3, "TBY": 2, "LD": 1, "LP": -0.5}},
			{Name: "u", Params: map[string]float64{"JA": -2, "TCX": -1.5, "TCY": 0.6, "LP": 0.9, "LD": 0.3}},
			{Name: "s", Params: map[string]float64{"JA": -1, "TTX": 4, "TTY": 2.2, "MA2": 0.05, "LD": 0.8}},
			{Name: "tt-alveolar-closure", Params: map[string]float64{"TTX": 4, "TTY": 2.5}},
			{Name: "ll-labial-closure", Params: map[string]float64{"LD": -1}},
			{Name: "n", Params: map[string]float64{"TTX": 4, "TTY": 2.5, "VO": 0.8}},
			{Name: "m", Params: map[string]float64{"LD": -1, "VO": 0.8}},
		},
	}
	return c
}

// setDefaults fills zero-valued settings that a configuration file may omit.
func setDefaults(c *Config) {
	d := Default()
	if c.Name == "" {
		c.Name = "speaker"
	}
	if c.AudioSamplingRate == 0 {
		c.AudioSamplingRate = d.AudioSamplingRate
	}
	if c.NumTubeSections == 0 {
		c.NumTubeSections = d.NumTubeSections
	}
	if c.Temperature == 0 {
		c.Temperature = d.Temperature
	}
	if c.OutputGain == 0 {
		c.OutputGain = d.OutputGain
	}
	if c.MaxOversampling == 0 {
		c.MaxOversampling = d.MaxOversampling
	}
	if c.Tract.MinArea == 0 {
		c.Tract.MinArea = d.Tract.MinArea
	}
	if c.Tract.MinSectionLength == 0 {
		c.Tract.MinSectionLength = d.Tract.MinSectionLength
	}
	if c.Tract.LipWidth == 0 {
		c.Tract.LipWidth = d.Tract.LipWidth
	}
	if c.Tract.MaxVelumArea == 0 {
		c.Tract.MaxVelumArea = d.Tract.MaxVelumArea
	}
	if c.Nasal.PortLength == 0 {
		c.Nasal.PortLength = d.Nasal.PortLength
	}
	g := &c.Glottis
	if g.Waveform == "" {
		g.Waveform = d.Glottis.Waveform
	}
	if g.PulseRise == 0 {
		g.PulseRise = d.Glottis.PulseRise
		g.PulseFallMin = d.Glottis.PulseFallMin
		g.PulseFallMax = d.Glottis.PulseFallMax
	}
	if g.Thickness == 0 {
		g.Thickness = d.Glottis.Thickness
	}
	if g.FoldLength == 0 {
		g.FoldLength = d.Glottis.FoldLength
	}
	if g.OpenArea == 0 {
		g.OpenArea = d.Glottis.OpenArea
	}
	if g.AspirationDB == 0 {
		g.AspirationDB = d.Glottis.AspirationDB
	}
	if g.MaxPressure == 0 {
		g.MaxPressure = d.Glottis.MaxPressure
	}
	if g.ThroatCutoff == 0 {
		g.ThroatCutoff = d.Glottis.ThroatCutoff
	}
	if g.ThroatVolume == 0 {
		g.ThroatVolume = d.Glottis.ThroatVolume
	}
	if g.NoiseCritical == 0 {
		g.NoiseCritical = d.Glottis.NoiseCritical
	}
}
