// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package speaker

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, 22050, c.AudioSamplingRate)
	assert.Equal(t, 40, c.NumTubeSections)
	assert.Equal(t, 24, c.NumTractParams())
	assert.Equal(t, 5, c.NumGlottisParams())
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(c *Config){
		"rate":          func(c *Config) { c.AudioSamplingRate = 0 },
		"sections":      func(c *Config) { c.NumTubeSections = 1 },
		"profile":       func(c *Config) { c.Tract.AreaProfile = []float64{1} },
		"profile point": func(c *Config) { c.Tract.AreaProfile[2] = 0 },
		"junction":      func(c *Config) { c.Nasal.JunctionPos = 20 },
		"waveform":      func(c *Config) { c.Glottis.Waveform = "square" },
		"dup param":     func(c *Config) { c.TractParams[1].Abbr = "HX" },
		"range":         func(c *Config) { c.GlottisParams[0].Neutral = 1000 },
		"shape":         func(c *Config) { c.Shapes[1].Params["XX"] = 1 },
		"nasal":         func(c *Config) { c.Nasal.Sections[0].Area = -1 },
	}
	for name, mod := range cases {
		t.Run(name, func(t *testing.T) {
			c := Default()
			mod(c)
			assert.ErrorIs(t, c.Validate(), ErrInvalidConfig)
		})
	}
}

func TestShape(t *testing.T) {
	c := Default()
	v, err := c.Shape("a")
	require.NoError(t, err)
	require.Len(t, v, c.NumTractParams())
	assert.Equal(t, -5.5, v[c.TractParamIndex("JA")])
	assert.Equal(t, c.TractParams[c.TractParamIndex("HX")].Neutral, v[c.TractParamIndex("HX")])

	schwa, err := c.Shape("schwa")
	require.NoError(t, err)
	assert.Equal(t, c.NeutralTract(), schwa)

	_, err = c.Shape("no-such-shape")
	assert.ErrorIs(t, err, ErrShapeNotFound)
}

func TestClamp(t *testing.T) {
	c := Default()
	ps := c.TractParams
	assert.Equal(t, 1.0, ps[0].Clamp(5))
	assert.Equal(t, ps[1].Neutral, ps[1].Clamp(math.NaN()))
	assert.Equal(t, -7.0, ps[3].Clamp(-100))
	for i, v := range c.NeutralGlottis() {
		assert.Equal(t, v, c.GlottisParams[i].Clamp(v))
	}
}

func TestLoadYAMLRoundTrip(t *testing.T) {
	dir := t.TempDir()
	fn := filepath.Join(dir, "speaker.yaml")
	c := Default()
	c.Name = "test"
	c.NumTubeSections = 30
	require.NoError(t, c.SaveYAML(fn))

	lc, err := Load(fn)
	require.NoError(t, err)
	assert.Equal(t, "test", lc.Name)
	assert.Equal(t, 30, lc.NumTubeSections)
	assert.Equal(t, c.TractParams, lc.TractParams)
	assert.Equal(t, c.Nasal, lc.Nasal)
}

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	fn := filepath.Join(dir, "min.yaml")
	src := `
name: minimal
tract:
  length_cm: 15
  area_profile_cm2: [0.5, 2, 3, 3]
  lip_length_cm: 1
nasal:
  junction_pos_cm: 7
tract_params:
  - {abbr: LD, min: -2, max: 4, neutral: 1}
glottis_params:
  - {abbr: f0, min: 40, max: 600, neutral: 100}
  - {abbr: pressure, min: 0, max: 20000, neutral: 8000}
`
	require.NoError(t, os.WriteFile(fn, []byte(src), 0644))
	c, err := Load(fn)
	require.NoError(t, err)
	assert.Equal(t, 22050, c.AudioSamplingRate)
	assert.Equal(t, 40, c.NumTubeSections)
	assert.Equal(t, "pulse", c.Glottis.Waveform)
	assert.Equal(t, 15.0, c.Tract.Length)
}

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()
	fn := filepath.Join(dir, "speaker.json")
	src := `{"name": "j", "tract": {"length_cm": 17, "area_profile_cm2": [1, 2, 3], "lip_length_cm": 1},
"nasal": {"junction_pos_cm": 8},
"tract_params": [{"abbr": "LD", "min": -2, "max": 4, "neutral": 1}],
"glottis_params": [{"abbr": "f0", "min": 40, "max": 600, "neutral": 100}]}`
	require.NoError(t, os.WriteFile(fn, []byte(src), 0644))
	c, err := Load(fn)
	require.NoError(t, err)
	assert.Equal(t, "j", c.Name)
	assert.Equal(t, 17.0, c.Tract.Length)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	fn := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(fn, []byte("name: [unclosed"), 0644))
	_, err = Load(fn)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestCloneIsDeep(t *testing.T) {
	c := Default()
	nc := c.Clone()
	nc.Tract.AreaProfile[0] = 99
	nc.Shapes[1].Params["JA"] = 0
	nc.TractParams[0].Max = 5
	assert.NotEqual(t, 99.0, c.Tract.AreaProfile[0])
	assert.Equal(t, -5.5, c.Shapes[1].Params["JA"])
	assert.Equal(t, 1.0, c.TractParams[0].Max)
}
