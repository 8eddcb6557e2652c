// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package trm

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emer/vtsynth/acoustic"
	"github.com/emer/vtsynth/dft"
	"github.com/emer/vtsynth/speaker"
	"github.com/emer/vtsynth/tube"
)

type fixture struct {
	sp    *speaker.Config
	geom  *tube.Model
	model *acoustic.Lumped
	cfg   Config
}

func newFixture(t *testing.T) *fixture {
	sp := speaker.Default()
	geom, err := tube.NewModel(sp)
	require.NoError(t, err)
	return &fixture{
		sp:    sp,
		geom:  geom,
		model: acoustic.NewLumped(sp.Temperature),
		cfg:   ConfigFromSpeaker(sp, geom.Nasal()),
	}
}

func (f *fixture) engine(t *testing.T) *Engine {
	e, err := NewEngine(f.model, f.cfg)
	require.NoError(t, err)
	return e
}

func (f *fixture) shape(t *testing.T, name string) tube.State {
	v, err := f.sp.Shape(name)
	require.NoError(t, err)
	return f.geom.State(v, f.sp.NeutralGlottis())
}

func run(e *Engine, st *tube.State, g Glottis, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = e.Step(st, g)
	}
	return out
}

var voiced = Glottis{F0: 120, Pressure: 800, OpenArea: 1e-5, ChinkArea: 2e-6}

func TestOversampling(t *testing.T) {
	f := newFixture(t)
	e := f.engine(t)
	assert.Equal(t, 16, e.Oversampling())

	cfg := f.cfg
	cfg.SampleRate = 44100
	cfg.MaxOversampling = 16
	_, err := NewEngine(f.model, cfg)
	assert.ErrorIs(t, err, ErrUnstable)

	cfg.MaxOversampling = 32
	e, err = NewEngine(f.model, cfg)
	require.NoError(t, err)
	assert.Equal(t, 32, e.Oversampling())
}

func TestNewEngineErrors(t *testing.T) {
	f := newFixture(t)
	cfg := f.cfg
	cfg.Sections = 1
	_, err := NewEngine(f.model, cfg)
	assert.Error(t, err)
	cfg = f.cfg
	cfg.Nasal.Sections = nil
	_, err = NewEngine(f.model, cfg)
	assert.Error(t, err)
}

func TestSilence(t *testing.T) {
	f := newFixture(t)
	e := f.engine(t)
	st := f.shape(t, "schwa")
	g := voiced
	g.Pressure = 0
	for i, v := range run(e, &st, g, 2000) {
		require.Zero(t, v, "sample %d", i)
	}
}

func TestVoicedVowel(t *testing.T) {
	f := newFixture(t)
	e := f.engine(t)
	st := f.shape(t, "schwa")
	out := run(e, &st, voiced, 11025)
	for _, v := range out {
		require.False(t, math.IsNaN(v))
		require.LessOrEqual(t, math.Abs(v), 1.0)
	}
	tail := out[2205:]
	assert.Greater(t, dft.RMS(tail), 1e-4)
	p, _ := dft.Period(tail, 55, 367)
	assert.InDelta(t, 22050.0/120, float64(p), 0.05*22050/120)
	assert.Zero(t, e.Recoveries())
}

func TestResetReproducesFresh(t *testing.T) {
	f := newFixture(t)
	st := f.shape(t, "a")
	e := f.engine(t)
	first := run(e, &st, voiced, 1500)
	e.Reset()
	again := run(e, &st, voiced, 1500)
	assert.Equal(t, first, again)

	fresh := run(f.engine(t), &st, voiced, 1500)
	assert.Equal(t, first, fresh)
}

func TestRecovery(t *testing.T) {
	f := newFixture(t)
	e := f.engine(t)
	st := f.shape(t, "schwa")
	run(e, &st, voiced, 200)
	bad := voiced
	bad.Pressure = math.NaN()
	assert.Zero(t, e.Step(&st, bad))
	assert.Equal(t, uint64(1), e.Recoveries())
	for _, v := range e.State().Pressures {
		assert.Zero(t, v)
	}
	for _, v := range run(e, &st, voiced, 200) {
		assert.False(t, math.IsNaN(v))
	}
}

func TestWrongSectionCount(t *testing.T) {
	f := newFixture(t)
	e := f.engine(t)
	good := f.shape(t, "schwa")
	run(e, &good, voiced, 100)
	before := e.State()
	st := tube.State{Sections: make([]tube.Section, 3)}
	assert.Zero(t, e.Step(&st, voiced))
	assert.Equal(t, uint64(1), e.Mismatches())
	assert.Equal(t, before, e.State())
	e.Step(&good, voiced)
	assert.Equal(t, uint64(1), e.Mismatches())
}

func TestDegenerateGeometry(t *testing.T) {
	f := newFixture(t)
	lim := f.cfg.Limits()
	st := f.shape(t, "a")
	bad, floored := st.Clone(), st.Clone()
	bad.Sections[20].Area = 0
	bad.Sections[21].Area = 1e-200
	floored.Sections[20].Area = lim.MinArea
	floored.Sections[21].Area = lim.MinArea
	assert.Equal(t, run(f.engine(t), &floored, voiced, 800), run(f.engine(t), &bad, voiced, 800))

	bad.Sections[22].Length = math.NaN()
	bad.Sections[23].Length = 0
	for _, v := range run(f.engine(t), &bad, voiced, 800) {
		require.False(t, math.IsNaN(v))
	}

	f.cfg.Nasal.Sections[2].Length = 0
	f.cfg.Nasal.PortLength = 0
	e := f.engine(t)
	n := f.shape(t, "n")
	for _, v := range run(e, &n, voiced, 800) {
		require.False(t, math.IsNaN(v))
	}
	assert.Zero(t, e.Recoveries())
}

func TestNasalCoupling(t *testing.T) {
	f := newFixture(t)
	oral := f.shape(t, "schwa")
	e := f.engine(t)
	for i := 0; i < 500; i++ {
		e.Step(&oral, voiced)
		require.Zero(t, e.State().PortFlow)
	}

	nasal := f.shape(t, "n")
	require.Positive(t, nasal.VelumArea)
	e = f.engine(t)
	run(e, &nasal, voiced, 500)
	flow := 0.0
	for i := 0; i < 200; i++ {
		e.Step(&nasal, voiced)
		flow = math.Max(flow, math.Abs(e.State().PortFlow))
	}
	assert.Positive(t, flow)
}

func TestFrication(t *testing.T) {
	f := newFixture(t)
	breath := Glottis{F0: 120, Pressure: 800, OpenArea: 0, ChinkArea: 2e-5}

	s := f.shape(t, "s")
	es := f.engine(t)
	outS := run(es, &s, breath, 8820)

	schwa := f.shape(t, "schwa")
	en := f.engine(t)
	outN := run(en, &schwa, breath, 8820)

	assert.Greater(t, dft.RMS(outS[3300:]), 2*dft.RMS(outN[3300:]))
}

func TestGlottisMap(t *testing.T) {
	sp := speaker.Default()
	gm, err := NewGlottisMap(sp)
	require.NoError(t, err)
	g := gm.Glottis([]float64{100, 8000, 0.2, 0.05, -20})
	assert.Equal(t, 100.0, g.F0)
	assert.Equal(t, 800.0, g.Pressure)
	assert.InDelta(t, 2e-5, g.OpenArea, 1e-15)
	assert.InDelta(t, 5e-6, g.ChinkArea, 1e-15)

	g = gm.Glottis([]float64{1e6, -5, math.NaN(), 0, 0})
	assert.Equal(t, 600.0, g.F0)
	assert.Equal(t, 0.0, g.Pressure)
	assert.InDelta(t, 1e-5, g.OpenArea, 1e-15)

	sp.GlottisParams = sp.GlottisParams[2:]
	_, err = NewGlottisMap(sp)
	assert.ErrorIs(t, err, tube.ErrMissingParam)
}

func TestAmplitude(t *testing.T) {
	assert.Equal(t, 1.0, Amplitude(VolMax))
	assert.Equal(t, 0.0, Amplitude(0))
	assert.InDelta(t, 0.01, Amplitude(20), 1e-12)
}
