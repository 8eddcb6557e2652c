// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package trm

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoise(t *testing.T) {
	var a, b Noise
	a.Reset()
	first := make([]float32, 1000)
	for i := range first {
		first[i] = a.Next()
		assert.Equal(t, first[i], b.Next())
		assert.GreaterOrEqual(t, first[i], float32(-0.5))
		assert.Less(t, first[i], float32(0.5))
	}
	a.Reset()
	for i := range first {
		require.Equal(t, first[i], a.Next())
	}
}

func TestDecimator(t *testing.T) {
	d := NewDecimator(4)
	assert.Equal(t, 0.25, d.Filter(1))
	assert.Equal(t, 0.5, d.Filter(1))
	d.Filter(1)
	assert.Equal(t, 1.0, d.Filter(1))
	assert.Equal(t, 1.0, d.Filter(1))
	d.Reset()
	assert.Equal(t, 0.5, d.Filter(2))
	one := NewDecimator(0)
	assert.Equal(t, 3.0, one.Filter(3))
}

func TestFirFilter(t *testing.T) {
	var ff FirFilter
	require.NoError(t, ff.Init(FirBeta, FirGamma, FirCutoff))
	require.Greater(t, ff.NTaps, 1)
	assert.Equal(t, 1, ff.NTaps%2)
	for i := 0; i < ff.NTaps/2; i++ {
		assert.Equal(t, ff.Coef[i], ff.Coef[ff.NTaps-1-i])
	}
	assert.Error(t, ff.Init(0.6, FirGamma, FirCutoff))
	assert.Error(t, ff.Init(FirBeta, 0, FirCutoff))
}

func TestGlottalPulse(t *testing.T) {
	var g WavetableGlottalSource
	g.Init(Pulse, 22050, 40, 16, 32)
	assert.True(t, g.Oversample)
	assert.Zero(t, g.Wavetable[0])
	assert.InDelta(t, 1, g.Wavetable[g.TableDiv1], 1e-6)
	assert.Zero(t, g.Wavetable[TableLength-1])

	// a louder pulse closes earlier
	g.Update(0)
	quiet := g.Wavetable[g.TableDiv2-2]
	g.Update(1)
	assert.Less(t, g.Wavetable[g.TableDiv2-2], quiet)
	assert.Zero(t, g.Wavetable[g.TableDiv2-2])

	var s WavetableGlottalSource
	s.Init(Sine, 22050, 40, 16, 32)
	for _, v := range s.Wavetable {
		assert.GreaterOrEqual(t, v, float32(0))
		assert.LessOrEqual(t, v, float32(1))
	}
}

func TestFilterResponses(t *testing.T) {
	lp := NewLowpass(22050, 2000)
	var y float64
	for i := 0; i < 2000; i++ {
		y = lp.Filter(1)
	}
	assert.InDelta(t, 1, y, 1e-9)

	dc := NewDCBlocker(22050, 20)
	for i := 0; i < 22050; i++ {
		y = dc.Filter(1)
	}
	assert.InDelta(t, 0, y, 1e-3)
	dc.Reset()
	assert.InDelta(t, 1, dc.Filter(1), 0.01)

	var bp Bandpass
	bp.Tune(22050, 4000, 3500)
	for i := 0; i < 2000; i++ {
		y = bp.Filter(1)
	}
	assert.InDelta(t, 0, y, 1e-9)

	thr := NewThroat(22050, 1500, VolMax)
	for i := 0; i < 2000; i++ {
		y = thr.Filter(1)
	}
	assert.InDelta(t, 1, y, 1e-9)
	assert.False(t, math.IsNaN(y))
}
