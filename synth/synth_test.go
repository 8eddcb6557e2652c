// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package synth

import (
	"errors"
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/emer/vtsynth/metrics"
	"github.com/emer/vtsynth/speaker"
)

func newSession(t *testing.T, opts ...Option) *Session {
	s, err := NewSession(speaker.Default(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// glide returns numFrames frames moving from shape a to shape b with a rising f0.
func glide(t *testing.T, s *Session, a, b string, numFrames int) (tract, glottis []float64) {
	va, err := s.TractParams(a)
	require.NoError(t, err)
	vb, err := s.TractParams(b)
	require.NoError(t, err)
	g := s.NeutralGlottis()
	for k := 0; k < numFrames; k++ {
		r := float64(k) / float64(numFrames-1)
		for i := range va {
			tract = append(tract, va[i]*(1-r)+vb[i]*r)
		}
		fg := append([]float64(nil), g...)
		fg[0] = 110 + 30*r
		glottis = append(glottis, fg...)
	}
	return tract, glottis
}

func TestSampleCounts(t *testing.T) {
	assert.Equal(t, 441, SamplesPerFrame(0, 22050, 50))
	assert.Equal(t, 44100, BlockSampleCount(100, 22050, 50))
	assert.Equal(t, 110, SamplesPerFrame(0, 22050, 200))
	assert.Equal(t, 110, SamplesPerFrame(1, 22050, 200))
	assert.Equal(t, 111, SamplesPerFrame(3, 22050, 200))
	for _, rate := range []float64{200, 60, 33.3, 441, 1000} {
		for _, frames := range []int{1, 7, 100} {
			sum := 0
			for k := 0; k < frames; k++ {
				sum += SamplesPerFrame(k, 22050, rate)
			}
			assert.Equal(t, BlockSampleCount(frames, 22050, rate), sum, "rate %g frames %d", rate, frames)
			assert.Equal(t, int(math.Floor(float64(frames)*22050/rate)), sum)
		}
	}
}

func TestConstants(t *testing.T) {
	s := newSession(t)
	c := s.Constants()
	assert.Equal(t, Constants{SampleRate: 22050, NumTubeSections: 40, NumTractParams: 24, NumGlottisParams: 5, NumNasalSections: 8}, c)
	assert.Len(t, s.TractParamInfo(), 24)
	assert.Equal(t, "f0", s.GlottisParamInfo()[0].Abbr)
	assert.NotEmpty(t, Version())

	_, err := s.TractParams("no-such-shape")
	assert.ErrorIs(t, err, speaker.ErrShapeNotFound)
	v, err := s.TractParams("a")
	require.NoError(t, err)
	assert.Len(t, v, 24)
}

func TestNewSessionErrors(t *testing.T) {
	_, err := NewSession(nil)
	assert.ErrorIs(t, err, speaker.ErrInvalidConfig)
	bad := speaker.Default()
	bad.NumTubeSections = 0
	_, err = NewSession(bad)
	assert.ErrorIs(t, err, speaker.ErrInvalidConfig)
}

func TestNeutralBlock(t *testing.T) {
	s := newSession(t)
	frames := 100
	var tract, glottis []float64
	for k := 0; k < frames; k++ {
		tract = append(tract, s.Speaker().NeutralTract()...)
		glottis = append(glottis, s.NeutralGlottis()...)
	}
	res, err := s.SynthBlock(tract, glottis, frames, 50)
	require.NoError(t, err)
	assert.Equal(t, 44100, res.NumSamples)
	assert.Len(t, res.Audio, 44100)
	assert.Len(t, res.Tubes, frames)
	assert.Len(t, res.AreasCM2(), frames*40)
	assert.Len(t, res.LengthsCM(), frames*40)
	assert.Len(t, res.Articulators(), frames*40)
	peak := 0.0
	for _, v := range res.Audio {
		require.False(t, math.IsNaN(v))
		require.LessOrEqual(t, math.Abs(v), 1.0)
		peak = math.Max(peak, math.Abs(v))
	}
	assert.Positive(t, peak)
	for _, a := range res.AreasCM2() {
		assert.Positive(t, a)
	}
}

func TestBlockMatchesIncremental(t *testing.T) {
	s := newSession(t)
	tract, glottis := glide(t, s, "a", "i", 12)
	res, err := s.SynthBlock(tract, glottis, 12, 200)
	require.NoError(t, err)

	ng := s.Constants().NumGlottisParams
	incremental := func() []float64 {
		var out []float64
		for k := range res.Tubes {
			out, err = s.TubeSynthesisAdd(out, SamplesPerFrame(k, 22050, 200), TargetOf(&res.Tubes[k]), glottis[k*ng:(k+1)*ng])
			require.NoError(t, err)
		}
		return out
	}

	// a new session starts from silence like a block
	first := incremental()
	assert.Equal(t, res.Audio, first)

	require.NoError(t, s.TubeSynthesisReset())
	assert.Equal(t, res.Audio, incremental())

	// block synthesis does not disturb the incremental stream
	require.NoError(t, s.TubeSynthesisReset())
	_, err = s.SynthBlock(tract, glottis, 12, 200)
	require.NoError(t, err)
	assert.Equal(t, res.Audio, incremental())
}

func TestIncrementalValidation(t *testing.T) {
	s := newSession(t)
	st, err := s.Tube(s.Speaker().NeutralTract(), nil)
	require.NoError(t, err)
	tt := TargetOf(&st)
	g := s.NeutralGlottis()

	short := tt
	short.Areas = short.Areas[:10]
	out, err := s.TubeSynthesisAdd(nil, 100, short, g)
	assert.ErrorIs(t, err, ErrParamLength)
	assert.Empty(t, out)
	_, err = s.TubeSynthesisAdd(nil, 100, tt, g[:2])
	assert.ErrorIs(t, err, ErrParamLength)
	_, err = s.TubeSynthesisAdd(nil, -1, tt, g)
	assert.ErrorIs(t, err, ErrParamLength)

	// the failed calls left the stream untouched
	got, err := s.TubeSynthesisAdd(nil, 300, tt, g)
	require.NoError(t, err)
	other := newSession(t)
	want, err := other.TubeSynthesisAdd(nil, 300, tt, g)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// degenerate geometry is clamped, never fatal
	bad := TargetOf(&st)
	bad.Areas[5] = 0
	bad.Lengths[6] = math.NaN()
	out, err = s.TubeSynthesisAdd(nil, 200, bad, g)
	require.NoError(t, err)
	for _, v := range out {
		assert.False(t, math.IsNaN(v))
	}
}

func TestBlockErrors(t *testing.T) {
	s := newSession(t)
	tract, glottis := glide(t, s, "schwa", "a", 3)
	_, err := s.SynthBlock(tract, glottis, 0, 100)
	assert.ErrorIs(t, err, ErrNoFrames)
	for _, r := range []float64{0, -5, math.NaN(), math.Inf(1)} {
		_, err = s.SynthBlock(tract, glottis, 3, r)
		assert.ErrorIs(t, err, ErrFrameRate)
	}
	_, err = s.SynthBlock(tract[1:], glottis, 3, 100)
	assert.ErrorIs(t, err, ErrParamLength)
	_, err = s.SynthBlock(tract, glottis[1:], 3, 100)
	assert.ErrorIs(t, err, ErrParamLength)
	_, err = s.SynthBlock(tract, nil, 3, 100)
	assert.ErrorIs(t, err, ErrParamLength)
	_, err = s.TransferFunction(tract[:10], 512)
	assert.ErrorIs(t, err, ErrParamLength)
}

func TestClosed(t *testing.T) {
	s, err := NewSession(speaker.Default())
	require.NoError(t, err)
	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Close(), ErrClosed)
	tract, glottis := glide(t, s, "schwa", "a", 2)
	_, err = s.SynthBlock(tract, glottis, 2, 100)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, s.TubeSynthesisReset(), ErrClosed)
	_, err = s.TransferFunction(tract[:24], 512)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestCloseDuringRequests(t *testing.T) {
	s, err := NewSession(speaker.Default())
	require.NoError(t, err)
	va, err := s.TractParams("a")
	require.NoError(t, err)

	var g errgroup.Group
	for i := 0; i < 4; i++ {
		g.Go(func() error {
			for {
				_, err := s.TransferFunction(va, 64)
				if errors.Is(err, ErrClosed) {
					return nil
				}
				if err != nil {
					return err
				}
			}
		})
	}
	var closes errgroup.Group
	ok := make(chan struct{}, 4)
	for i := 0; i < 4; i++ {
		closes.Go(func() error {
			if s.Close() == nil {
				ok <- struct{}{}
			}
			return nil
		})
	}
	require.NoError(t, closes.Wait())
	require.NoError(t, g.Wait())
	assert.Len(t, ok, 1)
}

func TestTransferFunction(t *testing.T) {
	s := newSession(t)
	v, err := s.TractParams("schwa")
	require.NoError(t, err)
	sp, err := s.TransferFunction(v, 512)
	require.NoError(t, err)
	assert.Equal(t, 512, sp.Len())
	assert.InDelta(t, 43.07, sp.Freq(1), 0.01)
	assert.NotEmpty(t, sp.Formants(3))
}

func TestConcurrentSessionUse(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)
	s := newSession(t, WithMetrics(m))
	tract, glottis := glide(t, s, "u", "a", 6)
	want, err := s.SynthBlock(tract, glottis, 6, 100)
	require.NoError(t, err)
	va, err := s.TractParams("a")
	require.NoError(t, err)
	wantSp, err := s.TransferFunction(va, 256)
	require.NoError(t, err)

	var g errgroup.Group
	for i := 0; i < 4; i++ {
		g.Go(func() error {
			res, err := s.SynthBlock(tract, glottis, 6, 100)
			if err != nil {
				return err
			}
			assert.Equal(t, want.Audio, res.Audio)
			sp, err := s.TransferFunction(va, 256)
			if err != nil {
				return err
			}
			assert.Equal(t, wantSp.Magnitude, sp.Magnitude)
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, 30.0, testutil.ToFloat64(m.Frames))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.Spectra))
	assert.Equal(t, float64(5*BlockSampleCount(6, 22050, 100)), testutil.ToFloat64(m.Samples))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Sessions))
}

func TestInterpolatorEndpoints(t *testing.T) {
	s := newSession(t)
	a, err := s.Tube(mustShape(t, s, "a"), nil)
	require.NoError(t, err)
	i, err := s.Tube(mustShape(t, s, "i"), nil)
	require.NoError(t, err)
	ip := s.inc
	ip.Reset()
	g := s.NeutralGlottis()
	ip.Add(nil, 10, &a, g)
	ip.Add(nil, 10, &i, g)
	assert.Equal(t, i.Areas(), ip.cur.Areas())
	assert.Equal(t, i.IncisorPos, ip.cur.IncisorPos)
	// the last interpolated sample reaches the target exactly
	assert.Equal(t, i.Areas(), ip.mix.Areas())
	assert.Equal(t, i.Sections[39].Articulator, ip.mix.Sections[39].Articulator)
}

func mustShape(t *testing.T, s *Session, name string) []float64 {
	v, err := s.TractParams(name)
	require.NoError(t, err)
	return v
}
