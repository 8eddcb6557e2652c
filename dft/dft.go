// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dft analyzes synthesized audio: power spectra, spectral peaks, level and
// fundamental period.
package dft

import (
	"math"

	"gonum.org/v1/gonum/dsp/window"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/dsp/fourier"
)

// Params are the power spectrum settings.
type Params struct {
	CompLogPow bool    `def:"true" desc:"compute the log of the power as well"`
	LogMin     float64 `viewif:"CompLogPow" def:"-100" desc:"minimum value a log can produce"`
	LogOffSet  float64 `viewif:"CompLogPow" def:"0" desc:"add this amount when taking the log of the power"`
	Hann       bool    `def:"true" desc:"apply a Hann window before the transform"`
}

func (dp *Params) Defaults() {
	dp.CompLogPow = true
	dp.LogMin = -100
	dp.LogOffSet = 0
	dp.Hann = true
}

// Power returns the power of the first n samples of signal (zero padded) for bins
// 0 .. n/2, and their natural log when CompLogPow is set.
func (dp *Params) Power(signal []float64, n int) (power, logPower []float64) {
	if n <= 0 {
		return nil, nil
	}
	in := make([]float64, n)
	copy(in, signal)
	if dp.Hann {
		window.Hann(in)
	}
	fft := make([]complex128, n)
	for i, v := range in {
		fft[i] = complex(v, 0)
	}
	fft = fourier.NewCmplxFFT(n).Coefficients(nil, fft)

	power = make([]float64, n/2+1)
	if dp.CompLogPow {
		logPower = make([]float64, n/2+1)
	}
	for k := range power {
		rl, im := real(fft[k]), imag(fft[k])
		powr := rl*rl + im*im
		power[k] = powr
		if dp.CompLogPow {
			powr += dp.LogOffSet
			if powr <= 0 {
				logPower[k] = dp.LogMin
			} else {
				logPower[k] = math.Max(dp.LogMin, math.Log(powr))
			}
		}
	}
	return power, logPower
}

// BinFreq returns the frequency of bin k of an n point transform.
func BinFreq(k, n int, sampleRate float64) float64 {
	return float64(k) * sampleRate / float64(n)
}

// PeakBin returns the index of the largest value in power[lo:hi], -1 if empty.
func PeakBin(power []float64, lo, hi int) int {
	lo = max(lo, 0)
	hi = min(hi, len(power))
	if lo >= hi {
		return -1
	}
	return lo + floats.MaxIdx(power[lo:hi])
}

// RMS returns the root mean square of x.
func RMS(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return math.Sqrt(floats.Dot(x, x) / float64(len(x)))
}

// Period returns the lag in [minLag, maxLag] with the largest normalized
// autocorrelation, and that correlation. It returns 0, 0 for silence or lags that do
// not fit.
func Period(x []float64, minLag, maxLag int) (int, float64) {
	maxLag = min(maxLag, len(x)-1)
	if minLag < 1 || minLag > maxLag {
		return 0, 0
	}
	energy := floats.Dot(x, x)
	if energy == 0 {
		return 0, 0
	}
	best, bestLag := math.Inf(-1), 0
	for lag := minLag; lag <= maxLag; lag++ {
		n := len(x) - lag
		r := floats.Dot(x[:n], x[lag:]) / float64(n)
		if r > best {
			best, bestLag = r, lag
		}
	}
	return bestLag, best * float64(len(x)) / energy
}
