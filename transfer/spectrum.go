// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package transfer

import (
	"math"
	"strconv"

	"github.com/emer/etable/etable"
	"github.com/emer/etable/etensor"
)

// Spectrum is a sampled transfer function.
type Spectrum struct {
	Magnitude  []float64
	Phase      []float64 `desc:"radians"`
	SampleRate float64   `desc:"Hz"`
}

// Len returns the number of frequency samples.
func (sp *Spectrum) Len() int { return len(sp.Magnitude) }

// Freq returns the frequency of bin k in Hz.
func (sp *Spectrum) Freq(k int) float64 {
	return float64(k) * sp.SampleRate / float64(len(sp.Magnitude))
}

// DB returns the magnitude of bin k in dB, floored at -200.
func (sp *Spectrum) DB(k int) float64 {
	m := sp.Magnitude[k]
	if m <= 1e-10 {
		return -200
	}
	return 20 * math.Log10(m)
}

// Formants returns up to limit resonance frequencies below Nyquist, in ascending
// order. Peaks are refined by parabolic interpolation of the dB magnitude.
func (sp *Spectrum) Formants(limit int) []float64 {
	var fs []float64
	half := sp.Len() / 2
	df := sp.SampleRate / float64(sp.Len())
	for k := 1; k < half && len(fs) < limit; k++ {
		if !(sp.Magnitude[k] > sp.Magnitude[k-1] && sp.Magnitude[k] >= sp.Magnitude[k+1]) {
			continue
		}
		a, b, c := sp.DB(k-1), sp.DB(k), sp.DB(k+1)
		off := 0.0
		if den := a - 2*b + c; den < 0 {
			off = 0.5 * (a - c) / den
		}
		f := (float64(k) + off) * df
		if f < minFormantFreq {
			continue
		}
		fs = append(fs, f)
	}
	return fs
}

// Table returns the lower half of the spectrum as a table with Freq, Magnitude, DB
// and Phase columns.
func (sp *Spectrum) Table() *etable.Table {
	dt := &etable.Table{}
	dt.SetMetaData("name", "TransferFunction")
	dt.SetMetaData("desc", "volume velocity transfer function glottis to lips")
	dt.SetMetaData("precision", strconv.Itoa(6))
	sch := etable.Schema{
		{"Freq", etensor.FLOAT64, nil, nil},
		{"Magnitude", etensor.FLOAT64, nil, nil},
		{"DB", etensor.FLOAT64, nil, nil},
		{"Phase", etensor.FLOAT64, nil, nil},
	}
	rows := sp.Len()/2 + 1
	if sp.Len() == 0 {
		rows = 0
	}
	dt.SetFromSchema(sch, rows)
	for k := 0; k < rows; k++ {
		dt.SetCellFloat("Freq", k, sp.Freq(k))
		dt.SetCellFloat("Magnitude", k, sp.Magnitude[k])
		dt.SetCellFloat("DB", k, sp.DB(k))
		dt.SetCellFloat("Phase", k, sp.Phase[k])
	}
	return dt
}
