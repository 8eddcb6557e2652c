// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/***************************************************************************
 *  Copyright 1991, 1992, 1993, 1994, 1995, 1996, 2001, 2002               *
 *    David R. Hill, Leonard Manzara, Craig Schock                         *
 *                                                                         *
 *  This program is free software: you can redistribute it and/or modify   *
 *  it under the terms of the GNU General Public License as published by   *
 *  the Free Software Foundation, either version 3 of the License, or      *
 *  (at your option) any later version.                                    *
 *                                                                         *
 *  This program is distributed in the hope that it will be useful,        *
 *  but WITHOUT ANY WARRANTY; without even the implied warranty of         *
 *  MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the          *
 *  GNU General Public License for more details.                           *
 *                                                                         *
 *  You should have received a copy of the GNU General Public License      *
 *  along with this program.  If not, see <http://www.gnu.org/licenses/>.  *
 ***************************************************************************/
// 2014-09
// This file was copied from Gnuspeech and modified by Marcelo Y. Matuda.

// 2019-02
// This is a port to golang of the C++ Gnuspeech port by Marcelo Y. Matuda


package trm

import (
	"github.com/chewxy/math32"
)

// glottal source oscillator table variables
const TableLength = 512
const TableModulus = TableLength - 1

// oversampling fir filter characteristics
const (
	FirBeta   = .2
	FirGamma  = .1
	FirCutoff = .00000001
)

// WavetableGlottalSource is an interpolating wavetable oscillator producing the
// normalized glottal opening, 0 closed to 1 fully open. When its decimation filter
// can be built it runs 2x oversampled.
type WavetableGlottalSource struct {
	WaveForm        WaveForm
	TableDiv1       int
	TableDiv2       int
	TnLength        float32
	TnDelta         float32
	BasicIncrement  float32
	CurrentPosition float32
	Wavetable       [TableLength]float32
	FirFilter       FirFilter
	Oversample      bool
}

// Init calculates the initial glottal pulse and stores it in the wavetable.
// tp, tnMin and tnMax are percentages of the period.
func (wgs *WavetableGlottalSource) Init(wType WaveForm, sampleRate, tp, tnMin, tnMax float32) {
	wgs.WaveForm = wType
	wgs.TableDiv1 = int(math32.Round(TableLength * (tp / 100.0)))
	wgs.TableDiv2 = int(math32.Round(TableLength * ((tp + tnMax) / 100.0)))
	wgs.TnLength = float32(wgs.TableDiv2 - wgs.TableDiv1)
	wgs.TnDelta = math32.Round(TableLength * (tnMax - tnMin) / 100.0)
	wgs.BasicIncrement = float32(TableLength) / sampleRate
	wgs.CurrentPosition = 0
	wgs.Oversample = wgs.FirFilter.Init(FirBeta, FirGamma, FirCutoff) == nil

	if wType == Pulse {
		// rise portion
		for i := 0; i < wgs.TableDiv1; i++ {
			x := float32(i) / float32(wgs.TableDiv1)
			x2 := x * x
			x3 := x2 * x
			wgs.Wavetable[i] = (3.0 * x2) - (2.0 * x3)
		}
		// fall portion
		j := 0
		for i := wgs.TableDiv1; i < wgs.TableDiv2; i++ {
			x := float32(j) / wgs.TnLength
			wgs.Wavetable[i] = 1.0 - (x * x)
			j++
		}
		// closed portion
		for i := wgs.TableDiv2; i < TableLength; i++ {
			wgs.Wavetable[i] = 0.0
		}
		return
	}
	// raised sine, kept non-negative so it can scale an area
	for i := 0; i < TableLength; i++ {
		wgs.Wavetable[i] = 0.5 * (1 - math32.Cos(float32(i)/float32(TableLength)*2.0*math32.Pi))
	}
}

// Reset resets the current position and the decimation filter.
func (wgs *WavetableGlottalSource) Reset() {
	wgs.CurrentPosition = 0
	wgs.FirFilter.Reset()
}

// Update rewrites the falling part of the pulse for the given amplitude (0 - 1):
// louder pulses close faster.
func (wgs *WavetableGlottalSource) Update(amplitude float32) {
	if wgs.WaveForm != Pulse {
		return
	}
	newDiv2 := float32(wgs.TableDiv2) - math32.Round(amplitude*wgs.TnDelta)
	invNewTnLength := 1.0 / (newDiv2 - float32(wgs.TableDiv1))

	x := float32(0)
	end := int(newDiv2)
	for i := wgs.TableDiv1; i < end; i++ {
		wgs.Wavetable[i] = 1.0 - x*x
		x += invNewTnLength
	}
	for i := end; i < wgs.TableDiv2; i++ {
		wgs.Wavetable[i] = 0.0
	}
}

// incrementPos advances the table position for the given frequency.
func (wgs *WavetableGlottalSource) incrementPos(frequency float32) {
	wgs.CurrentPosition = Mod0(wgs.CurrentPosition + (frequency * wgs.BasicIncrement))
}

// interpolate returns the table value at the current position.
func (wgs *WavetableGlottalSource) interpolate() float32 {
	lower := int(wgs.CurrentPosition)
	upper := int(Mod0(float32(lower + 1)))
	return wgs.Wavetable[lower] + ((wgs.CurrentPosition - float32(lower)) * (wgs.Wavetable[upper] - wgs.Wavetable[lower]))
}

// GetSample returns the next oscillator value at the given frequency.
func (wgs *WavetableGlottalSource) GetSample(frequency float32) float32 {
	if !wgs.Oversample {
		wgs.incrementPos(frequency)
		return wgs.interpolate()
	}
	var output float64
	for i := 0; i < 2; i++ {
		wgs.incrementPos(frequency / 2.0)
		output = wgs.FirFilter.Filter(float64(wgs.interpolate()), i == 1)
	}
	// decimated: only the second value is kept
	return float32(output)
}

// Mod0 keeps a table position in the range 0 -> TableModulus.
func Mod0(value float32) float32 {
	if value > TableModulus {
		value -= TableLength
	}
	return value
}
