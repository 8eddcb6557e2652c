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
	"errors"
	"math"
)

// Limit is the largest number of filter coefficients.
const Limit = 200

var errFirDesign = errors.New("fir filter design out of range")

// FirFilter is a linear phase lowpass FIR filter used to decimate the 2x oversampled
// glottal oscillator.
type FirFilter struct {
	Ptr   int
	NTaps int
	Data  []float64
	Coef  []float64
}

// Init designs a maximally flat filter with transition band center beta and width
// gamma (fractions of the sampling frequency), dropping coefficients below cutoff.
func (ff *FirFilter) Init(beta, gamma, cutoff float64) error {
	coefficients, err := maximallyFlat(beta, gamma)
	if err != nil {
		return err
	}
	nCoefficients := trim(cutoff, coefficients)

	// symmetric taps: c[n] ... c[1] ... c[n]
	ff.NTaps = (nCoefficients * 2) - 1
	ff.Data = make([]float64, ff.NTaps)
	ff.Coef = make([]float64, ff.NTaps)
	increment := -1
	p := nCoefficients
	for i := 0; i < ff.NTaps; i++ {
		ff.Coef[i] = coefficients[p]
		p += increment
		if p <= 0 {
			p = 2
			increment = 1
		}
	}
	ff.Ptr = 0
	return nil
}

// Reset clears the data and sets the pointer to the first element.
func (ff *FirFilter) Reset() {
	for i := range ff.Data {
		ff.Data[i] = 0.0
	}
	ff.Ptr = 0
}

// maximallyFlat calculates the coefficients of a linear phase lowpass FIR filter.
// The returned slice is 1-based: element 0 is unused.
func maximallyFlat(beta, gamma float64) ([]float64, error) {
	// cut-off frequency must be between 0 hz and nyquist
	if beta <= 0.0 || beta >= 0.5 {
		return nil, errFirDesign
	}
	// transition band must fit with the stop band
	betaMin := math.Min(2.0*beta, 1.0-2.0*beta)
	if gamma <= 0.0 || gamma >= betaMin {
		return nil, errFirDesign
	}
	// make sure transition band not too small
	nt := int(1.0 / (4.0 * gamma * gamma))
	if nt > 160 {
		return nil, errFirDesign
	}

	// rational approximation to the cut-off point
	ac := (1.0 + math.Cos((2.0*math.Pi)*beta)) / 2.0
	numerator, np, nt := approximate(ac, nt)
	if np < 1 {
		return nil, errFirDesign
	}
	n := (2 * np) - 1
	if numerator == 0 {
		numerator = 1
	}

	a := make([]float64, Limit+1)
	c := make([]float64, Limit+1)
	coefficients := make([]float64, Limit+1)

	// magnitude at np points
	a[1] = 1.0
	c[1] = 1.0
	ll := nt - numerator
	for i := 2; i <= np; i++ {
		sum := 1.0
		c[i] = math.Cos((2.0 * math.Pi) * (float64(i-1) / float64(n)))
		x := (1.0 - c[i]) / 2.0
		y := x
		if numerator == nt {
			continue
		}
		for j := 1; j <= ll; j++ {
			z := y
			for jj := 1; jj <= numerator-1; jj++ {
				z *= 1.0 + float64(j)/float64(jj)
			}
			y *= x
			sum += z
		}
		a[i] = sum * math.Pow(1.0-x, float64(numerator))
	}

	// weighting coefficients by an n-point idft
	for i := 1; i <= np; i++ {
		coefficients[i] = a[1] / 2.0
		for j := 2; j <= np; j++ {
			m := ((i - 1) * (j - 1)) % n
			if m > nt {
				m = n - m
			}
			coefficients[i] += c[m+1] * a[j]
		}
		coefficients[i] *= 2.0 / float64(n)
	}
	return coefficients[:np+1], nil
}

// trim returns the number of leading coefficients at or above cutoff in magnitude.
func trim(cutoff float64, coefficients []float64) int {
	for i := len(coefficients) - 1; i > 0; i-- {
		if math.Abs(coefficients[i]) >= math.Abs(cutoff) {
			return i
		}
	}
	return 1
}

// Filter puts input into the delay line and, when needOutput is set, returns the
// filtered value.
func (ff *FirFilter) Filter(input float64, needOutput bool) float64 {
	ff.Data[ff.Ptr] = input
	if !needOutput {
		ff.Ptr = decrement(ff.Ptr, ff.NTaps)
		return 0.0
	}
	output := 0.0
	for i := 0; i < ff.NTaps; i++ {
		output += ff.Data[ff.Ptr] * ff.Coef[i]
		ff.Ptr = increment(ff.Ptr, ff.NTaps)
	}
	ff.Ptr = decrement(ff.Ptr, ff.NTaps)
	return output
}

// increment keeps the circular buffer pointer in the range 0 -> modulus-1.
func increment(ptr, modulus int) int {
	ptr++
	if ptr >= modulus {
		return 0
	}
	return ptr
}

func decrement(ptr, modulus int) int {
	ptr--
	if ptr < 0 {
		return modulus - 1
	}
	return ptr
}

// approximate finds the best rational approximation numerator/denominator of number
// with a denominator between order and 2*order. It returns the numerator, the
// denominator and the new order (denominator - 1).
func approximate(number float64, order int) (numerator, denominator, newOrder int) {
	if order <= 0 {
		return 0, 0, -1
	}
	minimumError := 1.0
	modulus := 0
	fractionalPart := math.Abs(number - float64(int(number)))
	orderMaximum := 2 * order
	if orderMaximum > Limit {
		orderMaximum = Limit
	}
	for i := order; i <= orderMaximum; i++ {
		ps := float64(i) * fractionalPart
		ip := int(ps + 0.5)
		e := math.Abs((ps - float64(ip)) / float64(i))
		if e < minimumError {
			minimumError = e
			modulus = ip
			denominator = i
		}
	}
	numerator = int(math.Abs(number))*denominator + modulus
	if number < 0 {
		numerator = -numerator
	}
	newOrder = denominator - 1
	if numerator == denominator {
		denominator = orderMaximum
		numerator = denominator - 1
		newOrder = numerator
	}
	return numerator, denominator, newOrder
}
