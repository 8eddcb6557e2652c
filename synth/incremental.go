// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package synth

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/emer/vtsynth/tube"
)

// TubeTarget is an explicit tube geometry for incremental synthesis, in SI units.
type TubeTarget struct {
	Lengths      []float64 `desc:"m"`
	Areas        []float64 `desc:"m²"`
	Articulators []tube.Articulator
	IncisorPos   float64 `desc:"m"`
	VelumArea    float64 `desc:"m²"`
	AspirationDB float64 `desc:"dB"`
}

// TargetOf returns the target describing st.
func TargetOf(st *tube.State) TubeTarget {
	tt := TubeTarget{
		Lengths:      make([]float64, st.Len()),
		Areas:        make([]float64, st.Len()),
		Articulators: make([]tube.Articulator, st.Len()),
		IncisorPos:   st.IncisorPos,
		VelumArea:    st.VelumArea,
		AspirationDB: st.AspirationDB,
	}
	for i, s := range st.Sections {
		tt.Lengths[i] = s.Length
		tt.Areas[i] = s.Area
		tt.Articulators[i] = s.Articulator
	}
	return tt
}

// TubeSynthesisReset silences the incremental stream. The next TubeSynthesisAdd
// starts from its own target.
func (s *Session) TubeSynthesisReset() error {
	if err := s.check(); err != nil {
		return err
	}
	s.inc.Reset()
	return nil
}

// TubeSynthesisAdd synthesizes n samples moving from the previously reached tube to
// target, appending them to dst. Nothing changes when an argument is invalid.
func (s *Session) TubeSynthesisAdd(dst []float64, n int, target TubeTarget, glottis []float64) ([]float64, error) {
	if err := s.check(); err != nil {
		return dst, err
	}
	ns := s.geom.NumSections()
	if n < 0 {
		return dst, fmt.Errorf("%w: %d samples", ErrParamLength, n)
	}
	if len(target.Lengths) != ns || len(target.Areas) != ns || len(target.Articulators) != ns {
		return dst, fmt.Errorf("%w: tube of %d/%d/%d values, want %d", ErrParamLength,
			len(target.Lengths), len(target.Areas), len(target.Articulators), ns)
	}
	if ng := s.cfg.NumGlottisParams(); len(glottis) != ng {
		return dst, fmt.Errorf("%w: %d glottis values, want %d", ErrParamLength, len(glottis), ng)
	}

	st := &s.target
	if cap(st.Sections) < ns {
		st.Sections = make([]tube.Section, ns)
	}
	st.Sections = st.Sections[:ns]
	for i := range st.Sections {
		st.Sections[i] = tube.Section{Length: target.Lengths[i], Area: target.Areas[i], Articulator: target.Articulators[i]}
	}
	st.IncisorPos = target.IncisorPos
	st.VelumArea = target.VelumArea
	st.AspirationDB = target.AspirationDB
	s.metrics.AddClamped(st.Clamp(s.limits))

	eng := s.inc.Engine()
	before := eng.Recoveries()
	dst = s.inc.Add(dst, n, st, glottis)
	if rec := eng.Recoveries() - before; rec > 0 {
		s.metrics.AddRecoveries(rec)
		s.log.Debug("numeric recoveries", zap.String("session", s.ID.String()), zap.Uint64("count", rec))
	}
	s.metrics.AddSamples(n)
	return dst, nil
}
