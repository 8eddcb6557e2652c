// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pipeline

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/emer/vtsynth/synth"
)

// Frames is a parameter trajectory: NumFrames tract and glottis vectors concatenated
// frame after frame.
type Frames struct {
	Tract     []float64
	Glottis   []float64
	NumFrames int
	FrameRate float64 `desc:"frames per second"`
}

// Source yields the frames to synthesize for a session.
type Source interface {
	Frames(s *synth.Session) (Frames, error)
}

// FrameSeq is an explicit frame sequence.
type FrameSeq Frames

// Frames checks the vector lengths against the session.
func (fs *FrameSeq) Frames(s *synth.Session) (Frames, error) {
	c := s.Constants()
	f := Frames(*fs)
	if f.NumFrames <= 0 {
		return f, fmt.Errorf("%w: no frames", ErrSourceLoad)
	}
	if len(f.Tract) != f.NumFrames*c.NumTractParams || len(f.Glottis) != f.NumFrames*c.NumGlottisParams {
		return f, fmt.Errorf("%w: %d tract and %d glottis values for %d frames", ErrSourceLoad,
			len(f.Tract), len(f.Glottis), f.NumFrames)
	}
	if !(f.FrameRate > 0) || math.IsInf(f.FrameRate, 0) {
		return f, fmt.Errorf("%w: frame rate %g", ErrSourceLoad, f.FrameRate)
	}
	return f, nil
}

// FileFrame is one entry of a trajectory file. The tract comes from Tract values or a
// named Shape; the glottis from Glottis values or the neutral vector, with optional
// F0 and Pressure overrides. Repeat holds the frame for that many frames.
type FileFrame struct {
	Shape    string    `yaml:"shape,omitempty" json:"shape,omitempty"`
	Tract    []float64 `yaml:"tract,omitempty" json:"tract,omitempty"`
	Glottis  []float64 `yaml:"glottis,omitempty" json:"glottis,omitempty"`
	F0       *float64  `yaml:"f0,omitempty" json:"f0,omitempty"`
	Pressure *float64  `yaml:"pressure,omitempty" json:"pressure,omitempty" desc:"dPa"`
	Repeat   int       `yaml:"repeat,omitempty" json:"repeat,omitempty"`
}

// Trajectory is the content of a trajectory file.
type Trajectory struct {
	FrameRate float64     `yaml:"frame_rate" json:"frame_rate"`
	Frames    []FileFrame `yaml:"frames" json:"frames"`
}

// FileSource reads a YAML trajectory file.
type FileSource struct {
	Path string
}

// Load parses the trajectory file.
func (fs *FileSource) Load() (*Trajectory, error) {
	b, err := os.ReadFile(fs.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceLoad, err)
	}
	tr := &Trajectory{}
	if err := yaml.Unmarshal(b, tr); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", ErrSourceLoad, fs.Path, err)
	}
	return tr, nil
}

// Frames loads the file and expands its trajectory.
func (fs *FileSource) Frames(s *synth.Session) (Frames, error) {
	tr, err := fs.Load()
	if err != nil {
		return Frames{}, err
	}
	return tr.Frames(s)
}

// Frames expands shapes, defaults and repeats into frames.
func (tr *Trajectory) Frames(s *synth.Session) (Frames, error) {
	c := s.Constants()
	sp := s.Speaker()
	f0, pressure := sp.GlottisParamIndex("f0"), sp.GlottisParamIndex("pressure")
	f := Frames{FrameRate: tr.FrameRate}
	for i, ff := range tr.Frames {
		tract := ff.Tract
		switch {
		case ff.Shape != "" && tract != nil:
			return f, fmt.Errorf("%w: frame %d has both shape and tract", ErrSourceLoad, i)
		case ff.Shape != "":
			v, err := s.TractParams(ff.Shape)
			if err != nil {
				return f, fmt.Errorf("%w: frame %d: %w", ErrSourceLoad, i, err)
			}
			tract = v
		case len(tract) != c.NumTractParams:
			return f, fmt.Errorf("%w: frame %d has %d tract values, want %d", ErrSourceLoad, i, len(tract), c.NumTractParams)
		}
		glottis := s.NeutralGlottis()
		if ff.Glottis != nil {
			if len(ff.Glottis) != c.NumGlottisParams {
				return f, fmt.Errorf("%w: frame %d has %d glottis values, want %d", ErrSourceLoad, i, len(ff.Glottis), c.NumGlottisParams)
			}
			copy(glottis, ff.Glottis)
		}
		if ff.F0 != nil && f0 >= 0 {
			glottis[f0] = *ff.F0
		}
		if ff.Pressure != nil && pressure >= 0 {
			glottis[pressure] = *ff.Pressure
		}
		for r := 0; r < max(ff.Repeat, 1); r++ {
			f.Tract = append(f.Tract, tract...)
			f.Glottis = append(f.Glottis, glottis...)
			f.NumFrames++
		}
	}
	fseq := FrameSeq(f)
	return fseq.Frames(s)
}
