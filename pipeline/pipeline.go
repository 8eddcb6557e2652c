// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pipeline runs a trajectory source through a synthesis session into a WAV
// file, an optional feedback table of the tube geometry, and optional playback.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/emer/vtsynth/dft"
	"github.com/emer/vtsynth/sound"
	"github.com/emer/vtsynth/speaker"
	"github.com/emer/vtsynth/synth"
	"github.com/emer/vtsynth/transfer"
	"github.com/emer/vtsynth/trm"
	"github.com/emer/vtsynth/tube"
)

var (
	ErrSourceLoad    = errors.New("trajectory source could not be loaded")
	ErrInvalidOutput = errors.New("invalid output path")
	ErrOutputWrite   = errors.New("output could not be written")
)

// Exit codes of Code.
const (
	CodeOK = iota
	CodeConfig
	CodeSourceLoad
	CodeInvalidOutput
	CodeOutputWrite
	CodeOther
)

// Code maps an error to its exit code.
func Code(err error) int {
	switch {
	case err == nil:
		return CodeOK
	case errors.Is(err, ErrSourceLoad):
		return CodeSourceLoad
	case errors.Is(err, ErrInvalidOutput):
		return CodeInvalidOutput
	case errors.Is(err, ErrOutputWrite):
		return CodeOutputWrite
	case errors.Is(err, speaker.ErrInvalidConfig), errors.Is(err, speaker.ErrShapeNotFound),
		errors.Is(err, tube.ErrMissingParam), errors.Is(err, trm.ErrUnstable):
		return CodeConfig
	}
	return CodeOther
}

// Output says where the results go. FeedbackPath and Play are optional.
type Output struct {
	WavPath      string
	FeedbackPath string
	Play         bool
}

// Result is the outcome of a run.
type Result struct {
	synth.BlockResult
	Wave *sound.Wave
	RMS  float64
}

// Runner sequences a session's synthesis and the output writers.
type Runner struct {
	Session *synth.Session
	Logger  *zap.Logger
	// Player plays the wave when Output.Play is set; sound.Play when nil.
	Player func(*sound.Wave) error
}

func (r *Runner) logger() *zap.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return r.Session.Logger()
}

// checkPath validates a destination: not empty, not a directory, parent directory
// existing, and the extension ext when given.
func checkPath(path, ext string) error {
	if path == "" {
		return fmt.Errorf("%w: empty path", ErrInvalidOutput)
	}
	if ext != "" && !strings.EqualFold(filepath.Ext(path), ext) {
		return fmt.Errorf("%w: %s does not end in %s", ErrInvalidOutput, path, ext)
	}
	if fi, err := os.Stat(path); err == nil && fi.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrInvalidOutput, path)
	}
	dir := filepath.Dir(path)
	if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
		return fmt.Errorf("%w: directory %s does not exist", ErrInvalidOutput, dir)
	}
	return nil
}

// Run loads the frames of src, synthesizes them and writes the outputs.
func (r *Runner) Run(ctx context.Context, src Source, out Output) (Result, error) {
	lg := r.logger()
	frames, err := src.Frames(r.Session)
	if err != nil {
		if !errors.Is(err, ErrSourceLoad) {
			err = fmt.Errorf("%w: %w", ErrSourceLoad, err)
		}
		return Result{}, err
	}
	if err := checkPath(out.WavPath, ".wav"); err != nil {
		return Result{}, err
	}
	if out.FeedbackPath != "" {
		if err := checkPath(out.FeedbackPath, ""); err != nil {
			return Result{}, err
		}
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	br, err := r.Session.SynthBlock(frames.Tract, frames.Glottis, frames.NumFrames, frames.FrameRate)
	if err != nil {
		return Result{}, err
	}
	res := Result{
		BlockResult: br,
		Wave:        sound.FromFloats(br.Audio, r.Session.Constants().SampleRate),
		RMS:         dft.RMS(br.Audio),
	}
	lg.Info("synthesized",
		zap.Int("frames", frames.NumFrames),
		zap.Int("samples", br.NumSamples),
		zap.Float64("rms", res.RMS))

	if err := ctx.Err(); err != nil {
		return res, err
	}
	if err := res.Wave.WriteWave(out.WavPath); err != nil {
		return res, fmt.Errorf("%w: %w", ErrOutputWrite, err)
	}
	lg.Info("wav written", zap.String("path", out.WavPath))
	if out.FeedbackPath != "" {
		if err := WriteFeedback(out.FeedbackPath, &br); err != nil {
			return res, err
		}
		lg.Info("feedback written", zap.String("path", out.FeedbackPath))
	}
	if out.Play {
		play := r.Player
		if play == nil {
			play = sound.Play
		}
		if err := play(res.Wave); err != nil {
			lg.Warn("playback failed", zap.Error(err))
		}
	}
	return res, nil
}

// ShapeAnalysis is the transfer function of a named shape.
type ShapeAnalysis struct {
	Name     string
	Spectrum transfer.Spectrum
	Formants []float64
}

// AnalyzeShapes computes the transfer functions of the named shapes concurrently,
// with n frequency samples each, and their first four formants.
func (r *Runner) AnalyzeShapes(ctx context.Context, names []string, n int) ([]ShapeAnalysis, error) {
	res := make([]ShapeAnalysis, len(names))
	g, ctx := errgroup.WithContext(ctx)
	for i, name := range names {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			v, err := r.Session.TractParams(name)
			if err != nil {
				return err
			}
			sp, err := r.Session.TransferFunction(v, n)
			if err != nil {
				return fmt.Errorf("shape %s: %w", name, err)
			}
			res[i] = ShapeAnalysis{Name: name, Spectrum: sp, Formants: sp.Formants(4)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return res, nil
}
