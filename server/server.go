// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package server exposes a synthesis session over HTTP.
package server

import (
	"bytes"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/emer/vtsynth/metrics"
	"github.com/emer/vtsynth/pipeline"
	"github.com/emer/vtsynth/sound"
	"github.com/emer/vtsynth/speaker"
	"github.com/emer/vtsynth/synth"
	"github.com/emer/vtsynth/transfer"
)

// MaxFrames bounds the trajectories accepted by POST /synth.
const MaxFrames = 6000

// Handler bundles the routes of one session. Block synthesis and transfer functions
// do not touch the session's incremental stream, so requests run concurrently.
type Handler struct {
	sess *synth.Session
	reg  prometheus.Gatherer
	log  *zap.Logger
}

// NewHandler serves sess; reg is exposed on /metrics when not nil.
func NewHandler(sess *synth.Session, reg prometheus.Gatherer, lg *zap.Logger) *Handler {
	if lg == nil {
		lg = sess.Logger()
	}
	return &Handler{sess: sess, reg: reg, log: lg}
}

// New returns an app with the handler routes registered.
func New(h *Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               synth.Version(),
		DisableStartupMessage: true,
		ErrorHandler:          h.errorHandler,
	})
	app.Use(recover.New())
	h.Register(app)
	return app
}

// Register registers the routes to app.
func (h *Handler) Register(app *fiber.App) {
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/info", h.info)
	app.Get("/shapes", h.shapes)
	app.Get("/shapes/:name/tf", h.transferFunction)
	app.Post("/synth", h.synthesize)
	if h.reg != nil {
		app.Get("/metrics", h.metrics)
	}
}

// Info is the body of GET /info.
type Info struct {
	Version   string          `json:"version"`
	Speaker   string          `json:"speaker"`
	Constants synth.Constants `json:"constants"`
	Tract     []speaker.Param `json:"tract_params"`
	Glottis   []speaker.Param `json:"glottis_params"`
}

func (h *Handler) info(c *fiber.Ctx) error {
	return c.JSON(Info{
		Version:   synth.Version(),
		Speaker:   h.sess.Speaker().Name,
		Constants: h.sess.Constants(),
		Tract:     h.sess.TractParamInfo(),
		Glottis:   h.sess.GlottisParamInfo(),
	})
}

func (h *Handler) shapes(c *fiber.Ctx) error {
	return c.JSON(h.sess.Speaker().ShapeNames())
}

// TransferFunction is the body of GET /shapes/:name/tf. Magnitudes are in dB for
// the bins up to Nyquist.
type TransferFunction struct {
	Shape    string    `json:"shape"`
	BinHz    float64   `json:"bin_hz"`
	DB       []float64 `json:"db"`
	Formants []float64 `json:"formants"`
}

func (h *Handler) transferFunction(c *fiber.Ctx) error {
	name := c.Params("name")
	n, err := strconv.Atoi(c.Query("n", "512"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "n must be an integer")
	}
	v, err := h.sess.TractParams(name)
	if err != nil {
		return err
	}
	sp, err := h.sess.TransferFunction(v, n)
	if err != nil {
		return err
	}
	tf := TransferFunction{Shape: name, BinHz: sp.Freq(1), DB: make([]float64, sp.Len()/2+1), Formants: sp.Formants(4)}
	for k := range tf.DB {
		tf.DB[k] = sp.DB(k)
	}
	return c.JSON(tf)
}

// synthesize renders a trajectory posted as JSON (the trajectory file layout) and
// returns a WAV file.
func (h *Handler) synthesize(c *fiber.Ctx) error {
	var tr pipeline.Trajectory
	if err := c.BodyParser(&tr); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid trajectory: "+err.Error())
	}
	n := 0
	for _, ff := range tr.Frames {
		n += max(ff.Repeat, 1)
		if n > MaxFrames {
			return fiber.NewError(fiber.StatusRequestEntityTooLarge, "too many frames")
		}
	}
	start := time.Now()
	f, err := tr.Frames(h.sess)
	if err != nil {
		return err
	}
	br, err := h.sess.SynthBlock(f.Tract, f.Glottis, f.NumFrames, f.FrameRate)
	if err != nil {
		return err
	}
	b, err := sound.FromFloats(br.Audio, h.sess.Constants().SampleRate).Bytes()
	if err != nil {
		return err
	}
	h.log.Debug("synth request",
		zap.Int("frames", f.NumFrames),
		zap.Int("samples", br.NumSamples),
		zap.Duration("elapsed", time.Since(start)))
	c.Set(fiber.HeaderContentType, "audio/wav")
	c.Set("X-Samples", strconv.Itoa(br.NumSamples))
	return c.Send(b)
}

func (h *Handler) metrics(c *fiber.Ctx) error {
	var buf bytes.Buffer
	if err := metrics.WriteText(&buf, h.reg); err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, "text/plain; version=0.0.4")
	return c.Send(buf.Bytes())
}

// Status maps a synthesis error to an HTTP status code.
func Status(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, speaker.ErrShapeNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, pipeline.ErrSourceLoad), errors.Is(err, synth.ErrParamLength),
		errors.Is(err, synth.ErrNoFrames), errors.Is(err, synth.ErrFrameRate),
		errors.Is(err, transfer.ErrSpectrumSize):
		return fiber.StatusBadRequest
	case errors.Is(err, synth.ErrClosed):
		return fiber.StatusServiceUnavailable
	}
	return fiber.StatusInternalServerError
}

func (h *Handler) errorHandler(c *fiber.Ctx, err error) error {
	code := Status(err)
	if code >= fiber.StatusInternalServerError {
		h.log.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
