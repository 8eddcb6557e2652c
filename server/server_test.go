// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emer/vtsynth/metrics"
	"github.com/emer/vtsynth/pipeline"
	"github.com/emer/vtsynth/sound"
	"github.com/emer/vtsynth/speaker"
	"github.com/emer/vtsynth/synth"
	"github.com/emer/vtsynth/transfer"
)

func newApp(t *testing.T) (*fiber.App, *synth.Session) {
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)
	s, err := synth.NewSession(speaker.Default(), synth.WithMetrics(m))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return New(NewHandler(s, reg, nil)), s
}

func do(t *testing.T, app *fiber.App, method, target string, body io.Reader) (*http.Response, []byte) {
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, b
}

func TestInfo(t *testing.T) {
	app, _ := newApp(t)
	resp, b := do(t, app, http.MethodGet, "/info", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var info Info
	require.NoError(t, json.Unmarshal(b, &info))
	assert.Equal(t, 22050, info.Constants.SampleRate)
	assert.Len(t, info.Tract, 24)
	assert.Equal(t, "f0", info.Glottis[0].Abbr)

	resp, b = do(t, app, http.MethodGet, "/shapes", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var names []string
	require.NoError(t, json.Unmarshal(b, &names))
	assert.Contains(t, names, "schwa")

	resp, b = do(t, app, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(b))
}

func TestTransferFunction(t *testing.T) {
	app, _ := newApp(t)
	resp, b := do(t, app, http.MethodGet, "/shapes/a/tf?n=256", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var tf TransferFunction
	require.NoError(t, json.Unmarshal(b, &tf))
	assert.Len(t, tf.DB, 129)
	assert.InDelta(t, 22050.0/256, tf.BinHz, 1e-9)
	assert.NotEmpty(t, tf.Formants)

	resp, _ = do(t, app, http.MethodGet, "/shapes/nope/tf", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = do(t, app, http.MethodGet, "/shapes/a/tf?n=1", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = do(t, app, http.MethodGet, "/shapes/a/tf?n=x", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	for _, n := range []int{transfer.MaxSpectrumSamples + 1, 1 << 62} {
		resp, b = do(t, app, http.MethodGet, fmt.Sprintf("/shapes/a/tf?n=%d", n), nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, n)
		assert.Contains(t, string(b), transfer.ErrSpectrumSize.Error())
	}
	resp, _ = do(t, app, http.MethodGet, fmt.Sprintf("/shapes/a/tf?n=%d", transfer.MaxSpectrumSamples), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRecover(t *testing.T) {
	app, _ := newApp(t)
	app.Get("/boom", func(c *fiber.Ctx) error { panic("boom") })
	resp, b := do(t, app, http.MethodGet, "/boom", nil)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, string(b), "boom")

	resp, _ = do(t, app, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSynthesize(t *testing.T) {
	app, _ := newApp(t)
	body := `{"frame_rate": 100, "frames": [{"shape": "a", "repeat": 3}, {"shape": "i", "f0": 150, "repeat": 3}]}`
	resp, b := do(t, app, http.MethodPost, "/synth", strings.NewReader(body))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(b))
	assert.Equal(t, "audio/wav", resp.Header.Get("Content-Type"))
	n := synth.BlockSampleCount(6, 22050, 100)
	assert.Equal(t, fmt.Sprint(n), resp.Header.Get("X-Samples"))

	var w sound.Wave
	require.NoError(t, w.Decode(bytes.NewReader(b)))
	assert.Equal(t, n, w.NumFrames())

	resp, b = do(t, app, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(b), "vtsynth_frames_total 6")
}

func TestSynthesizeErrors(t *testing.T) {
	app, _ := newApp(t)
	cases := []struct {
		body string
		code int
	}{
		{`{"frame_rate": 100, "frames": [{"shape": "zz"}]}`, http.StatusNotFound},
		{`{"frame_rate": 0, "frames": [{"shape": "a"}]}`, http.StatusBadRequest},
		{`{"frame_rate": 100, "frames": []}`, http.StatusBadRequest},
		{`{"frame_rate": 100, "frames": [{"tract": [1, 2]}]}`, http.StatusBadRequest},
		{`{"frame_rate": 100, "frames": [{"shape": "a", "repeat": 7000}]}`, http.StatusRequestEntityTooLarge},
		{`{"frame_rate": `, http.StatusBadRequest},
	}
	for _, c := range cases {
		body, code := c.body, c.code
		resp, b := do(t, app, http.MethodPost, "/synth", strings.NewReader(body))
		assert.Equal(t, code, resp.StatusCode, body)
		assert.Contains(t, string(b), "error")
	}
}

func TestStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, Status(fmt.Errorf("%w: %w", pipeline.ErrSourceLoad, speaker.ErrShapeNotFound)))
	assert.Equal(t, http.StatusBadRequest, Status(synth.ErrParamLength))
	assert.Equal(t, http.StatusServiceUnavailable, Status(synth.ErrClosed))
	assert.Equal(t, http.StatusTeapot, Status(fiber.NewError(http.StatusTeapot)))
	assert.Equal(t, http.StatusInternalServerError, Status(io.ErrUnexpectedEOF))
}
