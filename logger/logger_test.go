// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	for s, want := range map[string]zapcore.Level{
		"":      zapcore.InfoLevel,
		"DEBUG": zapcore.DebugLevel,
		"warn":  zapcore.WarnLevel,
		"error": zapcore.ErrorLevel,
	} {
		l, err := ParseLevel(s)
		require.NoError(t, err)
		assert.Equal(t, want, l)
	}
	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestNewConsole(t *testing.T) {
	var buf bytes.Buffer
	lg, closeFn, err := New(Config{Level: "info", Console: &buf})
	require.NoError(t, err)
	lg.Debug("hidden")
	lg.Info("synthesized")
	require.NoError(t, closeFn())
	assert.Contains(t, buf.String(), "synthesized")
	assert.NotContains(t, buf.String(), "hidden")
}

func TestNewFile(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "vtsynth.log")
	lg, closeFn, err := New(Config{Level: "debug", File: path, Console: &buf})
	require.NoError(t, err)
	lg.Debug("to file")
	require.NoError(t, closeFn())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
	assert.Contains(t, buf.String(), "to file")

	_, _, err = New(Config{Level: "nope"})
	assert.Error(t, err)
}
