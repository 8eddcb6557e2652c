// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package logger builds the zap loggers used by the command line tools.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config is the logging configuration.
type Config struct {
	Level      string    `yaml:"level" desc:"debug, info, warn or error"`
	File       string    `yaml:"file" desc:"log file path, console only when empty"`
	MaxSize    int       `yaml:"max_size" desc:"MB per log file"`
	MaxBackups int       `yaml:"max_backups"`
	MaxAge     int       `yaml:"max_age" desc:"days"`
	Console    io.Writer `yaml:"-" desc:"console output, stderr when nil"`
}

// ParseLevel converts a level name, empty meaning info.
func ParseLevel(s string) (zapcore.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info", "":
		return zapcore.InfoLevel, nil
	case "warn":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	}
	return zapcore.InfoLevel, fmt.Errorf("unsupported log level: %s", s)
}

// New returns a console logger, also writing to a rotated file when cfg.File is set.
// The returned close function flushes the logger and closes the file.
func New(cfg Config) (*zap.Logger, func() error, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}
	encoderCfg := zapcore.EncoderConfig{
		TimeKey:        "T",
		LevelKey:       "L",
		NameKey:        "N",
		MessageKey:     "M",
		StacktraceKey:  "S",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}

	var output io.Writer = os.Stderr
	if cfg.Console != nil {
		output = cfg.Console
	}
	var file *lumberjack.Logger
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
			return nil, nil, fmt.Errorf("creating log directory: %w", err)
		}
		file = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    positive(cfg.MaxSize, 64),
			MaxBackups: positive(cfg.MaxBackups, 3),
			MaxAge:     positive(cfg.MaxAge, 7),
			Compress:   true,
		}
		output = io.MultiWriter(output, file)
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.AddSync(output),
		level,
	)
	lg := zap.New(core)
	closer := func() error {
		_ = lg.Sync()
		if file != nil {
			return file.Close()
		}
		return nil
	}
	return lg, closer, nil
}

func positive(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
