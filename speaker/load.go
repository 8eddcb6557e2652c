// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package speaker

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads a speaker file. Files ending in .json are decoded as JSON, everything
// else as YAML. Omitted settings take the built-in defaults and the result is
// validated.
func Load(path string) (*Config, error) {
	c := &Config{}
	var err error
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = c.OpenJSON(path)
	} else {
		err = c.OpenYAML(path)
	}
	if err != nil {
		return nil, err
	}
	setDefaults(c)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("speaker file %s: %w", path, err)
	}
	return c, nil
}

// OpenYAML decodes the config from a YAML file without applying defaults.
func (c *Config) OpenYAML(fn string) error {
	b, err := os.ReadFile(fn)
	if err != nil {
		return fmt.Errorf("%w: reading %s: %v", ErrInvalidConfig, fn, err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("%w: parsing %s: %v", ErrInvalidConfig, fn, err)
	}
	return nil
}

// OpenJSON opens the config from a JSON-formatted file without applying defaults.
func (c *Config) OpenJSON(fn string) error {
	b, err := os.ReadFile(fn)
	if err != nil {
		return fmt.Errorf("%w: reading %s: %v", ErrInvalidConfig, fn, err)
	}
	if err := json.Unmarshal(b, c); err != nil {
		return fmt.Errorf("%w: parsing %s: %v", ErrInvalidConfig, fn, err)
	}
	return nil
}

// SaveYAML writes the config as YAML.
func (c *Config) SaveYAML(fn string) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(fn, b, 0644)
}
