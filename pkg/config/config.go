// Copyright 2026 Statekit Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"bytes"
	"fmt"
	"os"

	"github.com/statekit/statekit/pkg/constants"
	"gopkg.in/yaml.v3"
)

// Config is the runtime configuration of a statekit host process.
type Config struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	FSM     FSMConfig     `yaml:"fsm"`
}

// LoggingConfig controls the global zap logger.
type LoggingConfig struct {
	// Level is one of DEBUG, INFO, WARN, ERROR, PRODUCTION.
	Level string `yaml:"level"`
	// Format is CONSOLE or JSON.
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// FSMConfig controls the FSM runtime defaults.
type FSMConfig struct {
	// ManagerName labels the manager in logs and metrics.
	ManagerName string `yaml:"managerName"`
	// HistoryCapacity bounds each client's transition history.
	HistoryCapacity int `yaml:"historyCapacity"`
}

// DefaultConfig returns the configuration used when no file is provided.
func DefaultConfig() Config {
	return Config{
		Logging: LoggingConfig{
			Level:  "PRODUCTION",
			Format: "CONSOLE",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    constants.DefaultMetricsPort,
		},
		FSM: FSMConfig{
			ManagerName:     constants.DefaultManagerName,
			HistoryCapacity: constants.DefaultHistoryCapacity,
		},
	}
}

// Parse unmarshals YAML config data on top of the defaults and validates the
// result. Unknown fields are rejected so typos surface immediately.
func Parse(data []byte) (Config, error) {
	cfg := DefaultConfig()

	if len(bytes.TrimSpace(data)) == 0 {
		return cfg, nil
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	if err := decoder.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// LoadFile reads and parses a YAML config file.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return Parse(data)
}

// Validate checks the configuration for values the runtime cannot work with.
func (c Config) Validate() error {
	if c.FSM.HistoryCapacity <= 0 {
		return fmt.Errorf("fsm.historyCapacity must be positive, got %d", c.FSM.HistoryCapacity)
	}
	if c.FSM.ManagerName == "" {
		return fmt.Errorf("fsm.managerName must not be empty")
	}
	if c.Metrics.Enabled && (c.Metrics.Port <= 0 || c.Metrics.Port > 65535) {
		return fmt.Errorf("metrics.port must be in (0, 65535], got %d", c.Metrics.Port)
	}

	return nil
}
