// Package app wires together the RIB Coordinator's own tunables, the
// logging subsystem and the declarative routing config into the single
// on-disk document cmd/ribd reads, mirroring the teacher's nested
// Config pattern (modules/route/coordinator/cfg.go embeds *bird.Config).
package app

import (
	"fmt"
	"os"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/yanet-platform/ribd/coordinator"
	"github.com/yanet-platform/ribd/internal/config"
	"github.com/yanet-platform/ribd/internal/logging"
)

const defaultLevel = zapcore.InfoLevel

// Config is the full on-disk configuration for the ribd process.
type Config struct {
	// Logging configures the process-wide logger.
	Logging logging.Config `yaml:"logging"`
	// Coordinator configures the RIB Coordinator's own tunables (writer
	// queue depth, snapshot size ceiling).
	Coordinator coordinator.Config `yaml:"coordinator"`
	// Routes is the declarative VRF/route state applied at startup via
	// Reconfigure, per spec.md §6.
	Routes config.Config `yaml:"routes"`
}

// DefaultConfig returns a Config with every section defaulted, mirroring
// the teacher's DefaultConfig pattern.
func DefaultConfig() *Config {
	return &Config{
		Logging:     logging.Config{Level: defaultLevel},
		Coordinator: *coordinator.DefaultConfig(),
		Routes:      *config.DefaultConfig(),
	}
}

// LoadConfig reads and parses a yaml Config from path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %q: %w", path, err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %q: %w", path, err)
	}
	return cfg, nil
}
