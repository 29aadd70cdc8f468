// Package config loads the YAML configuration of the tnet tools: logging,
// parallelism of the tensor kernels and decomposition truncation.
package config

import (
	"bytes"
	"io"
	"log/slog"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/born-ml/tnet/internal/decomp"
	"github.com/born-ml/tnet/internal/logging"
	"github.com/born-ml/tnet/internal/parallel"
)

// Config is the root of a configuration file.
type Config struct {
	Log      LogConfig       `yaml:"log"`
	Parallel parallel.Config `yaml:"parallel"`
	Decomp   decomp.Options  `yaml:"decomp"`
	// Bonds is the number of bonds a decomposition worker tracks.
	Bonds int `yaml:"bonds"`
	// Compress selects zstd compression for written containers.
	Compress bool `yaml:"compress"`
}

// LogConfig selects the log format and level.
type LogConfig struct {
	Format string `yaml:"format"` // "text" or "json"
	Level  string `yaml:"level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Log:      LogConfig{Format: "text", Level: "warn"},
		Parallel: parallel.DefaultConfig(),
		Decomp:   decomp.DefaultOptions(),
		Bonds:    1,
	}
}

// Load reads path on top of the defaults. An empty path yields the
// defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	//nolint:gosec // G304: the path is supplied by the user on purpose
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "read config")
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// Parse decodes YAML on top of the defaults and validates the result.
// Unknown keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, errors.Wrap(err, "parse config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every section.
func (c Config) Validate() error {
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return errors.Errorf("config: unknown log format %q", c.Log.Format)
	}
	if c.Parallel.NumWorkers < 0 || c.Parallel.MinChunkSize < 0 {
		return errors.New("config: parallel settings must not be negative")
	}
	if c.Bonds < 0 {
		return errors.Errorf("config: bonds %d < 0", c.Bonds)
	}
	return errors.Wrap(c.Decomp.Validate(), "config")
}

// Logger builds the configured logger writing to w.
func (c Config) Logger(w io.Writer) (*slog.Logger, error) {
	return logging.New(w, c.Log.Format, c.Log.Level)
}

// Marshal encodes c as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
