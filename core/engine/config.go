package engine

import (
	"os"

	"github.com/ironsweet/esengine/core/codec/es812"
	"github.com/ironsweet/esengine/core/codec/spi"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	DEFAULT_CODEC_NAME = es812.FORMAT_NAME
	// Number of soft-deleted operations kept below the global checkpoint.
	DEFAULT_SOFT_DELETES_RETENTION_OPERATIONS = 0
)

// Engine configuration, usually loaded from a YAML file.
type Config struct {
	SoftDeletes SoftDeletesConfig `yaml:"softDeletes"`
	Commits     CommitsConfig     `yaml:"commits"`
	Codec       CodecConfig       `yaml:"codec"`
	LogLevel    string            `yaml:"logLevel"`
}

type SoftDeletesConfig struct {
	Enabled             bool  `yaml:"enabled"`
	RetentionOperations int64 `yaml:"retentionOperations"`
}

type CommitsConfig struct {
	// Verify the checksums of all commit files when the engine opens.
	VerifyChecksums bool `yaml:"verifyChecksums"`
}

type CodecConfig struct {
	// Name of the postings format new segments are written with.
	Name string `yaml:"name"`
}

func DefaultConfig() *Config {
	return &Config{
		SoftDeletes: SoftDeletesConfig{
			Enabled:             true,
			RetentionOperations: DEFAULT_SOFT_DELETES_RETENTION_OPERATIONS,
		},
		Codec:    CodecConfig{Name: DEFAULT_CODEC_NAME},
		LogLevel: "info",
	}
}

// Parses a YAML document on top of the defaults and validates it.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "parsing engine config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Reads the config from path; an empty path yields the defaults.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading engine config %v", path)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, errors.Wrapf(err, "engine config %v", path)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.SoftDeletes.RetentionOperations < 0 {
		return errors.Errorf("softDeletes.retentionOperations must not be negative, got %v",
			c.SoftDeletes.RetentionOperations)
	}
	if _, err := spi.LoadPostingsFormat(c.Codec.Name); err != nil {
		return errors.Wrapf(err, "codec.name (available: %v)", spi.AvailablePostingsFormats())
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrap(err, "logLevel")
	}
	return nil
}

// Returns the configured log level, info if it does not parse.
func (c *Config) Level() logrus.Level {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}
