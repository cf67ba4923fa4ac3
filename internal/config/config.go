// Package config loads the settings of the remux service.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Environment variables overriding the file.
const (
	EnvAddr     = "REMUX_ADDR"
	EnvLogLevel = "REMUX_LOG_LEVEL"
)

type Config struct {
	// Addr is the HTTP listen address.
	Addr     string `yaml:"addr"`
	LogLevel string `yaml:"log_level"`
	// TempDir holds uploads and results while a job runs. Empty means the
	// system temporary directory.
	TempDir string `yaml:"temp_dir"`
	// UploadLimit caps the multipart body, in bytes.
	UploadLimit int64 `yaml:"upload_limit"`
	// Workers is the number of jobs processed at the same time.
	Workers int  `yaml:"workers"`
	Pprof   bool `yaml:"pprof"`
}

func Default() *Config {
	return &Config{
		Addr:        "0.0.0.0:8080",
		LogLevel:    "info",
		UploadLimit: 2 << 30,
		Workers:     2,
	}
}

// Load reads path over the defaults, then applies the environment. An empty
// path skips the file.
func Load(path string) (*Config, error) {
	c := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		// an empty file decodes to io.EOF
		if err = dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
	}
	if err := c.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return c, c.Validate()
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvAddr); ok && v != "" {
		c.Addr = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		// decoded like a yaml scalar, so quoting works the same as in the file
		var level string
		if err := yaml.Unmarshal([]byte(v), &level); err != nil {
			return fmt.Errorf("%s: %w", EnvLogLevel, err)
		}
		c.LogLevel = level
	}
	return nil
}

// Level returns the logrus level named by LogLevel.
func (c *Config) Level() (logrus.Level, error) {
	return logrus.ParseLevel(c.LogLevel)
}

func (c *Config) Validate() error {
	if c.Addr == "" {
		return errors.New("config: empty listen address")
	}
	if _, err := c.Level(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.UploadLimit <= 0 {
		return fmt.Errorf("config: upload limit %d", c.UploadLimit)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("config: %d workers", c.Workers)
	}
	return nil
}
