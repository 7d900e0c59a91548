package config

import (
	"fmt"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/hcl/v2/hclsimple"
)

const megabyte = 1 << 20

// Config is the configuration of an outrotate run.
type Config struct {
	LogLevel           string `hcl:"log_level,optional"`
	LogFormat          string `hcl:"log_format,optional"`
	LogFile            string `hcl:"log_file,optional"`
	LogRotateMegabytes int    `hcl:"log_rotate_megabytes,optional"`
	LogRotateMaxFiles  int    `hcl:"log_rotate_max_files,optional"`

	Stdout *StreamConfig `hcl:"stdout,block"`
	Stderr *StreamConfig `hcl:"stderr,block"`

	// Command is the child to run followed by its arguments.
	Command []string `hcl:"command,optional"`
}

// StreamConfig describes where one output stream of the child goes.
type StreamConfig struct {
	Path     string `hcl:"path"`
	MaxMB    int64  `hcl:"max_mb,optional"`  // 0 never rotates
	Backups  int    `hcl:"backups,optional"` // 0 keeps no backups
	Compress bool   `hcl:"compress,optional"`
}

// MaxBytes returns the rotation threshold in bytes, 0 for unlimited.
func (s *StreamConfig) MaxBytes() uint64 {
	if s.MaxMB <= 0 {
		return 0
	}
	return uint64(s.MaxMB) * megabyte
}

func LoadConfig(configFile string) (*Config, error) {
	var config Config

	err := hclsimple.DecodeFile(configFile, nil, &config)
	if err != nil {
		return nil, err
	}
	return &config, nil
}

// SeparateStderr reports whether stderr has a destination of its own.
// Otherwise it is merged into stdout.
func (c *Config) SeparateStderr() bool {
	return c.Stderr != nil && c.Stderr.Path != ""
}

// Validate checks the configuration and reports every problem found.
func (c *Config) Validate() error {
	var result *multierror.Error

	if len(c.Command) == 0 || c.Command[0] == "" {
		result = multierror.Append(result, fmt.Errorf("no command to run"))
	}
	if c.LogRotateMegabytes < 0 {
		result = multierror.Append(result, fmt.Errorf("log_rotate_megabytes must not be negative"))
	}
	if c.LogRotateMaxFiles < 0 {
		result = multierror.Append(result, fmt.Errorf("log_rotate_max_files must not be negative"))
	}

	if c.Stdout == nil || c.Stdout.Path == "" {
		result = multierror.Append(result, fmt.Errorf("stdout log file path is required"))
	} else if err := c.Stdout.validate("stdout"); err != nil {
		result = multierror.Append(result, err)
	}

	if c.SeparateStderr() {
		if err := c.Stderr.validate("stderr"); err != nil {
			result = multierror.Append(result, err)
		}
		if c.Stdout != nil && c.Stdout.Path != "" && samePath(c.Stdout.Path, c.Stderr.Path) {
			result = multierror.Append(result, fmt.Errorf("stdout and stderr must not share log file %q", c.Stdout.Path))
		}
	}

	return result.ErrorOrNil()
}

func (s *StreamConfig) validate(name string) error {
	var result *multierror.Error
	if s.MaxMB < 0 {
		result = multierror.Append(result, fmt.Errorf("%s: max_mb must not be negative", name))
	}
	if s.Backups < 0 {
		result = multierror.Append(result, fmt.Errorf("%s: backups must not be negative", name))
	}
	switch filepath.Base(s.Path) {
	case ".", "..", "/":
		result = multierror.Append(result, fmt.Errorf("%s: %q does not name a file", name, s.Path))
	}
	return result.ErrorOrNil()
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}
