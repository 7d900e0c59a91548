package logger

import (
	"io"
	"os"
)

// Config holds the configuration for the logger
type Config struct {
	Level      LogLevel
	Format     OutputFormat
	Outputs    []io.Writer
	Subsystem  string
	FileConfig *FileConfig
}

// DefaultConfig returns a console logger on stderr. Stdout is left alone
// because it usually belongs to whoever started us.
func DefaultConfig() *Config {
	return &Config{
		Level:   InfoLevel,
		Format:  DefaultFormat,
		Outputs: []io.Writer{os.Stderr},
	}
}

// NewNopLogger returns a logger that discards everything.
func NewNopLogger() Logger {
	l, _ := New(&Config{Level: ErrorLevel, Format: JSONFormat, Outputs: []io.Writer{io.Discard}})
	return l
}
