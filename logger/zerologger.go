package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
	"gopkg.in/natefinch/lumberjack.v2"
)

func (f StringField) apply(ctx zerolog.Context) zerolog.Context   { return ctx.Str(f.Key, f.Value) }
func (f IntField) apply(ctx zerolog.Context) zerolog.Context      { return ctx.Int(f.Key, f.Value) }
func (f Int64Field) apply(ctx zerolog.Context) zerolog.Context    { return ctx.Int64(f.Key, f.Value) }
func (f Uint64Field) apply(ctx zerolog.Context) zerolog.Context   { return ctx.Uint64(f.Key, f.Value) }
func (f BoolField) apply(ctx zerolog.Context) zerolog.Context     { return ctx.Bool(f.Key, f.Value) }
func (f DurationField) apply(ctx zerolog.Context) zerolog.Context { return ctx.Dur(f.Key, f.Value) }
func (f ErrorField) apply(ctx zerolog.Context) zerolog.Context    { return ctx.Err(f.Value) }
func (f AnyField) apply(ctx zerolog.Context) zerolog.Context      { return ctx.Interface(f.Key, f.Value) }

func (f StringField) applyEvent(e *zerolog.Event) *zerolog.Event   { return e.Str(f.Key, f.Value) }
func (f IntField) applyEvent(e *zerolog.Event) *zerolog.Event      { return e.Int(f.Key, f.Value) }
func (f Int64Field) applyEvent(e *zerolog.Event) *zerolog.Event    { return e.Int64(f.Key, f.Value) }
func (f Uint64Field) applyEvent(e *zerolog.Event) *zerolog.Event   { return e.Uint64(f.Key, f.Value) }
func (f BoolField) applyEvent(e *zerolog.Event) *zerolog.Event     { return e.Bool(f.Key, f.Value) }
func (f DurationField) applyEvent(e *zerolog.Event) *zerolog.Event { return e.Dur(f.Key, f.Value) }
func (f ErrorField) applyEvent(e *zerolog.Event) *zerolog.Event    { return e.Err(f.Value) }
func (f AnyField) applyEvent(e *zerolog.Event) *zerolog.Event      { return e.Interface(f.Key, f.Value) }

// ZerologLogger implements Logger using zerolog.
// Loggers derived with WithSubsystem and WithFields share the parent's writers.
type ZerologLogger struct {
	logger     zerolog.Logger
	subsystem  string
	fileWriter *lumberjack.Logger
}

// New creates a ZerologLogger from config. A nil config yields DefaultConfig.
func New(config *Config) (Logger, error) {
	if config == nil {
		config = DefaultConfig()
	}

	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	var writers []io.Writer
	var fileWriter *lumberjack.Logger

	if config.FileConfig != nil && config.FileConfig.Filename != "" {
		if err := os.MkdirAll(filepath.Dir(config.FileConfig.Filename), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		fileWriter = &lumberjack.Logger{
			Filename:   config.FileConfig.Filename,
			MaxSize:    config.FileConfig.MaxSize,
			MaxBackups: config.FileConfig.MaxBackups,
			Compress:   config.FileConfig.Compress,
			LocalTime:  true,
		}
		writers = append(writers, fileWriter)
	}

	for _, output := range config.Outputs {
		if config.Format == JSONFormat {
			writers = append(writers, output)
			continue
		}
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: "15:04:05",
			NoColor:    !isTerminal(output),
			PartsOrder: []string{
				zerolog.TimestampFieldName,
				zerolog.LevelFieldName,
				"module",
				zerolog.MessageFieldName,
			},
		})
	}

	var writer io.Writer
	switch len(writers) {
	case 0:
		writer = io.Discard
	case 1:
		writer = writers[0]
	default:
		writer = zerolog.MultiLevelWriter(writers...)
	}

	zl := zerolog.New(writer).Level(config.Level.zerolog()).With().Timestamp().Logger()
	if config.Subsystem != "" {
		zl = zl.With().Str("module", config.Subsystem).Logger()
	}

	return &ZerologLogger{
		logger:     zl,
		subsystem:  config.Subsystem,
		fileWriter: fileWriter,
	}, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}

func (zl *ZerologLogger) log(event *zerolog.Event, msg string, fields []TypedField) {
	if event == nil {
		return
	}
	for _, field := range fields {
		event = field.applyEvent(event)
	}
	event.Msg(msg)
}

func (zl *ZerologLogger) Trace(msg string, fields ...TypedField) {
	zl.log(zl.logger.Trace(), msg, fields)
}

func (zl *ZerologLogger) Debug(msg string, fields ...TypedField) {
	zl.log(zl.logger.Debug(), msg, fields)
}

func (zl *ZerologLogger) Info(msg string, fields ...TypedField) {
	zl.log(zl.logger.Info(), msg, fields)
}

func (zl *ZerologLogger) Warn(msg string, fields ...TypedField) {
	zl.log(zl.logger.Warn(), msg, fields)
}

func (zl *ZerologLogger) Error(msg string, fields ...TypedField) {
	zl.log(zl.logger.Error(), msg, fields)
}

func (zl *ZerologLogger) Debugf(format string, args ...interface{}) {
	zl.logger.Debug().Msgf(format, args...)
}

func (zl *ZerologLogger) Infof(format string, args ...interface{}) {
	zl.logger.Info().Msgf(format, args...)
}

// WithSubsystem creates a child logger whose module is parent.name
func (zl *ZerologLogger) WithSubsystem(name string) Logger {
	subsystem := name
	if zl.subsystem != "" {
		subsystem = zl.subsystem + "." + name
	}
	return &ZerologLogger{
		logger:     zl.logger.With().Str("module", subsystem).Logger(),
		subsystem:  subsystem,
		fileWriter: zl.fileWriter,
	}
}

// WithFields creates a new logger with additional fields
func (zl *ZerologLogger) WithFields(fields ...TypedField) Logger {
	if len(fields) == 0 {
		return zl
	}
	ctx := zl.logger.With()
	for _, field := range fields {
		ctx = field.apply(ctx)
	}
	return &ZerologLogger{
		logger:     ctx.Logger(),
		subsystem:  zl.subsystem,
		fileWriter: zl.fileWriter,
	}
}

// IsLevelEnabled checks if a log level is enabled
func (zl *ZerologLogger) IsLevelEnabled(level LogLevel) bool {
	return zl.logger.GetLevel() <= level.zerolog()
}

// Close closes the lumberjack file writer. Derived loggers share it, so
// only the root logger should be closed.
func (zl *ZerologLogger) Close() error {
	if zl.fileWriter != nil {
		return zl.fileWriter.Close()
	}
	return nil
}
