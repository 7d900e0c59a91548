package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	metrics "github.com/hashicorp/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/bachue/outrotate/cmd/backups"
	"github.com/bachue/outrotate/config"
	"github.com/bachue/outrotate/helper"
	log "github.com/bachue/outrotate/logger"
	"github.com/bachue/outrotate/redirect"
)

const (
	subsystemOutrotate = "outrotate"

	metricsInterval  = 10 * time.Second
	metricsRetention = time.Minute
)

var (
	opts = &rootOptions{
		stdout: streamFlags{name: "stdout"},
		stderr: streamFlags{name: "stderr"},
	}

	outrotateCmd = &cobra.Command{
		Use:           "outrotate [options] [--] COMMAND [ARGS...]",
		Short:         "Rotate your stdout / stderr",
		SilenceUsage:  true,
		SilenceErrors: true,
		Long: `
Usage: outrotate [options] [--] COMMAND [ARGS...]

  Runs COMMAND and writes its stdout and stderr into log files that are
  rotated by size. Without --stderr-logfile both streams go to the stdout
  log file.

  Keep 5 backups of at most 100 MB each, compressed:

      $ outrotate --stdout-logfile /var/log/app.log \
          --stdout-logfile-max-mb 100 --stdout-logfile-backups 5 \
          --compress-stdout-logfile-backups -- app --serve

  Read every setting from a configuration file:

      $ outrotate --config /etc/outrotate/app.hcl

  Flags given on the command line override the configuration file. Flags
  after COMMAND are passed to it. Send SIGUSR1 to dump rotation metrics to
  stderr.
`,
		Args: cobra.ArbitraryArgs,
		RunE: run,
	}
)

// rootOptions holds the values of the root command's flags.
type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string
	logFile    string

	stdout streamFlags
	stderr streamFlags
}

func (o *rootOptions) register(fs *pflag.FlagSet) {
	fs.StringVarP(&o.configPath, "config", "c", "", "Path to configuration file (e.g., path/to/outrotate.hcl)")
	fs.StringVar(&o.logLevel, "log-level", "info", "Level of outrotate's own messages (trace, debug, info, warn, error)")
	fs.StringVar(&o.logFormat, "log-format", "default", "Format of outrotate's own messages (default or json)")
	fs.StringVar(&o.logFile, "log-file", "", "Also write outrotate's own messages to this file")
	o.stdout.register(fs)
	o.stderr.register(fs)
	// everything after the command belongs to it
	fs.SetInterspersed(false)
}

// buildConfig merges the configuration file, the flags set on the command
// line and the command in args.
func (o *rootOptions) buildConfig(fs *pflag.FlagSet, args []string) (*config.Config, error) {
	cfg := &config.Config{}
	if o.configPath != "" {
		loaded, err := config.LoadConfig(o.configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
		cfg = loaded
	}

	if fs.Changed("log-level") || cfg.LogLevel == "" {
		cfg.LogLevel = o.logLevel
	}
	if fs.Changed("log-format") || cfg.LogFormat == "" {
		cfg.LogFormat = o.logFormat
	}
	if fs.Changed("log-file") {
		cfg.LogFile = o.logFile
	}
	o.stdout.apply(fs, &cfg.Stdout)
	o.stderr.apply(fs, &cfg.Stderr)

	if len(args) > 0 {
		cfg.Command = args
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// streamFlags are the flags configuring one output stream.
type streamFlags struct {
	name     string
	path     string
	maxMB    int64
	backups  int
	compress bool
}

func (s *streamFlags) pathFlag() string     { return s.name + "-logfile" }
func (s *streamFlags) maxMBFlag() string    { return s.name + "-logfile-max-mb" }
func (s *streamFlags) backupsFlag() string  { return s.name + "-logfile-backups" }
func (s *streamFlags) compressFlag() string { return "compress-" + s.name + "-logfile-backups" }

func (s *streamFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&s.path, s.pathFlag(), "",
		fmt.Sprintf("Put process %s output in this file", s.name))
	fs.Int64Var(&s.maxMB, s.maxMBFlag(), 0,
		fmt.Sprintf("The maximum number of MB that may be consumed by --%s before it is rotated, 0 never rotates", s.pathFlag()))
	fs.IntVar(&s.backups, s.backupsFlag(), 0,
		fmt.Sprintf("The number of --%s backups to keep around, 0 keeps none", s.pathFlag()))
	fs.BoolVar(&s.compress, s.compressFlag(), false,
		fmt.Sprintf("Compress all --%s backups with gzip", s.pathFlag()))
}

// apply copies the flags that were set onto *stream, allocating it if needed.
func (s *streamFlags) apply(fs *pflag.FlagSet, stream **config.StreamConfig) {
	if *stream == nil {
		if !fs.Changed(s.pathFlag()) {
			return
		}
		*stream = &config.StreamConfig{}
	}
	sc := *stream

	if fs.Changed(s.pathFlag()) {
		sc.Path = s.path
	}
	if fs.Changed(s.maxMBFlag()) {
		sc.MaxMB = s.maxMB
	}
	if fs.Changed(s.backupsFlag()) {
		sc.Backups = s.backups
	}
	if fs.Changed(s.compressFlag()) {
		sc.Compress = s.compress
	}
}

func Execute() {
	if err := outrotateCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	opts.register(outrotateCmd.Flags())

	outrotateCmd.AddCommand(backups.BackupsCmd)
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := opts.buildConfig(cmd.Flags(), args)
	if err != nil {
		return err
	}

	logger, err := buildLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Close()

	sink := metrics.NewInmemSink(metricsInterval, metricsRetention)
	sig := metrics.DefaultInmemSignal(sink)
	defer sig.Stop()

	return redirect.RunCommand(cfg, redirect.Options{
		Logger:  logger,
		Metrics: sink,
	})
}

// buildLogger creates the logger for outrotate's own messages. They go to
// stderr, never into the files the child's output is written to.
func buildLogger(cfg *config.Config) (log.Logger, error) {
	logConfig := &log.Config{
		Level:     log.ParseLogLevel(cfg.LogLevel),
		Format:    log.ParseOutputFormat(cfg.LogFormat),
		Subsystem: subsystemOutrotate,
		Outputs:   []io.Writer{os.Stderr},
	}
	if cfg.LogFile != "" {
		logConfig.FileConfig = &log.FileConfig{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.LogRotateMegabytes,
			MaxBackups: cfg.LogRotateMaxFiles,
		}
	}

	logger, err := log.New(logConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger.WithFields(log.String("run_id", helper.NewRunID())), nil
}
