package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/rpggio/crmdesk/internal/app"
	"github.com/rpggio/crmdesk/internal/config"
	"github.com/spf13/cobra"
)

// EnvLogPath names an optional size-capped log file.
const EnvLogPath = "CRMDESK_LOG_PATH"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	JSON       bool
}

// NewRootCommand creates the root command for the crmdesk CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "crmdesk",
		Short:         "crmdesk - contacts, deals and follow-ups",
		Long:          "A small CRM backed by an in-memory store, a local SQLite file or a remote record service.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to a YAML config file (default $"+config.EnvConfigPath+")")
	cmd.PersistentFlags().BoolVar(&opts.JSON, "json", false, "print JSON instead of tables")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewContactsCommand(opts))
	cmd.AddCommand(NewDealsCommand(opts))
	cmd.AddCommand(NewTasksCommand(opts))
	cmd.AddCommand(NewDashboardCommand(opts))

	return cmd
}

func (o *RootOptions) loadConfig() (config.Config, error) {
	if o.ConfigPath != "" {
		return config.LoadFile(o.ConfigPath)
	}
	return config.Load()
}

// session bundles what a command needs to run against the store.
type session struct {
	cfg     config.Config
	app     *app.App
	logger  *slog.Logger
	closers []io.Closer
}

func (s *session) Close() {
	if s.app != nil {
		_ = s.app.Close()
	}
	for _, c := range s.closers {
		_ = c.Close()
	}
}

// open loads configuration, builds the logger and the app. Logs go to
// logDefault unless CRMDESK_LOG_PATH names a file.
func (o *RootOptions) open(logDefault io.Writer) (*session, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	s := &session{cfg: cfg}
	logWriter := logDefault
	if logPath := os.Getenv(EnvLogPath); logPath != "" {
		fileWriter, file, err := newLogFileWriter(logPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "log file error: %v\n", err)
		} else {
			s.closers = append(s.closers, file)
			logWriter = fileWriter
		}
	}
	s.logger = slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))

	s.app, err = app.New(cfg, s.logger)
	if err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
