package cli

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/offpos/internal/app"
	"github.com/roach88/offpos/internal/config"
	"github.com/roach88/offpos/internal/logger"
	"github.com/roach88/offpos/internal/model"
	"github.com/roach88/offpos/internal/notify"
)

// session is one command's view of the application: config, logger and an
// opened App, plus the formatter bound to the command's writers.
type session struct {
	ctx    context.Context
	app    *app.App
	out    *OutputFormatter
	log    *zap.Logger
	notify func(notify.Notification)
}

func newFormatter(cmd *cobra.Command, opts *RootOptions) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// openSession loads config, builds the logger and opens the App.
// In text mode notifications are echoed to the error writer.
func openSession(cmd *cobra.Command, opts *RootOptions) (*session, error) {
	out := newFormatter(cmd, opts)

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, out.Fail("failed to load config", err)
	}
	if opts.Database != "" {
		cfg.Database.Path = opts.Database
	}

	log, err := logger.New(cfg.Logger, opts.Verbose)
	if err != nil {
		return nil, out.Fail("failed to build logger", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	out.VerboseLog("opening database %s", cfg.Database.Path)
	a, err := app.Open(ctx, cfg, log, opts.AppOptions...)
	if err != nil {
		_ = log.Sync()
		return nil, out.Fail("failed to open database", err)
	}

	s := &session{ctx: ctx, app: a, out: out, log: log}
	if opts.Format != "json" {
		s.notify = func(n notify.Notification) {
			fmt.Fprintf(out.GetErrWriter(), "[%s] %s: %s\n", n.Severity, n.Title, n.Message)
		}
		if err := a.Bus.Subscribe(s.notify); err != nil {
			log.Warn("notification echo disabled", zap.Error(err))
			s.notify = nil
		}
	}
	return s, nil
}

func (s *session) close() {
	if s.notify != nil {
		_ = s.app.Bus.Unsubscribe(s.notify)
	}
	if err := s.app.Close(); err != nil {
		s.log.Error("error closing database", zap.Error(err))
	}
	_ = s.log.Sync()
}

// money renders an amount with the configured currency symbol.
func (s *session) money(d decimal.Decimal) string {
	return s.app.Config.POS.Currency + model.FormatAmount(d)
}

// withSession opens a session, runs fn and closes it.
func withSession(cmd *cobra.Command, opts *RootOptions, fn func(s *session) error) error {
	s, err := openSession(cmd, opts)
	if err != nil {
		return err
	}
	defer s.close()
	return fn(s)
}
