package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/patarapolw/tinydb-constraint/internal/config"
	"github.com/patarapolw/tinydb-constraint/internal/constraint"
	"github.com/patarapolw/tinydb-constraint/internal/docstore/sqlitestore"
	"github.com/patarapolw/tinydb-constraint/internal/metrics"
	"github.com/patarapolw/tinydb-constraint/internal/schemaconf"
	"github.com/patarapolw/tinydb-constraint/internal/value"
)

// session is the state shared by the commands that open the database.
type session struct {
	cfg      *config.Config
	db       *sqlitestore.DB
	norm     *value.Normalizer
	logger   zerolog.Logger
	registry *prometheus.Registry
	metrics  *metrics.Collector
}

// openSession loads the configuration and opens the database it names.
func openSession(opts *RootOptions, errOut io.Writer) (*session, error) {
	load := config.LoadWithFallback
	if opts.ConfigExplicit && opts.Config != "" {
		load = config.Load
	}
	cfg, err := load(opts.Config)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	return newSession(cfg, opts.Verbose, errOut)
}

func newSession(cfg *config.Config, verbose bool, errOut io.Writer) (*session, error) {
	norm, err := cfg.Engine.Normalizer()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid engine config", err)
	}

	logger, err := newLogger(cfg.Logging, verbose, errOut)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid logging config", err)
	}

	db, err := sqlitestore.Open(cfg.Database.Path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	registry := prometheus.NewRegistry()
	logger.Debug().Str("database", cfg.Database.Path).Str("date_mode", norm.DateMode()).Msg("session opened")
	return &session{
		cfg:      cfg,
		db:       db,
		norm:     norm,
		logger:   logger,
		registry: registry,
		metrics:  metrics.NewWithRegistry(registry),
	}, nil
}

// newLogger builds a logger writing to w at the configured level.
// verbose forces debug level.
func newLogger(cfg config.LoggingConfig, verbose bool, w io.Writer) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), err
	}
	if verbose {
		level = zerolog.DebugLevel
	}

	if cfg.Format == "json" {
		return zerolog.New(w).Level(level).With().Timestamp().Logger(), nil
	}
	output := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	return zerolog.New(output).Level(level).With().Timestamp().Logger(), nil
}

// openTable returns the constrained table name over its SQLite store.
//
// The schema stored by the last command that changed the table is restored
// first. The table's schema file from the config is applied on top, so the
// fields it names take precedence.
func (s *session) openTable(ctx context.Context, name string) (*constraint.Table, *sqlitestore.Table, error) {
	if name == "" {
		return nil, nil, NewExitError(ExitCommandError, "table name is required")
	}

	st := s.db.Table(name)
	t := constraint.New(st,
		constraint.WithName(name),
		constraint.WithNormalizer(s.norm),
		constraint.WithSanitize(s.cfg.Engine.SanitizeEnabled()),
		constraint.WithLogger(s.logger),
		constraint.WithMetrics(s.metrics),
	)

	stored, ok, err := st.LoadSchema(ctx)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to load stored schema", err)
	}
	if ok {
		t.SetSchema(stored)
	}

	if path := s.cfg.Tables[name].Schema; path != "" {
		cfg, err := schemaconf.Load(path)
		if err != nil {
			return nil, nil, WrapExitError(ExitCommandError, fmt.Sprintf("failed to load schema for table %s", name), err)
		}
		t.UpdateSchema(cfg)
	}

	return t, st, nil
}

// saveSchema stores the live schema of t so the next command starts from the
// types learned so far.
func (s *session) saveSchema(ctx context.Context, t *constraint.Table, st *sqlitestore.Table) error {
	snap, err := t.GetSchema(ctx, false)
	if err != nil {
		return err
	}
	if err := st.SaveSchema(ctx, snap.Config()); err != nil {
		return WrapExitError(ExitCommandError, "failed to save schema", err)
	}
	return nil
}

// close writes the metrics textfile when configured and closes the
// database.
func (s *session) close() error {
	var firstErr error
	if path := s.cfg.Metrics.File; path != "" {
		if err := prometheus.WriteToTextfile(path, s.registry); err != nil {
			s.logger.Warn().Err(err).Str("path", path).Msg("failed to write metrics textfile")
			firstErr = err
		}
	}
	if err := s.db.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
