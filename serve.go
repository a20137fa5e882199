package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/valyala/fasthttp"
	"golang.org/x/sync/errgroup"

	"insurance-desk/internal/config"
	"insurance-desk/internal/engine"
	"insurance-desk/internal/handler"
	"insurance-desk/internal/logging"
	"insurance-desk/internal/metrics"
	"insurance-desk/internal/prefs"
	"insurance-desk/internal/refdata"
	"insurance-desk/internal/sink"
)

const (
	sweepInterval   = time.Minute
	shutdownTimeout = 10 * time.Second
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the wizard API server",
		Example: `  # Serve with in-memory storage on :8080
  insurance-desk serve

  # Serve with a config file
  insurance-desk serve --config desk.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	log := logging.New(cfg.Log, os.Stderr)

	store, records, closeSink, err := openSink(ctx, cfg.Sink)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeSink(); err != nil {
			log.Warn().Err(err).Msg("closing sink")
		}
	}()

	options, err := openRefData(cfg.RefData, logging.Component(log, "refdata"))
	if err != nil {
		return err
	}

	preferences, err := prefs.Open(cfg.Prefs.Path)
	if err != nil {
		return err
	}

	h := handler.New(handler.Deps{
		Sink:    store,
		Records: records,
		RefData: options,
		Prefs:   preferences,
		Metrics: metrics.New(),
		Log:     logging.Component(log, "handler"),
	})

	srv := &fasthttp.Server{
		Handler:      h.Handle,
		Name:         "insurance-desk",
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Server.SessionTTL > 0 {
		g.Go(func() error {
			h.Sessions().RunSweeper(gctx, cfg.Server.SessionTTL, sweepInterval)
			return nil
		})
	}
	g.Go(func() error {
		log.Info().
			Str("addr", cfg.Server.Addr).
			Str("sink", cfg.Sink.Kind).
			Msg("insurance desk starting")
		if err := srv.ListenAndServe(cfg.Server.Addr); err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.ShutdownWithContext(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func openSink(ctx context.Context, cfg config.SinkConfig) (engine.Sink, engine.RecordSource, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Kind {
	case "sqlite":
		s, err := openSQLite(ctx, cfg.Path)
		if err != nil {
			return nil, nil, noop, err
		}
		return s, s, s.Close, nil
	case "http":
		s, err := sink.NewHTTPSink(sink.HTTPConfig{BaseURL: cfg.URL, Timeout: cfg.Timeout})
		if err != nil {
			return nil, nil, noop, err
		}
		return s, s, noop, nil
	}
	m := sink.NewMemorySink()
	return m, m, noop, nil
}

func openSQLite(ctx context.Context, path string) (*sink.SQLiteSink, error) {
	s, err := sink.NewSQLiteSink(sink.SQLiteConfig{Path: path})
	if err != nil {
		return nil, err
	}
	if err := s.Init(ctx); err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func openRefData(cfg config.RefDataConfig, log zerolog.Logger) (engine.OptionsProvider, error) {
	static := refdata.Default()
	if cfg.Path != "" {
		s, err := refdata.LoadStaticFile(cfg.Path)
		if err != nil {
			return nil, err
		}
		static = s
	}
	if cfg.URL != "" {
		return refdata.NewHTTP(cfg.URL, static, log), nil
	}
	return static, nil
}
