package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/fleetdata/internal/config"
	"github.com/JonMunkholm/fleetdata/internal/core"
	"github.com/JonMunkholm/fleetdata/internal/history"
	"github.com/JonMunkholm/fleetdata/internal/logging"
	"github.com/JonMunkholm/fleetdata/internal/report"
	"github.com/JonMunkholm/fleetdata/internal/schema"
	"github.com/JonMunkholm/fleetdata/internal/session"
	"github.com/JonMunkholm/fleetdata/internal/web"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env if present, then validate configuration
	cfg, err := config.Load(".env")
	if err != nil {
		return err
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	schemas := schema.Resolve(cfg.Schema.OperationalColumns, cfg.Schema.BaseColumns)
	if err := schemas.Validate(); err != nil {
		return err
	}

	var (
		generator core.Generator
		reports   web.ReportStore
		recorder  history.Recorder = history.NewMemory()
	)

	if cfg.Database.HasDatabase() {
		pool, err := connect(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer pool.Close()

		pgHistory := history.NewPGStore(pool)
		if err := pgHistory.EnsureSchema(ctx); err != nil {
			return err
		}
		recorder = pgHistory

		if cfg.Report.ServiceURL == "" {
			archive := report.NewArchive(pool)
			if err := archive.EnsureSchema(ctx); err != nil {
				return err
			}
			generator = archive
			reports = archive
			slog.Info("reports archived in database")
		}
	} else {
		slog.Warn("no database configured, history is kept in memory")
	}

	if cfg.Report.ServiceURL != "" {
		generator = report.NewHTTPGenerator(cfg.Report.ServiceURL, nil, cfg.Report.Timeout)
		slog.Info("reports generated by service", "url", cfg.Report.ServiceURL)
	}
	if generator == nil {
		slog.Warn("no report backend configured, generation requests will fail")
	}

	parser := core.DefaultParser
	if !cfg.Upload.NormalizeCells {
		parser = core.Parser{Normalizer: core.TextCell}
		slog.Info("cell normalization disabled, uploads keep their text values")
	}

	sessions := session.NewStore(schemas, session.Options{
		MaxAge:   cfg.Session.MaxAge,
		MaxCount: cfg.Session.MaxCount,
		Parser:   parser,
	})

	server := web.NewServer(cfg, web.Deps{
		Sessions:  sessions,
		Generator: generator,
		History:   recorder,
		Reports:   reports,
		Uploads:   core.NewUploadLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime),
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return session.NewJanitor(sessions, cfg.Session.SweepInterval).Run(gctx)
	})

	g.Go(func() error {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Warn("shutdown incomplete", "error", err)
		}
		return nil
	})

	return g.Wait()
}

// connect opens and verifies the Postgres pool.
func connect(ctx context.Context, dbCfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(dbCfg.URL)
	if err != nil {
		return nil, err
	}
	poolConfig.MaxConns = int32(dbCfg.MaxConns)
	poolConfig.MinConns = int32(dbCfg.MinConns)
	poolConfig.MaxConnLifetime = dbCfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = dbCfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	if u, err := url.Parse(dbCfg.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}
	return pool, nil
}
