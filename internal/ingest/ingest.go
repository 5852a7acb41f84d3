package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"kkfeed/internal/config"
	"kkfeed/internal/statedb"
)

// A lock older than this belongs to a run that died without releasing it.
const lockStaleAfter = time.Hour

// Options allow overriding config values from CLI flags.
type Options struct {
	LogFile  string
	LogLevel string
}

// Run executes a single run. Scheduling is delegated to launchd/systemd/cron.
func Run(ctx context.Context, opts Options, load config.ConfigLoad) (Report, error) {
	cfg, cfgErr := load()
	if v := strings.TrimSpace(opts.LogFile); v != "" {
		cfg.LogFile = v
	}
	if v := strings.TrimSpace(opts.LogLevel); v != "" {
		cfg.LogLevel = v
	}

	logger, closeLog := NewLogger(cfg)
	defer closeLog()
	if cfgErr != nil {
		logger.WithError(cfgErr).Warn("config unreadable, using defaults")
	}

	db, err := statedb.OpenInitialized(cfg.DBPath())
	if err != nil {
		return Report{}, fmt.Errorf("open state db %s: %w", cfg.DBPath(), err)
	}
	defer db.Close()

	holder := lockHolder()
	if err := statedb.AcquireLock(ctx, db, holder, time.Now(), lockStaleAfter); err != nil {
		logger.WithError(err).Error("run not started")
		return Report{}, err
	}
	defer func() {
		if err := statedb.ReleaseLock(context.WithoutCancel(ctx), db, holder); err != nil {
			logger.WithError(err).Warn("release run lock")
		}
	}()

	logger.WithFields(logrus.Fields{"url": cfg.Source.URL, "output": cfg.Output.Dir}).Info("run started")
	p := NewPipeline(cfg, NewFeedFetcher(cfg.Source, logger), logger, statedb.Ledger{DB: db})
	return p.Run(ctx)
}

func lockHolder() string {
	host, _ := os.Hostname()
	return fmt.Sprintf("%s:%d", host, os.Getpid())
}

// NewLogger logs to the configured file, falling back to stderr when the
// file cannot be opened. The returned func closes the file.
func NewLogger(cfg config.AppConfig) (*logrus.Logger, func() error) {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableColors: true})
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(lvl)
	}

	closeLog := func() error { return nil }
	logFile := cfg.LogFilePath()
	if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err == nil {
		if f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644); err == nil {
			logger.SetOutput(f)
			closeLog = f.Close
		}
	}
	return logger, closeLog
}
