package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"bsie/internal/config"
	"bsie/internal/ingest"
	"bsie/internal/logging"
	"bsie/internal/stage"
	"bsie/internal/statecontrol"
	"bsie/internal/statement"
	"bsie/internal/storage"
	"bsie/internal/workflow"
)

// tempMaxAge bounds how long abandoned uploads may sit in the scratch area.
const tempMaxAge = 24 * time.Hour

// Daemon coordinates the background processing services and enforces
// single-instance execution.
type Daemon struct {
	cfg        *config.Config
	logger     *slog.Logger
	store      *statement.Store
	controller *statecontrol.Controller
	workflow   *workflow.Manager
	paths      *storage.Paths
	ingest     *ingest.Service

	lockPath string
	lock     *flock.Flock

	api *apiServer

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	DatabasePath string
	StorageDir   string
	LockFilePath string
	StateCounts  map[string]int
	StageHealth  []stage.Health
	LastError    string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *statement.Store, controller *statecontrol.Controller, wf *workflow.Manager, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || controller == nil || wf == nil {
		return nil, errors.New("daemon requires config, store, controller, and workflow manager")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	paths := storage.NewPaths(cfg)
	lockPath := filepath.Join(cfg.Paths.DataDir, "bsied.lock")
	d := &Daemon{
		cfg:        cfg,
		logger:     logger,
		store:      store,
		controller: controller,
		workflow:   wf,
		paths:      paths,
		ingest:     ingest.NewService(store, controller, paths, logger),
		lockPath:   lockPath,
		lock:       flock.New(lockPath),
	}
	srv, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.api = srv
	return d, nil
}

// Start acquires the instance lock and launches the workflow manager and
// API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another bsie daemon instance is already running")
	}

	if err := d.paths.Ensure(); err != nil {
		_ = d.lock.Unlock()
		return err
	}
	swept := d.paths.CleanTemp(tempMaxAge, d.logger)
	if len(swept.Removed) > 0 {
		d.logger.Info("swept stale uploads", logging.Int("removed", len(swept.Removed)))
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	if err := d.workflow.Start(runCtx); err != nil {
		cancel()
		d.cancel = nil
		_ = d.lock.Unlock()
		return fmt.Errorf("start workflow: %w", err)
	}
	if d.api != nil {
		if err := d.api.start(runCtx); err != nil {
			d.workflow.Stop()
			cancel()
			d.cancel = nil
			_ = d.lock.Unlock()
			return err
		}
	}

	d.running.Store(true)
	d.logger.Info("bsie daemon started",
		logging.String("lock", d.lockPath),
		logging.String("database", d.cfg.DatabasePath()))
	return nil
}

// Stop stops background processing and releases the instance lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.workflow.Stop()
	if d.api != nil {
		d.api.stop()
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("bsie daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Running reports whether the daemon has been started.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// Ingest exposes the daemon's ingest service.
func (d *Daemon) Ingest() *ingest.Service {
	return d.ingest
}

// Status aggregates runtime information for API consumers.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		DatabasePath: d.cfg.DatabasePath(),
		StorageDir:   d.paths.Root(),
		LockFilePath: d.lockPath,
		StageHealth:  d.workflow.Health(ctx),
	}
	if stats, err := d.workflow.Stats(ctx); err == nil {
		counts := make(map[string]int, len(stats))
		for state, count := range stats {
			counts[string(state)] = count
		}
		status.StateCounts = counts
	} else {
		status.LastError = err.Error()
	}
	if err := d.workflow.LastError(); err != nil && status.LastError == "" {
		status.LastError = err.Error()
	}
	return status
}
