package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"bsie/internal/config"
	"bsie/internal/logging"
	"bsie/internal/pipeline"
	"bsie/internal/stage"
	"bsie/internal/statecontrol"
	"bsie/internal/statement"
)

const stageFailureCode = "stage_failed"

// Manager coordinates statement processing using registered stage handlers.
type Manager struct {
	cfg        *config.Config
	store      *statement.Store
	controller *statecontrol.Controller
	logger     *slog.Logger

	pollInterval     time.Duration
	retryInterval    time.Duration
	watchdogInterval time.Duration

	handlers       []stage.Handler
	handlerByState map[pipeline.State]stage.Handler

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	lastErr error
}

// NewManager constructs a workflow manager. Intervals come from the
// workflow section of the config.
func NewManager(cfg *config.Config, store *statement.Store, controller *statecontrol.Controller, logger *slog.Logger) *Manager {
	return &Manager{
		cfg:              cfg,
		store:            store,
		controller:       controller,
		logger:           logging.NewComponentLogger(logger, "workflow"),
		pollInterval:     time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		retryInterval:    time.Duration(cfg.Workflow.ErrorRetryInterval) * time.Second,
		watchdogInterval: time.Duration(cfg.Workflow.WatchdogInterval) * time.Second,
		handlerByState:   make(map[pipeline.State]stage.Handler),
	}
}

// Register adds stage handlers. Each origin state can have at most one
// handler; registration order decides polling priority.
func (m *Manager) Register(handlers ...stage.Handler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return fmt.Errorf("cannot register handlers while running")
	}
	for _, handler := range handlers {
		origin := handler.OriginState()
		if existing, ok := m.handlerByState[origin]; ok {
			return fmt.Errorf("state %s already handled by %s", origin, existing.Name())
		}
		m.handlerByState[origin] = handler
		m.handlers = append(m.handlers, handler)
	}
	return nil
}

// Start launches the polling and watchdog loops. It returns immediately;
// use Stop to shut the loops down.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return fmt.Errorf("manager already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true

	m.wg.Add(2)
	go func() {
		defer m.wg.Done()
		m.pollLoop(runCtx)
	}()
	go func() {
		defer m.wg.Done()
		m.watchdogLoop(runCtx)
	}()

	m.logger.Info("workflow manager started",
		logging.Int("handlers", len(m.handlers)),
		logging.Duration("poll_interval", m.pollInterval))
	return nil
}

// Stop cancels the loops and waits for them to exit.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	cancel := m.cancel
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
	m.logger.Info("workflow manager stopped")
}

// Running reports whether the loops are active.
func (m *Manager) Running() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

// LastError returns the most recent loop-level error, if any.
func (m *Manager) LastError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastErr
}

// Health collects the health of every registered handler.
func (m *Manager) Health(ctx context.Context) []stage.Health {
	m.mu.RLock()
	handlers := make([]stage.Handler, len(m.handlers))
	copy(handlers, m.handlers)
	m.mu.RUnlock()

	healths := make([]stage.Health, 0, len(handlers))
	for _, handler := range handlers {
		healths = append(healths, handler.HealthCheck(ctx))
	}
	return healths
}

// Stats returns per-state statement counts.
func (m *Manager) Stats(ctx context.Context) (map[pipeline.State]int, error) {
	return m.store.Stats(ctx)
}

func (m *Manager) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.ProcessOnce(ctx); err != nil && ctx.Err() == nil {
				m.setLastErr(err)
				m.logger.Error("poll pass failed", logging.Error(err))
			}
		}
	}
}

// ProcessOnce runs a single polling pass: each handler gets at most one
// eligible statement from its origin state.
func (m *Manager) ProcessOnce(ctx context.Context) error {
	m.mu.RLock()
	handlers := make([]stage.Handler, len(m.handlers))
	copy(handlers, m.handlers)
	m.mu.RUnlock()

	for _, handler := range handlers {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		record, err := m.nextEligible(ctx, handler.OriginState())
		if err != nil {
			return fmt.Errorf("poll %s: %w", handler.OriginState(), err)
		}
		if record == nil {
			continue
		}
		m.executeStage(ctx, handler, record)
	}
	return nil
}

// nextEligible returns the oldest statement in the state that is not inside
// its failure backoff window.
func (m *Manager) nextEligible(ctx context.Context, origin pipeline.State) (*statement.Record, error) {
	records, err := m.store.List(ctx, origin)
	if err != nil {
		return nil, err
	}
	for _, record := range records {
		if record.RetryCount > 0 && time.Since(record.UpdatedAt) < m.retryInterval {
			continue
		}
		return record, nil
	}
	return nil, nil
}

func (m *Manager) executeStage(ctx context.Context, handler stage.Handler, record *statement.Record) {
	logger := m.logger.With(
		logging.String(logging.FieldStatementID, record.ID),
		logging.String("stage", handler.Name()))

	start := time.Now()
	if err := handler.Execute(ctx, record); err != nil {
		logger.Error("stage failed",
			logging.Error(err),
			logging.Int("retry_count", record.RetryCount+1))
		if recErr := m.store.RecordError(ctx, record.ID, stageFailureCode, err.Error()); recErr != nil {
			m.setLastErr(recErr)
			logger.Error("failed to record stage error", logging.Error(recErr))
		}
		return
	}
	logger.Info("stage complete", logging.Duration("elapsed", time.Since(start)))
}

func (m *Manager) setLastErr(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}
