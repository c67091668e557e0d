package workflow

import (
	"context"
	"fmt"
	"time"

	"bsie/internal/logging"
	"bsie/internal/pipeline"
)

func (m *Manager) watchdogLoop(ctx context.Context) {
	ticker := time.NewTicker(m.watchdogInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.SweepTimeouts(ctx); err != nil && ctx.Err() == nil {
				m.setLastErr(err)
				m.logger.Error("timeout sweep failed", logging.Error(err))
			}
		}
	}
}

// SweepTimeouts runs a single watchdog pass: every statement that has sat in
// a timed state past its advisory deadline is parked in human review. A
// statement already awaiting review is left alone; its deadline only bounds
// how long review may take and exceeding it changes nothing about what the
// operator must do.
func (m *Manager) SweepTimeouts(ctx context.Context) error {
	catalog := m.controller.Catalog()
	now := time.Now().UTC()

	for _, state := range catalog.TimedStates() {
		if state == pipeline.StateHumanReviewRequired {
			continue
		}
		timeout, ok := catalog.Timeout(state)
		if !ok {
			continue
		}
		expired, err := m.store.ListExpired(ctx, state, now.Add(-timeout))
		if err != nil {
			return fmt.Errorf("list expired %s: %w", state, err)
		}
		for _, record := range expired {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			exceeded := now.Sub(record.UpdatedAt) - timeout
			result, err := m.controller.MarkTimedOut(ctx, record.ID, exceeded)
			if err != nil {
				return fmt.Errorf("mark %s timed out: %w", record.ID, err)
			}
			if result.Failed() {
				// A worker finished the state between the listing and the
				// sweep; nothing to do.
				m.logger.Debug("timeout sweep lost race",
					logging.String(logging.FieldStatementID, record.ID),
					logging.String("kind", string(result.ErrorKind)))
			}
		}
	}
	return nil
}
