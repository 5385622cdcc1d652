package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"scribe/internal/config"
	"scribe/internal/ledger"
	"scribe/internal/logging"
)

// Manager runs the worker pool that drains the ledger. Workers poll for
// pending jobs and hand them to the orchestrator; a background loop reclaims
// jobs whose workers stopped heartbeating.
type Manager struct {
	orchestrator *Orchestrator
	store        *ledger.Store
	logger       *slog.Logger

	workers            int
	pollInterval       time.Duration
	errorRetryInterval time.Duration
	heartbeatTimeout   time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewManager builds a manager over an orchestrator and its ledger.
func NewManager(cfg *config.Config, store *ledger.Store, orchestrator *Orchestrator, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	workers := cfg.Pipeline.Workers
	if workers <= 0 {
		workers = 1
	}
	return &Manager{
		orchestrator:       orchestrator,
		store:              store,
		logger:             logger,
		workers:            workers,
		pollInterval:       time.Duration(cfg.Pipeline.PollInterval) * time.Second,
		errorRetryInterval: time.Duration(cfg.Pipeline.ErrorRetryInterval) * time.Second,
		heartbeatTimeout:   time.Duration(cfg.Pipeline.HeartbeatTimeout) * time.Second,
	}
}

// Start launches the workers. Calling Start on a running manager is an error.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return errors.New("pipeline manager already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true

	for i := 0; i < m.workers; i++ {
		m.wg.Add(1)
		go m.runWorker(runCtx, i)
	}
	if m.heartbeatTimeout > 0 {
		m.wg.Add(1)
		go m.runReclaimLoop(runCtx)
	}

	m.logger.Info("pipeline started", logging.Int("workers", m.workers))
	return nil
}

// Stop cancels the workers and waits for in-flight jobs to settle or release.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
	m.logger.Info("pipeline stopped")
}

// Running reports whether the worker pool is active.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Manager) runWorker(ctx context.Context, id int) {
	defer m.wg.Done()
	logger := m.logger.With(logging.Int("worker", id))

	poll := m.pollInterval
	if poll <= 0 {
		poll = time.Second
	}
	retry := m.errorRetryInterval
	if retry <= 0 {
		retry = poll
	}

	for {
		if ctx.Err() != nil {
			return
		}

		record, err := m.store.NextPending(ctx)
		if err != nil {
			logger.Error("poll for pending job failed", logging.Error(err))
			if !sleepCtx(ctx, retry) {
				return
			}
			continue
		}
		if record == nil {
			if !sleepCtx(ctx, poll) {
				return
			}
			continue
		}

		if _, err := m.orchestrator.Process(ctx, record.WorkItem()); err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("job processing failed",
				logging.String("work_item", record.WorkItemID),
				logging.Error(err),
			)
			if !sleepCtx(ctx, retry) {
				return
			}
		}
	}
}

// runReclaimLoop returns stranded in-progress jobs to pending when their
// heartbeats go stale, so a crashed worker cannot park an item forever.
func (m *Manager) runReclaimLoop(ctx context.Context) {
	defer m.wg.Done()

	interval := m.heartbeatTimeout / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-m.heartbeatTimeout)
			reclaimed, err := m.store.ReclaimStale(ctx, cutoff)
			if err != nil {
				if ctx.Err() == nil {
					m.logger.Error("stale job reclaim failed", logging.Error(err))
				}
				continue
			}
			if reclaimed > 0 {
				m.logger.Warn("reclaimed stale jobs", logging.Int64("count", reclaimed))
			}
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
