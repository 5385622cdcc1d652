package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"scribe/internal/config"
	"scribe/internal/ledger"
	"scribe/internal/logging"
	"scribe/internal/notifications"
	"scribe/internal/pipeline"
	"scribe/internal/workitem"
)

// Daemon coordinates the background pipeline and enforces single-instance
// execution through a lock file.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *ledger.Store
	manager  *pipeline.Manager
	notifier notifications.Service
	logPath  string

	lockPath string
	lock     *flock.Flock

	api *apiServer

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool         `json:"running"`
	Ledger       ledger.Stats `json:"ledger"`
	LedgerDBPath string       `json:"ledger_db_path"`
	LockFilePath string       `json:"lock_file_path"`
	APIAddress   string       `json:"api_address,omitempty"`
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *ledger.Store, manager *pipeline.Manager, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || manager == nil {
		return nil, errors.New("daemon requires config, ledger store, and pipeline manager")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "scribed.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		manager:  manager,
		notifier: notifications.NewService(cfg),
		logPath:  filepath.Join(cfg.Paths.LogDir, "scribe.log"),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}

	api, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.api = api
	return d, nil
}

// Start acquires the daemon lock and launches the pipeline and API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another scribe daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	if err := d.manager.Start(runCtx); err != nil {
		_ = d.lock.Unlock()
		cancel()
		d.cancel = nil
		return fmt.Errorf("start pipeline: %w", err)
	}
	if err := d.api.start(runCtx); err != nil {
		d.manager.Stop()
		_ = d.lock.Unlock()
		cancel()
		d.cancel = nil
		return err
	}

	d.running.Store(true)
	d.logger.Info("scribe daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	d.manager.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("scribe daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Submit enqueues a work item. Resubmitting a known item returns its existing
// job unchanged.
func (d *Daemon) Submit(ctx context.Context, item workitem.WorkItem) (*ledger.JobRecord, error) {
	return d.store.Enqueue(ctx, item)
}

// Jobs returns ledger records filtered by an optional status.
func (d *Daemon) Jobs(ctx context.Context, status ledger.Status, limit int) ([]*ledger.JobRecord, error) {
	return d.store.List(ctx, status, limit)
}

// Job returns one ledger record by work item ID.
func (d *Daemon) Job(ctx context.Context, workItemID string) (*ledger.JobRecord, error) {
	return d.store.GetJob(ctx, workItemID)
}

// RetryJob moves a failed job back to pending, honoring the retry cooldown.
func (d *Daemon) RetryJob(ctx context.Context, workItemID string) (*ledger.JobRecord, error) {
	cooldown := time.Duration(d.cfg.Pipeline.RetryCooldown) * time.Second
	record, err := d.store.RetryFailed(ctx, workItemID, cooldown)
	if err != nil {
		return nil, err
	}
	if notifyErr := d.notifier.NotifyRetryRequested(ctx, record.WorkItem().Title()); notifyErr != nil {
		d.logger.Warn("retry notification not delivered", logging.Error(notifyErr))
	}
	return record, nil
}

// Stats returns aggregate ledger counts.
func (d *Daemon) Stats(ctx context.Context) (ledger.Stats, error) {
	return d.store.Stats(ctx)
}

// TestNotification triggers a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// APIAddress returns the bound API listener address, or empty when the API is
// disabled or not started.
func (d *Daemon) APIAddress() string {
	return d.api.address()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	stats, err := d.store.Stats(ctx)
	if err != nil {
		d.logger.Warn("ledger stats unavailable", logging.Error(err))
	}
	return Status{
		Running:      d.running.Load(),
		Ledger:       stats,
		LedgerDBPath: filepath.Join(d.cfg.Paths.DataDir, "ledger.db"),
		LockFilePath: d.lockPath,
		APIAddress:   d.APIAddress(),
	}
}
