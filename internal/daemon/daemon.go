package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"hdrconv/internal/config"
	"hdrconv/internal/conversion"
	"hdrconv/internal/deps"
	"hdrconv/internal/fileutil"
	"hdrconv/internal/history"
	"hdrconv/internal/jobs"
	"hdrconv/internal/logging"
	"hdrconv/internal/notifications"
	"hdrconv/internal/preflight"
	"hdrconv/internal/webui"
)

// Daemon runs the HTTP front end and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	locator  *deps.Locator
	store    *jobs.Store
	server   *webui.Server
	notifier notifications.Service
	history  atomic.Pointer[history.Store]

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	URL          string
	LockFilePath string
	ActiveJobs   int
	Dependencies []deps.Status
}

// Option configures a Daemon.
type Option func(*Daemon)

// WithRunnerFactory replaces the converter used for each job.
func WithRunnerFactory(factory jobs.RunnerFactory) Option {
	return func(d *Daemon) {
		if factory != nil {
			d.store = d.newStore(factory)
		}
	}
}

// WithNotifier overrides the notification service built from config.
func WithNotifier(n notifications.Service) Option {
	return func(d *Daemon) {
		if n != nil {
			d.notifier = n
		}
	}
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil || logger == nil {
		return nil, errors.New("daemon requires config and logger")
	}

	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		locator:  deps.NewLocator(cfg.Tools.BundledDirs),
		notifier: notifications.NewService(cfg),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.store = d.newStore(d.newConverter)
	for _, opt := range opts {
		opt(d)
	}
	d.store.OnFinish(d.recordFinished)
	d.store.OnFinish(d.notifyFinished)

	server, err := webui.New(cfg, d.store, d.dependencies, logger, webui.WithHistory(d.History))
	if err != nil {
		return nil, err
	}
	d.server = server
	return d, nil
}

func (d *Daemon) newStore(factory jobs.RunnerFactory) *jobs.Store {
	return jobs.NewStore(factory,
		jobs.WithLogger(d.logger),
		jobs.WithMaxActive(d.cfg.Server.MaxActiveJobs),
	)
}

// newConverter resolves tools per job so installing ffmpeg does not require
// a restart. Resolution failures surface as tool_not_found outcomes.
func (d *Daemon) newConverter(progress conversion.ProgressFunc) jobs.Runner {
	tools, err := deps.ResolveTools(d.locator, d.cfg.Tools.Encoder, d.cfg.Tools.Prober)
	if err != nil {
		d.logger.Warn("encoder not resolved", logging.Error(err))
	}
	return conversion.New(tools,
		conversion.WithProgress(progress),
		conversion.WithLogger(d.logger),
		conversion.WithProbeTimeout(time.Duration(d.cfg.Tools.ProbeTimeoutSeconds)*time.Second),
		conversion.WithTerminateGrace(time.Duration(d.cfg.Tools.TerminateGraceSeconds)*time.Second),
	)
}

// Start acquires the instance lock, runs preflight checks and starts serving.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another hdrconv server is already running (lock %s)", d.lockPath)
	}

	if err := d.cfg.EnsureUploadDir(); err != nil {
		_ = d.lock.Unlock()
		return err
	}

	if store, err := history.Open(d.cfg); err != nil {
		logging.WarnWithContext(d.logger, "conversion history disabled", "history_unavailable",
			logging.Error(err),
		)
	} else {
		d.history.Store(store)
	}

	tools, _ := deps.ResolveTools(d.locator, d.cfg.Tools.Encoder, d.cfg.Tools.Prober)
	for _, result := range preflight.RunAll(ctx, d.cfg, tools) {
		if !result.Passed {
			logging.WarnWithContext(d.logger, "preflight check failed", "preflight_failed",
				logging.String("check", result.Name),
				logging.String("detail", result.Detail),
			)
		}
	}
	for _, status := range d.dependencies() {
		if !status.Available && !status.Optional {
			logging.WarnWithContext(d.logger, "required tool missing", "tool_missing",
				logging.String("tool", status.Name),
				logging.String("detail", status.Detail),
			)
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.server.Start(runCtx); err != nil {
		cancel()
		d.closeHistory()
		_ = d.lock.Unlock()
		return err
	}
	d.cancel = cancel
	d.running.Store(true)
	d.logger.Info("hdrconv server started",
		logging.String("url", d.server.URL()),
		logging.String("lock", d.lockPath),
	)
	return nil
}

// shutdownMargin is added to the terminate grace while Stop waits for
// cancelled jobs to clean up.
const shutdownMargin = 5 * time.Second

// Stop shuts the server down, cancels running jobs and waits for their
// cleanup and OnFinish hooks before closing history and releasing the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.server.Stop()

	d.store.CancelAll()
	grace := time.Duration(d.cfg.Tools.TerminateGraceSeconds) * time.Second
	waitCtx, cancel := context.WithTimeout(context.Background(), grace+shutdownMargin)
	if err := d.store.WaitAll(waitCtx); err != nil {
		logging.WarnWithContext(d.logger, "jobs still running at shutdown", "shutdown_timeout",
			logging.Int("active", d.store.Active()),
			logging.Error(err),
		)
	}
	cancel()
	d.closeHistory()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("hdrconv server stopped")
}

// URL returns the address the web UI is served on.
func (d *Daemon) URL() string {
	return d.server.URL()
}

// Store exposes the job store.
func (d *Daemon) Store() *jobs.Store {
	return d.store
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	return Status{
		Running:      d.running.Load(),
		URL:          d.server.URL(),
		LockFilePath: d.lockPath,
		ActiveJobs:   d.store.Active(),
		Dependencies: d.dependencies(),
	}
}

func (d *Daemon) dependencies() []deps.Status {
	return preflight.CheckSystemDeps(d.cfg, d.locator)
}

// History returns up to limit recorded conversions, newest first. It fails
// until Start has opened the database.
func (d *Daemon) History(ctx context.Context, limit int) ([]history.Entry, error) {
	store := d.history.Load()
	if store == nil {
		return nil, errors.New("conversion history is not open")
	}
	return store.List(ctx, limit)
}

func (d *Daemon) closeHistory() {
	if store := d.history.Swap(nil); store != nil {
		if err := store.Close(); err != nil {
			d.logger.Warn("failed to close history", logging.Error(err))
		}
	}
}

func (d *Daemon) recordFinished(job jobs.Job) {
	store := d.history.Load()
	if store == nil {
		return
	}
	ctx := logging.WithJobID(context.Background(), job.ID)
	if _, err := store.Record(ctx, historyEntry(job)); err != nil {
		logging.WithContext(ctx, d.logger).Warn("failed to record history", logging.Error(err))
	}
}

func historyEntry(job jobs.Job) history.Entry {
	entry := history.Entry{
		Origin:        history.OriginWeb,
		JobID:         job.ID,
		InputPath:     job.InputPath,
		ErrorKind:     job.ErrorKind,
		Detail:        job.Error,
		ExitCode:      job.ExitCode,
		SourceSeconds: job.SourceSeconds,
		Elapsed:       job.Elapsed,
		FinishedAt:    job.UpdatedAt,
	}
	switch job.Status {
	case jobs.StatusDone:
		entry.Status = conversion.StatusCompleted
		entry.OutputPath = job.OutputPath
		entry.OutputBytes = fileutil.FileSize(job.OutputPath)
	case jobs.StatusCancelled:
		entry.Status = conversion.StatusCancelled
	default:
		entry.Status = conversion.StatusFailed
	}
	return entry
}

func (d *Daemon) notifyFinished(job jobs.Job) {
	ctx := logging.WithJobID(context.Background(), job.ID)
	var err error
	switch job.Status {
	case jobs.StatusDone:
		err = d.notifier.NotifyConversionCompleted(ctx, job.OutputPath, fileutil.FileSize(job.OutputPath), job.UpdatedAt.Sub(job.CreatedAt))
	case jobs.StatusFailed:
		err = d.notifier.NotifyConversionFailed(ctx, job.InputPath, string(job.ErrorKind), job.Error)
	default:
		return
	}
	if err != nil {
		logging.WithContext(ctx, d.logger).Warn("notification failed", logging.Error(err))
	}
}
