/*
scheduler.go - Refresh scheduler for the CSV extract

PURPOSE:
  Keeps the ledger current. The extract is re-checked on a timer and whenever
  the file system reports a change to it; every check is a refresh run that is
  recorded, measured and logged.

DESIGN:
  - One worker goroutine owns every refresh, so runs never overlap
  - Triggers: startup, poll (ticker), watch (fsnotify), manual (POST /refresh)
  - Watch events are debounced: an editor's save is several events
  - The directory is watched, not the file, so atomic replace-by-rename and
    delete-then-recreate are both seen
  - A refresh whose version equals the previous one is recorded as unchanged;
    only a new version is archived

RUN STATUS:
  completed       New version loaded (archived when the store supports it)
  unchanged       Same version as the previous run
  source_missing  The CSV does not exist; readers degrade to empty output
  failed          The file exists but could not be loaded

USAGE:
  s := NewRefreshScheduler(source, runs, log, metricsManager)
  s.PollInterval = cfg.PollInterval
  if err := s.Start(ctx); err != nil { ... }
  defer s.Stop()

SEE ALSO:
  - handlers.go: Refresh endpoint (manual trigger)
  - timeoff/source.go: Versioned snapshot the scheduler refreshes
  - store/sqlite/sqlite.go: Run history and ledger archive
*/
package api

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/warp/leave-ledger/generic"
	"github.com/warp/leave-ledger/logger"
	"github.com/warp/leave-ledger/metrics"
	"github.com/warp/leave-ledger/timeoff"
)

// Refresh triggers.
const (
	TriggerStartup = "startup"
	TriggerPoll    = "poll"
	TriggerWatch   = "watch"
	TriggerManual  = "manual"
)

// DefaultWatchDebounce coalesces bursts of file events into one refresh.
const DefaultWatchDebounce = 250 * time.Millisecond

// ErrSchedulerStopped is returned by Refresh after Stop.
var ErrSchedulerStopped = errors.New("refresh scheduler stopped")

// LedgerArchiver is implemented by run stores that also keep the ledger
// tables each new version produced.
type LedgerArchiver interface {
	ArchiveLedger(ctx context.Context, runID generic.RunID, summaries []timeoff.Summary) error
}

// RefreshScheduler refreshes a Source on a timer and on file events.
type RefreshScheduler struct {
	Source        *timeoff.Source
	Runs          generic.RunStore
	Logger        logger.Logger
	Metrics       *metrics.Manager
	PollInterval  time.Duration
	Watch         bool
	WatchDebounce time.Duration
	Archive       bool

	requests chan refreshRequest
	stop     chan struct{}
	exited   chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex
	running  bool

	runMu       sync.Mutex
	lastVersion string
	now         func() time.Time
}

type refreshRequest struct {
	ctx     context.Context
	trigger string
	done    chan refreshResult
}

type refreshResult struct {
	run generic.RefreshRun
	err error
}

// NewRefreshScheduler creates a scheduler with polling every minute, file
// watching and archiving enabled.
func NewRefreshScheduler(source *timeoff.Source, runs generic.RunStore, log logger.Logger, m *metrics.Manager) *RefreshScheduler {
	if log == nil {
		log = logger.Nop()
	}
	return &RefreshScheduler{
		Source:        source,
		Runs:          runs,
		Logger:        log.Named("refresh"),
		Metrics:       m,
		PollInterval:  time.Minute,
		Watch:         true,
		WatchDebounce: DefaultWatchDebounce,
		Archive:       true,
		requests:      make(chan refreshRequest),
		stop:          make(chan struct{}),
		now:           time.Now,
	}
}

// Start runs a startup refresh on the worker and begins polling and
// watching. A watch that cannot be set up is logged and polling continues.
func (rs *RefreshScheduler) Start(ctx context.Context) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.running {
		return nil
	}
	select {
	case <-rs.stop:
		return ErrSchedulerStopped
	default:
	}

	var events <-chan fsnotify.Event
	var watchErrs <-chan error
	var watcher *fsnotify.Watcher
	if rs.Watch {
		w, err := rs.newWatcher()
		if err != nil {
			rs.Logger.Warn(ctx, "file watch disabled",
				logger.String("path", rs.Source.Path()), logger.Error(err))
		} else {
			watcher = w
			events, watchErrs = w.Events, w.Errors
		}
	}

	var tick <-chan time.Time
	var ticker *time.Ticker
	if rs.PollInterval > 0 {
		ticker = time.NewTicker(rs.PollInterval)
		tick = ticker.C
	}

	rs.running = true
	rs.exited = make(chan struct{})
	rs.wg.Add(1)
	go rs.run(ctx, tick, events, watchErrs, func() {
		if ticker != nil {
			ticker.Stop()
		}
		if watcher != nil {
			_ = watcher.Close()
		}
	})

	rs.Logger.Info(ctx, "scheduler started",
		logger.String("path", rs.Source.Path()),
		logger.Duration("poll_interval", rs.PollInterval),
		logger.Bool("watch", watcher != nil))
	return nil
}

// Stop ends the worker and waits for an in-flight refresh to finish.
func (rs *RefreshScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	select {
	case <-rs.stop:
		return
	default:
	}
	close(rs.stop)
	if rs.running {
		rs.wg.Wait()
		rs.running = false
		rs.Logger.Info(context.Background(), "scheduler stopped")
	}
}

func (rs *RefreshScheduler) newWatcher() (*fsnotify.Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(rs.Source.Path())); err != nil {
		_ = w.Close()
		return nil, err
	}
	return w, nil
}

func (rs *RefreshScheduler) run(ctx context.Context, tick <-chan time.Time, events <-chan fsnotify.Event, watchErrs <-chan error, cleanup func()) {
	defer rs.wg.Done()
	defer close(rs.exited)
	defer cleanup()

	rs.refreshLogged(ctx, TriggerStartup)

	target := filepath.Clean(rs.Source.Path())
	var debounce <-chan time.Time

	for {
		select {
		case <-rs.stop:
			return
		case <-ctx.Done():
			return
		case <-tick:
			rs.refreshLogged(ctx, TriggerPoll)
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			rs.Logger.Debug(ctx, "file event", logger.String("op", ev.Op.String()))
			debounce = time.After(rs.WatchDebounce)
		case err, ok := <-watchErrs:
			if !ok {
				watchErrs = nil
				continue
			}
			rs.Logger.Warn(ctx, "file watch error", logger.Error(err))
		case <-debounce:
			debounce = nil
			rs.refreshLogged(ctx, TriggerWatch)
		case req := <-rs.requests:
			run, err := rs.refreshOnce(req.ctx, req.trigger)
			req.done <- refreshResult{run: run, err: err}
		}
	}
}

func (rs *RefreshScheduler) refreshLogged(ctx context.Context, trigger string) {
	if _, err := rs.refreshOnce(ctx, trigger); err != nil {
		rs.Logger.Error(ctx, "refresh run not recorded",
			logger.String("trigger", trigger), logger.Error(err))
	}
}

// Refresh runs one refresh now. While the worker is alive the work is handed
// to it; otherwise, including after the Start context was cancelled, it runs
// on the caller's goroutine. Either way refreshes are serialized. Only Stop
// makes Refresh fail with ErrSchedulerStopped.
func (rs *RefreshScheduler) Refresh(ctx context.Context, trigger string) (generic.RefreshRun, error) {
	rs.mu.Lock()
	running, exited := rs.running, rs.exited
	rs.mu.Unlock()

	if running {
		req := refreshRequest{ctx: ctx, trigger: trigger, done: make(chan refreshResult, 1)}
		select {
		case rs.requests <- req:
			select {
			case res := <-req.done:
				return res.run, res.err
			case <-ctx.Done():
				return generic.RefreshRun{}, ctx.Err()
			}
		case <-exited:
			// worker ended with its context; fall through to an inline run
		case <-ctx.Done():
			return generic.RefreshRun{}, ctx.Err()
		}
	}

	select {
	case <-rs.stop:
		return generic.RefreshRun{}, ErrSchedulerStopped
	default:
	}
	return rs.refreshOnce(ctx, trigger)
}

// refreshOnce loads the source and records the outcome. The returned error
// is only about recording; load failures are carried in the run's status.
func (rs *RefreshScheduler) refreshOnce(ctx context.Context, trigger string) (generic.RefreshRun, error) {
	rs.runMu.Lock()
	defer rs.runMu.Unlock()

	run := generic.RefreshRun{
		ID:        generic.RunID(uuid.NewString()),
		Trigger:   trigger,
		StartedAt: rs.now(),
	}

	snap, hit, err := rs.Source.Load(ctx)
	switch {
	case errors.Is(err, generic.ErrSourceMissing):
		run.Status = generic.RunMissing
		run.Error = err.Error()
		rs.lastVersion = ""
		rs.Metrics.SetLedgerSize(0, 0, 0, 0)
	case err != nil:
		run.Status = generic.RunFailed
		run.Error = err.Error()
	default:
		rs.Metrics.ObserveCacheLookup(hit)
		run.Version = snap.Version
		run.RequestCount = len(snap.Requests)
		run.SummaryCount = len(snap.Summaries)
		run.DailyCount = len(snap.Daily)
		run.SkippedRows = snap.Skipped()
		run.Status = generic.RunCompleted
		if snap.Version == rs.lastVersion {
			run.Status = generic.RunUnchanged
		}
		rs.Metrics.SetLedgerSize(len(snap.Summaries), len(snap.Daily), snap.Skipped(), len(snap.Issues))
	}
	run.FinishedAt = rs.now()

	rs.Metrics.ObserveRefresh(string(run.Status), run.Duration())
	rs.logRun(ctx, run)

	if rs.Runs == nil {
		if run.Status == generic.RunCompleted {
			rs.lastVersion = run.Version
		}
		return run, nil
	}
	if err := rs.Runs.SaveRefreshRun(ctx, run); err != nil {
		return run, err
	}

	if run.Status == generic.RunCompleted {
		if archiver, ok := rs.Runs.(LedgerArchiver); ok && rs.Archive {
			if err := archiver.ArchiveLedger(ctx, run.ID, snap.Summaries); err != nil {
				// Retried on the next run: lastVersion stays put.
				return run, err
			}
		}
		rs.lastVersion = run.Version
	}
	return run, nil
}

func (rs *RefreshScheduler) logRun(ctx context.Context, run generic.RefreshRun) {
	fields := []logger.Field{
		logger.String("run_id", string(run.ID)),
		logger.String("trigger", run.Trigger),
		logger.String("status", string(run.Status)),
		logger.String("version", run.Version),
		logger.Int("requests", run.RequestCount),
		logger.Int("summaries", run.SummaryCount),
		logger.Int("daily", run.DailyCount),
		logger.Int("skipped", run.SkippedRows),
		logger.Duration("duration", run.Duration()),
	}
	switch run.Status {
	case generic.RunFailed:
		rs.Logger.Error(ctx, "refresh failed", append(fields, logger.String("error", run.Error))...)
	case generic.RunMissing:
		rs.Logger.Warn(ctx, "source missing", logger.String("path", rs.Source.Path()))
	case generic.RunUnchanged:
		rs.Logger.Debug(ctx, "refresh unchanged", fields...)
	default:
		rs.Logger.Info(ctx, "ledger refreshed", fields...)
	}
}
