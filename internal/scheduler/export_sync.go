package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mrlokans/highlights/internal/services"
)

// ErrSyncInProgress is returned by RunNow while another pass is running.
var ErrSyncInProgress = errors.New("export sync already in progress")

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Runner performs one export pass.
type Runner interface {
	Import(ctx context.Context) (services.ImportResult, error)
}

type Options struct {
	// Schedule is a 5-field cron expression or a descriptor such as "@hourly".
	// Empty disables the schedule.
	Schedule string
	// WatchDir, when set, triggers a pass after files in it change.
	WatchDir string
	// Debounce is how long changes must settle before a watched pass starts.
	Debounce time.Duration
}

// Status describes the most recent pass.
type Status struct {
	RunID    string
	Trigger  string
	Started  time.Time
	Duration time.Duration
	Result   services.ImportResult
	Err      error
}

// ExportSync re-runs the export pipeline on a cron schedule and on changes
// to the Apple Books database directory. Passes never overlap.
type ExportSync struct {
	runner  Runner
	options Options
	logger  *zap.Logger

	cron       *cron.Cron
	entryID    cron.EntryID
	watcher    *fsnotify.Watcher
	mu         sync.RWMutex
	isRunning  bool
	generation int
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup

	passMu     sync.Mutex
	statusMu   sync.RWMutex
	lastStatus *Status
}

// ValidateCronSchedule reports whether schedule can be parsed.
func ValidateCronSchedule(schedule string) error {
	_, err := cronParser.Parse(schedule)
	return err
}

// NewExportSync creates a new scheduler instance
func NewExportSync(runner Runner, options Options, logger *zap.Logger) *ExportSync {
	if logger == nil {
		logger = zap.NewNop()
	}
	if options.Debounce <= 0 {
		options.Debounce = 2 * time.Second
	}

	cronLog := cronLogger{logger.Sugar()}
	return &ExportSync{
		runner:  runner,
		options: options,
		logger:  logger,
		cron: cron.New(
			cron.WithParser(cronParser),
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
	}
}

// Start begins the schedule and the watcher. Both stop when ctx is done.
func (s *ExportSync) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	if s.options.Schedule != "" {
		if err := ValidateCronSchedule(s.options.Schedule); err != nil {
			s.cancelFunc()
			return fmt.Errorf("invalid cron schedule '%s': %w", s.options.Schedule, err)
		}

		entryID, err := s.cron.AddFunc(s.options.Schedule, func() {
			s.runSync(cancelCtx, "schedule")
		})
		if err != nil {
			s.cancelFunc()
			return fmt.Errorf("failed to schedule sync job: %w", err)
		}
		s.entryID = entryID
	}

	if s.options.WatchDir != "" {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			s.cron.Remove(s.entryID)
			s.cancelFunc()
			return fmt.Errorf("failed to create watcher: %w", err)
		}
		if err := watcher.Add(s.options.WatchDir); err != nil {
			_ = watcher.Close()
			s.cron.Remove(s.entryID)
			s.cancelFunc()
			return fmt.Errorf("failed to watch %s: %w", s.options.WatchDir, err)
		}
		s.watcher = watcher

		s.wg.Add(1)
		go s.watch(cancelCtx, watcher)
	}

	s.cron.Start()
	s.isRunning = true
	s.generation++
	generation := s.generation

	fields := []zap.Field{zap.String("schedule", s.options.Schedule), zap.String("watch", s.options.WatchDir)}
	if next := s.nextRunLocked(); next != nil {
		fields = append(fields, zap.Time("next_run", *next))
	}
	s.logger.Info("export sync scheduler: started", fields...)

	// Monitor for context cancellation
	go func() {
		<-cancelCtx.Done()
		s.stop(generation)
	}()

	return nil
}

// Stop gracefully stops the scheduler, waiting for a running pass to finish.
func (s *ExportSync) Stop() {
	s.stop(0)
}

// stop shuts down the current run. A non-zero generation only stops the run
// started with it, so a stale monitor cannot stop a restarted scheduler.
func (s *ExportSync) stop(generation int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning || (generation != 0 && generation != s.generation) {
		return
	}

	s.cancelFunc()

	// Stop accepting new jobs and wait for running jobs to complete
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.cron.Remove(s.entryID)

	if s.watcher != nil {
		_ = s.watcher.Close()
		s.watcher = nil
	}
	s.wg.Wait()

	s.isRunning = false
	s.cancelFunc = nil

	s.logger.Info("export sync scheduler: stopped")
}

// Run starts the scheduler, performs one pass immediately and blocks until
// ctx is done.
func (s *ExportSync) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	s.runSync(ctx, "startup")

	<-ctx.Done()
	s.Stop()
	return nil
}

// RunNow performs a pass synchronously.
func (s *ExportSync) RunNow(ctx context.Context) (services.ImportResult, error) {
	status, ok := s.pass(ctx, "manual")
	if !ok {
		return services.ImportResult{}, ErrSyncInProgress
	}
	return status.Result, status.Err
}

// IsRunning returns whether the scheduler is active
func (s *ExportSync) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRunTime returns when the next scheduled pass will occur
func (s *ExportSync) NextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}
	return s.nextRunLocked()
}

func (s *ExportSync) nextRunLocked() *time.Time {
	if s.entryID == 0 {
		return nil
	}
	entry := s.cron.Entry(s.entryID)
	if !entry.Valid() || entry.Next.IsZero() {
		return nil
	}
	t := entry.Next
	return &t
}

// LastStatus returns the outcome of the most recent pass, or nil.
func (s *ExportSync) LastStatus() *Status {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()

	if s.lastStatus == nil {
		return nil
	}
	status := *s.lastStatus
	return &status
}

func (s *ExportSync) watch(ctx context.Context, watcher *fsnotify.Watcher) {
	defer s.wg.Done()

	timer := time.NewTimer(s.options.Debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op == fsnotify.Chmod {
				continue
			}
			s.logger.Debug("export sync: change detected", zap.String("path", event.Name), zap.String("op", event.Op.String()))
			timer.Reset(s.options.Debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("export sync: watcher error", zap.Error(err))
		case <-timer.C:
			s.runSync(ctx, "watch")
		}
	}
}

// runSync performs a pass and logs its outcome. Failures never stop the scheduler.
func (s *ExportSync) runSync(ctx context.Context, trigger string) {
	if _, ok := s.pass(ctx, trigger); !ok {
		s.logger.Info("export sync: skipped, previous pass still running", zap.String("trigger", trigger))
	}
}

func (s *ExportSync) pass(ctx context.Context, trigger string) (Status, bool) {
	if !s.passMu.TryLock() {
		return Status{}, false
	}
	defer s.passMu.Unlock()

	status := Status{
		RunID:   uuid.NewString(),
		Trigger: trigger,
		Started: time.Now(),
	}
	log := s.logger.With(zap.String("run_id", status.RunID), zap.String("trigger", trigger))
	log.Info("export sync: starting")

	status.Result, status.Err = s.runner.Import(ctx)
	status.Duration = time.Since(status.Started)

	if status.Err != nil {
		log.Error("export sync: failed", zap.Error(status.Err), zap.Duration("duration", status.Duration))
	} else {
		log.Info("export sync: complete",
			zap.Int("books_written", status.Result.Export.BooksProcessed),
			zap.Int("books_skipped", status.Result.Export.BooksSkipped),
			zap.Int("highlights", status.Result.Export.HighlightsProcessed),
			zap.Duration("duration", status.Duration.Round(time.Millisecond)))
	}

	s.statusMu.Lock()
	s.lastStatus = &status
	s.statusMu.Unlock()

	return status, true
}

// cronLogger routes cron's own messages through zap.
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}
