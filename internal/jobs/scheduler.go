package jobs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// ErrUnknownJob is returned by RunNow for names that were never registered.
var ErrUnknownJob = errors.New("unknown job")

// JobStatus describes one registered job.
type JobStatus struct {
	Name    string     `json:"name"`
	LastRun *time.Time `json:"last_run,omitempty"`
	NextRun *time.Time `json:"next_run,omitempty"`
}

// Scheduler runs the catalog maintenance jobs. A job never overlaps itself;
// a run that is still going when the next tick fires causes that tick to be
// skipped.
type Scheduler struct {
	scheduler gocron.Scheduler
	logger    *zap.Logger
	ctx       context.Context
	cancel    context.CancelFunc

	mu   sync.RWMutex
	jobs map[string]gocron.Job
}

// NewScheduler creates a stopped scheduler with no jobs.
func NewScheduler(logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("jobs")

	s, err := gocron.NewScheduler(
		gocron.WithLogger(zapLogger{logger.Sugar()}),
		gocron.WithStopTimeout(30*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		scheduler: s,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
		jobs:      make(map[string]gocron.Job),
	}, nil
}

// Every registers task to run each interval. The task receives a context that
// is cancelled on Stop.
func (js *Scheduler) Every(name string, interval time.Duration, task func(context.Context) error) error {
	if interval <= 0 {
		return fmt.Errorf("job %s: interval must be positive", name)
	}

	js.mu.Lock()
	defer js.mu.Unlock()
	if _, exists := js.jobs[name]; exists {
		return fmt.Errorf("job %s already registered", name)
	}

	job, err := js.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(js.run, name, task),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("job %s: %w", name, err)
	}
	js.jobs[name] = job
	js.logger.Info("registered job", zap.String("job", name), zap.Duration("interval", interval))
	return nil
}

func (js *Scheduler) run(name string, task func(context.Context) error) {
	start := time.Now()
	if err := task(js.ctx); err != nil {
		js.logger.Error("job failed",
			zap.String("job", name),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return
	}
	js.logger.Debug("job finished", zap.String("job", name), zap.Duration("duration", time.Since(start)))
}

func (js *Scheduler) Start() {
	js.logger.Info("starting job scheduler", zap.Int("jobs", len(js.jobs)))
	js.scheduler.Start()
}

// Stop cancels running tasks and waits for them to return.
func (js *Scheduler) Stop() error {
	js.logger.Info("stopping job scheduler")
	js.cancel()
	return js.scheduler.Shutdown()
}

// RunNow triggers a registered job outside its schedule. The scheduler must
// be started.
func (js *Scheduler) RunNow(name string) error {
	js.mu.RLock()
	job, ok := js.jobs[name]
	js.mu.RUnlock()
	if !ok {
		return ErrUnknownJob
	}
	return job.RunNow()
}

// Status lists registered jobs ordered by name.
func (js *Scheduler) Status() []JobStatus {
	js.mu.RLock()
	defer js.mu.RUnlock()

	out := make([]JobStatus, 0, len(js.jobs))
	for name, job := range js.jobs {
		st := JobStatus{Name: name}
		if t, err := job.LastRun(); err == nil && !t.IsZero() {
			st.LastRun = &t
		}
		if t, err := job.NextRun(); err == nil && !t.IsZero() {
			st.NextRun = &t
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// zapLogger adapts zap to gocron's key/value logger.
type zapLogger struct {
	s *zap.SugaredLogger
}

func (l zapLogger) Debug(msg string, args ...any) { l.s.Debugw(msg, args...) }
func (l zapLogger) Info(msg string, args ...any)  { l.s.Infow(msg, args...) }
func (l zapLogger) Warn(msg string, args ...any)  { l.s.Warnw(msg, args...) }
func (l zapLogger) Error(msg string, args ...any) { l.s.Errorw(msg, args...) }
