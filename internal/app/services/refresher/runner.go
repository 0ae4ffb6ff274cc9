// Package refresher schedules the periodic refresh jobs that keep panel,
// news and heatmap data current.
package refresher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/lucasmieiro/finterm/internal/app/metrics"
	"github.com/lucasmieiro/finterm/internal/app/system"
	"github.com/lucasmieiro/finterm/pkg/logger"
)

// jobTimeout bounds one refresh run across its whole fallback chain.
const jobTimeout = 60 * time.Second

var _ system.Service = (*Runner)(nil)

// Job is one scheduled refresh unit.
type Job struct {
	Name     string
	Schedule string // cron spec, "@every 25m" style
	Run      func(ctx context.Context) error
}

// JobStatus is the last observed outcome of a job, surfaced on /api/status.
type JobStatus struct {
	Name      string     `json:"name"`
	Schedule  string     `json:"schedule"`
	LastRun   *time.Time `json:"last_run,omitempty"`
	LastState string     `json:"last_state"` // "ok", "error", "skipped_quiet", "pending"
	LastError string     `json:"last_error,omitempty"`
}

// Runner drives registered jobs on their cron schedules, honouring the
// quiet-hours window.
type Runner struct {
	log   *logger.Logger
	quiet *QuietWindow

	mu       sync.Mutex
	jobs     []Job
	statuses map[string]*JobStatus
	cron     *cron.Cron
	cancel   context.CancelFunc
	running  bool
	startup  sync.WaitGroup
}

// New creates a runner. A nil quiet window never suppresses runs.
func New(quiet *QuietWindow, log *logger.Logger) *Runner {
	if log == nil {
		log = logger.NewDefault("refresher")
	}
	return &Runner{
		log:      log,
		quiet:    quiet,
		statuses: make(map[string]*JobStatus),
	}
}

// Add registers a job. Must be called before Start.
func (r *Runner) Add(job Job) error {
	if job.Name == "" || job.Run == nil {
		return fmt.Errorf("job needs a name and a run function")
	}
	if job.Schedule == "" {
		return fmt.Errorf("job %s needs a schedule", job.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return fmt.Errorf("runner already started")
	}
	if _, exists := r.statuses[job.Name]; exists {
		return fmt.Errorf("job %s already registered", job.Name)
	}
	r.jobs = append(r.jobs, job)
	r.statuses[job.Name] = &JobStatus{
		Name:      job.Name,
		Schedule:  job.Schedule,
		LastState: "pending",
	}
	return nil
}

func (r *Runner) Name() string { return "refresher" }

// Start schedules every job and triggers one immediate run of each so the
// dashboard is populated right after boot.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.running = true
	jobs := append([]Job(nil), r.jobs...)
	c := cron.New()
	r.cron = c
	r.mu.Unlock()

	for _, job := range jobs {
		job := job
		if _, err := c.AddFunc(job.Schedule, func() { r.execute(runCtx, job) }); err != nil {
			cancel()
			r.mu.Lock()
			r.running = false
			r.cron = nil
			r.cancel = nil
			r.mu.Unlock()
			return fmt.Errorf("schedule job %s (%q): %w", job.Name, job.Schedule, err)
		}
	}

	c.Start()

	r.startup.Add(1)
	go func() {
		defer r.startup.Done()
		for _, job := range jobs {
			if runCtx.Err() != nil {
				return
			}
			r.execute(runCtx, job)
		}
	}()

	r.log.WithField("jobs", len(jobs)).
		WithField("quiet_hours", r.quiet.String()).
		Info("refresher started")
	return nil
}

// Stop halts the schedule and waits for in-flight runs to finish.
func (r *Runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	c := r.cron
	cancel := r.cancel
	r.running = false
	r.cron = nil
	r.cancel = nil
	r.mu.Unlock()

	cancel()
	stopCtx := c.Stop()

	// Wait for scheduled runs and the startup-refresh goroutine alike.
	done := make(chan struct{})
	go func() {
		<-stopCtx.Done()
		r.startup.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	r.log.Info("refresher stopped")
	return nil
}

// Statuses returns a copy of every job's last outcome.
func (r *Runner) Statuses() []JobStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]JobStatus, 0, len(r.jobs))
	for _, job := range r.jobs {
		out = append(out, *r.statuses[job.Name])
	}
	return out
}

// QuietActive reports whether the quiet window currently suppresses runs.
func (r *Runner) QuietActive() bool { return r.quiet.Active(time.Now()) }

// QuietWindowDescription describes the configured window.
func (r *Runner) QuietWindowDescription() string { return r.quiet.String() }

func (r *Runner) execute(ctx context.Context, job Job) {
	now := time.Now()
	if r.quiet.Active(now) {
		metrics.RecordQuietSkip(job.Name)
		r.setStatus(job.Name, now, "skipped_quiet", nil)
		r.log.WithField("job", job.Name).Debug("refresh skipped, quiet hours active")
		return
	}

	runCtx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	start := time.Now()
	err := job.Run(runCtx)
	duration := time.Since(start)

	result := "ok"
	if err != nil {
		result = "error"
		r.log.WithError(err).WithField("job", job.Name).Warn("refresh job failed")
	}
	metrics.RecordRefresh(job.Name, result, duration)
	r.setStatus(job.Name, start, result, err)
}

func (r *Runner) setStatus(name string, when time.Time, state string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	status, ok := r.statuses[name]
	if !ok {
		return
	}
	ts := when.UTC()
	status.LastRun = &ts
	status.LastState = state
	if err != nil {
		status.LastError = err.Error()
	} else {
		status.LastError = ""
	}
}
