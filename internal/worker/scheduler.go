package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"mediagrab/internal/artifacts"
	"mediagrab/internal/models"
	"mediagrab/internal/platform"
	"mediagrab/internal/tasks"
)

// ErrStopped is returned by Submit after Stop.
var ErrStopped = errors.New("scheduler stopped")

var errUnchanged = errors.New("unchanged")

// Recorder receives a snapshot of every task that reaches a terminal state.
type Recorder interface {
	Record(ctx context.Context, task models.Task) error
}

type registration struct {
	adapter platform.Adapter
	timeout time.Duration
}

// Stats is a point-in-time view of scheduler activity.
type Stats struct {
	Platforms     []string                  `json:"platforms"`
	MaxConcurrent int                       `json:"max_concurrent"`
	Active        int64                     `json:"active"`
	Submitted     int64                     `json:"submitted"`
	Completed     int64                     `json:"completed"`
	Failed        int64                     `json:"failed"`
	TimedOut      int64                     `json:"timed_out"`
	Tasks         map[models.TaskStatus]int `json:"tasks"`
}

// Scheduler runs one goroutine per submitted task, at most maxConcurrent of
// them inside an adapter at a time. Submit never blocks on that bound.
type Scheduler struct {
	registry *tasks.Registry
	locator  *artifacts.Locator
	recorder Recorder
	adapters map[string]registration
	slots    chan struct{}

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.RWMutex
	stopped bool

	active    atomic.Int64
	submitted atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	timedOut  atomic.Int64
}

// NewScheduler creates a scheduler over registry and locator.
func NewScheduler(registry *tasks.Registry, locator *artifacts.Locator, maxConcurrent int) *Scheduler {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		registry: registry,
		locator:  locator,
		adapters: make(map[string]registration),
		slots:    make(chan struct{}, maxConcurrent),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Register adds an adapter. timeout bounds each FetchArtifact call.
func (s *Scheduler) Register(adapter platform.Adapter, timeout time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.adapters[adapter.Name()] = registration{adapter: adapter, timeout: timeout}
}

// SetRecorder installs a history recorder. Must be called before Submit.
func (s *Scheduler) SetRecorder(r Recorder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recorder = r
}

// Adapter returns the registered adapter for name.
func (s *Scheduler) Adapter(name string) (platform.Adapter, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	reg, ok := s.adapters[name]
	return reg.adapter, ok
}

// Platforms lists registered platform names.
func (s *Scheduler) Platforms() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.adapters))
	for name := range s.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Submit validates req, creates a pending record and schedules the download.
// It returns as soon as the record exists.
func (s *Scheduler) Submit(platformName string, req models.TaskRequest) (string, error) {
	platformName = strings.ToLower(strings.TrimSpace(platformName))
	req.Reference = strings.TrimSpace(req.Reference)
	if req.Reference == "" {
		return "", platform.Invalid("reference", "must not be empty")
	}
	if req.Format == "" {
		req.Format = models.DefaultFormat
	}
	if req.Quality == "" {
		req.Quality = models.DefaultQuality
	}
	if !models.IsKnownFormat(req.Format) {
		return "", platform.Invalid("format", "unsupported format %q", req.Format)
	}
	if !models.IsKnownQuality(req.Quality) {
		return "", platform.Invalid("quality", "unsupported quality %q", req.Quality)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.stopped {
		return "", ErrStopped
	}
	reg, ok := s.adapters[platformName]
	if !ok {
		return "", &platform.ValidationError{
			Field:   "platform",
			Message: fmt.Sprintf("%v: %q", platform.ErrUnknownPlatform, platformName),
		}
	}

	id := s.registry.Create(platformName, req, "Download queued")
	s.submitted.Add(1)
	s.wg.Add(1)
	go s.run(id, reg, req)

	log.Printf("Task %s submitted (platform: %s, format: %s)", id, platformName, req.Format)
	return id, nil
}

func (s *Scheduler) run(id string, reg registration, req models.TaskRequest) {
	defer s.wg.Done()

	name := reg.adapter.Name()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Task %s panicked: %v", id, r)
			s.fail(id, platform.Failure(name, "unexpected failure: %v", r))
		}
	}()

	select {
	case s.slots <- struct{}{}:
	case <-s.ctx.Done():
		s.fail(id, platform.Failure(name, "%s download interrupted: %v", platform.DisplayName(name), ErrStopped))
		return
	}
	defer func() { <-s.slots }()

	s.active.Add(1)
	defer s.active.Add(-1)

	if err := s.start(id, name); err != nil {
		log.Printf("Error starting task %s: %v", id, err)
		return
	}

	artifact, err := s.invoke(id, reg, req)
	if err != nil {
		perr := platform.Classify(name, err)
		if errors.Is(perr, platform.ErrAdapterTimeout) {
			s.timedOut.Add(1)
		}
		log.Printf("Task %s failed: %v", id, perr)
		s.fail(id, perr)
		return
	}

	s.complete(id, name, artifact)
}

// invoke calls the adapter under the registration's hard timeout. The adapter
// runs in its own goroutine so a call that ignores ctx still loses the race.
func (s *Scheduler) invoke(id string, reg registration, req models.TaskRequest) (*platform.Artifact, error) {
	name := reg.adapter.Name()
	ctx, cancel := context.WithTimeout(s.ctx, reg.timeout)
	defer cancel()

	opts := platform.Options{
		Format:   req.Format,
		Quality:  req.Quality,
		Progress: s.progressFor(id),
	}

	type outcome struct {
		artifact *platform.Artifact
		err      error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("Adapter %s panicked on task %s: %v", name, id, r)
				done <- outcome{err: platform.Failure(name, "unexpected failure: %v", r)}
			}
		}()
		artifact, err := reg.adapter.FetchArtifact(ctx, req.Reference, opts)
		done <- outcome{artifact: artifact, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			if errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(out.err, platform.ErrAdapterTimeout) {
				return nil, platform.Timeout(name, reg.timeout)
			}
			return nil, out.err
		}
		if out.artifact == nil || out.artifact.FilePath == "" {
			return nil, platform.Failure(name, "%s adapter returned no file", platform.DisplayName(name))
		}
		return out.artifact, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, platform.Timeout(name, reg.timeout)
		}
		return nil, platform.Failure(name, "%s download interrupted: %v", platform.DisplayName(name), ErrStopped)
	}
}

// progressFor clamps adapter progress into (10, 99] and drops anything
// arriving after the task left running.
func (s *Scheduler) progressFor(id string) platform.ProgressFunc {
	return func(percent int) {
		if percent > 99 {
			percent = 99
		}
		err := s.registry.Update(id, func(t *models.Task) error {
			if t.Status != models.TaskStatusRunning || percent <= t.Progress {
				return errUnchanged
			}
			t.Progress = percent
			return nil
		})
		if err != nil && !errors.Is(err, errUnchanged) {
			log.Printf("Error updating progress for task %s: %v", id, err)
		}
	}
}

func (s *Scheduler) start(id, name string) error {
	now := time.Now()
	return s.registry.Update(id, func(t *models.Task) error {
		t.Status = models.TaskStatusRunning
		t.Progress = 10
		t.Message = fmt.Sprintf("Downloading from %s...", platform.DisplayName(name))
		t.StartedAt = &now
		return nil
	})
}

func (s *Scheduler) complete(id, name string, artifact *platform.Artifact) {
	filename := artifact.Filename
	if filename == "" {
		filename = filepath.Base(artifact.FilePath)
	}

	artifactID, err := s.locator.Register(artifact.FilePath, filename)
	if err != nil {
		s.fail(id, platform.Failure(name, "failed to register artifact: %v", err))
		return
	}

	now := time.Now()
	err = s.registry.Update(id, func(t *models.Task) error {
		t.Status = models.TaskStatusCompleted
		t.Progress = 100
		t.Message = "Download completed"
		t.Result = &models.TaskResult{
			ArtifactID: artifactID,
			FilePath:   artifact.FilePath,
			Filename:   filename,
			Title:      artifact.Title,
			Author:     artifact.Author,
			Duration:   artifact.Duration,
		}
		t.CompletedAt = &now
		return nil
	})
	if err != nil {
		log.Printf("Error completing task %s: %v", id, err)
		return
	}

	s.completed.Add(1)
	log.Printf("Task %s completed (%s)", id, filename)
	s.record(id)
}

func (s *Scheduler) fail(id string, cause *platform.Error) {
	now := time.Now()
	err := s.registry.Update(id, func(t *models.Task) error {
		t.Status = models.TaskStatusFailed
		t.Message = "Download failed"
		t.Error = cause.Message
		t.CompletedAt = &now
		return nil
	})
	if err != nil {
		log.Printf("Error failing task %s: %v", id, err)
		return
	}

	s.failed.Add(1)
	s.record(id)
}

func (s *Scheduler) record(id string) {
	s.mu.RLock()
	recorder := s.recorder
	s.mu.RUnlock()
	if recorder == nil {
		return
	}

	task, err := s.registry.Get(id)
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := recorder.Record(ctx, task); err != nil {
		log.Printf("Error recording history for task %s: %v", id, err)
	}
}

// Wait polls until task id reaches a terminal state or ctx ends.
func (s *Scheduler) Wait(ctx context.Context, id string, interval time.Duration) (models.Task, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		task, err := s.registry.Get(id)
		if err != nil {
			return models.Task{}, err
		}
		if task.Status.IsTerminal() {
			return task, nil
		}
		select {
		case <-ctx.Done():
			return task, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Stats returns counters and per-status totals.
func (s *Scheduler) Stats() Stats {
	return Stats{
		Platforms:     s.Platforms(),
		MaxConcurrent: cap(s.slots),
		Active:        s.active.Load(),
		Submitted:     s.submitted.Load(),
		Completed:     s.completed.Load(),
		Failed:        s.failed.Load(),
		TimedOut:      s.timedOut.Load(),
		Tasks:         s.registry.CountByStatus(),
	}
}

// Stop rejects new submissions, interrupts in-flight adapters and waits for
// every task goroutine to record its terminal state.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()
	log.Println("Scheduler stopped")
}
