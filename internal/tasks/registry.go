// Package tasks holds the in-memory task registry.
package tasks

import (
	"errors"
	"fmt"
	"hash/fnv"
	"sort"
	"sync"
	"time"

	"mediagrab/internal/models"
	"mediagrab/internal/platform"

	"github.com/google/uuid"
)

const shardCount = 32

// ErrInvalidTransition is returned when a mutation would break the state machine.
var ErrInvalidTransition = errors.New("invalid task transition")

// Registry stores task records keyed by id. Records are never removed.
// Each record has its own lock; shard locks only guard map membership.
type Registry struct {
	shards [shardCount]*shard
	now    func() time.Time
}

type shard struct {
	mu      sync.RWMutex
	records map[string]*record
}

type record struct {
	mu   sync.RWMutex
	task models.Task
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	r := &Registry{now: time.Now}
	for i := range r.shards {
		r.shards[i] = &shard{records: make(map[string]*record)}
	}
	return r
}

func (r *Registry) shardFor(id string) *shard {
	h := fnv.New32a()
	h.Write([]byte(id))
	return r.shards[h.Sum32()%shardCount]
}

// Create inserts a new pending record and returns its fresh id.
func (r *Registry) Create(platformName string, req models.TaskRequest, message string) string {
	task := models.Task{
		ID:        uuid.NewString(),
		Platform:  platformName,
		Status:    models.TaskStatusPending,
		Progress:  0,
		Message:   message,
		Request:   req,
		CreatedAt: r.now(),
	}

	s := r.shardFor(task.ID)
	s.mu.Lock()
	s.records[task.ID] = &record{task: task}
	s.mu.Unlock()

	return task.ID
}

func (r *Registry) lookup(id string) (*record, error) {
	s := r.shardFor(id)
	s.mu.RLock()
	rec, ok := s.records[id]
	s.mu.RUnlock()
	if !ok {
		return nil, platform.ErrNotFound
	}
	return rec, nil
}

// Get returns a copy of the record.
func (r *Registry) Get(id string) (models.Task, error) {
	rec, err := r.lookup(id)
	if err != nil {
		return models.Task{}, err
	}
	rec.mu.RLock()
	defer rec.mu.RUnlock()
	return rec.task.Clone(), nil
}

// Update applies mutate to a copy of the record and commits it only if
// mutate returns nil and the result is a legal state. Readers never observe
// a partially applied mutation.
func (r *Registry) Update(id string, mutate func(*models.Task) error) error {
	rec, err := r.lookup(id)
	if err != nil {
		return err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	next := rec.task.Clone()
	if err := mutate(&next); err != nil {
		return err
	}

	if err := validate(rec.task, next); err != nil {
		return fmt.Errorf("task %s: %w", id, err)
	}

	rec.task = next
	return nil
}

func validate(prev, next models.Task) error {
	if next.ID != prev.ID {
		return fmt.Errorf("%w: id is immutable", ErrInvalidTransition)
	}
	if next.Status != prev.Status && !models.CanTransition(prev.Status, next.Status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, prev.Status, next.Status)
	}
	if prev.Status.IsTerminal() && next.Status == prev.Status {
		return fmt.Errorf("%w: %s is terminal", ErrInvalidTransition, prev.Status)
	}
	if next.Progress < 0 || next.Progress > 100 {
		return fmt.Errorf("%w: progress %d out of range", ErrInvalidTransition, next.Progress)
	}
	if next.Status == models.TaskStatusRunning && prev.Status == models.TaskStatusRunning && next.Progress < prev.Progress {
		return fmt.Errorf("%w: progress decreased %d -> %d", ErrInvalidTransition, prev.Progress, next.Progress)
	}
	if !next.Consistent() {
		return fmt.Errorf("%w: result/error do not match status %s", ErrInvalidTransition, next.Status)
	}
	return nil
}

// List returns copies of the most recent records, newest first.
func (r *Registry) List(limit int) []models.Task {
	var all []models.Task
	for _, s := range r.shards {
		s.mu.RLock()
		for _, rec := range s.records {
			rec.mu.RLock()
			all = append(all, rec.task.Clone())
			rec.mu.RUnlock()
		}
		s.mu.RUnlock()
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all
}

// CountByStatus returns the number of records in each status.
func (r *Registry) CountByStatus() map[models.TaskStatus]int {
	counts := make(map[models.TaskStatus]int)
	for _, s := range r.shards {
		s.mu.RLock()
		for _, rec := range s.records {
			rec.mu.RLock()
			counts[rec.task.Status]++
			rec.mu.RUnlock()
		}
		s.mu.RUnlock()
	}
	return counts
}

// Len returns the number of records.
func (r *Registry) Len() int {
	n := 0
	for _, s := range r.shards {
		s.mu.RLock()
		n += len(s.records)
		s.mu.RUnlock()
	}
	return n
}
