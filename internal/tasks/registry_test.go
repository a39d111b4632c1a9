package tasks

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"mediagrab/internal/models"
	"mediagrab/internal/platform"
)

func newRunning(t *testing.T, r *Registry) string {
	t.Helper()
	id := r.Create("mock", models.TaskRequest{Reference: "ref"}, "queued")
	if err := r.Update(id, func(task *models.Task) error {
		task.Status = models.TaskStatusRunning
		task.Progress = 10
		return nil
	}); err != nil {
		t.Fatalf("start: %v", err)
	}
	return id
}

func TestCreateAndGet(t *testing.T) {
	r := NewRegistry()

	id := r.Create("mock", models.TaskRequest{Reference: "ok-ref", Format: "mp3"}, "queued")
	if id == "" {
		t.Fatal("empty id")
	}

	task, err := r.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if task.Status != models.TaskStatusPending || task.Progress != 0 {
		t.Errorf("unexpected initial state %s/%d", task.Status, task.Progress)
	}
	if task.Request.Reference != "ok-ref" || task.Platform != "mock" {
		t.Errorf("request not stored: %+v", task)
	}
	if task.CreatedAt.IsZero() {
		t.Errorf("CreatedAt not set")
	}
}

func TestCreateReturnsFreshIDs(t *testing.T) {
	r := NewRegistry()
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := r.Create("mock", models.TaskRequest{Reference: "same"}, "")
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
	if r.Len() != 1000 {
		t.Errorf("Len = %d", r.Len())
	}
}

func TestGetUnknown(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Get("nope"); !errors.Is(err, platform.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := r.Update("nope", func(*models.Task) error { return nil }); !errors.Is(err, platform.ErrNotFound) {
		t.Errorf("expected ErrNotFound from Update, got %v", err)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	r := NewRegistry()
	id := newRunning(t, r)
	if err := r.Update(id, func(task *models.Task) error {
		task.Status = models.TaskStatusCompleted
		task.Progress = 100
		task.Result = &models.TaskResult{Filename: "x.mp3", ArtifactID: "a"}
		return nil
	}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	got, _ := r.Get(id)
	got.Result.Filename = "mutated"
	got.Status = models.TaskStatusFailed

	again, _ := r.Get(id)
	if again.Result.Filename != "x.mp3" || again.Status != models.TaskStatusCompleted {
		t.Errorf("registry state changed through a read copy: %+v", again)
	}
}

func TestUpdateRejectsIllegalTransitions(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.Task)
	}{
		{"pending to completed", func(task *models.Task) {
			task.Status = models.TaskStatusCompleted
			task.Result = &models.TaskResult{}
		}},
		{"error while pending", func(task *models.Task) {
			task.Error = "boom"
		}},
		{"progress out of range", func(task *models.Task) {
			task.Progress = 150
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			id := r.Create("mock", models.TaskRequest{Reference: "x"}, "")
			err := r.Update(id, func(task *models.Task) error {
				tt.mutate(task)
				return nil
			})
			if !errors.Is(err, ErrInvalidTransition) {
				t.Fatalf("expected ErrInvalidTransition, got %v", err)
			}
			task, _ := r.Get(id)
			if task.Status != models.TaskStatusPending || task.Error != "" || task.Result != nil {
				t.Errorf("rejected mutation was applied: %+v", task)
			}
		})
	}
}

func TestTerminalIsFinal(t *testing.T) {
	r := NewRegistry()
	id := newRunning(t, r)
	if err := r.Update(id, func(task *models.Task) error {
		task.Status = models.TaskStatusFailed
		task.Error = "boom"
		return nil
	}); err != nil {
		t.Fatalf("fail: %v", err)
	}

	err := r.Update(id, func(task *models.Task) error {
		task.Status = models.TaskStatusCompleted
		task.Error = ""
		task.Result = &models.TaskResult{}
		return nil
	})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition leaving failed, got %v", err)
	}

	err = r.Update(id, func(task *models.Task) error {
		task.Message = "again"
		return nil
	})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected terminal record to be frozen, got %v", err)
	}
}

func TestProgressNeverDecreases(t *testing.T) {
	r := NewRegistry()
	id := newRunning(t, r)

	if err := r.Update(id, func(task *models.Task) error { task.Progress = 50; return nil }); err != nil {
		t.Fatalf("progress 50: %v", err)
	}
	if err := r.Update(id, func(task *models.Task) error { task.Progress = 40; return nil }); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected decreasing progress to be rejected, got %v", err)
	}
}

func TestMutationErrorIsNotCommitted(t *testing.T) {
	r := NewRegistry()
	id := r.Create("mock", models.TaskRequest{Reference: "x"}, "")
	sentinel := errors.New("abort")

	err := r.Update(id, func(task *models.Task) error {
		task.Message = "half"
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel, got %v", err)
	}
	task, _ := r.Get(id)
	if task.Message != "" {
		t.Errorf("aborted mutation leaked: %q", task.Message)
	}
}

func TestConcurrentUpdatesAndReads(t *testing.T) {
	r := NewRegistry()
	const n = 50
	ids := make([]string, n)
	for i := range ids {
		ids[i] = newRunning(t, r)
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		id := id
		for p := 11; p <= 60; p++ {
			p := p
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = r.Update(id, func(task *models.Task) error {
					if p > task.Progress {
						task.Progress = p
					}
					return nil
				})
			}()
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				task, err := r.Get(id)
				if err != nil {
					t.Errorf("Get: %v", err)
					return
				}
				if !task.Consistent() {
					t.Errorf("inconsistent read %+v", task)
				}
			}
		}()
	}
	wg.Wait()

	for _, id := range ids {
		task, _ := r.Get(id)
		if task.Progress != 60 {
			t.Errorf("task %s progress = %d, want 60", id, task.Progress)
		}
	}
}

func TestListAndCount(t *testing.T) {
	r := NewRegistry()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	i := 0
	r.now = func() time.Time {
		i++
		return base.Add(time.Duration(i) * time.Second)
	}

	for j := 0; j < 5; j++ {
		r.Create("mock", models.TaskRequest{Reference: fmt.Sprintf("ref-%d", j)}, "")
	}
	newRunning(t, r)

	list := r.List(3)
	if len(list) != 3 {
		t.Fatalf("List(3) returned %d", len(list))
	}
	if list[0].Request.Reference != "ref" {
		t.Errorf("newest first expected, got %q", list[0].Request.Reference)
	}

	counts := r.CountByStatus()
	if counts[models.TaskStatusPending] != 5 || counts[models.TaskStatusRunning] != 1 {
		t.Errorf("unexpected counts %v", counts)
	}
}
