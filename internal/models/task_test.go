package models

import (
	"testing"
	"time"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to TaskStatus
		want     bool
	}{
		{TaskStatusPending, TaskStatusRunning, true},
		{TaskStatusPending, TaskStatusFailed, true},
		{TaskStatusPending, TaskStatusCompleted, false},
		{TaskStatusRunning, TaskStatusCompleted, true},
		{TaskStatusRunning, TaskStatusFailed, true},
		{TaskStatusRunning, TaskStatusPending, false},
		{TaskStatusCompleted, TaskStatusFailed, false},
		{TaskStatusCompleted, TaskStatusRunning, false},
		{TaskStatusFailed, TaskStatusCompleted, false},
		{TaskStatusFailed, TaskStatusPending, false},
	}

	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestTaskCloneIsDeep(t *testing.T) {
	now := time.Now()
	orig := Task{
		ID:        "a",
		Status:    TaskStatusCompleted,
		Result:    &TaskResult{Filename: "x.mp3"},
		StartedAt: &now,
	}

	c := orig.Clone()
	c.Result.Filename = "changed.mp3"
	*c.StartedAt = now.Add(time.Hour)

	if orig.Result.Filename != "x.mp3" {
		t.Errorf("clone shares Result with its source")
	}
	if !orig.StartedAt.Equal(now) {
		t.Errorf("clone shares StartedAt with its source")
	}
}

func TestTaskConsistent(t *testing.T) {
	tests := []struct {
		name string
		task Task
		want bool
	}{
		{"pending empty", Task{Status: TaskStatusPending}, true},
		{"running with error", Task{Status: TaskStatusRunning, Error: "x"}, false},
		{"completed with result", Task{Status: TaskStatusCompleted, Result: &TaskResult{}}, true},
		{"completed without result", Task{Status: TaskStatusCompleted}, false},
		{"failed with error", Task{Status: TaskStatusFailed, Error: "boom"}, true},
		{"failed with both", Task{Status: TaskStatusFailed, Error: "boom", Result: &TaskResult{}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.task.Consistent(); got != tt.want {
				t.Errorf("Consistent() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsKnownFormat(t *testing.T) {
	for _, f := range []string{"mp3", "flac", "wav", "m4a", "mp4", "ogg"} {
		if !IsKnownFormat(f) {
			t.Errorf("IsKnownFormat(%q) = false", f)
		}
	}
	if IsKnownFormat("avi") {
		t.Errorf("IsKnownFormat(avi) = true")
	}
}
