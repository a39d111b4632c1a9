package models

import "time"

// TaskStatus はタスクの状態
type TaskStatus string

// タスクステータス
const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
)

// IsTerminal は終端状態かどうかを返す
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// CanTransition は from から to への遷移が許可されているかを返す
// pending → running → completed|failed のみ。終端状態からは遷移しない
func CanTransition(from, to TaskStatus) bool {
	switch from {
	case TaskStatusPending:
		return to == TaskStatusRunning || to == TaskStatusFailed
	case TaskStatusRunning:
		return to == TaskStatusCompleted || to == TaskStatusFailed
	default:
		return false
	}
}

// TaskRequest はダウンロード要求
type TaskRequest struct {
	Reference string `json:"reference"`
	Format    string `json:"format"`
	Quality   string `json:"quality"`
}

// TaskResult は完了したタスクの成果物
type TaskResult struct {
	ArtifactID string        `json:"artifact_id"`
	FilePath   string        `json:"-"`
	Filename   string        `json:"filename"`
	Title      string        `json:"title,omitempty"`
	Author     string        `json:"author,omitempty"`
	Duration   time.Duration `json:"-"`
}

// Task は非同期ダウンロードタスク
type Task struct {
	ID          string      `json:"task_id"`
	Platform    string      `json:"platform"`
	Status      TaskStatus  `json:"status"`
	Progress    int         `json:"progress"`
	Message     string      `json:"message"`
	Request     TaskRequest `json:"request"`
	Result      *TaskResult `json:"result,omitempty"`
	Error       string      `json:"error,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	StartedAt   *time.Time  `json:"started_at,omitempty"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
}

// Clone はポインタフィールドも含めたコピーを返す
func (t Task) Clone() Task {
	c := t
	if t.Result != nil {
		r := *t.Result
		c.Result = &r
	}
	if t.StartedAt != nil {
		s := *t.StartedAt
		c.StartedAt = &s
	}
	if t.CompletedAt != nil {
		d := *t.CompletedAt
		c.CompletedAt = &d
	}
	return c
}

// Consistent は状態と結果/エラーの組み合わせが正しいかを返す
// 終端状態では Result と Error のどちらか一方のみ、それ以外ではどちらも無い
func (t Task) Consistent() bool {
	hasResult := t.Result != nil
	hasError := t.Error != ""
	if t.Status.IsTerminal() {
		if t.Status == TaskStatusCompleted {
			return hasResult && !hasError
		}
		return hasError && !hasResult
	}
	return !hasResult && !hasError
}
