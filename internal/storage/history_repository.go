package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"mediagrab/internal/models"
)

// HistoryEntry は終了したダウンロードの記録
// タスクの復元には使わない（監査用）
type HistoryEntry struct {
	TaskID      string     `json:"task_id"`
	Platform    string     `json:"platform"`
	Reference   string     `json:"reference"`
	Format      string     `json:"format"`
	Quality     string     `json:"quality"`
	Status      string     `json:"status"`
	Title       string     `json:"title,omitempty"`
	Author      string     `json:"author,omitempty"`
	Filename    string     `json:"filename,omitempty"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// HistoryRepository はダウンロード履歴のデータアクセス層
type HistoryRepository struct {
	db *DB
}

// NewHistoryRepository は新しいHistoryRepositoryを作成
func NewHistoryRepository(db *DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Record は終端状態のタスクを保存する
func (r *HistoryRepository) Record(ctx context.Context, task models.Task) error {
	if !task.Status.IsTerminal() {
		return fmt.Errorf("task %s is not finished: %s", task.ID, task.Status)
	}

	var title, author, filename sql.NullString
	if task.Result != nil {
		title = nullString(task.Result.Title)
		author = nullString(task.Result.Author)
		filename = nullString(task.Result.Filename)
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO download_history
			(task_id, platform, reference, format, quality, status, title, author, filename, error, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID, task.Platform, task.Request.Reference, task.Request.Format, task.Request.Quality,
		string(task.Status), title, author, filename, nullString(task.Error),
		task.CreatedAt.UTC(), nullTime(task.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to record history: %w", err)
	}
	return nil
}

// ListRecent は最近の履歴を取得
func (r *HistoryRepository) ListRecent(ctx context.Context, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT task_id, platform, reference, format, quality, status, title, author, filename, error, created_at, completed_at
		FROM download_history
		ORDER BY created_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		var title, author, filename, errMsg sql.NullString
		var completedAt sql.NullTime
		if err := rows.Scan(&e.TaskID, &e.Platform, &e.Reference, &e.Format, &e.Quality, &e.Status,
			&title, &author, &filename, &errMsg, &e.CreatedAt, &completedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}
		e.Title = title.String
		e.Author = author.String
		e.Filename = filename.String
		e.Error = errMsg.String
		if completedAt.Valid {
			t := completedAt.Time
			e.CompletedAt = &t
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CountByStatus はステータスごとの件数を取得
func (r *HistoryRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM download_history GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count history: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
