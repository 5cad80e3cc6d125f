package db

import (
	"context"
	"database/sql"
	"time"
)

const createTask = `
INSERT INTO tasks (id, user_id, name, completed, created_at)
VALUES (?, ?, ?, ?, ?)
`

// CreateTaskParams はCreateTaskの引数。
type CreateTaskParams struct {
	ID        string
	UserID    string
	Name      string
	Completed bool
	CreatedAt time.Time
}

// CreateTask はタスクを保存する。
func (q *Queries) CreateTask(ctx context.Context, arg CreateTaskParams) error {
	_, err := q.exec(ctx, createTask,
		arg.ID,
		arg.UserID,
		arg.Name,
		arg.Completed,
		arg.CreatedAt,
	)
	return err
}

const listTasksByUserID = `
SELECT id, user_id, name, completed, created_at
FROM tasks
WHERE user_id = ?
ORDER BY created_at DESC, id DESC
`

// ListTasksByUserID は指定ユーザーのタスクを新しい順に取得する。
func (q *Queries) ListTasksByUserID(ctx context.Context, userID string) ([]Task, error) {
	rows, err := q.query(ctx, listTasksByUserID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Task
	for rows.Next() {
		var i Task
		if err := rows.Scan(
			&i.ID,
			&i.UserID,
			&i.Name,
			&i.Completed,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateTaskCompleted = `
UPDATE tasks
SET completed = ?
WHERE id = ? AND user_id = ?
RETURNING id, user_id, name, completed, created_at
`

// UpdateTaskCompletedParams はUpdateTaskCompletedの引数。
type UpdateTaskCompletedParams struct {
	Completed bool
	ID        string
	UserID    string
}

// UpdateTaskCompleted はユーザーが所有するタスクの完了フラグを更新し、更新後の行を返す。
// 該当するタスクがない場合はsql.ErrNoRowsを返す。
func (q *Queries) UpdateTaskCompleted(ctx context.Context, arg UpdateTaskCompletedParams) (Task, error) {
	row := q.queryRow(ctx, updateTaskCompleted, arg.Completed, arg.ID, arg.UserID)
	var i Task
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.Name,
		&i.Completed,
		&i.CreatedAt,
	)
	return i, err
}

const deleteTask = `
DELETE FROM tasks
WHERE id = ? AND user_id = ?
`

// DeleteTaskParams はDeleteTaskの引数。
type DeleteTaskParams struct {
	ID     string
	UserID string
}

// DeleteTask はユーザーが所有するタスクを削除する。
// 該当するタスクがない場合はsql.ErrNoRowsを返す。
func (q *Queries) DeleteTask(ctx context.Context, arg DeleteTaskParams) error {
	result, err := q.exec(ctx, deleteTask, arg.ID, arg.UserID)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
