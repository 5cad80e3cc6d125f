package db

import (
	"context"
	"time"
)

const createUser = `
INSERT INTO users (id, name, email, password_hash, created_at)
VALUES (?, ?, ?, ?, ?)
`

// CreateUserParams はCreateUserの引数。
type CreateUserParams struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// CreateUser はユーザーを登録する。
// メールアドレスが重複している場合は一意制約違反のエラーを返す。
func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) error {
	_, err := q.exec(ctx, createUser,
		arg.ID,
		arg.Name,
		arg.Email,
		arg.PasswordHash,
		arg.CreatedAt,
	)
	return err
}

const getUserByEmail = `
SELECT id, name, email, password_hash, created_at
FROM users
WHERE email = ?
`

// GetUserByEmail はメールアドレスでユーザーを取得する。
func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := q.queryRow(ctx, getUserByEmail, email)
	var i User
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Email,
		&i.PasswordHash,
		&i.CreatedAt,
	)
	return i, err
}

const getUserByID = `
SELECT id, name, email, password_hash, created_at
FROM users
WHERE id = ?
`

// GetUserByID はIDでユーザーを取得する。
func (q *Queries) GetUserByID(ctx context.Context, id string) (User, error) {
	row := q.queryRow(ctx, getUserByID, id)
	var i User
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Email,
		&i.PasswordHash,
		&i.CreatedAt,
	)
	return i, err
}
