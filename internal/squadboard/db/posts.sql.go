package db

import (
	"context"
	"time"
)

const createPost = `
INSERT INTO posts (id, user_id, content, image_url, author, created_at)
VALUES (?, ?, ?, ?, ?, ?)
`

// CreatePostParams はCreatePostの引数。
type CreatePostParams struct {
	ID        string
	UserID    string
	Content   string
	ImageUrl  string
	Author    string
	CreatedAt time.Time
}

// CreatePost は投稿を保存する。
func (q *Queries) CreatePost(ctx context.Context, arg CreatePostParams) error {
	_, err := q.exec(ctx, createPost,
		arg.ID,
		arg.UserID,
		arg.Content,
		arg.ImageUrl,
		arg.Author,
		arg.CreatedAt,
	)
	return err
}

const listPosts = `
SELECT id, user_id, content, image_url, author, created_at
FROM posts
ORDER BY created_at DESC, id DESC
`

// ListPosts は全ユーザーの投稿を新しい順に取得する。
func (q *Queries) ListPosts(ctx context.Context) ([]Post, error) {
	rows, err := q.query(ctx, listPosts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Post
	for rows.Next() {
		var i Post
		if err := rows.Scan(
			&i.ID,
			&i.UserID,
			&i.Content,
			&i.ImageUrl,
			&i.Author,
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
