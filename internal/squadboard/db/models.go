package db

import "time"

// User はusersテーブルの1行。
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Post はpostsテーブルの1行。
type Post struct {
	ID        string
	UserID    string
	Content   string
	ImageUrl  string
	Author    string
	CreatedAt time.Time
}

// Task はtasksテーブルの1行。
type Task struct {
	ID        string
	UserID    string
	Name      string
	Completed bool
	CreatedAt time.Time
}
