// Package db はSquadBoardのデータベースアクセスを提供する。
//
// users・posts・tasksテーブルへのクエリをQueries経由で実行する。
// クエリは ? プレースホルダで記述し、実行時に接続先ドライバの形式へ変換する。
package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/nao1215/squadboard/pkg/database"
	"github.com/nao1215/squadboard/pkg/migration"
)

//go:embed migrations
var migrationsFS embed.FS

// DBTX は*sql.DBと*sql.Txの共通インターフェース。
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Queries はSquadBoardのクエリ実行オブジェクト。
type Queries struct {
	db     DBTX
	driver database.Driver
}

// New は新しいQueriesを生成する。
func New(db DBTX, driver database.Driver) *Queries {
	return &Queries{db: db, driver: driver}
}

// Migrate はSquadBoardのスキーマをデータベースに適用する。
func Migrate(ctx context.Context, sqlDB *sql.DB, driver database.Driver) error {
	if err := migration.Run(ctx, sqlDB, driver, migrationsFS, "migrations"); err != nil {
		return fmt.Errorf("スキーマの適用に失敗: %w", err)
	}
	return nil
}

func (q *Queries) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return q.db.ExecContext(ctx, q.driver.Rebind(query), args...)
}

func (q *Queries) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return q.db.QueryContext(ctx, q.driver.Rebind(query), args...)
}

func (q *Queries) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return q.db.QueryRowContext(ctx, q.driver.Rebind(query), args...)
}
