// Package database はSQLiteとPostgreSQLへの接続を共通の*sql.DBとして扱うための補助機能を提供する。
//
// クエリは ? プレースホルダで記述し、Driver.Rebind でドライバ固有の形式に変換する。
package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Driver は接続先データベースの種類を表す。
type Driver string

const (
	// DriverSQLite は modernc.org/sqlite を使うSQLiteドライバ。
	DriverSQLite Driver = "sqlite"
	// DriverPostgres は pgx の database/sql アダプタを使うPostgreSQLドライバ。
	DriverPostgres Driver = "postgres"
)

// pgUniqueViolation はPostgreSQLの一意制約違反を表すSQLSTATE。
const pgUniqueViolation = "23505"

// ParseDriver は設定値の文字列をDriverに変換する。
func ParseDriver(s string) (Driver, error) {
	switch Driver(strings.ToLower(strings.TrimSpace(s))) {
	case DriverSQLite:
		return DriverSQLite, nil
	case DriverPostgres, "postgresql", "pgx":
		return DriverPostgres, nil
	default:
		return "", fmt.Errorf("未対応のデータベースドライバです: %q", s)
	}
}

// Open は指定されたドライバでデータベースを開き、疎通を確認する。
func Open(driver Driver, dsn string) (*sql.DB, error) {
	var driverName string
	switch driver {
	case DriverSQLite:
		driverName = "sqlite"
	case DriverPostgres:
		driverName = "pgx"
	default:
		return nil, fmt.Errorf("未対応のデータベースドライバです: %q", driver)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}

	if driver == DriverSQLite {
		// SQLiteの書き込みは単一コネクションに直列化する。
		// :memory: の場合も全クエリが同じデータベースを参照する。
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("データベースへの疎通確認に失敗: %w", err)
	}
	return db, nil
}

// Rebind は ? プレースホルダをドライバに合わせた形式に書き換える。
// PostgreSQLでは $1, $2, ... に変換し、SQLiteではそのまま返す。
func (d Driver) Rebind(query string) string {
	if d != DriverPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] != '?' {
			b.WriteByte(query[i])
			continue
		}
		n++
		b.WriteByte('$')
		b.WriteString(strconv.Itoa(n))
	}
	return b.String()
}

// IsUniqueViolation はエラーが一意制約違反によるものかを判定する。
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		case sqlite3.SQLITE_CONSTRAINT:
			// 拡張エラーコードが無効な接続では基本コードしか返らない。
			return strings.Contains(sqliteErr.Error(), "UNIQUE constraint failed")
		}
	}
	return false
}
