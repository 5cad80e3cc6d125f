package database

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

// TestParseDriver はParseDriver関数を検証する。
func TestParseDriver(t *testing.T) {
	t.Parallel()

	t.Run("sqliteを解釈できること", func(t *testing.T) {
		t.Parallel()

		got, err := ParseDriver("SQLite")
		if err != nil {
			t.Fatalf("ParseDriver()でエラーが発生: %v", err)
		}
		if got != DriverSQLite {
			t.Errorf("ParseDriver() = %q, want %q", got, DriverSQLite)
		}
	})

	t.Run("postgresの別名を解釈できること", func(t *testing.T) {
		t.Parallel()

		for _, in := range []string{"postgres", "postgresql", "pgx", " Postgres "} {
			got, err := ParseDriver(in)
			if err != nil {
				t.Fatalf("ParseDriver(%q)でエラーが発生: %v", in, err)
			}
			if got != DriverPostgres {
				t.Errorf("ParseDriver(%q) = %q, want %q", in, got, DriverPostgres)
			}
		}
	})

	t.Run("未対応のドライバはエラーになること", func(t *testing.T) {
		t.Parallel()

		if _, err := ParseDriver("mongodb"); err == nil {
			t.Fatal("未対応のドライバでエラーが返るべき")
		}
	})
}

// TestRebind はプレースホルダの変換を検証する。
func TestRebind(t *testing.T) {
	t.Parallel()

	const query = "UPDATE tasks SET completed = ? WHERE id = ? AND user_id = ?"

	t.Run("SQLiteではクエリがそのまま返ること", func(t *testing.T) {
		t.Parallel()

		if got := DriverSQLite.Rebind(query); got != query {
			t.Errorf("Rebind() = %q, want %q", got, query)
		}
	})

	t.Run("PostgreSQLでは連番プレースホルダに変換されること", func(t *testing.T) {
		t.Parallel()

		want := "UPDATE tasks SET completed = $1 WHERE id = $2 AND user_id = $3"
		if got := DriverPostgres.Rebind(query); got != want {
			t.Errorf("Rebind() = %q, want %q", got, want)
		}
	})

	t.Run("プレースホルダが10個以上でも正しく変換されること", func(t *testing.T) {
		t.Parallel()

		q := "VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
		want := "VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)"
		if got := DriverPostgres.Rebind(q); got != want {
			t.Errorf("Rebind() = %q, want %q", got, want)
		}
	})
}

// TestOpen はOpen関数を検証する。
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("インメモリSQLiteを開けること", func(t *testing.T) {
		t.Parallel()

		db, err := Open(DriverSQLite, ":memory:")
		if err != nil {
			t.Fatalf("Open()でエラーが発生: %v", err)
		}
		t.Cleanup(func() { db.Close() })

		if got := db.Stats().MaxOpenConnections; got != 1 {
			t.Errorf("MaxOpenConnections = %d, want 1", got)
		}
	})

	t.Run("未対応のドライバはエラーになること", func(t *testing.T) {
		t.Parallel()

		if _, err := Open(Driver("oracle"), "dsn"); err == nil {
			t.Fatal("未対応のドライバでエラーが返るべき")
		}
	})
}

// TestIsUniqueViolation は一意制約違反の判定を検証する。
func TestIsUniqueViolation(t *testing.T) {
	t.Parallel()

	t.Run("SQLiteの一意制約違反を検出できること", func(t *testing.T) {
		t.Parallel()

		db, err := Open(DriverSQLite, ":memory:")
		if err != nil {
			t.Fatalf("Open()でエラーが発生: %v", err)
		}
		t.Cleanup(func() { db.Close() })

		if _, err := db.Exec("CREATE TABLE users (email TEXT NOT NULL UNIQUE)"); err != nil {
			t.Fatalf("テーブル作成に失敗: %v", err)
		}
		if _, err := db.Exec("INSERT INTO users (email) VALUES (?)", "a@x.com"); err != nil {
			t.Fatalf("1件目の挿入に失敗: %v", err)
		}
		_, err = db.Exec("INSERT INTO users (email) VALUES (?)", "a@x.com")
		if err == nil {
			t.Fatal("重複挿入がエラーを返すべき")
		}
		if !IsUniqueViolation(fmt.Errorf("ラップ: %w", err)) {
			t.Errorf("IsUniqueViolation() = false, want true (err=%v)", err)
		}
	})

	t.Run("PostgreSQLの一意制約違反を検出できること", func(t *testing.T) {
		t.Parallel()

		err := fmt.Errorf("ラップ: %w", &pgconn.PgError{Code: "23505"})
		if !IsUniqueViolation(err) {
			t.Error("IsUniqueViolation() = false, want true")
		}
	})

	t.Run("その他のPostgreSQLエラーは一意制約違反ではないこと", func(t *testing.T) {
		t.Parallel()

		if IsUniqueViolation(&pgconn.PgError{Code: "23503"}) {
			t.Error("IsUniqueViolation() = true, want false")
		}
	})

	t.Run("nilや一般的なエラーは一意制約違反ではないこと", func(t *testing.T) {
		t.Parallel()

		if IsUniqueViolation(nil) {
			t.Error("IsUniqueViolation(nil) = true, want false")
		}
		if IsUniqueViolation(fmt.Errorf("何かのエラー")) {
			t.Error("IsUniqueViolation() = true, want false")
		}
	})
}
