// Package database はデータベース接続とマイグレーション管理を提供する。
package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect は接続先データベースの種別を表す。
type Dialect string

const (
	// DialectSQLite はローカルファイルのSQLiteデータベースを示す。
	DialectSQLite Dialect = "sqlite"
	// DialectPostgres はネットワーク経由のPostgreSQLデータベースを示す。
	DialectPostgres Dialect = "postgres"
)

// PoolConfig はPostgreSQL接続時のプール設定。SQLiteでは無視される。
type PoolConfig struct {
	PoolSize    int
	MaxOverflow int
}

// DialectOf はデータベースURLから接続先の種別を判定する。
// postgres:// または postgresql:// で始まるURLはPostgreSQL、
// それ以外はSQLiteファイルパスとして扱う。
func DialectOf(databaseURL string) Dialect {
	if strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://") {
		return DialectPostgres
	}
	return DialectSQLite
}

// Open はデータベース接続を開く。
// PostgreSQLの場合はプール設定を適用し、SQLiteの場合はデータディレクトリを作成した上で
// 単一コネクションに制限する（ファイルベースエンジンは並行ライターを安全に扱えない）。
// sql.Openは接続を試行しないため、実際の接続確認にはdb.Ping()を使用すること。
func Open(databaseURL string, pool PoolConfig) (*sql.DB, Dialect, error) {
	if DialectOf(databaseURL) == DialectPostgres {
		db, err := sql.Open("postgres", databaseURL)
		if err != nil {
			return nil, "", fmt.Errorf("failed to open database: %w", err)
		}
		db.SetMaxOpenConns(pool.PoolSize + pool.MaxOverflow)
		db.SetMaxIdleConns(pool.PoolSize)
		return db, DialectPostgres, nil
	}

	if dir := filepath.Dir(databaseURL); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, "", fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", databaseURL)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	return db, DialectSQLite, nil
}
