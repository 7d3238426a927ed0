package repository

import (
	"database/sql"
	"sync"

	"github.com/MatthewIsblind/todoList/internal/database"
)

// Store はデータベース接続と排他ガードをまとめた共有ハンドル。
//
// SQLiteは同一ファイルへの並行ライターを安全に扱えないため、SQLite接続時は
// 全アクセス（読み書きとも）をプロセス全体で1つのミューテックスで直列化する。
// 粗粒度のロックだが、想定負荷が低いため単純さを優先する。
// PostgreSQL接続時はエンジン側の並行制御に任せ、ガードは無効になる。
type Store struct {
	db      *sql.DB
	dialect database.Dialect
	mu      *sync.Mutex // SQLiteの場合のみ非nil
}

// NewStore はStoreを生成する。
func NewStore(db *sql.DB, dialect database.Dialect) *Store {
	s := &Store{db: db, dialect: dialect}
	if dialect == database.DialectSQLite {
		s.mu = &sync.Mutex{}
	}
	return s
}

// withLock は必要な場合のみ排他ガードを保持してfnを実行する。
// 結果セットのスキャンまで含めてfn内で完了させること。
func (s *Store) withLock(fn func() error) error {
	if s.mu != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	return fn()
}
