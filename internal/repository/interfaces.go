// Package repository はデータ永続化のインターフェースと実装を提供する。
package repository

import (
	"context"

	"github.com/MatthewIsblind/todoList/internal/model"
)

// UserRepository はユーザープロフィールの永続化インターフェース。
type UserRepository interface {
	// Upsert はsubをキーにユーザーを冪等にUPSERTする。
	// プロフィールフィールドはすべて最新値で上書きし、created_atは初回のみ設定する。
	// subが空の場合はmodel.ValidationErrorを返す。
	Upsert(ctx context.Context, claims *model.Claims) (*model.User, error)
}

// TaskRepository はタスクの永続化インターフェース。
type TaskRepository interface {
	// Insert はタスク行を作成し、IDと正規化済みメールアドレスを返す。
	// メールアドレスはトリムされ、空の場合は空文字列に正規化される。新規行は常にアクティブ。
	Insert(ctx context.Context, description, date, taskTime, userEmail string) (int64, string, error)

	// ListActiveByEmailAndDate は指定メールアドレス・日付のアクティブなタスクを
	// 時刻昇順・ID昇順で返す。空白のみのメールアドレスはストレージに触れず空を返す。
	ListActiveByEmailAndDate(ctx context.Context, userEmail, date string) ([]model.Task, error)

	// Deactivate は指定IDのタスクのアクティブフラグを落とす。
	// 行が変更された場合はtrueを返す。存在しない、または既に非アクティブの場合はfalse。
	Deactivate(ctx context.Context, taskID int64) (bool, error)
}
