// Package model はドメインモデルを定義する。
package model

import "time"

// User は認証済みユーザーのプロフィールを表す。
// subはIdPが発行する安定した主体識別子で、主キーとして一度割り当てたら変更しない。
// その他のフィールドはすべてnullableで、アップサートごとに最新値で上書きされる。
type User struct {
	Sub        string    `json:"sub"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	GivenName  string    `json:"given_name"`
	FamilyName string    `json:"family_name"`
	Picture    string    `json:"picture"`
	CreatedAt  time.Time `json:"-"`
	UpdatedAt  time.Time `json:"-"`
}

// Task はユーザーのタスクを表す。
// 削除は物理削除ではなくActiveフラグを落とすソフトデリートで行う。
type Task struct {
	ID          int64
	Description string
	Date        string // ISO-8601 日付 (YYYY-MM-DD)
	Time        string // ISO-8601 時刻 (HH:MM、秒が0の場合は省略)
	UserEmail   string
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
