package repository

import (
	"context"
	"time"

	"github.com/MatthewIsblind/todoList/internal/model"
)

// UserRepo はStoreを使用したユーザーリポジトリ。
type UserRepo struct {
	store *Store
}

// NewUserRepo はUserRepoを生成する。
func NewUserRepo(store *Store) *UserRepo {
	return &UserRepo{store: store}
}

// Upsert はsubをキーにユーザーを冪等にUPSERTする。
// 単一のINSERT ... ON CONFLICT文で実行するため、同一subへの並行UPSERTでも
// 部分適用は起きない。created_atは初回のみ設定し、updated_atは毎回更新する。
// 返り値はストレージから再読込せず、入力クレームから構築する。
func (r *UserRepo) Upsert(ctx context.Context, claims *model.Claims) (*model.User, error) {
	if claims.Subject == "" {
		return nil, model.NewValidationError("sub", "ID token payload did not include a subject identifier")
	}

	err := r.store.withLock(func() error {
		_, err := r.store.db.ExecContext(ctx,
			`INSERT INTO users (sub, email, name, given_name, family_name, picture, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
			 ON CONFLICT(sub) DO UPDATE SET
			     email = excluded.email,
			     name = excluded.name,
			     given_name = excluded.given_name,
			     family_name = excluded.family_name,
			     picture = excluded.picture,
			     updated_at = CURRENT_TIMESTAMP`,
			claims.Subject, claims.Email, claims.Name, claims.GivenName, claims.FamilyName, claims.Picture,
		)
		return err
	})
	if err != nil {
		return nil, model.NewStoreError("upsert user", err)
	}

	now := time.Now()
	return &model.User{
		Sub:        claims.Subject,
		Email:      claims.Email,
		Name:       claims.Name,
		GivenName:  claims.GivenName,
		FamilyName: claims.FamilyName,
		Picture:    claims.Picture,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// compile-time interface check
var _ UserRepository = (*UserRepo)(nil)
