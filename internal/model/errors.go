// Package model はドメインモデルを定義する。
package model

import (
	"fmt"
	"strings"
)

// KeyResolutionError は署名検証鍵の解決失敗を表す。
// JWKSエンドポイントへの到達失敗、またはkidに一致する鍵が存在しない場合に返される。
type KeyResolutionError struct {
	JWKSURI string
	Err     error
}

// Error はerrorインターフェースを実装する。
func (e *KeyResolutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("no signing key found for the provided token: %v", e.Err)
	}
	return "no signing key found for the provided token"
}

// Unwrap はラップされた原因エラーを返す。
func (e *KeyResolutionError) Unwrap() error { return e.Err }

// TokenVerificationError はIDトークンの検証失敗を表す。
// 署名・発行者・オーディエンス・有効期限・token_useのいずれの失敗も
// 単一のエラー種別に集約し、呼び出し側に詳細区分を公開しない。
type TokenVerificationError struct {
	Message string
	Err     error
}

// Error はerrorインターフェースを実装する。
func (e *TokenVerificationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unable to verify token"
}

// Unwrap はラップされた原因エラーを返す。
func (e *TokenVerificationError) Unwrap() error { return e.Err }

// NewTokenVerificationError はTokenVerificationErrorを生成する。
func NewTokenVerificationError(message string, err error) *TokenVerificationError {
	return &TokenVerificationError{Message: message, Err: err}
}

// TokenExchangeError は認可コードのトークン交換失敗を表す。
// Detailには上流のレスポンスボディ、または安全な既定メッセージが入る。
type TokenExchangeError struct {
	Detail string
	Err    error
}

// Error はerrorインターフェースを実装する。
func (e *TokenExchangeError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return "token exchange failed"
}

// Unwrap はラップされた原因エラーを返す。
func (e *TokenExchangeError) Unwrap() error { return e.Err }

// NewRedirectURIMismatchError は許可リストにないリダイレクトURIが指定された場合の
// TokenExchangeErrorを生成する。ネットワーク呼び出し前に返される。
func NewRedirectURIMismatchError(allowed []string) *TokenExchangeError {
	return &TokenExchangeError{
		Detail: fmt.Sprintf(
			"received redirect URI does not match configured value. Expected one of: %s",
			strings.Join(allowed, ", "),
		),
	}
}

// UserInfoError はuserInfoドキュメントの取得失敗を表す。
// ベストエフォートの補完取得であり、呼び出し側はログに記録してスキップする。
type UserInfoError struct {
	Detail string
	Err    error
}

// Error はerrorインターフェースを実装する。
func (e *UserInfoError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return "failed to fetch user info"
}

// Unwrap はラップされた原因エラーを返す。
func (e *UserInfoError) Unwrap() error { return e.Err }

// ValidationError は入力値の検証失敗を表す。
// ストレージに到達する前に検出され、4xx系ステータスにマップされる。
type ValidationError struct {
	Field   string
	Message string
}

// Error はerrorインターフェースを実装する。
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// NewValidationError はValidationErrorを生成する。
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// StoreError はストレージ層の操作失敗を表す。原因エラーをラップする。
type StoreError struct {
	Op  string
	Err error
}

// Error はerrorインターフェースを実装する。
func (e *StoreError) Error() string {
	return fmt.Sprintf("store: failed to %s: %v", e.Op, e.Err)
}

// Unwrap はラップされた原因エラーを返す。
func (e *StoreError) Unwrap() error { return e.Err }

// NewStoreError はStoreErrorを生成する。
func NewStoreError(op string, err error) *StoreError {
	return &StoreError{Op: op, Err: err}
}
