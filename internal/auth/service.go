package auth

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/MatthewIsblind/todoList/internal/model"
)

// TokenVerifier はIDトークン検証のインターフェース。
type TokenVerifier interface {
	// Verify はIDトークンを検証し、デコード済みクレームセットを返す。
	Verify(ctx context.Context, idToken string) (*model.Claims, error)
}

// CodeExchanger は認可コード交換とuserInfo取得のインターフェース。
type CodeExchanger interface {
	// Exchange は認可コードをトークン一式に交換する。
	Exchange(ctx context.Context, code, redirectURI string) (*model.TokenBundle, error)
	// FetchUserInfo はアクセストークンでuserInfoドキュメントを取得する。
	FetchUserInfo(ctx context.Context, accessToken string) (map[string]any, error)
}

// UserUpserter はユーザープロフィール永続化のインターフェース。
type UserUpserter interface {
	// Upsert はクレームセットからユーザーを冪等にUPSERTする。
	Upsert(ctx context.Context, claims *model.Claims) (*model.User, error)
}

// Collector は認証フローのメトリクス記録のインターフェース。
type Collector interface {
	RecordTokenVerification(ok bool)
	RecordCodeExchange(ok bool)
	RecordUserUpsert()
}

// Service はトークン検証・コード交換からプロフィール永続化までの
// 認証パイプラインを提供する。
type Service struct {
	verifier  TokenVerifier
	exchanger CodeExchanger
	users     UserUpserter
	collector Collector
}

// NewService はServiceを生成する。
func NewService(verifier TokenVerifier, exchanger CodeExchanger, users UserUpserter, collector Collector) *Service {
	return &Service{
		verifier:  verifier,
		exchanger: exchanger,
		users:     users,
		collector: collector,
	}
}

// VerifyToken はIDトークンを検証し、クレームからユーザープロフィールをUPSERTする。
// 検証失敗はmodel.TokenVerificationError、sub欠落はmodel.ValidationErrorとして返す。
func (s *Service) VerifyToken(ctx context.Context, idToken string) (*model.User, error) {
	claims, err := s.verifier.Verify(ctx, idToken)
	if err != nil {
		s.collector.RecordTokenVerification(false)
		return nil, err
	}
	s.collector.RecordTokenVerification(true)

	user, err := s.users.Upsert(ctx, claims)
	if err != nil {
		return nil, err
	}
	s.collector.RecordUserUpsert()

	return user, nil
}

// ExchangeCode は認可コードをトークン一式に交換し、得られたIDトークンを検証して
// ユーザープロフィールをUPSERTする。
// アクセストークンが含まれる場合はuserInfoを補完取得してクレームにマージするが、
// この取得はベストエフォートであり、失敗してもログに記録してスキップするのみで
// 交換フロー全体は失敗させない。
func (s *Service) ExchangeCode(ctx context.Context, code, redirectURI string) (*model.TokenBundle, *model.User, error) {
	bundle, err := s.exchanger.Exchange(ctx, code, redirectURI)
	if err != nil {
		s.collector.RecordCodeExchange(false)
		return nil, nil, err
	}
	s.collector.RecordCodeExchange(true)

	claims, err := s.verifier.Verify(ctx, bundle.IDToken)
	if err != nil {
		s.collector.RecordTokenVerification(false)
		return nil, nil, err
	}
	s.collector.RecordTokenVerification(true)

	if bundle.AccessToken != "" {
		info, err := s.exchanger.FetchUserInfo(ctx, bundle.AccessToken)
		if err != nil {
			slog.Warn("userInfo fetch failed, skipping profile merge",
				slog.String("error", err.Error()),
			)
		} else {
			// 値はPIIを含みうるためログにはクレームのキーのみを記録する
			slog.Info("merging userInfo claims",
				slog.String("claims", fmt.Sprintf("%v", claimKeys(info))),
			)
			claims.MergeUserInfo(info)
		}
	}

	user, err := s.users.Upsert(ctx, claims)
	if err != nil {
		return nil, nil, err
	}
	s.collector.RecordUserUpsert()

	return bundle, user, nil
}

// claimKeys はクレームマップのキーをソートして返す。
func claimKeys(info map[string]any) []string {
	keys := make([]string, 0, len(info))
	for k := range info {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
