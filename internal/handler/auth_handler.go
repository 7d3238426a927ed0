// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/MatthewIsblind/todoList/internal/middleware"
	"github.com/MatthewIsblind/todoList/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	// VerifyToken はIDトークンを検証し、プロフィールをUPSERTしたユーザーを返す。
	VerifyToken(ctx context.Context, idToken string) (*model.User, error)
	// ExchangeCode は認可コードをトークンバンドルに交換し、
	// 得られたIDトークンの検証とプロフィールUPSERTまで行う。
	ExchangeCode(ctx context.Context, code, redirectURI string) (*model.TokenBundle, *model.User, error)
}

// AuthHandler はトークン検証・コード交換のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface) *AuthHandler {
	return &AuthHandler{service: service}
}

// verifyRequest はトークン検証リクエストのボディ。
type verifyRequest struct {
	IDToken string `json:"idToken"`
}

// exchangeRequest はコード交換リクエストのボディ。
type exchangeRequest struct {
	Code        string `json:"code"`
	RedirectURI string `json:"redirectUri"`
}

// tokensResponse はコード交換レスポンスのトークンバンドル部。
// 省略可能なフィールドは未設定の場合レスポンスに含めない。
type tokensResponse struct {
	IDToken      string `json:"idToken"`
	AccessToken  string `json:"accessToken,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
	ExpiresIn    int    `json:"expiresIn,omitempty"`
	TokenType    string `json:"tokenType,omitempty"`
}

// Verify はIDトークンを検証し、ユーザープロフィールを返す。
// POST /auth/verify
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, "request body must be valid JSON")
		return
	}
	if req.IDToken == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, "idToken is required")
		return
	}

	user, err := h.service.VerifyToken(r.Context(), req.IDToken)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":   true,
		"user": user,
	})
}

// Exchange は認可コードをトークンバンドルに交換する。
// POST /auth/exchange
func (h *AuthHandler) Exchange(w http.ResponseWriter, r *http.Request) {
	var req exchangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, "request body must be valid JSON")
		return
	}
	if req.Code == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, "code is required")
		return
	}

	tokens, user, err := h.service.ExchangeCode(r.Context(), req.Code, req.RedirectURI)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"tokens": tokensResponse{
			IDToken:      tokens.IDToken,
			AccessToken:  tokens.AccessToken,
			RefreshToken: tokens.RefreshToken,
			ExpiresIn:    tokens.ExpiresIn,
			TokenType:    tokens.TokenType,
		},
		"user": user,
	})
}

// handleAuthError は認証サービスのエラーをHTTPステータスに変換する。
// 検証失敗は401、交換失敗と入力不備は400、それ以外は詳細をログにのみ残して500を返す。
func handleAuthError(w http.ResponseWriter, r *http.Request, err error) {
	var verifyErr *model.TokenVerificationError
	if errors.As(err, &verifyErr) {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, verifyErr.Error())
		return
	}

	var exchangeErr *model.TokenExchangeError
	if errors.As(err, &exchangeErr) {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, exchangeErr.Error())
		return
	}

	var validationErr *model.ValidationError
	if errors.As(err, &validationErr) {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, validationErr.Error())
		return
	}

	slog.Error("auth request failed",
		slog.String("error", err.Error()),
		slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
	)
	middleware.WriteInternalServerError(w)
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}
