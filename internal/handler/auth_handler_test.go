package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MatthewIsblind/todoList/internal/model"
)

// mockAuthService はAuthServiceInterfaceのテスト用モック。
type mockAuthService struct {
	verifyTokenFn  func(ctx context.Context, idToken string) (*model.User, error)
	exchangeCodeFn func(ctx context.Context, code, redirectURI string) (*model.TokenBundle, *model.User, error)
}

func (m *mockAuthService) VerifyToken(ctx context.Context, idToken string) (*model.User, error) {
	return m.verifyTokenFn(ctx, idToken)
}

func (m *mockAuthService) ExchangeCode(ctx context.Context, code, redirectURI string) (*model.TokenBundle, *model.User, error) {
	return m.exchangeCodeFn(ctx, code, redirectURI)
}

func testUser() *model.User {
	return &model.User{
		Sub:   "sub-001",
		Email: "alice@example.com",
		Name:  "Alice Example",
	}
}

func TestAuthHandler_Verify_Success(t *testing.T) {
	service := &mockAuthService{
		verifyTokenFn: func(ctx context.Context, idToken string) (*model.User, error) {
			if idToken != "valid-token" {
				t.Errorf("idToken = %q", idToken)
			}
			return testUser(), nil
		},
	}
	h := NewAuthHandler(service)

	req := httptest.NewRequest(http.MethodPost, "/auth/verify",
		strings.NewReader(`{"idToken":"valid-token"}`))
	rec := httptest.NewRecorder()
	h.Verify(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var body struct {
		OK   bool        `json:"ok"`
		User *model.User `json:"user"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if !body.OK || body.User == nil || body.User.Sub != "sub-001" {
		t.Errorf("body = %+v", body)
	}
}

func TestAuthHandler_Verify_InvalidToken(t *testing.T) {
	service := &mockAuthService{
		verifyTokenFn: func(ctx context.Context, idToken string) (*model.User, error) {
			return nil, model.NewTokenVerificationError("unable to verify token", nil)
		},
	}
	h := NewAuthHandler(service)

	req := httptest.NewRequest(http.MethodPost, "/auth/verify",
		strings.NewReader(`{"idToken":"bad-token"}`))
	rec := httptest.NewRecorder()
	h.Verify(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	assertErrorBody(t, rec, "unable to verify token")
}

func TestAuthHandler_Verify_MissingSubject(t *testing.T) {
	service := &mockAuthService{
		verifyTokenFn: func(ctx context.Context, idToken string) (*model.User, error) {
			return nil, model.NewValidationError("sub", "ID token payload did not include a subject identifier")
		},
	}
	h := NewAuthHandler(service)

	req := httptest.NewRequest(http.MethodPost, "/auth/verify",
		strings.NewReader(`{"idToken":"no-sub-token"}`))
	rec := httptest.NewRecorder()
	h.Verify(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestAuthHandler_Verify_BadPayload(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	for name, payload := range map[string]string{
		"not json":      `{not json`,
		"missing token": `{}`,
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/auth/verify", strings.NewReader(payload))
			rec := httptest.NewRecorder()
			h.Verify(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestAuthHandler_Verify_UnexpectedError(t *testing.T) {
	service := &mockAuthService{
		verifyTokenFn: func(ctx context.Context, idToken string) (*model.User, error) {
			return nil, model.NewStoreError("upsert user", errors.New("disk full"))
		},
	}
	h := NewAuthHandler(service)

	req := httptest.NewRequest(http.MethodPost, "/auth/verify",
		strings.NewReader(`{"idToken":"valid-token"}`))
	rec := httptest.NewRecorder()
	h.Verify(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
	// 内部詳細はレスポンスに漏れない
	if strings.Contains(rec.Body.String(), "disk full") {
		t.Errorf("internal detail leaked: %s", rec.Body.String())
	}
}

func TestAuthHandler_Exchange_Success(t *testing.T) {
	service := &mockAuthService{
		exchangeCodeFn: func(ctx context.Context, code, redirectURI string) (*model.TokenBundle, *model.User, error) {
			if code != "auth-code" || redirectURI != "https://app.example.com/callback" {
				t.Errorf("exchange args = (%q, %q)", code, redirectURI)
			}
			return &model.TokenBundle{
				IDToken:     "id-token",
				AccessToken: "access-token",
				ExpiresIn:   3600,
				TokenType:   "Bearer",
			}, testUser(), nil
		},
	}
	h := NewAuthHandler(service)

	req := httptest.NewRequest(http.MethodPost, "/auth/exchange",
		strings.NewReader(`{"code":"auth-code","redirectUri":"https://app.example.com/callback"}`))
	rec := httptest.NewRecorder()
	h.Exchange(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var body struct {
		OK     bool `json:"ok"`
		Tokens struct {
			IDToken     string `json:"idToken"`
			AccessToken string `json:"accessToken"`
			ExpiresIn   int    `json:"expiresIn"`
			TokenType   string `json:"tokenType"`
		} `json:"tokens"`
		User *model.User `json:"user"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if !body.OK || body.Tokens.IDToken != "id-token" || body.Tokens.ExpiresIn != 3600 {
		t.Errorf("body = %+v", body)
	}
	if body.User == nil || body.User.Email != "alice@example.com" {
		t.Errorf("user = %+v", body.User)
	}
}

func TestAuthHandler_Exchange_OmitsEmptyOptionalTokens(t *testing.T) {
	service := &mockAuthService{
		exchangeCodeFn: func(ctx context.Context, code, redirectURI string) (*model.TokenBundle, *model.User, error) {
			return &model.TokenBundle{IDToken: "id-token"}, testUser(), nil
		},
	}
	h := NewAuthHandler(service)

	req := httptest.NewRequest(http.MethodPost, "/auth/exchange",
		strings.NewReader(`{"code":"auth-code"}`))
	rec := httptest.NewRecorder()
	h.Exchange(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "refreshToken") {
		t.Errorf("empty optional token included: %s", rec.Body.String())
	}
}

func TestAuthHandler_Exchange_ExchangeFailure(t *testing.T) {
	service := &mockAuthService{
		exchangeCodeFn: func(ctx context.Context, code, redirectURI string) (*model.TokenBundle, *model.User, error) {
			return nil, nil, model.NewRedirectURIMismatchError([]string{"https://app.example.com/callback"})
		},
	}
	h := NewAuthHandler(service)

	req := httptest.NewRequest(http.MethodPost, "/auth/exchange",
		strings.NewReader(`{"code":"auth-code","redirectUri":"https://evil.example.com"}`))
	rec := httptest.NewRecorder()
	h.Exchange(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if !strings.Contains(rec.Body.String(), "https://app.example.com/callback") {
		t.Errorf("allowed set not named: %s", rec.Body.String())
	}
}

func TestAuthHandler_Exchange_InvalidResultingToken(t *testing.T) {
	service := &mockAuthService{
		exchangeCodeFn: func(ctx context.Context, code, redirectURI string) (*model.TokenBundle, *model.User, error) {
			return nil, nil, model.NewTokenVerificationError("unable to verify token", nil)
		},
	}
	h := NewAuthHandler(service)

	req := httptest.NewRequest(http.MethodPost, "/auth/exchange",
		strings.NewReader(`{"code":"auth-code"}`))
	rec := httptest.NewRecorder()
	h.Exchange(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestAuthHandler_Exchange_MissingCode(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	req := httptest.NewRequest(http.MethodPost, "/auth/exchange", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	h.Exchange(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

// assertErrorBody はフラットな{"error": "..."}レスポンスを検証する。
func assertErrorBody(t *testing.T, rec *httptest.ResponseRecorder, want string) {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if body["error"] != want {
		t.Errorf("error = %q, want %q", body["error"], want)
	}
}
