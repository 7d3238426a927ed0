package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MatthewIsblind/todoList/internal/model"
)

// ExchangerConfig はExchangerの設定。
type ExchangerConfig struct {
	ClientID     string
	ClientSecret string // 空の場合はBasic認証を付与しない
	RedirectURIs []string

	// テスト用にオーバーライド可能なURL
	TokenURL    string
	UserInfoURL string

	Timeout time.Duration
}

// Exchanger は認可コードのトークン交換とuserInfo取得を提供する。
type Exchanger struct {
	config     ExchangerConfig
	httpClient *http.Client
}

// NewExchanger はExchangerを生成する。
func NewExchanger(config ExchangerConfig) *Exchanger {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Exchanger{
		config:     config,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Exchange は認可コードをトークン一式に交換する。
// redirectURIが空の場合は設定リスト先頭のデフォルトを使用する。
// 実効リダイレクトURIが許可リストにない場合はネットワーク呼び出しを行わず、
// 許可リストを列挙したmodel.TokenExchangeErrorを返す。
func (e *Exchanger) Exchange(ctx context.Context, code, redirectURI string) (*model.TokenBundle, error) {
	redirectTarget := redirectURI
	if redirectTarget == "" {
		redirectTarget = e.config.RedirectURIs[0]
	}

	if !e.allowsRedirectURI(redirectTarget) {
		return nil, model.NewRedirectURIMismatchError(e.config.RedirectURIs)
	}

	form := url.Values{
		"grant_type":   {"authorization_code"},
		"client_id":    {e.config.ClientID},
		"code":         {code},
		"redirect_uri": {redirectTarget},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.config.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &model.TokenExchangeError{Detail: "failed to create token request", Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if e.config.ClientSecret != "" {
		req.SetBasicAuth(e.config.ClientID, e.config.ClientSecret)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, &model.TokenExchangeError{Detail: "unable to reach token endpoint", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &model.TokenExchangeError{Detail: "failed to read token response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := strings.TrimSpace(string(body))
		if detail == "" {
			detail = fmt.Sprintf("token request failed with status %d", resp.StatusCode)
		}
		return nil, &model.TokenExchangeError{
			Detail: fmt.Sprintf("token request failed: %s", detail),
		}
	}

	var bundle model.TokenBundle
	if err := json.Unmarshal(body, &bundle); err != nil {
		return nil, &model.TokenExchangeError{Detail: "token response was not valid JSON", Err: err}
	}

	if bundle.IDToken == "" {
		return nil, &model.TokenExchangeError{Detail: "token response did not include an id_token"}
	}

	return &bundle, nil
}

// FetchUserInfo はアクセストークンでuserInfoドキュメントを取得する。
// 失敗はmodel.UserInfoErrorとして返す。呼び出し側はベストエフォートとして扱い、
// 失敗しても交換フロー全体を中断しない。
func (e *Exchanger) FetchUserInfo(ctx context.Context, accessToken string) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.config.UserInfoURL, nil)
	if err != nil {
		return nil, &model.UserInfoError{Detail: "failed to create userInfo request", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, &model.UserInfoError{Detail: "unable to reach userInfo endpoint", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &model.UserInfoError{Detail: "failed to read userInfo response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &model.UserInfoError{
			Detail: fmt.Sprintf("userInfo request failed with status %d", resp.StatusCode),
		}
	}

	var info map[string]any
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, &model.UserInfoError{Detail: "userInfo response was not valid JSON", Err: err}
	}

	return info, nil
}

func (e *Exchanger) allowsRedirectURI(uri string) bool {
	for _, allowed := range e.config.RedirectURIs {
		if allowed == uri {
			return true
		}
	}
	return false
}
