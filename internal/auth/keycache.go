// Package auth はCognito IDトークンの検証、認可コードのトークン交換、
// ユーザープロフィールのアップサートを提供する。
package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/MatthewIsblind/todoList/internal/model"
)

// KeyCache はJWKS URIごとの署名検証鍵セットをキャッシュする。
// 鍵セットは初回参照時に取得し、プロセスの生存期間中は再取得しない。
// 鍵のローテーションにはプロセス再起動が必要（仕様上のスコープ外）。
type KeyCache struct {
	httpClient *http.Client

	mu   sync.RWMutex
	keys map[string]map[string]*rsa.PublicKey // jwksURI → (kid → public key)

	sf singleflight.Group
}

// Option はKeyCacheを設定する。
type Option func(*KeyCache)

// WithHTTPClient はJWKS取得に使用するHTTPクライアントを設定する。
func WithHTTPClient(c *http.Client) Option {
	return func(kc *KeyCache) { kc.httpClient = c }
}

// NewKeyCache はKeyCacheを生成する。
func NewKeyCache(opts ...Option) *KeyCache {
	kc := &KeyCache{
		httpClient: http.DefaultClient,
		keys:       make(map[string]map[string]*rsa.PublicKey),
	}
	for _, o := range opts {
		o(kc)
	}
	return kc
}

// SigningKey は指定されたJWKS URIからkidに一致するRSA公開鍵を返す。
// 未キャッシュのURIは鍵セット全体を取得してキャッシュする。
// 同一URIへの同時初回参照はsingleflightで1回の取得に集約される。
// 取得失敗またはkid不一致の場合はmodel.KeyResolutionErrorを返す。
func (kc *KeyCache) SigningKey(ctx context.Context, jwksURI, kid string) (*rsa.PublicKey, error) {
	kc.mu.RLock()
	keySet, cached := kc.keys[jwksURI]
	kc.mu.RUnlock()

	if !cached {
		result, err, _ := kc.sf.Do(jwksURI, func() (interface{}, error) {
			return kc.fetch(ctx, jwksURI)
		})
		if err != nil {
			return nil, &model.KeyResolutionError{JWKSURI: jwksURI, Err: err}
		}
		keySet = result.(map[string]*rsa.PublicKey)

		kc.mu.Lock()
		kc.keys[jwksURI] = keySet
		kc.mu.Unlock()
	}

	if key, ok := keySet[kid]; ok {
		return key, nil
	}

	// kid未指定のトークンは鍵セットが単一鍵の場合のみ許容する
	if kid == "" && len(keySet) == 1 {
		for _, key := range keySet {
			return key, nil
		}
	}

	return nil, &model.KeyResolutionError{
		JWKSURI: jwksURI,
		Err:     fmt.Errorf("key not found for kid %q", kid),
	}
}

// fetch はJWKSエンドポイントから鍵セットを取得してデコードする。
func (kc *KeyCache) fetch(ctx context.Context, jwksURI string) (map[string]*rsa.PublicKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, jwksURI, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create JWKS request: %w", err)
	}

	resp, err := kc.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch JWKS: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("JWKS endpoint returned status %d", resp.StatusCode)
	}

	var jwksResp jwksResponse
	if err := json.NewDecoder(resp.Body).Decode(&jwksResp); err != nil {
		return nil, fmt.Errorf("failed to decode JWKS response: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(jwksResp.Keys))
	for _, jwk := range jwksResp.Keys {
		if jwk.Kty != "RSA" || (jwk.Use != "" && jwk.Use != "sig") {
			continue
		}
		pub, err := jwk.rsaPublicKey()
		if err != nil {
			continue // 不正な形式の鍵はスキップする
		}
		keys[jwk.Kid] = pub
	}

	if len(keys) == 0 {
		return nil, fmt.Errorf("no valid RSA signing keys found at %s", jwksURI)
	}

	return keys, nil
}

// JWKS JSON types

type jwksResponse struct {
	Keys []jwkKey `json:"keys"`
}

type jwkKey struct {
	Kty string `json:"kty"`
	Use string `json:"use"`
	Kid string `json:"kid"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

func (k *jwkKey) rsaPublicKey() (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("decode modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("decode exponent: %w", err)
	}
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: int(new(big.Int).SetBytes(eBytes).Int64()),
	}, nil
}
