package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/MatthewIsblind/todoList/internal/model"
)

// generateKey はテスト用のRSA鍵ペアを生成する。
func generateKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	return key
}

// jwksServer は指定された鍵を配信するフェイクJWKSサーバーを起動する。
// fetchCountはリクエストごとにインクリメントされる。
func jwksServer(t *testing.T, fetchCount *atomic.Int64, keys map[string]*rsa.PublicKey) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fetchCount != nil {
			fetchCount.Add(1)
		}
		var jwks []map[string]interface{}
		for kid, pub := range keys {
			jwks = append(jwks, map[string]interface{}{
				"kty": "RSA",
				"use": "sig",
				"kid": kid,
				"alg": "RS256",
				"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
			})
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"keys": jwks})
	}))
}

func TestKeyCache_SigningKey_ReturnsMatchingKey(t *testing.T) {
	key := generateKey(t)
	server := jwksServer(t, nil, map[string]*rsa.PublicKey{"key-1": &key.PublicKey})
	defer server.Close()

	kc := NewKeyCache()

	pub, err := kc.SigningKey(context.Background(), server.URL, "key-1")
	if err != nil {
		t.Fatalf("SigningKey() unexpected error: %v", err)
	}
	if pub.N.Cmp(key.PublicKey.N) != 0 {
		t.Error("returned key does not match published key")
	}
}

func TestKeyCache_SigningKey_CachesKeySetPerURI(t *testing.T) {
	key := generateKey(t)
	var fetchCount atomic.Int64
	server := jwksServer(t, &fetchCount, map[string]*rsa.PublicKey{"key-1": &key.PublicKey})
	defer server.Close()

	kc := NewKeyCache()

	for i := 0; i < 3; i++ {
		if _, err := kc.SigningKey(context.Background(), server.URL, "key-1"); err != nil {
			t.Fatalf("SigningKey() call %d unexpected error: %v", i, err)
		}
	}

	if got := fetchCount.Load(); got != 1 {
		t.Errorf("JWKS fetched %d times, want 1 (cached after first lookup)", got)
	}
}

func TestKeyCache_SigningKey_UnknownKid_ReturnsKeyResolutionError(t *testing.T) {
	key := generateKey(t)
	server := jwksServer(t, nil, map[string]*rsa.PublicKey{"key-1": &key.PublicKey})
	defer server.Close()

	kc := NewKeyCache()

	_, err := kc.SigningKey(context.Background(), server.URL, "no-such-kid")
	if err == nil {
		t.Fatal("expected error for unknown kid, got nil")
	}

	var keyErr *model.KeyResolutionError
	if !errors.As(err, &keyErr) {
		t.Errorf("error type = %T, want *model.KeyResolutionError", err)
	}
}

func TestKeyCache_SigningKey_EmptyKidSingleKey_ReturnsThatKey(t *testing.T) {
	key := generateKey(t)
	server := jwksServer(t, nil, map[string]*rsa.PublicKey{"key-1": &key.PublicKey})
	defer server.Close()

	kc := NewKeyCache()

	pub, err := kc.SigningKey(context.Background(), server.URL, "")
	if err != nil {
		t.Fatalf("SigningKey() unexpected error: %v", err)
	}
	if pub.N.Cmp(key.PublicKey.N) != 0 {
		t.Error("returned key does not match published key")
	}
}

func TestKeyCache_SigningKey_ServerError_ReturnsKeyResolutionError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	kc := NewKeyCache()

	_, err := kc.SigningKey(context.Background(), server.URL, "key-1")
	if err == nil {
		t.Fatal("expected error for failing JWKS endpoint, got nil")
	}

	var keyErr *model.KeyResolutionError
	if !errors.As(err, &keyErr) {
		t.Errorf("error type = %T, want *model.KeyResolutionError", err)
	}
}

func TestKeyCache_SigningKey_UnreachableEndpoint_ReturnsKeyResolutionError(t *testing.T) {
	kc := NewKeyCache()

	_, err := kc.SigningKey(context.Background(), "http://127.0.0.1:1/jwks.json", "key-1")
	if err == nil {
		t.Fatal("expected error for unreachable endpoint, got nil")
	}

	var keyErr *model.KeyResolutionError
	if !errors.As(err, &keyErr) {
		t.Errorf("error type = %T, want *model.KeyResolutionError", err)
	}
}
