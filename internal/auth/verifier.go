package auth

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/MatthewIsblind/todoList/internal/model"
)

// Verifier はCognito IDトークンを検証する。
// RS256署名、発行者、オーディエンス、有効期限、token_useクレームを検証し、
// いずれの失敗も単一のmodel.TokenVerificationErrorとして返す。
type Verifier struct {
	jwksURI  string
	issuer   string
	clientID string
	keyCache *KeyCache
}

// NewVerifier はVerifierを生成する。
func NewVerifier(jwksURI, issuer, clientID string, keyCache *KeyCache) *Verifier {
	return &Verifier{
		jwksURI:  jwksURI,
		issuer:   issuer,
		clientID: clientID,
		keyCache: keyCache,
	}
}

// Verify はIDトークンを検証し、デコード済みクレームセットを返す。
// token_use != "id" のトークン（アクセストークン等）は拒否する。
// 永続化は行わない。キャッシュ参照以外の副作用を持たない。
func (v *Verifier) Verify(ctx context.Context, idToken string) (*model.Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(v.clientID),
		jwt.WithExpirationRequired(),
	)

	token, err := parser.Parse(idToken, func(token *jwt.Token) (interface{}, error) {
		kid, _ := token.Header["kid"].(string)
		return v.keyCache.SigningKey(ctx, v.jwksURI, kid)
	})
	if err != nil {
		return nil, model.NewTokenVerificationError("unable to verify token", err)
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, model.NewTokenVerificationError("unable to verify token", fmt.Errorf("invalid token claims"))
	}

	if use, _ := mapClaims["token_use"].(string); use != "id" {
		return nil, model.NewTokenVerificationError("the provided token is not an ID token", nil)
	}

	return mapToClaims(mapClaims), nil
}

// mapToClaims はjwt.MapClaimsをmodel.Claimsに変換する。
// 既知のプロフィールクレーム以外はExtraに透過的に保持する。
func mapToClaims(m jwt.MapClaims) *model.Claims {
	c := &model.Claims{
		Extra: make(map[string]any),
	}

	if v, ok := m["sub"].(string); ok {
		c.Subject = v
	}
	if v, ok := m["iss"].(string); ok {
		c.Issuer = v
	}
	if v, ok := m["aud"].(string); ok {
		c.Audience = v
	}
	if v, ok := m["token_use"].(string); ok {
		c.TokenUse = v
	}
	if v, ok := m["email"].(string); ok {
		c.Email = v
	}
	if v, ok := m["name"].(string); ok {
		c.Name = v
	}
	if v, ok := m["given_name"].(string); ok {
		c.GivenName = v
	}
	if v, ok := m["family_name"].(string); ok {
		c.FamilyName = v
	}
	if v, ok := m["picture"].(string); ok {
		c.Picture = v
	}

	known := map[string]bool{
		"sub": true, "iss": true, "aud": true, "token_use": true,
		"email": true, "name": true, "given_name": true,
		"family_name": true, "picture": true,
	}
	for k, v := range m {
		if !known[k] {
			c.Extra[k] = v
		}
	}

	return c
}
