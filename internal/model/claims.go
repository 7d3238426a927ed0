package model

// Claims はデコード済みIDトークンのクレームセットを表す。
// 既知のプロフィールクレームをフィールドに持ち、それ以外はExtraに透過的に保持する。
type Claims struct {
	Subject    string
	Issuer     string
	Audience   string
	TokenUse   string
	Email      string
	Name       string
	GivenName  string
	FamilyName string
	Picture    string
	Extra      map[string]any
}

// profileClaimKeys はuserInfoマージの対象となるプロフィールクレーム。
var profileClaimKeys = map[string]func(*Claims, string){
	"email":       func(c *Claims, v string) { c.Email = v },
	"name":        func(c *Claims, v string) { c.Name = v },
	"given_name":  func(c *Claims, v string) { c.GivenName = v },
	"family_name": func(c *Claims, v string) { c.FamilyName = v },
	"picture":     func(c *Claims, v string) { c.Picture = v },
}

// MergeUserInfo はuserInfoエンドポイントから取得したクレームをマージする。
// プロフィールクレームは非空の値のみ上書きし、未知のクレームはExtraに追加する。
// subはIDトークン由来の値を常に維持し、上書きしない。
func (c *Claims) MergeUserInfo(info map[string]any) {
	for key, raw := range info {
		v, ok := raw.(string)
		if !ok || v == "" {
			continue
		}
		if set, known := profileClaimKeys[key]; known {
			set(c, v)
			continue
		}
		if key == "sub" || key == "iss" || key == "aud" || key == "token_use" {
			continue
		}
		if c.Extra == nil {
			c.Extra = make(map[string]any)
		}
		c.Extra[key] = v
	}
}

// TokenBundle はトークンエンドポイントから返されるトークン一式を表す。
// IDTokenは必須で、それ以外は上流のレスポンスに含まれる場合のみ設定される。
type TokenBundle struct {
	IDToken      string `json:"id_token"`
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
}
