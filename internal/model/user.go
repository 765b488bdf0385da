// Package model はドメインモデルを定義する。
package model

import (
	"bytes"
	"encoding/json"
	"time"
)

// User はIdPが管理するユーザーを表す。
// GoTrueのユーザーオブジェクトをそのまま呼び出し元へ返すため、JSONタグはGoTrueの形式に合わせる。
// JSONから復元したUserは、未定義のフィールド（identitiesなど）も含めて受け取った形のまま出力する。
type User struct {
	ID               string         `json:"id"`
	Aud              string         `json:"aud,omitempty"`
	Role             string         `json:"role,omitempty"`
	Email            string         `json:"email"`
	EmailConfirmedAt *time.Time     `json:"email_confirmed_at,omitempty"`
	Phone            string         `json:"phone,omitempty"`
	LastSignInAt     *time.Time     `json:"last_sign_in_at,omitempty"`
	AppMetadata      map[string]any `json:"app_metadata,omitempty"`
	UserMetadata     map[string]any `json:"user_metadata,omitempty"`
	CreatedAt        *time.Time     `json:"created_at,omitempty"`
	UpdatedAt        *time.Time     `json:"updated_at,omitempty"`

	raw json.RawMessage
}

// userFields はUserのJSON変換でMarshalJSON/UnmarshalJSONの再帰を避けるための型。
type userFields User

// UnmarshalJSON は既知のフィールドを読み取り、元のJSONを保持する。
func (u *User) UnmarshalJSON(data []byte) error {
	if isJSONNull(data) {
		return nil
	}
	var f userFields
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*u = User(f)
	u.raw = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON はJSONから復元したUserであれば元のJSONをそのまま返す。
func (u User) MarshalJSON() ([]byte, error) {
	if len(u.raw) > 0 {
		return u.raw, nil
	}
	return json.Marshal(userFields(u))
}

// FullName はuser_metadataに保存された氏名を返す。未設定の場合は空文字列。
func (u *User) FullName() string {
	if u == nil || u.UserMetadata == nil {
		return ""
	}
	name, _ := u.UserMetadata["full_name"].(string)
	return name
}

// Session はパスワードログインで発行されるセッションを表す。
// このサービスでは永続化せず、呼び出し元へ返すのみ。
type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at,omitempty"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user"`

	raw json.RawMessage
}

// sessionFields はSessionのJSON変換で再帰を避けるための型。
type sessionFields Session

// UnmarshalJSON は既知のフィールドを読み取り、元のJSONを保持する。
func (s *Session) UnmarshalJSON(data []byte) error {
	if isJSONNull(data) {
		return nil
	}
	var f sessionFields
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*s = Session(f)
	s.raw = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON はJSONから復元したSessionであれば元のJSONをそのまま返す。
func (s Session) MarshalJSON() ([]byte, error) {
	if len(s.raw) > 0 {
		return s.raw, nil
	}
	return json.Marshal(sessionFields(s))
}

func isJSONNull(data []byte) bool {
	return bytes.Equal(bytes.TrimSpace(data), []byte("null"))
}

// Profile はサインアップ時に作成するプロフィールレコード。
// IDはIdP側のユーザーIDと一致する。
type Profile struct {
	ID       string  `json:"id"`
	Email    string  `json:"email"`
	FullName *string `json:"full_name"`
}
