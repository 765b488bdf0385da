package supabase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/hitoshi/jiji/internal/model"
)

// ErrEmptyAccessToken はGetUserに空のアクセストークンが渡された場合に返される。
var ErrEmptyAccessToken = errors.New("supabase: access token is empty")

// AdminUserAttributes は管理APIでユーザーを作成する際の属性。
type AdminUserAttributes struct {
	Email        string         `json:"email"`
	Password     string         `json:"password"`
	EmailConfirm bool           `json:"email_confirm"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
}

// GetUser はアクセストークンを検証し、トークンの持ち主を返す。
// GET /auth/v1/user
// 空のトークンはAPIキーでの呼び出しにすり替わるため、リクエストを送らずに拒否する。
func (c *Client) GetUser(ctx context.Context, accessToken string) (*model.User, error) {
	if accessToken == "" {
		return nil, ErrEmptyAccessToken
	}

	var user model.User
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   authPath + "/user",
		bearer: accessToken,
	}, &user)
	if err != nil {
		return nil, err
	}
	if user.ID == "" {
		return nil, fmt.Errorf("empty user in response")
	}
	return &user, nil
}

// SignInWithPassword はメールアドレスとパスワードでログインし、セッションを返す。
// POST /auth/v1/token?grant_type=password
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*model.Session, error) {
	var session model.Session
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   authPath + "/token",
		query:  url.Values{"grant_type": {"password"}},
		body: map[string]string{
			"email":    email,
			"password": password,
		},
	}, &session)
	if err != nil {
		return nil, err
	}
	if session.AccessToken == "" {
		return nil, fmt.Errorf("empty access token in response")
	}
	return &session, nil
}

// AdminCreateUser は特権キーでユーザーを作成する。
// EmailConfirmをtrueにするとメール確認を済ませた状態で作成される。
// POST /auth/v1/admin/users
func (c *Client) AdminCreateUser(ctx context.Context, attrs AdminUserAttributes) (*model.User, error) {
	var user model.User
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   authPath + "/admin/users",
		body:   attrs,
	}, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}
