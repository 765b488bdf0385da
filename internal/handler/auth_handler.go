// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/jiji/internal/auth"
	"github.com/hitoshi/jiji/internal/middleware"
	"github.com/hitoshi/jiji/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Signup(ctx context.Context, in auth.SignupInput) (*model.User, error)
	Login(ctx context.Context, in auth.LoginInput) (*auth.LoginResult, error)
}

// AuthHandler はサインアップとログインのHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface) *AuthHandler {
	return &AuthHandler{service: service}
}

type signupResponse struct {
	Message string      `json:"message"`
	User    *model.User `json:"user"`
}

type loginResponse struct {
	Message     string         `json:"message"`
	User        *model.User    `json:"user"`
	Session     *model.Session `json:"session"`
	AccessToken string         `json:"access_token"`
}

// Signup はメールアドレスとパスワードでユーザーを作成する。
// POST /auth/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var in auth.SignupInput
	if err := decodeBody(w, r, &in); err != nil {
		// 不正なJSONは空入力として扱い、必須項目エラーにする
		in = auth.SignupInput{}
	}

	user, err := h.service.Signup(r.Context(), in)
	if err != nil {
		writeAuthError(w, r, "signup", err)
		return
	}

	writeJSON(w, http.StatusOK, signupResponse{
		Message: "User created successfully. You can now login.",
		User:    user,
	})
}

// Login はパスワードでログインし、セッションを返す。
// access_tokenはsession内と同じ値をトップレベルにも含める。
// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var in auth.LoginInput
	if err := decodeBody(w, r, &in); err != nil {
		in = auth.LoginInput{}
	}

	result, err := h.service.Login(r.Context(), in)
	if err != nil {
		writeAuthError(w, r, "login", err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Message:     "Login successful",
		User:        result.User,
		Session:     result.Session,
		AccessToken: result.Session.AccessToken,
	})
}

// writeAuthError は認証系エラーを書き込む。
// 想定外のエラーは {"error": <message>} の500とする。
func writeAuthError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		slog.ErrorContext(r.Context(), operation+" failed", slog.String("error", err.Error()))
	}
	middleware.WriteError(w, err)
}
