// Package auth はメールアドレスとパスワードによるサインアップ、ログイン、
// アクセストークン検証を提供する。資格情報の保管とトークン発行は
// 外部の認証プロバイダーが担い、本パッケージはその呼び出しと結果の整形を行う。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hitoshi/jiji/internal/metrics"
	"github.com/hitoshi/jiji/internal/model"
	"github.com/hitoshi/jiji/internal/repository"
	"github.com/hitoshi/jiji/internal/supabase"
)

// 認証プロバイダーのエラーをメトリクスに記録する際の操作名。
const (
	OperationSignup = "signup"
	OperationLogin  = "login"
	OperationVerify = "verify"
)

// IdentityProvider は公開キーで呼び出す認証プロバイダー操作。
type IdentityProvider interface {
	GetUser(ctx context.Context, accessToken string) (*model.User, error)
	SignInWithPassword(ctx context.Context, email, password string) (*model.Session, error)
}

// IdentityAdmin は特権キーで呼び出す認証プロバイダー操作。
type IdentityAdmin interface {
	AdminCreateUser(ctx context.Context, attrs supabase.AdminUserAttributes) (*model.User, error)
}

// SignupInput はサインアップのリクエストボディ。
type SignupInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
}

// LoginInput はログインのリクエストボディ。
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult はログイン成功時のユーザーとセッション。
type LoginResult struct {
	User    *model.User
	Session *model.Session
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	provider    IdentityProvider
	admin       IdentityAdmin
	profileRepo repository.ProfileRepository
	metrics     metrics.MetricsCollector
	logger      *slog.Logger
}

// NewService はServiceを生成する。
func NewService(
	provider IdentityProvider,
	admin IdentityAdmin,
	profileRepo repository.ProfileRepository,
	mc metrics.MetricsCollector,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		provider:    provider,
		admin:       admin,
		profileRepo: profileRepo,
		metrics:     mc,
		logger:      logger,
	}
}

// Signup はメール確認済みのユーザーを作成し、プロフィールを作成する。
// プロフィール作成の失敗はログに記録するだけで、サインアップは成功として扱う。
func (s *Service) Signup(ctx context.Context, in SignupInput) (*model.User, error) {
	if in.Email == "" || in.Password == "" {
		return nil, model.NewValidationError(model.MsgCredentialsRequired)
	}

	attrs := supabase.AdminUserAttributes{
		Email:        in.Email,
		Password:     in.Password,
		EmailConfirm: true,
	}
	if in.FullName != "" {
		attrs.UserMetadata = map[string]any{"full_name": in.FullName}
	}
	user, err := s.admin.AdminCreateUser(ctx, attrs)
	if err != nil {
		return nil, s.providerError(ctx, OperationSignup, err)
	}

	// プロバイダーが正規化したメールアドレスを優先する
	email := user.Email
	if email == "" {
		email = in.Email
	}
	profile := &model.Profile{ID: user.ID, Email: email}
	if in.FullName != "" {
		fullName := in.FullName
		profile.FullName = &fullName
	}
	if err := s.profileRepo.Create(ctx, profile); err != nil {
		s.logger.WarnContext(ctx, "failed to create profile",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		if s.metrics != nil {
			s.metrics.RecordProfileCreateFailure()
		}
	}

	s.logger.InfoContext(ctx, "user signed up",
		slog.String("user_id", user.ID),
		slog.String("email", email),
	)
	return user, nil
}

// Login はパスワードでログインし、ユーザーとセッションを返す。
func (s *Service) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	if in.Email == "" || in.Password == "" {
		return nil, model.NewValidationError(model.MsgCredentialsRequired)
	}

	session, err := s.provider.SignInWithPassword(ctx, in.Email, in.Password)
	if err != nil {
		return nil, s.providerError(ctx, OperationLogin, err)
	}

	return &LoginResult{User: session.User, Session: session}, nil
}

// VerifyToken はアクセストークンを検証し、トークンの持ち主を返す。
// 検証に失敗した場合はすべてUnauthorizedとして扱う。
func (s *Service) VerifyToken(ctx context.Context, accessToken string) (*model.User, error) {
	user, err := s.provider.GetUser(ctx, accessToken)
	if err != nil {
		var perr *supabase.Error
		if errors.As(err, &perr) && s.metrics != nil {
			s.metrics.RecordProviderError(OperationVerify)
		}
		s.logger.DebugContext(ctx, "token verification failed", slog.String("error", err.Error()))
		return nil, model.NewUnauthorizedError(model.MsgInvalidToken)
	}
	if user == nil {
		return nil, model.NewUnauthorizedError(model.MsgInvalidToken)
	}
	return user, nil
}

// providerError はプロバイダーが返したエラーを400で返すAPIErrorに変換する。
// 通信エラーなどプロバイダーの応答ではないものはそのままラップして返す。
func (s *Service) providerError(ctx context.Context, operation string, err error) error {
	var perr *supabase.Error
	if !errors.As(err, &perr) {
		return fmt.Errorf("%s request to identity provider failed: %w", operation, err)
	}

	if s.metrics != nil {
		s.metrics.RecordProviderError(operation)
	}
	s.logger.InfoContext(ctx, "identity provider rejected request",
		slog.String("operation", operation),
		slog.Int("status", perr.Status),
		slog.String("code", perr.Code),
	)
	return model.NewProviderError(perr.Message)
}
