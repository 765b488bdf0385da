package auth

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/jiji/internal/model"
	"github.com/hitoshi/jiji/internal/supabase"
)

// --- モック定義 ---

type mockProvider struct {
	getUserFn func(ctx context.Context, token string) (*model.User, error)
	signInFn  func(ctx context.Context, email, password string) (*model.Session, error)
}

func (m *mockProvider) GetUser(ctx context.Context, token string) (*model.User, error) {
	return m.getUserFn(ctx, token)
}

func (m *mockProvider) SignInWithPassword(ctx context.Context, email, password string) (*model.Session, error) {
	return m.signInFn(ctx, email, password)
}

type mockAdmin struct {
	createFn func(ctx context.Context, attrs supabase.AdminUserAttributes) (*model.User, error)
	calls    int
}

func (m *mockAdmin) AdminCreateUser(ctx context.Context, attrs supabase.AdminUserAttributes) (*model.User, error) {
	m.calls++
	return m.createFn(ctx, attrs)
}

type mockProfileRepo struct {
	createFn func(ctx context.Context, p *model.Profile) error
	created  []*model.Profile
}

func (m *mockProfileRepo) Create(ctx context.Context, p *model.Profile) error {
	m.created = append(m.created, p)
	if m.createFn != nil {
		return m.createFn(ctx, p)
	}
	return nil
}

type mockMetrics struct {
	profileFailures int
	providerErrors  []string
}

func (m *mockMetrics) RecordHTTPRequest(method, route string, status int, duration time.Duration) {}
func (m *mockMetrics) RecordAsk(resourceCount int) {}
func (m *mockMetrics) RecordResourceSearchFailure() {}
func (m *mockMetrics) RecordQueryPersistFailure() {}
func (m *mockMetrics) RecordProfileCreateFailure() {
	m.profileFailures++
}
func (m *mockMetrics) RecordProviderError(operation string) {
	m.providerErrors = append(m.providerErrors, operation)
}

func newTestService(p *mockProvider, a *mockAdmin, r *mockProfileRepo, mc *mockMetrics, buf *bytes.Buffer) *Service {
	return NewService(p, a, r, mc, slog.New(slog.NewJSONHandler(buf, nil)))
}

func assertAPIError(t *testing.T, err error, kind model.ErrorKind, message string) {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError, got %T: %v", err, err)
	}
	if apiErr.Kind != kind {
		t.Errorf("Kind = %q, want %q", apiErr.Kind, kind)
	}
	if apiErr.Message != message {
		t.Errorf("Message = %q, want %q", apiErr.Message, message)
	}
}

func TestSignup_Validation(t *testing.T) {
	tests := []struct {
		name string
		in   SignupInput
	}{
		{"パスワードなし", SignupInput{Email: "a@example.com"}},
		{"メールなし", SignupInput{Password: "secret"}},
		{"両方なし", SignupInput{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			admin := &mockAdmin{}
			svc := newTestService(&mockProvider{}, admin, &mockProfileRepo{}, &mockMetrics{}, &bytes.Buffer{})

			_, err := svc.Signup(context.Background(), tt.in)
			assertAPIError(t, err, model.KindValidation, "Email and password are required")
			if admin.calls != 0 {
				t.Error("provider should not be called on validation failure")
			}
		})
	}
}

func TestSignup_Success(t *testing.T) {
	var gotAttrs supabase.AdminUserAttributes
	admin := &mockAdmin{
		createFn: func(ctx context.Context, attrs supabase.AdminUserAttributes) (*model.User, error) {
			gotAttrs = attrs
			return &model.User{ID: "user-1", Email: attrs.Email}, nil
		},
	}
	repo := &mockProfileRepo{}
	svc := newTestService(&mockProvider{}, admin, repo, &mockMetrics{}, &bytes.Buffer{})

	user, err := svc.Signup(context.Background(), SignupInput{
		Email: "a@example.com", Password: "secret", FullName: "Ada Lovelace",
	})
	if err != nil {
		t.Fatalf("Signup returned error: %v", err)
	}
	if user.ID != "user-1" {
		t.Errorf("user.ID = %q, want user-1", user.ID)
	}
	if !gotAttrs.EmailConfirm {
		t.Error("user should be created with email_confirm=true")
	}
	if gotAttrs.UserMetadata["full_name"] != "Ada Lovelace" {
		t.Errorf("user_metadata = %v", gotAttrs.UserMetadata)
	}

	if len(repo.created) != 1 {
		t.Fatalf("expected 1 profile, got %d", len(repo.created))
	}
	p := repo.created[0]
	if p.ID != "user-1" || p.Email != "a@example.com" || p.FullName == nil || *p.FullName != "Ada Lovelace" {
		t.Errorf("unexpected profile: %+v", p)
	}
}

func TestSignup_WithoutFullName(t *testing.T) {
	var gotAttrs supabase.AdminUserAttributes
	admin := &mockAdmin{
		createFn: func(ctx context.Context, attrs supabase.AdminUserAttributes) (*model.User, error) {
			gotAttrs = attrs
			return &model.User{ID: "user-2"}, nil
		},
	}
	repo := &mockProfileRepo{}
	svc := newTestService(&mockProvider{}, admin, repo, &mockMetrics{}, &bytes.Buffer{})

	if _, err := svc.Signup(context.Background(), SignupInput{Email: "b@example.com", Password: "pw"}); err != nil {
		t.Fatalf("Signup returned error: %v", err)
	}
	if gotAttrs.UserMetadata != nil {
		t.Errorf("user_metadata should be omitted, got %v", gotAttrs.UserMetadata)
	}
	if repo.created[0].FullName != nil {
		t.Errorf("full_name should be nil, got %q", *repo.created[0].FullName)
	}
	// プロバイダーの応答にメールがない場合は入力値を使う
	if repo.created[0].Email != "b@example.com" {
		t.Errorf("profile email = %q, want b@example.com", repo.created[0].Email)
	}
}

func TestSignup_ProfileUsesProviderEmail(t *testing.T) {
	admin := &mockAdmin{
		createFn: func(ctx context.Context, attrs supabase.AdminUserAttributes) (*model.User, error) {
			return &model.User{ID: "user-3", Email: strings.ToLower(attrs.Email)}, nil
		},
	}
	repo := &mockProfileRepo{}
	svc := newTestService(&mockProvider{}, admin, repo, &mockMetrics{}, &bytes.Buffer{})

	if _, err := svc.Signup(context.Background(), SignupInput{Email: "Ada@Example.COM", Password: "pw"}); err != nil {
		t.Fatalf("Signup returned error: %v", err)
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected 1 profile, got %d", len(repo.created))
	}
	if got := repo.created[0].Email; got != "ada@example.com" {
		t.Errorf("profile email = %q, want provider email ada@example.com", got)
	}
}

func TestSignup_ProviderError(t *testing.T) {
	admin := &mockAdmin{
		createFn: func(ctx context.Context, attrs supabase.AdminUserAttributes) (*model.User, error) {
			return nil, &supabase.Error{Status: 422, Code: "email_exists", Message: "A user with this email address has already been registered"}
		},
	}
	repo := &mockProfileRepo{}
	mc := &mockMetrics{}
	svc := newTestService(&mockProvider{}, admin, repo, mc, &bytes.Buffer{})

	_, err := svc.Signup(context.Background(), SignupInput{Email: "a@example.com", Password: "secret"})
	assertAPIError(t, err, model.KindProvider, "A user with this email address has already been registered")

	if len(repo.created) != 0 {
		t.Error("profile should not be created when signup fails")
	}
	if len(mc.providerErrors) != 1 || mc.providerErrors[0] != OperationSignup {
		t.Errorf("provider errors = %v, want [signup]", mc.providerErrors)
	}
}

func TestSignup_TransportErrorIsNotProviderError(t *testing.T) {
	admin := &mockAdmin{
		createFn: func(ctx context.Context, attrs supabase.AdminUserAttributes) (*model.User, error) {
			return nil, errors.New("dial tcp: connection refused")
		},
	}
	svc := newTestService(&mockProvider{}, admin, &mockProfileRepo{}, &mockMetrics{}, &bytes.Buffer{})

	_, err := svc.Signup(context.Background(), SignupInput{Email: "a@example.com", Password: "secret"})
	if err == nil {
		t.Fatal("expected error")
	}
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		t.Errorf("transport error should not be an APIError, got %v", apiErr)
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("error should wrap the cause, got %v", err)
	}
}

func TestSignup_ProfileFailureIsNonFatal(t *testing.T) {
	admin := &mockAdmin{
		createFn: func(ctx context.Context, attrs supabase.AdminUserAttributes) (*model.User, error) {
			return &model.User{ID: "user-1"}, nil
		},
	}
	repo := &mockProfileRepo{
		createFn: func(ctx context.Context, p *model.Profile) error {
			return errors.New("duplicate key")
		},
	}
	mc := &mockMetrics{}
	var logBuf bytes.Buffer
	svc := newTestService(&mockProvider{}, admin, repo, mc, &logBuf)

	user, err := svc.Signup(context.Background(), SignupInput{Email: "a@example.com", Password: "secret"})
	if err != nil {
		t.Fatalf("profile failure should not fail signup: %v", err)
	}
	if user == nil || user.ID != "user-1" {
		t.Errorf("unexpected user: %+v", user)
	}
	if mc.profileFailures != 1 {
		t.Errorf("profile failures = %d, want 1", mc.profileFailures)
	}
	if !strings.Contains(logBuf.String(), "failed to create profile") {
		t.Errorf("expected warning log, got %s", logBuf.String())
	}
	if strings.Contains(logBuf.String(), "secret") {
		t.Error("password must not be logged")
	}
}

func TestLogin_Validation(t *testing.T) {
	svc := newTestService(&mockProvider{}, &mockAdmin{}, &mockProfileRepo{}, &mockMetrics{}, &bytes.Buffer{})

	_, err := svc.Login(context.Background(), LoginInput{Email: "a@example.com"})
	assertAPIError(t, err, model.KindValidation, "Email and password are required")
}

func TestLogin_Success(t *testing.T) {
	provider := &mockProvider{
		signInFn: func(ctx context.Context, email, password string) (*model.Session, error) {
			if email != "a@example.com" || password != "secret" {
				t.Errorf("unexpected credentials: %s / %s", email, password)
			}
			return &model.Session{
				AccessToken: "token-abc",
				TokenType:   "bearer",
				User:        &model.User{ID: "user-1"},
			}, nil
		},
	}
	svc := newTestService(provider, &mockAdmin{}, &mockProfileRepo{}, &mockMetrics{}, &bytes.Buffer{})

	result, err := svc.Login(context.Background(), LoginInput{Email: "a@example.com", Password: "secret"})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if result.Session.AccessToken != "token-abc" {
		t.Errorf("access token = %q", result.Session.AccessToken)
	}
	if result.User == nil || result.User.ID != "user-1" {
		t.Errorf("unexpected user: %+v", result.User)
	}
}

func TestLogin_ProviderError(t *testing.T) {
	provider := &mockProvider{
		signInFn: func(ctx context.Context, email, password string) (*model.Session, error) {
			return nil, &supabase.Error{Status: 400, Code: "invalid_credentials", Message: "Invalid login credentials"}
		},
	}
	mc := &mockMetrics{}
	svc := newTestService(provider, &mockAdmin{}, &mockProfileRepo{}, mc, &bytes.Buffer{})

	_, err := svc.Login(context.Background(), LoginInput{Email: "a@example.com", Password: "wrong"})
	assertAPIError(t, err, model.KindProvider, "Invalid login credentials")
	if len(mc.providerErrors) != 1 || mc.providerErrors[0] != OperationLogin {
		t.Errorf("provider errors = %v, want [login]", mc.providerErrors)
	}
}

func TestVerifyToken(t *testing.T) {
	t.Run("有効なトークン", func(t *testing.T) {
		provider := &mockProvider{
			getUserFn: func(ctx context.Context, token string) (*model.User, error) {
				return &model.User{ID: "user-1"}, nil
			},
		}
		svc := newTestService(provider, &mockAdmin{}, &mockProfileRepo{}, &mockMetrics{}, &bytes.Buffer{})

		user, err := svc.VerifyToken(context.Background(), "good")
		if err != nil {
			t.Fatalf("VerifyToken returned error: %v", err)
		}
		if user.ID != "user-1" {
			t.Errorf("user.ID = %q", user.ID)
		}
	})

	t.Run("プロバイダーが拒否", func(t *testing.T) {
		provider := &mockProvider{
			getUserFn: func(ctx context.Context, token string) (*model.User, error) {
				return nil, &supabase.Error{Status: 401, Message: "invalid JWT"}
			},
		}
		mc := &mockMetrics{}
		svc := newTestService(provider, &mockAdmin{}, &mockProfileRepo{}, mc, &bytes.Buffer{})

		_, err := svc.VerifyToken(context.Background(), "bad")
		assertAPIError(t, err, model.KindUnauthorized, "Invalid or expired token")
		if len(mc.providerErrors) != 1 || mc.providerErrors[0] != OperationVerify {
			t.Errorf("provider errors = %v, want [verify]", mc.providerErrors)
		}
	})

	t.Run("通信エラーも401", func(t *testing.T) {
		provider := &mockProvider{
			getUserFn: func(ctx context.Context, token string) (*model.User, error) {
				return nil, context.DeadlineExceeded
			},
		}
		svc := newTestService(provider, &mockAdmin{}, &mockProfileRepo{}, &mockMetrics{}, &bytes.Buffer{})

		_, err := svc.VerifyToken(context.Background(), "slow")
		assertAPIError(t, err, model.KindUnauthorized, "Invalid or expired token")
	})

	t.Run("ユーザーがnil", func(t *testing.T) {
		provider := &mockProvider{
			getUserFn: func(ctx context.Context, token string) (*model.User, error) {
				return nil, nil
			},
		}
		svc := newTestService(provider, &mockAdmin{}, &mockProfileRepo{}, &mockMetrics{}, &bytes.Buffer{})

		_, err := svc.VerifyToken(context.Background(), "empty")
		assertAPIError(t, err, model.KindUnauthorized, "Invalid or expired token")
	})
}
