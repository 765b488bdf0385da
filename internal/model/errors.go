package model

import "fmt"

// ErrorKind はAPIエラーの分類。HTTPステータスへのマッピングに使用する。
type ErrorKind string

const (
	KindValidation   ErrorKind = "validation"
	KindUnauthorized ErrorKind = "unauthorized"
	KindProvider     ErrorKind = "provider"
	KindRateLimited  ErrorKind = "rate_limited"
	KindInternal     ErrorKind = "internal"
)

// APIError はクライアントへ返すエラーを表す。
// Messageはレスポンスのerrorフィールド、Detailsはdetailsフィールドに対応する。
type APIError struct {
	Kind    ErrorKind
	Message string
	Details string
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Kind, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// 定義済みメッセージ
const (
	MsgCredentialsRequired = "Email and password are required"
	MsgQueryRequired       = "Query is required and must be a non-empty string"
	MsgMissingAuthHeader   = "Missing or invalid authorization header"
	MsgInvalidToken        = "Invalid or expired token"
	MsgTooManyRequests     = "Too many requests. Please try again later."
	MsgInternalServerError = "Internal server error"
)

// NewValidationError は入力検証エラーを生成する。
func NewValidationError(message string) *APIError {
	return &APIError{Kind: KindValidation, Message: message}
}

// NewUnauthorizedError は認証エラーを生成する。
func NewUnauthorizedError(message string) *APIError {
	return &APIError{Kind: KindUnauthorized, Message: message}
}

// NewProviderError はIdPやストレージが返したエラーメッセージをそのまま保持するエラーを生成する。
func NewProviderError(message string) *APIError {
	return &APIError{Kind: KindProvider, Message: message}
}

// NewRateLimitedError はレート制限超過エラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{Kind: KindRateLimited, Message: MsgTooManyRequests}
}

// NewInternalError は想定外エラーを生成する。detailsには元の例外メッセージを入れる。
func NewInternalError(message, details string) *APIError {
	return &APIError{Kind: KindInternal, Message: message, Details: details}
}
