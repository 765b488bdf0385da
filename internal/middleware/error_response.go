package middleware

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hitoshi/jiji/internal/model"
)

// ErrorResponseBody はAPIエラーレスポンスのフォーマット。
// detailsは内部エラーの場合のみ含める。
type ErrorResponseBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// StatusCode はエラー種別に対応するHTTPステータスコードを返す。
func StatusCode(kind model.ErrorKind) int {
	switch kind {
	case model.KindValidation, model.KindProvider:
		return http.StatusBadRequest
	case model.KindUnauthorized:
		return http.StatusUnauthorized
	case model.KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// WriteErrorResponse は指定ステータスでエラーレスポンスを書き込む。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponseBody{
		Error:   apiErr.Message,
		Details: apiErr.Details,
	})
}

// WriteError はエラーをAPIErrorに変換してレスポンスを書き込む。
// APIErrorでないエラーは500とし、メッセージをerrorフィールドに入れる。
func WriteError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		apiErr = &model.APIError{Kind: model.KindInternal, Message: err.Error()}
	}
	WriteErrorResponse(w, StatusCode(apiErr.Kind), apiErr)
}

// WriteInternalServerError は"Internal server error"と原因をdetailsに入れた500を書き込む。
func WriteInternalServerError(w http.ResponseWriter, details string) {
	WriteErrorResponse(w, http.StatusInternalServerError,
		model.NewInternalError(model.MsgInternalServerError, details))
}
