package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/jiji/internal/ask"
	"github.com/hitoshi/jiji/internal/middleware"
	"github.com/hitoshi/jiji/internal/model"
	"github.com/hitoshi/jiji/internal/security"
)

// AskServiceInterface は質問ハンドラーが必要とするサービスインターフェース。
type AskServiceInterface interface {
	Ask(ctx context.Context, userID, query string) (*ask.Result, error)
}

// AskHandler は質問応答のHTTPハンドラー。
type AskHandler struct {
	service   AskServiceInterface
	sanitizer security.DescriptionSanitizer
}

// NewAskHandler はAskHandlerを生成する。
func NewAskHandler(service AskServiceInterface, sanitizer security.DescriptionSanitizer) *AskHandler {
	return &AskHandler{service: service, sanitizer: sanitizer}
}

type askRequest struct {
	Query json.RawMessage `json:"query"`
}

type askResponse struct {
	Query     string             `json:"query"`
	Answer    string             `json:"answer"`
	Resources []resourceResponse `json:"resources"`
}

type resourceResponse struct {
	ID          model.ResourceID `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Type        string           `json:"type"`
	URL         string           `json:"url"`
}

// Ask は質問に回答し、関連する学習リソースを返す。
// POST /ask-jiji
func (h *AskHandler) Ask(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.UserFromContext(r.Context())
	if err != nil {
		middleware.WriteError(w, model.NewUnauthorizedError(model.MsgInvalidToken))
		return
	}

	query, ok := parseQuery(w, r)
	if !ok {
		middleware.WriteError(w, model.NewValidationError(model.MsgQueryRequired))
		return
	}

	result, err := h.service.Ask(r.Context(), user.ID, query)
	if err != nil {
		slog.ErrorContext(r.Context(), "ask failed",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		middleware.WriteInternalServerError(w, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, h.toAskResponse(result))
}

// parseQuery はボディのqueryが空白以外を含む文字列であるときに限りその値を返す。
// 返す値はトリムしない。
func parseQuery(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req askRequest
	if err := decodeBody(w, r, &req); err != nil || len(req.Query) == 0 {
		return "", false
	}

	var query string
	if err := json.Unmarshal(req.Query, &query); err != nil {
		return "", false
	}
	if strings.TrimSpace(query) == "" {
		return "", false
	}
	return query, true
}

func (h *AskHandler) toAskResponse(result *ask.Result) askResponse {
	resources := make([]resourceResponse, len(result.Resources))
	for i, res := range result.Resources {
		description := res.Description
		if h.sanitizer != nil {
			description = h.sanitizer.Sanitize(description)
		}
		resources[i] = resourceResponse{
			ID:          res.ID,
			Title:       res.Title,
			Description: description,
			Type:        res.Type,
			URL:         res.FileURL,
		}
	}
	return askResponse{
		Query:     result.Query,
		Answer:    result.Answer,
		Resources: resources,
	}
}
