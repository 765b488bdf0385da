package handler

import "net/http"

// indexResponse は GET / のレスポンス。
type indexResponse struct {
	Message   string         `json:"message"`
	Endpoints indexEndpoints `json:"endpoints"`
}

type indexEndpoints struct {
	AskJiji string `json:"askJiji"`
	Signup  string `json:"signup"`
	Login   string `json:"login"`
}

// Index はAPIの稼働確認と利用可能なエンドポイント一覧を返す。
// GET /
func Index(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, indexResponse{
		Message: "Learn with Jiji API is running",
		Endpoints: indexEndpoints{
			AskJiji: "POST /ask-jiji",
			Signup:  "POST /auth/signup",
			Login:   "POST /auth/login",
		},
	})
}

// Health はヘルスチェック用に {"status":"ok"} を返す。
// GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
