package handler

import (
	"encoding/json"
	"io"
	"net/http"
)

// maxBodyBytes はリクエストボディの上限。
const maxBodyBytes = 100 << 10

// writeJSON はステータスコードとJSONボディを書き込む。
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// decodeBody はJSONボディをdstへデコードする。空ボディはエラーとしない。
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(body).Decode(dst)
	if err == io.EOF {
		return nil
	}
	return err
}
