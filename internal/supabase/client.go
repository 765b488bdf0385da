// Package supabase はSupabase（GoTrue認証APIとPostgREST）のHTTPクライアントを提供する。
// 公開キー（anon）と特権キー（service role）でそれぞれClientを生成して使い分ける。
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	authPath = "/auth/v1"
	restPath = "/rest/v1"

	// maxErrorBodySize はエラーレスポンスとして読み取る最大バイト数。
	maxErrorBodySize = 64 * 1024
)

// Config はClientの設定。
type Config struct {
	URL        string
	APIKey     string
	HTTPClient *http.Client // nilの場合はタイムアウト10秒のクライアントを使用する
}

// Client はSupabaseプロジェクトへのHTTPクライアント。
// 状態を持たないため、複数のgoroutineから同時に使用できる。
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient はClientを生成する。
func NewClient(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
	}
}

// Error はSupabaseが返したエラーレスポンスを表す。
type Error struct {
	Status  int
	Code    string
	Message string
}

// Error はerrorインターフェースを実装する。
func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("supabase: %s (status %d, code %s)", e.Message, e.Status, e.Code)
	}
	return fmt.Sprintf("supabase: %s (status %d)", e.Message, e.Status)
}

// errorBody はGoTrueとPostgRESTのエラーレスポンスの和集合。
type errorBody struct {
	Msg              string          `json:"msg"`
	ErrorDescription string          `json:"error_description"`
	Message          string          `json:"message"`
	Error            string          `json:"error"`
	ErrorCode        string          `json:"error_code"`
	Code             json.RawMessage `json:"code"`
}

// request は1回のAPI呼び出しの内容。
type request struct {
	method string
	path   string
	query  url.Values
	bearer string // 空の場合はAPIキーを使用する
	body   any
	header http.Header
}

// do はリクエストを送信し、2xxの場合はレスポンスボディをdestへデコードする。
// destがnilの場合はボディを読み捨てる。
func (c *Client) do(ctx context.Context, r request, dest any) error {
	endpoint := c.baseURL + r.path
	if len(r.query) > 0 {
		endpoint += "?" + r.query.Encode()
	}

	var body io.Reader
	if r.body != nil {
		b, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	bearer := r.bearer
	if bearer == "" {
		bearer = c.apiKey
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Accept", "application/json")
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range r.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s request failed: %w", r.method, r.path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseError(resp)
	}

	if dest == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("failed to parse %s response: %w", r.path, err)
	}
	return nil
}

// parseError はエラーレスポンスからErrorを組み立てる。
// メッセージはmsg、error_description、message、errorの順で最初に空でないものを採用する。
func parseError(resp *http.Response) *Error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))

	apiErr := &Error{Status: resp.StatusCode}

	var eb errorBody
	if err := json.Unmarshal(raw, &eb); err == nil {
		apiErr.Message = firstNonEmpty(eb.Msg, eb.ErrorDescription, eb.Message, eb.Error)
		apiErr.Code = eb.ErrorCode
		if apiErr.Code == "" && len(eb.Code) > 0 {
			apiErr.Code = strings.Trim(string(eb.Code), `"`)
		}
	}

	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
