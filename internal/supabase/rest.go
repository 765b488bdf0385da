package supabase

import (
	"context"
	"net/http"
	"net/url"
)

// Select はPostgRESTでテーブルを検索し、結果をdestへデコードする。
// queryにはselectやフィルタ（or=(...)等）をそのまま指定する。
// GET /rest/v1/{table}
func (c *Client) Select(ctx context.Context, table string, query url.Values, dest any) error {
	return c.do(ctx, request{
		method: http.MethodGet,
		path:   restPath + "/" + table,
		query:  query,
	}, dest)
}

// Insert はPostgRESTでテーブルに1行挿入する。レスポンスボディは要求しない。
// POST /rest/v1/{table}
func (c *Client) Insert(ctx context.Context, table string, row any) error {
	return c.do(ctx, request{
		method: http.MethodPost,
		path:   restPath + "/" + table,
		body:   row,
		header: http.Header{"Prefer": {"return=minimal"}},
	}, nil)
}
