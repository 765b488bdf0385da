package repository

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/hitoshi/jiji/internal/model"
)

// RESTClient はPostgREST呼び出しに必要なインターフェース。
// supabase.Clientの部分集合として定義する。
type RESTClient interface {
	Select(ctx context.Context, table string, query url.Values, dest any) error
	Insert(ctx context.Context, table string, row any) error
}

// RESTResourceRepo はPostgREST経由のリソースリポジトリ。
type RESTResourceRepo struct {
	client RESTClient
}

// NewRESTResourceRepo はRESTResourceRepoを生成する。
func NewRESTResourceRepo(client RESTClient) *RESTResourceRepo {
	return &RESTResourceRepo{client: client}
}

// restResourceRow はresourcesテーブルの行。idは数値・文字列のどちらの列型でも受け付ける。
type restResourceRow struct {
	ID          model.ResourceID `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Type        string           `json:"type"`
	FileURL     string           `json:"file_url"`
	Keywords    []string         `json:"keywords"`
}

// SearchByKeywords はor=(keywords.cs.{k1},keywords.cs.{k2},...)フィルタでリソースを検索する。
// キーワードが空の場合はor=()となり、PostgREST側のエラーがそのまま返る。
func (r *RESTResourceRepo) SearchByKeywords(ctx context.Context, keywords []string) ([]*model.Resource, error) {
	query := url.Values{
		"select": {"*"},
		"or":     {KeywordFilter(keywords)},
	}

	var rows []restResourceRow
	if err := r.client.Select(ctx, tableResources, query, &rows); err != nil {
		return nil, fmt.Errorf("failed to search resources: %w", err)
	}

	resources := make([]*model.Resource, 0, len(rows))
	for _, row := range rows {
		resources = append(resources, &model.Resource{
			ID:          row.ID,
			Title:       row.Title,
			Description: row.Description,
			Type:        row.Type,
			FileURL:     row.FileURL,
			Keywords:    row.Keywords,
		})
	}
	return resources, nil
}

// KeywordFilter はキーワードごとの配列包含条件をOR結合したPostgRESTの論理式を返す。
func KeywordFilter(keywords []string) string {
	parts := make([]string, len(keywords))
	for i, k := range keywords {
		parts[i] = "keywords.cs.{" + quoteArrayElement(k) + "}"
	}
	return "(" + strings.Join(parts, ",") + ")"
}

// quoteArrayElement は配列リテラルの区切り文字を含む要素をダブルクォートで囲む。
func quoteArrayElement(s string) string {
	if !strings.ContainsAny(s, `,{}()"\ `) {
		return s
	}
	escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
	return `"` + escaped + `"`
}

// RESTQueryRepo はPostgREST経由の質問記録リポジトリ。
type RESTQueryRepo struct {
	client RESTClient
}

// NewRESTQueryRepo はRESTQueryRepoを生成する。
func NewRESTQueryRepo(client RESTClient) *RESTQueryRepo {
	return &RESTQueryRepo{client: client}
}

// restQueryRow はqueriesテーブルへの挿入行。id、created_atはDB側のデフォルト値に任せる。
type restQueryRow struct {
	UserID            string            `json:"user_id"`
	QueryText         string            `json:"query_text"`
	ResponseText      string            `json:"response_text"`
	ResourcesReturned []*model.Resource `json:"resources_returned"`
}

// Create は質問記録を作成する。
func (r *RESTQueryRepo) Create(ctx context.Context, record *model.QueryRecord) error {
	resources := record.ResourcesReturned
	if resources == nil {
		resources = []*model.Resource{}
	}
	row := restQueryRow{
		UserID:            record.UserID,
		QueryText:         record.QueryText,
		ResponseText:      record.ResponseText,
		ResourcesReturned: resources,
	}
	if err := r.client.Insert(ctx, tableQueries, row); err != nil {
		return fmt.Errorf("failed to insert query: %w", err)
	}
	return nil
}

// RESTProfileRepo はPostgREST経由のプロフィールリポジトリ。
// RLSを回避するため、特権キーのクライアントを渡すこと。
type RESTProfileRepo struct {
	client RESTClient
}

// NewRESTProfileRepo はRESTProfileRepoを生成する。
func NewRESTProfileRepo(client RESTClient) *RESTProfileRepo {
	return &RESTProfileRepo{client: client}
}

// Create はプロフィールを作成する。
func (r *RESTProfileRepo) Create(ctx context.Context, profile *model.Profile) error {
	if err := r.client.Insert(ctx, tableProfiles, profile); err != nil {
		return fmt.Errorf("failed to insert profile: %w", err)
	}
	return nil
}

// compile-time interface check
var (
	_ ResourceRepository = (*RESTResourceRepo)(nil)
	_ QueryRepository    = (*RESTQueryRepo)(nil)
	_ ProfileRepository  = (*RESTProfileRepo)(nil)
)
