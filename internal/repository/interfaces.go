// Package repository はデータ永続化のインターフェースを定義する。
// 実装はPostgreSQLへ直接接続するものと、Supabase（PostgREST）経由のものの2種類を持つ。
package repository

import (
	"context"

	"github.com/hitoshi/jiji/internal/model"
)

// ResourceRepository は学習リソースの検索インターフェース。
type ResourceRepository interface {
	// SearchByKeywords はkeywords列がいずれかのキーワードを含むリソースを返す。
	// 各キーワードは大文字小文字を区別して完全一致で比較する（OR条件）。
	SearchByKeywords(ctx context.Context, keywords []string) ([]*model.Resource, error)
}

// QueryRepository は質問記録の永続化インターフェース。
type QueryRepository interface {
	// Create は質問記録を1件作成する。
	Create(ctx context.Context, record *model.QueryRecord) error
}

// ProfileRepository はプロフィールの永続化インターフェース。
type ProfileRepository interface {
	// Create はプロフィールを作成する。IDはIdPのユーザーIDを使用する。
	Create(ctx context.Context, profile *model.Profile) error
}

// テーブル名
const (
	tableResources = "resources"
	tableQueries   = "queries"
	tableProfiles  = "profiles"
)
