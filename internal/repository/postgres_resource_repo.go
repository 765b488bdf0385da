package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/jiji/internal/model"
)

// PostgresResourceRepo はPostgreSQLを使用したリソースリポジトリ。
type PostgresResourceRepo struct {
	db *sql.DB
}

// NewPostgresResourceRepo はPostgresResourceRepoを生成する。
func NewPostgresResourceRepo(db *sql.DB) *PostgresResourceRepo {
	return &PostgresResourceRepo{db: db}
}

// SearchByKeywords はkeywords配列がいずれかのキーワードと重なるリソースを返す。
// キーワードが空の場合は空のスライスを返す（&&演算子は空配列に一致しない）。
func (r *PostgresResourceRepo) SearchByKeywords(ctx context.Context, keywords []string) ([]*model.Resource, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, description, type, file_url, keywords
		 FROM resources
		 WHERE keywords && $1::text[]`,
		pq.Array(keywords),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search resources: %w", err)
	}
	defer rows.Close()

	resources := make([]*model.Resource, 0)
	for rows.Next() {
		var (
			res                       model.Resource
			description, typ, fileURL sql.NullString
			keywordArr                pq.StringArray
		)
		if err := rows.Scan(&res.ID, &res.Title, &description, &typ, &fileURL, &keywordArr); err != nil {
			return nil, fmt.Errorf("failed to scan resource: %w", err)
		}
		res.Description = description.String
		res.Type = typ.String
		res.FileURL = fileURL.String
		res.Keywords = []string(keywordArr)
		resources = append(resources, &res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate resources: %w", err)
	}

	return resources, nil
}

// compile-time interface check
var _ ResourceRepository = (*PostgresResourceRepo)(nil)
