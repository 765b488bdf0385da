package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/jiji/internal/model"
)

// PostgresQueryRepo はPostgreSQLを使用した質問記録リポジトリ。
type PostgresQueryRepo struct {
	db *sql.DB
}

// NewPostgresQueryRepo はPostgresQueryRepoを生成する。
func NewPostgresQueryRepo(db *sql.DB) *PostgresQueryRepo {
	return &PostgresQueryRepo{db: db}
}

// Create は質問記録を作成する。
// IDと作成日時が未設定の場合はここで採番する。
func (r *PostgresQueryRepo) Create(ctx context.Context, record *model.QueryRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	resourcesJSON, err := record.ResourcesJSON()
	if err != nil {
		return fmt.Errorf("failed to encode resources_returned: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO queries (id, user_id, query_text, response_text, resources_returned, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		record.ID, record.UserID, record.QueryText, record.ResponseText, string(resourcesJSON), record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert query: %w", err)
	}
	return nil
}

// compile-time interface check
var _ QueryRepository = (*PostgresQueryRepo)(nil)
