// Package ask は学習に関する質問への回答ロジックを提供する。
// キーワードでリソースを検索し、定型の回答文を選び、質問履歴を保存する。
package ask

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/jiji/internal/metrics"
	"github.com/hitoshi/jiji/internal/model"
	"github.com/hitoshi/jiji/internal/repository"
)

// Result は1回の質問に対する回答。
// Resourcesは常に非nilのスライス。
type Result struct {
	Query     string
	Answer    string
	Resources []*model.Resource
}

// Service は質問応答のサービス層。
type Service struct {
	resourceRepo repository.ResourceRepository
	queryRepo    repository.QueryRepository
	metrics      metrics.MetricsCollector
	logger       *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
// mcがnilの場合はメトリクスを記録しない。
func NewService(
	resourceRepo repository.ResourceRepository,
	queryRepo repository.QueryRepository,
	mc metrics.MetricsCollector,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		resourceRepo: resourceRepo,
		queryRepo:    queryRepo,
		metrics:      mc,
		logger:       logger,
	}
}

// Ask は質問文からキーワードを抽出してリソースを検索し、回答を返す。
// リソース検索と質問履歴の保存の失敗はログに記録するだけで、回答は返す。
// queryは呼び出し側で空でないことを検証済みであること。
func (s *Service) Ask(ctx context.Context, userID, query string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("質問の処理を中断しました: %w", err)
	}

	keywords := Keywords(query)

	resources, err := s.resourceRepo.SearchByKeywords(ctx, keywords)
	if err != nil {
		s.logger.ErrorContext(ctx, "resource search failed",
			slog.String("user_id", userID),
			slog.Int("keyword_count", len(keywords)),
			slog.String("error", err.Error()),
		)
		if s.metrics != nil {
			s.metrics.RecordResourceSearchFailure()
		}
		resources = nil
	}
	if resources == nil {
		resources = []*model.Resource{}
	}

	answer := SelectResponse(query, resources)

	record := &model.QueryRecord{
		UserID:            userID,
		QueryText:         query,
		ResponseText:      answer,
		ResourcesReturned: resources,
	}
	if err := s.queryRepo.Create(ctx, record); err != nil {
		s.logger.ErrorContext(ctx, "failed to save query",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		if s.metrics != nil {
			s.metrics.RecordQueryPersistFailure()
		}
	}

	if s.metrics != nil {
		s.metrics.RecordAsk(len(resources))
	}

	return &Result{
		Query:     query,
		Answer:    answer,
		Resources: resources,
	}, nil
}
