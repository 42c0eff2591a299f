package repositories

import (
	"context"
)

// SummaryRepository maintains the precomputed data behind product_summary.
type SummaryRepository interface {
	RefreshReviewStats(ctx context.Context) error
}

type summaryRepo struct {
	db DBTX
}

func NewSummaryRepo(db DBTX) SummaryRepository {
	return &summaryRepo{db: db}
}

func (r *summaryRepo) RefreshReviewStats(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `REFRESH MATERIALIZED VIEW CONCURRENTLY product_review_stats`)
	return err
}
