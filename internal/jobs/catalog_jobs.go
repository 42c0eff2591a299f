package jobs

import (
	"context"
	"fmt"
	"time"

	"furnistore/internal/models"

	"go.uber.org/zap"
)

const (
	SummaryRefreshJob    = "summary-refresh"
	CategoryIntegrityJob = "category-integrity"
)

type SummaryRefresher interface {
	RefreshReviewStats(ctx context.Context) error
}

type ListingInvalidator interface {
	InvalidateListings(ctx context.Context) error
}

type IntegrityChecker interface {
	CheckIntegrity(ctx context.Context) (models.CategoryIntegrityReport, error)
}

// CatalogJobs holds the periodic catalog maintenance tasks.
type CatalogJobs struct {
	summary    SummaryRefresher
	listings   ListingInvalidator
	categories IntegrityChecker
	logger     *zap.Logger
}

func NewCatalogJobs(summary SummaryRefresher, listings ListingInvalidator, categories IntegrityChecker, logger *zap.Logger) *CatalogJobs {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogJobs{summary: summary, listings: listings, categories: categories, logger: logger.Named("jobs")}
}

// RefreshSummary recomputes the review aggregates shown in listings and then
// drops cached listing pages so they pick up the new numbers.
func (j *CatalogJobs) RefreshSummary(ctx context.Context) error {
	if err := j.summary.RefreshReviewStats(ctx); err != nil {
		return fmt.Errorf("refresh review stats: %w", err)
	}
	if err := j.listings.InvalidateListings(ctx); err != nil {
		// Stale pages expire on their own TTL.
		j.logger.Warn("failed to invalidate listings after summary refresh", zap.Error(err))
	}
	return nil
}

// CheckCategories logs active categories that the storefront tree cannot
// place.
func (j *CatalogJobs) CheckCategories(ctx context.Context) error {
	report, err := j.categories.CheckIntegrity(ctx)
	if err != nil {
		return fmt.Errorf("check category integrity: %w", err)
	}
	if len(report.Orphaned) == 0 && len(report.Cyclic) == 0 {
		j.logger.Debug("category hierarchy consistent", zap.Int("categories", report.Total))
		return nil
	}
	j.logger.Warn("category hierarchy has unplaceable categories",
		zap.Int("total", report.Total),
		zap.Int("placed", report.Placed),
		zap.Stringers("orphaned", report.Orphaned),
		zap.Stringers("cyclic", report.Cyclic))
	return nil
}

// Register adds both catalog jobs to s.
func (j *CatalogJobs) Register(s *Scheduler, summaryEvery, integrityEvery time.Duration) error {
	if err := s.Every(SummaryRefreshJob, summaryEvery, j.RefreshSummary); err != nil {
		return err
	}
	return s.Every(CategoryIntegrityJob, integrityEvery, j.CheckCategories)
}
