package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/samruben96/documine-sub011/internal/model"
)

// PGStore implements Store against PostgreSQL.
type PGStore struct {
	db *sqlx.DB
}

// NewPGStore creates a new PGStore instance
func NewPGStore(db *sqlx.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) AgencyTier(ctx context.Context, agencyID string) (string, error) {
	var tier string
	err := s.db.GetContext(ctx, &tier,
		`SELECT subscription_tier FROM agencies WHERE id = $1`, agencyID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve agency tier: %w", err)
	}
	return tier, nil
}

func (s *PGStore) CountDocumentsCreatedSince(ctx context.Context, agencyID string, since time.Time) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM documents WHERE agency_id = $1 AND created_at >= $2`,
		agencyID, since)
	if err != nil {
		return 0, fmt.Errorf("failed to count recent documents: %w", err)
	}
	return count, nil
}

func (s *PGStore) CountProcessingJobs(ctx context.Context, agencyID string) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM processing_jobs WHERE agency_id = $1 AND status = $2`,
		agencyID, model.JobStatusProcessing)
	if err != nil {
		return 0, fmt.Errorf("failed to count processing jobs: %w", err)
	}
	return count, nil
}
