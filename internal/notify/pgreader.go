package notify

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/samruben96/documine-sub011/internal/model"
)

// PGDocumentReader implements DocumentReader against PostgreSQL.
type PGDocumentReader struct {
	db *sqlx.DB
}

// NewPGDocumentReader creates a new PGDocumentReader instance
func NewPGDocumentReader(db *sqlx.DB) *PGDocumentReader {
	return &PGDocumentReader{db: db}
}

func (r *PGDocumentReader) DocumentsForAgency(ctx context.Context, agencyID string) ([]model.Document, error) {
	query := `
		SELECT id, agency_id, filename, storage_path, status,
		       parsed_content, page_count, created_at, updated_at
		FROM documents
		WHERE agency_id = $1
		ORDER BY created_at DESC
	`

	var documents []model.Document
	if err := r.db.SelectContext(ctx, &documents, query, agencyID); err != nil {
		return nil, fmt.Errorf("failed to list agency documents: %w", err)
	}

	return documents, nil
}
