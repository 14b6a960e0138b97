package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/samruben96/documine-sub011/internal/model"
	"github.com/samruben96/documine-sub011/internal/worker/domain"
)

// Storage handles the worker's document reads and writes. Job rows are
// owned by the queue store; the worker only touches documents here.
type Storage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStorage creates a new Storage instance
func NewStorage(db *sqlx.DB, logger *slog.Logger) *Storage {
	return &Storage{
		db:     db,
		logger: logger,
	}
}

// DocumentByID retrieves a document by its ID. Not agency-scoped; the
// worker reaches documents only through jobs it has claimed.
func (s *Storage) DocumentByID(ctx context.Context, documentID string) (*model.Document, error) {
	query := `
		SELECT id, agency_id, filename, storage_path, status,
		       parsed_content, page_count, created_at, updated_at
		FROM documents
		WHERE id = $1
	`

	var doc model.Document
	err := s.db.GetContext(ctx, &doc, query, documentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	return &doc, nil
}

// MarkDocumentReady stores the parsed output and flips the document to
// ready in one statement.
func (s *Storage) MarkDocumentReady(ctx context.Context, documentID, parsedContent string, pageCount int) error {
	query := `
		UPDATE documents
		SET status = $1,
		    parsed_content = $2,
		    page_count = $3,
		    updated_at = NOW()
		WHERE id = $4
	`

	_, err := s.db.ExecContext(ctx, query, model.DocumentStatusReady, parsedContent, pageCount, documentID)
	if err != nil {
		return fmt.Errorf("failed to mark document ready: %w", err)
	}

	s.logger.Info("Document marked ready",
		slog.String("document_id", documentID),
		slog.Int("page_count", pageCount),
	)

	return nil
}

// MarkDocumentFailed flips the document to failed. The error detail lives
// on the job row, not here.
func (s *Storage) MarkDocumentFailed(ctx context.Context, documentID string) error {
	query := `
		UPDATE documents
		SET status = $1,
		    updated_at = NOW()
		WHERE id = $2
	`

	_, err := s.db.ExecContext(ctx, query, model.DocumentStatusFailed, documentID)
	if err != nil {
		return fmt.Errorf("failed to mark document failed: %w", err)
	}

	return nil
}
