package document

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/saturnlabs/docchat/internal/models"
	"github.com/saturnlabs/docchat/internal/storage"
)

var ErrNotFound = errors.New("document not found")

// ChunkIndex is the slice of the vector index that document deletion
// needs. Going through it keeps non-SQL index implementations in sync;
// for pgvector it overlaps with the ON DELETE CASCADE on document_chunks.
type ChunkIndex interface {
	DeleteByDocument(ctx context.Context, ownerID, documentID uuid.UUID) error
}

type Service struct {
	db      *pgxpool.Pool
	storage storage.Storage
	bucket  string
	index   ChunkIndex
}

func NewService(db *pgxpool.Pool, store storage.Storage, bucket string, index ChunkIndex) *Service {
	return &Service{db: db, storage: store, bucket: bucket, index: index}
}

type CreateRequest struct {
	OwnerID       uuid.UUID
	Title         string
	StoragePath   string
	ContentType   string
	FileSizeBytes int64
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*models.Document, error) {
	doc := &models.Document{
		ID:            uuid.New(),
		OwnerID:       req.OwnerID,
		Title:         req.Title,
		StoragePath:   req.StoragePath,
		ContentType:   req.ContentType,
		FileSizeBytes: req.FileSizeBytes,
		Status:        models.DocStatusUploaded,
	}

	err := s.db.QueryRow(ctx,
		`INSERT INTO documents (id, owner_id, title, storage_path, content_type, file_size_bytes, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING created_at`,
		doc.ID, doc.OwnerID, doc.Title, doc.StoragePath, doc.ContentType, doc.FileSizeBytes, doc.Status,
	).Scan(&doc.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert document: %w", err)
	}
	return doc, nil
}

const docColumns = `id, owner_id, title, storage_path, content_type, file_size_bytes, status, extracted_text, chunks_expected, chunks_indexed, created_at`

func scanDoc(row pgx.Row) (*models.Document, error) {
	var d models.Document
	err := row.Scan(&d.ID, &d.OwnerID, &d.Title, &d.StoragePath, &d.ContentType, &d.FileSizeBytes,
		&d.Status, &d.ExtractedText, &d.ChunksExpected, &d.ChunksIndexed, &d.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan document: %w", err)
	}
	return &d, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	return scanDoc(s.db.QueryRow(ctx,
		`SELECT `+docColumns+` FROM documents WHERE id = $1`, id))
}

func (s *Service) GetOwned(ctx context.Context, ownerID, id uuid.UUID) (*models.Document, error) {
	return scanDoc(s.db.QueryRow(ctx,
		`SELECT `+docColumns+` FROM documents WHERE id = $1 AND owner_id = $2`, id, ownerID))
}

// GetByStoragePath resolves the document record an object-finalized
// notification refers to.
func (s *Service) GetByStoragePath(ctx context.Context, path string) (*models.Document, error) {
	return scanDoc(s.db.QueryRow(ctx,
		`SELECT `+docColumns+` FROM documents WHERE storage_path = $1 LIMIT 1`, path))
}

func (s *Service) List(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]models.Document, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+docColumns+` FROM documents
		 WHERE owner_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		ownerID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		d, err := scanDoc(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *d)
	}
	return docs, rows.Err()
}

// Delete removes the document, its indexed chunks and the stored object.
func (s *Service) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	doc, err := s.GetOwned(ctx, ownerID, id)
	if err != nil {
		return err
	}

	if doc.StoragePath != "" {
		_ = s.storage.Delete(ctx, s.bucket, doc.StoragePath)
	}

	if s.index != nil {
		if err := s.index.DeleteByDocument(ctx, ownerID, id); err != nil {
			return fmt.Errorf("delete chunks: %w", err)
		}
	}

	_, err = s.db.Exec(ctx, "DELETE FROM documents WHERE id = $1 AND owner_id = $2", id, ownerID)
	return err
}

// Transition compare-and-swaps the status column. It reports whether the
// edge was taken: false means the document was not in `from` at swap time,
// which is how duplicate trigger deliveries become no-ops instead of
// double-ingestions.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, from, to string) (bool, error) {
	tag, err := s.db.Exec(ctx,
		"UPDATE documents SET status = $1 WHERE id = $2 AND status = $3",
		to, id, from,
	)
	if err != nil {
		return false, fmt.Errorf("transition %s -> %s: %w", from, to, err)
	}
	return tag.RowsAffected() > 0, nil
}

// MarkError moves a document to the terminal error state from any
// non-terminal state.
func (s *Service) MarkError(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.Exec(ctx,
		"UPDATE documents SET status = $1 WHERE id = $2 AND status NOT IN ($1, $3)",
		models.DocStatusError, id, models.DocStatusIndexed,
	)
	return err
}

// CompleteExtraction stores the extracted text and takes the
// extracting -> extracted edge in one swap. The text is written exactly
// once, on this edge only.
func (s *Service) CompleteExtraction(ctx context.Context, id uuid.UUID, text string) (bool, error) {
	tag, err := s.db.Exec(ctx,
		"UPDATE documents SET extracted_text = $1, status = $2 WHERE id = $3 AND status = $4",
		text, models.DocStatusExtracted, id, models.DocStatusExtracting,
	)
	if err != nil {
		return false, fmt.Errorf("complete extraction: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// SetChunkCounts records attempted vs. succeeded chunk counts so a
// partially embedded document is visibly under-indexed, not silently so.
func (s *Service) SetChunkCounts(ctx context.Context, id uuid.UUID, expected, indexed int) error {
	_, err := s.db.Exec(ctx,
		"UPDATE documents SET chunks_expected = $1, chunks_indexed = $2 WHERE id = $3",
		expected, indexed, id,
	)
	return err
}

// CountIndexed reports how many of the owner's documents are searchable.
func (s *Service) CountIndexed(ctx context.Context, ownerID uuid.UUID) (int, error) {
	var n int
	err := s.db.QueryRow(ctx,
		"SELECT COUNT(*) FROM documents WHERE owner_id = $1 AND status = $2",
		ownerID, models.DocStatusIndexed,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count indexed documents: %w", err)
	}
	return n, nil
}
