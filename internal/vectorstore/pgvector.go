package vectorstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/saturnlabs/docchat/internal/models"
)

type PgVectorIndex struct {
	db *pgxpool.Pool
}

func NewPgVectorIndex(db *pgxpool.Pool) *PgVectorIndex {
	return &PgVectorIndex{db: db}
}

// Upsert writes one batch of chunks inside a single transaction, so a batch
// lands either whole or not at all.
func (s *PgVectorIndex) Upsert(ctx context.Context, chunks []models.Chunk) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, c := range chunks {
		id := c.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO document_chunks (id, document_id, owner_id, chunk_index, content, embedding, token_count)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 ON CONFLICT (document_id, chunk_index) DO NOTHING`,
			id, c.DocumentID, c.OwnerID, c.ChunkIndex, c.Content, pgvector.NewVector(c.Embedding), c.TokenCount,
		)
		if err != nil {
			return fmt.Errorf("insert chunk %d: %w", c.ChunkIndex, err)
		}
	}

	return tx.Commit(ctx)
}

// Search ranks the owner's chunks by cosine similarity. Only chunks whose
// parent document has reached the indexed status are candidates.
func (s *PgVectorIndex) Search(ctx context.Context, query []float32, opts SearchOptions) ([]SearchResult, error) {
	if opts.TopK <= 0 {
		opts.TopK = 5
	}

	rows, err := s.db.Query(ctx,
		`SELECT c.id, c.document_id, c.content, c.chunk_index,
		        1 - (c.embedding <=> $1) AS score
		 FROM document_chunks c
		 JOIN documents d ON d.id = c.document_id
		 WHERE c.owner_id = $2 AND d.status = $3
		 ORDER BY c.embedding <=> $1, c.document_id, c.chunk_index
		 LIMIT $4`,
		pgvector.NewVector(query), opts.OwnerID, models.DocStatusIndexed, opts.TopK,
	)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.ChunkID, &r.DocumentID, &r.Content, &r.ChunkIndex, &r.Score); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func (s *PgVectorIndex) DeleteByDocument(ctx context.Context, ownerID, documentID uuid.UUID) error {
	_, err := s.db.Exec(ctx,
		"DELETE FROM document_chunks WHERE document_id = $1 AND owner_id = $2",
		documentID, ownerID,
	)
	return err
}

func (s *PgVectorIndex) DeleteByOwner(ctx context.Context, ownerID uuid.UUID) error {
	_, err := s.db.Exec(ctx, "DELETE FROM document_chunks WHERE owner_id = $1", ownerID)
	return err
}
