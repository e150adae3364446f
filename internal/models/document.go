package models

import (
	"time"

	"github.com/google/uuid"
)

type Document struct {
	ID             uuid.UUID `json:"id" db:"id"`
	OwnerID        uuid.UUID `json:"owner_id" db:"owner_id"`
	Title          string    `json:"title" db:"title"`
	StoragePath    string    `json:"storage_path,omitempty" db:"storage_path"`
	ContentType    string    `json:"content_type,omitempty" db:"content_type"`
	FileSizeBytes  int64     `json:"file_size_bytes,omitempty" db:"file_size_bytes"`
	Status         string    `json:"status" db:"status"`
	ExtractedText  string    `json:"-" db:"extracted_text"`
	ChunksExpected int       `json:"chunks_expected" db:"chunks_expected"`
	ChunksIndexed  int       `json:"chunks_indexed" db:"chunks_indexed"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

type Chunk struct {
	ID         uuid.UUID `json:"id" db:"id"`
	DocumentID uuid.UUID `json:"document_id" db:"document_id"`
	OwnerID    uuid.UUID `json:"owner_id" db:"owner_id"`
	ChunkIndex int       `json:"chunk_index" db:"chunk_index"`
	Content    string    `json:"content" db:"content"`
	Embedding  []float32 `json:"-" db:"embedding"`
	TokenCount int       `json:"token_count" db:"token_count"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// Document lifecycle. A document moves strictly forward:
// uploaded -> extracting -> extracted -> indexing -> indexed.
// Error is terminal and reachable from any non-terminal state.
const (
	DocStatusUploaded   = "uploaded"
	DocStatusExtracting = "extracting"
	DocStatusExtracted  = "extracted"
	DocStatusIndexing   = "indexing"
	DocStatusIndexed    = "indexed"
	DocStatusError      = "error"
)
