package queue

const (
	TypeDocumentExtract = "document:extract"
	TypeDocumentIngest  = "document:ingest"
)

type DocumentExtractPayload struct {
	DocumentID string `json:"document_id"`
	OwnerID    string `json:"owner_id"`
}

type DocumentIngestPayload struct {
	DocumentID string `json:"document_id"`
	OwnerID    string `json:"owner_id"`
}
