package document

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/saturnlabs/docchat/pkg/textextract"
)

// TextExtractor turns a stored object's raw bytes into a single text blob.
type TextExtractor interface {
	Extract(ctx context.Context, data io.ReaderAt, size int64, contentType string) (*textextract.Result, error)
	Supported(contentType string) bool
}

type extractor struct{}

func NewTextExtractor() TextExtractor {
	return extractor{}
}

func (extractor) Extract(_ context.Context, data io.ReaderAt, size int64, contentType string) (*textextract.Result, error) {
	result, err := textextract.Extract(data, size, contentType)
	if err != nil {
		return nil, fmt.Errorf("extract text: %w", err)
	}
	return result, nil
}

func (extractor) Supported(contentType string) bool {
	return textextract.Supported(contentType)
}

// ReaderAtFromBytes adapts a downloaded object to the extractor's input.
func ReaderAtFromBytes(data []byte) *bytes.Reader {
	return bytes.NewReader(data)
}
