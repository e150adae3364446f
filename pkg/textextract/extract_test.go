package textextract

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSupported(t *testing.T) {
	assert.True(t, Supported("application/pdf"))
	assert.True(t, Supported("text/plain"))
	assert.True(t, Supported("text/plain; charset=utf-8"))
	assert.False(t, Supported("image/png"))
	assert.False(t, Supported(""))
}

func TestExtractPlainText(t *testing.T) {
	data := []byte("hello from a plain file\nsecond line")
	res, err := Extract(bytes.NewReader(data), int64(len(data)), "text/plain; charset=utf-8")
	require.NoError(t, err)
	assert.Equal(t, string(data), res.Content)
	assert.Equal(t, 1, res.Pages)
}

func TestExtractUnsupportedType(t *testing.T) {
	data := []byte{0x89, 0x50, 0x4e, 0x47}
	_, err := Extract(bytes.NewReader(data), int64(len(data)), "image/png")
	assert.Error(t, err)
}
