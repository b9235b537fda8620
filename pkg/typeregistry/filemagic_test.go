package typeregistry

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestFileMagic_DetectsPNGByMagicBytes(t *testing.T) {
	png := append([]byte{137, 'P', 'N', 'G', '\r', '\n', 26, 10}, make([]byte, 16)...)
	path := writeTemp(t, "image.bin", png)

	res, err := FileMagic{}.Detect(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"image/png"}, res.MimeTypes)
	assert.Equal(t, []string{"binary"}, res.MimeEncodings)
}

func TestFileMagic_DetectsPDFByMagicBytes(t *testing.T) {
	path := writeTemp(t, "doc.pdf", []byte("%PDF-1.4\n...contents..."))

	res, err := FileMagic{}.Detect(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"application/pdf"}, res.MimeTypes)
	assert.Equal(t, []string{"pdf"}, res.Extensions)
}

func TestFileMagic_FallsBackToExtensionThenOctetStream(t *testing.T) {
	path := writeTemp(t, "mystery.xyz123", []byte{0x01, 0x02, 0x03, 0x00, 0x04})

	res, err := FileMagic{}.Detect(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"application/octet-stream"}, res.MimeTypes)
	assert.Equal(t, []string{"binary"}, res.MimeEncodings)
}

func TestFileMagic_TextFileEncodingIsUTF8(t *testing.T) {
	path := writeTemp(t, "notes.txt", []byte("hello, this is plain text"))

	res, err := FileMagic{}.Detect(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"utf-8"}, res.MimeEncodings)
}

func TestFileMagic_ExtractedBy(t *testing.T) {
	assert.Equal(t, "file", string(FileMagic{}.ExtractedBy()))
}
