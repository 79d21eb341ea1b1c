package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

const documentXML = `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:t>Ada Lovelace</w:t></w:r></w:p>
<w:p><w:r><w:t>Senior Go Engineer</w:t></w:r></w:p>
</w:body>
</w:document>`

func TestExtractTextDocxFromZipMime(t *testing.T) {
	data := buildZip(t, map[string]string{"word/document.xml": documentXML})

	text, err := ExtractText(context.Background(), data, "application/zip", "resume.docx")
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace\nSenior Go Engineer", text)
}

func TestExtractTextRealZipRejected(t *testing.T) {
	data := buildZip(t, map[string]string{"notes.txt": "hello"})

	_, err := ExtractText(context.Background(), data, "application/zip", "notes.zip")
	require.ErrorIs(t, err, ErrUnsupported)
	assert.Contains(t, err.Error(), "application/zip")
}

func TestExtractTextPlainAndMarkdown(t *testing.T) {
	text, err := ExtractText(context.Background(), []byte("  Go, Kubernetes\n"), "text/plain; charset=utf-8", "skills.txt")
	require.NoError(t, err)
	assert.Equal(t, "Go, Kubernetes", text)

	text, err = ExtractText(context.Background(), []byte("# Role\n- Go"), "application/octet-stream", "jd.md")
	require.NoError(t, err)
	assert.Equal(t, "# Role\n- Go", text)

	_, err = ExtractText(context.Background(), []byte{0xff, 0xfe, 0xfd}, "text/plain", "bad.txt")
	require.Error(t, err)
}

func TestExtractTextHonorsCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ExtractText(ctx, []byte("hello"), "text/plain", "a.txt")
	require.ErrorIs(t, err, context.Canceled)
}

func TestNormalizeMimeTypeUsesExtension(t *testing.T) {
	assert.Equal(t, mimePDF, normalizeMimeType("", "cv.pdf", nil))
	assert.Equal(t, mimeMarkdown, normalizeMimeType("text/plain; charset=utf-8", "jd.md", nil))
	assert.Equal(t, "image/png", normalizeMimeType("image/png", "photo.png", nil))
}

func TestNormalizeMimeTypeSniffsContent(t *testing.T) {
	docx := buildZip(t, map[string]string{"word/document.xml": documentXML})
	assert.Equal(t, mimeDOCX, normalizeMimeType("application/octet-stream", "upload", docx))
	assert.Equal(t, mimePDF, normalizeMimeType("", "upload", []byte("%PDF-1.7\n")))
}
