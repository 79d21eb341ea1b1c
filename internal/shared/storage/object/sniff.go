package object

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const sniffLen = 3072

// Sniff detects the content type from the leading bytes and returns a reader
// that replays them. Plain text is refined by extension so markdown survives.
func Sniff(fileName string, r io.Reader) (string, io.Reader, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", nil, fmt.Errorf("read sniff: %w", err)
	}
	head = head[:n]
	return DetectType(fileName, head), io.MultiReader(bytes.NewReader(head), r), nil
}

// DetectType names the MIME type of data, without parameters.
func DetectType(fileName string, data []byte) string {
	mt := mimetype.Detect(data)
	ext := strings.ToLower(filepath.Ext(fileName))
	switch {
	case mt.Is("text/plain") && ext == ".md":
		return "text/markdown"
	case mt.Is("application/octet-stream") && ext == ".pdf":
		return "application/pdf"
	}
	mime, _, _ := strings.Cut(mt.String(), ";")
	return mime
}
