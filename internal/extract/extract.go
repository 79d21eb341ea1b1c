// Package extract turns uploaded resumes and job descriptions into text.
package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
)

const (
	mimePDF      = "application/pdf"
	mimeDOCX     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeText     = "text/plain"
	mimeMarkdown = "text/markdown"
	mimeZip      = "application/zip"
	mimeOctet    = "application/octet-stream"

	docxBodyPart = "word/document.xml"
)

// ErrUnsupported is returned for content types that carry no extractable text.
var ErrUnsupported = errors.New("unsupported content type")

// ExtractText returns the plain text of an uploaded payload. PDF goes
// through github.com/ledongthuc/pdf; DOCX is read straight from its
// word/document.xml part; text and markdown pass through.
func ExtractText(ctx context.Context, data []byte, mimeType string, fileName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	normalized := normalizeMimeType(mimeType, fileName, data)
	var (
		text string
		err  error
	)
	switch normalized {
	case mimePDF:
		text, err = extractPDF(data)
	case mimeDOCX:
		text, err = extractDOCX(data)
	case mimeText, mimeMarkdown:
		if !utf8.Valid(data) {
			return "", fmt.Errorf("extract %s: text is not valid utf-8", fileName)
		}
		text = string(data)
	default:
		return "", fmt.Errorf("extract %s: %w: %s", fileName, ErrUnsupported, normalized)
	}
	if err != nil {
		return "", fmt.Errorf("extract %s mime=%s: %w", fileName, normalized, err)
	}
	return strings.TrimSpace(text), nil
}

func extractPDF(data []byte) (string, error) {
	reader := bytes.NewReader(data)
	pdfReader, err := pdf.NewReader(reader, int64(len(data)))
	if err != nil {
		return "", err
	}
	plain, err := pdfReader.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func extractDOCX(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty docx data")
	}
	readerAt := bytes.NewReader(data)
	zr, err := zip.NewReader(readerAt, int64(len(data)))
	if err != nil {
		return "", err
	}

	var docFile *zip.File
	for _, f := range zr.File {
		name := strings.ReplaceAll(f.Name, "\\", "/")
		if name == docxBodyPart {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return "", errors.New("document.xml file not found")
	}

	rc, err := docFile.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return "", err
	}

	return stripDocxXML(string(raw)), nil
}

func stripDocxXML(raw string) string {
	decoder := xml.NewDecoder(strings.NewReader(raw))
	var buf strings.Builder
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return raw
		}
		switch t := tok.(type) {
		case xml.CharData:
			buf.WriteString(string(t))
		case xml.EndElement:
			if t.Name.Local == "p" || t.Name.Local == "br" {
				if last := buf.Len(); last > 0 {
					buf.WriteString("\n")
				}
			}
		}
	}
	return strings.TrimSpace(buf.String())
}

// normalizeMimeType settles on one of the supported types. A declared type
// wins unless it is generic; then the extension decides, then the content.
func normalizeMimeType(mimeType string, fileName string, data []byte) string {
	clean := baseType(mimeType)
	ext := strings.ToLower(filepath.Ext(fileName))

	if clean == "" || clean == mimeOctet {
		if byExt, ok := extensionTypes[ext]; ok {
			return byExt
		}
		if len(data) > 0 {
			clean = baseType(mimetype.Detect(data).String())
		}
	}
	switch {
	case clean == mimeText && (ext == ".md" || ext == ".markdown"):
		return mimeMarkdown
	case clean == mimeZip && isDOCX(data):
		return mimeDOCX
	}
	return clean
}

var extensionTypes = map[string]string{
	".pdf":      mimePDF,
	".docx":     mimeDOCX,
	".txt":      mimeText,
	".md":       mimeMarkdown,
	".markdown": mimeMarkdown,
}

func baseType(mimeType string) string {
	t, _, _ := strings.Cut(mimeType, ";")
	return strings.ToLower(strings.TrimSpace(t))
}

// isDOCX reports whether a zip archive carries a Word document part.
func isDOCX(data []byte) bool {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return false
	}
	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") == docxBodyPart {
			return true
		}
	}
	return false
}
