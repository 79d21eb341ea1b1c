package object

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"path"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

const maxNameLen = 120

// ErrInvalidName is returned for file names with nothing usable left after
// cleaning.
var ErrInvalidName = errors.New("invalid file name")

// SafeName reduces a client supplied file name to its base name made of
// letters, digits, dot, dash and underscore.
func SafeName(name string) (string, error) {
	name = strings.ReplaceAll(strings.TrimSpace(name), "\\", "/")
	name = path.Base(name)
	var b strings.Builder
	for _, r := range name {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)), r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte('_')
		}
	}
	out := strings.TrimLeft(b.String(), ".")
	if out == "" {
		return "", ErrInvalidName
	}
	if len(out) > maxNameLen {
		ext := filepath.Ext(out)
		if len(ext) > 10 {
			ext = ""
		}
		out = out[:maxNameLen-len(ext)] + ext
	}
	return out, nil
}

// NewKey returns a unique storage key for an owner's upload. Owner IDs are
// hashed so guest IDs never appear in paths.
func NewKey(ownerID, fileName string) (string, error) {
	name, err := SafeName(fileName)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(ownerID))
	return hex.EncodeToString(sum[:8]) + "/" + uuid.NewString() + "_" + name, nil
}
