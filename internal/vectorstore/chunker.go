package vectorstore

import "strings"

// Chunker splits text into fixed-size rune windows that overlap by a fraction.
type Chunker struct {
	Size    int
	Overlap float64
}

// DefaultChunker is 1000-rune windows overlapping by 20%.
func DefaultChunker() Chunker {
	return Chunker{Size: 1000, Overlap: 0.2}
}

// Split returns the chunks of text in order. Blank text yields no chunks.
func (c Chunker) Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	size := c.Size
	if size <= 0 {
		size = 1000
	}
	overlap := c.Overlap
	if overlap < 0 || overlap >= 1 {
		overlap = 0
	}
	step := size - int(float64(size)*overlap)
	if step <= 0 {
		step = size
	}

	runes := []rune(text)
	var out []string
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		if chunk := strings.TrimSpace(string(runes[start:end])); chunk != "" {
			out = append(out, chunk)
		}
		if end == len(runes) {
			break
		}
	}
	return out
}
