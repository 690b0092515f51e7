package rag

import (
	"strings"

	"github.com/mwiater/jsonrag/internal/ragerr"
)

const (
	DefaultChunkSize    = 7500
	DefaultChunkOverlap = 100
)

// CharacterSplitter cuts text into chunks of at most size characters. Each
// chunk after the first repeats the final overlap characters of its
// predecessor. Cuts prefer the last newline in the window.
type CharacterSplitter struct {
	size    int
	overlap int
}

func NewCharacterSplitter(size, overlap int) (*CharacterSplitter, error) {
	if size <= 0 {
		return nil, ragerr.Newf(ragerr.ErrInvalidConfig, "chunk", "chunk size must be greater than zero, got %d", size)
	}
	if overlap < 0 {
		return nil, ragerr.Newf(ragerr.ErrInvalidConfig, "chunk", "chunk overlap must be zero or greater, got %d", overlap)
	}
	if overlap >= size {
		return nil, ragerr.Newf(ragerr.ErrInvalidConfig, "chunk", "chunk overlap (%d) must be smaller than chunk size (%d)", overlap, size)
	}
	return &CharacterSplitter{size: size, overlap: overlap}, nil
}

func (s *CharacterSplitter) Size() int    { return s.size }
func (s *CharacterSplitter) Overlap() int { return s.overlap }

// Split returns no chunks for empty text and a single chunk when the text fits.
func (s *CharacterSplitter) Split(text string) ([]string, error) {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil, nil
	}

	var chunks []string
	start := 0
	for {
		if len(runes)-start <= s.size {
			chunks = append(chunks, string(runes[start:]))
			break
		}
		end := start + s.size
		if cut := lastBreak(runes, start+s.overlap, end); cut > 0 {
			end = cut
		}
		chunks = append(chunks, string(runes[start:end]))
		start = end - s.overlap
	}
	return chunks, nil
}

// lastBreak returns the index just past the last '\n' in runes[lo:hi], or -1.
// Cutting there keeps the chunk longer than the overlap so the splitter always
// advances.
func lastBreak(runes []rune, lo, hi int) int {
	for i := hi - 1; i >= lo; i-- {
		if runes[i] == '\n' {
			return i + 1
		}
	}
	return -1
}

// ChunkText splits text with a CharacterSplitter of the given size and overlap.
func ChunkText(text string, size, overlap int) ([]string, error) {
	splitter, err := NewCharacterSplitter(size, overlap)
	if err != nil {
		return nil, err
	}
	return splitter.Split(text)
}

// JoinChunks reverses Split: it drops the repeated overlap from every chunk
// after the first and concatenates the rest.
func JoinChunks(chunks []string, overlap int) string {
	var b strings.Builder
	for i, c := range chunks {
		if i == 0 || overlap <= 0 {
			b.WriteString(c)
			continue
		}
		runes := []rune(c)
		if overlap >= len(runes) {
			continue
		}
		b.WriteString(string(runes[overlap:]))
	}
	return b.String()
}
