package service

import (
	"unicode"

	"github.com/cloo-solutions/docchat/internal/domain"
)

// ChunkConfig controls how document text is split for retrieval.
//
// Windows are MaxChars runes long and consecutive windows share Overlap
// runes. A window that ends mid-text is cut back to the last whitespace
// found after MinChars so words stay whole; without whitespace the hard cut
// is used. MaxChunks of zero means no limit.
type ChunkConfig struct {
	MaxChars  int
	MinChars  int
	Overlap   int
	MaxChunks int
}

// DefaultChunkConfig provides the 500/50 rune policy.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		MaxChars:  500,
		MinChars:  350,
		Overlap:   50,
		MaxChunks: 0,
	}
}

// chunkText splits text into ordered chunks. Start and End are rune offsets
// into text and Text is always runes[Start:End] with surrounding whitespace
// removed from the bounds.
func chunkText(documentID, text string, cfg ChunkConfig) []domain.Chunk {
	if cfg.MaxChars <= 0 {
		cfg = DefaultChunkConfig()
	}
	runes := []rune(text)

	chunks := make([]domain.Chunk, 0, len(runes)/cfg.MaxChars+1)
	start := 0
	for start < len(runes) {
		if cfg.MaxChunks > 0 && len(chunks) >= cfg.MaxChunks {
			break
		}

		end := start + cfg.MaxChars
		if end > len(runes) {
			end = len(runes)
		}

		if end < len(runes) {
			cut := end
			minCut := start + cfg.MinChars
			if minCut > end {
				minCut = start
			}
			for i := end; i > minCut; i-- {
				if unicode.IsSpace(runes[i-1]) {
					cut = i
					break
				}
			}
			end = cut
		}

		if end <= start {
			break
		}

		lo, hi := trimBounds(runes, start, end)
		if lo < hi {
			chunks = append(chunks, domain.Chunk{
				DocumentID: documentID,
				Index:      len(chunks),
				Start:      lo,
				End:        hi,
				Text:       string(runes[lo:hi]),
			})
		}

		if end >= len(runes) {
			break
		}

		nextStart := end
		if cfg.Overlap > 0 && end-start > cfg.Overlap {
			nextStart = end - cfg.Overlap
		}
		if nextStart <= start {
			nextStart = end
		}
		start = nextStart
	}

	return chunks
}

func trimBounds(runes []rune, lo, hi int) (int, int) {
	for lo < hi && unicode.IsSpace(runes[lo]) {
		lo++
	}
	for hi > lo && unicode.IsSpace(runes[hi-1]) {
		hi--
	}
	return lo, hi
}
