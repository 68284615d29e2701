// Package chunker splits normalized document text into bounded,
// overlapping segments sized for embedding requests.
package chunker

import (
	"regexp"
	"strings"

	"github.com/quillmind-ai/quillmind/pkg/types"
)

// DefaultChunkSize is the maximum number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the number of trailing characters carried into
// the next chunk so concepts spanning a boundary stay searchable in both.
const DefaultChunkOverlap = 200

// DefaultMinLength drops fragments too short to carry meaning.
const DefaultMinLength = 50

var paragraphSplitter = regexp.MustCompile(`\n\s*\n`)

type Chunker struct {
	chunkSize int
	overlap   int
	minLength int
}

type Option func(*Chunker)

func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.chunkSize = size
		}
	}
}

func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

func WithMinLength(min int) Option {
	return func(c *Chunker) {
		if min >= 0 {
			c.minLength = min
		}
	}
}

func New(opts ...Option) *Chunker {
	c := &Chunker{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
		minLength: DefaultMinLength,
	}

	for _, opt := range opts {
		opt(c)
	}

	// overlap must leave room for the window to advance
	if c.overlap >= c.chunkSize {
		c.overlap = c.chunkSize / 4
	}

	return c
}

// Split cuts text on paragraph boundaries first, closing the running
// chunk whenever the next paragraph would push it past the size limit.
// Each new chunk is seeded with the tail of the one it follows.
// Splitting is deterministic: identical input always yields the
// identical sequence, and chunk sizes are counted in runes so
// multi-byte text never gets cut mid-character.
func (c *Chunker) Split(text string) []types.Chunk {
	pieces := c.split(text)

	chunks := make([]types.Chunk, 0, len(pieces))
	for i, piece := range pieces {
		chunks = append(chunks, types.Chunk{
			Text:        piece,
			Index:       i,
			TotalChunks: len(pieces),
		})
	}
	return chunks
}

func (c *Chunker) split(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var (
		pieces   []string
		buf      []rune
		seedOnly bool
	)

	closeChunk := func() {
		piece := strings.TrimSpace(string(buf))
		if len([]rune(piece)) >= c.minLength {
			pieces = append(pieces, piece)
		}
	}

	for _, paragraph := range paragraphSplitter.Split(text, -1) {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			continue
		}
		pr := []rune(paragraph)

		// close at the paragraph boundary once the running chunk holds
		// real content and this paragraph would overflow it
		if len(buf) > 0 && !seedOnly && len(buf)+2+len(pr) > c.chunkSize {
			closeChunk()
			buf = c.overlapTail(buf)
			seedOnly = true
		}

		if len(buf) > 0 {
			buf = append(buf, '\n', '\n')
		}
		buf = append(buf, pr...)
		seedOnly = false

		// a single oversized paragraph gets hard-split at the limit
		for len(buf) > c.chunkSize {
			head := buf[:c.chunkSize]
			rest := buf[c.chunkSize:]

			buf = head
			closeChunk()

			seed := c.overlapTail(head)
			buf = make([]rune, 0, len(seed)+len(rest))
			buf = append(buf, seed...)
			buf = append(buf, rest...)
		}
	}

	if len(buf) > 0 {
		closeChunk()
	}

	return pieces
}

func (c *Chunker) overlapTail(closed []rune) []rune {
	if c.overlap == 0 || len(closed) == 0 {
		return nil
	}
	if len(closed) <= c.overlap {
		return append([]rune(nil), closed...)
	}
	return append([]rune(nil), closed[len(closed)-c.overlap:]...)
}
