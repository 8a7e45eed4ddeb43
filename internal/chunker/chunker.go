// Package chunker splits extracted document text into overlapping chunks and
// derives the deterministic content summary stored with each document.
package chunker

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"knowledge-assistant/internal/helper"
	"knowledge-assistant/internal/models"
)

const (
	DefaultMaxSize = 1000
	DefaultOverlap = 100

	overlapSentences = 2
	paragraphJoin    = "\n\n"
)

var (
	paragraphBreak = regexp.MustCompile(`\n\s*\n`)
	sentenceEnd    = regexp.MustCompile(`[.!?]+`)
)

type Options struct {
	MaxSize int
	// Overlap bounds the carried context when the last sentences of a chunk are too long
	Overlap int
}

func (o Options) normalize() Options {
	if o.MaxSize <= 0 {
		o.MaxSize = DefaultMaxSize
	}
	if o.Overlap <= 0 {
		o.Overlap = DefaultOverlap
	}
	if o.Overlap >= o.MaxSize {
		o.Overlap = o.MaxSize / 4
	}
	return o
}

// Split greedily packs blank-line separated paragraphs into chunks of about MaxSize
// characters. Each chunk after the first starts with the last two sentences of the
// previous one. Empty text yields a single placeholder chunk naming the document.
func Split(text string, opts Options, docName string) []string {
	opts = opts.normalize()

	var paragraphs []string
	for _, p := range paragraphBreak.Split(text, -1) {
		if p = strings.TrimSpace(p); p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	if len(paragraphs) == 0 {
		return []string{placeholder(docName)}
	}

	var chunks []string
	current := ""
	for _, p := range paragraphs {
		if current != "" && len(current)+len(paragraphJoin)+len(p) > opts.MaxSize {
			chunks = append(chunks, current)
			current = overlapSeed(current, opts)
		}
		if current == "" {
			current = p
		} else {
			current += paragraphJoin + p
		}
	}
	if current != "" {
		chunks = append(chunks, current)
	}
	return chunks
}

// overlapSeed returns the last two sentences of a closed chunk, period terminated
func overlapSeed(chunk string, opts Options) string {
	var sentences []string
	for _, s := range sentenceEnd.Split(chunk, -1) {
		if s = strings.TrimSpace(s); s != "" {
			sentences = append(sentences, s)
		}
	}
	if len(sentences) == 0 {
		return ""
	}
	if len(sentences) > overlapSentences {
		sentences = sentences[len(sentences)-overlapSentences:]
	}
	seed := strings.Join(sentences, ". ")
	if !strings.HasSuffix(seed, ".") {
		seed += "."
	}
	if len(seed) > opts.MaxSize/2 {
		seed = tailWords(seed, opts.Overlap)
	}
	return seed
}

// tailWords keeps whole trailing words up to limit characters, at least one word
func tailWords(s string, limit int) string {
	words := strings.Fields(s)
	start := len(words) - 1
	size := len(words[start])
	for start > 0 && size+1+len(words[start-1]) <= limit {
		start--
		size += 1 + len(words[start])
	}
	return strings.Join(words[start:], " ")
}

func placeholder(docName string) string {
	if docName == "" {
		docName = "unknown"
	}
	return fmt.Sprintf("Document: %s (no extractable text content)", docName)
}

// ToRecords assigns ids, sequential chunk indexes and approximate page numbers
func ToRecords(documentID string, pieces []string) []models.DocumentChunk {
	records := make([]models.DocumentChunk, len(pieces))
	for i, piece := range pieces {
		records[i] = models.DocumentChunk{
			ID:         helper.MustUUID(),
			DocumentID: documentID,
			ChunkIndex: i,
			Content:    piece,
			PageNumber: models.PageNumberFor(i),
		}
	}
	return records
}

// Reconstruct orders chunks by chunk_index and joins their contents. Adjacent chunks
// overlap, so the result repeats the carried sentences.
func Reconstruct(chunks []models.DocumentChunk) string {
	ordered := append([]models.DocumentChunk(nil), chunks...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ChunkIndex < ordered[j].ChunkIndex
	})
	parts := make([]string, len(ordered))
	for i, c := range ordered {
		parts[i] = c.Content
	}
	return strings.Join(parts, paragraphJoin)
}
