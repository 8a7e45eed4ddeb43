package chunker

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knowledge-assistant/internal/models"
)

func TestSplit_EmptyTextYieldsPlaceholder(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\n \n"} {
		chunks := Split(text, Options{}, "Policy.docx")
		require.Len(t, chunks, 1)
		assert.Contains(t, chunks[0], "Policy.docx")
	}
}

func TestSplit_ShortText(t *testing.T) {
	chunks := Split("  Just one short paragraph.  ", Options{}, "a.txt")
	assert.Equal(t, []string{"Just one short paragraph."}, chunks)
}

func TestSplit_CarriesLastTwoSentences(t *testing.T) {
	p1 := "Alpha one. Alpha two. Alpha three."
	p2 := "Bravo one. Bravo two. Bravo three."
	p3 := "Charlie one. Charlie two. Charlie three."
	text := p1 + "\n\n" + p2 + "\n\n" + p3

	chunks := Split(text, Options{MaxSize: 100}, "doc")
	require.Len(t, chunks, 2)
	assert.Equal(t, p1+"\n\n"+p2, chunks[0])
	assert.Equal(t, "Bravo two. Bravo three.\n\n"+p3, chunks[1])
}

func TestSplit_AppendsPeriodToSeed(t *testing.T) {
	p1 := "First point! Second point?"
	p2 := strings.Repeat("x", 40)

	chunks := Split(p1+"\n\n"+p2, Options{MaxSize: 60}, "doc")
	require.Len(t, chunks, 2)
	assert.Equal(t, "First point. Second point.\n\n"+p2, chunks[1])
}

func TestSplit_LongSeedTrimmedToOverlap(t *testing.T) {
	p1 := strings.TrimSpace(strings.Repeat("lorem ", 9))
	p2 := "Next paragraph."

	chunks := Split(p1+"\n\n"+p2, Options{MaxSize: 60, Overlap: 20}, "doc")
	require.Len(t, chunks, 2)
	assert.Equal(t, p1, chunks[0])
	assert.Equal(t, "lorem lorem lorem.\n\nNext paragraph.", chunks[1])
}

func TestOptions_Normalize(t *testing.T) {
	o := Options{}.normalize()
	assert.Equal(t, DefaultMaxSize, o.MaxSize)
	assert.Equal(t, DefaultOverlap, o.Overlap)

	o = Options{MaxSize: 100, Overlap: 150}.normalize()
	assert.Equal(t, 25, o.Overlap)
}

func randomDocument(r *rand.Rand, paragraphs int) ([]string, string) {
	words := []string{"policy", "wiring", "customer", "package", "install", "deadline", "safety", "router"}
	var paras []string
	for i := 0; i < paragraphs; i++ {
		var sentences []string
		for s := 0; s < 1+r.Intn(6); s++ {
			var ws []string
			for w := 0; w < 3+r.Intn(12); w++ {
				ws = append(ws, words[r.Intn(len(words))])
			}
			sentences = append(sentences, strings.Join(ws, " ")+".")
		}
		// paragraph id keeps every paragraph unique
		paras = append(paras, fmt.Sprintf("P%d %s", i, strings.Join(sentences, " ")))
	}
	return paras, strings.Join(paras, "\n\n")
}

func TestSplit_Properties(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for round := 0; round < 25; round++ {
		paras, text := randomDocument(r, 1+r.Intn(40))
		opts := Options{MaxSize: 200 + r.Intn(800), Overlap: 50}

		chunks := Split(text, opts, "doc")
		require.NotEmpty(t, chunks)

		longest := 0
		for _, p := range paras {
			longest = max(longest, len(p))
		}
		for i, c := range chunks {
			assert.LessOrEqual(t, len(c), opts.MaxSize+longest, "chunk %d too large", i)
		}

		// every paragraph appears, in order, once chunks are reconstructed
		rebuilt := Reconstruct(ToRecords("doc-1", chunks))
		pos := 0
		for _, p := range paras {
			idx := strings.Index(rebuilt[pos:], p)
			require.GreaterOrEqual(t, idx, 0, "paragraph %q missing or out of order", p[:8])
			pos += idx + len(p)
		}
	}
}

func TestToRecords(t *testing.T) {
	records := ToRecords("doc-9", []string{"a", "b", "c", "d", "e", "f", "g"})
	require.Len(t, records, 7)

	ids := map[string]bool{}
	for i, rec := range records {
		assert.Equal(t, "doc-9", rec.DocumentID)
		assert.Equal(t, i, rec.ChunkIndex)
		assert.Equal(t, i/3+1, rec.PageNumber)
		assert.NotEmpty(t, rec.ID)
		ids[rec.ID] = true
	}
	assert.Len(t, ids, 7)
}

func TestReconstruct_OrdersByIndex(t *testing.T) {
	chunks := []models.DocumentChunk{
		{ChunkIndex: 2, Content: "third"},
		{ChunkIndex: 0, Content: "first"},
		{ChunkIndex: 1, Content: "second"},
	}
	assert.Equal(t, "first\n\nsecond\n\nthird", Reconstruct(chunks))
}

func TestContentSummary(t *testing.T) {
	text := `Contact hr@example.com or payroll@example.com for questions.
Call 555-123-4567 or (555) 987-6543. Forms are due 2025-03-31 and again on March 15, 2025.
Reach hr@example.com again.`

	got := ContentSummary(text, 3)
	assert.True(t, strings.HasPrefix(got, "Document contains "))
	assert.Contains(t, got, "across 3 chunks.")
	assert.Contains(t, got, "Contact emails: hr@example.com, payroll@example.com.")
	assert.Contains(t, got, "555-123-4567")
	assert.Contains(t, got, "(555) 987-6543")
	assert.Contains(t, got, "2025-03-31")
	assert.Contains(t, got, "March 15, 2025")
	assert.Equal(t, 1, strings.Count(got, "hr@example.com"))
}

func TestContentSummary_PlainText(t *testing.T) {
	assert.Equal(t, "Document contains 3 words across 1 chunks.", ContentSummary("one two three", 1))
}
