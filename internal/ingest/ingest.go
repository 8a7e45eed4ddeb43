// Package ingest drives an uploaded document from raw bytes to persisted chunks.
package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"knowledge-assistant/internal/chunker"
	"knowledge-assistant/internal/config"
	"knowledge-assistant/internal/helper"
	"knowledge-assistant/internal/metrics"
	"knowledge-assistant/internal/models"
	"knowledge-assistant/internal/parser"
)

// Store is the document side of the corpus store
type Store interface {
	CreateDocument(ctx context.Context, name string) (models.Document, error)
	MarkProcessing(ctx context.Context, id string) error
	SaveChunks(ctx context.Context, documentID string, chunks []models.DocumentChunk) error
	MarkProcessed(ctx context.Context, id string, totalChunks int, contentSummary string) error
	MarkFailed(ctx context.Context, id string, message string) error
	SaveAISummary(ctx context.Context, id string, summary models.SummaryResult) error
}

type Summarizer interface {
	Summarize(ctx context.Context, text string) (models.SummaryResult, error)
}

// Indexer mirrors chunks into the semantic recall store
type Indexer interface {
	IndexChunks(ctx context.Context, documentName string, chunks []models.DocumentChunk) error
}

const defaultSummaryInputChars = 8000

type Options struct {
	Chunk             chunker.Options
	SummaryInputChars int
	Workers           int
}

func OptionsFromConfig(cfg *config.RAGConfig) Options {
	return Options{
		Chunk:             chunker.Options{MaxSize: cfg.ChunkSize, Overlap: cfg.ChunkOverlap},
		SummaryInputChars: cfg.SummaryInputChars,
		Workers:           cfg.IngestWorkers,
	}
}

type Ingestor struct {
	store      Store
	summarizer Summarizer
	indexer    Indexer
	opts       Options
	log        zerolog.Logger
}

func NewIngestor(store Store, opts Options, logger zerolog.Logger) *Ingestor {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.SummaryInputChars <= 0 {
		opts.SummaryInputChars = defaultSummaryInputChars
	}
	return &Ingestor{
		store: store,
		opts:  opts,
		log:   logger.With().Str("component", "ingest").Logger(),
	}
}

// WithSummarizer enables the best effort AI summary step
func (in *Ingestor) WithSummarizer(s Summarizer) *Ingestor {
	in.summarizer = s
	return in
}

// WithIndexer enables mirroring chunks into the vector store
func (in *Ingestor) WithIndexer(i Indexer) *Ingestor {
	in.indexer = i
	return in
}

// Ingest moves doc through processing to processed, or to error with the failure message.
// All chunks are written in one batch so a document never ends up partially chunked.
func (in *Ingestor) Ingest(ctx context.Context, doc models.Document, filename string, data []byte) (models.Document, error) {
	log := in.log.With().Str("document_id", doc.ID).Str("file", filename).Logger()

	if err := in.store.MarkProcessing(ctx, doc.ID); err != nil {
		return doc, in.fail(ctx, doc, err)
	}
	doc.Status = models.StatusProcessing

	text, err := parser.ExtractText(filename, data)
	if err != nil {
		return doc, in.fail(ctx, doc, err)
	}

	pieces := chunker.Split(text, in.opts.Chunk, doc.Name)
	chunks := chunker.ToRecords(doc.ID, pieces)
	if err := in.store.SaveChunks(ctx, doc.ID, chunks); err != nil {
		return doc, in.fail(ctx, doc, err)
	}

	if in.indexer != nil {
		if err := in.indexer.IndexChunks(ctx, doc.Name, chunks); err != nil {
			log.Warn().Err(err).Msg("failed to mirror chunks into vector store")
		}
	}

	// the ai summary lands before the processed transition, so a processed document
	// always carries whatever summaries it is going to get
	if ai, ok := in.summarize(ctx, log, doc.ID, text); ok {
		doc.AISummary = ai.Summary
		doc.Keywords = ai.Keywords
	}

	summary := chunker.ContentSummary(text, len(chunks))
	if err := in.store.MarkProcessed(ctx, doc.ID, len(chunks), summary); err != nil {
		return doc, in.fail(ctx, doc, err)
	}
	doc.Status = models.StatusProcessed
	doc.TotalChunks = len(chunks)
	doc.ContentSummary = summary
	log.Info().Int("chunks", len(chunks)).Int("chars", len(text)).Msg("document processed")
	metrics.IngestionsTotal.WithLabelValues(string(models.StatusProcessed)).Inc()
	return doc, nil
}

// summarize is best effort: failures are logged and ingestion carries on
func (in *Ingestor) summarize(ctx context.Context, log zerolog.Logger, id, text string) (models.SummaryResult, bool) {
	if in.summarizer == nil || strings.TrimSpace(text) == "" {
		return models.SummaryResult{}, false
	}
	ai, err := in.summarizer.Summarize(ctx, helper.Truncate(text, in.opts.SummaryInputChars))
	if err != nil {
		log.Warn().Err(err).Msg("ai summary failed")
		return models.SummaryResult{}, false
	}
	if err := in.store.SaveAISummary(ctx, id, ai); err != nil {
		log.Warn().Err(err).Msg("failed to save ai summary")
		return models.SummaryResult{}, false
	}
	return ai, true
}

func (in *Ingestor) fail(ctx context.Context, doc models.Document, cause error) error {
	metrics.IngestionsTotal.WithLabelValues(string(models.StatusError)).Inc()
	in.log.Error().Err(cause).Str("document_id", doc.ID).Msg("ingestion failed")
	if err := in.store.MarkFailed(context.WithoutCancel(ctx), doc.ID, cause.Error()); err != nil {
		in.log.Error().Err(err).Str("document_id", doc.ID).Msg("failed to mark document as failed")
	}
	return fmt.Errorf("ingest %s: %w", doc.Name, cause)
}

// IngestFile creates the document record for a file on disk and ingests it
func (in *Ingestor) IngestFile(ctx context.Context, path string) (models.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.Document{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	name := filepath.Base(path)
	doc, err := in.store.CreateDocument(ctx, name)
	if err != nil {
		return models.Document{}, err
	}
	return in.Ingest(ctx, doc, name, data)
}

type Result struct {
	Path     string
	Document models.Document
	Err      error
}

// IngestFiles ingests every file, walking directories for supported extensions. Files are
// independent, so one failure does not stop the others.
func (in *Ingestor) IngestFiles(ctx context.Context, paths []string) ([]Result, error) {
	files, err := expand(paths)
	if err != nil {
		return nil, err
	}

	results := make([]Result, len(files))
	var g errgroup.Group
	g.SetLimit(in.opts.Workers)
	for i, path := range files {
		i, path := i, path
		g.Go(func() error {
			doc, err := in.IngestFile(ctx, path)
			results[i] = Result{Path: path, Document: doc, Err: err}
			return nil
		})
	}
	// workers never return an error, failures are reported per file
	_ = g.Wait()
	return results, nil
}

func expand(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			if slices.Contains(parser.SupportedExtensions, strings.ToLower(filepath.Ext(path))) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", p, err)
		}
	}
	return files, nil
}
