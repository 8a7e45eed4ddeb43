package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"

	"knowledge-assistant/internal/chromemdb"
	"knowledge-assistant/internal/config"
	"knowledge-assistant/internal/db"
	"knowledge-assistant/internal/embedding"
	"knowledge-assistant/internal/helper"
	"knowledge-assistant/internal/ingest"
	"knowledge-assistant/internal/llmservice"
	"knowledge-assistant/internal/normalizer"
	"knowledge-assistant/internal/rag"
	"knowledge-assistant/internal/scorer"
	"knowledge-assistant/internal/search"
	"knowledge-assistant/internal/server"
)

const (
	configFilePath  = "./configs/config.yaml"
	shutdownTimeout = 30 * time.Second
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	configPath := flag.String("config", configFilePath, "Path to the config file")
	initDB := flag.Bool("init-db", false, "Create tables, indexes and the enhanced_search function")
	qaSeed := flag.String("qa", "", "Path to a yaml file of Q&A pairs to import")
	filePath := flag.String("file", "", "Path to a document file or a directory of documents to ingest")
	query := flag.String("query", "", "Question to be answered")
	serve := flag.Bool("serve", false, "Run the HTTP API")
	flag.Parse()

	if !*initDB && *qaSeed == "" && *filePath == "" && *query == "" && !*serve {
		flag.Usage()
		log.Fatal().Msg("Please provide at least one of -init-db, -qa, -file, -query or -serve")
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	ctx := context.Background()
	a, err := newApp(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing application")
	}
	defer a.Close(ctx)

	if *initDB {
		if err := db.InitDB(ctx, a.db); err != nil {
			log.Fatal().Err(err).Msg("Error initializing database")
		}
		log.Info().Msg("Database initialized")
	}

	if *qaSeed != "" {
		importQAPairs(ctx, a, *qaSeed)
	}

	if *filePath != "" {
		ingestPath(ctx, a, *filePath)
	}

	if *query != "" {
		answerQuery(ctx, a, *query)
	}

	if *serve {
		runServer(a)
	}
}

type app struct {
	cfg        *config.Config
	db         *bun.DB
	store      *db.Store
	vectors    *chromemdb.VectorDBManager
	aggregator *search.Aggregator
	rag        *rag.RAG
	ingestor   *ingest.Ingestor
}

func newApp(cfg *config.Config) (*app, error) {
	logger := log.Logger

	dbClient, err := db.ConnectDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}
	dbInstance := db.NewDB(dbClient, cfg.Database.Debug)
	store := db.NewStore(dbInstance)

	a := &app{cfg: cfg, db: dbInstance, store: store}

	aggregator := search.New(store, normalizer.New(logger), scorer.New(cfg.RAG.EnhancedScoreCap),
		search.OptionsFromConfig(&cfg.RAG), logger)
	ingestor := ingest.NewIngestor(store, ingest.OptionsFromConfig(&cfg.RAG), logger)

	if cfg.EmbedLLM.Enabled() {
		embedder, err := embedding.New(&cfg.EmbedLLM)
		if err != nil {
			return nil, fmt.Errorf("error initializing embedder: %w", err)
		}
		if err := helper.CreateFolder(cfg.RAG.VectorDBPath); err != nil {
			return nil, fmt.Errorf("error creating vector db folder: %w", err)
		}
		vectors, err := chromemdb.NewVectorDBManager(cfg.RAG.VectorDBPath, cfg.RAG.Collection, false,
			cfg.RAG.EncryptionKey, embedding.ChromemFunc(embedder), logger)
		if err != nil {
			return nil, fmt.Errorf("error creating vector database manager: %w", err)
		}
		// restore from the encrypted export when the local mirror starts empty
		if cfg.RAG.EncryptionKey != "" && vectors.Count() == 0 {
			if err := vectors.Import(context.Background()); err != nil {
				log.Debug().Err(err).Msg("No vector export restored")
			}
		}
		a.vectors = vectors
		aggregator.WithRecall(vectors)
		ingestor.WithIndexer(vectors)
	}

	var generator rag.Generator
	if cfg.LLM.Enabled() {
		llm, err := llmservice.NewLLM(&cfg.LLM)
		if err != nil {
			return nil, fmt.Errorf("error initializing llm: %w", err)
		}
		generator = llmservice.NewGenerator(llm, &cfg.LLM, logger)
	} else {
		log.Warn().Msg("No llm configured, answers will not be AI synthesized")
	}

	if cfg.SummaryLLM.Enabled() {
		llm, err := llmservice.NewLLM(&cfg.SummaryLLM)
		if err != nil {
			return nil, fmt.Errorf("error initializing summary llm: %w", err)
		}
		ingestor.WithSummarizer(llmservice.NewSummarizer(llm, &cfg.SummaryLLM, logger))
	}

	a.aggregator = aggregator
	a.ingestor = ingestor
	a.rag = rag.NewRAG(aggregator, generator, store, rag.OptionsFromConfig(&cfg.RAG), logger)
	return a, nil
}

// Close drains background writes, exports the vector mirror when encryption is configured
// and closes the database
func (a *app) Close(ctx context.Context) {
	a.rag.Wait()
	if a.vectors != nil && a.cfg.RAG.EncryptionKey != "" {
		if err := a.vectors.Export(ctx); err != nil {
			log.Error().Err(err).Msg("Error exporting collection")
		}
	}
	if err := a.store.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing database")
	}
}

func importQAPairs(ctx context.Context, a *app, path string) {
	pairs, err := config.LoadQASeed(path)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading Q&A seed")
	}
	stored, err := a.store.CreateQAPairs(ctx, pairs)
	if err != nil {
		log.Fatal().Err(err).Msg("Error storing Q&A pairs")
	}
	if a.vectors != nil {
		if err := a.vectors.IndexQAPairs(ctx, stored); err != nil {
			log.Error().Err(err).Msg("Error adding Q&A pairs to vector database")
		}
	}
	log.Info().Int("count", len(stored)).Msg("Imported Q&A pairs")
}

func ingestPath(ctx context.Context, a *app, path string) {
	results, err := a.ingestor.IngestFiles(ctx, []string{path})
	if err != nil {
		log.Fatal().Err(err).Msg("Error ingesting documents")
	}
	var failed int
	for _, r := range results {
		if r.Err != nil {
			failed++
			log.Error().Err(r.Err).Str("file", r.Path).Msg("Ingestion failed")
			continue
		}
		log.Info().Str("file", r.Path).Str("id", r.Document.ID).Int("chunks", r.Document.TotalChunks).Msg("Ingested")
	}
	log.Info().Int("files", len(results)).Int("failed", failed).Msg("Ingestion finished")
}

func answerQuery(ctx context.Context, a *app, query string) {
	response := a.rag.GenerateAnswer(ctx, query, nil)

	log.Info().Msg("Query: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", query)

	log.Info().Msg("Source: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s (%s)\n\n", response.Source, response.SourceType)

	log.Info().Msg("Assistant: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", response.Answer)

	if len(response.SearchResults) > 0 {
		log.Info().Msg("Related: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
		helper.PrettyPrint(response.SearchResults)
	}
}

func runServer(a *app) {
	srv := server.NewServer(a.rag, a.aggregator, a.store, a.ingestor, &a.cfg.Server, log.Logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server stopped")
		}
	case <-ctx.Done():
		log.Info().Msg("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during shutdown")
	}
}
