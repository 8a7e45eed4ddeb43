package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"

	"knowledge-assistant/internal/models"
	"knowledge-assistant/internal/parser"
)

type askRequest struct {
	Question string                    `json:"question"`
	History  []models.ConversationTurn `json:"history"`
}

type searchRequest struct {
	Query string `json:"query"`
	Basic bool   `json:"basic"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		s.respondError(w, http.StatusBadRequest, "question is required")
		return
	}
	s.log.Debug().Str("question", req.Question).Int("history", len(req.History)).Msg("ask request")
	s.respondJSON(w, http.StatusOK, s.answerer.GenerateAnswer(r.Context(), req.Question, req.History))
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		s.respondError(w, http.StatusBadRequest, "query is required")
		return
	}
	s.log.Debug().Str("query", req.Query).Bool("basic", req.Basic).Msg("search request")

	var results []models.SearchResult
	if req.Basic {
		results = s.searcher.BasicSearch(r.Context(), req.Query)
	} else {
		results = s.searcher.Search(r.Context(), req.Query)
	}
	if results == nil {
		results = []models.SearchResult{}
	}
	s.respondJSON(w, http.StatusOK, results)
}

// handleUpload stores the document record and ingests it in the background
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	if !slices.Contains(parser.SupportedExtensions, strings.ToLower(filepath.Ext(name))) {
		s.respondError(w, http.StatusUnsupportedMediaType, "unsupported file type")
		return
	}
	data, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "failed to read file")
		return
	}

	doc, err := s.documents.CreateDocument(r.Context(), name)
	if err != nil {
		s.log.Error().Err(err).Str("file", name).Msg("failed to create document")
		s.respondError(w, http.StatusInternalServerError, "failed to create document")
		return
	}

	ctx := context.WithoutCancel(r.Context())
	s.uploads.Add(1)
	go func() {
		defer s.uploads.Done()
		if _, err := s.ingestor.Ingest(ctx, doc, name, data); err != nil {
			s.log.Error().Err(err).Str("document_id", doc.ID).Msg("background ingestion failed")
		}
	}()

	s.respondJSON(w, http.StatusAccepted, map[string]string{"id": doc.ID, "status": string(doc.Status)})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc, err := s.documents.GetDocument(r.Context(), id)
	if err != nil {
		s.respondError(w, http.StatusNotFound, "document not found")
		return
	}
	s.respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
