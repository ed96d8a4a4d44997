package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	monitor "github.com/koen-bo/KA-database"
	"github.com/koen-bo/KA-database/db"
	"github.com/koen-bo/KA-database/docname"
	"github.com/koen-bo/KA-database/models"
	"github.com/koen-bo/KA-database/storage"
)

// Server represents the API server
type Server struct {
	db          *db.DB
	monitor     *monitor.Monitor
	storage     *storage.Storage
	addr        string
	server      *http.Server
	mux         *http.ServeMux
	corsEnabled bool
}

// Config contains server configuration
type Config struct {
	Addr          string
	DBConfig      db.Config
	MonitorConfig monitor.Config
	StoragePath   string
	CORSEnabled   bool
}

// DefaultConfig returns default server configuration
func DefaultConfig() Config {
	return Config{
		Addr:          ":8080",
		MonitorConfig: monitor.DefaultConfig(),
		StoragePath:   "./storage",
		CORSEnabled:   true,
	}
}

// NewServer creates a new API server
func NewServer(config Config) (*Server, error) {
	// Initialize database
	database, err := db.New(config.DBConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Initialize filesystem storage
	storageInstance, err := storage.New(storage.Config{
		BasePath: config.StoragePath,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	// Initialize monitor with database and storage
	monitorInstance := monitor.New(config.MonitorConfig, database, storageInstance)

	s := &Server{
		db:          database,
		monitor:     monitorInstance,
		storage:     storageInstance,
		addr:        config.Addr,
		mux:         http.NewServeMux(),
		corsEnabled: config.CORSEnabled,
	}

	// Register routes
	s.registerRoutes()

	// Create HTTP server
	s.server = &http.Server{
		Addr:         config.Addr,
		Handler:      s.middleware(s.mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 15 * time.Minute, // Allow time for long-running ingestion runs
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// registerRoutes sets up all API routes
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.Handle("/metrics", promhttp.Handler())
	s.mux.HandleFunc("/api/ingest", s.handleIngest)
	s.mux.HandleFunc("/api/refetch", s.handleRefetch)
	s.mux.HandleFunc("/api/classify", s.handleClassify)
	s.mux.HandleFunc("/api/resolve", s.handleResolve)
	s.mux.HandleFunc("/api/documents", s.handleList)
	s.mux.HandleFunc("/api/documents/", s.handleDocument) // Handles /api/documents/{id} and /api/documents/{id}/file
}

// DB returns the server's database handle
func (s *Server) DB() *db.DB {
	return s.db
}

// Monitor returns the server's monitor instance
func (s *Server) Monitor() *monitor.Monitor {
	return s.monitor
}

// Start starts the API server
func (s *Server) Start() error {
	log.Printf("Starting API server on %s", s.addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down API server...")
	if err := s.server.Shutdown(ctx); err != nil {
		return err
	}
	return s.db.Close()
}

// middleware applies common middleware to all routes
func (s *Server) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// CORS headers
		if s.corsEnabled {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
		}

		// Logging (skip health checks to reduce noise)
		start := time.Now()
		if r.URL.Path != "/health" {
			log.Printf("%s %s", r.Method, r.URL.Path)
		}

		next.ServeHTTP(w, r)

		if r.URL.Path != "/health" {
			log.Printf("%s %s - completed in %v", r.Method, r.URL.Path, time.Since(start))
		}
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	count, err := s.db.Count()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get count")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"count":  count,
		"time":   time.Now(),
	})
}

// handleIngest runs one ingestion pass over all configured feeds
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Minute)
	defer cancel()

	stats, err := s.monitor.RunIngestion(ctx)
	if err != nil {
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("ingestion failed: %v", err))
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

// handleRefetch re-resolves stored source-page documents. Pages often gain
// a proper document link after first publication; any that now resolve to
// an artifact are upgraded in place.
func (s *Server) handleRefetch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		fmt.Sscanf(limitStr, "%d", &limit)
	}
	if limit < 1 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}

	docs, err := s.db.ListByContentType(models.PayloadSourcePage, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "database error")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Minute)
	defer cancel()

	stats := models.RefetchStats{}
	for _, doc := range docs {
		if ctx.Err() != nil {
			break
		}
		stats.Checked++

		resolved, _, err := s.monitor.Resolve(ctx, doc.URL, doc.Title)
		if err != nil {
			log.Printf("Refetch of %s failed: %v", doc.URL, err)
			stats.Failed++
			continue
		}
		if resolved.PayloadKind != models.PayloadEmbeddedArtifact {
			continue
		}

		filename := docname.ForArtifact(doc.SourceName, doc.Title, resolved.ArtifactURL, time.Now())
		path, err := s.storage.SaveArtifact(resolved.ArtifactBytes, filename)
		if err != nil {
			log.Printf("Refetch artifact save for %s failed: %v", doc.URL, err)
			stats.Failed++
			continue
		}

		doc.ContentType = resolved.PayloadKind
		doc.ArtifactPath = path
		doc.FullText = resolved.Text
		doc.FetchedAt = time.Now()
		if err := s.db.SaveDocument(doc); err != nil {
			log.Printf("Refetch update for %s failed: %v", doc.URL, err)
			stats.Failed++
			continue
		}
		stats.Upgraded++
	}

	respondJSON(w, http.StatusOK, stats)
}

// handleClassify classifies a title and description against the keyword set
func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req models.ClassifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Title == "" && req.Description == "" {
		respondError(w, http.StatusBadRequest, "title or description is required")
		return
	}

	verdict := monitor.Classify(s.monitor.Keywords(), req.Title, req.Description)

	respondJSON(w, http.StatusOK, models.ClassifyResponse{
		Title:   req.Title,
		Verdict: verdict,
	})
}

// handleResolve resolves a page URL to its underlying document
func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req models.ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.URL == "" {
		respondError(w, http.StatusBadRequest, "url is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	resolved, candidates, err := s.monitor.Resolve(ctx, req.URL, req.Title)
	if err != nil {
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("resolution failed: %v", err))
		return
	}

	respondJSON(w, http.StatusOK, models.ResolveResponse{
		SourceURL:   resolved.SourceURL,
		PayloadKind: resolved.PayloadKind,
		TextLength:  len(resolved.Text),
		ArtifactURL: resolved.ArtifactURL,
		Candidates:  candidates,
	})
}

// handleDocument handles GET/DELETE on a single document and file serving
func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/documents/")
	if path == "" {
		respondError(w, http.StatusBadRequest, "id is required")
		return
	}

	// Check if this is a file serving request
	if strings.HasSuffix(path, "/file") {
		id := strings.TrimSuffix(path, "/file")
		if r.Method == http.MethodGet {
			s.handleServeArtifact(w, r, id)
		} else {
			respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handleGetByID(w, r, path)
	case http.MethodDelete:
		s.handleDeleteByID(w, r, path)
	default:
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleGetByID retrieves a document by ID
func (s *Server) handleGetByID(w http.ResponseWriter, r *http.Request, id string) {
	doc, err := s.db.GetByID(id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "database error")
		return
	}

	if doc == nil {
		respondError(w, http.StatusNotFound, "document not found")
		return
	}

	respondJSON(w, http.StatusOK, doc)
}

// handleDeleteByID deletes a document by ID
func (s *Server) handleDeleteByID(w http.ResponseWriter, r *http.Request, id string) {
	doc, err := s.db.GetByID(id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "database error")
		return
	}
	if doc == nil {
		respondError(w, http.StatusNotFound, "document not found")
		return
	}

	if err := s.db.DeleteByID(id); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to delete document")
		return
	}

	// Remove the stored artifact alongside the row
	if doc.ArtifactPath != "" {
		if err := s.storage.DeleteArtifact(doc.ArtifactPath); err != nil {
			log.Printf("Failed to delete artifact %s: %v", doc.ArtifactPath, err)
		}
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "document deleted successfully",
	})
}

// handleServeArtifact serves a stored document file from filesystem storage
func (s *Server) handleServeArtifact(w http.ResponseWriter, r *http.Request, id string) {
	doc, err := s.db.GetByID(id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "database error")
		return
	}

	if doc == nil {
		respondError(w, http.StatusNotFound, "document not found")
		return
	}

	if doc.ArtifactPath == "" {
		respondError(w, http.StatusNotFound, "document has no stored file")
		return
	}

	data, err := s.storage.ReadArtifact(doc.ArtifactPath)
	if err != nil {
		log.Printf("Failed to read artifact %s: %v", doc.ArtifactPath, err)
		respondError(w, http.StatusInternalServerError, "failed to read document file")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(data)))
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")

	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// handleList lists documents with pagination and optional status filtering
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	// Parse pagination parameters
	limit := 20
	offset := 0

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		fmt.Sscanf(limitStr, "%d", &limit)
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		fmt.Sscanf(offsetStr, "%d", &offset)
	}

	// Enforce reasonable limits
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	var docs []*models.Document
	var err error

	if status := r.URL.Query().Get("status"); status != "" {
		docs, err = s.db.ListByStatus(status, limit)
	} else {
		docs, err = s.db.List(limit, offset)
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "database error")
		return
	}

	count, _ := s.db.Count()

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"documents": docs,
		"total":     count,
		"limit":     limit,
		"offset":    offset,
	})
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
