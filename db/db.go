package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/koen-bo/KA-database/models"
)

// DB wraps the database connection and provides data access methods
type DB struct {
	conn *sql.DB
}

// Config contains database configuration
type Config struct {
	DSN string // PostgreSQL connection string
}

// New creates a new database connection
func New(config Config) (*DB, error) {
	conn, err := sql.Open("postgres", config.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Configure connection pool
	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	db := &DB{conn: conn}

	// Run PostgreSQL migrations
	if err := Migrate(conn); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// DB returns the underlying database connection for metrics collection
func (db *DB) DB() *sql.DB {
	return db.conn
}

const documentColumns = `id, url, source_name, title, publication_date, fetched_at,
	content_type, artifact_path, full_text, status, tier, matched_terms,
	matched_theme, is_relevant, summary`

// SaveDocument inserts a document, or updates the existing row when the URL
// has been seen before.
func (db *DB) SaveDocument(doc *models.Document) error {
	termsJSON, err := json.Marshal(doc.MatchedTerms)
	if err != nil {
		return fmt.Errorf("failed to marshal matched terms: %w", err)
	}

	query := `
		INSERT INTO monitor_documents (id, url, source_name, title, publication_date,
			fetched_at, content_type, artifact_path, full_text, status, tier,
			matched_terms, matched_theme, is_relevant, summary, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW(), NOW())
		ON CONFLICT(url) DO UPDATE SET
			title = excluded.title,
			publication_date = excluded.publication_date,
			fetched_at = excluded.fetched_at,
			content_type = excluded.content_type,
			artifact_path = excluded.artifact_path,
			full_text = excluded.full_text,
			status = excluded.status,
			tier = excluded.tier,
			matched_terms = excluded.matched_terms,
			matched_theme = excluded.matched_theme,
			updated_at = NOW()
	`

	_, err = db.conn.Exec(
		query,
		doc.ID,
		doc.URL,
		doc.SourceName,
		doc.Title,
		doc.PublicationDate,
		doc.FetchedAt,
		doc.ContentType,
		doc.ArtifactPath,
		doc.FullText,
		doc.Status,
		doc.Tier,
		string(termsJSON),
		doc.MatchedTheme,
		doc.IsRelevant,
		doc.Summary,
	)
	if err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}

	return nil
}

// GetByID retrieves a document by its ID
func (db *DB) GetByID(id string) (*models.Document, error) {
	row := db.conn.QueryRow(
		"SELECT "+documentColumns+" FROM monitor_documents WHERE id = $1", id,
	)
	return scanDocument(row)
}

// GetByURL retrieves a document by its source URL
func (db *DB) GetByURL(url string) (*models.Document, error) {
	row := db.conn.QueryRow(
		"SELECT "+documentColumns+" FROM monitor_documents WHERE url = $1", url,
	)
	return scanDocument(row)
}

// URLExists checks whether a document with the given URL has been stored
func (db *DB) URLExists(url string) (bool, error) {
	var exists bool
	err := db.conn.QueryRow(
		"SELECT EXISTS(SELECT 1 FROM monitor_documents WHERE url = $1)", url,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check url: %w", err)
	}
	return exists, nil
}

// List retrieves documents ordered by creation time, newest first
func (db *DB) List(limit, offset int) ([]*models.Document, error) {
	rows, err := db.conn.Query(
		"SELECT "+documentColumns+" FROM monitor_documents ORDER BY created_at DESC LIMIT $1 OFFSET $2",
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	return collectDocuments(rows)
}

// ListByStatus retrieves documents with the given status, oldest first, so
// analysis consumers process the backlog in arrival order.
func (db *DB) ListByStatus(status string, limit int) ([]*models.Document, error) {
	rows, err := db.conn.Query(
		"SELECT "+documentColumns+" FROM monitor_documents WHERE status = $1 ORDER BY created_at ASC LIMIT $2",
		status, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents by status: %w", err)
	}
	defer rows.Close()

	return collectDocuments(rows)
}

// ListByContentType retrieves documents with the given content type, oldest
// first. Used to re-visit source-page documents whose artifact may have
// become available since ingestion.
func (db *DB) ListByContentType(contentType string, limit int) ([]*models.Document, error) {
	rows, err := db.conn.Query(
		"SELECT "+documentColumns+" FROM monitor_documents WHERE content_type = $1 ORDER BY created_at ASC LIMIT $2",
		contentType, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents by content type: %w", err)
	}
	defer rows.Close()

	return collectDocuments(rows)
}

// Count returns the total number of stored documents
func (db *DB) Count() (int, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM monitor_documents").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return count, nil
}

// DeleteByID removes a document by its ID
func (db *DB) DeleteByID(id string) error {
	result, err := db.conn.Exec("DELETE FROM monitor_documents WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	return nil
}

// UpdateAnalysis records the outcome of a post-hoc analysis pass and moves
// the document out of the 'new' state.
func (db *DB) UpdateAnalysis(id string, isRelevant bool, summary, status string) error {
	result, err := db.conn.Exec(
		`UPDATE monitor_documents
		 SET is_relevant = $2, summary = $3, status = $4, updated_at = NOW()
		 WHERE id = $1`,
		id, isRelevant, summary, status,
	)
	if err != nil {
		return fmt.Errorf("failed to update analysis: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	return nil
}

// scanner abstracts *sql.Row and *sql.Rows for scanDocument
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanDocument(row scanner) (*models.Document, error) {
	var doc models.Document
	var sourceName, title, contentType, artifactPath, fullText sql.NullString
	var matchedTerms, matchedTheme, summary sql.NullString
	var pubDate sql.NullTime
	var tier sql.NullInt64
	var isRelevant sql.NullBool

	err := row.Scan(
		&doc.ID,
		&doc.URL,
		&sourceName,
		&title,
		&pubDate,
		&doc.FetchedAt,
		&contentType,
		&artifactPath,
		&fullText,
		&doc.Status,
		&tier,
		&matchedTerms,
		&matchedTheme,
		&isRelevant,
		&summary,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan document: %w", err)
	}

	doc.SourceName = sourceName.String
	doc.Title = title.String
	doc.ContentType = contentType.String
	doc.ArtifactPath = artifactPath.String
	doc.FullText = fullText.String
	doc.MatchedTheme = matchedTheme.String
	doc.Summary = summary.String
	doc.Tier = int(tier.Int64)

	if pubDate.Valid {
		t := pubDate.Time
		doc.PublicationDate = &t
	}
	if isRelevant.Valid {
		v := isRelevant.Bool
		doc.IsRelevant = &v
	}
	if matchedTerms.Valid && matchedTerms.String != "" {
		if err := json.Unmarshal([]byte(matchedTerms.String), &doc.MatchedTerms); err != nil {
			return nil, fmt.Errorf("failed to unmarshal matched terms: %w", err)
		}
	}

	return &doc, nil
}

func collectDocuments(rows *sql.Rows) ([]*models.Document, error) {
	var docs []*models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}
	return docs, nil
}
