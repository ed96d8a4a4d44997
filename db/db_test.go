package db

import (
	"os"
	"testing"
	"time"

	"github.com/koen-bo/KA-database/models"
)

// setupTestDB connects to the database named in TEST_DATABASE_URL, skipping
// the test when the variable is unset.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping database integration test")
	}

	db, err := New(Config{DSN: dsn})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	return db
}

func TestMigrationVersionsAreUniqueAndOrdered(t *testing.T) {
	seen := make(map[int]string)
	for _, m := range postgresMigrations {
		if m.Version < 1 {
			t.Errorf("migration %q has invalid version %d", m.Name, m.Version)
		}
		if prev, ok := seen[m.Version]; ok {
			t.Errorf("version %d used by both %q and %q", m.Version, prev, m.Name)
		}
		seen[m.Version] = m.Name

		if m.Up == "" {
			t.Errorf("migration %q has no up SQL", m.Name)
		}
		if m.Down == "" {
			t.Errorf("migration %q has no down SQL", m.Name)
		}
	}
}

func TestSaveAndRetrieveDocument(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	pub := time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC)
	doc := &models.Document{
		ID:              "doc-roundtrip",
		URL:             "https://example.com/rapport-roundtrip",
		SourceName:      "Rijksoverheid",
		Title:           "Deltaprogramma voortgangsrapportage",
		PublicationDate: &pub,
		FetchedAt:       time.Now().UTC(),
		ContentType:     models.PayloadEmbeddedArtifact,
		ArtifactPath:    "pdfs/2026/03/test.pdf",
		FullText:        "waterveiligheid en dijkversterking",
		Status:          models.StatusNew,
		Tier:            1,
		MatchedTerms:    []string{"deltaprogramma", "waterveiligheid"},
	}

	if err := db.SaveDocument(doc); err != nil {
		t.Fatalf("Failed to save document: %v", err)
	}
	defer db.DeleteByID(doc.ID)

	got, err := db.GetByID(doc.ID)
	if err != nil {
		t.Fatalf("Failed to get document: %v", err)
	}
	if got == nil {
		t.Fatal("Expected document, got nil")
	}
	if got.URL != doc.URL {
		t.Errorf("URL = %q, want %q", got.URL, doc.URL)
	}
	if got.Tier != 1 {
		t.Errorf("Tier = %d, want 1", got.Tier)
	}
	if len(got.MatchedTerms) != 2 || got.MatchedTerms[0] != "deltaprogramma" {
		t.Errorf("MatchedTerms = %v, want [deltaprogramma waterveiligheid]", got.MatchedTerms)
	}
	if got.IsRelevant != nil {
		t.Errorf("IsRelevant = %v, want nil before analysis", *got.IsRelevant)
	}

	exists, err := db.URLExists(doc.URL)
	if err != nil {
		t.Fatalf("URLExists failed: %v", err)
	}
	if !exists {
		t.Error("Expected URLExists to report true")
	}

	exists, err = db.URLExists("https://example.com/never-stored")
	if err != nil {
		t.Fatalf("URLExists failed: %v", err)
	}
	if exists {
		t.Error("Expected URLExists to report false for unknown URL")
	}
}

func TestSaveDocumentUpsertsOnURL(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	doc := &models.Document{
		ID:        "doc-upsert",
		URL:       "https://example.com/rapport-upsert",
		Title:     "Eerste titel",
		FetchedAt: time.Now().UTC(),
		Status:    models.StatusNew,
	}
	if err := db.SaveDocument(doc); err != nil {
		t.Fatalf("Failed to save document: %v", err)
	}
	defer db.DeleteByID(doc.ID)

	doc.Title = "Bijgewerkte titel"
	if err := db.SaveDocument(doc); err != nil {
		t.Fatalf("Failed to re-save document: %v", err)
	}

	got, err := db.GetByURL(doc.URL)
	if err != nil {
		t.Fatalf("Failed to get document: %v", err)
	}
	if got == nil || got.Title != "Bijgewerkte titel" {
		t.Errorf("Expected updated title, got %+v", got)
	}
}

func TestUpdateAnalysisLifecycle(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	doc := &models.Document{
		ID:        "doc-analysis",
		URL:       "https://example.com/rapport-analysis",
		FetchedAt: time.Now().UTC(),
		Status:    models.StatusNew,
	}
	if err := db.SaveDocument(doc); err != nil {
		t.Fatalf("Failed to save document: %v", err)
	}
	defer db.DeleteByID(doc.ID)

	pending, err := db.ListByStatus(models.StatusNew, 100)
	if err != nil {
		t.Fatalf("ListByStatus failed: %v", err)
	}
	found := false
	for _, d := range pending {
		if d.ID == doc.ID {
			found = true
		}
	}
	if !found {
		t.Error("Expected document in 'new' backlog")
	}

	err = db.UpdateAnalysis(doc.ID, true, "klimaatadaptatie rapport", models.StatusAnalyzed)
	if err != nil {
		t.Fatalf("UpdateAnalysis failed: %v", err)
	}

	got, err := db.GetByID(doc.ID)
	if err != nil {
		t.Fatalf("Failed to get document: %v", err)
	}
	if got.Status != models.StatusAnalyzed {
		t.Errorf("Status = %q, want %q", got.Status, models.StatusAnalyzed)
	}
	if got.IsRelevant == nil || !*got.IsRelevant {
		t.Error("Expected IsRelevant to be true after analysis")
	}
	if got.Summary != "klimaatadaptatie rapport" {
		t.Errorf("Summary = %q", got.Summary)
	}

	if err := db.UpdateAnalysis("no-such-id", false, "", models.StatusFailed); err == nil {
		t.Error("Expected error updating unknown document")
	}
}
