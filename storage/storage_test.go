package storage

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestSaveArtifactWritesUnderDatedDir(t *testing.T) {
	store, err := New(Config{BasePath: t.TempDir()})
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	data := []byte("%PDF-1.7 test content")
	relPath, err := store.SaveArtifact(data, "rijksoverheid_20260312_090000_deltaprogramma.pdf")
	if err != nil {
		t.Fatalf("Failed to save artifact: %v", err)
	}

	now := time.Now()
	wantPrefix := filepath.Join("pdfs", fmt.Sprintf("%04d", now.Year()), fmt.Sprintf("%02d", int(now.Month())))
	if !strings.HasPrefix(relPath, wantPrefix) {
		t.Errorf("relPath = %q, want prefix %q", relPath, wantPrefix)
	}

	got, err := store.ReadArtifact(relPath)
	if err != nil {
		t.Fatalf("Failed to read artifact: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("Read data does not match written data")
	}
}

func TestSaveArtifactMakesDuplicateNamesUnique(t *testing.T) {
	store, err := New(Config{BasePath: t.TempDir()})
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	first, err := store.SaveArtifact([]byte("first"), "rapport.pdf")
	if err != nil {
		t.Fatalf("Failed to save first artifact: %v", err)
	}
	second, err := store.SaveArtifact([]byte("second"), "rapport.pdf")
	if err != nil {
		t.Fatalf("Failed to save second artifact: %v", err)
	}

	if first == second {
		t.Fatalf("Expected unique paths, both were %q", first)
	}
	if !strings.HasSuffix(second, "rapport-1.pdf") {
		t.Errorf("second = %q, want suffix rapport-1.pdf", second)
	}

	got, err := store.ReadArtifact(first)
	if err != nil {
		t.Fatalf("Failed to read first artifact: %v", err)
	}
	if string(got) != "first" {
		t.Errorf("First artifact was overwritten: %q", got)
	}
}

func TestDeleteArtifact(t *testing.T) {
	store, err := New(Config{BasePath: t.TempDir()})
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	relPath, err := store.SaveArtifact([]byte("data"), "te-verwijderen.pdf")
	if err != nil {
		t.Fatalf("Failed to save artifact: %v", err)
	}

	if err := store.DeleteArtifact(relPath); err != nil {
		t.Fatalf("Failed to delete artifact: %v", err)
	}

	if _, err := store.ReadArtifact(relPath); err == nil {
		t.Error("Expected read of deleted artifact to fail")
	}

	// Deleting a missing file is not an error
	if err := store.DeleteArtifact(relPath); err != nil {
		t.Errorf("Deleting missing artifact returned error: %v", err)
	}
}

func TestNewS3Storage(t *testing.T) {
	config := S3Config{
		Endpoint:        "http://localhost:9000",
		Region:          "us-east-1",
		Bucket:          "test-bucket",
		AccessKeyID:     "test-key",
		SecretAccessKey: "test-secret",
		UsePathStyle:    true,
	}

	ctx := context.Background()
	storage, err := NewS3Storage(ctx, config)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	if storage == nil {
		t.Fatal("Expected storage to be non-nil")
	}
}

func TestNewS3StorageMissingConfig(t *testing.T) {
	base := S3Config{
		Endpoint:        "http://localhost:9000",
		Region:          "us-east-1",
		Bucket:          "test-bucket",
		AccessKeyID:     "test-key",
		SecretAccessKey: "test-secret",
		UsePathStyle:    true,
	}

	tests := []struct {
		name   string
		mutate func(*S3Config)
	}{
		{"missing bucket", func(c *S3Config) { c.Bucket = "" }},
		{"missing region", func(c *S3Config) { c.Region = "" }},
		{"missing credentials", func(c *S3Config) { c.AccessKeyID = ""; c.SecretAccessKey = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			if _, err := NewS3Storage(context.Background(), cfg); err == nil {
				t.Fatal("Expected error, got nil")
			}
		})
	}
}
