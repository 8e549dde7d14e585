package storage

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/gzentall/ocrstore/pkg/models"
)

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name:    "empty endpoint",
			config:  Config{Endpoint: "", Bucket: "test"},
			wantErr: true,
		},
		{
			name:    "empty bucket",
			config:  Config{Endpoint: "localhost:9000", Bucket: ""},
			wantErr: true,
		},
		{
			name: "valid config",
			config: Config{
				Endpoint:        "localhost:9000",
				Bucket:          "test",
				AccessKeyID:     "minioadmin",
				SecretAccessKey: "minioadmin",
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDocumentKey(t *testing.T) {
	if got := DocumentKey("backups/2024", "doc_1"); got != "backups/2024/documents/doc_1.json" {
		t.Errorf("DocumentKey() = %q", got)
	}
	if got := DocumentKey("", "doc_1"); got != "documents/doc_1.json" {
		t.Errorf("DocumentKey() = %q", got)
	}
}

// TestIntegration_S3Operations tests actual S3 operations against MinIO.
// Skip if MinIO is not running.
func TestIntegration_S3Operations(t *testing.T) {
	endpoint := os.Getenv("MINIO_ENDPOINT")
	if endpoint == "" {
		endpoint = "localhost:9000"
	}

	client, err := New(Config{
		Endpoint:        endpoint,
		Bucket:          "ocrstore-test",
		AccessKeyID:     "minioadmin",
		SecretAccessKey: "minioadmin",
		UseSSL:          false,
	})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Try to ensure bucket - skip if MinIO is not available
	if err := client.EnsureBucket(ctx); err != nil {
		t.Skipf("MinIO not available, skipping integration test: %v", err)
	}

	prefix := "backups/test-" + time.Now().UTC().Format("20060102T150405")
	doc := models.Document{ID: "doc_abc123", Title: "Letter", Summary: "A letter"}

	t.Run("PutDocument", func(t *testing.T) {
		if err := client.PutDocument(ctx, prefix, doc); err != nil {
			t.Fatalf("PutDocument() error = %v", err)
		}
	})

	t.Run("GetDocument", func(t *testing.T) {
		got, err := client.GetDocument(ctx, prefix, doc.ID)
		if err != nil {
			t.Fatalf("GetDocument() error = %v", err)
		}
		if got.Title != doc.Title {
			t.Errorf("GetDocument().Title = %q, want %q", got.Title, doc.Title)
		}
	})

	t.Run("GetDocument missing", func(t *testing.T) {
		_, err := client.GetDocument(ctx, prefix, "doc_missing")
		if !errors.Is(err, models.ErrNotFound) {
			t.Errorf("GetDocument() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("ListDocuments", func(t *testing.T) {
		ids, err := client.ListDocuments(ctx, prefix)
		if err != nil {
			t.Fatalf("ListDocuments() error = %v", err)
		}
		if len(ids) != 1 || ids[0] != doc.ID {
			t.Errorf("ListDocuments() = %v, want [%s]", ids, doc.ID)
		}
	})

	t.Run("Manifest", func(t *testing.T) {
		manifest := Manifest{Root: "/data", Timestamp: time.Now().UTC(), DocumentCount: 1, Documents: []string{doc.ID}}
		if err := client.PutManifest(ctx, prefix, manifest); err != nil {
			t.Fatalf("PutManifest() error = %v", err)
		}
		got, err := client.GetManifest(ctx, prefix)
		if err != nil {
			t.Fatalf("GetManifest() error = %v", err)
		}
		if got.DocumentCount != 1 || got.Root != "/data" {
			t.Errorf("GetManifest() = %+v", got)
		}
	})
}
