// Package storage talks to S3-compatible object storage. It holds store
// backups and serves as an import source for OCR output.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/gzentall/ocrstore/pkg/models"
)

// Config holds S3/MinIO client configuration.
type Config struct {
	Endpoint        string // "localhost:9000" for MinIO
	Bucket          string // "ocrstore"
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
}

// Client wraps the MinIO/S3 client for ocrstore operations.
type Client struct {
	minioClient *minio.Client
	bucket      string
}

// New creates a new S3/MinIO client.
func New(config Config) (*Client, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	if config.Bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}

	minioClient, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKeyID, config.SecretAccessKey, ""),
		Secure: config.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &Client{
		minioClient: minioClient,
		bucket:      config.Bucket,
	}, nil
}

// EnsureBucket creates the bucket if it doesn't exist.
func (c *Client) EnsureBucket(ctx context.Context) error {
	exists, err := c.minioClient.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}
	if exists {
		return nil
	}

	err = c.minioClient.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{})
	if err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// Manifest describes one backup written under a prefix.
type Manifest struct {
	Root          string    `json:"root"`
	Timestamp     time.Time `json:"timestamp"`
	DocumentCount int       `json:"document_count"`
	PeopleCount   int       `json:"people_count"`
	Documents     []string  `json:"documents"` // IDs of the mirrored bodies
}

// PutObject writes raw bytes under key.
func (c *Client) PutObject(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := c.minioClient.PutObject(ctx, c.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to put %s: %w", key, err)
	}
	return nil
}

// GetObject reads the object stored under key. A missing key yields
// models.ErrNotFound.
func (c *Client) GetObject(ctx context.Context, key string) ([]byte, error) {
	object, err := c.minioClient.GetObject(ctx, c.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	defer object.Close()

	data, err := io.ReadAll(object)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("%s: %w", key, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}

// ListObjects returns every key under prefix, sorted.
func (c *Client) ListObjects(ctx context.Context, prefix string) ([]string, error) {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	objectCh := c.minioClient.ListObjects(ctx, c.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})

	var keys []string
	for object := range objectCh {
		if object.Err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", object.Err)
		}
		keys = append(keys, object.Key)
	}
	sort.Strings(keys)
	return keys, nil
}

// DocumentKey is the object key of a document body under prefix.
func DocumentKey(prefix, id string) string {
	return path.Join(prefix, "documents", id+".json")
}

// PutDocument writes a document body under prefix.
func (c *Client) PutDocument(ctx context.Context, prefix string, doc models.Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}
	return c.PutObject(ctx, DocumentKey(prefix, doc.ID), data, "application/json")
}

// GetDocument reads a document body from under prefix.
func (c *Client) GetDocument(ctx context.Context, prefix, id string) (models.Document, error) {
	data, err := c.GetObject(ctx, DocumentKey(prefix, id))
	if err != nil {
		return models.Document{}, err
	}
	var doc models.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return models.Document{}, fmt.Errorf("failed to unmarshal document %s: %w", id, err)
	}
	return doc, nil
}

// ListDocuments returns the IDs of the document bodies under prefix.
func (c *Client) ListDocuments(ctx context.Context, prefix string) ([]string, error) {
	keys, err := c.ListObjects(ctx, path.Join(prefix, "documents"))
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, key := range keys {
		name := path.Base(key)
		if strings.HasSuffix(name, ".json") {
			// Return just the ID, not the full path
			ids = append(ids, strings.TrimSuffix(name, ".json"))
		}
	}
	return ids, nil
}

// PutMetadata writes the raw metadata index under prefix.
func (c *Client) PutMetadata(ctx context.Context, prefix string, data []byte) error {
	return c.PutObject(ctx, path.Join(prefix, "metadata.json"), data, "application/json")
}

// GetMetadata reads the raw metadata index from under prefix.
func (c *Client) GetMetadata(ctx context.Context, prefix string) ([]byte, error) {
	return c.GetObject(ctx, path.Join(prefix, "metadata.json"))
}

// PutManifest writes the backup manifest JSON under prefix.
func (c *Client) PutManifest(ctx context.Context, prefix string, manifest Manifest) error {
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	return c.PutObject(ctx, path.Join(prefix, "manifest.json"), data, "application/json")
}

// GetManifest reads the backup manifest from under prefix.
func (c *Client) GetManifest(ctx context.Context, prefix string) (*Manifest, error) {
	data, err := c.GetObject(ctx, path.Join(prefix, "manifest.json"))
	if err != nil {
		return nil, err
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to unmarshal manifest: %w", err)
	}
	return &manifest, nil
}

// Bucket returns the bucket name.
func (c *Client) Bucket() string {
	return c.bucket
}
