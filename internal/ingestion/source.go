package ingestion

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gzentall/ocrstore/internal/storage"
)

// File is one raw input file.
type File struct {
	Name string
	Data []byte
}

// Source yields the files of one import batch.
type Source interface {
	Name() string
	Files(ctx context.Context) ([]File, error)
}

// importable reports whether name is a payload or half of a text pair.
func importable(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	return strings.HasSuffix(name, ".json") || strings.HasSuffix(name, ".txt")
}

// DirSource reads the top level of a local directory.
type DirSource struct {
	dir string
}

// NewDirSource creates a source for dir.
func NewDirSource(dir string) *DirSource {
	return &DirSource{dir: dir}
}

// Name implements Source.
func (s *DirSource) Name() string { return s.dir }

// Files implements Source.
func (s *DirSource) Files(ctx context.Context) ([]File, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read import directory: %w", err)
	}

	var files []File
	for _, e := range entries {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if e.IsDir() || !importable(e.Name()) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", e.Name(), err)
		}
		files = append(files, File{Name: e.Name(), Data: data})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// S3Source reads every object under a bucket prefix.
type S3Source struct {
	client *storage.Client
	prefix string
}

// NewS3Source creates a source for prefix in the client's bucket.
func NewS3Source(client *storage.Client, prefix string) *S3Source {
	return &S3Source{client: client, prefix: prefix}
}

// Name implements Source.
func (s *S3Source) Name() string {
	return "s3://" + path.Join(s.client.Bucket(), s.prefix)
}

// Files implements Source.
func (s *S3Source) Files(ctx context.Context) ([]File, error) {
	keys, err := s.client.ListObjects(ctx, s.prefix)
	if err != nil {
		return nil, err
	}

	var files []File
	for _, key := range keys {
		name := path.Base(key)
		if !importable(name) {
			continue
		}
		data, err := s.client.GetObject(ctx, key)
		if err != nil {
			return nil, err
		}
		files = append(files, File{Name: name, Data: data})
	}
	return files, nil
}
