// Package ingestion imports batches of finished OCR output into the store.
//
// A batch holds JSON payloads (one document or an array of documents per
// file) and text pairs: "<name>.vision.txt" with the OCR text and
// "<name>.translated.txt" with its translation. Either half of a pair may be
// missing.
package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/gzentall/ocrstore/internal/pipeline"
	"github.com/gzentall/ocrstore/pkg/models"
)

const (
	originalSuffix   = ".vision.txt"
	translatedSuffix = ".translated.txt"
)

// Creator stores a new document and returns its ID.
type Creator interface {
	Create(ctx context.Context, doc models.Document) (string, error)
}

// Result holds ingestion execution results.
type Result struct {
	Source   string
	Imported []string // IDs of the created documents
	Duration time.Duration
	Errors   []string
}

// Engine runs import batches.
type Engine struct {
	store    Creator
	pipeline *pipeline.Pipeline
	logger   *slog.Logger
}

// New creates a new ingestion engine.
func New(store Creator, p *pipeline.Pipeline, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: store, pipeline: p, logger: logger}
}

// item is one document to import.
type item struct {
	name  string
	doc   *models.Document // parsed payload
	input pipeline.Input   // text pair
}

// Ingest imports every document of src. A failing item is recorded in the
// result and the batch continues.
func (e *Engine) Ingest(ctx context.Context, src Source) (*Result, error) {
	start := time.Now()
	result := &Result{Source: src.Name()}

	e.logger.Info("starting import", "source", src.Name())

	files, err := src.Files(ctx)
	if err != nil {
		return nil, err
	}

	items, errs := collect(files)
	result.Errors = append(result.Errors, errs...)

	e.logger.Info("found documents to import", "count", len(items))

	for _, it := range items {
		if ctx.Err() != nil {
			result.Errors = append(result.Errors, "context cancelled")
			break
		}

		doc, err := e.prepare(ctx, it)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", it.name, err))
			continue
		}

		id, err := e.store.Create(ctx, doc)
		if err != nil {
			e.logger.Error("failed to import document", "name", it.name, "error", err)
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", it.name, err))
			continue
		}
		e.logger.Debug("document imported", "name", it.name, "id", id)
		result.Imported = append(result.Imported, id)
	}

	result.Duration = time.Since(start)
	e.logger.Info("import complete",
		"source", src.Name(),
		"imported", len(result.Imported),
		"duration", result.Duration,
		"errors", len(result.Errors))

	return result, nil
}

// prepare turns an item into a document. Payloads that already carry a
// summary are stored as given; everything else goes through the pipeline.
func (e *Engine) prepare(ctx context.Context, it item) (models.Document, error) {
	if it.doc != nil && (it.doc.Summary != "" || e.pipeline == nil) {
		return *it.doc, nil
	}

	in := it.input
	var people []models.PersonMention
	if it.doc != nil {
		d := it.doc
		in = pipeline.Input{
			Title:          d.Title,
			SourceLanguage: d.SourceLanguage,
			TargetLanguage: d.TargetLanguage,
			OriginalText:   d.OriginalText,
			TranslatedText: d.TranslatedText,
			DateProcessed:  d.DateProcessed,
			FileSize:       d.FileSize,
			PageCount:      d.PageCount,
		}
		people = d.People
	}
	if e.pipeline == nil {
		return models.Document{}, fmt.Errorf("text pair needs a pipeline")
	}

	res, err := e.pipeline.Run(ctx, in)
	if err != nil {
		return models.Document{}, err
	}
	doc := res.Document
	if len(people) > 0 {
		doc.People = people
	}
	return doc, nil
}

// collect groups files into import items in name order.
func collect(files []File) ([]item, []string) {
	var (
		items []item
		errs  []string
		pairs = map[string]*pipeline.Input{}
	)

	for _, f := range files {
		switch {
		case strings.HasSuffix(f.Name, ".json"):
			docs, err := decodePayload(f.Data)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s: %v", f.Name, err))
				continue
			}
			for i := range docs {
				name := f.Name
				if len(docs) > 1 {
					name = fmt.Sprintf("%s[%d]", f.Name, i)
				}
				items = append(items, item{name: name, doc: &docs[i]})
			}
		case strings.HasSuffix(f.Name, originalSuffix):
			pairFor(pairs, strings.TrimSuffix(f.Name, originalSuffix)).OriginalText = string(f.Data)
		case strings.HasSuffix(f.Name, translatedSuffix):
			pairFor(pairs, strings.TrimSuffix(f.Name, translatedSuffix)).TranslatedText = string(f.Data)
		}
	}

	for name, in := range pairs {
		items = append(items, item{name: name, input: *in})
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].name < items[j].name })
	return items, errs
}

func pairFor(pairs map[string]*pipeline.Input, name string) *pipeline.Input {
	in, ok := pairs[name]
	if !ok {
		in = &pipeline.Input{}
		pairs[name] = in
	}
	return in
}

// decodePayload accepts one document object or an array of them.
func decodePayload(data []byte) ([]models.Document, error) {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var docs []models.Document
		if err := json.Unmarshal(data, &docs); err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrCorruption, err)
		}
		return docs, nil
	}
	var doc models.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrCorruption, err)
	}
	return []models.Document{doc}, nil
}
