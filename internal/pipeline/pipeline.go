// Package pipeline turns finished OCR and translation output into a document
// ready for the store: text is cleaned, a title derived, and the summarizer
// asked for a summary and person candidates.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gzentall/ocrstore/internal/processor"
	"github.com/gzentall/ocrstore/internal/summarizer"
	"github.com/gzentall/ocrstore/pkg/models"
)

// Input is the output of one OCR and translation run.
type Input struct {
	Title          string           `json:"title"`
	SourceLanguage string           `json:"source_language"`
	TargetLanguage string           `json:"target_language"`
	OriginalText   string           `json:"original_text"`
	TranslatedText string           `json:"translated_text"`
	DateProcessed  models.Timestamp `json:"date_processed"`
	FileSize       int64            `json:"file_size"`
	PageCount      int              `json:"page_count"`
}

// Config holds pipeline configuration.
type Config struct {
	Summarizer     summarizer.Summarizer // nil disables enrichment
	TargetLanguage string                // default when the input names none
	Logger         *slog.Logger
}

// Result describes how a document was enriched.
type Result struct {
	Document models.Document
	Source   string // summarizer that produced the summary, "" when none ran
	Degraded bool   // every summarizer failed
	Duration time.Duration
}

// Pipeline orchestrates cleaning and enrichment.
type Pipeline struct {
	processor      *processor.Processor
	summarizer     summarizer.Summarizer
	targetLanguage string
	logger         *slog.Logger
}

// New creates a new Pipeline with the given configuration.
func New(config Config) *Pipeline {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	target := config.TargetLanguage
	if target == "" {
		target = "English"
	}
	return &Pipeline{
		processor:      processor.New(),
		summarizer:     config.Summarizer,
		targetLanguage: target,
		logger:         logger,
	}
}

// Run builds a document from in. Summarizer failure never fails the run:
// the document gets a "Summary generation failed" summary and no people.
func (p *Pipeline) Run(ctx context.Context, in Input) (*Result, error) {
	start := time.Now()

	original, err := p.processor.Clean(in.OriginalText)
	if err != nil {
		return nil, fmt.Errorf("clean original text: %w", err)
	}
	translated, err := p.processor.Clean(in.TranslatedText)
	if err != nil {
		return nil, fmt.Errorf("clean translated text: %w", err)
	}

	title := in.Title
	if title == "" {
		if translated != "" {
			title = p.processor.ExtractTitle(translated)
		} else {
			title = p.processor.ExtractTitle(original)
		}
	}
	if title == "" {
		title = "Untitled document"
	}

	target := in.TargetLanguage
	if target == "" {
		target = p.targetLanguage
	}

	size := in.FileSize
	if size == 0 {
		size = int64(len(in.OriginalText))
	}

	doc := models.Document{
		Title:          title,
		DateProcessed:  in.DateProcessed,
		SourceLanguage: in.SourceLanguage,
		TargetLanguage: target,
		OriginalText:   original,
		TranslatedText: translated,
		FileSize:       size,
		PageCount:      in.PageCount,
	}
	result := &Result{Document: doc}

	if p.summarizer != nil {
		summary, err := p.summarizer.Summarize(ctx, summarizer.Request{
			Title:          title,
			SourceLanguage: in.SourceLanguage,
			OriginalText:   original,
			TranslatedText: translated,
		})
		if err != nil {
			p.logger.Warn("summary generation failed", "title", title, "error", err)
			result.Document.Summary = models.SummaryFailedPrefix + err.Error()
			result.Degraded = true
		} else {
			result.Document.Summary = summary.Summary
			result.Document.People = summary.Mentions()
			result.Source = summary.Source
			p.logger.Debug("document enriched", "title", title, "source", summary.Source, "people", len(result.Document.People))
		}
	}

	result.Duration = time.Since(start)
	return result, nil
}
