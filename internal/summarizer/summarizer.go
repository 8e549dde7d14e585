// Package summarizer derives a summary and a list of person candidates from a
// document's text.
//
// Implementations report failure through the error return; callers decide
// how to degrade. Chain tries several implementations in order.
package summarizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gzentall/ocrstore/pkg/models"
)

// Request is the text a summarizer works on.
type Request struct {
	Title          string
	SourceLanguage string
	OriginalText   string
	TranslatedText string
}

// Text returns the text to analyze: the translation when present, the
// original otherwise.
func (r Request) Text() string {
	if r.TranslatedText != "" {
		return r.TranslatedText
	}
	return r.OriginalText
}

// Candidate is a person name found in the text.
type Candidate struct {
	Name    string `json:"name"`
	Context string `json:"context"`
}

// Result is a successful summarization.
type Result struct {
	Summary string
	People  []Candidate
	Source  string // Name of the summarizer that produced it
}

// Mentions converts the candidates into unresolved person mentions.
func (r Result) Mentions() []models.PersonMention {
	out := make([]models.PersonMention, 0, len(r.People))
	for _, c := range r.People {
		if c.Name == "" {
			continue
		}
		out = append(out, models.PersonMention{OriginalName: c.Name, Context: c.Context})
	}
	return out
}

// Summarizer produces a Result for a Request.
type Summarizer interface {
	Name() string
	Summarize(ctx context.Context, req Request) (Result, error)
}

// Chain tries each summarizer in order and returns the first success.
type Chain struct {
	summarizers []Summarizer
}

// NewChain creates a chain. Nil entries are skipped.
func NewChain(summarizers ...Summarizer) *Chain {
	c := &Chain{}
	for _, s := range summarizers {
		if s != nil {
			c.summarizers = append(c.summarizers, s)
		}
	}
	return c
}

// Name implements Summarizer.
func (c *Chain) Name() string { return "chain" }

// Summarize implements Summarizer. When every member fails the joined error
// wraps models.ErrExternal.
func (c *Chain) Summarize(ctx context.Context, req Request) (Result, error) {
	if len(c.summarizers) == 0 {
		return Result{}, fmt.Errorf("%w: no summarizer configured", models.ErrExternal)
	}

	var errs []error
	for _, s := range c.summarizers {
		res, err := s.Summarize(ctx, req)
		if err == nil {
			if res.Source == "" {
				res.Source = s.Name()
			}
			return res, nil
		}
		slog.Warn("summarizer failed", "summarizer", s.Name(), "error", err)
		errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		if ctx.Err() != nil {
			break
		}
	}
	return Result{}, fmt.Errorf("%w: %w", models.ErrExternal, errors.Join(errs...))
}
