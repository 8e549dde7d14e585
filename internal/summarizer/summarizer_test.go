package summarizer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gzentall/ocrstore/pkg/models"
)

type stubSummarizer struct {
	name  string
	res   Result
	err   error
	calls int
}

func (s *stubSummarizer) Name() string { return s.name }

func (s *stubSummarizer) Summarize(_ context.Context, _ Request) (Result, error) {
	s.calls++
	return s.res, s.err
}

func TestExtractNames(t *testing.T) {
	text := "John A. Smith met Mary Anne Jones and Peter Brown with The Hague officials."

	got := ExtractNames(text)

	var names []string
	for _, c := range got {
		names = append(names, c.Name)
		assert.Equal(t, FallbackContext, c.Context)
	}
	assert.Equal(t, []string{"John A. Smith", "Mary Anne Jones", "Peter Brown"}, names)
}

func TestExtractNames_Cap(t *testing.T) {
	var b strings.Builder
	for i := 0; i < MaxFallbackPeople+5; i++ {
		fmt.Fprintf(&b, "Person %s was here. ", "Name"+string(rune('a'+i)))
	}
	assert.Len(t, ExtractNames(b.String()), MaxFallbackPeople)
}

func TestExtractNames_Dedupe(t *testing.T) {
	got := ExtractNames("Karl Weber wrote. Later Karl Weber replied.")
	require.Len(t, got, 1)
	assert.Equal(t, "Karl Weber", got[0].Name)
}

func TestExtractNames_Runs(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"sentence opener dropped when rest repeats", "Then Anna Berg left. Anna Berg returned.", []string{"Anna Berg"}},
		{"sentence opener kept otherwise", "Mary Anne Jones wrote home.", []string{"Mary Anne Jones"}},
		{"leading stop word", "Dear Hans Meier, thank you.", []string{"Hans Meier"}},
		{"longer name replaces contained one", "Hans Meier wrote. We met Peter Hans Meier later.", []string{"Peter Hans Meier"}},
		{"trailing initial", "Signed by Karl W. in haste.", nil},
		{"single words", "Berlin and Hamburg in May.", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, c := range ExtractNames(tt.text) {
				got = append(got, c.Name)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSummarize(t *testing.T) {
	text := "Dear Maria,\nI hope the family is well. I will travel to Berlin on March 3, 1921.\nYour brother Karl Weber"

	want := "This appears to be a personal letter involving Karl Weber. " +
		"discusses family matters, travel plans. " +
		"mentions dates: march 3, 1921. " +
		"references locations: Berlin. " +
		"(21 words)."
	assert.Equal(t, want, Summarize(text))
}

func TestSummarize_Empty(t *testing.T) {
	assert.Equal(t, EmptySummary, Summarize(" \n\t\n"))
}

func TestSummarize_PlainDocument(t *testing.T) {
	assert.Equal(t, "Document. (3 words).", Summarize("ledger entry only"))
}

func TestFallback_UsesTranslation(t *testing.T) {
	res, err := NewFallback().Summarize(context.Background(), Request{
		OriginalText:   "Liebe Maria, Gruesse von Hans Meier",
		TranslatedText: "Dear Maria, greetings from Hans Meier",
	})
	require.NoError(t, err)
	assert.Equal(t, "rules", res.Source)
	assert.True(t, strings.HasPrefix(res.Summary, "This appears to be a personal letter"))
	require.Len(t, res.People, 1)
	assert.Equal(t, "Hans Meier", res.People[0].Name)
}

func TestChain(t *testing.T) {
	t.Run("first success wins", func(t *testing.T) {
		first := &stubSummarizer{name: "llm", err: errors.New("socket closed")}
		second := &stubSummarizer{name: "rules", res: Result{Summary: "ok"}}
		third := &stubSummarizer{name: "unused"}

		res, err := NewChain(first, nil, second, third).Summarize(context.Background(), Request{})
		require.NoError(t, err)
		assert.Equal(t, "ok", res.Summary)
		assert.Equal(t, "rules", res.Source)
		assert.Equal(t, 0, third.calls)
	})

	t.Run("all fail", func(t *testing.T) {
		a := &stubSummarizer{name: "a", err: errors.New("boom")}
		b := &stubSummarizer{name: "b", err: errors.New("bang")}

		_, err := NewChain(a, b).Summarize(context.Background(), Request{})
		require.Error(t, err)
		assert.ErrorIs(t, err, models.ErrExternal)
		assert.Contains(t, err.Error(), "boom")
		assert.Contains(t, err.Error(), "bang")
	})

	t.Run("empty chain", func(t *testing.T) {
		_, err := NewChain().Summarize(context.Background(), Request{})
		assert.ErrorIs(t, err, models.ErrExternal)
	})
}

func TestResult_Mentions(t *testing.T) {
	res := Result{People: []Candidate{{Name: "Karl Weber", Context: "brother"}, {Name: ""}}}
	assert.Equal(t, []models.PersonMention{{OriginalName: "Karl Weber", Context: "brother"}}, res.Mentions())
}
