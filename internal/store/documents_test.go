package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gzentall/ocrstore/internal/summarizer"
	"github.com/gzentall/ocrstore/pkg/models"
)

func ptr[T any](v T) *T { return &v }

func TestCreateGet_RoundTrip(t *testing.T) {
	st := newStore(t)
	in := models.Document{
		Title:          "Letter from Hamburg",
		DateProcessed:  day(t, "2021-03-04T10:11:12Z"),
		SourceLanguage: "de",
		TargetLanguage: "en",
		OriginalText:   "Liebe Maria, ...",
		TranslatedText: "Dear Maria, ...",
		Summary:        "A letter",
		People: []models.PersonMention{
			{OriginalName: "Karl Weber", NormalizedName: "karl weber", Context: "brother"},
		},
		FileSize:  2048,
		PageCount: 2,
	}

	id, err := st.Create(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "doc_"))

	got, err := st.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	if diff := cmp.Diff(in, got, cmpopts.IgnoreFields(models.Document{}, "ID")); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	rows := st.List()
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].PeopleCount)
	assert.Equal(t, "A letter", rows[0].Summary)
}

func TestCreate_DefaultsDate(t *testing.T) {
	st := newStore(t)
	id := create(t, st, models.Document{Title: "Undated"})

	doc, err := st.Get(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, doc.DateProcessed.Equal(fixedNow))
}

func TestCreate_TruncatesIndexSummary(t *testing.T) {
	st := newStore(t)
	doc := letter(t, "Long", "2020-01-01")
	doc.Summary = strings.Repeat("x", 150)
	id := create(t, st, doc)

	rows := st.List()
	require.Len(t, rows, 1)
	assert.Equal(t, strings.Repeat("x", 100)+"...", rows[0].Summary)

	full, err := st.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Len(t, full.Summary, 150)
}

func TestCreate_MergesVariants(t *testing.T) {
	st := newStore(t)
	a := create(t, st, letter(t, "Letter A", "2020-01-01", "John Smith"))

	p, err := st.Person("john smith")
	require.NoError(t, err)
	assert.Equal(t, "2020-01-01", p.FirstMentioned.DateString())

	b := create(t, st, letter(t, "Letter B", "2019-06-01", "J. Smith"))

	p, err = st.Person("john smith")
	require.NoError(t, err)
	assert.Equal(t, "2019-06-01", p.FirstMentioned.DateString())
	assert.Contains(t, p.Aliases, "j smith")
	assert.ElementsMatch(t, []string{a, b}, p.Documents)
	assert.Len(t, st.People(), 1)

	docB, err := st.Get(context.Background(), b)
	require.NoError(t, err)
	assert.Equal(t, "J. Smith", docB.People[0].OriginalName)
	assert.Equal(t, "john smith", docB.People[0].NormalizedName)

	require.NoError(t, st.Delete(context.Background(), a))
	p, err = st.Person("john smith")
	require.NoError(t, err)
	assert.Equal(t, []string{b}, p.Documents)

	require.NoError(t, st.Delete(context.Background(), b))
	_, err = st.Person("john smith")
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.Empty(t, st.People())
}

func TestCreate_DistinctPeopleStaySeparate(t *testing.T) {
	st := newStore(t)
	create(t, st, letter(t, "A", "2020-01-01", "John Smith"))
	create(t, st, letter(t, "B", "2020-01-02", "Jane Smith"))

	var keys []string
	for _, p := range st.People() {
		keys = append(keys, p.Key)
	}
	assert.Equal(t, []string{"jane smith", "john smith"}, keys)
}

func TestCreate_InitialAliasDoesNotAbsorbOtherFirstNames(t *testing.T) {
	st := newStore(t)
	a := create(t, st, letter(t, "A", "2020-01-01", "John Smith"))
	b := create(t, st, letter(t, "B", "2020-01-02", "J. Smith"))
	c := create(t, st, letter(t, "C", "2020-01-03", "Jane Smith"))

	john, err := st.Person("john smith")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a, b}, john.Documents)
	assert.NotContains(t, john.Aliases, "jane smith")

	jane, err := st.Person("jane smith")
	require.NoError(t, err)
	assert.Equal(t, []string{c}, jane.Documents)

	doc, err := st.Get(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, []string{"jane smith"}, doc.PersonKeys())
}

func TestCreate_PeopleCountIsDistinctPeople(t *testing.T) {
	st := newStore(t)
	id := create(t, st, letter(t, "A", "2020-01-01", "John Smith", "J. Smith", "Anna Berg"))

	doc, err := st.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Len(t, doc.People, 3)
	assert.Equal(t, 2, rowFor(t, st, id).PeopleCount)
}

func TestCreate_SkipsInvalidNames(t *testing.T) {
	st := newStore(t)
	id := create(t, st, letter(t, "A", "2020-01-01", "Dr.", "Anna Berg", "  "))

	doc, err := st.Get(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, doc.People, 1)
	assert.Equal(t, "anna berg", doc.People[0].NormalizedName)
	assert.Equal(t, 1, st.List()[0].PeopleCount)
}

func TestCreate_MetadataWriteFailure(t *testing.T) {
	dir := t.TempDir()
	st := openStore(t, dir, Options{})

	// A directory where the index file belongs makes the rename fail.
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "metadata.json", "blocker"), 0o755))

	_, err := st.Create(context.Background(), letter(t, "A", "2020-01-01", "John Smith"))
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrIO)

	assert.Empty(t, st.List())
	assert.Empty(t, st.People())
	ids, err := st.bodyIDs()
	require.NoError(t, err)
	assert.Empty(t, ids, "body must be removed when the index cannot be saved")
}

func TestGet_InvalidID(t *testing.T) {
	st := newStore(t)
	for _, id := range []string{"", "..", "../metadata", "a/b"} {
		_, err := st.Get(context.Background(), id)
		assert.ErrorIs(t, err, models.ErrNotFound, "id=%q", id)
	}
}

func TestGet_SelfHealsMissingBody(t *testing.T) {
	dir := t.TempDir()
	st := openStore(t, dir, Options{})
	a := create(t, st, letter(t, "A", "2020-01-01", "John Smith", "Anna Berg"))
	b := create(t, st, letter(t, "B", "2020-01-02", "Anna Berg"))

	require.NoError(t, os.Remove(st.DocumentPath(a)))

	_, err := st.Get(context.Background(), a)
	assert.ErrorIs(t, err, models.ErrNotFound)

	rows := st.List()
	require.Len(t, rows, 1)
	assert.Equal(t, b, rows[0].ID)

	_, err = st.Person("john smith")
	assert.ErrorIs(t, err, models.ErrNotFound)
	anna, err := st.Person("anna berg")
	require.NoError(t, err)
	assert.Equal(t, []string{b}, anna.Documents)

	// The prune was persisted.
	require.NoError(t, st.Close())
	reopened := openStore(t, dir, Options{})
	assert.Len(t, reopened.List(), 1)
}

func TestGet_CorruptBodyIsIsolated(t *testing.T) {
	st := newStore(t)
	a := create(t, st, letter(t, "A", "2020-01-01"))
	b := create(t, st, letter(t, "B", "2020-01-02"))

	require.NoError(t, os.WriteFile(st.DocumentPath(a), []byte("{broken"), 0o644))

	_, err := st.Get(context.Background(), a)
	assert.ErrorIs(t, err, models.ErrCorruption)

	assert.Len(t, st.List(), 2, "corrupt document keeps its index row")
	assert.Len(t, st.Search("a"), 2)

	docs, errs := st.LoadAll()
	require.Len(t, docs, 1)
	assert.Equal(t, b, docs[0].ID)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], models.ErrCorruption)
	var loadErr *LoadError
	require.True(t, errors.As(errs[0], &loadErr))
	assert.Equal(t, a, loadErr.ID)
}

func TestUpdate_MergesFields(t *testing.T) {
	st := newStore(t)
	id := create(t, st, letter(t, "A", "2020-01-01", "John Smith"))

	doc, err := st.Update(context.Background(), id, models.DocumentUpdate{
		Title:     ptr("A (revised)"),
		PageCount: ptr(3),
	}, false)
	require.NoError(t, err)
	assert.Equal(t, "A (revised)", doc.Title)
	assert.Equal(t, 3, doc.PageCount)
	assert.Equal(t, "Dear friend", doc.TranslatedText)
	require.Len(t, doc.People, 1)

	rows := st.List()
	require.Len(t, rows, 1)
	assert.Equal(t, "A (revised)", rows[0].Title)
	assert.Equal(t, 3, rows[0].PageCount)
}

func TestUpdate_PeopleDiff(t *testing.T) {
	st := newStore(t)
	id := create(t, st, letter(t, "A", "2020-01-01", "John Smith", "Anna Berg"))
	other := create(t, st, letter(t, "B", "2020-01-02", "Anna Berg"))

	doc, err := st.Update(context.Background(), id, models.DocumentUpdate{
		People: &[]models.PersonMention{{OriginalName: "Anna Berg"}, {OriginalName: "Karl Weber"}},
	}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"anna berg", "karl weber"}, doc.PersonKeys())

	_, err = st.Person("john smith")
	assert.ErrorIs(t, err, models.ErrNotFound, "person left without documents is deleted")

	anna, err := st.Person("anna berg")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{id, other}, anna.Documents)

	karl, err := st.Person("karl weber")
	require.NoError(t, err)
	assert.Equal(t, []string{id}, karl.Documents)
}

func TestUpdate_Regenerate(t *testing.T) {
	dir := t.TempDir()
	fake := &fakeSummarizer{res: summarizer.Result{
		Summary: "Regenerated summary",
		People:  []summarizer.Candidate{{Name: "Maria Weber", Context: "sister"}},
	}}
	st := openStore(t, dir, Options{Summarizer: fake})
	// The summarizer runs without the index lock held.
	fake.hook = func() { st.List() }

	id := create(t, st, letter(t, "A", "2020-01-01", "John Smith"))

	doc, err := st.Update(context.Background(), id, models.DocumentUpdate{
		TranslatedText: ptr("Dear Maria, your sister"),
	}, true)
	require.NoError(t, err)

	assert.Equal(t, 1, fake.calls)
	assert.Equal(t, "Regenerated summary", doc.Summary)
	assert.Empty(t, doc.SummaryError)
	assert.Equal(t, "Dear Maria, your sister", doc.TranslatedText)
	require.Len(t, doc.People, 1)
	assert.Equal(t, "maria weber", doc.People[0].NormalizedName)
	assert.Equal(t, "sister", doc.People[0].Context)

	_, err = st.Person("john smith")
	assert.ErrorIs(t, err, models.ErrNotFound)
	maria, err := st.Person("maria weber")
	require.NoError(t, err)
	assert.Equal(t, []string{id}, maria.Documents)
}

func TestUpdate_RegenerateFailureKeepsPrevious(t *testing.T) {
	fake := &fakeSummarizer{err: errors.New("model unavailable")}
	st := openStore(t, t.TempDir(), Options{Summarizer: fake})
	id := create(t, st, letter(t, "A", "2020-01-01", "John Smith"))

	doc, err := st.Update(context.Background(), id, models.DocumentUpdate{
		TranslatedText: ptr("New translation"),
	}, true)
	require.NoError(t, err, "summarizer failure must not abort the update")

	assert.Equal(t, "New translation", doc.TranslatedText)
	assert.Equal(t, "A summary", doc.Summary)
	assert.Contains(t, doc.SummaryError, "model unavailable")
	assert.Equal(t, []string{"john smith"}, doc.PersonKeys())

	p, err := st.Person("john smith")
	require.NoError(t, err)
	assert.Equal(t, []string{id}, p.Documents)

	// A later manual summary clears the marker.
	doc, err = st.Update(context.Background(), id, models.DocumentUpdate{Summary: ptr("Fixed by hand")}, false)
	require.NoError(t, err)
	assert.Empty(t, doc.SummaryError)
}

func TestUpdate_RegenerateNeedsNewText(t *testing.T) {
	fake := &fakeSummarizer{res: summarizer.Result{Summary: "unused"}}
	st := openStore(t, t.TempDir(), Options{Summarizer: fake})
	id := create(t, st, letter(t, "A", "2020-01-01"))

	doc, err := st.Update(context.Background(), id, models.DocumentUpdate{Title: ptr("B")}, true)
	require.NoError(t, err)
	assert.Equal(t, 0, fake.calls)
	assert.Equal(t, "A summary", doc.Summary)
}

func TestUpdate_RegenerateWithoutSummarizer(t *testing.T) {
	st := newStore(t)
	id := create(t, st, letter(t, "A", "2020-01-01"))

	doc, err := st.Update(context.Background(), id, models.DocumentUpdate{TranslatedText: ptr("x")}, true)
	require.NoError(t, err)
	assert.Equal(t, "A summary", doc.Summary)
	assert.NotEmpty(t, doc.SummaryError)
}

func TestUpdate_NotFound(t *testing.T) {
	st := newStore(t)
	_, err := st.Update(context.Background(), "doc_missing", models.DocumentUpdate{Title: ptr("x")}, false)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestDelete(t *testing.T) {
	st := newStore(t)
	id := create(t, st, letter(t, "A", "2020-01-01", "John Smith"))

	require.NoError(t, st.Delete(context.Background(), id))
	_, err := os.Stat(st.DocumentPath(id))
	assert.True(t, os.IsNotExist(err))
	assert.Empty(t, st.List())

	assert.ErrorIs(t, st.Delete(context.Background(), id), models.ErrNotFound)
}

func TestDelete_ToleratesMissingBody(t *testing.T) {
	st := newStore(t)
	id := create(t, st, letter(t, "A", "2020-01-01", "John Smith"))
	require.NoError(t, os.Remove(st.DocumentPath(id)))

	require.NoError(t, st.Delete(context.Background(), id))
	assert.Empty(t, st.List())
	assert.Empty(t, st.People())
}

func TestListAndSearch(t *testing.T) {
	st := newStore(t)
	old := create(t, st, letter(t, "Harbour ledger", "2019-01-01"))
	mid := create(t, st, letter(t, "Letter", "2020-01-01"))
	recent := create(t, st, letter(t, "Diary", "2021-01-01"))

	var ids []string
	for _, row := range st.List() {
		ids = append(ids, row.ID)
	}
	assert.Equal(t, []string{recent, mid, old}, ids)

	hits := st.Search("HARBOUR")
	require.Len(t, hits, 1)
	assert.Equal(t, old, hits[0].ID)

	hits = st.Search("letter summary")
	require.Len(t, hits, 1)
	assert.Equal(t, mid, hits[0].ID)

	assert.Empty(t, st.Search("nothing"))
}
