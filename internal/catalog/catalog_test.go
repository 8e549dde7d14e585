package catalog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gzentall/ocrstore/pkg/models"
)

func ts(t *testing.T, s string) models.Timestamp {
	t.Helper()
	v, err := models.ParseTimestamp(s)
	require.NoError(t, err)
	return v
}

func person(key string, docs ...string) *models.Person {
	p := models.NewPerson(key, "", models.Timestamp{})
	p.Documents = append(p.Documents, docs...)
	return p
}

func TestLoad_MissingFileIsEmpty(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "metadata.json"))
	require.NoError(t, err)
	assert.Empty(t, c.Documents)
	assert.Empty(t, c.People)
}

func TestLoad_ParseFailureIsCorruption(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrCorruption)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.json")

	c := New()
	c.PutDocument("doc_1", models.DocumentEntry{
		Title:          "Letter",
		DateProcessed:  ts(t, "2024-01-15T10:00:00"),
		SourceLanguage: "de",
		TargetLanguage: "en",
		PeopleCount:    1,
		Summary:        "A letter",
	})
	p := models.NewPerson("john smith", "merchant", ts(t, "2024-01-15"))
	p.Documents = []string{"doc_1"}
	p.AddAlias("j smith")
	c.AddPerson(p)

	now := time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, c.Save(path, now))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.True(t, loaded.LastUpdated.Equal(now))

	if diff := cmp.Diff(c.Documents, loaded.Documents); diff != "" {
		t.Errorf("documents mismatch (-want +got):\n%s", diff)
	}
	got, ok := loaded.Person("john smith")
	require.True(t, ok)
	assert.Equal(t, "john smith", got.Key)
	assert.Equal(t, []string{"john smith", "j smith"}, got.Aliases)
	assert.Equal(t, []string{"doc_1"}, got.Documents)
	assert.Equal(t, "merchant", got.Context)
}

func TestSave_WritesExpectedKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.json")
	require.NoError(t, New().Save(path, time.Now()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"documents"`)
	assert.Contains(t, string(data), `"people"`)
	assert.Contains(t, string(data), `"last_updated"`)
}

func TestClone_IsDeep(t *testing.T) {
	c := New()
	c.PutDocument("doc_1", models.DocumentEntry{Title: "A"})
	c.AddPerson(person("john smith", "doc_1"))

	clone := c.Clone()
	require.NoError(t, clone.Link("john smith", "doc_2"))
	clone.PutDocument("doc_2", models.DocumentEntry{Title: "B"})

	orig, _ := c.Person("john smith")
	assert.Equal(t, []string{"doc_1"}, orig.Documents)
	assert.False(t, c.HasDocument("doc_2"))
}

func TestLinkUnlink(t *testing.T) {
	c := New()
	c.AddPerson(person("john smith"))

	require.NoError(t, c.Link("john smith", "doc_1"))
	require.NoError(t, c.Link("john smith", "doc_1"))
	require.NoError(t, c.Link("john smith", "doc_2"))

	p, _ := c.Person("john smith")
	assert.Equal(t, []string{"doc_1", "doc_2"}, p.Documents)

	assert.False(t, c.Unlink("john smith", "doc_1"))
	assert.False(t, c.Unlink("john smith", "doc_missing"))
	assert.True(t, c.Unlink("john smith", "doc_2"))

	_, ok := c.Person("john smith")
	assert.False(t, ok, "person with no documents must be deleted")

	assert.False(t, c.Unlink("nobody", "doc_1"))
	assert.ErrorIs(t, c.Link("nobody", "doc_1"), models.ErrNotFound)
}

func TestRemoveDocument_Cascades(t *testing.T) {
	c := New()
	c.PutDocument("doc_1", models.DocumentEntry{})
	c.PutDocument("doc_2", models.DocumentEntry{})
	c.AddPerson(person("john smith", "doc_1"))
	c.AddPerson(person("jane doe", "doc_1", "doc_2"))

	deleted := c.RemoveDocument("doc_1")

	assert.Equal(t, []string{"john smith"}, deleted)
	assert.False(t, c.HasDocument("doc_1"))
	jane, ok := c.Person("jane doe")
	require.True(t, ok)
	assert.Equal(t, []string{"doc_2"}, jane.Documents)
}

func TestRenamePerson(t *testing.T) {
	t.Run("to new key", func(t *testing.T) {
		c := New()
		c.AddPerson(person("jon smith", "doc_1"))

		p, err := c.RenamePerson("jon smith", "john smith")
		require.NoError(t, err)

		assert.Equal(t, "john smith", p.Key)
		assert.ElementsMatch(t, []string{"jon smith", "john smith"}, p.Aliases)
		_, ok := c.Person("jon smith")
		assert.False(t, ok)
		assert.Equal(t, []string{"john smith"}, c.PersonKeys())
	})

	t.Run("onto existing key merges", func(t *testing.T) {
		c := New()
		a := person("jon smith", "doc_1", "doc_2")
		a.FirstMentioned = ts(t, "2023-05-01")
		a.Context = "sailor"
		c.AddPerson(a)
		b := person("john smith", "doc_2", "doc_3")
		b.FirstMentioned = ts(t, "2024-01-01")
		c.AddPerson(b)

		p, err := c.RenamePerson("jon smith", "john smith")
		require.NoError(t, err)

		assert.Equal(t, []string{"doc_2", "doc_3", "doc_1"}, p.Documents)
		assert.ElementsMatch(t, []string{"john smith", "jon smith"}, p.Aliases)
		assert.True(t, p.FirstMentioned.Equal(ts(t, "2023-05-01").Time))
		assert.Equal(t, "sailor", p.Context)
		assert.Len(t, c.People, 1)
	})

	t.Run("unknown key", func(t *testing.T) {
		_, err := New().RenamePerson("nobody", "somebody")
		assert.ErrorIs(t, err, models.ErrNotFound)
	})
}

func TestRemovePerson(t *testing.T) {
	c := New()
	c.AddPerson(person("john smith", "doc_1"))

	p, err := c.RemovePerson("john smith")
	require.NoError(t, err)
	assert.Equal(t, []string{"doc_1"}, p.Documents)
	assert.Empty(t, c.People)

	_, err = c.RemovePerson("john smith")
	assert.ErrorIs(t, err, models.ErrNotFound)
}
