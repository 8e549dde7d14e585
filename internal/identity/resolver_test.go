package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gzentall/ocrstore/internal/catalog"
	"github.com/gzentall/ocrstore/pkg/models"
)

func date(t *testing.T, s string) models.Timestamp {
	t.Helper()
	v, err := models.ParseTimestamp(s)
	require.NoError(t, err)
	return v
}

func withDocs(key string, docs ...string) *models.Person {
	p := models.NewPerson(key, "", models.Timestamp{})
	p.Documents = append(p.Documents, docs...)
	return p
}

func TestResolve_MergesVariantsAndSeparatesDistinctPeople(t *testing.T) {
	reg := catalog.New()
	r := New(Config{})

	m, err := r.Resolve(reg, "John Smith", "a merchant", date(t, "2024-02-01"))
	require.NoError(t, err)
	assert.True(t, m.Created)
	assert.Equal(t, "john smith", m.Key)

	m, err = r.Resolve(reg, "J. Smith", "signed the letter", date(t, "2024-01-01"))
	require.NoError(t, err)
	assert.False(t, m.Created)
	assert.Equal(t, "john smith", m.Key)
	assert.GreaterOrEqual(t, m.Score, DefaultMergeThreshold)

	m, err = r.Resolve(reg, "Jane Smith", "", date(t, "2024-03-01"))
	require.NoError(t, err)
	assert.True(t, m.Created)
	assert.Equal(t, "jane smith", m.Key)

	john, ok := reg.Person("john smith")
	require.True(t, ok)
	assert.Equal(t, []string{"john smith", "j smith"}, john.Aliases)
	assert.Equal(t, "a merchant\nsigned the letter", john.Context)
	assert.Equal(t, "2024-01-01", john.FirstMentioned.DateString())
	assert.Empty(t, john.Documents)

	assert.Equal(t, []string{"jane smith", "john smith"}, reg.PersonKeys())
}

func TestResolve_ExactKeyIsIdempotent(t *testing.T) {
	reg := catalog.New()
	r := New(Config{})

	_, err := r.Resolve(reg, "Dr. Anna Müller", "physician", models.Timestamp{})
	require.NoError(t, err)
	m, err := r.Resolve(reg, "anna muller", "physician", models.Timestamp{})
	require.NoError(t, err)

	assert.Equal(t, "anna muller", m.Key)
	assert.Equal(t, 100, m.Score)
	assert.False(t, m.Created)

	p, _ := reg.Person("anna muller")
	assert.Equal(t, []string{"anna muller"}, p.Aliases)
	assert.Equal(t, "physician", p.Context)
}

func TestResolve_InvalidName(t *testing.T) {
	reg := catalog.New()
	r := New(Config{})

	for _, raw := range []string{"", "   ", "Dr.", "...", "Mr. Jr."} {
		_, err := r.Resolve(reg, raw, "", models.Timestamp{})
		assert.ErrorIs(t, err, models.ErrInvalidName, "raw=%q", raw)
	}
	assert.Empty(t, reg.People)
}

func TestResolve_TieBreak(t *testing.T) {
	t.Run("more documents wins", func(t *testing.T) {
		reg := catalog.New()
		reg.AddPerson(withDocs("jon smith", "doc_1", "doc_2", "doc_3"))
		reg.AddPerson(withDocs("john smyth", "doc_4"))

		m, err := New(Config{}).Resolve(reg, "John Smith", "", models.Timestamp{})
		require.NoError(t, err)
		assert.Equal(t, "jon smith", m.Key)
		assert.Equal(t, 90, m.Score)
	})

	t.Run("lexical key on equal documents", func(t *testing.T) {
		reg := catalog.New()
		reg.AddPerson(withDocs("jon smith", "doc_1", "doc_2"))
		reg.AddPerson(withDocs("john smyth", "doc_3", "doc_4"))

		m, err := New(Config{}).Resolve(reg, "John Smith", "", models.Timestamp{})
		require.NoError(t, err)
		assert.Equal(t, "john smyth", m.Key)
	})
}

func TestResolve_MatchesAgainstAliases(t *testing.T) {
	reg := catalog.New()
	p := withDocs("margaret thatcher", "doc_1")
	p.AddAlias("maggie thatcher")
	reg.AddPerson(p)

	m, err := New(Config{}).Resolve(reg, "Maggie Thacher", "", models.Timestamp{})
	require.NoError(t, err)
	assert.Equal(t, "margaret thatcher", m.Key)
	assert.True(t, p.HasAlias("maggie thacher"))
}

func TestResolve_AbbreviatedAliasDoesNotBridgePeople(t *testing.T) {
	reg := catalog.New()
	p := withDocs("john smith", "doc_1")
	p.AddAlias("j smith")
	reg.AddPerson(p)

	m, err := New(Config{}).Resolve(reg, "Jane Smith", "", models.Timestamp{})
	require.NoError(t, err)
	assert.True(t, m.Created)
	assert.Equal(t, "jane smith", m.Key)
	assert.Equal(t, []string{"john smith", "j smith"}, p.Aliases)
}

func TestResolve_ConflictingFirstNameStaysSeparate(t *testing.T) {
	reg := catalog.New()
	reg.AddPerson(withDocs("al johannesburg", "doc_1"))

	m, err := New(Config{}).Resolve(reg, "Ed Johannesburg", "", models.Timestamp{})
	require.NoError(t, err)
	assert.True(t, m.Created)
	assert.Equal(t, "ed johannesburg", m.Key)
}

func TestResolve_InitialFirstDoesNotAbsorbFullName(t *testing.T) {
	reg := catalog.New()
	reg.AddPerson(withDocs("j smith", "doc_1"))

	m, err := New(Config{}).Resolve(reg, "John Smith", "", models.Timestamp{})
	require.NoError(t, err)
	assert.True(t, m.Created)
	assert.Equal(t, "john smith", m.Key)
}

func TestResolve_CustomThreshold(t *testing.T) {
	reg := catalog.New()
	reg.AddPerson(withDocs("john smith", "doc_1"))

	m, err := New(Config{MergeThreshold: 95}).Resolve(reg, "Jon Smith", "", models.Timestamp{})
	require.NoError(t, err)
	assert.True(t, m.Created)
	assert.Equal(t, "jon smith", m.Key)
}

func TestSearch(t *testing.T) {
	reg := catalog.New()
	reg.AddPerson(withDocs("john smith", "doc_1"))
	reg.AddPerson(withDocs("jane smith", "doc_2"))
	reg.AddPerson(withDocs("anna berg", "doc_3"))
	r := New(Config{})

	got := r.Search(reg, "Jon Smith", 0)
	assert.Equal(t, []Candidate{
		{Key: "john smith", Score: 90, Alias: "john smith"},
		{Key: "jane smith", Score: 80, Alias: "jane smith"},
	}, got)

	assert.Len(t, r.Search(reg, "Jon Smith", 85), 1)
	assert.Empty(t, r.Search(reg, "", 0))
	assert.Empty(t, r.Search(reg, "zzzz", 0))
}
