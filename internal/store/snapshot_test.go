package store

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gzentall/ocrstore/pkg/models"
)

func TestSnapshot(t *testing.T) {
	st := newStore(t)
	a := create(t, st, letter(t, "A", "2020-01-01", "John Smith"))
	b := create(t, st, letter(t, "B", "2020-02-01", "Anna Berg"))

	snap, err := st.Snapshot()
	require.NoError(t, err)
	assert.Empty(t, snap.Errors)
	require.Len(t, snap.Documents, 2)
	assert.ElementsMatch(t, []string{a, b}, []string{snap.Documents[0].ID, snap.Documents[1].ID})
	assert.Len(t, snap.People, 2)

	var meta map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(snap.Metadata, &meta))
	assert.Contains(t, meta, "documents")
	assert.Contains(t, meta, "people")

	// Snapshot people are copies.
	snap.People[0].Documents = append(snap.People[0].Documents, "doc_extra")
	p, err := st.Person(snap.People[0].Key)
	require.NoError(t, err)
	assert.NotContains(t, p.Documents, "doc_extra")
}

func TestSnapshot_MissingBody(t *testing.T) {
	st := newStore(t)
	a := create(t, st, letter(t, "A", "2020-01-01"))
	b := create(t, st, letter(t, "B", "2020-02-01"))
	require.NoError(t, os.Remove(st.DocumentPath(a)))

	snap, err := st.Snapshot()
	require.NoError(t, err)
	require.Len(t, snap.Documents, 1)
	assert.Equal(t, b, snap.Documents[0].ID)
	require.Len(t, snap.Errors, 1)
	assert.ErrorIs(t, snap.Errors[0], models.ErrNotFound)
}
