package markindex

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePostings(t *testing.T, terms []string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "index")
	f, err := os.Create(path)
	require.NoError(t, err)
	for _, term := range terms {
		_, err := f.WriteString(term + " 0,1\n")
		require.NoError(t, err)
	}
	require.NoError(t, f.Close())
	return path
}

func TestBuildRecordsOneMarkPerBlock(t *testing.T) {
	// Ascending terms, one per line, each line 11-13 bytes: force a
	// multi-block scan with a tiny maxChars so several marks result.
	terms := []string{"aardvark", "banana", "cherry", "donkey", "elephant", "falcon"}
	path := writePostings(t, terms)

	idx, err := Build(path, 0, 16)
	require.NoError(t, err)
	assert.Greater(t, len(idx.marks), 1)
}

func TestLookupFindsExistingTerm(t *testing.T) {
	terms := []string{"aardvark", "banana", "cherry", "donkey", "elephant", "falcon"}
	path := writePostings(t, terms)

	idx, err := Build(path, 0, 16)
	require.NoError(t, err)

	for _, term := range terms {
		postings, ok, err := idx.Lookup(term)
		require.NoError(t, err)
		assert.True(t, ok, "expected to find %q", term)
		require.Len(t, postings, 1)
		assert.Equal(t, int64(0), postings[0].DocID)
	}
}

func TestLookupReportsMissingTerm(t *testing.T) {
	terms := []string{"aardvark", "banana", "cherry"}
	path := writePostings(t, terms)

	idx, err := Build(path, 0, 16)
	require.NoError(t, err)

	_, ok, err := idx.Lookup("zzzmissing")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = idx.Lookup("aa")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMustFoundReturnsStructuralErrorWhenMissing(t *testing.T) {
	path := writePostings(t, []string{"onlyterm"})
	idx, err := Build(path, 0, 1<<20)
	require.NoError(t, err)

	_, err = idx.MustFound("notpresent")
	assert.Error(t, err)
}

func TestLookupOnEmptyIndexReturnsNotFound(t *testing.T) {
	path := writePostings(t, nil)
	idx, err := Build(path, 0, 1<<20)
	require.NoError(t, err)

	_, ok, err := idx.Lookup("anything")
	require.NoError(t, err)
	assert.False(t, ok)
}
