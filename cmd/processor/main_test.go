package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadQueriesTrimsWhitespaceAndSkipsBlankLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "queries.txt")
	require.NoError(t, os.WriteFile(path, []byte("  lion tiger  \n\n\tzebra\n"), 0644))

	queries, err := readQueries(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"lion tiger", "zebra"}, queries)
}

func TestReadQueriesOnMissingFileReturnsError(t *testing.T) {
	_, err := readQueries(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}
