package indexing

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warcidx/internal/codec"
	xerrors "warcidx/internal/errors"
)

func warcRecord(warcType, targetURI, contentType, body string) string {
	httpMsg := "HTTP/1.1 200 OK\r\nContent-Type: " + contentType + "\r\n\r\n" + body
	return "WARC/1.0\r\n" +
		"WARC-Type: " + warcType + "\r\n" +
		"WARC-Target-URI: " + targetURI + "\r\n" +
		"Content-Length: " + strconv.Itoa(len(httpMsg)) + "\r\n" +
		"\r\n" +
		httpMsg + "\r\n" +
		"\r\n"
}

func testConfig() Config {
	return Config{
		MaxWorkers:       1,
		MaxDocsPerWorker: 1000,
		NumPartitions:    1,
		MaxReadBytes:     1 << 30,
		MaxReadChars:     1 << 20,
		MemoryLimitMB:    4096,
		PerWorkerMB:      512,
	}
}

func TestRunJobIndexesUsefulRecordsOnly(t *testing.T) {
	dir := t.TempDir()
	corpusPath := filepath.Join(dir, "sample.warc")
	content := warcRecord("response", "http://example.com/a", "text/html", "the quick brown fox jumps") +
		warcRecord("response", "http://example.com/b", "application/json", "ignored entirely") +
		warcRecord("response", "http://example.com/c", "text/html", "the lazy fox sleeps")
	require.NoError(t, os.WriteFile(corpusPath, []byte(content), 0o644))

	job := Job{PartitionID: 0, DocidOffset: 100, StartDocid: 0, Path: corpusPath, Cursor: 0}
	res := RunJob(job, testConfig(), dir)

	require.NoError(t, res.Err)
	assert.True(t, res.Completed)
	assert.Equal(t, int64(2), res.DocCount)
	require.FileExists(t, res.RunFile)
	require.FileExists(t, res.URLFragFile)

	runContent, err := os.ReadFile(res.RunFile)
	require.NoError(t, err)
	_, postings, err := codec.ParseLine(firstLineContaining(string(runContent), "fox"))
	require.NoError(t, err)
	assert.Len(t, postings, 2)
	assert.Equal(t, int64(100), postings[0].DocID)
	assert.Equal(t, int64(101), postings[1].DocID)

	fragContent, err := os.ReadFile(res.URLFragFile)
	require.NoError(t, err)
	assert.Contains(t, string(fragContent), "http://example.com/a")
	assert.Contains(t, string(fragContent), "http://example.com/c")
	assert.NotContains(t, string(fragContent), "example.com/b")
}

func TestRunJobReportsNotCompletedWhenByteBudgetExceeded(t *testing.T) {
	dir := t.TempDir()
	corpusPath := filepath.Join(dir, "sample.warc")
	content := warcRecord("response", "http://example.com/a", "text/html", "alpha beta gamma") +
		warcRecord("response", "http://example.com/b", "text/html", "delta epsilon zeta")
	require.NoError(t, os.WriteFile(corpusPath, []byte(content), 0o644))

	cfg := testConfig()
	cfg.MaxReadBytes = 1 // trips after the first useful record

	job := Job{PartitionID: 0, DocidOffset: 0, StartDocid: 0, Path: corpusPath, Cursor: 0}
	res := RunJob(job, cfg, dir)

	require.NoError(t, res.Err)
	assert.False(t, res.Completed)
	assert.Equal(t, int64(1), res.DocCount)
	assert.Greater(t, res.NextCursor, int64(0))
}

func TestRunJobFailsOnUnopenableFile(t *testing.T) {
	dir := t.TempDir()
	job := Job{PartitionID: 3, Path: filepath.Join(dir, "missing.warc"), Cursor: 0}
	res := RunJob(job, testConfig(), dir)
	require.Error(t, res.Err)
	assert.Empty(t, res.RunFile)

	var workerErr *xerrors.WorkerError
	require.ErrorAs(t, res.Err, &workerErr)
	assert.Equal(t, 3, workerErr.PartitionID)
	assert.Equal(t, "streamize", workerErr.Operation)
}

func firstLineContaining(content, needle string) string {
	for _, line := range strings.Split(content, "\n") {
		if strings.Contains(line, needle) {
			return line
		}
	}
	return ""
}
