package corpus

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// warcRecord renders one minimal WARC record with an embedded HTTP
// response, matching the framing readOneRaw expects.
func warcRecord(warcType, targetURI, contentType, body string) string {
	httpMsg := "HTTP/1.1 200 OK\r\nContent-Type: " + contentType + "\r\n\r\n" + body
	return "WARC/1.0\r\n" +
		"WARC-Type: " + warcType + "\r\n" +
		"WARC-Target-URI: " + targetURI + "\r\n" +
		"Content-Length: " + itoa(len(httpMsg)) + "\r\n" +
		"\r\n" +
		httpMsg + "\r\n" +
		"\r\n"
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

func writeFixture(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.warc")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReaderSkipsNonResponseAndWrongContentType(t *testing.T) {
	content := warcRecord("request", "http://example.com/", "text/html", "ignored") +
		warcRecord("response", "http://example.com/a", "application/json", "ignored") +
		warcRecord("response", "http://example.com/b", "text/html", "hello   world")

	path := writeFixture(t, content)
	r, err := Open(path, 0)
	require.NoError(t, err)
	defer r.Close()

	rec, err := r.Next(path)
	require.NoError(t, err)
	assert.Equal(t, "http://example.com/b", rec.URL)
	assert.Equal(t, "hello world", rec.Text)

	_, err = r.Next(path)
	assert.Equal(t, io.EOF, err)
}

func TestReaderAcceptsApplicationHTTPContentType(t *testing.T) {
	content := warcRecord("response", "http://example.com/c", "application/http", "plain text body")
	path := writeFixture(t, content)
	r, err := Open(path, 0)
	require.NoError(t, err)
	defer r.Close()

	rec, err := r.Next(path)
	require.NoError(t, err)
	assert.Equal(t, "http://example.com/c", rec.URL)
	assert.Equal(t, "plain text body", rec.Text)
}

func TestReaderEmptyFileReturnsEOF(t *testing.T) {
	path := writeFixture(t, "")
	r, err := Open(path, 0)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Next(path)
	assert.Equal(t, io.EOF, err)
}
