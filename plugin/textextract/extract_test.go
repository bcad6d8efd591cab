package textextract

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestExtractor(tikaURL string) *Extractor {
	return NewExtractor(&Config{TikaServerURL: tikaURL, Timeout: 5 * time.Second}, nil)
}

func TestExtractFilePlainText(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lecture.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello world"), 0o644))

	result, err := newTestExtractor("").ExtractFile(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "lecture.txt", result.FileName)
	assert.Equal(t, "hello world", result.Text())
}

func TestExtractFileViaTika(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/tika", r.URL.Path)
		w.Write([]byte("  extracted body  \n"))
	}))
	defer server.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "slides.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 fake"), 0o644))

	result, err := newTestExtractor(server.URL).ExtractFile(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "extracted body", result.Text())
}

func TestExtractFileFailuresAreUnsuccessful(t *testing.T) {
	dir := t.TempDir()

	t.Run("NoTikaServer", func(t *testing.T) {
		path := filepath.Join(dir, "report.pdf")
		require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o644))

		result, err := newTestExtractor("").ExtractFile(context.Background(), path)
		require.NoError(t, err)
		assert.False(t, result.Success)
	})

	t.Run("TikaServerError", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer server.Close()

		path := filepath.Join(dir, "deck.pdf")
		require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o644))

		result, err := newTestExtractor(server.URL).ExtractFile(context.Background(), path)
		require.NoError(t, err)
		assert.False(t, result.Success)
	})

	t.Run("UnsupportedType", func(t *testing.T) {
		path := filepath.Join(dir, "photo.png")
		require.NoError(t, os.WriteFile(path, []byte{0x89, 'P', 'N', 'G'}, 0o644))

		result, err := newTestExtractor("").ExtractFile(context.Background(), path)
		require.NoError(t, err)
		assert.False(t, result.Success)
	})

	t.Run("MissingFile", func(t *testing.T) {
		_, err := newTestExtractor("").ExtractFile(context.Background(), filepath.Join(dir, "absent.txt"))
		assert.Error(t, err)
	})
}

func TestExtractPathDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("second"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("first"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden.txt"), []byte("skip"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))

	results, err := newTestExtractor("").ExtractPath(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a.txt", results[0].FileName)
	assert.Equal(t, "first", results[0].Text())
	assert.Equal(t, "b.txt", results[1].FileName)
}
