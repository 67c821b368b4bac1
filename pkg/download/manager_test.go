package download

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	pkgerrors "github.com/glorpus-work/repoq/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func sha256Hex(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

func TestFetch(t *testing.T) {
	payload := []byte(`{"packages":[]}`)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-Modified-Since") != "" {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		switch r.URL.Path {
		case "/metadata.json":
			_, _ = w.Write(payload)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	m := NewManager(5*time.Second, "")

	t.Run("DownloadsAndVerifies", func(t *testing.T) {
		dir := t.TempDir()
		item := Item{
			ID:       "repo1",
			URL:      mustURL(t, srv.URL+"/metadata.json"),
			Checksum: sha256Hex(payload),
			Filename: "metadata.json",
		}
		path, err := m.Fetch(context.Background(), item, Options{Dir: dir})
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "metadata.json"), path)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, payload, data)
	})

	t.Run("ChecksumMismatch", func(t *testing.T) {
		item := Item{
			ID:       "repo1",
			URL:      mustURL(t, srv.URL+"/metadata.json"),
			Checksum: sha256Hex([]byte("other")),
			Filename: "metadata.json",
		}
		_, err := m.Fetch(context.Background(), item, Options{Dir: t.TempDir()})
		require.Error(t, err)
		assert.ErrorIs(t, err, pkgerrors.ErrHashMismatch)
	})

	t.Run("NotModified", func(t *testing.T) {
		item := Item{
			ID:              "repo1",
			URL:             mustURL(t, srv.URL+"/metadata.json"),
			Filename:        "metadata.json",
			IfModifiedSince: time.Now().Add(-time.Hour),
		}
		_, err := m.Fetch(context.Background(), item, Options{Dir: t.TempDir()})
		require.Error(t, err)
		assert.ErrorIs(t, err, pkgerrors.ErrNotModified)
	})

	t.Run("HTTPError", func(t *testing.T) {
		item := Item{ID: "x", URL: mustURL(t, srv.URL+"/missing"), Filename: "missing"}
		_, err := m.Fetch(context.Background(), item, Options{Dir: t.TempDir()})
		require.Error(t, err)
		assert.ErrorIs(t, err, pkgerrors.ErrDownloadFailed)
	})

	t.Run("ReusesVerifiedFile", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "metadata.json"), payload, 0o640))
		item := Item{
			ID: "repo1",
			// Unreachable URL proves the cached file short-circuits.
			URL:      mustURL(t, "http://127.0.0.1:1/metadata.json"),
			Checksum: sha256Hex(payload),
			Filename: "metadata.json",
		}
		path, err := m.Fetch(context.Background(), item, Options{Dir: dir})
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "metadata.json"), path)
	})

	t.Run("RelativeDirRejected", func(t *testing.T) {
		item := Item{ID: "x", URL: mustURL(t, srv.URL+"/metadata.json")}
		_, err := m.Fetch(context.Background(), item, Options{Dir: "relative/dir"})
		require.Error(t, err)
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidPath)
	})
}

func TestFetchAll(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		_, _ = w.Write([]byte(r.URL.Path))
	}))
	defer srv.Close()

	m := NewManager(5*time.Second, "")
	items := []Item{
		{ID: "a", URL: mustURL(t, srv.URL+"/one"), Filename: "one"},
		{ID: "b", URL: mustURL(t, srv.URL+"/two"), Filename: "two"},
		{ID: "c", URL: mustURL(t, srv.URL+"/one"), Filename: "one"},
	}

	out, err := m.FetchAll(context.Background(), items, Options{Dir: t.TempDir(), Concurrency: 1})
	require.NoError(t, err)

	assert.Len(t, out, 3)
	assert.Equal(t, out["a"], out["c"])
	assert.Equal(t, 2, hits)
}
