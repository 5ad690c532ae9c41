package version

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func releaseServer(t *testing.T, tag string, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		assert.Equal(t, "cdstail-cli", r.Header.Get("User-Agent"))
		_ = json.NewEncoder(w).Encode(GitHubRelease{TagName: tag})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestChecker_CheckForUpdate(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	t.Run("newer release", func(t *testing.T) {
		var hits int32
		srv := releaseServer(t, "v1.3.0", &hits)
		c := &Checker{
			ReleasesURL: srv.URL,
			CachePath:   filepath.Join(t.TempDir(), "cache.json"),
			Now:         func() time.Time { return now },
			Current:     "v1.2.0",
		}

		latest, available, err := c.CheckForUpdate(t.Context())
		require.NoError(t, err)
		assert.Equal(t, "v1.3.0", latest)
		assert.True(t, available)

		// second check is served from the cache
		_, _, err = c.CheckForUpdate(t.Context())
		require.NoError(t, err)
		assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
	})

	t.Run("same release", func(t *testing.T) {
		var hits int32
		srv := releaseServer(t, "1.2.0", &hits)
		c := &Checker{ReleasesURL: srv.URL, CachePath: filepath.Join(t.TempDir(), "cache.json"), Current: "1.2.0"}

		_, available, err := c.CheckForUpdate(t.Context())
		require.NoError(t, err)
		assert.False(t, available)
	})

	t.Run("stale cache is refreshed", func(t *testing.T) {
		var hits int32
		srv := releaseServer(t, "v2.0.0", &hits)
		path := filepath.Join(t.TempDir(), "cache.json")
		data, err := json.Marshal(VersionCache{LatestVersion: "v1.0.0", CheckedAt: now.Add(-25 * time.Hour)})
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(path, data, 0o600))

		c := &Checker{ReleasesURL: srv.URL, CachePath: path, Now: func() time.Time { return now }, Current: "v1.0.0"}

		latest, available, err := c.CheckForUpdate(t.Context())
		require.NoError(t, err)
		assert.Equal(t, "v2.0.0", latest)
		assert.True(t, available)
		assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
	})

	t.Run("dev builds skip the check", func(t *testing.T) {
		c := &Checker{ReleasesURL: "http://127.0.0.1:0", Current: "dev"}

		latest, available, err := c.CheckForUpdate(t.Context())
		require.NoError(t, err)
		assert.Empty(t, latest)
		assert.False(t, available)
	})

	t.Run("unreachable server is not an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		t.Cleanup(srv.Close)
		c := &Checker{ReleasesURL: srv.URL, CachePath: filepath.Join(t.TempDir(), "cache.json"), Current: "v1.0.0"}

		_, available, err := c.CheckForUpdate(t.Context())
		assert.NoError(t, err)
		assert.False(t, available)
	})
}
