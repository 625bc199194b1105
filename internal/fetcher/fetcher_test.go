package fetcher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/Aman-CERP/polydocs-mcp/internal/docerrors"
	"github.com/Aman-CERP/polydocs-mcp/internal/docmodel"
)

// newTestFetcher builds a Fetcher pointed at a local test server, bypassing
// the production crates.io base URL and relaxing the rate limit so tests
// run fast and deterministically.
func newTestFetcher(baseURL string) *Fetcher {
	f := NewWithBaseURL(baseURL)
	f.limiter = rate.NewLimiter(rate.Inf, 1)
	return f
}

func TestSearchCrates_EmptyQueryReturnsNoResults(t *testing.T) {
	f := New()
	results, err := f.SearchCrates(context.Background(), "   ", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchCrates_ParsesResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "relevance", r.URL.Query().Get("sort"))
		assert.Equal(t, "serde", r.URL.Query().Get("q"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"crates":[{"name":"serde","max_version":"1.0.203","description":"serialization","downloads":100,"repository":"https://github.com/serde-rs/serde"}]}`))
	}))
	defer srv.Close()

	f := newTestFetcher(srv.URL)
	results, err := f.SearchCrates(context.Background(), "serde", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "serde", results[0].Name)
	assert.Equal(t, "1.0.203", results[0].LatestVersion)
	assert.Equal(t, uint64(100), results[0].Downloads)
}

func TestSearchCrates_ClampsOutOfRangeLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "20", r.URL.Query().Get("per_page"))
		w.Write([]byte(`{"crates":[]}`))
	}))
	defer srv.Close()

	f := newTestFetcher(srv.URL)
	_, err := f.SearchCrates(context.Background(), "serde", 0)
	require.NoError(t, err)
}

func TestCrateInfo_ParsesVersionsAndDependencies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/serde":
			w.Write([]byte(`{
				"crate": {"name":"serde","max_version":"1.0.203","description":"serialization"},
				"versions": [
					{"num":"1.0.203","downloads":500,"yanked":false,"license":"MIT OR Apache-2.0"},
					{"num":"1.0.100","downloads":200,"yanked":false,"license":"MIT OR Apache-2.0"}
				]
			}`))
		case r.URL.Path == "/serde/1.0.203/dependencies":
			w.Write([]byte(`{"dependencies":[{"crate_id":"serde_derive","req":"^1.0","kind":"normal","optional":true,"default_features":true}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	f := newTestFetcher(srv.URL)
	info, err := f.CrateInfo(context.Background(), "serde")
	require.NoError(t, err)
	assert.Equal(t, "serde", info.Name)
	assert.Equal(t, "MIT OR Apache-2.0", info.License)
	require.Len(t, info.Versions, 2)
	assert.Equal(t, "1.0.203", info.Versions[0].Version, "versions should sort newest first")
	require.Len(t, info.Dependencies, 1)
	assert.Equal(t, "serde_derive", info.Dependencies[0].Name)
}

func TestCrateInfo_NotFoundReturnsDocError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := newTestFetcher(srv.URL)
	_, err := f.CrateInfo(context.Background(), "does-not-exist")
	require.Error(t, err)
	var docErr *docerrors.DocError
	require.ErrorAs(t, err, &docErr)
}

func TestGetCrateStats_ParsesDailyDownloads(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/serde/downloads", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"version_downloads":[{"date":"2026-07-01","downloads":42},{"date":"2026-07-02","downloads":58}]}`))
	}))
	defer srv.Close()

	f := newTestFetcher(srv.URL)
	stats, err := f.GetCrateStats(context.Background(), "serde")
	require.NoError(t, err)
	assert.Equal(t, "serde", stats.Name)
	require.Len(t, stats.DailyDownloads, 2)
	assert.Equal(t, uint64(58), stats.DailyDownloads[1].Downloads)
}

func TestVerifyCrateChecksum_MatchesGoodTarball(t *testing.T) {
	tarball := []byte("fake crate tarball contents")
	sum := sha256.Sum256(tarball)
	checksum := hex.EncodeToString(sum[:])

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/serde":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(fmt.Sprintf(
				`{"crate":{"name":"serde","max_version":"1.0.203"},"versions":[{"num":"1.0.203","checksum":%q}]}`,
				checksum)))
		case "/serde/1.0.203/download":
			w.Write(tarball)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	f := newTestFetcher(srv.URL)
	ok, err := f.VerifyCrateChecksum(context.Background(), "serde", "1.0.203")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyCrateChecksum_MismatchReturnsFalse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/serde":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"crate":{"name":"serde","max_version":"1.0.203"},"versions":[{"num":"1.0.203","checksum":"deadbeef"}]}`))
		case "/serde/1.0.203/download":
			w.Write([]byte("tampered contents"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	f := newTestFetcher(srv.URL)
	ok, err := f.VerifyCrateChecksum(context.Background(), "serde", "1.0.203")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCrateExists(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/serde" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := newTestFetcher(srv.URL)

	exists, err := f.CrateExists(context.Background(), "serde")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = f.CrateExists(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestSortVersionsDescending_OrdersBySemver(t *testing.T) {
	versions := []docmodel.CrateVersionInfo{
		{Version: "1.0.0"},
		{Version: "1.2.0"},
		{Version: "0.9.0"},
		{Version: "1.10.0"},
	}
	sortVersionsDescending(versions)

	got := make([]string, len(versions))
	for i, v := range versions {
		got[i] = v.Version
	}
	assert.Equal(t, []string{"1.10.0", "1.2.0", "1.0.0", "0.9.0"}, got)
}

func TestSortVersionsDescending_FallsBackToLexicalOnInvalidSemver(t *testing.T) {
	versions := []docmodel.CrateVersionInfo{
		{Version: "not-a-version"},
		{Version: "also-not-a-version"},
	}
	assert.NotPanics(t, func() {
		sortVersionsDescending(versions)
	})
}
