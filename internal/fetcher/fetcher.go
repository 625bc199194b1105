// Package fetcher talks to crates.io on behalf of the documentation engine:
// crate search, crate metadata, and version resolution. All ecosystems other
// than Rust resolve packages locally through internal/finder instead of over
// the network, per the Remote Fetcher's scope.
package fetcher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/mod/semver"
	"golang.org/x/time/rate"

	"github.com/Aman-CERP/polydocs-mcp/internal/docerrors"
	"github.com/Aman-CERP/polydocs-mcp/internal/docmodel"
)

const (
	cratesIOBaseURL = "https://crates.io/api/v1/crates"
	userAgent       = "polydocs-mcp (github.com/Aman-CERP/polydocs-mcp)"
)

// Config tunes the network behavior of a Fetcher: crates.io courtesy rate
// limit and request timeouts. The zero value is not usable; build one with
// DefaultConfig and override individual fields.
type Config struct {
	RateLimitPerSecond int
	MetadataTimeout    time.Duration
	DownloadTimeout    time.Duration
}

// DefaultConfig matches the original client's crates.io courtesy limit of
// 10 requests/second and its metadata/download timeouts.
func DefaultConfig() Config {
	return Config{
		RateLimitPerSecond: 10,
		MetadataTimeout:    10 * time.Second,
		DownloadTimeout:    30 * time.Second,
	}
}

// Fetcher is a rate-limited, circuit-broken crates.io client.
type Fetcher struct {
	baseURL         string
	httpClient      *http.Client
	limiter         *rate.Limiter
	breaker         *docerrors.CircuitBreaker
	retryCfg        docerrors.RetryConfig
	metadataTimeout time.Duration
}

// New builds a Fetcher with crates.io's documented courtesy rate limit.
func New() *Fetcher {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig builds a Fetcher using cfg for its rate limit and timeouts.
func NewWithConfig(cfg Config) *Fetcher {
	return &Fetcher{
		baseURL:         cratesIOBaseURL,
		httpClient:      &http.Client{Timeout: cfg.DownloadTimeout},
		limiter:         rate.NewLimiter(rate.Limit(cfg.RateLimitPerSecond), cfg.RateLimitPerSecond),
		breaker:         docerrors.NewCircuitBreaker("crates.io", docerrors.WithMaxFailures(5), docerrors.WithResetTimeout(30*time.Second)),
		metadataTimeout: cfg.MetadataTimeout,
		retryCfg: docerrors.RetryConfig{
			MaxRetries:   2,
			InitialDelay: 500 * time.Millisecond,
			MaxDelay:     4 * time.Second,
			Multiplier:   2.0,
			Jitter:       true,
		},
	}
}

// NewWithBaseURL builds a Fetcher pointed at an arbitrary crates.io-shaped
// API base URL, used by tests to target an httptest.Server instead of the
// production registry.
func NewWithBaseURL(baseURL string) *Fetcher {
	f := New()
	f.baseURL = baseURL
	f.limiter = rate.NewLimiter(rate.Inf, 1)
	return f
}

type crateListResponse struct {
	Crates []struct {
		Name          string   `json:"name"`
		MaxVersion    string   `json:"max_version"`
		Description   string   `json:"description"`
		Downloads     uint64   `json:"downloads"`
		Repository    string   `json:"repository"`
		Documentation string   `json:"documentation"`
		Homepage      string   `json:"homepage"`
		Keywords      []string `json:"keywords"`
		Categories    []string `json:"categories"`
		CreatedAt     string   `json:"created_at"`
		UpdatedAt     string   `json:"updated_at"`
	} `json:"crates"`
}

// SearchCrates queries the crates.io search endpoint, sorted by relevance.
func (f *Fetcher) SearchCrates(ctx context.Context, query string, limit int) ([]docmodel.CrateSearchResult, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	q := url.Values{}
	q.Set("q", query)
	q.Set("sort", "relevance")
	q.Set("per_page", strconv.Itoa(limit))

	var resp crateListResponse
	if err := f.getJSON(ctx, f.baseURL+"?"+q.Encode(), &resp); err != nil {
		return nil, err
	}

	results := make([]docmodel.CrateSearchResult, 0, len(resp.Crates))
	for _, c := range resp.Crates {
		results = append(results, docmodel.CrateSearchResult{
			Name:          c.Name,
			LatestVersion: c.MaxVersion,
			Description:   c.Description,
			Downloads:     c.Downloads,
			Repository:    c.Repository,
			Documentation: c.Documentation,
			Homepage:      c.Homepage,
			Keywords:      c.Keywords,
			Categories:    c.Categories,
			CreatedAt:     c.CreatedAt,
			UpdatedAt:     c.UpdatedAt,
		})
	}
	return results, nil
}

type crateInfoResponse struct {
	Crate struct {
		Name            string   `json:"name"`
		MaxVersion      string   `json:"max_version"`
		Description     string   `json:"description"`
		Homepage        string   `json:"homepage"`
		Repository      string   `json:"repository"`
		Documentation   string   `json:"documentation"`
		Downloads       uint64   `json:"downloads"`
		RecentDownloads uint64   `json:"recent_downloads"`
		Keywords        []string `json:"keywords"`
		Categories      []string `json:"categories"`
		CreatedAt       string   `json:"created_at"`
		UpdatedAt       string   `json:"updated_at"`
	} `json:"crate"`
	Versions []struct {
		Num       string `json:"num"`
		Downloads uint64 `json:"downloads"`
		Yanked    bool   `json:"yanked"`
		License   string `json:"license"`
		CreatedAt string `json:"created_at"`
		Checksum  string `json:"checksum"`
	} `json:"versions"`
}

type dependencyResponse struct {
	Dependencies []struct {
		CrateID         string   `json:"crate_id"`
		Req             string   `json:"req"`
		Kind            string   `json:"kind"`
		Optional        bool     `json:"optional"`
		DefaultFeatures bool     `json:"default_features"`
		Features        []string `json:"features"`
	} `json:"dependencies"`
}

// CrateInfo fetches crate metadata, all published versions, and the
// dependency list of the most recent version.
func (f *Fetcher) CrateInfo(ctx context.Context, name string) (docmodel.CrateInfo, error) {
	var resp crateInfoResponse
	if err := f.getJSON(ctx, f.baseURL+"/"+url.PathEscape(name), &resp); err != nil {
		return docmodel.CrateInfo{}, err
	}

	info := docmodel.CrateInfo{
		Name:            resp.Crate.Name,
		LatestVersion:   resp.Crate.MaxVersion,
		Description:     resp.Crate.Description,
		Homepage:        resp.Crate.Homepage,
		Repository:      resp.Crate.Repository,
		Documentation:   resp.Crate.Documentation,
		Downloads:       resp.Crate.Downloads,
		RecentDownloads: resp.Crate.RecentDownloads,
		Keywords:        resp.Crate.Keywords,
		Categories:      resp.Crate.Categories,
		CreatedAt:       resp.Crate.CreatedAt,
		UpdatedAt:       resp.Crate.UpdatedAt,
	}

	for _, v := range resp.Versions {
		info.Versions = append(info.Versions, docmodel.CrateVersionInfo{
			Version:   v.Num,
			Downloads: v.Downloads,
			Yanked:    v.Yanked,
			CreatedAt: v.CreatedAt,
			Checksum:  v.Checksum,
		})
	}
	sortVersionsDescending(info.Versions)
	if len(info.Versions) > 0 {
		info.License = firstLicense(resp.Versions)
	}

	if len(resp.Versions) > 0 {
		latest := resp.Versions[0].Num
		var deps dependencyResponse
		depURL := fmt.Sprintf("%s/%s/%s/dependencies", f.baseURL, url.PathEscape(name), url.PathEscape(latest))
		if err := f.getJSON(ctx, depURL, &deps); err == nil {
			for _, d := range deps.Dependencies {
				info.Dependencies = append(info.Dependencies, docmodel.DependencyInfo{
					Name:            d.CrateID,
					VersionReq:      d.Req,
					Kind:            d.Kind,
					Optional:        d.Optional,
					DefaultFeatures: d.DefaultFeatures,
					Features:        d.Features,
				})
			}
		}
	}

	return info, nil
}

func firstLicense(versions []struct {
	Num       string `json:"num"`
	Downloads uint64 `json:"downloads"`
	Yanked    bool   `json:"yanked"`
	License   string `json:"license"`
	CreatedAt string `json:"created_at"`
	Checksum  string `json:"checksum"`
}) string {
	if len(versions) == 0 {
		return ""
	}
	return versions[0].License
}

type downloadsResponse struct {
	VersionDownloads []struct {
		Date      string `json:"date"`
		Downloads uint64 `json:"downloads"`
	} `json:"version_downloads"`
}

// GetCrateStats fetches crates.io's per-day download time series for a
// crate, the dedicated "/downloads" endpoint rather than the lifetime
// summary counts already embedded in CrateInfo.
func (f *Fetcher) GetCrateStats(ctx context.Context, name string) (docmodel.CrateStats, error) {
	var resp downloadsResponse
	if err := f.getJSON(ctx, f.baseURL+"/"+url.PathEscape(name)+"/downloads", &resp); err != nil {
		return docmodel.CrateStats{}, err
	}

	stats := docmodel.CrateStats{Name: name}
	for _, d := range resp.VersionDownloads {
		stats.DailyDownloads = append(stats.DailyDownloads, docmodel.DailyDownload{
			Date:      d.Date,
			Downloads: d.Downloads,
		})
	}
	return stats, nil
}

// VerifyCrateChecksum downloads a crate's published tarball and compares its
// SHA-256 digest against the checksum crates.io recorded for that version,
// detecting a corrupted or tampered mirror.
func (f *Fetcher) VerifyCrateChecksum(ctx context.Context, name, version string) (bool, error) {
	var info crateInfoResponse
	if err := f.getJSON(ctx, f.baseURL+"/"+url.PathEscape(name), &info); err != nil {
		return false, err
	}

	var want string
	for _, v := range info.Versions {
		if v.Num == version {
			want = v.Checksum
			break
		}
	}
	if want == "" {
		return false, docerrors.DocEngineError(docerrors.ErrCodeVersionNotFound,
			fmt.Sprintf("no published checksum for %s@%s", name, version), nil)
	}

	downloadURL := fmt.Sprintf("%s/%s/%s/download", f.baseURL, url.PathEscape(name), url.PathEscape(version))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return false, docerrors.New(docerrors.ErrCodeInternal, "failed to build crate download request", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return false, docerrors.New(docerrors.ErrCodeNetworkUnavailable, "crate tarball download failed", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return false, docerrors.New(docerrors.ErrCodeNetworkUnavailable,
			fmt.Sprintf("unexpected status %d downloading crate tarball", resp.StatusCode), nil)
	}

	h := sha256.New()
	if _, err := io.Copy(h, resp.Body); err != nil {
		return false, docerrors.New(docerrors.ErrCodeInternal, "failed to hash crate tarball", err)
	}
	return hex.EncodeToString(h.Sum(nil)) == want, nil
}

// CrateExists reports whether a crate with the given name exists on crates.io.
func (f *Fetcher) CrateExists(ctx context.Context, name string) (bool, error) {
	if err := f.waitForRateLimit(ctx); err != nil {
		return false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"/"+url.PathEscape(name), nil)
	if err != nil {
		return false, docerrors.New(docerrors.ErrCodeInternal, "failed to build request", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return false, docerrors.New(docerrors.ErrCodeNetworkUnavailable, "crates.io request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, docerrors.New(docerrors.ErrCodeNetworkUnavailable, fmt.Sprintf("unexpected status %d from crates.io", resp.StatusCode), nil)
	}
}

// GetLatestVersion resolves a crate name to its latest published version.
func (f *Fetcher) GetLatestVersion(ctx context.Context, name string) (string, error) {
	info, err := f.CrateInfo(ctx, name)
	if err != nil {
		return "", err
	}
	if info.LatestVersion == "" {
		return "", docerrors.DocEngineError(docerrors.ErrCodePackageNotFound, fmt.Sprintf("crate %q has no published version", name), nil)
	}
	return info.LatestVersion, nil
}

// getJSON performs a rate-limited, circuit-broken, retried GET and decodes
// the JSON body into out.
func (f *Fetcher) getJSON(ctx context.Context, targetURL string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, f.metadataTimeout)
	defer cancel()

	return docerrors.Retry(ctx, f.retryCfg, func() error {
		return f.breaker.Execute(func() error {
			if err := f.waitForRateLimit(ctx); err != nil {
				return err
			}

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
			if err != nil {
				return docerrors.New(docerrors.ErrCodeInternal, "failed to build request", err)
			}
			req.Header.Set("User-Agent", userAgent)
			req.Header.Set("Accept", "application/json")

			resp, err := f.httpClient.Do(req)
			if err != nil {
				return docerrors.New(docerrors.ErrCodeNetworkTimeout, "crates.io request failed", err)
			}
			defer func() { _ = resp.Body.Close() }()

			switch resp.StatusCode {
			case http.StatusOK:
				body, err := io.ReadAll(resp.Body)
				if err != nil {
					return docerrors.New(docerrors.ErrCodeInternal, "failed to read response body", err)
				}
				if err := json.Unmarshal(body, out); err != nil {
					return docerrors.New(docerrors.ErrCodeParseFailed, "failed to decode crates.io response", err)
				}
				return nil
			case http.StatusNotFound:
				return docerrors.DocEngineError(docerrors.ErrCodePackageNotFound, "crate not found on crates.io", nil)
			case http.StatusTooManyRequests:
				return docerrors.New(docerrors.ErrCodeRateLimited, "crates.io rate limit exceeded", nil)
			default:
				return docerrors.New(docerrors.ErrCodeNetworkUnavailable, fmt.Sprintf("crates.io returned status %d", resp.StatusCode), nil)
			}
		})
	})
}

func (f *Fetcher) waitForRateLimit(ctx context.Context) error {
	if err := f.limiter.Wait(ctx); err != nil {
		return docerrors.New(docerrors.ErrCodeNetworkTimeout, "rate limiter wait cancelled", err)
	}
	return nil
}

// sortVersionsDescending orders crate versions newest-first using semantic
// version comparison, falling back to lexical order for unparsable strings.
func sortVersionsDescending(versions []docmodel.CrateVersionInfo) {
	sort.SliceStable(versions, func(i, j int) bool {
		vi, vj := canonicalSemver(versions[i].Version), canonicalSemver(versions[j].Version)
		if semver.IsValid(vi) && semver.IsValid(vj) {
			return semver.Compare(vi, vj) > 0
		}
		return versions[i].Version > versions[j].Version
	})
}

// canonicalSemver adds the "v" prefix golang.org/x/mod/semver requires.
func canonicalSemver(v string) string {
	if strings.HasPrefix(v, "v") {
		return v
	}
	return "v" + v
}
