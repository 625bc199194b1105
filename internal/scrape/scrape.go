// Package scrape fetches and parses documentation rendered by docs.rs: the
// per-item HTML pages and the crate-wide search-index.js payload. It is the
// only component that understands docs.rs page structure; everything
// downstream works against the parsed docmodel types.
package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/Aman-CERP/polydocs-mcp/internal/docerrors"
	"github.com/Aman-CERP/polydocs-mcp/internal/docmodel"
)

const defaultBaseURL = "https://docs.rs"

// Config tunes the network behavior of a Scraper: user agent, retry policy
// and per-request timeouts. The zero value is not usable; build one with
// DefaultConfig and override individual fields.
type Config struct {
	UserAgent    string
	HeadTimeout  time.Duration
	FetchTimeout time.Duration
	MaxRetries   int
	RetryDelay   time.Duration
}

// DefaultConfig matches the original scraper's timeouts and retry policy:
// a 5s HEAD probe, a 10s fetch, and up to two retries, waiting 500ms before
// the first and 1000ms before the second.
func DefaultConfig() Config {
	return Config{
		UserAgent:    "polydocs-mcp-scraper/1.0",
		HeadTimeout:  5 * time.Second,
		FetchTimeout: 10 * time.Second,
		MaxRetries:   2,
		RetryDelay:   500 * time.Millisecond,
	}
}

// typePrefixes lists docs.rs item-page prefixes, tried in likelihood order.
var typePrefixes = []string{
	"struct", "fn", "trait", "enum", "type", "macro", "constant", "static", "mod", "union",
}

// Scraper fetches and parses docs.rs pages for a single crate version.
type Scraper struct {
	client  *http.Client
	baseURL string
	cfg     Config
}

// New builds a Scraper targeting the production docs.rs host with the
// default network configuration.
func New() *Scraper {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig builds a Scraper targeting the production docs.rs host,
// using cfg for its user agent, timeouts and retry policy.
func NewWithConfig(cfg Config) *Scraper {
	return &Scraper{
		client:  &http.Client{Timeout: cfg.FetchTimeout},
		baseURL: defaultBaseURL,
		cfg:     cfg,
	}
}

// NewWithBaseURL builds a Scraper pointed at an arbitrary docs.rs-shaped
// host, used by tests to target an httptest.Server.
func NewWithBaseURL(baseURL string) *Scraper {
	s := New()
	s.baseURL = baseURL
	return s
}

// CheckDocsAvailable reports whether docs.rs has built documentation for a
// crate version by probing its root module page.
func (s *Scraper) CheckDocsAvailable(ctx context.Context, crateName, version string) (bool, error) {
	url := fmt.Sprintf("%s/%s/%s/%s/", s.baseURL, crateName, version, strings.ReplaceAll(crateName, "-", "_"))
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false, docerrors.New(docerrors.ErrCodeInternal, "failed to build docs.rs availability request", err)
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return false, nil
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300, nil
}

// FetchItemDoc discovers the docs.rs page for an item path and parses its
// rendered documentation.
func (s *Scraper) FetchItemDoc(ctx context.Context, crateName, version, itemPath string) (docmodel.ItemDoc, error) {
	itemURL, err := s.discoverItemURL(ctx, crateName, version, itemPath)
	if err != nil {
		return docmodel.ItemDoc{}, err
	}

	html, err := s.fetchText(ctx, itemURL)
	if err != nil {
		return docmodel.ItemDoc{}, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return docmodel.ItemDoc{}, docerrors.New(docerrors.ErrCodeParseFailed, "failed to parse docs.rs HTML", err)
	}

	return s.parseItemDocumentation(doc, crateName, version, itemPath), nil
}

// FetchSearchIndex fetches and parses the crate's docs.rs search index.
func (s *Scraper) FetchSearchIndex(ctx context.Context, crateName, version string) (docmodel.SearchIndexData, error) {
	url := fmt.Sprintf("%s/%s/%s/search-index.js", s.baseURL, crateName, version)
	js, err := s.fetchText(ctx, url)
	if err != nil {
		return docmodel.SearchIndexData{}, err
	}
	return parseSearchIndex(js, crateName, version)
}

// discoverItemURL tries each docs.rs type-prefix file name in turn with a
// HEAD request, returning the first one that resolves.
func (s *Scraper) discoverItemURL(ctx context.Context, crateName, version, itemPath string) (string, error) {
	parts := strings.Split(itemPath, "::")
	if len(parts) == 0 || (len(parts) == 1 && parts[0] == "") {
		return "", docerrors.New(docerrors.ErrCodeInvalidItemPath, "empty item path", nil)
	}
	if parts[0] == crateName {
		parts = parts[1:]
	}
	if len(parts) == 0 {
		return "", docerrors.New(docerrors.ErrCodeInvalidItemPath, "no item name found in path", nil)
	}

	itemName := parts[len(parts)-1]
	modulePath := strings.Join(parts[:len(parts)-1], "/")
	crateUnderscore := strings.ReplaceAll(crateName, "-", "_")

	for _, prefix := range typePrefixes {
		fileName := fmt.Sprintf("%s.%s.html", prefix, itemName)
		url := s.itemPageURL(crateName, version, crateUnderscore, modulePath, fileName)
		if s.headSucceeds(ctx, url) {
			return url, nil
		}
	}

	// Fallback: the item page without a type prefix (covers primitives/keywords).
	fallback := s.itemPageURL(crateName, version, crateUnderscore, modulePath, itemName+".html")
	if s.headSucceeds(ctx, fallback) {
		return fallback, nil
	}
	return "", docerrors.New(docerrors.ErrCodeItemNotFound, fmt.Sprintf("no docs.rs page found for %s", itemPath), nil)
}

func (s *Scraper) itemPageURL(crateName, version, crateUnderscore, modulePath, fileName string) string {
	if modulePath == "" {
		return fmt.Sprintf("%s/%s/%s/%s/%s", s.baseURL, crateName, version, crateUnderscore, fileName)
	}
	return fmt.Sprintf("%s/%s/%s/%s/%s/%s", s.baseURL, crateName, version, crateUnderscore, modulePath, fileName)
}

func (s *Scraper) headSucceeds(ctx context.Context, url string) bool {
	headCtx, cancel := context.WithTimeout(ctx, s.cfg.HeadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(headCtx, http.MethodHead, url, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// fetchText retries transient failures up to MaxRetries times after the
// first attempt, waiting attempt*RetryDelay before each retry; a 404 is
// returned at once without retrying.
func (s *Scraper) fetchText(ctx context.Context, url string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxRetries+1; attempt++ {
		text, err := s.fetchOnce(ctx, url)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if docErr, ok := err.(*docerrors.DocError); ok && docErr.Code == docerrors.ErrCodeUpstreamNotFound {
			return "", err
		}
		if attempt <= s.cfg.MaxRetries {
			select {
			case <-time.After(time.Duration(attempt) * s.cfg.RetryDelay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
	}
	return "", lastErr
}

func (s *Scraper) fetchOnce(ctx context.Context, url string) (string, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, url, nil)
	if err != nil {
		return "", docerrors.New(docerrors.ErrCodeInternal, "failed to build docs.rs request", err)
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)
	req.Header.Set("Accept-Encoding", "gzip")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", docerrors.New(docerrors.ErrCodeNetworkTimeout, fmt.Sprintf("docs.rs request failed: %s", url), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", docerrors.New(docerrors.ErrCodeUpstreamNotFound, fmt.Sprintf("documentation not found: %s", url), nil)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", docerrors.New(docerrors.ErrCodeNetworkTimeout, fmt.Sprintf("docs.rs returned %s for %s", resp.Status, url), nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", docerrors.New(docerrors.ErrCodeNetworkTimeout, "failed to read docs.rs response body", err)
	}
	return string(body), nil
}

// parseItemDocumentation extracts rendered docs, signature, source location,
// kind and examples from a docs.rs item page.
func (s *Scraper) parseItemDocumentation(doc *goquery.Document, crateName, version, itemPath string) docmodel.ItemDoc {
	docHTML, _ := doc.Find("main .docblock").First().Html()
	if strings.TrimSpace(docHTML) == "" {
		docHTML = "No documentation available."
	}

	signature := strings.TrimSpace(doc.Find(".code-header").First().Text())

	var location docmodel.SourceLocation
	if href, ok := doc.Find(".src-link").First().Attr("href"); ok {
		location = parseSourceLocation(href)
	}

	kind := extractItemKind(doc)

	var examples []string
	doc.Find(".docblock pre code").Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if text != "" {
			examples = append(examples, text)
		}
	})

	return docmodel.ItemDoc{
		Package: docmodel.PackageRef{
			Ecosystem: docmodel.EcosystemRust,
			Name:      crateName,
			Version:   version,
		},
		Path:      itemPath,
		Kind:      kind,
		Signature: signature,
		DocHTML:   docHTML,
		Examples:  examples,
		Source:    location,
		FetchedAt: time.Now(),
	}
}

func extractItemKind(doc *goquery.Document) docmodel.ItemKind {
	title := doc.Find("h1.main-heading").First().Text()
	switch {
	case strings.Contains(title, "Struct"):
		return docmodel.KindStruct
	case strings.Contains(title, "Enum"):
		return docmodel.KindEnum
	case strings.Contains(title, "Trait"):
		return docmodel.KindTrait
	case strings.Contains(title, "Function"):
		return docmodel.KindFunction
	case strings.Contains(title, "Module"):
		return docmodel.KindModule
	case strings.Contains(title, "Constant"):
		return docmodel.KindConstant
	case strings.Contains(title, "Type"):
		return docmodel.KindTypeAlias
	case strings.Contains(title, "Macro"):
		return docmodel.KindMacro
	default:
		return docmodel.KindUnknown
	}
}

// parseSourceLocation decodes a docs.rs "View source" href of the form
// /src/crate/path/file.rs.html#L123-456.
func parseSourceLocation(href string) docmodel.SourceLocation {
	filePath := href
	if idx := strings.Index(href, "/src/"); idx >= 0 {
		filePath = href[idx+len("/src/"):]
	}
	if idx := strings.Index(filePath, ".html"); idx >= 0 {
		filePath = filePath[:idx]
	}

	startLine, endLine := 1, 0
	if fragIdx := strings.Index(href, "#"); fragIdx >= 0 {
		fragment := strings.TrimPrefix(href[fragIdx+1:], "L")
		if dashIdx := strings.Index(fragment, "-"); dashIdx >= 0 {
			if n, err := strconv.Atoi(fragment[:dashIdx]); err == nil {
				startLine = n
			}
			if n, err := strconv.Atoi(fragment[dashIdx+1:]); err == nil {
				endLine = n
			}
		} else if n, err := strconv.Atoi(fragment); err == nil {
			startLine = n
		}
	}

	return docmodel.SourceLocation{FilePath: filePath, StartLine: startLine, EndLine: endLine}
}

// searchIndexAssignmentPatterns cover the historical module-level assignment
// shapes docs.rs has used for search-index.js across rustdoc versions.
var searchIndexAssignmentPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?s)searchIndex\s*=\s*(\{.*\});`),
	regexp.MustCompile(`(?s)var\s+searchIndex\s*=\s*(\{.*\});`),
	regexp.MustCompile(`(?s)self\.searchIndex\s*=\s*(\{.*\});`),
	regexp.MustCompile(`(?s)window\.searchIndex\s*=\s*(\{.*\});`),
}

// balancedBraceSlice returns the shortest balanced-brace JSON object
// starting at the first '{' in input, trimming any trailing loader code a
// naive prefix/suffix slice would otherwise include.
func balancedBraceSlice(input string) (string, bool) {
	depth := 0
	started := false
	for i := 0; i < len(input); i++ {
		switch input[i] {
		case '{':
			depth++
			started = true
		case '}':
			if depth == 0 {
				return "", false
			}
			depth--
			if depth == 0 {
				return input[:i+1], true
			}
		}
	}
	if started && depth == 0 {
		return input, true
	}
	return "", false
}
