// Package docsearch provides free-text search over rendered item
// documentation, for queries the exact-match symbol index can't answer
// ("which function mentions retries"). It indexes the package/version
// docs already fetched by internal/docengine with a Bleve full-text
// index and a code-aware tokenizer, instead of the exact-path lookups
// internal/symbolindex performs.
package docsearch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"unicode"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/registry"
	"github.com/blevesearch/bleve/v2/search"

	"github.com/Aman-CERP/polydocs-mcp/internal/docmodel"
)

const (
	docTokenizerName = "doc_tokenizer"
	docStopFilterName = "doc_stop"
	docAnalyzerName   = "doc_analyzer"
)

func init() {
	_ = registry.RegisterTokenizer(docTokenizerName, docTokenizerConstructor)
	_ = registry.RegisterTokenFilter(docStopFilterName, docStopFilterConstructor)
}

// docStopWords filters prose/code filler that would otherwise dominate
// BM25 scores across nearly every indexed item doc.
var docStopWords = []string{
	"the", "and", "for", "with", "this", "that", "from", "into",
	"func", "function", "return", "returns", "struct", "type", "impl",
}

// Hit is a single search_item_docs match.
type Hit struct {
	Package      docmodel.PackageRef `json:"package"`
	ItemPath     string              `json:"item_path"`
	Score        float64             `json:"score"`
	MatchedTerms []string            `json:"matched_terms,omitempty"`
}

type indexedDoc struct {
	Content string `json:"content"`
}

// Index is a Bleve-backed full-text index over ItemDoc summaries and
// rendered markdown, keyed by "<ecosystem>::<package>@<version>::<item_path>".
type Index struct {
	mu    sync.RWMutex
	index bleve.Index
}

// New opens (or creates) a full-text index persisted under dir, or an
// in-memory index when dir is empty.
func New(dir string) (*Index, error) {
	indexMapping, err := buildMapping()
	if err != nil {
		return nil, fmt.Errorf("docsearch: build index mapping: %w", err)
	}

	var idx bleve.Index
	if dir == "" {
		idx, err = bleve.NewMemOnly(indexMapping)
	} else {
		if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
			return nil, fmt.Errorf("docsearch: create index directory: %w", err)
		}
		idx, err = bleve.Open(dir)
		if err == bleve.ErrorIndexPathDoesNotExist {
			idx, err = bleve.New(dir, indexMapping)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("docsearch: open/create index: %w", err)
	}

	return &Index{index: idx}, nil
}

func buildMapping() (*mapping.IndexMappingImpl, error) {
	indexMapping := bleve.NewIndexMapping()
	err := indexMapping.AddCustomAnalyzer(docAnalyzerName, map[string]interface{}{
		"type":      custom.Name,
		"tokenizer": docTokenizerName,
		"token_filters": []string{
			lowercase.Name,
			docStopFilterName,
		},
	})
	if err != nil {
		return nil, err
	}
	indexMapping.DefaultAnalyzer = docAnalyzerName
	return indexMapping, nil
}

func docID(pkg docmodel.PackageRef, itemPath string) string {
	return fmt.Sprintf("%s::%s@%s::%s", pkg.Ecosystem, pkg.Name, pkg.Version, itemPath)
}

// IndexItemDoc adds or replaces one item's searchable text: its summary,
// signature and rendered markdown doc.
func (ix *Index) IndexItemDoc(ctx context.Context, doc docmodel.ItemDoc) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	var content strings.Builder
	content.WriteString(doc.Signature)
	content.WriteString("\n")
	content.WriteString(doc.Summary)
	content.WriteString("\n")
	content.WriteString(doc.DocMarkdown)
	for _, example := range doc.Examples {
		content.WriteString("\n")
		content.WriteString(example)
	}

	return ix.index.Index(docID(doc.Package, doc.Path), indexedDoc{Content: content.String()})
}

// Search runs a free-text BM25 query across every indexed item doc for
// the given package (any version), returning up to limit hits.
func (ix *Index) Search(ctx context.Context, pkg docmodel.PackageRef, queryStr string, limit int) ([]Hit, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if strings.TrimSpace(queryStr) == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}

	matchQuery := bleve.NewMatchQuery(queryStr)
	matchQuery.SetField("content")

	// Bleve's _id field isn't full-text searchable, so package scoping is
	// done by over-fetching on content relevance and filtering by the
	// doc-ID prefix in Go instead of a second indexed field.
	wantPrefix := ""
	if pkg.Name != "" {
		wantPrefix = fmt.Sprintf("%s::%s@", pkg.Ecosystem, pkg.Name)
	}

	req := bleve.NewSearchRequest(matchQuery)
	req.Size = limit * 5
	if req.Size < 50 {
		req.Size = 50
	}
	req.IncludeLocations = true

	result, err := ix.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("docsearch: search failed: %w", err)
	}

	hits := make([]Hit, 0, limit)
	for _, hit := range result.Hits {
		if wantPrefix != "" && !strings.HasPrefix(hit.ID, wantPrefix) {
			continue
		}
		eco, namever, itemPath, ok := splitDocID(hit.ID)
		if !ok {
			continue
		}
		name, version, _ := strings.Cut(namever, "@")
		hits = append(hits, Hit{
			Package:      docmodel.PackageRef{Ecosystem: docmodel.Ecosystem(eco), Name: name, Version: version},
			ItemPath:     itemPath,
			Score:        hit.Score,
			MatchedTerms: matchedTerms(hit),
		})
		if len(hits) == limit {
			break
		}
	}
	return hits, nil
}

func splitDocID(id string) (ecosystem, namever, itemPath string, ok bool) {
	parts := strings.SplitN(id, "::", 3)
	if len(parts) != 3 {
		return "", "", "", false
	}
	return parts[0], parts[1], parts[2], true
}

func matchedTerms(hit *search.DocumentMatch) []string {
	seen := make(map[string]struct{})
	for field, locations := range hit.Locations {
		if field != "content" {
			continue
		}
		for term := range locations {
			seen[term] = struct{}{}
		}
	}
	terms := make([]string, 0, len(seen))
	for term := range seen {
		terms = append(terms, term)
	}
	return terms
}

// DeletePackage removes every indexed doc for pkg (all item paths,
// exact version), used when clearing or invalidating a stale build.
func (ix *Index) DeletePackage(ctx context.Context, pkg docmodel.PackageRef) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	wantPrefix := fmt.Sprintf("%s::%s@%s::", pkg.Ecosystem, pkg.Name, pkg.Version)

	docCount, _ := ix.index.DocCount()
	req := bleve.NewSearchRequest(bleve.NewMatchAllQuery())
	req.Size = int(docCount)
	req.Fields = []string{}

	result, err := ix.index.SearchInContext(ctx, req)
	if err != nil {
		return fmt.Errorf("docsearch: locate package docs: %w", err)
	}

	batch := ix.index.NewBatch()
	for _, hit := range result.Hits {
		if strings.HasPrefix(hit.ID, wantPrefix) {
			batch.Delete(hit.ID)
		}
	}
	if batch.Size() == 0 {
		return nil
	}
	return ix.index.Batch(batch)
}

// Close releases the underlying Bleve index.
func (ix *Index) Close() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.index.Close()
}

var wordRegex = regexp.MustCompile(`[a-zA-Z0-9_]+`)

// tokenizeDoc extracts alphanumeric/underscore words from doc text, splits
// each on underscores and camelCase boundaries, lowercases the parts and
// keeps those of two or more characters.
func tokenizeDoc(text string) []string {
	var tokens []string
	for _, word := range wordRegex.FindAllString(text, -1) {
		for _, t := range splitCasedToken(word) {
			lower := strings.ToLower(t)
			if len(lower) >= 2 {
				tokens = append(tokens, lower)
			}
		}
	}
	return tokens
}

func splitCasedToken(token string) []string {
	if strings.Contains(token, "_") {
		var out []string
		for _, part := range strings.Split(token, "_") {
			if part != "" {
				out = append(out, splitCamelCase(part)...)
			}
		}
		return out
	}
	return splitCamelCase(token)
}

func splitCamelCase(s string) []string {
	if s == "" {
		return nil
	}
	var result []string
	var current strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prevLower := unicode.IsLower(runes[i-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if prevLower || nextLower {
				if current.Len() > 0 {
					result = append(result, current.String())
					current.Reset()
				}
			}
		}
		current.WriteRune(r)
	}
	if current.Len() > 0 {
		result = append(result, current.String())
	}
	return result
}

func docTokenizerConstructor(config map[string]interface{}, cache *registry.Cache) (analysis.Tokenizer, error) {
	return &docTokenizer{}, nil
}

type docTokenizer struct{}

func (t *docTokenizer) Tokenize(input []byte) analysis.TokenStream {
	text := string(input)
	tokens := tokenizeDoc(text)

	result := make(analysis.TokenStream, 0, len(tokens))
	pos := 1
	offset := 0
	for _, token := range tokens {
		start := strings.Index(strings.ToLower(text[offset:]), token)
		if start == -1 {
			start = offset
		} else {
			start += offset
		}
		end := start + len(token)

		result = append(result, &analysis.Token{
			Term:     []byte(token),
			Start:    start,
			End:      end,
			Position: pos,
			Type:     analysis.AlphaNumeric,
		})
		pos++
		if end <= len(text) {
			offset = end
		}
	}
	return result
}

func docStopFilterConstructor(config map[string]interface{}, cache *registry.Cache) (analysis.TokenFilter, error) {
	return &docStopFilter{stopWords: buildStopWordMap(docStopWords)}, nil
}

type docStopFilter struct {
	stopWords map[string]struct{}
}

func (f *docStopFilter) Filter(input analysis.TokenStream) analysis.TokenStream {
	result := make(analysis.TokenStream, 0, len(input))
	for _, token := range input {
		if _, isStop := f.stopWords[strings.ToLower(string(token.Term))]; !isStop {
			result = append(result, token)
		}
	}
	return result
}

func buildStopWordMap(words []string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[strings.ToLower(w)] = struct{}{}
	}
	return m
}
