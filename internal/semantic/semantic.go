// Package semantic builds a TF-IDF semantic search index over a local
// Python package's top-level functions and classes, enabling
// natural-language discovery of functionality that substring search on
// symbol names alone would miss.
package semantic

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/Aman-CERP/polydocs-mcp/internal/docerrors"
)

const (
	maxSnippetLines   = 6
	maxDocPreviewRune = 200
)

// Result is one scored hit from a semantic search.
type Result struct {
	Package        string
	ModulePath     string
	ItemName       string
	QualifiedPath  string
	Kind           string
	File           string
	Line           int
	Score          float64
	DocPreview     string
	Signature      string
	SourcePreview  string
}

type vector struct {
	weights map[string]float64
	norm    float64
}

func newVector(weights map[string]float64) vector {
	return vector{weights: weights, norm: 1}
}

func (v *vector) applyIDF(idf map[string]float64) {
	var sumSquares float64
	for token, weight := range v.weights {
		w := weight * idfOrDefault(idf, token)
		v.weights[token] = w
		sumSquares += w * w
	}
	v.norm = math.Max(math.Sqrt(sumSquares), math.SmallestNonzeroFloat64)
}

func idfOrDefault(idf map[string]float64, token string) float64 {
	if w, ok := idf[token]; ok {
		return w
	}
	return 1.0
}

type entry struct {
	name           string
	nameLower      string
	qualifiedPath  string
	qualifiedLower string
	modulePath     string
	kind           string
	filePath       string
	line           int
	docPreview     string
	signature      string
	sourcePreview  string
	vector         vector
}

// Index is a built semantic index for a single Python package root.
type Index struct {
	packageName string
	packageRoot string
	entries     []entry
	idf         map[string]float64
}

// Build walks packageRoot for .py files, extracts top-level function and
// class definitions via tree-sitter, and computes a TF-IDF index over
// their names, signatures, docstrings and module context.
func Build(packageName, packageRoot string) (*Index, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(python.GetLanguage())

	var entries []entry

	err := filepath.WalkDir(packageRoot, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".py") {
			return nil
		}

		source, err := os.ReadFile(path)
		if err != nil {
			return docerrors.New(docerrors.ErrCodeFileNotFound, "failed to read Python source file: "+path, err)
		}

		tree, err := parser.ParseCtx(context.Background(), nil, source)
		if err != nil || tree == nil {
			return docerrors.New(docerrors.ErrCodeParseFailed, "failed to parse Python source file: "+path, err)
		}

		modPath, modErr := modulePath(packageName, packageRoot, path)
		if modErr != nil {
			return modErr
		}

		lines := strings.Split(string(source), "\n")
		extractEntries(tree.RootNode(), source, lines, modPath, path, &entries)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(entries) == 0 {
		return nil, docerrors.New(docerrors.ErrCodeSemanticIndexEmpty, "no Python symbols discovered for package "+packageName, nil)
	}

	documentFrequency := make(map[string]int)
	for _, e := range entries {
		seen := make(map[string]struct{}, len(e.vector.weights))
		for token := range e.vector.weights {
			if _, ok := seen[token]; !ok {
				seen[token] = struct{}{}
				documentFrequency[token]++
			}
		}
	}

	docCount := float64(len(entries))
	idf := make(map[string]float64, len(documentFrequency))
	for token, df := range documentFrequency {
		idf[token] = math.Log((docCount+1)/(float64(df)+1)) + 1
	}

	for i := range entries {
		entries[i].vector.applyIDF(idf)
	}

	return &Index{
		packageName: packageName,
		packageRoot: packageRoot,
		entries:     entries,
		idf:         idf,
	}, nil
}

// Search ranks entries by cosine similarity to the query's TF-IDF vector,
// with lexical boosts for exact/substring name and path matches.
func (idx *Index) Search(query string, limit int) []Result {
	if strings.TrimSpace(query) == "" || limit <= 0 {
		return nil
	}

	queryVector := buildTextVector(query, 1.0, 1.0)
	var queryNormSquares float64
	for token, weight := range queryVector {
		w := weight * idfOrDefault(idx.idf, token)
		queryVector[token] = w
		queryNormSquares += w * w
	}
	queryNorm := math.Max(math.Sqrt(queryNormSquares), math.SmallestNonzeroFloat64)
	queryLower := strings.ToLower(query)

	type scored struct {
		score float64
		e     *entry
	}
	var ranked []scored
	for i := range idx.entries {
		e := &idx.entries[i]
		var dot float64
		for token, qWeight := range queryVector {
			if docWeight, ok := e.vector.weights[token]; ok {
				dot += qWeight * docWeight
			}
		}
		if dot == 0 {
			continue
		}
		score := dot / (e.vector.norm * queryNorm)

		switch {
		case e.nameLower == queryLower:
			score += 0.35
		case strings.Contains(e.nameLower, queryLower):
			score += 0.2
		case strings.Contains(e.qualifiedLower, queryLower):
			score += 0.1
		}

		ranked = append(ranked, scored{score: score, e: e})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		if ranked[i].e.modulePath != ranked[j].e.modulePath {
			return ranked[i].e.modulePath < ranked[j].e.modulePath
		}
		return ranked[i].e.name < ranked[j].e.name
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	results := make([]Result, 0, len(ranked))
	for _, r := range ranked {
		results = append(results, Result{
			Package:       idx.packageName,
			ModulePath:    r.e.modulePath,
			ItemName:      r.e.name,
			QualifiedPath: r.e.qualifiedPath,
			Kind:          r.e.kind,
			File:          r.e.filePath,
			Line:          r.e.line,
			Score:         r.score,
			DocPreview:    r.e.docPreview,
			Signature:     r.e.signature,
			SourcePreview: r.e.sourcePreview,
		})
	}
	return results
}

// PackageRoot returns the on-disk root this index was built from.
func (idx *Index) PackageRoot() string {
	return idx.packageRoot
}

// Len reports the number of indexed symbols.
func (idx *Index) Len() int {
	return len(idx.entries)
}

func extractEntries(node *sitter.Node, source []byte, lines []string, modulePath, filePath string, out *[]entry) {
	switch node.Type() {
	case "function_definition", "class_definition":
		if e := buildEntry(node, source, lines, modulePath, filePath); e != nil {
			*out = append(*out, *e)
		}
	default:
		for i := 0; i < int(node.ChildCount()); i++ {
			extractEntries(node.Child(i), source, lines, modulePath, filePath, out)
		}
	}
}

func buildEntry(node *sitter.Node, source []byte, lines []string, modulePath, filePath string) *entry {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := nameNode.Content(source)
	if name == "" {
		return nil
	}

	kind := "function"
	if node.Type() == "class_definition" {
		kind = "class"
	}

	docstring := docstringFor(node, source)
	docPreview := ""
	if docstring != "" {
		docPreview = trimPreview(docstring, maxDocPreviewRune)
	}

	startRow := int(node.StartPoint().Row)
	line := startRow + 1
	signature := ""
	if startRow < len(lines) {
		signature = strings.TrimSpace(lines[startRow])
	}

	sourcePreview := snippetFor(node, lines, startRow)

	vec := make(map[string]float64)
	accumulateIdentifierTokens(vec, name, 1.6)
	accumulateIdentifierTokens(vec, modulePath, 0.75)
	if signature != "" {
		accumulateTextTokens(vec, signature, 0.6)
	}
	if docstring != "" {
		accumulateTextTokens(vec, docstring, 1.25)
	}
	accumulateTextTokens(vec, strings.ReplaceAll(modulePath, ".", " "), 0.4)

	qualifiedPath := modulePath + "." + name

	return &entry{
		name:           name,
		nameLower:      strings.ToLower(name),
		qualifiedPath:  qualifiedPath,
		qualifiedLower: strings.ToLower(qualifiedPath),
		modulePath:     modulePath,
		kind:           kind,
		filePath:       filePath,
		line:           line,
		docPreview:     docPreview,
		signature:      signature,
		sourcePreview:  sourcePreview,
		vector:         newVector(vec),
	}
}

func docstringFor(node *sitter.Node, source []byte) string {
	body := node.ChildByFieldName("body")
	if body == nil || body.NamedChildCount() == 0 {
		return ""
	}
	first := body.NamedChild(0)
	if first == nil || first.Type() != "expression_statement" {
		return ""
	}
	for i := 0; i < int(first.ChildCount()); i++ {
		child := first.Child(i)
		if child.Type() == "string" {
			return cleanDocstring(child.Content(source))
		}
	}
	return ""
}

func cleanDocstring(raw string) string {
	trimmed := strings.TrimSpace(raw)
	inner := stripDelimited(trimmed)

	lines := strings.Split(inner, "\n")
	if len(lines) == 0 {
		return ""
	}
	if len(lines) == 1 {
		return strings.TrimSpace(lines[0])
	}

	minIndent := -1
	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		leading := len(line) - len(strings.TrimLeft(line, " \t"))
		if minIndent == -1 || leading < minIndent {
			minIndent = leading
		}
	}
	if minIndent < 0 {
		minIndent = 0
	}

	result := make([]string, 0, len(lines))
	result = append(result, strings.TrimSpace(lines[0]))
	for _, line := range lines[1:] {
		if len(line) >= minIndent {
			result = append(result, strings.TrimRight(line[minIndent:], " \t"))
		} else {
			result = append(result, strings.TrimRight(line, " \t"))
		}
	}
	return strings.TrimSpace(strings.Join(result, "\n"))
}

func stripDelimited(trimmed string) string {
	delims := []string{`"""`, `'''`, `"`, `'`}
	for _, delim := range delims {
		if strings.HasPrefix(trimmed, delim) && strings.HasSuffix(trimmed, delim) && len(trimmed) >= len(delim)*2 {
			return trimmed[len(delim) : len(trimmed)-len(delim)]
		}
	}
	return trimmed
}

func snippetFor(node *sitter.Node, lines []string, startRow int) string {
	if startRow >= len(lines) {
		return ""
	}
	endRow := int(node.EndPoint().Row)
	end := endRow
	if end > startRow+maxSnippetLines {
		end = startRow + maxSnippetLines
	}
	if end >= len(lines) {
		end = len(lines) - 1
	}

	snippetLines := make([]string, 0, end-startRow+1)
	for i := startRow; i <= end; i++ {
		snippetLines = append(snippetLines, strings.TrimRight(lines[i], " \t"))
	}
	return strings.Join(snippetLines, "\n")
}

func trimPreview(doc string, maxRunes int) string {
	runes := []rune(doc)
	if len(runes) <= maxRunes {
		return doc
	}
	return string(runes[:maxRunes]) + "…"
}

func modulePath(packageName, packageRoot, file string) (string, error) {
	rel, err := filepath.Rel(packageRoot, file)
	if err != nil {
		return "", docerrors.New(docerrors.ErrCodeInternal, file+" is not under "+packageRoot, err)
	}

	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) > 0 && parts[len(parts)-1] == "__init__.py" {
		parts = parts[:len(parts)-1]
	}
	if len(parts) > 0 {
		parts[len(parts)-1] = strings.TrimSuffix(parts[len(parts)-1], ".py")
	}

	filtered := parts[:0]
	for _, p := range parts {
		if p != "" {
			filtered = append(filtered, p)
		}
	}

	if len(filtered) == 0 {
		return packageName, nil
	}
	return packageName + "." + strings.Join(filtered, "."), nil
}

func accumulateIdentifierTokens(target map[string]float64, ident string, weight float64) {
	if ident == "" {
		return
	}
	lower := strings.ToLower(ident)
	target[lower] += weight

	for _, token := range splitIdentifier(ident) {
		target[token] += weight * 0.8
	}
}

func accumulateTextTokens(target map[string]float64, text string, weight float64) {
	for _, token := range splitFreeform(text) {
		if isStopWord(token) {
			continue
		}
		target[token] += weight
	}
}

func buildTextVector(text string, mainWeight, phraseBonus float64) map[string]float64 {
	vec := make(map[string]float64)
	tokens := splitFreeform(text)
	for _, token := range tokens {
		if isStopWord(token) {
			continue
		}
		vec[token] += mainWeight
	}
	for i := 0; i+1 < len(tokens); i++ {
		if !isStopWord(tokens[i]) && !isStopWord(tokens[i+1]) {
			phrase := tokens[i] + " " + tokens[i+1]
			vec[phrase] += phraseBonus
		}
	}
	return vec
}

func splitIdentifier(ident string) []string {
	var tokens []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, strings.ToLower(current.String()))
			current.Reset()
		}
	}
	for _, ch := range ident {
		switch {
		case ch == '_' || ch == '.':
			flush()
		case unicode.IsUpper(ch) && current.Len() > 0:
			flush()
			current.WriteRune(ch)
		default:
			current.WriteRune(ch)
		}
	}
	flush()
	return tokens
}

func splitFreeform(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "or": {}, "for": {}, "with": {}, "of": {}, "a": {}, "an": {},
	"to": {}, "in": {}, "is": {}, "are": {}, "on": {}, "by": {}, "be": {}, "this": {},
	"that": {}, "it": {}, "from": {}, "into": {}, "as": {}, "at": {}, "self": {}, "cls": {},
	"returns": {}, "return": {}, "args": {}, "kwargs": {}, "true": {}, "false": {}, "none": {},
}

func isStopWord(token string) bool {
	_, ok := stopWords[token]
	return ok
}
