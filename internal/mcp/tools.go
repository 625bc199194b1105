package mcp

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/polydocs-mcp/internal/docmodel"
	"github.com/Aman-CERP/polydocs-mcp/internal/importresolve"
)

// registerTools registers every MCP tool the doc engine exposes.
func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_crates",
		Description: "Search crates.io by name or keyword. Returns the closest-matching published crates with description, download counts and links.",
	}, s.toolSearchCrates)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "crate_info",
		Description: "Fetch detailed crates.io metadata for one crate: description, license, dependencies and published versions.",
	}, s.toolCrateInfo)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_item_doc",
		Description: "Fetch the rendered documentation for one item (struct, trait, function, ...) within a Rust crate, resolving it from a local checkout or docs.rs.",
	}, s.toolGetItemDoc)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_trait_impls",
		Description: "List every `impl Trait for Type` block for a given trait path within a crate.",
	}, s.toolListTraitImpls)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_impls_for_type",
		Description: "List every trait implemented by a given type path within a crate.",
	}, s.toolListImplsForType)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "source_snippet",
		Description: "Return the source lines around an item's declaration from a locally vendored crate checkout, with surrounding context.",
	}, s.toolSourceSnippet)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_symbols",
		Description: "Search a crate's flattened symbol table by name substring, optionally filtered by item kind.",
	}, s.toolSearchSymbols)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_implementation",
		Description: "Return the full source body of an item (function, class, struct) from a Python, Node, or Rust package on disk.",
	}, s.toolGetImplementation)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "resolve_imports",
		Description: "Resolve the symbols named in an import statement (or a whole code block of imports) against an on-disk package, reporting where each symbol is defined.",
	}, s.toolResolveImports)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_item_docs",
		Description: "Full-text search over previously fetched item documentation (signatures, summaries, rendered markdown, examples) for one package, for free-text queries an exact symbol lookup can't serve.",
	}, s.toolSearchItemDocs)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_cache_stats",
		Description: "Report cache occupancy and hit/miss counters for the documentation cache.",
	}, s.toolGetCacheStats)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "clear_cache",
		Description: "Clear the documentation cache, either entirely or scoped to one crate.",
	}, s.toolClearCache)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "cleanup_cache",
		Description: "Remove expired cache entries older than the configured TTL.",
	}, s.toolCleanupCache)
}

// --- search_crates ---------------------------------------------------------

type SearchCratesInput struct {
	Query string `json:"query" jsonschema:"the search query"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results, default 10, max 100"`
}

type SearchCratesOutput struct {
	Crates []docmodel.CrateSearchResult `json:"crates"`
}

func (s *Server) toolSearchCrates(ctx context.Context, _ *mcp.CallToolRequest, input SearchCratesInput) (*mcp.CallToolResult, SearchCratesOutput, error) {
	if err := validateQuery(input.Query); err != nil {
		return nil, SearchCratesOutput{}, err
	}
	limit := clampLimit(input.Limit, 10, 1, 100)

	results, err := s.engine.SearchCrates(ctx, input.Query, limit)
	if err != nil {
		return nil, SearchCratesOutput{}, MapError(err)
	}
	return nil, SearchCratesOutput{Crates: results}, nil
}

// --- crate_info --------------------------------------------------------

type CrateInfoInput struct {
	Name           string `json:"name" jsonschema:"the crate name"`
	IncludeStats   bool   `json:"include_stats,omitempty" jsonschema:"also fetch the crates.io per-day download time series"`
	VerifyChecksum bool   `json:"verify_checksum,omitempty" jsonschema:"also verify the latest version's tarball checksum against crates.io"`
}

type CrateInfoOutput struct {
	Crate docmodel.CrateInfo `json:"crate"`
}

func (s *Server) toolCrateInfo(ctx context.Context, _ *mcp.CallToolRequest, input CrateInfoInput) (*mcp.CallToolResult, CrateInfoOutput, error) {
	if err := validatePackageName(input.Name); err != nil {
		return nil, CrateInfoOutput{}, err
	}

	info, err := s.engine.CrateInfo(ctx, input.Name)
	if err != nil {
		return nil, CrateInfoOutput{}, MapError(err)
	}

	// Stats and checksum verification are best-effort enrichment: a failure
	// here should never turn an otherwise-successful crate_info call into an
	// error.
	if input.IncludeStats {
		if stats, err := s.engine.GetCrateStats(ctx, input.Name); err == nil {
			info.Stats = &stats
		}
	}
	if input.VerifyChecksum && info.LatestVersion != "" {
		if ok, err := s.engine.VerifyCrateChecksum(ctx, input.Name, info.LatestVersion); err == nil {
			info.ChecksumVerified = &ok
		}
	}

	return nil, CrateInfoOutput{Crate: info}, nil
}

// --- get_item_doc --------------------------------------------------------

type GetItemDocInput struct {
	CrateName string `json:"crate_name" jsonschema:"the crate name"`
	Path      string `json:"path" jsonschema:"the item path, e.g. tokio::runtime::Runtime"`
	Version   string `json:"version,omitempty" jsonschema:"crate version, defaults to latest"`
}

type GetItemDocOutput struct {
	Doc docmodel.ItemDoc `json:"doc"`
}

func (s *Server) toolGetItemDoc(ctx context.Context, _ *mcp.CallToolRequest, input GetItemDocInput) (*mcp.CallToolResult, GetItemDocOutput, error) {
	if err := validatePackageName(input.CrateName); err != nil {
		return nil, GetItemDocOutput{}, err
	}
	if err := validateItemPath(input.Path); err != nil {
		return nil, GetItemDocOutput{}, err
	}

	doc, err := s.engine.GetItemDoc(ctx, input.CrateName, input.Path, input.Version)
	if err != nil {
		return nil, GetItemDocOutput{}, MapError(err)
	}
	return nil, GetItemDocOutput{Doc: doc}, nil
}

// --- list_trait_impls --------------------------------------------------

type ListTraitImplsInput struct {
	CrateName string `json:"crate_name"`
	TraitPath string `json:"trait_path"`
	Version   string `json:"version,omitempty"`
}

type TraitImplsOutput struct {
	Impls []docmodel.TraitImpl `json:"impls"`
}

func (s *Server) toolListTraitImpls(ctx context.Context, _ *mcp.CallToolRequest, input ListTraitImplsInput) (*mcp.CallToolResult, TraitImplsOutput, error) {
	if err := validatePackageName(input.CrateName); err != nil {
		return nil, TraitImplsOutput{}, err
	}
	if err := validateItemPath(input.TraitPath); err != nil {
		return nil, TraitImplsOutput{}, err
	}

	impls, err := s.engine.ListTraitImpls(ctx, input.CrateName, input.TraitPath, input.Version)
	if err != nil {
		return nil, TraitImplsOutput{}, MapError(err)
	}
	return nil, TraitImplsOutput{Impls: impls}, nil
}

// --- list_impls_for_type -------------------------------------------------

type ListImplsForTypeInput struct {
	CrateName string `json:"crate_name"`
	TypePath  string `json:"type_path"`
	Version   string `json:"version,omitempty"`
}

func (s *Server) toolListImplsForType(ctx context.Context, _ *mcp.CallToolRequest, input ListImplsForTypeInput) (*mcp.CallToolResult, TraitImplsOutput, error) {
	if err := validatePackageName(input.CrateName); err != nil {
		return nil, TraitImplsOutput{}, err
	}
	if err := validateItemPath(input.TypePath); err != nil {
		return nil, TraitImplsOutput{}, err
	}

	impls, err := s.engine.ListImplsForType(ctx, input.CrateName, input.TypePath, input.Version)
	if err != nil {
		return nil, TraitImplsOutput{}, MapError(err)
	}
	return nil, TraitImplsOutput{Impls: impls}, nil
}

// --- source_snippet ------------------------------------------------------

type SourceSnippetInput struct {
	CrateName    string `json:"crate_name"`
	ItemPath     string `json:"item_path"`
	ContextLines int    `json:"context_lines,omitempty" jsonschema:"lines of context around the declaration, default 20, max 100"`
	Version      string `json:"version,omitempty"`
}

type SourceSnippetOutput struct {
	Snippet  string                  `json:"snippet"`
	Location docmodel.SourceLocation `json:"location"`
	MimeType string                  `json:"mime_type,omitempty"`
}

func (s *Server) toolSourceSnippet(ctx context.Context, _ *mcp.CallToolRequest, input SourceSnippetInput) (*mcp.CallToolResult, SourceSnippetOutput, error) {
	if err := validatePackageName(input.CrateName); err != nil {
		return nil, SourceSnippetOutput{}, err
	}
	if err := validateItemPath(input.ItemPath); err != nil {
		return nil, SourceSnippetOutput{}, err
	}
	contextLines := clampLimit(input.ContextLines, 20, 1, 100)

	snippet, loc, err := s.engine.SourceSnippet(ctx, input.CrateName, input.ItemPath, contextLines, input.Version)
	if err != nil {
		return nil, SourceSnippetOutput{}, MapError(err)
	}
	return nil, SourceSnippetOutput{Snippet: snippet, Location: loc, MimeType: MimeTypeForPath(loc.FilePath)}, nil
}

// --- search_symbols ------------------------------------------------------

type SearchSymbolsInput struct {
	CrateName string   `json:"crate_name"`
	Query     string   `json:"query"`
	Kinds     []string `json:"kinds,omitempty" jsonschema:"restrict to these item kinds"`
	Limit     int      `json:"limit,omitempty" jsonschema:"default 20, max 100"`
	Version   string   `json:"version,omitempty"`
}

type SearchSymbolsOutput struct {
	Symbols []docmodel.SymbolMatch `json:"symbols"`
}

func (s *Server) toolSearchSymbols(ctx context.Context, _ *mcp.CallToolRequest, input SearchSymbolsInput) (*mcp.CallToolResult, SearchSymbolsOutput, error) {
	if err := validatePackageName(input.CrateName); err != nil {
		return nil, SearchSymbolsOutput{}, err
	}
	if err := validateQuery(input.Query); err != nil {
		return nil, SearchSymbolsOutput{}, err
	}
	limit := clampLimit(input.Limit, 20, 1, 100)

	kinds := make([]docmodel.ItemKind, 0, len(input.Kinds))
	for _, k := range input.Kinds {
		kinds = append(kinds, docmodel.ItemKind(k))
	}

	matches, err := s.engine.SearchSymbols(ctx, input.CrateName, input.Query, kinds, limit, input.Version)
	if err != nil {
		return nil, SearchSymbolsOutput{}, MapError(err)
	}
	return nil, SearchSymbolsOutput{Symbols: matches}, nil
}

// --- get_implementation ---------------------------------------------------

type GetImplementationInput struct {
	Language    string `json:"language" jsonschema:"python, node, or rust"`
	PackageName string `json:"package_name"`
	ItemPath    string `json:"item_path" jsonschema:"file#name, e.g. src/client.py#Client.connect"`
	ContextPath string `json:"context_path,omitempty" jsonschema:"directory to resolve the package from, defaults to the server's working directory"`
}

type GetImplementationOutput struct {
	Context  docmodel.ImplementationContext `json:"context"`
	MimeType string                         `json:"mime_type,omitempty"`
}

func (s *Server) toolGetImplementation(ctx context.Context, _ *mcp.CallToolRequest, input GetImplementationInput) (*mcp.CallToolResult, GetImplementationOutput, error) {
	eco, err := parseEcosystem(input.Language)
	if err != nil {
		return nil, GetImplementationOutput{}, err
	}
	if err := validatePackageName(input.PackageName); err != nil {
		return nil, GetImplementationOutput{}, err
	}
	if input.ItemPath == "" {
		return nil, GetImplementationOutput{}, NewInvalidParamsError("item_path is required")
	}

	pkg := docmodel.PackageRef{Ecosystem: eco, Name: input.PackageName}
	implCtx, err := s.engine.GetImplementation(ctx, pkg, input.ContextPath, input.ItemPath)
	if err != nil {
		return nil, GetImplementationOutput{}, MapError(err)
	}
	return nil, GetImplementationOutput{Context: implCtx, MimeType: MimeTypeForPath(implCtx.Location.FilePath)}, nil
}

// --- resolve_imports -------------------------------------------------------

type ResolveImportsInput struct {
	Language    string `json:"language" jsonschema:"python, node, or rust"`
	Package     string `json:"package"`
	Version     string `json:"version,omitempty"`
	ImportLine  string `json:"import_line,omitempty" jsonschema:"a single import statement; mutually exclusive with code_block"`
	CodeBlock   string `json:"code_block,omitempty" jsonschema:"a block of source containing one or more import statements; mutually exclusive with import_line"`
	ContextPath string `json:"context_path,omitempty"`
}

type ResolveImportsOutput struct {
	Response docmodel.ImportResolutionResponse `json:"response"`
}

func (s *Server) toolResolveImports(ctx context.Context, _ *mcp.CallToolRequest, input ResolveImportsInput) (*mcp.CallToolResult, ResolveImportsOutput, error) {
	eco, err := parseEcosystem(input.Language)
	if err != nil {
		return nil, ResolveImportsOutput{}, err
	}
	if err := validatePackageName(input.Package); err != nil {
		return nil, ResolveImportsOutput{}, err
	}
	if input.ImportLine == "" && input.CodeBlock == "" {
		return nil, ResolveImportsOutput{}, NewInvalidParamsError("one of import_line or code_block is required")
	}

	resp, err := s.engine.ResolveImports(ctx, importresolve.Params{
		Language:    eco,
		Package:     input.Package,
		Version:     input.Version,
		ContextPath: input.ContextPath,
		ImportLine:  input.ImportLine,
		CodeBlock:   input.CodeBlock,
	})
	if err != nil {
		return nil, ResolveImportsOutput{}, MapError(err)
	}
	return nil, ResolveImportsOutput{Response: resp}, nil
}

// --- search_item_docs ------------------------------------------------------

type SearchItemDocsInput struct {
	Ecosystem string `json:"ecosystem" jsonschema:"rust, python, or node"`
	Name      string `json:"name" jsonschema:"the package name"`
	Version   string `json:"version,omitempty"`
	Query     string `json:"query"`
	Limit     int    `json:"limit,omitempty" jsonschema:"default 10, max 50"`
}

type SearchItemDocsOutput struct {
	Hits []SearchItemDocHit `json:"hits"`
}

type SearchItemDocHit struct {
	ItemPath     string   `json:"item_path"`
	Score        float64  `json:"score"`
	MatchedTerms []string `json:"matched_terms,omitempty"`
}

func (s *Server) toolSearchItemDocs(ctx context.Context, _ *mcp.CallToolRequest, input SearchItemDocsInput) (*mcp.CallToolResult, SearchItemDocsOutput, error) {
	eco, err := parseEcosystem(input.Ecosystem)
	if err != nil {
		return nil, SearchItemDocsOutput{}, err
	}
	if err := validatePackageName(input.Name); err != nil {
		return nil, SearchItemDocsOutput{}, err
	}
	if err := validateQuery(input.Query); err != nil {
		return nil, SearchItemDocsOutput{}, err
	}
	limit := clampLimit(input.Limit, 10, 1, 50)

	pkg := docmodel.PackageRef{Ecosystem: eco, Name: input.Name, Version: input.Version}
	hits, err := s.engine.SearchItemDocs(ctx, pkg, input.Query, limit)
	if err != nil {
		return nil, SearchItemDocsOutput{}, MapError(err)
	}

	out := make([]SearchItemDocHit, 0, len(hits))
	for _, h := range hits {
		out = append(out, SearchItemDocHit{ItemPath: h.ItemPath, Score: h.Score, MatchedTerms: h.MatchedTerms})
	}
	return nil, SearchItemDocsOutput{Hits: out}, nil
}

// --- get_cache_stats ---------------------------------------------------

type GetCacheStatsInput struct{}

type GetCacheStatsOutput struct {
	TotalEntries   int     `json:"total_entries"`
	TotalSizeBytes int64   `json:"total_size_bytes"`
	HitRate        float64 `json:"hit_rate"`
	Hits           int64   `json:"hits"`
	Misses         int64   `json:"misses"`
}

func (s *Server) toolGetCacheStats(_ context.Context, _ *mcp.CallToolRequest, _ GetCacheStatsInput) (*mcp.CallToolResult, GetCacheStatsOutput, error) {
	stats, err := s.engine.GetCacheStats()
	if err != nil {
		return nil, GetCacheStatsOutput{}, MapError(err)
	}
	return nil, GetCacheStatsOutput{
		TotalEntries:   stats.TotalEntries,
		TotalSizeBytes: stats.TotalSizeBytes,
		HitRate:        stats.HitRate,
		Hits:           stats.Hits,
		Misses:         stats.Misses,
	}, nil
}

// --- clear_cache ---------------------------------------------------------

type ClearCacheInput struct {
	CrateName string `json:"crate_name,omitempty" jsonschema:"if set, only this crate's cache entries are removed"`
}

type CacheOperationOutput struct {
	RemovedEntries int  `json:"removed_entries,omitempty"`
	Cleared        bool `json:"cleared"`
}

func (s *Server) toolClearCache(_ context.Context, _ *mcp.CallToolRequest, input ClearCacheInput) (*mcp.CallToolResult, CacheOperationOutput, error) {
	if input.CrateName != "" {
		if err := validatePackageName(input.CrateName); err != nil {
			return nil, CacheOperationOutput{}, err
		}
		removed, err := s.engine.ClearCacheForPackage(input.CrateName)
		if err != nil {
			return nil, CacheOperationOutput{}, MapError(err)
		}
		return nil, CacheOperationOutput{RemovedEntries: removed, Cleared: true}, nil
	}

	if err := s.engine.ClearCache(); err != nil {
		return nil, CacheOperationOutput{}, MapError(err)
	}
	return nil, CacheOperationOutput{Cleared: true}, nil
}

// --- cleanup_cache ---------------------------------------------------------

type CleanupCacheInput struct {
	MaxAgeHours int `json:"max_age_hours,omitempty" jsonschema:"remove entries older than this many hours, defaults to the configured TTL"`
}

func (s *Server) toolCleanupCache(_ context.Context, _ *mcp.CallToolRequest, input CleanupCacheInput) (*mcp.CallToolResult, CacheOperationOutput, error) {
	maxAge := time.Duration(s.config.Cache.EntryTTLHours) * time.Hour
	if input.MaxAgeHours > 0 {
		maxAge = time.Duration(input.MaxAgeHours) * time.Hour
	}

	removed, err := s.engine.CleanupCache(maxAge)
	if err != nil {
		return nil, CacheOperationOutput{}, MapError(err)
	}
	return nil, CacheOperationOutput{RemovedEntries: removed, Cleared: true}, nil
}

// parseEcosystem validates and maps a language string onto docmodel.Ecosystem.
func parseEcosystem(language string) (docmodel.Ecosystem, error) {
	switch docmodel.Ecosystem(language) {
	case docmodel.EcosystemRust, docmodel.EcosystemPython, docmodel.EcosystemNode:
		return docmodel.Ecosystem(language), nil
	default:
		return "", NewInvalidParamsError("language must be one of: rust, python, node")
	}
}
