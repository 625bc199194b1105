// Package docmodel defines the data types shared across the documentation
// engine: package identifiers, resolved items, source locations and the
// search result shapes returned by the symbol index and semantic index.
package docmodel

import "time"

// Ecosystem identifies which package manager/registry a request targets.
type Ecosystem string

const (
	EcosystemRust   Ecosystem = "rust"
	EcosystemPython Ecosystem = "python"
	EcosystemNode   Ecosystem = "node"
)

// PackageRef identifies a package within an ecosystem, with an optional
// version constraint ("latest" when empty).
type PackageRef struct {
	Ecosystem Ecosystem
	Name      string
	Version   string
}

// ItemKind enumerates the documentable item kinds across ecosystems.
// Rust kinds follow the docs.rs search-index kind table; Python/Node kinds
// are collapsed onto the closest equivalent.
type ItemKind string

const (
	KindStruct    ItemKind = "struct"
	KindFunction  ItemKind = "function"
	KindTrait     ItemKind = "trait"
	KindEnum      ItemKind = "enum"
	KindTypeAlias ItemKind = "type_alias"
	KindMacro     ItemKind = "macro"
	KindConstant  ItemKind = "constant"
	KindStatic    ItemKind = "static"
	KindModule    ItemKind = "module"
	KindUnion     ItemKind = "union"
	KindMethod    ItemKind = "method"
	KindClass     ItemKind = "class"
	KindProperty  ItemKind = "property"
	KindImpl      ItemKind = "impl"
	KindUnknown   ItemKind = "unknown"
)

// SourceLocation points at a span of a source file backing a documented item.
type SourceLocation struct {
	FilePath  string `json:"file_path"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line,omitempty"`
}

// ItemDoc is the rendered documentation for a single item, merged from the
// docs.rs scrape (Rust) or extracted directly from source (Python/Node).
type ItemDoc struct {
	Package     PackageRef     `json:"package"`
	Path        string         `json:"path"`
	Kind        ItemKind       `json:"kind"`
	Signature   string         `json:"signature,omitempty"`
	Summary     string         `json:"summary,omitempty"`
	DocHTML     string         `json:"doc_html,omitempty"`
	DocMarkdown string         `json:"doc_markdown,omitempty"`
	Examples    []string       `json:"examples,omitempty"`
	Source      SourceLocation `json:"source,omitempty"`
	FetchedAt   time.Time      `json:"fetched_at"`
}

// SymbolRecord is one entry in a package's flattened symbol table, built
// from a docs.rs search index, a Python tree-sitter walk, or a Node
// export graph.
type SymbolRecord struct {
	Name       string   `json:"name"`
	Path       string   `json:"path"`
	ModulePath string   `json:"module_path"`
	Kind       ItemKind `json:"kind"`
	Doc        string   `json:"doc,omitempty"`
	ParentName string   `json:"parent_name,omitempty"`
}

// SymbolMatch is a scored SymbolRecord returned from a symbol search.
type SymbolMatch struct {
	SymbolRecord
	Score float64 `json:"score"`
}

// TraitImpl describes one `impl Trait for Type` block (Rust) or an
// equivalent structural relationship surfaced for other ecosystems.
type TraitImpl struct {
	TraitPath string         `json:"trait_path"`
	TypePath  string         `json:"type_path"`
	Source    SourceLocation `json:"source,omitempty"`
}

// ImplementationContext is the source-backed body of an item, with the
// resolved file it was found in.
type ImplementationContext struct {
	Package   PackageRef     `json:"package"`
	ItemPath  string         `json:"item_path"`
	Doc       string         `json:"doc,omitempty"`
	Code      string         `json:"code"`
	Location  SourceLocation `json:"location"`
	Truncated bool           `json:"truncated"`
}

// ImportSymbolStatus reports whether a single requested symbol within an
// import statement was located on disk.
type ImportSymbolStatus string

const (
	ImportResolved ImportSymbolStatus = "resolved"
	ImportNotFound ImportSymbolStatus = "not_found"
)

// ImportSymbolLocation is one resolved (or unresolved) symbol pulled out of
// an import statement.
type ImportSymbolLocation struct {
	Symbol   string             `json:"symbol"`
	File     string             `json:"file"`
	Line     int                `json:"line"`
	EndLine  int                `json:"end_line,omitempty"`
	Kind     ItemKind           `json:"kind,omitempty"`
	Status   ImportSymbolStatus `json:"status"`
	Note     string             `json:"note,omitempty"`
}

// ImportResolutionResult is the resolution outcome for a single import
// statement: the symbols it requested and where (if anywhere) each was found.
type ImportResolutionResult struct {
	Language         Ecosystem              `json:"language"`
	Package          string                 `json:"package"`
	ImportStatement  string                 `json:"import_statement"`
	ModulePath       []string               `json:"module_path,omitempty"`
	RequestedSymbols []string               `json:"requested_symbols"`
	Resolved         []ImportSymbolLocation `json:"resolved"`
	Diagnostics      []string               `json:"diagnostics,omitempty"`
}

// ImportResolutionResponse aggregates the per-line results of a
// resolve_imports call.
type ImportResolutionResponse struct {
	Results     []ImportResolutionResult `json:"results"`
	Diagnostics []string                 `json:"diagnostics,omitempty"`
	AnyResolved bool                     `json:"any_resolved"`
}

// PackageStats summarizes a package for crate_info / package_info responses.
type PackageStats struct {
	Package      PackageRef `json:"package"`
	Description  string     `json:"description,omitempty"`
	License      string     `json:"license,omitempty"`
	Repository   string     `json:"repository,omitempty"`
	Downloads    int64      `json:"downloads,omitempty"`
	LatestVer    string     `json:"latest_version,omitempty"`
	Dependencies []string   `json:"dependencies,omitempty"`
}

// CrateSearchResult is one hit from a crates.io search.
type CrateSearchResult struct {
	Name          string   `json:"name"`
	LatestVersion string   `json:"latest_version"`
	Description   string   `json:"description,omitempty"`
	Downloads     uint64   `json:"downloads"`
	Repository    string   `json:"repository,omitempty"`
	Documentation string   `json:"documentation,omitempty"`
	Homepage      string   `json:"homepage,omitempty"`
	Keywords      []string `json:"keywords,omitempty"`
	Categories    []string `json:"categories,omitempty"`
	CreatedAt     string   `json:"created_at,omitempty"`
	UpdatedAt     string   `json:"updated_at,omitempty"`
}

// DependencyInfo is one dependency edge of a crate version.
type DependencyInfo struct {
	Name            string `json:"name"`
	VersionReq      string `json:"version_req"`
	Kind            string `json:"kind"` // normal, dev, build
	Optional        bool   `json:"optional"`
	DefaultFeatures bool   `json:"default_features"`
	Features        []string `json:"features,omitempty"`
}

// CrateVersionInfo is one published version of a crate.
type CrateVersionInfo struct {
	Version   string `json:"version"`
	Downloads uint64 `json:"downloads"`
	Yanked    bool   `json:"yanked"`
	CreatedAt string `json:"created_at,omitempty"`
	Checksum  string `json:"checksum,omitempty"`
}

// DailyDownload is one day's download count from crates.io's per-version
// download time series.
type DailyDownload struct {
	Date      string `json:"date"`
	Downloads uint64 `json:"downloads"`
}

// CrateStats is crates.io's dedicated download-statistics endpoint response,
// distinct from the summary counts already embedded in CrateInfo.
type CrateStats struct {
	Name           string          `json:"name"`
	DailyDownloads []DailyDownload `json:"daily_downloads,omitempty"`
}

// SearchIndexItem is one flattened entry from a docs.rs search-index.js
// file: an item's kind, name, module path and one-line description.
type SearchIndexItem struct {
	Kind        ItemKind `json:"kind"`
	Name        string   `json:"name"`
	Path        string   `json:"path"`
	Description string   `json:"description,omitempty"`
	ParentIndex *int     `json:"parent_index,omitempty"`
}

// SearchIndexData is the parsed contents of a crate's docs.rs search index,
// the seed data for both the symbol index and the trait impl index.
type SearchIndexData struct {
	CrateName string            `json:"crate_name"`
	Version   string            `json:"version"`
	Items     []SearchIndexItem `json:"items"`
	Paths     []string          `json:"paths"`
}

// CrateInfo is the detailed crates.io response for a single crate.
type CrateInfo struct {
	Name             string             `json:"name"`
	LatestVersion    string             `json:"latest_version"`
	Description      string             `json:"description,omitempty"`
	Homepage         string             `json:"homepage,omitempty"`
	Repository       string             `json:"repository,omitempty"`
	Documentation    string             `json:"documentation,omitempty"`
	License          string             `json:"license,omitempty"`
	Downloads        uint64             `json:"downloads"`
	RecentDownloads  uint64             `json:"recent_downloads,omitempty"`
	Dependencies     []DependencyInfo   `json:"dependencies,omitempty"`
	Keywords         []string           `json:"keywords,omitempty"`
	Categories       []string           `json:"categories,omitempty"`
	Versions         []CrateVersionInfo `json:"versions,omitempty"`
	CreatedAt        string             `json:"created_at,omitempty"`
	UpdatedAt        string             `json:"updated_at,omitempty"`
	Stats            *CrateStats        `json:"stats,omitempty"`
	ChecksumVerified *bool              `json:"checksum_verified,omitempty"`
}
