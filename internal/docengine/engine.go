// Package docengine is the single façade every MCP tool calls through: it
// owns the cache store, finder, fetcher, scraper, symbol/semantic indexes
// and implementation extractors, and guarantees at most one concurrent
// build per cache key.
package docengine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/Aman-CERP/polydocs-mcp/internal/cachestore"
	"github.com/Aman-CERP/polydocs-mcp/internal/config"
	"github.com/Aman-CERP/polydocs-mcp/internal/docerrors"
	"github.com/Aman-CERP/polydocs-mcp/internal/docmodel"
	"github.com/Aman-CERP/polydocs-mcp/internal/docsearch"
	"github.com/Aman-CERP/polydocs-mcp/internal/extract"
	"github.com/Aman-CERP/polydocs-mcp/internal/fetcher"
	"github.com/Aman-CERP/polydocs-mcp/internal/finder"
	"github.com/Aman-CERP/polydocs-mcp/internal/importresolve"
	"github.com/Aman-CERP/polydocs-mcp/internal/scrape"
	"github.com/Aman-CERP/polydocs-mcp/internal/semantic"
	"github.com/Aman-CERP/polydocs-mcp/internal/symbolindex"
)

const (
	memoryCacheSize  = 100
	versionCacheSize = 1000
	maxMemoryEntries = 512
)

// Options configures an Engine beyond the mandatory cache directory.
type Options struct {
	// WorkingDir is the default directory implementation-context /
	// import-resolution requests resolve relative paths against when the
	// caller supplies no explicit context_path.
	WorkingDir string
	// SQLiteIndexPath, if set, persists the symbol index to a
	// modernc.org/sqlite FTS5 table so it survives process restarts.
	SQLiteIndexPath string
	Logger          *slog.Logger

	// Config supplies cache sizing and fetcher/scraper network tuning. A
	// nil Config falls back to config.NewConfig()'s defaults.
	Config *config.Config

	// Fetcher and Scraper override the default crates.io/docs.rs clients,
	// for pointing the engine at a test server. These take precedence over
	// Config's FetcherConfig/ScraperConfig.
	Fetcher *fetcher.Fetcher
	Scraper *scrape.Scraper
}

// Engine composes every documentation-engine component behind the
// operations the MCP tool layer calls.
type Engine struct {
	store    *cachestore.Store
	finder   *finder.Finder
	fetcher  *fetcher.Fetcher
	scraper  *scrape.Scraper
	resolver *importresolve.Resolver
	sqlite   *symbolindex.SQLiteStore // nil if not configured

	semanticCache *semantic.Cache
	rootWatcher   *finder.PackageRootWatcher
	docSearch     *docsearch.Index

	cleanupStop chan struct{}
	cleanupDone chan struct{}

	memoryCache  *lru.Cache[string, *CrateDocumentation]
	versionCache *lru.Cache[string, string]

	buildGroup singleflight.Group

	watchedRootsMu sync.Mutex
	watchedRoots   map[string]watchedPackage // package root -> owning package

	workingDir string
	logger     *slog.Logger
}

// watchedPackage identifies which package/ecosystem a watched root belongs
// to, so a filesystem event on that root can target the right caches.
type watchedPackage struct {
	ecosystem docmodel.Ecosystem
	name      string
}

// New creates an Engine rooted at cacheDir with default options.
func New(cacheDir string) (*Engine, error) {
	return NewWithOptions(cacheDir, Options{})
}

// NewWithOptions creates an Engine with explicit options.
func NewWithOptions(cacheDir string, opts Options) (*Engine, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cfg := opts.Config
	if cfg == nil {
		cfg = config.NewConfig()
	}

	cacheMaxMemory := maxMemoryEntries
	if cfg.Cache.MaxMemoryEntries > 0 {
		cacheMaxMemory = cfg.Cache.MaxMemoryEntries
	}
	store, err := cachestore.New(cacheDir, cacheMaxMemory, logger)
	if err != nil {
		return nil, err
	}

	memCache, err := lru.New[string, *CrateDocumentation](memoryCacheSize)
	if err != nil {
		return nil, docerrors.Wrap(docerrors.ErrCodeInternal, err)
	}
	versionCache, err := lru.New[string, string](versionCacheSize)
	if err != nil {
		return nil, docerrors.Wrap(docerrors.ErrCodeInternal, err)
	}

	var sqliteStore *symbolindex.SQLiteStore
	if opts.SQLiteIndexPath != "" {
		sqliteStore, err = symbolindex.NewSQLiteStore(opts.SQLiteIndexPath)
		if err != nil {
			return nil, err
		}
	}

	workingDir := opts.WorkingDir
	if workingDir == "" {
		if wd, err := os.Getwd(); err == nil {
			workingDir = wd
		}
	}

	fetcherClient := opts.Fetcher
	if fetcherClient == nil {
		fetcherClient = fetcher.NewWithConfig(fetcher.Config{
			RateLimitPerSecond: cfg.Fetcher.RateLimitPerSecond,
			MetadataTimeout:    cfg.Fetcher.MetadataTimeout,
			DownloadTimeout:    cfg.Fetcher.DownloadTimeout,
		})
	}
	scraperClient := opts.Scraper
	if scraperClient == nil {
		scraperClient = scrape.NewWithConfig(scrape.Config{
			UserAgent:    cfg.Scraper.UserAgent,
			HeadTimeout:  cfg.Scraper.HeadTimeout,
			FetchTimeout: cfg.Scraper.FetchTimeout,
			MaxRetries:   cfg.Scraper.MaxRetries,
			RetryDelay:   cfg.Scraper.RetryDelay,
		})
	}

	docSearchIndex, err := docsearch.New(filepath.Join(cacheDir, "item_docs_index"))
	if err != nil {
		return nil, docerrors.Wrap(docerrors.ErrCodeInternal, err)
	}

	e := &Engine{
		store:         store,
		finder:        finder.New(),
		fetcher:       fetcherClient,
		scraper:       scraperClient,
		resolver:      importresolve.New(),
		sqlite:        sqliteStore,
		semanticCache: semantic.NewCache(),
		docSearch:     docSearchIndex,
		memoryCache:   memCache,
		versionCache:  versionCache,
		watchedRoots:  make(map[string]watchedPackage),
		workingDir:    workingDir,
		logger:        logger,
	}

	if watcher, err := finder.NewPackageRootWatcher(logger); err != nil {
		logger.Warn("docengine: filesystem watcher unavailable, caches rely on TTL expiry only", "error", err)
	} else {
		watcher.OnChange = e.onPackageRootChanged
		e.rootWatcher = watcher
	}

	e.startCacheCleanup(cfg.Cache)

	return e, nil
}

// startCacheCleanup runs a background sweep every CleanupIntervalHours that
// evicts disk entries older than EntryTTLHours and, if the tier has grown
// past MaxDiskSizeMB, the least-recently-accessed entries beyond that quota.
// A non-positive interval disables the sweep.
func (e *Engine) startCacheCleanup(cfg config.CacheConfig) {
	if cfg.CleanupIntervalHours <= 0 {
		return
	}

	e.cleanupStop = make(chan struct{})
	e.cleanupDone = make(chan struct{})
	interval := time.Duration(cfg.CleanupIntervalHours) * time.Hour
	ttl := time.Duration(cfg.EntryTTLHours) * time.Hour
	maxBytes := int64(cfg.MaxDiskSizeMB) * 1024 * 1024

	go func() {
		defer close(e.cleanupDone)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-e.cleanupStop:
				return
			case <-ticker.C:
				if ttl > 0 {
					if n, err := e.store.CleanupExpired(ttl); err != nil {
						e.logger.Warn("docengine: cache TTL cleanup failed", "error", err)
					} else if n > 0 {
						e.logger.Info("docengine: cache TTL cleanup removed entries", "count", n)
					}
				}
				if maxBytes > 0 {
					if n, err := e.store.EnforceDiskQuota(maxBytes); err != nil {
						e.logger.Warn("docengine: cache quota enforcement failed", "error", err)
					} else if n > 0 {
						e.logger.Info("docengine: cache quota enforcement removed entries", "count", n)
					}
				}
			}
		}
	}()
}

// Close releases resources held by the engine (the durable symbol index,
// filesystem watcher, and background cache cleanup, if configured).
func (e *Engine) Close() error {
	if e.cleanupStop != nil {
		close(e.cleanupStop)
		<-e.cleanupDone
	}
	if e.rootWatcher != nil {
		if err := e.rootWatcher.Close(); err != nil {
			e.logger.Warn("docengine: failed to close package root watcher", "error", err)
		}
	}
	if e.docSearch != nil {
		if err := e.docSearch.Close(); err != nil {
			e.logger.Warn("docengine: failed to close item doc search index", "error", err)
		}
	}
	if e.sqlite != nil {
		return e.sqlite.Close()
	}
	return nil
}

// watchPackageRoot registers root for filesystem-change invalidation of the
// semantic index / import-resolution caches keyed on it, tolerating a nil
// or failing watcher.
func (e *Engine) watchPackageRoot(eco docmodel.Ecosystem, name, root string) {
	if e.rootWatcher == nil || root == "" {
		return
	}
	if err := e.rootWatcher.Watch(root); err != nil {
		e.logger.Debug("docengine: failed to watch package root", "root", root, "error", err)
		return
	}
	e.watchedRootsMu.Lock()
	e.watchedRoots[root] = watchedPackage{ecosystem: eco, name: name}
	e.watchedRootsMu.Unlock()
}

// onPackageRootChanged is the watcher's OnChange callback: it invalidates
// the semantic index and import-resolution cache entries for whichever
// package owns the changed root.
func (e *Engine) onPackageRootChanged(root string) {
	e.watchedRootsMu.Lock()
	pkg, ok := e.watchedRoots[root]
	e.watchedRootsMu.Unlock()
	if !ok {
		return
	}

	e.logger.Debug("docengine: package root changed, invalidating caches", "root", root, "package", pkg.name)
	e.semanticCache.Invalidate(pkg.name, root)
	e.resolver.InvalidatePackage(pkg.ecosystem, pkg.name)
}

// SearchCrates proxies to the crates.io search client.
func (e *Engine) SearchCrates(ctx context.Context, query string, limit int) ([]docmodel.CrateSearchResult, error) {
	return e.fetcher.SearchCrates(ctx, query, limit)
}

// CrateInfo proxies to the crates.io metadata client.
func (e *Engine) CrateInfo(ctx context.Context, name string) (docmodel.CrateInfo, error) {
	return e.fetcher.CrateInfo(ctx, name)
}

// GetCrateStats proxies to crates.io's per-day download time series, used as
// optional crate_info enrichment distinct from CrateInfo's lifetime totals.
func (e *Engine) GetCrateStats(ctx context.Context, name string) (docmodel.CrateStats, error) {
	return e.fetcher.GetCrateStats(ctx, name)
}

// VerifyCrateChecksum proxies to the crates.io tarball-checksum check, used
// as optional crate_info enrichment; callers should treat failure as
// "unverified" rather than fatal.
func (e *Engine) VerifyCrateChecksum(ctx context.Context, name, version string) (bool, error) {
	return e.fetcher.VerifyCrateChecksum(ctx, name, version)
}

// resolveVersion returns the version to operate against: the caller's
// explicit choice, a cached "latest" lookup, or a fresh crates.io fetch
// that populates the version cache for next time.
func (e *Engine) resolveVersion(ctx context.Context, crateName, version string) (string, error) {
	if version != "" {
		return version, nil
	}
	if cached, ok := e.versionCache.Get(crateName); ok {
		e.logger.Debug("docengine: using cached version", "crate", crateName, "version", cached)
		return cached, nil
	}

	latest, err := e.fetcher.GetLatestVersion(ctx, crateName)
	if err != nil {
		return "", docerrors.Wrap(docerrors.ErrCodeVersionNotFound, err)
	}
	e.versionCache.Add(crateName, latest)
	return latest, nil
}

// ensureCrateDocs returns the indexed CrateDocumentation for crateName at
// version (or its latest if version is empty), building it at most once
// concurrently per cache key via singleflight: memory cache -> disk-cached
// search index -> docs.rs search-index.js fetch.
func (e *Engine) ensureCrateDocs(ctx context.Context, crateName, version string) (*CrateDocumentation, error) {
	resolvedVersion, err := e.resolveVersion(ctx, crateName, version)
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("%s@%s", crateName, resolvedVersion)
	if docs, ok := e.memoryCache.Get(cacheKey); ok {
		return docs, nil
	}

	result, err, _ := e.buildGroup.Do(cacheKey, func() (any, error) {
		if docs, ok := e.memoryCache.Get(cacheKey); ok {
			return docs, nil
		}

		var searchData docmodel.SearchIndexData
		found, err := e.store.GetJSON(cachestore.CategorySearchIndex, cacheKey, &searchData)
		if err != nil {
			return nil, err
		}
		if !found {
			if available, err := e.scraper.CheckDocsAvailable(ctx, crateName, resolvedVersion); err == nil && !available {
				return nil, docerrors.New(docerrors.ErrCodePackageNotFound,
					fmt.Sprintf("docs.rs has no built documentation for %s@%s", crateName, resolvedVersion), nil)
			}

			e.logger.Info("docengine: fetching search index", "crate", crateName, "version", resolvedVersion)
			searchData, err = e.scraper.FetchSearchIndex(ctx, crateName, resolvedVersion)
			if err != nil {
				return nil, err
			}
			if err := e.store.PutJSON(cachestore.CategorySearchIndex, cacheKey, searchData); err != nil {
				e.logger.Warn("docengine: failed to persist search index", "crate", crateName, "error", err)
			}
		}

		docs := newCrateDocumentation(searchData)
		e.memoryCache.Add(cacheKey, docs)

		if e.sqlite != nil {
			pkg := docmodel.PackageRef{Ecosystem: docmodel.EcosystemRust, Name: crateName, Version: resolvedVersion}
			if err := e.sqlite.Put(ctx, pkg, docs.Symbols.Records()); err != nil {
				e.logger.Warn("docengine: failed to persist symbol index", "crate", crateName, "error", err)
			}
		}

		return docs, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*CrateDocumentation), nil
}

// GetItemDoc resolves version -> item cache -> local source extraction ->
// docs.rs scrape, writing a successful scrape back to the item cache.
func (e *Engine) GetItemDoc(ctx context.Context, crateName, itemPath, version string) (docmodel.ItemDoc, error) {
	resolvedVersion, err := e.resolveVersion(ctx, crateName, version)
	if err != nil {
		return docmodel.ItemDoc{}, err
	}

	pkg := docmodel.PackageRef{Ecosystem: docmodel.EcosystemRust, Name: crateName, Version: resolvedVersion}
	itemKey := cachestore.ItemKey(pkg, itemPath)

	var cached docmodel.ItemDoc
	if found, err := e.store.GetJSON(cachestore.CategoryItemDoc, itemKey, &cached); err != nil {
		return docmodel.ItemDoc{}, err
	} else if found {
		return cached, nil
	}

	if crateRoot, err := e.findRustCrateRoot(crateName, resolvedVersion); err == nil {
		if doc, err := fetchLocalItemDoc(crateRoot, pkg, itemPath); err == nil {
			if err := e.store.PutJSON(cachestore.CategoryItemDoc, itemKey, doc); err != nil {
				e.logger.Warn("docengine: failed to cache locally extracted item doc", "error", err)
			}
			e.indexItemDoc(ctx, doc)
			return doc, nil
		}
	}

	docs, err := e.ensureCrateDocs(ctx, crateName, resolvedVersion)
	if err != nil {
		return docmodel.ItemDoc{}, err
	}
	if !docs.pathExists(itemPath) {
		return docmodel.ItemDoc{}, errItemNotIndexed
	}

	scraped, err := e.scraper.FetchItemDoc(ctx, crateName, resolvedVersion, itemPath)
	if err != nil {
		return docmodel.ItemDoc{}, err
	}

	if err := e.store.PutJSON(cachestore.CategoryItemDoc, itemKey, scraped); err != nil {
		e.logger.Warn("docengine: failed to cache scraped item doc", "error", err)
	}
	e.indexItemDoc(ctx, scraped)
	return scraped, nil
}

// indexItemDoc adds doc to the full-text search index, tolerating a nil
// index (disabled) and logging rather than failing the caller on error.
func (e *Engine) indexItemDoc(ctx context.Context, doc docmodel.ItemDoc) {
	if e.docSearch == nil {
		return
	}
	if err := e.docSearch.IndexItemDoc(ctx, doc); err != nil {
		e.logger.Warn("docengine: failed to index item doc for full-text search", "error", err)
	}
}

// SearchItemDocs runs a full-text search over previously fetched item docs
// for pkg, backed by the docsearch index populated as GetItemDoc resolves
// items.
func (e *Engine) SearchItemDocs(ctx context.Context, pkg docmodel.PackageRef, query string, limit int) ([]docsearch.Hit, error) {
	if e.docSearch == nil {
		return nil, nil
	}
	return e.docSearch.Search(ctx, pkg, query, limit)
}

// ListTraitImpls lists every `impl traitPath for ...` block in crateName@version.
func (e *Engine) ListTraitImpls(ctx context.Context, crateName, traitPath, version string) ([]docmodel.TraitImpl, error) {
	docs, err := e.ensureCrateDocs(ctx, crateName, version)
	if err != nil {
		return nil, err
	}
	return docs.listTraitImpls(traitPath), nil
}

// ListImplsForType lists every trait implemented by typePath in crateName@version.
func (e *Engine) ListImplsForType(ctx context.Context, crateName, typePath, version string) ([]docmodel.TraitImpl, error) {
	docs, err := e.ensureCrateDocs(ctx, crateName, version)
	if err != nil {
		return nil, err
	}
	return docs.listImplsForType(typePath), nil
}

// ListItemPaths returns the module paths listed in the search index of
// crateName@version (SearchIndexData.Paths), in index order; individual item
// paths are not listed. Used to drive cache pre-warming, which fetches docs
// for each returned path.
func (e *Engine) ListItemPaths(ctx context.Context, crateName, version string) (string, []string, error) {
	resolvedVersion, err := e.resolveVersion(ctx, crateName, version)
	if err != nil {
		return "", nil, err
	}
	docs, err := e.ensureCrateDocs(ctx, crateName, resolvedVersion)
	if err != nil {
		return "", nil, err
	}
	return resolvedVersion, docs.SearchIndex.Paths, nil
}

// SearchSymbols ranks symbols in crateName@version matching query.
func (e *Engine) SearchSymbols(ctx context.Context, crateName, query string, kinds []docmodel.ItemKind, limit int, version string) ([]docmodel.SymbolMatch, error) {
	docs, err := e.ensureCrateDocs(ctx, crateName, version)
	if err != nil {
		return nil, err
	}
	return docs.searchSymbols(query, kinds, limit), nil
}

// SourceSnippet returns up to contextLines of source around itemPath's
// declaration, reading straight from the locally extracted crate checkout.
func (e *Engine) SourceSnippet(ctx context.Context, crateName, itemPath string, contextLines int, version string) (string, docmodel.SourceLocation, error) {
	resolvedVersion, err := e.resolveVersion(ctx, crateName, version)
	if err != nil {
		return "", docmodel.SourceLocation{}, err
	}

	crateRoot, err := e.findRustCrateRoot(crateName, resolvedVersion)
	if err != nil {
		return "", docmodel.SourceLocation{}, err
	}
	return fetchLocalSourceSnippet(crateRoot, itemPath, contextLines)
}

// findRustCrateRoot resolves crateName@version's extracted source
// directory in the local cargo registry checkout.
func (e *Engine) findRustCrateRoot(crateName, version string) (string, error) {
	return e.finder.FindRustCratePath(crateName, version)
}

// GetImplementation extracts the source-backed body of itemPath (format
// "relative/file#item_name") for package in the given ecosystem.
func (e *Engine) GetImplementation(ctx context.Context, pkg docmodel.PackageRef, contextPath, itemPath string) (docmodel.ImplementationContext, error) {
	relativePath, itemName, ok := splitItemPath(itemPath)
	if !ok {
		return docmodel.ImplementationContext{}, docerrors.New(docerrors.ErrCodeInvalidItemPath,
			"invalid item_path format, expected 'path/to/file#item_name'", nil)
	}

	processor, ok := extract.ForEcosystem(pkg.Ecosystem)
	if !ok {
		return docmodel.ImplementationContext{}, docerrors.New(docerrors.ErrCodeInvalidEcosystem,
			"unsupported ecosystem for implementation extraction: "+string(pkg.Ecosystem), nil)
	}

	resolvedContext := e.resolveContextDir(contextPath)
	return processor.GetImplementationContext(ctx, pkg, resolvedContext, relativePath, itemName)
}

// ResolveImports delegates to the import resolver, filling in a default
// context path when the caller didn't supply one.
func (e *Engine) ResolveImports(ctx context.Context, params importresolve.Params) (docmodel.ImportResolutionResponse, error) {
	if params.ContextPath == "" {
		params.ContextPath = e.workingDir
	} else {
		params.ContextPath = e.resolveContextDir(params.ContextPath)
	}

	resp, err := e.resolver.Resolve(params)
	if err == nil {
		e.watchResolvedPackageRoot(params)
	}
	return resp, err
}

// watchResolvedPackageRoot looks up the on-disk root Resolve just consulted
// and registers it for filesystem-change invalidation, best-effort.
func (e *Engine) watchResolvedPackageRoot(params importresolve.Params) {
	var (
		root string
		err  error
	)
	switch params.Language {
	case docmodel.EcosystemPython:
		root, err = e.finder.FindPythonPackagePath(params.Package)
	case docmodel.EcosystemNode:
		root, err = e.finder.FindNodePackagePath(params.Package, params.ContextPath)
	case docmodel.EcosystemRust:
		version := params.Version
		if version == "" {
			version, err = e.finder.FindLatestRustCrateVersion(params.Package)
		}
		if err == nil && version != "" {
			root, err = e.finder.FindRustCratePath(params.Package, version)
		}
	default:
		return
	}
	if err != nil {
		return
	}
	e.watchPackageRoot(params.Language, params.Package, root)
}

// SemanticSearchPython runs a TF-IDF semantic search over a local Python
// package, building (and caching) its index on first use.
func (e *Engine) SemanticSearchPython(ctx context.Context, packageName, contextPath, query string, limit int) ([]semantic.Result, error) {
	packageRoot, err := e.finder.FindPythonPackagePath(packageName)
	if err != nil {
		return nil, err
	}
	index, err := e.semanticCache.GetOrBuild(packageName, packageRoot)
	if err != nil {
		return nil, err
	}
	e.watchPackageRoot(docmodel.EcosystemPython, packageName, packageRoot)
	return index.Search(query, limit), nil
}

// GetCacheStats reports the underlying cache store's occupancy and hit/miss
// counters.
func (e *Engine) GetCacheStats() (cachestore.Stats, error) {
	return e.store.Stats()
}

// ListCacheEntries lists every on-disk cache entry's filename, size, and
// access times, for the `cache list` inspection command.
func (e *Engine) ListCacheEntries() ([]cachestore.EntryInfo, error) {
	return e.store.ListEntries()
}

// ClearCache purges the disk/memory store and the in-process
// version/crate-documentation caches. The semantic-index cache and the
// import-resolution cache are not cleared.
func (e *Engine) ClearCache() error {
	e.memoryCache.Purge()
	e.versionCache.Purge()
	return e.store.Clear()
}

// ClearCacheForPackage removes only the store entries (disk and memory
// tiers) belonging to crateName, leaving the rest of the store intact. The
// in-process version and crate-documentation caches are not touched; they
// keep serving what they hold until their LRU evicts it.
func (e *Engine) ClearCacheForPackage(crateName string) (int, error) {
	return e.store.ClearMatching(sanitizedPackageFragment(crateName))
}

// sanitizedPackageFragment builds the filename substring that identifies
// crate-scoped cache entries ("rust_<name>_..." / "package_stats_<name>.cache").
// A crate name is restricted to ASCII alphanumerics, '-' and '_' by input
// validation, so it needs no further escaping to match cachestore's
// sanitized filenames.
func sanitizedPackageFragment(name string) string {
	return "_" + name
}

// CleanupCache removes disk entries older than maxAge, returning the count
// removed.
func (e *Engine) CleanupCache(maxAge time.Duration) (int, error) {
	return e.store.CleanupExpired(maxAge)
}

func (e *Engine) resolveContextDir(raw string) string {
	if raw == "" {
		return e.workingDir
	}
	if filepath.IsAbs(raw) {
		return raw
	}
	return filepath.Join(e.workingDir, raw)
}

func splitItemPath(itemPath string) (relativePath, itemName string, ok bool) {
	for i := 0; i < len(itemPath); i++ {
		if itemPath[i] == '#' {
			return itemPath[:i], itemPath[i+1:], true
		}
	}
	return "", "", false
}
