package cachestore

import (
	"fmt"
	"strings"

	"github.com/Aman-CERP/polydocs-mcp/internal/docmodel"
)

// Category names used to namespace cache files on disk.
const (
	CategoryItemDoc      = "item_doc"
	CategorySearchIndex  = "search_index"
	CategorySymbolIndex  = "symbol_index"
	CategoryTraitImpls   = "trait_impls"
	CategoryPackageStats = "package_stats"
	CategoryImplContext  = "impl_context"
	CategorySemantic     = "semantic_index"
)

// PackageKey builds the cache key for a resolved package version, e.g.
// "rust/tokio/1.38.0".
func PackageKey(ref docmodel.PackageRef) string {
	version := ref.Version
	if version == "" {
		version = "latest"
	}
	return fmt.Sprintf("%s/%s/%s", ref.Ecosystem, ref.Name, version)
}

// ItemKey builds the cache key for a single documented item within a
// package version, e.g. "rust/tokio/1.38.0/struct.Runtime.html".
func ItemKey(ref docmodel.PackageRef, itemPath string) string {
	return PackageKey(ref) + "/" + strings.TrimPrefix(itemPath, "/")
}
