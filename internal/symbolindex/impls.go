package symbolindex

import (
	"strings"

	"github.com/Aman-CERP/polydocs-mcp/internal/docmodel"
)

// TraitImplIndex buckets trait implementations by trait path and by type
// path. docs.rs search-index data never records which trait an `impl`
// block implements, so most buckets stay empty for crates indexed this
// way — callers must tolerate empty `Items` on every TraitImpl returned.
type TraitImplIndex struct {
	traitToImpls map[string][]docmodel.TraitImpl
	typeToImpls  map[string][]docmodel.TraitImpl
	traits       map[string]struct{}
	types        map[string]struct{}
	impls        map[string]struct{}
}

// TraitImplStats summarizes a TraitImplIndex's contents.
type TraitImplStats struct {
	TotalTraits         int
	TotalTypes          int
	TotalImplementations int
	TraitsWithImpls     int
	TypesWithImpls      int
}

// NewTraitImplIndex builds an empty index.
func NewTraitImplIndex() *TraitImplIndex {
	return &TraitImplIndex{
		traitToImpls: make(map[string][]docmodel.TraitImpl),
		typeToImpls:  make(map[string][]docmodel.TraitImpl),
		traits:       make(map[string]struct{}),
		types:        make(map[string]struct{}),
		impls:        make(map[string]struct{}),
	}
}

// TraitImplIndexFromSearchIndex classifies search-index items into traits,
// types and impl blocks, then builds whatever trait/type associations the
// (lossy) search-index data makes discoverable.
func TraitImplIndexFromSearchIndex(data docmodel.SearchIndexData) *TraitImplIndex {
	idx := NewTraitImplIndex()

	for _, item := range data.Items {
		switch item.Kind {
		case docmodel.KindTrait:
			idx.traits[item.Path] = struct{}{}
		case docmodel.KindStruct, docmodel.KindEnum, docmodel.KindUnion:
			idx.types[item.Path] = struct{}{}
		case docmodel.KindImpl:
			idx.impls[item.Path] = struct{}{}
			// The search index alone never tells us which trait this impl
			// implements or which type it's for beyond the item name; we
			// record what little is inferable and leave associations for
			// callers who have source-backed data (internal/extract).
			typePath := item.Name
			idx.typeToImpls[typePath] = append(idx.typeToImpls[typePath], docmodel.TraitImpl{
				TypePath: typePath,
			})
		}
	}

	return idx
}

// GetTraitImpls returns all known implementations of a trait.
func (idx *TraitImplIndex) GetTraitImpls(traitPath string) []docmodel.TraitImpl {
	return idx.traitToImpls[traitPath]
}

// GetTypeImpls returns all known trait implementations for a type.
func (idx *TraitImplIndex) GetTypeImpls(typePath string) []docmodel.TraitImpl {
	return idx.typeToImpls[typePath]
}

// SearchTraits returns trait paths containing the given pattern.
func (idx *TraitImplIndex) SearchTraits(pattern string) []string {
	pattern = strings.ToLower(pattern)
	var out []string
	for path := range idx.traits {
		if strings.Contains(strings.ToLower(path), pattern) {
			out = append(out, path)
		}
	}
	return out
}

// SearchTypes returns type paths containing the given pattern.
func (idx *TraitImplIndex) SearchTypes(pattern string) []string {
	pattern = strings.ToLower(pattern)
	var out []string
	for path := range idx.types {
		if strings.Contains(strings.ToLower(path), pattern) {
			out = append(out, path)
		}
	}
	return out
}

// Stats summarizes the index's contents.
func (idx *TraitImplIndex) Stats() TraitImplStats {
	return TraitImplStats{
		TotalTraits:          len(idx.traits),
		TotalTypes:           len(idx.types),
		TotalImplementations: len(idx.impls),
		TraitsWithImpls:      len(idx.traitToImpls),
		TypesWithImpls:       len(idx.typeToImpls),
	}
}
