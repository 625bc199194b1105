package docengine

import (
	"time"

	"github.com/Aman-CERP/polydocs-mcp/internal/docerrors"
	"github.com/Aman-CERP/polydocs-mcp/internal/docmodel"
	"github.com/Aman-CERP/polydocs-mcp/internal/symbolindex"
)

// CrateDocumentation is the in-memory materialization of one crate version's
// search index: the symbol and trait-impl indexes built from it, plus a
// reference to the scraper used for per-item docs.rs HTML lookups.
type CrateDocumentation struct {
	CrateName   string
	Version     string
	SearchIndex docmodel.SearchIndexData
	Symbols     *symbolindex.Index
	TraitImpls  *symbolindex.TraitImplIndex
	builtAt     time.Time
}

func newCrateDocumentation(data docmodel.SearchIndexData) *CrateDocumentation {
	return &CrateDocumentation{
		CrateName:   data.CrateName,
		Version:     data.Version,
		SearchIndex: data,
		Symbols:     symbolindex.FromSearchIndex(data),
		TraitImpls:  symbolindex.TraitImplIndexFromSearchIndex(data),
		builtAt:     time.Now(),
	}
}

func (d *CrateDocumentation) listTraitImpls(traitPath string) []docmodel.TraitImpl {
	return d.TraitImpls.GetTraitImpls(traitPath)
}

func (d *CrateDocumentation) listImplsForType(typePath string) []docmodel.TraitImpl {
	return d.TraitImpls.GetTypeImpls(typePath)
}

func (d *CrateDocumentation) searchSymbols(query string, kinds []docmodel.ItemKind, limit int) []docmodel.SymbolMatch {
	return d.Symbols.Search(query, kinds, limit)
}

func (d *CrateDocumentation) pathExists(itemPath string) bool {
	for _, p := range d.SearchIndex.Paths {
		if p == itemPath {
			return true
		}
	}
	for _, item := range d.SearchIndex.Items {
		if item.Path == itemPath {
			return true
		}
	}
	return false
}

var errItemNotIndexed = docerrors.New(docerrors.ErrCodeItemNotFound, "item path not present in crate search index", nil)
