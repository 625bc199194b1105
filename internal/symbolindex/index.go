// Package symbolindex builds searchable in-memory indexes over a crate's
// docs.rs search index: a flattened symbol table for substring search and
// a trait-path/type-path bucket index for implementation lookups.
package symbolindex

import (
	"sort"
	"strings"

	"github.com/Aman-CERP/polydocs-mcp/internal/docmodel"
)

// Index is a flattened, scored substring-searchable symbol table built
// from a single crate version's docs.rs search index.
type Index struct {
	records []docmodel.SymbolRecord
}

// FromSearchIndex flattens search index items into symbol records. A
// record's module path is its item path with the trailing "::Name"
// stripped, falling back to the crate name when the path has no segments.
func FromSearchIndex(data docmodel.SearchIndexData) *Index {
	records := make([]docmodel.SymbolRecord, 0, len(data.Items))
	for _, item := range data.Items {
		modulePath := data.CrateName
		if idx := strings.LastIndex(item.Path, "::"); idx >= 0 {
			modulePath = item.Path[:idx]
		}
		records = append(records, docmodel.SymbolRecord{
			Name:       item.Name,
			Path:       item.Path,
			ModulePath: modulePath,
			Kind:       item.Kind,
			Doc:        item.Description,
		})
	}
	return &Index{records: records}
}

// Search scores every record by case-insensitive substring match and
// returns the top `limit` by score descending, name ascending.
//
// Scoring: exact name match 1.0, name contains query 0.75, path contains
// query 0.5, otherwise the record is excluded. An optional kind filter is
// applied before scoring.
func (idx *Index) Search(query string, kinds []docmodel.ItemKind, limit int) []docmodel.SymbolMatch {
	if query == "" || limit <= 0 {
		return nil
	}

	q := strings.ToLower(query)
	var kindFilter map[docmodel.ItemKind]struct{}
	if len(kinds) > 0 {
		kindFilter = make(map[docmodel.ItemKind]struct{}, len(kinds))
		for _, k := range kinds {
			kindFilter[k] = struct{}{}
		}
	}

	matches := make([]docmodel.SymbolMatch, 0)
	for _, rec := range idx.records {
		if kindFilter != nil {
			if _, ok := kindFilter[rec.Kind]; !ok {
				continue
			}
		}

		nameLower := strings.ToLower(rec.Name)
		pathLower := strings.ToLower(rec.Path)

		var score float64
		switch {
		case nameLower == q:
			score = 1.0
		case strings.Contains(nameLower, q):
			score = 0.75
		case strings.Contains(pathLower, q):
			score = 0.5
		default:
			continue
		}

		matches = append(matches, docmodel.SymbolMatch{SymbolRecord: rec, Score: score})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Name < matches[j].Name
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// Len reports the number of symbols in the index.
func (idx *Index) Len() int {
	return len(idx.records)
}

// Records returns the flattened symbol table backing the index, for
// callers that persist it (e.g. to a SQLiteStore) rather than search it.
func (idx *Index) Records() []docmodel.SymbolRecord {
	return idx.records
}
