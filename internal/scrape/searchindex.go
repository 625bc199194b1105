package scrape

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Aman-CERP/polydocs-mcp/internal/docerrors"
	"github.com/Aman-CERP/polydocs-mcp/internal/docmodel"
)

// kindTable maps a docs.rs search-index kind ID (0-25) onto an ItemKind.
// IDs without a direct ItemKind equivalent collapse onto KindUnknown; the
// raw rustdoc label is preserved nowhere since downstream consumers only
// care about the handful of kinds the spec's item kinds model.
var kindTable = map[int]docmodel.ItemKind{
	0:  docmodel.KindModule,
	3:  docmodel.KindStruct,
	4:  docmodel.KindEnum,
	5:  docmodel.KindFunction,
	6:  docmodel.KindTypeAlias,
	7:  docmodel.KindStatic,
	8:  docmodel.KindTrait,
	9:  docmodel.KindImpl,
	10: docmodel.KindMethod,
	11: docmodel.KindMethod,
	14: docmodel.KindMacro,
	17: docmodel.KindConstant,
	19: docmodel.KindUnion,
}

func kindIDToKind(id int) docmodel.ItemKind {
	if kind, ok := kindTable[id]; ok {
		return kind
	}
	return docmodel.KindUnknown
}

// parseSearchIndex extracts the crate-scoped item/path arrays from a
// docs.rs search-index.js payload. It tries the known assignment-statement
// shapes first, then falls back to locating the crate's JSON key directly
// and balancing braces outward from there — the same two-stage strategy
// the original scraper uses to survive rustdoc's minification churn.
func parseSearchIndex(jsContent, crateName, version string) (docmodel.SearchIndexData, error) {
	crateKeyAlt := strings.ReplaceAll(crateName, "-", "_")
	candidateKeys := []string{crateName, crateKeyAlt}

	for _, pattern := range searchIndexAssignmentPatterns {
		match := pattern.FindStringSubmatch(jsContent)
		if match == nil {
			continue
		}
		blob, ok := balancedBraceSlice(match[1])
		if !ok {
			continue
		}
		if data, err := tryParseSearchIndex(blob, candidateKeys, crateName, version); err == nil {
			return data, nil
		}
	}

	for _, key := range candidateKeys {
		needle := fmt.Sprintf("%q", key)
		pos := strings.Index(jsContent, needle)
		if pos < 0 {
			continue
		}
		start := strings.LastIndex(jsContent[:pos], "{")
		if start < 0 {
			continue
		}
		blob, ok := balancedBraceSlice(jsContent[start:])
		if !ok {
			continue
		}
		if data, err := tryParseSearchIndex(blob, candidateKeys, crateName, version); err == nil {
			return data, nil
		}
	}

	return docmodel.SearchIndexData{}, docerrors.New(docerrors.ErrCodeParseFailed,
		fmt.Sprintf("unable to extract or parse search index for crate %q", crateName), nil)
}

func tryParseSearchIndex(jsonBlob string, candidateKeys []string, crateName, version string) (docmodel.SearchIndexData, error) {
	var root map[string]json.RawMessage
	if err := json.Unmarshal([]byte(jsonBlob), &root); err != nil {
		return docmodel.SearchIndexData{}, err
	}

	var crateRaw json.RawMessage
	for _, key := range candidateKeys {
		if v, ok := root[key]; ok {
			crateRaw = v
			break
		}
	}
	if crateRaw == nil {
		return docmodel.SearchIndexData{}, fmt.Errorf("crate data not found under keys %v", candidateKeys)
	}

	var crateData map[string]json.RawMessage
	if err := json.Unmarshal(crateRaw, &crateData); err != nil {
		return docmodel.SearchIndexData{}, err
	}

	itemsRaw, ok := crateData["items"]
	if !ok {
		itemsRaw, ok = crateData["i"]
	}
	if !ok {
		return docmodel.SearchIndexData{}, fmt.Errorf("items array not found in crate data")
	}

	var rawItems [][]json.RawMessage
	if err := json.Unmarshal(itemsRaw, &rawItems); err != nil {
		return docmodel.SearchIndexData{}, err
	}

	items := make([]docmodel.SearchIndexItem, 0, len(rawItems))
	for _, entry := range rawItems {
		if len(entry) < 4 {
			continue
		}
		var kindID int
		_ = json.Unmarshal(entry[0], &kindID)
		var name, path, description string
		_ = json.Unmarshal(entry[1], &name)
		_ = json.Unmarshal(entry[2], &path)
		_ = json.Unmarshal(entry[3], &description)

		var parentIndex *int
		if len(entry) > 4 {
			var parentArr []int
			if err := json.Unmarshal(entry[4], &parentArr); err == nil && len(parentArr) > 0 {
				parentIndex = &parentArr[0]
			}
		}

		items = append(items, docmodel.SearchIndexItem{
			Kind:        kindIDToKind(kindID),
			Name:        name,
			Path:        path,
			Description: description,
			ParentIndex: parentIndex,
		})
	}

	var paths []string
	pathsRaw, ok := crateData["paths"]
	if !ok {
		pathsRaw, ok = crateData["p"]
	}
	if ok {
		_ = json.Unmarshal(pathsRaw, &paths)
	}

	return docmodel.SearchIndexData{
		CrateName: crateName,
		Version:   version,
		Items:     items,
		Paths:     paths,
	}, nil
}
