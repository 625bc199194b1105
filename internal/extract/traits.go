// Package extract recovers the real source-backed implementation of a
// named item directly from a locally resolved package checkout, one
// processor per ecosystem, behind a shared LanguageProcessor interface.
package extract

import (
	"context"

	"github.com/Aman-CERP/polydocs-mcp/internal/docmodel"
)

// LanguageProcessor extracts the implementation of a single named item
// (function, struct, class, ...) from a package already present on disk.
// relativePath is the file containing the item, relative to the package
// root; contextPath optionally scopes package resolution (e.g. a Node
// project directory whose node_modules should be searched).
type LanguageProcessor interface {
	GetImplementationContext(ctx context.Context, pkg docmodel.PackageRef, contextPath, relativePath, itemName string) (docmodel.ImplementationContext, error)
}

// ForEcosystem returns the LanguageProcessor registered for eco.
func ForEcosystem(eco docmodel.Ecosystem) (LanguageProcessor, bool) {
	switch eco {
	case docmodel.EcosystemRust:
		return NewRustProcessor(), true
	case docmodel.EcosystemPython:
		return NewPythonProcessor(), true
	case docmodel.EcosystemNode:
		return NewNodeProcessor(), true
	default:
		return nil, false
	}
}
