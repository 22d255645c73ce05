package metamodel

import "github.com/dbinfrago/py-capellambse/model"

// CoreVersion is the earliest schema version this catalog applies to.
const CoreVersion = "7.0.0"

// The catalog's namespaces. URIs are version-templated; the concrete
// version comes from the loaded document.
var (
	Core = model.NewNamespace(
		"http://www.polarsys.org/capella/core/core/{VERSION}",
		"org.polarsys.capella.core.data.capellacore",
		"org.polarsys.capella.core.viewpoint",
		CoreVersion,
	)
	FA = model.NewNamespace(
		"http://www.polarsys.org/capella/core/fa/{VERSION}",
		"org.polarsys.capella.core.data.fa",
		"org.polarsys.capella.core.viewpoint",
		CoreVersion,
	)
)
