// Package loader reads configuration, preset and search-space documents.
//
// Four formats are accepted, chosen by file extension:
//
//	.yaml .yml   gopkg.in/yaml.v3
//	.json        encoding/json
//	.cue         cuelang.org/go (must evaluate to concrete data)
//	.hcl         github.com/hashicorp/hcl/v2 (top-level attributes only)
//
// Every format decodes to the same Document: an ir.Object plus the order in
// which top-level keys were declared. Declaration order matters for search
// spaces, where it fixes the order of the grid product.
package loader
