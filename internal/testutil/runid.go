package testutil

// FixedRunID generates the same run id every time.
//
// Unlike engine.FixedGenerator which returns ids in sequence, this
// generator never runs out, which suits tests that prepare several runs
// and compare their output against one golden file.
//
// Thread-safety: stateless and safe for concurrent use.
type FixedRunID struct {
	id string
}

// NewFixedRunID creates a generator for id. An empty id becomes
// "test-run-default".
func NewFixedRunID(id string) *FixedRunID {
	if id == "" {
		id = "test-run-default"
	}
	return &FixedRunID{id: id}
}

// Generate returns the fixed run id.
func (g *FixedRunID) Generate() string {
	return g.id
}
