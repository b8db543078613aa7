package ir

// Version constants for persisted artifacts and the engine.
const (
	// SchemaVersion is the version of the trial artifact layout.
	SchemaVersion = "1"

	// EngineVersion is the sweep engine version.
	EngineVersion = "0.1.0"
)
