package ir

// Version constants for persisted and shared formats.
const (
	// ShareVersion is the schema version embedded in share-link payloads.
	ShareVersion = 1

	// AppVersion is the poser release version.
	AppVersion = "0.1.0"
)
