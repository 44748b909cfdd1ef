package pgseed

// FixtureLocator defines the interface for resolving fixture name tokens to
// concrete files. Implementations index the search roots once at
// construction and answer lookups from the index.
type FixtureLocator interface {
	// Locate resolves a single token. A bare name resolves to exactly one
	// file or fails with ErrFixtureNotFound. A series pattern ("users_*")
	// resolves to the contiguous chunks users_0, users_1, ... stopping at
	// the first missing index; an empty series is not an error.
	Locate(token string) ([]FixtureFile, error)

	// LocateAll resolves tokens in order, concatenating their results.
	// The first failing token aborts the resolution.
	LocateAll(tokens []string) ([]FixtureFile, error)
}

// RecordDecoder defines the interface for deserializing one fixture file
// into entity records, preserving file order.
type RecordDecoder interface {
	// DecodeFile parses the fixture file at path. Malformed content fails
	// with ErrFixtureParse and aborts the whole file (no partial results).
	DecodeFile(path string) ([]*EntityRecord, error)
}
