package domain

// SourceKind identifies which upstream file a day's prices were read from.
// Kinds are tried in the order Z, B, T.
type SourceKind string

const (
	SourceZ SourceKind = "Z" // top-of-book signal file
	SourceB SourceKind = "B" // 1s bars
	SourceT SourceKind = "T" // trades
)
