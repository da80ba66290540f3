package models

// FileRecord holds the outcome of normalizing a single source file.
// It is produced by the normalizer and consumed once by the packer.
type FileRecord struct {
	RelativePath string
	AbsolutePath string
	ScratchPath  string
	ByteSize     int64
	LineCount    int
}

// MapEntry records where one source file's normalized content lives
// inside its bundle. Offsets are byte positions before/after the append;
// LineStart is 1-based within the bundle.
type MapEntry struct {
	Source      string `json:"source"`
	OffsetStart int64  `json:"offset_start"`
	OffsetEnd   int64  `json:"offset_end"`
	LineStart   int    `json:"line_start"`
	LineCount   int    `json:"line_count"`
}

// BundleMap lists the entries packed into one bundle file, in packing order.
type BundleMap struct {
	Bundle string     `json:"bundle"`
	Files  []MapEntry `json:"files"`
}

// SourceMap is the single structured document written after packing.
// Bundles is never nil so an empty run still serializes as {"bundles":[]}.
type SourceMap struct {
	Bundles []BundleMap `json:"bundles"`
}

// LanguageStat aggregates eligible files by detected language.
type LanguageStat struct {
	Language  string
	FileCount int
	ByteSize  int64
	LineCount int
}
