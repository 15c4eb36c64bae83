package domain

// Chunk is a contiguous window of a document's words.
// Chunks are immutable once indexed; re-ingesting a document adds new chunks.
type Chunk struct {
	// ID is sequential within an index generation, starting at 0.
	ID int64

	// Text is the non-empty chunk content.
	Text string

	// Source identifies the originating document (usually a filename).
	Source string
}

// IndexedVector is a chunk together with its embedding, as held by a vector index.
type IndexedVector struct {
	Chunk

	// Vector is the embedding of Chunk.Text.
	Vector []float32
}

// IngestResult reports the outcome of indexing a single document.
type IngestResult struct {
	// Source is the document identifier the chunks were tagged with.
	Source string

	// ChunksIndexed is the number of chunks written to the index.
	ChunksIndexed int

	// FirstID is the id of the first chunk, or -1 when nothing was indexed.
	FirstID int64
}
