// Package domain defines the core business entities for docqa.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Chunk: A retrievable window of a document's words
//   - Candidate: A first-stage vector search hit
//   - ScoredContext: A candidate annotated with a rerank score
//   - Turn: One entry of a session's conversation history
//   - MetricsRecord: One line of the request metrics log
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
