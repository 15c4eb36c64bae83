// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - EmbeddingService: Maps text to fixed-dimension vectors
//   - LLMService: Batch and streaming generation
//   - VectorIndex: Upsert and cosine k-NN search over chunk vectors
//   - TextExtractor: Reads .txt/.pdf files into raw text
//   - SessionStore: Per-session conversation history
//   - MetricsSink: Append-only request metrics
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - MetricsReader: Summary queries. Without it, dashboards read the JSONL log.
//   - FeedbackStore: Answer ratings. Without it, feedback is rejected.
//   - PromptStore: User-editable prompts. Without it, built-in prompts are used.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or normaliser package
package driven
