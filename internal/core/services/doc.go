// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// A question flows through the services as:
//
//	question -> RetrievalService (embed, search, rerank) -> PromptAssembler
//	         -> LLMService (batch or stream) -> SessionStore + MetricsRecorder
//
// Services are pure Go with no CGO or external dependencies.
package services
