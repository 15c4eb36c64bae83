// Package file provides file-based implementations of driven port interfaces.
// These adapters persist data to the local filesystem.
//
// Adapters:
//   - ConfigStore: TOML-based configuration storage (~/.docqa/config.toml)
//   - PromptStore: user-editable prompt templates (~/.docqa/prompts/*.txt)
//   - LoadEvalCases: labelled evaluation cases from YAML or JSON files
//   - LoadScenarios, LoadTextPairs: conversation scenarios and embedding check pairs
package file
