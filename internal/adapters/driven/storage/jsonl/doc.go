// Package jsonl provides append-only JSON Lines logs for request metrics and
// answer feedback.
//
// Each record is one JSON object followed by a newline. Writes are serialised
// by a mutex and issued as a single write call, so concurrent writers never
// interleave partial lines. The metrics field names are read by dashboards
// and must not change.
//
// Default locations:
//
//	logs/requests.jsonl
//	logs/feedback.jsonl
package jsonl
