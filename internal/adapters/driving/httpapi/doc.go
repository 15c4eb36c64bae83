// Package httpapi exposes the answer pipeline over HTTP.
//
// Routes:
//
//	POST /upload           multipart "file" (.txt or .pdf), indexes it
//	POST /chat             {question, session_id?} -> answer with context and monitoring
//	POST /chat_stream      same request, plain-text fragments as they are generated
//	POST /feedback         {session_id, question, answer, rating, comment?}
//	GET  /metrics/summary  dashboard aggregates, ?limit=N recent records
//	GET  /healthz
package httpapi
