package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// sessionHeader carries the session id of a streamed answer.
const sessionHeader = "X-Session-ID"

// maxJSONBytes bounds JSON request bodies.
const maxJSONBytes = 1 << 20

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	has, err := s.ports.Ingest.HasDocuments(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", HasDocuments: has})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	maxBytes := int64(s.cfg.MaxUploadMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge,
				errorResponse{Error: fmt.Sprintf("file exceeds %d MB", s.cfg.MaxUploadMB)})
			return
		}
		writeError(w, fmt.Errorf("%w: multipart form: %v", domain.ErrInvalidInput, err))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, fmt.Errorf("%w: missing form field \"file\"", domain.ErrInvalidInput))
		return
	}
	defer file.Close()

	filename := filepath.Base(header.Filename)
	ext := strings.ToLower(filepath.Ext(filename))
	if filename == "." || filename == string(filepath.Separator) || !slices.Contains(s.cfg.AllowedExtensions, ext) {
		writeError(w, fmt.Errorf("%w: only %s files are accepted",
			domain.ErrUnsupportedFormat, strings.Join(s.cfg.AllowedExtensions, ", ")))
		return
	}

	path, err := s.save(file, filename)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := s.ports.Ingest.IngestFile(r.Context(), path, filename)
	if err != nil {
		_ = os.Remove(path)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, uploadResponse{
		Status:        "ok",
		Filename:      filename,
		ChunksIndexed: result.ChunksIndexed,
	})
}

// save copies an upload into the upload directory under a unique name.
func (s *Server) save(src io.Reader, filename string) (string, error) {
	if err := os.MkdirAll(s.cfg.UploadDir, 0755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	path := filepath.Join(s.cfg.UploadDir, uuid.NewString()+"-"+filename)
	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("write upload file: %w", err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("write upload file: %w", err)
	}
	return path, nil
}

// decodeChat reads and validates a chat request body.
func (s *Server) decodeChat(r *http.Request, endpoint string) (driving.ChatRequest, error) {
	var body chatRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxJSONBytes)).Decode(&body); err != nil {
		return driving.ChatRequest{}, fmt.Errorf("%w: invalid JSON body: %v", domain.ErrInvalidInput, err)
	}
	if strings.TrimSpace(body.Question) == "" {
		return driving.ChatRequest{}, fmt.Errorf("%w: question is required", domain.ErrInvalidInput)
	}
	return driving.ChatRequest{
		Question:  body.Question,
		SessionID: body.SessionID,
		Retrieval: body.retrieval(s.cfg.Retrieval),
		Endpoint:  endpoint,
	}, nil
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeChat(r, domain.EndpointChat)
	if err != nil {
		writeError(w, err)
		return
	}
	resp, err := s.ports.Chat.Ask(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{
		SessionID:  resp.SessionID,
		Answer:     resp.Answer,
		State:      resp.State.String(),
		Context:    toContextItems(resp.Contexts),
		Monitoring: resp.Metrics,
	})
}

// handleChatStream writes answer fragments as plain text, flushing each one.
// Errors before the first byte are reported as JSON; later failures can only
// end the body early.
func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeChat(r, domain.EndpointChatStream)
	if err != nil {
		writeError(w, err)
		return
	}
	// A failed write cancels generation so the unseen turn is never committed.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	stream, err := s.ports.Chat.AskStream(ctx, req)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set(sessionHeader, stream.SessionID())
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	for fragment := range stream.Fragments() {
		if _, err := io.WriteString(w, fragment); err != nil {
			logger.Debug("Stream client gone: %v", err)
			cancel()
			break
		}
		_ = rc.Flush()
	}

	if _, err := stream.Result(); err != nil && ctx.Err() == nil {
		logger.Warn("Stream for session %s ended early: %v", stream.SessionID(), err)
	}
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	if s.ports.Feedback == nil {
		writeError(w, fmt.Errorf("feedback: %w", domain.ErrNotFound))
		return
	}
	var fb domain.Feedback
	if err := json.NewDecoder(io.LimitReader(r.Body, maxJSONBytes)).Decode(&fb); err != nil {
		writeError(w, fmt.Errorf("%w: invalid JSON body: %v", domain.ErrInvalidInput, err))
		return
	}
	if err := s.ports.Feedback.Submit(r.Context(), fb); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

func (s *Server) handleMetricsSummary(w http.ResponseWriter, r *http.Request) {
	if s.ports.Metrics == nil {
		writeError(w, fmt.Errorf("metrics: %w", domain.ErrNotFound))
		return
	}
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, fmt.Errorf("%w: limit must be a positive integer", domain.ErrInvalidInput))
			return
		}
		limit = n
	}
	summary, err := s.ports.Metrics.Summary(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
