package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure ChatService implements the interface.
var _ driving.ChatService = (*ChatService)(nil)

// NoAnswerText is returned when retrieval finds nothing to ground an answer on.
const NoAnswerText = "I couldn't find relevant information in the documents."

// DefaultAnswerTemperature is the sampling temperature for answers.
const DefaultAnswerTemperature = 0.2

// documentChecker gates chat until something has been indexed.
type documentChecker interface {
	HasDocuments(ctx context.Context) (bool, error)
}

// ChatService answers questions from retrieved context, batch or streamed.
type ChatService struct {
	docs      documentChecker
	retrieval driving.RetrievalService
	sessions  driven.SessionStore
	llm       driven.LLMService
	assembler *PromptAssembler
	recorder  *MetricsRecorder

	retrievalOpts domain.RetrievalOptions
	temperature   float64

	now          func() time.Time
	newSessionID func() string
}

// NewChatService creates a chat service. recorder may be nil to skip metrics.
func NewChatService(
	docs documentChecker,
	retrieval driving.RetrievalService,
	sessions driven.SessionStore,
	llm driven.LLMService,
	assembler *PromptAssembler,
	recorder *MetricsRecorder,
) *ChatService {
	if assembler == nil {
		assembler = NewPromptAssembler(nil)
	}
	return &ChatService{
		docs:          docs,
		retrieval:     retrieval,
		sessions:      sessions,
		llm:           llm,
		assembler:     assembler,
		recorder:      recorder,
		retrievalOpts: domain.DefaultAppSettings().Retrieval.Options(),
		temperature:   DefaultAnswerTemperature,
		now:           time.Now,
		newSessionID:  uuid.NewString,
	}
}

// SetRetrievalOptions sets the options used when a request carries none.
func (s *ChatService) SetRetrievalOptions(opts domain.RetrievalOptions) {
	s.retrievalOpts = withRetrievalDefaults(opts)
}

// SetTemperature sets the answer sampling temperature.
func (s *ChatService) SetTemperature(t float64) {
	s.temperature = t
}

// pendingTurn is a validated request waiting for its answer.
type pendingTurn struct {
	sessionID string
	question  string
	endpoint  string
	history   []domain.Turn
	opts      domain.RetrievalOptions
}

// Ask answers the question in one piece and commits the exchange.
func (s *ChatService) Ask(ctx context.Context, req driving.ChatRequest) (*driving.ChatResponse, error) {
	turn, err := s.begin(ctx, req, domain.EndpointChat)
	if err != nil {
		return nil, err
	}
	logger.Section("Chat")

	start := s.now()
	result, err := s.retrieval.Retrieve(ctx, turn.question, turn.opts)
	if err != nil {
		return nil, err
	}

	answer := NoAnswerText
	if !result.IsEmpty() {
		prompt := s.assembler.Build(turn.question, result.Contexts, domain.RecentTurns(turn.history, domain.PromptHistoryTurns))
		raw, err := s.llm.Generate(ctx, prompt, driven.GenerateOptions{Temperature: s.temperature})
		if err != nil {
			return nil, asUnavailable(domain.ErrGenerationUnavailable, fmt.Errorf("generate answer: %w", err))
		}
		answer = strings.TrimSpace(raw)
	}
	total := s.now().Sub(start)

	// A batch answer arrives all at once, so its first token is its last.
	return s.commit(ctx, turn, result, answer, total, &total), nil
}

// AskStream starts answering and returns as soon as generation is under way.
// Retrieval and setup errors are returned directly; generation errors
// surface through the stream's Result.
func (s *ChatService) AskStream(ctx context.Context, req driving.ChatRequest) (driving.AnswerStream, error) {
	turn, err := s.begin(ctx, req, domain.EndpointChatStream)
	if err != nil {
		return nil, err
	}
	logger.Section("Chat stream")

	result, err := s.retrieval.Retrieve(ctx, turn.question, turn.opts)
	if err != nil {
		return nil, err
	}

	var src <-chan driven.Fragment
	if result.IsEmpty() {
		fixed := make(chan driven.Fragment, 1)
		fixed <- driven.Fragment{Text: NoAnswerText}
		close(fixed)
		src = fixed
	} else {
		prompt := s.assembler.Build(turn.question, result.Contexts, domain.RecentTurns(turn.history, domain.PromptHistoryTurns))
		src, err = s.llm.Stream(ctx, prompt, driven.GenerateOptions{Temperature: s.temperature})
		if err != nil {
			return nil, asUnavailable(domain.ErrGenerationUnavailable, fmt.Errorf("start answer stream: %w", err))
		}
	}

	st := &answerStream{
		sessionID: turn.sessionID,
		contexts:  result.Contexts,
		out:       make(chan string),
		done:      make(chan struct{}),
	}
	go s.pump(ctx, st, src, turn, result, s.now())
	return st, nil
}

// History returns the session's turns, oldest first.
func (s *ChatService) History(ctx context.Context, sessionID string) ([]domain.Turn, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("%w: session id must not be empty", domain.ErrInvalidInput)
	}
	return s.sessions.History(ctx, sessionID)
}

func (s *ChatService) begin(ctx context.Context, req driving.ChatRequest, endpoint string) (*pendingTurn, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, fmt.Errorf("%w: question must not be empty", domain.ErrInvalidInput)
	}

	ok, err := s.docs.HasDocuments(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrNoDocuments
	}

	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = s.newSessionID()
	}
	history, err := s.sessions.History(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}

	opts := s.retrievalOpts
	if req.Retrieval != nil {
		opts = withRetrievalDefaults(*req.Retrieval)
	}
	if req.Endpoint != "" {
		endpoint = req.Endpoint
	}

	logger.Debug("Session %s with %d prior turns", sessionID, len(history))
	return &pendingTurn{
		sessionID: sessionID,
		question:  question,
		endpoint:  endpoint,
		history:   history,
		opts:      opts,
	}, nil
}

// pump forwards fragments to the consumer and commits only after a full drain.
func (s *ChatService) pump(
	ctx context.Context,
	st *answerStream,
	src <-chan driven.Fragment,
	turn *pendingTurn,
	result *domain.RetrievalResult,
	start time.Time,
) {
	var (
		answer  strings.Builder
		firstAt time.Time
	)

	for {
		select {
		case <-ctx.Done():
			logger.Debug("Stream for session %s cancelled: nothing committed", turn.sessionID)
			st.finish(nil, ctx.Err())
			return

		case frag, ok := <-src:
			if !ok {
				// Producers close their channel on cancellation too.
				if err := ctx.Err(); err != nil {
					st.finish(nil, err)
					return
				}
				total := s.now().Sub(start)
				var first *time.Duration
				if !firstAt.IsZero() {
					d := firstAt.Sub(start)
					first = &d
				}
				resp := s.commit(context.WithoutCancel(ctx), turn, result, answer.String(), total, first)
				st.finish(resp, nil)
				return
			}
			if frag.Err != nil {
				logger.Warn("Stream for session %s failed: %v", turn.sessionID, frag.Err)
				st.finish(nil, asUnavailable(domain.ErrGenerationUnavailable, fmt.Errorf("answer stream: %w", frag.Err)))
				return
			}
			if frag.Text == "" {
				continue
			}
			if firstAt.IsZero() {
				firstAt = s.now()
			}
			answer.WriteString(frag.Text)

			select {
			case st.out <- frag.Text:
			case <-ctx.Done():
				st.finish(nil, ctx.Err())
				return
			}
		}
	}
}

// commit appends the exchange to the session and records metrics.
// Neither failure is surfaced: the answer has already been produced.
func (s *ChatService) commit(
	ctx context.Context,
	turn *pendingTurn,
	result *domain.RetrievalResult,
	answer string,
	total time.Duration,
	first *time.Duration,
) *driving.ChatResponse {
	if err := s.sessions.Append(ctx, turn.sessionID, domain.Exchange(turn.question, answer)...); err != nil {
		logger.Warn("Session %s not updated: %v", turn.sessionID, err)
	}

	resp := &driving.ChatResponse{
		SessionID: turn.sessionID,
		Answer:    answer,
		State:     result.State,
		Contexts:  result.Contexts,
	}
	if s.recorder != nil {
		resp.Metrics = s.recorder.Record(ctx, RecordInput{
			Endpoint:          turn.endpoint,
			SessionID:         turn.sessionID,
			Question:          turn.question,
			Answer:            answer,
			ContextLen:        len(result.Contexts),
			State:             result.State,
			TotalLatency:      total,
			FirstTokenLatency: first,
		})
	}
	logger.Info("Answered session %s (%s, %d contexts) in %s", turn.sessionID, result.State, len(result.Contexts), total)
	return resp
}

// answerStream implements driving.AnswerStream.
type answerStream struct {
	sessionID string
	contexts  []domain.ScoredContext
	out       chan string
	done      chan struct{}

	resp *driving.ChatResponse
	err  error
}

func (a *answerStream) SessionID() string                { return a.sessionID }
func (a *answerStream) Contexts() []domain.ScoredContext { return a.contexts }
func (a *answerStream) Fragments() <-chan string         { return a.out }

func (a *answerStream) Result() (*driving.ChatResponse, error) {
	<-a.done
	return a.resp, a.err
}

// finish publishes the outcome before closing Fragments so a consumer that
// ranges over Fragments can call Result without blocking.
func (a *answerStream) finish(resp *driving.ChatResponse, err error) {
	a.resp, a.err = resp, err
	close(a.done)
	close(a.out)
}
