// Package pipeline runs one chat turn: classify the latest message, record a
// transaction when one is described, and compose the reply.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dvloznov/finance-assistant/internal/domain"
	"github.com/dvloznov/finance-assistant/internal/jobs"
	"github.com/dvloznov/finance-assistant/internal/llm"
	"github.com/dvloznov/finance-assistant/internal/logger"
	"github.com/dvloznov/finance-assistant/internal/store"
)

// ErrNoUserMessage is returned when a turn has no user message to classify.
var ErrNoUserMessage = errors.New("no user message in conversation")

// TurnResult is the chat endpoint's response body.
type TurnResult struct {
	Text        string         `json:"text"`
	Transaction *RecordOutcome `json:"transaction"`
	Intent      *IntentResult  `json:"intent"`
}

// Pipeline wires the turn steps. It holds no per-request state.
type Pipeline struct {
	client     llm.Completer
	extractor  *Extractor
	normalizer *Normalizer
	recorder   *Recorder
	composer   *Composer
	archive    jobs.Publisher
	now        func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithNotionExport queues a notion_export job after each successful insert.
func WithNotionExport(pub jobs.Publisher) Option {
	return func(p *Pipeline) { p.recorder.WithNotionExport(pub) }
}

// WithArchive queues a turn_archive job after each reply.
func WithArchive(pub jobs.Publisher) Option {
	return func(p *Pipeline) { p.archive = pub }
}

// WithClock overrides the clock used for default dates and turn timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
		p.extractor.now = now
		p.normalizer.now = now
	}
}

// New creates a Pipeline. client may be nil when no completion key is
// configured; Run then fails with llm.ErrNotConfigured before any call.
func New(client llm.Completer, repo store.TransactionRepository, invalidator Invalidator, opts ...Option) *Pipeline {
	p := &Pipeline{
		client:     client,
		extractor:  NewExtractor(client),
		normalizer: NewNormalizer(),
		recorder:   NewRecorder(repo, invalidator),
		composer:   NewComposer(client),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pipeline) steps() []PipelineStep {
	return []PipelineStep{
		&ClassifyStep{extractor: p.extractor},
		&NormalizeStep{normalizer: p.normalizer},
		&RecordStep{recorder: p.recorder},
		&ReplyStep{composer: p.composer},
		&ArchiveStep{publisher: p.archive},
	}
}

// Run executes one turn for userID over messages.
func (p *Pipeline) Run(ctx context.Context, userID string, messages []domain.ChatMessage) (*TurnResult, error) {
	state, err := p.RunState(ctx, userID, messages)
	if err != nil {
		return nil, err
	}
	return &TurnResult{
		Text:        state.Reply,
		Transaction: state.Outcome,
		Intent:      state.Intent,
	}, nil
}

// RunState executes one turn and returns the full final state.
func (p *Pipeline) RunState(ctx context.Context, userID string, messages []domain.ChatMessage) (*TurnState, error) {
	if p.client == nil {
		return nil, llm.ErrNotConfigured
	}

	latest, ok := domain.LatestUserMessage(messages)
	if !ok {
		return nil, ErrNoUserMessage
	}

	state := &TurnState{
		TurnID:      uuid.New().String(),
		UserID:      userID,
		RequestID:   requestIDFromContext(ctx),
		ReceivedAt:  p.now(),
		Messages:    messages,
		UserMessage: latest,
		Stage:       StageReceived,
	}

	log := logger.FromContext(ctx).With().
		Str("user_id", userID).
		Str("turn_id", state.TurnID).
		Logger()
	ctx = logger.WithContext(ctx, log)

	for _, step := range p.steps() {
		if err := step.Execute(ctx, state); err != nil {
			log.Error().Err(err).Str("stage", string(state.Stage)).Msg("chat turn aborted")
			return nil, fmt.Errorf("pipeline: %w", err)
		}
	}

	log.Info().
		Str("intent", string(state.Intent.Intent)).
		Bool("recorded", state.Outcome != nil && state.Outcome.Success).
		Msg("chat turn completed")

	return state, nil
}

type requestIDKey struct{}

// WithRequestID attaches a request id to ctx for archived turn records.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
