package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dvloznov/finance-assistant/internal/archive"
	"github.com/dvloznov/finance-assistant/internal/domain"
	"github.com/dvloznov/finance-assistant/internal/jobs"
	"github.com/dvloznov/finance-assistant/internal/logger"
)

// Stage is the position of a turn in its state machine.
type Stage string

const (
	StageReceived      Stage = "received"
	StageClassified    Stage = "classified"
	StageRecordable    Stage = "recordable"
	StageNotRecordable Stage = "not_recordable"
	StageRecorded      Stage = "recorded"
	StageRecordFailed  Stage = "record_failed"
	StageSkipped       Stage = "skipped"
	StageReplied       Stage = "replied"
	StageDone          Stage = "done"
)

// PipelineStep represents a single step of a chat turn.
type PipelineStep interface {
	Execute(ctx context.Context, state *TurnState) error
}

// TurnState holds the shared state across all steps of one chat turn.
type TurnState struct {
	TurnID      string
	UserID      string
	RequestID   string
	ReceivedAt  time.Time
	Messages    []domain.ChatMessage
	UserMessage string

	Stage         Stage
	RawClassifier string
	Intent        *IntentResult
	Transaction   *domain.Transaction
	Outcome       *RecordOutcome
	Reply         string
}

// Step 1: ClassifyStep extracts the intent of the latest user message.
type ClassifyStep struct {
	extractor *Extractor
}

func (s *ClassifyStep) Execute(ctx context.Context, state *TurnState) error {
	state.Intent, state.RawClassifier = s.extractor.Extract(ctx, state.UserMessage)
	state.Stage = StageClassified
	return nil
}

// Step 2: NormalizeStep decides whether the intent is recordable.
type NormalizeStep struct {
	normalizer *Normalizer
}

func (s *NormalizeStep) Execute(ctx context.Context, state *TurnState) error {
	state.Transaction = s.normalizer.Normalize(state.Intent, state.UserID)
	if state.Transaction == nil {
		state.Stage = StageNotRecordable
	} else {
		state.Stage = StageRecordable
	}
	return nil
}

// Step 3: RecordStep inserts the transaction, at most once per turn.
type RecordStep struct {
	recorder *Recorder
}

func (s *RecordStep) Execute(ctx context.Context, state *TurnState) error {
	if state.Stage != StageRecordable {
		state.Stage = StageSkipped
		return nil
	}

	state.Outcome = s.recorder.Record(ctx, state.Transaction)
	if state.Outcome.Success {
		state.Stage = StageRecorded
	} else {
		state.Stage = StageRecordFailed
	}
	return nil
}

// Step 4: ReplyStep composes the reply. Its error is the only one that aborts a turn.
type ReplyStep struct {
	composer *Composer
}

func (s *ReplyStep) Execute(ctx context.Context, state *TurnState) error {
	reply, err := s.composer.Compose(ctx, state.Messages, state.Outcome)
	if err != nil {
		return err
	}
	state.Reply = reply
	state.Stage = StageReplied
	return nil
}

// Step 5: ArchiveStep queues the turn record for the archive bucket.
type ArchiveStep struct {
	publisher jobs.Publisher
}

func (s *ArchiveStep) Execute(ctx context.Context, state *TurnState) error {
	defer func() { state.Stage = StageDone }()

	if s.publisher == nil {
		return nil
	}

	log := logger.FromContext(ctx)
	intent, _ := json.Marshal(state.Intent)
	outcome, _ := json.Marshal(state.Outcome)

	job, err := jobs.NewJob(jobs.JobTypeTurnArchive, state.UserID, &archive.TurnRecord{
		TurnID:        state.TurnID,
		UserID:        state.UserID,
		RequestID:     state.RequestID,
		CreatedAt:     state.ReceivedAt,
		UserMessage:   state.UserMessage,
		RawClassifier: state.RawClassifier,
		Intent:        intent,
		Outcome:       outcome,
		Reply:         state.Reply,
	})
	if err == nil {
		err = s.publisher.Publish(ctx, job)
	}
	if err != nil {
		log.Warn().Err(err).Str("turn_id", state.TurnID).Msg("turn archive not queued")
	}
	return nil
}
