package pipeline

import (
	"context"
	"errors"

	"github.com/dvloznov/finance-assistant/internal/domain"
	"github.com/dvloznov/finance-assistant/internal/jobs"
	"github.com/dvloznov/finance-assistant/internal/logger"
	"github.com/dvloznov/finance-assistant/internal/store"
)

// RecordOutcome is the tagged result of one recording attempt: Saved is set
// when Success is true, Error otherwise.
type RecordOutcome struct {
	Success bool                `json:"success"`
	Saved   *domain.Transaction `json:"saved,omitempty"`
	Error   string              `json:"error,omitempty"`
}

// Invalidator drops cached dashboard views of a user.
type Invalidator interface {
	Invalidate(userID string)
}

// Recorder persists a normalized transaction and reports the outcome as a
// value; it never returns an error.
type Recorder struct {
	repo        store.TransactionRepository
	invalidator Invalidator
	notion      jobs.Publisher
}

// NewRecorder creates a Recorder. invalidator may be nil.
func NewRecorder(repo store.TransactionRepository, invalidator Invalidator) *Recorder {
	if repo == nil {
		repo = store.Unconfigured{}
	}
	return &Recorder{repo: repo, invalidator: invalidator}
}

// WithNotionExport publishes a notion_export job after every successful insert.
func (r *Recorder) WithNotionExport(pub jobs.Publisher) *Recorder {
	r.notion = pub
	return r
}

// Record inserts exactly one row.
func (r *Recorder) Record(ctx context.Context, tx *domain.Transaction) *RecordOutcome {
	log := logger.FromContext(ctx)

	saved, err := r.repo.InsertTransaction(ctx, tx)
	if err != nil {
		log.Error().Err(err).Str("user_id", tx.UserID).Msg("failed to record transaction")
		return &RecordOutcome{Success: false, Error: failureReason(err)}
	}

	if r.invalidator != nil {
		r.invalidator.Invalidate(saved.UserID)
	}

	log.Info().
		Str("user_id", saved.UserID).
		Str("transaction_id", saved.ID).
		Str("type", string(saved.Type)).
		Float64("amount", saved.Amount).
		Msg("transaction recorded")

	if r.notion != nil {
		r.publishNotionExport(ctx, saved)
	}

	return &RecordOutcome{Success: true, Saved: saved}
}

func (r *Recorder) publishNotionExport(ctx context.Context, saved *domain.Transaction) {
	log := logger.FromContext(ctx)

	job, err := jobs.NewJob(jobs.JobTypeNotionExport, saved.UserID, saved)
	if err == nil {
		err = r.notion.Publish(ctx, job)
	}
	if err != nil {
		log.Warn().Err(err).Str("transaction_id", saved.ID).Msg("notion export not queued")
	}
}

// failureReason is the human-readable reason shown to the reply model.
func failureReason(err error) string {
	switch {
	case errors.Is(err, store.ErrNotConfigured):
		return "Database belum dikonfigurasi, sehingga transaksi tidak dapat disimpan."
	case errors.Is(err, store.ErrTableMissing):
		return "Tabel transaksi belum tersedia di database."
	case errors.Is(err, store.ErrPermissionDenied):
		return "Akses ke database ditolak oleh kebijakan keamanan."
	default:
		return "Gagal menyimpan transaksi: " + err.Error()
	}
}
