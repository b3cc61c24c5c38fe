package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/erpnext-gateway/internal/erp"
)

// Submitter finishes the submit transition of a document.
type Submitter interface {
	EnsureSubmitted(ctx context.Context, ref erp.DocRef, mode erp.SubmitMode) (bool, error)
}

// JobObserver records job outcomes.
type JobObserver interface {
	ObserveJob(task string, err error)
}

// SubmitJob handles TaskERPSubmit tasks.
type SubmitJob struct {
	submitter Submitter
	logger    *slog.Logger
	observer  JobObserver
}

// NewSubmitJob constructs the job. observer may be nil.
func NewSubmitJob(submitter Submitter, logger *slog.Logger, observer JobObserver) *SubmitJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &SubmitJob{submitter: submitter, logger: logger, observer: observer}
}

// Handle processes one task.
func (j *SubmitJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	defer func() {
		if j.observer != nil {
			j.observer.ObserveJob(TaskERPSubmit, err)
		}
	}()

	var payload SubmitPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decode submit payload: %v: %w", err, asynq.SkipRetry)
	}
	logger := j.logger.With(
		slog.String("doctype", payload.Ref.Doctype),
		slog.String("name", payload.Ref.Name),
	)

	submitted, err := j.submitter.EnsureSubmitted(ctx, payload.Ref, payload.Mode)
	if err != nil {
		logger.Warn("background submit failed", slog.Any("error", err))
		return err
	}
	if submitted {
		logger.Info("background submit completed")
	} else {
		logger.Info("document already submitted")
	}
	return nil
}
