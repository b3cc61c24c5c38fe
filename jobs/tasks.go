package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/erpnext-gateway/internal/erp"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskERPSubmit finishes the submit step of a document left unsubmitted.
	TaskERPSubmit = "erp:submit"
)

const (
	submitTimeout   = time.Minute
	submitRetention = time.Hour
)

// submitModes lists the doctypes the gateway may submit in the background.
var submitModes = map[string]erp.SubmitMode{
	erp.DoctypeSupplierQuotation: erp.SubmitRunMethod,
	erp.DoctypePaymentEntry:      erp.SubmitDocStatus,
}

// SubmitModeFor returns how doctype is submitted. ok is false for doctypes the
// gateway never submits.
func SubmitModeFor(doctype string) (erp.SubmitMode, bool) {
	mode, ok := submitModes[doctype]
	return mode, ok
}

// SubmitPayload identifies the document to submit.
type SubmitPayload struct {
	Ref  erp.DocRef     `json:"ref"`
	Mode erp.SubmitMode `json:"mode"`
}

// NewSubmitTask constructs an Asynq task. The task id is derived from the
// document so a second enqueue for the same document is rejected while the
// first is pending or running. The task runs once; a failed run is archived.
func NewSubmitTask(payload SubmitPayload) (*asynq.Task, error) {
	if payload.Ref.Doctype == "" || payload.Ref.Name == "" {
		return nil, fmt.Errorf("%w: submit task needs doctype and name", erp.ErrInvalidInput)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskERPSubmit, data,
		asynq.Queue(QueueDefault),
		asynq.TaskID(submitTaskID(payload.Ref)),
		asynq.MaxRetry(0),
		asynq.Timeout(submitTimeout),
		asynq.Retention(submitRetention),
	), nil
}

func submitTaskID(ref erp.DocRef) string {
	return TaskERPSubmit + ":" + ref.Doctype + ":" + ref.Name
}
