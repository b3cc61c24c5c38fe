package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/erpnext-gateway/internal/erp"
)

type fakeSubmitter struct {
	submitted bool
	err       error
	calls     []erp.DocRef
	modes     []erp.SubmitMode
}

func (f *fakeSubmitter) EnsureSubmitted(ctx context.Context, ref erp.DocRef, mode erp.SubmitMode) (bool, error) {
	f.calls = append(f.calls, ref)
	f.modes = append(f.modes, mode)
	return f.submitted, f.err
}

type countingObserver struct {
	ok, failed int
}

func (o *countingObserver) ObserveJob(task string, err error) {
	if err != nil {
		o.failed++
		return
	}
	o.ok++
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func submitTask(t *testing.T, doctype, name string) *asynq.Task {
	t.Helper()
	mode, ok := SubmitModeFor(doctype)
	require.True(t, ok)
	task, err := NewSubmitTask(SubmitPayload{Ref: erp.DocRef{Doctype: doctype, Name: name}, Mode: mode})
	require.NoError(t, err)
	return task
}

func TestNewSubmitTaskEncodesPayload(t *testing.T) {
	task := submitTask(t, erp.DoctypePaymentEntry, "ACC-PAY-0001")
	require.Equal(t, TaskERPSubmit, task.Type())

	var payload SubmitPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	require.Equal(t, erp.DocRef{Doctype: erp.DoctypePaymentEntry, Name: "ACC-PAY-0001"}, payload.Ref)
	require.Equal(t, erp.SubmitDocStatus, payload.Mode)

	_, err := NewSubmitTask(SubmitPayload{Ref: erp.DocRef{Doctype: erp.DoctypePaymentEntry}})
	require.ErrorIs(t, err, erp.ErrInvalidInput)
}

func TestSubmitModeFor(t *testing.T) {
	mode, ok := SubmitModeFor(erp.DoctypeSupplierQuotation)
	require.True(t, ok)
	require.Equal(t, erp.SubmitRunMethod, mode)

	_, ok = SubmitModeFor(erp.DoctypePurchaseInvoice)
	require.False(t, ok)
}

func TestSubmitJobHandlesTask(t *testing.T) {
	submitter := &fakeSubmitter{submitted: true}
	observer := &countingObserver{}
	job := NewSubmitJob(submitter, quietLogger(), observer)

	err := job.Handle(context.Background(), submitTask(t, erp.DoctypeSupplierQuotation, "SQ-0001"))
	require.NoError(t, err)
	require.Equal(t, []erp.DocRef{{Doctype: erp.DoctypeSupplierQuotation, Name: "SQ-0001"}}, submitter.calls)
	require.Equal(t, []erp.SubmitMode{erp.SubmitRunMethod}, submitter.modes)
	require.Equal(t, 1, observer.ok)
}

func TestSubmitJobReportsFailures(t *testing.T) {
	ref := erp.DocRef{Doctype: erp.DoctypePaymentEntry, Name: "ACC-PAY-0001"}
	cases := []error{
		&erp.SubmitError{Ref: ref, Err: errors.New("boom")},
		fmt.Errorf("%w: dial tcp", erp.ErrTransport),
		erp.ErrNoSession,
		fmt.Errorf("%w: Payment Entry ACC-PAY-0001 is cancelled", erp.ErrSubmit),
	}
	for _, cause := range cases {
		observer := &countingObserver{}
		job := NewSubmitJob(&fakeSubmitter{err: cause}, quietLogger(), observer)

		err := job.Handle(context.Background(), submitTask(t, ref.Doctype, ref.Name))
		require.ErrorIs(t, err, cause)
		require.Equal(t, 1, observer.failed)
	}
}

func TestSubmitJobRejectsMalformedPayload(t *testing.T) {
	submitter := &fakeSubmitter{}
	job := NewSubmitJob(submitter, quietLogger(), nil)

	err := job.Handle(context.Background(), asynq.NewTask(TaskERPSubmit, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)
	require.Empty(t, submitter.calls)
}
