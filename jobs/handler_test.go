package jobs

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/erpnext-gateway/internal/erp"
)

type fakeEnqueuer struct {
	queued map[string]bool
}

func (f *fakeEnqueuer) EnqueueSubmit(ctx context.Context, payload SubmitPayload) (string, error) {
	id := submitTaskID(payload.Ref)
	if f.queued[id] {
		return "", fmt.Errorf("%w: %s", ErrAlreadyQueued, id)
	}
	f.queued[id] = true
	return id, nil
}

type fakeInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (f fakeInspector) GetQueueInfo(queue string) (*asynq.QueueInfo, error) {
	return f.info, f.err
}

func newJobsRouter(inspector QueueInspector, enqueuer Enqueuer) http.Handler {
	r := chi.NewRouter()
	r.Route("/jobs", NewHandler(inspector, enqueuer, quietLogger()).MountRoutes)
	return r
}

func post(h http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/jobs/resubmit", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestResubmitQueuesOncePerDocument(t *testing.T) {
	h := newJobsRouter(nil, &fakeEnqueuer{queued: map[string]bool{}})

	rr := post(h, `{"doctype":"Payment Entry","name":"ACC-PAY-0001"}`)
	require.Equal(t, http.StatusAccepted, rr.Code)
	require.Contains(t, rr.Body.String(), `"task_id":"erp:submit:Payment Entry:ACC-PAY-0001"`)

	rr = post(h, `{"doctype":"Payment Entry","name":"ACC-PAY-0001"}`)
	require.Equal(t, http.StatusConflict, rr.Code)
}

func TestResubmitValidatesDoctype(t *testing.T) {
	h := newJobsRouter(nil, &fakeEnqueuer{queued: map[string]bool{}})

	rr := post(h, `{"doctype":"Purchase Invoice","name":"PINV-1"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = post(h, `{"doctype":"Payment Entry"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestResubmitWithoutQueue(t *testing.T) {
	rr := post(newJobsRouter(nil, nil), `{"doctype":"Payment Entry","name":"ACC-PAY-0001"}`)
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestHealthReportsQueue(t *testing.T) {
	h := newJobsRouter(fakeInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 2, Retry: 1}}, nil)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"queue":"default","pending":2,"active":0,"retry":1,"completed":0}`, rr.Body.String())

	h = newJobsRouter(fakeInspector{err: fmt.Errorf("%w", erp.ErrTransport)}, nil)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
