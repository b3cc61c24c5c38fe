package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/erpnext-gateway/internal/erp"
	"github.com/odyssey-erp/erpnext-gateway/internal/platform/httpx"
)

// ErrAlreadyQueued indicates a submit task for the document is still pending
// or running.
var ErrAlreadyQueued = errors.New("jobs: submit already queued for document")

// Worker wraps the Asynq server.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	logger *slog.Logger
}

// TaskHandler allows injecting custom Asynq handlers during worker setup.
type TaskHandler struct {
	Type    string
	Handler asynq.HandlerFunc
}

// WorkerConfig collects dependencies required to bootstrap the worker.
type WorkerConfig struct {
	RedisOpts   asynq.RedisClientOpt
	Logger      *slog.Logger
	Concurrency int
	Handlers    []TaskHandler
}

// NewWorker constructs a Worker instance.
func NewWorker(cfg WorkerConfig) (*Worker, error) {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 5
	}
	srv := asynq.NewServer(cfg.RedisOpts, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			QueueDefault: 1,
		},
	})
	mux := asynq.NewServeMux()
	registered := 0
	for _, h := range cfg.Handlers {
		if h.Type == "" || h.Handler == nil {
			continue
		}
		mux.HandleFunc(h.Type, h.Handler)
		registered++
	}
	if registered == 0 {
		return nil, errors.New("worker: no task handlers registered")
	}
	return &Worker{server: srv, mux: mux, logger: cfg.Logger}, nil
}

// Run starts processing jobs until context cancellation.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil {
		return errors.New("worker: not configured")
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.server.Run(w.mux)
	}()
	select {
	case <-ctx.Done():
		w.server.Shutdown()
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Client submits jobs to the queue.
type Client struct {
	client    *asynq.Client
	inspector *asynq.Inspector
}

// NewClient constructs an Asynq client.
func NewClient(redisOpts asynq.RedisClientOpt) *Client {
	return &Client{client: asynq.NewClient(redisOpts), inspector: asynq.NewInspector(redisOpts)}
}

// EnqueueSubmit enqueues a background submit for ref. A finished task left
// under the document's id, archived after a failed run or retained after
// completion, is removed so the document can be submitted again.
func (c *Client) EnqueueSubmit(ctx context.Context, payload SubmitPayload) (string, error) {
	task, err := NewSubmitTask(payload)
	if err != nil {
		return "", err
	}
	info, err := c.client.EnqueueContext(ctx, task)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		var cleared bool
		if cleared, err = c.clearFinished(submitTaskID(payload.Ref)); err != nil {
			return "", err
		}
		if cleared {
			info, err = c.client.EnqueueContext(ctx, task)
		} else {
			err = asynq.ErrTaskIDConflict
		}
	}
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
			return "", fmt.Errorf("%w: %s %s", ErrAlreadyQueued, payload.Ref.Doctype, payload.Ref.Name)
		}
		return "", err
	}
	return info.ID, nil
}

func (c *Client) clearFinished(id string) (bool, error) {
	info, err := c.inspector.GetTaskInfo(QueueDefault, id)
	if errors.Is(err, asynq.ErrTaskNotFound) {
		// deleted between the conflict and the lookup
		return true, nil
	}
	if err != nil {
		return false, err
	}
	switch info.State {
	case asynq.TaskStateArchived, asynq.TaskStateCompleted:
		if err := c.inspector.DeleteTask(QueueDefault, id); err != nil && !errors.Is(err, asynq.ErrTaskNotFound) {
			return false, err
		}
		return true, nil
	default:
		return false, nil
	}
}

// Close releases client resources.
func (c *Client) Close() error {
	return errors.Join(c.client.Close(), c.inspector.Close())
}

// Enqueuer queues background submits.
type Enqueuer interface {
	EnqueueSubmit(ctx context.Context, payload SubmitPayload) (string, error)
}

// QueueInspector reports queue state.
type QueueInspector interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
}

// Handler exposes HTTP endpoints for jobs.
type Handler struct {
	inspector QueueInspector
	enqueuer  Enqueuer
	logger    *slog.Logger
	validator *validator.Validate
}

// NewHandler constructs an HTTP handler for jobs endpoints. Either dependency
// may be nil when the queue is not configured.
func NewHandler(inspector QueueInspector, enqueuer Enqueuer, logger *slog.Logger) *Handler {
	return &Handler{inspector: inspector, enqueuer: enqueuer, logger: logger, validator: validator.New()}
}

// MountRoutes attaches job routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/health", h.health)
	r.Post("/resubmit", h.resubmit)
}

type queueHealth struct {
	Queue     string `json:"queue"`
	Pending   int    `json:"pending"`
	Active    int    `json:"active"`
	Retry     int    `json:"retry"`
	Completed int    `json:"completed"`
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if h.inspector == nil {
		httpx.JSON(w, http.StatusOK, queueHealth{Queue: QueueDefault})
		return
	}
	info, err := h.inspector.GetQueueInfo(QueueDefault)
	if err != nil {
		h.logger.Warn("jobs health", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	out := queueHealth{Queue: QueueDefault}
	if info != nil {
		out = queueHealth{
			Queue:     info.Queue,
			Pending:   info.Pending,
			Active:    info.Active,
			Retry:     info.Retry,
			Completed: info.Completed,
		}
	}
	httpx.JSON(w, http.StatusOK, out)
}

type resubmitRequest struct {
	Doctype string `json:"doctype" validate:"required"`
	Name    string `json:"name" validate:"required,max=140"`
}

type resubmitResponse struct {
	TaskID  string     `json:"task_id"`
	Pending erp.DocRef `json:"pending"`
}

func (h *Handler) resubmit(w http.ResponseWriter, r *http.Request) {
	if h.enqueuer == nil {
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	var req resubmitRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	mode, ok := SubmitModeFor(req.Doctype)
	if !ok {
		httpx.RespondError(w, fmt.Errorf("%w: doctype %q cannot be submitted", httpx.ErrValidation, req.Doctype))
		return
	}

	ref := erp.DocRef{Doctype: req.Doctype, Name: req.Name}
	id, err := h.enqueuer.EnqueueSubmit(r.Context(), SubmitPayload{Ref: ref, Mode: mode})
	if err != nil {
		if errors.Is(err, ErrAlreadyQueued) {
			httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrConflict, err))
			return
		}
		h.logger.Error("enqueue submit", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("submit queued", slog.String("doctype", ref.Doctype), slog.String("name", ref.Name), slog.String("task_id", id))
	httpx.JSON(w, http.StatusAccepted, resubmitResponse{TaskID: id, Pending: ref})
}
