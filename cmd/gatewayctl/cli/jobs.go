// Package cli implements the operator commands of gatewayctl.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/erpnext-gateway/internal/erp"
	"github.com/odyssey-erp/erpnext-gateway/jobs"
)

// JobsCLI wraps manual management helpers for the submit queue.
type JobsCLI struct {
	enqueuer  jobs.Enqueuer
	inspector jobs.QueueInspector
	closers   []io.Closer
}

// NewJobsCLI initialises the CLI helpers against the given Redis endpoint.
func NewJobsCLI(opt asynq.RedisClientOpt) *JobsCLI {
	client := jobs.NewClient(opt)
	inspector := asynq.NewInspector(opt)
	return &JobsCLI{enqueuer: client, inspector: inspector, closers: []io.Closer{client, inspector}}
}

// Close releases underlying resources.
func (c *JobsCLI) Close() error {
	var errs []error
	for _, closer := range c.closers {
		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ResubmitOptions defines flags for the jobs resubmit command.
type ResubmitOptions struct {
	Doctype string
	Name    string
	Stdout  io.Writer
	Stderr  io.Writer
}

// ResubmitCommand queues a background submit and prints the task id.
func (c *JobsCLI) ResubmitCommand(ctx context.Context, opts ResubmitOptions) int {
	stdout, stderr := streams(opts.Stdout, opts.Stderr)
	doctype := strings.TrimSpace(opts.Doctype)
	name := strings.TrimSpace(opts.Name)
	if name == "" {
		_, _ = fmt.Fprintln(stderr, "jobs resubmit: --name is required")
		return 1
	}
	mode, ok := jobs.SubmitModeFor(doctype)
	if !ok {
		_, _ = fmt.Fprintf(stderr, "jobs resubmit: doctype %q cannot be submitted\n", doctype)
		return 1
	}
	id, err := c.enqueuer.EnqueueSubmit(ctx, jobs.SubmitPayload{Ref: erp.DocRef{Doctype: doctype, Name: name}, Mode: mode})
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "jobs resubmit: %v\n", err)
		if errors.Is(err, jobs.ErrAlreadyQueued) {
			return 3
		}
		return 1
	}
	_, _ = fmt.Fprintf(stdout, "queued %s\n", id)
	return 0
}

// QueueStats summarises the current queue state.
type QueueStats struct {
	Queue     string `json:"queue"`
	Pending   int    `json:"pending"`
	Active    int    `json:"active"`
	Scheduled int    `json:"scheduled"`
	Retry     int    `json:"retry"`
	Archived  int    `json:"archived"`
}

// StatsOptions defines flags for the jobs stats command.
type StatsOptions struct {
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// StatsCommand prints the default queue counters.
func (c *JobsCLI) StatsCommand(ctx context.Context, opts StatsOptions) int {
	stdout, stderr := streams(opts.Stdout, opts.Stderr)
	info, err := c.inspector.GetQueueInfo(jobs.QueueDefault)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "jobs stats: %v\n", err)
		return 1
	}
	stats := QueueStats{Queue: jobs.QueueDefault}
	if info != nil {
		stats.Pending = info.Pending
		stats.Active = info.Active
		stats.Scheduled = info.Scheduled
		stats.Retry = info.Retry
		stats.Archived = info.Archived
	}
	if opts.JSONOutput {
		if err := json.NewEncoder(stdout).Encode(stats); err != nil {
			_, _ = fmt.Fprintf(stderr, "jobs stats: encode json: %v\n", err)
			return 1
		}
		return 0
	}
	_, _ = fmt.Fprintf(stdout, "queue=%s pending=%d active=%d scheduled=%d retry=%d archived=%d\n",
		stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry, stats.Archived)
	// archived tasks exhausted their retries and need an operator
	if stats.Archived > 0 {
		return 10
	}
	return 0
}

func streams(stdout, stderr io.Writer) (io.Writer, io.Writer) {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	return stdout, stderr
}
