package temporalx

import (
	"context"
	"errors"
	"fmt"
	"sync"

	enumspb "go.temporal.io/api/enums/v1"
	temporalsdkclient "go.temporal.io/sdk/client"
	"golang.org/x/sync/singleflight"

	"github.com/yungbote/crawler-api/internal/platform/logger"
)

// Handle identifies a started workflow run. ID doubles as the durable correlation key.
type Handle struct {
	ID    string
	RunID string
}

// Engine is a live connection to the workflow engine.
type Engine interface {
	StartWorkflow(ctx context.Context, name string, payload any, id, queue string) (Handle, error)
	QueryWorkflow(ctx context.Context, workflowID, queryType string, out any) error
}

type DialFunc func(ctx context.Context, cfg Config, log *logger.Logger) (temporalsdkclient.Client, error)

// WorkflowClient owns the process-wide engine connection. It dials on first use;
// concurrent first callers share one in-flight dial and all observe the same
// connection. A failed dial is not remembered, so the next caller tries again.
type WorkflowClient struct {
	cfg  Config
	log  *logger.Logger
	dial DialFunc

	dials  singleflight.Group
	mu     sync.Mutex
	conn   temporalsdkclient.Client
	closed bool
}

func NewWorkflowClient(cfg Config, log *logger.Logger) *WorkflowClient {
	return &WorkflowClient{
		cfg:  cfg,
		log:  log.With("service", "WorkflowClient"),
		dial: Dial,
	}
}

// WithDialer replaces the dial function; used to plug in fakes.
func (w *WorkflowClient) WithDialer(dial DialFunc) *WorkflowClient {
	w.dial = dial
	return w
}

// Connect returns the shared engine connection, establishing it if needed.
// A caller stops waiting when its own ctx ends; the shared dial keeps going for
// the remaining waiters and is bounded by DialMaxWait.
func (w *WorkflowClient) Connect(ctx context.Context) (Engine, error) {
	if w == nil {
		return nil, errors.New("workflow client is nil")
	}
	if c := w.current(); c != nil {
		return &engine{c: c}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ch := w.dials.DoChan("dial", func() (any, error) {
		if c := w.current(); c != nil {
			return c, nil
		}
		c, err := w.dial(context.WithoutCancel(ctx), w.cfg, w.log)
		if err != nil {
			return nil, err
		}
		if c == nil {
			return nil, fmt.Errorf("temporal dial returned no client (address=%s)", w.cfg.Address)
		}
		w.mu.Lock()
		defer w.mu.Unlock()
		if w.closed {
			c.Close()
			return nil, errors.New("workflow client is closed")
		}
		w.conn = c
		return c, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return &engine{c: res.Val.(temporalsdkclient.Client)}, nil
	}
}

func (w *WorkflowClient) current() temporalsdkclient.Client {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn
}

func (w *WorkflowClient) Close() {
	if w == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	if w.conn != nil {
		w.conn.Close()
		w.conn = nil
	}
}

type engine struct {
	c temporalsdkclient.Client
}

func (e *engine) StartWorkflow(ctx context.Context, name string, payload any, id, queue string) (Handle, error) {
	opts := temporalsdkclient.StartWorkflowOptions{
		ID:        id,
		TaskQueue: queue,
		// A FAILED scan is never restarted under the same id; a new scan gets a new row id.
		WorkflowIDReusePolicy: enumspb.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
	}
	run, err := e.c.ExecuteWorkflow(ctx, opts, name, payload)
	if err != nil {
		return Handle{}, err
	}
	return Handle{ID: run.GetID(), RunID: run.GetRunID()}, nil
}

func (e *engine) QueryWorkflow(ctx context.Context, workflowID, queryType string, out any) error {
	v, err := e.c.QueryWorkflow(ctx, workflowID, "", queryType)
	if err != nil {
		return err
	}
	if out == nil || !v.HasValue() {
		return nil
	}
	return v.Get(out)
}
