package services

import (
	"context"
	"encoding/json"
	"sync"

	types "github.com/yungbote/crawler-api/internal/domain"
	domainscans "github.com/yungbote/crawler-api/internal/domain/scans"
	"github.com/yungbote/crawler-api/internal/temporalx"
)

type startCall struct {
	Name    string
	Payload any
	ID      string
	Queue   string
}

type fakeEngine struct {
	mu       sync.Mutex
	starts   []startCall
	startErr error
	panicMsg string
	progress any
	queryErr error
	queries  []string
}

func (f *fakeEngine) StartWorkflow(_ context.Context, name string, payload any, id, queue string) (temporalx.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	f.starts = append(f.starts, startCall{Name: name, Payload: payload, ID: id, Queue: queue})
	if f.startErr != nil {
		return temporalx.Handle{}, f.startErr
	}
	return temporalx.Handle{ID: id, RunID: "run-1"}, nil
}

func (f *fakeEngine) QueryWorkflow(_ context.Context, workflowID, queryType string, out any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, workflowID+"/"+queryType)
	if f.queryErr != nil {
		return f.queryErr
	}
	b, err := json.Marshal(f.progress)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

type fakeConnector struct {
	engine   *fakeEngine
	err      error
	connects int
}

func (f *fakeConnector) Connect(context.Context) (temporalx.Engine, error) {
	f.connects++
	if f.err != nil {
		return nil, f.err
	}
	return f.engine, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []domainscans.StatusEvent
}

func (r *recordingNotifier) ScanStatusChanged(_ context.Context, scan *types.Scan) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, scan.StatusEvent())
}

func (r *recordingNotifier) statuses() []types.ScanStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]types.ScanStatus, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Status)
	}
	return out
}
