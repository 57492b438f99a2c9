package processor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anyspecs/anyspecs/internal/api"
	"github.com/anyspecs/anyspecs/internal/models"
	"github.com/anyspecs/anyspecs/internal/notice"
)

type fakeWorkflow struct {
	mu        sync.Mutex
	uploadErr map[string]error
	outputs   map[string]map[string]any
	status    map[string]string
	delay     map[string]time.Duration
	block     chan struct{}
	uploads   []string

	inflight    atomic.Int32
	maxInflight atomic.Int32
}

func (f *fakeWorkflow) DifyUpload(_ context.Context, u api.Upload, user string) (api.DifyFile, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	f.uploads = append(f.uploads, u.Name)
	err := f.uploadErr[u.Name]
	f.mu.Unlock()
	if err != nil {
		return api.DifyFile{}, err
	}
	return api.DifyFile{ID: "f-" + u.Name, Name: u.Name, MimeType: "text/plain", CreatedBy: user}, nil
}

func (f *fakeWorkflow) RunWorkflow(_ context.Context, in api.WorkflowRequest) (api.WorkflowRun, error) {
	n := f.inflight.Add(1)
	defer f.inflight.Add(-1)
	for {
		m := f.maxInflight.Load()
		if n <= m || f.maxInflight.CompareAndSwap(m, n) {
			break
		}
	}

	input := in.Inputs["file"].(map[string]any)
	name := strings.TrimPrefix(input["upload_file_id"].(string), "f-")

	f.mu.Lock()
	delay := f.delay[name]
	status, ok := f.status[name]
	outputs := f.outputs[name]
	f.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
	if !ok {
		status = "succeeded"
	}
	run := api.WorkflowRun{WorkflowRunID: "run-" + name}
	run.Data.Status = status
	run.Data.Outputs = outputs
	if status != "succeeded" {
		run.Data.Error = "quota exceeded"
	}
	return run, nil
}

func writeFiles(t *testing.T, names ...string) []string {
	t.Helper()
	dir := t.TempDir()
	paths := make([]string, len(names))
	for i, name := range names {
		paths[i] = filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(paths[i], []byte("content of "+name), 0o644))
	}
	return paths
}

func textOutputs(pairs ...string) map[string]map[string]any {
	out := make(map[string]map[string]any)
	for i := 0; i+1 < len(pairs); i += 2 {
		out[pairs[i]] = map[string]any{"text": pairs[i+1]}
	}
	return out
}

func statuses(items []models.Item) []models.ItemStatus {
	out := make([]models.ItemStatus, len(items))
	for i, it := range items {
		out[i] = it.Status
	}
	return out
}

func outputs(results []models.Result) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Output
	}
	return out
}

func TestRun_CountsUnauthorizedFailures(t *testing.T) {
	for _, workers := range []int{1, 3} {
		wf := &fakeWorkflow{
			outputs: textOutputs("1.txt", "A"),
			uploadErr: map[string]error{
				"2.txt": &api.Error{Op: "workflow upload", Kind: api.KindStatus, StatusCode: 401},
				"3.txt": errors.New("network unreachable"),
			},
		}
		p := New(wf, nil, Options{Workers: workers})
		_, err := p.Add(writeFiles(t, "1.txt", "2.txt", "3.txt")...)
		require.NoError(t, err)

		sum, err := p.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, sum.Completed, "workers=%d", workers)
		assert.Equal(t, 2, sum.Failed, "workers=%d", workers)
		assert.Equal(t, 1, sum.Unauthorized, "workers=%d", workers)
	}
}

func TestRun_FailureDoesNotAbortQueue(t *testing.T) {
	wf := &fakeWorkflow{
		outputs:   textOutputs("1.txt", "A", "2.txt", "B"),
		uploadErr: map[string]error{"3.txt": errors.New("network unreachable")},
	}
	rec := &notice.Recorder{}
	p := New(wf, rec, Options{})
	_, err := p.Add(writeFiles(t, "1.txt", "2.txt", "3.txt")...)
	require.NoError(t, err)

	sum, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, sum.Completed)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, []string{"A", "B"}, outputs(p.Results()))
	assert.Equal(t, []models.ItemStatus{models.StatusCompleted, models.StatusCompleted, models.StatusFailed}, statuses(p.Items()))
	assert.Contains(t, p.Items()[2].Error, "network unreachable")

	errs := rec.Level(notice.Error)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "3.txt")
	assert.False(t, p.Processing())
	assert.Equal(t, StepDone, p.Step())
}

func TestRun_FailureAtEveryPosition(t *testing.T) {
	names := []string{"a.md", "b.md", "c.md", "d.md"}
	for k := range names {
		t.Run(names[k], func(t *testing.T) {
			wf := &fakeWorkflow{uploadErr: map[string]error{names[k]: errors.New("boom")}}
			p := New(wf, nil, Options{})
			_, err := p.Add(writeFiles(t, names...)...)
			require.NoError(t, err)

			sum, err := p.Run(context.Background())
			require.NoError(t, err)
			assert.Equal(t, len(names)-1, sum.Completed)
			assert.Len(t, p.Results(), len(names)-1)
			for i, st := range statuses(p.Items()) {
				if i == k {
					assert.Equal(t, models.StatusFailed, st)
				} else {
					assert.Equal(t, models.StatusCompleted, st)
				}
			}
			assert.Equal(t, names, wf.uploads, "every item is attempted in order")
		})
	}
}

func TestRun_WorkflowStatusFailure(t *testing.T) {
	wf := &fakeWorkflow{status: map[string]string{"x.json": "failed"}}
	p := New(wf, nil, Options{})
	_, err := p.Add(writeFiles(t, "x.json")...)
	require.NoError(t, err)

	sum, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Failed)
	assert.Contains(t, p.Items()[0].Error, "quota exceeded")
}

func TestRun_EmptyQueue(t *testing.T) {
	rec := &notice.Recorder{}
	p := New(&fakeWorkflow{}, rec, Options{})

	_, err := p.Run(context.Background())
	assert.ErrorIs(t, err, ErrEmptyQueue)
	assert.Len(t, rec.Level(notice.Error), 1)
}

func TestRun_OnlyPendingItems(t *testing.T) {
	wf := &fakeWorkflow{}
	p := New(wf, nil, Options{})
	_, err := p.Add(writeFiles(t, "a.txt")...)
	require.NoError(t, err)
	_, err = p.Run(context.Background())
	require.NoError(t, err)

	_, err = p.Add(writeFiles(t, "b.txt")...)
	require.NoError(t, err)
	sum, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Completed)
	assert.Equal(t, []string{"a.txt", "b.txt"}, wf.uploads)

	sum, err = p.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sum.Completed)
	assert.Len(t, wf.uploads, 2)
}

func TestRun_ProgressSteps(t *testing.T) {
	wf := &fakeWorkflow{uploadErr: map[string]error{"bad.txt": errors.New("down")}}
	var (
		mu     sync.Mutex
		events = map[string][]Step{}
	)
	p := New(wf, nil, Options{OnProgress: func(pr Progress) {
		mu.Lock()
		events[pr.Item.Name] = append(events[pr.Item.Name], pr.Step)
		mu.Unlock()
		assert.Equal(t, 2, pr.Total)
	}})
	_, err := p.Add(writeFiles(t, "good.txt", "bad.txt")...)
	require.NoError(t, err)
	assert.Equal(t, StepUpload, p.Step())

	_, err = p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []Step{StepUpload, StepProcess, StepDone}, events["good.txt"])
	assert.Equal(t, []Step{StepUpload, StepDone}, events["bad.txt"])
}

func TestRun_SequentialByDefault(t *testing.T) {
	wf := &fakeWorkflow{delay: map[string]time.Duration{"a.txt": 10 * time.Millisecond, "b.txt": 10 * time.Millisecond}}
	p := New(wf, nil, Options{})
	_, err := p.Add(writeFiles(t, "a.txt", "b.txt", "c.txt")...)
	require.NoError(t, err)

	_, err = p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), wf.maxInflight.Load())
}

func TestRun_PoolKeepsQueueOrder(t *testing.T) {
	wf := &fakeWorkflow{
		outputs: textOutputs("a.txt", "A", "b.txt", "B", "c.txt", "C", "d.txt", "D"),
		delay:   map[string]time.Duration{"a.txt": 40 * time.Millisecond, "b.txt": 20 * time.Millisecond},
	}
	p := New(wf, nil, Options{Workers: 2})
	_, err := p.Add(writeFiles(t, "a.txt", "b.txt", "c.txt", "d.txt")...)
	require.NoError(t, err)

	sum, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C", "D"}, outputs(sum.Results))
	assert.Equal(t, []string{"A", "B", "C", "D"}, outputs(p.Results()))
	assert.LessOrEqual(t, wf.maxInflight.Load(), int32(2))
}

func TestProcessor_BusyWhileRunning(t *testing.T) {
	wf := &fakeWorkflow{block: make(chan struct{})}
	p := New(wf, nil, Options{})
	added, err := p.Add(writeFiles(t, "a.txt")...)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = p.Run(context.Background())
	}()
	require.Eventually(t, p.Processing, time.Second, 5*time.Millisecond)

	assert.Equal(t, StepProcess, p.Step())
	_, err = p.Add(writeFiles(t, "b.txt")...)
	assert.ErrorIs(t, err, ErrBusy)
	assert.ErrorIs(t, p.Remove(added[0].ID), ErrBusy)
	assert.ErrorIs(t, p.Reset(), ErrBusy)
	_, err = p.Run(context.Background())
	assert.ErrorIs(t, err, ErrBusy)

	close(wf.block)
	<-done
	assert.False(t, p.Processing())
}

func TestProcessor_AddRemoveReset(t *testing.T) {
	p := New(&fakeWorkflow{}, nil, Options{})
	paths := writeFiles(t, "notes.md", "tool.exe", "deck.PPTX")

	added, err := p.Add(paths...)
	assert.ErrorIs(t, err, ErrUnsupportedFile)
	require.Len(t, added, 2)
	assert.Equal(t, "notes.md", added[0].Name)
	assert.Equal(t, int64(len("content of notes.md")), added[0].Size)
	assert.Equal(t, models.StatusPending, added[0].Status)

	require.NoError(t, p.Remove(added[0].ID))
	assert.Len(t, p.Items(), 1)
	assert.ErrorIs(t, p.Remove(added[0].ID), ErrNoItem)

	require.NoError(t, p.Reset())
	assert.Empty(t, p.Items())
	assert.Empty(t, p.Results())
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name    string
		status  string
		outputs map[string]any
		want    string
		wantErr bool
	}{
		{"text output", "succeeded", map[string]any{"text": "summary", "score": 3}, "summary", false},
		{"key value lines", "succeeded", map[string]any{"title": "Plan", "score": 3, "tags": []any{"a"}}, "score: 3\ntags: [\"a\"]\ntitle: Plan", false},
		{"no outputs", "succeeded", nil, "", false},
		{"failed run", "failed", map[string]any{"text": "ignored"}, "", true},
		{"stopped run", "stopped", nil, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var run api.WorkflowRun
			run.Data.Status = tt.status
			run.Data.Outputs = tt.outputs
			got, err := Aggregate(run)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
