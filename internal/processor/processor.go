// Package processor runs selected documents through the remote workflow,
// one at a time by default, and collects the summaries it returns.
package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/anyspecs/anyspecs/internal/api"
	"github.com/anyspecs/anyspecs/internal/models"
	"github.com/anyspecs/anyspecs/internal/notice"
)

var (
	ErrInvalidTransition = models.ErrInvalidTransition
	ErrBusy              = errors.New("processing is in progress")
	ErrEmptyQueue        = errors.New("no files to process")
	ErrUnsupportedFile   = errors.New("unsupported file type")
	ErrNoItem            = errors.New("no such item")
)

// Accepted lists the extensions a document may have to be queued.
var Accepted = []string{
	".txt", ".md", ".py", ".js", ".html", ".css", ".json", ".xml", ".yaml", ".yml",
	".pdf", ".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx",
}

func accepted(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, a := range Accepted {
		if ext == a {
			return true
		}
	}
	return false
}

// Workflow is the remote side of processing: a document upload followed
// by a workflow run over the uploaded file.
type Workflow interface {
	DifyUpload(ctx context.Context, u api.Upload, user string) (api.DifyFile, error)
	RunWorkflow(ctx context.Context, in api.WorkflowRequest) (api.WorkflowRun, error)
}

type Options struct {
	User          string
	InputVariable string
	// Workers above 1 processes items on a bounded pool. Results are still
	// recorded in queue order.
	Workers    int
	OnProgress func(Progress)
}

type Summary struct {
	Completed int
	Failed    int
	// Unauthorized counts the failures the workflow proxy rejected with 401.
	Unauthorized int
	Results      []models.Result
}

func (s *Summary) add(r *models.Result, err error) {
	if r == nil {
		s.Failed++
		if api.IsUnauthorized(err) {
			s.Unauthorized++
		}
		return
	}
	s.Completed++
	s.Results = append(s.Results, *r)
}

type Processor struct {
	wf      Workflow
	notices notice.Sink
	opts    Options
	now     func() time.Time

	mu      sync.Mutex
	items   []*models.Item
	results []models.Result
	running bool
}

func New(wf Workflow, notices notice.Sink, opts Options) *Processor {
	if notices == nil {
		notices = notice.Discard
	}
	if opts.User == "" {
		opts.User = "chat-user"
	}
	if opts.InputVariable == "" {
		opts.InputVariable = "file"
	}
	return &Processor{wf: wf, notices: notices, opts: opts, now: time.Now}
}

// Add queues the files at paths. Files with an unsupported extension or
// that cannot be read are skipped and reported in the returned error;
// the rest are queued as pending.
func (p *Processor) Add(paths ...string) ([]models.Item, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return nil, ErrBusy
	}

	var (
		added []models.Item
		errs  []error
	)
	for _, path := range paths {
		name := filepath.Base(path)
		if !accepted(name) {
			errs = append(errs, fmt.Errorf("%s: %w", name, ErrUnsupportedFile))
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if info.IsDir() {
			errs = append(errs, fmt.Errorf("%s: %w", name, ErrUnsupportedFile))
			continue
		}
		it := models.NewItem(name, path, info.Size())
		p.items = append(p.items, it)
		added = append(added, *it)
	}
	return added, errors.Join(errs...)
}

// Remove drops a queued item. Items cannot be removed during a run.
func (p *Processor) Remove(id uuid.UUID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return ErrBusy
	}
	for i, it := range p.items {
		if it.ID == id {
			p.items = append(p.items[:i], p.items[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrNoItem, id)
}

// Reset clears the queue and every recorded result.
func (p *Processor) Reset() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return ErrBusy
	}
	p.items = nil
	p.results = nil
	return nil
}

func (p *Processor) Items() []models.Item {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.Item, len(p.items))
	for i, it := range p.items {
		out[i] = *it
	}
	return out
}

func (p *Processor) Results() []models.Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.Result(nil), p.results...)
}

// Processing is true from the start of a run until the last item's
// outcome is recorded.
func (p *Processor) Processing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Step is the page-level indicator: process while running, done once
// results exist, upload otherwise.
func (p *Processor) Step() Step {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch {
	case p.running:
		return StepProcess
	case len(p.results) > 0:
		return StepDone
	default:
		return StepUpload
	}
}

// Run processes every pending item. A failed item is marked failed and
// reported once; the run continues with the next item.
func (p *Processor) Run(ctx context.Context) (Summary, error) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return Summary{}, ErrBusy
	}
	if len(p.items) == 0 {
		p.mu.Unlock()
		notice.Errorf(p.notices, "Add files before processing")
		return Summary{}, ErrEmptyQueue
	}
	var queue []*models.Item
	for _, it := range p.items {
		if it.Status == models.StatusPending {
			queue = append(queue, it)
		}
	}
	if len(queue) == 0 {
		p.mu.Unlock()
		notice.Infof(p.notices, "No pending files to process")
		return Summary{}, nil
	}
	p.running = true
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.running = false
		p.mu.Unlock()
	}()

	var sum Summary
	if p.opts.Workers <= 1 {
		for i, it := range queue {
			r, err := p.process(ctx, i, len(queue), it)
			if r != nil {
				p.record(*r)
			}
			sum.add(r, err)
		}
	} else {
		type outcome struct {
			result *models.Result
			err    error
		}
		outcomes := make([]outcome, len(queue))
		var g errgroup.Group
		g.SetLimit(p.opts.Workers)
		for i, it := range queue {
			g.Go(func() error {
				r, err := p.process(ctx, i, len(queue), it)
				outcomes[i] = outcome{r, err}
				return nil
			})
		}
		_ = g.Wait()
		for _, o := range outcomes {
			if o.result != nil {
				p.record(*o.result)
			}
			sum.add(o.result, o.err)
		}
	}

	if sum.Failed == 0 {
		notice.Successf(p.notices, "All files processed")
	} else {
		p.notices.Notify(notice.Notice{
			Level:   notice.Warning,
			Message: fmt.Sprintf("%d of %d files processed", sum.Completed, len(queue)),
		})
	}
	return sum, nil
}

func (p *Processor) record(r models.Result) {
	p.mu.Lock()
	p.results = append(p.results, r)
	p.mu.Unlock()
}

func (p *Processor) setStatus(it *models.Item, next models.ItemStatus, cause error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := it.Transition(next); err != nil {
		return err
	}
	if cause != nil {
		it.Error = cause.Error()
	}
	return nil
}

func (p *Processor) progress(i, n int, it *models.Item, s Step) {
	if p.opts.OnProgress == nil {
		return
	}
	p.mu.Lock()
	snapshot := *it
	p.mu.Unlock()
	p.opts.OnProgress(Progress{Index: i, Total: n, Item: snapshot, Step: s})
}

// process runs one item. A nil result means the item failed; the error
// is the cause, already reported as a notice.
func (p *Processor) process(ctx context.Context, i, n int, it *models.Item) (*models.Result, error) {
	if err := p.setStatus(it, models.StatusProcessing, nil); err != nil {
		log.Printf("process %s: %v", it.Name, err)
		return nil, err
	}
	p.progress(i, n, it, StepUpload)

	out, fields, err := p.execute(ctx, i, n, it)
	if err != nil {
		log.Printf("process %s: %v", it.Name, err)
		if serr := p.setStatus(it, models.StatusFailed, err); serr != nil {
			log.Printf("process %s: %v", it.Name, serr)
		}
		notice.Errorf(p.notices, "Processing %s failed: %v", it.Name, err)
		p.progress(i, n, it, StepDone)
		return nil, err
	}

	if err := p.setStatus(it, models.StatusCompleted, nil); err != nil {
		log.Printf("process %s: %v", it.Name, err)
		return nil, err
	}
	p.progress(i, n, it, StepDone)
	return &models.Result{
		ID:        uuid.New(),
		ItemID:    it.ID,
		FileName:  it.Name,
		Output:    out,
		Fields:    fields,
		Timestamp: p.now(),
	}, nil
}

func (p *Processor) execute(ctx context.Context, i, n int, it *models.Item) (string, map[string]any, error) {
	upload, err := api.ReadUpload(it.Path)
	if err != nil {
		return "", nil, err
	}
	f, err := p.wf.DifyUpload(ctx, upload, p.opts.User)
	if err != nil {
		return "", nil, err
	}
	p.progress(i, n, it, StepProcess)

	run, err := p.wf.RunWorkflow(ctx, api.WorkflowRequest{
		Inputs:       map[string]any{p.opts.InputVariable: api.FileInput(f)},
		ResponseMode: "blocking",
		User:         p.opts.User,
	})
	if err != nil {
		return "", nil, err
	}
	out, err := Aggregate(run)
	if err != nil {
		return "", nil, err
	}
	return out, run.Data.Outputs, nil
}

// Aggregate turns a workflow run into display text: the "text" output when
// present, otherwise every output as "key: value" lines sorted by key.
func Aggregate(run api.WorkflowRun) (string, error) {
	if run.Data.Status != "succeeded" {
		msg := run.Data.Error
		if msg == "" {
			msg = "no error detail"
		}
		return "", fmt.Errorf("workflow %s: %s", run.Data.Status, msg)
	}
	if text, ok := run.Data.Outputs["text"].(string); ok {
		return text, nil
	}

	keys := make([]string, 0, len(run.Data.Outputs))
	for k := range run.Data.Outputs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+": "+formatValue(run.Data.Outputs[k]))
	}
	return strings.Join(lines, "\n"), nil
}

func formatValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
