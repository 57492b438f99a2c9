package processor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/anyspecs/anyspecs/internal/api"
	"github.com/anyspecs/anyspecs/internal/models"
	"github.com/anyspecs/anyspecs/internal/notice"
	"github.com/anyspecs/anyspecs/internal/utils"
)

var ErrNoResults = errors.New("no results to report")

// Uploader re-uploads a report into the file library.
type Uploader interface {
	UploadFiles(ctx context.Context, uploads ...api.Upload) error
}

// ReportStore keeps exported reports and returns a link to them.
type ReportStore interface {
	PutReport(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// BuildReport assembles results into a plain-text document.
func BuildReport(results []models.Result, now time.Time) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "AnySpecs processing report\n")
	fmt.Fprintf(&b, "Generated: %s\n", now.Format(models.TimeLayout))
	fmt.Fprintf(&b, "Files: %d\n", len(results))
	for _, r := range results {
		fmt.Fprintf(&b, "\n== %s (%s)\n", r.FileName, r.Timestamp.Format(models.TimeLayout))
		b.WriteString(r.Output)
		b.WriteString("\n")
	}
	return b.Bytes()
}

// ReportName is the file name used when a report is saved or uploaded.
func ReportName(now time.Time) string {
	return "anyspecs-report-" + now.Format("20060102-150405") + ".txt"
}

func (p *Processor) report() (string, []byte, error) {
	results := p.Results()
	if len(results) == 0 {
		return "", nil, ErrNoResults
	}
	now := p.now()
	return ReportName(now), BuildReport(results, now), nil
}

// SaveReport writes the report to path.
func (p *Processor) SaveReport(path string) error {
	_, data, err := p.report()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		notice.Errorf(p.notices, "Cannot save report: %v", err)
		return err
	}
	notice.Successf(p.notices, "Report saved to %s", path)
	return nil
}

// UploadReport adds the report to the file library and returns its name.
func (p *Processor) UploadReport(ctx context.Context, up Uploader) (string, error) {
	name, data, err := p.report()
	if err != nil {
		return "", err
	}
	if err := up.UploadFiles(ctx, api.Upload{Name: name, Data: data}); err != nil {
		notice.Errorf(p.notices, "Cannot upload report: %v", err)
		return "", err
	}
	notice.Successf(p.notices, "Report uploaded as %s", name)
	return name, nil
}

// ExportReport stores the report under a dated key and returns the link
// the store hands back.
func (p *Processor) ExportReport(ctx context.Context, store ReportStore) (string, error) {
	name, data, err := p.report()
	if err != nil {
		return "", err
	}
	key := utils.ObjectKey("reports", name, p.now())
	url, err := store.PutReport(ctx, key, data, mimetype.Detect(data).String())
	if err != nil {
		notice.Errorf(p.notices, "Cannot export report: %v", err)
		return "", err
	}
	notice.Successf(p.notices, "Report exported to %s", key)
	return url, nil
}
