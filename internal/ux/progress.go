package ux

import (
	"fmt"
	"strings"

	"github.com/anyspecs/anyspecs/internal/models"
	"github.com/anyspecs/anyspecs/internal/processor"
)

// Steps renders the upload/process/done indicator with current active.
func Steps(current processor.Step) string {
	var parts []string
	for _, s := range processor.Steps() {
		label := strings.ToUpper(s.String()[:1]) + s.String()[1:]
		switch {
		case s < current:
			parts = append(parts, Styles.Success.Render("✓ "+label))
		case s == current:
			parts = append(parts, Styles.Active.Render("● "+label))
		default:
			parts = append(parts, Styles.Muted.Render("○ "+label))
		}
	}
	return strings.Join(parts, Styles.Muted.Render(" → "))
}

// StatusIcon marks an item status.
func StatusIcon(s models.ItemStatus) string {
	switch s {
	case models.StatusCompleted:
		return Styles.Success.Render("✓")
	case models.StatusFailed:
		return Styles.Error.Render("✗")
	case models.StatusProcessing:
		return Styles.Active.Render("…")
	default:
		return Styles.Muted.Render("○")
	}
}

// ProgressLine describes one progress event.
func ProgressLine(p processor.Progress) string {
	line := fmt.Sprintf("[%d/%d] %s %s %s", p.Index+1, p.Total, StatusIcon(p.Item.Status), p.Item.Name, Styles.Muted.Render(p.Step.String()))
	if p.Item.Status.Terminal() && p.Item.Error != "" {
		line += " " + Styles.Error.Render(p.Item.Error)
	}
	return line
}

// RenderResults lists results in order with their output.
func RenderResults(results []models.Result) string {
	if len(results) == 0 {
		return Styles.Muted.Render("Results will appear here once processing finishes")
	}
	blocks := make([]string, len(results))
	for i, r := range results {
		blocks[i] = Styles.Card.Render(
			Styles.Title.Render(r.FileName) + "\n" + r.Output + "\n" +
				Styles.Muted.Render(r.Timestamp.Format(models.TimeLayout)))
	}
	return strings.Join(blocks, "\n")
}
