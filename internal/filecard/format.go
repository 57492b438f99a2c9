package filecard

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/anyspecs/anyspecs/internal/models"
)

type Icon string

const (
	IconCode Icon = "code"
	IconText Icon = "text"
	IconFile Icon = "file"
)

// IconFor picks the card icon from the file extension.
func IconFor(f models.File) Icon {
	switch f.Ext() {
	case "specs", "json":
		return IconCode
	case "txt", "md":
		return IconText
	default:
		return IconFile
	}
}

// FormatSize renders a byte count as B, KB, MB or GB with one decimal.
func FormatSize(size int64) string {
	const unit = 1024
	switch {
	case size < unit:
		return fmt.Sprintf("%d B", size)
	case size < unit*unit:
		return fmt.Sprintf("%.1f KB", float64(size)/unit)
	case size < unit*unit*unit:
		return fmt.Sprintf("%.1f MB", float64(size)/(unit*unit))
	default:
		return fmt.Sprintf("%.1f GB", float64(size)/(unit*unit*unit))
	}
}

// FormatDate describes t relative to now in calendar days: today,
// yesterday, "N days ago" up to a week, then a long date.
func FormatDate(t, now time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	t = t.In(now.Location())
	y1, m1, d1 := t.Date()
	y2, m2, d2 := now.Date()
	days := int(time.Date(y2, m2, d2, 0, 0, 0, 0, time.UTC).Sub(time.Date(y1, m1, d1, 0, 0, 0, 0, time.UTC)).Hours() / 24)
	if days < 0 {
		days = -days
	}
	switch {
	case days == 0:
		return "today"
	case days == 1:
		return "yesterday"
	case days <= 7:
		return fmt.Sprintf("%d days ago", days)
	default:
		return t.Format("January 2, 2006")
	}
}

// RenderPreview formats content for display. JSON and .specs files are
// pretty-printed when they parse; everything else is shown verbatim.
func RenderPreview(content []byte, f models.File) string {
	switch f.Ext() {
	case "specs", "json":
		if !json.Valid(content) {
			break
		}
		var buf bytes.Buffer
		if err := json.Indent(&buf, bytes.TrimSpace(content), "", "  "); err == nil {
			return buf.String()
		}
	}
	return string(content)
}
