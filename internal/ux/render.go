package ux

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"

	"github.com/anyspecs/anyspecs/internal/filecard"
	"github.com/anyspecs/anyspecs/internal/library"
	"github.com/anyspecs/anyspecs/internal/models"
)

type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatTable, FormatJSON, FormatYAML:
		return f, nil
	case "":
		return FormatTable, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want table, json or yaml)", s)
	}
}

// Encode writes v as JSON or YAML.
func Encode(w io.Writer, v any, f Format) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("format %q cannot encode values", f)
	}
}

// RenderPage writes one page of the listing in format f.
func RenderPage(w io.Writer, page library.Page, f Format, now time.Time) error {
	if f != FormatTable {
		return Encode(w, page, f)
	}
	_, err := io.WriteString(w, PageTable(page, now, -1)+"\n")
	return err
}

// PageTable renders the page as a table with a status line. The row at
// selected is highlighted; pass -1 for none.
func PageTable(page library.Page, now time.Time, selected int) string {
	var b strings.Builder
	b.WriteString(CountsLine(page))
	b.WriteString("\n")

	if len(page.Items) == 0 {
		b.WriteString(Styles.Muted.Render("No files"))
		return b.String()
	}

	rows := make([][]string, len(page.Items))
	for i, f := range page.Items {
		rows[i] = []string{
			strconv.Itoa(f.ID),
			f.Filename,
			f.Uploader,
			filecard.FormatSize(f.Size),
			filecard.FormatDate(f.UploadTime.Time, now),
		}
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(ColorBorder)).
		Headers("ID", "NAME", "UPLOADER", "SIZE", "UPLOADED").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				return s.Bold(true).Foreground(ColorPrimary)
			}
			if row == selected {
				return s.Inherit(Styles.Selected)
			}
			return s
		})
	b.WriteString(t.String())
	b.WriteString("\n")
	b.WriteString(Styles.Muted.Render(fmt.Sprintf("Page %d of %d", page.Page, page.TotalPages)))
	return b.String()
}

// CountsLine summarizes the listing: counters, filter, sort and search.
func CountsLine(page library.Page) string {
	parts := []string{
		fmt.Sprintf("%d files", page.Counts.Total),
		fmt.Sprintf("%d mine", page.Counts.Mine),
		fmt.Sprintf("%d shared", page.Counts.Shared),
		"showing " + string(page.Category),
		"sorted by " + string(page.Sort),
	}
	if page.Keyword != "" {
		parts = append(parts, fmt.Sprintf("search %q", page.Keyword))
	}
	return Styles.Muted.Render(strings.Join(parts, " · "))
}

// RenderCard draws a single file record with its share link.
func RenderCard(f models.File, link string, canDelete bool, now time.Time) string {
	lines := []string{
		Styles.Title.Render(fmt.Sprintf("[%s] %s", filecard.IconFor(f), f.Filename)),
	}
	if f.Description != "" {
		lines = append(lines, f.Description)
	}
	lines = append(lines,
		Styles.Muted.Render(fmt.Sprintf("%s · %s · by %s",
			filecard.FormatSize(f.Size), filecard.FormatDate(f.UploadTime.Time, now), f.Uploader)),
		Styles.Muted.Render(fmt.Sprintf("%d downloads", f.Downloads)),
		link,
	)
	if canDelete {
		lines = append(lines, Styles.Warning.Render("you can delete this file"))
	}
	return Styles.Card.Render(strings.Join(lines, "\n"))
}
