// Package library implements the file manager: the local filter, sort and
// pagination over fetched records, and the state that ties them to the
// backend's list, search and upload endpoints.
package library

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/anyspecs/anyspecs/internal/models"
	"github.com/anyspecs/anyspecs/internal/session"
)

// DefaultPageSize is the number of records on one page.
const DefaultPageSize = 12

type Category string

const (
	CategoryAll  Category = "all"
	CategoryMine Category = "mine"
)

func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return CategoryAll, nil
	case "mine", "my":
		return CategoryMine, nil
	default:
		return "", fmt.Errorf("unknown category %q (want all or mine)", s)
	}
}

type SortKey string

const (
	SortFilename   SortKey = "filename"
	SortUploadTime SortKey = "upload_time"
	SortSize       SortKey = "file_size"
)

func ParseSortKey(s string) (SortKey, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "upload_time", "time":
		return SortUploadTime, nil
	case "filename", "name":
		return SortFilename, nil
	case "file_size", "size":
		return SortSize, nil
	default:
		return "", fmt.Errorf("unknown sort key %q (want filename, upload_time or file_size)", s)
	}
}

// Filter returns the records visible under cat. CategoryMine keeps only
// records uploaded by the session user; without a session it keeps none.
func Filter(files []models.File, cat Category, sess *session.Session) []models.File {
	out := make([]models.File, 0, len(files))
	for _, f := range files {
		if cat == CategoryMine && !sess.Owns(f) {
			continue
		}
		out = append(out, f)
	}
	return out
}

// Sort returns a sorted copy of files: filenames ascending, upload times
// newest first, sizes largest first. Ties keep their fetched order.
func Sort(files []models.File, key SortKey) []models.File {
	out := slices.Clone(files)
	switch key {
	case SortFilename:
		slices.SortStableFunc(out, func(a, b models.File) int {
			return strings.Compare(a.Filename, b.Filename)
		})
	case SortUploadTime:
		slices.SortStableFunc(out, func(a, b models.File) int {
			return b.UploadTime.Compare(a.UploadTime.Time)
		})
	case SortSize:
		slices.SortStableFunc(out, func(a, b models.File) int {
			return cmp.Compare(b.Size, a.Size)
		})
	}
	return out
}

// TotalPages is ceil(n / size).
func TotalPages(n, size int) int {
	if size <= 0 || n <= 0 {
		return 0
	}
	return (n + size - 1) / size
}

// ClampPage maps any requested 1-based page into [1, max(totalPages, 1)].
func ClampPage(page, totalPages int) int {
	if page < 1 || totalPages < 1 {
		return 1
	}
	if page > totalPages {
		return totalPages
	}
	return page
}

// Paginate returns the records of the clamped page together with that page
// number and the page count.
func Paginate(files []models.File, page, size int) ([]models.File, int, int) {
	if size <= 0 {
		size = DefaultPageSize
	}
	total := TotalPages(len(files), size)
	page = ClampPage(page, total)
	start := (page - 1) * size
	if start >= len(files) {
		return []models.File{}, page, total
	}
	end := min(start+size, len(files))
	return files[start:end], page, total
}

// Counts are the sidebar statistics of the fetched records.
type Counts struct {
	Total  int `json:"total" yaml:"total"`
	Mine   int `json:"mine" yaml:"mine"`
	Shared int `json:"shared" yaml:"shared"`
}

func Count(files []models.File, sess *session.Session) Counts {
	c := Counts{Total: len(files)}
	for _, f := range files {
		if sess.Owns(f) {
			c.Mine++
		}
	}
	c.Shared = c.Total - c.Mine
	return c
}
