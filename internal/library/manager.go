package library

import (
	"context"
	"errors"
	"log"
	"slices"
	"strings"
	"sync"

	"github.com/anyspecs/anyspecs/internal/api"
	"github.com/anyspecs/anyspecs/internal/models"
	"github.com/anyspecs/anyspecs/internal/notice"
	"github.com/anyspecs/anyspecs/internal/session"
)

var ErrSearchActive = errors.New("cannot load more while a search is active")

// Backend is the part of the API client the manager needs.
type Backend interface {
	ListFiles(ctx context.Context, p int) ([]models.File, error)
	SearchFiles(ctx context.Context, keyword string) ([]models.File, error)
	UploadFiles(ctx context.Context, uploads ...api.Upload) error
}

// Page is one rendered view of the listing.
type Page struct {
	Items      []models.File `json:"items" yaml:"items"`
	Page       int           `json:"page" yaml:"page"`
	TotalPages int           `json:"total_pages" yaml:"total_pages"`
	Matching   int           `json:"matching" yaml:"matching"`
	Counts     Counts        `json:"counts" yaml:"counts"`
	Category   Category      `json:"category" yaml:"category"`
	Sort       SortKey       `json:"sort" yaml:"sort"`
	Keyword    string        `json:"keyword,omitempty" yaml:"keyword,omitempty"`
}

// Manager holds the listing state of the file manager. Every mutation
// replaces state only after the backend call succeeded; failures are
// reported to the notice sink and leave the previous state in place.
type Manager struct {
	backend  Backend
	notices  notice.Sink
	pageSize int

	mu       sync.Mutex
	sess     *session.Session
	files    []models.File
	offset   int
	keyword  string
	category Category
	sortKey  SortKey
	page     int
}

func NewManager(backend Backend, sess *session.Session, notices notice.Sink, pageSize int) *Manager {
	if notices == nil {
		notices = notice.Discard
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Manager{
		backend:  backend,
		notices:  notices,
		pageSize: pageSize,
		sess:     sess,
		category: CategoryAll,
		sortKey:  SortUploadTime,
		page:     1,
	}
}

// Load fetches the records at offset p. Offset 0 replaces the listing and
// clears any search; later offsets append records not already present.
func (m *Manager) Load(ctx context.Context, p int) error {
	if p < 0 {
		p = 0
	}
	files, err := m.backend.ListFiles(ctx, p)
	if err != nil {
		log.Printf("load files p=%d: %v", p, err)
		notice.Errorf(m.notices, "Failed to load files: %v", err)
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if p == 0 {
		m.files = dedupe(nil, files)
		m.keyword = ""
	} else {
		m.files = dedupe(m.files, files)
	}
	m.offset = p
	m.page = ClampPage(m.page, TotalPages(len(m.visible()), m.pageSize))
	return nil
}

// Refresh reloads from offset 0 and returns to the first page.
func (m *Manager) Refresh(ctx context.Context) error {
	if err := m.Load(ctx, 0); err != nil {
		return err
	}
	m.mu.Lock()
	m.page = 1
	m.mu.Unlock()
	return nil
}

// LoadMore appends the next offset page.
func (m *Manager) LoadMore(ctx context.Context) error {
	m.mu.Lock()
	searching, next := m.keyword != "", m.offset+1
	m.mu.Unlock()
	if searching {
		return ErrSearchActive
	}
	return m.Load(ctx, next)
}

// Search replaces the listing with the server's matches for keyword. An
// empty keyword restores the default listing from offset 0.
func (m *Manager) Search(ctx context.Context, keyword string) error {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return m.Refresh(ctx)
	}

	files, err := m.backend.SearchFiles(ctx, keyword)
	if err != nil {
		log.Printf("search %q: %v", keyword, err)
		notice.Errorf(m.notices, "Search failed: %v", err)
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.files = dedupe(nil, files)
	m.keyword = keyword
	m.offset = 0
	m.page = 1
	return nil
}

// Upload sends files to the library and reloads the first page.
func (m *Manager) Upload(ctx context.Context, uploads ...api.Upload) error {
	if len(uploads) == 0 {
		return nil
	}
	if err := m.backend.UploadFiles(ctx, uploads...); err != nil {
		log.Printf("upload %d files: %v", len(uploads), err)
		notice.Errorf(m.notices, "Upload failed: %v", err)
		return err
	}
	notice.Successf(m.notices, "%d file(s) uploaded", len(uploads))
	return m.Refresh(ctx)
}

// Remove drops a record after the server confirmed its deletion.
func (m *Manager) Remove(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files = slices.DeleteFunc(slices.Clone(m.files), func(f models.File) bool {
		return f.ID == id
	})
	m.page = ClampPage(m.page, TotalPages(len(m.visible()), m.pageSize))
}

// SetCategory switches the ownership filter and returns to page 1. It
// never re-queries the server.
func (m *Manager) SetCategory(c Category) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.category = c
	m.page = 1
}

func (m *Manager) SetSort(k SortKey) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sortKey = k
}

// SetPage moves to page n, clamped to the available range.
func (m *Manager) SetPage(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.page = ClampPage(n, TotalPages(len(m.visible()), m.pageSize))
}

func (m *Manager) NextPage() {
	m.mu.Lock()
	n := m.page + 1
	m.mu.Unlock()
	m.SetPage(n)
}

func (m *Manager) PrevPage() {
	m.mu.Lock()
	n := m.page - 1
	m.mu.Unlock()
	m.SetPage(n)
}

// SetSession swaps the identity used by the "mine" filter.
func (m *Manager) SetSession(s *session.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sess = s
	m.page = ClampPage(m.page, TotalPages(len(m.visible()), m.pageSize))
}

func (m *Manager) Session() *session.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sess
}

// Files returns a copy of every fetched record in fetch order.
func (m *Manager) Files() []models.File {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.files)
}

// Lookup finds a fetched record by id.
func (m *Manager) Lookup(id int) (models.File, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := slices.IndexFunc(m.files, func(f models.File) bool { return f.ID == id })
	if i < 0 {
		return models.File{}, false
	}
	return m.files[i], true
}

// View renders the current page.
func (m *Manager) View() Page {
	m.mu.Lock()
	defer m.mu.Unlock()
	visible := m.visible()
	items, page, total := Paginate(visible, m.page, m.pageSize)
	return Page{
		Items:      slices.Clone(items),
		Page:       page,
		TotalPages: total,
		Matching:   len(visible),
		Counts:     Count(m.files, m.sess),
		Category:   m.category,
		Sort:       m.sortKey,
		Keyword:    m.keyword,
	}
}

// visible is filter then sort. Callers hold m.mu.
func (m *Manager) visible() []models.File {
	return Sort(Filter(m.files, m.category, m.sess), m.sortKey)
}

// dedupe appends the records of more whose id is not yet in base.
func dedupe(base, more []models.File) []models.File {
	seen := make(map[int]struct{}, len(base)+len(more))
	out := make([]models.File, 0, len(base)+len(more))
	for _, f := range base {
		seen[f.ID] = struct{}{}
		out = append(out, f)
	}
	for _, f := range more {
		if _, ok := seen[f.ID]; ok {
			continue
		}
		seen[f.ID] = struct{}{}
		out = append(out, f)
	}
	return out
}
