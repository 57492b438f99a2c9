// Package tui is the interactive file browser.
package tui

import (
	"context"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/anyspecs/anyspecs/internal/library"
	"github.com/anyspecs/anyspecs/internal/ux"
)

const help = "←/→ page · ↑/↓ select · enter details · s sort · c mine/all · m more · r refresh · q quit"

var sortCycle = []library.SortKey{library.SortUploadTime, library.SortFilename, library.SortSize}

type Options struct {
	SystemName string
	Footer     string
	// LinkFor turns a stored link into the public download URL.
	LinkFor func(link string) string
	Now     func() time.Time
}

type loadedMsg struct{ err error }

// BrowseModel pages through the file library.
type BrowseModel struct {
	ctx      context.Context
	mgr      *library.Manager
	opts     Options
	selected int
	detail   bool
	loading  bool
	err      error
	quitting bool
}

func NewBrowseModel(ctx context.Context, mgr *library.Manager, opts Options) BrowseModel {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.LinkFor == nil {
		opts.LinkFor = func(link string) string { return link }
	}
	return BrowseModel{ctx: ctx, mgr: mgr, opts: opts, loading: true}
}

func (m BrowseModel) load(fn func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return loadedMsg{err: fn(ctx)}
	}
}

// Init implements tea.Model.
func (m BrowseModel) Init() tea.Cmd {
	return m.load(m.mgr.Refresh)
}

// Update implements tea.Model.
func (m BrowseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		m.loading = false
		m.err = msg.err
		m.clampSelection()
		return m, nil

	case tea.KeyMsg:
		if m.detail {
			switch msg.String() {
			case "q", "ctrl+c":
				m.quitting = true
				return m, tea.Quit
			case "esc", "enter", "backspace":
				m.detail = false
			}
			return m, nil
		}

		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "right", "l":
			m.mgr.NextPage()
			m.selected = 0
		case "left", "h":
			m.mgr.PrevPage()
			m.selected = 0
		case "down", "j":
			m.selected++
			m.clampSelection()
		case "up", "k":
			if m.selected > 0 {
				m.selected--
			}
		case "enter":
			if len(m.mgr.View().Items) > 0 {
				m.detail = true
			}
		case "s":
			m.mgr.SetSort(nextSort(m.mgr.View().Sort))
			m.selected = 0
		case "c":
			if m.mgr.View().Category == library.CategoryMine {
				m.mgr.SetCategory(library.CategoryAll)
			} else {
				m.mgr.SetCategory(library.CategoryMine)
			}
			m.selected = 0
		case "r":
			m.loading = true
			return m, m.load(m.mgr.Refresh)
		case "m":
			m.loading = true
			return m, m.load(m.mgr.LoadMore)
		}
	}
	return m, nil
}

func (m *BrowseModel) clampSelection() {
	n := len(m.mgr.View().Items)
	if m.selected >= n {
		m.selected = n - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
}

func nextSort(k library.SortKey) library.SortKey {
	for i, s := range sortCycle {
		if s == k {
			return sortCycle[(i+1)%len(sortCycle)]
		}
	}
	return sortCycle[0]
}

// View implements tea.Model.
func (m BrowseModel) View() string {
	if m.quitting {
		return ""
	}
	page := m.mgr.View()
	now := m.opts.Now()

	var b strings.Builder
	b.WriteString(ux.Header(m.mgr.Session(), m.opts.SystemName, "Files"))
	b.WriteString("\n\n")

	if m.detail && m.selected < len(page.Items) {
		f := page.Items[m.selected]
		canDelete := m.mgr.Session().IsAdmin() || m.mgr.Session().Owns(f)
		b.WriteString(ux.RenderCard(f, m.opts.LinkFor(f.Link), canDelete, now))
		b.WriteString("\n")
		b.WriteString(ux.Styles.Muted.Render("esc back · q quit"))
	} else {
		b.WriteString(ux.PageTable(page, now, m.selected))
		b.WriteString("\n")
		b.WriteString(ux.Styles.Muted.Render(help))
	}
	b.WriteString("\n")

	switch {
	case m.loading:
		b.WriteString(ux.Styles.Muted.Render("Loading…"))
	case m.err != nil:
		b.WriteString(ux.Styles.Error.Render(m.err.Error()))
	}
	b.WriteString("\n")
	b.WriteString(ux.Footer(m.opts.Footer))
	return b.String()
}

// Selected returns the index of the highlighted row on the current page.
func (m BrowseModel) Selected() int {
	return m.selected
}
