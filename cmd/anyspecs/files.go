package main

import (
	"context"
	"fmt"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/anyspecs/anyspecs/internal/api"
	"github.com/anyspecs/anyspecs/internal/filecard"
	"github.com/anyspecs/anyspecs/internal/library"
	"github.com/anyspecs/anyspecs/internal/models"
	"github.com/anyspecs/anyspecs/internal/tui"
	"github.com/anyspecs/anyspecs/internal/ux"
)

// maxLookupPages bounds how many offsets are fetched to find a file by id.
const maxLookupPages = 50

type listFlags struct {
	page     int
	more     int
	category string
	sortKey  string
}

func (f *listFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.page, "page", 1, "page to show")
	cmd.Flags().IntVar(&f.more, "more", 0, "load this many additional server pages")
	cmd.Flags().StringVar(&f.category, "category", string(library.CategoryAll), "all or mine")
	cmd.Flags().StringVar(&f.sortKey, "sort", string(library.SortUploadTime), "sort by filename, upload_time or file_size")
}

func (f *listFlags) apply(m *library.Manager) error {
	key, err := library.ParseSortKey(f.sortKey)
	if err != nil {
		return err
	}
	cat, err := library.ParseCategory(f.category)
	if err != nil {
		return err
	}
	m.SetSort(key)
	m.SetCategory(cat)
	m.SetPage(f.page)
	return nil
}

func (a *app) filesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "files",
		Aliases: []string{"file", "f"},
		Short:   "Browse and manage the shared file library",
	}
	cmd.AddCommand(
		a.filesListCmd(),
		a.filesSearchCmd(),
		a.filesUploadCmd(),
		a.filesDeleteCmd(),
		a.filesPreviewCmd(),
		a.filesDownloadCmd(),
		a.filesShareCmd(),
	)
	return cmd
}

func (a *app) showPage(m *library.Manager) error {
	return ux.RenderPage(a.out, m.View(), a.format, a.now())
}

func (a *app) filesListCmd() *cobra.Command {
	var flags listFlags
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List files",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := a.context(cmd)
			m := a.manager()
			if err := m.Refresh(ctx); err != nil {
				return err
			}
			for i := 0; i < flags.more; i++ {
				if err := m.LoadMore(ctx); err != nil {
					return err
				}
			}
			if err := flags.apply(m); err != nil {
				return err
			}
			return a.showPage(m)
		},
	}
	flags.register(cmd)
	return cmd
}

func (a *app) filesSearchCmd() *cobra.Command {
	var flags listFlags
	cmd := &cobra.Command{
		Use:   "search <keyword>",
		Short: "Search files by keyword",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m := a.manager()
			if err := m.Search(a.context(cmd), args[0]); err != nil {
				return err
			}
			if err := flags.apply(m); err != nil {
				return err
			}
			return a.showPage(m)
		},
	}
	flags.register(cmd)
	return cmd
}

func (a *app) filesUploadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upload <path>...",
		Short: "Upload one or more files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.requireSession(); err != nil {
				return err
			}
			uploads := make([]api.Upload, 0, len(args))
			for _, path := range args {
				u, err := api.ReadUpload(path)
				if err != nil {
					return err
				}
				uploads = append(uploads, u)
			}
			m := a.manager()
			if err := m.Upload(a.context(cmd), uploads...); err != nil {
				return err
			}
			return a.showPage(m)
		},
	}
}

// findFile loads offsets until the record with id shows up.
func (a *app) findFile(ctx context.Context, m *library.Manager, id int) (models.File, error) {
	if err := m.Refresh(ctx); err != nil {
		return models.File{}, err
	}
	for i := 0; i < maxLookupPages; i++ {
		if f, ok := m.Lookup(id); ok {
			return f, nil
		}
		before := len(m.Files())
		if err := m.LoadMore(ctx); err != nil {
			return models.File{}, err
		}
		if len(m.Files()) == before {
			break
		}
	}
	return models.File{}, fmt.Errorf("file %d not found", id)
}

// card resolves the id argument into a file card.
func (a *app) card(ctx context.Context, arg string) (*filecard.Card, error) {
	id, err := strconv.Atoi(arg)
	if err != nil {
		return nil, fmt.Errorf("invalid file id %q", arg)
	}
	m := a.manager()
	f, err := a.findFile(ctx, m, id)
	if err != nil {
		return nil, err
	}
	return filecard.New(f, a.client, a.client.Session(), a.printer, m.Remove), nil
}

func (a *app) filesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a file you uploaded",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.requireSession(); err != nil {
				return err
			}
			ctx := a.context(cmd)
			c, err := a.card(ctx, args[0])
			if err != nil {
				return err
			}
			return c.Delete(ctx)
		},
	}
}

func (a *app) filesPreviewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "preview <id>",
		Short: "Show a file's details and content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := a.context(cmd)
			c, err := a.card(ctx, args[0])
			if err != nil {
				return err
			}
			content, err := c.Preview(ctx)
			if err != nil {
				return err
			}
			if ok, err := a.encode(map[string]any{"file": c.File, "link": c.ShareLink(), "content": content}); ok {
				return err
			}
			a.println(ux.RenderCard(c.File, c.ShareLink(), c.CanDelete(), a.now()))
			a.println(content)
			return nil
		},
	}
}

func (a *app) filesDownloadCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "download <id>",
		Short: "Save a file to disk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := a.context(cmd)
			c, err := a.card(ctx, args[0])
			if err != nil {
				return err
			}
			_, err = c.Download(ctx, dir)
			return err
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "directory to save into")
	return cmd
}

func (a *app) filesShareCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "share <id>",
		Short: "Print a file's public link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.card(a.context(cmd), args[0])
			if err != nil {
				return err
			}
			a.println(c.ShareLink())
			return nil
		},
	}
}

func (a *app) browseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Browse the library interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := a.context(cmd)
			var footer, name string
			if status, err := a.client.Status(ctx); err == nil {
				footer, name = status.FooterHTML, status.SystemName
			}
			// Notices would corrupt the alternate screen; the model shows load errors itself.
			m := library.NewManager(a.client, a.client.Session(), nil, a.cfg.PageSize)
			model := tui.NewBrowseModel(ctx, m, tui.Options{
				SystemName: name,
				Footer:     footer,
				LinkFor:    a.client.FileURL,
				Now:        a.now,
			})
			_, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
			return err
		},
	}
}
