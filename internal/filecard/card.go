// Package filecard implements the per-file actions of the library: preview,
// download, share link and delete.
package filecard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/anyspecs/anyspecs/internal/models"
	"github.com/anyspecs/anyspecs/internal/notice"
	"github.com/anyspecs/anyspecs/internal/session"
)

var (
	ErrForbidden  = errors.New("only the uploader or an administrator can delete this file")
	ErrInProgress = errors.New("action already in progress")
)

type Backend interface {
	Download(ctx context.Context, link string, w io.Writer) (int64, error)
	FetchContent(ctx context.Context, link string) ([]byte, error)
	DeleteFile(ctx context.Context, id int) error
	FileURL(link string) string
}

type Action string

const (
	ActionPreview  Action = "preview"
	ActionDownload Action = "download"
	ActionDelete   Action = "delete"
)

// Card wraps one record with its actions. Each action tracks its own
// in-flight flag and refuses to start twice; the preview content is
// fetched at most once.
type Card struct {
	File models.File

	backend  Backend
	sess     *session.Session
	notices  notice.Sink
	onDelete func(id int)

	mu      sync.Mutex
	loading map[Action]bool
	content []byte
	fetched bool
}

func New(f models.File, backend Backend, sess *session.Session, notices notice.Sink, onDelete func(id int)) *Card {
	if notices == nil {
		notices = notice.Discard
	}
	return &Card{
		File:     f,
		backend:  backend,
		sess:     sess,
		notices:  notices,
		onDelete: onDelete,
		loading:  make(map[Action]bool),
	}
}

// begin marks a as in flight. It fails while the same action is still
// running on this card.
func (c *Card) begin(a Action) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loading[a] {
		return fmt.Errorf("%s %s: %w", a, c.File.Filename, ErrInProgress)
	}
	c.loading[a] = true
	return nil
}

func (c *Card) end(a Action) {
	c.mu.Lock()
	c.loading[a] = false
	c.mu.Unlock()
}

// Preview returns the rendered content, fetching it on first use only.
func (c *Card) Preview(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.fetched {
		content := c.content
		c.mu.Unlock()
		return RenderPreview(content, c.File), nil
	}
	c.mu.Unlock()

	if err := c.begin(ActionPreview); err != nil {
		return "", err
	}
	defer c.end(ActionPreview)

	content, err := c.backend.FetchContent(ctx, c.File.Link)
	if err != nil {
		log.Printf("preview %s: %v", c.File.Link, err)
		notice.Errorf(c.notices, "Cannot preview %s: %v", c.File.Filename, err)
		return "", err
	}

	c.mu.Lock()
	c.content, c.fetched = content, true
	c.mu.Unlock()
	return RenderPreview(content, c.File), nil
}

// ShareLink is the public address of the file.
func (c *Card) ShareLink() string {
	return c.backend.FileURL(c.File.Link)
}

// Download saves the file into dir under its own base name and returns
// the written path.
func (c *Card) Download(ctx context.Context, dir string) (string, error) {
	if err := c.begin(ActionDownload); err != nil {
		return "", err
	}
	defer c.end(ActionDownload)

	name := filepath.Base(filepath.Clean("/" + c.File.Filename))
	if name == "/" || name == "." {
		name = fmt.Sprintf("file-%d", c.File.ID)
	}
	dst := filepath.Join(dir, name)

	// Written next to dst and renamed over it, so an existing file
	// survives a failed download.
	tmp, err := os.CreateTemp(dir, "."+name+".*")
	if err != nil {
		notice.Errorf(c.notices, "Download failed: %v", err)
		return "", err
	}
	_, err = c.backend.Download(ctx, c.File.Link, tmp)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Chmod(tmp.Name(), 0o644)
	}
	if err == nil {
		err = os.Rename(tmp.Name(), dst)
	}
	if err != nil {
		os.Remove(tmp.Name())
		log.Printf("download %s: %v", c.File.Link, err)
		notice.Errorf(c.notices, "Download failed: %v", err)
		return "", err
	}
	notice.Successf(c.notices, "Saved %s", dst)
	return dst, nil
}

// CanDelete reports whether the session user may delete the file.
func (c *Card) CanDelete() bool {
	return c.sess.IsAdmin() || c.sess.Owns(c.File)
}

// Delete removes the file on the server and, once confirmed, tells the
// owning list to drop it.
func (c *Card) Delete(ctx context.Context) error {
	if !c.CanDelete() {
		notice.Errorf(c.notices, "%v", ErrForbidden)
		return ErrForbidden
	}
	if err := c.begin(ActionDelete); err != nil {
		return err
	}
	defer c.end(ActionDelete)

	if err := c.backend.DeleteFile(ctx, c.File.ID); err != nil {
		log.Printf("delete %d: %v", c.File.ID, err)
		notice.Errorf(c.notices, "Delete failed: %v", err)
		return err
	}
	notice.Successf(c.notices, "Deleted %s", c.File.Filename)
	if c.onDelete != nil {
		c.onDelete(c.File.ID)
	}
	return nil
}
