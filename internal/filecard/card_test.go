package filecard

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anyspecs/anyspecs/internal/models"
	"github.com/anyspecs/anyspecs/internal/notice"
	"github.com/anyspecs/anyspecs/internal/session"
)

type fakeBackend struct {
	content    map[string]string
	fetchCalls int
	deleted    []int
	deleteErr  error

	// When release is set, FetchContent signals started and waits.
	started chan struct{}
	release chan struct{}
}

func inFlight(c *Card, a Action) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading[a]
}

func (f *fakeBackend) Download(_ context.Context, link string, w io.Writer) (int64, error) {
	body, ok := f.content[link]
	if !ok {
		return 0, errors.New("not found")
	}
	n, err := io.WriteString(w, body)
	return int64(n), err
}

func (f *fakeBackend) FetchContent(_ context.Context, link string) ([]byte, error) {
	f.fetchCalls++
	if f.release != nil {
		f.started <- struct{}{}
		<-f.release
	}
	body, ok := f.content[link]
	if !ok {
		return nil, errors.New("not found")
	}
	return []byte(body), nil
}

func (f *fakeBackend) DeleteFile(_ context.Context, id int) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeBackend) FileURL(link string) string {
	return "https://specs.example.com/upload/" + link
}

func TestCard_PreviewIsCached(t *testing.T) {
	b := &fakeBackend{content: map[string]string{"k1": `{"goal":"ship"}`}}
	c := New(models.File{ID: 1, Filename: "plan.json", Link: "k1"}, b, nil, nil, nil)

	first, err := c.Preview(context.Background())
	require.NoError(t, err)
	second, err := c.Preview(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "{\n  \"goal\": \"ship\"\n}", first)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, b.fetchCalls)
	assert.False(t, inFlight(c, ActionPreview))
}

func TestCard_PreviewFailureRetries(t *testing.T) {
	b := &fakeBackend{content: map[string]string{}}
	rec := &notice.Recorder{}
	c := New(models.File{ID: 1, Filename: "a.txt", Link: "k"}, b, nil, rec, nil)

	_, err := c.Preview(context.Background())
	assert.Error(t, err)
	b.content["k"] = "hello"
	got, err := c.Preview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "hello", got)
	assert.Equal(t, 2, b.fetchCalls)
	assert.Len(t, rec.Level(notice.Error), 1)
}

func TestCard_Download(t *testing.T) {
	dir := t.TempDir()
	b := &fakeBackend{content: map[string]string{"k": "payload"}}
	c := New(models.File{ID: 3, Filename: "../../escape.md", Link: "k"}, b, nil, nil, nil)

	path, err := c.Download(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "escape.md"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	missing := New(models.File{ID: 4, Filename: "gone.md", Link: "nope"}, b, nil, nil, nil)
	_, err = missing.Download(context.Background(), dir)
	assert.Error(t, err)
	_, statErr := os.Stat(filepath.Join(dir, "gone.md"))
	assert.True(t, os.IsNotExist(statErr), "partial download is removed")
}

func TestCard_DownloadKeepsExistingFileOnFailure(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "notes.md")
	require.NoError(t, os.WriteFile(target, []byte("my local work"), 0o644))
	b := &fakeBackend{content: map[string]string{"fresh": "server copy"}}

	c := New(models.File{ID: 5, Filename: "notes.md", Link: "missing"}, b, nil, nil, nil)
	_, err := c.Download(context.Background(), dir)
	require.Error(t, err)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "my local work", string(data))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary file is left behind")

	c = New(models.File{ID: 5, Filename: "notes.md", Link: "fresh"}, b, nil, nil, nil)
	path, err := c.Download(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, target, path)
	data, err = os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "server copy", string(data))
}

func TestCard_ActionRefusedWhileInFlight(t *testing.T) {
	b := &fakeBackend{
		content: map[string]string{"k": "body"},
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	c := New(models.File{ID: 1, Filename: "a.txt", Link: "k"}, b, nil, nil, nil)

	done := make(chan error, 1)
	go func() {
		_, err := c.Preview(context.Background())
		done <- err
	}()
	<-b.started
	assert.True(t, inFlight(c, ActionPreview))

	_, err := c.Preview(context.Background())
	assert.ErrorIs(t, err, ErrInProgress)

	close(b.release)
	require.NoError(t, <-done)
	assert.False(t, inFlight(c, ActionPreview))
	assert.Equal(t, 1, b.fetchCalls)
}

func TestCard_ShareLink(t *testing.T) {
	c := New(models.File{Link: "abc"}, &fakeBackend{}, nil, nil, nil)
	assert.Equal(t, "https://specs.example.com/upload/abc", c.ShareLink())
}

func TestCard_DeletePermissions(t *testing.T) {
	owner := &session.Session{User: models.User{ID: 5}}
	other := &session.Session{User: models.User{ID: 6}}
	admin := &session.Session{User: models.User{ID: 7, Role: models.RoleAdmin}}
	file := models.File{ID: 11, Filename: "x.md", UploaderID: 5}

	tests := []struct {
		name string
		sess *session.Session
		can  bool
	}{
		{"owner", owner, true},
		{"other user", other, false},
		{"admin", admin, true},
		{"anonymous", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &fakeBackend{}
			var removed []int
			c := New(file, b, tt.sess, nil, func(id int) { removed = append(removed, id) })

			assert.Equal(t, tt.can, c.CanDelete())
			err := c.Delete(context.Background())
			if !tt.can {
				assert.ErrorIs(t, err, ErrForbidden)
				assert.Empty(t, b.deleted, "no request is sent")
				assert.Empty(t, removed)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []int{11}, b.deleted)
			assert.Equal(t, []int{11}, removed)
		})
	}
}

func TestCard_DeleteFailureKeepsRecord(t *testing.T) {
	b := &fakeBackend{deleteErr: errors.New("server error")}
	removed := false
	c := New(models.File{ID: 1, UploaderID: 1}, b, &session.Session{User: models.User{ID: 1}}, nil, func(int) { removed = true })

	assert.Error(t, c.Delete(context.Background()))
	assert.False(t, removed)
	assert.False(t, inFlight(c, ActionDelete))
}
