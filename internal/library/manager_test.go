package library

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anyspecs/anyspecs/internal/api"
	"github.com/anyspecs/anyspecs/internal/models"
	"github.com/anyspecs/anyspecs/internal/notice"
	"github.com/anyspecs/anyspecs/internal/session"
)

type fakeBackend struct {
	pages     map[int][]models.File
	search    map[string][]models.File
	listErr   error
	searchErr error
	uploadErr error
	uploaded  []api.Upload
	listCalls []int
}

func (f *fakeBackend) ListFiles(_ context.Context, p int) ([]models.File, error) {
	f.listCalls = append(f.listCalls, p)
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.pages[p], nil
}

func (f *fakeBackend) SearchFiles(_ context.Context, keyword string) ([]models.File, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.search[keyword], nil
}

func (f *fakeBackend) UploadFiles(_ context.Context, uploads ...api.Upload) error {
	if f.uploadErr != nil {
		return f.uploadErr
	}
	f.uploaded = append(f.uploaded, uploads...)
	return nil
}

func newManager(t *testing.T, b *fakeBackend) (*Manager, *notice.Recorder) {
	t.Helper()
	rec := &notice.Recorder{}
	return NewManager(b, &session.Session{User: models.User{ID: 1}}, rec, DefaultPageSize), rec
}

func TestManager_LoadReplacesAndAppends(t *testing.T) {
	files := genFiles(30, 7)
	b := &fakeBackend{pages: map[int][]models.File{0: files[:20], 1: files[15:30]}}
	m, _ := newManager(t, b)
	ctx := context.Background()

	require.NoError(t, m.Load(ctx, 0))
	assert.Len(t, m.Files(), 20)

	require.NoError(t, m.LoadMore(ctx))
	assert.Len(t, m.Files(), 30, "overlapping records are not duplicated")
	assert.Equal(t, []int{0, 1}, b.listCalls)

	require.NoError(t, m.Load(ctx, 0))
	assert.Len(t, m.Files(), 20, "offset 0 replaces")
}

func TestManager_FailureLeavesStateUnchanged(t *testing.T) {
	files := genFiles(15, 4)
	b := &fakeBackend{pages: map[int][]models.File{0: files}}
	m, rec := newManager(t, b)
	ctx := context.Background()

	require.NoError(t, m.Load(ctx, 0))
	m.SetPage(2)
	before := m.View()

	b.listErr = errors.New("connection refused")
	assert.Error(t, m.Load(ctx, 0))
	b.searchErr = errors.New("bad gateway")
	assert.Error(t, m.Search(ctx, "notes"))

	assert.Equal(t, before, m.View())
	assert.Len(t, rec.Level(notice.Error), 2)
}

func TestManager_SearchAndEmptyKeywordRestores(t *testing.T) {
	files := genFiles(20, 5)
	b := &fakeBackend{
		pages:  map[int][]models.File{0: files},
		search: map[string][]models.File{"plan": files[:2]},
	}
	m, _ := newManager(t, b)
	ctx := context.Background()

	require.NoError(t, m.Load(ctx, 0))
	initial := m.View()

	require.NoError(t, m.Search(ctx, "  plan "))
	v := m.View()
	assert.Equal(t, "plan", v.Keyword)
	assert.Equal(t, 2, v.Matching)
	assert.ErrorIs(t, m.LoadMore(ctx), ErrSearchActive)

	require.NoError(t, m.Search(ctx, ""))
	assert.Equal(t, initial, m.View())
}

func TestManager_CategoryResetsPageWithoutFetching(t *testing.T) {
	b := &fakeBackend{pages: map[int][]models.File{0: genFiles(60, 8)}}
	m, _ := newManager(t, b)
	require.NoError(t, m.Load(context.Background(), 0))

	m.SetPage(3)
	assert.Equal(t, 3, m.View().Page)

	m.SetCategory(CategoryMine)
	v := m.View()
	assert.Equal(t, 1, v.Page)
	assert.Equal(t, 20, v.Matching)
	assert.Equal(t, Counts{Total: 60, Mine: 20, Shared: 40}, v.Counts)
	assert.Equal(t, []int{0}, b.listCalls)
}

func TestManager_PageNavigationClamps(t *testing.T) {
	b := &fakeBackend{pages: map[int][]models.File{0: genFiles(25, 1)}}
	m, _ := newManager(t, b)
	require.NoError(t, m.Load(context.Background(), 0))

	m.PrevPage()
	assert.Equal(t, 1, m.View().Page)
	m.NextPage()
	m.NextPage()
	m.NextPage()
	v := m.View()
	assert.Equal(t, 3, v.Page)
	assert.Len(t, v.Items, 1)
}

func TestManager_SortView(t *testing.T) {
	files := []models.File{
		{ID: 1, Filename: "b.txt", Size: 10},
		{ID: 2, Filename: "a.txt", Size: 30},
		{ID: 3, Filename: "c.txt", Size: 20},
	}
	m, _ := newManager(t, &fakeBackend{pages: map[int][]models.File{0: files}})
	require.NoError(t, m.Load(context.Background(), 0))

	m.SetSort(SortFilename)
	assert.Equal(t, []int{2, 1, 3}, ids(m.View().Items))
	m.SetSort(SortSize)
	assert.Equal(t, []int{2, 3, 1}, ids(m.View().Items))
}

func TestManager_RemoveAndLookup(t *testing.T) {
	files := genFiles(13, 6)
	m, _ := newManager(t, &fakeBackend{pages: map[int][]models.File{0: files}})
	require.NoError(t, m.Load(context.Background(), 0))
	m.SetPage(2)

	victim := m.View().Items[0]
	_, ok := m.Lookup(victim.ID)
	require.True(t, ok)

	m.Remove(victim.ID)
	_, ok = m.Lookup(victim.ID)
	assert.False(t, ok)
	assert.Len(t, m.Files(), 12)
	assert.Equal(t, 1, m.View().Page, "page clamps after the last record of page 2 goes")
}

func TestManager_Upload(t *testing.T) {
	b := &fakeBackend{pages: map[int][]models.File{0: genFiles(3, 1)}}
	m, rec := newManager(t, b)
	ctx := context.Background()

	require.NoError(t, m.Upload(ctx))
	assert.Empty(t, b.listCalls)

	require.NoError(t, m.Upload(ctx, api.Upload{Name: "a.txt", Data: []byte("a")}, api.Upload{Name: "b.txt", Data: []byte("b")}))
	assert.Len(t, b.uploaded, 2)
	assert.Equal(t, []int{0}, b.listCalls)
	assert.Equal(t, []string{"2 file(s) uploaded"}, rec.Level(notice.Success))
	assert.Len(t, m.Files(), 3)

	b.uploadErr = errors.New("too large")
	assert.Error(t, m.Upload(ctx, api.Upload{Name: "c.txt"}))
	assert.Len(t, rec.Level(notice.Error), 1)
}

func TestManager_SetSessionChangesMine(t *testing.T) {
	m, _ := newManager(t, &fakeBackend{pages: map[int][]models.File{0: genFiles(6, 2)}})
	require.NoError(t, m.Load(context.Background(), 0))
	m.SetCategory(CategoryMine)
	assert.Equal(t, 2, m.View().Matching)

	m.SetSession(nil)
	assert.Equal(t, 0, m.View().Matching)
	assert.Nil(t, m.Session())
}
