package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var ErrNoSession = errors.New("not logged in")

const (
	sessionFile = "session.json"
	noticeFile  = "notice"
)

// Store persists the session and the last-seen notice under a directory.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (st *Store) Dir() string {
	return st.dir
}

// Load returns the persisted session or ErrNoSession.
func (st *Store) Load() (*Session, error) {
	data, err := os.ReadFile(filepath.Join(st.dir, sessionFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &s, nil
}

func (st *Store) Save(s *Session) error {
	if s == nil {
		return ErrNoSession
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return st.write(sessionFile, data)
}

// Clear removes the persisted session. The last-seen notice is kept.
func (st *Store) Clear() error {
	err := os.Remove(filepath.Join(st.dir, sessionFile))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

func (st *Store) LastNotice() (string, error) {
	data, err := os.ReadFile(filepath.Join(st.dir, noticeFile))
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read notice: %w", err)
	}
	return string(data), nil
}

// RecordNotice reports whether notice should be shown: it must be
// non-blank and differ from the last one seen. A fresh notice is persisted.
func (st *Store) RecordNotice(notice string) (bool, error) {
	if strings.TrimSpace(notice) == "" {
		return false, nil
	}
	last, err := st.LastNotice()
	if err != nil {
		return false, err
	}
	if last == notice {
		return false, nil
	}
	if err := st.write(noticeFile, []byte(notice)); err != nil {
		return true, err
	}
	return true, nil
}

// write replaces name atomically.
func (st *Store) write(name string, data []byte) error {
	if err := os.MkdirAll(st.dir, 0o700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	tmp, err := os.CreateTemp(st.dir, name+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	return os.Rename(tmp.Name(), filepath.Join(st.dir, name))
}
