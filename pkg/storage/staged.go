package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
)

// Staged is an upload buffered in the staging area.
// It is not visible through List or Resolve until committed.
type Staged struct {
	file   *os.File
	size   int64
	closed bool
}

// Size returns the number of buffered bytes.
func (s *Staged) Size() int64 {
	return s.size
}

// Reader returns a seekable reader over the buffered bytes, rewound to the start.
// It is invalid after the first Commit attempt or Discard.
func (s *Staged) Reader() (io.ReadSeeker, error) {
	if s.closed {
		return nil, fmt.Errorf("staged file already sealed")
	}
	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind staging file: %w", err)
	}
	return s.file, nil
}

// Discard closes and removes the staging file. Safe to call more than once
// and after a successful Commit.
func (s *Staged) Discard() error {
	if !s.closed {
		s.file.Close()
		s.closed = true
	}
	if err := os.Remove(s.file.Name()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove staging file: %w", err)
	}
	return nil
}

func (s *Staged) path() string {
	return s.file.Name()
}

// seal flushes and closes the staging file ahead of a commit. Sealing an
// already sealed file is a no-op so a commit can be retried under another key.
func (s *Staged) seal(perm fs.FileMode) error {
	if s.closed {
		return nil
	}
	if err := s.file.Chmod(perm); err != nil {
		return fmt.Errorf("chmod staging file: %w", err)
	}
	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("sync staging file: %w", err)
	}
	if err := s.file.Close(); err != nil {
		return fmt.Errorf("close staging file: %w", err)
	}
	s.closed = true
	return nil
}
