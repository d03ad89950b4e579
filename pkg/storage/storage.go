// Package storage provides file storage confined to a single local directory.
// Writes are staged in a hidden subdirectory and published with a no-clobber
// commit, so a file is either fully present under its final key or absent.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/JaimeStill/shelf/pkg/lifecycle"
)

// StagingDir is the subdirectory of the root holding in-flight uploads.
const StagingDir = ".staging"

const stagingPattern = "upload-*.tmp"

// System manages files under a single storage root.
type System interface {
	// Start ensures the storage root and staging area exist and clears staging
	// files left behind by a previous run. It must return before the first Stage.
	Start(lc *lifecycle.Coordinator) error
	// Root returns the absolute storage root.
	Root() string
	// Stage buffers reader into the staging area. Returns ErrLimitExceeded
	// when more than limit bytes are available. The caller must Discard the result.
	Stage(ctx context.Context, reader io.Reader, limit int64) (*Staged, error)
	// Commit publishes a staged file under key. Returns ErrExists if key is taken.
	Commit(ctx context.Context, staged *Staged, key string) error
	// Resolve returns the absolute path of the regular file stored under key.
	// Returns ErrNotFound if it does not exist.
	Resolve(ctx context.Context, key string) (string, error)
	// Open returns the file stored under key. The caller must close it.
	Open(ctx context.Context, key string) (*os.File, fs.FileInfo, error)
	// Delete removes the file stored under key. Returns ErrNotFound if it does not exist.
	Delete(ctx context.Context, key string) error
	// List returns every regular file directly under the root.
	List(ctx context.Context) ([]Entry, error)
}

// Entry describes a stored file found by List.
type Entry struct {
	Key  string
	Path string
	Info fs.FileInfo
}

type local struct {
	root     string
	staging  string
	dirPerm  fs.FileMode
	filePerm fs.FileMode
	logger   *slog.Logger
}

// New creates a storage system rooted at cfg.Root.
// The root is made absolute but not created until Start is called.
func New(cfg *Config, logger *slog.Logger) (System, error) {
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root %s: %w", cfg.Root, err)
	}

	return &local{
		root:     root,
		staging:  filepath.Join(root, StagingDir),
		dirPerm:  cfg.DirPerm(),
		filePerm: cfg.FilePerm(),
		logger:   logger.With("system", "storage"),
	}, nil
}

func (l *local) Start(lc *lifecycle.Coordinator) error {
	l.logger.Info("starting storage system", "root", l.root)

	if err := os.MkdirAll(l.staging, l.dirPerm); err != nil {
		return fmt.Errorf("create storage root %s: %w", l.root, err)
	}

	removed := l.purgeStaging()
	l.logger.Info("storage root ready", "root", l.root, "stale_staged", removed)

	return nil
}

func (l *local) Root() string {
	return l.root
}

func (l *local) Stage(ctx context.Context, reader io.Reader, limit int64) (*Staged, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.CreateTemp(l.staging, stagingPattern)
	if err != nil {
		return nil, fmt.Errorf("create staging file: %w", err)
	}

	staged := &Staged{file: f}

	n, err := io.Copy(f, io.LimitReader(reader, limit+1))
	staged.size = n
	if err != nil {
		staged.Discard()
		return nil, fmt.Errorf("stage upload: %w", err)
	}

	if n > limit {
		staged.Discard()
		return nil, ErrLimitExceeded
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		staged.Discard()
		return nil, fmt.Errorf("rewind staging file: %w", err)
	}

	return staged, nil
}

func (l *local) Commit(ctx context.Context, staged *Staged, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := staged.seal(l.filePerm); err != nil {
		return err
	}

	target := filepath.Join(l.root, key)

	err := os.Link(staged.path(), target)
	if err == nil {
		return nil
	}
	if errors.Is(err, fs.ErrExist) {
		return ErrExists
	}
	if !linkUnsupported(err) {
		return fmt.Errorf("commit %s: %w", key, err)
	}

	l.logger.Debug("hard link commit unavailable, falling back to rename", "key", key, "error", err)

	if _, statErr := os.Lstat(target); statErr == nil {
		return ErrExists
	}
	if err := os.Rename(staged.path(), target); err != nil {
		return fmt.Errorf("commit %s: %w", key, err)
	}

	return nil
}

func (l *local) Resolve(ctx context.Context, key string) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}

	target := filepath.Join(l.root, key)
	if rel, err := filepath.Rel(l.root, target); err != nil || rel != key {
		return "", ErrInvalidKey
	}

	info, err := os.Lstat(target)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("stat %s: %w", key, err)
	}
	if !info.Mode().IsRegular() {
		return "", ErrNotFound
	}

	return target, nil
}

func (l *local) Open(ctx context.Context, key string) (*os.File, fs.FileInfo, error) {
	target, err := l.Resolve(ctx, key)
	if err != nil {
		return nil, nil, err
	}

	f, err := os.Open(target)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("open %s: %w", key, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("stat %s: %w", key, err)
	}

	return f, info, nil
}

func (l *local) Delete(ctx context.Context, key string) error {
	target, err := l.Resolve(ctx, key)
	if err != nil {
		return err
	}

	if err := os.Remove(target); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("delete %s: %w", key, err)
	}

	l.logger.Info("file deleted", "key", key)
	return nil
}

func (l *local) List(ctx context.Context) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dirEntries, err := os.ReadDir(l.root)
	if err != nil {
		return nil, fmt.Errorf("read storage root: %w", err)
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		if !de.Type().IsRegular() || strings.HasPrefix(de.Name(), ".") {
			continue
		}

		info, err := de.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("stat %s: %w", de.Name(), err)
		}

		entries = append(entries, Entry{
			Key:  de.Name(),
			Path: filepath.Join(l.root, de.Name()),
			Info: info,
		})
	}

	return entries, nil
}

func (l *local) purgeStaging() int {
	matches, err := filepath.Glob(filepath.Join(l.staging, stagingPattern))
	if err != nil {
		return 0
	}

	removed := 0
	for _, m := range matches {
		if err := os.Remove(m); err != nil {
			l.logger.Warn("stale staging file not removed", "path", m, "error", err)
			continue
		}
		removed++
	}
	return removed
}

// linkUnsupported reports whether a hard link failed because the filesystem
// cannot create one, as opposed to a missing source or an I/O error.
func linkUnsupported(err error) bool {
	return errors.Is(err, syscall.EPERM) ||
		errors.Is(err, syscall.EXDEV) ||
		errors.Is(err, syscall.ENOTSUP) ||
		errors.Is(err, syscall.EOPNOTSUPP) ||
		errors.Is(err, syscall.EMLINK)
}

func validateKey(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if strings.ContainsAny(key, `/\`+"\x00") {
		return ErrInvalidKey
	}
	if strings.HasPrefix(key, ".") || !filepath.IsLocal(key) {
		return ErrInvalidKey
	}
	return nil
}
