package runlog

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

// fileSuffix is appended to the key to form the record's file name.
const fileSuffix = "_log.json"

// FileRepository stores one JSON file per run key in a directory. The
// directory is created on the first write.
type FileRepository struct {
	dir string
	log zerolog.Logger
}

// NewFileRepository creates a repository rooted at dir.
func NewFileRepository(dir string, log zerolog.Logger) *FileRepository {
	return &FileRepository{
		dir: dir,
		log: log.With().Str("repo", "run_files").Logger(),
	}
}

// Dir returns the storage directory.
func (r *FileRepository) Dir() string {
	return r.dir
}

func (r *FileRepository) path(key Key) string {
	return filepath.Join(r.dir, string(key)+fileSuffix)
}

// Put writes the record, replacing any existing file for the key. The file is
// written to a temporary name and renamed so readers never see a partial file.
func (r *FileRepository) Put(ctx context.Context, key Key, record *Record) error {
	if !key.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := EncodeRecord(record)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(r.dir, 0755); err != nil {
		return fmt.Errorf("failed to create run directory: %w", err)
	}

	tmp, err := os.CreateTemp(r.dir, "."+string(key)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", key, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write run %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close run file %s: %w", key, err)
	}
	if err := os.Rename(tmpPath, r.path(key)); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to move run file %s into place: %w", key, err)
	}

	r.log.Debug().Str("key", string(key)).Str("path", r.path(key)).Msg("Run record written")
	return nil
}

// Get reads and validates the record for key.
func (r *FileRepository) Get(ctx context.Context, key Key) (*Record, error) {
	if !key.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(r.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrMissingRun, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read run %s: %w", key, err)
	}

	record, err := DecodeRecord(data)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", key, err)
	}
	return record, nil
}

// List returns the stored keys in lexical order. A missing directory holds no
// runs.
func (r *FileRepository) List(ctx context.Context) ([]Key, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(r.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []Key{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list run directory: %w", err)
	}

	keys := make([]Key, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		key := Key(strings.TrimSuffix(name, fileSuffix))
		if key.Valid() {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys, nil
}

// Delete removes the record for key. Deleting an absent key returns
// ErrMissingRun.
func (r *FileRepository) Delete(ctx context.Context, key Key) error {
	if !key.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	err := os.Remove(r.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrMissingRun, key)
	}
	if err != nil {
		return fmt.Errorf("failed to delete run %s: %w", key, err)
	}
	return nil
}
