package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

// LocalStore serves job files from a directory on disk.
type LocalStore struct {
	root   string
	fsys   fs.FS
	logger zerolog.Logger
}

func NewLocalStore(root string, logger zerolog.Logger) (*LocalStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage root: %w", err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage root %s is not a directory", abs)
	}

	logger.Info().Str("root", abs).Msg("Using local job store")

	return &LocalStore{
		root:   abs,
		fsys:   os.DirFS(abs),
		logger: logger,
	}, nil
}

func (s *LocalStore) Provider() string {
	return "local"
}

// clean maps a key onto an fs.FS path, refusing anything that escapes the root.
func clean(key string) (string, error) {
	p := path.Clean(strings.TrimPrefix(filepath.ToSlash(key), "/"))
	if p == "" || p == "." {
		return ".", nil
	}
	if !fs.ValidPath(p) {
		return "", fmt.Errorf("%w %q", ErrInvalidKey, key)
	}
	return p, nil
}

func (s *LocalStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	p, err := clean(key)
	if err != nil {
		return false, err
	}

	info, err := fs.Stat(s.fsys, p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check file existence: %w", err)
	}
	return !info.IsDir(), nil
}

func (s *LocalStore) List(ctx context.Context, prefix string) ([]string, error) {
	p, err := clean(prefix)
	if err != nil {
		return nil, err
	}

	var keys []string
	err = fs.WalkDir(s.fsys, p, func(name string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.IsDir() {
			keys = append(keys, name)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	sort.Strings(keys)
	return keys, nil
}

func (s *LocalStore) Read(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p, err := clean(key)
	if err != nil {
		return nil, err
	}

	data, err := fs.ReadFile(s.fsys, p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", key, ErrObjectNotFound)
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	s.logger.Debug().Str("key", key).Int("size", len(data)).Msg("File read from local store")
	return data, nil
}

func (s *LocalStore) Ping(ctx context.Context) error {
	if _, err := os.Stat(s.root); err != nil {
		return fmt.Errorf("storage root unavailable: %w", err)
	}
	return ctx.Err()
}
