package imagecache

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when an image id is unknown or its entry has
// expired. Expired entries are deleted as a side effect of the read.
var ErrNotFound = errors.New("image not found")

// Config holds the store's tunables.
type Config struct {
	Dir           string
	TTL           time.Duration
	SweepInterval time.Duration
}

// DefaultConfig returns the production configuration: images live for three
// minutes and the sweeper runs every minute, so no expired entry outlives
// TTL plus one sweep interval.
func DefaultConfig() Config {
	dir := os.Getenv("UPLOAD_DIR")
	if dir == "" {
		dir = "./uploads"
	}
	return Config{
		Dir:           dir,
		TTL:           3 * time.Minute,
		SweepInterval: time.Minute,
	}
}

// Store is a time-bounded disk cache of image payloads keyed by generated
// opaque ids. Entries are written once and never updated, so file mtime is
// the creation time.
type Store struct {
	dir    string
	ttl    time.Duration
	logger *slog.Logger
}

// NewStore creates a store over cfg.Dir, creating the directory if needed.
func NewStore(cfg Config) (*Store, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &Store{
		dir:    cfg.Dir,
		ttl:    cfg.TTL,
		logger: slog.Default(),
	}, nil
}

// Put persists the payload under a fresh id and returns the id. The ext is
// appended to the generated name; anything unsafe falls back to .png.
func (s *Store) Put(data []byte, ext string) (string, error) {
	id := uuid.New().String() + safeExt(ext)
	if err := os.WriteFile(filepath.Join(s.dir, id), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to store image: %w", err)
	}
	s.logger.Info("image cached", "id", id, "size", len(data))
	return id, nil
}

// Get returns the payload for id, failing closed: unknown ids and expired
// entries report ErrNotFound, and an expired entry is deleted before the
// miss is returned.
func (s *Store) Get(id string) ([]byte, error) {
	path, err := s.entryPath(id)
	if err != nil {
		return nil, ErrNotFound
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, ErrNotFound
	}

	if age := time.Since(info.ModTime()); age > s.ttl {
		s.logger.Info("image expired on read", "id", id, "age", age)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			s.logger.Error("failed to evict expired image", "id", id, "error", err)
		}
		return nil, ErrNotFound
	}

	data, err := os.ReadFile(path)
	if err != nil {
		// Lost a race with the sweeper; the entry is simply gone.
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	return data, nil
}

// Sweep deletes every expired entry. Individual failures are logged and the
// scan continues. Returns the number of entries removed.
func (s *Store) Sweep() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to scan upload dir: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			s.logger.Error("failed to stat cache entry", "name", entry.Name(), "error", err)
			continue
		}
		if time.Since(info.ModTime()) <= s.ttl {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil && !os.IsNotExist(err) {
			s.logger.Error("failed to remove expired image", "name", entry.Name(), "error", err)
			continue
		}
		removed++
	}

	if removed > 0 {
		s.logger.Info("sweep removed expired images", "count", removed)
	}
	return removed, nil
}

// PurgeAll deletes every entry. Invoked at service start so nothing survives
// a process restart.
func (s *Store) PurgeAll() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("failed to scan upload dir: %w", err)
	}

	purged := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil {
			s.logger.Error("failed to purge image", "name", entry.Name(), "error", err)
			continue
		}
		purged++
	}

	s.logger.Info("purged image cache", "count", purged)
	return nil
}

// Count returns the number of cached entries, for the health surface.
func (s *Store) Count() int {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0
	}
	n := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			n++
		}
	}
	return n
}

// entryPath validates an id and resolves it inside the cache directory. Ids
// are a UUID plus extension; anything else (including traversal attempts) is
// rejected.
func (s *Store) entryPath(id string) (string, error) {
	if id != filepath.Base(id) {
		return "", ErrNotFound
	}
	name, _, _ := strings.Cut(id, ".")
	if _, err := uuid.Parse(name); err != nil {
		return "", ErrNotFound
	}
	return filepath.Join(s.dir, id), nil
}

// safeExt keeps simple ".letters-or-digits" extensions only.
func safeExt(ext string) string {
	if len(ext) < 2 || len(ext) > 8 || ext[0] != '.' {
		return ".png"
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ".png"
		}
	}
	return ext
}
