// Package indexstore caches built indexes in memory and on disk, keyed by
// the BLAKE3 hash of their source identity.
package indexstore

import (
	"encoding/hex"
	"fmt"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/user/framefetch/pkg/index"
	"github.com/user/framefetch/pkg/ports"
	"github.com/zeebo/blake3"
)

// DefaultEntries is the in-memory cache size used when none is given.
const DefaultEntries = 64

// Ext is the file extension of persisted indexes.
const Ext = ".ffix"

// Store is an index cache. A Store with no directory keeps indexes in
// memory only.
type Store struct {
	fs    ports.FileSystem
	dir   string
	cache *lru.Cache[string, *index.Index]
}

// New creates a store persisting to dir through fs.
func New(fs ports.FileSystem, dir string, entries int) (*Store, error) {
	if entries <= 0 {
		entries = DefaultEntries
	}
	cache, err := lru.New[string, *index.Index](entries)
	if err != nil {
		return nil, fmt.Errorf("lru.New: %w", err)
	}
	return &Store{fs: fs, dir: dir, cache: cache}, nil
}

// Key derives the cache key for a source identity.
func Key(identity string) string {
	sum := blake3.Sum256([]byte(identity))
	return hex.EncodeToString(sum[:])
}

// Path returns the file the index of identity is persisted to.
func (s *Store) Path(identity string) string {
	return filepath.Join(s.dir, Key(identity)+Ext)
}

// Load returns the cached index for identity. A missing entry is not an
// error; a corrupt file is.
func (s *Store) Load(identity string) (*index.Index, bool, error) {
	key := Key(identity)
	if x, ok := s.cache.Get(key); ok {
		return x, true, nil
	}
	if s.dir == "" || s.fs == nil {
		return nil, false, nil
	}

	path := s.Path(identity)
	exists, err := s.fs.Exists(path)
	if err != nil {
		return nil, false, fmt.Errorf("check %s: %w", path, err)
	}
	if !exists {
		return nil, false, nil
	}
	data, err := s.fs.ReadFile(path)
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", path, err)
	}
	x, err := index.Unmarshal(data)
	if err != nil {
		return nil, false, fmt.Errorf("load %s: %w", path, err)
	}
	s.cache.Add(key, x)
	return x, true, nil
}

// Save stores x for identity.
func (s *Store) Save(identity string, x *index.Index) error {
	s.cache.Add(Key(identity), x)
	if s.dir == "" || s.fs == nil {
		return nil
	}
	data, err := index.Marshal(x)
	if err != nil {
		return err
	}
	if err := s.fs.MkdirAll(s.dir); err != nil {
		return fmt.Errorf("create %s: %w", s.dir, err)
	}
	if err := s.fs.WriteFile(s.Path(identity), data); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	return nil
}

// Forget drops the index of identity from memory and disk.
func (s *Store) Forget(identity string) error {
	s.cache.Remove(Key(identity))
	if s.dir == "" || s.fs == nil {
		return nil
	}
	path := s.Path(identity)
	exists, err := s.fs.Exists(path)
	if err != nil || !exists {
		return err
	}
	return s.fs.Remove(path)
}

var _ ports.IndexCache = (*Store)(nil)

// Len returns the number of indexes held in memory.
func (s *Store) Len() int {
	return s.cache.Len()
}
