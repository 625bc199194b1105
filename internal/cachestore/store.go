// Package cachestore implements the tiered cache described for the
// documentation engine: a bounded in-memory LRU tier backed by a
// gzip-compressed, checksummed on-disk tier keyed by ecosystem/package/
// version/item. All disk writes take a per-file advisory lock so
// concurrent server instances sharing a cache directory never interleave
// partial writes.
package cachestore

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/gzip"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/gofrs/flock"

	docerrors "github.com/Aman-CERP/polydocs-mcp/internal/docerrors"
)

// entry is the on-disk envelope written for every cache key.
type entry struct {
	Data         []byte            `json:"data"` // gzip-compressed payload
	CreatedAt    int64             `json:"created_at"`
	LastAccessed int64             `json:"last_accessed"`
	Size         int               `json:"size"` // uncompressed size
	Checksum     string            `json:"checksum"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// Stats summarizes cache occupancy and effectiveness.
type Stats struct {
	TotalEntries         int     `json:"total_entries"`
	TotalSizeBytes       int64   `json:"total_size_bytes"`
	MemoryCacheEntries   int     `json:"memory_cache_entries"`
	MemoryCacheSizeBytes int64   `json:"memory_cache_size_bytes"`
	HitRate              float64 `json:"hit_rate"`
	Hits                 int64   `json:"hits"`
	Misses               int64   `json:"misses"`
	Evictions            int64   `json:"evictions"`
	DiskUsageBytes       int64   `json:"disk_usage_bytes"`
}

// Store is a two-tier cache: a bounded hashicorp/golang-lru memory cache in
// front of a gzip-compressed disk cache under Dir.
type Store struct {
	dir    string
	memory *lru.Cache[string, []byte]
	logger *slog.Logger

	mu sync.Mutex // not locked by the current code paths; per-file writes use flock

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// New creates a Store rooted at dir with a memory tier capped at
// maxMemoryEntries items (the spec's memory_cache size of 100 for rendered
// item docs, or callers may size per-purpose stores independently).
func New(dir string, maxMemoryEntries int, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, docerrors.New(docerrors.ErrCodeCacheWriteLock, "failed to create cache directory", err)
	}

	onEvict := func(key string, _ []byte) {}
	memCache, err := lru.NewWithEvict[string, []byte](maxMemoryEntries, onEvict)
	if err != nil {
		return nil, docerrors.Wrap(docerrors.ErrCodeInternal, err)
	}

	return &Store{dir: dir, memory: memCache, logger: logger}, nil
}

// sanitizeKey turns a cache key made of arbitrary path-ish segments into a
// single filesystem-safe filename component.
func sanitizeKey(category, key string) string {
	safe := func(s string) string {
		var b bytes.Buffer
		for _, r := range s {
			switch {
			case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
				b.WriteRune(r)
			default:
				b.WriteRune('_')
			}
		}
		return b.String()
	}
	return fmt.Sprintf("%s_%s.cache", safe(category), safe(key))
}

func (s *Store) filePath(category, key string) string {
	return filepath.Join(s.dir, sanitizeKey(category, key))
}

func memKey(category, key string) string {
	return category + "\x00" + key
}

// Put compresses and persists data under (category, key), updating both
// cache tiers.
func (s *Store) Put(category, key string, data []byte) error {
	compressed, err := compress(data)
	if err != nil {
		return docerrors.Wrap(docerrors.ErrCodeInternal, err)
	}

	now := time.Now().Unix()
	sum := sha256.Sum256(data)

	e := entry{
		Data:         compressed,
		CreatedAt:    now,
		LastAccessed: now,
		Size:         len(data),
		Checksum:     hex.EncodeToString(sum[:]),
	}

	path := s.filePath(category, key)
	if err := writeEntryLocked(path, &e); err != nil {
		return err
	}

	s.memory.Add(memKey(category, key), data)
	s.logger.Debug("cache store: put", "category", category, "key", key, "bytes", len(data))
	return nil
}

// Get returns the cached payload for (category, key), checking the memory
// tier first and promoting disk hits back into memory.
func (s *Store) Get(category, key string) ([]byte, bool, error) {
	if data, ok := s.memory.Get(memKey(category, key)); ok {
		s.hits.Add(1)
		return data, true, nil
	}

	path := s.filePath(category, key)
	if _, err := os.Stat(path); err != nil {
		s.misses.Add(1)
		return nil, false, nil
	}

	e, err := readEntry(path)
	if err != nil {
		s.misses.Add(1)
		return nil, false, err
	}

	data, err := decompress(e.Data)
	if err != nil {
		s.logger.Warn("cache store: corrupt entry failed to decompress, removing", "category", category, "key", key, "error", err)
		_ = os.Remove(path)
		s.misses.Add(1)
		return nil, false, nil
	}

	sum := sha256.Sum256(data)
	if hex.EncodeToString(sum[:]) != e.Checksum {
		s.logger.Warn("cache store: checksum mismatch, removing corrupt entry", "category", category, "key", key)
		_ = os.Remove(path)
		s.misses.Add(1)
		return nil, false, nil
	}

	e.LastAccessed = time.Now().Unix()
	_ = writeEntryLocked(path, e) // best-effort last-accessed bump

	s.memory.Add(memKey(category, key), data)
	s.hits.Add(1)
	return data, true, nil
}

// PutJSON is a convenience wrapper that JSON-encodes v before storing it.
func (s *Store) PutJSON(category, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return docerrors.Wrap(docerrors.ErrCodeInternal, err)
	}
	return s.Put(category, key, data)
}

// GetJSON decodes a cached JSON payload into v. Returns ok=false on miss.
func (s *Store) GetJSON(category, key string, v any) (bool, error) {
	data, ok, err := s.Get(category, key)
	if err != nil || !ok {
		return ok, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, docerrors.New(docerrors.ErrCodeFileCorrupt, "cache entry is not valid JSON", err)
	}
	return true, nil
}

// Remove deletes an entry from both tiers, returning whether it existed.
func (s *Store) Remove(category, key string) (bool, error) {
	s.memory.Remove(memKey(category, key))

	path := s.filePath(category, key)
	if _, err := os.Stat(path); err != nil {
		return false, nil
	}
	if err := os.Remove(path); err != nil {
		return false, docerrors.Wrap(docerrors.ErrCodeInternal, err)
	}
	return true, nil
}

// Clear removes every entry from both tiers.
func (s *Store) Clear() error {
	s.memory.Purge()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return docerrors.Wrap(docerrors.ErrCodeInternal, err)
	}
	for _, de := range entries {
		if de.IsDir() || filepath.Ext(de.Name()) != ".cache" {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, de.Name())); err != nil {
			return docerrors.Wrap(docerrors.ErrCodeInternal, err)
		}
	}
	s.logger.Info("cache store: cleared all entries")
	return nil
}

// ClearMatching removes every disk entry whose sanitized filename contains
// fragment, e.g. a sanitized package key, returning the count of disk files
// removed; memory-tier entries whose sanitized name matches are dropped too.
// Used to scope clear_cache to a single package without purging the whole store.
func (s *Store) ClearMatching(fragment string) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, docerrors.Wrap(docerrors.ErrCodeInternal, err)
	}

	removed := 0
	for _, de := range entries {
		if de.IsDir() || filepath.Ext(de.Name()) != ".cache" {
			continue
		}
		if !strings.Contains(de.Name(), fragment) {
			continue
		}
		path := filepath.Join(s.dir, de.Name())
		if err := os.Remove(path); err != nil {
			continue
		}
		_ = os.Remove(path + ".lock")
		removed++
	}
	for _, k := range s.memory.Keys() {
		if category, key, ok := strings.Cut(k, "\x00"); ok && strings.Contains(sanitizeKey(category, key), fragment) {
			s.memory.Remove(k)
		}
	}
	if removed > 0 {
		s.logger.Info("cache store: cleared matching entries", "fragment", fragment, "removed", removed)
	}
	return removed, nil
}

// CleanupExpired removes disk entries whose last access predates maxAge.
func (s *Store) CleanupExpired(maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge).Unix()
	removed := 0

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, docerrors.Wrap(docerrors.ErrCodeInternal, err)
	}
	for _, de := range entries {
		if de.IsDir() || filepath.Ext(de.Name()) != ".cache" {
			continue
		}
		path := filepath.Join(s.dir, de.Name())
		e, err := readEntry(path)
		if err != nil {
			continue
		}
		if e.LastAccessed < cutoff {
			if err := os.Remove(path); err == nil {
				removed++
			}
		}
	}
	if removed > 0 {
		s.logger.Info("cache store: cleaned expired entries", "removed", removed)
	}
	return removed, nil
}

// EnforceDiskQuota evicts the least-recently-accessed disk entries until the
// on-disk tier fits within maxBytes, returning how many entries were
// removed. A non-positive maxBytes disables the quota.
func (s *Store) EnforceDiskQuota(maxBytes int64) (int, error) {
	if maxBytes <= 0 {
		return 0, nil
	}

	des, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, docerrors.Wrap(docerrors.ErrCodeInternal, err)
	}

	type fileStat struct {
		path         string
		size         int64
		lastAccessed int64
	}
	var files []fileStat
	var total int64
	for _, de := range des {
		if de.IsDir() || filepath.Ext(de.Name()) != ".cache" {
			continue
		}
		path := filepath.Join(s.dir, de.Name())
		info, err := de.Info()
		if err != nil {
			continue
		}
		e, err := readEntry(path)
		lastAccessed := info.ModTime().Unix()
		if err == nil {
			lastAccessed = e.LastAccessed
		}
		files = append(files, fileStat{path: path, size: info.Size(), lastAccessed: lastAccessed})
		total += info.Size()
	}

	if total <= maxBytes {
		return 0, nil
	}

	sort.Slice(files, func(i, j int) bool { return files[i].lastAccessed < files[j].lastAccessed })

	removed := 0
	evicted := make(map[string]bool)
	for _, f := range files {
		if total <= maxBytes {
			break
		}
		if err := os.Remove(f.path); err != nil {
			continue
		}
		_ = os.Remove(f.path + ".lock")
		evicted[filepath.Base(f.path)] = true
		total -= f.size
		removed++
		s.evictions.Add(1)
	}
	for _, k := range s.memory.Keys() {
		if category, key, ok := strings.Cut(k, "\x00"); ok && evicted[sanitizeKey(category, key)] {
			s.memory.Remove(k)
		}
	}
	if removed > 0 {
		s.logger.Info("cache store: evicted entries over disk quota", "removed", removed, "max_bytes", maxBytes)
	}
	return removed, nil
}

// Stats reports occupancy and hit-rate metrics across both tiers.
func (s *Store) Stats() (Stats, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return Stats{}, docerrors.Wrap(docerrors.ErrCodeInternal, err)
	}

	var totalEntries int
	var totalSize int64
	for _, de := range entries {
		if de.IsDir() || filepath.Ext(de.Name()) != ".cache" {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		totalEntries++
		totalSize += info.Size()
	}

	hits := s.hits.Load()
	misses := s.misses.Load()
	var hitRate float64
	if hits+misses > 0 {
		hitRate = float64(hits) / float64(hits+misses)
	}

	return Stats{
		TotalEntries:         totalEntries,
		TotalSizeBytes:       totalSize,
		MemoryCacheEntries:   s.memory.Len(),
		MemoryCacheSizeBytes: approximateMemorySize(s.memory),
		HitRate:              hitRate,
		Hits:                 hits,
		Misses:               misses,
		Evictions:            s.evictions.Load(),
		DiskUsageBytes:       totalSize,
	}, nil
}

func approximateMemorySize(c *lru.Cache[string, []byte]) int64 {
	var total int64
	for _, k := range c.Keys() {
		if v, ok := c.Peek(k); ok {
			total += int64(len(v))
		}
	}
	return total
}

func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompress(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()
	return io.ReadAll(r)
}

// writeEntryLocked acquires an exclusive advisory lock on path+".lock"
// before writing, so two processes sharing a cache directory never
// interleave partial writes to the same file.
func writeEntryLocked(path string, e *entry) error {
	lockPath := path + ".lock"
	fl := flock.New(lockPath)
	if err := fl.Lock(); err != nil {
		return docerrors.New(docerrors.ErrCodeCacheWriteLock, "failed to acquire cache write lock", err)
	}
	defer func() { _ = fl.Unlock() }()

	data, err := json.Marshal(e)
	if err != nil {
		return docerrors.Wrap(docerrors.ErrCodeInternal, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return docerrors.Wrap(docerrors.ErrCodeDiskFull, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return docerrors.Wrap(docerrors.ErrCodeInternal, err)
	}
	return nil
}

func readEntry(path string) (*entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, docerrors.Wrap(docerrors.ErrCodeFileNotFound, err)
	}
	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, docerrors.New(docerrors.ErrCodeFileCorrupt, "cache entry is not valid JSON", err)
	}
	return &e, nil
}

// listCacheKeys returns the on-disk filename of every well-formed cache
// entry under dir. Filenames are the sanitized "<category>_<key>.cache"
// form written by filePath, not reversible back to (category, key), since
// sanitizeKey collapses unsafe characters in both onto "_". Sorted for
// stable output.
func listCacheKeys(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, de := range entries {
		if de.IsDir() || filepath.Ext(de.Name()) != ".cache" {
			continue
		}
		names = append(names, de.Name())
	}
	sort.Strings(names)
	return names, nil
}

// EntryInfo describes one on-disk cache entry for CLI inspection.
type EntryInfo struct {
	Filename     string `json:"filename"`
	SizeBytes    int    `json:"size_bytes"`
	CreatedAt    int64  `json:"created_at"`
	LastAccessed int64  `json:"last_accessed"`
}

// ListEntries returns metadata for every well-formed entry on disk, sorted
// by filename, for the `cache list` command. Entries that fail to parse are
// skipped rather than failing the whole listing.
func (s *Store) ListEntries() ([]EntryInfo, error) {
	names, err := listCacheKeys(s.dir)
	if err != nil {
		return nil, err
	}

	infos := make([]EntryInfo, 0, len(names))
	for _, name := range names {
		e, err := readEntry(filepath.Join(s.dir, name))
		if err != nil {
			continue
		}
		infos = append(infos, EntryInfo{
			Filename:     name,
			SizeBytes:    e.Size,
			CreatedAt:    e.CreatedAt,
			LastAccessed: e.LastAccessed,
		})
	}
	return infos, nil
}
