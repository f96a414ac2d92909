package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const storeFileName = "cache.json"

// Entry records one fetched or installed artifact. File-backed entries point
// at a phar; composer entries point at an install directory and are removed
// recursively.
type Entry struct {
	ToolName     string `json:"tool_name"`
	Version      string `json:"version"`
	FilePath     string `json:"file_path"`
	DownloadURL  string `json:"download_url"`
	FileHash     string `json:"file_hash,omitempty"`
	CreatedAt    int64  `json:"created_at"`
	LastAccessed int64  `json:"last_accessed"`
	Size         int64  `json:"size"`
	BinName      string `json:"bin_name,omitempty"`
	IsComposer   bool   `json:"is_composer,omitempty"`
}

// BinPath returns the installed binary location for a composer entry.
func (e Entry) BinPath() string {
	bin := e.BinName
	if bin == "" {
		bin = "tool"
	}
	return filepath.Join(e.FilePath, "vendor", "bin", bin)
}

// Store is the cache.json-backed map of entries keyed by "name:version".
// Every mutation rewrites the whole document via temp-then-rename, so a crash
// mid-write never leaves a partial file behind.
type Store struct {
	dir     string
	entries map[string]Entry
	now     func() time.Time
}

// Open loads the store from dir, creating an empty one when cache.json does
// not exist yet.
func Open(dir string) (*Store, error) {
	s := &Store{
		dir:     dir,
		entries: map[string]Entry{},
		now:     time.Now,
	}

	data, err := os.ReadFile(s.path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("read cache document: %w", err)
	}
	if err := json.Unmarshal(data, &s.entries); err != nil {
		return nil, fmt.Errorf("decode cache document: %w", err)
	}
	if s.entries == nil {
		s.entries = map[string]Entry{}
	}
	return s, nil
}

// Dir returns the cache root directory.
func (s *Store) Dir() string {
	return s.dir
}

// SetClock overrides the store clock. Tests use it to drive TTL sweeps.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// Get returns the entry for name:version, bumping and persisting its
// last-accessed timestamp on a hit.
func (s *Store) Get(name, version string) (Entry, bool, error) {
	key := buildKey(name, version)
	entry, ok := s.entries[key]
	if !ok {
		return Entry{}, false, nil
	}
	entry.LastAccessed = s.now().Unix()
	s.entries[key] = entry
	if err := s.save(); err != nil {
		return Entry{}, false, err
	}
	return entry, true, nil
}

// AddFile inserts or overwrites a file-backed entry.
func (s *Store) AddFile(name, version, filePath, downloadURL, fileHash string, size int64) error {
	now := s.now().Unix()
	return s.add(Entry{
		ToolName:     name,
		Version:      version,
		FilePath:     filePath,
		DownloadURL:  downloadURL,
		FileHash:     fileHash,
		CreatedAt:    now,
		LastAccessed: now,
		Size:         size,
	})
}

// AddComposer inserts or overwrites a directory-backed entry for an isolated
// composer install.
func (s *Store) AddComposer(name, version, installDir, binName string) error {
	now := s.now().Unix()
	return s.add(Entry{
		ToolName:     name,
		Version:      version,
		FilePath:     installDir,
		CreatedAt:    now,
		LastAccessed: now,
		BinName:      binName,
		IsComposer:   true,
	})
}

func (s *Store) add(entry Entry) error {
	s.entries[buildKey(entry.ToolName, entry.Version)] = entry
	return s.save()
}

// Remove drops a single version, or every entry for the tool when version is
// empty. Backing storage is deleted before the map entry.
func (s *Store) Remove(name, version string) error {
	var keys []string
	if version != "" {
		keys = []string{buildKey(name, version)}
	} else {
		prefix := name + ":"
		for key := range s.entries {
			if strings.HasPrefix(key, prefix) {
				keys = append(keys, key)
			}
		}
	}

	for _, key := range keys {
		entry, ok := s.entries[key]
		if !ok {
			continue
		}
		if err := removeBacking(entry); err != nil {
			return err
		}
		delete(s.entries, key)
	}
	return s.save()
}

// Sweep removes every entry whose last access is older than ttl, deleting
// backing storage best-effort: a stale file that cannot be deleted must never
// block cache consistency.
func (s *Store) Sweep(ttl time.Duration) error {
	now := s.now().Unix()
	cutoff := int64(ttl / time.Second)

	for key, entry := range s.entries {
		if now-entry.LastAccessed <= cutoff {
			continue
		}
		if err := removeBacking(entry); err != nil {
			log.Debug().Str("path", entry.FilePath).Err(err).Msg("sweep could not delete backing storage")
		}
		delete(s.entries, key)
	}
	return s.save()
}

// Entries returns a snapshot of all entries.
func (s *Store) Entries() []Entry {
	out := make([]Entry, 0, len(s.entries))
	for _, entry := range s.entries {
		out = append(out, entry)
	}
	return out
}

// EntriesFor returns the entries recorded for one tool.
func (s *Store) EntriesFor(name string) []Entry {
	var out []Entry
	for _, entry := range s.entries {
		if entry.ToolName == name {
			out = append(out, entry)
		}
	}
	return out
}

func removeBacking(entry Entry) error {
	if _, err := os.Stat(entry.FilePath); err != nil {
		return nil
	}
	if entry.IsComposer {
		if err := os.RemoveAll(entry.FilePath); err != nil {
			return fmt.Errorf("remove install dir: %w", err)
		}
		return nil
	}
	if err := os.Remove(entry.FilePath); err != nil {
		return fmt.Errorf("remove cached file: %w", err)
	}
	return nil
}

func buildKey(name, version string) string {
	return name + ":" + version
}

func (s *Store) path() string {
	return filepath.Join(s.dir, storeFileName)
}

func (s *Store) save() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("prepare cache dir: %w", err)
	}

	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache document: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, "cache-*.json")
	if err != nil {
		return fmt.Errorf("create temp cache document: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp cache document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp cache document: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path()); err != nil {
		return fmt.Errorf("replace cache document: %w", err)
	}
	return nil
}
