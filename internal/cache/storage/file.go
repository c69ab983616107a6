// Package storage provides the three Storage[K,V] implementations cardforge
// needs: file-per-entry binary storage (card images), single-JSON
// structured storage (search results), and an in-memory test double.
//
// FileStorage is grounded on
// original_source/magic-proxy-core/src/cache/file_storage.rs and
// cache/mod.rs: SHA-256-hashed filenames, a sibling cache_metadata.json
// enumerating entries, and a fixed per-entry size estimate rather than
// summing actual byte counts.
package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cardforge/cardforge/internal/cache"
	"github.com/cardforge/cardforge/internal/cferr"
)

const metadataFilename = "cache_metadata.json"

type diskFileEntry struct {
	Key            string `json:"key"`
	Filename       string `json:"filename"`
	CreatedAt      int64  `json:"createdAt"`
	LastAccessedAt int64  `json:"lastAccessedAt"`
	SizeBytes      int64  `json:"sizeBytes"`
}

type diskFileMetadata struct {
	Entries        map[string]diskFileEntry `json:"entries"`
	TotalSizeBytes int64                    `json:"totalSizeBytes"`
	LastUpdated    int64                    `json:"lastUpdated"`
}

// FileStorage stores []byte values keyed by string, one file per entry.
type FileStorage struct {
	cacheDir      string
	metadataFile  string
	fileExtension string
	sizeEstimate  int64
}

// NewFileStorage creates the cache directory if needed and returns a
// FileStorage ready for use by cache.New.
func NewFileStorage(cacheDir, fileExtension string, sizeEstimate int64) (*FileStorage, error) {
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, cferr.IoErr(err, "creating file cache directory %s", cacheDir)
	}
	return &FileStorage{
		cacheDir:      cacheDir,
		metadataFile:  filepath.Join(cacheDir, metadataFilename),
		fileExtension: fileExtension,
		sizeEstimate:  sizeEstimate,
	}, nil
}

func (s *FileStorage) keyToFilename(key string) string {
	sum := sha256.Sum256([]byte(key))
	return fmt.Sprintf("%s.%s", hex.EncodeToString(sum[:]), s.fileExtension)
}

func (s *FileStorage) filePath(key string) string {
	return filepath.Join(s.cacheDir, s.keyToFilename(key))
}

// Load parses the metadata file, then reads each referenced value file. A
// missing or unreadable value file drops that entry rather than failing the
// whole load — the metadata is authoritative for which entries existed, but
// a missing file means the entry is gone.
func (s *FileStorage) Load() (map[string]cache.Entry[[]byte], error) {
	out := make(map[string]cache.Entry[[]byte])

	data, err := os.ReadFile(s.metadataFile)
	if err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return out, cferr.IoErr(err, "reading file cache metadata %s", s.metadataFile)
	}

	var meta diskFileMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return out, cferr.SerializationErr(err, "parsing file cache metadata %s", s.metadataFile)
	}

	for key, de := range meta.Entries {
		path := filepath.Join(s.cacheDir, de.Filename)
		bytes, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		out[key] = cache.Entry[[]byte]{
			Value:          bytes,
			CreatedAt:      de.CreatedAt,
			LastAccessedAt: de.LastAccessedAt,
		}
	}
	return out, nil
}

// Save writes every entry's bytes to its own file, then rewrites the
// metadata file. Neither write is crash-atomic; a truncated metadata file
// at next startup is treated as corrupt and handled as a cache miss by the
// caller, per spec.md's accepted Open Question on write atomicity.
func (s *FileStorage) Save(entries map[string]cache.Entry[[]byte]) error {
	meta := diskFileMetadata{
		Entries:     make(map[string]diskFileEntry, len(entries)),
		LastUpdated: time.Now().UnixNano(),
	}

	for key, entry := range entries {
		filename := s.keyToFilename(key)
		path := filepath.Join(s.cacheDir, filename)
		if err := os.WriteFile(path, entry.Value, 0o644); err != nil {
			return cferr.IoErr(err, "writing cache file %s", path)
		}
		size := int64(len(entry.Value))
		meta.TotalSizeBytes += size
		meta.Entries[key] = diskFileEntry{
			Key:            key,
			Filename:       filename,
			CreatedAt:      entry.CreatedAt,
			LastAccessedAt: entry.LastAccessedAt,
			SizeBytes:      size,
		}
	}

	buf, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return cferr.SerializationErr(err, "encoding file cache metadata")
	}
	if err := os.WriteFile(s.metadataFile, buf, 0o644); err != nil {
		return cferr.IoErr(err, "writing file cache metadata %s", s.metadataFile)
	}
	return nil
}

// EstimateSize ignores the actual value and returns the configured
// per-entry constant, matching the spec's "sized by count x estimate, not
// actual byte totals" simplification for homogeneous binary blobs.
func (s *FileStorage) EstimateSize(_ string, _ []byte) int64 { return s.sizeEstimate }

func (s *FileStorage) SizeEstimate() int64 { return s.sizeEstimate }

// OnEvict deletes the backing file if present.
func (s *FileStorage) OnEvict(key string, _ []byte) error {
	path := s.filePath(key)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return cferr.IoErr(err, "deleting evicted cache file %s", path)
	}
	return nil
}

func (s *FileStorage) Name() string { return "FileStorage" }
