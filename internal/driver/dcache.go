package driver

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"cc16/internal/diag"
	"cc16/internal/project"
	"cc16/internal/source"
)

// Current schema version - increment when DiskPayload format changes
const diskCacheSchemaVersion uint16 = 1

// DiskCache keeps the assembly of successfully compiled units, keyed by
// unitKey. Thread-safe for concurrent access.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

// DiskPayload is one cached unit.
type DiskPayload struct {
	// Schema version for safe invalidation when format changes
	Schema uint16
	Name   string
	Asm    string
	// Warnings produced when the unit was compiled; replayed on a hit.
	Diagnostics []cachedDiagnostic
}

type cachedDiagnostic struct {
	Severity uint8
	Code     uint16
	Message  string
	Subject  string
	Line     uint32
	Col      uint32
}

// OpenDiskCache initializes and returns a disk cache at the standard location.
func OpenDiskCache(app string) (*DiskCache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	return OpenDiskCacheAt(filepath.Join(base, app))
}

// OpenDiskCacheAt uses dir as the cache root.
func OpenDiskCacheAt(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

// Dir returns the cache root.
func (c *DiskCache) Dir() string { return c.dir }

func (c *DiskCache) pathFor(key project.Digest) string {
	return filepath.Join(c.dir, "units", key.String()+".mp")
}

// Put serializes and writes a payload to the disk cache.
func (c *DiskCache) Put(key project.Digest, payload *DiskPayload) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	// after the rename there is nothing left to remove
	defer func() { _ = os.Remove(tmp) }()

	if err := msgpack.NewEncoder(f).Encode(payload); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, p)
}

// Get reads and deserializes a payload from the disk cache. A payload
// written by another schema version counts as a miss.
func (c *DiskCache) Get(key project.Digest, out *DiskPayload) (bool, error) {
	if c == nil {
		return false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	defer f.Close()
	if err := msgpack.NewDecoder(f).Decode(out); err != nil {
		return false, fmt.Errorf("cache entry %s: %w", key, err)
	}
	return out.Schema == diskCacheSchemaVersion, nil
}

// DropAll invalidates the cache, useful after format changes.
func (c *DiskCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.dir + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(c.dir, old); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}
	return os.RemoveAll(old)
}

// resultToPayload keeps the assembly and the diagnostics of the unit
// itself; timing and cache notes describe one run only.
func resultToPayload(res *Result) *DiskPayload {
	payload := &DiskPayload{Schema: diskCacheSchemaVersion, Name: res.Name, Asm: res.Asm}
	for _, d := range res.Bag.Items() {
		if d.Code == diag.DrvInfo || d.Code == diag.DrvCacheCorrupt {
			continue
		}
		payload.Diagnostics = append(payload.Diagnostics, cachedDiagnostic{
			Severity: uint8(d.Severity),
			Code:     uint16(d.Code),
			Message:  d.Message,
			Subject:  d.Subject,
			Line:     d.Primary.Start.Line,
			Col:      d.Primary.Start.Col,
		})
	}
	return payload
}

func payloadToResult(payload *DiskPayload, res *Result) {
	res.Name = payload.Name
	res.Asm = payload.Asm
	res.Cached = true
	for _, cd := range payload.Diagnostics {
		pos := source.Pos{Line: cd.Line, Col: cd.Col}
		sp := source.Span{File: res.Path, Start: pos, End: pos}
		d := diag.New(diag.Severity(cd.Severity), diag.Code(cd.Code), sp, cd.Message)
		if cd.Subject != "" {
			d = d.WithSubject(cd.Subject)
		}
		res.Bag.Add(d)
	}
}
