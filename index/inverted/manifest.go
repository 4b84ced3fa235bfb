package inverted

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	gojson "github.com/goccy/go-json"
	"github.com/hupe1980/docgo/index"
	"github.com/hupe1980/docgo/internal/fs"
)

const (
	currentFileName  = "CURRENT"
	manifestPrefix   = "MANIFEST-"
	lockFileName     = "write.lock"
	manifestVersion  = 1
	segmentFileFmt   = "seg-%06d.dat"
	deletionsFileFmt = "del-%06d.roar"
)

// manifest describes the committed state of an index directory.
type manifest struct {
	Version    int           `json:"version"`
	Generation uint64        `json:"generation"`
	CreatedAt  time.Time     `json:"created_at"`
	NextID     uint32        `json:"next_id"`
	Segments   []segmentInfo `json:"segments"`
	Deletions  string        `json:"deletions,omitempty"`
}

type segmentInfo struct {
	Path   string `json:"path"` // relative to the index dir
	BaseID uint32 `json:"base_id"`
	Count  uint32 `json:"count"`
	Size   int64  `json:"size"`
}

func manifestName(gen uint64) string {
	return fmt.Sprintf("%s%06d.json", manifestPrefix, gen)
}

// loadManifest follows CURRENT to the active manifest.
func loadManifest(fsys fs.FileSystem, dir string) (*manifest, error) {
	cur, err := fs.ReadFile(fsys, filepath.Join(dir, currentFileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, index.ErrNotFound
		}
		return nil, err
	}
	name := strings.TrimSpace(string(cur))
	if !strings.HasPrefix(name, manifestPrefix) || strings.ContainsAny(name, `/\`) {
		return nil, fmt.Errorf("invalid CURRENT pointer %q", name)
	}

	data, err := fs.ReadFile(fsys, filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", name, err)
	}
	m := &manifest{}
	if err := gojson.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("failed to decode manifest %s: %w", name, err)
	}
	if m.Version != manifestVersion {
		return nil, fmt.Errorf("unsupported manifest version %d", m.Version)
	}
	return m, nil
}

// saveManifest writes the manifest under its generation and then swings
// CURRENT to it. Both writes are atomic renames.
func saveManifest(fsys fs.FileSystem, dir string, m *manifest) error {
	m.Version = manifestVersion
	m.CreatedAt = time.Now().UTC()

	data, err := gojson.Marshal(m)
	if err != nil {
		return err
	}
	name := manifestName(m.Generation)
	if err := fs.WriteFileAtomic(fsys, filepath.Join(dir, name), data, 0o644); err != nil {
		return err
	}
	return fs.WriteFileAtomic(fsys, filepath.Join(dir, currentFileName), []byte(name), 0o644)
}

func (m *manifest) clone() *manifest {
	c := *m
	c.Segments = append([]segmentInfo(nil), m.Segments...)
	return &c
}
