// Package export defines the destinations documents can be exported to.
//
// A Sink receives one object per document, named after the document id and
// holding its pristine bytes. The directory sink writes plain files; the
// minio and s3 subpackages upload to object storage.
package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/hupe1980/docgo/internal/fs"
)

// ErrInvalidName is returned for object names that cannot be used as a
// single file name.
var ErrInvalidName = errors.New("invalid export name")

// Sink stores exported documents.
// Implementations must be safe for concurrent use.
type Sink interface {
	Put(ctx context.Context, name string, data []byte) error
}

// Dir writes each object to a file in a directory.
type Dir struct {
	fs   fs.FileSystem
	root string
}

// DirOption configures a Dir sink.
type DirOption func(*Dir)

// WithFileSystem sets the file system the Dir sink writes to.
func WithFileSystem(fsys fs.FileSystem) DirOption {
	return func(d *Dir) {
		if fsys != nil {
			d.fs = fsys
		}
	}
}

// NewDir returns a sink writing to root. root must exist.
func NewDir(root string, opts ...DirOption) *Dir {
	d := &Dir{fs: fs.Default, root: root}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Root returns the target directory.
func (d *Dir) Root() string { return d.root }

// Check verifies that the target is an existing directory.
func (d *Dir) Check() error {
	info, err := d.fs.Stat(d.root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s: not a directory", d.root)
	}
	return nil
}

// Put writes data to root/name, replacing an existing file.
func (d *Dir) Put(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidateName(name); err != nil {
		return err
	}
	return fs.WriteFile(d.fs, filepath.Join(d.root, name), data, 0o644)
}

// ValidateName rejects names that would escape the target directory.
func ValidateName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, os.PathSeparator) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// Memory keeps exported objects in memory.
type Memory struct {
	mu      sync.Mutex
	objects map[string][]byte
}

// NewMemory returns an empty in-memory sink.
func NewMemory() *Memory {
	return &Memory{objects: make(map[string][]byte)}
}

// Put implements Sink.
func (m *Memory) Put(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[name] = append([]byte(nil), data...)
	return nil
}

// Get returns a stored object.
func (m *Memory) Get(name string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[name]
	return data, ok
}

// Names returns the sorted object names.
func (m *Memory) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.objects))
	for n := range m.objects {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
