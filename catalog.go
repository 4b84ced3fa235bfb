package docgo

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hupe1980/docgo/index"
	"github.com/hupe1980/docgo/index/inverted"
	"github.com/hupe1980/docgo/internal/fs"
	"github.com/hupe1980/docgo/internal/journal"
)

// JournalFileName is the name of the replace journal inside a collection.
const JournalFileName = "replace.journal"

// Catalog manages collections stored as directories <path>/<name>.
type Catalog struct {
	opts options
}

// NewCatalog creates a catalog. The options apply to every collection it
// creates or opens.
func NewCatalog(optFns ...Option) *Catalog {
	return &Catalog{opts: applyOptions(optFns)}
}

func (c *Catalog) indexOptions() []inverted.Option {
	return []inverted.Option{
		inverted.WithFileSystem(c.opts.fs),
		inverted.WithCompression(c.opts.compression),
	}
}

func validateName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return &ValidationError{Field: "name", Reason: fmt.Sprintf("invalid collection name %q", name)}
	}
	return nil
}

// CreateCollection creates an empty collection. path must be an existing
// directory.
func (c *Catalog) CreateCollection(ctx context.Context, name, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateName(name); err != nil {
		return err
	}
	if !fs.IsDir(c.opts.fs, path) {
		return &ValidationError{Field: "path", Reason: fmt.Sprintf("%s is not a directory", path)}
	}

	dir := filepath.Join(path, name)
	if inverted.Exists(dir, c.indexOptions()...) {
		return fmt.Errorf("%w: %s", ErrCollectionExists, name)
	}

	idx, err := inverted.Create(dir, c.indexOptions()...)
	if err != nil {
		if errors.Is(err, index.ErrExists) {
			return fmt.Errorf("%w: %s", ErrCollectionExists, name)
		}
		return err
	}
	c.opts.logger.InfoContext(ctx, "collection created", "collection", name, "path", path)
	return idx.Close()
}

// HasCollection reports whether <path>/<name> holds a collection.
func (c *Catalog) HasCollection(name, path string) bool {
	if validateName(name) != nil {
		return false
	}
	return inverted.Exists(filepath.Join(path, name), c.indexOptions()...)
}

// OpenCollection opens a collection for reading and writing and completes
// interrupted replaces. It fails with ErrCollectionNotFound when the
// collection does not exist and with ErrLocked while another handle holds it.
func (c *Catalog) OpenCollection(ctx context.Context, name, path string) (*Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !c.HasCollection(name, path) {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}

	dir := filepath.Join(path, name)
	idx, err := inverted.Open(dir, c.indexOptions()...)
	if err != nil {
		if errors.Is(err, index.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
		}
		return nil, err
	}

	var j *journal.Journal
	if c.opts.replaceJournal {
		j, err = journal.Open(c.opts.fs, filepath.Join(dir, JournalFileName))
		if err != nil {
			return nil, errors.Join(err, idx.Close())
		}
	}

	o := c.opts
	o.logger = o.logger.WithCollection(name)
	s := newStore(idx, j, o)

	if _, err := s.Repair(ctx); err != nil {
		return nil, errors.Join(err, s.Close())
	}
	return s, nil
}

// Collections returns the sorted names of the collections under path.
func (c *Catalog) Collections(path string) ([]string, error) {
	entries, err := c.opts.fs.ReadDir(path)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() && c.HasCollection(e.Name(), path) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

var defaultCatalog = NewCatalog()

// CreateCollection creates a collection using a catalog with default options.
func CreateCollection(ctx context.Context, name, path string) error {
	return defaultCatalog.CreateCollection(ctx, name, path)
}

// HasCollection reports whether <path>/<name> holds a collection.
func HasCollection(name, path string) bool {
	return defaultCatalog.HasCollection(name, path)
}

// OpenCollection opens a collection. Options apply to this collection only.
func OpenCollection(ctx context.Context, name, path string, optFns ...Option) (*Store, error) {
	if len(optFns) == 0 {
		return defaultCatalog.OpenCollection(ctx, name, path)
	}
	return NewCatalog(optFns...).OpenCollection(ctx, name, path)
}
