package fs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalFS(t *testing.T) {
	tmp := t.TempDir()
	lfs := LocalFS{}

	dir := filepath.Join(tmp, "subdir")
	assert.NoError(t, lfs.MkdirAll(dir, 0755))
	assert.True(t, IsDir(lfs, dir))

	fpath := filepath.Join(dir, "test.txt")
	f, err := lfs.OpenFile(fpath, os.O_CREATE|os.O_RDWR, 0644)
	require.NoError(t, err)

	_, err = f.Write([]byte("hello"))
	assert.NoError(t, err)
	assert.NoError(t, f.Sync())
	assert.NoError(t, f.Close())

	data, err := ReadFile(lfs, fpath)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
	assert.False(t, IsDir(lfs, fpath))

	entries, err := lfs.ReadDir(dir)
	assert.NoError(t, err)
	assert.Len(t, entries, 1)

	newPath := filepath.Join(dir, "renamed.txt")
	assert.NoError(t, lfs.Rename(fpath, newPath))
	assert.NoError(t, lfs.Truncate(newPath, 3))
	info, err := lfs.Stat(newPath)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), info.Size())

	assert.NoError(t, lfs.Remove(newPath))
	_, err = lfs.Stat(newPath)
	assert.True(t, os.IsNotExist(err))
}

func TestWriteFileAtomic(t *testing.T) {
	tmp := t.TempDir()
	target := filepath.Join(tmp, "CURRENT")

	require.NoError(t, WriteFileAtomic(Default, target, []byte("one"), 0644))
	require.NoError(t, WriteFileAtomic(Default, target, []byte("two"), 0644))

	data, err := ReadFile(Default, target)
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))

	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file must not remain")
}

func TestFaultyFS(t *testing.T) {
	tmp := t.TempDir()
	ffs := NewFaultyFS(nil)

	t.Run("FailOnOpen", func(t *testing.T) {
		ffs.AddRule("locked", Fault{FailOnOpen: true})
		defer ffs.ClearRules()

		_, err := ffs.OpenFile(filepath.Join(tmp, "locked.txt"), os.O_CREATE|os.O_WRONLY, 0644)
		assert.ErrorIs(t, err, ErrInjected)

		err = WriteFile(ffs, filepath.Join(tmp, "free.txt"), []byte("ok"), 0644)
		assert.NoError(t, err)
	})

	t.Run("FailAfterBytes", func(t *testing.T) {
		ffs.AddRule("limited", Fault{FailAfterBytes: 5})
		defer ffs.ClearRules()

		f, err := ffs.OpenFile(filepath.Join(tmp, "limited.txt"), os.O_CREATE|os.O_RDWR, 0644)
		require.NoError(t, err)
		defer f.Close()

		n, err := f.Write([]byte("hello"))
		assert.NoError(t, err)
		assert.Equal(t, 5, n)

		n, err = f.Write([]byte("!"))
		assert.ErrorIs(t, err, ErrInjected)
		assert.Equal(t, 0, n)
	})

	t.Run("FailOnSyncBreaksAtomicWrite", func(t *testing.T) {
		ffs.AddRule("MANIFEST", Fault{FailOnSync: true, FailAfterBytes: -1})
		defer ffs.ClearRules()

		target := filepath.Join(tmp, "MANIFEST-000001.json")
		err := WriteFileAtomic(ffs, target, []byte("{}"), 0644)
		assert.ErrorIs(t, err, ErrInjected)

		_, err = ffs.Stat(target)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("FailOnRename", func(t *testing.T) {
		ffs.AddRule("CURRENT", Fault{FailOnRename: true, FailAfterBytes: -1})
		defer ffs.ClearRules()

		err := WriteFileAtomic(ffs, filepath.Join(tmp, "CURRENT"), []byte("x"), 0644)
		assert.ErrorIs(t, err, ErrInjected)
	})
}
