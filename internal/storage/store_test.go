package storage

import (
	"archive/zip"
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reticulin-grading/internal/core"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestDirStorePutDisambiguates(t *testing.T) {
	store, err := NewDirStore(t.TempDir(), false, quietLogger())
	require.NoError(t, err)
	defer store.Close()

	first, err := store.Put("annotated_slide.png.png", []byte("one"))
	require.NoError(t, err)
	second, err := store.Put("annotated_slide.png.png", []byte("two"))
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, "annotated_slide.png.png", filepath.Base(first))
	assert.Equal(t, "002_annotated_slide.png.png", filepath.Base(second))

	data, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))
}

func TestDirStoreReusedDirOverwrites(t *testing.T) {
	dir := t.TempDir()
	stale := filepath.Join(dir, "annotated_slide.png.png")
	require.NoError(t, os.WriteFile(stale, []byte("previous run"), 0644))

	store, err := NewDirStore(dir, false, quietLogger())
	require.NoError(t, err)
	defer store.Close()

	path, err := store.Put("annotated_slide.png.png", []byte("this run"))
	require.NoError(t, err)
	assert.Equal(t, stale, path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "this run", string(data))
	assert.NoFileExists(t, filepath.Join(dir, "002_annotated_slide.png.png"))
}

func TestDirStoreStripsDirectories(t *testing.T) {
	store, err := NewDirStore(t.TempDir(), false, quietLogger())
	require.NoError(t, err)
	defer store.Close()

	path, err := store.Put("../../escape.png", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, store.Dir(), filepath.Dir(path))
}

func TestDirStoreTempLifecycle(t *testing.T) {
	store, err := NewDirStore("", false, quietLogger())
	require.NoError(t, err)
	dir := store.Dir()
	assert.DirExists(t, dir)

	require.NoError(t, store.Close())
	assert.NoDirExists(t, dir)
	require.NoError(t, store.Close(), "close is idempotent")

	_, err = store.Put("late.png", []byte("x"))
	assert.True(t, errors.Is(err, core.ErrIO))
}

func TestDirStoreKeepTemp(t *testing.T) {
	store, err := NewDirStore("", true, quietLogger())
	require.NoError(t, err)
	dir := store.Dir()
	defer os.RemoveAll(dir)

	require.NoError(t, store.Close())
	assert.DirExists(t, dir)
}

func TestAnnotatedName(t *testing.T) {
	assert.Equal(t, "annotated_slide 1.tif.png", AnnotatedName("slide 1.tif"))
	assert.Equal(t, "annotated_b.jpg.png", AnnotatedName("/uploads/a/b.jpg"))
}

func TestCreateArchive(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.png")
	b := filepath.Join(dir, "b.png")
	require.NoError(t, os.WriteFile(a, []byte("alpha"), 0644))
	require.NoError(t, os.WriteFile(b, bytes.Repeat([]byte("beta"), 100), 0644))

	out := filepath.Join(dir, "mf_batch_results.zip")
	require.NoError(t, CreateArchive(out, []ArchiveEntry{
		{Name: "annotated_a.png", Path: a},
		{Name: "annotated_b.png", Path: b},
	}))

	zr, err := zip.OpenReader(out)
	require.NoError(t, err)
	defer zr.Close()

	require.Len(t, zr.File, 2)
	assert.Equal(t, "annotated_a.png", zr.File[0].Name)
	assert.Equal(t, "annotated_b.png", zr.File[1].Name)

	rc, err := zr.File[1].Open()
	require.NoError(t, err)
	content, err := io.ReadAll(rc)
	rc.Close()
	require.NoError(t, err)
	assert.Equal(t, bytes.Repeat([]byte("beta"), 100), content)
}

func TestCreateArchiveFailureLeavesNoFile(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "mf_batch_results.zip")

	err := CreateArchive(out, []ArchiveEntry{{Name: "missing.png", Path: filepath.Join(dir, "missing.png")}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrIO))
	assert.NoFileExists(t, out)
}

func TestCreateArchiveRejectsEmpty(t *testing.T) {
	out := filepath.Join(t.TempDir(), "empty.zip")
	assert.Error(t, CreateArchive(out, nil))
	assert.NoFileExists(t, out)
}
