package storage

import (
	"archive/zip"
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/flate"

	"reticulin-grading/internal/core"
)

// ArchiveEntry maps a stored artifact to its name inside the archive
type ArchiveEntry struct {
	Name string
	Path string
}

// WriteArchive streams entries into a deflated zip on w
func WriteArchive(w io.Writer, entries []ArchiveEntry) error {
	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.DefaultCompression)
	})

	for _, entry := range entries {
		if err := addFile(zw, entry); err != nil {
			zw.Close()
			return err
		}
	}

	if err := zw.Close(); err != nil {
		return core.IOError("finalize archive", err)
	}
	return nil
}

func addFile(zw *zip.Writer, entry ArchiveEntry) error {
	f, err := os.Open(entry.Path)
	if err != nil {
		return core.IOError("open "+entry.Path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return core.IOError("stat "+entry.Path, err)
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return core.IOError("archive header "+entry.Name, err)
	}
	header.Name = entry.Name
	header.Method = zip.Deflate

	dst, err := zw.CreateHeader(header)
	if err != nil {
		return core.IOError("archive entry "+entry.Name, err)
	}
	if _, err := io.Copy(dst, f); err != nil {
		return core.IOError("archive copy "+entry.Name, err)
	}
	return nil
}

// CreateArchive writes the archive at path. A failed write leaves no file behind.
func CreateArchive(path string, entries []ArchiveEntry) (err error) {
	if len(entries) == 0 {
		return core.IOError("create archive", fmt.Errorf("no entries"))
	}

	f, err := os.Create(path)
	if err != nil {
		return core.IOError("create "+filepath.Base(path), err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = core.IOError("close "+filepath.Base(path), cerr)
		}
		if err != nil {
			os.Remove(path)
		}
	}()

	buf := bufio.NewWriter(f)
	if err = WriteArchive(buf, entries); err != nil {
		return err
	}
	if err = buf.Flush(); err != nil {
		return core.IOError("flush "+filepath.Base(path), err)
	}
	return nil
}
