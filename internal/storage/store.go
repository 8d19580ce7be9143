// Package storage persists per-image artifacts and packages them into archives.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"reticulin-grading/internal/core"
)

// ArtifactStore receives named artifacts for one batch run
type ArtifactStore interface {
	// Put stores data and returns a reference (path) unique within the store
	Put(name string, data []byte) (string, error)
	Dir() string
	Close() error
}

// DirStore writes artifacts to a directory. Colliding names get a numeric
// prefix so every Put yields a distinct file.
type DirStore struct {
	mu     sync.Mutex
	dir    string
	owned  bool
	keep   bool
	used   map[string]bool
	closed bool
	logger *logrus.Logger
}

// NewDirStore opens dir for writing, creating it if needed. An empty dir
// creates a fresh temp directory that is removed on Close unless keep is set.
func NewDirStore(dir string, keep bool, logger *logrus.Logger) (*DirStore, error) {
	owned := false
	if dir == "" {
		tmp, err := os.MkdirTemp("", "mf-batch-*")
		if err != nil {
			return nil, core.IOError("create temp dir", err)
		}
		dir = tmp
		owned = true
	} else if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, core.IOError("create output dir", err)
	}

	logger.WithFields(logrus.Fields{
		"dir":  dir,
		"temp": owned,
	}).Debug("Artifact store opened")

	return &DirStore{
		dir:    dir,
		owned:  owned,
		keep:   keep,
		used:   make(map[string]bool),
		logger: logger,
	}, nil
}

func (s *DirStore) Dir() string {
	return s.dir
}

func (s *DirStore) Put(name string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", core.IOError("put "+name, fmt.Errorf("store is closed"))
	}

	// Only names written by this store are disambiguated; leftovers from an
	// earlier run in the same dir are overwritten.
	base := sanitizeName(name)
	unique := base
	for n := 2; s.used[unique]; n++ {
		unique = fmt.Sprintf("%03d_%s", n, base)
	}

	path := filepath.Join(s.dir, unique)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", core.IOError("write "+unique, err)
	}
	s.used[unique] = true

	s.logger.WithFields(logrus.Fields{
		"path":  path,
		"bytes": len(data),
	}).Debug("Artifact stored")

	return path, nil
}

// Close releases the store; an owned temp dir is removed unless kept
func (s *DirStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if s.owned && !s.keep {
		if err := os.RemoveAll(s.dir); err != nil {
			return core.IOError("remove temp dir", err)
		}
		s.logger.WithField("dir", s.dir).Debug("Temp artifact dir removed")
	}
	return nil
}

// AnnotatedName is the artifact name for an uploaded file
func AnnotatedName(filename string) string {
	return "annotated_" + filepath.Base(filename) + ".png"
}

func sanitizeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	if name == "." || name == "/" || name == "" {
		return "artifact"
	}
	return name
}
