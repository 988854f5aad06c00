// File-backed run stores.
//
// A persistent store owns a directory of .cbor run files and supports
// appending; a transient store wraps an explicit list of files named on the
// command line and is read-only.

package db

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"nsanalyze/run"
)

const runFileExt = ".cbor"

var UnknownRunErr = errors.New("no such run")

// A RunSource provides named runs to the analysis verbs.
type RunSource interface {
	RunNames() ([]string, error)
	Load(name string) (*run.Run, error)
}

// An AppendableRunSource additionally accepts new runs, for ingest.
type AppendableRunSource interface {
	RunSource
	Add(name string, r *run.Run) error
}

type PersistentStore struct {
	dir string
}

func OpenPersistentStore(dir string) (*PersistentStore, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("opening data directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("data directory %s is not a directory", dir)
	}
	return &PersistentStore{dir}, nil
}

func (s *PersistentStore) RunNames() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), runFileExt) {
			names = append(names, strings.TrimSuffix(e.Name(), runFileExt))
		}
	}
	return names, nil
}

func (s *PersistentStore) Load(name string) (*run.Run, error) {
	f, err := os.Open(filepath.Join(s.dir, name+runFileExt))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", UnknownRunErr, name)
		}
		return nil, err
	}
	defer f.Close()
	r, err := ReadRun(f)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", name, err)
	}
	return r, nil
}

// Add writes the run under the given name, replacing any existing run of that
// name.  The write goes through a temp file and a rename so that concurrent
// readers never observe a torn file.
func (s *PersistentStore) Add(name string, r *run.Run) error {
	if err := r.Check(); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if err := WriteRun(tmp, r); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(s.dir, name+runFileExt))
}

type TransientStore struct {
	files []string
}

func OpenTransientStore(files []string) *TransientStore {
	return &TransientStore{files}
}

func (s *TransientStore) RunNames() ([]string, error) {
	names := make([]string, len(s.files))
	for i, f := range s.files {
		names[i] = strings.TrimSuffix(path.Base(filepath.ToSlash(f)), runFileExt)
	}
	return names, nil
}

func (s *TransientStore) Load(name string) (*run.Run, error) {
	names, _ := s.RunNames()
	for i, f := range s.files {
		if names[i] != name {
			continue
		}
		fd, err := os.Open(f)
		if err != nil {
			return nil, err
		}
		defer fd.Close()
		r, err := ReadRun(fd)
		if err != nil {
			return nil, fmt.Errorf("run %s: %w", name, err)
		}
		return r, nil
	}
	return nil, fmt.Errorf("%w: %s", UnknownRunErr, name)
}
