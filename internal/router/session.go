package router

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"business-consultant/internal/chromemdb"
	"business-consultant/internal/helper"
	"business-consultant/internal/tabular"
)

// Session is the state of one user: the current document index and the
// datasets uploaded so far. Actions on a session run one at a time.
type Session struct {
	ID  string
	Dir string

	// busy serializes actions, mu guards the fields below.
	busy     sync.Mutex
	mu       sync.Mutex
	index    *chromemdb.Index
	files    []string
	datasets map[string]*tabular.Dataset
	order    []string
}

// NewSession creates a session with its own scratch directory under baseDir.
func NewSession(baseDir string) (*Session, error) {
	id, err := helper.GenerateUUID()
	if err != nil {
		return nil, err
	}
	dir := filepath.Join(baseDir, "session-"+id)
	if err := helper.CreateFolder(dir); err != nil {
		return nil, err
	}
	return &Session{ID: id, Dir: dir, datasets: make(map[string]*tabular.Dataset)}, nil
}

// Files lists the documents behind the current index.
func (s *Session) Files() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.files...)
}

// HasDocuments reports whether a document index is available.
func (s *Session) HasDocuments() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Len() > 0
}

// Datasets returns the uploaded datasets in upload order.
func (s *Session) Datasets() []*tabular.Dataset {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*tabular.Dataset, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.datasets[name])
	}
	return out
}

// Dataset looks up an uploaded dataset by file name.
func (s *Session) Dataset(name string) (*tabular.Dataset, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ds, ok := s.datasets[name]
	return ds, ok
}

// Close drops the index and removes the scratch directory.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index = nil
	s.files = nil
	s.datasets = make(map[string]*tabular.Dataset)
	s.order = nil
	if err := os.RemoveAll(s.Dir); err != nil {
		return fmt.Errorf("failed to remove session dir: %w", err)
	}
	return nil
}

func (s *Session) documentsDir() string {
	return filepath.Join(s.Dir, "documents")
}

func (s *Session) currentIndex() *chromemdb.Index {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

// replaceIndex swaps in the index of a new batch.
func (s *Session) replaceIndex(idx *chromemdb.Index, files []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index = idx
	s.files = files
}

// putDataset adds or replaces a dataset.
func (s *Session) putDataset(ds *tabular.Dataset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.datasets[ds.Name]; !ok {
		s.order = append(s.order, ds.Name)
	}
	s.datasets[ds.Name] = ds
}
