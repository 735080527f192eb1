// Package templatestore keeps the catalog of answer-sheet templates.
package templatestore

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/mind-engage/mindengage-omr/internal/sheet"
)

var ErrNotFound = errors.New("template not found")

type Summary struct {
	ID        string `json:"templateId"`
	Version   int    `json:"version"`
	PageCount int    `json:"pageCount"`
	Questions int    `json:"questions"`
}

type ListOpts struct {
	Q      string // id prefix
	Limit  int
	Offset int
}

type Store interface {
	// Put inserts or replaces the template with the same ID.
	Put(ctx context.Context, t *sheet.Template) error
	Get(ctx context.Context, id string) (*sheet.Template, error)
	List(ctx context.Context, opts ListOpts) ([]Summary, error)
}

func summarize(t *sheet.Template) Summary {
	return Summary{ID: t.ID, Version: t.Version, PageCount: t.PageCount, Questions: t.Questions()}
}

// MemStore is a process-local Store. Templates are stored by value so
// callers cannot mutate the catalog through a returned pointer.
type MemStore struct {
	mu sync.RWMutex
	m  map[string]sheet.Descriptor
}

func NewMemStore() *MemStore { return &MemStore{m: map[string]sheet.Descriptor{}} }

func (s *MemStore) Put(_ context.Context, t *sheet.Template) error {
	if err := t.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[t.ID] = t.Descriptor()
	return nil
}

func (s *MemStore) Get(_ context.Context, id string) (*sheet.Template, error) {
	s.mu.RLock()
	d, ok := s.m[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return sheet.FromDescriptor(d)
}

func (s *MemStore) List(_ context.Context, opts ListOpts) ([]Summary, error) {
	s.mu.RLock()
	out := make([]Summary, 0, len(s.m))
	for id, d := range s.m {
		if opts.Q != "" && !strings.HasPrefix(id, opts.Q) {
			continue
		}
		t, err := sheet.FromDescriptor(d)
		if err != nil {
			s.mu.RUnlock()
			return nil, err
		}
		out = append(out, summarize(t))
	}
	s.mu.RUnlock()
	slices.SortFunc(out, func(a, b Summary) int { return strings.Compare(a.ID, b.ID) })
	return page(out, opts), nil
}

func page(out []Summary, opts ListOpts) []Summary {
	if opts.Offset > 0 {
		if opts.Offset >= len(out) {
			return []Summary{}
		}
		out = out[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(out) {
		out = out[:opts.Limit]
	}
	return out
}
