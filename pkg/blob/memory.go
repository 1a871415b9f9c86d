package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

type memEntry struct {
	info Info
	data []byte
}

// MemoryStore keeps objects in process memory. Used by tests.
type MemoryStore struct {
	mu   sync.RWMutex
	objs map[string]memEntry
	now  func() time.Time
}

// NewMemory returns an empty memory store
func NewMemory() *MemoryStore {
	return &MemoryStore{objs: make(map[string]memEntry), now: time.Now}
}

func (s *MemoryStore) Driver() Driver { return DriverMemory }

// Touch rewrites the modification time of key
func (s *MemoryStore) Touch(key string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.objs[key]; ok {
		e.info.LastModified = at
		s.objs[key] = e
	}
}

func (s *MemoryStore) Put(_ context.Context, key string, r io.Reader, contentType string) (Info, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return Info{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.objs[key]; exists {
		return Info{}, fmt.Errorf("%s: %w", key, ErrExists)
	}
	info := Info{Key: key, Size: int64(len(b)), ContentType: contentType, LastModified: s.now().UTC()}
	s.objs[key] = memEntry{info: info, data: b}
	return info, nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (Info, io.ReadCloser, error) {
	s.mu.RLock()
	e, ok := s.objs[key]
	s.mu.RUnlock()
	if !ok {
		return Info{}, nil, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	data := make([]byte, len(e.data))
	copy(data, e.data)
	return e.info, io.NopCloser(bytes.NewReader(data)), nil
}

func (s *MemoryStore) Head(_ context.Context, key string) (Info, error) {
	s.mu.RLock()
	e, ok := s.objs[key]
	s.mu.RUnlock()
	if !ok {
		return Info{}, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	return e.info, nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objs[key]
	delete(s.objs, key)
	return ok, nil
}

func (s *MemoryStore) List(_ context.Context, prefix string) ([]Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Info, 0, len(s.objs))
	for k, e := range s.objs {
		if strings.HasPrefix(k, prefix) {
			out = append(out, e.info)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}
