package store

import (
	"context"
	"fmt"
	"sync"
)

// Memory is an in-process Store. It is safe for concurrent use.
type Memory struct {
	mu     sync.RWMutex
	m      map[string]string
	used   int
	quota  int
	closed bool
}

// NewMemory creates an empty in-memory store. A quota of zero or less means unlimited.
func NewMemory(quotaBytes int) *Memory {
	return &Memory{
		m:     make(map[string]string),
		quota: quotaBytes,
	}
}

func (s *Memory) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return "", false, ErrUnavailable
	}
	v, ok := s.m[key]
	return v, ok, nil
}

func (s *Memory) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrUnavailable
	}

	used := s.used
	if old, ok := s.m[key]; ok {
		used -= entrySize(key, old)
	}
	used += entrySize(key, value)
	if s.quota > 0 && used > s.quota {
		return fmt.Errorf("set %q: %w (%d > %d bytes)", key, ErrQuotaExceeded, used, s.quota)
	}

	s.m[key] = value
	s.used = used
	return nil
}

func (s *Memory) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrUnavailable
	}
	if old, ok := s.m[key]; ok {
		s.used -= entrySize(key, old)
		delete(s.m, key)
	}
	return nil
}

func (s *Memory) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrUnavailable
	}
	return nil
}

func (s *Memory) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.m = nil
	s.used = 0
	return nil
}
