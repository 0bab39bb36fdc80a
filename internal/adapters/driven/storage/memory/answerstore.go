package memory

import (
	"context"
	"sync"

	"github.com/Suraj-Bhadauria/hackrx-DO/internal/adapters/driven/storage/cachekey"
	"github.com/Suraj-Bhadauria/hackrx-DO/internal/core/domain"
	"github.com/Suraj-Bhadauria/hackrx-DO/internal/core/ports/driven"
)

// Ensure AnswerStore implements the interface.
var _ driven.AnswerStore = (*AnswerStore)(nil)

// AnswerStore caches answers in memory for the process lifetime.
// No eviction: the working set is a handful of documents with repeat
// questions, and a key always maps to the same answer once written.
type AnswerStore struct {
	mu      sync.RWMutex
	answers map[string]string
}

// NewAnswerStore creates an empty answer cache.
func NewAnswerStore() *AnswerStore {
	return &AnswerStore{answers: make(map[string]string)}
}

// Get returns the cached answer or domain.ErrNotFound.
func (s *AnswerStore) Get(_ context.Context, documentID, question string) (string, error) {
	key := cachekey.Derive(documentID, question)
	s.mu.RLock()
	defer s.mu.RUnlock()
	answer, ok := s.answers[key]
	if !ok {
		return "", domain.ErrNotFound
	}
	return answer, nil
}

// Put stores an answer. The first write for a key wins; later writes for
// the same key are dropped so a key never changes value.
func (s *AnswerStore) Put(_ context.Context, documentID, question, answer string) error {
	key := cachekey.Derive(documentID, question)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.answers[key]; exists {
		return nil
	}
	s.answers[key] = answer
	return nil
}

// Len returns the number of cached answers.
func (s *AnswerStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.answers)
}

// Close releases resources.
func (s *AnswerStore) Close() error {
	return nil
}
