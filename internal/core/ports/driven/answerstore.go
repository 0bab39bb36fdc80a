package driven

import "context"

// AnswerStore caches final answers keyed by document identity and question.
// Implementations must normalise the question (trim, lowercase) before
// deriving the key so whitespace/case variants hit the cache.
//
// There is no eviction: a key maps to the same answer for the store lifetime.
type AnswerStore interface {
	// Get returns the cached answer, or domain.ErrNotFound on a miss.
	Get(ctx context.Context, documentID, question string) (string, error)

	// Put stores an answer. Overwriting an existing key keeps the old value.
	Put(ctx context.Context, documentID, question, answer string) error

	// Close releases resources.
	Close() error
}
