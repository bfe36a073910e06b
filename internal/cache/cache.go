package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

// Cache stores generated answers. Generation is deterministic (beam search,
// no sampling) so identical requests against the same model can be served
// from cache.
type Cache interface {
	// GetAnswer retrieves a cached answer by key
	// Returns nil if not found
	GetAnswer(ctx context.Context, key string) (*Entry, error)

	// SetAnswer stores an answer with TTL
	SetAnswer(ctx context.Context, key string, entry *Entry, ttl time.Duration) error

	// Close closes the cache connection
	Close() error
}

// Entry is a cached answer with its details block.
type Entry struct {
	Answer     string `json:"answer"`
	Details    string `json:"details"`
	Confidence string `json:"confidence"`
	Language   string `json:"language"`
	WordCount  int    `json:"word_count"`
	Truncated  bool   `json:"truncated"`
}

// GenerateCacheKey hashes everything that influences the generated answer.
func GenerateCacheKey(modelName, question, passage, language string, maxLength int) string {
	h := sha256.New()
	for _, part := range []string{modelName, language, strconv.Itoa(maxLength), question, passage} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
