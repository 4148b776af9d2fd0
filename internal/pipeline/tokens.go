package pipeline

import (
	"log/slog"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter wraps a cached cl100k_base tiktoken encoding used for the
// router's input-token heuristic (the long-context threshold check).
// tiktoken.GetEncoding downloads/parses the BPE ranks, so the encoding is
// built once and reused across requests.
type TokenCounter struct {
	logger *slog.Logger

	once sync.Once
	enc  *tiktoken.Tiktoken
	err  error
}

func NewTokenCounter(logger *slog.Logger) *TokenCounter {
	return &TokenCounter{logger: logger}
}

// Count returns the cl100k_base token length of text, or 0 if the encoding
// could not be loaded (the router then falls back to its non-long-context
// path rather than failing the request).
func (c *TokenCounter) Count(text string) int {
	c.once.Do(func() {
		c.enc, c.err = tiktoken.GetEncoding("cl100k_base")
	})
	if c.err != nil {
		c.logger.Error("failed to load tiktoken encoding", "error", c.err)
		return 0
	}
	return len(c.enc.Encode(text, nil, nil))
}
