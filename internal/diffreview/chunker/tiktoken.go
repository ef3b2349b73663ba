package chunker

import (
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// TiktokenCounter counts tokens with a real BPE encoding instead of the
// char-ratio heuristic. Falls back to CharRatioCounter if the encoding for
// the configured model is unknown.
type TiktokenCounter struct {
	encoding string

	once sync.Once
	enc  *tiktoken.Tiktoken
	err  error
}

// NewTiktokenCounter returns a counter for the given tiktoken encoding name
// (e.g. "cl100k_base"). The encoding is loaded lazily on first use.
func NewTiktokenCounter(encoding string) *TiktokenCounter {
	return &TiktokenCounter{encoding: encoding}
}

// CountTokens implements TokenCounter.
func (c *TiktokenCounter) CountTokens(text string) int {
	c.once.Do(func() {
		c.enc, c.err = tiktoken.GetEncoding(c.encoding)
	})
	if c.err != nil || c.enc == nil {
		return CharRatioCounter{}.CountTokens(text)
	}
	return len(c.enc.Encode(text, nil, nil))
}
