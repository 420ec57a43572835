package transcript

import (
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

var (
	codecOnce sync.Once
	codec     tokenizer.Codec
)

// EstimateTokens approximates the token count of the final answer text for
// usage reporting. Falls back to a bytes/4 heuristic if the encoder cannot be
// loaded.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	codecOnce.Do(func() {
		codec, _ = tokenizer.Get(tokenizer.O200kBase)
	})
	if codec == nil {
		return len(text) / 4
	}
	ids, _, err := codec.Encode(text)
	if err != nil {
		return len(text) / 4
	}
	return len(ids)
}
