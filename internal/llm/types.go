package llm

import "context"

type Config struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
}

type Message struct {
	Role    string
	Content string
}

// Request is one generation call. Temperature <= 0 means provider default.
type Request struct {
	System      string
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// ChunkFunc receives streamed text fragments in arrival order. Returning an
// error aborts the stream.
type ChunkFunc func(chunk string) error

type LLM interface {
	// Chat issues a non-streaming generation call and returns the full text.
	Chat(ctx context.Context, req Request) (string, error)
	// ChatStream issues a streaming generation call, forwarding each chunk to
	// onChunk as it arrives, and returns the accumulated full text.
	ChatStream(ctx context.Context, req Request, onChunk ChunkFunc) (string, error)
}
