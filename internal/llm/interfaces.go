package llm

import "context"

// TextGenerator is the completion contract expected of a language model:
// prompt text in, reply text out. No schema is enforced by the transport;
// the response parser is the only defense against malformed output.
type TextGenerator interface {
	Complete(ctx context.Context, prompt string) (string, error)
	GetModel() string
}

// EmbeddingGenerator converts text into a fixed-length vector. Dimensionality
// is fixed per deployment (default 1536).
type EmbeddingGenerator interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	GetModel() string
}
