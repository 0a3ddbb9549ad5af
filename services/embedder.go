package services

import (
	"context"

	"github.com/philippgille/chromem-go"
	"github.com/rotisserie/eris"
)

// Embedder maps texts to fixed-length vectors, one per input.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// ChromemEmbedder adapts a chromem embedding function to Embedder.
type ChromemEmbedder struct {
	fn chromem.EmbeddingFunc
}

// NewChromemEmbedder wraps fn.
func NewChromemEmbedder(fn chromem.EmbeddingFunc) *ChromemEmbedder {
	return &ChromemEmbedder{fn: fn}
}

// NewOpenAIEmbedder embeds through the OpenAI embeddings API.
func NewOpenAIEmbedder(apiKey, model string) *ChromemEmbedder {
	if model == "" {
		model = string(chromem.EmbeddingModelOpenAI3Small)
	}
	return NewChromemEmbedder(chromem.NewEmbeddingFuncOpenAI(apiKey, chromem.EmbeddingModelOpenAI(model)))
}

// NewOllamaEmbedder embeds through a local Ollama server.
func NewOllamaEmbedder(model, baseURL string) *ChromemEmbedder {
	if model == "" {
		model = "nomic-embed-text"
	}
	return NewChromemEmbedder(chromem.NewEmbeddingFuncOllama(model, baseURL))
}

// Embed implements Embedder.
func (e *ChromemEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.fn(ctx, t)
		if err != nil {
			return nil, eris.Wrapf(err, "embedding text %d", i)
		}
		out[i] = v
	}
	return out, nil
}
