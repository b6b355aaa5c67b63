// Package retrieval wraps the two context backends behind question-in, text-out
// adapters that never fail: problems come back as error-shaped context.
package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/Divas-Gupta30/hybrid-chat/travel-agent/internal/metrics"
	"github.com/Divas-Gupta30/hybrid-chat/travel-agent/internal/storage"
)

// TopK is the number of neighbours the vector adapter returns.
const TopK = 5

// Embedder computes the query embedding.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Index answers nearest-neighbour queries, best match first.
type Index interface {
	Query(ctx context.Context, embedding []float32, topK int) ([]storage.Match, error)
}

// Vector searches the vector index and returns the metadata of the closest records.
type Vector struct {
	embedder Embedder
	index    Index
	log      *zap.Logger
}

func NewVector(e Embedder, idx Index, log *zap.Logger) *Vector {
	return &Vector{embedder: e, index: idx, log: log}
}

// Search returns a JSON array of metadata objects, or a one-element array holding
// an "error" field.
func (v *Vector) Search(ctx context.Context, question string) string {
	if strings.TrimSpace(question) == "" {
		v.log.Warn("no question provided to vector search")
		metrics.IncRetrieval("vector", "error")
		return errorPayload("Empty question")
	}

	emb, err := v.embedder.Embed(ctx, question)
	if err != nil {
		return v.fail(err)
	}
	matches, err := v.index.Query(ctx, emb, TopK)
	if err != nil {
		return v.fail(err)
	}
	v.log.Info("vector search complete", zap.Int("matches", len(matches)))

	records := make([]map[string]any, 0, len(matches))
	for _, m := range matches {
		meta := m.Metadata
		if meta == nil {
			meta = map[string]any{}
		}
		records = append(records, meta)
	}
	out, err := encode(records)
	if err != nil {
		return v.fail(err)
	}
	if len(records) == 0 {
		metrics.IncRetrieval("vector", "empty")
	} else {
		metrics.IncRetrieval("vector", "ok")
	}
	return out
}

func (v *Vector) fail(err error) string {
	v.log.Error("vector search failed", zap.Error(err))
	metrics.IncRetrieval("vector", "error")
	return errorPayload(err.Error())
}

// encode writes JSON without escaping non-ASCII or HTML characters, so place names
// like "Hội An" reach the prompt as written.
func encode(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

func errorPayload(msg string) string {
	out, err := encode([]map[string]string{{"error": msg}})
	if err != nil {
		return `[{"error":"unencodable error"}]`
	}
	return out
}
