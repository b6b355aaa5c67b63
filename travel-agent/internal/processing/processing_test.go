package processing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Divas-Gupta30/hybrid-chat/travel-agent/internal/config"
)

func TestSemanticText(t *testing.T) {
	assert.Equal(t, "boutique stay", SemanticText(Node{SemanticText: " boutique stay ", Description: "ignored"}))
	assert.Equal(t, "lakeside", SemanticText(Node{Description: "lakeside"}))
	assert.Empty(t, SemanticText(Node{Description: "   "}))

	long := strings.Repeat("ồ", 1500)
	got := SemanticText(Node{Description: long})
	assert.Equal(t, 1000, len([]rune(got)))
}

func TestBatches(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	assert.Equal(t, [][]int{{1, 2}, {3, 4}, {5}}, Batches(items, 2))
	assert.Equal(t, [][]int{{1, 2, 3, 4, 5}}, Batches(items, 0))
	assert.Nil(t, Batches([]int{}, 3))
}

func TestMetadataOf(t *testing.T) {
	m := MetadataOf(Node{ID: "hotel_1", Type: "Hotel", Name: "La Siesta", Region: "Northern Vietnam"})
	assert.Equal(t, "Northern Vietnam", m.City)
	assert.Equal(t, []string{}, m.Tags)

	m = MetadataOf(Node{ID: "hotel_1", City: "Hanoi", Region: "North", Tags: []string{"boutique"}})
	assert.Equal(t, "Hanoi", m.City)
	assert.Equal(t, []string{"boutique"}, m.Tags)
}

func TestOllamaEmbedder(t *testing.T) {
	var dim atomic.Int32
	dim.Store(EmbeddingDim)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embeddings", r.URL.Path)
		var req ollamaRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "all-minilm", req.Model)
		_ = json.NewEncoder(w).Encode(ollamaResponse{Embedding: make([]float32, dim.Load())})
	}))
	defer srv.Close()

	e, err := NewEmbedder(config.EmbeddingConfig{Provider: "ollama", BaseURL: srv.URL, Model: "all-minilm"})
	require.NoError(t, err)

	vecs, err := e.EmbedBatch(context.Background(), []string{"Hanoi", "Hoi An"})
	require.NoError(t, err)
	assert.Len(t, vecs, 2)
	assert.Len(t, vecs[1], EmbeddingDim)

	dim.Store(768)
	_, err = e.Embed(context.Background(), "Da Nang")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected embedding dim 384, got 768")

	_, err = e.Embed(context.Background(), "")
	assert.Error(t, err)
}

func openAIEmbeddingServer(t *testing.T, dim int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		var req struct {
			Model      string   `json:"model"`
			Input      []string `json:"input"`
			Dimensions int      `json:"dimensions"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "text-embedding-3-small", req.Model)
		assert.Equal(t, EmbeddingDim, req.Dimensions)

		// answer in reverse order; each vector is filled with its input's position
		data := make([]string, 0, len(req.Input))
		for i := len(req.Input) - 1; i >= 0; i-- {
			vec := strings.TrimSuffix(strings.Repeat(fmt.Sprintf("%d,", i), dim), ",")
			data = append(data, fmt.Sprintf(`{"object":"embedding","index":%d,"embedding":[%s]}`, i, vec))
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"object":"list","model":%q,"data":[%s],"usage":{"prompt_tokens":1,"total_tokens":1}}`,
			req.Model, strings.Join(data, ","))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIEmbedder(t *testing.T) {
	srv := openAIEmbeddingServer(t, EmbeddingDim)
	e, err := NewEmbedder(config.EmbeddingConfig{Provider: "OpenAI", APIKey: "sk-test", BaseURL: srv.URL})
	require.NoError(t, err)

	vecs, err := e.EmbedBatch(context.Background(), []string{"Hanoi", "Hoi An", "Sapa"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	for i, v := range vecs {
		require.Len(t, v, EmbeddingDim)
		assert.Equal(t, float32(i), v[0], "vector %d is reassembled by index", i)
	}

	one, err := e.Embed(context.Background(), "Da Lat")
	require.NoError(t, err)
	assert.Len(t, one, EmbeddingDim)

	_, err = e.EmbedBatch(context.Background(), nil)
	assert.Error(t, err)
}

func TestOpenAIEmbedderWrongDimension(t *testing.T) {
	srv := openAIEmbeddingServer(t, 1536)
	e := NewOpenAIEmbedder("sk-test", srv.URL, "")

	_, err := e.Embed(context.Background(), "Hue")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected embedding dim 384, got 1536")
}

func TestNewEmbedderUnknown(t *testing.T) {
	_, err := NewEmbedder(config.EmbeddingConfig{Provider: "bert"})
	assert.Error(t, err)
}
