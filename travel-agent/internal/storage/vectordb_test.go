package storage

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against a real pgvector-enabled Postgres when TEST_DATABASE_URL is set.
func TestStoreRoundTrip(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	s, err := Open(ctx, url, "travel_vectors_test")
	require.NoError(t, err)
	defer s.Close()

	const dim = 3
	require.NoError(t, s.EnsureSchema(ctx, dim))
	t.Cleanup(func() {
		_, _ = s.pool.Exec(context.Background(), "DROP TABLE IF EXISTS travel_vectors_test")
	})

	require.NoError(t, s.Upsert(ctx, []Record{
		{ID: "hotel_1", Embedding: []float32{1, 0, 0}, Metadata: map[string]any{"name": "La Siesta", "city": "Hà Nội"}},
		{ID: "hotel_2", Embedding: []float32{0, 1, 0}, Metadata: map[string]any{"name": "Rex Hotel"}},
		{ID: "hotel_3", Embedding: []float32{0.9, 0.1, 0}, Metadata: map[string]any{"name": "Sofitel Legend"}},
	}))
	// upsert replaces
	require.NoError(t, s.Upsert(ctx, []Record{
		{ID: "hotel_2", Embedding: []float32{0, 0, 1}, Metadata: map[string]any{"name": "Rex Hotel Saigon"}},
	}))

	matches, err := s.Query(ctx, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "hotel_1", matches[0].ID)
	assert.Equal(t, "hotel_3", matches[1].ID)
	assert.GreaterOrEqual(t, matches[0].Score, matches[1].Score)
	assert.Equal(t, "Hà Nội", matches[0].Metadata["city"])
}

func TestUpsertEmptyIsNoop(t *testing.T) {
	s := &Store{table: "unused"}
	assert.NoError(t, s.Upsert(context.Background(), nil))
}

func TestDecodeMetadata(t *testing.T) {
	for name, raw := range map[string]string{"null": `null`, "empty": ``, "object": `{}`} {
		meta, err := decodeMetadata([]byte(raw))
		require.NoError(t, err, name)
		assert.NotNil(t, meta, name)
		assert.Empty(t, meta, name)
	}

	meta, err := decodeMetadata([]byte(`{"name":"Hội An","type":"City"}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "Hội An", "type": "City"}, meta)

	_, err = decodeMetadata([]byte(`[1,2]`))
	assert.Error(t, err)
}
