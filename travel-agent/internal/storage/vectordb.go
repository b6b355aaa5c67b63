package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
)

// Record is one vector to upsert into the index.
type Record struct {
	ID        string
	Embedding []float32
	Metadata  map[string]any
}

// Match is one nearest-neighbour hit. Raw vector values are never returned.
type Match struct {
	ID       string
	Score    float64
	Metadata map[string]any
}

// EnsureSchema creates the pgvector extension, the table and its cosine HNSW index.
func (s *Store) EnsureSchema(ctx context.Context, dim int) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			embedding vector(%d) NOT NULL,
			metadata JSONB NOT NULL DEFAULT '{}'::jsonb
		)`, s.table, dim),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_embedding_idx ON %s USING hnsw (embedding vector_cosine_ops)`, s.table, s.table),
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// Upsert writes records in one batch, replacing existing ids.
func (s *Store) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	query := fmt.Sprintf(`INSERT INTO %s (id, embedding, metadata) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET embedding = EXCLUDED.embedding, metadata = EXCLUDED.metadata`, s.table)

	batch := &pgx.Batch{}
	for _, r := range records {
		meta, err := json.Marshal(r.Metadata)
		if err != nil {
			return fmt.Errorf("encoding metadata for %s: %w", r.ID, err)
		}
		batch.Queue(query, r.ID, pgvector.NewVector(r.Embedding), meta)
	}

	br := s.pool.SendBatch(ctx, batch)
	var errs []error
	for _, r := range records {
		if _, err := br.Exec(); err != nil {
			errs = append(errs, fmt.Errorf("upsert %s: %w", r.ID, err))
		}
	}
	if err := br.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Query returns the topK most similar records by cosine similarity, best first.
func (s *Store) Query(ctx context.Context, embedding []float32, topK int) ([]Match, error) {
	rows, err := s.pool.Query(ctx,
		fmt.Sprintf(`SELECT id, 1 - (embedding <=> $1) AS score, metadata FROM %s ORDER BY embedding <=> $1 LIMIT $2`, s.table),
		pgvector.NewVector(embedding), topK)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var results []Match
	for rows.Next() {
		var (
			m    Match
			meta []byte
		)
		if err := rows.Scan(&m.ID, &m.Score, &meta); err != nil {
			return nil, err
		}
		if m.Metadata, err = decodeMetadata(meta); err != nil {
			return nil, fmt.Errorf("decoding metadata for %s: %w", m.ID, err)
		}
		results = append(results, m)
	}
	return results, rows.Err()
}

// decodeMetadata never returns a nil map, so a JSON null row reads as {}.
func decodeMetadata(raw []byte) (map[string]any, error) {
	var meta map[string]any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &meta); err != nil {
			return nil, err
		}
	}
	if meta == nil {
		meta = map[string]any{}
	}
	return meta, nil
}
