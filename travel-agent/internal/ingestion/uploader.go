package ingestion

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Divas-Gupta30/hybrid-chat/travel-agent/internal/metrics"
	"github.com/Divas-Gupta30/hybrid-chat/travel-agent/internal/processing"
	"github.com/Divas-Gupta30/hybrid-chat/travel-agent/internal/storage"
)

const (
	BatchSize   = 64
	Concurrency = 5
)

// BatchEmbedder embeds document text in bulk.
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Upserter writes records to the vector index.
type Upserter interface {
	Upsert(ctx context.Context, records []storage.Record) error
}

// UploadStats summarizes an upload run.
type UploadStats struct {
	Uploaded      int
	Skipped       int
	FailedBatches int
}

// Uploader embeds dataset nodes and upserts them into the vector index.
type Uploader struct {
	Embedder    BatchEmbedder
	Store       Upserter
	BatchSize   int
	Concurrency int
	Log         *zap.Logger
}

// Upload processes nodes in batches on a bounded number of workers. A failed batch
// is logged and counted; the remaining batches still run.
func (u *Uploader) Upload(ctx context.Context, nodes []processing.Node) (UploadStats, error) {
	type item struct {
		node processing.Node
		text string
	}
	var (
		items []item
		stats UploadStats
	)
	for _, n := range nodes {
		text := processing.SemanticText(n)
		if n.ID == "" || text == "" {
			stats.Skipped++
			continue
		}
		items = append(items, item{node: n, text: text})
	}

	size, limit := u.BatchSize, u.Concurrency
	if size <= 0 {
		size = BatchSize
	}
	if limit <= 0 {
		limit = Concurrency
	}
	batches := processing.Batches(items, size)
	u.Log.Info("uploading", zap.Int("items", len(items)), zap.Int("batches", len(batches)), zap.Int("skipped", stats.Skipped))

	var uploaded, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, batch := range batches {
		g.Go(func() error {
			texts := make([]string, len(batch))
			for j, it := range batch {
				texts[j] = it.text
			}
			records, err := u.embed(gctx, texts)
			if err == nil {
				for j := range records {
					records[j].ID = batch[j].node.ID
					records[j].Metadata = metadataMap(processing.MetadataOf(batch[j].node))
				}
				err = u.Store.Upsert(gctx, records)
			}
			if err != nil {
				u.Log.Error("batch failed", zap.Int("batch", i), zap.Error(err))
				metrics.IncIngestBatch("error")
				failed.Add(1)
				return nil
			}
			metrics.IncIngestBatch("ok")
			uploaded.Add(int64(len(records)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stats, err
	}
	stats.Uploaded = int(uploaded.Load())
	stats.FailedBatches = int(failed.Load())
	if err := ctx.Err(); err != nil {
		return stats, err
	}
	u.Log.Info("upload complete", zap.Int("uploaded", stats.Uploaded), zap.Int("failed_batches", stats.FailedBatches))
	return stats, nil
}

func (u *Uploader) embed(ctx context.Context, texts []string) ([]storage.Record, error) {
	embs, err := u.Embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(embs) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(embs), len(texts))
	}
	records := make([]storage.Record, len(embs))
	for i, e := range embs {
		records[i].Embedding = e
	}
	return records, nil
}

func metadataMap(m processing.Metadata) map[string]any {
	return map[string]any{
		"id":   m.ID,
		"type": m.Type,
		"name": m.Name,
		"city": m.City,
		"tags": m.Tags,
	}
}
