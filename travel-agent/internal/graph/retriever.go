package graph

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Divas-Gupta30/hybrid-chat/travel-agent/internal/metrics"
)

// Searcher is a retrieval adapter: it returns context text and reports failures inside it.
type Searcher interface {
	Search(ctx context.Context, question string) string
}

func (w *Workflow) vectorSearch(ctx context.Context, s State) Update {
	start := time.Now()
	defer metrics.ObserveStage(string(StageVectorSearch), start)
	return VectorUpdate{Context: w.vector.Search(ctx, s.Question())}
}

func (w *Workflow) graphSearch(ctx context.Context, s State) Update {
	start := time.Now()
	defer metrics.ObserveStage(string(StageGraphSearch), start)
	return GraphUpdate{Context: w.graph.Search(ctx, s.Question())}
}

// fanOut runs the branch stages concurrently against the same snapshot and merges
// their updates, in branch order, once every branch has returned.
func (w *Workflow) fanOut(ctx context.Context, branches []Stage, s State) (State, error) {
	updates := make([]Update, len(branches))
	// no branch fails: search errors travel inside the returned context text
	var g errgroup.Group
	for i, b := range branches {
		g.Go(func() error {
			updates[i] = w.exec(ctx, b, s)
			return nil
		})
	}
	_ = g.Wait()

	var err error
	for i, b := range branches {
		s = s.visit(b)
		if s, err = s.Merge(updates[i]); err != nil {
			return s, err
		}
	}
	return s, nil
}
