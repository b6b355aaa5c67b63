// Package graph is the question workflow: route the question, fan out to the
// retrieval branches the route calls for, then synthesize one answer.
package graph

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Classifier picks the route for a question.
type Classifier interface {
	Classify(ctx context.Context, question string) Decision
}

// Answerer produces the final answer from the question and both context fields.
type Answerer interface {
	Synthesize(ctx context.Context, question, vectorContext, graphContext string) string
}

// Workflow runs the execution graph. All collaborators are injected.
type Workflow struct {
	router Classifier
	vector Searcher
	graph  Searcher
	synth  Answerer
	log    *zap.Logger
}

func NewWorkflow(router Classifier, vector, graph Searcher, synth Answerer, log *zap.Logger) *Workflow {
	return &Workflow{router: router, vector: vector, graph: graph, synth: synth, log: log}
}

// Run walks the transition table from the router to the end stage. Stages degrade
// instead of failing, so an error here means the workflow itself is broken.
func (w *Workflow) Run(ctx context.Context, question string) (State, error) {
	start := time.Now()
	s := NewState(question)
	stage := StageRouter

	var err error
	for stage != StageEnd {
		s = s.visit(stage)
		if s, err = s.Merge(w.exec(ctx, stage, s)); err != nil {
			return s, fmt.Errorf("stage %s: %w", stage, err)
		}

		next := Next(stage, s.Route())
		switch {
		case len(next) == 0:
			return s, fmt.Errorf("no transition out of stage %s", stage)
		case len(next) == 1:
			stage = next[0]
		default:
			w.log.Info("fanning out", zap.Any("branches", next))
			if s, err = w.fanOut(ctx, next, s); err != nil {
				return s, fmt.Errorf("stage %s: %w", stage, err)
			}
			if stage, err = join(next, s.Route()); err != nil {
				return s, err
			}
		}
	}
	s = s.visit(StageEnd)
	w.log.Info("workflow complete",
		zap.String("route", string(s.Route())),
		zap.Any("trace", s.Trace()),
		zap.Duration("took", time.Since(start)))
	return s, nil
}

// exec is the stage dispatch. Stages without work return a nil update.
func (w *Workflow) exec(ctx context.Context, stage Stage, s State) Update {
	switch stage {
	case StageRouter:
		d := w.router.Classify(ctx, s.Question())
		return RouteUpdate{Route: d.Route, Rationale: d.Rationale}
	case StageVectorSearch:
		return w.vectorSearch(ctx, s)
	case StageGraphSearch:
		return w.graphSearch(ctx, s)
	case StageSynthesize:
		return AnswerUpdate{Answer: w.synth.Synthesize(ctx, s.Question(), s.VectorContext(), s.GraphContext())}
	default:
		// parallel_search is only a barrier
		return nil
	}
}

// join returns the single stage every branch converges on.
func join(branches []Stage, route Route) (Stage, error) {
	var target Stage
	for _, b := range branches {
		next := Next(b, route)
		if len(next) != 1 || (target != "" && next[0] != target) {
			return "", fmt.Errorf("branches %v do not converge", branches)
		}
		target = next[0]
	}
	return target, nil
}
