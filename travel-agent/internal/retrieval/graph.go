package retrieval

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/Divas-Gupta30/hybrid-chat/travel-agent/internal/logging"
	"github.com/Divas-Gupta30/hybrid-chat/travel-agent/internal/metrics"
)

const (
	NoQuestion    = "No question provided."
	NoGraphAnswer = "No answer found from graph."
	graphErrorFmt = "Error running graph query: "
)

// QA answers a question from the knowledge graph.
type QA interface {
	Ask(ctx context.Context, question string) (string, error)
}

// Graph normalizes the knowledge graph QA chain into a context string.
type Graph struct {
	qa  QA
	log *zap.Logger
}

func NewGraph(qa QA, log *zap.Logger) *Graph {
	return &Graph{qa: qa, log: log}
}

// Search never returns an error; failures are described in the returned text.
func (g *Graph) Search(ctx context.Context, question string) string {
	if strings.TrimSpace(question) == "" {
		g.log.Warn("no question provided to graph search")
		metrics.IncRetrieval("graph", "error")
		return NoQuestion
	}

	answer, err := g.qa.Ask(ctx, question)
	if err != nil {
		g.log.Error("graph query failed", zap.Error(err))
		metrics.IncRetrieval("graph", "error")
		return graphErrorFmt + err.Error()
	}
	if strings.TrimSpace(answer) == "" {
		metrics.IncRetrieval("graph", "empty")
		return NoGraphAnswer
	}
	g.log.Info("graph search complete", zap.String("answer", logging.Truncate(answer, 100)))
	metrics.IncRetrieval("graph", "ok")
	return answer
}
