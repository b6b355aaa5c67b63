package graph

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Divas-Gupta30/hybrid-chat/travel-agent/internal/llm"
	"github.com/Divas-Gupta30/hybrid-chat/travel-agent/internal/logging"
	"github.com/Divas-Gupta30/hybrid-chat/travel-agent/internal/metrics"
)

// NoContext stands in for a context field whose branch did not run.
const NoContext = "No context provided."

const (
	synthesisTemperature = 0.2
	synthesisMaxTokens   = 1024
	apologyPrefix        = "Sorry, an error occurred while generating the answer: "
)

const synthesisTemplate = `You are an expert Vietnam travel assistant. Your job is to synthesize a single,
comprehensive, and helpful answer for the user.

You have been provided with the user's original question and may have one or
two sources of context to help you answer.

**User's Original Question:**
{question}

---
**Context from Vector Search (General info, descriptions, recommendations):**
{vector_context}

---
**Context from Graph Search (Specific facts, lists, properties like address/price):**
{graph_context}

---
**Your Task:**
1. Analyze the user's question and all available context.
2. Base your answer *only* on the provided contexts. Do not make up information.
3. If both contexts are provided, combine them into one seamless answer.
4. If only one context is provided, use that to answer the question.
5. If both context sections are empty or say 'No context', it means no
   information was found, or the user asked a simple greeting (like 'Hello').
   In this case, provide a friendly, conversational response.
6. Do not mention "Vector Search" or "Graph Search" in your final answer.
   Just present the information as a helpful assistant.

**Final Answer:**
`

// Synthesizer writes the final answer from the question and whatever context the
// retrieval branches produced.
type Synthesizer struct {
	llm llm.Completer
	log *zap.Logger
}

func NewSynthesizer(c llm.Completer, log *zap.Logger) *Synthesizer {
	return &Synthesizer{llm: c, log: log}
}

// Synthesize never fails: a completion error becomes an apology carrying the error text.
func (s *Synthesizer) Synthesize(ctx context.Context, question, vectorContext, graphContext string) string {
	start := time.Now()
	defer metrics.ObserveStage(string(StageSynthesize), start)

	if strings.TrimSpace(vectorContext) == "" {
		vectorContext = NoContext
	}
	if strings.TrimSpace(graphContext) == "" {
		graphContext = NoContext
	}
	s.log.Info("synthesizing answer", zap.String("question", question))
	s.log.Debug("synthesis context",
		zap.String("vector", logging.Truncate(vectorContext, 120)),
		zap.String("graph", logging.Truncate(graphContext, 120)))

	// placeholders are substituted in one pass, so braces inside contexts are left alone
	prompt := strings.NewReplacer(
		"{question}", question,
		"{vector_context}", vectorContext,
		"{graph_context}", graphContext,
	).Replace(synthesisTemplate)

	answer, err := s.llm.Complete(ctx, llm.Request{
		Prompt:      prompt,
		Temperature: synthesisTemperature,
		MaxTokens:   synthesisMaxTokens,
	})
	if err != nil {
		s.log.Error("synthesis failed", zap.Error(err))
		metrics.IncSynthesisFailure()
		return apologyPrefix + err.Error()
	}
	return answer
}
