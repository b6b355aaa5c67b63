package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Divas-Gupta30/hybrid-chat/travel-agent/internal/llm"
	"github.com/Divas-Gupta30/hybrid-chat/travel-agent/internal/metrics"
)

const routerPrompt = `You are an expert router for a Vietnam travel assistant. Your sole responsibility
is to analyze the user's query and decide the best tool to use based on the
nature of their question.

You have two data sources:
1.  **Vector Search:** Used for semantic, open-ended, or descriptive
    queries. Good for finding *similar* things or getting *general advice* and
    *recommendations* about cities, hotels, or activities.
2.  **Graph Search:** Used for specific, factual, or relational
    queries. Good for finding *exact matches*, *connections*, or *properties*
    of entities like hotels, cities, and their relationships.

You must choose one of four routes based on the query:

1.  "vector":
    - Use this for questions about "vibe", "suggestions", "descriptions", "recommendations", or "what is... like".
    - Example: "What are some good budget-friendly hotels in Ho Chi Minh City?"
    - Example: "Tell me about the food scene in Hanoi."
    - Example: "Find hotels similar to the 'La Siesta' hotel."
    - Example: "What is Da Nang like for a family vacation?"

2.  "graph":
    - Use this for specific, factual questions about entities and their properties.
    - Example: "What is the address of the 'La Siesta' hotel?"
    - Example: "Which hotels are located in the 'Old Quarter' of Hanoi?"
    - Example: "Does the 'InterContinental' hotel have a pool?"
    - Example: "List all hotels in Hanoi."

3.  "both":
    - Use this for multi-part questions that combine both factual and descriptive needs.
    - Example: "Which hotels are in Hanoi [graph] and what are they like [vector]?"
    - Example: "Tell me the price of the 'Rex Hotel' [graph] and suggest similar hotels [vector]."
    - Example: "List hotels in Da Nang [graph] and give me a summary of the best ones [vector]."

4.  "none":
    - Use this *only* for greetings, simple conversation, or off-topic questions.
    - Example: "Hello"
    - Example: "Thanks, that was helpful."
    - Example: "What's 2+2?"

Respond with a single JSON object and nothing else:
{"route": "vector" | "graph" | "both" | "none", "reasoning": "<one sentence explaining the choice>"}`

// Decision is the router's output.
type Decision struct {
	Route     Route
	Rationale string
}

// Router classifies questions with one structured completion call.
type Router struct {
	llm llm.Completer
	log *zap.Logger
}

func NewRouter(c llm.Completer, log *zap.Logger) *Router {
	return &Router{llm: c, log: log}
}

// Classify never fails: any error becomes RouteNone.
func (r *Router) Classify(ctx context.Context, question string) Decision {
	start := time.Now()
	defer metrics.ObserveStage(string(StageRouter), start)

	d, err := r.classify(ctx, question)
	if err != nil {
		r.log.Error("router failed, falling back to none", zap.Error(err))
		metrics.IncRouterFallback()
		d = Decision{Route: RouteNone, Rationale: "router unavailable: " + err.Error()}
	}
	r.log.Info("router decision", zap.String("route", string(d.Route)), zap.String("reasoning", d.Rationale))
	metrics.IncRoute(string(d.Route))
	return d
}

func (r *Router) classify(ctx context.Context, question string) (Decision, error) {
	out, err := r.llm.Complete(ctx, llm.Request{
		System:      routerPrompt,
		Prompt:      question,
		Temperature: 0,
		JSON:        true,
	})
	if err != nil {
		return Decision{}, err
	}
	var resp struct {
		Route     string `json:"route"`
		Reasoning string `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(llm.StripFences(out)), &resp); err != nil {
		return Decision{}, fmt.Errorf("decoding router output: %w", err)
	}
	route, ok := ParseRoute(resp.Route)
	if !ok {
		return Decision{}, fmt.Errorf("unknown route %q", resp.Route)
	}
	return Decision{Route: route, Rationale: resp.Reasoning}, nil
}
