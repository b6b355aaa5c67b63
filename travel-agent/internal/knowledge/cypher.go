package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/Divas-Gupta30/hybrid-chat/travel-agent/internal/llm"
	"github.com/Divas-Gupta30/hybrid-chat/travel-agent/internal/logging"
)

const cypherGenerationTemplate = `You are an expert Neo4j Developer translating user questions into Cypher to
answer questions about travel in Vietnam.

**CRITICAL INSTRUCTIONS:**
1. ALWAYS use the node labels ` + "`City`, `Hotel`, `Attraction`, or `Activity`" + `.
2. NEVER use the generic ` + "`Entity`" + ` label.
3. NEVER query for string properties like ` + "`city` or `type` on `Hotel`, `Attraction`, or `Activity`" + ` nodes.
4. ALWAYS find a node's city by following:
   - (:Hotel)-[:Located_In]->(:City)
   - (:Attraction)-[:Located_In]->(:City)
   - (:Activity)-[:Available_In]->(:City)
5. ALWAYS query nodes by their ` + "`name`" + ` property (e.g., name: "Hanoi").
6. ALWAYS return id, name, and relevant properties.
7. Output only the Cypher statement, no explanations.

Schema:
%s`

const qaTemplate = `You are an assistant that helps to form nice and human understandable answers.
The information part contains the provided information that you must use to construct an answer.
The provided information is authoritative, you must never doubt it or try to use your internal knowledge to correct it.
Make the answer sound as a response to the question. Do not mention that you based the result on the given information.
If the provided information is empty, say that you don't know the answer.

Information:
%s

Question: %s
Helpful Answer:`

// DefaultTopK bounds how many graph records reach the answer prompt.
const DefaultTopK = 10

var writeClause = regexp.MustCompile(`(?i)\b(CREATE|MERGE|DELETE|DETACH|SET|REMOVE|DROP|LOAD\s+CSV|FOREACH)\b`)

// ErrWriteQuery is returned when the generated Cypher would modify the graph.
var ErrWriteQuery = errors.New("generated cypher modifies the graph")

// Reader is the part of Graph the QA chain needs.
type Reader interface {
	Read(ctx context.Context, query string, params map[string]any) ([]map[string]any, error)
}

// CypherQA answers a question by generating Cypher, running it and rendering the
// records back to text.
type CypherQA struct {
	LLM    llm.Completer
	Graph  Reader
	Schema string
	TopK   int
	Log    *zap.Logger
}

// Ask runs the translate, execute and render cycle for one question.
func (c *CypherQA) Ask(ctx context.Context, question string) (string, error) {
	generated, err := c.LLM.Complete(ctx, llm.Request{
		System:      fmt.Sprintf(cypherGenerationTemplate, c.Schema),
		Prompt:      question,
		Temperature: 0,
	})
	if err != nil {
		return "", fmt.Errorf("generating cypher: %w", err)
	}
	cypher, err := ExtractCypher(generated)
	if err != nil {
		return "", err
	}
	c.Log.Info("generated cypher", zap.String("cypher", cypher))

	rows, err := c.Graph.Read(ctx, cypher, nil)
	if err != nil {
		return "", err
	}
	topK := c.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	if len(rows) > topK {
		rows = rows[:topK]
	}
	if rows == nil {
		rows = []map[string]any{}
	}
	info, err := json.Marshal(rows)
	if err != nil {
		return "", fmt.Errorf("encoding graph records: %w", err)
	}
	c.Log.Debug("graph records", zap.Int("count", len(rows)), zap.String("records", logging.Truncate(string(info), 300)))

	answer, err := c.LLM.Complete(ctx, llm.Request{
		Prompt:      fmt.Sprintf(qaTemplate, info, question),
		Temperature: 0,
	})
	if err != nil {
		return "", fmt.Errorf("rendering graph answer: %w", err)
	}
	return answer, nil
}

// ExtractCypher strips fences and prefixes from a generated statement and rejects
// anything that would write to the graph.
func ExtractCypher(generated string) (string, error) {
	s := llm.StripFences(generated)
	if len(s) >= 7 && strings.EqualFold(s[:7], "cypher:") {
		s = strings.TrimSpace(s[7:])
	}
	if s == "" {
		return "", errors.New("empty cypher generated")
	}
	if writeClause.MatchString(stripStrings(s)) {
		return "", ErrWriteQuery
	}
	return s, nil
}

var quoted = regexp.MustCompile(`"[^"]*"|'[^']*'`)

// stripStrings blanks quoted literals so names like "Sunset Bar" don't trip the write check.
func stripStrings(s string) string {
	return quoted.ReplaceAllString(s, `""`)
}
