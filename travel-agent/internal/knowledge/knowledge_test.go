package knowledge

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Divas-Gupta30/hybrid-chat/travel-agent/internal/llm"
	"github.com/Divas-Gupta30/hybrid-chat/travel-agent/internal/processing"
)

type fakeReader struct {
	rows  []map[string]any
	err   error
	query string
}

func (f *fakeReader) Read(_ context.Context, query string, _ map[string]any) ([]map[string]any, error) {
	f.query = query
	return f.rows, f.err
}

type fakeWriter struct {
	queries []string
	params  []map[string]any
}

func (f *fakeWriter) Write(_ context.Context, query string, params map[string]any) error {
	f.queries = append(f.queries, query)
	f.params = append(f.params, params)
	return nil
}

// scriptedLLM answers the Cypher generation call first, then the QA call.
func scriptedLLM(cypher, answer string, calls *[]llm.Request) llm.Completer {
	return llm.CompleterFunc(func(_ context.Context, r llm.Request) (string, error) {
		*calls = append(*calls, r)
		if len(*calls) == 1 {
			return cypher, nil
		}
		return answer, nil
	})
}

func TestCypherQAAsk(t *testing.T) {
	var calls []llm.Request
	reader := &fakeReader{rows: []map[string]any{
		{"id": "hotel_1", "name": "La Siesta"},
		{"id": "hotel_2", "name": "Hanoi Pearl"},
	}}
	qa := &CypherQA{
		LLM:    scriptedLLM("```cypher\nMATCH (h:Hotel)-[:Located_In]->(c:City {name: \"Hanoi\"}) RETURN h.id, h.name\n```", "La Siesta and Hanoi Pearl.", &calls),
		Graph:  reader,
		Schema: "Node properties:\nHotel {name: STRING}",
		Log:    zap.NewNop(),
	}

	answer, err := qa.Ask(context.Background(), "List all hotels in Hanoi.")
	require.NoError(t, err)
	assert.Equal(t, "La Siesta and Hanoi Pearl.", answer)
	assert.True(t, strings.HasPrefix(reader.query, "MATCH (h:Hotel)"))

	require.Len(t, calls, 2)
	assert.Contains(t, calls[0].System, "NEVER use the generic `Entity` label")
	assert.Contains(t, calls[0].System, "Hotel {name: STRING}")
	assert.Equal(t, "List all hotels in Hanoi.", calls[0].Prompt)
	assert.Contains(t, calls[1].Prompt, `"name":"La Siesta"`)
	assert.Contains(t, calls[1].Prompt, "Question: List all hotels in Hanoi.")
}

func TestCypherQATruncatesRecords(t *testing.T) {
	var calls []llm.Request
	rows := make([]map[string]any, 25)
	for i := range rows {
		rows[i] = map[string]any{"n": i}
	}
	qa := &CypherQA{LLM: scriptedLLM("MATCH (n:City) RETURN n.name", "ok", &calls), Graph: &fakeReader{rows: rows}, TopK: 3, Log: zap.NewNop()}

	_, err := qa.Ask(context.Background(), "cities?")
	require.NoError(t, err)
	assert.Contains(t, calls[1].Prompt, `[{"n":0},{"n":1},{"n":2}]`)
}

func TestCypherQAErrors(t *testing.T) {
	var calls []llm.Request
	qa := &CypherQA{LLM: scriptedLLM("MATCH (n) DETACH DELETE n", "", &calls), Graph: &fakeReader{}, Log: zap.NewNop()}
	_, err := qa.Ask(context.Background(), "wipe it")
	assert.ErrorIs(t, err, ErrWriteQuery)

	calls = nil
	qa = &CypherQA{LLM: scriptedLLM("MATCH (n:City) RETURN n", "", &calls), Graph: &fakeReader{err: errors.New("syntax error")}, Log: zap.NewNop()}
	_, err = qa.Ask(context.Background(), "cities?")
	assert.EqualError(t, err, "syntax error")

	failing := llm.CompleterFunc(func(context.Context, llm.Request) (string, error) { return "", errors.New("rate limited") })
	qa = &CypherQA{LLM: failing, Graph: &fakeReader{}, Log: zap.NewNop()}
	_, err = qa.Ask(context.Background(), "cities?")
	assert.ErrorContains(t, err, "rate limited")
}

func TestExtractCypher(t *testing.T) {
	got, err := ExtractCypher("cypher: MATCH (a:Attraction {name: \"Set Menu Bar\"}) RETURN a.name")
	require.NoError(t, err)
	assert.Equal(t, `MATCH (a:Attraction {name: "Set Menu Bar"}) RETURN a.name`, got)

	_, err = ExtractCypher("MERGE (c:City {name: 'Hue'})")
	assert.ErrorIs(t, err, ErrWriteQuery)

	_, err = ExtractCypher("```\n```")
	assert.Error(t, err)
}

func TestRenderSchema(t *testing.T) {
	props := []map[string]any{
		{"nodeLabels": []any{"Hotel"}, "propertyName": "name", "propertyTypes": []any{"String"}},
		{"nodeLabels": []any{"City"}, "propertyName": "name", "propertyTypes": []any{"String"}},
		{"nodeLabels": []any{"Hotel"}, "propertyName": "tags", "propertyTypes": []any{"StringArray"}},
	}
	rels := []map[string]any{
		{"from": []any{"Hotel"}, "rel": "Located_In", "to": []any{"City"}},
		{"from": []any{"Hotel"}, "rel": "Located_In", "to": []any{"City"}},
		{"from": []any{"Activity"}, "rel": "Available_In", "to": []any{"City"}},
	}
	want := `Node properties:
City {name: STRING}
Hotel {name: STRING, tags: STRINGARRAY}
The relationships:
(:Activity)-[:Available_In]->(:City)
(:Hotel)-[:Located_In]->(:City)`
	assert.Equal(t, want, renderSchema(props, rels))
}

func TestLoadNodes(t *testing.T) {
	w := &fakeWriter{}
	nodes := []processing.Node{
		{ID: "city_hanoi", Type: "City", Name: "Hanoi", Region: "North"},
		{ID: "hotel_1", Type: "Hotel", Name: "La Siesta", Tags: []string{"boutique"}, Connections: []processing.Connection{
			{Relation: "Located_In", Target: "city_hanoi"},
			{Relation: "Bad Relation", Target: "city_hanoi"},
		}},
		{ID: "guide_1", Type: "Guide", Name: "Unsupported"},
	}

	stats, err := LoadNodes(context.Background(), w, nodes, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, LoadStats{Nodes: 2, Relationships: 1, Skipped: 2}, stats)
	require.Len(t, w.queries, 3)
	assert.Equal(t, "MERGE (n:City {id: $id}) SET n += $props", w.queries[0])
	assert.Equal(t, "MATCH (a:Hotel {id: $from}) MATCH (b {id: $to}) MERGE (a)-[:Located_In]->(b)", w.queries[2])
	assert.Equal(t, []string{"boutique"}, w.params[1]["props"].(map[string]any)["tags"])
}
