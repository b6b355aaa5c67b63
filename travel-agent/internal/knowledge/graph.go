// Package knowledge holds the Neo4j travel knowledge graph and the question
// answering chain that translates questions into Cypher against it.
package knowledge

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/Divas-Gupta30/hybrid-chat/travel-agent/internal/config"
)

// Graph wraps a Neo4j driver bound to one database.
type Graph struct {
	driver   neo4j.DriverWithContext
	database string
	log      *zap.Logger
}

// Connect creates the driver and verifies the server is reachable.
func Connect(ctx context.Context, cfg config.GraphConfig, log *zap.Logger) (*Graph, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("creating neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("connecting to neo4j at %s: %w", cfg.URI, err)
	}
	log.Info("neo4j connected", zap.String("uri", cfg.URI), zap.String("database", cfg.Database))
	return &Graph{driver: driver, database: cfg.Database, log: log}, nil
}

func (g *Graph) Close(ctx context.Context) error {
	return g.driver.Close(ctx)
}

// Read runs a read-only query and returns every record as a key/value map.
func (g *Graph) Read(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	session := g.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: g.database,
	})
	defer session.Close(ctx)

	result, err := session.Run(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("running cypher: %w", err)
	}
	var rows []map[string]any
	for result.Next(ctx) {
		rows = append(rows, result.Record().AsMap())
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("reading cypher results: %w", err)
	}
	return rows, nil
}

// Write runs a statement in a write session.
func (g *Graph) Write(ctx context.Context, query string, params map[string]any) error {
	session := g.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: g.database,
	})
	defer session.Close(ctx)

	result, err := session.Run(ctx, query, params)
	if err != nil {
		return fmt.Errorf("running cypher: %w", err)
	}
	_, err = result.Consume(ctx)
	return err
}

// Schema describes node properties and relationship patterns in the form the
// Cypher generation prompt expects.
func (g *Graph) Schema(ctx context.Context) (string, error) {
	props, err := g.Read(ctx, `CALL db.schema.nodeTypeProperties()
		YIELD nodeLabels, propertyName, propertyTypes
		RETURN nodeLabels, propertyName, propertyTypes`, nil)
	if err != nil {
		return "", fmt.Errorf("node properties: %w", err)
	}
	rels, err := g.Read(ctx, `MATCH (a)-[r]->(b)
		WITH DISTINCT labels(a) AS from, type(r) AS rel, labels(b) AS to
		RETURN from, rel, to LIMIT 200`, nil)
	if err != nil {
		return "", fmt.Errorf("relationship patterns: %w", err)
	}
	return renderSchema(props, rels), nil
}

func renderSchema(props, rels []map[string]any) string {
	nodes := map[string][]string{}
	for _, row := range props {
		name, _ := row["propertyName"].(string)
		if name == "" {
			continue
		}
		typ := "ANY"
		if types := stringList(row["propertyTypes"]); len(types) > 0 {
			typ = strings.ToUpper(strings.Join(types, "|"))
		}
		for _, label := range stringList(row["nodeLabels"]) {
			nodes[label] = append(nodes[label], fmt.Sprintf("%s: %s", name, typ))
		}
	}

	var b strings.Builder
	b.WriteString("Node properties:\n")
	labels := make([]string, 0, len(nodes))
	for l := range nodes {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	for _, l := range labels {
		fmt.Fprintf(&b, "%s {%s}\n", l, strings.Join(nodes[l], ", "))
	}

	b.WriteString("The relationships:\n")
	seen := map[string]bool{}
	var patterns []string
	for _, row := range rels {
		rel, _ := row["rel"].(string)
		for _, from := range stringList(row["from"]) {
			for _, to := range stringList(row["to"]) {
				p := fmt.Sprintf("(:%s)-[:%s]->(:%s)", from, rel, to)
				if !seen[p] {
					seen[p] = true
					patterns = append(patterns, p)
				}
			}
		}
	}
	sort.Strings(patterns)
	for _, p := range patterns {
		b.WriteString(p)
		b.WriteByte('\n')
	}
	return strings.TrimSpace(b.String())
}

func stringList(v any) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, x := range t {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
