package knowledge

import (
	"context"
	"fmt"
	"regexp"

	"go.uber.org/zap"

	"github.com/Divas-Gupta30/hybrid-chat/travel-agent/internal/processing"
)

// Labels are the node types the graph keeps; anything else in the dataset is skipped.
var Labels = map[string]bool{
	"City":       true,
	"Hotel":      true,
	"Attraction": true,
	"Activity":   true,
}

var relationName = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// Writer is the part of Graph the loader needs.
type Writer interface {
	Write(ctx context.Context, query string, params map[string]any) error
}

// LoadStats counts what a load wrote and skipped.
type LoadStats struct {
	Nodes         int
	Relationships int
	Skipped       int
}

// LoadNodes merges dataset nodes under their type label, then their connections as
// typed relationships. Labels and relationship types cannot be query parameters, so
// both are checked before being spliced into the statement.
func LoadNodes(ctx context.Context, w Writer, nodes []processing.Node, log *zap.Logger) (LoadStats, error) {
	var stats LoadStats
	for _, n := range nodes {
		if n.ID == "" || !Labels[n.Type] {
			stats.Skipped++
			continue
		}
		props := map[string]any{"name": n.Name}
		if n.Description != "" {
			props["description"] = n.Description
		}
		if len(n.Tags) > 0 {
			props["tags"] = n.Tags
		}
		if n.Region != "" {
			props["region"] = n.Region
		}
		q := fmt.Sprintf(`MERGE (n:%s {id: $id}) SET n += $props`, n.Type)
		if err := w.Write(ctx, q, map[string]any{"id": n.ID, "props": props}); err != nil {
			return stats, fmt.Errorf("merging node %s: %w", n.ID, err)
		}
		stats.Nodes++
	}

	for _, n := range nodes {
		if n.ID == "" || !Labels[n.Type] {
			continue
		}
		for _, c := range n.Connections {
			if !relationName.MatchString(c.Relation) || c.Target == "" {
				log.Warn("skipping connection", zap.String("from", n.ID), zap.String("relation", c.Relation), zap.String("target", c.Target))
				stats.Skipped++
				continue
			}
			q := fmt.Sprintf(`MATCH (a:%s {id: $from}) MATCH (b {id: $to}) MERGE (a)-[:%s]->(b)`, n.Type, c.Relation)
			if err := w.Write(ctx, q, map[string]any{"from": n.ID, "to": c.Target}); err != nil {
				return stats, fmt.Errorf("merging %s-[%s]->%s: %w", n.ID, c.Relation, c.Target, err)
			}
			stats.Relationships++
		}
	}
	log.Info("graph load complete", zap.Int("nodes", stats.Nodes), zap.Int("relationships", stats.Relationships), zap.Int("skipped", stats.Skipped))
	return stats, nil
}
