package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/rs/zerolog/log"
)

// Querier reads the dependency graph.
type Querier struct {
	driver neo4j.DriverWithContext
}

// NewQuerier creates a new graph querier.
func NewQuerier(driver neo4j.DriverWithContext) *Querier {
	return &Querier{driver: driver}
}

// Dependents returns every plugin that needs master, directly or through
// another master, sorted by name.
func (q *Querier) Dependents(ctx context.Context, master string) ([]string, error) {
	return q.names(ctx, `
		MATCH (m:Plugin {key: $key})<-[:DEPENDS_ON*1..]-(p:Plugin)
		RETURN DISTINCT p.name AS name
		ORDER BY name
	`, master)
}

// Coverage returns the names of the translations covering plugin.
func (q *Querier) Coverage(ctx context.Context, plugin string) ([]string, error) {
	return q.names(ctx, `
		MATCH (t:Translation)-[:COVERS]->(p:Plugin {key: $key})
		RETURN t.name AS name
		ORDER BY name
	`, plugin)
}

func (q *Querier) names(ctx context.Context, cypher, plugin string) ([]string, error) {
	session := q.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.Run(ctx, cypher, map[string]any{"key": key(plugin)})
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", plugin, err)
	}

	var out []string
	for result.Next(ctx) {
		name, _ := result.Record().Get("name")
		out = append(out, fmt.Sprintf("%v", name))
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("query %s: %w", plugin, err)
	}

	log.Debug().Str("plugin", plugin).Int("results", len(out)).Msg("Graph query complete")
	return out, nil
}
