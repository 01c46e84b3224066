// Package graph keeps the load-order dependency graph in Neo4j: plugins,
// the masters they depend on, and the translations covering them.
package graph

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/rs/zerolog/log"

	"esp-translator/internal/store"
)

// PluginNode is a plugin with its header master list.
type PluginNode struct {
	Name    string
	Masters []string
	Light   bool
}

// Edge is a DEPENDS_ON relationship from a plugin to one of its masters.
// Order is the master's position in the header.
type Edge struct {
	From  string
	To    string
	Order int
}

// Edges computes the dependency edges of plugins. Names compare without
// case; self references and repeated masters are dropped.
func Edges(plugins []PluginNode) []Edge {
	var out []Edge
	for _, p := range plugins {
		seen := map[string]bool{key(p.Name): true}
		order := 0
		for _, m := range p.Masters {
			if m == "" || seen[key(m)] {
				continue
			}
			seen[key(m)] = true
			out = append(out, Edge{From: p.Name, To: m, Order: order})
			order++
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if key(out[i].From) != key(out[j].From) {
			return key(out[i].From) < key(out[j].From)
		}
		return out[i].Order < out[j].Order
	})
	return out
}

func key(name string) string { return strings.ToLower(name) }

// Builder writes plugins and translations into the graph.
type Builder struct {
	driver neo4j.DriverWithContext
}

// NewBuilder creates a new graph builder.
func NewBuilder(driver neo4j.DriverWithContext) *Builder {
	return &Builder{driver: driver}
}

// EnsureSchema creates constraints on the Neo4j database.
func (b *Builder) EnsureSchema(ctx context.Context) error {
	session := b.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	constraints := []string{
		"CREATE CONSTRAINT IF NOT EXISTS FOR (p:Plugin) REQUIRE p.key IS UNIQUE",
		"CREATE CONSTRAINT IF NOT EXISTS FOR (t:Translation) REQUIRE t.name IS UNIQUE",
	}

	for _, c := range constraints {
		if _, err := session.Run(ctx, c, nil); err != nil {
			return fmt.Errorf("create constraint: %w", err)
		}
	}

	log.Info().Msg("Graph schema ensured")
	return nil
}

// SyncPlugin upserts one plugin and replaces its master edges.
func (b *Builder) SyncPlugin(ctx context.Context, name string, masters []string, light bool) error {
	return b.SyncPlugins(ctx, []PluginNode{{Name: name, Masters: masters, Light: light}})
}

// SyncPlugins upserts plugins and replaces their master edges.
func (b *Builder) SyncPlugins(ctx context.Context, plugins []PluginNode) error {
	session := b.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	for _, p := range plugins {
		_, err := session.Run(ctx, `
			MERGE (p:Plugin {key: $key})
			SET p.name = $name, p.light = $light
			WITH p
			OPTIONAL MATCH (p)-[r:DEPENDS_ON]->()
			DELETE r
		`, map[string]any{
			"key":   key(p.Name),
			"name":  p.Name,
			"light": p.Light,
		})
		if err != nil {
			return fmt.Errorf("upsert plugin %s: %w", p.Name, err)
		}
	}

	edges := Edges(plugins)
	for _, e := range edges {
		_, err := session.Run(ctx, `
			MATCH (a:Plugin {key: $from})
			MERGE (b:Plugin {key: $to})
			ON CREATE SET b.name = $toName
			MERGE (a)-[r:DEPENDS_ON]->(b)
			SET r.order = $order
		`, map[string]any{
			"from":   key(e.From),
			"to":     key(e.To),
			"toName": e.To,
			"order":  e.Order,
		})
		if err != nil {
			log.Warn().Err(err).
				Str("plugin", e.From).
				Str("master", e.To).
				Msg("Failed to create dependency")
		}
	}

	log.Info().Int("plugins", len(plugins)).Int("dependencies", len(edges)).Msg("Synced plugins")
	return nil
}

// SyncTranslation upserts a translation and links it to every plugin it
// covers.
func (b *Builder) SyncTranslation(ctx context.Context, t *store.Translation) error {
	session := b.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	_, err := session.Run(ctx, `
		MERGE (t:Translation {name: $name})
		SET t.version = $version, t.source = $source, t.timestamp = $timestamp
		WITH t
		OPTIONAL MATCH (t)-[r:COVERS]->()
		DELETE r
	`, map[string]any{
		"name":      t.Name,
		"version":   t.Version,
		"source":    t.Source,
		"timestamp": t.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("upsert translation %s: %w", t.Name, err)
	}

	for _, plugin := range t.Plugins() {
		_, err := session.Run(ctx, `
			MATCH (t:Translation {name: $name})
			MERGE (p:Plugin {key: $key})
			ON CREATE SET p.name = $plugin
			MERGE (t)-[r:COVERS]->(p)
			SET r.strings = $strings
		`, map[string]any{
			"name":    t.Name,
			"key":     key(plugin),
			"plugin":  plugin,
			"strings": len(t.Strings[plugin]),
		})
		if err != nil {
			return fmt.Errorf("link translation %s to %s: %w", t.Name, plugin, err)
		}
	}

	log.Debug().Str("translation", t.Name).Int("plugins", len(t.Strings)).Msg("Synced translation")
	return nil
}
