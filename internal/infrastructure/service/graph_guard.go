package service

import (
	"context"

	"github.com/epitaphe360/siport-sub000/internal/domain/matching"
	"github.com/epitaphe360/siport-sub000/internal/domain/shared"
	"github.com/epitaphe360/siport-sub000/pkg/circuitbreaker"
)

// GuardedRelationshipGraph wraps a matching.RelationshipGraph with a circuit
// breaker. When the underlying graph (a SQL query over the connections table)
// starts failing, the breaker opens and lookups degrade to zero mutual
// connections instead of hammering a struggling database. Recommendations
// stay available, only the collaboration enrichment is lost.
type GuardedRelationshipGraph struct {
	graph   matching.RelationshipGraph
	breaker *circuitbreaker.CircuitBreaker
}

// NewGuardedRelationshipGraph wraps graph with the given breaker.
// A nil breaker gets sensible defaults.
func NewGuardedRelationshipGraph(graph matching.RelationshipGraph, breaker *circuitbreaker.CircuitBreaker) *GuardedRelationshipGraph {
	if breaker == nil {
		breaker = circuitbreaker.New(circuitbreaker.DefaultConfig("relationship-graph"))
	}
	return &GuardedRelationshipGraph{graph: graph, breaker: breaker}
}

// MutualConnectionCount implements matching.RelationshipGraph.
func (g *GuardedRelationshipGraph) MutualConnectionCount(ctx context.Context, a, b matching.ParticipantID) (int, error) {
	var count int
	err := g.breaker.Execute(ctx, func(ctx context.Context) error {
		var execErr error
		count, execErr = g.graph.MutualConnectionCount(ctx, a, b)
		return execErr
	})
	if err != nil {
		return 0, shared.WrapError("graph", "MutualConnectionCount", shared.ErrServiceUnavailable, "relationship graph unavailable", err)
	}
	return count, nil
}
