package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/epitaphe360/siport-sub000/internal/domain/matching"
)

// ══════════════════════════════════════════════════════════════════════════════
// EDGE REPOSITORY IMPLEMENTATION
// Одно каноническое ребро на пару (low_id < high_id). Репозиторий никогда
// не хранит зеркальных записей: направление восстанавливается из requester_id.
// ══════════════════════════════════════════════════════════════════════════════

// EdgeRepository implements matching.EdgeRepository for PostgreSQL.
type EdgeRepository struct {
	conn *Connection
}

// NewEdgeRepository creates a new EdgeRepository.
func NewEdgeRepository(conn *Connection) *EdgeRepository {
	return &EdgeRepository{conn: conn}
}

const edgeColumns = `
	id, low_id, high_id, state, requester_id, low_favorited, high_favorited,
	created_at, updated_at, connected_at
`

// GetByParticipants returns the edge for a pair, direction-agnostic.
// Returns (nil, nil) when the pair has no edge yet.
func (r *EdgeRepository) GetByParticipants(ctx context.Context, a, b matching.ParticipantID) (*matching.ConnectionEdge, error) {
	low, high := string(a), string(b)
	if low > high {
		low, high = high, low
	}

	query := fmt.Sprintf(`SELECT %s FROM connection_edges WHERE low_id = $1 AND high_id = $2`, edgeColumns)

	edge, err := r.scanEdge(r.conn.QueryRow(ctx, query, low, high))
	if err != nil {
		if IsNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return edge, nil
}

// LoadEdges returns all edges involving the participant.
func (r *EdgeRepository) LoadEdges(ctx context.Context, id matching.ParticipantID) ([]*matching.ConnectionEdge, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM connection_edges
		WHERE low_id = $1 OR high_id = $1
		ORDER BY updated_at DESC
	`, edgeColumns)

	rows, err := r.conn.Query(ctx, query, string(id))
	if err != nil {
		return nil, fmt.Errorf("failed to load edges: %w", err)
	}
	defer rows.Close()

	edges := make([]*matching.ConnectionEdge, 0)
	for rows.Next() {
		edge, err := r.scanEdge(rows)
		if err != nil {
			return nil, err
		}
		edges = append(edges, edge)
	}
	return edges, rows.Err()
}

// SaveEdge creates or updates an edge.
func (r *EdgeRepository) SaveEdge(ctx context.Context, edge *matching.ConnectionEdge) error {
	query := `
		INSERT INTO connection_edges (
			id, low_id, high_id, state, requester_id, low_favorited,
			high_favorited, created_at, updated_at, connected_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (low_id, high_id) DO UPDATE SET
			state = EXCLUDED.state,
			requester_id = EXCLUDED.requester_id,
			low_favorited = EXCLUDED.low_favorited,
			high_favorited = EXCLUDED.high_favorited,
			updated_at = EXCLUDED.updated_at,
			connected_at = EXCLUDED.connected_at
	`

	_, err := r.conn.Exec(ctx, query,
		edge.ID,
		string(edge.LowID),
		string(edge.HighID),
		string(edge.State),
		string(edge.RequesterID),
		edge.LowFavorited,
		edge.HighFavorited,
		edge.CreatedAt,
		edge.UpdatedAt,
		edge.ConnectedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save edge: %w", err)
	}
	return nil
}

// DeleteEdge removes an edge by ID.
func (r *EdgeRepository) DeleteEdge(ctx context.Context, id string) error {
	tag, err := r.conn.Exec(ctx, `DELETE FROM connection_edges WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete edge: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return matching.ErrEdgeNotFound
	}
	return nil
}

func (r *EdgeRepository) scanEdge(row pgx.Row) (*matching.ConnectionEdge, error) {
	var (
		edge        matching.ConnectionEdge
		low, high   string
		state       string
		requesterID string
		connectedAt *time.Time
	)

	err := row.Scan(
		&edge.ID,
		&low,
		&high,
		&state,
		&requesterID,
		&edge.LowFavorited,
		&edge.HighFavorited,
		&edge.CreatedAt,
		&edge.UpdatedAt,
		&connectedAt,
	)
	if err != nil {
		return nil, err
	}

	edge.LowID = matching.ParticipantID(low)
	edge.HighID = matching.ParticipantID(high)
	edge.State = matching.EdgeState(state)
	edge.RequesterID = matching.ParticipantID(requesterID)
	edge.ConnectedAt = connectedAt

	return &edge, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// RELATIONSHIP GRAPH
// Количество общих связей пары считается одним запросом по тем же рёбрам.
// ══════════════════════════════════════════════════════════════════════════════

// RelationshipGraph implements matching.RelationshipGraph over connection_edges.
type RelationshipGraph struct {
	conn *Connection
}

// NewRelationshipGraph creates a new RelationshipGraph.
func NewRelationshipGraph(conn *Connection) *RelationshipGraph {
	return &RelationshipGraph{conn: conn}
}

// MutualConnectionCount returns how many confirmed connections a and b share.
func (g *RelationshipGraph) MutualConnectionCount(ctx context.Context, a, b matching.ParticipantID) (int, error) {
	// Neighbors of X = the other endpoint of every connected edge involving X.
	query := `
		WITH neighbors AS (
			SELECT CASE WHEN low_id = $1 THEN high_id ELSE low_id END AS peer, 1 AS side
			FROM connection_edges
			WHERE state = 'connected' AND (low_id = $1 OR high_id = $1)
			UNION ALL
			SELECT CASE WHEN low_id = $2 THEN high_id ELSE low_id END AS peer, 2 AS side
			FROM connection_edges
			WHERE state = 'connected' AND (low_id = $2 OR high_id = $2)
		)
		SELECT COUNT(*) FROM (
			SELECT peer FROM neighbors GROUP BY peer HAVING COUNT(DISTINCT side) = 2
		) mutual
	`

	var count int
	if err := g.conn.QueryRow(ctx, query, string(a), string(b)).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count mutual connections: %w", err)
	}
	return count, nil
}
