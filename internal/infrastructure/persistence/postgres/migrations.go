// Package postgres implements the PostgreSQL persistence layer for the
// SIPORTS networking match engine.
package postgres

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: CREATE PARTICIPANTS
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Migration: Create participants table
-- Version: 001
-- Philosophy: "The right contact at the right moment"

CREATE TABLE IF NOT EXISTS participants (
    id VARCHAR(64) PRIMARY KEY,
    kind VARCHAR(20) NOT NULL,
    display_name VARCHAR(200) NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    sectors TEXT[] NOT NULL DEFAULT '{}',
    thematic_interests TEXT[] NOT NULL DEFAULT '{}',
    participation_objectives TEXT[] NOT NULL DEFAULT '{}',
    collaboration_types TEXT[] NOT NULL DEFAULT '{}',
    geographic_region VARCHAR(50) NOT NULL DEFAULT '',
    company_size_band VARCHAR(20) NOT NULL DEFAULT '',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_kind CHECK (kind IN ('exhibitor', 'partner', 'visitor'))
);

-- Indexes for catalog search
CREATE INDEX IF NOT EXISTS idx_participants_kind ON participants(kind);
CREATE INDEX IF NOT EXISTS idx_participants_region ON participants(geographic_region);
CREATE INDEX IF NOT EXISTS idx_participants_sectors ON participants USING GIN (sectors);
`

const migration001Down = `
DROP TABLE IF EXISTS participants;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: CREATE CONNECTION EDGES
// Единственное каноническое ребро на пару: low_id < high_id по построению.
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- Migration: Create connection_edges table
-- Version: 002

CREATE TABLE IF NOT EXISTS connection_edges (
    id UUID PRIMARY KEY,
    low_id VARCHAR(64) NOT NULL,
    high_id VARCHAR(64) NOT NULL,
    state VARCHAR(20) NOT NULL DEFAULT 'none',
    requester_id VARCHAR(64) NOT NULL DEFAULT '',
    low_favorited BOOLEAN NOT NULL DEFAULT FALSE,
    high_favorited BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    connected_at TIMESTAMP WITH TIME ZONE,

    CONSTRAINT valid_state CHECK (state IN ('none', 'pending', 'connected')),
    CONSTRAINT canonical_pair CHECK (low_id < high_id),
    CONSTRAINT unique_pair UNIQUE (low_id, high_id)
);

CREATE INDEX IF NOT EXISTS idx_edges_low_id ON connection_edges(low_id);
CREATE INDEX IF NOT EXISTS idx_edges_high_id ON connection_edges(high_id);
CREATE INDEX IF NOT EXISTS idx_edges_state ON connection_edges(state) WHERE state != 'none';
`

const migration002Down = `
DROP TABLE IF EXISTS connection_edges;
`

// GetMigrations returns all embedded migrations.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_participants",
			UpSQL:   migration001Up,
			DownSQL: migration001Down,
		},
		{
			Version: 2,
			Name:    "create_connection_edges",
			UpSQL:   migration002Up,
			DownSQL: migration002Down,
		},
	}
}
