package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/epitaphe360/siport-sub000/internal/domain/matching"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROFILE REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ProfileRepository implements matching.ProfileStore for PostgreSQL.
type ProfileRepository struct {
	conn *Connection
}

// NewProfileRepository creates a new ProfileRepository.
func NewProfileRepository(conn *Connection) *ProfileRepository {
	return &ProfileRepository{conn: conn}
}

const profileColumns = `
	id, kind, display_name, description, sectors, thematic_interests,
	participation_objectives, collaboration_types, geographic_region,
	company_size_band, created_at
`

// GetByID returns a participant profile by ID.
func (r *ProfileRepository) GetByID(ctx context.Context, id matching.ParticipantID) (*matching.Profile, error) {
	query := fmt.Sprintf(`SELECT %s FROM participants WHERE id = $1`, profileColumns)

	row := r.conn.QueryRow(ctx, query, string(id))
	return r.scanProfile(row)
}

// ListAll returns all participant profiles ordered by ID for stable output.
func (r *ProfileRepository) ListAll(ctx context.Context) ([]*matching.Profile, error) {
	query := fmt.Sprintf(`SELECT %s FROM participants ORDER BY id`, profileColumns)

	rows, err := r.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	defer rows.Close()

	return r.scanProfiles(rows)
}

// ListByKind returns profiles of the given participation kind.
func (r *ProfileRepository) ListByKind(ctx context.Context, kind matching.ParticipantKind) ([]*matching.Profile, error) {
	query := fmt.Sprintf(`SELECT %s FROM participants WHERE kind = $1 ORDER BY id`, profileColumns)

	rows, err := r.conn.Query(ctx, query, string(kind))
	if err != nil {
		return nil, fmt.Errorf("failed to list participants by kind: %w", err)
	}
	defer rows.Close()

	return r.scanProfiles(rows)
}

// Save creates or updates a profile.
func (r *ProfileRepository) Save(ctx context.Context, p *matching.Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO participants (
			id, kind, display_name, description, sectors, thematic_interests,
			participation_objectives, collaboration_types, geographic_region,
			company_size_band, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
		ON CONFLICT (id) DO UPDATE SET
			kind = EXCLUDED.kind,
			display_name = EXCLUDED.display_name,
			description = EXCLUDED.description,
			sectors = EXCLUDED.sectors,
			thematic_interests = EXCLUDED.thematic_interests,
			participation_objectives = EXCLUDED.participation_objectives,
			collaboration_types = EXCLUDED.collaboration_types,
			geographic_region = EXCLUDED.geographic_region,
			company_size_band = EXCLUDED.company_size_band,
			updated_at = NOW()
	`

	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := r.conn.Exec(ctx, query,
		string(p.ID),
		string(p.Kind),
		p.DisplayName,
		p.Description,
		[]string(p.Sectors),
		[]string(p.ThematicInterests),
		[]string(p.ParticipationObjectives),
		[]string(p.CollaborationTypes),
		string(p.GeographicRegion),
		string(p.CompanySizeBand),
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save participant: %w", err)
	}
	return nil
}

// Delete removes a participant profile.
func (r *ProfileRepository) Delete(ctx context.Context, id matching.ParticipantID) error {
	tag, err := r.conn.Exec(ctx, `DELETE FROM participants WHERE id = $1`, string(id))
	if err != nil {
		return fmt.Errorf("failed to delete participant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return matching.ErrParticipantNotFound
	}
	return nil
}

func (r *ProfileRepository) scanProfile(row pgx.Row) (*matching.Profile, error) {
	var (
		p           matching.Profile
		id, kind    string
		region      string
		sizeBand    string
		sectors     []string
		interests   []string
		objectives  []string
		collabTypes []string
	)

	err := row.Scan(
		&id,
		&kind,
		&p.DisplayName,
		&p.Description,
		&sectors,
		&interests,
		&objectives,
		&collabTypes,
		&region,
		&sizeBand,
		&p.CreatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, matching.ErrParticipantNotFound
		}
		return nil, fmt.Errorf("failed to scan participant: %w", err)
	}

	p.ID = matching.ParticipantID(id)
	p.Kind = matching.ParticipantKind(kind)
	p.GeographicRegion = matching.Region(region)
	p.CompanySizeBand = matching.CompanySizeBand(sizeBand)
	p.Sectors = matching.TagSet(sectors)
	p.ThematicInterests = matching.TagSet(interests)
	p.ParticipationObjectives = matching.TagSet(objectives)
	p.CollaborationTypes = matching.TagSet(collabTypes)

	return &p, nil
}

func (r *ProfileRepository) scanProfiles(rows pgx.Rows) ([]*matching.Profile, error) {
	profiles := make([]*matching.Profile, 0)
	for rows.Next() {
		p, err := r.scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}
