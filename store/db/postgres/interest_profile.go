package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/leafmark/leafmark/store"
)

func (d *DB) UpsertInterestProfile(ctx context.Context, upsert *store.InterestProfile) (*store.InterestProfile, error) {
	conceptsJSON, err := json.Marshal(upsert.Concepts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal concepts")
	}
	stmt := `
		INSERT INTO interest_profile (owner_id, embedding, concepts, sample_count, computed_ts)
		VALUES (` + placeholders(5) + `)
		ON CONFLICT (owner_id)
		DO UPDATE SET
			embedding = EXCLUDED.embedding,
			concepts = EXCLUDED.concepts,
			sample_count = EXCLUDED.sample_count,
			computed_ts = EXCLUDED.computed_ts
	`
	if _, err := d.db.ExecContext(ctx, stmt,
		upsert.OwnerID,
		pgvector.NewVector(upsert.Embedding),
		conceptsJSON,
		upsert.SampleCount,
		upsert.ComputedTs,
	); err != nil {
		return nil, errors.Wrap(err, "failed to upsert interest profile")
	}
	return upsert, nil
}

func (d *DB) GetInterestProfile(ctx context.Context, ownerID uuid.UUID) (*store.InterestProfile, error) {
	query := `
		SELECT owner_id, embedding, concepts, sample_count, computed_ts
		FROM interest_profile
		WHERE owner_id = $1
	`
	var profile store.InterestProfile
	var embedding pgvector.Vector
	var conceptsJSON []byte
	err := d.db.QueryRowContext(ctx, query, ownerID).Scan(
		&profile.OwnerID,
		&embedding,
		&conceptsJSON,
		&profile.SampleCount,
		&profile.ComputedTs,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get interest profile")
	}
	profile.Embedding = embedding.Slice()
	if err := json.Unmarshal(conceptsJSON, &profile.Concepts); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal concepts")
	}
	return &profile, nil
}

func (d *DB) SearchInterestProfiles(ctx context.Context, opts *store.ProfileSearchOptions) ([]*store.OwnerWithScore, error) {
	query := `
		SELECT owner_id, 1 - (embedding <=> $1) AS score
		FROM interest_profile
		WHERE owner_id != $2
			AND 1 - (embedding <=> $1) >= $3
		ORDER BY embedding <=> $1
		LIMIT $4
	`
	rows, err := d.db.QueryContext(ctx, query,
		pgvector.NewVector(opts.Vector),
		opts.OwnerID,
		opts.Threshold,
		opts.Limit,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to search interest profiles")
	}
	defer rows.Close()

	results := []*store.OwnerWithScore{}
	for rows.Next() {
		var result store.OwnerWithScore
		if err := rows.Scan(&result.OwnerID, &result.Score); err != nil {
			return nil, errors.Wrap(err, "failed to scan profile search result")
		}
		results = append(results, &result)
	}
	return results, rows.Err()
}
