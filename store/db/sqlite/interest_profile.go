package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/leafmark/leafmark/store"
)

func (d *DB) UpsertInterestProfile(ctx context.Context, upsert *store.InterestProfile) (*store.InterestProfile, error) {
	concepts, err := json.Marshal(upsert.Concepts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal concepts")
	}

	stmt := `
		INSERT INTO interest_profile (owner_id, embedding, concepts, sample_count, computed_ts)
		VALUES (` + placeholders(5) + `)
		ON CONFLICT (owner_id)
		DO UPDATE SET
			embedding = excluded.embedding,
			concepts = excluded.concepts,
			sample_count = excluded.sample_count,
			computed_ts = excluded.computed_ts
	`
	if _, err := d.db.ExecContext(ctx, stmt,
		upsert.OwnerID,
		float32ArrayToBLOB(upsert.Embedding),
		string(concepts),
		upsert.SampleCount,
		upsert.ComputedTs,
	); err != nil {
		return nil, errors.Wrap(err, "failed to upsert interest profile")
	}
	return upsert, nil
}

func (d *DB) GetInterestProfile(ctx context.Context, ownerID uuid.UUID) (*store.InterestProfile, error) {
	query := "SELECT owner_id, embedding, concepts, sample_count, computed_ts FROM interest_profile WHERE owner_id = ?"

	var profile store.InterestProfile
	var blob []byte
	var concepts string
	err := d.db.QueryRowContext(ctx, query, ownerID).Scan(
		&profile.OwnerID,
		&blob,
		&concepts,
		&profile.SampleCount,
		&profile.ComputedTs,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get interest profile")
	}

	if profile.Embedding, err = blobToFloat32Array(blob); err != nil {
		return nil, errors.Wrap(err, "failed to decode profile embedding")
	}
	if err := json.Unmarshal([]byte(concepts), &profile.Concepts); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal concepts")
	}
	return &profile, nil
}

// SearchInterestProfiles ranks other owners' aggregate vectors by cosine
// similarity in Go.
func (d *DB) SearchInterestProfiles(ctx context.Context, opts *store.ProfileSearchOptions) ([]*store.OwnerWithScore, error) {
	rows, err := d.db.QueryContext(ctx, "SELECT owner_id, embedding FROM interest_profile WHERE owner_id != ?", opts.OwnerID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to search interest profiles")
	}
	defer rows.Close()

	results := []*store.OwnerWithScore{}
	for rows.Next() {
		var ownerID uuid.UUID
		var blob []byte
		if err := rows.Scan(&ownerID, &blob); err != nil {
			return nil, errors.Wrap(err, "failed to scan interest profile")
		}
		vector, err := blobToFloat32Array(blob)
		if err != nil {
			return nil, errors.Wrap(err, "failed to decode profile embedding")
		}
		score := cosineSimilarity(opts.Vector, vector)
		if score < opts.Threshold {
			continue
		}
		results = append(results, &store.OwnerWithScore{OwnerID: ownerID, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	return results, nil
}
