package sqlite

import (
	"context"
	"encoding/binary"
	"math"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/leafmark/leafmark/store"
)

// Vectors are stored as little-endian float32 BLOBs; cosine similarity is
// computed in the application layer. Good enough for single-instance
// deployments; PostgreSQL with pgvector is the production path.

// float32ArrayToBLOB converts a []float32 to its BLOB representation.
func float32ArrayToBLOB(vec []float32) []byte {
	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:i*4+4], math.Float32bits(v))
	}
	return buf
}

// blobToFloat32Array is the inverse of float32ArrayToBLOB. The dimension is
// implied by the BLOB length.
func blobToFloat32Array(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, errors.Errorf("invalid BLOB length: %d is not a multiple of 4", len(blob))
	}
	vec := make([]float32, len(blob)/4)
	for i := range vec {
		bits := binary.LittleEndian.Uint32(blob[i*4 : i*4+4])
		vec[i] = math.Float32frombits(bits)
	}
	return vec, nil
}

// cosineSimilarity computes the cosine similarity of two vectors.
// Returns 0 when dimensions differ or either vector is all zeros.
func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

func (d *DB) UpsertItemEmbedding(ctx context.Context, embedding *store.ItemEmbedding) (*store.ItemEmbedding, error) {
	stmt := `
		INSERT INTO item_embedding (item_type, item_id, owner_id, embedding, model, created_ts, updated_ts)
		VALUES (` + placeholders(7) + `)
		ON CONFLICT (item_id)
		DO UPDATE SET
			embedding = excluded.embedding,
			model = excluded.model,
			updated_ts = excluded.updated_ts
		RETURNING id, created_ts, updated_ts
	`
	err := d.db.QueryRowContext(ctx, stmt,
		embedding.ItemType,
		embedding.ItemID,
		embedding.OwnerID,
		float32ArrayToBLOB(embedding.Embedding),
		embedding.Model,
		embedding.CreatedTs,
		embedding.UpdatedTs,
	).Scan(&embedding.ID, &embedding.CreatedTs, &embedding.UpdatedTs)
	if err != nil {
		return nil, errors.Wrap(err, "failed to upsert item embedding")
	}
	return embedding, nil
}

func (d *DB) ListItemEmbeddings(ctx context.Context, find *store.FindItemEmbedding) ([]*store.ItemEmbedding, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ItemID != nil {
		where, args = append(where, "item_id = ?"), append(args, *find.ItemID)
	}
	if find.OwnerID != nil {
		where, args = append(where, "owner_id = ?"), append(args, *find.OwnerID)
	}
	if len(find.ItemTypes) > 0 {
		list := []string{}
		for _, t := range find.ItemTypes {
			list = append(list, "?")
			args = append(args, t)
		}
		where = append(where, "item_type IN ("+strings.Join(list, ", ")+")")
	}
	if find.CreatedAfter != nil {
		where, args = append(where, "created_ts > ?"), append(args, *find.CreatedAfter)
	}

	query := `
		SELECT id, item_type, item_id, owner_id, embedding, model, created_ts, updated_ts
		FROM item_embedding
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts DESC
	`
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list item embeddings")
	}
	defer rows.Close()

	list := []*store.ItemEmbedding{}
	for rows.Next() {
		var embedding store.ItemEmbedding
		var blob []byte
		if err := rows.Scan(
			&embedding.ID,
			&embedding.ItemType,
			&embedding.ItemID,
			&embedding.OwnerID,
			&blob,
			&embedding.Model,
			&embedding.CreatedTs,
			&embedding.UpdatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan item embedding")
		}
		if embedding.Embedding, err = blobToFloat32Array(blob); err != nil {
			return nil, errors.Wrap(err, "failed to decode item embedding")
		}
		list = append(list, &embedding)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return list, nil
}

func (d *DB) DeleteItemEmbedding(ctx context.Context, delete *store.DeleteItemEmbedding) error {
	if _, err := d.db.ExecContext(ctx, "DELETE FROM item_embedding WHERE item_id = ?", delete.ItemID); err != nil {
		return errors.Wrap(err, "failed to delete item embedding")
	}
	return nil
}

// VectorSearch loads the owner's vectors and ranks them by cosine
// similarity in Go.
func (d *DB) VectorSearch(ctx context.Context, opts *store.VectorSearchOptions) ([]*store.ItemWithScore, error) {
	embeddings, err := d.ListItemEmbeddings(ctx, &store.FindItemEmbedding{OwnerID: &opts.OwnerID})
	if err != nil {
		return nil, err
	}

	results := []*store.ItemWithScore{}
	for _, embedding := range embeddings {
		if opts.ExcludeItemID != nil && embedding.ItemID == *opts.ExcludeItemID {
			continue
		}
		score := cosineSimilarity(opts.Vector, embedding.Embedding)
		if score < opts.MinScore {
			continue
		}
		results = append(results, &store.ItemWithScore{
			ItemID:   embedding.ItemID,
			ItemType: embedding.ItemType,
			Score:    score,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	return results, nil
}
