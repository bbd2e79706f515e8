package postgres

import (
	"context"
	"strings"

	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/leafmark/leafmark/store"
)

// UpsertItemEmbedding inserts or updates an item embedding.
func (d *DB) UpsertItemEmbedding(ctx context.Context, embedding *store.ItemEmbedding) (*store.ItemEmbedding, error) {
	stmt := `
		INSERT INTO item_embedding (item_type, item_id, owner_id, embedding, model, created_ts, updated_ts)
		VALUES (` + placeholders(7) + `)
		ON CONFLICT (item_id)
		DO UPDATE SET
			embedding = EXCLUDED.embedding,
			model = EXCLUDED.model,
			updated_ts = EXCLUDED.updated_ts
		RETURNING id, created_ts, updated_ts
	`
	err := d.db.QueryRowContext(ctx, stmt,
		embedding.ItemType,
		embedding.ItemID,
		embedding.OwnerID,
		pgvector.NewVector(embedding.Embedding),
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
		where, args = append(where, "item_id = "+placeholder(len(args)+1)), append(args, *find.ItemID)
	}
	if find.OwnerID != nil {
		where, args = append(where, "owner_id = "+placeholder(len(args)+1)), append(args, *find.OwnerID)
	}
	if len(find.ItemTypes) > 0 {
		list := []string{}
		for _, t := range find.ItemTypes {
			list = append(list, placeholder(len(args)+1))
			args = append(args, t)
		}
		where = append(where, "item_type IN ("+strings.Join(list, ", ")+")")
	}
	if find.CreatedAfter != nil {
		where, args = append(where, "created_ts > "+placeholder(len(args)+1)), append(args, *find.CreatedAfter)
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
		var vector pgvector.Vector
		if err := rows.Scan(
			&embedding.ID,
			&embedding.ItemType,
			&embedding.ItemID,
			&embedding.OwnerID,
			&vector,
			&embedding.Model,
			&embedding.CreatedTs,
			&embedding.UpdatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan item embedding")
		}
		embedding.Embedding = vector.Slice()
		list = append(list, &embedding)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return list, nil
}

func (d *DB) DeleteItemEmbedding(ctx context.Context, delete *store.DeleteItemEmbedding) error {
	if _, err := d.db.ExecContext(ctx, "DELETE FROM item_embedding WHERE item_id = $1", delete.ItemID); err != nil {
		return errors.Wrap(err, "failed to delete item embedding")
	}
	return nil
}

// VectorSearch performs vector similarity search using pgvector.
// The <=> operator computes cosine distance (1 - cosine_similarity), so
// ordering by distance ascending returns the most similar items first.
func (d *DB) VectorSearch(ctx context.Context, opts *store.VectorSearchOptions) ([]*store.ItemWithScore, error) {
	where, args := []string{}, []any{}

	vector := pgvector.NewVector(opts.Vector)
	args = append(args, vector)
	where = append(where, "owner_id = "+placeholder(2))
	args = append(args, opts.OwnerID)
	if opts.ExcludeItemID != nil {
		where = append(where, "item_id != "+placeholder(len(args)+1))
		args = append(args, *opts.ExcludeItemID)
	}
	if opts.MinScore > 0 {
		where = append(where, "1 - (embedding <=> $1) >= "+placeholder(len(args)+1))
		args = append(args, opts.MinScore)
	}

	query := `
		SELECT item_id, item_type, 1 - (embedding <=> $1) AS score
		FROM item_embedding
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY embedding <=> $1
		LIMIT ` + placeholder(len(args)+1)
	args = append(args, opts.Limit)

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to vector search")
	}
	defer rows.Close()

	results := []*store.ItemWithScore{}
	for rows.Next() {
		var result store.ItemWithScore
		if err := rows.Scan(&result.ItemID, &result.ItemType, &result.Score); err != nil {
			return nil, errors.Wrap(err, "failed to scan vector search result")
		}
		results = append(results, &result)
	}
	return results, rows.Err()
}
