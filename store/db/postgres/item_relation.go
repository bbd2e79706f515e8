package postgres

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/leafmark/leafmark/store"
)

func (d *DB) UpsertItemRelation(ctx context.Context, upsert *store.ItemRelation) (*store.ItemRelation, error) {
	stmt := `
		INSERT INTO item_relation (owner_id, source_item_id, related_item_id, label, strength, status, created_ts, updated_ts)
		VALUES (` + placeholders(8) + `)
		ON CONFLICT (source_item_id, related_item_id)
		DO UPDATE SET
			label = EXCLUDED.label,
			strength = EXCLUDED.strength,
			status = EXCLUDED.status,
			updated_ts = EXCLUDED.updated_ts
		RETURNING id, created_ts, updated_ts
	`
	err := d.db.QueryRowContext(ctx, stmt,
		upsert.OwnerID,
		upsert.SourceItemID,
		upsert.RelatedItemID,
		upsert.Label,
		upsert.Strength,
		upsert.Status,
		upsert.CreatedTs,
		upsert.UpdatedTs,
	).Scan(&upsert.ID, &upsert.CreatedTs, &upsert.UpdatedTs)
	if err != nil {
		return nil, errors.Wrap(err, "failed to upsert item relation")
	}
	return upsert, nil
}

func (d *DB) ListItemRelations(ctx context.Context, find *store.FindItemRelation) ([]*store.ItemRelation, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.OwnerID != nil {
		where, args = append(where, "owner_id = "+placeholder(len(args)+1)), append(args, *find.OwnerID)
	}
	if find.SourceItemID != nil {
		where, args = append(where, "source_item_id = "+placeholder(len(args)+1)), append(args, *find.SourceItemID)
	}
	if find.RelatedItemID != nil {
		where, args = append(where, "related_item_id = "+placeholder(len(args)+1)), append(args, *find.RelatedItemID)
	}
	if find.MinStrength != nil {
		where, args = append(where, "strength >= "+placeholder(len(args)+1)), append(args, *find.MinStrength)
	}

	query := `
		SELECT id, owner_id, source_item_id, related_item_id, label, strength, status, created_ts, updated_ts
		FROM item_relation
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY strength DESC, id ASC
	`
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list item relations")
	}
	defer rows.Close()

	list := []*store.ItemRelation{}
	for rows.Next() {
		var relation store.ItemRelation
		if err := rows.Scan(
			&relation.ID,
			&relation.OwnerID,
			&relation.SourceItemID,
			&relation.RelatedItemID,
			&relation.Label,
			&relation.Strength,
			&relation.Status,
			&relation.CreatedTs,
			&relation.UpdatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan item relation")
		}
		list = append(list, &relation)
	}

	return list, rows.Err()
}

func (d *DB) DeleteItemRelation(ctx context.Context, delete *store.DeleteItemRelation) error {
	where, args := []string{"1 = 1"}, []any{}

	if delete.OwnerID != nil {
		where, args = append(where, "owner_id = "+placeholder(len(args)+1)), append(args, *delete.OwnerID)
	}
	if delete.SourceItemID != nil {
		where, args = append(where, "source_item_id = "+placeholder(len(args)+1)), append(args, *delete.SourceItemID)
	}

	stmt := "DELETE FROM item_relation WHERE " + strings.Join(where, " AND ")
	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
		return errors.Wrap(err, "failed to delete item relations")
	}
	return nil
}
