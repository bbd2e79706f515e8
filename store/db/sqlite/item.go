package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"

	"github.com/leafmark/leafmark/store"
)

func (d *DB) CreateItem(ctx context.Context, create *store.Item) (*store.Item, error) {
	stmt := `
		INSERT INTO item (id, owner_id, type, title, content, progress, series_id, series_order, row_status, created_ts, updated_ts)
		VALUES (` + placeholders(11) + `)
	`
	if _, err := d.db.ExecContext(ctx, stmt,
		create.ID,
		create.OwnerID,
		create.Type,
		create.Title,
		create.Content,
		create.Progress,
		uuidPtrValue(create.SeriesID),
		create.SeriesOrder,
		create.RowStatus,
		create.CreatedTs,
		create.UpdatedTs,
	); err != nil {
		return nil, errors.Wrap(err, "failed to create item")
	}
	return create, nil
}

func (d *DB) ListItems(ctx context.Context, find *store.FindItem) ([]*store.Item, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = ?"), append(args, *find.ID)
	}
	if find.OwnerID != nil {
		where, args = append(where, "owner_id = ?"), append(args, *find.OwnerID)
	}
	if len(find.Types) > 0 {
		list := []string{}
		for _, t := range find.Types {
			list = append(list, "?")
			args = append(args, t)
		}
		where = append(where, "type IN ("+strings.Join(list, ", ")+")")
	}
	if find.SeriesID != nil {
		where, args = append(where, "series_id = ?"), append(args, *find.SeriesID)
	}
	if find.MinProgress != nil {
		where, args = append(where, "progress >= ?"), append(args, *find.MinProgress)
	}
	if find.MaxProgress != nil {
		where, args = append(where, "progress <= ?"), append(args, *find.MaxProgress)
	}
	if find.CreatedAfter != nil {
		where, args = append(where, "created_ts > ?"), append(args, *find.CreatedAfter)
	}
	if find.RowStatus != nil {
		where, args = append(where, "row_status = ?"), append(args, *find.RowStatus)
	}

	query := `
		SELECT id, owner_id, type, title, content, progress, series_id, series_order, row_status, created_ts, updated_ts
		FROM item
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts DESC
	`
	if find.Limit != nil {
		query += " LIMIT ?"
		args = append(args, *find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list items")
	}
	defer rows.Close()

	list := []*store.Item{}
	for rows.Next() {
		var item store.Item
		var seriesID sql.NullString
		var seriesOrder sql.NullInt32
		if err := rows.Scan(
			&item.ID,
			&item.OwnerID,
			&item.Type,
			&item.Title,
			&item.Content,
			&item.Progress,
			&seriesID,
			&seriesOrder,
			&item.RowStatus,
			&item.CreatedTs,
			&item.UpdatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan item")
		}
		if item.SeriesID, err = scanUUIDPtr(seriesID); err != nil {
			return nil, errors.Wrap(err, "failed to parse series id")
		}
		if seriesOrder.Valid {
			order := seriesOrder.Int32
			item.SeriesOrder = &order
		}
		list = append(list, &item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return list, nil
}

func (d *DB) UpdateItem(ctx context.Context, update *store.UpdateItem) error {
	set, args := []string{}, []any{}

	if update.Title != nil {
		set, args = append(set, "title = ?"), append(args, *update.Title)
	}
	if update.Content != nil {
		set, args = append(set, "content = ?"), append(args, *update.Content)
	}
	if update.Progress != nil {
		set, args = append(set, "progress = ?"), append(args, *update.Progress)
	}
	if update.SeriesID != nil {
		set, args = append(set, "series_id = ?"), append(args, *update.SeriesID)
	}
	if update.SeriesOrder != nil {
		set, args = append(set, "series_order = ?"), append(args, *update.SeriesOrder)
	}
	if update.RowStatus != nil {
		set, args = append(set, "row_status = ?"), append(args, *update.RowStatus)
	}
	if update.UpdatedTs != nil {
		set, args = append(set, "updated_ts = ?"), append(args, *update.UpdatedTs)
	}
	if len(set) == 0 {
		return nil
	}

	args = append(args, update.ID)
	stmt := "UPDATE item SET " + strings.Join(set, ", ") + " WHERE id = ?"
	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
		return errors.Wrap(err, "failed to update item")
	}
	return nil
}

// DeleteItem removes the item and cascades to its embedding and relations.
func (d *DB) DeleteItem(ctx context.Context, delete *store.DeleteItem) error {
	if _, err := d.db.ExecContext(ctx, "DELETE FROM item WHERE id = ?", delete.ID); err != nil {
		return errors.Wrap(err, "failed to delete item")
	}
	if _, err := d.db.ExecContext(ctx, "DELETE FROM item_embedding WHERE item_id = ?", delete.ID); err != nil {
		return errors.Wrap(err, "failed to delete item embedding")
	}
	if _, err := d.db.ExecContext(ctx, "DELETE FROM item_relation WHERE source_item_id = ? OR related_item_id = ?", delete.ID, delete.ID); err != nil {
		return errors.Wrap(err, "failed to delete item relations")
	}
	return nil
}
