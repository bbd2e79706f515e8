package sqlite

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/leafmark/leafmark/store"
)

func (d *DB) CreateCollection(ctx context.Context, create *store.Collection) (*store.Collection, error) {
	stmt := "INSERT INTO collection (id, owner_id, name, created_ts) VALUES (" + placeholders(4) + ")"
	if _, err := d.db.ExecContext(ctx, stmt, create.ID, create.OwnerID, create.Name, create.CreatedTs); err != nil {
		return nil, errors.Wrap(err, "failed to create collection")
	}
	return create, nil
}

func (d *DB) ListCollections(ctx context.Context, find *store.FindCollection) ([]*store.Collection, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = ?"), append(args, *find.ID)
	}
	if find.OwnerID != nil {
		where, args = append(where, "owner_id = ?"), append(args, *find.OwnerID)
	}

	query := "SELECT id, owner_id, name, created_ts FROM collection WHERE " + strings.Join(where, " AND ") + " ORDER BY created_ts DESC"
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list collections")
	}
	defer rows.Close()

	list := []*store.Collection{}
	for rows.Next() {
		var collection store.Collection
		if err := rows.Scan(&collection.ID, &collection.OwnerID, &collection.Name, &collection.CreatedTs); err != nil {
			return nil, errors.Wrap(err, "failed to scan collection")
		}
		list = append(list, &collection)
	}
	return list, rows.Err()
}

func (d *DB) UpsertCollectionItem(ctx context.Context, upsert *store.CollectionItem) error {
	stmt := `
		INSERT INTO collection_item (collection_id, item_id)
		VALUES (?, ?)
		ON CONFLICT (collection_id, item_id) DO NOTHING
	`
	if _, err := d.db.ExecContext(ctx, stmt, upsert.CollectionID, upsert.ItemID); err != nil {
		return errors.Wrap(err, "failed to upsert collection item")
	}
	return nil
}

func (d *DB) ListCollectionItems(ctx context.Context, find *store.FindCollectionItem) ([]*store.CollectionItem, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.CollectionID != nil {
		where, args = append(where, "ci.collection_id = ?"), append(args, *find.CollectionID)
	}
	if find.ItemID != nil {
		where, args = append(where, "ci.item_id = ?"), append(args, *find.ItemID)
	}
	if find.OwnerID != nil {
		where, args = append(where, "c.owner_id = ?"), append(args, *find.OwnerID)
	}

	query := `
		SELECT ci.collection_id, ci.item_id
		FROM collection_item ci
		JOIN collection c ON c.id = ci.collection_id
		WHERE ` + strings.Join(where, " AND ")
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list collection items")
	}
	defer rows.Close()

	list := []*store.CollectionItem{}
	for rows.Next() {
		var membership store.CollectionItem
		if err := rows.Scan(&membership.CollectionID, &membership.ItemID); err != nil {
			return nil, errors.Wrap(err, "failed to scan collection item")
		}
		list = append(list, &membership)
	}
	return list, rows.Err()
}

func (d *DB) UpsertItemTag(ctx context.Context, upsert *store.ItemTag) error {
	stmt := `
		INSERT INTO item_tag (item_id, tag)
		VALUES (?, ?)
		ON CONFLICT (item_id, tag) DO NOTHING
	`
	if _, err := d.db.ExecContext(ctx, stmt, upsert.ItemID, upsert.Tag); err != nil {
		return errors.Wrap(err, "failed to upsert item tag")
	}
	return nil
}

func (d *DB) ListItemTags(ctx context.Context, find *store.FindItemTag) ([]*store.ItemTag, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ItemID != nil {
		where, args = append(where, "it.item_id = ?"), append(args, *find.ItemID)
	}
	if find.OwnerID != nil {
		where, args = append(where, "i.owner_id = ?"), append(args, *find.OwnerID)
	}

	query := `
		SELECT it.item_id, it.tag
		FROM item_tag it
		JOIN item i ON i.id = it.item_id
		WHERE ` + strings.Join(where, " AND ")
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list item tags")
	}
	defer rows.Close()

	list := []*store.ItemTag{}
	for rows.Next() {
		var tag store.ItemTag
		if err := rows.Scan(&tag.ItemID, &tag.Tag); err != nil {
			return nil, errors.Wrap(err, "failed to scan item tag")
		}
		list = append(list, &tag)
	}
	return list, rows.Err()
}

func (d *DB) CreateSeries(ctx context.Context, create *store.Series) (*store.Series, error) {
	stmt := "INSERT INTO series (id, owner_id, name) VALUES (" + placeholders(3) + ")"
	if _, err := d.db.ExecContext(ctx, stmt, create.ID, create.OwnerID, create.Name); err != nil {
		return nil, errors.Wrap(err, "failed to create series")
	}
	return create, nil
}

func (d *DB) ListSeries(ctx context.Context, find *store.FindSeries) ([]*store.Series, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = ?"), append(args, *find.ID)
	}
	if find.OwnerID != nil {
		where, args = append(where, "owner_id = ?"), append(args, *find.OwnerID)
	}

	query := "SELECT id, owner_id, name FROM series WHERE " + strings.Join(where, " AND ")
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list series")
	}
	defer rows.Close()

	list := []*store.Series{}
	for rows.Next() {
		var series store.Series
		if err := rows.Scan(&series.ID, &series.OwnerID, &series.Name); err != nil {
			return nil, errors.Wrap(err, "failed to scan series")
		}
		list = append(list, &series)
	}
	return list, rows.Err()
}
