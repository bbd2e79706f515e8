package sqlite

import (
	"context"
	"database/sql"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/leafmark/leafmark/store"
)

const embeddingJobFields = "id, uid, owner_id, item_type, item_id, status, priority, retry_count, max_retries, error_message, created_ts, started_ts, completed_ts"

func scanEmbeddingJob(row interface{ Scan(...any) error }) (*store.EmbeddingJob, error) {
	var job store.EmbeddingJob
	if err := row.Scan(
		&job.ID,
		&job.UID,
		&job.OwnerID,
		&job.ItemType,
		&job.ItemID,
		&job.Status,
		&job.Priority,
		&job.RetryCount,
		&job.MaxRetries,
		&job.ErrorMessage,
		&job.CreatedTs,
		&job.StartedTs,
		&job.CompletedTs,
	); err != nil {
		return nil, err
	}
	return &job, nil
}

// EnqueueEmbeddingJob inserts a job, or raises the priority of the active
// job for the same item. The partial unique index on active jobs makes the
// upsert the single source of at-most-one-active-job truth.
func (d *DB) EnqueueEmbeddingJob(ctx context.Context, create *store.EmbeddingJob) (*store.EmbeddingJob, error) {
	stmt := `
		INSERT INTO embedding_job (uid, owner_id, item_type, item_id, status, priority, retry_count, max_retries, error_message, created_ts)
		VALUES (` + placeholders(10) + `)
		ON CONFLICT (item_type, item_id) WHERE status IN ('PENDING', 'PROCESSING')
		DO UPDATE SET
			priority = MAX(embedding_job.priority, excluded.priority),
			created_ts = excluded.created_ts
		RETURNING ` + embeddingJobFields

	job, err := scanEmbeddingJob(d.db.QueryRowContext(ctx, stmt,
		create.UID,
		create.OwnerID,
		create.ItemType,
		create.ItemID,
		store.JobStatusPending,
		create.Priority,
		0,
		create.MaxRetries,
		"",
		create.CreatedTs,
	))
	if err != nil {
		return nil, errors.Wrap(err, "failed to enqueue embedding job")
	}
	return job, nil
}

// LeaseEmbeddingJobs claims up to BatchSize pending jobs in one statement.
// With a single write connection the UPDATE is atomic, so concurrent
// callers never observe overlapping claims.
func (d *DB) LeaseEmbeddingJobs(ctx context.Context, lease *store.LeaseEmbeddingJobs) ([]*store.EmbeddingJob, error) {
	stmt := `
		UPDATE embedding_job
		SET status = 'PROCESSING', started_ts = ?
		WHERE id IN (
			SELECT id FROM embedding_job
			WHERE status = 'PENDING' AND retry_count < max_retries AND priority <= ?
			ORDER BY priority DESC, created_ts ASC
			LIMIT ?
		)
		RETURNING ` + embeddingJobFields

	rows, err := d.db.QueryContext(ctx, stmt, lease.LeasedTs, lease.MaxPriority, lease.BatchSize)
	if err != nil {
		return nil, errors.Wrap(err, "failed to lease embedding jobs")
	}
	defer rows.Close()

	list := []*store.EmbeddingJob{}
	for rows.Next() {
		job, err := scanEmbeddingJob(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan embedding job")
		}
		list = append(list, job)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// The statement returns rows in table order; the caller expects lease
	// order (priority desc, oldest first).
	sortJobsByPriority(list)
	return list, nil
}

func sortJobsByPriority(jobs []*store.EmbeddingJob) {
	sort.SliceStable(jobs, func(i, j int) bool {
		if jobs[i].Priority != jobs[j].Priority {
			return jobs[i].Priority > jobs[j].Priority
		}
		return jobs[i].CreatedTs < jobs[j].CreatedTs
	})
}

func (d *DB) CompleteEmbeddingJob(ctx context.Context, id int32, completedTs int64) (bool, error) {
	result, err := d.db.ExecContext(ctx,
		"UPDATE embedding_job SET status = 'COMPLETED', completed_ts = ? WHERE id = ? AND status = 'PROCESSING'",
		completedTs, id,
	)
	if err != nil {
		return false, errors.Wrap(err, "failed to complete embedding job")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// FailEmbeddingJob increments retry_count and requeues the job while
// retries remain; otherwise the job becomes terminally failed. All SET
// expressions evaluate against the pre-update row.
func (d *DB) FailEmbeddingJob(ctx context.Context, id int32, errorMessage string, failedTs int64) (*store.EmbeddingJob, error) {
	stmt := `
		UPDATE embedding_job
		SET
			status = CASE WHEN retry_count + 1 < max_retries THEN 'PENDING' ELSE 'FAILED' END,
			retry_count = retry_count + 1,
			error_message = ?,
			started_ts = CASE WHEN retry_count + 1 < max_retries THEN 0 ELSE started_ts END,
			completed_ts = CASE WHEN retry_count + 1 < max_retries THEN 0 ELSE ? END
		WHERE id = ? AND status = 'PROCESSING'
		RETURNING ` + embeddingJobFields

	job, err := scanEmbeddingJob(d.db.QueryRowContext(ctx, stmt, errorMessage, failedTs, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to fail embedding job")
	}
	return job, nil
}

func (d *DB) ResetExpiredEmbeddingJobs(ctx context.Context, startedBefore int64) (int64, error) {
	result, err := d.db.ExecContext(ctx,
		"UPDATE embedding_job SET status = 'PENDING', started_ts = 0 WHERE status = 'PROCESSING' AND started_ts < ?",
		startedBefore,
	)
	if err != nil {
		return 0, errors.Wrap(err, "failed to reset expired embedding jobs")
	}
	return result.RowsAffected()
}

func (d *DB) ListEmbeddingJobs(ctx context.Context, find *store.FindEmbeddingJob) ([]*store.EmbeddingJob, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = ?"), append(args, *find.ID)
	}
	if find.UID != nil {
		where, args = append(where, "uid = ?"), append(args, *find.UID)
	}
	if find.OwnerID != nil {
		where, args = append(where, "owner_id = ?"), append(args, *find.OwnerID)
	}
	if find.ItemID != nil {
		where, args = append(where, "item_id = ?"), append(args, *find.ItemID)
	}
	if find.Status != nil {
		where, args = append(where, "status = ?"), append(args, *find.Status)
	}
	if len(find.Statuses) > 0 {
		list := []string{}
		for _, status := range find.Statuses {
			list = append(list, "?")
			args = append(args, status)
		}
		where = append(where, "status IN ("+strings.Join(list, ", ")+")")
	}

	query := "SELECT " + embeddingJobFields + " FROM embedding_job WHERE " + strings.Join(where, " AND ") + " ORDER BY priority DESC, created_ts ASC"
	if find.Limit != nil {
		query += " LIMIT ?"
		args = append(args, *find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list embedding jobs")
	}
	defer rows.Close()

	list := []*store.EmbeddingJob{}
	for rows.Next() {
		job, err := scanEmbeddingJob(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan embedding job")
		}
		list = append(list, job)
	}
	return list, rows.Err()
}
