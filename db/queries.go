package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// DBTX is satisfied by [pgxpool.Pool], [pgx.Conn] & [pgx.Tx].
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

type Log struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Message   *string   `json:"message"`
	Err       *string   `json:"err"`
	Url       *string   `json:"url"`
	Platform  *string   `json:"platform"`
	Name      *string   `json:"name"`
	Chunk     *int32    `json:"chunk"`
	Selector  *string   `json:"selector"`
}

const insertLog = `-- name: InsertLog :exec
INSERT INTO logs (message, err, url, platform, name, chunk, selector)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`

type InsertLogParams struct {
	Message  *string
	Err      *string
	Url      *string
	Platform *string
	Name     *string
	Chunk    *int32
	Selector *string
}

func (q *Queries) InsertLog(ctx context.Context, arg InsertLogParams) error {
	_, err := q.db.Exec(ctx, insertLog,
		arg.Message,
		arg.Err,
		arg.Url,
		arg.Platform,
		arg.Name,
		arg.Chunk,
		arg.Selector,
	)
	return err
}

const getRecentLogs = `-- name: GetRecentLogs :many
SELECT id, created_at, message, err, url, platform, name, chunk, selector
FROM logs
ORDER BY created_at DESC
LIMIT $1
`

func (q *Queries) GetRecentLogs(ctx context.Context, limit int32) ([]Log, error) {
	rows, err := q.db.Query(ctx, getRecentLogs, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Log
	for rows.Next() {
		var i Log
		if err := rows.Scan(
			&i.ID,
			&i.CreatedAt,
			&i.Message,
			&i.Err,
			&i.Url,
			&i.Platform,
			&i.Name,
			&i.Chunk,
			&i.Selector,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteOldLogs = `-- name: DeleteOldLogs :execrows
DELETE FROM logs
WHERE created_at < NOW() - $1::interval
`

func (q *Queries) DeleteOldLogs(ctx context.Context, retention pgtype.Interval) (int64, error) {
	result, err := q.db.Exec(ctx, deleteOldLogs, retention)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
