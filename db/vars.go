package db

import (
	"embed"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var EmbedMigrations embed.FS

// Pool is nil when no database is configured.
var Pool *pgxpool.Pool
