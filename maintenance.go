package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"chimbori.dev/scrollshot/conf"
	"chimbori.dev/scrollshot/db"
	"chimbori.dev/scrollshot/fullpage"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/lmittmann/tint"
)

func performMaintenance() {
	ctx := context.Background()

	if db.Pool != nil {
		queries := db.New(db.Pool)
		logRetentionInterval := pgtype.Interval{
			Microseconds: int64(conf.Config.Logs.Retention / time.Microsecond),
			Valid:        true,
		}
		deletedLogs, err := queries.DeleteOldLogs(ctx, logRetentionInterval)
		if err != nil {
			slog.Error("failed to delete old logs", tint.Err(err))
		} else {
			slog.Info(fmt.Sprintf("%d logs deleted", deletedLogs))
		}
	}

	if fullpage.Cache != nil {
		if err := fullpage.Cache.Prune(); err != nil {
			slog.Error("failed to prune captures cache", tint.Err(err))
		}
	}
	slog.Info("Maintenance completed successfully")
}
