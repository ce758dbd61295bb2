package db

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"
)

// StartResetTokenCleaner clears expired password-reset tokens with interval
func StartResetTokenCleaner(
	ctx context.Context,
	db *sql.DB,
	interval time.Duration,
	log *zap.Logger,
) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				res, err := db.ExecContext(ctx, `
                    UPDATE users
                       SET reset_token = NULL, reset_expiry = NULL
                     WHERE reset_expiry <= $1
                `, time.Now().UTC())
				if err != nil {
					log.Error("failed to clean expired reset tokens", zap.Error(err))
					continue
				}
				if rows, _ := res.RowsAffected(); rows > 0 {
					log.Info("cleaned expired reset tokens", zap.Int64("cleared", rows))
				}
			}
		}
	}()
}
