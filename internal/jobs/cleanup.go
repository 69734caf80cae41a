package jobs

import (
	"log/slog"
	"time"

	"github.com/karloscodes/cartridge"

	"folio/internal/users"
)

// CleanupJob removes admin tokens past their expiry.
type CleanupJob struct {
	dbManager cartridge.DBManager
	logger    *slog.Logger
	now       func() time.Time
}

func NewCleanupJob(dbManager cartridge.DBManager, logger *slog.Logger) *CleanupJob {
	return &CleanupJob{
		dbManager: dbManager,
		logger:    logger,
		now:       time.Now,
	}
}

// Run deletes expired tokens. Verification already rejects them; this keeps the table small.
func (j *CleanupJob) Run() error {
	db := j.dbManager.GetConnection()

	deleted, err := users.PurgeExpiredTokens(db, j.logger, j.now())
	if err != nil {
		j.logger.Error("Failed to purge expired admin tokens", slog.Any("error", err))
		return err
	}

	if deleted == 0 {
		j.logger.Debug("No expired admin tokens to clean up")
		return nil
	}

	j.logger.Info("Cleaned up expired admin tokens", slog.Int64("deleted_count", deleted))
	return nil
}
