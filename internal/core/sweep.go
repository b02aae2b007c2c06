package core

import (
	"context"
	"time"

	"github.com/fedragon/status-saver/internal/index"

	"go.uber.org/zap"
)

// StalePendingAge is how old a pending library entry must be before it is considered abandoned.
const StalePendingAge = time.Hour

// Sweep drops library entries whose copy never completed.
func Sweep(ctx context.Context, idx *index.Index, logger *zap.Logger) error {
	logger.Info("Sweeping stale entries...")

	swept, err := idx.SweepPending(ctx, time.Now().Add(-StalePendingAge))
	if err != nil {
		return err
	}
	if swept > 0 {
		logger.Info("Swept stale entries", zap.Int("count", swept))
	}

	return nil
}
