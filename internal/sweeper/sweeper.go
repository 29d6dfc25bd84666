package sweeper

import (
	"context"
	"time"

	"github.com/dreamcapture/backend/internal/content"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Sweeper periodically flips expired content to invisible. It only ever
// soft-deletes; expired rows stay in the store for audit and analytics.
type Sweeper struct {
	DB       *gorm.DB
	Interval time.Duration
	Log      *zap.Logger
}

// Run sweeps on a fixed interval until ctx is cancelled. A failed sweep is
// logged and retried on the next tick; it never takes the process down.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				s.Log.Error("sweep failed", zap.Error(err))
			}
		}
	}
}

// Sweep hides everything whose expiry has passed. Idempotent: rerunning
// with no newly-expired rows touches nothing.
func (s *Sweeper) Sweep(ctx context.Context) error {
	now := time.Now().UTC()

	moments := s.DB.WithContext(ctx).Model(&content.Moment{}).
		Where("is_visible AND expires_at <= ?", now).
		Update("is_visible", false)
	if moments.Error != nil {
		return moments.Error
	}

	dreams := s.DB.WithContext(ctx).Model(&content.Dream{}).
		Where("is_visible AND expires_at <= ?", now).
		Update("is_visible", false)
	if dreams.Error != nil {
		return dreams.Error
	}

	if moments.RowsAffected > 0 || dreams.RowsAffected > 0 {
		s.Log.Info("sweep complete",
			zap.Int64("hidden_moments", moments.RowsAffected),
			zap.Int64("hidden_dreams", dreams.RowsAffected))
	}
	return nil
}
