package resonance

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var ErrNotFound = errors.New("not found")

type Service struct {
	DB *gorm.DB
}

func (s *Service) ListForUser(ctx context.Context, userID uint64, skip, limit int) ([]Resonance, error) {
	var out []Resonance
	err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("score desc, created_at desc").
		Offset(skip).Limit(limit).
		Find(&out).Error
	return out, err
}

// Save flips the saved flag on a resonance the user owns. The premium
// entitlement check happens in the handler.
func (s *Service) Save(ctx context.Context, userID, id uint64) error {
	res := s.DB.WithContext(ctx).Model(&Resonance{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_saved", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
