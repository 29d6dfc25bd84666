package content

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrExpired     = errors.New("expired")
	ErrPrivate     = errors.New("private")
	ErrForbidden   = errors.New("forbidden")
	ErrRateLimited = errors.New("rate limited")
)

type Service struct {
	DB *gorm.DB

	MomentTTL         time.Duration
	MaxDreamsPerDay   int
	MaxMomentsPerHour int
}

type CreateDreamInput struct {
	Title       *string
	Description string
	AudioURL    *string
	IsPublic    bool
	TTLDays     int
}

type CreateMomentInput struct {
	Caption   *string
	MediaType string
	MediaURL  string
	Location  json.RawMessage
}

func (s *Service) CreateDream(ctx context.Context, userID uint64, in CreateDreamInput) (*Dream, error) {
	now := time.Now().UTC()

	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	var n int64
	if err := s.DB.WithContext(ctx).Model(&Dream{}).
		Where("user_id = ? AND created_at >= ?", userID, dayStart).
		Count(&n).Error; err != nil {
		return nil, err
	}
	if int(n) >= s.MaxDreamsPerDay {
		return nil, ErrRateLimited
	}

	ttl := in.TTLDays
	if ttl != 1 && ttl != 7 && ttl != 30 {
		ttl = 1
	}

	d := Dream{
		UserID:      userID,
		Title:       in.Title,
		Description: in.Description,
		AudioURL:    in.AudioURL,
		TTLDays:     ttl,
		IsPublic:    in.IsPublic,
		IsVisible:   true,
		CreatedAt:   now,
		ExpiresAt:   now.Add(time.Duration(ttl) * 24 * time.Hour),
	}
	if err := s.DB.WithContext(ctx).Create(&d).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *Service) CreateMoment(ctx context.Context, userID uint64, in CreateMomentInput) (*Moment, error) {
	now := time.Now().UTC()

	var n int64
	if err := s.DB.WithContext(ctx).Model(&Moment{}).
		Where("user_id = ? AND created_at >= ?", userID, now.Add(-time.Hour)).
		Count(&n).Error; err != nil {
		return nil, err
	}
	if int(n) >= s.MaxMomentsPerHour {
		return nil, ErrRateLimited
	}

	m := Moment{
		UserID:    userID,
		Caption:   in.Caption,
		MediaType: in.MediaType,
		MediaURL:  in.MediaURL,
		Location:  in.Location,
		IsVisible: true,
		CreatedAt: now,
		ExpiresAt: now.Add(s.MomentTTL),
	}
	if err := s.DB.WithContext(ctx).Create(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// SetDreamAnalysis attaches oracle output to an existing dream. Tags and
// analysis are written together so a partial oracle response never lands.
func (s *Service) SetDreamAnalysis(ctx context.Context, dreamID uint64, tags []string, analysis json.RawMessage) error {
	return s.DB.WithContext(ctx).Model(&Dream{}).
		Where("id = ?", dreamID).
		Updates(map[string]any{
			"tags":     tagArray(tags),
			"analysis": analysis,
		}).Error
}

func (s *Service) SetDreamImage(ctx context.Context, dreamID uint64, imageURL string) error {
	return s.DB.WithContext(ctx).Model(&Dream{}).
		Where("id = ?", dreamID).
		Update("generated_image_url", imageURL).Error
}

func (s *Service) SetMomentTags(ctx context.Context, momentID uint64, tags []string) error {
	return s.DB.WithContext(ctx).Model(&Moment{}).
		Where("id = ?", momentID).
		Update("tags", tagArray(tags)).Error
}

// ListPublicDreams returns the live public stream, newest first. The expiry
// filter is applied at read time as well; the sweeper is only eventually
// consistent.
func (s *Service) ListPublicDreams(ctx context.Context, skip, limit int) ([]Dream, error) {
	var out []Dream
	err := s.DB.WithContext(ctx).
		Where("is_public AND is_visible AND expires_at > ?", time.Now().UTC()).
		Order("created_at desc").
		Offset(skip).Limit(limit).
		Find(&out).Error
	return out, err
}

func (s *Service) ListUserDreams(ctx context.Context, userID uint64, skip, limit int) ([]Dream, error) {
	var out []Dream
	err := s.DB.WithContext(ctx).
		Where("user_id = ? AND expires_at > ?", userID, time.Now().UTC()).
		Order("created_at desc").
		Offset(skip).Limit(limit).
		Find(&out).Error
	return out, err
}

func (s *Service) ListMoments(ctx context.Context, skip, limit int) ([]Moment, error) {
	var out []Moment
	err := s.DB.WithContext(ctx).
		Where("is_visible AND expires_at > ?", time.Now().UTC()).
		Order("created_at desc").
		Offset(skip).Limit(limit).
		Find(&out).Error
	return out, err
}

// GetDream fetches a dream for public viewing and counts the view.
// Expired items are distinguished from unknown ones for the caller.
func (s *Service) GetDream(ctx context.Context, id uint64) (*Dream, error) {
	var d Dream
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&d).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !Visible(d.ExpiresAt, time.Now().UTC()) {
		return nil, ErrExpired
	}
	if !d.IsPublic {
		return nil, ErrPrivate
	}
	if err := s.bumpViewCount(ctx, &Dream{}, d.ID); err != nil {
		return nil, err
	}
	d.ViewCount++
	return &d, nil
}

func (s *Service) GetMoment(ctx context.Context, id uint64) (*Moment, error) {
	var m Moment
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !Visible(m.ExpiresAt, time.Now().UTC()) {
		return nil, ErrExpired
	}
	if err := s.bumpViewCount(ctx, &Moment{}, m.ID); err != nil {
		return nil, err
	}
	m.ViewCount++
	return &m, nil
}

func (s *Service) DeleteDream(ctx context.Context, userID, id uint64) error {
	var d Dream
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&d).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	if d.UserID != userID {
		return ErrForbidden
	}
	return s.DB.WithContext(ctx).Delete(&d).Error
}

// bumpViewCount is an atomic column increment shared by both content kinds.
// It never races with the sweeper's visibility flip; the two touch disjoint
// columns.
func (s *Service) bumpViewCount(ctx context.Context, model any, id uint64) error {
	return s.DB.WithContext(ctx).Model(model).
		Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + ?", 1)).Error
}
