package resonance

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/dreamcapture/backend/internal/content"
	"github.com/dreamcapture/backend/internal/oracle"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// escalateThreshold is the raw-overlap score above which a candidate pair
// is worth an oracle round-trip.
const escalateThreshold = 20

// candidateLimit bounds how many visible counterparts one scan considers.
const candidateLimit = 200

// Matcher runs the two-stage resonance pipeline: a synchronous raw-overlap
// pass over visible counterparts, then a single oracle refinement for the
// best candidate. An oracle failure discards the candidate silently.
type Matcher struct {
	DB     *gorm.DB
	Oracle oracle.Client
	Log    *zap.Logger
}

// ScanForMoment matches a freshly tagged moment against visible dreams.
func (m *Matcher) ScanForMoment(ctx context.Context, momentID uint64) error {
	var mom content.Moment
	if err := m.DB.WithContext(ctx).Where("id = ?", momentID).First(&mom).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil // expired and deleted, or never existed; nothing to match
		}
		return err
	}
	if len(mom.Tags) == 0 {
		return nil
	}

	var dreams []content.Dream
	if err := m.DB.WithContext(ctx).
		Where("is_public AND is_visible AND expires_at > ? AND cardinality(tags) > 0", time.Now().UTC()).
		Order("created_at desc").Limit(candidateLimit).
		Find(&dreams).Error; err != nil {
		return err
	}

	cands := make([]candidate, 0, len(dreams))
	byID := make(map[uint64]*content.Dream, len(dreams))
	for i := range dreams {
		cands = append(cands, candidate{id: dreams[i].ID, tags: dreams[i].Tags})
		byID[dreams[i].ID] = &dreams[i]
	}

	dreamID, raw := bestCandidate(mom.Tags, cands)
	if dreamID == 0 {
		return nil
	}
	d := byID[dreamID]

	matched, err := m.alreadyMatched(ctx, d.ID, mom.ID)
	if err != nil || matched {
		return err
	}

	ref := m.refine(ctx, refineInput(d, &mom), d.ID, mom.ID, raw)
	if ref == nil {
		return nil
	}
	return m.store(ctx, d.ID, mom.ID, mom.UserID, raw, ref)
}

// ScanForDream matches a freshly analyzed dream against visible moments.
func (m *Matcher) ScanForDream(ctx context.Context, dreamID uint64) error {
	var d content.Dream
	if err := m.DB.WithContext(ctx).Where("id = ?", dreamID).First(&d).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if len(d.Tags) == 0 {
		return nil
	}

	var moments []content.Moment
	if err := m.DB.WithContext(ctx).
		Where("is_visible AND expires_at > ? AND cardinality(tags) > 0", time.Now().UTC()).
		Order("created_at desc").Limit(candidateLimit).
		Find(&moments).Error; err != nil {
		return err
	}

	cands := make([]candidate, 0, len(moments))
	byID := make(map[uint64]*content.Moment, len(moments))
	for i := range moments {
		cands = append(cands, candidate{id: moments[i].ID, tags: moments[i].Tags})
		byID[moments[i].ID] = &moments[i]
	}

	momentID, raw := bestCandidate(d.Tags, cands)
	if momentID == 0 {
		return nil
	}
	mom := byID[momentID]

	matched, err := m.alreadyMatched(ctx, d.ID, mom.ID)
	if err != nil || matched {
		return err
	}

	ref := m.refine(ctx, refineInput(&d, mom), d.ID, mom.ID, raw)
	if ref == nil {
		return nil
	}
	return m.store(ctx, d.ID, mom.ID, d.UserID, raw, ref)
}

// refine is the second-stage decision: escalate to the oracle only above
// the raw threshold, and discard the candidate silently when the oracle
// fails. Returns nil whenever no resonance should be created.
func (m *Matcher) refine(ctx context.Context, in oracle.RefineInput, dreamID, momentID uint64, raw int) *oracle.Refinement {
	if raw <= escalateThreshold {
		return nil
	}

	ref, err := m.Oracle.RefineResonance(ctx, in)
	if err != nil {
		// the raw score alone is not a resonance
		m.Log.Warn("resonance refinement failed, discarding candidate",
			zap.Uint64("dream_id", dreamID),
			zap.Uint64("moment_id", momentID),
			zap.Int("raw_score", raw),
			zap.Error(err))
		return nil
	}
	return ref
}

// refineInput assembles both sides of a candidate pair for the oracle.
func refineInput(d *content.Dream, mom *content.Moment) oracle.RefineInput {
	in := oracle.RefineInput{DreamTags: d.Tags, MomentTags: mom.Tags}
	if d.Analysis != nil {
		var a oracle.DreamAnalysis
		if err := json.Unmarshal(d.Analysis, &a); err == nil {
			in.DreamThemes = a.Themes
			in.DreamEmotions = a.Emotions
		}
	}
	if mom.Caption != nil {
		in.MomentCaption = *mom.Caption
	}
	return in
}

// alreadyMatched enforces one resonance per dream/moment pair before any
// oracle spend.
func (m *Matcher) alreadyMatched(ctx context.Context, dreamID, momentID uint64) (bool, error) {
	var n int64
	err := m.DB.WithContext(ctx).Model(&Resonance{}).
		Where("dream_id = ? AND moment_id = ?", dreamID, momentID).
		Count(&n).Error
	return n > 0, err
}

func (m *Matcher) store(ctx context.Context, dreamID, momentID, triggerUserID uint64, raw int, ref *oracle.Refinement) error {
	r := Resonance{
		UserID:      triggerUserID,
		DreamID:     dreamID,
		MomentID:    momentID,
		Score:       ref.Score,
		Explanation: ref.Explanation,
		CreatedAt:   time.Now().UTC(),
	}
	if err := m.DB.WithContext(ctx).Create(&r).Error; err != nil {
		return err
	}

	m.Log.Info("resonance created",
		zap.Uint64("resonance_id", r.ID),
		zap.Uint64("dream_id", dreamID),
		zap.Uint64("moment_id", momentID),
		zap.Int("raw_score", raw),
		zap.Int("refined_score", ref.Score))
	return nil
}
