package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"time"

	"github.com/dreamcapture/backend/internal/content"
	"github.com/dreamcapture/backend/internal/oracle"
	"github.com/dreamcapture/backend/internal/resonance"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Worker drains the job queue: dream illustration and resonance scans.
// Both run decoupled from the request path so submissions never wait on
// the oracle beyond the bounded tag-extraction call.
type Worker struct {
	ID      string
	Repo    *Repo
	Content *content.Service
	Matcher *resonance.Matcher
	Oracle  oracle.Client
	Log     *zap.Logger
}

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(800 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			job, err := w.Repo.Claim(w.ID)
			if err != nil {
				w.Log.Error("job claim failed", zap.Error(err))
				continue
			}
			if job == nil {
				continue
			}
			w.handle(ctx, job)
		}
	}
}

func (w *Worker) handle(ctx context.Context, job *Job) {
	switch job.Type {
	case TypeDreamIllustrate:
		w.handleIllustrate(ctx, job)
	case TypeDreamResonanceScan:
		w.handleDreamScan(ctx, job)
	case TypeMomentResonanceScan:
		w.handleMomentScan(ctx, job)
	default:
		_ = w.Repo.MarkFailed(job.ID, "unknown job type")
	}
}

func (w *Worker) handleIllustrate(ctx context.Context, job *Job) {
	var p struct {
		DreamID uint64 `json:"dream_id"`
	}
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		_ = w.Repo.MarkFailed(job.ID, "bad payload")
		return
	}

	var d content.Dream
	if err := w.Content.DB.WithContext(ctx).Where("id = ?", p.DreamID).First(&d).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			_ = w.Repo.MarkDone(job.ID)
			return
		}
		w.retry(job, "db read error")
		return
	}

	if d.Analysis == nil {
		// oracle analysis never landed; the dream stays unillustrated
		_ = w.Repo.MarkDone(job.ID)
		return
	}
	var a oracle.DreamAnalysis
	if err := json.Unmarshal(d.Analysis, &a); err != nil || a.VisualPrompt == "" {
		_ = w.Repo.MarkDone(job.ID)
		return
	}

	imageURL, err := w.Oracle.GenerateImage(ctx, a.VisualPrompt)
	if err != nil {
		w.retry(job, "image generation: "+err.Error())
		return
	}

	if err := w.Content.SetDreamImage(ctx, d.ID, imageURL); err != nil {
		w.retry(job, "db write error")
		return
	}

	w.Log.Info("dream illustrated", zap.Uint64("dream_id", d.ID))
	_ = w.Repo.MarkDone(job.ID)
}

func (w *Worker) handleDreamScan(ctx context.Context, job *Job) {
	var p struct {
		DreamID uint64 `json:"dream_id"`
	}
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		_ = w.Repo.MarkFailed(job.ID, "bad payload")
		return
	}

	if err := w.Matcher.ScanForDream(ctx, p.DreamID); err != nil {
		w.retry(job, "resonance scan: "+err.Error())
		return
	}
	_ = w.Repo.MarkDone(job.ID)
}

func (w *Worker) handleMomentScan(ctx context.Context, job *Job) {
	var p struct {
		MomentID uint64 `json:"moment_id"`
	}
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		_ = w.Repo.MarkFailed(job.ID, "bad payload")
		return
	}

	if err := w.Matcher.ScanForMoment(ctx, p.MomentID); err != nil {
		w.retry(job, "resonance scan: "+err.Error())
		return
	}
	_ = w.Repo.MarkDone(job.ID)
}

func (w *Worker) retry(job *Job, errMsg string) {
	attempts := job.Attempts + 1
	if attempts >= job.MaxAttempts {
		_ = w.Repo.MarkFailed(job.ID, errMsg)
		return
	}

	sec := math.Min(math.Pow(2, float64(attempts)), 600)
	next := time.Now().Add(time.Duration(sec) * time.Second)

	_ = w.Repo.RetryLater(job.ID, attempts, next, errMsg)
}
