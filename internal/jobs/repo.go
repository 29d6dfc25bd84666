package jobs

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

type Repo struct {
	DB *gorm.DB
}

// EnqueueDream schedules a dream-scoped job (illustration or resonance scan).
func (r *Repo) EnqueueDream(ctx context.Context, jobType string, userID, dreamID uint64) error {
	payload, _ := json.Marshal(map[string]any{"dream_id": dreamID})
	j := Job{
		UserID:  userID,
		Type:    jobType,
		Payload: payload,
		RunAt:   time.Now().UTC(),
		Status:  "PENDING",
	}
	return r.DB.WithContext(ctx).Create(&j).Error
}

// EnqueueMomentScan schedules a resonance scan for a new moment.
func (r *Repo) EnqueueMomentScan(ctx context.Context, userID, momentID uint64) error {
	payload, _ := json.Marshal(map[string]any{"moment_id": momentID})
	j := Job{
		UserID:  userID,
		Type:    TypeMomentResonanceScan,
		Payload: payload,
		RunAt:   time.Now().UTC(),
		Status:  "PENDING",
	}
	return r.DB.WithContext(ctx).Create(&j).Error
}

// Claim takes one due job atomically with FOR UPDATE SKIP LOCKED, so
// multiple workers never double-claim. Postgres only.
func (r *Repo) Claim(workerID string) (*Job, error) {
	var job Job
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		// requeue jobs whose worker died mid-run
		tx.Exec(`
update jobs
set status='PENDING', locked_by=null, locked_at=null, updated_at=now()
where status='RUNNING' and locked_at is not null and locked_at < now() - interval '5 minutes'
`)

		q := tx.Raw(`
with cte as (
  select id
  from jobs
  where status='PENDING' and run_at <= now()
  order by run_at asc
  for update skip locked
  limit 1
)
update jobs
set status='RUNNING', locked_by=?, locked_at=now(), updated_at=now()
where id in (select id from cte)
returning *;
`, workerID)

		return q.Scan(&job).Error
	})
	if err != nil {
		return nil, err
	}
	if job.ID == 0 {
		return nil, nil
	}
	return &job, nil
}

func (r *Repo) MarkDone(id uint64) error {
	return r.DB.Exec(`update jobs set status='DONE', updated_at=now() where id=?`, id).Error
}

func (r *Repo) MarkFailed(id uint64, errMsg string) error {
	return r.DB.Exec(`update jobs set status='FAILED', last_error=?, updated_at=now() where id=?`, errMsg, id).Error
}

func (r *Repo) RetryLater(id uint64, attempts int, runAt time.Time, errMsg string) error {
	return r.DB.Exec(`
update jobs
set status='PENDING',
    attempts=?,
    run_at=?,
    locked_by=null,
    locked_at=null,
    last_error=?,
    updated_at=now()
where id=?`, attempts, runAt, errMsg, id).Error
}
