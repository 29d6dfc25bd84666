package db

import (
	"fmt"

	"github.com/dreamcapture/backend/internal/auth"
	"github.com/dreamcapture/backend/internal/content"
	"github.com/dreamcapture/backend/internal/jobs"
	"github.com/dreamcapture/backend/internal/resonance"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Connect(dsn string) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	return gdb, nil
}

func AutoMigrateAndIndexes(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(
		&auth.User{},
		&content.Dream{},
		&content.Moment{},
		&resonance.Resonance{},
		&jobs.Job{},
	); err != nil {
		return err
	}

	// One resonance per dream/moment pair
	if err := gdb.Exec(`create unique index if not exists uq_resonances_pair on resonances(dream_id, moment_id);`).Error; err != nil {
		return err
	}

	// Tag overlap scans filter on tags (GIN for text[])
	if err := gdb.Exec(`create index if not exists idx_dreams_tags on dreams using gin (tags);`).Error; err != nil {
		return err
	}
	if err := gdb.Exec(`create index if not exists idx_moments_tags on moments using gin (tags);`).Error; err != nil {
		return err
	}

	// Sweeper and stream listing paths
	stmts := []string{
		`create index if not exists idx_dreams_visible_expires on dreams(is_visible, expires_at);`,
		`create index if not exists idx_moments_visible_expires on moments(is_visible, expires_at);`,
		`create index if not exists idx_dreams_user_created on dreams(user_id, created_at desc);`,
		`create index if not exists idx_moments_user_created on moments(user_id, created_at desc);`,
		`create index if not exists idx_resonances_user_score on resonances(user_id, score desc);`,
		`create index if not exists idx_jobs_due on jobs(status, run_at);`,
		`create index if not exists idx_jobs_lock on jobs(status, locked_at);`,
	}
	for _, s := range stmts {
		if err := gdb.Exec(s).Error; err != nil {
			return fmt.Errorf("index exec failed: %w (sql=%s)", err, s)
		}
	}

	return nil
}
