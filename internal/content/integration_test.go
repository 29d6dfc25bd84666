//go:build integration

package content_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/dreamcapture/backend/internal/content"
	"github.com/dreamcapture/backend/internal/db"
	"github.com/dreamcapture/backend/internal/sweeper"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// These tests need a real Postgres; the expiry filters and the sweeper lean
// on text[] columns and SQL the in-process fakes cannot cover. Run with:
//
//	TEST_DATABASE_URL=postgres://... go test -tags integration ./internal/content/
func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	gdb, err := db.Connect(dsn)
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrateAndIndexes(gdb))
	return gdb
}

func testService(gdb *gorm.DB) *content.Service {
	return &content.Service{DB: gdb, MomentTTL: time.Hour, MaxDreamsPerDay: 10, MaxMomentsPerHour: 20}
}

func cleanupMoment(t *testing.T, gdb *gorm.DB, id uint64) {
	t.Cleanup(func() { gdb.Delete(&content.Moment{}, id) })
}

func cleanupDream(t *testing.T, gdb *gorm.DB, id uint64) {
	t.Cleanup(func() { gdb.Delete(&content.Dream{}, id) })
}

func TestExpiredMomentHiddenBeforeSweep(t *testing.T) {
	gdb := testDB(t)
	svc := testService(gdb)
	ctx := context.Background()
	now := time.Now().UTC()

	// expired one second ago, but the sweeper has not run yet
	expired := content.Moment{
		UserID: 9001, MediaType: "photo", MediaURL: "https://media.example/1.jpg",
		IsVisible: true, CreatedAt: now, ExpiresAt: now.Add(-time.Second),
	}
	live := content.Moment{
		UserID: 9001, MediaType: "photo", MediaURL: "https://media.example/2.jpg",
		IsVisible: true, CreatedAt: now, ExpiresAt: now.Add(time.Hour),
	}
	require.NoError(t, gdb.Create(&expired).Error)
	require.NoError(t, gdb.Create(&live).Error)
	cleanupMoment(t, gdb, expired.ID)
	cleanupMoment(t, gdb, live.ID)

	out, err := svc.ListMoments(ctx, 0, 100)
	require.NoError(t, err)
	ids := make(map[uint64]bool, len(out))
	for _, m := range out {
		ids[m.ID] = true
	}
	assert.False(t, ids[expired.ID])
	assert.True(t, ids[live.ID])

	_, err = svc.GetMoment(ctx, expired.ID)
	assert.ErrorIs(t, err, content.ErrExpired)
}

func TestSweepIdempotent(t *testing.T) {
	gdb := testDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	expiredMoment := content.Moment{
		UserID: 9002, MediaType: "photo", MediaURL: "https://media.example/3.jpg",
		IsVisible: true, CreatedAt: now, ExpiresAt: now.Add(-time.Second),
	}
	expiredDream := content.Dream{
		UserID: 9002, Description: "a bridge dissolving into fog", TTLDays: 1,
		IsPublic: true, IsVisible: true, CreatedAt: now, ExpiresAt: now.Add(-time.Second),
	}
	liveDream := content.Dream{
		UserID: 9002, Description: "a city of glass towers", TTLDays: 7,
		IsPublic: true, IsVisible: true, CreatedAt: now, ExpiresAt: now.Add(time.Hour),
	}
	require.NoError(t, gdb.Create(&expiredMoment).Error)
	require.NoError(t, gdb.Create(&expiredDream).Error)
	require.NoError(t, gdb.Create(&liveDream).Error)
	cleanupMoment(t, gdb, expiredMoment.ID)
	cleanupDream(t, gdb, expiredDream.ID)
	cleanupDream(t, gdb, liveDream.ID)

	sw := &sweeper.Sweeper{DB: gdb, Interval: time.Minute, Log: zap.NewNop()}
	require.NoError(t, sw.Sweep(ctx))

	var m content.Moment
	var d, ld content.Dream
	require.NoError(t, gdb.First(&m, expiredMoment.ID).Error)
	require.NoError(t, gdb.First(&d, expiredDream.ID).Error)
	require.NoError(t, gdb.First(&ld, liveDream.ID).Error)
	assert.False(t, m.IsVisible)
	assert.False(t, d.IsVisible)
	assert.True(t, ld.IsVisible)

	// a second pass with nothing newly expired changes nothing
	require.NoError(t, sw.Sweep(ctx))
	require.NoError(t, gdb.First(&m, expiredMoment.ID).Error)
	require.NoError(t, gdb.First(&ld, liveDream.ID).Error)
	assert.False(t, m.IsVisible)
	assert.True(t, ld.IsVisible)
}

func TestViewCountIncrements(t *testing.T) {
	gdb := testDB(t)
	svc := testService(gdb)
	ctx := context.Background()
	now := time.Now().UTC()

	dream := content.Dream{
		UserID: 9003, Description: "an ocean above the clouds", TTLDays: 1,
		IsPublic: true, IsVisible: true, CreatedAt: now, ExpiresAt: now.Add(time.Hour),
	}
	moment := content.Moment{
		UserID: 9003, MediaType: "video", MediaURL: "https://media.example/4.mp4",
		IsVisible: true, CreatedAt: now, ExpiresAt: now.Add(time.Hour),
	}
	require.NoError(t, gdb.Create(&dream).Error)
	require.NoError(t, gdb.Create(&moment).Error)
	cleanupDream(t, gdb, dream.ID)
	cleanupMoment(t, gdb, moment.ID)

	for i := 0; i < 2; i++ {
		_, err := svc.GetDream(ctx, dream.ID)
		require.NoError(t, err)
		_, err = svc.GetMoment(ctx, moment.ID)
		require.NoError(t, err)
	}

	var d content.Dream
	var m content.Moment
	require.NoError(t, gdb.First(&d, dream.ID).Error)
	require.NoError(t, gdb.First(&m, moment.ID).Error)
	assert.Equal(t, int64(2), d.ViewCount)
	assert.Equal(t, int64(2), m.ViewCount)
}
