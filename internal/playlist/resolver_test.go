/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playlist

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/friendsincode/linecast/internal/catalog"
	"github.com/friendsincode/linecast/internal/models"
	"github.com/friendsincode/linecast/internal/schedule"
)

func newPlaylistTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Channel{}, &models.ScheduleBlock{}, &models.MediaBucket{},
		&models.BucketMember{}, &models.BucketProgression{}, &models.ChannelBucket{},
		&models.MediaFile{},
	))
	return db
}

func seedMedia(t *testing.T, db *gorm.DB, id string, duration int64, showName *string) {
	t.Helper()
	require.NoError(t, db.Create(&models.MediaFile{ID: id, Path: "/media/" + id, DurationSecs: duration, ShowName: showName, Exists: true}).Error)
}

func seedBucketMember(t *testing.T, db *gorm.DB, bucketID, mediaID string, position int) {
	t.Helper()
	require.NoError(t, db.Create(&models.BucketMember{BucketID: bucketID, MediaFileID: mediaID, Position: position}).Error)
}

func newTestResolver(db *gorm.DB) *Resolver {
	scheduleResolver := schedule.New(db, zerolog.Nop(), time.UTC)
	catalogStore := catalog.New(db)
	return New(db, scheduleResolver, catalogStore, zerolog.Nop(), time.UTC)
}

func TestResolveTier1UsesActiveBlockBucket(t *testing.T) {
	db := newPlaylistTestDB(t)
	ctx := context.Background()

	bucketID := "bucket-1"
	require.NoError(t, db.Create(&models.MediaBucket{ID: bucketID, Name: "Daytime"}).Error)
	seedMedia(t, db, "m1", 30, nil)
	seedMedia(t, db, "m2", 60, nil)
	seedBucketMember(t, db, bucketID, "m1", 0)
	seedBucketMember(t, db, bucketID, "m2", 1)

	require.NoError(t, db.Create(&models.ScheduleBlock{
		ID: "blk-1", ChannelID: "chan-1", Name: "Daytime",
		StartTime: "00:00:00", EndTime: "23:59:59",
		BucketID: &bucketID, PlaybackMode: models.PlaybackSequential, Enabled: true, CreatedAt: time.Now(),
	}).Error)

	r := newTestResolver(db)
	files, err := r.Resolve(ctx, "chan-1", time.Date(2026, 7, 29, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, files, 2)
	require.Equal(t, "m1", files[0].ID)
	require.Equal(t, "m2", files[1].ID)
}

func TestResolveMultiSeriesGuardIgnoresProgression(t *testing.T) {
	db := newPlaylistTestDB(t)
	ctx := context.Background()

	bucketID := "bucket-2"
	require.NoError(t, db.Create(&models.MediaBucket{ID: bucketID, Name: "Mixed"}).Error)
	showX, showY := "X", "Y"
	seedMedia(t, db, "m1", 30, &showX)
	seedMedia(t, db, "m2", 30, &showY)
	seedMedia(t, db, "m3", 30, &showX)
	seedBucketMember(t, db, bucketID, "m1", 0)
	seedBucketMember(t, db, bucketID, "m2", 1)
	seedBucketMember(t, db, bucketID, "m3", 2)

	require.NoError(t, db.Create(&models.BucketProgression{ChannelID: "chan-1", BucketID: bucketID, CurrentPosition: 2}).Error)
	require.NoError(t, db.Create(&models.ScheduleBlock{
		ID: "blk-2", ChannelID: "chan-1", Name: "Mixed",
		StartTime: "00:00:00", EndTime: "23:59:59",
		BucketID: &bucketID, PlaybackMode: models.PlaybackSequential, Enabled: true, CreatedAt: time.Now(),
	}).Error)

	r := newTestResolver(db)
	files, err := r.Resolve(ctx, "chan-1", time.Date(2026, 7, 29, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, files, 3)
	require.Equal(t, "m1", files[0].ID, "multi-series bucket must ignore saved progression and start at 0")

	var progression models.BucketProgression
	require.NoError(t, db.Where("channel_id = ? AND bucket_id = ?", "chan-1", bucketID).First(&progression).Error)
	require.Equal(t, 2, progression.CurrentPosition, "resolve must not write progression")
}

func TestResolveSequentialRotatesOnSavedProgression(t *testing.T) {
	db := newPlaylistTestDB(t)
	ctx := context.Background()

	bucketID := "bucket-3"
	require.NoError(t, db.Create(&models.MediaBucket{ID: bucketID, Name: "Single"}).Error)
	show := "X"
	seedMedia(t, db, "m1", 30, &show)
	seedMedia(t, db, "m2", 30, &show)
	seedMedia(t, db, "m3", 30, &show)
	seedBucketMember(t, db, bucketID, "m1", 0)
	seedBucketMember(t, db, bucketID, "m2", 1)
	seedBucketMember(t, db, bucketID, "m3", 2)
	require.NoError(t, db.Create(&models.BucketProgression{ChannelID: "chan-1", BucketID: bucketID, CurrentPosition: 1}).Error)
	require.NoError(t, db.Create(&models.ScheduleBlock{
		ID: "blk-3", ChannelID: "chan-1", Name: "Single",
		StartTime: "00:00:00", EndTime: "23:59:59",
		BucketID: &bucketID, PlaybackMode: models.PlaybackSequential, Enabled: true, CreatedAt: time.Now(),
	}).Error)

	r := newTestResolver(db)
	files, err := r.Resolve(ctx, "chan-1", time.Date(2026, 7, 29, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, []string{"m2", "m3", "m1"}, []string{files[0].ID, files[1].ID, files[2].ID})
}

func TestResolveShuffleIsStableWithinCalendarDay(t *testing.T) {
	db := newPlaylistTestDB(t)
	ctx := context.Background()

	bucketID := "bucket-4"
	require.NoError(t, db.Create(&models.MediaBucket{ID: bucketID, Name: "Shuffled"}).Error)
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		seedMedia(t, db, id, 10, nil)
	}
	for i, id := range []string{"a", "b", "c", "d", "e"} {
		seedBucketMember(t, db, bucketID, id, i)
	}
	require.NoError(t, db.Create(&models.ScheduleBlock{
		ID: "blk-shuffle", ChannelID: "chan-1", Name: "Shuffled",
		StartTime: "00:00:00", EndTime: "23:59:59",
		BucketID: &bucketID, PlaybackMode: models.PlaybackShuffle, Enabled: true, CreatedAt: time.Now(),
	}).Error)

	r := newTestResolver(db)
	t1 := time.Date(2026, 7, 29, 8, 0, 0, 0, time.UTC)
	t2 := time.Date(2026, 7, 29, 8, 5, 0, 0, time.UTC)
	t3 := time.Date(2026, 7, 30, 8, 0, 0, 0, time.UTC)

	first, err := r.Resolve(ctx, "chan-1", t1)
	require.NoError(t, err)
	second, err := r.Resolve(ctx, "chan-1", t2)
	require.NoError(t, err)
	third, err := r.Resolve(ctx, "chan-1", t3)
	require.NoError(t, err)

	require.Equal(t, idsOf(first), idsOf(second), "same calendar day must produce identical order")
	require.NotEqual(t, idsOf(first), idsOf(third), "a different calendar day should (generally) differ")
}

func idsOf(files []models.MediaFile) []string {
	ids := make([]string, len(files))
	for i, f := range files {
		ids[i] = f.ID
	}
	return ids
}

func TestResolveDropsMissingCatalogEntries(t *testing.T) {
	db := newPlaylistTestDB(t)
	ctx := context.Background()

	bucketID := "bucket-5"
	require.NoError(t, db.Create(&models.MediaBucket{ID: bucketID, Name: "Partial"}).Error)
	seedMedia(t, db, "m1", 30, nil)
	seedMedia(t, db, "m3", 30, nil)
	seedBucketMember(t, db, bucketID, "m1", 0)
	seedBucketMember(t, db, bucketID, "m2", 1) // missing from media_files
	seedBucketMember(t, db, bucketID, "m3", 2)
	require.NoError(t, db.Create(&models.ScheduleBlock{
		ID: "blk-partial", ChannelID: "chan-1", Name: "Partial",
		StartTime: "00:00:00", EndTime: "23:59:59",
		BucketID: &bucketID, PlaybackMode: models.PlaybackSequential, Enabled: true, CreatedAt: time.Now(),
	}).Error)

	r := newTestResolver(db)
	files, err := r.Resolve(ctx, "chan-1", time.Date(2026, 7, 29, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, []string{"m1", "m3"}, idsOf(files))
}

func TestResolveFallsBackToOtherBucketsWhenActiveBucketEmpty(t *testing.T) {
	db := newPlaylistTestDB(t)
	ctx := context.Background()

	emptyBucket := "bucket-empty"
	fallbackBucket := "bucket-fallback"
	require.NoError(t, db.Create(&models.MediaBucket{ID: emptyBucket, Name: "Empty"}).Error)
	require.NoError(t, db.Create(&models.MediaBucket{ID: fallbackBucket, Name: "Fallback"}).Error)
	seedMedia(t, db, "f1", 30, nil)
	seedBucketMember(t, db, fallbackBucket, "f1", 0)

	require.NoError(t, db.Create(&models.ScheduleBlock{
		ID: "blk-active", ChannelID: "chan-1", Name: "Active",
		StartTime: "00:00:00", EndTime: "23:59:59",
		BucketID: &emptyBucket, PlaybackMode: models.PlaybackSequential, Enabled: true, CreatedAt: time.Now(),
	}).Error)
	require.NoError(t, db.Create(&models.ScheduleBlock{
		ID: "blk-other", ChannelID: "chan-1", Name: "Other",
		StartTime: "00:00:00", EndTime: "23:59:59",
		BucketID: &fallbackBucket, PlaybackMode: models.PlaybackSequential, Enabled: true, CreatedAt: time.Now(),
	}).Error)

	r := newTestResolver(db)
	files, err := r.Resolve(ctx, "chan-1", time.Date(2026, 7, 29, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, []string{"f1"}, idsOf(files))
}

func TestAdvanceProgressionUpserts(t *testing.T) {
	db := newPlaylistTestDB(t)
	ctx := context.Background()
	r := newTestResolver(db)

	mediaID := "m9"
	require.NoError(t, r.AdvanceProgression(ctx, "chan-1", "bucket-9", 3, &mediaID))

	var progression models.BucketProgression
	require.NoError(t, db.Where("channel_id = ? AND bucket_id = ?", "chan-1", "bucket-9").First(&progression).Error)
	require.Equal(t, 3, progression.CurrentPosition)

	require.NoError(t, r.AdvanceProgression(ctx, "chan-1", "bucket-9", 4, &mediaID))
	require.NoError(t, db.Where("channel_id = ? AND bucket_id = ?", "chan-1", "bucket-9").First(&progression).Error)
	require.Equal(t, 4, progression.CurrentPosition)
}

func TestShouldAdvanceProgressionFalseForMultiSeriesBucket(t *testing.T) {
	db := newPlaylistTestDB(t)
	ctx := context.Background()

	bucketID := "bucket-multi"
	require.NoError(t, db.Create(&models.MediaBucket{ID: bucketID, Name: "Mixed"}).Error)
	showX, showY := "X", "Y"
	seedMedia(t, db, "m1", 30, &showX)
	seedMedia(t, db, "m2", 30, &showY)
	seedBucketMember(t, db, bucketID, "m1", 0)
	seedBucketMember(t, db, bucketID, "m2", 1)

	r := newTestResolver(db)
	should, err := r.ShouldAdvanceProgression(ctx, bucketID)
	require.NoError(t, err)
	require.False(t, should, "a bucket mixing shows must never have progression written")
}

func TestShouldAdvanceProgressionTrueForSingleSeriesBucket(t *testing.T) {
	db := newPlaylistTestDB(t)
	ctx := context.Background()

	bucketID := "bucket-single"
	require.NoError(t, db.Create(&models.MediaBucket{ID: bucketID, Name: "Single"}).Error)
	show := "X"
	seedMedia(t, db, "m1", 30, &show)
	seedMedia(t, db, "m2", 30, &show)
	seedBucketMember(t, db, bucketID, "m1", 0)
	seedBucketMember(t, db, bucketID, "m2", 1)

	r := newTestResolver(db)
	should, err := r.ShouldAdvanceProgression(ctx, bucketID)
	require.NoError(t, err)
	require.True(t, should)
}

func TestTickEngineGuardSkipsProgressionWriteForMultiSeriesBucket(t *testing.T) {
	// Mirrors cmd/linecastd's onFileBoundaryCrossed: a caller must check
	// ShouldAdvanceProgression before calling AdvanceProgression, since
	// AdvanceProgression itself has no way to know the bucket's contents.
	db := newPlaylistTestDB(t)
	ctx := context.Background()

	bucketID := "bucket-guarded"
	require.NoError(t, db.Create(&models.MediaBucket{ID: bucketID, Name: "Guarded"}).Error)
	showX, showY := "X", "Y"
	seedMedia(t, db, "m1", 30, &showX)
	seedMedia(t, db, "m2", 30, &showY)
	seedBucketMember(t, db, bucketID, "m1", 0)
	seedBucketMember(t, db, bucketID, "m2", 1)

	r := newTestResolver(db)
	should, err := r.ShouldAdvanceProgression(ctx, bucketID)
	require.NoError(t, err)
	require.False(t, should)

	// The real call site (cmd/linecastd's onFileBoundaryCrossed) returns
	// without calling AdvanceProgression when should is false.
	if should {
		require.NoError(t, r.AdvanceProgression(ctx, "chan-1", bucketID, 1, nil))
	}

	var count int64
	require.NoError(t, db.Model(&models.BucketProgression{}).Where("bucket_id = ?", bucketID).Count(&count).Error)
	require.Equal(t, int64(0), count, "progression row must never be created for a multi-series bucket")
}
