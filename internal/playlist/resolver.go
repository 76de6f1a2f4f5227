/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package playlist implements PlaylistResolver: turning the active
// schedule block (or its fallbacks) into an ordered, mode-applied list of
// playable media files. Grounded on friendsincode-grimnir_radio's
// internal/priority/resolver.go for the fallback-cascade-with-logging
// shape, and on internal/clock/compiler.go for the overall "resolve a
// weekly plan into a concrete ordering" structure.
package playlist

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/friendsincode/linecast/internal/catalog"
	"github.com/friendsincode/linecast/internal/corerr"
	"github.com/friendsincode/linecast/internal/models"
	"github.com/friendsincode/linecast/internal/schedule"
	"github.com/friendsincode/linecast/internal/telemetry"
)

// Resolver implements the resolution cascade and playback-mode application
// described in spec.md §4.B.
type Resolver struct {
	db       *gorm.DB
	schedule *schedule.Resolver
	catalog  *catalog.Store
	logger   zerolog.Logger
	loc      *time.Location
}

// New builds a Resolver.
func New(db *gorm.DB, scheduleResolver *schedule.Resolver, catalogStore *catalog.Store, logger zerolog.Logger, loc *time.Location) *Resolver {
	if loc == nil {
		loc = time.UTC
	}
	return &Resolver{
		db:       db,
		schedule: scheduleResolver,
		catalog:  catalogStore,
		logger:   logger.With().Str("component", "playlist_resolver").Logger(),
		loc:      loc,
	}
}

// Resolve returns the ordered list of playable media files for channelID at
// instant. Never fails on "nothing scheduled" — an empty result is a valid
// answer (spec.md §4.B).
func (r *Resolver) Resolve(ctx context.Context, channelID string, instant time.Time) ([]models.MediaFile, error) {
	active, err := r.schedule.ActiveBlock(ctx, channelID, instant)
	if err != nil {
		return nil, err
	}

	var ids []string
	tier := ""

	if active != nil && active.BucketID != nil {
		members, merr := r.loadBucketMembers(ctx, *active.BucketID)
		if merr != nil {
			return nil, merr
		}
		if len(members) > 0 {
			tier = "1"
			ids, err = r.applyPlaybackMode(ctx, channelID, *active.BucketID, active.ID, active.PlaybackMode, instant, members)
			if err != nil {
				return nil, err
			}
		}
	}

	if tier == "" {
		var bucketIDs []string
		if active != nil {
			bucketIDs, err = r.otherEnabledBucketIDs(ctx, channelID, active.ID)
			tier = "2"
		} else {
			bucketIDs, err = r.allEnabledBucketIDs(ctx, channelID)
			tier = "3"
		}
		if err != nil {
			return nil, err
		}
		ids, err = r.unionBucketMembers(ctx, bucketIDs)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			tier = "4"
			legacyBucketIDs, lerr := r.legacyChannelBucketIDs(ctx, channelID)
			if lerr != nil {
				return nil, lerr
			}
			ids, err = r.unionBucketMembers(ctx, legacyBucketIDs)
			if err != nil {
				return nil, err
			}
		}
	}

	if len(ids) == 0 {
		tier = "empty"
	}

	if tier == "1" {
		r.logger.Debug().Str("channel_id", channelID).Msg("playlist resolved from active block's bucket")
	} else if tier != "empty" {
		r.logger.Warn().Str("channel_id", channelID).Str("tier", tier).Msg("playlist resolution fell back")
	}
	telemetry.PlaylistFallbacksTotal.WithLabelValues(tier).Inc()

	return r.materialize(ctx, ids)
}

// AdvanceProgression atomically upserts the (channelID, bucketID) resume
// point. Concurrent callers racing to the same new position are benign
// (spec.md §5): last-writer-wins, no locking.
func (r *Resolver) AdvanceProgression(ctx context.Context, channelID, bucketID string, newPosition int, lastPlayedMediaID *string) error {
	progression := models.BucketProgression{
		ChannelID:         channelID,
		BucketID:          bucketID,
		CurrentPosition:   newPosition,
		LastPlayedMediaID: lastPlayedMediaID,
		UpdatedAt:         time.Now().UTC(),
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "channel_id"}, {Name: "bucket_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"current_position", "last_played_media_id", "updated_at"}),
	}).Create(&progression).Error
}

// ShouldAdvanceProgression reports whether bucketID's progression is
// meaningful to write. It is false when the bucket mixes more than one
// distinct showName — progression is only meaningful for single-series
// buckets (spec.md §4.B). Callers MUST check this before calling
// AdvanceProgression; resolve() enforces the same guard internally for
// reads, but it has no way to stop a caller from writing.
func (r *Resolver) ShouldAdvanceProgression(ctx context.Context, bucketID string) (bool, error) {
	members, err := r.loadBucketMembers(ctx, bucketID)
	if err != nil {
		return false, err
	}
	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.MediaFileID
	}
	multiSeries, err := r.hasMultipleShows(ctx, ids)
	if err != nil {
		return false, err
	}
	return !multiSeries, nil
}

func (r *Resolver) applyPlaybackMode(ctx context.Context, channelID, bucketID, blockID string, mode models.PlaybackMode, instant time.Time, members []models.BucketMember) ([]string, error) {
	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.MediaFileID
	}

	switch mode {
	case models.PlaybackShuffle:
		date := instant.In(r.loc).Format("2006-01-02")
		seed := stringHash(date + blockID)
		return seededShuffle(ids, seed), nil
	case models.PlaybackRandom:
		return randomShuffle(ids), nil
	case models.PlaybackSequential:
		return r.applySequential(ctx, channelID, bucketID, ids)
	default:
		return ids, nil
	}
}

func (r *Resolver) applySequential(ctx context.Context, channelID, bucketID string, ids []string) ([]string, error) {
	multiSeries, err := r.hasMultipleShows(ctx, ids)
	if err != nil {
		return nil, err
	}
	if multiSeries {
		return ids, nil
	}

	var progression models.BucketProgression
	err = r.db.WithContext(ctx).
		Where("channel_id = ? AND bucket_id = ?", channelID, bucketID).
		First(&progression).Error
	if err != nil {
		if isNotFoundErr(err) {
			return ids, nil
		}
		return nil, fmt.Errorf("loading progression for channel %s bucket %s: %w", channelID, bucketID, err)
	}

	if progression.CurrentPosition < 0 || progression.CurrentPosition >= len(ids) {
		return ids, nil
	}
	return rotate(ids, progression.CurrentPosition), nil
}

func rotate(ids []string, start int) []string {
	out := make([]string, len(ids))
	for i := range ids {
		out[i] = ids[(start+i)%len(ids)]
	}
	return out
}

func (r *Resolver) hasMultipleShows(ctx context.Context, mediaIDs []string) (bool, error) {
	if len(mediaIDs) == 0 {
		return false, nil
	}
	var names []string
	err := r.db.WithContext(ctx).
		Model(&models.MediaFile{}).
		Where("id IN ? AND show_name IS NOT NULL", mediaIDs).
		Distinct("show_name").
		Pluck("show_name", &names).Error
	if err != nil {
		return false, fmt.Errorf("counting distinct shows: %w", err)
	}
	return len(names) > 1, nil
}

func (r *Resolver) loadBucketMembers(ctx context.Context, bucketID string) ([]models.BucketMember, error) {
	var members []models.BucketMember
	err := r.db.WithContext(ctx).
		Where("bucket_id = ?", bucketID).
		Order("position ASC").
		Find(&members).Error
	if err != nil {
		return nil, fmt.Errorf("loading bucket members for %s: %w", bucketID, err)
	}
	return members, nil
}

func (r *Resolver) otherEnabledBucketIDs(ctx context.Context, channelID, excludeBlockID string) ([]string, error) {
	var blocks []models.ScheduleBlock
	err := r.db.WithContext(ctx).
		Where("channel_id = ? AND enabled = ? AND id <> ? AND bucket_id IS NOT NULL", channelID, true, excludeBlockID).
		Order("priority DESC, created_at ASC").
		Find(&blocks).Error
	if err != nil {
		return nil, fmt.Errorf("loading other enabled blocks for channel %s: %w", channelID, err)
	}
	return bucketIDsFromBlocks(blocks), nil
}

func (r *Resolver) allEnabledBucketIDs(ctx context.Context, channelID string) ([]string, error) {
	var blocks []models.ScheduleBlock
	err := r.db.WithContext(ctx).
		Where("channel_id = ? AND enabled = ? AND bucket_id IS NOT NULL", channelID, true).
		Order("priority DESC, created_at ASC").
		Find(&blocks).Error
	if err != nil {
		return nil, fmt.Errorf("loading enabled blocks for channel %s: %w", channelID, err)
	}
	return bucketIDsFromBlocks(blocks), nil
}

func bucketIDsFromBlocks(blocks []models.ScheduleBlock) []string {
	seen := make(map[string]bool, len(blocks))
	ids := make([]string, 0, len(blocks))
	for _, b := range blocks {
		if b.BucketID == nil || seen[*b.BucketID] {
			continue
		}
		seen[*b.BucketID] = true
		ids = append(ids, *b.BucketID)
	}
	return ids
}

func (r *Resolver) legacyChannelBucketIDs(ctx context.Context, channelID string) ([]string, error) {
	var links []models.ChannelBucket
	err := r.db.WithContext(ctx).
		Where("channel_id = ?", channelID).
		Order("priority DESC").
		Find(&links).Error
	if err != nil {
		return nil, fmt.Errorf("loading legacy channel buckets for %s: %w", channelID, err)
	}
	ids := make([]string, len(links))
	for i, l := range links {
		ids[i] = l.BucketID
	}
	return ids, nil
}

func (r *Resolver) unionBucketMembers(ctx context.Context, bucketIDs []string) ([]string, error) {
	seen := make(map[string]bool)
	var union []string
	for _, bucketID := range bucketIDs {
		members, err := r.loadBucketMembers(ctx, bucketID)
		if err != nil {
			return nil, err
		}
		for _, m := range members {
			if seen[m.MediaFileID] {
				continue
			}
			seen[m.MediaFileID] = true
			union = append(union, m.MediaFileID)
		}
	}
	return union, nil
}

// materialize resolves media ids to catalog rows, dropping ids that are
// missing or file_exists=false while preserving order (spec.md §4.B).
func (r *Resolver) materialize(ctx context.Context, ids []string) ([]models.MediaFile, error) {
	if len(ids) == 0 {
		return []models.MediaFile{}, nil
	}

	found, err := r.catalog.ByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	files := make([]models.MediaFile, 0, len(ids))
	for _, id := range ids {
		f, ok := found[id]
		if !ok {
			r.logger.Warn().Err(&corerr.InconsistentCatalogError{MediaFileID: id, Reason: "missing or file_exists=false"}).Msg("dropping unresolvable media id from playlist")
			continue
		}
		files = append(files, f)
	}
	return files, nil
}

func isNotFoundErr(err error) bool {
	return err == gorm.ErrRecordNotFound
}
