/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/linecast/internal/models"
	"github.com/friendsincode/linecast/internal/playlist"
	"github.com/friendsincode/linecast/internal/schedule"
	"github.com/friendsincode/linecast/internal/timeline"
)

// tickEngine is the thin I/O loop around the three core engines: each tick
// it ensures every channel has a timeline anchor, resolves its current
// playlist and position, and advances sequential-mode progression when a
// file boundary is crossed. None of this orchestration logic lives inside
// the core packages themselves (spec.md §1).
type tickEngine struct {
	db       *gorm.DB
	schedule *schedule.Resolver
	playlist *playlist.Resolver
	timeline *timeline.Service
	logger   zerolog.Logger

	lastFileIndex map[string]int
}

func newTickEngine(db *gorm.DB, scheduleResolver *schedule.Resolver, playlistResolver *playlist.Resolver, timelineService *timeline.Service, logger zerolog.Logger) *tickEngine {
	return &tickEngine{
		db:            db,
		schedule:      scheduleResolver,
		playlist:      playlistResolver,
		timeline:      timelineService,
		logger:        logger.With().Str("component", "tick_engine").Logger(),
		lastFileIndex: make(map[string]int),
	}
}

func (e *tickEngine) tick(ctx context.Context) {
	var channels []models.Channel
	if err := e.db.WithContext(ctx).Find(&channels).Error; err != nil {
		e.logger.Error().Err(err).Msg("loading channels for tick")
		return
	}

	now := time.Now().UTC()
	for _, ch := range channels {
		e.tickChannel(ctx, ch, now)
	}
}

func (e *tickEngine) tickChannel(ctx context.Context, ch models.Channel, now time.Time) {
	if err := e.timeline.Initialize(ctx, ch.ID); err != nil {
		e.logger.Error().Err(err).Str("channel_id", ch.ID).Msg("initializing timeline anchor")
		return
	}

	activePlaylist, err := e.playlist.Resolve(ctx, ch.ID, now)
	if err != nil {
		e.logger.Error().Err(err).Str("channel_id", ch.ID).Msg("resolving playlist")
		return
	}

	pos, err := e.timeline.CurrentPosition(ctx, ch.ID, activePlaylist, now)
	if err != nil {
		e.logger.Error().Err(err).Str("channel_id", ch.ID).Msg("computing timeline position")
		return
	}
	if pos == nil {
		return
	}

	previous, seen := e.lastFileIndex[ch.ID]
	e.lastFileIndex[ch.ID] = pos.FileIndex
	if seen && previous != pos.FileIndex {
		e.onFileBoundaryCrossed(ctx, ch.ID, activePlaylist, pos, now)
	}
}

// onFileBoundaryCrossed advances sequential-mode progression. It is the
// only place AdvanceProgression is called outside of tests — resolve()
// itself never writes progression (spec.md §4.B "Side effects").
func (e *tickEngine) onFileBoundaryCrossed(ctx context.Context, channelID string, activePlaylist []models.MediaFile, pos *timeline.Position, now time.Time) {
	active, err := e.schedule.ActiveBlock(ctx, channelID, now)
	if err != nil || active == nil || active.BucketID == nil || active.PlaybackMode != models.PlaybackSequential {
		return
	}
	if pos.FileIndex < 0 || pos.FileIndex >= len(activePlaylist) {
		return
	}

	shouldAdvance, err := e.playlist.ShouldAdvanceProgression(ctx, *active.BucketID)
	if err != nil {
		e.logger.Warn().Err(err).Str("channel_id", channelID).Msg("checking progression guard")
		return
	}
	if !shouldAdvance {
		// Multi-series bucket: progression is not meaningful, per
		// spec.md §4.B — never write it from here.
		return
	}

	mediaID := activePlaylist[pos.FileIndex].ID
	if err := e.playlist.AdvanceProgression(ctx, channelID, *active.BucketID, pos.FileIndex, &mediaID); err != nil {
		e.logger.Warn().Err(err).Str("channel_id", channelID).Msg("advancing bucket progression")
	}
}
