/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package timeline implements TimelineService: the stateless
// anchor-plus-elapsed position computation and the channel anchor
// lifecycle (spec.md §4.C, §9). Grounded on the anchor/elapsed/modulo walk
// in the hermes timeline calculator (other_examples), adapted from
// "playlist finishes" semantics to this system's "always loops" semantics.
package timeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/linecast/internal/corerr"
	"github.com/friendsincode/linecast/internal/models"
	"github.com/friendsincode/linecast/internal/telemetry"
)

// Position is the result of CurrentPosition.
type Position struct {
	FileIndex      int
	OffsetSeconds  int64
	ElapsedSeconds int64
}

// Service reads and writes a channel's scheduleStartTime anchor and
// computes positions against it. CurrentPosition itself is pure aside from
// the anchor read; it never mutates state.
type Service struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// New builds a Service.
func New(db *gorm.DB, logger zerolog.Logger) *Service {
	return &Service{db: db, logger: logger.With().Str("component", "timeline_service").Logger()}
}

// Initialize sets scheduleStartTime = now iff it is currently null. The
// update is conditional at the database level to avoid two concurrent
// "first start" events racing (spec.md §5).
func (s *Service) Initialize(ctx context.Context, channelID string) error {
	err := s.db.WithContext(ctx).Model(&models.Channel{}).
		Where("id = ? AND schedule_start_time IS NULL", channelID).
		Update("schedule_start_time", time.Now().UTC()).Error
	if err != nil {
		return fmt.Errorf("initializing timeline anchor for channel %s: %w", channelID, err)
	}
	return nil
}

// Reset clears the anchor. Administrative only.
func (s *Service) Reset(ctx context.Context, channelID string) error {
	err := s.db.WithContext(ctx).Model(&models.Channel{}).
		Where("id = ?", channelID).
		Update("schedule_start_time", nil).Error
	if err != nil {
		return fmt.Errorf("resetting timeline anchor for channel %s: %w", channelID, err)
	}
	return nil
}

// SetAnchor unconditionally overwrites the anchor. Administrative only.
func (s *Service) SetAnchor(ctx context.Context, channelID string, instant time.Time) error {
	err := s.db.WithContext(ctx).Model(&models.Channel{}).
		Where("id = ?", channelID).
		Update("schedule_start_time", instant.UTC()).Error
	if err != nil {
		return fmt.Errorf("setting timeline anchor for channel %s: %w", channelID, err)
	}
	return nil
}

// CurrentPosition maps elapsed-since-anchor to (fileIndex, offsetSeconds)
// over playlist, looping indefinitely (spec.md §4.C). Returns nil if no
// anchor is set.
func (s *Service) CurrentPosition(ctx context.Context, channelID string, playlist []models.MediaFile, instant time.Time) (*Position, error) {
	start := time.Now()
	defer func() { telemetry.TimelinePositionDuration.Observe(time.Since(start).Seconds()) }()

	var channel models.Channel
	err := s.db.WithContext(ctx).Select("schedule_start_time").Where("id = ?", channelID).First(&channel).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, corerr.NotFound("channel", channelID)
		}
		return nil, fmt.Errorf("loading timeline anchor for channel %s: %w", channelID, err)
	}
	if channel.ScheduleStartTime == nil {
		return nil, nil
	}

	return computePosition(*channel.ScheduleStartTime, instant, playlist), nil
}

func computePosition(anchor, instant time.Time, playlist []models.MediaFile) *Position {
	delta := instant.Sub(anchor)
	if delta < 0 {
		return &Position{FileIndex: 0, OffsetSeconds: 0, ElapsedSeconds: 0}
	}
	elapsed := int64(delta / time.Second)

	var total int64
	for _, m := range playlist {
		total += m.DurationSecs
	}
	if total == 0 || len(playlist) == 0 {
		return &Position{FileIndex: 0, OffsetSeconds: 0, ElapsedSeconds: elapsed}
	}

	normalized := elapsed % total
	var accumulated int64
	for i, m := range playlist {
		if accumulated+m.DurationSecs > normalized {
			offset := normalized - accumulated
			if offset < 0 {
				offset = 0
			}
			return &Position{FileIndex: i, OffsetSeconds: offset, ElapsedSeconds: elapsed}
		}
		accumulated += m.DurationSecs
	}

	// Unreachable when total > 0 and normalized < total, kept as a
	// defensive fallback.
	last := len(playlist) - 1
	return &Position{FileIndex: last, OffsetSeconds: 0, ElapsedSeconds: elapsed}
}
