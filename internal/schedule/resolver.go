/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package schedule implements ScheduleResolver: picking the active schedule
// block for a (channel, instant) pair and computing the next transition.
// Generalized from the weekly-window planner in
// friendsincode-grimnir_radio's internal/clock/compiler.go.
package schedule

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/linecast/internal/corerr"
	"github.com/friendsincode/linecast/internal/models"
	"github.com/friendsincode/linecast/internal/telemetry"
)

// Resolver answers activeBlock/nextTransition queries against the
// schedule_blocks table. It holds no per-call state; every method is a
// pure read against the store plus in-process sorting and filtering.
type Resolver struct {
	db     *gorm.DB
	logger zerolog.Logger
	loc    *time.Location
}

// New builds a Resolver. loc is the single global timezone that weekday and
// time-of-day calculations are interpreted against (spec.md §6).
func New(db *gorm.DB, logger zerolog.Logger, loc *time.Location) *Resolver {
	if loc == nil {
		loc = time.UTC
	}
	return &Resolver{db: db, logger: logger.With().Str("component", "schedule_resolver").Logger(), loc: loc}
}

// ActiveBlock returns the schedule block active for channelID at instant, or
// nil if none is. A malformed block (unparsable start/end time) is logged
// and skipped rather than failing the whole resolution.
func (r *Resolver) ActiveBlock(ctx context.Context, channelID string, instant time.Time) (*models.ScheduleBlock, error) {
	local := instant.In(r.loc)
	dow := int(local.Weekday())
	minute := local.Hour()*60 + local.Minute() + local.Second()/60

	candidates, err := r.loadEnabledBlocks(ctx, channelID)
	if err != nil {
		return nil, err
	}

	yesterday := (dow + 6) % 7

	filtered := make([]models.ScheduleBlock, 0, len(candidates))
	for _, b := range candidates {
		if b.DaysOfWeek.Contains(dow) {
			filtered = append(filtered, b)
			continue
		}
		// Adjacent-day candidate: a wraparound block anchored on the
		// previous day's weekday can still be active during today's
		// early minutes. Non-wraparound blocks never cross a day
		// boundary, so they are never borrowed from yesterday.
		startMin, endMin, perr := blockMinutes(b)
		if perr == nil && endMin <= startMin && b.DaysOfWeek.Contains(yesterday) && minute < endMin {
			filtered = append(filtered, b)
		}
	}

	sortCandidates(filtered)

	for _, b := range filtered {
		startMin, endMin, perr := blockMinutes(b)
		if perr != nil {
			r.logger.Warn().Str("block_id", b.ID).Err(perr).Msg("schedule block has invalid time bounds, skipping")
			telemetry.ScheduleResolutionsTotal.WithLabelValues("config_invalid").Inc()
			continue
		}
		if blockActiveAt(startMin, endMin, minute) {
			block := b
			telemetry.ScheduleResolutionsTotal.WithLabelValues("active").Inc()
			return &block, nil
		}
	}
	telemetry.ScheduleResolutionsTotal.WithLabelValues("none").Inc()
	return nil, nil
}

// NextTransition returns the earliest instant strictly after instant at
// which some enabled block's start time will take effect, searching up to
// horizon into the future. Returns nil if none is found within the horizon.
func (r *Resolver) NextTransition(ctx context.Context, channelID string, instant time.Time, horizon time.Duration) (*time.Time, error) {
	blocks, err := r.loadEnabledBlocks(ctx, channelID)
	if err != nil {
		return nil, err
	}

	local := instant.In(r.loc)
	maxDays := int(horizon/(24*time.Hour)) + 1
	if maxDays < 1 {
		maxDays = 1
	}

	var best *time.Time
	for dayOffset := 0; dayOffset <= maxDays; dayOffset++ {
		dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, r.loc).AddDate(0, 0, dayOffset)
		candidateDow := int(dayStart.Weekday())

		for _, b := range blocks {
			if b.BucketID == nil {
				continue
			}
			if !b.DaysOfWeek.Contains(candidateDow) {
				continue
			}
			startMin, _, perr := blockMinutes(b)
			if perr != nil {
				continue
			}
			candidate := dayStart.Add(time.Duration(startMin) * time.Minute)
			if !candidate.After(local) {
				continue
			}
			if candidate.Sub(local) > horizon {
				continue
			}
			if best == nil || candidate.Before(*best) {
				c := candidate
				best = &c
			}
		}
		if best != nil {
			break
		}
	}
	return best, nil
}

func (r *Resolver) loadEnabledBlocks(ctx context.Context, channelID string) ([]models.ScheduleBlock, error) {
	var blocks []models.ScheduleBlock
	err := r.db.WithContext(ctx).
		Where("channel_id = ? AND enabled = ?", channelID, true).
		Find(&blocks).Error
	if err != nil {
		return nil, fmt.Errorf("loading schedule blocks for channel %s: %w", channelID, err)
	}
	return blocks, nil
}

func sortCandidates(blocks []models.ScheduleBlock) {
	sort.SliceStable(blocks, func(i, j int) bool {
		if blocks[i].Priority != blocks[j].Priority {
			return blocks[i].Priority > blocks[j].Priority
		}
		if !blocks[i].CreatedAt.Equal(blocks[j].CreatedAt) {
			return blocks[i].CreatedAt.Before(blocks[j].CreatedAt)
		}
		return blocks[i].ID < blocks[j].ID
	})
}

// blockMinutes parses a block's start/end time-of-day strings into minutes
// since midnight. A parse failure is a ConfigInvalid condition.
func blockMinutes(b models.ScheduleBlock) (startMin, endMin int, err error) {
	startMin, err = parseTimeOfDay(b.StartTime)
	if err != nil {
		return 0, 0, &corerr.ConfigInvalidError{BlockID: b.ID, Reason: fmt.Sprintf("start_time %q: %v", b.StartTime, err)}
	}
	endMin, err = parseTimeOfDay(b.EndTime)
	if err != nil {
		return 0, 0, &corerr.ConfigInvalidError{BlockID: b.ID, Reason: fmt.Sprintf("end_time %q: %v", b.EndTime, err)}
	}
	return startMin, endMin, nil
}

func parseTimeOfDay(s string) (int, error) {
	t, err := time.Parse("15:04:05", s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute() + t.Second()/60, nil
}

// blockActiveAt reports whether minute falls within [startMin, endMin),
// handling midnight wraparound when endMin <= startMin (spec.md §4.A).
func blockActiveAt(startMin, endMin, minute int) bool {
	if endMin > startMin {
		return minute >= startMin && minute < endMin
	}
	return minute >= startMin || minute < endMin
}
