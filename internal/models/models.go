/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// PlaybackMode is the rule that maps a bucket's members to a playback order.
type PlaybackMode string

const (
	PlaybackSequential PlaybackMode = "sequential"
	PlaybackShuffle    PlaybackMode = "shuffle"
	PlaybackRandom     PlaybackMode = "random"
)

// Valid reports whether m is one of the three recognized playback modes.
func (m PlaybackMode) Valid() bool {
	switch m {
	case PlaybackSequential, PlaybackShuffle, PlaybackRandom:
		return true
	default:
		return false
	}
}

// DaySet is an array-valued column of weekdays (0=Sunday .. 6=Saturday). A
// nil/empty set means "all days" per spec.md §3.
type DaySet []int

// Contains reports whether the set is empty (all days) or contains dow.
func (d DaySet) Contains(dow int) bool {
	if len(d) == 0 {
		return true
	}
	for _, v := range d {
		if v == dow {
			return true
		}
	}
	return false
}

// AllDays reports whether this set represents "all days of the week".
func (d DaySet) AllDays() bool {
	return len(d) == 0
}

// Value implements driver.Valuer, storing the set as a JSON array so it
// works identically across the postgres/mysql/sqlite backends the core
// supports (spec.md §6 only requires "array-valued columns", not a
// specific native array type).
func (d DaySet) Value() (driver.Value, error) {
	if d == nil {
		return nil, nil
	}
	return json.Marshal(d)
}

// Scan implements sql.Scanner for DaySet.
func (d *DaySet) Scan(value interface{}) error {
	if value == nil {
		*d = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		if s, ok := value.(string); ok {
			bytes = []byte(s)
		} else {
			return fmt.Errorf("failed to scan DaySet: %v", value)
		}
	}
	if len(bytes) == 0 {
		*d = nil
		return nil
	}
	return json.Unmarshal(bytes, d)
}

// Channel is a logical linear broadcast feed. The core only reads/writes
// ScheduleStartTime; every other administrative field (name, mounts, etc.)
// belongs to collaborators outside this package (spec.md §1, §6).
type Channel struct {
	ID                string `gorm:"type:uuid;primaryKey"`
	Name              string `gorm:"uniqueIndex"`
	ScheduleStartTime *time.Time `gorm:"column:schedule_start_time"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// TableName returns the table name for GORM.
func (Channel) TableName() string {
	return "channels"
}

// ScheduleBlock is a weekly recurring time window during which a specific
// bucket and playback mode apply to a channel (spec.md §3).
type ScheduleBlock struct {
	ID           string       `gorm:"type:uuid;primaryKey"`
	ChannelID    string       `gorm:"type:uuid;index:idx_schedule_blocks_channel;not null"`
	Name         string       `gorm:"type:varchar(255);not null"`
	DaysOfWeek   DaySet       `gorm:"column:day_of_week;type:jsonb"`
	StartTime    string       `gorm:"column:start_time;type:varchar(8);not null"` // "HH:MM:SS"
	EndTime      string       `gorm:"column:end_time;type:varchar(8);not null"`
	BucketID     *string      `gorm:"type:uuid;index:idx_schedule_blocks_bucket"`
	PlaybackMode PlaybackMode `gorm:"type:varchar(16);not null"`
	Priority     int          `gorm:"not null;default:0"`
	Enabled      bool         `gorm:"not null;default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName returns the table name for GORM.
func (ScheduleBlock) TableName() string {
	return "schedule_blocks"
}

// MediaBucket is a named, ordered collection of media files.
type MediaBucket struct {
	ID        string         `gorm:"type:uuid;primaryKey"`
	Name      string         `gorm:"uniqueIndex"`
	Members   []BucketMember `gorm:"foreignKey:BucketID"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the table name for GORM.
func (MediaBucket) TableName() string {
	return "media_buckets"
}

// BucketMember positions a media file within a bucket.
type BucketMember struct {
	BucketID    string `gorm:"type:uuid;primaryKey;column:bucket_id"`
	MediaFileID string `gorm:"type:uuid;column:media_file_id;index"`
	Position    int    `gorm:"primaryKey;column:position"`
}

// TableName returns the table name for GORM.
func (BucketMember) TableName() string {
	return "bucket_media"
}

// BucketProgression is the per-(channel, bucket) resume point for
// sequential playback.
type BucketProgression struct {
	ChannelID         string  `gorm:"type:uuid;primaryKey;column:channel_id"`
	BucketID          string  `gorm:"type:uuid;primaryKey;column:bucket_id"`
	CurrentPosition   int     `gorm:"column:current_position;not null;default:0"`
	LastPlayedMediaID *string `gorm:"type:uuid;column:last_played_media_id"`
	UpdatedAt         time.Time
}

// TableName returns the table name for GORM.
func (BucketProgression) TableName() string {
	return "bucket_progression"
}

// ChannelBucket attaches a bucket directly to a channel — the legacy
// fallback path in the playlist resolution cascade (spec.md §4.B tier 4).
type ChannelBucket struct {
	ChannelID string `gorm:"type:uuid;primaryKey;column:channel_id"`
	BucketID  string `gorm:"type:uuid;primaryKey;column:bucket_id"`
	Priority  int    `gorm:"column:priority;not null;default:0"`
}

// TableName returns the table name for GORM.
func (ChannelBucket) TableName() string {
	return "channel_buckets"
}

// MediaFile is supplied by an external scanner (spec.md §6). The core
// only ever reads these columns.
type MediaFile struct {
	ID           string  `gorm:"type:uuid;primaryKey"`
	Path         string  `gorm:"uniqueIndex"`
	DurationSecs int64   `gorm:"column:duration;not null;default:0"`
	ShowName     *string `gorm:"column:show_name"`
	Season       *int    `gorm:"column:season"`
	Episode      *int    `gorm:"column:episode"`
	Exists       bool    `gorm:"column:file_exists;not null;default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName returns the table name for GORM.
func (MediaFile) TableName() string {
	return "media_files"
}

// Duration returns the file's runtime as a time.Duration.
func (m MediaFile) Duration() time.Duration {
	return time.Duration(m.DurationSecs) * time.Second
}
