/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/


package db

import (
	"github.com/friendsincode/linecast/internal/models"
	"gorm.io/gorm"
)

// Migrate applies database schema migrations using GORM auto-migrate. This
// is the entirety of the schema lifecycle tooling the core ships — no
// hand-rolled SQL statement splitter (spec.md §9 Design Note).
func Migrate(database *gorm.DB) error {
	return database.AutoMigrate(
		&models.Channel{},
		&models.ScheduleBlock{},
		&models.MediaBucket{},
		&models.BucketMember{},
		&models.BucketProgression{},
		&models.ChannelBucket{},
		&models.MediaFile{},
	)
}
