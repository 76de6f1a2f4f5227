/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package catalog is the core's read-only view of the media-file catalog
// populated by an external scanner (spec.md §6). It never writes
// media_files; that access belongs to the scanner collaborator.
package catalog

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/friendsincode/linecast/internal/models"
)

// Store looks up media files by id, grounded on the simple id-set queries
// friendsincode-grimnir_radio's internal/priority/resolver.go runs against
// its own lookup tables.
type Store struct {
	db *gorm.DB
}

// New builds a Store.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// ByIDs returns the media files matching ids, keyed by id. Ids absent from
// the catalog or with file_exists=false are omitted from the result — the
// caller (PlaylistResolver) treats their absence as InconsistentCatalog.
func (s *Store) ByIDs(ctx context.Context, ids []string) (map[string]models.MediaFile, error) {
	if len(ids) == 0 {
		return map[string]models.MediaFile{}, nil
	}

	var files []models.MediaFile
	err := s.db.WithContext(ctx).
		Where("id IN ? AND file_exists = ?", ids, true).
		Find(&files).Error
	if err != nil {
		return nil, fmt.Errorf("loading media files: %w", err)
	}

	result := make(map[string]models.MediaFile, len(files))
	for _, f := range files {
		result[f.ID] = f
	}
	return result, nil
}
