/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package corerr defines the typed error taxonomy shared by the schedule,
// playlist, and timeline engines (spec.md §7). Callers use errors.Is /
// errors.As against the sentinels and wrapper types below rather than
// matching on message text.
package corerr

import (
	"errors"
	"fmt"
)

// Sentinel kinds. NotFound, Validation, and Conflict surface as-is;
// ConfigInvalid and InconsistentCatalog are logged and skipped rather than
// failing the whole resolution (spec.md §7).
var (
	ErrNotFound = errors.New("not found")
	ErrValidation = errors.New("validation failed")
	ErrConflict = errors.New("conflict")
)

// ConfigInvalidError wraps a schedule block that could not be parsed —
// the resolver skips the row rather than failing the whole resolution.
type ConfigInvalidError struct {
	BlockID string
	Reason  string
}

func (e *ConfigInvalidError) Error() string {
	return fmt.Sprintf("schedule block %s: config invalid: %s", e.BlockID, e.Reason)
}

// InconsistentCatalogError reports a bucket member id that could not be
// resolved against the media catalog.
type InconsistentCatalogError struct {
	BucketID    string
	MediaFileID string
	Reason      string
}

func (e *InconsistentCatalogError) Error() string {
	return fmt.Sprintf("bucket %s: media %s: %s", e.BucketID, e.MediaFileID, e.Reason)
}

// NotFound wraps ErrNotFound with the identity of the missing row.
func NotFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
}

// Validation wraps ErrValidation with a human-readable reason.
func Validation(reason string) error {
	return fmt.Errorf("%s: %w", reason, ErrValidation)
}

// Conflict wraps ErrConflict with a human-readable reason.
func Conflict(reason string) error {
	return fmt.Errorf("%s: %w", reason, ErrConflict)
}
