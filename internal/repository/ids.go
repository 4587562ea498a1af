package repository

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// rowID mints the primary key for rows created in Go. The prefix makes
// log lines and psql output self-describing; uniqueness comes from the
// UUID, not the prefix.
func rowID(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString())
}

// nullIfEmpty lets a COALESCE($n, ...) default fire for "" values,
// which pgx would otherwise send as an empty string rather than NULL.
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// nullIfZeroTime is the timestamp counterpart of nullIfEmpty
func nullIfZeroTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
