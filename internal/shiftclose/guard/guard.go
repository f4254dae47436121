// Package guard is the single mutation gate for business days. Every writer
// calls Enter inside its transaction before touching ledger or presale rows.
package guard

import (
	"context"
	"time"

	"github.com/smallbiznis/shiftledger/internal/shiftclose/domain"
	"gorm.io/gorm"
)

// TouchDay upserts the business_days row. On Postgres the update holds the row
// lock until commit, so writers and the close transaction of the same day run
// one after another.
func TouchDay(ctx context.Context, tx *gorm.DB, day string, now time.Time) error {
	return tx.WithContext(ctx).Exec(
		`INSERT INTO business_days (business_day, first_activity_at, last_activity_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT (business_day) DO UPDATE SET last_activity_at = EXCLUDED.last_activity_at`,
		day,
		now,
		now,
	).Error
}

// AssertShiftOpen fails with *domain.ShiftClosedError when a snapshot exists.
func AssertShiftOpen(ctx context.Context, tx *gorm.DB, day string) error {
	var count int64
	if err := tx.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM shift_closures WHERE business_day = ?`,
		day,
	).Scan(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return &domain.ShiftClosedError{BusinessDay: day}
	}
	return nil
}

// Enter touches the day and asserts it is still open.
func Enter(ctx context.Context, tx *gorm.DB, day string, now time.Time) error {
	if err := TouchDay(ctx, tx, day, now); err != nil {
		return err
	}
	return AssertShiftOpen(ctx, tx, day)
}
