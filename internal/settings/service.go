package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/smallbiznis/shiftledger/internal/clock"
	"github.com/smallbiznis/shiftledger/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrCorruptSnapshot = errors.New("corrupt_settings_snapshot")

// DaySettings is the stored snapshot row.
type DaySettings struct {
	BusinessDay string         `gorm:"primaryKey;type:varchar(10)"`
	Settings    datatypes.JSON `gorm:"not null"`
	CapturedAt  time.Time      `gorm:"not null"`
}

func (DaySettings) TableName() string { return "motivation_day_settings" }

// LiveSource supplies the current owner settings.
type LiveSource interface {
	Get() config.OwnerSettings
}

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
	Live  *config.OwnerSettingsHolder
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
	live  LiveSource
}

func NewService(p Params) *Service {
	return NewWithSource(p.DB, p.Log, p.Clock, p.Live)
}

// NewWithSource builds the service around any LiveSource.
func NewWithSource(db *gorm.DB, log *zap.Logger, clk clock.Clock, live LiveSource) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		db:    db,
		log:   log.Named("settings.service"),
		clock: clk,
		live:  live,
	}
}

// Live returns the current owner settings without freezing them.
func (s *Service) Live() Settings {
	return FromOwner(s.live.Get())
}

// FreezeForDay returns the snapshot stored for day, capturing the live
// settings on first use. Concurrent first calls agree on one snapshot.
func (s *Service) FreezeForDay(ctx context.Context, tx *gorm.DB, day string) (Settings, error) {
	if tx == nil {
		tx = s.db
	}
	if stored, ok, err := s.load(ctx, tx, day); err != nil || ok {
		return stored, err
	}

	live := s.Live()
	payload, err := json.Marshal(live)
	if err != nil {
		return Settings{}, err
	}
	res := tx.WithContext(ctx).Exec(
		`INSERT INTO motivation_day_settings (business_day, settings, captured_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT (business_day) DO NOTHING`,
		day,
		datatypes.JSON(payload),
		s.clock.Now(),
	)
	if res.Error != nil {
		return Settings{}, res.Error
	}
	if res.RowsAffected > 0 {
		s.log.Info("settings frozen for day",
			zap.String("business_day", day),
			zap.String("mode", live.Mode),
			zap.String("motivation_percent", live.MotivationPercent.String()),
		)
	}

	stored, ok, err := s.load(ctx, tx, day)
	if err != nil {
		return Settings{}, err
	}
	if !ok {
		return Settings{}, fmt.Errorf("settings for %s vanished after freeze", day)
	}
	return stored, nil
}

// ForDay reads the frozen snapshot for day, or the live settings when the day
// has not been frozen yet. Nothing is written.
func (s *Service) ForDay(ctx context.Context, day string) (Settings, bool, error) {
	stored, ok, err := s.load(ctx, s.db, day)
	if err != nil {
		return Settings{}, false, err
	}
	if ok {
		return stored, true, nil
	}
	return s.Live(), false, nil
}

// LatestFrozenInRange returns the snapshot of the latest frozen day in
// [from, to], falling back to the live settings.
func (s *Service) LatestFrozenInRange(ctx context.Context, tx *gorm.DB, from, to string) (Settings, bool, error) {
	if tx == nil {
		tx = s.db
	}
	var row DaySettings
	res := tx.WithContext(ctx).
		Model(&DaySettings{}).
		Where("business_day >= ? AND business_day <= ?", from, to).
		Order("business_day DESC").
		Limit(1).
		Find(&row)
	if res.Error != nil {
		return Settings{}, false, res.Error
	}
	if res.RowsAffected == 0 {
		return s.Live(), false, nil
	}
	out, err := decode(row)
	if err != nil {
		return Settings{}, false, err
	}
	return out, true, nil
}

func (s *Service) load(ctx context.Context, tx *gorm.DB, day string) (Settings, bool, error) {
	var row DaySettings
	res := tx.WithContext(ctx).
		Model(&DaySettings{}).
		Where("business_day = ?", day).
		Limit(1).
		Find(&row)
	if res.Error != nil {
		return Settings{}, false, res.Error
	}
	if res.RowsAffected == 0 {
		return Settings{}, false, nil
	}
	out, err := decode(row)
	if err != nil {
		return Settings{}, false, err
	}
	return out, true, nil
}

func decode(row DaySettings) (Settings, error) {
	var out Settings
	if err := json.Unmarshal(row.Settings, &out); err != nil {
		return Settings{}, fmt.Errorf("%w: %s: %v", ErrCorruptSnapshot, row.BusinessDay, err)
	}
	return out, nil
}
