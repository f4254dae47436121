package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	MotivationModePersonal = "personal"
	MotivationModeTeam     = "team"
	MotivationModeAdaptive = "adaptive"
)

// OwnerSettings is the live, owner-editable motivation configuration.
// It is read once per business day and frozen by the settings service.
type OwnerSettings struct {
	MotivationPercent float64 `mapstructure:"motivationPercent"`
	WeeklyPercent     float64 `mapstructure:"weeklyPercent"`
	SeasonPercent     float64 `mapstructure:"seasonPercent"`
	Mode              string  `mapstructure:"mode"`

	TeamShare              float64 `mapstructure:"teamShare"`
	IndividualShare        float64 `mapstructure:"individualShare"`
	KDispatchers           float64 `mapstructure:"kDispatchers"`
	TeamIncludeDispatchers bool    `mapstructure:"teamIncludeDispatchers"`
	DispatcherBonusRate    float64 `mapstructure:"dispatcherBonusRate"`

	ProductCoefficients    map[string]float64 `mapstructure:"productCoefficients"`
	ZoneCoefficients       map[string]float64 `mapstructure:"zoneCoefficients"`
	BananaZoneCoefficients map[string]float64 `mapstructure:"bananaZoneCoefficients"`

	Season SeasonRules `mapstructure:"season"`
}

type SeasonRules struct {
	StartMonthDay     string `mapstructure:"startMonthDay"`
	EndMonthDay       string `mapstructure:"endMonthDay"`
	EndWindowDays     int    `mapstructure:"endWindowDays"`
	MinWorkedDays     int    `mapstructure:"minWorkedDays"`
	MinFinalMonthDays int    `mapstructure:"minFinalMonthDays"`
	MinEndWindowDays  int    `mapstructure:"minEndWindowDays"`
}

func DefaultOwnerSettings() OwnerSettings {
	return OwnerSettings{
		MotivationPercent:      0.15,
		WeeklyPercent:          0.01,
		SeasonPercent:          0.02,
		Mode:                   MotivationModeAdaptive,
		TeamShare:              0.3,
		IndividualShare:        0.7,
		KDispatchers:           1.0,
		TeamIncludeDispatchers: true,
		DispatcherBonusRate:    0.001,
		ProductCoefficients: map[string]float64{
			"speed":  1.2,
			"cruise": 1.0,
		},
		ZoneCoefficients: map[string]float64{
			"hedgehog":   1.3,
			"center":     1.0,
			"sanatorium": 0.8,
			"stationary": 0.7,
		},
		BananaZoneCoefficients: map[string]float64{
			"hedgehog":   2.7,
			"center":     2.2,
			"sanatorium": 1.2,
			"stationary": 1.0,
		},
		Season: SeasonRules{
			StartMonthDay:     "05-01",
			EndMonthDay:       "09-30",
			EndWindowDays:     7,
			MinWorkedDays:     75,
			MinFinalMonthDays: 20,
			MinEndWindowDays:  1,
		},
	}
}

// OwnerSettingsHolder keeps the latest valid owner settings and reloads
// them when owner_settings.yml changes on disk.
type OwnerSettingsHolder struct {
	current atomic.Value // holds OwnerSettings
}

// NewStaticOwnerSettingsHolder returns a holder that never reloads.
func NewStaticOwnerSettingsHolder(s OwnerSettings) *OwnerSettingsHolder {
	holder := &OwnerSettingsHolder{}
	holder.current.Store(s)
	return holder
}

func NewOwnerSettingsHolder(cfg Config, log *zap.Logger) (*OwnerSettingsHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("config.owner_settings")

	v := viper.New()
	if cfg.OwnerSettingsPath != "" {
		v.SetConfigFile(cfg.OwnerSettingsPath)
	} else {
		v.SetConfigName("owner_settings")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/shiftledger")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("SHIFTLEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read owner settings: %w", err)
		}
		fileLoaded = false
	}

	settings, err := decodeOwnerSettings(v)
	if err != nil {
		return nil, err
	}

	holder := NewStaticOwnerSettingsHolder(settings)
	if !fileLoaded {
		log.Info("owner settings file not found, using defaults")
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodeOwnerSettings(v)
		if err != nil {
			log.Warn("owner settings reload ignored", zap.String("file", e.Name), zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("owner settings reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *OwnerSettingsHolder) Get() OwnerSettings {
	return h.current.Load().(OwnerSettings)
}

func decodeOwnerSettings(v *viper.Viper) (OwnerSettings, error) {
	settings := DefaultOwnerSettings()
	if err := v.UnmarshalKey("motivation", &settings); err != nil {
		return OwnerSettings{}, err
	}
	if err := ValidateOwnerSettings(settings); err != nil {
		return OwnerSettings{}, err
	}
	return settings, nil
}

func ValidateOwnerSettings(s OwnerSettings) error {
	if s.MotivationPercent < 0 || s.MotivationPercent > 1 {
		return errors.New("motivation.motivationPercent must be within [0,1]")
	}
	if s.WeeklyPercent < 0 || s.WeeklyPercent > 1 {
		return errors.New("motivation.weeklyPercent must be within [0,1]")
	}
	if s.SeasonPercent < 0 || s.SeasonPercent > 1 {
		return errors.New("motivation.seasonPercent must be within [0,1]")
	}
	switch strings.ToLower(strings.TrimSpace(s.Mode)) {
	case MotivationModePersonal, MotivationModeTeam, MotivationModeAdaptive:
	default:
		return fmt.Errorf("motivation.mode %q is not one of personal, team, adaptive", s.Mode)
	}
	if s.TeamShare < 0 || s.IndividualShare < 0 {
		return errors.New("motivation shares cannot be negative")
	}
	if s.KDispatchers < 0 {
		return errors.New("motivation.kDispatchers cannot be negative")
	}
	if s.DispatcherBonusRate < 0 {
		return errors.New("motivation.dispatcherBonusRate cannot be negative")
	}
	return nil
}
