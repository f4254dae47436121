package sellerstate

import (
	"context"
	"sort"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shiftledger/internal/businessday"
	"github.com/smallbiznis/shiftledger/internal/clock"
	staffdomain "github.com/smallbiznis/shiftledger/internal/staff/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Clock     clock.Clock
	StaffRepo staffdomain.Repository
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	clock     clock.Clock
	staffRepo staffdomain.Repository
}

func NewService(p Params) *Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("sellerstate.service"),
		clock:     p.Clock,
		staffRepo: p.StaffRepo,
	}
}

// ApplyResult reports which sellers advanced and which were already evaluated.
type ApplyResult struct {
	Updated []State `json:"updated"`
	Skipped int     `json:"skipped"`
}

// ApplyDay advances every active seller plus any seller with revenue on day.
// Sellers already evaluated for day or a later day are left untouched.
func (s *Service) ApplyDay(ctx context.Context, tx *gorm.DB, day businessday.Day, revenues map[snowflake.ID]int64) (ApplyResult, error) {
	if tx == nil {
		tx = s.db
	}

	active, err := s.staffRepo.ListActiveByRole(ctx, tx, staffdomain.RoleSeller)
	if err != nil {
		return ApplyResult{}, err
	}
	idSet := make(map[snowflake.ID]struct{}, len(active)+len(revenues))
	for _, st := range active {
		idSet[st.ID] = struct{}{}
	}
	for id := range revenues {
		idSet[id] = struct{}{}
	}
	ids := make([]snowflake.ID, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	existing, err := s.load(ctx, tx, ids)
	if err != nil {
		return ApplyResult{}, err
	}

	now := s.clock.Now()
	var result ApplyResult
	for _, id := range ids {
		current, ok := existing[id]
		if !ok {
			current = NewState(id)
		}
		next, changed := Advance(current, DayOutcome{Day: day, Revenue: revenues[id]})
		if !changed {
			result.Skipped++
			continue
		}
		next.UpdatedAt = now
		if err := tx.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "seller_id"}},
				UpdateAll: true,
			}).
			Create(&next).Error; err != nil {
			return ApplyResult{}, err
		}
		result.Updated = append(result.Updated, next)
	}

	s.log.Debug("seller state applied",
		zap.String("business_day", day.String()),
		zap.Int("updated", len(result.Updated)),
		zap.Int("skipped", result.Skipped),
	)
	return result, nil
}

// Streaks returns current streak days keyed by seller. Unknown sellers are 0.
func (s *Service) Streaks(ctx context.Context, tx *gorm.DB, ids []snowflake.ID) (map[snowflake.ID]int, error) {
	if tx == nil {
		tx = s.db
	}
	states, err := s.load(ctx, tx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[snowflake.ID]int, len(states))
	for id, st := range states {
		out[id] = st.StreakDays
	}
	return out, nil
}

// Get returns a seller's state, or the initial state when none is stored.
func (s *Service) Get(ctx context.Context, sellerID snowflake.ID) (State, error) {
	states, err := s.load(ctx, s.db, []snowflake.ID{sellerID})
	if err != nil {
		return State{}, err
	}
	if st, ok := states[sellerID]; ok {
		return st, nil
	}
	return NewState(sellerID), nil
}

func (s *Service) load(ctx context.Context, tx *gorm.DB, ids []snowflake.ID) (map[snowflake.ID]State, error) {
	out := make(map[snowflake.ID]State, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []State
	if err := tx.WithContext(ctx).
		Model(&State{}).
		Where("seller_id IN ?", ids).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.SellerID] = row
	}
	return out, nil
}
