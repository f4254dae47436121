package aggregate

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shiftledger/internal/businessday"
	shiftclosedomain "github.com/smallbiznis/shiftledger/internal/shiftclose/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Aggregator *Aggregator
	Snapshots  shiftclosedomain.Repository `optional:"true"`
}

// Service is the read side used by dashboards.
type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	agg       *Aggregator
	snapshots shiftclosedomain.Repository
}

func NewService(p Params) *Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("ledger.aggregate.service"),
		agg:       p.Aggregator,
		snapshots: p.Snapshots,
	}
}

// GetDayAggregate parses the day before any query is issued. A closed day is
// answered from its snapshot, never recomputed.
func (s *Service) GetDayAggregate(ctx context.Context, rawDay string, sellerID *snowflake.ID) (*DayAggregate, error) {
	day, err := businessday.Parse(rawDay)
	if err != nil {
		return nil, err
	}
	filter := Filter{SellerID: sellerID}
	if s.snapshots != nil {
		snap, err := s.snapshots.FindByDay(ctx, s.db, day.String())
		if err != nil {
			return nil, err
		}
		if snap != nil {
			return FromSnapshot(snap, filter)
		}
	}
	return s.agg.Aggregate(ctx, s.db, day.String(), filter)
}
