package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shiftledger/internal/clock"
	"github.com/smallbiznis/shiftledger/internal/staff/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("staff.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateStaffRequest) (*domain.Staff, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	role := domain.Role(strings.ToUpper(strings.TrimSpace(string(req.Role))))
	if !role.Valid() {
		return nil, domain.ErrInvalidRole
	}

	now := s.clock.Now()
	staff := &domain.Staff{
		ID:        s.genID.Generate(),
		Name:      name,
		Role:      role,
		Zone:      strings.ToLower(strings.TrimSpace(req.Zone)),
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, s.db, staff); err != nil {
		return nil, err
	}
	s.log.Info("staff created",
		zap.String("staff_id", staff.ID.String()),
		zap.String("role", string(staff.Role)),
	)
	return staff, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.Staff, error) {
	if id == 0 {
		return nil, domain.ErrInvalidStaff
	}
	staff, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if staff == nil {
		return nil, domain.ErrNotFound
	}
	return staff, nil
}

// MoveToZone changes the current zone. Sales already recorded keep their own zone.
func (s *Service) MoveToZone(ctx context.Context, id snowflake.ID, zone string) error {
	zone = strings.ToLower(strings.TrimSpace(zone))
	if zone == "" {
		return domain.ErrInvalidZone
	}
	ok, err := s.repo.UpdateZone(ctx, s.db, id, zone)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotFound
	}
	return nil
}
