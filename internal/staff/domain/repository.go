package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, staff *Staff) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Staff, error)
	ListByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]Staff, error)
	ListActiveByRole(ctx context.Context, db *gorm.DB, role Role) ([]Staff, error)
	UpdateZone(ctx context.Context, db *gorm.DB, id snowflake.ID, zone string) (bool, error)
}

type Service interface {
	Create(ctx context.Context, req CreateStaffRequest) (*Staff, error)
	Get(ctx context.Context, id snowflake.ID) (*Staff, error)
	MoveToZone(ctx context.Context, id snowflake.ID, zone string) error
}
