package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	FindByDay(ctx context.Context, db *gorm.DB, day string) (*Snapshot, error)
	Insert(ctx context.Context, db *gorm.DB, snapshot *Snapshot) (bool, error)
	ListRange(ctx context.Context, db *gorm.DB, from, to string) ([]Snapshot, error)
	ListUnclosedDays(ctx context.Context, db *gorm.DB, before string, limit int) ([]string, error)
}
