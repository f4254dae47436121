package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shiftledger/internal/staff/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, staff *domain.Staff) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO staff (id, name, role, zone, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		staff.ID,
		staff.Name,
		staff.Role,
		staff.Zone,
		staff.Active,
		staff.CreatedAt,
		staff.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Staff, error) {
	var staff domain.Staff
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, role, zone, active, created_at, updated_at
		 FROM staff WHERE id = ?`,
		id,
	).Scan(&staff).Error
	if err != nil {
		return nil, err
	}
	if staff.ID == 0 {
		return nil, nil
	}
	return &staff, nil
}

func (r *repo) ListByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]domain.Staff, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []domain.Staff
	err := db.WithContext(ctx).
		Model(&domain.Staff{}).
		Where("id IN ?", ids).
		Order("id asc").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repo) ListActiveByRole(ctx context.Context, db *gorm.DB, role domain.Role) ([]domain.Staff, error) {
	var out []domain.Staff
	err := db.WithContext(ctx).
		Model(&domain.Staff{}).
		Where("role = ? AND active = ?", role, true).
		Order("id asc").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repo) UpdateZone(ctx context.Context, db *gorm.DB, id snowflake.ID, zone string) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE staff SET zone = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		zone,
		id,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
