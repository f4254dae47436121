package repository

import (
	"context"

	"github.com/smallbiznis/shiftledger/internal/shiftclose/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByDay(ctx context.Context, db *gorm.DB, day string) (*domain.Snapshot, error) {
	var snap domain.Snapshot
	res := db.WithContext(ctx).
		Model(&domain.Snapshot{}).
		Where("business_day = ?", day).
		Limit(1).
		Find(&snap)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &snap, nil
}

// Insert reports false when a snapshot for the day already exists.
func (r *repo) Insert(ctx context.Context, db *gorm.DB, s *domain.Snapshot) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`INSERT INTO shift_closures (
			id, business_day, closed_at, closed_by,
			collected_total, collected_cash, collected_card,
			refund_total, refund_cash, refund_card,
			net_total, net_cash, net_card,
			deposit_cash, deposit_card,
			salary_due, salary_paid_cash, salary_paid_card, salary_paid_total,
			owner_cash_available, motivation_mode, motivation_fund,
			sellers, payouts, cashbox_check, warnings
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (business_day) DO NOTHING`,
		s.ID, s.BusinessDay, s.ClosedAt, s.ClosedBy,
		s.CollectedTotal, s.CollectedCash, s.CollectedCard,
		s.RefundTotal, s.RefundCash, s.RefundCard,
		s.NetTotal, s.NetCash, s.NetCard,
		s.DepositCash, s.DepositCard,
		s.SalaryDue, s.SalaryPaidCash, s.SalaryPaidCard, s.SalaryPaidTotal,
		s.OwnerCashAvailable, s.MotivationMode, s.MotivationFund,
		s.Sellers, s.Payouts, s.CashboxCheck, s.Warnings,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) ListRange(ctx context.Context, db *gorm.DB, from, to string) ([]domain.Snapshot, error) {
	var out []domain.Snapshot
	err := db.WithContext(ctx).
		Model(&domain.Snapshot{}).
		Where("business_day >= ? AND business_day <= ?", from, to).
		Order("business_day asc").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListUnclosedDays returns days before the given day that carry posted ledger
// entries but no snapshot, oldest first.
func (r *repo) ListUnclosedDays(ctx context.Context, db *gorm.DB, before string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 50
	}
	var days []string
	err := db.WithContext(ctx).Raw(
		`SELECT DISTINCT e.business_day
		 FROM ledger_entries e
		 LEFT JOIN shift_closures s ON s.business_day = e.business_day
		 WHERE e.business_day < ? AND e.status = 'POSTED' AND s.id IS NULL
		 ORDER BY e.business_day ASC
		 LIMIT ?`,
		before,
		limit,
	).Scan(&days).Error
	if err != nil {
		return nil, err
	}
	return days, nil
}
