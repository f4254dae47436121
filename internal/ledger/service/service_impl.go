package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shiftledger/internal/businessday"
	"github.com/smallbiznis/shiftledger/internal/clock"
	ledgerdomain "github.com/smallbiznis/shiftledger/internal/ledger/domain"
	"github.com/smallbiznis/shiftledger/internal/money"
	obslogger "github.com/smallbiznis/shiftledger/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/shiftledger/internal/observability/metrics"
	shiftclosedomain "github.com/smallbiznis/shiftledger/internal/shiftclose/domain"
	"github.com/smallbiznis/shiftledger/internal/shiftclose/guard"
	"github.com/smallbiznis/shiftledger/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	ObsMetrics   *obsmetrics.Metrics          `optional:"true"`
	SchedMetrics *obsmetrics.SchedulerMetrics `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	obsMetrics   *obsmetrics.Metrics
	schedMetrics *obsmetrics.SchedulerMetrics
}

func NewService(p Params) ledgerdomain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("ledger.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		obsMetrics:   p.ObsMetrics,
		schedMetrics: p.SchedMetrics,
	}
}

func (s *Service) PostEntry(ctx context.Context, req ledgerdomain.PostEntryRequest) (*ledgerdomain.LedgerEntry, error) {
	day, err := businessday.Parse(req.BusinessDay)
	if err != nil {
		return nil, err
	}
	entry, err := s.normalizeEntry(day, req)
	if err != nil {
		return nil, err
	}
	ctx = obslogger.WithDay(ctx, day.String())

	var existing *ledgerdomain.LedgerEntry
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := guard.Enter(ctx, tx, entry.BusinessDay, entry.CreatedAt); err != nil {
			return err
		}
		if entry.PresaleID != nil {
			if err := s.checkPresaleDay(ctx, tx, *entry.PresaleID, entry.BusinessDay); err != nil {
				return err
			}
		}

		result := tx.WithContext(ctx).Exec(
			`INSERT INTO ledger_entries (
				id, business_day, kind, type, amount, method, cash_amount, card_amount,
				seller_id, presale_id, slot_id, status, idempotency_key, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (idempotency_key) DO NOTHING`,
			entry.ID,
			entry.BusinessDay,
			entry.Kind,
			entry.Type,
			entry.Amount,
			entry.Method,
			entry.CashAmount,
			entry.CardAmount,
			entry.SellerID,
			entry.PresaleID,
			entry.SlotID,
			entry.Status,
			entry.IdempotencyKey,
			entry.CreatedAt,
		)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 && entry.IdempotencyKey != nil {
			found, err := s.findByIdempotencyKey(ctx, tx, *entry.IdempotencyKey)
			if err != nil {
				return err
			}
			existing = found
			return nil
		}

		if entry.Type == ledgerdomain.TypeSaleCancelReverse && entry.PresaleID != nil {
			return tx.WithContext(ctx).Exec(
				`UPDATE presales SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
				ledgerdomain.PresaleCancelled,
				entry.CreatedAt,
				*entry.PresaleID,
				ledgerdomain.PresaleActive,
			).Error
		}
		return nil
	})
	if err != nil {
		s.recordRejection(err, "post_entry")
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	s.obsMetrics.RecordLedgerEntry(ctx, string(entry.Type), string(entry.Method), entry.Amount)
	s.log.Debug("ledger entry posted",
		zap.String("entry_id", entry.ID.String()),
		zap.String("business_day", entry.BusinessDay),
		zap.String("type", string(entry.Type)),
		zap.Int64("amount", entry.Amount),
	)
	return entry, nil
}

func (s *Service) RecordPresale(ctx context.Context, req ledgerdomain.RecordPresaleRequest) (*ledgerdomain.Presale, error) {
	day, err := businessday.Parse(req.BusinessDay)
	if err != nil {
		return nil, err
	}
	presale, err := s.normalizePresale(day, req)
	if err != nil {
		return nil, err
	}
	ctx = obslogger.WithDay(ctx, day.String())

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := guard.Enter(ctx, tx, presale.BusinessDay, presale.CreatedAt); err != nil {
			return err
		}
		return tx.WithContext(ctx).Exec(
			`INSERT INTO presales (
				id, business_day, seller_id, slot_id, boat_type, zone_at_sale, total_price,
				payment_method, payment_cash_amount, payment_card_amount, status, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			presale.ID,
			presale.BusinessDay,
			presale.SellerID,
			presale.SlotID,
			presale.BoatType,
			presale.ZoneAtSale,
			presale.TotalPrice,
			presale.PaymentMethod,
			presale.PaymentCashAmount,
			presale.PaymentCardAmount,
			presale.Status,
			presale.CreatedAt,
			presale.UpdatedAt,
		).Error
	})
	if err != nil {
		s.recordRejection(err, "record_presale")
		return nil, err
	}

	s.obsMetrics.RecordPresale(ctx, string(presale.PaymentMethod))
	return presale, nil
}

type slotPresale struct {
	ID            snowflake.ID
	SellerID      *snowflake.ID
	TotalPrice    int64
	PaymentMethod ledgerdomain.Method
	Prepaid       int64
}

// RecordSlotCompletion makes the money of a completed trip visible: every
// still-active presale of the slot gets its unpaid remainder posted as an
// accepted sale. A slot is completed at most once.
func (s *Service) RecordSlotCompletion(ctx context.Context, slotID, businessDay string) (*ledgerdomain.SlotCompletionResult, error) {
	slotID = strings.TrimSpace(slotID)
	if slotID == "" {
		return nil, ledgerdomain.ErrInvalidSlot
	}
	day, err := businessday.Parse(businessDay)
	if err != nil {
		return nil, err
	}

	ctx = obslogger.WithDay(ctx, day.String())

	result := &ledgerdomain.SlotCompletionResult{SlotID: slotID, BusinessDay: day.String()}
	now := s.clock.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := guard.Enter(ctx, tx, result.BusinessDay, now); err != nil {
			return err
		}

		marker := tx.WithContext(ctx).Exec(
			`INSERT INTO slot_completions (slot_id, business_day, entries_posted, completed_at)
			 VALUES (?, ?, 0, ?)
			 ON CONFLICT (slot_id) DO NOTHING`,
			slotID,
			result.BusinessDay,
			now,
		)
		if marker.Error != nil {
			return marker.Error
		}
		if marker.RowsAffected == 0 {
			result.AlreadyDone = true
			return nil
		}

		var presales []slotPresale
		if err := tx.WithContext(ctx).Raw(
			`SELECT p.id, p.seller_id, p.total_price, p.payment_method,
			        COALESCE((
			            SELECT SUM(e.amount) FROM ledger_entries e
			            WHERE e.presale_id = p.id AND e.status = ?
			              AND e.type IN (?, ?, ?)
			        ), 0) AS prepaid
			 FROM presales p
			 WHERE p.slot_id = ? AND p.business_day = ? AND p.status = ?
			 ORDER BY p.id ASC`,
			ledgerdomain.StatusPosted,
			ledgerdomain.TypeSalePrepaymentCash,
			ledgerdomain.TypeSalePrepaymentCard,
			ledgerdomain.TypeSalePrepaymentMixed,
			slotID,
			result.BusinessDay,
			ledgerdomain.PresaleActive,
		).Scan(&presales).Error; err != nil {
			return err
		}

		for _, p := range presales {
			remainder := p.TotalPrice - p.Prepaid
			if remainder > 0 {
				presaleID := p.ID
				slot := slotID
				method := p.PaymentMethod
				if !method.Valid() {
					method = ledgerdomain.MethodCash
				}
				if err := tx.WithContext(ctx).Exec(
					`INSERT INTO ledger_entries (
						id, business_day, kind, type, amount, method, seller_id, presale_id,
						slot_id, status, created_at
					) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
					s.genID.Generate(),
					result.BusinessDay,
					ledgerdomain.KindSellerShift,
					ledgerdomain.AcceptedTypeFor(method),
					remainder,
					method,
					p.SellerID,
					&presaleID,
					&slot,
					ledgerdomain.StatusPosted,
					now,
				).Error; err != nil {
					return err
				}
				result.EntriesPosted++
			}
			if err := tx.WithContext(ctx).Exec(
				`UPDATE presales SET status = ?, updated_at = ? WHERE id = ?`,
				ledgerdomain.PresaleCompleted,
				now,
				p.ID,
			).Error; err != nil {
				return err
			}
		}

		return tx.WithContext(ctx).Exec(
			`UPDATE slot_completions SET entries_posted = ? WHERE slot_id = ?`,
			result.EntriesPosted,
			slotID,
		).Error
	})
	if err != nil {
		s.recordRejection(err, "slot_completion")
		return nil, err
	}

	s.obsMetrics.RecordSlotCompletion(ctx, result.AlreadyDone)
	if !result.AlreadyDone {
		s.log.Info("slot completed",
			zap.String("slot_id", slotID),
			zap.String("business_day", result.BusinessDay),
			zap.Int("entries_posted", result.EntriesPosted),
		)
	}
	return result, nil
}

func (s *Service) normalizeEntry(day businessday.Day, req ledgerdomain.PostEntryRequest) (*ledgerdomain.LedgerEntry, error) {
	kind := ledgerdomain.EntryKind(strings.ToUpper(strings.TrimSpace(string(req.Kind))))
	if kind == "" {
		kind = ledgerdomain.KindSellerShift
	}
	if !kind.Valid() {
		return nil, ledgerdomain.ErrInvalidKind
	}
	entryType := ledgerdomain.EntryType(strings.ToUpper(strings.TrimSpace(string(req.Type))))
	category, ok := entryType.Category()
	if !ok {
		return nil, ledgerdomain.ErrInvalidType
	}

	method := ledgerdomain.Method(strings.ToUpper(strings.TrimSpace(string(req.Method))))
	if implied := entryType.ImpliedMethod(); implied != "" {
		if method == "" {
			method = implied
		}
		if method != implied {
			return nil, ledgerdomain.ErrMethodMismatch
		}
	}
	if !method.Valid() {
		return nil, ledgerdomain.ErrInvalidMethod
	}
	if req.Amount == 0 {
		return nil, ledgerdomain.ErrInvalidAmount
	}

	amount := req.Amount
	switch category {
	case ledgerdomain.CategoryRefund:
		// Refunds keep a negative sign for single-method rows and the absolute
		// value for MIXED rows, whose split columns are always positive.
		if method == ledgerdomain.MethodMixed {
			amount = money.Abs(amount)
		} else {
			amount = -money.Abs(amount)
		}
	default:
		if amount < 0 {
			return nil, ledgerdomain.ErrInvalidAmount
		}
	}

	if category == ledgerdomain.CategorySale || category == ledgerdomain.CategoryRefund {
		if req.SellerID == nil || *req.SellerID == 0 {
			return nil, ledgerdomain.ErrInvalidSeller
		}
	}

	var cashAmount, cardAmount *int64
	if method == ledgerdomain.MethodMixed {
		if (req.CashAmount == nil) != (req.CardAmount == nil) {
			return nil, ledgerdomain.ErrInvalidSplit
		}
		if req.CashAmount != nil {
			cash, card := *req.CashAmount, *req.CardAmount
			if cash < 0 || card < 0 || cash+card != money.Abs(amount) {
				return nil, ledgerdomain.ErrInvalidSplit
			}
			cashAmount, cardAmount = &cash, &card
		}
	} else if req.CashAmount != nil || req.CardAmount != nil {
		return nil, ledgerdomain.ErrInvalidSplit
	}

	var key *string
	if req.IdempotencyKey != nil {
		trimmed := strings.TrimSpace(*req.IdempotencyKey)
		if trimmed != "" {
			key = &trimmed
		}
	}

	return &ledgerdomain.LedgerEntry{
		ID:             s.genID.Generate(),
		BusinessDay:    day.String(),
		Kind:           kind,
		Type:           entryType,
		Amount:         amount,
		Method:         method,
		CashAmount:     cashAmount,
		CardAmount:     cardAmount,
		SellerID:       req.SellerID,
		PresaleID:      req.PresaleID,
		SlotID:         req.SlotID,
		Status:         ledgerdomain.StatusPosted,
		IdempotencyKey: key,
		CreatedAt:      s.clock.Now(),
	}, nil
}

func (s *Service) normalizePresale(day businessday.Day, req ledgerdomain.RecordPresaleRequest) (*ledgerdomain.Presale, error) {
	if req.TotalPrice <= 0 {
		return nil, ledgerdomain.ErrInvalidAmount
	}
	boatType := ledgerdomain.BoatType(strings.ToLower(strings.TrimSpace(string(req.BoatType))))
	switch boatType {
	case ledgerdomain.BoatSpeed, ledgerdomain.BoatCruise, ledgerdomain.BoatBanana:
	default:
		return nil, ledgerdomain.ErrInvalidBoatType
	}
	method := ledgerdomain.Method(strings.ToUpper(strings.TrimSpace(string(req.PaymentMethod))))
	if !method.Valid() {
		return nil, ledgerdomain.ErrInvalidMethod
	}
	if req.PaymentCashAmount < 0 || req.PaymentCardAmount < 0 {
		return nil, ledgerdomain.ErrInvalidSplit
	}
	if method == ledgerdomain.MethodMixed && req.PaymentCashAmount+req.PaymentCardAmount == 0 {
		return nil, ledgerdomain.ErrInvalidSplit
	}
	if req.SellerID != nil && *req.SellerID == 0 {
		return nil, ledgerdomain.ErrInvalidSeller
	}

	now := s.clock.Now()
	return &ledgerdomain.Presale{
		ID:                s.genID.Generate(),
		BusinessDay:       day.String(),
		SellerID:          req.SellerID,
		SlotID:            strings.TrimSpace(req.SlotID),
		BoatType:          boatType,
		ZoneAtSale:        strings.ToLower(strings.TrimSpace(req.ZoneAtSale)),
		TotalPrice:        req.TotalPrice,
		PaymentMethod:     method,
		PaymentCashAmount: req.PaymentCashAmount,
		PaymentCardAmount: req.PaymentCardAmount,
		Status:            ledgerdomain.PresaleActive,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

func (s *Service) checkPresaleDay(ctx context.Context, tx *gorm.DB, presaleID snowflake.ID, day string) error {
	var presaleDay string
	if err := tx.WithContext(ctx).Raw(
		`SELECT business_day FROM presales WHERE id = ?`,
		presaleID,
	).Scan(&presaleDay).Error; err != nil {
		return err
	}
	if presaleDay == "" {
		return ledgerdomain.ErrPresaleNotFound
	}
	if presaleDay != day {
		return ledgerdomain.ErrPresaleDayMismatch
	}
	return nil
}

func (s *Service) findByIdempotencyKey(ctx context.Context, tx *gorm.DB, key string) (*ledgerdomain.LedgerEntry, error) {
	var entry ledgerdomain.LedgerEntry
	err := tx.WithContext(ctx).
		Model(&ledgerdomain.LedgerEntry{}).
		Where("idempotency_key = ?", key).
		Take(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *Service) recordRejection(err error, operation string) {
	if err == nil {
		return
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || db.IsDuplicateKeyErr(err) {
		s.log.Warn("duplicate ledger write", zap.String("operation", operation), zap.Error(err))
		return
	}
	if closed, ok := shiftclosedomain.AsShiftClosed(err); ok {
		s.schedMetrics.IncShiftClosedRejection(operation)
		s.log.Warn("mutation rejected on closed day",
			zap.String("operation", operation),
			zap.String("business_day", closed.BusinessDay),
		)
	}
}

