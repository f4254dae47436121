package aggregate

import (
	"context"
	"sort"

	"github.com/bwmarrin/snowflake"
	ledgerdomain "github.com/smallbiznis/shiftledger/internal/ledger/domain"
	"github.com/smallbiznis/shiftledger/internal/money"
	"gorm.io/gorm"
)

// RevenueBucket is one staff member's net sales for a (boat type, zone at sale)
// pair. Rows without a presale have an empty boat type and zone.
type RevenueBucket struct {
	StaffID    snowflake.ID           `json:"staff_id"`
	Kind       ledgerdomain.EntryKind `json:"kind"`
	BoatType   ledgerdomain.BoatType  `json:"boat_type"`
	ZoneAtSale string                 `json:"zone_at_sale"`
	Revenue    int64                  `json:"revenue"`
}

type revenueRow struct {
	SellerID   snowflake.ID
	Kind       ledgerdomain.EntryKind
	Type       ledgerdomain.EntryType
	Amount     int64
	BoatType   *string
	ZoneAtSale *string
}

type bucketKey struct {
	staff snowflake.ID
	boat  ledgerdomain.BoatType
	zone  string
}

// RevenueBuckets returns sales minus absolute refunds per staff member and
// bucket for day. Bucket values may be negative; callers clip totals.
func (a *Aggregator) RevenueBuckets(ctx context.Context, tx *gorm.DB, day string) ([]RevenueBucket, []ledgerdomain.Warning, error) {
	sc, warnings := a.probe(tx)
	if !sc.ledger {
		return nil, warnings, nil
	}

	sales := []ledgerdomain.EntryType{
		ledgerdomain.TypeSalePrepaymentCash,
		ledgerdomain.TypeSalePrepaymentCard,
		ledgerdomain.TypeSalePrepaymentMixed,
		ledgerdomain.TypeSaleAcceptedCash,
		ledgerdomain.TypeSaleAcceptedCard,
		ledgerdomain.TypeSaleAcceptedMixed,
		ledgerdomain.TypeSaleCancelReverse,
	}

	var rows []revenueRow
	stmt := tx.WithContext(ctx)
	if sc.presales {
		stmt = stmt.Raw(
			`SELECT e.seller_id, e.kind, e.type, e.amount, p.boat_type, p.zone_at_sale
			 FROM ledger_entries e
			 LEFT JOIN presales p ON p.id = e.presale_id
			 WHERE e.business_day = ? AND e.status = ? AND e.seller_id IS NOT NULL AND e.type IN ?
			 ORDER BY e.id ASC`,
			day, ledgerdomain.StatusPosted, sales,
		)
	} else {
		stmt = stmt.Raw(
			`SELECT e.seller_id, e.kind, e.type, e.amount, NULL AS boat_type, NULL AS zone_at_sale
			 FROM ledger_entries e
			 WHERE e.business_day = ? AND e.status = ? AND e.seller_id IS NOT NULL AND e.type IN ?
			 ORDER BY e.id ASC`,
			day, ledgerdomain.StatusPosted, sales,
		)
	}
	if err := stmt.Scan(&rows).Error; err != nil {
		return nil, nil, err
	}

	totals := map[bucketKey]int64{}
	kinds := map[snowflake.ID]ledgerdomain.EntryKind{}
	for _, row := range rows {
		key := bucketKey{staff: row.SellerID}
		if row.BoatType != nil {
			key.boat = ledgerdomain.BoatType(*row.BoatType)
		}
		if row.ZoneAtSale != nil {
			key.zone = *row.ZoneAtSale
		}
		if row.Type == ledgerdomain.TypeSaleCancelReverse {
			totals[key] -= money.Abs(row.Amount)
		} else {
			totals[key] += row.Amount
		}
		if row.Kind == ledgerdomain.KindDispatcherShift || kinds[row.SellerID] == "" {
			kinds[row.SellerID] = row.Kind
		}
	}

	out := make([]RevenueBucket, 0, len(totals))
	for key, revenue := range totals {
		out = append(out, RevenueBucket{
			StaffID:    key.staff,
			Kind:       kinds[key.staff],
			BoatType:   key.boat,
			ZoneAtSale: key.zone,
			Revenue:    revenue,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StaffID != out[j].StaffID {
			return out[i].StaffID < out[j].StaffID
		}
		if out[i].BoatType != out[j].BoatType {
			return out[i].BoatType < out[j].BoatType
		}
		return out[i].ZoneAtSale < out[j].ZoneAtSale
	})
	return out, warnings, nil
}

// StaffRevenue folds buckets into per-staff revenue clipped at zero.
func StaffRevenue(buckets []RevenueBucket) map[snowflake.ID]int64 {
	raw := map[snowflake.ID]int64{}
	for _, b := range buckets {
		raw[b.StaffID] += b.Revenue
	}
	for id, v := range raw {
		raw[id] = money.NonNegative(v)
	}
	return raw
}
