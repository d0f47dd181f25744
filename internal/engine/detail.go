package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/steelworks/lotline/internal/model"
	"github.com/steelworks/lotline/internal/normalize"
)

// GetLotDetail assembles the full picture for one lot: the latest attached
// records, unresolved flags, and the derived status. The key is normalized
// the same way ingest normalizes it, so the raw spellings from any source
// find the lot. Returns nil when no such lot exists.
func (e *Engine) GetLotDetail(ctx context.Context, lotCode, date string) (*model.LotDetail, error) {
	code := normalize.CleanLotCode(lotCode)
	if code == "" {
		return nil, NewRowError("", "lot_code", "lot code is empty after cleaning")
	}
	canonical, ok := normalize.CanonicalDate(date)
	if !ok {
		return nil, NewRowError("", "date", fmt.Sprintf("unparseable date %q", date))
	}

	lot, err := e.store.FindLotByKey(ctx, code, canonical)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, NewStorageError("find lot", err)
	}

	return e.lotDetail(ctx, lot)
}

// SearchLots returns the detail for every lot whose code contains the
// filter substring, in key order. An empty filter matches all lots; a
// limit of zero or less means no limit.
func (e *Engine) SearchLots(ctx context.Context, filter string, limit int) ([]model.LotDetail, error) {
	lots, err := e.store.ListLots(ctx, normalize.Trim(filter), limit)
	if err != nil {
		return nil, NewStorageError("list lots", err)
	}

	details := make([]model.LotDetail, 0, len(lots))
	for _, lot := range lots {
		detail, err := e.lotDetail(ctx, lot)
		if err != nil {
			return nil, err
		}
		details = append(details, *detail)
	}
	return details, nil
}

// lotDetail loads a lot's attached records and derives its status.
func (e *Engine) lotDetail(ctx context.Context, lot model.Lot) (*model.LotDetail, error) {
	production, err := e.store.LatestProductionRecord(ctx, lot.ID)
	if err != nil {
		return nil, NewStorageError("load production record", err)
	}
	quality, err := e.store.LatestQualityRecord(ctx, lot.ID)
	if err != nil {
		return nil, NewStorageError("load quality record", err)
	}
	shipping, err := e.store.ShippingRecordForLot(ctx, lot.ID)
	if err != nil {
		return nil, NewStorageError("load shipping record", err)
	}
	flags, err := e.store.UnresolvedFlags(ctx, lot.ID)
	if err != nil {
		return nil, NewStorageError("load flags", err)
	}

	return &model.LotDetail{
		Lot:        lot,
		Production: production,
		Quality:    quality,
		Shipping:   shipping,
		Flags:      flags,
		Status:     DeriveStatus(lot, quality, shipping),
	}, nil
}
