package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/steelworks/lotline/internal/model"
	"github.com/steelworks/lotline/internal/normalize"
)

// ResolveLot returns the lot identified by the composite (lotCode, date)
// key, creating it when absent. New lots start with pendingInspection set
// and no integrity or date-conflict marks. The returned bool reports
// whether this call created the lot.
//
// Both key parts are normalized before lookup, so "00LOT-9" with
// "02/10/2026" and "LOT-9" with "2026-02-10" resolve to the same lot.
// Resolution is order-independent: whichever source references a key first
// creates the lot, and later references from any source land on the same
// row. The create is a single upsert at the storage boundary rather than a
// check-then-insert, so concurrent batches racing on one key settle on one
// lot.
func (e *Engine) ResolveLot(ctx context.Context, lotCode, date string) (model.Lot, bool, error) {
	code := normalize.CleanLotCode(lotCode)
	if code == "" {
		return model.Lot{}, false, NewRowError("", "lot_code", "lot code is empty after cleaning")
	}

	canonical, ok := normalize.CanonicalDate(date)
	if !ok {
		msg := fmt.Sprintf("unparseable date %q", date)
		if normalize.Trim(date) == "" {
			msg = "date is missing"
		}
		return model.Lot{}, false, NewRowError("", "date", msg)
	}

	lot, created, err := e.store.UpsertLot(ctx, code, canonical)
	if err != nil {
		return model.Lot{}, false, NewStorageError("resolve lot", err)
	}
	return lot, created, nil
}

// rowLot resolves the lot a row belongs to from the row's identity fields.
// Quality and shipping rows carry the lot's production date in a separate
// column from their own event dates; both map to the "date" target.
func (e *Engine) rowLot(ctx context.Context, spec model.SourceSpec, row model.Row) (model.Lot, error) {
	rawCode, _ := spec.Resolve(row, "lot_code")
	rawDate, _ := spec.Resolve(row, "date")

	lot, _, err := e.ResolveLot(ctx, rawCode, rawDate)
	if err != nil {
		return model.Lot{}, annotateSource(err, spec.Name)
	}
	return lot, nil
}

// annotateSource stamps the originating source name onto engine errors
// that do not carry one yet. Non-engine errors pass through unchanged.
func annotateSource(err error, source string) error {
	var re *RuntimeError
	if errors.As(err, &re) && re.Source == "" {
		re.Source = source
	}
	return err
}
