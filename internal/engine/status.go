package engine

import "github.com/steelworks/lotline/internal/model"

// DeriveStatus computes a lot's operational status from its current state.
// Pure function; the result is derived on demand and never stored.
//
// Precedence is fixed and first match wins:
//
//  1. date conflict
//  2. the shipping record's literal status string
//  3. failed inspection
//  4. passed inspection
//  5. pending inspection
//  6. in production
//
// Once a lot ships, the shipment status dominates the quality outcome for
// display, and an unresolved date conflict dominates everything.
func DeriveStatus(lot model.Lot, quality *model.QualityRecord, shipping *model.ShippingRecord) model.Status {
	switch {
	case lot.HasDateConflict:
		return model.StatusDataConflict
	case shipping != nil:
		if shipping.ShipmentStatus != "" {
			return model.Status(shipping.ShipmentStatus)
		}
		return model.StatusInShipment
	case quality != nil && !quality.IsPass:
		return model.StatusFailedQuality
	case quality != nil:
		return model.StatusPassedQuality
	case lot.PendingInspection:
		return model.StatusPendingInspection
	default:
		return model.StatusInProduction
	}
}
