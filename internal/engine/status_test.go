package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/steelworks/lotline/internal/model"
)

func TestDeriveStatus_Precedence(t *testing.T) {
	failed := &model.QualityRecord{IsPass: false}
	passed := &model.QualityRecord{IsPass: true}
	shipped := &model.ShippingRecord{ShipmentStatus: "Shipped"}
	delivered := &model.ShippingRecord{ShipmentStatus: "Delivered"}

	tests := []struct {
		name     string
		lot      model.Lot
		quality  *model.QualityRecord
		shipping *model.ShippingRecord
		want     model.Status
	}{
		{
			name:     "date conflict dominates everything",
			lot:      model.Lot{HasDateConflict: true},
			quality:  passed,
			shipping: shipped,
			want:     model.StatusDataConflict,
		},
		{
			name:     "shipping status passes through literally",
			lot:      model.Lot{},
			quality:  failed,
			shipping: delivered,
			want:     model.Status("Delivered"),
		},
		{
			name:     "shipping with blank status reads as in shipment",
			lot:      model.Lot{},
			shipping: &model.ShippingRecord{},
			want:     model.StatusInShipment,
		},
		{
			name:    "failed inspection",
			lot:     model.Lot{},
			quality: failed,
			want:    model.StatusFailedQuality,
		},
		{
			name:    "passed inspection",
			lot:     model.Lot{},
			quality: passed,
			want:    model.StatusPassedQuality,
		},
		{
			name: "pending inspection",
			lot:  model.Lot{PendingInspection: true},
			want: model.StatusPendingInspection,
		},
		{
			name: "nothing attached means in production",
			lot:  model.Lot{},
			want: model.StatusInProduction,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveStatus(tt.lot, tt.quality, tt.shipping)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDeriveStatus_ShipmentDominatesQualityOutcome(t *testing.T) {
	// A lot that failed inspection but shipped anyway displays its
	// shipment status; the failure is the validation pass's business.
	lot := model.Lot{}
	quality := &model.QualityRecord{IsPass: false}
	shipping := &model.ShippingRecord{ShipmentStatus: "In Shipment"}

	assert.Equal(t, model.StatusInShipment, DeriveStatus(lot, quality, shipping))
}
