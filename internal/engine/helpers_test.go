package engine

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/steelworks/lotline/internal/model"
	"github.com/steelworks/lotline/internal/store"
	"github.com/steelworks/lotline/internal/testutil"
)

// testNow is the pinned instant every engine test runs at.
var testNow = time.Date(2026, 2, 15, 8, 0, 0, 0, time.UTC)

// newTestEngine builds an engine over a temp-dir database with a pinned
// clock and a static run token.
func newTestEngine(t *testing.T, opts ...EngineOption) (*Engine, *store.Store, *testutil.FixedClock) {
	t.Helper()

	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	clock := testutil.NewFixedClock(testNow)
	e := New(s, clock, testutil.NewStaticRunToken("test-run"), opts...)
	return e, s, clock
}

func productionSpec() model.SourceSpec {
	return model.SourceSpec{
		Name:   "Production Logs",
		Format: model.FormatCSV,
		Stream: model.StreamProduction,
		Fields: []model.FieldSpec{
			{Target: "lot_code", Aliases: []string{"LotID"}, Required: true},
			{Target: "date", Aliases: []string{"Date"}, Required: true},
			{Target: "line_id", Aliases: []string{"Line"}},
			{Target: "shift", Aliases: []string{"Shift"}},
			{Target: "units_planned", Aliases: []string{"Planned"}},
			{Target: "units_actual", Aliases: []string{"Actual"}},
			{Target: "downtime_minutes", Aliases: []string{"Downtime"}},
			{Target: "has_line_issue", Aliases: []string{"Line Issue"}, Default: "no"},
		},
	}
}

func qualitySpec() model.SourceSpec {
	return model.SourceSpec{
		Name:   "Quality Inspection",
		Format: model.FormatXLSX,
		Sheet:  "Inspections",
		Stream: model.StreamQuality,
		Fields: []model.FieldSpec{
			{Target: "lot_code", Aliases: []string{"Lot Number"}, Required: true},
			{Target: "date", Aliases: []string{"Production Date"}, Required: true},
			{Target: "inspection_date", Aliases: []string{"Inspection Date"}},
			{Target: "is_pass", Aliases: []string{"Pass", "Result"}, Default: "fail"},
			{Target: "inspector_id", Aliases: []string{"Inspector"}},
			{Target: "defect_type", Aliases: []string{"Defect"}},
			{Target: "defect_count", Aliases: []string{"Defects"}},
		},
	}
}

func shippingSpec() model.SourceSpec {
	return model.SourceSpec{
		Name:   "Shipping Logs",
		Format: model.FormatXLSX,
		Sheet:  "Shipments",
		Stream: model.StreamShipping,
		Fields: []model.FieldSpec{
			{Target: "lot_code", Aliases: []string{"Lot"}, Required: true},
			{Target: "date", Aliases: []string{"Production Date"}, Required: true},
			{Target: "ship_date", Aliases: []string{"Ship Date"}},
			{Target: "destination", Aliases: []string{"Destination"}},
			{Target: "carrier", Aliases: []string{"Carrier"}},
			{Target: "qty_shipped", Aliases: []string{"Qty"}},
			{Target: "shipment_status", Aliases: []string{"Status"}, Default: "In Shipment"},
		},
	}
}
