package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/steelworks/lotline/internal/model"
)

func TestFindLotByKey_Found(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	want := mustUpsertLot(t, s, "LOT-1", "2026-02-10")

	got, err := s.FindLotByKey(ctx, "LOT-1", "2026-02-10")
	if err != nil {
		t.Fatalf("FindLotByKey() failed: %v", err)
	}
	if got.ID != want.ID {
		t.Errorf("lot id = %d, want %d", got.ID, want.ID)
	}
}

func TestFindLotByKey_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.FindLotByKey(context.Background(), "LOT-404", "2026-02-10")
	if err != sql.ErrNoRows {
		t.Errorf("expected sql.ErrNoRows, got: %v", err)
	}
}

func TestFindLotsMissingQuality(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	inspected := mustUpsertLot(t, s, "LOT-A", "2026-02-10")
	mustInsertQuality(t, s, inspected.ID, "2026-02-11", true)
	missing := mustUpsertLot(t, s, "LOT-B", "2026-02-10")

	lots, err := s.FindLotsMissingQuality(ctx)
	if err != nil {
		t.Fatalf("FindLotsMissingQuality() failed: %v", err)
	}

	if len(lots) != 1 {
		t.Fatalf("got %d lots, want 1", len(lots))
	}
	if lots[0].ID != missing.ID {
		t.Errorf("lot id = %d, want %d", lots[0].ID, missing.ID)
	}
}

func TestFindLotsMissingQuality_Empty(t *testing.T) {
	s := createTestStore(t)

	lots, err := s.FindLotsMissingQuality(context.Background())
	if err != nil {
		t.Fatalf("FindLotsMissingQuality() failed: %v", err)
	}
	if lots == nil {
		t.Error("expected empty slice, got nil")
	}
	if len(lots) != 0 {
		t.Errorf("got %d lots, want 0", len(lots))
	}
}

func TestFindOrphanedShipments(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	// Shipped with inspection: not orphaned
	clean := mustUpsertLot(t, s, "LOT-A", "2026-02-10")
	mustInsertQuality(t, s, clean.ID, "2026-02-11", true)
	mustInsertShipping(t, s, clean.ID, "2026-02-12")

	// Shipped without inspection: orphaned
	orphan := mustUpsertLot(t, s, "LOT-B", "2026-02-10")
	mustInsertShipping(t, s, orphan.ID, "2026-02-12")

	// Not shipped at all: not orphaned
	mustUpsertLot(t, s, "LOT-C", "2026-02-10")

	lots, err := s.FindOrphanedShipments(ctx)
	if err != nil {
		t.Fatalf("FindOrphanedShipments() failed: %v", err)
	}

	if len(lots) != 1 {
		t.Fatalf("got %d lots, want 1", len(lots))
	}
	if lots[0].ID != orphan.ID {
		t.Errorf("lot id = %d, want %d", lots[0].ID, orphan.ID)
	}
}

func TestFindDateConflicts(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	// Shipped after production: fine
	ok := mustUpsertLot(t, s, "LOT-A", "2026-02-10")
	mustInsertShipping(t, s, ok.ID, "2026-02-12")

	// Shipped before production: conflict
	bad := mustUpsertLot(t, s, "LOT-B", "2026-02-10")
	mustInsertShipping(t, s, bad.ID, "2026-02-08")

	// Same-day shipment: fine
	same := mustUpsertLot(t, s, "LOT-C", "2026-02-10")
	mustInsertShipping(t, s, same.ID, "2026-02-10")

	lots, err := s.FindDateConflicts(ctx)
	if err != nil {
		t.Fatalf("FindDateConflicts() failed: %v", err)
	}

	if len(lots) != 1 {
		t.Fatalf("got %d lots, want 1", len(lots))
	}
	if lots[0].ID != bad.ID {
		t.Errorf("lot id = %d, want %d", lots[0].ID, bad.ID)
	}
}

func TestFindDateConflicts_IgnoresEmptyShipDate(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	lot := mustUpsertLot(t, s, "LOT-A", "2026-02-10")
	_, _, err := s.InsertShippingRecord(ctx, model.ShippingRecord{
		LotID:          lot.ID,
		ShipDate:       "",
		ShipmentStatus: "In Shipment",
	})
	if err != nil {
		t.Fatalf("InsertShippingRecord() failed: %v", err)
	}

	lots, err := s.FindDateConflicts(ctx)
	if err != nil {
		t.Fatalf("FindDateConflicts() failed: %v", err)
	}
	if len(lots) != 0 {
		t.Errorf("got %d lots, want 0 (empty ship_date is not a conflict)", len(lots))
	}
}

func TestFinders_DeterministicOrder(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	// Insert out of lexicographic order
	mustUpsertLot(t, s, "LOT-C", "2026-02-10")
	mustUpsertLot(t, s, "LOT-A", "2026-02-12")
	mustUpsertLot(t, s, "LOT-A", "2026-02-10")
	mustUpsertLot(t, s, "LOT-B", "2026-02-10")

	lots, err := s.FindLotsMissingQuality(ctx)
	if err != nil {
		t.Fatalf("FindLotsMissingQuality() failed: %v", err)
	}

	wantKeys := []string{
		"LOT-A@2026-02-10",
		"LOT-A@2026-02-12",
		"LOT-B@2026-02-10",
		"LOT-C@2026-02-10",
	}
	if len(lots) != len(wantKeys) {
		t.Fatalf("got %d lots, want %d", len(lots), len(wantKeys))
	}
	for i, want := range wantKeys {
		if got := lots[i].Key(); got != want {
			t.Errorf("lots[%d] = %s, want %s", i, got, want)
		}
	}
}

func TestListLots_SubstringFilter(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	mustUpsertLot(t, s, "LOT-2026-001", "2026-02-10")
	mustUpsertLot(t, s, "LOT-2026-002", "2026-02-10")
	mustUpsertLot(t, s, "BATCH-17", "2026-02-10")

	lots, err := s.ListLots(ctx, "2026-00", 0)
	if err != nil {
		t.Fatalf("ListLots() failed: %v", err)
	}
	if len(lots) != 2 {
		t.Errorf("got %d lots, want 2", len(lots))
	}

	all, err := s.ListLots(ctx, "", 0)
	if err != nil {
		t.Fatalf("ListLots(all) failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("got %d lots, want 3", len(all))
	}
}

func TestListLots_Limit(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	mustUpsertLot(t, s, "LOT-A", "2026-02-10")
	mustUpsertLot(t, s, "LOT-B", "2026-02-10")
	mustUpsertLot(t, s, "LOT-C", "2026-02-10")

	lots, err := s.ListLots(ctx, "", 2)
	if err != nil {
		t.Fatalf("ListLots() failed: %v", err)
	}
	if len(lots) != 2 {
		t.Errorf("got %d lots, want 2", len(lots))
	}
}

func TestLatestProductionRecord(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	lot := mustUpsertLot(t, s, "LOT-1", "2026-02-10")

	if _, err := s.InsertProductionRecord(ctx, model.ProductionRecord{LotID: lot.ID, LineID: "P1", UnitsActual: 90}); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if _, err := s.InsertProductionRecord(ctx, model.ProductionRecord{LotID: lot.ID, LineID: "P2", UnitsActual: 95}); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	rec, err := s.LatestProductionRecord(ctx, lot.ID)
	if err != nil {
		t.Fatalf("LatestProductionRecord() failed: %v", err)
	}
	if rec == nil {
		t.Fatal("expected a record, got nil")
	}
	if rec.LineID != "P2" {
		t.Errorf("line_id = %q, want P2 (most recent insert)", rec.LineID)
	}
}

func TestLatestProductionRecord_None(t *testing.T) {
	s := createTestStore(t)
	lot := mustUpsertLot(t, s, "LOT-1", "2026-02-10")

	rec, err := s.LatestProductionRecord(context.Background(), lot.ID)
	if err != nil {
		t.Fatalf("LatestProductionRecord() failed: %v", err)
	}
	if rec != nil {
		t.Errorf("expected nil for lot without records, got %+v", rec)
	}
}

func TestLatestQualityRecord(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	lot := mustUpsertLot(t, s, "LOT-1", "2026-02-10")

	mustInsertQuality(t, s, lot.ID, "2026-02-11", false)
	mustInsertQuality(t, s, lot.ID, "2026-02-12", true)

	rec, err := s.LatestQualityRecord(ctx, lot.ID)
	if err != nil {
		t.Fatalf("LatestQualityRecord() failed: %v", err)
	}
	if rec == nil {
		t.Fatal("expected a record, got nil")
	}
	if !rec.IsPass {
		t.Error("expected most recent record (is_pass=true)")
	}
	if rec.InspectionDate != "2026-02-12" {
		t.Errorf("inspection_date = %q, want 2026-02-12", rec.InspectionDate)
	}
}

func TestShippingRecordForLot_None(t *testing.T) {
	s := createTestStore(t)
	lot := mustUpsertLot(t, s, "LOT-1", "2026-02-10")

	rec, err := s.ShippingRecordForLot(context.Background(), lot.ID)
	if err != nil {
		t.Fatalf("ShippingRecordForLot() failed: %v", err)
	}
	if rec != nil {
		t.Errorf("expected nil for unshipped lot, got %+v", rec)
	}
}

func TestUnresolvedFlags_ExcludesResolved(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	lot := mustUpsertLot(t, s, "LOT-1", "2026-02-10")

	resolvedID, _, err := s.FindOrCreateFlag(ctx, FlagParams{
		LotID:      lot.ID,
		FlagType:   model.FlagPendingInspection,
		Severity:   model.SeverityWarning,
		DetectedAt: "2026-02-10T08:00:00Z",
	})
	if err != nil {
		t.Fatalf("FindOrCreateFlag() failed: %v", err)
	}
	if _, _, err := s.FindOrCreateFlag(ctx, FlagParams{
		LotID:      lot.ID,
		FlagType:   model.FlagDateConflict,
		Severity:   model.SeverityError,
		DetectedAt: "2026-02-10T08:00:00Z",
	}); err != nil {
		t.Fatalf("FindOrCreateFlag() failed: %v", err)
	}

	if err := s.ResolveFlag(ctx, resolvedID); err != nil {
		t.Fatalf("ResolveFlag() failed: %v", err)
	}

	flags, err := s.UnresolvedFlags(ctx, lot.ID)
	if err != nil {
		t.Fatalf("UnresolvedFlags() failed: %v", err)
	}
	if len(flags) != 1 {
		t.Fatalf("got %d flags, want 1", len(flags))
	}
	if flags[0].FlagType != model.FlagDateConflict {
		t.Errorf("flag_type = %q, want %q", flags[0].FlagType, model.FlagDateConflict)
	}
}

func TestListFlags_AllAndUnresolvedOnly(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	a := mustUpsertLot(t, s, "LOT-A", "2026-02-10")
	b := mustUpsertLot(t, s, "LOT-B", "2026-02-10")

	id, _, err := s.FindOrCreateFlag(ctx, FlagParams{
		LotID:      a.ID,
		FlagType:   model.FlagPendingInspection,
		Severity:   model.SeverityWarning,
		DetectedAt: "2026-02-10T08:00:00Z",
	})
	if err != nil {
		t.Fatalf("FindOrCreateFlag() failed: %v", err)
	}
	if _, _, err := s.FindOrCreateFlag(ctx, FlagParams{
		LotID:      b.ID,
		FlagType:   model.FlagOrphanedShipment,
		Severity:   model.SeverityCritical,
		DetectedAt: "2026-02-10T08:00:00Z",
	}); err != nil {
		t.Fatalf("FindOrCreateFlag() failed: %v", err)
	}
	if err := s.ResolveFlag(ctx, id); err != nil {
		t.Fatalf("ResolveFlag() failed: %v", err)
	}

	all, err := s.ListFlags(ctx, false)
	if err != nil {
		t.Fatalf("ListFlags(false) failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("all flags = %d, want 2", len(all))
	}

	open, err := s.ListFlags(ctx, true)
	if err != nil {
		t.Fatalf("ListFlags(true) failed: %v", err)
	}
	if len(open) != 1 {
		t.Fatalf("unresolved flags = %d, want 1", len(open))
	}
	if open[0].FlagType != model.FlagOrphanedShipment {
		t.Errorf("flag_type = %q, want %q", open[0].FlagType, model.FlagOrphanedShipment)
	}
}

func TestListSourceMetadata_Ordered(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	names := []string{"Shipping Logs", "Production Logs", "Quality Inspection"}
	for _, name := range names {
		err := s.UpsertSourceMetadata(ctx, model.SourceMetadata{
			SourceName:    name,
			FileFormat:    "csv",
			RefreshStatus: model.HealthHealthy,
		})
		if err != nil {
			t.Fatalf("UpsertSourceMetadata(%s) failed: %v", name, err)
		}
	}

	metas, err := s.ListSourceMetadata(ctx)
	if err != nil {
		t.Fatalf("ListSourceMetadata() failed: %v", err)
	}

	want := []string{"Production Logs", "Quality Inspection", "Shipping Logs"}
	if len(metas) != len(want) {
		t.Fatalf("got %d sources, want %d", len(metas), len(want))
	}
	for i, name := range want {
		if metas[i].SourceName != name {
			t.Errorf("metas[%d] = %q, want %q", i, metas[i].SourceName, name)
		}
	}
}
