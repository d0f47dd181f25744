package store

import (
	"context"
	"testing"

	"github.com/steelworks/lotline/internal/model"
)

func TestLineHealth_GroupsByLineAndWeek(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	// Two lots on line P1 in the same ISO week, one on P2
	a := mustUpsertLot(t, s, "LOT-A", "2026-02-09")
	b := mustUpsertLot(t, s, "LOT-B", "2026-02-10")
	c := mustUpsertLot(t, s, "LOT-C", "2026-02-10")

	inserts := []model.ProductionRecord{
		{LotID: a.ID, LineID: "P1", UnitsPlanned: 100, UnitsActual: 95, DowntimeMinutes: 10},
		{LotID: b.ID, LineID: "P1", UnitsPlanned: 100, UnitsActual: 80, DowntimeMinutes: 45, HasLineIssue: true},
		{LotID: c.ID, LineID: "P2", UnitsPlanned: 50, UnitsActual: 50},
	}
	for _, rec := range inserts {
		if _, err := s.InsertProductionRecord(ctx, rec); err != nil {
			t.Fatalf("InsertProductionRecord() failed: %v", err)
		}
	}

	rows, err := s.LineHealth(ctx, "", "")
	if err != nil {
		t.Fatalf("LineHealth() failed: %v", err)
	}

	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}

	p1 := rows[0]
	if p1.LineID != "P1" {
		t.Fatalf("rows[0].LineID = %q, want P1", p1.LineID)
	}
	if p1.Lots != 2 {
		t.Errorf("P1 lots = %d, want 2", p1.Lots)
	}
	if p1.UnitsPlanned != 200 || p1.UnitsActual != 175 {
		t.Errorf("P1 units = %d/%d, want 200/175", p1.UnitsPlanned, p1.UnitsActual)
	}
	if p1.DowntimeMinutes != 55 {
		t.Errorf("P1 downtime = %d, want 55", p1.DowntimeMinutes)
	}
	if p1.LineIssueLots != 1 {
		t.Errorf("P1 line issue lots = %d, want 1", p1.LineIssueLots)
	}

	p2 := rows[1]
	if p2.LineID != "P2" || p2.Lots != 1 {
		t.Errorf("rows[1] = %s/%d lots, want P2/1", p2.LineID, p2.Lots)
	}
}

func TestLineHealth_DateBounds(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	early := mustUpsertLot(t, s, "LOT-A", "2026-01-05")
	late := mustUpsertLot(t, s, "LOT-B", "2026-03-02")
	for _, id := range []int64{early.ID, late.ID} {
		if _, err := s.InsertProductionRecord(ctx, model.ProductionRecord{LotID: id, LineID: "P1", UnitsPlanned: 10, UnitsActual: 10}); err != nil {
			t.Fatalf("InsertProductionRecord() failed: %v", err)
		}
	}

	rows, err := s.LineHealth(ctx, "2026-02-01", "2026-03-31")
	if err != nil {
		t.Fatalf("LineHealth() failed: %v", err)
	}

	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0].Lots != 1 {
		t.Errorf("lots = %d, want 1 (January lot excluded)", rows[0].Lots)
	}
}

func TestLineHealth_CountsIntegrityLots(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	lot := mustUpsertLot(t, s, "LOT-A", "2026-02-10")
	if _, err := s.InsertProductionRecord(ctx, model.ProductionRecord{LotID: lot.ID, LineID: "P1", UnitsPlanned: 10, UnitsActual: 10}); err != nil {
		t.Fatalf("InsertProductionRecord() failed: %v", err)
	}
	flagged := true
	if err := s.UpdateLotFlags(ctx, lot.ID, LotFlagUpdate{HasIntegrityIssue: &flagged}); err != nil {
		t.Fatalf("UpdateLotFlags() failed: %v", err)
	}

	rows, err := s.LineHealth(ctx, "", "")
	if err != nil {
		t.Fatalf("LineHealth() failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0].IntegrityLots != 1 {
		t.Errorf("integrity lots = %d, want 1", rows[0].IntegrityLots)
	}
}

func TestDefectTrend(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	a := mustUpsertLot(t, s, "LOT-A", "2026-02-09")
	b := mustUpsertLot(t, s, "LOT-B", "2026-02-10")
	c := mustUpsertLot(t, s, "LOT-C", "2026-02-10")

	inserts := []model.QualityRecord{
		{LotID: a.ID, InspectionDate: "2026-02-10", IsPass: false, DefectType: "scratch", DefectCount: 3},
		{LotID: b.ID, InspectionDate: "2026-02-11", IsPass: false, DefectType: "scratch", DefectCount: 2},
		{LotID: c.ID, InspectionDate: "2026-02-11", IsPass: true},
	}
	for _, rec := range inserts {
		if _, err := s.InsertQualityRecord(ctx, rec); err != nil {
			t.Fatalf("InsertQualityRecord() failed: %v", err)
		}
	}

	rows, err := s.DefectTrend(ctx, "", "")
	if err != nil {
		t.Fatalf("DefectTrend() failed: %v", err)
	}

	// Passing inspections without defects are excluded
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	for i, want := range []DefectTrendRow{
		{DefectType: "scratch", InspectionDate: "2026-02-10", Inspections: 1, Defects: 3},
		{DefectType: "scratch", InspectionDate: "2026-02-11", Inspections: 1, Defects: 2},
	} {
		if rows[i] != want {
			t.Errorf("rows[%d] = %+v, want %+v", i, rows[i], want)
		}
	}
}

func TestDefectTrend_UnspecifiedDefectType(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	lot := mustUpsertLot(t, s, "LOT-A", "2026-02-10")
	if _, err := s.InsertQualityRecord(ctx, model.QualityRecord{
		LotID:          lot.ID,
		InspectionDate: "2026-02-11",
		IsPass:         false,
	}); err != nil {
		t.Fatalf("InsertQualityRecord() failed: %v", err)
	}

	rows, err := s.DefectTrend(ctx, "", "")
	if err != nil {
		t.Fatalf("DefectTrend() failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0].DefectType != "Unspecified" {
		t.Errorf("defect_type = %q, want Unspecified", rows[0].DefectType)
	}
}

func TestIntegritySummary(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	a := mustUpsertLot(t, s, "LOT-A", "2026-02-10")
	b := mustUpsertLot(t, s, "LOT-B", "2026-02-10")
	c := mustUpsertLot(t, s, "LOT-C", "2026-02-10")

	flags := []FlagParams{
		{LotID: a.ID, FlagType: model.FlagPendingInspection, Severity: model.SeverityWarning, DetectedAt: "2026-02-10T08:00:00Z"},
		{LotID: b.ID, FlagType: model.FlagPendingInspection, Severity: model.SeverityWarning, DetectedAt: "2026-02-10T08:00:00Z"},
		{LotID: c.ID, FlagType: model.FlagOrphanedShipment, Severity: model.SeverityCritical, DetectedAt: "2026-02-10T08:00:00Z"},
	}
	var resolveID int64
	for i, params := range flags {
		id, _, err := s.FindOrCreateFlag(ctx, params)
		if err != nil {
			t.Fatalf("FindOrCreateFlag() failed: %v", err)
		}
		if i == 1 {
			resolveID = id
		}
	}

	// Resolved flags drop out of the summary
	if err := s.ResolveFlag(ctx, resolveID); err != nil {
		t.Fatalf("ResolveFlag() failed: %v", err)
	}

	rows, err := s.IntegritySummary(ctx)
	if err != nil {
		t.Fatalf("IntegritySummary() failed: %v", err)
	}

	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0].FlagType != string(model.FlagOrphanedShipment) || rows[0].Count != 1 {
		t.Errorf("rows[0] = %s/%d, want orphaned_shipment/1", rows[0].FlagType, rows[0].Count)
	}
	if rows[1].FlagType != string(model.FlagPendingInspection) || rows[1].Count != 1 {
		t.Errorf("rows[1] = %s/%d, want pending_inspection/1", rows[1].FlagType, rows[1].Count)
	}
}

func TestReports_EmptyDatabase(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	health, err := s.LineHealth(ctx, "", "")
	if err != nil {
		t.Fatalf("LineHealth() failed: %v", err)
	}
	if health == nil || len(health) != 0 {
		t.Errorf("LineHealth on empty db = %v, want empty slice", health)
	}

	trend, err := s.DefectTrend(ctx, "", "")
	if err != nil {
		t.Fatalf("DefectTrend() failed: %v", err)
	}
	if trend == nil || len(trend) != 0 {
		t.Errorf("DefectTrend on empty db = %v, want empty slice", trend)
	}

	summary, err := s.IntegritySummary(ctx)
	if err != nil {
		t.Fatalf("IntegritySummary() failed: %v", err)
	}
	if summary == nil || len(summary) != 0 {
		t.Errorf("IntegritySummary on empty db = %v, want empty slice", summary)
	}
}
