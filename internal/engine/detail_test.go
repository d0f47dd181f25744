package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steelworks/lotline/internal/model"
)

func TestGetLotDetail_NotFoundReturnsNil(t *testing.T) {
	e, _, _ := newTestEngine(t)

	detail, err := e.GetLotDetail(context.Background(), "LOT-404", "2026-02-10")
	require.NoError(t, err)
	assert.Nil(t, detail)
}

func TestGetLotDetail_NormalizesLookupKey(t *testing.T) {
	e, s, _ := newTestEngine(t)
	ctx := context.Background()

	_, _, err := s.UpsertLot(ctx, "LOT-9", "2026-02-10")
	require.NoError(t, err)

	// Raw source spellings find the canonical lot
	detail, err := e.GetLotDetail(ctx, " 00LOT-9 ", "02/10/2026")
	require.NoError(t, err)
	require.NotNil(t, detail)
	assert.Equal(t, "LOT-9", detail.Lot.LotCode)
}

func TestGetLotDetail_RejectsUnusableKey(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := e.GetLotDetail(ctx, "", "2026-02-10")
	require.Error(t, err)
	assert.True(t, IsRowError(err), "empty lot code should classify as a row error")

	_, err = e.GetLotDetail(ctx, "LOT-1", "sometime in spring")
	require.Error(t, err)
	assert.True(t, IsRowError(err), "unparseable date should classify as a row error")
}

func TestGetLotDetail_AssemblesAttachedRecords(t *testing.T) {
	e, s, _ := newTestEngine(t)
	ctx := context.Background()

	lot, _, err := s.UpsertLot(ctx, "LOT-1", "2026-02-10")
	require.NoError(t, err)

	_, err = s.InsertProductionRecord(ctx, model.ProductionRecord{
		LotID: lot.ID, LineID: "P1", UnitsPlanned: 100, UnitsActual: 90,
	})
	require.NoError(t, err)
	_, err = s.InsertQualityRecord(ctx, model.QualityRecord{
		LotID: lot.ID, IsPass: true, InspectorID: "QA-1",
	})
	require.NoError(t, err)
	_, _, err = s.InsertShippingRecord(ctx, model.ShippingRecord{
		LotID: lot.ID, ShipDate: "2026-02-12", ShipmentStatus: "Shipped",
	})
	require.NoError(t, err)

	detail, err := e.GetLotDetail(ctx, "LOT-1", "2026-02-10")
	require.NoError(t, err)
	require.NotNil(t, detail)

	require.NotNil(t, detail.Production)
	assert.Equal(t, "P1", detail.Production.LineID)
	require.NotNil(t, detail.Quality)
	assert.Equal(t, "QA-1", detail.Quality.InspectorID)
	require.NotNil(t, detail.Shipping)
	assert.Equal(t, "2026-02-12", detail.Shipping.ShipDate)
	assert.Equal(t, model.StatusShipped, detail.Status)
	assert.NotNil(t, detail.Flags)
}

func TestGetLotDetail_LatestRecordsGovern(t *testing.T) {
	e, s, _ := newTestEngine(t)
	ctx := context.Background()

	lot, _, err := s.UpsertLot(ctx, "LOT-2", "2026-02-10")
	require.NoError(t, err)

	_, err = s.InsertQualityRecord(ctx, model.QualityRecord{LotID: lot.ID, IsPass: false})
	require.NoError(t, err)
	_, err = s.InsertQualityRecord(ctx, model.QualityRecord{LotID: lot.ID, IsPass: true})
	require.NoError(t, err)

	detail, err := e.GetLotDetail(ctx, "LOT-2", "2026-02-10")
	require.NoError(t, err)
	require.NotNil(t, detail.Quality)
	assert.True(t, detail.Quality.IsPass, "the most recent inspection wins")
	assert.Equal(t, model.StatusPassedQuality, detail.Status)
}

func TestSearchLots_SubstringFilter(t *testing.T) {
	e, s, _ := newTestEngine(t)
	ctx := context.Background()

	for _, key := range [][2]string{
		{"LOT-A", "2026-02-10"},
		{"LOT-B", "2026-02-10"},
		{"XYZ-1", "2026-02-10"},
	} {
		_, _, err := s.UpsertLot(ctx, key[0], key[1])
		require.NoError(t, err)
	}

	details, err := e.SearchLots(ctx, "LOT", 0)
	require.NoError(t, err)

	require.Len(t, details, 2)
	assert.Equal(t, "LOT-A", details[0].Lot.LotCode)
	assert.Equal(t, "LOT-B", details[1].Lot.LotCode)
	for _, d := range details {
		assert.Equal(t, model.StatusPendingInspection, d.Status)
	}
}

func TestSearchLots_Limit(t *testing.T) {
	e, s, _ := newTestEngine(t)
	ctx := context.Background()

	for _, code := range []string{"LOT-A", "LOT-B", "LOT-C"} {
		_, _, err := s.UpsertLot(ctx, code, "2026-02-10")
		require.NoError(t, err)
	}

	details, err := e.SearchLots(ctx, "", 2)
	require.NoError(t, err)
	assert.Len(t, details, 2)
}

func TestSearchLots_NoMatches(t *testing.T) {
	e, _, _ := newTestEngine(t)

	details, err := e.SearchLots(context.Background(), "NOPE", 0)
	require.NoError(t, err)
	assert.NotNil(t, details)
	assert.Empty(t, details)
}
