package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/steelworks/lotline/internal/model"
)

// createTestStore creates a new store backed by a temp-dir database.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// insertTestLot inserts a lot directly and returns its id.
func insertTestLot(t *testing.T, s *Store, code, date string) int64 {
	t.Helper()
	res, err := s.db.Exec(`INSERT INTO lots (lot_code, date) VALUES (?, ?)`, code, date)
	if err != nil {
		t.Fatalf("failed to insert lot %s/%s: %v", code, date, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("failed to get lot id: %v", err)
	}
	return id
}

// mustUpsertLot resolves a lot through the public API.
func mustUpsertLot(t *testing.T, s *Store, code, date string) model.Lot {
	t.Helper()
	lot, _, err := s.UpsertLot(context.Background(), code, date)
	if err != nil {
		t.Fatalf("UpsertLot(%s, %s) failed: %v", code, date, err)
	}
	return lot
}

// mustInsertQuality attaches a quality record through the public API.
func mustInsertQuality(t *testing.T, s *Store, lotID int64, date string, pass bool) {
	t.Helper()
	_, err := s.InsertQualityRecord(context.Background(), model.QualityRecord{
		LotID:          lotID,
		InspectionDate: date,
		IsPass:         pass,
	})
	if err != nil {
		t.Fatalf("InsertQualityRecord failed: %v", err)
	}
}

// mustInsertShipping attaches a shipping record through the public API.
func mustInsertShipping(t *testing.T, s *Store, lotID int64, shipDate string) {
	t.Helper()
	_, inserted, err := s.InsertShippingRecord(context.Background(), model.ShippingRecord{
		LotID:    lotID,
		ShipDate: shipDate,
	})
	if err != nil {
		t.Fatalf("InsertShippingRecord failed: %v", err)
	}
	if !inserted {
		t.Fatalf("InsertShippingRecord reported duplicate for lot %d", lotID)
	}
}
