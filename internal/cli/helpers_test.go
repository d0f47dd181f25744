package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// specsDirWith writes one CUE file into a fresh specs directory and
// returns the directory path.
func specsDirWith(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sources.cue"), []byte(content), 0644))
	return dir
}

// writeFile writes a data file under a fresh temp directory and returns
// its path.
func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// productionCSVSpec returns a spec set with one CSV production source
// reading csvPath, using the legacy feed's header spellings.
func productionCSVSpec(csvPath string) string {
	return fmt.Sprintf(`package specs

source: production: {
	name:     "Production Logs"
	location: %q
	format:   "csv"
	stream:   "production"
	fields: {
		lot_code: {aliases: ["Lot ID", "LotCode"], required: true}
		date: {aliases: ["Date"], required: true}
		line_id: ["Production Line"]
		shift: "Shift"
		units_planned: ["Units Planned"]
		units_actual: ["Units Actual"]
		downtime_minutes: ["Downtime Minutes"]
		has_line_issue: {aliases: ["Line Issue"], default: "no"}
	}
}
`, csvPath)
}

// allCSVSpecs returns a spec set covering all three streams as CSV files.
func allCSVSpecs(prodPath, qualPath, shipPath string) string {
	return fmt.Sprintf(`package specs

source: production: {
	name:     "Production Logs"
	location: %q
	format:   "csv"
	stream:   "production"
	fields: {
		lot_code: {aliases: ["Lot ID"], required: true}
		date: {aliases: ["Date"], required: true}
		line_id: ["Production Line"]
		units_planned: ["Units Planned"]
		units_actual: ["Units Actual"]
	}
}

source: quality: {
	name:     "Quality Inspection"
	location: %q
	format:   "csv"
	stream:   "quality"
	fields: {
		lot_code: {aliases: ["Lot ID"], required: true}
		date: {aliases: ["Production Date"], required: true}
		inspection_date: ["Inspection Date"]
		is_pass: {aliases: ["Result"], default: "fail"}
		defect_type: ["Defect Type"]
		defect_count: ["Defect Count"]
	}
}

source: shipping: {
	name:     "Shipping Logs"
	location: %q
	format:   "csv"
	stream:   "shipping"
	fields: {
		lot_code: {aliases: ["Lot ID"], required: true}
		date: {aliases: ["Production Date"], required: true}
		ship_date: ["Ship Date"]
		destination: ["Destination"]
		carrier: ["Carrier"]
		qty_shipped: ["Qty Shipped"]
		shipment_status: {aliases: ["Shipment Status"], default: "In Shipment"}
	}
}
`, prodPath, qualPath, shipPath)
}

// tempDBPath returns a database path inside a fresh temp directory.
func tempDBPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "lotline.db")
}
