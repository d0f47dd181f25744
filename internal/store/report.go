package store

import (
	"context"
	"fmt"
)

// LineHealthRow is one production line's aggregate for one ISO week.
type LineHealthRow struct {
	LineID          string `json:"line_id"`
	Week            string `json:"week"` // e.g. "2026-W06"
	Lots            int    `json:"lots"`
	UnitsPlanned    int    `json:"units_planned"`
	UnitsActual     int    `json:"units_actual"`
	DowntimeMinutes int    `json:"downtime_minutes"`
	LineIssueLots   int    `json:"line_issue_lots"`
	IntegrityLots   int    `json:"integrity_lots"`
}

// LineHealth aggregates production by line and week. Empty from/to bounds
// are open-ended; bounds compare against the lot's production date.
func (s *Store) LineHealth(ctx context.Context, from, to string) ([]LineHealthRow, error) {
	query := `
		SELECT p.line_id,
		       strftime('%Y-W%W', l.date) AS week,
		       COUNT(DISTINCT l.id) AS lots,
		       SUM(p.units_planned),
		       SUM(p.units_actual),
		       SUM(p.downtime_minutes),
		       COUNT(DISTINCT CASE WHEN p.has_line_issue = 1 THEN l.id END),
		       COUNT(DISTINCT CASE WHEN l.has_integrity_issue = 1 THEN l.id END)
		FROM production_records p
		JOIN lots l ON l.id = p.lot_id
	`
	var where []string
	var args []any
	if from != "" {
		where = append(where, "l.date >= ?")
		args = append(args, from)
	}
	if to != "" {
		where = append(where, "l.date <= ?")
		args = append(args, to)
	}
	for i, cond := range where {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	query += `
		GROUP BY p.line_id, week
		ORDER BY p.line_id COLLATE BINARY ASC, week ASC
	`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("line health: %w", err)
	}
	defer rows.Close()

	var out []LineHealthRow
	for rows.Next() {
		var r LineHealthRow
		if err := rows.Scan(&r.LineID, &r.Week, &r.Lots, &r.UnitsPlanned, &r.UnitsActual,
			&r.DowntimeMinutes, &r.LineIssueLots, &r.IntegrityLots); err != nil {
			return nil, fmt.Errorf("line health: scan: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("line health: iterate: %w", err)
	}
	if out == nil {
		out = []LineHealthRow{}
	}
	return out, nil
}

// DefectTrendRow is the defect volume for one defect type on one date.
type DefectTrendRow struct {
	DefectType     string `json:"defect_type"`
	InspectionDate string `json:"inspection_date"`
	Inspections    int    `json:"inspections"`
	Defects        int    `json:"defects"`
}

// DefectTrend aggregates failed or defect-carrying inspections by defect
// type and inspection date. Empty from/to bounds are open-ended.
func (s *Store) DefectTrend(ctx context.Context, from, to string) ([]DefectTrendRow, error) {
	query := `
		SELECT COALESCE(NULLIF(defect_type, ''), 'Unspecified') AS dtype,
		       inspection_date,
		       COUNT(*),
		       SUM(defect_count)
		FROM quality_records
		WHERE (is_pass = 0 OR defect_count > 0) AND inspection_date != ''
	`
	var args []any
	if from != "" {
		query += " AND inspection_date >= ?"
		args = append(args, from)
	}
	if to != "" {
		query += " AND inspection_date <= ?"
		args = append(args, to)
	}
	query += `
		GROUP BY dtype, inspection_date
		ORDER BY dtype COLLATE BINARY ASC, inspection_date ASC
	`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("defect trend: %w", err)
	}
	defer rows.Close()

	var out []DefectTrendRow
	for rows.Next() {
		var r DefectTrendRow
		if err := rows.Scan(&r.DefectType, &r.InspectionDate, &r.Inspections, &r.Defects); err != nil {
			return nil, fmt.Errorf("defect trend: scan: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("defect trend: iterate: %w", err)
	}
	if out == nil {
		out = []DefectTrendRow{}
	}
	return out, nil
}

// IntegritySummaryRow is the count of unresolved flags for one type and
// severity.
type IntegritySummaryRow struct {
	FlagType string `json:"flag_type"`
	Severity string `json:"severity"`
	Count    int    `json:"count"`
}

// IntegritySummary counts unresolved flags grouped by type and severity.
func (s *Store) IntegritySummary(ctx context.Context) ([]IntegritySummaryRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT flag_type, severity, COUNT(*)
		FROM integrity_flags
		WHERE is_resolved = 0
		GROUP BY flag_type, severity
		ORDER BY flag_type COLLATE BINARY ASC, severity COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("integrity summary: %w", err)
	}
	defer rows.Close()

	var out []IntegritySummaryRow
	for rows.Next() {
		var r IntegritySummaryRow
		if err := rows.Scan(&r.FlagType, &r.Severity, &r.Count); err != nil {
			return nil, fmt.Errorf("integrity summary: scan: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("integrity summary: iterate: %w", err)
	}
	if out == nil {
		out = []IntegritySummaryRow{}
	}
	return out, nil
}
