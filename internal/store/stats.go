package store

import "time"

// GetSummary computes the aggregate stats exposed to operators.
func (s *Store) GetSummary() (*Summary, error) {
	sum := &Summary{ByStatus: make(map[string]int)}

	rows, err := s.conn.Query(
		"SELECT status, COUNT(*) FROM content_records GROUP BY status",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		sum.ByStatus[status] = count
		sum.Total += count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sum.Published = sum.ByStatus[StatusPublished]

	catRows, err := s.conn.Query(
		`SELECT category, COUNT(*), COALESCE(AVG(quality_score), 0)
		FROM content_records GROUP BY category ORDER BY category`,
	)
	if err != nil {
		return nil, err
	}
	defer catRows.Close()
	for catRows.Next() {
		var cs CategoryStat
		if err := catRows.Scan(&cs.Category, &cs.Count, &cs.AvgScore); err != nil {
			return nil, err
		}
		sum.ByCategory = append(sum.ByCategory, cs)
	}
	if err := catRows.Err(); err != nil {
		return nil, err
	}

	recent, _, err := s.ListRecords(ListFilter{
		Status:   StatusGenerated,
		MinScore: 70,
		SortBy:   "quality_score",
		SortDesc: true,
		Limit:    5,
	})
	if err != nil {
		return nil, err
	}
	sum.RecentHighQuality = recent

	return sum, nil
}

// GetHealth computes the metrics inspected by the periodic health check.
// The 24h window counts use updated_at; stuck pending uses created_at.
func (s *Store) GetHealth(now time.Time) (*Health, error) {
	h := &Health{}
	dayAgo := fmtTime(now.Add(-24 * time.Hour))
	sixHoursAgo := fmtTime(now.Add(-6 * time.Hour))

	err := s.conn.QueryRow(
		"SELECT COUNT(*) FROM content_records WHERE created_at >= ?", dayAgo,
	).Scan(&h.CreatedLast24h)
	if err != nil {
		return nil, err
	}

	err = s.conn.QueryRow(
		`SELECT COUNT(*) FROM content_records
		WHERE status IN (?, ?) AND updated_at >= ?`,
		StatusGenerated, StatusPublished, dayAgo,
	).Scan(&h.GeneratedLast24h)
	if err != nil {
		return nil, err
	}

	err = s.conn.QueryRow(
		"SELECT COUNT(*) FROM content_records WHERE status = ? AND updated_at >= ?",
		StatusFailed, dayAgo,
	).Scan(&h.FailedLast24h)
	if err != nil {
		return nil, err
	}

	err = s.conn.QueryRow(
		`SELECT COUNT(*) FROM content_records
		WHERE status IN (?, ?) AND quality_score < 70 AND updated_at >= ?`,
		StatusGenerated, StatusPublished, dayAgo,
	).Scan(&h.LowQualityLast24h)
	if err != nil {
		return nil, err
	}

	err = s.conn.QueryRow(
		"SELECT COUNT(*) FROM content_records WHERE status = ? AND created_at < ?",
		StatusPending, sixHoursAgo,
	).Scan(&h.StuckPending)
	if err != nil {
		return nil, err
	}

	return h, nil
}
