package cubage

// ColumnStats aggregates one threshold band.
type ColumnStats struct {
	Sum   float64 `json:"sum"`
	Count int     `json:"count"`
	Avg   float64 `json:"avg"`
}

// Stats is the aggregate over a set of measurement rows: one column per
// band plus the combined total.
type Stats struct {
	BelowV1  ColumnStats `json:"ltV1"`
	BetweenV ColumnStats `json:"between"`
	AboveV2  ColumnStats `json:"geV2"`
	Total    ColumnStats `json:"total"`
}

func finishColumn(c *ColumnStats) {
	c.Sum = Round3(c.Sum)
	if c.Count > 0 {
		c.Avg = Round3(c.Sum / float64(c.Count))
	}
}

// Aggregate computes per-band sums, counts and averages over rows that have
// already been bucketed. A row counts toward a band when its value there is
// nonzero. Averages are 0 when a band is empty.
func Aggregate(rows []Buckets) Stats {
	var s Stats
	for _, r := range rows {
		if r.Below != 0 {
			s.BelowV1.Sum += r.Below
			s.BelowV1.Count++
		}
		if r.Between != 0 {
			s.BetweenV.Sum += r.Between
			s.BetweenV.Count++
		}
		if r.Above != 0 {
			s.AboveV2.Sum += r.Above
			s.AboveV2.Count++
		}
	}
	s.Total.Sum = s.BelowV1.Sum + s.BetweenV.Sum + s.AboveV2.Sum
	s.Total.Count = s.BelowV1.Count + s.BetweenV.Count + s.AboveV2.Count
	finishColumn(&s.BelowV1)
	finishColumn(&s.BetweenV)
	finishColumn(&s.AboveV2)
	finishColumn(&s.Total)
	return s
}
