package offline

import (
	"context"

	"go.uber.org/zap"

	"github.com/matthieubouillot/cubage-app-fbbois-sub000/pkg/api"
	"github.com/matthieubouillot/cubage-app-fbbois-sub000/pkg/cubage"
)

// Stats sources.
const (
	StatsSourceServer = "server"
	StatsSourceCache  = "cache"
)

// Stats is an aggregate for one scope. PendingRows counts cached rows whose
// volumes are still awaiting server computation; they are excluded from the
// sums rather than silently contributing zeros.
type Stats struct {
	Cubage      cubage.Stats
	PendingRows int
	Source      string
}

func statsFromResponse(resp *api.StatsResponse) cubage.Stats {
	conv := func(c api.StatsColumn) cubage.ColumnStats {
		return cubage.ColumnStats{Sum: c.Sum, Count: c.Count, Avg: c.Avg}
	}
	return cubage.Stats{
		BelowV1:  conv(resp.Columns.LtV1),
		BetweenV: conv(resp.Columns.Between),
		AboveV2:  conv(resp.Columns.GeV2),
		Total:    conv(resp.Total),
	}
}

// GetStats returns the aggregate for one scope: server-computed when
// reachable, otherwise rebuilt from cached rows with the same numeric
// semantics.
func (c *Coordinator) GetStats(ctx context.Context, chantierID, qualiteID string) (*Stats, error) {
	if c.conn.IsOnline() {
		resp, err := c.gateway.GetSaisieStats(ctx, chantierID, qualiteID)
		if err == nil {
			return &Stats{Cubage: statsFromResponse(resp), Source: StatsSourceServer}, nil
		}
		c.logger.Debug("stats falling back to cache", zap.Error(err))
	}

	rows, _, err := c.loadScope(chantierID, qualiteID)
	if err != nil {
		return nil, err
	}

	buckets := make([]cubage.Buckets, 0, len(rows))
	pending := 0
	for _, row := range rows {
		if row.VolumeNet == nil {
			pending++
			continue
		}
		b := cubage.Buckets{}
		if row.VolBelowV1 != nil {
			b.Below = *row.VolBelowV1
		}
		if row.VolBetweenV1V2 != nil {
			b.Between = *row.VolBetweenV1V2
		}
		if row.VolAboveV2 != nil {
			b.Above = *row.VolAboveV2
		}
		buckets = append(buckets, b)
	}

	return &Stats{
		Cubage:      cubage.Aggregate(buckets),
		PendingRows: pending,
		Source:      StatsSourceCache,
	}, nil
}
