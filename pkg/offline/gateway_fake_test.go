package offline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/matthieubouillot/cubage-app-fbbois-sub000/pkg/api"
	"github.com/matthieubouillot/cubage-app-fbbois-sub000/pkg/cubage"
)

// fakeGateway is an in-memory stand-in for the remote API. It assigns ids
// and numéros the way the server does and computes volumes with the shared
// engine, so cache/server consistency checks compare real numbers.
type fakeGateway struct {
	mu         sync.Mutex
	saisies    map[string]api.Saisie
	chantiers  map[string]api.Chantier
	nextID     int
	nextNumero int

	failNext    error // returned by the next call, then cleared
	failAlways  error // returned by every call while set
	blockCreate chan struct{}

	createCalls int
	updateCalls int
	deleteCalls int
	seenIDs     []string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		saisies:    make(map[string]api.Saisie),
		chantiers:  make(map[string]api.Chantier),
		nextNumero: 1000,
	}
}

func (g *fakeGateway) fail() error {
	if g.failAlways != nil {
		return g.failAlways
	}
	if g.failNext != nil {
		err := g.failNext
		g.failNext = nil
		return err
	}
	return nil
}

func (g *fakeGateway) ListChantiers(context.Context) ([]api.Chantier, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.fail(); err != nil {
		return nil, err
	}
	out := make([]api.Chantier, 0, len(g.chantiers))
	for _, ch := range g.chantiers {
		out = append(out, ch)
	}
	return out, nil
}

func (g *fakeGateway) GetChantier(_ context.Context, id string) (*api.Chantier, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.fail(); err != nil {
		return nil, err
	}
	ch, ok := g.chantiers[id]
	if !ok {
		return nil, &api.APIError{Status: 404, Message: "chantier not found"}
	}
	return &ch, nil
}

func (g *fakeGateway) DeleteChantier(_ context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.deleteCalls++
	g.seenIDs = append(g.seenIDs, id)
	if err := g.fail(); err != nil {
		return err
	}
	delete(g.chantiers, id)
	return nil
}

func (g *fakeGateway) ListSaisies(_ context.Context, chantierID, qualiteID string) ([]api.Saisie, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.fail(); err != nil {
		return nil, err
	}
	var out []api.Saisie
	for _, s := range g.saisies {
		if s.ChantierID == chantierID && s.QualiteID == qualiteID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (g *fakeGateway) CreateSaisie(_ context.Context, req api.CreateSaisieRequest) (*api.Saisie, error) {
	g.mu.Lock()
	block := g.blockCreate
	g.mu.Unlock()
	if block != nil {
		<-block
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.createCalls++
	if err := g.fail(); err != nil {
		return nil, err
	}

	volume, buckets, err := cubage.Measure(req.Longueur, req.Diametre, 0)
	if err != nil {
		return nil, &api.APIError{Status: 422, Message: err.Error()}
	}

	g.nextID++
	g.nextNumero++
	s := api.Saisie{
		ID:             fmt.Sprintf("srv-%d", g.nextID),
		Date:           time.Now(),
		Numero:         g.nextNumero,
		Longueur:       req.Longueur,
		Diametre:       req.Diametre,
		VolumeNet:      volume,
		VolBelowV1:     buckets.Below,
		VolBetweenV1V2: buckets.Between,
		VolAboveV2:     buckets.Above,
		Annotation:     req.Annotation,
		ChantierID:     req.ChantierID,
		QualiteID:      req.QualiteID,
		RecordedBy:     api.Worker{ID: "u1", FirstName: "Jean", LastName: "Bois"},
	}
	g.saisies[s.ID] = s
	return &s, nil
}

func (g *fakeGateway) UpdateSaisie(_ context.Context, id string, req api.UpdateSaisieRequest) (*api.Saisie, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.updateCalls++
	g.seenIDs = append(g.seenIDs, id)
	if err := g.fail(); err != nil {
		return nil, err
	}
	s, ok := g.saisies[id]
	if !ok {
		return nil, &api.APIError{Status: 404, Message: "saisie not found"}
	}

	volume, buckets, err := cubage.Measure(req.Longueur, req.Diametre, 0)
	if err != nil {
		return nil, &api.APIError{Status: 422, Message: err.Error()}
	}
	s.Longueur = req.Longueur
	s.Diametre = req.Diametre
	s.Annotation = req.Annotation
	s.VolumeNet = volume
	s.VolBelowV1 = buckets.Below
	s.VolBetweenV1V2 = buckets.Between
	s.VolAboveV2 = buckets.Above
	g.saisies[id] = s
	return &s, nil
}

func (g *fakeGateway) DeleteSaisie(_ context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.deleteCalls++
	g.seenIDs = append(g.seenIDs, id)
	if err := g.fail(); err != nil {
		return err
	}
	delete(g.saisies, id)
	return nil
}

func (g *fakeGateway) GetSaisieStats(ctx context.Context, chantierID, qualiteID string) (*api.StatsResponse, error) {
	rows, err := g.ListSaisies(ctx, chantierID, qualiteID)
	if err != nil {
		return nil, err
	}
	buckets := make([]cubage.Buckets, 0, len(rows))
	for _, s := range rows {
		buckets = append(buckets, cubage.Buckets{
			Below:   s.VolBelowV1,
			Between: s.VolBetweenV1V2,
			Above:   s.VolAboveV2,
		})
	}
	agg := cubage.Aggregate(buckets)
	resp := &api.StatsResponse{}
	conv := func(c cubage.ColumnStats) api.StatsColumn {
		return api.StatsColumn{Sum: c.Sum, Count: c.Count, Avg: c.Avg}
	}
	resp.Columns.LtV1 = conv(agg.BelowV1)
	resp.Columns.Between = conv(agg.BetweenV)
	resp.Columns.GeV2 = conv(agg.AboveV2)
	resp.Total = conv(agg.Total)
	return resp, nil
}
