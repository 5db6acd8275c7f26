package offline

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/matthieubouillot/cubage-app-fbbois-sub000/pkg/api"
	"github.com/matthieubouillot/cubage-app-fbbois-sub000/pkg/cubage"
	"github.com/matthieubouillot/cubage-app-fbbois-sub000/pkg/session"
	"github.com/matthieubouillot/cubage-app-fbbois-sub000/pkg/store"
)

// Gateway is the remote data API surface the coordinator drives. Implemented
// by api.Client; tests substitute a fake.
type Gateway interface {
	ListChantiers(ctx context.Context) ([]api.Chantier, error)
	GetChantier(ctx context.Context, id string) (*api.Chantier, error)
	DeleteChantier(ctx context.Context, id string) error
	ListSaisies(ctx context.Context, chantierID, qualiteID string) ([]api.Saisie, error)
	CreateSaisie(ctx context.Context, req api.CreateSaisieRequest) (*api.Saisie, error)
	UpdateSaisie(ctx context.Context, id string, req api.UpdateSaisieRequest) (*api.Saisie, error)
	DeleteSaisie(ctx context.Context, id string) error
	GetSaisieStats(ctx context.Context, chantierID, qualiteID string) (*api.StatsResponse, error)
}

// Coordinator orchestrates online-first reads, optimistic writes and queue
// replay over the local cache. It is the only writer of the store.
type Coordinator struct {
	store    store.Store
	gateway  Gateway
	conn     Connectivity
	session  session.Session
	logger   *zap.Logger
	clock    *seqClock
	events   notifier
	draining atomic.Bool
}

// New prepares the cache schema and returns a coordinator.
func New(st store.Store, gw Gateway, conn Connectivity, sess session.Session, logger *zap.Logger) (*Coordinator, error) {
	if err := store.EnsureSchema(st, CacheSchema); err != nil {
		return nil, fmt.Errorf("prepare cache schema: %w", err)
	}
	return &Coordinator{
		store:   st,
		gateway: gw,
		conn:    conn,
		session: sess,
		logger:  logger.Named("offline"),
		clock:   newSeqClock(),
	}, nil
}

// OnChange registers a callback fired after every cache-mutating operation,
// including queue drains. Subscribers refresh views instead of polling.
func (c *Coordinator) OnChange(fn ChangeCallback) {
	c.events.subscribe(fn)
}

// ConnectivityRestored reacts to an online transition by draining the
// pending queue. Replay failures are not surfaced here: failed items stay
// queued for the next restoration.
func (c *Coordinator) ConnectivityRestored(ctx context.Context) {
	if err := c.TrySyncQueue(ctx); err != nil {
		c.logger.Warn("background queue drain incomplete", zap.Error(err))
	}
}

// ListSaisies returns the rows of one scope: server data when reachable
// (mirrored into the cache), cached rows otherwise, an empty slice when the
// scope was never cached. Never fails for connectivity reasons.
func (c *Coordinator) ListSaisies(ctx context.Context, chantierID, qualiteID string) ([]Saisie, error) {
	if c.conn.IsOnline() {
		serverRows, err := c.gateway.ListSaisies(ctx, chantierID, qualiteID)
		if err == nil {
			rows := make([]Saisie, 0, len(serverRows))
			for _, s := range serverRows {
				rows = append(rows, fromServer(s))
			}
			if err := c.store.Update(func(tx store.Tx) error {
				return replaceScopeTx(tx, chantierID, qualiteID, rows)
			}); err != nil {
				return nil, err
			}
			return rows, nil
		}
		c.logger.Debug("list saisies falling back to cache", zap.Error(err))
	}

	rows, cached, err := c.loadScope(chantierID, qualiteID)
	if err != nil {
		return nil, err
	}
	if !cached {
		return []Saisie{}, nil
	}
	return rows, nil
}

func validateInput(longueur, diametre float64, annotation string) error {
	if err := cubage.ValidateDimensions(longueur, diametre); err != nil {
		return err
	}
	if len(annotation) > maxAnnotationLen {
		return fmt.Errorf("%w: annotation exceeds %d characters", cubage.ErrValidation, maxAnnotationLen)
	}
	return nil
}

func newTempID(seq int64) string {
	return fmt.Sprintf("tmp_%d_%s", seq, strings.ReplaceAll(uuid.NewString()[:8], "-", ""))
}

// CreateSaisie records a new measurement row. Online, the server assigns id,
// numero and volumes. Offline, an optimistic row with a temp id and a
// provisional numero is cached and a create is queued; the call returns
// immediately without touching the network.
func (c *Coordinator) CreateSaisie(ctx context.Context, input CreateInput) (*Saisie, error) {
	if err := validateInput(input.Longueur, input.Diametre, input.Annotation); err != nil {
		return nil, err
	}
	user, ok := c.session.CurrentUser()
	if !ok {
		return nil, ErrNoSession
	}

	if c.conn.IsOnline() {
		created, err := c.gateway.CreateSaisie(ctx, api.CreateSaisieRequest{
			ChantierID: input.ChantierID,
			QualiteID:  input.QualiteID,
			Longueur:   input.Longueur,
			Diametre:   input.Diametre,
			Annotation: input.Annotation,
		})
		if err != nil {
			// Believed-online failure: surface it, the caller decides
			// whether to retry.
			return nil, err
		}
		row := fromServer(*created)
		if err := c.store.Update(func(tx store.Tx) error {
			return putSaisieTx(tx, row)
		}); err != nil {
			return nil, err
		}
		c.events.notify(ChangeEvent{Resource: ResourceSaisies, ChantierID: input.ChantierID, QualiteID: input.QualiteID})
		return &row, nil
	}

	numero, err := c.nextLocalNumero(input.ChantierID, input.QualiteID, user)
	if err != nil {
		return nil, err
	}

	seq := c.clock.Now()
	now := time.Now()
	row := Saisie{
		ID:         newTempID(seq),
		Synced:     false,
		Date:       now,
		Numero:     numero,
		Longueur:   input.Longueur,
		Diametre:   input.Diametre,
		Annotation: input.Annotation,
		ChantierID: input.ChantierID,
		QualiteID:  input.QualiteID,
		RecordedBy: api.Worker{
			ID:        user.ID,
			FirstName: user.FirstName,
			LastName:  user.LastName,
		},
		SecondaryWorker: input.SecondaryWorker,
	}

	op := PendingOp{
		Seq:        seq,
		Kind:       OpCreate,
		TargetID:   row.ID,
		ChantierID: input.ChantierID,
		QualiteID:  input.QualiteID,
		Create: &api.CreateSaisieRequest{
			ChantierID: input.ChantierID,
			QualiteID:  input.QualiteID,
			Longueur:   input.Longueur,
			Diametre:   input.Diametre,
			Annotation: input.Annotation,
		},
		CreatedAt: now,
	}

	if err := c.store.Update(func(tx store.Tx) error {
		if err := putSaisieTx(tx, row); err != nil {
			return err
		}
		return enqueueTx(tx, colSaisieQueue, op)
	}); err != nil {
		return nil, err
	}

	c.logger.Info("saisie created offline",
		zap.String("temp_id", row.ID),
		zap.Int("numero", numero),
		zap.String("chantier_id", input.ChantierID))
	c.events.notify(ChangeEvent{Resource: ResourceSaisies, ChantierID: input.ChantierID, QualiteID: input.QualiteID})
	return &row, nil
}

// UpdateSaisie replaces length/diameter/annotation of a row. Offline, the
// partial payload is merged onto the cached row, preserving numero and
// date, and an update is queued under the row's current id.
func (c *Coordinator) UpdateSaisie(ctx context.Context, id string, input UpdateInput) (*Saisie, error) {
	annotation := ""
	if input.Annotation != nil {
		annotation = *input.Annotation
	}
	if err := validateInput(input.Longueur, input.Diametre, annotation); err != nil {
		return nil, err
	}

	if c.conn.IsOnline() {
		// A temp id the server never saw cannot be updated remotely;
		// fall through to the local merge and let the queued create's
		// replay carry the final values.
		synced := true
		if err := c.store.View(func(tx store.Tx) error {
			row, err := getSaisieTx(tx, input.ChantierID, input.QualiteID, id)
			if err == store.ErrKeyNotFound {
				return nil
			}
			if err != nil {
				return err
			}
			synced = row.Synced
			return nil
		}); err != nil {
			return nil, err
		}

		if synced {
			updated, err := c.gateway.UpdateSaisie(ctx, id, api.UpdateSaisieRequest{
				Longueur:   input.Longueur,
				Diametre:   input.Diametre,
				Annotation: annotation,
			})
			if err != nil {
				return nil, err
			}
			row := fromServer(*updated)
			if err := c.store.Update(func(tx store.Tx) error {
				return putSaisieTx(tx, row)
			}); err != nil {
				return nil, err
			}
			c.events.notify(ChangeEvent{Resource: ResourceSaisies, ChantierID: input.ChantierID, QualiteID: input.QualiteID})
			return &row, nil
		}
	}

	var merged Saisie
	err := c.store.Update(func(tx store.Tx) error {
		row, err := getSaisieTx(tx, input.ChantierID, input.QualiteID, id)
		if err == store.ErrKeyNotFound {
			return fmt.Errorf("saisie %s: %w", id, ErrOfflineUnavailable)
		}
		if err != nil {
			return err
		}

		row.Longueur = input.Longueur
		row.Diametre = input.Diametre
		if input.Annotation != nil {
			row.Annotation = *input.Annotation
		}
		// Volumes correspond to the old dimensions; clear them until the
		// server recomputes.
		row.VolumeNet = nil
		row.VolBelowV1 = nil
		row.VolBetweenV1V2 = nil
		row.VolAboveV2 = nil

		if err := putSaisieTx(tx, *row); err != nil {
			return err
		}

		if row.Synced {
			// Only server-known rows need a queued update; a pending
			// create replays the merged values by itself below.
			if err := enqueueTx(tx, colSaisieQueue, PendingOp{
				Seq:        c.clock.Now(),
				Kind:       OpUpdate,
				TargetID:   id,
				ChantierID: input.ChantierID,
				QualiteID:  input.QualiteID,
				Update: &api.UpdateSaisieRequest{
					Longueur:   input.Longueur,
					Diametre:   input.Diametre,
					Annotation: row.Annotation,
				},
				CreatedAt: time.Now(),
			}); err != nil {
				return err
			}
		} else if err := rewriteQueuedCreateTx(tx, id, input.Longueur, input.Diametre, row.Annotation); err != nil {
			return err
		}

		merged = *row
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.events.notify(ChangeEvent{Resource: ResourceSaisies, ChantierID: input.ChantierID, QualiteID: input.QualiteID})
	return &merged, nil
}

// DeleteSaisie removes a row. A row still under a temp id is purged locally
// together with every queued operation referencing it: the server never saw
// the id, so no network call may mention it.
func (c *Coordinator) DeleteSaisie(ctx context.Context, chantierID, qualiteID, id string) error {
	tempRow := false
	if err := c.store.View(func(tx store.Tx) error {
		row, err := getSaisieTx(tx, chantierID, qualiteID, id)
		if err == store.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		tempRow = !row.Synced
		return nil
	}); err != nil {
		return err
	}

	if tempRow {
		if err := c.store.Update(func(tx store.Tx) error {
			if err := removeSaisieTx(tx, chantierID, qualiteID, id); err != nil {
				return err
			}
			return dropOpsForTargetTx(tx, colSaisieQueue, id)
		}); err != nil {
			return err
		}
		c.events.notify(ChangeEvent{Resource: ResourceSaisies, ChantierID: chantierID, QualiteID: qualiteID})
		return nil
	}

	if c.conn.IsOnline() {
		if err := c.gateway.DeleteSaisie(ctx, id); err != nil {
			return err
		}
		if err := c.store.Update(func(tx store.Tx) error {
			if err := removeSaisieTx(tx, chantierID, qualiteID, id); err != nil {
				return err
			}
			// Queued updates for the row would replay against the gone id
			// and wedge the drain on a permanent 404.
			return dropOpsForTargetTx(tx, colSaisieQueue, id)
		}); err != nil {
			return err
		}
		c.events.notify(ChangeEvent{Resource: ResourceSaisies, ChantierID: chantierID, QualiteID: qualiteID})
		return nil
	}

	if err := c.store.Update(func(tx store.Tx) error {
		if err := removeSaisieTx(tx, chantierID, qualiteID, id); err != nil {
			return err
		}
		return enqueueTx(tx, colSaisieQueue, PendingOp{
			Seq:        c.clock.Now(),
			Kind:       OpDelete,
			TargetID:   id,
			ChantierID: chantierID,
			QualiteID:  qualiteID,
			CreatedAt:  time.Now(),
		})
	}); err != nil {
		return err
	}
	c.events.notify(ChangeEvent{Resource: ResourceSaisies, ChantierID: chantierID, QualiteID: qualiteID})
	return nil
}

// rewriteQueuedCreateTx folds updated dimensions into the still-queued
// create for a temp row, so the eventual replay submits the latest values.
func rewriteQueuedCreateTx(tx store.Tx, tempID string, longueur, diametre float64, annotation string) error {
	return rewriteOpsTx(tx, colSaisieQueue, func(op *PendingOp) bool {
		if op.Kind != OpCreate || op.TargetID != tempID || op.Create == nil {
			return false
		}
		op.Create.Longueur = longueur
		op.Create.Diametre = diametre
		op.Create.Annotation = annotation
		return true
	})
}
