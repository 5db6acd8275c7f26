package offline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/matthieubouillot/cubage-app-fbbois-sub000/pkg/api"
	"github.com/matthieubouillot/cubage-app-fbbois-sub000/pkg/store"
)

// ListChantiers returns all site summaries, online-first with cache
// fallback. An uncached offline list is an empty slice, not an error.
func (c *Coordinator) ListChantiers(ctx context.Context) ([]api.Chantier, error) {
	if c.conn.IsOnline() {
		sites, err := c.gateway.ListChantiers(ctx)
		if err == nil {
			if err := c.store.Update(func(tx store.Tx) error {
				// Sites the server no longer returns are gone: evict their
				// cache entries so offline reads don't serve stale data, and
				// drop their queued row ops before a drain trips over them.
				fresh := make(map[string]bool, len(sites))
				for _, ch := range sites {
					fresh[ch.ID] = true
				}
				old, err := readChantierIndexTx(tx)
				if err != nil {
					return err
				}
				for _, id := range old.IDs {
					if fresh[id] {
						continue
					}
					if err := tx.Delete(colChantiers.Key(id)); err != nil {
						return err
					}
					if err := store.DeletePrefix(tx, colSaisies.Prefix(id)); err != nil {
						return err
					}
					if err := store.DeletePrefix(tx, colSaisieIndex.Prefix(id)); err != nil {
						return err
					}
					if err := dropOpsForChantierTx(tx, colSaisieQueue, id); err != nil {
						return err
					}
				}

				idx := ScopeIndex{IDs: make([]string, 0, len(sites))}
				for _, ch := range sites {
					if err := putChantierTx(tx, ch); err != nil {
						return err
					}
					idx.IDs = append(idx.IDs, ch.ID)
				}
				return writeChantierIndexTx(tx, idx)
			}); err != nil {
				return nil, err
			}
			return sites, nil
		}
		c.logger.Debug("list chantiers falling back to cache", zap.Error(err))
	}

	var sites []api.Chantier
	err := c.store.View(func(tx store.Tx) error {
		idx, err := readChantierIndexTx(tx)
		if err != nil {
			return err
		}
		for _, id := range idx.IDs {
			ch, err := getChantierTx(tx, id)
			if err == store.ErrKeyNotFound {
				continue
			}
			if err != nil {
				return err
			}
			sites = append(sites, *ch)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if sites == nil {
		sites = []api.Chantier{}
	}
	return sites, nil
}

// GetChantier returns one site. With no connectivity and no cache entry the
// read fails with ErrOfflineUnavailable: unlike a row list, a missing site
// cannot be rendered as empty.
func (c *Coordinator) GetChantier(ctx context.Context, id string) (*api.Chantier, error) {
	if c.conn.IsOnline() {
		ch, err := c.gateway.GetChantier(ctx, id)
		if err == nil {
			if err := c.store.Update(func(tx store.Tx) error {
				return putChantierTx(tx, *ch)
			}); err != nil {
				return nil, err
			}
			return ch, nil
		}
		if !api.IsNetworkError(err) {
			return nil, err
		}
		c.logger.Debug("get chantier falling back to cache", zap.String("chantier_id", id), zap.Error(err))
	}

	var cached *api.Chantier
	err := c.store.View(func(tx store.Tx) error {
		ch, err := getChantierTx(tx, id)
		if err == store.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		cached = ch
		return nil
	})
	if err != nil {
		return nil, err
	}
	if cached == nil {
		return nil, fmt.Errorf("chantier %s: %w", id, ErrOfflineUnavailable)
	}
	return cached, nil
}

// DeleteChantier removes a site. The remote side cascades to rows and
// assignments; locally the site entry, its cached rows and their scope
// indexes are evicted, and queued row operations for the site are dropped;
// replaying them against a gone site could only fail.
func (c *Coordinator) DeleteChantier(ctx context.Context, id string) error {
	if c.conn.IsOnline() {
		if err := c.gateway.DeleteChantier(ctx, id); err != nil {
			return err
		}
		if err := c.store.Update(func(tx store.Tx) error {
			if err := evictChantierTx(tx, id); err != nil {
				return err
			}
			return dropOpsForChantierTx(tx, colSaisieQueue, id)
		}); err != nil {
			return err
		}
		c.events.notify(ChangeEvent{Resource: ResourceChantiers, ChantierID: id})
		return nil
	}

	if err := c.store.Update(func(tx store.Tx) error {
		if err := evictChantierTx(tx, id); err != nil {
			return err
		}
		if err := dropOpsForChantierTx(tx, colSaisieQueue, id); err != nil {
			return err
		}
		return enqueueTx(tx, colChantierQueue, PendingOp{
			Seq:        c.clock.Now(),
			Kind:       OpDelete,
			TargetID:   id,
			ChantierID: id,
			CreatedAt:  time.Now(),
		})
	}); err != nil {
		return err
	}
	c.events.notify(ChangeEvent{Resource: ResourceChantiers, ChantierID: id})
	return nil
}
