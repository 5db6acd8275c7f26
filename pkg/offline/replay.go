package offline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/matthieubouillot/cubage-app-fbbois-sub000/pkg/store"
)

// TrySyncQueue drains the pending-operation queues through the gateway,
// oldest first. It is single-flight: a concurrent invocation returns
// immediately instead of queueing behind the running drain. The first
// failing item halts the pass (skipping it and continuing could replay an
// update for a row whose create is still queued) and stays queued for the
// next attempt. One change event is emitted after the pass, complete or not.
func (c *Coordinator) TrySyncQueue(ctx context.Context) error {
	if !c.conn.IsOnline() {
		return nil
	}
	if !c.draining.CompareAndSwap(false, true) {
		return nil
	}
	defer c.draining.Store(false)
	defer c.events.notify(ChangeEvent{Resource: ResourceQueue})

	if err := c.drainSaisieQueue(ctx); err != nil {
		return err
	}
	return c.drainChantierQueue(ctx)
}

func (c *Coordinator) drainSaisieQueue(ctx context.Context) error {
	ops, err := loadQueue(c.store, colSaisieQueue)
	if err != nil {
		return err
	}
	if len(ops) == 0 {
		return nil
	}

	c.logger.Info("draining saisie queue", zap.Int("pending", len(ops)))

	// Temp ids resolved during this pass: creates record the server id the
	// gateway assigned, later updates/deletes for the same row follow it.
	remap := make(map[string]string)

	for _, entry := range ops {
		if err := c.replaySaisieOp(ctx, entry, remap); err != nil {
			c.logger.Warn("queue drain halted",
				zap.Int64("seq", entry.op.Seq),
				zap.String("kind", string(entry.op.Kind)),
				zap.Error(err))
			return err
		}
	}
	return nil
}

func (c *Coordinator) replaySaisieOp(ctx context.Context, entry queuedOp, remap map[string]string) error {
	op := entry.op

	switch op.Kind {
	case OpCreate:
		if op.Create == nil {
			return fmt.Errorf("queued create %d has no payload", op.Seq)
		}
		created, err := c.gateway.CreateSaisie(ctx, *op.Create)
		if err != nil {
			return err
		}
		row := fromServer(*created)
		remap[op.TargetID] = created.ID
		return c.store.Update(func(tx store.Tx) error {
			if err := removeSaisieTx(tx, op.ChantierID, op.QualiteID, op.TargetID); err != nil {
				return err
			}
			if err := putSaisieTx(tx, row); err != nil {
				return err
			}
			return tx.Delete(entry.key)
		})

	case OpUpdate:
		if op.Update == nil {
			return fmt.Errorf("queued update %d has no payload", op.Seq)
		}
		id, err := c.resolveTargetID(op, remap)
		if err != nil {
			return err
		}
		updated, err := c.gateway.UpdateSaisie(ctx, id, *op.Update)
		if err != nil {
			return err
		}
		row := fromServer(*updated)
		return c.store.Update(func(tx store.Tx) error {
			if err := putSaisieTx(tx, row); err != nil {
				return err
			}
			return tx.Delete(entry.key)
		})

	case OpDelete:
		id, err := c.resolveTargetID(op, remap)
		if err != nil {
			return err
		}
		if err := c.gateway.DeleteSaisie(ctx, id); err != nil {
			return err
		}
		return c.store.Update(func(tx store.Tx) error {
			if err := removeSaisieTx(tx, op.ChantierID, op.QualiteID, id); err != nil {
				return err
			}
			return tx.Delete(entry.key)
		})

	default:
		return fmt.Errorf("unknown queued op kind %q", op.Kind)
	}
}

// resolveTargetID maps a queued operation's target onto the id the server
// knows. A target remapped by an earlier create in this pass uses the
// server id; a target that is still an unsynced temp row means the queue
// is out of causal order and the drain must stop.
func (c *Coordinator) resolveTargetID(op PendingOp, remap map[string]string) (string, error) {
	if mapped, ok := remap[op.TargetID]; ok {
		return mapped, nil
	}

	unsynced := false
	err := c.store.View(func(tx store.Tx) error {
		row, err := getSaisieTx(tx, op.ChantierID, op.QualiteID, op.TargetID)
		if err == store.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		unsynced = !row.Synced
		return nil
	})
	if err != nil {
		return "", err
	}
	if unsynced {
		return "", fmt.Errorf("op %d target %s: %w", op.Seq, op.TargetID, errUnresolvedTempID)
	}
	return op.TargetID, nil
}

func (c *Coordinator) drainChantierQueue(ctx context.Context) error {
	ops, err := loadQueue(c.store, colChantierQueue)
	if err != nil {
		return err
	}
	if len(ops) == 0 {
		return nil
	}

	c.logger.Info("draining chantier queue", zap.Int("pending", len(ops)))

	for _, entry := range ops {
		if entry.op.Kind != OpDelete {
			return fmt.Errorf("unexpected chantier op kind %q", entry.op.Kind)
		}
		if err := c.gateway.DeleteChantier(ctx, entry.op.TargetID); err != nil {
			c.logger.Warn("chantier queue drain halted",
				zap.String("chantier_id", entry.op.TargetID),
				zap.Error(err))
			return err
		}
		if err := c.store.Update(func(tx store.Tx) error {
			return tx.Delete(entry.key)
		}); err != nil {
			return err
		}
	}
	return nil
}
