package offline

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/matthieubouillot/cubage-app-fbbois-sub000/pkg/store"
)

// queuedOp pairs a decoded pending operation with its storage key, so a
// replay pass can delete exactly the entry it just applied.
type queuedOp struct {
	key []byte
	op  PendingOp
}

func queueKey(col store.Collection, seq int64) []byte {
	// Fixed-width hex keeps lexicographic key order equal to Seq order.
	return col.Key(fmt.Sprintf("%016x", uint64(seq)))
}

func enqueueTx(tx store.Tx, col store.Collection, op PendingOp) error {
	raw, err := msgpack.Marshal(op)
	if err != nil {
		return fmt.Errorf("encode pending op: %w", err)
	}
	return tx.Set(queueKey(col, op.Seq), raw)
}

// loadQueue returns all pending operations in FIFO order.
func loadQueue(s store.Store, col store.Collection) ([]queuedOp, error) {
	var ops []queuedOp
	err := s.View(func(tx store.Tx) error {
		return store.ScanPrefix(tx, col.Prefix(), func(k, v []byte) error {
			var op PendingOp
			if err := msgpack.Unmarshal(v, &op); err != nil {
				return fmt.Errorf("decode pending op: %w", err)
			}
			ops = append(ops, queuedOp{key: append([]byte(nil), k...), op: op})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return ops, nil
}

// dropOpsForTargetTx deletes every queued operation referencing targetID.
// Used when a row created offline is deleted before any sync attempt: the
// create and delete cancel out, and no network call may ever carry the
// temp id.
func dropOpsForTargetTx(tx store.Tx, col store.Collection, targetID string) error {
	var keys [][]byte
	err := store.ScanPrefix(tx, col.Prefix(), func(k, v []byte) error {
		var op PendingOp
		if err := msgpack.Unmarshal(v, &op); err != nil {
			return fmt.Errorf("decode pending op: %w", err)
		}
		if op.TargetID == targetID {
			keys = append(keys, append([]byte(nil), k...))
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := tx.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

// rewriteOpsTx rewrites queue entries in place. fn mutates the decoded op
// and reports whether it changed; changed entries are re-encoded under the
// same key, keeping their position in the FIFO order.
func rewriteOpsTx(tx store.Tx, col store.Collection, fn func(op *PendingOp) bool) error {
	type rewrite struct {
		key []byte
		op  PendingOp
	}
	var changed []rewrite
	err := store.ScanPrefix(tx, col.Prefix(), func(k, v []byte) error {
		var op PendingOp
		if err := msgpack.Unmarshal(v, &op); err != nil {
			return fmt.Errorf("decode pending op: %w", err)
		}
		if fn(&op) {
			changed = append(changed, rewrite{key: append([]byte(nil), k...), op: op})
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, r := range changed {
		raw, err := msgpack.Marshal(r.op)
		if err != nil {
			return err
		}
		if err := tx.Set(r.key, raw); err != nil {
			return err
		}
	}
	return nil
}

// dropOpsForChantierTx deletes every queued row operation scoped to a
// chantier. Deleting a site makes its queued row mutations meaningless, and
// replaying them against a gone site would halt the queue on a permanent
// error.
func dropOpsForChantierTx(tx store.Tx, col store.Collection, chantierID string) error {
	var keys [][]byte
	err := store.ScanPrefix(tx, col.Prefix(), func(k, v []byte) error {
		var op PendingOp
		if err := msgpack.Unmarshal(v, &op); err != nil {
			return fmt.Errorf("decode pending op: %w", err)
		}
		if op.ChantierID == chantierID {
			keys = append(keys, append([]byte(nil), k...))
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := tx.Delete(k); err != nil {
			return err
		}
	}
	return nil
}
