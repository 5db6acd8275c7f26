package offline

import (
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/matthieubouillot/cubage-app-fbbois-sub000/pkg/api"
	"github.com/matthieubouillot/cubage-app-fbbois-sub000/pkg/store"
)

// Cache access helpers. Row and index writes for one logical operation
// always share a transaction: a reader must never see an index entry
// pointing to a missing row, or an orphaned row invisible to list queries.

func putSaisieTx(tx store.Tx, row Saisie) error {
	raw, err := msgpack.Marshal(row)
	if err != nil {
		return fmt.Errorf("encode saisie %s: %w", row.ID, err)
	}
	if err := tx.Set(colSaisies.Key(row.ChantierID, row.QualiteID, row.ID), raw); err != nil {
		return err
	}
	return indexAddTx(tx, row.ChantierID, row.QualiteID, row.ID)
}

func removeSaisieTx(tx store.Tx, chantierID, qualiteID, id string) error {
	if err := tx.Delete(colSaisies.Key(chantierID, qualiteID, id)); err != nil {
		return err
	}
	return indexRemoveTx(tx, chantierID, qualiteID, id)
}

func getSaisieTx(tx store.Tx, chantierID, qualiteID, id string) (*Saisie, error) {
	raw, err := tx.Get(colSaisies.Key(chantierID, qualiteID, id))
	if err != nil {
		return nil, err
	}
	var row Saisie
	if err := msgpack.Unmarshal(raw, &row); err != nil {
		return nil, fmt.Errorf("decode saisie %s: %w", id, err)
	}
	return &row, nil
}

func readScopeIndexTx(tx store.Tx, chantierID, qualiteID string) (*ScopeIndex, error) {
	raw, err := tx.Get(colSaisieIndex.Key(chantierID, qualiteID))
	if err == store.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var idx ScopeIndex
	if err := msgpack.Unmarshal(raw, &idx); err != nil {
		return nil, fmt.Errorf("decode scope index: %w", err)
	}
	return &idx, nil
}

func writeScopeIndexTx(tx store.Tx, chantierID, qualiteID string, idx ScopeIndex) error {
	idx.UpdatedAt = time.Now()
	raw, err := msgpack.Marshal(idx)
	if err != nil {
		return err
	}
	return tx.Set(colSaisieIndex.Key(chantierID, qualiteID), raw)
}

func indexAddTx(tx store.Tx, chantierID, qualiteID, id string) error {
	idx, err := readScopeIndexTx(tx, chantierID, qualiteID)
	if err != nil {
		return err
	}
	if idx == nil {
		idx = &ScopeIndex{}
	}
	for _, existing := range idx.IDs {
		if existing == id {
			return writeScopeIndexTx(tx, chantierID, qualiteID, *idx)
		}
	}
	idx.IDs = append(idx.IDs, id)
	return writeScopeIndexTx(tx, chantierID, qualiteID, *idx)
}

func indexRemoveTx(tx store.Tx, chantierID, qualiteID, id string) error {
	idx, err := readScopeIndexTx(tx, chantierID, qualiteID)
	if err != nil || idx == nil {
		return err
	}
	kept := idx.IDs[:0]
	for _, existing := range idx.IDs {
		if existing != id {
			kept = append(kept, existing)
		}
	}
	idx.IDs = kept
	return writeScopeIndexTx(tx, chantierID, qualiteID, *idx)
}

// replaceScopeTx overwrites a scope with server rows. Unsynced optimistic
// rows survive the overwrite: they are owned by the pending queue, the
// server does not know them yet, and the drain removes them itself.
func replaceScopeTx(tx store.Tx, chantierID, qualiteID string, rows []Saisie) error {
	var unsynced []Saisie
	idx, err := readScopeIndexTx(tx, chantierID, qualiteID)
	if err != nil {
		return err
	}
	if idx != nil {
		for _, id := range idx.IDs {
			row, err := getSaisieTx(tx, chantierID, qualiteID, id)
			if err == store.ErrKeyNotFound {
				continue
			}
			if err != nil {
				return err
			}
			if !row.Synced {
				unsynced = append(unsynced, *row)
			}
		}
	}

	if err := store.DeletePrefix(tx, colSaisies.Prefix(chantierID, qualiteID)); err != nil {
		return err
	}

	newIdx := ScopeIndex{IDs: make([]string, 0, len(rows)+len(unsynced))}
	for _, row := range append(rows, unsynced...) {
		raw, err := msgpack.Marshal(row)
		if err != nil {
			return err
		}
		if err := tx.Set(colSaisies.Key(chantierID, qualiteID, row.ID), raw); err != nil {
			return err
		}
		newIdx.IDs = append(newIdx.IDs, row.ID)
	}
	return writeScopeIndexTx(tx, chantierID, qualiteID, newIdx)
}

// loadScope returns cached rows in index order. ok is false when the scope
// has never been cached (as opposed to cached and empty).
func (c *Coordinator) loadScope(chantierID, qualiteID string) ([]Saisie, bool, error) {
	var rows []Saisie
	cached := false
	err := c.store.View(func(tx store.Tx) error {
		idx, err := readScopeIndexTx(tx, chantierID, qualiteID)
		if err != nil || idx == nil {
			return err
		}
		cached = true
		for _, id := range idx.IDs {
			row, err := getSaisieTx(tx, chantierID, qualiteID, id)
			if err == store.ErrKeyNotFound {
				continue
			}
			if err != nil {
				return err
			}
			rows = append(rows, *row)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return rows, cached, nil
}

// Chantier cache.

func putChantierTx(tx store.Tx, ch api.Chantier) error {
	raw, err := msgpack.Marshal(ch)
	if err != nil {
		return fmt.Errorf("encode chantier %s: %w", ch.ID, err)
	}
	if err := tx.Set(colChantiers.Key(ch.ID), raw); err != nil {
		return err
	}
	idx, err := readChantierIndexTx(tx)
	if err != nil {
		return err
	}
	for _, existing := range idx.IDs {
		if existing == ch.ID {
			return writeChantierIndexTx(tx, idx)
		}
	}
	idx.IDs = append(idx.IDs, ch.ID)
	return writeChantierIndexTx(tx, idx)
}

func readChantierIndexTx(tx store.Tx) (ScopeIndex, error) {
	raw, err := tx.Get(colChantierIndex.Key(chantierIndexKey))
	if err == store.ErrKeyNotFound {
		return ScopeIndex{}, nil
	}
	if err != nil {
		return ScopeIndex{}, err
	}
	var idx ScopeIndex
	if err := msgpack.Unmarshal(raw, &idx); err != nil {
		return ScopeIndex{}, fmt.Errorf("decode chantier index: %w", err)
	}
	return idx, nil
}

func writeChantierIndexTx(tx store.Tx, idx ScopeIndex) error {
	idx.UpdatedAt = time.Now()
	raw, err := msgpack.Marshal(idx)
	if err != nil {
		return err
	}
	return tx.Set(colChantierIndex.Key(chantierIndexKey), raw)
}

func getChantierTx(tx store.Tx, id string) (*api.Chantier, error) {
	raw, err := tx.Get(colChantiers.Key(id))
	if err != nil {
		return nil, err
	}
	var ch api.Chantier
	if err := msgpack.Unmarshal(raw, &ch); err != nil {
		return nil, fmt.Errorf("decode chantier %s: %w", id, err)
	}
	return &ch, nil
}

// evictChantierTx removes a site entry, its index membership, and every
// cached row and scope index under it.
func evictChantierTx(tx store.Tx, id string) error {
	if err := tx.Delete(colChantiers.Key(id)); err != nil {
		return err
	}
	idx, err := readChantierIndexTx(tx)
	if err != nil {
		return err
	}
	kept := idx.IDs[:0]
	for _, existing := range idx.IDs {
		if existing != id {
			kept = append(kept, existing)
		}
	}
	idx.IDs = kept
	if err := writeChantierIndexTx(tx, idx); err != nil {
		return err
	}
	if err := store.DeletePrefix(tx, colSaisies.Prefix(id)); err != nil {
		return err
	}
	return store.DeletePrefix(tx, colSaisieIndex.Prefix(id))
}
