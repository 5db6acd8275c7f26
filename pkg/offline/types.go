// Package offline implements the synchronization coordinator and the local
// cache for field data entry. Reads go online-first with cache fallback;
// writes are optimistic: applied to the cache immediately and queued for
// replay when connectivity returns. The store owns all cached rows, indexes
// and queues, and the coordinator is their only writer.
package offline

import (
	"time"

	"github.com/matthieubouillot/cubage-app-fbbois-sub000/pkg/api"
	"github.com/matthieubouillot/cubage-app-fbbois-sub000/pkg/store"
)

// Saisie is a measurement row as cached locally. Synced reports whether the
// id is server-issued; a row created offline keeps Synced=false until its
// queued create is replayed. Volume fields are nil while the server-side
// computation is pending, so placeholders never leak into statistics.
type Saisie struct {
	ID              string      `msgpack:"id"`
	Synced          bool        `msgpack:"synced"`
	Date            time.Time   `msgpack:"date"`
	Numero          int         `msgpack:"numero"`
	Longueur        float64     `msgpack:"longueur"`
	Diametre        float64     `msgpack:"diametre"`
	VolumeNet       *float64    `msgpack:"volumeNet"`
	VolBelowV1      *float64    `msgpack:"volBelowV1"`
	VolBetweenV1V2  *float64    `msgpack:"volBetweenV1V2"`
	VolAboveV2      *float64    `msgpack:"volAboveV2"`
	Annotation      string      `msgpack:"annotation"`
	ChantierID      string      `msgpack:"chantierId"`
	QualiteID       string      `msgpack:"qualiteId"`
	RecordedBy      api.Worker  `msgpack:"recordedBy"`
	SecondaryWorker *api.Worker `msgpack:"secondaryWorker"`
}

// fromServer converts a gateway row into a cached row. Server rows are
// synced by definition and carry computed volumes.
func fromServer(s api.Saisie) Saisie {
	volumeNet := s.VolumeNet
	below := s.VolBelowV1
	between := s.VolBetweenV1V2
	above := s.VolAboveV2
	return Saisie{
		ID:              s.ID,
		Synced:          true,
		Date:            s.Date,
		Numero:          s.Numero,
		Longueur:        s.Longueur,
		Diametre:        s.Diametre,
		VolumeNet:       &volumeNet,
		VolBelowV1:      &below,
		VolBetweenV1V2:  &between,
		VolAboveV2:      &above,
		Annotation:      s.Annotation,
		ChantierID:      s.ChantierID,
		QualiteID:       s.QualiteID,
		RecordedBy:      s.RecordedBy,
		SecondaryWorker: s.SecondaryWorker,
	}
}

// OpKind discriminates pending operations.
type OpKind string

const (
	OpCreate OpKind = "create"
	OpUpdate OpKind = "update"
	OpDelete OpKind = "delete"
)

// PendingOp is one durable queue entry awaiting replay. Seq is a monotonic
// timestamp assigned at enqueue time; replay drains in Seq order.
type PendingOp struct {
	Seq        int64                    `msgpack:"seq"`
	Kind       OpKind                   `msgpack:"kind"`
	TargetID   string                   `msgpack:"targetId"`
	ChantierID string                   `msgpack:"chantierId"`
	QualiteID  string                   `msgpack:"qualiteId"`
	Create     *api.CreateSaisieRequest `msgpack:"create"`
	Update     *api.UpdateSaisieRequest `msgpack:"update"`
	CreatedAt  time.Time                `msgpack:"createdAt"`
}

// ScopeIndex is the cache ledger for one scope: which ids are cached and
// when the scope was last written. Kept separate from the row data so a
// scope can be evicted without touching others.
type ScopeIndex struct {
	IDs       []string  `msgpack:"ids"`
	UpdatedAt time.Time `msgpack:"updatedAt"`
}

// CreateInput is a worker's new-row submission.
type CreateInput struct {
	ChantierID      string
	QualiteID       string
	Longueur        float64
	Diametre        float64
	Annotation      string
	SecondaryWorker *api.Worker
}

// UpdateInput replaces length/diameter/annotation of an existing row.
// A nil Annotation leaves the cached annotation untouched.
type UpdateInput struct {
	ChantierID string
	QualiteID  string
	Longueur   float64
	Diametre   float64
	Annotation *string
}

// Cache collections. Schema version 2 added the chantier collections;
// version 1 stores upgrade in place without data loss.
var (
	colSaisies       = store.NewCollection("saisies")
	colSaisieIndex   = store.NewCollection("saisie_index")
	colSaisieQueue   = store.NewCollection("saisie_queue")
	colChantiers     = store.NewCollection("chantiers")
	colChantierIndex = store.NewCollection("chantier_index")
	colChantierQueue = store.NewCollection("chantier_queue")
)

// CacheSchema declares the collections the coordinator needs.
var CacheSchema = store.Schema{
	Version: 2,
	Collections: []string{
		colSaisies.Name(),
		colSaisieIndex.Name(),
		colSaisieQueue.Name(),
		colChantiers.Name(),
		colChantierIndex.Name(),
		colChantierQueue.Name(),
	},
}

const chantierIndexKey = "all"

// Annotation length cap, mirrored from the server-side column limit.
const maxAnnotationLen = 500
