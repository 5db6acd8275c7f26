// Package api is the typed HTTP gateway to the remote cubage data API. It
// wraps one endpoint per method, attaches the bearer credential, and maps
// failures into APIError (server said no) or NetworkError (never reached the
// server). Retry and offline fallback policy belong to the caller.
package api

import "time"

// Worker identifies a user on a measurement row.
type Worker struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// QualityGroup is one quality/essence association on a chantier.
type QualityGroup struct {
	ID          string   `json:"id"`
	Essences    []string `json:"essences"`
	BarkPercent float64  `json:"pourcentageEcorce"`
	Scierie     string   `json:"scierie"`
	Lot         string   `json:"lot,omitempty"`
	Convention  string   `json:"convention,omitempty"`
}

// Chantier is a logging site.
type Chantier struct {
	ID               string         `json:"id"`
	Reference        string         `json:"reference"`
	ClientID         string         `json:"clientId"`
	Propriete        string         `json:"propriete,omitempty"`
	QualityGroups    []QualityGroup `json:"qualites"`
	Workers          []Worker       `json:"ouvriers"`
	SecondaryWorkers []Worker       `json:"ouvriersSecondaires,omitempty"`
}

// Saisie is one measurement row as the server returns it: id and numero are
// always server-assigned, volumes are server-computed.
type Saisie struct {
	ID              string    `json:"id"`
	Date            time.Time `json:"date"`
	Numero          int       `json:"numero"`
	Longueur        float64   `json:"longueur"`
	Diametre        float64   `json:"diametre"`
	VolumeNet       float64   `json:"volumeNet"`
	VolBelowV1      float64   `json:"volBelowV1"`
	VolBetweenV1V2  float64   `json:"volBetweenV1V2"`
	VolAboveV2      float64   `json:"volAboveV2"`
	Annotation      string    `json:"annotation,omitempty"`
	ChantierID      string    `json:"chantierId"`
	QualiteID       string    `json:"qualiteId"`
	RecordedBy      Worker    `json:"recordedByUser"`
	SecondaryWorker *Worker   `json:"secondaryWorker,omitempty"`
}

// CreateSaisieRequest is the POST /saisies payload.
type CreateSaisieRequest struct {
	ChantierID string  `json:"chantierId"`
	QualiteID  string  `json:"qualiteId"`
	Longueur   float64 `json:"longueur"`
	Diametre   float64 `json:"diametre"`
	Annotation string  `json:"annotation,omitempty"`
}

// UpdateSaisieRequest is the PATCH /saisies/:id payload. Volume fields are
// never sent: the server always recomputes them from length and diameter.
type UpdateSaisieRequest struct {
	Longueur   float64 `json:"longueur"`
	Diametre   float64 `json:"diametre"`
	Annotation string  `json:"annotation,omitempty"`
}

// StatsColumn is one aggregated threshold band.
type StatsColumn struct {
	Sum   float64 `json:"sum"`
	Count int     `json:"count"`
	Avg   float64 `json:"avg"`
}

// StatsResponse mirrors GET /saisies/stats.
type StatsResponse struct {
	Columns struct {
		LtV1    StatsColumn `json:"ltV1"`
		Between StatsColumn `json:"between"`
		GeV2    StatsColumn `json:"geV2"`
	} `json:"columns"`
	Total StatsColumn `json:"total"`
}

type okResponse struct {
	OK bool `json:"ok"`
}
