package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Client talks to the remote data API. It performs no retries of its own:
// replaying failed mutations is the sync coordinator's job.
type Client struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewClient creates a gateway for the given base URL and bearer token.
func NewClient(baseURL, token string, logger *zap.Logger) *Client {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second).
		SetAuthToken(token).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{
		httpClient: client,
		logger:     logger.Named("api"),
	}
}

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// wrap converts a resty outcome into the gateway error taxonomy.
func wrap(resp *resty.Response, err error) error {
	if err != nil {
		return &NetworkError{Err: err}
	}
	if resp.IsError() {
		msg := ""
		var body errorBody
		if jsonErr := json.Unmarshal(resp.Body(), &body); jsonErr == nil {
			if body.Message != "" {
				msg = body.Message
			} else {
				msg = body.Error
			}
		}
		return &APIError{Status: resp.StatusCode(), Message: msg}
	}
	return nil
}

// ListChantiers fetches all site summaries.
func (c *Client) ListChantiers(ctx context.Context) ([]Chantier, error) {
	var result []Chantier
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(&result).
		Get("/chantiers")
	if err := wrap(resp, err); err != nil {
		c.logger.Warn("list chantiers failed", zap.Error(err))
		return nil, err
	}
	return result, nil
}

// GetChantier fetches one site.
func (c *Client) GetChantier(ctx context.Context, id string) (*Chantier, error) {
	var result Chantier
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(&result).
		Get(fmt.Sprintf("/chantiers/%s", id))
	if err := wrap(resp, err); err != nil {
		c.logger.Warn("get chantier failed", zap.String("chantier_id", id), zap.Error(err))
		return nil, err
	}
	return &result, nil
}

// DeleteChantier removes a site. The remote side owns the cascade to rows,
// assignments and fiche data.
func (c *Client) DeleteChantier(ctx context.Context, id string) error {
	var result okResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(&result).
		Delete(fmt.Sprintf("/chantiers/%s", id))
	if err := wrap(resp, err); err != nil {
		c.logger.Warn("delete chantier failed", zap.String("chantier_id", id), zap.Error(err))
		return err
	}
	if !result.OK {
		return &APIError{Status: resp.StatusCode(), Message: "delete refused by server"}
	}
	return nil
}

// ListSaisies fetches the measurement rows of one (chantier, qualité) scope.
func (c *Client) ListSaisies(ctx context.Context, chantierID, qualiteID string) ([]Saisie, error) {
	var result []Saisie
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParam("chantierId", chantierID).
		SetQueryParam("qualiteId", qualiteID).
		SetResult(&result).
		Get("/saisies")
	if err := wrap(resp, err); err != nil {
		c.logger.Warn("list saisies failed",
			zap.String("chantier_id", chantierID),
			zap.String("qualite_id", qualiteID),
			zap.Error(err))
		return nil, err
	}
	return result, nil
}

// CreateSaisie submits a new measurement row. The server assigns the id and
// the durable numero and computes the volumes.
func (c *Client) CreateSaisie(ctx context.Context, req CreateSaisieRequest) (*Saisie, error) {
	var result Saisie
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&result).
		Post("/saisies")
	if err := wrap(resp, err); err != nil {
		c.logger.Warn("create saisie failed",
			zap.String("chantier_id", req.ChantierID),
			zap.Error(err))
		return nil, err
	}
	return &result, nil
}

// UpdateSaisie replaces length/diameter/annotation of an existing row.
func (c *Client) UpdateSaisie(ctx context.Context, id string, req UpdateSaisieRequest) (*Saisie, error) {
	var result Saisie
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&result).
		Patch(fmt.Sprintf("/saisies/%s", id))
	if err := wrap(resp, err); err != nil {
		c.logger.Warn("update saisie failed", zap.String("saisie_id", id), zap.Error(err))
		return nil, err
	}
	return &result, nil
}

// DeleteSaisie removes a row by server id.
func (c *Client) DeleteSaisie(ctx context.Context, id string) error {
	var result okResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(&result).
		Delete(fmt.Sprintf("/saisies/%s", id))
	if err := wrap(resp, err); err != nil {
		c.logger.Warn("delete saisie failed", zap.String("saisie_id", id), zap.Error(err))
		return err
	}
	if !result.OK {
		return &APIError{Status: resp.StatusCode(), Message: "delete refused by server"}
	}
	return nil
}

// GetSaisieStats fetches the server-computed aggregate for one scope.
func (c *Client) GetSaisieStats(ctx context.Context, chantierID, qualiteID string) (*StatsResponse, error) {
	var result StatsResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParam("chantierId", chantierID).
		SetQueryParam("qualiteId", qualiteID).
		SetResult(&result).
		Get("/saisies/stats")
	if err := wrap(resp, err); err != nil {
		c.logger.Warn("get stats failed",
			zap.String("chantier_id", chantierID),
			zap.String("qualite_id", qualiteID),
			zap.Error(err))
		return nil, err
	}
	return &result, nil
}
