package courtclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/config"
	"github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/domain"
	"github.com/SCRMS-FPT/SCRMS-BE-sub001/pkg/clients"
)

type ownerResponse struct {
	CourtID       uuid.UUID `json:"court_id"`
	SportCenterID uuid.UUID `json:"sport_center_id"`
	OwnerID       uuid.UUID `json:"owner_id"`
}

// Client asks the court service who owns a court.
type Client struct {
	url    string
	client clients.HTTPClientI
}

func New(cfg *config.Config, client clients.HTTPClientI) *Client {
	return &Client{
		url:    cfg.CourtServiceAddress,
		client: client,
	}
}

func (c *Client) FindOwnerID(ctx context.Context, courtID uuid.UUID) (uuid.UUID, error) {
	url := c.url + "/api/courts/" + courtID.String() + "/owner"
	statusCode, body, err := c.client.Get(ctx, url, http.Header{"Accept": []string{"application/json"}})
	if err != nil {
		zap.L().Error("court service request failed", zap.String("url", url), zap.Error(err))
		return uuid.Nil, fmt.Errorf("court service: %w", err)
	}

	switch statusCode {
	case http.StatusOK:
		var resp ownerResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return uuid.Nil, fmt.Errorf("failed to parse court service response: %w", err)
		}
		if resp.OwnerID == uuid.Nil {
			return uuid.Nil, domain.NotFound("court %s has no owner", courtID)
		}
		return resp.OwnerID, nil
	case http.StatusNotFound:
		return uuid.Nil, domain.NotFound("court %s not found in court service", courtID)
	default:
		zap.L().Error("Unexpected status code", zap.Int("status", statusCode), zap.Stringer("court", courtID))
		return uuid.Nil, fmt.Errorf("court service answered %d", statusCode)
	}
}
