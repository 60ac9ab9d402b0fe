package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/picogrid/legion-rendezvous/pkg/models"
)

// CreateEntityLocation creates a new location for an entity
func (c *Legion) CreateEntityLocation(ctx context.Context, entityID string, req *models.CreateEntityLocationRequest) (*models.EntityLocationResponse, error) {
	path := fmt.Sprintf("/v3/entities/%s/locations", entityID)
	resp, err := c.doRequest(ctx, http.MethodPost, path, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create entity location: %w", err)
	}

	var location models.EntityLocationResponse
	if err := decodeResponse(resp, &location); err != nil {
		return nil, fmt.Errorf("failed to decode location response: %w", err)
	}

	return &location, nil
}
