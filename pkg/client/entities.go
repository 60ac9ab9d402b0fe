package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/picogrid/legion-rendezvous/pkg/models"
)

// CreateEntity creates a new entity in Legion
func (c *Legion) CreateEntity(ctx context.Context, req *models.CreateEntityRequest) (*models.EntityResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/v3/entities", req)
	if err != nil {
		return nil, fmt.Errorf("failed to create entity: %w", err)
	}

	var entity models.EntityResponse
	if err := decodeResponse(resp, &entity); err != nil {
		return nil, fmt.Errorf("failed to decode entity response: %w", err)
	}

	return &entity, nil
}

// SearchEntities searches for entities based on the provided criteria
func (c *Legion) SearchEntities(ctx context.Context, req *models.SearchEntitiesRequest) (*models.EntityPaginatedResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/v3/entities/search", req)
	if err != nil {
		return nil, fmt.Errorf("failed to search entities: %w", err)
	}

	var result models.EntityPaginatedResponse
	if err := decodeResponse(resp, &result); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	return &result, nil
}
