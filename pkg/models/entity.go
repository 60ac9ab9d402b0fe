package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Category is the top-level classification of a Legion entity
type Category string

func (c Category) String() string {
	return string(c)
}

const (
	// CategoryDevice is a physical or logical unit that contains entities.
	CategoryDevice Category = "DEVICE"
	// CategoryUXV is an unmanned vehicle such as a UAV.
	CategoryUXV Category = "UXV"
)

// CreateEntityRequest is the body of POST /v3/entities
type CreateEntityRequest struct {
	OrganizationID uuid.UUID        `json:"organization_id"`
	Name           string           `json:"name"`
	Category       Category         `json:"category"`
	Type           string           `json:"type"`
	Status         string           `json:"status"`
	Metadata       *json.RawMessage `json:"metadata,omitempty"`
}

// EntityResponse is an entity as returned by the API
type EntityResponse struct {
	ID             uuid.UUID        `json:"id"`
	OrganizationID uuid.UUID        `json:"organization_id"`
	Name           string           `json:"name"`
	Category       Category         `json:"category"`
	Type           string           `json:"type"`
	Status         string           `json:"status"`
	Metadata       *json.RawMessage `json:"metadata,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
	DeletedAt      *time.Time       `json:"deleted_at,omitempty"`
}

// Paging contains optional next and previous page numbers
type Paging struct {
	Next     *int `json:"next"`
	Previous *int `json:"previous"`
}

// EntityPaginatedResponse is one page of entities
type EntityPaginatedResponse struct {
	Results    []EntityResponse `json:"results"`
	TotalCount int              `json:"total_count"`
	Paging     Paging           `json:"paging,omitempty"`
}

// SearchFilters narrows an entity search
type SearchFilters struct {
	Name     string     `json:"name,omitempty"`
	Category []Category `json:"category,omitempty"`
	Types    []string   `json:"types,omitempty"`
}

// SearchEntitiesRequest is the body of POST /v3/entities/search
type SearchEntitiesRequest struct {
	OrganizationID uuid.UUID      `json:"organization_id"`
	Filters        *SearchFilters `json:"filters,omitempty"`
}
