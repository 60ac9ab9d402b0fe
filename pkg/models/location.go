package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/picogrid/legion-rendezvous/pkg/geomath"
)

// GeomPoint is a GeoJSON point. Legion positions are ECEF meters (EPSG:4978).
type GeomPoint struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// NewECEFPoint converts a geodetic position into an ECEF GeomPoint
func NewECEFPoint(p geomath.GeoPosition) *GeomPoint {
	x, y, z := geomath.LatLonAltToECEF(p)
	return &GeomPoint{Type: "Point", Coordinates: []float64{x, y, z}}
}

// CreateEntityLocationRequest is the body of POST /v3/entities/{id}/locations
type CreateEntityLocationRequest struct {
	Position   *GeomPoint `json:"position"`
	Source     string     `json:"source,omitempty"`
	RecordedAt *time.Time `json:"recorded_at,omitempty"`
}

// EntityLocationResponse is an entity location as returned by the API
type EntityLocationResponse struct {
	ID         uuid.UUID  `json:"id"`
	EntityID   uuid.UUID  `json:"entity_id"`
	Position   *GeomPoint `json:"position"`
	Source     string     `json:"source,omitempty"`
	RecordedAt *time.Time `json:"recorded_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
