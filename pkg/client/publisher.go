package client

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/picogrid/legion-rendezvous/pkg/geomath"
	"github.com/picogrid/legion-rendezvous/pkg/logger"
	"github.com/picogrid/legion-rendezvous/pkg/models"
	"github.com/picogrid/legion-rendezvous/pkg/rendezvous"
)

const (
	entityType     = "UAV"
	entityStatus   = "ACTIVE"
	locationSource = "Rendezvous-Simulation"
	publishTimeout = 10 * time.Second
)

// TrackPublisher mirrors every agent as a Legion entity and posts its
// position on each tick. It implements rendezvous.Observer. Publishing
// errors are logged and counted, never returned to the controller.
type TrackPublisher struct {
	client   *Legion
	ctx      context.Context
	orgID    uuid.UUID
	maneuver string
	log      logger.Logger

	mu       sync.Mutex
	entities map[string]string
	failures int
}

// NewTrackPublisher creates a publisher scoped to the given organization
func NewTrackPublisher(ctx context.Context, c *Legion, organizationID, maneuver string) (*TrackPublisher, error) {
	orgID, err := uuid.Parse(organizationID)
	if err != nil {
		return nil, fmt.Errorf("invalid organization ID: %w", err)
	}

	return &TrackPublisher{
		client:   c,
		ctx:      WithOrgID(ctx, orgID.String()),
		orgID:    orgID,
		maneuver: maneuver,
		log:      logger.WithPrefix("legion"),
		entities: make(map[string]string),
	}, nil
}

// EntityName returns the Legion entity name used for agent
func (p *TrackPublisher) EntityName(agent string) string {
	return fmt.Sprintf("Rendezvous %s - %s", p.maneuver, agent)
}

// Failures returns the number of failed publish attempts
func (p *TrackPublisher) Failures() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failures
}

// EnsureEntities finds or creates the entity of every agent
func (p *TrackPublisher) EnsureEntities(agents []string) error {
	for _, agent := range agents {
		if _, err := p.entityFor(agent); err != nil {
			return err
		}
	}
	return nil
}

// OnTick posts one location per agent
func (p *TrackPublisher) OnTick(tr *rendezvous.TickReport) {
	for i, agent := range tr.Agents {
		if err := p.publish(agent, tr.Geo[i], tr.Time); err != nil {
			p.mu.Lock()
			p.failures++
			p.mu.Unlock()
			p.log.WithField("agent", agent).Warnf("Failed to publish position: %v", err)
			continue
		}
		p.log.WithField("agent", agent).Debugf("Published %s", tr.Geo[i])
	}
}

func (p *TrackPublisher) publish(agent string, geo geomath.GeoPosition, recordedAt time.Time) error {
	entityID, err := p.entityFor(agent)
	if err != nil {
		return err
	}

	req := &models.CreateEntityLocationRequest{
		Position:   models.NewECEFPoint(geo),
		Source:     locationSource,
		RecordedAt: &recordedAt,
	}

	ctx, cancel := context.WithTimeout(p.ctx, publishTimeout)
	defer cancel()

	_, err = p.client.CreateEntityLocation(ctx, entityID, req)
	return err
}

// entityFor returns the cached entity ID for agent, searching Legion by name
// before creating a new entity.
func (p *TrackPublisher) entityFor(agent string) (string, error) {
	p.mu.Lock()
	id, ok := p.entities[agent]
	p.mu.Unlock()
	if ok {
		return id, nil
	}

	ctx, cancel := context.WithTimeout(p.ctx, publishTimeout)
	defer cancel()

	name := p.EntityName(agent)
	search, err := p.client.SearchEntities(ctx, &models.SearchEntitiesRequest{
		OrganizationID: p.orgID,
		Filters: &models.SearchFilters{
			Name:     name,
			Category: []models.Category{models.CategoryUXV},
		},
	})
	if err != nil {
		p.log.Warnf("Failed to search for existing entity %q: %v", name, err)
	} else if len(search.Results) > 0 {
		id = search.Results[0].ID.String()
		p.log.Infof("Found entity %s for agent %s", id, agent)
		return p.remember(agent, id), nil
	}

	metadata, err := json.Marshal(map[string]interface{}{
		"agent":    agent,
		"maneuver": p.maneuver,
		"source":   locationSource,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal metadata: %w", err)
	}
	raw := json.RawMessage(metadata)

	entity, err := p.client.CreateEntity(ctx, &models.CreateEntityRequest{
		OrganizationID: p.orgID,
		Name:           name,
		Category:       models.CategoryUXV,
		Type:           entityType,
		Status:         entityStatus,
		Metadata:       &raw,
	})
	if err != nil {
		return "", err
	}

	id = entity.ID.String()
	p.log.Infof("Created entity %s for agent %s", id, agent)
	return p.remember(agent, id), nil
}

func (p *TrackPublisher) remember(agent, id string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entities[agent] = id
	return id
}

