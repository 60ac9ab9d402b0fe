package client

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/picogrid/legion-rendezvous/pkg/geomath"
	"github.com/picogrid/legion-rendezvous/pkg/models"
	"github.com/picogrid/legion-rendezvous/pkg/rendezvous"
)

const (
	testAPIKey = "test-key"
	testOrgID  = "b7c5e4d3-a2b1-4f0e-8d9c-1a2b3c4d5e6f"
)

var existingID = uuid.MustParse("a1b2c3d4-e5f6-7890-1234-567890abcdef")

// fakeLegion is an in-memory Legion entity API
type fakeLegion struct {
	mu        sync.Mutex
	existing  map[string]bool
	created   []models.CreateEntityRequest
	locations map[string][]models.CreateEntityLocationRequest
	failLocs  bool
	badAuth   []string
}

func newFakeLegion(t *testing.T, existing ...string) (*fakeLegion, *httptest.Server) {
	t.Helper()
	f := &fakeLegion{
		existing:  make(map[string]bool),
		locations: make(map[string][]models.CreateEntityLocationRequest),
	}
	for _, name := range existing {
		f.existing[name] = true
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v3/me", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	})
	mux.HandleFunc("POST /v3/entities/search", func(w http.ResponseWriter, r *http.Request) {
		var req models.SearchEntitiesRequest
		_ = json.NewDecoder(r.Body).Decode(&req)

		resp := models.EntityPaginatedResponse{}
		f.mu.Lock()
		if req.Filters != nil && f.existing[req.Filters.Name] {
			resp.Results = []models.EntityResponse{{ID: existingID, Name: req.Filters.Name}}
			resp.TotalCount = 1
		}
		f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("POST /v3/entities", func(w http.ResponseWriter, r *http.Request) {
		var req models.CreateEntityRequest
		_ = json.NewDecoder(r.Body).Decode(&req)

		f.mu.Lock()
		f.created = append(f.created, req)
		f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(models.EntityResponse{ID: uuid.New(), Name: req.Name})
	})
	mux.HandleFunc("POST /v3/entities/{id}/locations", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.failLocs {
			http.Error(w, "storage unavailable", http.StatusServiceUnavailable)
			return
		}
		var req models.CreateEntityLocationRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.locations[r.PathValue("id")] = append(f.locations[r.PathValue("id")], req)
		_ = json.NewEncoder(w).Encode(models.EntityLocationResponse{ID: uuid.New(), Position: req.Position})
	})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+testAPIKey {
			f.mu.Lock()
			f.badAuth = append(f.badAuth, r.URL.Path)
			f.mu.Unlock()
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if r.URL.Path != "/v3/me" && r.Header.Get("X-ORG-ID") != testOrgID {
			http.Error(w, "missing org", http.StatusBadRequest)
			return
		}
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(server.Close)

	return f, server
}

func newTestClient(t *testing.T, url, apiKey string) *Legion {
	t.Helper()
	c, err := NewClient(Config{BaseURL: url + "/", APIKey: apiKey, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return c
}

func tickReport(lat float64) *rendezvous.TickReport {
	return &rendezvous.TickReport{
		Tick:   1,
		Time:   time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Agents: []string{"A", "B"},
		Geo: []geomath.GeoPosition{
			{Latitude: lat, Longitude: -122.14, Altitude: 130},
			{Latitude: lat, Longitude: -122.15, Altitude: 130},
		},
	}
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(Config{BaseURL: "not a url"}); err == nil {
		t.Error("Expected error for URL without scheme")
	}

	c, err := NewClient(Config{BaseURL: "https://legion.example.com/"})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if c.baseURL != "https://legion.example.com" {
		t.Errorf("Expected trailing slash trimmed, got %s", c.baseURL)
	}
	if c.httpClient.Timeout != DefaultTimeout {
		t.Errorf("Expected default timeout, got %v", c.httpClient.Timeout)
	}
}

func TestValidateConnection(t *testing.T) {
	_, server := newFakeLegion(t)

	if err := newTestClient(t, server.URL, testAPIKey).ValidateConnection(context.Background()); err != nil {
		t.Errorf("Expected valid connection, got %v", err)
	}

	err := newTestClient(t, server.URL, "wrong").ValidateConnection(context.Background())
	if err == nil || !strings.Contains(err.Error(), "HTTP 401") {
		t.Errorf("Expected HTTP 401 error, got %v", err)
	}
}

type staticToken struct {
	token string
	err   error
	calls int
}

func (s *staticToken) GetAccessToken(context.Context) (string, error) {
	s.calls++
	return s.token, s.err
}

func TestTokenManagerAuthorization(t *testing.T) {
	var mu sync.Mutex
	var got []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		got = append(got, r.Header.Get("Authorization"))
		mu.Unlock()
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(server.Close)

	tokens := &staticToken{token: "oauth-token"}
	c, err := NewClient(Config{BaseURL: server.URL, APIKey: "ignored", TokenManager: tokens})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	if err := c.ValidateConnection(context.Background()); err != nil {
		t.Fatalf("ValidateConnection failed: %v", err)
	}
	mu.Lock()
	if len(got) != 1 || got[0] != "Bearer oauth-token" {
		t.Errorf("Expected Bearer oauth-token, got %v", got)
	}
	mu.Unlock()
	if tokens.calls != 1 {
		t.Errorf("Expected 1 token lookup, got %d", tokens.calls)
	}

	tokens.err = errors.New("refresh expired")
	err = c.ValidateConnection(context.Background())
	if err == nil || !strings.Contains(err.Error(), "failed to get access token") {
		t.Errorf("Expected access token error, got %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 {
		t.Errorf("Expected no request without a token, got %d requests", len(got))
	}
}

func TestTrackPublisher(t *testing.T) {
	fake, server := newFakeLegion(t, "Rendezvous drill - A")
	c := newTestClient(t, server.URL, testAPIKey)

	p, err := NewTrackPublisher(context.Background(), c, testOrgID, "drill")
	if err != nil {
		t.Fatalf("NewTrackPublisher failed: %v", err)
	}

	if err := p.EnsureEntities([]string{"A", "B"}); err != nil {
		t.Fatalf("EnsureEntities failed: %v", err)
	}

	p.OnTick(tickReport(47.0))
	p.OnTick(tickReport(47.001))

	if p.Failures() != 0 {
		t.Errorf("Expected no failures, got %d", p.Failures())
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()

	// A already exists, only B is created, once
	if len(fake.created) != 1 {
		t.Fatalf("Expected 1 created entity, got %d", len(fake.created))
	}
	created := fake.created[0]
	if created.Name != "Rendezvous drill - B" || created.Category != models.CategoryUXV {
		t.Errorf("Unexpected created entity %+v", created)
	}
	if created.OrganizationID.String() != testOrgID {
		t.Errorf("Expected org %s, got %s", testOrgID, created.OrganizationID)
	}

	locs := fake.locations[existingID.String()]
	if len(locs) != 2 {
		t.Fatalf("Expected 2 locations for A, got %d", len(locs))
	}

	x, y, z := geomath.LatLonAltToECEF(geomath.GeoPosition{Latitude: 47.0, Longitude: -122.14, Altitude: 130})
	got := locs[0].Position.Coordinates
	if len(got) != 3 || math.Abs(got[0]-x) > 1e-6 || math.Abs(got[1]-y) > 1e-6 || math.Abs(got[2]-z) > 1e-6 {
		t.Errorf("Expected ECEF (%f, %f, %f), got %v", x, y, z, got)
	}
	if locs[0].Source != locationSource || locs[0].RecordedAt == nil {
		t.Errorf("Unexpected location %+v", locs[0])
	}

	if len(fake.badAuth) != 0 {
		t.Errorf("Unexpected unauthorized requests: %v", fake.badAuth)
	}
}

func TestTrackPublisherFailuresAreCounted(t *testing.T) {
	fake, server := newFakeLegion(t)
	fake.failLocs = true
	c := newTestClient(t, server.URL, testAPIKey)

	p, err := NewTrackPublisher(context.Background(), c, testOrgID, "drill")
	if err != nil {
		t.Fatalf("NewTrackPublisher failed: %v", err)
	}

	p.OnTick(tickReport(47.0))

	if p.Failures() != 2 {
		t.Errorf("Expected 2 failures, got %d", p.Failures())
	}
}

func TestNewTrackPublisherRejectsBadOrg(t *testing.T) {
	c, err := NewClient(Config{BaseURL: "https://legion.example.com"})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if _, err := NewTrackPublisher(context.Background(), c, "not-a-uuid", "drill"); err == nil {
		t.Error("Expected error for invalid organization ID")
	}
}
