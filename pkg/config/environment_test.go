package config

import (
	"path/filepath"
	"testing"
)

func TestLoadEnvironmentsDefaults(t *testing.T) {
	envs, err := LoadEnvironmentsFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadEnvironmentsFromFile failed: %v", err)
	}

	if len(envs.Environments) != 2 {
		t.Fatalf("Expected 2 default environments, got %d", len(envs.Environments))
	}

	staging, err := envs.Find("Staging")
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if staging.URL != "https://legion-staging.com" {
		t.Errorf("Expected staging URL, got %s", staging.URL)
	}

	if _, err := envs.Find("Prod"); err == nil {
		t.Error("Expected error for unknown environment")
	}
}

func TestEnvironmentsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "environments.yaml")

	envs := &Environments{}
	if err := envs.Add(Environment{Name: "Field", URL: "https://field.example.com", APIKeyEnv: "FIELD_KEY"}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := envs.Add(Environment{Name: "Lab", URL: "https://lab.example.com"}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	// same name replaces
	if err := envs.Add(Environment{Name: "Lab", URL: "https://lab2.example.com"}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := envs.Add(Environment{Name: "NoURL"}); err == nil {
		t.Error("Expected error for missing URL")
	}

	if err := SaveEnvironmentsToFile(envs, path); err != nil {
		t.Fatalf("SaveEnvironmentsToFile failed: %v", err)
	}

	loaded, err := LoadEnvironmentsFromFile(path)
	if err != nil {
		t.Fatalf("LoadEnvironmentsFromFile failed: %v", err)
	}
	if len(loaded.Environments) != 2 {
		t.Fatalf("Expected 2 environments, got %d", len(loaded.Environments))
	}
	lab, err := loaded.Find("Lab")
	if err != nil || lab.URL != "https://lab2.example.com" {
		t.Errorf("Expected replaced Lab profile, got %+v (%v)", lab, err)
	}

	if err := loaded.Remove("Field"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if err := loaded.Remove("Field"); err == nil {
		t.Error("Expected error removing a missing environment")
	}
	if len(loaded.Environments) != 1 {
		t.Errorf("Expected 1 environment after remove, got %d", len(loaded.Environments))
	}
}

func TestApplyEnvironment(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Legion.OrganizationID = "configured-org"

	cfg.ApplyEnvironment(&Environment{Name: "Lab", URL: "https://lab.example.com"})

	if !cfg.Legion.Enabled || cfg.Legion.URL != "https://lab.example.com" {
		t.Errorf("Expected publishing to Lab, got %+v", cfg.Legion)
	}
	if cfg.Legion.APIKeyEnv != "LEGION_API_KEY" {
		t.Errorf("Expected API key variable to be kept, got %s", cfg.Legion.APIKeyEnv)
	}
	if cfg.Legion.OrganizationID != "configured-org" {
		t.Errorf("Expected organization to be kept, got %s", cfg.Legion.OrganizationID)
	}

	cfg.ApplyEnvironment(&Environment{Name: "Field", URL: "https://field.example.com", APIKeyEnv: "FIELD_KEY", OrganizationID: "field-org"})
	if cfg.Legion.APIKeyEnv != "FIELD_KEY" || cfg.Legion.OrganizationID != "field-org" {
		t.Errorf("Expected profile credentials, got %+v", cfg.Legion)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected valid config, got %v", err)
	}
}
