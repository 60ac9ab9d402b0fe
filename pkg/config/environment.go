package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Environment is a named Legion deployment that tracks can be published to
type Environment struct {
	Name           string `yaml:"name"`
	URL            string `yaml:"url"`
	APIKeyEnv      string `yaml:"api_key_env,omitempty"` // empty means OAuth login
	OrganizationID string `yaml:"organization_id,omitempty"`
}

// Environments holds the saved Legion environment profiles
type Environments struct {
	Environments []Environment `yaml:"environments"`
}

// EnvironmentsPath returns the default profile file, ~/.legion-rendezvous/environments.yaml
func EnvironmentsPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".legion-rendezvous", "environments.yaml"), nil
}

// LoadEnvironments loads the profiles from the default location
func LoadEnvironments() (*Environments, error) {
	path, err := EnvironmentsPath()
	if err != nil {
		return nil, err
	}
	return LoadEnvironmentsFromFile(path)
}

// LoadEnvironmentsFromFile loads profiles from path, falling back to the
// built-in Demo and Staging profiles when the file does not exist.
func LoadEnvironmentsFromFile(path string) (*Environments, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return defaultEnvironments(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read environments file: %w", err)
	}

	var envs Environments
	if err := yaml.Unmarshal(data, &envs); err != nil {
		return nil, fmt.Errorf("failed to parse environments file: %w", err)
	}
	return &envs, nil
}

// SaveEnvironmentsToFile writes the profiles to path
func SaveEnvironmentsToFile(envs *Environments, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(envs)
	if err != nil {
		return fmt.Errorf("failed to marshal environments: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write environments file: %w", err)
	}
	return nil
}

// Find returns the profile with the given name
func (e *Environments) Find(name string) (*Environment, error) {
	for i := range e.Environments {
		if e.Environments[i].Name == name {
			return &e.Environments[i], nil
		}
	}
	return nil, fmt.Errorf("environment %q not found", name)
}

// Add inserts env, replacing any profile with the same name
func (e *Environments) Add(env Environment) error {
	if env.Name == "" {
		return fmt.Errorf("environment name is required")
	}
	if env.URL == "" {
		return fmt.Errorf("environment url is required")
	}

	for i := range e.Environments {
		if e.Environments[i].Name == env.Name {
			e.Environments[i] = env
			return nil
		}
	}
	e.Environments = append(e.Environments, env)
	return nil
}

// Remove deletes the named profile
func (e *Environments) Remove(name string) error {
	for i := range e.Environments {
		if e.Environments[i].Name == name {
			e.Environments = append(e.Environments[:i], e.Environments[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("environment %q not found", name)
}

// ApplyEnvironment enables track publishing to env. The profile's API key
// variable and organization replace the configured ones only when set.
func (c *ManeuverConfig) ApplyEnvironment(env *Environment) {
	c.Legion.Enabled = true
	c.Legion.URL = env.URL
	if env.APIKeyEnv != "" {
		c.Legion.APIKeyEnv = env.APIKeyEnv
	}
	if env.OrganizationID != "" {
		c.Legion.OrganizationID = env.OrganizationID
	}
}

func defaultEnvironments() *Environments {
	return &Environments{
		Environments: []Environment{
			{Name: "Demo", URL: "https://legion-demo.com"},
			{Name: "Staging", URL: "https://legion-staging.com"},
		},
	}
}
