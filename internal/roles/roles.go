// Package roles loads the worker-role catalog: named personas delegated
// tasks execute under. The core treats a role as opaque beyond its name and
// declared model tier.
package roles

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Role is one worker persona.
type Role struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Model       string `yaml:"model,omitempty"` // model tier hint, e.g. "sonnet"
}

// Catalog is the set of known roles.
type Catalog struct {
	Roles []Role `yaml:"roles"`
}

// DefaultCatalog returns the built-in personas used when no roles file
// exists in the project.
func DefaultCatalog() *Catalog {
	return &Catalog{Roles: []Role{
		{Name: "worker", Description: "General-purpose implementation worker"},
		{Name: "explorer", Description: "Read-only codebase investigation", Model: "haiku"},
		{Name: "reviewer", Description: "Independent completion reviewer"},
	}}
}

// LoadCatalog reads a YAML role catalog from path. A missing file yields the
// default catalog; a malformed file is an error.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultCatalog(), nil
		}
		return nil, fmt.Errorf("read roles file: %w", err)
	}

	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse roles file: %w", err)
	}
	if len(c.Roles) == 0 {
		return DefaultCatalog(), nil
	}
	return &c, nil
}

// Lookup returns the named role and whether it exists.
func (c *Catalog) Lookup(name string) (Role, bool) {
	for _, r := range c.Roles {
		if r.Name == name {
			return r, true
		}
	}
	return Role{}, false
}
