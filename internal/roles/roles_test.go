package roles_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CodexForgeBR/loopctl/internal/roles"
)

func TestDefaultCatalogHasStandardPersonas(t *testing.T) {
	c := roles.DefaultCatalog()

	for _, name := range []string{"worker", "explorer", "reviewer"} {
		_, ok := c.Lookup(name)
		assert.True(t, ok, "default catalog must include %q", name)
	}

	explorer, _ := c.Lookup("explorer")
	assert.Equal(t, "haiku", explorer.Model, "explorer runs on the cheap tier")
}

func TestLoadCatalogMissingFileYieldsDefaults(t *testing.T) {
	c, err := roles.LoadCatalog(filepath.Join(t.TempDir(), "roles.yaml"))
	require.NoError(t, err)
	_, ok := c.Lookup("worker")
	assert.True(t, ok)
}

func TestLoadCatalogParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roles.yaml")
	content := `roles:
  - name: migrator
    description: schema migration specialist
    model: sonnet
  - name: docser
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	c, err := roles.LoadCatalog(path)
	require.NoError(t, err)

	migrator, ok := c.Lookup("migrator")
	require.True(t, ok)
	assert.Equal(t, "sonnet", migrator.Model)
	assert.Equal(t, "schema migration specialist", migrator.Description)

	_, ok = c.Lookup("worker")
	assert.False(t, ok, "an explicit catalog replaces the defaults")
}

func TestLoadCatalogMalformedYAMLFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roles.yaml")
	require.NoError(t, os.WriteFile(path, []byte("roles: [not: valid: yaml"), 0644))

	_, err := roles.LoadCatalog(path)
	assert.Error(t, err)
}

func TestLoadCatalogEmptyListYieldsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roles.yaml")
	require.NoError(t, os.WriteFile(path, []byte("roles: []\n"), 0644))

	c, err := roles.LoadCatalog(path)
	require.NoError(t, err)
	_, ok := c.Lookup("reviewer")
	assert.True(t, ok)
}

func TestLookupUnknownRole(t *testing.T) {
	_, ok := roles.DefaultCatalog().Lookup("nonexistent")
	assert.False(t, ok)
}
