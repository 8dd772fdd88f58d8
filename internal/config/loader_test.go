package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CodexForgeBR/loopctl/internal/config"
)

// writeFile is a test helper that creates a temporary file with the given content.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	err := os.WriteFile(path, []byte(content), 0644)
	require.NoError(t, err)
	return path
}

// ---------------------------------------------------------------------------
// LoadFile tests
// ---------------------------------------------------------------------------

func TestLoadFileBasicKeyValue(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config", "AGENT_CLI=codex\nAGENT_MODEL=gpt-5\n")

	m, err := config.LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "codex", m["AGENT_CLI"])
	assert.Equal(t, "gpt-5", m["AGENT_MODEL"])
}

func TestLoadFileSkipsComments(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config", "# This is a comment\nAGENT_CLI=claude\n# Another comment\n")

	m, err := config.LoadFile(path)
	require.NoError(t, err)

	assert.Len(t, m, 1)
	assert.Equal(t, "claude", m["AGENT_CLI"])
}

func TestLoadFileTrimsWhitespace(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config", "  AGENT_CLI  =  codex  \n  AGENT_MODEL = sonnet  \n")

	m, err := config.LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "codex", m["AGENT_CLI"])
	assert.Equal(t, "sonnet", m["AGENT_MODEL"])
}

func TestLoadFileSkipsUnknownKeys(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config", "AGENT_CLI=claude\nUNKNOWN_KEY=value\nBOGUS=stuff\nMAX_ITERATIONS=7\n")

	m, err := config.LoadFile(path)
	require.NoError(t, err)

	assert.Len(t, m, 2)
	assert.Equal(t, "claude", m["AGENT_CLI"])
	assert.Equal(t, "7", m["MAX_ITERATIONS"])
	assert.Empty(t, m["UNKNOWN_KEY"])
}

func TestLoadFileSkipsLinesWithoutEquals(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config", "AGENT_CLI=claude\nthis has no equals\nAGENT_MODEL=opus\n")

	m, err := config.LoadFile(path)
	require.NoError(t, err)

	assert.Len(t, m, 2)
}

func TestLoadFileSplitsOnFirstEquals(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config", "NOTIFY_WEBHOOK=http://host/path?a=1&b=2\n")

	m, err := config.LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "http://host/path?a=1&b=2", m["NOTIFY_WEBHOOK"])
}

func TestLoadFileMissingFile(t *testing.T) {
	_, err := config.LoadFile(filepath.Join(t.TempDir(), "does-not-exist"))
	assert.Error(t, err)
}

// ---------------------------------------------------------------------------
// ApplyMapToConfig tests
// ---------------------------------------------------------------------------

func TestApplyMapToConfigSetsTypedFields(t *testing.T) {
	cfg := config.NewDefaultConfig()
	config.ApplyMapToConfig(cfg, map[string]string{
		"AGENT_CLI":             "codex",
		"MAX_ITERATIONS":        "9",
		"MAX_VERIFY_ATTEMPTS":   "4",
		"MAX_BACKGROUND_TASKS":  "2",
		"SCOPE_TASKS_TO_PARENT": "true",
		"USE_ENFORCER":          "yes",
		"STATE_DIR":             ".work",
	})

	assert.Equal(t, "codex", cfg.AgentCLI)
	assert.Equal(t, 9, cfg.MaxIterations)
	assert.Equal(t, 4, cfg.MaxVerifyAttempts)
	assert.Equal(t, 2, cfg.MaxBackgroundTasks)
	assert.True(t, cfg.ScopeTasksToParent)
	assert.True(t, cfg.UseEnforcer)
	assert.Equal(t, ".work", cfg.StateDir)
}

func TestApplyMapToConfigIgnoresBadIntegers(t *testing.T) {
	cfg := config.NewDefaultConfig()
	config.ApplyMapToConfig(cfg, map[string]string{"MAX_ITERATIONS": "not-a-number"})

	assert.Equal(t, 20, cfg.MaxIterations, "previous value must survive a parse failure")
}

// ---------------------------------------------------------------------------
// LoadWithPrecedence tests
// ---------------------------------------------------------------------------

func TestLoadWithPrecedenceDefaultsOnly(t *testing.T) {
	cfg, err := config.LoadWithPrecedence("", "", "", nil)
	require.NoError(t, err)

	assert.Equal(t, "claude", cfg.AgentCLI)
	assert.Equal(t, 20, cfg.MaxIterations)
	assert.Equal(t, 5, cfg.MaxBackgroundTasks)
	assert.Equal(t, 5, cfg.TodoAttemptCap)
	assert.Equal(t, 3, cfg.MaxVerifyAttempts)
	assert.Equal(t, ".loopctl", cfg.StateDir)
}

func TestLoadWithPrecedenceProjectOverridesGlobal(t *testing.T) {
	dir := t.TempDir()
	globalPath := writeFile(t, dir, "global", "MAX_ITERATIONS=30\nAGENT_MODEL=sonnet\n")
	projectPath := writeFile(t, dir, "project", "MAX_ITERATIONS=10\n")

	cfg, err := config.LoadWithPrecedence(globalPath, projectPath, "", nil)
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.MaxIterations, "project file wins over global")
	assert.Equal(t, "sonnet", cfg.AgentModel, "global value survives where project is silent")
}

func TestLoadWithPrecedenceExplicitOverridesProject(t *testing.T) {
	dir := t.TempDir()
	projectPath := writeFile(t, dir, "project", "MAX_ITERATIONS=10\n")
	explicitPath := writeFile(t, dir, "explicit", "MAX_ITERATIONS=15\n")

	cfg, err := config.LoadWithPrecedence("", projectPath, explicitPath, nil)
	require.NoError(t, err)

	assert.Equal(t, 15, cfg.MaxIterations)
}

func TestLoadWithPrecedenceCLIOverridesEverything(t *testing.T) {
	dir := t.TempDir()
	explicitPath := writeFile(t, dir, "explicit", "MAX_ITERATIONS=15\nAGENT_CLI=codex\n")

	cfg, err := config.LoadWithPrecedence("", "", explicitPath, map[string]string{
		"MAX_ITERATIONS": "3",
	})
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.MaxIterations, "CLI override wins")
	assert.Equal(t, "codex", cfg.AgentCLI, "explicit file value survives where CLI is silent")
}

func TestLoadWithPrecedenceMissingGlobalAndProjectAreFine(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.LoadWithPrecedence(
		filepath.Join(dir, "no-global"),
		filepath.Join(dir, "no-project"),
		"", nil)
	require.NoError(t, err)
	assert.Equal(t, "claude", cfg.AgentCLI)
}

func TestLoadWithPrecedenceMissingExplicitFails(t *testing.T) {
	_, err := config.LoadWithPrecedence("", "", filepath.Join(t.TempDir(), "nope"), nil)
	assert.Error(t, err)
}
