package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/opencode-ai/opencode/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	oldHome := os.Getenv("HOME")
	os.Setenv("HOME", tmpDir)
	defer os.Setenv("HOME", oldHome)

	cfg, err := Load(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, "anthropic", cfg.Provider)
	assert.Equal(t, 5, cfg.Limits.ExecuteConcurrency)
	assert.Equal(t, 3, cfg.Limits.RepairConcurrency)
	assert.Equal(t, 6, cfg.Limits.MaxRepairRetries)
	assert.Equal(t, tmpDir, cfg.Server.WorkspaceRoot)
}

func TestLoadProjectConfig(t *testing.T) {
	tmpDir := t.TempDir()
	oldHome := os.Getenv("HOME")
	os.Setenv("HOME", t.TempDir())
	defer os.Setenv("HOME", oldHome)

	projectConfig := `{
		"provider": "openai",
		"server": {"port": 9090},
		"limits": {"maxRepairRetries": 3}
	}`

	configPath := filepath.Join(tmpDir, ".orchestrator", "config.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(configPath), 0755))
	require.NoError(t, os.WriteFile(configPath, []byte(projectConfig), 0644))

	cfg, err := Load(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.Provider)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 3, cfg.Limits.MaxRepairRetries)
	// untouched defaults survive the merge
	assert.Equal(t, 5, cfg.Limits.ExecuteConcurrency)
}

func TestJSONCComments(t *testing.T) {
	tmpDir := t.TempDir()
	oldHome := os.Getenv("HOME")
	os.Setenv("HOME", t.TempDir())
	defer os.Setenv("HOME", oldHome)

	jsoncConfig := `{
		// provider choice
		"provider": "gemini",
		/* server
		   block */
		"server": {"port": 7000 /* inline */}
	}`

	configPath := filepath.Join(tmpDir, ".orchestrator", "config.jsonc")
	require.NoError(t, os.MkdirAll(filepath.Dir(configPath), 0755))
	require.NoError(t, os.WriteFile(configPath, []byte(jsoncConfig), 0644))

	cfg, err := Load(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, "gemini", cfg.Provider)
	assert.Equal(t, 7000, cfg.Server.Port)
}

func TestConfigMergeGlobalThenProject(t *testing.T) {
	tmpHome := t.TempDir()
	tmpProject := t.TempDir()

	oldHome := os.Getenv("HOME")
	os.Setenv("HOME", tmpHome)
	defer os.Setenv("HOME", oldHome)

	globalConfig := `{"provider": "anthropic", "limits": {"executeConcurrency": 8}}`
	globalDir := filepath.Join(tmpHome, ".config", "agent-orchestrator")
	require.NoError(t, os.MkdirAll(globalDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(globalDir, "config.json"), []byte(globalConfig), 0644))

	projectConfig := `{"provider": "openai"}`
	projectDir := filepath.Join(tmpProject, ".orchestrator")
	require.NoError(t, os.MkdirAll(projectDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(projectDir, "config.json"), []byte(projectConfig), 0644))

	cfg, err := Load(tmpProject)
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.Provider)
	assert.Equal(t, 8, cfg.Limits.ExecuteConcurrency)
}

func TestEnvVarOverridesAPIKey(t *testing.T) {
	os.Setenv("ANTHROPIC_API_KEY", "sk-test-key")
	defer os.Unsetenv("ANTHROPIC_API_KEY")

	tmpDir := t.TempDir()
	oldHome := os.Getenv("HOME")
	os.Setenv("HOME", t.TempDir())
	defer os.Setenv("HOME", oldHome)

	cfg, err := Load(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, "sk-test-key", cfg.Providers["anthropic"].APIKey)
}

func TestEnvVarDoesNotOverrideExplicitKey(t *testing.T) {
	os.Setenv("ANTHROPIC_API_KEY", "sk-env-key")
	defer os.Unsetenv("ANTHROPIC_API_KEY")

	tmpDir := t.TempDir()
	oldHome := os.Getenv("HOME")
	os.Setenv("HOME", t.TempDir())
	defer os.Setenv("HOME", oldHome)

	projectConfig := `{"providers": {"anthropic": {"apiKey": "sk-explicit-key"}}}`
	configPath := filepath.Join(tmpDir, ".orchestrator", "config.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(configPath), 0755))
	require.NoError(t, os.WriteFile(configPath, []byte(projectConfig), 0644))

	cfg, err := Load(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, "sk-explicit-key", cfg.Providers["anthropic"].APIKey)
}

func TestSaveAndReload(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := types.DefaultConfig()
	cfg.Provider = "openai"
	cfg.Server.Port = 5555

	path := filepath.Join(tmpDir, "nested", "config.json")
	require.NoError(t, Save(cfg, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"provider": "openai"`)

	oldHome := os.Getenv("HOME")
	os.Setenv("HOME", t.TempDir())
	defer os.Setenv("HOME", oldHome)

	reloaded, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "anthropic", reloaded.Provider) // default, nothing in this dir's search path
}

func TestStripJSONCommentsRemovesBlockAndLineComments(t *testing.T) {
	data := []byte("{\n  // leading comment\n  \"provider\": \"anthropic\" /* trailing */\n}")
	stripped := stripJSONComments(data)
	var cfg types.Config
	require.NoError(t, json.Unmarshal(stripped, &cfg))
	assert.Equal(t, "anthropic", cfg.Provider)
}
