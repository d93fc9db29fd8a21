package config

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"

	"github.com/joho/godotenv"
	"github.com/opencode-ai/opencode/pkg/types"
)

// Load loads configuration from multiple sources (priority order, later
// wins): built-in defaults, global config (~/.config/agent-orchestrator/),
// project config (<directory>/.orchestrator/), a .env file in directory,
// then environment variables. The provider API-key variables are the
// exception: they only fill an API key that no config file set.
func Load(directory string) (*types.Config, error) {
	cfg := types.DefaultConfig()

	globalPath := GetPaths().Config
	loadConfigFile(filepath.Join(globalPath, "config.json"), cfg)
	loadConfigFile(filepath.Join(globalPath, "config.jsonc"), cfg)

	if directory != "" {
		_ = godotenv.Load(filepath.Join(directory, ".env"))
		loadConfigFile(filepath.Join(directory, ".orchestrator", "config.json"), cfg)
		loadConfigFile(filepath.Join(directory, ".orchestrator", "config.jsonc"), cfg)
	}

	applyEnvOverrides(cfg)

	if cfg.Server.WorkspaceRoot == "" {
		cfg.Server.WorkspaceRoot = directory
	}

	return cfg, nil
}

// loadConfigFile merges a single JSON or JSONC config file into cfg.
// A missing file is not an error; a malformed one is reported but does
// not halt the remaining load sources.
func loadConfigFile(path string, cfg *types.Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	data = stripJSONComments(data)

	var fileConfig types.Config
	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return err
	}

	mergeConfig(cfg, &fileConfig)
	return nil
}

// stripJSONComments removes // and /* */ comments from JSONC.
func stripJSONComments(data []byte) []byte {
	singleLine := regexp.MustCompile(`//.*$`)
	lines := bytes.Split(data, []byte("\n"))
	for i, line := range lines {
		lines[i] = singleLine.ReplaceAll(line, nil)
	}
	data = bytes.Join(lines, []byte("\n"))

	multiLine := regexp.MustCompile(`/\*[\s\S]*?\*/`)
	return multiLine.ReplaceAll(data, nil)
}

func mergeConfig(target, source *types.Config) {
	if source.Provider != "" {
		target.Provider = source.Provider
	}
	if source.Providers != nil {
		if target.Providers == nil {
			target.Providers = make(map[string]types.ProviderConfig)
		}
		for k, v := range source.Providers {
			target.Providers[k] = v
		}
	}
	if source.Limits.ExecuteConcurrency != 0 {
		target.Limits.ExecuteConcurrency = source.Limits.ExecuteConcurrency
	}
	if source.Limits.RepairConcurrency != 0 {
		target.Limits.RepairConcurrency = source.Limits.RepairConcurrency
	}
	if source.Limits.MaxRepairRetries != 0 {
		target.Limits.MaxRepairRetries = source.Limits.MaxRepairRetries
	}
	if source.Limits.SubprocessTimeoutS != 0 {
		target.Limits.SubprocessTimeoutS = source.Limits.SubprocessTimeoutS
	}
	if source.Limits.ExecutorTimeoutS != 0 {
		target.Limits.ExecutorTimeoutS = source.Limits.ExecutorTimeoutS
	}
	if source.Server.Port != 0 {
		target.Server.Port = source.Server.Port
	}
	if source.Server.WorkspaceRoot != "" {
		target.Server.WorkspaceRoot = source.Server.WorkspaceRoot
	}
	if source.Server.AllowedOrigins != nil {
		target.Server.AllowedOrigins = source.Server.AllowedOrigins
	}
	if source.DisabledLint {
		target.DisabledLint = true
	}
	if source.DisabledTSC {
		target.DisabledTSC = true
	}
}

// applyEnvOverrides fills each provider's API key from its environment
// variable when no config file set one; a key from a config file is kept.
func applyEnvOverrides(cfg *types.Config) {
	providerEnvMap := map[string]string{
		"anthropic": "ANTHROPIC_API_KEY",
		"openai":    "OPENAI_API_KEY",
		"gemini":    "GOOGLE_API_KEY",
	}

	for provider, envVar := range providerEnvMap {
		if apiKey := os.Getenv(envVar); apiKey != "" {
			p := cfg.Providers[provider]
			if p.APIKey == "" {
				p.APIKey = apiKey
				cfg.Providers[provider] = p
			}
		}
	}

	if provider := os.Getenv("ORCHESTRATOR_PROVIDER"); provider != "" {
		cfg.Provider = provider
	}
	if port := os.Getenv("ORCHESTRATOR_PORT"); port != "" {
		var p int
		if _, err := json.Number(port).Int64(); err == nil {
			_ = json.Unmarshal([]byte(port), &p)
			cfg.Server.Port = p
		}
	}
	if root := os.Getenv("ORCHESTRATOR_WORKSPACE_ROOT"); root != "" {
		cfg.Server.WorkspaceRoot = root
	}
}

// Save writes the configuration to path as indented JSON, creating
// parent directories as needed.
func Save(cfg *types.Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
