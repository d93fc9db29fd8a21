package types

// ProviderConfig holds the credentials and model names for one LLM
// provider (anthropic, openai, or gemini).
type ProviderConfig struct {
	APIKey      string `json:"apiKey,omitempty"`
	Model       string `json:"model,omitempty"`
	SmallModel  string `json:"smallModel,omitempty"`
	ImageModel  string `json:"imageModel,omitempty"`
	BaseURL     string `json:"baseUrl,omitempty"`
}

// LimitsConfig tunes the pipeline's concurrency and retry ceilings.
type LimitsConfig struct {
	ExecuteConcurrency int `json:"executeConcurrency,omitempty"`
	RepairConcurrency  int `json:"repairConcurrency,omitempty"`
	MaxRepairRetries   int `json:"maxRepairRetries,omitempty"`
	SubprocessTimeoutS int `json:"subprocessTimeoutSeconds,omitempty"`
	ExecutorTimeoutS   int `json:"executorTimeoutSeconds,omitempty"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port           int      `json:"port,omitempty"`
	WorkspaceRoot  string   `json:"workspaceRoot,omitempty"`
	AllowedOrigins []string `json:"allowedOrigins,omitempty"`
}

// Config is the orchestrator's top-level configuration, assembled from
// global config, project config, and environment overrides, in that
// priority order; environment API keys only fill keys the config files
// left empty.
type Config struct {
	Provider        string                    `json:"provider,omitempty"` // default provider name
	Providers       map[string]ProviderConfig `json:"providers,omitempty"`
	Limits          LimitsConfig              `json:"limits,omitempty"`
	Server          ServerConfig              `json:"server,omitempty"`
	DisabledLint    bool                      `json:"disableLint,omitempty"`
	DisabledTSC     bool                      `json:"disableTypeCheck,omitempty"`
}

// DefaultConfig returns baseline values applied before any file or
// environment override is merged in.
func DefaultConfig() *Config {
	return &Config{
		Provider:  "anthropic",
		Providers: make(map[string]ProviderConfig),
		Limits: LimitsConfig{
			ExecuteConcurrency: 5,
			RepairConcurrency:  3,
			MaxRepairRetries:   6,
			SubprocessTimeoutS: 120,
			ExecutorTimeoutS:   60,
		},
		Server: ServerConfig{
			Port:          8080,
			WorkspaceRoot: "",
		},
	}
}
