// Package config loads and merges orchestrator configuration.
//
// Load resolves configuration from, in priority order (later wins):
// built-in defaults, the global config file (~/.config/agent-orchestrator/),
// a project config file (<directory>/.orchestrator/config.json[c]), a .env
// file in the project directory, and environment variables; the provider
// API-key variables only fill a key that no config file set. JSONC files
// strip // and /* */ comments before parsing.
//
// GetPaths returns the XDG-style directories used for session storage and
// cached data; on Windows these fall back to APPDATA.
package config
