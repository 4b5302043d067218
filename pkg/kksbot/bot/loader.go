// Package bot – loader.go handles loading configuration from YAML files
// with credential management via environment variables and .env files.
package bot

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR_NAME} or $VAR_NAME in config values.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Z_][A-Z0-9_]*)`)

// credentialsEnvVar is the environment variable holding a comma-separated
// ordered list of backend API keys. It overrides the config list.
const credentialsEnvVar = "KKSBOT_GEMINI_KEYS"

// LoadConfigFromFile reads and parses a YAML configuration file.
// Automatically loads .env files and expands environment variables.
func LoadConfigFromFile(path string) (*Config, error) {
	// Load .env files (silently ignore if not found).
	loadEnvFiles()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in YAML before parsing.
	expanded := expandEnvVars(string(data))

	cfg, err := ParseConfig([]byte(expanded))
	if err != nil {
		return nil, err
	}

	checkFilePermissions(path)

	return cfg, nil
}

// ParseConfig parses YAML bytes into a Config.
// Starts with defaults and overlays values from the YAML.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	return cfg, nil
}

// SaveConfigToFile writes a Config as YAML to the specified path.
// Credentials are replaced with an environment variable reference.
func SaveConfigToFile(cfg *Config, path string) error {
	sanitized := *cfg
	if len(cfg.Credentials) > 0 {
		sanitized.Credentials = []string{"${" + credentialsEnvVar + "}"}
	}

	data, err := yaml.Marshal(&sanitized)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	// Write with restricted permissions (owner read/write only).
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// FindConfigFile searches for config files in standard locations.
func FindConfigFile() string {
	candidates := []string{
		"config.yaml",
		"config.yml",
		"kksbot.yaml",
		"kksbot.yml",
		"configs/config.yaml",
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// ResolveCredentials fills in the credential list using the priority chain:
// KKSBOT_GEMINI_KEYS env var → OS keyring → config values.
// Unresolved ${VAR} placeholders left in the config list are dropped.
func ResolveCredentials(cfg *Config, logger *slog.Logger) {
	if raw := os.Getenv(credentialsEnvVar); raw != "" {
		cfg.Credentials = splitCredentials(raw)
		logger.Debug("credentials loaded from environment",
			"count", len(cfg.Credentials))
		return
	}

	if raw := GetKeyring(keyringCredentials); raw != "" {
		cfg.Credentials = splitCredentials(raw)
		logger.Debug("credentials loaded from OS keyring",
			"count", len(cfg.Credentials))
		return
	}

	resolved := make([]string, 0, len(cfg.Credentials))
	for _, c := range cfg.Credentials {
		c = strings.TrimSpace(c)
		if c == "" || isEnvReference(c) {
			continue
		}
		resolved = append(resolved, c)
	}
	cfg.Credentials = resolved

	if len(cfg.Credentials) == 0 {
		logger.Warn("no backend credentials found; classification and replies are disabled",
			"hint", "set "+credentialsEnvVar+" or run: kksbot config set-keys")
	}
}

// ---------- Internal ----------

// loadEnvFiles loads .env files from standard locations.
func loadEnvFiles() {
	envFiles := []string{
		".env",
		".env.local",
	}

	for _, f := range envFiles {
		// godotenv.Load does NOT overwrite existing env vars.
		_ = godotenv.Load(f)
	}
}

// expandEnvVars replaces ${VAR} and $VAR references in a string
// with their environment variable values.
func expandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		var varName string
		if strings.HasPrefix(match, "${") {
			varName = match[2 : len(match)-1]
		} else {
			varName = match[1:]
		}

		if val, ok := os.LookupEnv(varName); ok {
			return val
		}

		// Return original if env var not set (allows placeholder to remain).
		return match
	})
}

// splitCredentials parses a comma-separated ordered key list.
func splitCredentials(raw string) []string {
	parts := strings.Split(raw, ",")
	keys := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			keys = append(keys, p)
		}
	}
	return keys
}

// isEnvReference checks if a string is an environment variable reference.
func isEnvReference(s string) bool {
	return strings.HasPrefix(s, "${") || strings.HasPrefix(s, "$")
}

// checkFilePermissions warns if the config file is world-readable.
func checkFilePermissions(path string) {
	info, err := os.Stat(path)
	if err != nil {
		return
	}
	if info.Mode().Perm()&0o044 != 0 {
		fmt.Fprintf(os.Stderr,
			"warning: %s is readable by other users; run: chmod 600 %s\n",
			path, path)
	}
}
