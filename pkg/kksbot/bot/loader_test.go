package bot

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := ParseConfig([]byte(""))
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if cfg.Engagement.BaseChance != 0.25 {
		t.Errorf("BaseChance = %v, want 0.25", cfg.Engagement.BaseChance)
	}
	if cfg.Engagement.CooldownSeconds != 15 {
		t.Errorf("CooldownSeconds = %v, want 15", cfg.Engagement.CooldownSeconds)
	}
	if cfg.Silence.AutoMinutes != 30 {
		t.Errorf("AutoMinutes = %v, want 30", cfg.Silence.AutoMinutes)
	}
}

func TestParseConfigOverlay(t *testing.T) {
	yaml := `
name: "otro"
engagement:
  base_chance: 0.5
`
	cfg, err := ParseConfig([]byte(yaml))
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if cfg.Name != "otro" {
		t.Errorf("Name = %q, want otro", cfg.Name)
	}
	if cfg.Engagement.BaseChance != 0.5 {
		t.Errorf("BaseChance = %v, want 0.5", cfg.Engagement.BaseChance)
	}
	// Valores não sobrescritos mantêm o default.
	if cfg.Engagement.CooldownSeconds != 15 {
		t.Errorf("CooldownSeconds = %v, want default 15", cfg.Engagement.CooldownSeconds)
	}
}

func TestLoadConfigExpandsEnvVars(t *testing.T) {
	t.Setenv("KKSBOT_TEST_TOKEN", "abc123")

	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
channels:
  discord:
    token: "${KKSBOT_TEST_TOKEN}"
`
	if err := os.WriteFile(path, []byte(yaml), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfigFromFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFromFile() error = %v", err)
	}
	if cfg.Channels.Discord.Token != "abc123" {
		t.Errorf("Token = %q, want abc123", cfg.Channels.Discord.Token)
	}
}

func TestSaveConfigSanitizesCredentials(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Credentials = []string{"secreta-1", "secreta-2"}

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := SaveConfigToFile(cfg, path); err != nil {
		t.Fatalf("SaveConfigToFile() error = %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(raw), "secreta-1") {
		t.Error("saved config leaks a credential")
	}
	if !strings.Contains(string(raw), credentialsEnvVar) {
		t.Error("saved config missing the env var reference")
	}
}

func TestResolveCredentialsFromEnv(t *testing.T) {
	t.Setenv(credentialsEnvVar, " k1, k2 ,,k3 ")

	cfg := DefaultConfig()
	cfg.Credentials = []string{"del-config"}
	ResolveCredentials(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))

	want := []string{"k1", "k2", "k3"}
	if len(cfg.Credentials) != len(want) {
		t.Fatalf("Credentials = %v, want %v", cfg.Credentials, want)
	}
	for i := range want {
		if cfg.Credentials[i] != want[i] {
			t.Errorf("Credentials[%d] = %q, want %q", i, cfg.Credentials[i], want[i])
		}
	}
}

func TestResolveCredentialsDropsPlaceholders(t *testing.T) {
	t.Setenv(credentialsEnvVar, "")

	cfg := DefaultConfig()
	cfg.Credentials = []string{"${NO_EXISTE}", "clave-real", ""}
	ResolveCredentials(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))

	if len(cfg.Credentials) != 1 || cfg.Credentials[0] != "clave-real" {
		t.Errorf("Credentials = %v, want [clave-real]", cfg.Credentials)
	}
}

func TestSplitCredentials(t *testing.T) {
	got := splitCredentials("a,b , ,c")
	if len(got) != 3 {
		t.Fatalf("splitCredentials() = %v, want 3 keys", got)
	}
}
