package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"IRC_SERVER", "IRC_NICK", "IRC_PASSWORD", "IRC_CHANNELS",
		"GITHUB_TOKEN", "GITHUB_TOKEN_FILE", "STATE_FILE", "IRC_REJOIN", "VERBOSE",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ServerURL != "ircs://irc.libera.chat:6697" {
		t.Errorf("ServerURL = %q", cfg.ServerURL)
	}
	if cfg.Nick != "issuebot" {
		t.Errorf("Nick = %q", cfg.Nick)
	}
	if cfg.StateFile != "issuebot-state.yaml" {
		t.Errorf("StateFile = %q", cfg.StateFile)
	}
	if !cfg.Rejoin {
		t.Error("Rejoin should default to true")
	}
	if cfg.GitHubToken != "" {
		t.Errorf("GitHubToken = %q, want empty", cfg.GitHubToken)
	}
}

func TestLoadChannelList(t *testing.T) {
	t.Setenv("IRC_CHANNELS", "#dom, #aria #scribe")
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"#dom", "#aria", "#scribe"}
	if !reflect.DeepEqual(cfg.Channels, want) {
		t.Errorf("Channels = %v, want %v", cfg.Channels, want)
	}
}

func TestLoadTokenFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	if err := os.WriteFile(path, []byte("ghp_secret\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("GITHUB_TOKEN_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.GitHubToken != "ghp_secret" {
		t.Errorf("GitHubToken = %q", cfg.GitHubToken)
	}
}

func TestLoadTokenFileMissing(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("GITHUB_TOKEN_FILE", filepath.Join(t.TempDir(), "nope"))
	if _, err := Load(); err == nil {
		t.Fatal("want error for unreadable token file")
	}
}

func TestEnvOverridesDefault(t *testing.T) {
	t.Setenv("IRC_REJOIN", "false")
	t.Setenv("IRC_NICK", "w3cbot")
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Rejoin {
		t.Error("Rejoin = true, want false")
	}
	if cfg.Nick != "w3cbot" {
		t.Errorf("Nick = %q", cfg.Nick)
	}
}
