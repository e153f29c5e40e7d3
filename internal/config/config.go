// Package config loads bot settings from the environment, with an
// optional .env file for development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	// ServerURL is irc://host:port or ircs://host:port for TLS.
	ServerURL string
	Nick      string
	// Password is sent as the IRC server password.
	Password string
	Channels []string

	// GitHubToken may come directly from GITHUB_TOKEN or be read from
	// the file named by GITHUB_TOKEN_FILE. Empty means no credential:
	// the bot still expands references to bare URLs but refuses
	// mutations.
	GitHubToken string

	StateFile string
	Rejoin    bool
	Verbose   bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ServerURL:   getEnv("IRC_SERVER", "ircs://irc.libera.chat:6697"),
		Nick:        getEnv("IRC_NICK", "issuebot"),
		Password:    os.Getenv("IRC_PASSWORD"),
		Channels:    splitList(os.Getenv("IRC_CHANNELS")),
		GitHubToken: os.Getenv("GITHUB_TOKEN"),
		StateFile:   getEnv("STATE_FILE", "issuebot-state.yaml"),
		Rejoin:      getBool("IRC_REJOIN", true),
		Verbose:     getBool("VERBOSE", false),
	}

	if cfg.GitHubToken == "" {
		if path := os.Getenv("GITHUB_TOKEN_FILE"); path != "" {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("reading GITHUB_TOKEN_FILE: %w", err)
			}
			cfg.GitHubToken = strings.TrimSpace(string(data))
		}
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return b
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' }) {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
