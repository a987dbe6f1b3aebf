// Package config loads ambient client settings: the profile file in the
// user's home directory with environment variables on top. Everything here is
// plain lookup, token lifecycle is the platform's business.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v2"
)

// DefaultServerURL is the hosted control plane.
const DefaultServerURL = "https://api.efunc.dev:443"

const (
	EnvConfigPath  = "EFUNC_CONFIG"
	EnvServerURL   = "EFUNC_SERVER_URL"
	EnvTokenID     = "EFUNC_TOKEN_ID"
	EnvTokenSecret = "EFUNC_TOKEN_SECRET"
)

// Config is one resolved set of client settings.
type Config struct {
	ServerURL   string `yaml:"server_url"`
	TokenID     string `yaml:"token_id"`
	TokenSecret string `yaml:"token_secret"`
	Active      bool   `yaml:"active"`
}

// Load resolves settings in order: profile file (the profile marked active,
// or the first by name), then environment variable overrides, then defaults.
// A missing profile file is not an error.
func Load() (*Config, error) {
	cfg := &Config{}
	if path := profilePath(); path != "" {
		fileCfg, err := loadFile(path)
		if err != nil {
			return nil, err
		}
		if fileCfg != nil {
			cfg = fileCfg
		}
	}
	if v := os.Getenv(EnvServerURL); v != "" {
		cfg.ServerURL = v
	}
	if v := os.Getenv(EnvTokenID); v != "" {
		cfg.TokenID = v
	}
	if v := os.Getenv(EnvTokenSecret); v != "" {
		cfg.TokenSecret = v
	}
	if cfg.ServerURL == "" {
		cfg.ServerURL = DefaultServerURL
	}
	return cfg, nil
}

func profilePath() string {
	if path := os.Getenv(EnvConfigPath); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".efunc.yaml")
}

// loadFile picks a profile from a yaml file keyed by profile name. Returns
// nil without error when the file does not exist.
func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var profiles map[string]*Config
	if err = yaml.Unmarshal(data, &profiles); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if len(profiles) == 0 {
		return nil, nil
	}
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	// sorted so that "first profile" does not depend on map order
	sort.Strings(names)
	// a profile with an empty body unmarshals to nil; it can neither be
	// active nor serve as the fallback
	var chosen *Config
	for _, name := range names {
		profile := profiles[name]
		if profile == nil {
			continue
		}
		if chosen == nil {
			chosen = profile
		}
		if profile.Active {
			chosen = profile
			break
		}
	}
	return chosen, nil
}

// ParseServerURL splits a server url into a dial address and whether the
// transport needs TLS. Bare host:port counts as TLS off, matching local
// emulators.
func ParseServerURL(serverURL string) (address string, secure bool) {
	switch {
	case strings.HasPrefix(serverURL, "https://"):
		return strings.TrimPrefix(serverURL, "https://"), true
	case strings.HasPrefix(serverURL, "http://"):
		return strings.TrimPrefix(serverURL, "http://"), false
	default:
		return serverURL, false
	}
}
