package shared

import (
	_ "embed"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Cipher      CipherConfig      `toml:"cipher"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
}

// CipherConfig contains the key material used to encrypt access tokens
// before they are handed to the browser as a cookie.
type CipherConfig struct {
	Key  string `toml:"key"`
	Salt string `toml:"salt"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host          string  `toml:"host"`
	Port          int     `toml:"port"`
	BaseURL       string  `toml:"base_url"`
	FetchBudgetMS int     `toml:"fetch_budget_ms"`
	StateTokenTTL int     `toml:"state_token_ttl_s"`
	RateLimit     float64 `toml:"rate_limit"`
}

// Addr returns the host:port pair the HTTP server binds to.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// FetchBudget returns the wall-clock budget for a single paginated fetch request.
func (s ServerConfig) FetchBudget() time.Duration {
	if s.FetchBudgetMS <= 0 {
		return 8 * time.Second
	}
	return time.Duration(s.FetchBudgetMS) * time.Millisecond
}

// StateTokenExpiry returns the age after which unconsumed state tokens are swept.
func (s ServerConfig) StateTokenExpiry() time.Duration {
	if s.StateTokenTTL <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(s.StateTokenTTL) * time.Second
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Environment variable overrides are applied after parsing, so deployed
// instances can keep secrets out of the config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.applyEnv()
	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	config.applyEnv()
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s: %w", path, err)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// applyEnv overlays environment variables onto the parsed configuration.
func (c *Config) applyEnv() {
	for env, target := range map[string]*string{
		"SPOTIFY_CLIENT_ID":     &c.Credentials.Spotify.ClientID,
		"SPOTIFY_CLIENT_SECRET": &c.Credentials.Spotify.ClientSecret,
		"CIPHER_KEY":            &c.Cipher.Key,
		"CIPHER_SALT":           &c.Cipher.Salt,
		"EXPORTIFY_BASE_URL":    &c.Server.BaseURL,
	} {
		if v := os.Getenv(env); v != "" {
			*target = v
		}
	}
}

// ValidateServer checks the configuration required to run the HTTP service.
func (c *Config) ValidateServer() error {
	if c.Credentials.Spotify.ClientID == "" || c.Credentials.Spotify.ClientSecret == "" {
		return fmt.Errorf("%w: spotify client id and secret are required", ErrMissingCredentials)
	}
	if c.Cipher.Key == "" || c.Cipher.Salt == "" {
		return fmt.Errorf("%w: cipher key and salt are required", ErrMissingConfig)
	}
	if _, err := url.ParseRequestURI(c.Server.BaseURL); err != nil {
		return fmt.Errorf("%w: base_url %q is not a valid URL", ErrInvalidConfig, c.Server.BaseURL)
	}
	return nil
}
