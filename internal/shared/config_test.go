package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./exportify.db" {
			t.Errorf("expected database path ./exportify.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 8888 {
			t.Errorf("expected server port 8888, got %d", config.Server.Port)
		}

		if config.Server.Addr() != "127.0.0.1:8888" {
			t.Errorf("expected addr 127.0.0.1:8888, got %s", config.Server.Addr())
		}

		if config.Server.FetchBudget() != 8*time.Second {
			t.Errorf("expected fetch budget 8s, got %v", config.Server.FetchBudget())
		}

		if config.Server.StateTokenExpiry() != 5*time.Minute {
			t.Errorf("expected state token TTL 5m, got %v", config.Server.StateTokenExpiry())
		}
	})

	t.Run("FetchBudget Defaults When Unset", func(t *testing.T) {
		var server ServerConfig

		if server.FetchBudget() != 8*time.Second {
			t.Errorf("expected default fetch budget 8s, got %v", server.FetchBudget())
		}
		if server.StateTokenExpiry() != 5*time.Minute {
			t.Errorf("expected default state token TTL 5m, got %v", server.StateTokenExpiry())
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		defaultConfig := DefaultConfig()
		if config.Database.Path != defaultConfig.Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[database]
path = "/custom/path.db"
max_open_conns = 20
max_idle_conns = 10

[server]
host = "0.0.0.0"
port = 8080
base_url = "https://exportify.example"
fetch_budget_ms = 4000
state_token_ttl_s = 120
rate_limit = 2.5

[credentials.spotify]
client_id = "test_client_id"
client_secret = "test_secret"

[cipher]
key = "dGVzdF9rZXk="
salt = "dGVzdF9zYWx0"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Database.Path != "/custom/path.db" {
			t.Errorf("expected database path /custom/path.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 8080 {
			t.Errorf("expected server port 8080, got %d", config.Server.Port)
		}

		if config.Server.FetchBudget() != 4*time.Second {
			t.Errorf("expected fetch budget 4s, got %v", config.Server.FetchBudget())
		}

		if config.Server.StateTokenExpiry() != 2*time.Minute {
			t.Errorf("expected state token TTL 2m, got %v", config.Server.StateTokenExpiry())
		}

		if config.Credentials.Spotify.ClientID != "test_client_id" {
			t.Errorf("expected spotify client_id test_client_id, got %s", config.Credentials.Spotify.ClientID)
		}
	})

	t.Run("Environment Overrides", func(t *testing.T) {
		t.Setenv("SPOTIFY_CLIENT_ID", "env_client_id")
		t.Setenv("CIPHER_KEY", "env_cipher_key")
		t.Setenv("EXPORTIFY_BASE_URL", "https://env.example")

		config := DefaultConfig()

		if config.Credentials.Spotify.ClientID != "env_client_id" {
			t.Errorf("expected env client_id, got %s", config.Credentials.Spotify.ClientID)
		}
		if config.Cipher.Key != "env_cipher_key" {
			t.Errorf("expected env cipher key, got %s", config.Cipher.Key)
		}
		if config.Server.BaseURL != "https://env.example" {
			t.Errorf("expected env base URL, got %s", config.Server.BaseURL)
		}
	})

	t.Run("ValidateServer", func(t *testing.T) {
		valid := &Config{
			Credentials: CredentialsConfig{
				Spotify: SpotifyConfig{ClientID: "id", ClientSecret: "secret"},
			},
			Cipher: CipherConfig{Key: "a2V5", Salt: "c2FsdA=="},
			Server: ServerConfig{BaseURL: "https://exportify.example"},
		}
		if err := valid.ValidateServer(); err != nil {
			t.Errorf("expected valid config, got %v", err)
		}

		missingCreds := *valid
		missingCreds.Credentials.Spotify.ClientSecret = ""
		if err := missingCreds.ValidateServer(); !errors.Is(err, ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}

		missingCipher := *valid
		missingCipher.Cipher.Salt = ""
		if err := missingCipher.ValidateServer(); !errors.Is(err, ErrMissingConfig) {
			t.Errorf("expected ErrMissingConfig, got %v", err)
		}

		badBase := *valid
		badBase.Server.BaseURL = "not-a-url"
		if err := badBase.ValidateServer(); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}
