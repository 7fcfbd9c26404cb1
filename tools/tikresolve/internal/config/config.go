package cliconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/perpetuallyhorni/tikresolve/pkg/config"
)

const AppName = config.AppName

// Config extends the core config with CLI-specific options.
type Config struct {
	config.Config `koanf:",squash"`
	DatabasePath  string `koanf:"database_path"`
	Editor        string `koanf:"editor"`
}

// Default returns the default CLI configuration.
func Default() (*Config, error) {
	coreCfg := config.Default()
	dbPath, err := xdg.DataFile(filepath.Join(AppName, "history.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to get default db path: %w", err)
	}

	return &Config{
		Config:       *coreCfg,
		DatabasePath: dbPath,
		Editor:       "", // Default editor is determined in the 'edit' command logic
	}, nil
}

// DefaultPath returns the xdg location of the config file.
func DefaultPath() (string, error) {
	return xdg.ConfigFile(filepath.Join(AppName, "config.yaml"))
}

// Load loads the configuration from the given path, creating a default file if none exists.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	defCfg, err := Default()
	if err != nil {
		return nil, err
	}
	cfgPath := path
	if cfgPath == "" {
		cfgPath, err = DefaultPath()
		if err != nil {
			return nil, fmt.Errorf("failed to get default config path: %w", err)
		}
	}
	if _, err := os.Stat(cfgPath); errors.Is(err, os.ErrNotExist) {
		if err := createDefaultConfig(cfgPath, defCfg); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	}
	if err := k.Load(file.Provider(cfgPath), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}
	loaded := *defCfg
	cfg := &loaded
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// An emptied database_path falls back to the default location.
	if cfg.DatabasePath == "" {
		cfg.DatabasePath = defCfg.DatabasePath
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 1
	}
	return cfg, nil
}

// createDefaultConfig creates a default configuration file.
func createDefaultConfig(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	content := fmt.Sprintf(`# tikresolve CLI configuration file.
# Origin serving post detail pages.
platform_domain: "%s"
# Origin serving short links (vt.tiktok.com).
short_domain: "%s"
# Browser user agent sent to the platform.
user_agent: "%s"
# Timeout for each request, e.g. "20s".
request_timeout: "%s"
# Outbound IP address or interface to bind to. Empty uses the system default.
bind_address: "%s"
# Base URL of the external tunnel serving proxied photo links.
# This tool only issues signed links; the tunnel must verify them with the same stream_secret.
stream_base_url: "%s"
# Secret signing proxied links, shared with the tunnel. Empty generates a random one per run,
# which no tunnel can verify.
stream_secret: "%s"
# Lifetime of proxied links, e.g. "90s".
stream_ttl: "%s"
# Route gallery photos through the tunnel at stream_base_url. Requires stream_secret.
always_proxy: %t
# Prefer H.265 video variants when available.
h265: %t
# Always use the post's original sound for audio.
full_audio: %t
# Resolve audio instead of video.
audio_only: %t
# Number of targets resolved at once.
max_workers: %d
# Path to the SQLite database recording resolutions.
database_path: "%s"
# Editor to use for the 'edit' command. If empty, it will check $EDITOR, then common editors.
editor: "%s"
`, cfg.PlatformDomain, cfg.ShortDomain, cfg.UserAgent, cfg.RequestTimeout, cfg.BindAddress,
		cfg.StreamBaseURL, cfg.StreamSecret, cfg.StreamTTL, cfg.AlwaysProxy, cfg.H265, cfg.FullAudio,
		cfg.AudioOnly, cfg.MaxWorkers, cfg.DatabasePath, cfg.Editor)
	content = strings.ReplaceAll(content, "\\", "/")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write default config file: %w", err)
	}
	return nil
}
