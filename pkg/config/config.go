package config

import (
	"time"

	tikresolve "github.com/perpetuallyhorni/tikresolve/internal"
)

// AppName is used for xdg paths and the default stream secret label.
const AppName = "tikresolve"

// Config struct holds the core, application-agnostic configuration.
type Config struct {
	PlatformDomain string        `koanf:"platform_domain"` // Origin serving post detail pages.
	ShortDomain    string        `koanf:"short_domain"`    // Origin serving short links.
	UserAgent      string        `koanf:"user_agent"`      // Browser fingerprint sent with requests.
	RequestTimeout time.Duration `koanf:"request_timeout"` // Per-request timeout of the HTTP client.
	BindAddress    string        `koanf:"bind_address"`    // Local IP or interface for outbound requests.
	StreamBaseURL  string        `koanf:"stream_base_url"` // Base URL of proxied photo links.
	StreamSecret   string        `koanf:"stream_secret"`   // Key signing proxied links, random if empty.
	StreamTTL      time.Duration `koanf:"stream_ttl"`      // Lifetime of proxied links.
	AlwaysProxy    bool          `koanf:"always_proxy"`    // Route gallery photos through an external stream tunnel.
	H265           bool          `koanf:"h265"`            // Prefer H.265 video variants.
	FullAudio      bool          `koanf:"full_audio"`      // Always use the post's original sound.
	AudioOnly      bool          `koanf:"audio_only"`      // Resolve audio instead of video.
	MaxWorkers     int           `koanf:"max_workers"`     // Concurrent resolutions in the CLI.
}

// Default returns the default core configuration.
func Default() *Config {
	return &Config{
		PlatformDomain: tikresolve.BaseURL,
		ShortDomain:    tikresolve.ShortURL,
		UserAgent:      tikresolve.GenericUserAgent,
		RequestTimeout: 20 * time.Second,
		StreamBaseURL:  "http://localhost:9000",
		StreamTTL:      90 * time.Second,
		MaxWorkers:     4,
	}
}

// Options returns the per-request flags carried by the configuration.
func (c *Config) Options() tikresolve.Request {
	return tikresolve.Request{
		IsAudioOnly: c.AudioOnly,
		FullAudio:   c.FullAudio,
		H265:        c.H265,
		AlwaysProxy: c.AlwaysProxy,
	}
}

// ProxyWarning describes why proxied links cannot be served, or returns "" when
// they can. Links are verified by an external tunnel that must share StreamSecret.
func (c *Config) ProxyWarning() string {
	if !c.AlwaysProxy {
		return ""
	}
	if c.StreamSecret == "" {
		return "always_proxy is set without stream_secret: proxied links are signed with a per-run key no tunnel can verify"
	}
	return ""
}
