package platform

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// FlagsConfig holds all boolean or string flags for the app.
type FlagsConfig struct {
	// Headless disables the HTTP server when true.
	Headless bool
}

// SessionConfig says what to debug and how the command surfaces behave.
type SessionConfig struct {
	// ProfilePath is a JSON launch profile; see LoadProfile.
	ProfilePath string
	// OverlayPath is an optional JSON merge patch applied over the profile.
	OverlayPath string
	// SourceRoot is where breakpoint source excerpts are read from.
	SourceRoot string
	// CommandTimeout bounds a request/reply command round trip.
	CommandTimeout time.Duration
	// ShutdownTimeout bounds the wait for jdb to exit on shutdown.
	ShutdownTimeout time.Duration
}

// AppConfig contains the configuration for the app.
type AppConfig struct {
	Flags      *FlagsConfig
	NatsCfg    *EmbeddedServerConfig
	HTTPSrvCfg *HTTPServerConfig
	Session    *SessionConfig
	LogLevel   string
	// CookieKey signs the viewer cookie; empty means a random per-process key.
	CookieKey string
}

// LoadAppConfig loads .env (if present) and builds the configuration from
// defaults overridden by JDBRUN_* environment variables.
func LoadAppConfig() *AppConfig {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("could not load .env", "err", err)
	}
	cfg := &AppConfig{
		Flags:      defaultFlagsCfg(),
		NatsCfg:    defaultNatsCfg(),
		HTTPSrvCfg: defaultHTTPServerCfg(),
		Session:    defaultSessionCfg(),
		LogLevel:   "info",
	}
	applyEnv(cfg, os.LookupEnv)
	return cfg
}

// applyEnv overrides cfg from lookup, which has the shape of os.LookupEnv.
func applyEnv(cfg *AppConfig, lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			} else {
				slog.Warn("ignoring invalid boolean", "key", key, "value", v)
			}
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && v != "" {
			if d, err := time.ParseDuration(v); err == nil {
				*dst = d
			} else {
				slog.Warn("ignoring invalid duration", "key", key, "value", v)
			}
		}
	}

	boolean("JDBRUN_HEADLESS", &cfg.Flags.Headless)
	str("JDBRUN_LOG_LEVEL", &cfg.LogLevel)
	str("JDBRUN_COOKIE_KEY", &cfg.CookieKey)

	if v, ok := lookup("JDBRUN_HTTP_PORT"); ok && v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.HTTPSrvCfg.Port = p
		} else {
			slog.Warn("ignoring invalid port", "key", "JDBRUN_HTTP_PORT", "value", v)
		}
	}
	str("JDBRUN_TLS_CERT", &cfg.HTTPSrvCfg.CertFile)
	str("JDBRUN_TLS_KEY", &cfg.HTTPSrvCfg.KeyFile)
	cfg.HTTPSrvCfg.EnableTLS = cfg.HTTPSrvCfg.CertFile != "" && cfg.HTTPSrvCfg.KeyFile != ""

	boolean("JDBRUN_NATS_IN_PROCESS", &cfg.NatsCfg.InProcess)
	if v, ok := lookup("JDBRUN_NATS_PORT"); ok && v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.NatsCfg.Port = p
		} else {
			slog.Warn("ignoring invalid port", "key", "JDBRUN_NATS_PORT", "value", v)
		}
	}
	boolean("JDBRUN_NATS_MEMORY", &cfg.NatsCfg.MemoryStorage)
	str("JDBRUN_NATS_STORE_DIR", &cfg.NatsCfg.StoreDir)
	str("JDBRUN_NATS_LEAF_URL", &cfg.NatsCfg.LeafNodeURL)
	str("JDBRUN_NATS_LEAF_CREDS", &cfg.NatsCfg.LeafNodeCreds)

	str("JDBRUN_PROFILE", &cfg.Session.ProfilePath)
	str("JDBRUN_PROFILE_OVERLAY", &cfg.Session.OverlayPath)
	str("JDBRUN_SOURCE_ROOT", &cfg.Session.SourceRoot)
	duration("JDBRUN_COMMAND_TIMEOUT", &cfg.Session.CommandTimeout)
	duration("JDBRUN_SHUTDOWN_TIMEOUT", &cfg.Session.ShutdownTimeout)

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
}

func defaultFlagsCfg() *FlagsConfig {
	return &FlagsConfig{Headless: false}
}

// defaultHTTPServerCfg returns sane defaults for the HTTP server. TLS is on
// only when both a certificate and a key are configured.
func defaultHTTPServerCfg() *HTTPServerConfig {
	return &HTTPServerConfig{
		Port:         8080,
		ReadTimeout:  -1,
		WriteTimeout: -1,
		IdleTimeout:  -1,
	}
}

func defaultNatsCfg() *EmbeddedServerConfig {
	return &EmbeddedServerConfig{
		InProcess:     true,
		EnableLogging: true,
		JetStream:     true,
		StoreDir:      "./store/js",
	}
}

func defaultSessionCfg() *SessionConfig {
	return &SessionConfig{
		CommandTimeout:  30 * time.Second,
		ShutdownTimeout: 5 * time.Second,
	}
}
