package platform

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mapLookup(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func baseConfig() *AppConfig {
	return &AppConfig{
		Flags:      defaultFlagsCfg(),
		NatsCfg:    defaultNatsCfg(),
		HTTPSrvCfg: defaultHTTPServerCfg(),
		Session:    defaultSessionCfg(),
		LogLevel:   "info",
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := baseConfig()
	applyEnv(cfg, mapLookup(map[string]string{
		"JDBRUN_HEADLESS":        "true",
		"JDBRUN_HTTP_PORT":       "9090",
		"JDBRUN_LOG_LEVEL":       "DEBUG",
		"JDBRUN_NATS_MEMORY":     "1",
		"JDBRUN_NATS_PORT":       "-1",
		"JDBRUN_PROFILE":         "profile.json",
		"JDBRUN_PROFILE_OVERLAY": "local.json",
		"JDBRUN_SOURCE_ROOT":     "src/main/java",
		"JDBRUN_COMMAND_TIMEOUT": "2s",
	}))
	assert.True(t, cfg.Flags.Headless)
	assert.Equal(t, 9090, cfg.HTTPSrvCfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.NatsCfg.MemoryStorage)
	assert.Equal(t, -1, cfg.NatsCfg.Port)
	assert.Equal(t, "profile.json", cfg.Session.ProfilePath)
	assert.Equal(t, "local.json", cfg.Session.OverlayPath)
	assert.Equal(t, "src/main/java", cfg.Session.SourceRoot)
	assert.Equal(t, 2*time.Second, cfg.Session.CommandTimeout)
	assert.False(t, cfg.HTTPSrvCfg.EnableTLS)
}

func TestApplyEnv_InvalidValuesKeepDefaults(t *testing.T) {
	cfg := baseConfig()
	applyEnv(cfg, mapLookup(map[string]string{
		"JDBRUN_HTTP_PORT":       "eighty",
		"JDBRUN_HEADLESS":        "maybe",
		"JDBRUN_COMMAND_TIMEOUT": "soon",
	}))
	assert.Equal(t, 8080, cfg.HTTPSrvCfg.Port)
	assert.False(t, cfg.Flags.Headless)
	assert.Equal(t, 30*time.Second, cfg.Session.CommandTimeout)
}

func TestApplyEnv_TLSNeedsCertAndKey(t *testing.T) {
	cfg := baseConfig()
	applyEnv(cfg, mapLookup(map[string]string{"JDBRUN_TLS_CERT": "c.pem"}))
	assert.False(t, cfg.HTTPSrvCfg.EnableTLS)

	applyEnv(cfg, mapLookup(map[string]string{"JDBRUN_TLS_KEY": "k.pem"}))
	assert.True(t, cfg.HTTPSrvCfg.EnableTLS)
}

func TestNewLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&buf, "warn")
	log.Info("hidden")
	log.Warn("shown", "session", "s1")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "shown", rec["msg"])
	assert.Equal(t, "s1", rec["session"])
}

func TestInitMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := InitMetrics(reg)
	require.NotNil(t, m)
	m.SessionsActive.Set(1)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["jdbrun_sessions_active"])
}
