package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Protocol-Lattice/configql/schema"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "configql.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := writeFile(t, `
addr: ":9000"
schema_path: /etc/configql/schema.graphql
log_format: json
skip_invalid_mutations: true
shutdown_timeout: 3s
rules:
  - pattern: "save*"
    flavor: configfile
  - pattern: "restart*"
    flavor: prefix
    prefixes: [restart]
`)
	t.Setenv("CONFIGQL_ADDR", ":9100")
	t.Setenv("CONFIGQL_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9100", cfg.Addr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "/etc/configql/schema.graphql", cfg.SchemaPath)
	assert.True(t, cfg.SkipInvalidMutations)
	assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, []schema.Rule{
		{Pattern: "save*", Flavor: schema.FlavorConfigFile},
		{Pattern: "restart*", Flavor: schema.FlavorPrefix, Prefixes: []string{"restart"}},
	}, cfg.Rules)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "read config")

	_, err = Load(writeFile(t, "addr: [not, a, string"))
	assert.ErrorContains(t, err, "parse config")

	t.Setenv("CONFIGQL_SHUTDOWN_TIMEOUT", "soon")
	_, err = Load("")
	assert.ErrorContains(t, err, "parse env")
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Addr = ""
	assert.EqualError(t, cfg.Validate(), "config: one of addr or fasthttp_addr is required")

	cfg.FastHTTPAddr = ":8081"
	assert.NoError(t, cfg.Validate())

	cfg.SchemaPath = ""
	assert.EqualError(t, cfg.Validate(), "config: schema_path is required")
}
