package jsonconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestReadFile_BasicAccessors(t *testing.T) {
	path := writeTempConfig(t, `{
		"clickhouse_dsn": "clickhouse://localhost:9000",
		"small_blob_threshold": 4096,
		"debug": true,
		"folders": ["a", "b"],
		"s3": {"bucket": "hoover4"}
	}`)
	cfg, err := ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "clickhouse://localhost:9000", cfg.RequiredString("clickhouse_dsn"))
	assert.Equal(t, 4096, cfg.RequiredInt("small_blob_threshold"))
	assert.True(t, cfg.RequiredBool("debug"))
	assert.Equal(t, []string{"a", "b"}, cfg.RequiredList("folders"))
	assert.Equal(t, "hoover4", cfg.RequiredObject("s3").RequiredString("bucket"))
	assert.NoError(t, cfg.Validate())
}

func TestValidate_MissingRequiredKey(t *testing.T) {
	path := writeTempConfig(t, `{}`)
	cfg, err := ReadFile(path)
	require.NoError(t, err)

	cfg.RequiredString("clickhouse_dsn")
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clickhouse_dsn")
}

func TestValidate_UnknownKeyRejected(t *testing.T) {
	path := writeTempConfig(t, `{"known": "x", "typo_field": "y"}`)
	cfg, err := ReadFile(path)
	require.NoError(t, err)

	cfg.RequiredString("known")
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "typo_field")
}

func TestOptionalDefaults(t *testing.T) {
	path := writeTempConfig(t, `{}`)
	cfg, err := ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "fallback", cfg.OptionalString("missing", "fallback"))
	assert.Equal(t, 7, cfg.OptionalInt("missing_int", 7))
	assert.True(t, cfg.OptionalBool("missing_bool", true))
	assert.NoError(t, cfg.Validate())
}

func TestEnvExpansion_Required(t *testing.T) {
	t.Setenv("HOOVER4_TEST_DSN", "clickhouse://envhost:9000")
	path := writeTempConfig(t, `{"clickhouse_dsn": ["_env", "HOOVER4_TEST_DSN"]}`)
	cfg, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "clickhouse://envhost:9000", cfg.RequiredString("clickhouse_dsn"))
}

func TestEnvExpansion_DefaultWhenUnset(t *testing.T) {
	os.Unsetenv("HOOVER4_TEST_UNSET")
	path := writeTempConfig(t, `{"value": ["_env", "HOOVER4_TEST_UNSET", "default-value"]}`)
	cfg, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "default-value", cfg.RequiredString("value"))
}

func TestEnvExpansion_MissingRequiredErrors(t *testing.T) {
	os.Unsetenv("HOOVER4_TEST_STILL_UNSET")
	path := writeTempConfig(t, `{"value": ["_env", "HOOVER4_TEST_STILL_UNSET"]}`)
	_, err := ReadFile(path)
	require.Error(t, err)
}

func TestReadFile_MalformedJSON(t *testing.T) {
	path := writeTempConfig(t, `{not valid json`)
	_, err := ReadFile(path)
	require.Error(t, err)
}
