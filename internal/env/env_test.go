package env

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type TestConfig struct {
	Host    string        `env:"TEST_HOST" default:"localhost"`
	Port    int           `env:"TEST_PORT" default:"8080"`
	Enabled bool          `env:"TEST_ENABLED" default:"true"`
	Timeout time.Duration `env:"TEST_TIMEOUT" default:"5s"`
	Tenants []string      `env:"TEST_TENANTS"`
	NoDef   string        `env:"TEST_NO_DEF"`
}

func TestParse(t *testing.T) {
	os.Clearenv()
	t.Setenv("TEST_HOST", "example.com")
	t.Setenv("TEST_PORT", "9090")
	t.Setenv("TEST_ENABLED", "false")
	t.Setenv("TEST_TIMEOUT", "1m30s")
	t.Setenv("TEST_TENANTS", "acme, initech,,globex")
	t.Setenv("TEST_NO_DEF", "foo")

	var cfg TestConfig
	err := Parse(&cfg)
	require.NoError(t, err)

	assert.Equal(t, "example.com", cfg.Host)
	assert.Equal(t, 9090, cfg.Port)
	assert.False(t, cfg.Enabled)
	assert.Equal(t, 90*time.Second, cfg.Timeout)
	assert.Equal(t, []string{"acme", "initech", "globex"}, cfg.Tenants)
	assert.Equal(t, "foo", cfg.NoDef)
}

func TestParse_Defaults(t *testing.T) {
	os.Clearenv()

	var cfg TestConfig
	err := Parse(&cfg)
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 8080, cfg.Port)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Nil(t, cfg.Tenants)
	assert.Empty(t, cfg.NoDef)
}

func TestParse_EmptyStringRespected(t *testing.T) {
	os.Clearenv()
	t.Setenv("TEST_HOST", "")

	var cfg TestConfig
	err := Parse(&cfg)
	require.NoError(t, err)

	assert.Equal(t, "", cfg.Host)
	assert.Equal(t, 8080, cfg.Port)
}

func TestParse_EmptyStringIntError(t *testing.T) {
	os.Clearenv()
	t.Setenv("TEST_PORT", "")

	var cfg TestConfig
	err := Parse(&cfg)

	var invalid ErrInvalidValue
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "TEST_PORT", invalid.EnvVar)
	assert.Equal(t, "Port", invalid.Field)
	assert.Contains(t, err.Error(), "parsing")
}

func TestParse_NotStructPointer(t *testing.T) {
	var cfg TestConfig
	err := Parse(cfg)

	var notPtr ErrNotStructPointer
	assert.ErrorAs(t, err, &notPtr)
}

func TestParse_EmbeddedStruct(t *testing.T) {
	type BaseConfig struct {
		StorageDSN  string `env:"STORAGE_DSN"`
		StorageType string `env:"STORAGE_TYPE" default:"postgres"`
	}

	type AppConfig struct {
		BaseConfig
		AppName string `env:"APP_NAME" default:"myapp"`
	}

	t.Run("parses embedded struct fields", func(t *testing.T) {
		os.Clearenv()
		t.Setenv("STORAGE_DSN", "postgres://localhost/db")
		t.Setenv("APP_NAME", "testapp")

		var cfg AppConfig
		err := Parse(&cfg)
		require.NoError(t, err)

		assert.Equal(t, "postgres://localhost/db", cfg.StorageDSN)
		assert.Equal(t, "postgres", cfg.StorageType)
		assert.Equal(t, "testapp", cfg.AppName)
	})

	t.Run("empty string in embedded struct is respected", func(t *testing.T) {
		os.Clearenv()
		t.Setenv("STORAGE_DSN", "postgres://localhost/db")
		t.Setenv("STORAGE_TYPE", "")

		var cfg AppConfig
		err := Parse(&cfg)
		require.NoError(t, err)

		assert.Equal(t, "", cfg.StorageType)
	})
}

var errBadLimit = errors.New("limit must be positive")

type limitConfig struct {
	Limit int `env:"TEST_LIMIT" default:"10"`
}

func (c *limitConfig) Validate() error {
	if c.Limit <= 0 {
		return errBadLimit
	}
	return nil
}

type wrapperConfig struct {
	Limits limitConfig
}

func TestLoad_ValidatesNestedStructs(t *testing.T) {
	os.Clearenv()

	var cfg wrapperConfig
	require.NoError(t, Load(&cfg))
	assert.Equal(t, 10, cfg.Limits.Limit)

	t.Setenv("TEST_LIMIT", "0")
	assert.ErrorIs(t, Load(&cfg), errBadLimit)
}

func TestLoadDotEnv(t *testing.T) {
	os.Clearenv()
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("TEST_HOST=from-file\nTEST_PORT=7000\n"), 0o600))

	t.Setenv("TEST_PORT", "9000")
	require.NoError(t, LoadDotEnv(path, filepath.Join(dir, "missing.env")))

	var cfg TestConfig
	require.NoError(t, Parse(&cfg))
	assert.Equal(t, "from-file", cfg.Host)
	assert.Equal(t, 9000, cfg.Port, "process environment wins over the file")
}

type boundedConfig struct {
	Workers int           `env:"TEST_WORKERS" default:"4" validate:"gt=0,lte=16"`
	Every   time.Duration `env:"TEST_EVERY" default:"1m" validate:"gt=0"`
}

type outerConfig struct {
	Bounded boundedConfig
	Limits  limitConfig
}

func TestLoad_ValidateTags(t *testing.T) {
	os.Clearenv()

	var cfg outerConfig
	require.NoError(t, Load(&cfg))
	assert.Equal(t, 4, cfg.Bounded.Workers)

	t.Setenv("TEST_WORKERS", "32")
	t.Setenv("TEST_EVERY", "0s")
	err := Load(&cfg)

	var constraint ErrConstraint
	require.ErrorAs(t, err, &constraint)
	assert.ErrorContains(t, err, "TEST_WORKERS=32 must satisfy lte=16")
	assert.ErrorContains(t, err, "TEST_EVERY")
}

func TestLoad_TagsCheckedBeforeValidators(t *testing.T) {
	os.Clearenv()
	t.Setenv("TEST_WORKERS", "0")
	t.Setenv("TEST_LIMIT", "0")

	var cfg outerConfig
	err := Load(&cfg)

	var constraint ErrConstraint
	assert.ErrorAs(t, err, &constraint)
	assert.NotErrorIs(t, err, errBadLimit)
}

func TestParse_SkipsValidation(t *testing.T) {
	os.Clearenv()
	t.Setenv("TEST_WORKERS", "99")
	t.Setenv("TEST_LIMIT", "-1")

	var cfg outerConfig
	require.NoError(t, Parse(&cfg))
	assert.Equal(t, 99, cfg.Bounded.Workers)
	assert.Equal(t, -1, cfg.Limits.Limit)
}
