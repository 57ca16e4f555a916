package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app_configs.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "auth-api", c.AppName)
	assert.Equal(t, "UTC", c.TimeZone)
	assert.Equal(t, "HS256", c.Auth.Algorithm)
	assert.Equal(t, "argon2id", c.Auth.HashAlgorithm)
	assert.Equal(t, 24*time.Hour, c.Auth.ExpireDelta.Duration())
	assert.Equal(t, DriverSQLite, c.Store.Driver)
	assert.Empty(t, c.Store.Database)
	assert.Equal(t, "0.0.0.0:8080", c.HTTP.Addr())
	assert.Equal(t, []string{"*"}, c.HTTP.AllowedOrigins)
	assert.Equal(t, "info", c.Log.Level)
	assert.Empty(t, c.Auth.SecretKey)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeFile(t, `
app_name: billing-auth
time_zone: Asia/Kolkata
auth:
  secret_key: from-file
  algorithm: HS512
  hash_algorithm: scrypt
  encrypt_key: pepper
  salt: salt
  expire_delta: "1:02:03:04"
store:
  driver: memory
  database: from-file-db
http:
  port: "9000"
  read_timeout: 5s
  allowed_origins: ["https://a.example", "https://b.example"]
log:
  level: debug
  format: text
`)
	t.Setenv("AUTH_API_AUTH_SECRET_KEY", "from-env")
	t.Setenv("AUTH_API_HTTP_PORT", "9100")
	t.Setenv("AUTH_API_STORE_DATABASE", "auth_billing")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "billing-auth", cfg.AppName)
	assert.Equal(t, "Asia/Kolkata", cfg.TimeZone)
	assert.Equal(t, "from-env", cfg.Auth.SecretKey)
	assert.Equal(t, "HS512", cfg.Auth.Algorithm)
	assert.Equal(t, "scrypt", cfg.Auth.HashAlgorithm)
	assert.Equal(t, "pepper", cfg.Auth.EncryptKey)
	want := 24*time.Hour + 2*time.Hour + 3*time.Minute + 4*time.Second
	assert.Equal(t, want, cfg.Auth.ExpireDelta.Duration())
	assert.Equal(t, DriverMemory, cfg.Store.Driver)
	assert.Equal(t, "auth_billing", cfg.Store.Database)
	assert.Equal(t, "9100", cfg.HTTP.Port)
	assert.Equal(t, 5*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, 15*time.Second, cfg.HTTP.WriteTimeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.AllowedOrigins)
	assert.Equal(t, "text", cfg.Log.Format)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Kolkata", loc.String())
}

func TestLoad_EnvOnlyWithMissingDefaultFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("AUTH_API_AUTH_SECRET_KEY", "s")
	t.Setenv("AUTH_API_AUTH_SALT", "salt")
	t.Setenv("AUTH_API_AUTH_EXPIRE_DELTA", "0:00:30:00")
	t.Setenv("AUTH_API_HTTP_ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, cfg.Auth.ExpireDelta.Duration())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.AllowedOrigins)
	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_BadYAML(t *testing.T) {
	_, err := Load(writeFile(t, "auth: [unclosed"))
	assert.Error(t, err)
}

func TestLoad_BadEnvLifetime(t *testing.T) {
	t.Setenv("AUTH_API_AUTH_EXPIRE_DELTA", "1:2:3")
	_, err := Load(writeFile(t, "auth: {secret_key: s, salt: x}\n"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		var c Config
		c.LoadDefaults()
		c.Auth.SecretKey = "s"
		c.Auth.Salt = "salt"
		return c
	}

	c := valid()
	require.NoError(t, c.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty secret", func(c *Config) { c.Auth.SecretKey = " " }, "secret_key"},
		{"empty salt", func(c *Config) { c.Auth.Salt = "" }, "salt"},
		{"rsa", func(c *Config) { c.Auth.Algorithm = "RS256" }, "auth.algorithm"},
		{"md5", func(c *Config) { c.Auth.HashAlgorithm = "md5" }, "hash_algorithm"},
		{"zero lifetime", func(c *Config) { c.Auth.ExpireDelta = 0 }, "expire_delta"},
		{"bad zone", func(c *Config) { c.TimeZone = "Mars/Olympus" }, "time_zone"},
		{"postgres without dsn", func(c *Config) { c.Store.Driver = DriverPostgres }, "store.dsn"},
		{"sqlite without path", func(c *Config) { c.Store.Path = "" }, "store.path"},
		{"mongo", func(c *Config) { c.Store.Driver = "mongo" }, "store.driver"},
		{"no port", func(c *Config) { c.HTTP.Port = "" }, "http.port"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			require.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseLifetime(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"0:00:00:30", 30 * time.Second, false},
		{"2:00:00:00", 48 * time.Hour, false},
		{"0:1:90:0", time.Hour + 90*time.Minute, false},
		{"90m", 90 * time.Minute, false},
		{"1:2:3", 0, true},
		{"a:0:0:0", 0, true},
		{"0:-1:0:0", 0, true},
		{"soon", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLifetime(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLifetime_String(t *testing.T) {
	l := Lifetime(26*time.Hour + 5*time.Minute + 7*time.Second)
	assert.Equal(t, "1:02:05:07", l.String())

	var back Lifetime
	require.NoError(t, back.UnmarshalText([]byte(l.String())))
	assert.Equal(t, l, back)
}
