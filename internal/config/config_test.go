package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Database:   DatabaseConfig{Driver: DriverMemory},
		JWT:        JWTConfig{Secret: "secret", AccessExpiration: "24h"},
		App:        AppConfig{Timezone: "Asia/Jakarta"},
		Storage:    StorageConfig{Type: "local"},
		Attendance: AttendanceConfig{CutoffHour: 19},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid memory config", mutate: func(c *Config) {}},
		{
			name:    "postgres requires password",
			mutate:  func(c *Config) { c.Database.Driver = DriverPostgres },
			wantErr: "DB_PASSWORD",
		},
		{
			name:    "unknown driver",
			mutate:  func(c *Config) { c.Database.Driver = "sqlite" },
			wantErr: "DB_DRIVER",
		},
		{
			name:    "missing jwt secret",
			mutate:  func(c *Config) { c.JWT.Secret = "" },
			wantErr: "JWT_SECRET_KEY",
		},
		{
			name:    "bad expiration",
			mutate:  func(c *Config) { c.JWT.AccessExpiration = "forever" },
			wantErr: "JWT_ACCESS_EXPIRATION_TIME",
		},
		{
			name:    "bad timezone",
			mutate:  func(c *Config) { c.App.Timezone = "Mars/Olympus" },
			wantErr: "APP_TIMEZONE",
		},
		{
			name:    "s3 without bucket",
			mutate:  func(c *Config) { c.Storage.Type = "s3" },
			wantErr: "S3_BUCKET",
		},
		{
			name:    "unsupported storage",
			mutate:  func(c *Config) { c.Storage.Type = "ftp" },
			wantErr: "STORAGE_TYPE",
		},
		{
			name:    "cutoff out of range",
			mutate:  func(c *Config) { c.Attendance.CutoffHour = 24 },
			wantErr: "ATTENDANCE_CUTOFF_HOUR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad(t *testing.T) {
	t.Run("reads environment", func(t *testing.T) {
		t.Setenv("DB_DRIVER", DriverMemory)
		t.Setenv("JWT_SECRET_KEY", "test-secret")
		t.Setenv("APP_PORT", "9090")
		t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test,")
		t.Setenv("ATTENDANCE_CUTOFF_HOUR", "18")
		t.Setenv("GEOCODER_TIMEOUT", "1500ms")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 9090, cfg.App.Port)
		assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.App.AllowedOrigins)
		assert.Equal(t, 18, cfg.Attendance.CutoffHour)
		assert.Equal(t, "1.5s", cfg.Geocoder.Timeout.String())
		assert.Equal(t, "Asia/Jakarta", cfg.Location().String())
	})

	t.Run("collects parse errors", func(t *testing.T) {
		t.Setenv("DB_DRIVER", DriverMemory)
		t.Setenv("JWT_SECRET_KEY", "test-secret")
		t.Setenv("APP_PORT", "eighty")
		t.Setenv("DB_AUTO_MIGRATE", "maybe")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "APP_PORT")
		assert.Contains(t, err.Error(), "DB_AUTO_MIGRATE")
	})
}

func TestDatabaseURL(t *testing.T) {
	cfg := &Config{Database: DatabaseConfig{
		User: "fs", Password: "pw", Host: "db", Port: 5433, Name: "field", SSLMode: "disable",
	}}
	assert.Equal(t, "postgres://fs:pw@db:5433/field?sslmode=disable", cfg.DatabaseURL())
}
