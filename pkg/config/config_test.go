package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	// Save current env and restore after test
	originalEnv := os.Environ()
	defer func() {
		os.Clearenv()
		for _, env := range originalEnv {
			for i := 0; i < len(env); i++ {
				if env[i] == '=' {
					os.Setenv(env[:i], env[i+1:])
					break
				}
			}
		}
	}()

	tests := []struct {
		name    string
		env     map[string]string
		wantErr bool
		check   func(t *testing.T, cfg *Config)
	}{
		{
			name: "defaults",
			env:  map[string]string{},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "0.0.0.0", cfg.Server.Host)
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, "localhost", cfg.Database.Host)
				assert.Equal(t, "policyflow", cfg.Database.Database)
				assert.Equal(t, 2*time.Second, cfg.Audit.WriteTimeout)
				assert.Equal(t, "audit:overflow", cfg.Audit.QueueKey)
				assert.Equal(t, float64(10000), cfg.Engine.WarnAmount)
				assert.Equal(t, float64(50000), cfg.Engine.CritAmount)
				assert.Equal(t, float64(0), cfg.Engine.DenyAmountLimit)
			},
		},
		{
			name: "custom values",
			env: map[string]string{
				"SERVER_PORT":              "9000",
				"DB_HOST":                  "db.example.com",
				"DB_NAME":                  "erp_policy",
				"REDIS_HOST":               "redis.example.com",
				"LOG_LEVEL":                "debug",
				"APP_ENV":                  "production",
				"ENGINE_WARN_AMOUNT":       "2500",
				"ENGINE_CRIT_AMOUNT":       "75000",
				"ENGINE_DENY_AMOUNT_LIMIT": "100000",
				"AUDIT_WRITE_TIMEOUT":      "5s",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9000, cfg.Server.Port)
				assert.Equal(t, "db.example.com", cfg.Database.Host)
				assert.Equal(t, "erp_policy", cfg.Database.Database)
				assert.Equal(t, "redis.example.com", cfg.Redis.Host)
				assert.Equal(t, "debug", cfg.Logger.Level)
				assert.Equal(t, "production", cfg.App.Environment)
				assert.Equal(t, float64(2500), cfg.Engine.WarnAmount)
				assert.Equal(t, float64(75000), cfg.Engine.CritAmount)
				assert.Equal(t, float64(100000), cfg.Engine.DenyAmountLimit)
				assert.Equal(t, 5*time.Second, cfg.Audit.WriteTimeout)
			},
		},
		{
			name: "invalid port",
			env: map[string]string{
				"SERVER_PORT": "99999",
			},
			wantErr: true,
		},
		{
			name: "warn threshold above crit",
			env: map[string]string{
				"ENGINE_WARN_AMOUNT": "90000",
				"ENGINE_CRIT_AMOUNT": "50000",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			for k, v := range tt.env {
				os.Setenv(k, v)
			}

			cfg, err := Load()

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, cfg)

			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:   ServerConfig{Port: 8080},
			Database: DatabaseConfig{Host: "localhost", Database: "policyflow"},
			Redis:    RedisConfig{Host: "localhost"},
			Audit:    AuditConfig{WriteTimeout: 2 * time.Second},
			Engine:   EngineConfig{WarnAmount: 10000, CritAmount: 50000},
		}
	}

	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr bool
		errMsg  string
	}{
		{"valid config", func(cfg *Config) {}, false, ""},
		{"port too low", func(cfg *Config) { cfg.Server.Port = 0 }, true, "invalid server port"},
		{"port too high", func(cfg *Config) { cfg.Server.Port = 70000 }, true, "invalid server port"},
		{"missing database host", func(cfg *Config) { cfg.Database.Host = "" }, true, "database host is required"},
		{"missing database name", func(cfg *Config) { cfg.Database.Database = "" }, true, "database name is required"},
		{"missing redis host", func(cfg *Config) { cfg.Redis.Host = "" }, true, "redis host is required"},
		{"zero audit timeout", func(cfg *Config) { cfg.Audit.WriteTimeout = 0 }, true, "audit write timeout"},
		{"warn above crit", func(cfg *Config) { cfg.Engine.WarnAmount = 60000 }, true, "exceeds crit amount"},
		{"crit disabled allows any warn", func(cfg *Config) {
			cfg.Engine.CritAmount = 0
			cfg.Engine.WarnAmount = 60000
		}, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()

			if tt.wantErr {
				assert.Error(t, err)
				if tt.errMsg != "" {
					assert.Contains(t, err.Error(), tt.errMsg)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_DatabaseDSN(t *testing.T) {
	cfg := &Config{
		Database: DatabaseConfig{
			Host:     "db.example.com",
			Port:     5432,
			User:     "testuser",
			Password: "testpass",
			Database: "testdb",
			SSLMode:  "require",
		},
	}

	dsn := cfg.DatabaseDSN()

	assert.Contains(t, dsn, "host=db.example.com")
	assert.Contains(t, dsn, "port=5432")
	assert.Contains(t, dsn, "user=testuser")
	assert.Contains(t, dsn, "password=testpass")
	assert.Contains(t, dsn, "dbname=testdb")
	assert.Contains(t, dsn, "sslmode=require")
}

func TestConfig_RedisAddr(t *testing.T) {
	cfg := &Config{
		Redis: RedisConfig{
			Host: "redis.example.com",
			Port: 6379,
		},
	}

	assert.Equal(t, "redis.example.com:6379", cfg.RedisAddr())
}

func TestGetEnvAsFloat(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		defaultValue float64
		expected     float64
	}{
		{"valid float", "2500.50", 10, 2500.50},
		{"invalid float", "not_a_number", 10, 10},
		{"empty value", "", 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv("TEST_FLOAT", tt.envValue)
				defer os.Unsetenv("TEST_FLOAT")
			}

			assert.Equal(t, tt.expected, getEnvAsFloat("TEST_FLOAT", tt.defaultValue))
		})
	}
}

func TestGetEnvAsDuration(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		defaultValue time.Duration
		expected     time.Duration
	}{
		{"valid duration", "30s", 10 * time.Second, 30 * time.Second},
		{"invalid duration", "not_a_duration", 10 * time.Second, 10 * time.Second},
		{"empty value", "", 10 * time.Second, 10 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv("TEST_DURATION", tt.envValue)
				defer os.Unsetenv("TEST_DURATION")
			}

			assert.Equal(t, tt.expected, getEnvAsDuration("TEST_DURATION", tt.defaultValue))
		})
	}
}
