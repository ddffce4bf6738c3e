package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configEnvKeys = []string{
	"SCM_APP_NAME",
	"SCM_APP_ENV",
	"SCM_APP_PORT",
	"SCM_DATABASE_DRIVER",
	"SCM_DATABASE_HOST",
	"SCM_DATABASE_PORT",
	"SCM_DATABASE_PASSWORD",
	"SCM_DATABASE_SSLMODE",
	"SCM_DATABASE_PATH",
	"SCM_DATABASE_MAX_OPEN_CONNS",
	"SCM_DATABASE_MAX_IDLE_CONNS",
	"SCM_REDIS_ENABLED",
	"SCM_LEDGER_RETRY_ATTEMPTS",
	"SCM_LEDGER_DISTRIBUTED_LOCK",
	"SCM_LEDGER_LOCK_TTL",
	"SCM_LEDGER_SERIAL_NODE",
	"SCM_EVENT_STATISTICS_BUFFER",
	"SCM_RECONCILE_ENABLED",
	"SCM_RECONCILE_INTERVAL",
	"SCM_TELEMETRY_DB_LOG_FULL_SQL",
}

// clearConfigEnv unsets every SCM_ variable the tests touch and restores
// the original values when the test ends
func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, k := range configEnvKeys {
		if v, ok := os.LookupEnv(k); ok {
			t.Cleanup(func() { os.Setenv(k, v) })
			os.Unsetenv(k)
		} else {
			t.Cleanup(func() { os.Unsetenv(k) })
		}
	}
}

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		clearConfigEnv(t)

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "fulfillment", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "postgres", cfg.Database.Driver)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, 5, cfg.Database.MaxIdleConns)
		assert.Equal(t, 3, cfg.Ledger.RetryAttempts)
		assert.Equal(t, 10*time.Second, cfg.Ledger.LockTTL)
		assert.Equal(t, int64(1), cfg.Ledger.SerialNode)
		assert.Equal(t, 1024, cfg.Event.StatisticsBuffer)
		assert.False(t, cfg.Reconcile.Enabled)
		assert.Equal(t, 6*time.Hour, cfg.Reconcile.Interval)
		assert.Equal(t, 2, cfg.Reconcile.Workers)
		assert.Contains(t, cfg.HTTP.CORSAllowHeaders, "X-Tenant-ID")
	})

	t.Run("loads values from environment variables with SCM prefix", func(t *testing.T) {
		clearConfigEnv(t)
		os.Setenv("SCM_APP_NAME", "scm-test")
		os.Setenv("SCM_APP_PORT", "9000")
		os.Setenv("SCM_DATABASE_DRIVER", "sqlite")
		os.Setenv("SCM_DATABASE_PATH", ":memory:")
		os.Setenv("SCM_LEDGER_RETRY_ATTEMPTS", "5")
		os.Setenv("SCM_LEDGER_LOCK_TTL", "30s")
		os.Setenv("SCM_LEDGER_SERIAL_NODE", "7")
		os.Setenv("SCM_EVENT_STATISTICS_BUFFER", "64")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "scm-test", cfg.App.Name)
		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, "sqlite", cfg.Database.Driver)
		assert.Equal(t, ":memory:", cfg.Database.DSN())
		assert.Equal(t, 5, cfg.Ledger.RetryAttempts)
		assert.Equal(t, 30*time.Second, cfg.Ledger.LockTTL)
		assert.Equal(t, int64(7), cfg.Ledger.SerialNode)
		assert.Equal(t, 64, cfg.Event.StatisticsBuffer)
	})

	t.Run("rejects unknown database driver", func(t *testing.T) {
		clearConfigEnv(t)
		os.Setenv("SCM_DATABASE_DRIVER", "mysql")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.driver")
	})

	t.Run("validates MaxIdleConns cannot exceed MaxOpenConns", func(t *testing.T) {
		clearConfigEnv(t)
		os.Setenv("SCM_DATABASE_MAX_OPEN_CONNS", "10")
		os.Setenv("SCM_DATABASE_MAX_IDLE_CONNS", "20")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot exceed")
	})

	t.Run("validates MaxIdleConns cannot be negative", func(t *testing.T) {
		clearConfigEnv(t)
		os.Setenv("SCM_DATABASE_MAX_IDLE_CONNS", "-1")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_idle_conns cannot be negative")
	})

	t.Run("rejects out of range serial node", func(t *testing.T) {
		clearConfigEnv(t)
		os.Setenv("SCM_LEDGER_SERIAL_NODE", "2048")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ledger.serial_node")
	})

	t.Run("distributed lock needs redis", func(t *testing.T) {
		clearConfigEnv(t)
		os.Setenv("SCM_LEDGER_DISTRIBUTED_LOCK", "true")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "requires redis.enabled")

		os.Setenv("SCM_REDIS_ENABLED", "true")
		cfg, err := Load()
		require.NoError(t, err)
		assert.True(t, cfg.Ledger.DistributedLock)
	})

	t.Run("reconcile sweep interval has a floor", func(t *testing.T) {
		clearConfigEnv(t)
		os.Setenv("SCM_RECONCILE_ENABLED", "true")
		os.Setenv("SCM_RECONCILE_INTERVAL", "10s")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "reconcile.interval")

		os.Setenv("SCM_RECONCILE_INTERVAL", "30m")
		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 30*time.Minute, cfg.Reconcile.Interval)
	})
}

func TestLoad_ProductionValidation(t *testing.T) {
	setValidProductionBase := func() {
		os.Setenv("SCM_APP_ENV", "production")
		os.Setenv("SCM_DATABASE_PASSWORD", "secure-password")
		os.Setenv("SCM_DATABASE_SSLMODE", "require")
	}

	t.Run("requires database.password in production", func(t *testing.T) {
		clearConfigEnv(t)
		setValidProductionBase()
		os.Unsetenv("SCM_DATABASE_PASSWORD")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.password is required in production")
	})

	t.Run("requires SSL enabled in production", func(t *testing.T) {
		clearConfigEnv(t)
		setValidProductionBase()
		os.Setenv("SCM_DATABASE_SSLMODE", "disable")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.sslmode cannot be 'disable' in production")
	})

	t.Run("rejects sqlite in production", func(t *testing.T) {
		clearConfigEnv(t)
		setValidProductionBase()
		os.Setenv("SCM_DATABASE_DRIVER", "sqlite")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must be postgres in production")
	})

	t.Run("rejects full SQL tracing in production", func(t *testing.T) {
		clearConfigEnv(t)
		setValidProductionBase()
		os.Setenv("SCM_TELEMETRY_DB_LOG_FULL_SQL", "true")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "db_log_full_sql")
	})

	t.Run("passes validation with valid production config", func(t *testing.T) {
		clearConfigEnv(t)
		setValidProductionBase()

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "production", cfg.App.Env)
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Run("generates valid postgres DSN", func(t *testing.T) {
		cfg := DatabaseConfig{
			Driver:   "postgres",
			Host:     "localhost",
			Port:     5432,
			User:     "testuser",
			Password: "testpass",
			DBName:   "testdb",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		assert.Contains(t, dsn, "localhost:5432")
		assert.Contains(t, dsn, "testuser")
		assert.Contains(t, dsn, "testdb")
		assert.Contains(t, dsn, "sslmode=disable")
	})

	t.Run("escapes special characters in password", func(t *testing.T) {
		cfg := DatabaseConfig{
			Driver:   "postgres",
			Host:     "localhost",
			Port:     5432,
			User:     "user",
			Password: "pass@word#123",
			DBName:   "db",
			SSLMode:  "disable",
		}

		assert.Contains(t, cfg.DSN(), "pass%40word%23123")
	})

	t.Run("sqlite uses the file path", func(t *testing.T) {
		cfg := DatabaseConfig{Driver: "sqlite", Path: "/var/lib/scm/ledger.db"}
		assert.Equal(t, "/var/lib/scm/ledger.db", cfg.DSN())
	})
}

func TestRedisConfig_Addr(t *testing.T) {
	assert.Equal(t, "cache:6380", RedisConfig{Host: "cache", Port: 6380}.Addr())
}
