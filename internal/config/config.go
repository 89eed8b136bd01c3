// Package config loads the Stratum configuration from the environment.
//
// Configuration starts from the tier preset (standard or pro) and every
// field can then be overridden through STRATUM_* environment variables,
// e.g. STRATUM_SERVER_PORT=9090 or STRATUM_DB_DRIVER=postgres. A .env
// file in the working directory is honored when present.
package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/opensource-logistics/stratum/internal/domain"
)

// Load builds the configuration from the tier preset plus environment
// overrides and validates the result.
func Load() (*domain.Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("stratum")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("tier", string(domain.TierStandard))
	tier := domain.Tier(strings.ToLower(v.GetString("tier")))

	base := preset(tier)
	if base == nil {
		return nil, fmt.Errorf("unknown tier %q (valid: standard, pro, enterprise)", v.GetString("tier"))
	}

	setDefaults(v, base)

	cfg := &domain.Config{
		Server: domain.ServerConfig{
			Host:         v.GetString("server.host"),
			Port:         v.GetInt("server.port"),
			ReadTimeout:  v.GetInt("server.read.timeout"),
			WriteTimeout: v.GetInt("server.write.timeout"),
		},
		Tier: tier,
		Repository: domain.RepositoryConfig{
			Driver:           v.GetString("db.driver"),
			SQLitePath:       v.GetString("db.sqlite.path"),
			PostgresHost:     v.GetString("db.postgres.host"),
			PostgresPort:     v.GetInt("db.postgres.port"),
			PostgresUser:     v.GetString("db.postgres.user"),
			PostgresPassword: v.GetString("db.postgres.password"),
			PostgresDB:       v.GetString("db.postgres.name"),
			PostgresSSLMode:  v.GetString("db.postgres.sslmode"),
			MySQLHost:        v.GetString("db.mysql.host"),
			MySQLPort:        v.GetInt("db.mysql.port"),
			MySQLUser:        v.GetString("db.mysql.user"),
			MySQLPassword:    v.GetString("db.mysql.password"),
			MySQLDB:          v.GetString("db.mysql.name"),
		},
		Cache: domain.CacheConfig{
			Type:           v.GetString("cache.type"),
			LocalMaxSize:   v.GetInt("cache.max.size"),
			LocalTTL:       v.GetDuration("cache.ttl"),
			RedisAddr:      v.GetString("cache.redis.addr"),
			RedisPassword:  v.GetString("cache.redis.password"),
			RedisDB:        v.GetInt("cache.redis.db"),
			EnableTwoPhase: v.GetBool("cache.two.phase"),
		},
		EventBus: domain.EventBusConfig{
			Type:              v.GetString("bus.type"),
			ChannelBufferSize: v.GetInt("bus.buffer.size"),
			NATSUrl:           v.GetString("bus.nats.url"),
			NATSMaxReconnects: v.GetInt("bus.nats.max.reconnects"),
			NATSReconnectWait: v.GetInt("bus.nats.reconnect.wait"),
		},
		Archive: domain.ArchiveConfig{
			Enabled:   v.GetBool("archive.enabled"),
			Endpoint:  v.GetString("archive.endpoint"),
			AccessKey: v.GetString("archive.access.key"),
			SecretKey: v.GetString("archive.secret.key"),
			Bucket:    v.GetString("archive.bucket"),
			UseSSL:    v.GetBool("archive.use.ssl"),
		},
		Workers:    v.GetInt("workers"),
		AuthSecret: v.GetString("auth.secret"),
		Logging: domain.LoggingConfig{
			Level:  strings.ToLower(v.GetString("log.level")),
			Format: strings.ToLower(v.GetString("log.format")),
		},
		Tracing: domain.TracingConfig{
			Enabled:      v.GetBool("tracing.enabled"),
			ServiceName:  v.GetString("tracing.service.name"),
			ExporterType: v.GetString("tracing.exporter"),
			Endpoint:     v.GetString("tracing.endpoint"),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// preset returns the base configuration for a tier. Enterprise shares the
// Pro infrastructure stack.
func preset(tier domain.Tier) *domain.Config {
	switch tier {
	case domain.TierStandard:
		return domain.DefaultConfig()
	case domain.TierPro, domain.TierEnterprise:
		return domain.ProConfig()
	default:
		return nil
	}
}

func setDefaults(v *viper.Viper, base *domain.Config) {
	v.SetDefault("server.host", base.Server.Host)
	v.SetDefault("server.port", base.Server.Port)
	v.SetDefault("server.read.timeout", base.Server.ReadTimeout)
	v.SetDefault("server.write.timeout", base.Server.WriteTimeout)

	v.SetDefault("db.driver", base.Repository.Driver)
	v.SetDefault("db.sqlite.path", base.Repository.SQLitePath)
	v.SetDefault("db.postgres.host", base.Repository.PostgresHost)
	v.SetDefault("db.postgres.port", base.Repository.PostgresPort)
	v.SetDefault("db.postgres.user", "stratum")
	v.SetDefault("db.postgres.password", "")
	v.SetDefault("db.postgres.name", base.Repository.PostgresDB)
	v.SetDefault("db.postgres.sslmode", "disable")
	v.SetDefault("db.mysql.host", "localhost")
	v.SetDefault("db.mysql.port", 3306)
	v.SetDefault("db.mysql.user", "stratum")
	v.SetDefault("db.mysql.password", "")
	v.SetDefault("db.mysql.name", "stratum")

	v.SetDefault("cache.type", base.Cache.Type)
	v.SetDefault("cache.max.size", base.Cache.LocalMaxSize)
	v.SetDefault("cache.ttl", base.Cache.LocalTTL)
	v.SetDefault("cache.redis.addr", base.Cache.RedisAddr)
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.two.phase", base.Cache.EnableTwoPhase)

	v.SetDefault("bus.type", base.EventBus.Type)
	v.SetDefault("bus.buffer.size", base.EventBus.ChannelBufferSize)
	v.SetDefault("bus.nats.url", base.EventBus.NATSUrl)
	v.SetDefault("bus.nats.max.reconnects", base.EventBus.NATSMaxReconnects)
	v.SetDefault("bus.nats.reconnect.wait", base.EventBus.NATSReconnectWait)

	v.SetDefault("archive.enabled", base.Archive.Enabled)
	v.SetDefault("archive.endpoint", "")
	v.SetDefault("archive.access.key", "")
	v.SetDefault("archive.secret.key", "")
	v.SetDefault("archive.bucket", base.Archive.Bucket)
	v.SetDefault("archive.use.ssl", false)

	v.SetDefault("workers", base.Workers)
	v.SetDefault("auth.secret", "")

	v.SetDefault("log.level", base.Logging.Level)
	v.SetDefault("log.format", base.Logging.Format)

	v.SetDefault("tracing.enabled", base.Tracing.Enabled)
	v.SetDefault("tracing.service.name", base.Tracing.ServiceName)
	v.SetDefault("tracing.exporter", "stdout")
	v.SetDefault("tracing.endpoint", "")
}

func validate(cfg *domain.Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", cfg.Server.Port)
	}

	switch cfg.Repository.Driver {
	case "memory", "sqlite", "postgres", "mysql":
	default:
		return fmt.Errorf("unknown repository driver %q (valid: memory, sqlite, postgres, mysql)", cfg.Repository.Driver)
	}

	switch cfg.Cache.Type {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown cache type %q (valid: memory, redis)", cfg.Cache.Type)
	}

	switch cfg.EventBus.Type {
	case "channel", "nats":
	default:
		return fmt.Errorf("unknown event bus type %q (valid: channel, nats)", cfg.EventBus.Type)
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q (valid: debug, info, warn, error)", cfg.Logging.Level)
	}

	switch cfg.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("unknown log format %q (valid: json, text)", cfg.Logging.Format)
	}

	if cfg.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", cfg.Workers)
	}

	if cfg.Archive.Enabled && cfg.Archive.Endpoint == "" {
		return fmt.Errorf("archive is enabled but no endpoint is configured")
	}

	return nil
}
