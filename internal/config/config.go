package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Provider  ProviderConfig
	Monitor   MonitorConfig
	Alerts    AlertsConfig
	Scheduler SchedulerConfig
	Mimir     MimirConfig
}

type ServerConfig struct {
	Port         string
	Mode         string
	JWTSecret    string
	TriggerToken string
}

type DatabaseConfig struct {
	Driver         string
	URL            string
	MaxConnections int
	MaxIdleConns   int
	AutoMigrate    bool
}

type RedisConfig struct {
	URL       string
	HealthTTL time.Duration
	QueueName string
}

type ProviderConfig struct {
	BaseURL           string
	APIToken          string
	ZoneID            string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
}

type MonitorConfig struct {
	ScheduledTimeout     time.Duration
	ManualTimeout        time.Duration
	Concurrency          int
	FailureThreshold     int
	LatencyDegraded      time.Duration
	LatencyUnhealthy     time.Duration
	SSLCriticalDays      int
	SSLWarningDays       int
	SSLAlertWindowDays   int
	DNSServer            string
	RegistrationCheck    bool
	RegistrationWarnDays int
	RecentChecks         int
}

type AlertsConfig struct {
	Deduplicate bool
}

type SchedulerConfig struct {
	Mode           string
	WorkerCount    int
	PopTimeout     time.Duration
	HealthSweep    string
	SSLExpirySweep string
	Analytics      string
}

type MimirConfig struct {
	URL           string
	TenantHeader  string
	BatchSize     int
	FlushInterval time.Duration
	AuthToken     string
}

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"

	ModeQueue     = "queue"
	ModeInProcess = "inprocess"
)

func Load() (*Config, error) {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetEnvPrefix("GUARDIAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Override with environment variables
	if url := os.Getenv("DATABASE_URL"); url != "" {
		cfg.Database.URL = url
	}
	if url := os.Getenv("REDIS_URL"); url != "" {
		cfg.Redis.URL = url
	}
	if token := os.Getenv("PROVIDER_API_TOKEN"); token != "" {
		cfg.Provider.APIToken = token
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.Server.JWTSecret = secret
	}
	if token := os.Getenv("TRIGGER_TOKEN"); token != "" {
		cfg.Server.TriggerToken = token
	}
	if url := os.Getenv("MIMIR_URL"); url != "" {
		cfg.Mimir.URL = url
	}
	if token := os.Getenv("MIMIR_AUTH_TOKEN"); token != "" {
		cfg.Mimir.AuthToken = token
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Empty defaults register the keys so GUARDIAN_* env vars bind on Unmarshal.
	for _, key := range []string{
		"server.jwtsecret", "server.triggertoken", "database.url", "redis.url",
		"provider.apitoken", "provider.zoneid", "mimir.url", "mimir.authtoken",
	} {
		v.SetDefault(key, "")
	}

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.driver", DriverPostgres)
	v.SetDefault("database.maxconnections", 25)
	v.SetDefault("database.maxidleconns", 5)
	v.SetDefault("database.automigrate", true)
	v.SetDefault("redis.healthttl", "5m")
	v.SetDefault("redis.queuename", "domain_sweeps")
	v.SetDefault("provider.baseurl", "https://api.cloudflare.com/client/v4")
	v.SetDefault("provider.timeout", "15s")
	v.SetDefault("provider.requestspersecond", 4)
	v.SetDefault("provider.burst", 4)
	v.SetDefault("monitor.scheduledtimeout", "15s")
	v.SetDefault("monitor.manualtimeout", "10s")
	v.SetDefault("monitor.concurrency", 10)
	v.SetDefault("monitor.failurethreshold", 3)
	v.SetDefault("monitor.latencydegraded", "5s")
	v.SetDefault("monitor.latencyunhealthy", "10s")
	v.SetDefault("monitor.sslcriticaldays", 7)
	v.SetDefault("monitor.sslwarningdays", 30)
	v.SetDefault("monitor.sslalertwindowdays", 30)
	v.SetDefault("monitor.dnsserver", "8.8.8.8:53")
	v.SetDefault("monitor.registrationcheck", false)
	v.SetDefault("monitor.registrationwarndays", 30)
	v.SetDefault("monitor.recentchecks", 20)
	v.SetDefault("alerts.deduplicate", false)
	v.SetDefault("scheduler.mode", ModeQueue)
	v.SetDefault("scheduler.workercount", 2)
	v.SetDefault("scheduler.poptimeout", "5s")
	v.SetDefault("scheduler.healthsweep", "*/5 * * * *")
	v.SetDefault("scheduler.sslexpirysweep", "0 6 * * *")
	v.SetDefault("scheduler.analytics", "0 2 * * *")
	v.SetDefault("mimir.tenantheader", "X-Scope-OrgID")
	v.SetDefault("mimir.batchsize", 1000)
	v.SetDefault("mimir.flushinterval", "10s")
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("database.url is required for the %s driver", DriverPostgres)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}

	switch c.Scheduler.Mode {
	case ModeQueue, ModeInProcess:
	default:
		return fmt.Errorf("unknown scheduler mode %q", c.Scheduler.Mode)
	}

	if c.Monitor.Concurrency <= 0 {
		return fmt.Errorf("monitor.concurrency must be positive, got %d", c.Monitor.Concurrency)
	}
	if c.Monitor.FailureThreshold <= 0 {
		return fmt.Errorf("monitor.failurethreshold must be positive, got %d", c.Monitor.FailureThreshold)
	}
	if c.Monitor.SSLCriticalDays >= c.Monitor.SSLWarningDays {
		return fmt.Errorf("monitor.sslcriticaldays (%d) must be below sslwarningdays (%d)", c.Monitor.SSLCriticalDays, c.Monitor.SSLWarningDays)
	}
	if c.Monitor.LatencyDegraded >= c.Monitor.LatencyUnhealthy {
		return fmt.Errorf("monitor.latencydegraded must be below latencyunhealthy")
	}
	return nil
}
