package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the process configuration, read from (highest first) environment
// variables, .env, an optional config file and defaults.
type Config struct {
	DB       DBConfig
	HTTP     HTTPConfig
	Log      LogConfig
	Redis    RedisConfig
	Jobs     JobsConfig
	Discover DiscoveryConfig
}

type DBConfig struct {
	// Driver is one of mysql, postgres, sqlite, memory.
	Driver      string
	URL         string
	Host        string
	Port        int
	User        string
	Password    string
	Name        string
	SSLMode     string
	SQLitePath  string
	AutoMigrate bool
	SlowQuery   time.Duration
}

type HTTPConfig struct {
	Port        string
	CORSOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// RedisConfig is optional; an empty Addr means in-process job locking.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JobsConfig struct {
	LockTTL time.Duration
}

type DiscoveryConfig struct {
	Limit        int
	BatchCeiling int
}

var supportedDrivers = map[string]bool{"mysql": true, "postgres": true, "sqlite": true, "memory": true}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db_driver", "mysql")
	v.SetDefault("db_host", "127.0.0.1")
	v.SetDefault("db_user", "root")
	v.SetDefault("db_name", "facility_db")
	v.SetDefault("db_sslmode", "disable")
	v.SetDefault("sqlite_path", "facility.db")
	v.SetDefault("db_automigrate", true)
	v.SetDefault("db_slow_query", "1s")
	v.SetDefault("port", "8080")
	v.SetDefault("cors_origins", "http://localhost:5173,http://localhost:3000")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("redis_db", 0)
	v.SetDefault("job_lock_ttl", "10m")
	v.SetDefault("discovery_limit", 200)
	v.SetDefault("discovery_batch_ceiling", 500)
}

// Load reads the configuration. configFile may be empty.
func Load(configFile string) (*Config, error) {
	// .env is optional; real environment variables win over it
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}
	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	url := strings.TrimSpace(v.GetString("mysql_url"))
	if url == "" {
		url = strings.TrimSpace(v.GetString("database_url"))
	}

	cfg := &Config{
		DB: DBConfig{
			Driver:      strings.ToLower(strings.TrimSpace(v.GetString("db_driver"))),
			URL:         url,
			Host:        v.GetString("db_host"),
			Port:        v.GetInt("db_port"),
			User:        v.GetString("db_user"),
			Password:    v.GetString("db_pass"),
			Name:        v.GetString("db_name"),
			SSLMode:     v.GetString("db_sslmode"),
			SQLitePath:  v.GetString("sqlite_path"),
			AutoMigrate: v.GetBool("db_automigrate"),
			SlowQuery:   v.GetDuration("db_slow_query"),
		},
		HTTP: HTTPConfig{
			Port:        v.GetString("port"),
			CORSOrigins: splitList(v.GetString("cors_origins")),
		},
		Log: LogConfig{
			Level:  v.GetString("log_level"),
			Format: v.GetString("log_format"),
		},
		Redis: RedisConfig{
			Addr:     strings.TrimSpace(v.GetString("redis_addr")),
			Password: v.GetString("redis_password"),
			DB:       v.GetInt("redis_db"),
		},
		Jobs: JobsConfig{
			LockTTL: v.GetDuration("job_lock_ttl"),
		},
		Discover: DiscoveryConfig{
			Limit:        v.GetInt("discovery_limit"),
			BatchCeiling: v.GetInt("discovery_batch_ceiling"),
		},
	}

	if !supportedDrivers[cfg.DB.Driver] {
		return nil, fmt.Errorf("unsupported DB_DRIVER %q (want mysql, postgres, sqlite or memory)", cfg.DB.Driver)
	}
	if cfg.DB.Port == 0 {
		switch cfg.DB.Driver {
		case "mysql":
			cfg.DB.Port = 3306
		case "postgres":
			cfg.DB.Port = 5432
		}
	}
	if cfg.Discover.Limit <= 0 || cfg.Discover.BatchCeiling <= 0 {
		return nil, fmt.Errorf("DISCOVERY_LIMIT and DISCOVERY_BATCH_CEILING must be positive")
	}
	return cfg, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
