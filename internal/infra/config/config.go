package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	App       AppSettings       `mapstructure:"app"`
	Store     StoreSettings     `mapstructure:"store"`
	Security  SecuritySettings  `mapstructure:"security"`
	Session   SessionSettings   `mapstructure:"session"`
	Seed      SeedSettings      `mapstructure:"seed"`
	Telemetry TelemetrySettings `mapstructure:"telemetry"`
}

type AppSettings struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

// StoreSettings configures the durable artifact and its cache.
type StoreSettings struct {
	Path            string        `mapstructure:"path"`
	StalenessWindow time.Duration `mapstructure:"staleness_window"`
}

// SecuritySettings configures password hashing and credential lifetimes.
type SecuritySettings struct {
	BcryptCost           int           `mapstructure:"bcrypt_cost"`
	BcryptCostPrivileged int           `mapstructure:"bcrypt_cost_privileged"`
	ResetTokenTTL        time.Duration `mapstructure:"reset_token_ttl"`
	DeletionRetention    time.Duration `mapstructure:"deletion_retention"`
	MinPasswordScore     int           `mapstructure:"min_password_score"`
}

// SessionSettings configures the signed session tokens issued at login.
type SessionSettings struct {
	Secret string        `mapstructure:"secret"`
	TTL    time.Duration `mapstructure:"ttl"`
}

// SeedSettings describes the administrator created on first start when the
// store holds no ADMIN account.
type SeedSettings struct {
	AdminName     string `mapstructure:"admin_name"`
	AdminEmail    string `mapstructure:"admin_email"`
	AdminPassword string `mapstructure:"admin_password"`
}

type TelemetrySettings struct {
	MetricsPort int `mapstructure:"metrics_port"`
}

func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("BUILDTRACK")

	setDefaults(v)

	if err := bindEnvs(v, []string{
		"app.name",
		"app.env",
		"store.path",
		"store.staleness_window",
		"security.bcrypt_cost",
		"security.bcrypt_cost_privileged",
		"security.reset_token_ttl",
		"security.deletion_retention",
		"security.min_password_score",
		"session.secret",
		"session.ttl",
		"seed.admin_name",
		"seed.admin_email",
		"seed.admin_password",
		"telemetry.metrics_port",
	}); err != nil {
		return nil, err
	}

	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "buildtrack")
	v.SetDefault("app.env", "development")

	v.SetDefault("store.path", "./data/buildtrack.json")
	v.SetDefault("store.staleness_window", "100ms")

	v.SetDefault("security.bcrypt_cost", 10)
	v.SetDefault("security.bcrypt_cost_privileged", 12)
	v.SetDefault("security.reset_token_ttl", "1h")
	// One year of soft-delete retention.
	v.SetDefault("security.deletion_retention", "8760h")
	v.SetDefault("security.min_password_score", 2)

	v.SetDefault("session.secret", "")
	v.SetDefault("session.ttl", "12h")

	v.SetDefault("seed.admin_name", "Administrator")
	v.SetDefault("seed.admin_email", "admin@buildtrack.local")
	v.SetDefault("seed.admin_password", "")

	v.SetDefault("telemetry.metrics_port", 9090)
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, "BUILDTRACK_"+envKey, envKey); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}
