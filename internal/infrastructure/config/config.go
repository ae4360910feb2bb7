package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Log       LogConfig
	Source    SourceConfig
	Storage   StorageConfig
	Normalize NormalizeConfig
	Output    OutputConfig
	Metrics   MetricsConfig
	Schedule  ScheduleConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `validate:"oneof=debug info warn error"`
	Format string `validate:"oneof=json console"`
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver          string `validate:"oneof=postgres sqlite"`
	Host            string
	Port            int `validate:"gte=0,lte=65535"`
	User            string
	Password        string
	DBName          string
	SSLMode         string
	Path            string // sqlite file, or ":memory:"
	MaxOpenConns    int    `validate:"gt=0"`
	MaxIdleConns    int    `validate:"gte=0"`
	ConnMaxLifetime int    // in minutes
	ConnMaxIdleTime int    // in minutes
	LogLevel        string `validate:"oneof=silent error warn info"`
	SlowThreshold   time.Duration
}

// SourceConfig describes the raw extract. An empty Format is taken from the
// path's extension.
type SourceConfig struct {
	Path        string
	Format      string `validate:"omitempty,oneof=csv xlsx"`
	Encoding    string `validate:"oneof=utf-8 latin1 windows-1252"`
	Delimiter   string `validate:"len=1"`
	DateLayouts []string
	LazyQuotes  bool
	Sheet       string
}

// StorageConfig holds S3-compatible object storage settings.
// Source paths of the form s3://bucket/key are read through it.
type StorageConfig struct {
	Enabled      bool
	Endpoint     string
	Region       string
	Bucket       string
	AccessKey    string
	SecretKey    string
	UseSSL       bool
	UsePathStyle bool
	OutputPrefix string
}

// NormalizeConfig holds the rebuild contract
type NormalizeConfig struct {
	NamePolicy string `validate:"oneof=most_frequent max_string"`
	Isolation  string `validate:"oneof=default read_committed repeatable_read serializable"`
	LockTables bool
	BatchSize  int `validate:"gt=0"`
}

// OutputConfig holds report file settings
type OutputConfig struct {
	Dir string `validate:"required"`
}

// MetricsConfig holds batch metrics settings
type MetricsConfig struct {
	Textfile string // empty disables the textfile export
}

// ScheduleConfig holds the daily run time of the schedule command
type ScheduleConfig struct {
	Hour          int `validate:"gte=0,lte=23"`
	Minute        int `validate:"gte=0,lte=59"`
	CheckInterval time.Duration
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with SALESBI_ prefix (e.g., SALESBI_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file. An empty path searches
// the default locations.
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/app")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("SALESBI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
		},
		Database: DatabaseConfig{
			Driver:          v.GetString("database.driver"),
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			Path:            v.GetString("database.path"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
			LogLevel:        v.GetString("database.log_level"),
			SlowThreshold:   v.GetDuration("database.slow_threshold"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Source: SourceConfig{
			Path:        v.GetString("source.path"),
			Format:      strings.ToLower(v.GetString("source.format")),
			Encoding:    strings.ToLower(v.GetString("source.encoding")),
			Delimiter:   v.GetString("source.delimiter"),
			DateLayouts: v.GetStringSlice("source.date_layouts"),
			LazyQuotes:  v.GetBool("source.lazy_quotes"),
			Sheet:       v.GetString("source.sheet"),
		},
		Storage: StorageConfig{
			Enabled:      v.GetBool("storage.enabled"),
			Endpoint:     v.GetString("storage.endpoint"),
			Region:       v.GetString("storage.region"),
			Bucket:       v.GetString("storage.bucket"),
			AccessKey:    v.GetString("storage.access_key"),
			SecretKey:    v.GetString("storage.secret_key"),
			UseSSL:       v.GetBool("storage.use_ssl"),
			UsePathStyle: v.GetBool("storage.use_path_style"),
			OutputPrefix: v.GetString("storage.output_prefix"),
		},
		Normalize: NormalizeConfig{
			NamePolicy: v.GetString("normalize.name_policy"),
			Isolation:  v.GetString("normalize.isolation"),
			LockTables: true,
			BatchSize:  v.GetInt("normalize.batch_size"),
		},
		Output: OutputConfig{
			Dir: v.GetString("output.dir"),
		},
		Metrics: MetricsConfig{
			Textfile: v.GetString("metrics.textfile"),
		},
		Schedule: ScheduleConfig{
			Hour:          2,
			Minute:        v.GetInt("schedule.minute"),
			CheckInterval: v.GetDuration("schedule.check_interval"),
		},
	}
	if v.IsSet("normalize.lock_tables") {
		cfg.Normalize.LockTables = v.GetBool("normalize.lock_tables")
	}
	if v.IsSet("schedule.hour") {
		cfg.Schedule.Hour = v.GetInt("schedule.hour")
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "salesbi"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "sales_bi"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "sales_bi.db"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 2
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Database.LogLevel == "" {
		cfg.Database.LogLevel = "warn"
	}
	if cfg.Database.SlowThreshold == 0 {
		cfg.Database.SlowThreshold = 2 * time.Second
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.Source.Path == "" {
		cfg.Source.Path = "data/raw/online_retail.csv"
	}
	if cfg.Source.Encoding == "" {
		cfg.Source.Encoding = "utf-8"
	}
	if cfg.Source.Delimiter == "" {
		cfg.Source.Delimiter = ","
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
	if cfg.Storage.OutputPrefix == "" {
		cfg.Storage.OutputPrefix = "outputs"
	}
	if cfg.Normalize.NamePolicy == "" {
		cfg.Normalize.NamePolicy = "most_frequent"
	}
	if cfg.Normalize.Isolation == "" {
		cfg.Normalize.Isolation = "default"
	}
	if cfg.Normalize.BatchSize == 0 {
		cfg.Normalize.BatchSize = 1000
	}
	if cfg.Output.Dir == "" {
		cfg.Output.Dir = "data/outputs"
	}
	if cfg.Schedule.CheckInterval == 0 {
		cfg.Schedule.CheckInterval = 30 * time.Second
	}
}

var structValidator = validator.New()

// validate performs validation on the configuration
func (c *Config) validate() error {
	if err := structValidator.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%s: invalid value %v (rule %s)", configKey(fe.Namespace()), fe.Value(), fe.Tag())
		}
		return err
	}

	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.Storage.Enabled && c.Storage.Bucket == "" {
		return fmt.Errorf("storage.bucket is required when storage is enabled")
	}

	if c.App.Env == "production" && c.Database.Driver == "postgres" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
	}

	return nil
}

// configKey turns a validator namespace such as Config.Database.MaxOpenConns
// into the matching config key, database.max_open_conns.
func configKey(ns string) string {
	parts := strings.Split(ns, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, p := range parts {
		parts[i] = snake(p)
	}
	return strings.Join(parts, ".")
}

func snake(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		upper := r >= 'A' && r <= 'Z'
		if upper && i > 0 {
			prevLower := runes[i-1] >= 'a' && runes[i-1] <= 'z'
			nextLower := i+1 < len(runes) && runes[i+1] >= 'a' && runes[i+1] <= 'z'
			if prevLower || nextLower {
				b.WriteByte('_')
			}
		}
		if upper {
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
