package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server         ServerConfig         `mapstructure:"server"`
	Database       DatabaseConfig       `mapstructure:"database"`
	Bus            BusConfig            `mapstructure:"bus"`
	Automatisering AutomatiseringConfig `mapstructure:"automatisering"`
	Worker         WorkerConfig         `mapstructure:"worker"`
	Logger         LoggerConfig         `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsDir   string        `mapstructure:"migrations_dir"`
}

// BusConfig holds message bus configuration
type BusConfig struct {
	Topic         string `mapstructure:"topic"`
	ConsumerGroup string `mapstructure:"consumer_group"`
}

// AutomatiseringConfig holds the sampling divisors for automated decisions.
// A divisor of 0 disables sampling for that category.
type AutomatiseringConfig struct {
	StikkproveUtbetalingTilSykmeldt     int `mapstructure:"stikkprove_utbetaling_til_sykmeldt"`
	StikkproveUtbetalingTilArbeidsgiver int `mapstructure:"stikkprove_utbetaling_til_arbeidsgiver"`
	StikkproveUtbetalingTilBegge        int `mapstructure:"stikkprove_utbetaling_til_begge"`
	StikkproveFlereArbeidsgivere        int `mapstructure:"stikkprove_flere_arbeidsgivere"`
	StikkproveForstegangsbehandling     int `mapstructure:"stikkprove_forstegangsbehandling"`
}

// WorkerConfig holds background worker configuration
type WorkerConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	StuckEtter   time.Duration `mapstructure:"stuck_etter"`
	BatchSize    int           `mapstructure:"batch_size"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	bindEnvVars()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)

	// Database defaults
	viper.SetDefault("database.path", "data/spesialist.db")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	viper.SetDefault("database.migrations_dir", "migrations")

	// Bus defaults
	viper.SetDefault("bus.topic", "tbd.rapid.v1")
	viper.SetDefault("bus.consumer_group", "spesialist")

	// Automatisering defaults; divisor n samples roughly one in n.
	viper.SetDefault("automatisering.stikkprove_utbetaling_til_sykmeldt", 1000)
	viper.SetDefault("automatisering.stikkprove_utbetaling_til_arbeidsgiver", 1000)
	viper.SetDefault("automatisering.stikkprove_utbetaling_til_begge", 1000)
	viper.SetDefault("automatisering.stikkprove_flere_arbeidsgivere", 0)
	viper.SetDefault("automatisering.stikkprove_forstegangsbehandling", 0)

	// Worker defaults
	viper.SetDefault("worker.poll_interval", time.Minute)
	viper.SetDefault("worker.stuck_etter", 30*time.Minute)
	viper.SetDefault("worker.batch_size", 50)

	// Logger defaults
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.output_path", "stdout")
	viper.SetDefault("logger.format", "json")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars() {
	viper.BindEnv("database.path", "DATABASE_PATH")
	viper.BindEnv("bus.topic", "BUS_TOPIC")
	viper.BindEnv("bus.consumer_group", "BUS_CONSUMER_GROUP")
	viper.BindEnv("server.port", "HTTP_PORT")
	viper.BindEnv("logger.level", "LOG_LEVEL")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Bus.Topic == "" {
		return fmt.Errorf("bus.topic is required")
	}
	if c.Worker.PollInterval <= 0 {
		return fmt.Errorf("worker.poll_interval must be positive")
	}
	if c.Worker.StuckEtter <= 0 {
		return fmt.Errorf("worker.stuck_etter must be positive")
	}
	for navn, divisor := range map[string]int{
		"automatisering.stikkprove_utbetaling_til_sykmeldt":     c.Automatisering.StikkproveUtbetalingTilSykmeldt,
		"automatisering.stikkprove_utbetaling_til_arbeidsgiver": c.Automatisering.StikkproveUtbetalingTilArbeidsgiver,
		"automatisering.stikkprove_utbetaling_til_begge":        c.Automatisering.StikkproveUtbetalingTilBegge,
		"automatisering.stikkprove_flere_arbeidsgivere":         c.Automatisering.StikkproveFlereArbeidsgivere,
		"automatisering.stikkprove_forstegangsbehandling":       c.Automatisering.StikkproveForstegangsbehandling,
	} {
		if divisor < 0 {
			return fmt.Errorf("%s cannot be negative", navn)
		}
	}
	return nil
}
