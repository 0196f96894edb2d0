package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for devicelink.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Database     DatabaseConfig     `yaml:"database"`
	MQTT         MQTTConfig         `yaml:"mqtt"`
	API          APIConfig          `yaml:"api"`
	InfluxDB     InfluxDBConfig     `yaml:"influxdb"`
	Logging      LoggingConfig      `yaml:"logging"`
	Sync         SyncConfig         `yaml:"sync"`
	Assist       AssistConfig       `yaml:"assist"`
	Capabilities CapabilitiesConfig `yaml:"capabilities"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
// The broker carries smart-home commands, local-network device discovery,
// and doubles as the engine's connectivity signal.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// InfluxDBConfig contains InfluxDB connection settings for the optional
// sync/metric history writer.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// SyncConfig contains sync scheduler settings.
type SyncConfig struct {
	// TickSeconds is the scheduler scan interval. Each tick checks every
	// connected device against its own sync frequency.
	TickSeconds int `yaml:"tick_seconds"`

	// LogRetention is how many sync log entries are kept; oldest evicted first.
	LogRetention int `yaml:"log_retention"`

	// MaxConcurrent bounds how many devices SyncAll touches at once.
	MaxConcurrent int `yaml:"max_concurrent"`
}

// AssistConfig contains settings for the remote setup/voice-parsing service.
type AssistConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// CapabilitiesConfig contains host capability probe settings.
type CapabilitiesConfig struct {
	// BluetoothSysfsPath is where the host exposes bluetooth adapters.
	// Default: /sys/class/bluetooth
	BluetoothSysfsPath string `yaml:"bluetooth_sysfs_path"`

	// LocationEnabled declares whether the host can supply positions.
	// There is no portable probe for this; deployments opt in.
	LocationEnabled bool `yaml:"location_enabled"`

	// ProbeTimeoutSeconds bounds every capability probe.
	ProbeTimeoutSeconds int `yaml:"probe_timeout_seconds"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: DEVICELINK_SECTION_KEY
// For example: DEVICELINK_DATABASE_PATH, DEVICELINK_MQTT_PASSWORD
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:        "./data/devicelink.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Enabled: true,
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "devicelink-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8090,
			Timeouts: APITimeoutConfig{
				Read:  15,
				Write: 15,
				Idle:  60,
			},
		},
		InfluxDB: InfluxDBConfig{
			Enabled:       false,
			URL:           "http://localhost:8086",
			Bucket:        "devicelink",
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Sync: SyncConfig{
			TickSeconds:   60,
			LogRetention:  100,
			MaxConcurrent: 4,
		},
		Assist: AssistConfig{
			BaseURL:        "",
			TimeoutSeconds: 10,
		},
		Capabilities: CapabilitiesConfig{
			BluetoothSysfsPath:  "/sys/class/bluetooth",
			LocationEnabled:     false,
			ProbeTimeoutSeconds: 3,
		},
	}
}

// applyEnvOverrides replaces selected config values from the environment.
// Only values that are secrets or deployment-specific are overridable.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DEVICELINK_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("DEVICELINK_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("DEVICELINK_MQTT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.MQTT.Broker.Port = port
		}
	}
	if v := os.Getenv("DEVICELINK_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("DEVICELINK_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}
	if v := os.Getenv("DEVICELINK_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}
	if v := os.Getenv("DEVICELINK_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
	if v := os.Getenv("DEVICELINK_ASSIST_URL"); v != "" {
		cfg.Assist.BaseURL = v
	}
	if v := os.Getenv("DEVICELINK_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for invalid or inconsistent values.
//
// Returns:
//   - error: Describing the first problem found, or nil if valid
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path must not be empty")
	}
	if c.Database.BusyTimeout < 0 {
		return fmt.Errorf("database.busy_timeout must not be negative")
	}

	if c.MQTT.Enabled {
		if c.MQTT.Broker.Host == "" {
			return fmt.Errorf("mqtt.broker.host must not be empty when mqtt is enabled")
		}
		if c.MQTT.Broker.Port <= 0 || c.MQTT.Broker.Port > 65535 {
			return fmt.Errorf("mqtt.broker.port must be between 1 and 65535")
		}
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			return fmt.Errorf("mqtt.qos must be 0, 1 or 2")
		}
	}

	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("api.port must be between 1 and 65535")
	}

	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			return fmt.Errorf("influxdb.url must not be empty when influxdb is enabled")
		}
		if c.InfluxDB.Bucket == "" {
			return fmt.Errorf("influxdb.bucket must not be empty when influxdb is enabled")
		}
	}

	if c.Sync.TickSeconds <= 0 {
		return fmt.Errorf("sync.tick_seconds must be positive")
	}
	if c.Sync.LogRetention <= 0 {
		return fmt.Errorf("sync.log_retention must be positive")
	}
	if c.Sync.MaxConcurrent <= 0 {
		return fmt.Errorf("sync.max_concurrent must be positive")
	}

	if c.Assist.TimeoutSeconds <= 0 {
		return fmt.Errorf("assist.timeout_seconds must be positive")
	}

	if level := strings.ToLower(c.Logging.Level); level != "" {
		switch level {
		case "debug", "info", "warn", "warning", "error":
		default:
			return fmt.Errorf("logging.level %q is not recognised", c.Logging.Level)
		}
	}

	return nil
}
