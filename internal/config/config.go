package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the full service configuration, loaded once at startup and
// immutable afterwards.
type Config struct {
	Server    ServerConfig  `mapstructure:"server"`
	Log       LogConfig     `mapstructure:"log"`
	DB        DBConfig      `mapstructure:"db"`
	Auth      AuthConfig    `mapstructure:"auth"`
	Camera    CameraConfig  `mapstructure:"camera"`
	Capture   CaptureConfig `mapstructure:"capture"`
	Vision    VisionConfig  `mapstructure:"vision"`
	MQTT      MQTTConfig    `mapstructure:"mqtt"`
	Locations []string      `mapstructure:"locations"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

// AuthConfig holds token verification settings for the administrative
// endpoints. User management itself lives outside this service.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

// CameraConfig describes the fixed camera monitoring the zone.
// FocalLength and SensorWidth are in millimeters, Distance in the unit
// the dimension estimate should come out in.
type CameraConfig struct {
	ID          string  `mapstructure:"id"`
	Model       string  `mapstructure:"model"`
	FocalLength float64 `mapstructure:"focal_length"`
	SensorWidth float64 `mapstructure:"sensor_width"`
	Distance    float64 `mapstructure:"distance"`
}

// CaptureConfig holds capture-loop settings.
type CaptureConfig struct {
	IntervalMS int `mapstructure:"interval_ms"`
}

// VisionConfig holds settings for the sidecar vision/OCR service.
type VisionConfig struct {
	URL            string `mapstructure:"url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// MQTTConfig holds settings for the optional event publisher.
type MQTTConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Broker   string `mapstructure:"broker"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	ClientID string `mapstructure:"client_id"`
	Topic    string `mapstructure:"topic"`
}

// Load reads configuration from the given YAML file with environment
// variable overrides (prefix CHALLAN_, dots replaced by underscores).
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "challan")
	v.SetDefault("db.name", "challan")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("camera.focal_length", 35.0)
	v.SetDefault("camera.sensor_width", 23.5)
	v.SetDefault("camera.distance", 10.0)
	v.SetDefault("capture.interval_ms", 2000)
	v.SetDefault("vision.url", "http://localhost:9090")
	v.SetDefault("vision.timeout_seconds", 10)
	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "localhost")
	v.SetDefault("mqtt.port", 1883)
	v.SetDefault("mqtt.client_id", "challan-service")
	v.SetDefault("mqtt.topic", "challans")

	v.SetConfigFile(path)
	v.SetEnvPrefix("CHALLAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Camera.FocalLength <= 0 || cfg.Camera.SensorWidth <= 0 || cfg.Camera.Distance <= 0 {
		return nil, fmt.Errorf("camera parameters must be positive")
	}
	if cfg.Capture.IntervalMS <= 0 {
		return nil, fmt.Errorf("capture interval must be positive")
	}

	return &cfg, nil
}
