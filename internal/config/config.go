package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	HTTP     HTTPConfig     `mapstructure:"http"`
	Database DatabaseConfig `mapstructure:"database"`
	Bookings BookingsConfig `mapstructure:"bookings"`
	SMTP     SMTPConfig     `mapstructure:"smtp"`
	OCR      OCRConfig      `mapstructure:"ocr"`
	Cameras  CamerasConfig  `mapstructure:"cameras"`
	Gates    GatesConfig    `mapstructure:"gates"`
	Exit     ExitConfig     `mapstructure:"exit"`
	Monitor  MonitorConfig  `mapstructure:"monitor"`
}

type HTTPConfig struct {
	ListenAddr     string   `mapstructure:"listen_addr"`
	PublicBaseURL  string   `mapstructure:"public_base_url"`
	JWTSecret      string   `mapstructure:"jwt_secret"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

type BookingsConfig struct {
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type OCRConfig struct {
	ServiceURL      string        `mapstructure:"service_url"`
	Timeout         time.Duration `mapstructure:"timeout"`
	LiveConfidence  float64       `mapstructure:"live_confidence"`
	MergeConfidence float64       `mapstructure:"merge_confidence"`
}

// CamerasConfig points at the snapshot endpoints of the three cameras. An
// empty URL disables that camera's polling loop; detections can still
// arrive through the push-ingest endpoint.
type CamerasConfig struct {
	SlotsURL       string        `mapstructure:"slots_url"`
	EntryURL       string        `mapstructure:"entry_url"`
	ExitURL        string        `mapstructure:"exit_url"`
	EntryStability int           `mapstructure:"entry_stability"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
}

type GatesConfig struct {
	Entry GateLinkConfig `mapstructure:"entry"`
	Exit  GateLinkConfig `mapstructure:"exit"`
}

type GateLinkConfig struct {
	Device        string        `mapstructure:"device"`
	BaudRate      int           `mapstructure:"baud_rate"`
	SensorTimeout time.Duration `mapstructure:"sensor_timeout"`
}

type ExitConfig struct {
	ConfirmTimeout time.Duration `mapstructure:"confirm_timeout"`
	Cooldown       time.Duration `mapstructure:"cooldown"`
}

type MonitorConfig struct {
	TickInterval time.Duration `mapstructure:"tick_interval"`
	Slots        []SlotRegion  `mapstructure:"slots"`
}

// SlotRegion maps a 1-based slot index onto a camera image region.
type SlotRegion struct {
	Slot int `mapstructure:"slot"`
	X    int `mapstructure:"x"`
	Y    int `mapstructure:"y"`
	W    int `mapstructure:"w"`
	H    int `mapstructure:"h"`
}

// Load reads parkgate.yaml from the working directory (or the path given in
// PARKGATE_CONFIG) with PARKGATE_* environment overrides.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("http.listen_addr", ":8080")
	v.SetDefault("http.public_base_url", "http://localhost:8080")
	v.SetDefault("http.allowed_origins", []string{"*"})
	v.SetDefault("http.jwt_secret", "")
	v.SetDefault("bookings.refresh_interval", 30*time.Second)
	v.SetDefault("database.dsn", "")
	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from", "")
	v.SetDefault("ocr.service_url", "http://localhost:8081")
	v.SetDefault("cameras.slots_url", "")
	v.SetDefault("cameras.entry_url", "")
	v.SetDefault("cameras.exit_url", "")
	v.SetDefault("gates.entry.device", "")
	v.SetDefault("gates.exit.device", "")
	v.SetDefault("ocr.timeout", 5*time.Second)
	v.SetDefault("ocr.live_confidence", 0.5)
	v.SetDefault("ocr.merge_confidence", 0.3)
	v.SetDefault("cameras.entry_stability", 2)
	v.SetDefault("cameras.poll_interval", time.Second)
	v.SetDefault("gates.entry.baud_rate", 9600)
	v.SetDefault("gates.entry.sensor_timeout", 60*time.Second)
	v.SetDefault("gates.exit.baud_rate", 9600)
	v.SetDefault("gates.exit.sensor_timeout", 30*time.Second)
	v.SetDefault("exit.confirm_timeout", 300*time.Second)
	v.SetDefault("exit.cooldown", 5*time.Second)
	v.SetDefault("monitor.tick_interval", time.Second)

	v.SetConfigName("parkgate")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/parkgate")

	v.SetEnvPrefix("PARKGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if c.SMTP.Host == "" {
		return fmt.Errorf("smtp.host is required")
	}
	if c.SMTP.From == "" {
		return fmt.Errorf("smtp.from is required")
	}
	if c.HTTP.PublicBaseURL == "" {
		return fmt.Errorf("http.public_base_url is required")
	}
	if c.HTTP.JWTSecret == "" {
		// An empty HMAC key would let any self-signed token through the
		// operator endpoints.
		return fmt.Errorf("http.jwt_secret is required")
	}
	for _, s := range c.Monitor.Slots {
		if s.Slot < 1 {
			return fmt.Errorf("monitor.slots: slot index must be 1-based, got %d", s.Slot)
		}
	}
	return nil
}
