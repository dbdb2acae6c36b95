package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type HTTP struct {
	Addr            string        `yaml:"addr"`
	AllowedOrigins  []string      `yaml:"allowedOrigins"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

type WS struct {
	PingEvery    time.Duration `yaml:"pingEvery"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	ReadLimit    int64         `yaml:"readLimit"`
	SendBuffer   int           `yaml:"sendBuffer"`
}

type Presence struct {
	SaveInterval    time.Duration `yaml:"saveInterval"`    // 3s
	SaveTimeout     time.Duration `yaml:"saveTimeout"`     // таймаут одной записи позиции
	ProximityRadius int           `yaml:"proximityRadius"` // 1 клетка
	TileSize        int           `yaml:"tileSize"`        // пикселей в клетке сетки
	MaxChatLength   int           `yaml:"maxChatLength"`
}

type Logging struct {
	Env       string `yaml:"env"`       // dev|prod
	Service   string `yaml:"service"`   // presence-service
	Version   string `yaml:"version"`   // v0.1.0
	Backend   string `yaml:"backend"`   // std|zap
	Level     string `yaml:"level"`     // debug|info|warn|error
	AddSource bool   `yaml:"addSource"` // false|true
	Debug     bool   `yaml:"debug"`     // false|true
}

type Postgres struct {
	DSN               string        `yaml:"dsn"`
	MaxConns          int32         `yaml:"maxConns"`
	MinConns          int32         `yaml:"minConns"`
	MaxConnLifetime   time.Duration `yaml:"maxConnLifetime"`
	MaxConnIdleTime   time.Duration `yaml:"maxConnIdleTime"`
	HealthCheckPeriod time.Duration `yaml:"healthCheckPeriod"`
	ApplicationName   string        `yaml:"applicationName"`
	Migrate           bool          `yaml:"migrate"`
}

type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Positions выбирает хранилище координат игроков: postgres|redis.
type Positions struct {
	Backend string `yaml:"backend"`
}

type Auth struct {
	JWTSecret string `yaml:"jwtSecret"`
}

type Config struct {
	HTTP      HTTP      `yaml:"http"`
	WS        WS        `yaml:"ws"`
	Presence  Presence  `yaml:"presence"`
	Logging   Logging   `yaml:"logging"`
	Postgres  Postgres  `yaml:"postgres"`
	Redis     Redis     `yaml:"redis"`
	Positions Positions `yaml:"positions"`
	Auth      Auth      `yaml:"auth"`
}

func LoadConfig() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "./config/config.yaml"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	// секрет удобнее держать вне файла
	if s := strings.TrimSpace(os.Getenv("JWT_SECRET")); s != "" {
		cfg.Auth.JWTSecret = s
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.HTTP.Addr == "" {
		return errors.New("http.addr is required")
	}
	if c.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwtSecret is required")
	}
	switch c.Positions.Backend {
	case "":
		c.Positions.Backend = "postgres"
	case "postgres":
	case "redis":
		if c.Redis.Addr == "" {
			return errors.New("redis.addr is required for positions.backend=redis")
		}
	default:
		return errors.New("positions.backend must be postgres|redis")
	}
	if c.Presence.ProximityRadius < 0 {
		return errors.New("presence.proximityRadius must be >= 0")
	}

	// установка дефолтов, если значения не указаны
	if c.HTTP.ShutdownTimeout <= 0 {
		c.HTTP.ShutdownTimeout = 10 * time.Second
	}
	if c.WS.PingEvery <= 0 {
		c.WS.PingEvery = 15 * time.Second
	}
	if c.WS.WriteTimeout <= 0 {
		c.WS.WriteTimeout = 5 * time.Second
	}
	if c.WS.ReadLimit <= 0 {
		c.WS.ReadLimit = 1 << 16
	}
	if c.WS.SendBuffer <= 0 {
		c.WS.SendBuffer = 256
	}
	if c.Presence.SaveInterval <= 0 {
		c.Presence.SaveInterval = 3 * time.Second
	}
	if c.Presence.SaveTimeout <= 0 {
		c.Presence.SaveTimeout = 2 * time.Second
	}
	if c.Presence.ProximityRadius == 0 {
		c.Presence.ProximityRadius = 1
	}
	if c.Presence.TileSize <= 0 {
		c.Presence.TileSize = 16
	}
	if c.Presence.MaxChatLength <= 0 {
		c.Presence.MaxChatLength = 4000
	}
	if c.Logging.Service == "" {
		c.Logging.Service = "presence-service"
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "dev"
	}
	if c.Logging.Version == "" {
		c.Logging.Version = "v0.1.0"
	}
	if c.Logging.Backend == "" {
		c.Logging.Backend = "std"
	}
	return nil
}
