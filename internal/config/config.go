package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	StorageRedis  = "redis"
	StorageMemory = "memory"

	LogFormatJSON = "json"
	LogFormatText = "text"
)

type Config struct {
	LogLevel   string    `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	LogFormat  string    `yaml:"log-format" env:"LOG_FORMAT" env-default:"json"`
	HTTPPort   string    `yaml:"http-port" env:"HTTP_PORT" env-default:"9090"`
	SocketPort string    `yaml:"socket-port" env:"SOCKET_PORT" env-default:"7000"`
	Storage    Storage   `yaml:"storage"`
	Redis      Redis     `yaml:"redis"`
	Postgres   Postgres  `yaml:"postgres"`
	Room       Room      `yaml:"room"`
	WebSocket  WebSocket `yaml:"websocket"`
}

type Storage struct {
	Driver string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"redis"`
}

type Redis struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port     string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD" env-default:""`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// Postgres - an empty DSN disables the round history archive.
type Postgres struct {
	DSN string `yaml:"dsn" env:"POSTGRES_DSN" env-default:""`
}

type Room struct {
	PasscodeMinLength int `yaml:"passcode-min-length" env:"ROOM_PASSCODE_MIN_LENGTH" env-default:"3"`
	UpdateRetries     int `yaml:"update-retries" env:"ROOM_UPDATE_RETRIES" env-default:"5"`
}

type WebSocket struct {
	AllowedOrigin string `yaml:"allowed-origin" env:"WEBSOCKET_ALLOWED_ORIGIN" env-default:"*"`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config, err := Load(path)
	if err != nil {
		panic(err)
	}

	return config
}

func Load(path string) (*Config, error) {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		return nil, fmt.Errorf("unable to load config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (that *Config) Validate() error {
	switch that.Storage.Driver {
	case StorageRedis, StorageMemory:
	default:
		return fmt.Errorf("unknown storage driver %q", that.Storage.Driver)
	}

	switch that.LogFormat {
	case LogFormatJSON, LogFormatText:
	default:
		return fmt.Errorf("unknown log format %q", that.LogFormat)
	}

	if that.Room.PasscodeMinLength < 1 {
		return fmt.Errorf("room passcode-min-length must be positive, got %d", that.Room.PasscodeMinLength)
	}

	return nil
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
