package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel string   `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort string   `yaml:"http-port" env:"HTTP_PORT" env-default:"9090"`
	Redis    Redis    `yaml:"redis"`
	Timeouts Timeouts `yaml:"timeouts"`
}

type Redis struct {
	Host string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
}

// Timeouts bound every wait on a player.
type Timeouts struct {
	Challenge      time.Duration `yaml:"challenge" env:"TIMEOUT_CHALLENGE" env-default:"180s"`
	Move           time.Duration `yaml:"move" env:"TIMEOUT_MOVE" env-default:"300s"`
	GobbletCeiling time.Duration `yaml:"gobblet-ceiling" env:"TIMEOUT_GOBBLET_CEILING" env-default:"10h"`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		panic(fmt.Errorf("unable to load config file: %w", err))
	}

	return config
}

func (that *Redis) GetRedisAddr() string {
	if that.Host == "" || that.Port == "" {
		return ""
	}

	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
