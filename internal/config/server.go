package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type ServerConfig struct {
	PostgresDSN string `env:"POSTGRES_DSN,required,notEmpty"`
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`

	RoomCapacity int           `env:"ROOM_CAPACITY" envDefault:"6"`
	DoubtTimeout time.Duration `env:"DOUBT_TIMEOUT" envDefault:"5s"`
	TurnTimeout  time.Duration `env:"TURN_TIMEOUT" envDefault:"30s"`
}

func LoadServer() (ServerConfig, error) {
	var cfg ServerConfig
	err := env.Parse(&cfg)
	return cfg, err
}
