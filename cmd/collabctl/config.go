package main

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Addr    string        `envconfig:"COLLAB_ADDR" default:"localhost:50051"`
	Token   string        `envconfig:"COLLAB_TOKEN"`
	Timeout time.Duration `envconfig:"COLLAB_TIMEOUT" default:"10s"`
	// COLLAB_COLOURS enables colorized output for better readability
	Colours bool `envconfig:"COLLAB_COLOURS" default:"true"`

	// Only needed by the token command, which signs tokens locally.
	AuthSecret string        `envconfig:"AUTH_SECRET"`
	AuthSalt   string        `envconfig:"AUTH_SALT"`
	AuthIssuer string        `envconfig:"AUTH_ISSUER" default:"collab-engine"`
	TokenTTL   time.Duration `envconfig:"COLLAB_TOKEN_TTL" default:"12h"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	return cfg, nil
}
