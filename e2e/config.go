package e2e

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// E2E_COLLAB_ADDR points at a running server; the suite is skipped when empty
	CollabAddr string `envconfig:"E2E_COLLAB_ADDR"`
	AuthSecret string `envconfig:"AUTH_SECRET"`
	AuthSalt   string `envconfig:"AUTH_SALT"`
	AuthIssuer string `envconfig:"AUTH_ISSUER" default:"collab-engine"`
	// E2E_DEBUG_JSON allows dumping full gRPC request/response bodies as JSON
	DebugJSON bool `envconfig:"E2E_DEBUG_JSON" default:"false"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool          `envconfig:"E2E_COLOURS" default:"true"`
	Timeout time.Duration `envconfig:"E2E_TIMEOUT" default:"30s"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
