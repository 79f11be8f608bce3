package internal

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is read from the environment with github.com/Netflix/go-env.
type Config struct {
	Host                 string        `env:"HOST,default=localhost"`
	Port                 int           `env:"PORT,default=50051" validate:"gt=0,lt=65536"`
	DebugPort            int           `env:"DEBUG_PORT" validate:"gte=0,lt=65536"`
	LogLevel             string        `env:"LOG_LEVEL,required=true"`
	BadgerFilepath       string        `env:"BADGER_FILEPATH,required=true"`
	BlugeFilepath        string        `env:"BLUGE_FILEPATH,required=true"`
	AuditFilepath        string        `env:"AUDIT_FILEPATH"`
	BufferSize           int           `env:"BUFFER_SIZE,required=true" validate:"gt=0"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,required=true" validate:"gt=0"`
	EnqueueTimeout       time.Duration `env:"ENQUEUE_TIMEOUT,required=true" validate:"gt=0"`
	SinkTimeout          time.Duration `env:"SINK_TIMEOUT,required=true" validate:"gt=0"`
	JobTimeout           time.Duration `env:"JOB_TIMEOUT,required=true" validate:"gt=0"`
	DeliveryTimeout      time.Duration `env:"DELIVERY_TIMEOUT,required=true" validate:"gt=0"`
	StoreTimeout         time.Duration `env:"STORE_TIMEOUT,default=2s" validate:"gt=0"`
	LockTTL              time.Duration `env:"LOCK_TTL" validate:"gte=0"`
	LockSweepInterval    time.Duration `env:"LOCK_SWEEP_INTERVAL" validate:"gte=0"`
	MetricInterval       time.Duration `env:"METRIC_INTERVAL" validate:"gte=0"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,required=true" validate:"gt=0"`
	ShutdownTimeout      time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s" validate:"gt=0"`
	AuthSecret           string        `env:"AUTH_SECRET,required=true" validate:"min=16"`
	AuthSalt             string        `env:"AUTH_SALT,required=true" validate:"min=8"`
	AuthIssuer           string        `env:"AUTH_ISSUER,default=collab-engine"`
}

// Validate checks the bounds go-env cannot express.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.LockTTL > 0 && c.LockSweepInterval == 0 {
		return fmt.Errorf("invalid configuration: LOCK_SWEEP_INTERVAL is required when LOCK_TTL is set")
	}
	return nil
}

func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
