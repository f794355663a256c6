package internal

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type Config struct {
	Host     string `env:"HOST,default=0.0.0.0"`
	TCPPort  int    `env:"TCP_PORT,required=true" validate:"gt=0,lte=65535"`
	WSPort   int    `env:"WS_PORT,required=true" validate:"gt=0,lte=65535"`
	HTTPPort int    `env:"HTTP_PORT,required=true" validate:"gt=0,lte=65535"`

	LogLevel string `env:"LOG_LEVEL,default=info"`
	LogDir   string `env:"LOG_DIR,default=chat_logs" validate:"required"`

	SnapshotInterval time.Duration `env:"SNAPSHOT_INTERVAL,default=3h" validate:"gt=0"`
	SessionTimeout   time.Duration `env:"SESSION_TIMEOUT,default=5m" validate:"gt=0"`
	ReaperInterval   time.Duration `env:"REAPER_INTERVAL,default=30s" validate:"gt=0"`
	IdentifyTimeout  time.Duration `env:"IDENTIFY_TIMEOUT,default=5s" validate:"gt=0"`
	RestartInterval  time.Duration `env:"RESTART_INTERVAL,default=200ms" validate:"gt=0"`

	SendBufferSize     int  `env:"SEND_BUFFER_SIZE,default=64" validate:"gt=0"`
	MaxContentLength   int  `env:"MAX_CONTENT_LENGTH,default=2000" validate:"gt=0"`
	CaseSensitiveNames bool `env:"CASE_SENSITIVE_NAMES,default=true"`
}

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.ReaperInterval >= c.SessionTimeout {
		return fmt.Errorf("REAPER_INTERVAL (%s) must be shorter than SESSION_TIMEOUT (%s)",
			c.ReaperInterval, c.SessionTimeout)
	}
	return nil
}

func (c Config) TCPAddr() string  { return fmt.Sprintf("%s:%d", c.Host, c.TCPPort) }
func (c Config) WSAddr() string   { return fmt.Sprintf("%s:%d", c.Host, c.WSPort) }
func (c Config) HTTPAddr() string { return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort) }
