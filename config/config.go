package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// Supported request sources
const (
	SourceAPI   = "api"
	SourceMongo = "mongo"
)

// Config struct
type Config struct {
	APIPort           string        `mapstructure:"port"`
	LogLevel          string        `mapstructure:"logLevel"`
	Source            string        `mapstructure:"source"`
	BackendURL        string        `mapstructure:"backendURL"`
	AdminUsername     string        `mapstructure:"adminUsername"`
	AdminPassword     string        `mapstructure:"adminPassword"`
	MongodbConnStr    string        `mapstructure:"mongodbConn"`
	MongodbDatabase   string        `mapstructure:"mongodbDatabase"`
	RedisConnStr      string        `mapstructure:"redisConn"`
	RabbitmqConnStr   string        `mapstructure:"rabbitMQConn"`
	EventsExchange    string        `mapstructure:"eventsExchange"`
	EventsQueueName   string        `mapstructure:"eventsQueueName"`
	JWTTokenSecret    string        `mapstructure:"jwtTokenSecret"`
	PassPhrase        string        `mapstructure:"passphrase"`
	StatusPageURL     string        `mapstructure:"statusPageURL"`
	WindowDays        int           `mapstructure:"windowDays"`
	PollInterval      time.Duration `mapstructure:"pollInterval"`
	OvertimeThreshold time.Duration `mapstructure:"overtimeThreshold"`
	DigestSchedule    string        `mapstructure:"digestSchedule"`
	SMTPConfigFile    string        `mapstructure:"smtpConfig"`
	Ops               []string      `mapstructure:"ops"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", ":8090")
	v.SetDefault("logLevel", "info")
	v.SetDefault("source", SourceAPI)
	v.SetDefault("mongodbDatabase", "mc-gatekeeper")
	v.SetDefault("eventsExchange", "whitelist.requests")
	v.SetDefault("eventsQueueName", "dashboard.requests")
	v.SetDefault("windowDays", 5)
	v.SetDefault("pollInterval", time.Minute)
	v.SetDefault("overtimeThreshold", 24*time.Hour)
	v.SetDefault("smtpConfig", "smtp.toml")
}

// LoadConfig reads the config file at path into v. Environment variables
// prefixed with MCDASH_ override file values.
func LoadConfig(v *viper.Viper, path string) (*Config, error) {
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetEnvPrefix("MCDASH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Decode(v)
}

// Decode unmarshals and validates the values currently held by v
func Decode(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate fails fast on values the dashboard can not run with
func (c *Config) Validate() error {
	if c.WindowDays <= 0 {
		return errors.New("Invalid configuration. windowDays must be a positive number of days")
	}
	if c.PollInterval <= 0 {
		return errors.New("Invalid configuration. pollInterval must be positive")
	}
	switch c.Source {
	case SourceAPI:
		if c.BackendURL == "" {
			return errors.New("Invalid configuration. backendURL is required for the api source")
		}
	case SourceMongo:
		if c.MongodbConnStr == "" {
			return errors.New("Invalid configuration. mongodbConn is required for the mongo source")
		}
	default:
		return fmt.Errorf("Invalid configuration. Allowed values for source: [%s, %s]", SourceAPI, SourceMongo)
	}
	if c.DigestSchedule != "" {
		if _, err := cron.ParseStandard(c.DigestSchedule); err != nil {
			return fmt.Errorf("Invalid configuration. digestSchedule: %w", err)
		}
	}
	return nil
}
