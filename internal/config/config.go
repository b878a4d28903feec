// Package config loads the NFC bridge's runtime options from environment
// variables, following the table in the external-interfaces section of the
// bridge's design: PORT, HOST, USE_MOCK_PN532, I2C_BUS, I2C_ADDRESS,
// READY_TIMEOUT_MS, TAGGING_TIMEOUT_MS, SESSION_TIMEOUT_MS, MAX_RETRIES.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the bridge process.
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	PN532  PN532Config  `mapstructure:"pn532"`
	Logger LoggerConfig `mapstructure:"logger"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// PN532Config contains the controller's transport and timing settings.
type PN532Config struct {
	UseMock           bool `mapstructure:"use_mock"`
	I2CBus            int  `mapstructure:"i2c_bus"`
	I2CAddress        int  `mapstructure:"i2c_address"`
	ReadyTimeoutMS    int  `mapstructure:"ready_timeout_ms"`
	TaggingTimeoutMS  int  `mapstructure:"tagging_timeout_ms"`
	SessionTimeoutMS  int  `mapstructure:"session_timeout_ms"`
	MaxRetries        int  `mapstructure:"max_retries"`
}

// LoggerConfig contains logging settings.
type LoggerConfig struct {
	Level string `mapstructure:"level"`
}

// ReadyTimeout, TaggingTimeout, SessionTimeout convert the millisecond
// fields to time.Duration for callers that drive timers.
func (c PN532Config) ReadyTimeout() time.Duration {
	return time.Duration(c.ReadyTimeoutMS) * time.Millisecond
}

func (c PN532Config) TaggingTimeout() time.Duration {
	return time.Duration(c.TaggingTimeoutMS) * time.Millisecond
}

func (c PN532Config) SessionTimeout() time.Duration {
	return time.Duration(c.SessionTimeoutMS) * time.Millisecond
}

// Load reads configuration from the environment, applying defaults for
// anything unset. There is no config file: the bridge is meant to run as a
// single container process configured entirely through its environment.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("")
	v.AutomaticEnv()
	bindEnv(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3001)

	v.SetDefault("pn532.use_mock", false)
	v.SetDefault("pn532.i2c_bus", 1)
	v.SetDefault("pn532.i2c_address", 0x24)
	v.SetDefault("pn532.ready_timeout_ms", 3000)
	v.SetDefault("pn532.tagging_timeout_ms", 20000)
	v.SetDefault("pn532.session_timeout_ms", 30000)
	v.SetDefault("pn532.max_retries", 3)

	v.SetDefault("logger.level", "info")
}

func bindEnv(v *viper.Viper) {
	_ = v.BindEnv("server.host", "HOST")
	_ = v.BindEnv("server.port", "PORT")
	_ = v.BindEnv("pn532.use_mock", "USE_MOCK_PN532")
	_ = v.BindEnv("pn532.i2c_bus", "I2C_BUS")
	_ = v.BindEnv("pn532.i2c_address", "I2C_ADDRESS")
	_ = v.BindEnv("pn532.ready_timeout_ms", "READY_TIMEOUT_MS")
	_ = v.BindEnv("pn532.tagging_timeout_ms", "TAGGING_TIMEOUT_MS")
	_ = v.BindEnv("pn532.session_timeout_ms", "SESSION_TIMEOUT_MS")
	_ = v.BindEnv("pn532.max_retries", "MAX_RETRIES")
	_ = v.BindEnv("logger.level", "LOG_LEVEL")
}
