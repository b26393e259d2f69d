// Package config loads server and client settings from environment
// variables and an optional config file.
package config

import (
	"github.com/spf13/viper"
)

type Config struct {
	Addr string

	// Network-traversal helpers handed to every peer connection.
	STUNServers  []string
	TURNServers  []string
	TURNUsername string
	TURNPassword string

	LogLevel      string
	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
}

func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("roulette")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/roulette")

	v.SetEnvPrefix("ROULETTE")
	v.AutomaticEnv()

	v.SetDefault("addr", ":8080")
	v.SetDefault("stun_servers", []string{"stun:stun.l.google.com:19302"})
	v.SetDefault("turn_servers", []string{})
	v.SetDefault("turn_username", "")
	v.SetDefault("turn_password", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
	v.SetDefault("log_max_size_mb", 50)
	v.SetDefault("log_max_backups", 3)
	v.SetDefault("log_max_age_days", 14)

	if err := v.ReadInConfig(); err != nil {
		// Running on defaults and env alone is fine.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	return &Config{
		Addr:          v.GetString("addr"),
		STUNServers:   v.GetStringSlice("stun_servers"),
		TURNServers:   v.GetStringSlice("turn_servers"),
		TURNUsername:  v.GetString("turn_username"),
		TURNPassword:  v.GetString("turn_password"),
		LogLevel:      v.GetString("log_level"),
		LogFile:       v.GetString("log_file"),
		LogMaxSizeMB:  v.GetInt("log_max_size_mb"),
		LogMaxBackups: v.GetInt("log_max_backups"),
		LogMaxAgeDays: v.GetInt("log_max_age_days"),
	}, nil
}
