package config

import (
	"fmt"
)

type Config struct {
	ServerAddr     string
	AllowedOrigins []string
	StaticDir      string
}

func NewConfig(serverAddr string, allowedOrigins []string, staticDir string) (*Config, error) {
	if serverAddr == "" {
		return nil, fmt.Errorf("server address cannot be empty")
	}
	if staticDir == "" {
		staticDir = "static"
	}

	return &Config{
		ServerAddr:     serverAddr,
		AllowedOrigins: allowedOrigins,
		StaticDir:      staticDir,
	}, nil
}
