package config

import "time"

type Config interface {
	EnvConfig
	CookieConfig
	SecurityConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetUpstreamURL() (string, error)
	GetAppURL() string
	GetUpstreamTimeout() time.Duration
	GetEnv() string
}

type mainConfig struct {
	EnvVars
	Cookies
	Security
}

func New() Config {
	return mainConfig{}
}
