package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	bfferrors "github.com/jrsteele09/go-staff-bff/internal/errors"
)

const (
	portEnvVar            = "PORT"
	appNameVar            = "APP_NAME"
	upstreamURLVar        = "DJANGO_API_URL"
	appURLVar             = "NEXT_PUBLIC_APP_URL"
	envVar                = "NODE_ENV"
	upstreamTimeoutEnvVar = "UPSTREAM_TIMEOUT"

	EnvProduction  = "production"
	EnvDevelopment = "development"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "3000")
	if !strings.HasPrefix(port, ":") {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Staff BFF")
}

// GetUpstreamURL returns the Django API base URL without a trailing slash.
// There is no default: authenticated routes must fail loudly when it is unset.
func (EnvVars) GetUpstreamURL() (string, error) {
	u := strings.TrimSpace(os.Getenv(upstreamURLVar))
	if u == "" {
		return "", bfferrors.ErrMissingUpstreamURL
	}
	return strings.TrimRight(u, "/"), nil
}

// GetAppURL is the externally visible URL of this server, used by callers
// that need to reach the BFF's own API (e.g. bffctl).
func (EnvVars) GetAppURL() string {
	return strings.TrimRight(GetEnv(appURLVar, "http://localhost:3000"), "/")
}

func (EnvVars) GetUpstreamTimeout() time.Duration {
	d, err := time.ParseDuration(GetEnv(upstreamTimeoutEnvVar, "15s"))
	if err != nil || d <= 0 {
		return 15 * time.Second
	}
	return d
}

func (EnvVars) GetEnv() string {
	return GetEnv(envVar, EnvDevelopment)
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

// LoadDotEnv loads key=value pairs from path into the process environment.
// Variables that are already set win. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("[config LoadDotEnv] %s: %w", path, err)
	}
	return nil
}
