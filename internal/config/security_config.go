package config

type SecurityConfig interface {
	IsProduction() bool
	GetSecureCookies() bool
	GetExposeUpstreamErrors() bool
}

type Security struct{}

var _ SecurityConfig = Security{}

func (Security) IsProduction() bool {
	return EnvVars{}.GetEnv() == EnvProduction
}

func (s Security) GetSecureCookies() bool {
	return s.IsProduction()
}

// GetExposeUpstreamErrors reports whether raw upstream error bodies may be
// echoed back to the browser for debugging.
func (s Security) GetExposeUpstreamErrors() bool {
	return !s.IsProduction()
}
