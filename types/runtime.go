package types

import "fmt"

// Environment classifies a runtime tier; production drives stricter policy
type Environment string

const (
	EnvProduction  Environment = "production"
	EnvStaging     Environment = "staging"
	EnvDevelopment Environment = "development"
)

// Environments lists every tier, in decreasing order of strictness
func Environments() []Environment {
	return []Environment{EnvProduction, EnvStaging, EnvDevelopment}
}

// ParseEnvironment maps a wire string to an Environment
func ParseEnvironment(s string) (Environment, error) {
	switch Environment(s) {
	case EnvProduction, EnvStaging, EnvDevelopment:
		return Environment(s), nil
	default:
		return "", fmt.Errorf("unknown environment %q", s)
	}
}

// Runtime is a physical or virtual PLC runtime, owned by the Runtime Registry
type Runtime struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Environment Environment `json:"environment"`
	IPAddress   string      `json:"ip_address"`
	Status      string      `json:"status"`
}

// IsProduction reports whether pulls from this runtime fall under
// production-tier policy
func (r Runtime) IsProduction() bool {
	return r.Environment == EnvProduction
}
