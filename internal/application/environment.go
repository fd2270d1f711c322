package application

import "strings"

// Well-known environment names.
const (
	EnvironmentDevelopment = "Development"
	EnvironmentStaging     = "Staging"
	EnvironmentProduction  = "Production"
)

// HostEnvironment describes the environment the application runs in.
// An empty Name becomes EnvironmentProduction once services are configured.
type HostEnvironment struct {
	Name string
}

// IsEnvironment reports whether the environment name equals name, ignoring
// case. It returns false on a nil receiver.
func (e *HostEnvironment) IsEnvironment(name string) bool {
	if e == nil {
		return false
	}
	return strings.EqualFold(e.Name, name)
}

// IsDevelopment reports whether this is the Development environment.
func (e *HostEnvironment) IsDevelopment() bool {
	return e.IsEnvironment(EnvironmentDevelopment)
}

// IsStaging reports whether this is the Staging environment.
func (e *HostEnvironment) IsStaging() bool {
	return e.IsEnvironment(EnvironmentStaging)
}

// IsProduction reports whether this is the Production environment.
func (e *HostEnvironment) IsProduction() bool {
	return e.IsEnvironment(EnvironmentProduction)
}
