package types

import "fmt"

// ProviderType identifies the external calendar provider of a connection
type ProviderType string

const (
	ProviderGoogle    ProviderType = "google"
	ProviderMicrosoft ProviderType = "microsoft"
	ProviderCalDAV    ProviderType = "caldav"
	ProviderICloud    ProviderType = "icloud"
)

// AllProviderTypes returns all valid provider types
func AllProviderTypes() []ProviderType {
	return []ProviderType{
		ProviderGoogle,
		ProviderMicrosoft,
		ProviderCalDAV,
		ProviderICloud,
	}
}

// IsValid checks if the provider type is valid
func (p ProviderType) IsValid() bool {
	switch p {
	case ProviderGoogle,
		ProviderMicrosoft,
		ProviderCalDAV,
		ProviderICloud:
		return true
	default:
		return false
	}
}

// Refreshable reports whether the provider's credentials expire and require
// OAuth token refresh. CalDAV-family providers use long-lived app passwords.
func (p ProviderType) Refreshable() bool {
	switch p {
	case ProviderGoogle, ProviderMicrosoft:
		return true
	default:
		return false
	}
}

// String returns the string representation of the provider type
func (p ProviderType) String() string {
	return string(p)
}

// ParseProviderType parses a string into a ProviderType
func ParseProviderType(s string) (ProviderType, error) {
	p := ProviderType(s)
	if !p.IsValid() {
		return "", fmt.Errorf("invalid provider type: %s", s)
	}
	return p, nil
}
