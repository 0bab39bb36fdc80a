package domain

import "time"

// Credential is one external API key with its health-tracking state.
// Credentials are created at startup from configuration and live for the
// whole process; they are only ever marked blocked or unhealthy, never removed.
type Credential struct {
	// Index is the ordinal position in the configured key list.
	// It is stable for the process lifetime and used for round-robin rotation.
	Index int

	// Secret is the raw API key value. Never logged in full.
	Secret string

	// Healthy reports whether the credential is currently usable.
	// Reset to true on any successful call.
	Healthy bool

	// Blocked reports a permanent exclusion (organisation/access restriction).
	// A blocked credential is never selected again, even after a healthy probe.
	Blocked bool

	// ErrorCount is the number of consecutive failed calls.
	ErrorCount int

	// LastError is the most recent error message, truncated for reporting.
	LastError string

	// LastSuccess is when the credential last completed a call successfully.
	LastSuccess time.Time

	// UsageCount is the lifetime number of successful calls.
	UsageCount int
}

// MaskedSecret returns the last few characters of the key for display,
// prefixed with an ellipsis. Safe to log and expose on the status endpoint.
func (c Credential) MaskedSecret() string {
	const tail = 8
	if len(c.Secret) <= tail {
		return "..." + c.Secret
	}
	return "..." + c.Secret[len(c.Secret)-tail:]
}

// CredentialReport is the operational view of one credential, exposed by the
// status endpoint and the keys CLI command.
type CredentialReport struct {
	Index      int    `json:"index"`
	MaskedKey  string `json:"masked_key"`
	Healthy    bool   `json:"healthy"`
	Blocked    bool   `json:"blocked"`
	UsageCount int    `json:"usage_count"`
	ErrorCount int    `json:"error_count"`
	LastError  string `json:"last_error,omitempty"`
}
