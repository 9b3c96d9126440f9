package types

import "log/slog"

// redactedPlaceholder replaces secret values in logs and serialized output.
const redactedPlaceholder = "***REDACTED***"

var redactedJSON = []byte(`"` + redactedPlaceholder + `"`)

// SecretString holds credentials (API keys, auth tokens, connection strings).
// It prints and marshals as a placeholder so a config dump or a structured
// log line never carries the raw value.
type SecretString string

// String implements fmt.Stringer with the redacted placeholder.
func (s SecretString) String() string {
	return redactedPlaceholder
}

// LogValue keeps slog from reaching the underlying string.
func (s SecretString) LogValue() slog.Value {
	return slog.StringValue(redactedPlaceholder)
}

// MarshalJSON emits the redacted placeholder.
func (s SecretString) MarshalJSON() ([]byte, error) {
	return redactedJSON, nil
}

// Unmask returns the plaintext. Call it only where the real value is needed,
// such as an Authorization header or a database DSN.
func (s SecretString) Unmask() string {
	return string(s)
}

// IsSet reports whether a value was configured.
func (s SecretString) IsSet() bool {
	return s != ""
}
