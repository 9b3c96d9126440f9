package config

import "context"

// SecretProvider resolves secret references to plaintext values. The loader
// passes the paths named by _FILE pointer variables; implementations return
// a map of key to value for every reference they could resolve and omit the
// rest.
type SecretProvider interface {
	GetParametersBatch(ctx context.Context, keys []string) (map[string]string, error)
}
