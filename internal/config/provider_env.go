package config

import (
	"context"
	"os"
)

// EnvVarProvider implements SecretProvider by treating each key as the name
// of another environment variable. It lets a deployment alias secrets, e.g.
// DATABASE_URL_FILE=PRIMARY_DSN, without touching the filesystem.
type EnvVarProvider struct{}

// NewEnvVarProvider creates a new EnvVarProvider.
func NewEnvVarProvider() *EnvVarProvider {
	return &EnvVarProvider{}
}

// GetParametersBatch looks up each key with os.LookupEnv. Missing keys are
// omitted from the result.
func (p *EnvVarProvider) GetParametersBatch(_ context.Context, keys []string) (map[string]string, error) {
	result := make(map[string]string, len(keys))
	for _, key := range keys {
		if val, ok := os.LookupEnv(key); ok {
			result[key] = val
		}
	}
	return result, nil
}
