// loader.go implements the configuration loading lifecycle.
//
// The loading sequence is:
//  1. Enforce UTC timezone to prevent drift bugs.
//  2. Load .env file via godotenv (non-fatal if absent).
//  3. Scan environment for _FILE suffix variables and resolve them through
//     the SecretProvider, injecting the values back into the environment.
//  4. Use envconfig to process struct tags and populate the Config struct.
//  5. Populate BuildInfo from linker-injected variables.
//  6. Validate the struct using go-playground/validator, then check that
//     vendor credentials are present when real clients will be used.
package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// ConfigError is a diagnostic error type returned by LoadConfig.
type ConfigError struct {
	Type    ConfigErrorType
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// secretFileSuffix marks pointer variables. DATABASE_URL_FILE holds the path
// of a file whose contents become DATABASE_URL.
const secretFileSuffix = "_FILE"

// localEnv is the APP_ENV value that enables stub vendor clients.
const localEnv = "local"

type envLookup func(key string) (string, bool)

type envSet func(key, value string) error

type environ func() []string

// loaderDeps holds the injectable dependencies for the loader, enabling
// testing without mutating global state.
type loaderDeps struct {
	lookupEnv envLookup
	setEnv    envSet
	environ   environ
}

func defaultDeps() loaderDeps {
	return loaderDeps{
		lookupEnv: os.LookupEnv,
		setEnv:    os.Setenv,
		environ:   os.Environ,
	}
}

// LoadConfig loads and validates the service configuration.
//
// The provider resolves _FILE pointer variables. A nil provider defaults to
// a FileSecretProvider reading from the local filesystem.
func LoadConfig(provider SecretProvider) (*Config, error) {
	return loadConfigWithDeps(provider, defaultDeps())
}

func loadConfigWithDeps(provider SecretProvider, deps loaderDeps) (*Config, error) {
	time.Local = time.UTC

	// godotenv does NOT override existing environment variables.
	_ = godotenv.Load()

	if provider == nil {
		provider = NewFileSecretProvider()
	}
	if err := resolveSecretFiles(provider, deps); err != nil {
		return nil, err
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, &ConfigError{
			Type:    ErrParsing,
			Message: "failed to process environment configuration",
			Err:     err,
		}
	}

	cfg.Build = NewBuildInfo()

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return nil, &ConfigError{
			Type:    ErrValidation,
			Message: "configuration validation failed",
			Err:     err,
		}
	}

	if err := checkVendorCredentials(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// checkVendorCredentials enforces that real vendor clients have credentials.
// Stubbed environments (local, test mode) may leave them empty.
func checkVendorCredentials(cfg *Config) error {
	if cfg.UsesStubs() {
		return nil
	}

	var missing []string
	if !cfg.Weather.APIKey.IsSet() {
		missing = append(missing, "OPENWEATHER_API_KEY")
	}
	if !cfg.Email.SendGridAPIKey.IsSet() {
		missing = append(missing, "SENDGRID_API_KEY")
	}
	if !cfg.SMS.AccountSID.IsSet() {
		missing = append(missing, "TWILIO_ACCOUNT_SID")
	}
	if !cfg.SMS.AuthToken.IsSet() {
		missing = append(missing, "TWILIO_AUTH_TOKEN")
	}
	if cfg.SMS.FromNumber == "" {
		missing = append(missing, "TWILIO_FROM_NUMBER")
	}
	if len(missing) > 0 {
		return &ConfigError{
			Type:    ErrMissingEnv,
			Message: fmt.Sprintf("vendor credentials required in %s: %s", cfg.Environment, strings.Join(missing, ", ")),
		}
	}
	return nil
}

// ResolveSecrets performs the secret file resolution step in isolation. It is
// intended for entry points that read individual env vars before LoadConfig.
func ResolveSecrets(provider SecretProvider) error {
	if provider == nil {
		provider = NewFileSecretProvider()
	}
	return resolveSecretFiles(provider, defaultDeps())
}

// resolveSecretFiles scans the environment for variables ending in _FILE,
// fetches the referenced values via the SecretProvider and injects them back
// into the environment so that envconfig can process them.
//
// If the target variable is already set the pointer is ignored, preserving
// the priority chain: OS Environment > Dotenv > Secret Files.
func resolveSecretFiles(provider SecretProvider, deps loaderDeps) error {
	pathToTarget := make(map[string][]string)
	var paths []string

	for _, envEntry := range deps.environ() {
		eqIdx := strings.IndexByte(envEntry, '=')
		if eqIdx < 0 {
			continue
		}
		key := envEntry[:eqIdx]
		if !strings.HasSuffix(key, secretFileSuffix) || key == secretFileSuffix {
			continue
		}

		target := strings.TrimSuffix(key, secretFileSuffix)
		if _, exists := deps.lookupEnv(target); exists {
			continue
		}

		path := envEntry[eqIdx+1:]
		if path == "" {
			continue
		}
		if _, seen := pathToTarget[path]; !seen {
			paths = append(paths, path)
		}
		pathToTarget[path] = append(pathToTarget[path], target)
	}

	if len(paths) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	resolved, err := provider.GetParametersBatch(ctx, paths)
	if err != nil {
		return &ConfigError{
			Type:    ErrSecretResolution,
			Message: fmt.Sprintf("failed to resolve %d secret files", len(paths)),
			Err:     err,
		}
	}

	var missing []string
	for _, path := range paths {
		value, ok := resolved[path]
		if !ok {
			missing = append(missing, pathToTarget[path]...)
			continue
		}
		for _, target := range pathToTarget[path] {
			if err := deps.setEnv(target, value); err != nil {
				return &ConfigError{
					Type:    ErrSecretResolution,
					Message: fmt.Sprintf("failed to set resolved value for %s", target),
					Err:     err,
				}
			}
		}
	}
	if len(missing) > 0 {
		return &ConfigError{
			Type:    ErrSecretResolution,
			Message: fmt.Sprintf("secret files not found for: %s", strings.Join(missing, ", ")),
		}
	}

	return nil
}
