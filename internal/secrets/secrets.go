// Package secrets resolves the Alpaca API key pair and, in production, the database
// credentials. Keys come from a local JSON file or from AWS SSM Parameter Store.
package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"quantviz/config"
)

var (
	// ErrSecretsNotFound means the credential file does not exist. It is fatal at startup.
	ErrSecretsNotFound = errors.New("secrets file not found")
	// ErrIncompleteCredentials means a key or secret is empty.
	ErrIncompleteCredentials = errors.New("incomplete API credentials")
)

// Credentials is the Alpaca key pair.
type Credentials struct {
	APIKey    string `json:"API_KEY"`
	APISecret string `json:"API_SECRET"`
}

func (c Credentials) validate() error {
	if c.APIKey == "" || c.APISecret == "" {
		return ErrIncompleteCredentials
	}
	return nil
}

// LoadFile reads {"API_KEY": "...", "API_SECRET": "..."} from path.
func LoadFile(path string) (Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Credentials{}, fmt.Errorf("%w: %s", ErrSecretsNotFound, path)
		}
		return Credentials{}, fmt.Errorf("failed to read secrets file: %w", err)
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return Credentials{}, fmt.Errorf("failed to parse secrets file %s: %w", path, err)
	}
	if err := creds.validate(); err != nil {
		return Credentials{}, fmt.Errorf("%s: %w", path, err)
	}
	return creds, nil
}

// Load resolves credentials from the configured source.
func Load(ctx context.Context, cfg config.SecretsConfig) (Credentials, error) {
	switch cfg.Source {
	case "", "file":
		return LoadFile(cfg.File)
	case "ssm":
		loader, err := NewSSMLoader(ctx, cfg.SSM.Timeout)
		if err != nil {
			return Credentials{}, err
		}
		return loader.Credentials(ctx, cfg.SSM)
	default:
		return Credentials{}, fmt.Errorf("unknown secrets source %q", cfg.Source)
	}
}
