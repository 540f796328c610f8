// Package auth supplies credentials for the Stratus API: a stored API
// key or a bearer token obtained through the OAuth login flow.
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
)

// EnvAPIKey is the environment variable consulted for the API key.
const EnvAPIKey = "STRATUS_API_KEY"

// ErrNoCredential indicates no API key or token could be found.
var ErrNoCredential = errors.New("no credential found: set " + EnvAPIKey + " or run 'stratus login'")

// Credential attaches authentication to an outgoing request. The
// session treats it as an opaque capability.
type Credential interface {
	Authorize(r *http.Request)
}

// APIKey authenticates with a Stratus API key, sent as the basic auth
// username with an empty password.
type APIKey string

// Authorize implements Credential.
func (k APIKey) Authorize(r *http.Request) {
	r.SetBasicAuth(string(k), "")
}

// Token authenticates with an OAuth bearer token.
type Token string

// Authorize implements Credential.
func (t Token) Authorize(r *http.Request) {
	r.Header.Set("Authorization", "Bearer "+string(t))
}

// secret is the on-disk credential format.
type secret struct {
	Key   string `json:"key,omitempty"`
	Token string `json:"token,omitempty"`
}

// SecretPath returns the default credential file location.
func SecretPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".stratus", "secret.json"), nil
}

// Default resolves a credential from the environment, falling back to
// the secret file.
func Default() (Credential, error) {
	if key := os.Getenv(EnvAPIKey); key != "" {
		return APIKey(key), nil
	}

	path, err := SecretPath()
	if err != nil {
		return nil, err
	}
	return FromFile(path)
}

// FromFile loads a credential from a secret file.
func FromFile(path string) (Credential, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoCredential
		}
		return nil, fmt.Errorf("reading secret file: %w", err)
	}

	var s secret
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing secret file: %w", err)
	}

	switch {
	case s.Key != "":
		return APIKey(s.Key), nil
	case s.Token != "":
		return Token(s.Token), nil
	default:
		return nil, ErrNoCredential
	}
}

// StoreKey saves an API key to the secret file, creating the parent
// directory if needed.
func StoreKey(path, key string) error {
	return store(path, secret{Key: key})
}

// StoreToken saves a bearer token to the secret file.
func StoreToken(path, token string) error {
	return store(path, secret{Token: token})
}

func store(path string, s secret) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating secret directory: %w", err)
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding secret: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing secret file: %w", err)
	}
	return nil
}
