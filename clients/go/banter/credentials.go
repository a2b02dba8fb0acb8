package banter

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Credentials holds the caller's identity for the Banter service.
type Credentials struct {
	UserID string `json:"user_id"`
	Token  string `json:"token"`
}

// ConfigDir returns the client config directory, honoring BANTER_CONFIG.
func ConfigDir() string {
	if dir := os.Getenv("BANTER_CONFIG"); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".banter")
}

// LoadCredentials reads credentials from the config directory.
func LoadCredentials(dir string) (*Credentials, error) {
	data, err := os.ReadFile(filepath.Join(dir, "credentials.json"))
	if err != nil {
		return nil, err
	}
	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, err
	}
	return &creds, nil
}

// Save writes credentials to the config directory.
func (c *Credentials) Save(dir string) error {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}
	data, _ := json.MarshalIndent(c, "", "  ")
	return os.WriteFile(filepath.Join(dir, "credentials.json"), data, 0600)
}

// Provider exposes the stored token as a TokenProvider.
func (c *Credentials) Provider() TokenProvider {
	if c == nil {
		return StaticToken("")
	}
	return StaticToken(c.Token)
}
