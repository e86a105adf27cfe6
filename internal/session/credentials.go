package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pawtrait/pawtrait-client/internal/models"
)

// Credentials is the one durable piece of client state: the bearer token,
// kept in a JSON file and mirrored in memory. It implements api.TokenSource.
type Credentials struct {
	mu    sync.Mutex
	path  string
	token string
}

func NewCredentials(path string) *Credentials {
	return &Credentials{path: path}
}

// Load reads the persisted token. A missing file is the anonymous starting
// point, not an error.
func (c *Credentials) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			c.token = ""
			return nil
		}
		return fmt.Errorf("read credentials: %w", err)
	}

	var creds models.Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return fmt.Errorf("decode credentials: %w", err)
	}
	c.token = creds.AuthToken
	return nil
}

// Token returns the current bearer token, empty when anonymous.
func (c *Credentials) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// Store persists a freshly issued token.
func (c *Credentials) Store(token string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil {
		return fmt.Errorf("create credentials dir: %w", err)
	}
	data, err := json.Marshal(models.Credentials{AuthToken: token})
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0o600); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	c.token = token
	return nil
}

// Purge removes the token from memory and disk. Used on logout and on
// definitive auth failure so a stale credential cannot reappear at startup.
func (c *Credentials) Purge() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.token = ""
	if err := os.Remove(c.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove credentials: %w", err)
	}
	return nil
}
