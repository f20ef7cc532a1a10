// Package credentials stores the OpenRouter API key and LLM preferences in
// the user's config directory. The key is XOR-obfuscated with a machine-local
// digest before writing. That is not encryption; it keeps the key out of
// casual grep while file permissions (0600) do the real work.
package credentials

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
)

const credentialsFile = "chessalive/credentials.json"

// Store reads and writes the credentials file. A zero dir resolves through
// xdg; tests point dir at a temp directory.
type Store struct {
	dir string
}

func NewStore() *Store { return &Store{} }

// NewStoreAt pins the store to an explicit directory.
func NewStoreAt(dir string) *Store { return &Store{dir: dir} }

type fileData struct {
	OpenRouterAPIKey string `json:"openrouter_api_key,omitempty"`
	Model            string `json:"model,omitempty"`
	Provider         string `json:"provider,omitempty"`
}

func (s *Store) path() (string, error) {
	if s.dir != "" {
		return filepath.Join(s.dir, "credentials.json"), nil
	}
	return xdg.ConfigFile(credentialsFile)
}

func (s *Store) existingPath() (string, error) {
	if s.dir != "" {
		return filepath.Join(s.dir, "credentials.json"), nil
	}
	return xdg.SearchConfigFile(credentialsFile)
}

// deriveKey builds the obfuscation key from stable machine identity.
func deriveKey() []byte {
	username := ""
	if u, err := user.Current(); err == nil {
		username = u.Username
	}
	hostname, _ := os.Hostname()
	home, _ := os.UserHomeDir()
	sum := sha256.Sum256([]byte(username + "|" + hostname + "|" + home))
	return sum[:]
}

func obfuscate(plaintext string) string {
	key := deriveKey()
	data := []byte(plaintext)
	out := make([]byte, len(data))
	for i, b := range data {
		out[i] = b ^ key[i%len(key)]
	}
	return base64.StdEncoding.EncodeToString(out)
}

func deobfuscate(encoded string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decode credential: %w", err)
	}
	key := deriveKey()
	out := make([]byte, len(data))
	for i, b := range data {
		out[i] = b ^ key[i%len(key)]
	}
	return string(out), nil
}

// Save writes the key and preferences, owner-readable only. An empty apiKey
// is valid for providers that need none.
func (s *Store) Save(apiKey, model, provider string) (string, error) {
	path, err := s.path()
	if err != nil {
		return "", fmt.Errorf("resolve credentials path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}

	data := fileData{Model: model, Provider: provider}
	if apiKey != "" {
		data.OpenRouterAPIKey = obfuscate(apiKey)
	}
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return "", fmt.Errorf("write credentials: %w", err)
	}
	return path, nil
}

func (s *Store) read() (*fileData, error) {
	path, err := s.existingPath()
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var data fileData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// LoadAPIKey returns the saved key, empty when nothing usable is stored.
func (s *Store) LoadAPIKey() string {
	data, err := s.read()
	if err != nil || data.OpenRouterAPIKey == "" {
		return ""
	}
	key, err := deobfuscate(data.OpenRouterAPIKey)
	if err != nil {
		return ""
	}
	return key
}

// LoadModel returns the saved model preference, empty if unset.
func (s *Store) LoadModel() string {
	data, err := s.read()
	if err != nil {
		return ""
	}
	return data.Model
}

// LoadProvider returns the saved provider preference, empty if unset.
func (s *Store) LoadProvider() string {
	data, err := s.read()
	if err != nil {
		return ""
	}
	return data.Provider
}

// HasSavedKey reports whether a usable key is stored.
func (s *Store) HasSavedKey() bool { return s.LoadAPIKey() != "" }

// Clear removes the credentials file. Reports whether one existed.
func (s *Store) Clear() (bool, error) {
	path, err := s.existingPath()
	if err != nil {
		return false, nil
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("remove credentials: %w", err)
	}
	return true, nil
}

// MaskKey renders a key safe for display, keeping only the edges.
func MaskKey(key string) string {
	if len(key) <= 12 {
		if len(key) <= 2 {
			return key
		}
		return key[:2] + strings.Repeat("*", len(key)-2)
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}
