package credentials

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	s := NewStoreAt(t.TempDir())
	const key = "sk-or-v1-abcdef0123456789"

	path, err := s.Save(key, "openai/gpt-4o-mini", "openrouter")
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	if got := s.LoadAPIKey(); got != key {
		t.Fatalf("LoadAPIKey = %q, want %q", got, key)
	}
	if got := s.LoadModel(); got != "openai/gpt-4o-mini" {
		t.Fatalf("LoadModel = %q", got)
	}
	if got := s.LoadProvider(); got != "openrouter" {
		t.Fatalf("LoadProvider = %q", got)
	}
	if !s.HasSavedKey() {
		t.Fatalf("HasSavedKey false after save")
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("credentials mode = %o, want 600", perm)
	}
}

func TestKeyNotStoredAsPlaintext(t *testing.T) {
	dir := t.TempDir()
	s := NewStoreAt(dir)
	const key = "sk-or-v1-supersecretvalue"

	if _, err := s.Save(key, "", "openrouter"); err != nil {
		t.Fatalf("save: %v", err)
	}
	raw, err := os.ReadFile(filepath.Join(dir, "credentials.json"))
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if strings.Contains(string(raw), key) {
		t.Fatalf("key stored as plaintext on disk")
	}
}

func TestEmptyKeyForOllama(t *testing.T) {
	s := NewStoreAt(t.TempDir())
	if _, err := s.Save("", "llama3.2", "ollama"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if s.HasSavedKey() {
		t.Fatalf("empty key reported as saved")
	}
	if got := s.LoadProvider(); got != "ollama" {
		t.Fatalf("LoadProvider = %q", got)
	}
	if got := s.LoadModel(); got != "llama3.2" {
		t.Fatalf("LoadModel = %q", got)
	}
}

func TestClear(t *testing.T) {
	s := NewStoreAt(t.TempDir())

	removed, err := s.Clear()
	if err != nil {
		t.Fatalf("clear empty: %v", err)
	}
	if removed {
		t.Fatalf("clear reported removal with nothing saved")
	}

	if _, err := s.Save("sk-test", "", ""); err != nil {
		t.Fatalf("save: %v", err)
	}
	removed, err = s.Clear()
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if !removed {
		t.Fatalf("clear missed saved file")
	}
	if s.HasSavedKey() {
		t.Fatalf("key survived clear")
	}
}

func TestCorruptFileLoadsEmpty(t *testing.T) {
	dir := t.TempDir()
	s := NewStoreAt(dir)
	if err := os.WriteFile(filepath.Join(dir, "credentials.json"), []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := s.LoadAPIKey(); got != "" {
		t.Fatalf("corrupt file yielded key %q", got)
	}
	if s.HasSavedKey() {
		t.Fatalf("corrupt file reported saved key")
	}
}

func TestMaskKey(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"ab", "ab"},
		{"abcdef", "ab****"},
		{"sk-or-v1-abcdef0123456789", "sk-o*****************6789"},
	}
	for _, tc := range cases {
		if got := MaskKey(tc.in); got != tc.want {
			t.Fatalf("MaskKey(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
	masked := MaskKey("sk-or-v1-secretsecret")
	if strings.Contains(masked, "secret") {
		t.Fatalf("mask leaked middle: %s", masked)
	}
}
