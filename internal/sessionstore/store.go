// internal/sessionstore/store.go
// Package sessionstore persists authenticated browser state between runs so
// repeated goals against the same site skip manual login. One JSON blob per
// site identity; absence of a blob is not an error, it just means the run
// starts unauthenticated.
package sessionstore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// State is the serialized authentication state of one site: cookies plus the
// origin's localStorage. The store treats it as a blob; only the browser
// layer interprets it.
type State struct {
	Cookies      []Cookie          `json:"cookies"`
	LocalStorage map[string]string `json:"local_storage,omitempty"`
	Origin       string            `json:"origin,omitempty"`
	SavedAt      time.Time         `json:"saved_at"`
}

// Cookie is one browser cookie in a transport-neutral shape.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires,omitempty"` // unix seconds; 0 for session cookies
	HTTPOnly bool    `json:"http_only,omitempty"`
	Secure   bool    `json:"secure,omitempty"`
	SameSite string  `json:"same_site,omitempty"`
}

// sitePatterns maps URL substrings to site identities. URLs matching none of
// them share the generic identity.
var sitePatterns = []struct {
	marker   string
	identity string
}{
	{"linear.app", "linear"},
	{"notion.so", "notion"},
}

// SiteIdentity derives the session key for a target URL.
func SiteIdentity(rawURL string) string {
	lowered := strings.ToLower(rawURL)
	for _, p := range sitePatterns {
		if strings.Contains(lowered, p.marker) {
			return p.identity
		}
	}
	return "default"
}

// Store reads and writes per-site state blobs under a directory.
type Store struct {
	dir    string
	logger *zap.Logger
}

// New constructs a store rooted at dir.
func New(dir string, logger *zap.Logger) *Store {
	return &Store{dir: dir, logger: logger.Named("sessionstore")}
}

func (s *Store) path(site string) string {
	return filepath.Join(s.dir, site+"_state.json")
}

// Load returns the persisted state for a site identity, or (nil, nil) when
// none exists yet.
func (s *Store) Load(site string) (*State, error) {
	data, err := os.ReadFile(s.path(site))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Info("No saved session; manual login may be required.", zap.String("site", site))
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read session state for %q: %w", site, err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to decode session state for %q: %w", site, err)
	}
	s.logger.Info("Using saved session.", zap.String("site", site), zap.Time("saved_at", st.SavedAt))
	return &st, nil
}

// Save persists the state for a site identity, creating the state directory
// as needed. State files may contain live credentials, so they are written
// owner-only.
func (s *Store) Save(site string, st *State) error {
	if st == nil {
		return fmt.Errorf("nil session state for %q", site)
	}
	st.SavedAt = time.Now().UTC()

	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("failed to create session state dir: %w", err)
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session state for %q: %w", site, err)
	}
	if err := os.WriteFile(s.path(site), data, 0o600); err != nil {
		return fmt.Errorf("failed to write session state for %q: %w", site, err)
	}
	s.logger.Info("Session state updated.", zap.String("site", site), zap.Int("cookies", len(st.Cookies)))
	return nil
}
