package gate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// SessionKey is the namespaced key holding the last showing as unix seconds.
const SessionKey = "pbdash.dashboard.last_shown"

const sessionFile = "session.toml"

// SessionStore persists per-session values in <dir>/session.toml. The default
// directory lives under XDG_RUNTIME_DIR so it disappears with the login session.
type SessionStore struct {
	dir string
}

// DefaultSessionDir returns $XDG_RUNTIME_DIR/pbdash, or a pbdash directory in
// the system temp dir when the runtime dir is unset.
func DefaultSessionDir() string {
	if runtime := strings.TrimSpace(os.Getenv("XDG_RUNTIME_DIR")); runtime != "" {
		return filepath.Join(runtime, "pbdash")
	}
	return filepath.Join(os.TempDir(), fmt.Sprintf("pbdash-%d", os.Getuid()))
}

// NewSessionStore returns a store rooted at dir, or DefaultSessionDir when empty.
func NewSessionStore(dir string) *SessionStore {
	if strings.TrimSpace(dir) == "" {
		dir = DefaultSessionDir()
	}
	return &SessionStore{dir: dir}
}

// Path returns the session file location.
func (s *SessionStore) Path() string {
	return filepath.Join(s.dir, sessionFile)
}

// LastShown reads the stored timestamp. A missing file or key yields the zero time.
func (s *SessionStore) LastShown() (time.Time, error) {
	values, err := s.read()
	if err != nil {
		return time.Time{}, err
	}
	raw, ok := values[SessionKey]
	if !ok {
		return time.Time{}, nil
	}
	secs, ok := raw.(int64)
	if !ok || secs <= 0 {
		return time.Time{}, fmt.Errorf("session key %s: unexpected value %v", SessionKey, raw)
	}
	return time.Unix(secs, 0), nil
}

// SetLastShown stores t under SessionKey, keeping any other keys intact.
func (s *SessionStore) SetLastShown(t time.Time) error {
	values, err := s.read()
	if err != nil {
		values = map[string]any{}
	}
	values[SessionKey] = t.Unix()

	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	data, err := toml.Marshal(values)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	tmp := s.Path() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	if err := os.Rename(tmp, s.Path()); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// Load builds a Gate from the stored timestamp. Unreadable state is treated as
// never shown.
func (s *SessionStore) Load(minInterval time.Duration) *Gate {
	last, err := s.LastShown()
	if err != nil {
		last = time.Time{}
	}
	return New(last, minInterval)
}

// MarkShown updates g and persists the new timestamp.
func (s *SessionStore) MarkShown(g *Gate, now time.Time) error {
	g.MarkShown(now)
	return s.SetLastShown(now)
}

func (s *SessionStore) read() (map[string]any, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("read session: %w", err)
	}
	values := map[string]any{}
	if err := toml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("parse session: %w", err)
	}
	return values, nil
}
