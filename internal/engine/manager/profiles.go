package manager

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/samurmaykrr/zqlz/pkg/driver"
)

// ErrProfileNotFound is returned when no saved profile has the requested
// name.
var ErrProfileNotFound = errors.New("profile not found")

type profileFile struct {
	Profiles []driver.Config `yaml:"profiles"`
}

// ProfileStore persists named connection profiles as a YAML file. Passwords
// are redacted on save unless the store was opened with WithSecrets; the
// expectation is that secrets come from the environment at connect time.
type ProfileStore struct {
	path        string
	keepSecrets bool

	mu       sync.Mutex
	profiles map[string]driver.Config
}

// OpenProfileStore loads (or initializes) the profile file at path.
func OpenProfileStore(path string) (*ProfileStore, error) {
	s := &ProfileStore{
		path:     path,
		profiles: make(map[string]driver.Config),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// WithSecrets makes Save keep passwords in the file.
func (s *ProfileStore) WithSecrets() *ProfileStore {
	s.keepSecrets = true
	return s
}

func (s *ProfileStore) load() error {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading profiles: %w", err)
	}
	var file profileFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parsing profiles: %w", err)
	}
	for _, cfg := range file.Profiles {
		if cfg.Name != "" {
			s.profiles[cfg.Name] = cfg
		}
	}
	return nil
}

func (s *ProfileStore) flushLocked() error {
	names := make([]string, 0, len(s.profiles))
	for name := range s.profiles {
		names = append(names, name)
	}
	sort.Strings(names)

	var file profileFile
	for _, name := range names {
		cfg := s.profiles[name]
		if !s.keepSecrets {
			cfg = cfg.Redacted()
		}
		file.Profiles = append(file.Profiles, cfg)
	}

	raw, err := yaml.Marshal(&file)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(s.path, raw, 0o600)
}

// Save persists a profile under cfg.Name, replacing any previous profile
// with that name.
func (s *ProfileStore) Save(cfg driver.Config) error {
	if cfg.Name == "" {
		return errors.New("profile name is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[cfg.Name] = cfg
	return s.flushLocked()
}

// Get returns the profile with the given name.
func (s *ProfileStore) Get(name string) (driver.Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, ok := s.profiles[name]
	if !ok {
		return driver.Config{}, fmt.Errorf("%w: %s", ErrProfileNotFound, name)
	}
	return cfg, nil
}

// List returns all profiles sorted by name.
func (s *ProfileStore) List() []driver.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]driver.Config, 0, len(s.profiles))
	for _, cfg := range s.profiles {
		out = append(out, cfg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Delete removes a profile by name.
func (s *ProfileStore) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[name]; !ok {
		return fmt.Errorf("%w: %s", ErrProfileNotFound, name)
	}
	delete(s.profiles, name)
	return s.flushLocked()
}
