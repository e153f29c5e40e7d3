package state

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/gofrs/flock"
	"gopkg.in/yaml.v3"

	"issuebot/internal/repos"
)

// channelRecord is the on-disk shape of one channel block. Delay is a
// pointer because zero is a legal setting; only an absent key means the
// default.
type channelRecord struct {
	Name            string   `yaml:"name"`
	Repositories    []string `yaml:"repositories,omitempty"`
	Delay           *int     `yaml:"delay"`
	MaxLines        int      `yaml:"maxlines"`
	IssuesSuspended bool     `yaml:"issues_suspended,omitempty"`
	NamesSuspended  bool     `yaml:"names_suspended,omitempty"`
	IgnoredNicks    []string `yaml:"ignored_nicks,omitempty"`
}

type stateFile struct {
	Channels []channelRecord   `yaml:"channels"`
	Aliases  map[string]string `yaml:"aliases,omitempty"`
}

// Store persists channel state and aliases to a single YAML file. Writes go
// to a temporary file in the same directory followed by an atomic rename,
// so the file is never observed half-written. An advisory lock guards
// against a second bot instance using the same file.
type Store struct {
	path string
	lock *flock.Flock
}

// Open prepares a store at path and takes the advisory lock. A held lock
// (another running instance) is reported as an error; the caller decides
// whether to continue without persistence.
func Open(path string) (*Store, error) {
	s := &Store{path: path, lock: flock.New(path + ".lock")}
	ok, err := s.lock.TryLock()
	if err != nil {
		return s, fmt.Errorf("locking %s: %w", s.lock.Path(), err)
	}
	if !ok {
		return s, fmt.Errorf("state file %s is locked by another instance", path)
	}
	return s, nil
}

// Close releases the advisory lock.
func (s *Store) Close() error {
	if s.lock == nil {
		return nil
	}
	return s.lock.Unlock()
}

// Load reads the persisted channel states and alias table. A missing file
// yields empty state; a malformed file is an error the caller should treat
// as fatal.
func (s *Store) Load() (map[string]*Channel, *Aliases, error) {
	channels := make(map[string]*Channel)
	aliases := NewAliases()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return channels, aliases, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("reading state file: %w", err)
	}

	var f stateFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, nil, fmt.Errorf("parsing state file %s: %w", s.path, err)
	}

	for _, rec := range f.Channels {
		if rec.Name == "" {
			return nil, nil, fmt.Errorf("parsing state file %s: channel block without a name", s.path)
		}
		ch := NewChannel(rec.Name)
		ch.Repos = repos.NewList(rec.Repositories...)
		if rec.Delay != nil {
			ch.SetDelay(*rec.Delay)
		}
		if rec.MaxLines > 0 {
			ch.SetMaxFullLines(rec.MaxLines)
		}
		ch.IssuesSuspended = rec.IssuesSuspended
		ch.NamesSuspended = rec.NamesSuspended
		for _, nick := range rec.IgnoredNicks {
			ch.Ignore(nick)
		}
		channels[rec.Name] = ch
	}
	for nick, login := range f.Aliases {
		aliases.Set(nick, login)
	}
	return channels, aliases, nil
}

// Save writes all channel states and aliases, replacing the file
// atomically.
func (s *Store) Save(channels map[string]*Channel, aliases *Aliases) error {
	f := stateFile{Aliases: aliases.Snapshot()}
	if len(f.Aliases) == 0 {
		f.Aliases = nil
	}

	names := make([]string, 0, len(channels))
	for name := range channels {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		ch := channels[name]
		delay := ch.DelayLines
		f.Channels = append(f.Channels, channelRecord{
			Name:            ch.Name,
			Repositories:    ch.Repos.FullNames(),
			Delay:           &delay,
			MaxLines:        ch.MaxFullLines,
			IssuesSuspended: ch.IssuesSuspended,
			NamesSuspended:  ch.NamesSuspended,
			IgnoredNicks:    ch.IgnoredNicks(),
		})
	}

	data, err := yaml.Marshal(&f)
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp*")
	if err != nil {
		return fmt.Errorf("creating temp state file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing state: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replacing state file: %w", err)
	}
	return nil
}
