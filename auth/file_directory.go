package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"
)

// FileUserDirectory implements UserDirectory on top of a YAML user file
type FileUserDirectory struct {
	filePath    string
	users       map[UserName]*UserEntry
	mutex       sync.RWMutex
	reloads     singleflight.Group
	outstanding atomic.Int64
}

// UserEntry represents a user entry in the user file
type UserEntry struct {
	User        string                     `yaml:"user"`
	DB          string                     `yaml:"db"`
	External    bool                       `yaml:"external,omitempty"`
	Credentials map[string]SCRAMCredential `yaml:"credentials,omitempty"`
}

// UserFile represents the structure of the user file
type UserFile struct {
	Users []UserEntry `yaml:"users"`
}

// NewFileUserDirectory loads the user file at filePath. The file must exist.
func NewFileUserDirectory(filePath string) (*FileUserDirectory, error) {
	dir := &FileUserDirectory{
		filePath: filePath,
		users:    make(map[UserName]*UserEntry),
	}

	if err := dir.load(); err != nil {
		return nil, fmt.Errorf("failed to load user file: %w", err)
	}

	return dir, nil
}

// LoadOrCreateFileUserDirectory loads the user file, starting empty when it does not exist yet
func LoadOrCreateFileUserDirectory(filePath string) (*FileUserDirectory, error) {
	if _, err := os.Stat(filePath); errors.Is(err, os.ErrNotExist) {
		return &FileUserDirectory{
			filePath: filePath,
			users:    make(map[UserName]*UserEntry),
		}, nil
	}
	return NewFileUserDirectory(filePath)
}

// load reads and parses the user file
func (f *FileUserDirectory) load() error {
	data, err := os.ReadFile(f.filePath)
	if err != nil {
		return fmt.Errorf("failed to read user file: %w", err)
	}

	var userFile UserFile
	if err := yaml.Unmarshal(data, &userFile); err != nil {
		return fmt.Errorf("failed to parse user file: %w", err)
	}

	users := make(map[UserName]*UserEntry, len(userFile.Users))
	for i := range userFile.Users {
		entry := &userFile.Users[i]
		if _, err := entry.toCredentials(); err != nil {
			return err
		}
		name := entry.Name()
		if _, dup := users[name]; dup {
			return fmt.Errorf("duplicate user entry: %s", name)
		}
		users[name] = entry
	}

	f.mutex.Lock()
	f.users = users
	f.mutex.Unlock()

	return nil
}

// Name returns the principal the entry describes
func (e *UserEntry) Name() UserName {
	return UserName{User: e.User, DB: e.DB}
}

// toCredentials converts the stored record into its credential variant.
// A record cannot be external and carry local SCRAM secrets at the same time.
func (e *UserEntry) toCredentials() (Credentials, error) {
	if e.User == "" || e.DB == "" {
		return nil, fmt.Errorf("user entry requires both user and db (got %q)", e.Name())
	}

	if e.External || e.DB == ExternalDatabase {
		if len(e.Credentials) > 0 {
			return nil, fmt.Errorf("external user %s cannot hold local credentials", e.Name())
		}
		return ExternalCredentials{}, nil
	}

	local := LocalCredentials{SCRAM: make(map[SCRAMVariant]SCRAMCredential, len(e.Credentials))}
	for mechanism, cred := range e.Credentials {
		variant, ok := SCRAMVariantForMechanism(mechanism)
		if !ok {
			return nil, fmt.Errorf("user %s has credentials for unsupported mechanism %q", e.Name(), mechanism)
		}
		local.SCRAM[variant] = cred
	}
	return local, nil
}

// Acquire looks up a user and leases its credentials
func (f *FileUserDirectory) Acquire(ctx context.Context, name UserName) (*UserHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mutex.RLock()
	entry, exists := f.users[name]
	f.mutex.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, name)
	}

	creds, err := entry.toCredentials()
	if err != nil {
		return nil, err
	}

	f.outstanding.Add(1)
	return NewUserHandle(name, creds, func() { f.outstanding.Add(-1) }), nil
}

// Outstanding returns the number of handles acquired and not yet released
func (f *FileUserDirectory) Outstanding() int64 {
	return f.outstanding.Load()
}

// Reload re-reads the user file. Concurrent calls share a single read.
func (f *FileUserDirectory) Reload() error {
	_, err, _ := f.reloads.Do("reload", func() (interface{}, error) {
		return nil, f.load()
	})
	return err
}

// Put adds or replaces a user entry in memory. Call Save to persist it.
func (f *FileUserDirectory) Put(entry UserEntry) error {
	if _, err := entry.toCredentials(); err != nil {
		return err
	}

	f.mutex.Lock()
	defer f.mutex.Unlock()

	f.users[entry.Name()] = &entry
	return nil
}

// Users returns the known principals sorted by "db.user"
func (f *FileUserDirectory) Users() []UserName {
	f.mutex.RLock()
	defer f.mutex.RUnlock()

	names := make([]UserName, 0, len(f.users))
	for name := range f.users {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return names[i].String() < names[j].String()
	})
	return names
}

// Get returns a copy of the stored entry for a user
func (f *FileUserDirectory) Get(name UserName) (UserEntry, bool) {
	f.mutex.RLock()
	defer f.mutex.RUnlock()

	entry, ok := f.users[name]
	if !ok {
		return UserEntry{}, false
	}
	return *entry, true
}

// Save writes the directory back to its user file
func (f *FileUserDirectory) Save() error {
	userFile := UserFile{}
	for _, name := range f.Users() {
		entry, _ := f.Get(name)
		userFile.Users = append(userFile.Users, entry)
	}

	data, err := yaml.Marshal(&userFile)
	if err != nil {
		return fmt.Errorf("failed to marshal user file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(f.filePath), 0755); err != nil {
		return fmt.Errorf("failed to create user file directory: %w", err)
	}

	if err := os.WriteFile(f.filePath, data, 0600); err != nil {
		return fmt.Errorf("failed to write user file: %w", err)
	}

	return nil
}
