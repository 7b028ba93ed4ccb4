package auth

import (
	"fmt"
	"strings"
)

// Mechanism names understood by the server
const (
	MechanismGSSAPI      = "GSSAPI"
	MechanismPlain       = "PLAIN"
	MechanismSCRAMSHA1   = "SCRAM-SHA-1"
	MechanismSCRAMSHA256 = "SCRAM-SHA-256"
	MechanismX509        = "MONGODB-X509"
)

var knownMechanisms = map[string]struct{}{
	MechanismGSSAPI:      {},
	MechanismPlain:       {},
	MechanismSCRAMSHA1:   {},
	MechanismSCRAMSHA256: {},
	MechanismX509:        {},
}

// IsKnownMechanism reports whether name is a mechanism the server can be configured with
func IsKnownMechanism(name string) bool {
	_, ok := knownMechanisms[name]
	return ok
}

// MechanismSet is the server-wide, read-only list of enabled mechanisms.
// The zero value is an empty set.
type MechanismSet struct {
	names   []string
	members map[string]struct{}
}

// NewMechanismSet creates a set from names, keeping the first occurrence of duplicates
func NewMechanismSet(names ...string) MechanismSet {
	set := MechanismSet{
		names:   make([]string, 0, len(names)),
		members: make(map[string]struct{}, len(names)),
	}
	for _, name := range names {
		if _, dup := set.members[name]; dup {
			continue
		}
		set.members[name] = struct{}{}
		set.names = append(set.names, name)
	}
	return set
}

// ParseMechanismSet builds a set from configured names, rejecting unknown mechanisms
func ParseMechanismSet(names []string) (MechanismSet, error) {
	for _, name := range names {
		if !IsKnownMechanism(name) {
			return MechanismSet{}, fmt.Errorf("unsupported authentication mechanism: %s", name)
		}
	}
	return NewMechanismSet(names...), nil
}

// Contains reports whether name is enabled
func (s MechanismSet) Contains(name string) bool {
	_, ok := s.members[name]
	return ok
}

// Len returns the number of enabled mechanisms
func (s MechanismSet) Len() int {
	return len(s.names)
}

// List returns the enabled mechanism names in configured order
func (s MechanismSet) List() []string {
	names := make([]string, len(s.names))
	copy(names, s.names)
	return names
}

// String returns a space-separated list of mechanism names
func (s MechanismSet) String() string {
	return strings.Join(s.names, " ")
}
