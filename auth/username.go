package auth

import (
	"fmt"
	"strings"
)

// ExternalDatabase is the database that holds externally authenticated principals
const ExternalDatabase = "$external"

// UserName identifies a principal within a database
type UserName struct {
	User string
	DB   string
}

// ParseUserName parses "db.user". The split happens at the first dot, so user
// names may contain dots. A name without a dot is resolved against defaultDB.
func ParseUserName(s, defaultDB string) (UserName, error) {
	if s == "" {
		return UserName{}, fmt.Errorf("user name cannot be empty")
	}

	db, user, found := strings.Cut(s, ".")
	if !found {
		if defaultDB == "" {
			return UserName{}, fmt.Errorf("user name %q must be database-qualified (db.user)", s)
		}
		return UserName{User: s, DB: defaultDB}, nil
	}

	if db == "" {
		return UserName{}, fmt.Errorf("user name %q has an empty database", s)
	}
	if user == "" {
		return UserName{}, fmt.Errorf("user name %q has an empty user", s)
	}

	return UserName{User: user, DB: db}, nil
}

// String returns the "db.user" form
func (u UserName) String() string {
	return u.DB + "." + u.User
}

// IsExternal reports whether the principal lives in the external database
func (u UserName) IsExternal() bool {
	return u.DB == ExternalDatabase
}
