package auth

import (
	"context"
	"errors"
	"sync"
)

// Lookup errors
var (
	ErrUserNotFound   = errors.New("user not found")
	ErrHandleReleased = errors.New("user handle already released")
)

// UserDirectory resolves principals to their stored credentials
type UserDirectory interface {
	// Acquire looks up a principal and leases its credential snapshot.
	// The caller must Release the handle when done.
	Acquire(ctx context.Context, name UserName) (*UserHandle, error)
}

// UserHandle is a lease on a resolved principal
type UserHandle struct {
	name    UserName
	creds   Credentials
	mu      sync.Mutex
	release func()
	done    bool
}

// NewUserHandle creates a handle; onRelease runs once on the first Release
func NewUserHandle(name UserName, creds Credentials, onRelease func()) *UserHandle {
	return &UserHandle{name: name, creds: creds, release: onRelease}
}

// Name returns the principal the handle was acquired for
func (h *UserHandle) Name() UserName {
	return h.name
}

// Credentials returns the credential snapshot
func (h *UserHandle) Credentials() (Credentials, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.done {
		return nil, ErrHandleReleased
	}
	return h.creds, nil
}

// Release returns the lease. Calling it more than once is a no-op.
func (h *UserHandle) Release() {
	h.mu.Lock()
	if h.done {
		h.mu.Unlock()
		return
	}
	h.done = true
	h.creds = nil
	onRelease := h.release
	h.mu.Unlock()

	if onRelease != nil {
		onRelease()
	}
}
