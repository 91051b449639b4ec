package opsaccess

import (
	"fmt"

	"moversync/internal/ipc"
	"moversync/internal/operations"
)

// Session represents an access handle and its cleanup function.
type Session struct {
	Access Access
	close  func() error
}

// Close releases resources associated with the session.
func (s Session) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// DirectOpener builds an in-process operations service and its cleanup.
type DirectOpener func() (*operations.Service, func() error, error)

// OpenWithFallback tries IPC-backed access first, then falls back to direct
// access to the state database.
func OpenWithFallback(dial func() (*ipc.Client, error), openDirect DirectOpener) (Session, error) {
	if dial != nil {
		if client, err := dial(); err == nil {
			return Session{
				Access: NewIPCAccess(client),
				close:  client.Close,
			}, nil
		}
	}

	if openDirect == nil {
		return Session{}, fmt.Errorf("open operations: no direct opener configured")
	}
	ops, closeFn, err := openDirect()
	if err != nil {
		return Session{}, fmt.Errorf("open operations: %w", err)
	}
	return Session{
		Access: NewDirectAccess(ops),
		close:  closeFn,
	}, nil
}
