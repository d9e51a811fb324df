// Package state holds the process-wide session handle shared by every
// mutation handler.
package state

import (
	"errors"
	"sync/atomic"

	"github.com/Protocol-Lattice/configql/session"
)

// ErrNoSession is returned by Session before SetSession has been called.
var ErrNoSession = errors.New("no configuration session available")

type holder struct {
	backend session.Backend
}

var current atomic.Pointer[holder]

// SetSession installs the process-wide session handle. Passing nil clears it.
func SetSession(b session.Backend) {
	if b == nil {
		current.Store(nil)
		return
	}
	current.Store(&holder{backend: b})
}

// Session returns the process-wide session handle.
func Session() (session.Backend, error) {
	h := current.Load()
	if h == nil {
		return nil, ErrNoSession
	}
	return h.backend, nil
}
