// Package session defines the command capability that mutation handlers
// invoke: a backend reached through a process-wide handle, a base command
// type that implements every verb generically, and the per-verb interfaces
// overrides implement.
package session

import (
	"context"
	"errors"
)

// Verb names understood by backends.
const (
	VerbConfigure = "configure"
	VerbSave      = "save"
	VerbLoad      = "load"
	VerbAdd       = "add"
	VerbDelete    = "delete"
)

// ErrUnsupportedVerb is returned by backends for verbs they do not serve.
var ErrUnsupportedVerb = errors.New("session: unsupported verb")

// Request is one operation sent to a backend.
type Request struct {
	Command string                 // Command identifier, e.g. "ConfigFile"
	Verb    string                 // One of the Verb* constants
	Data    map[string]interface{} // Caller payload
}

// Backend performs the configuration operations behind a session. It is the
// opaque handle mutation handlers obtain from process-wide state.
type Backend interface {
	Exec(ctx context.Context, req Request) (interface{}, error)
}

// BackendFunc adapts a function to the Backend interface.
type BackendFunc func(ctx context.Context, req Request) (interface{}, error)

// Exec calls f(ctx, req).
func (f BackendFunc) Exec(ctx context.Context, req Request) (interface{}, error) {
	return f(ctx, req)
}

// Verb method sets. A command only needs to implement the ones it serves.
type (
	Configurer interface {
		Configure(ctx context.Context) (interface{}, error)
	}
	Saver interface {
		Save(ctx context.Context) (interface{}, error)
	}
	Loader interface {
		Load(ctx context.Context) (interface{}, error)
	}
	Adder interface {
		Add(ctx context.Context) (interface{}, error)
	}
	Deleter interface {
		Delete(ctx context.Context) (interface{}, error)
	}
)

// Invoker serves verbs by name. Commands implement it to answer verbs
// outside the built-in set.
type Invoker interface {
	Invoke(ctx context.Context, verb string) (interface{}, error)
}

// Session is the base command. It carries the command identifier it was
// created for and implements every verb by forwarding to the backend, so a
// command without an override is still fully functional. Overrides usually
// embed *Session and replace the verbs they customize.
type Session struct {
	Name    string
	Backend Backend
	Data    map[string]interface{}
}

// New returns a constructor producing base sessions named after command.
func New(command string) func(b Backend, data map[string]interface{}) (interface{}, error) {
	return func(b Backend, data map[string]interface{}) (interface{}, error) {
		return NewSession(command, b, data)
	}
}

// NewSession builds a base session for command.
func NewSession(command string, b Backend, data map[string]interface{}) (*Session, error) {
	if b == nil {
		return nil, errors.New("session: nil backend")
	}
	return &Session{Name: command, Backend: b, Data: data}, nil
}

func (s *Session) exec(ctx context.Context, verb string) (interface{}, error) {
	return s.Backend.Exec(ctx, Request{Command: s.Name, Verb: verb, Data: s.Data})
}

// Configure applies the payload as configuration for the command.
func (s *Session) Configure(ctx context.Context) (interface{}, error) {
	return s.exec(ctx, VerbConfigure)
}

// Save stores the running configuration.
func (s *Session) Save(ctx context.Context) (interface{}, error) {
	return s.exec(ctx, VerbSave)
}

// Load replaces the running configuration.
func (s *Session) Load(ctx context.Context) (interface{}, error) {
	return s.exec(ctx, VerbLoad)
}

// Add adds a resource, e.g. a system image.
func (s *Session) Add(ctx context.Context) (interface{}, error) {
	return s.exec(ctx, VerbAdd)
}

// Delete removes a resource.
func (s *Session) Delete(ctx context.Context) (interface{}, error) {
	return s.exec(ctx, VerbDelete)
}
