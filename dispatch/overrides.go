package dispatch

import (
	"fmt"
	"sort"
	"sync"

	"github.com/Protocol-Lattice/configql/session"
)

// Constructor builds a command from the session handle and the request
// payload. The command exposes its verbs through the session verb
// interfaces.
type Constructor func(b session.Backend, data map[string]interface{}) (interface{}, error)

// Overrides maps command identifiers to custom constructors. Commands
// without an entry use the base session.Session.
type Overrides struct {
	mu sync.RWMutex
	m  map[string]Constructor
}

// NewOverrides returns an empty override table.
func NewOverrides() *Overrides {
	return &Overrides{m: make(map[string]Constructor)}
}

// DefaultOverrides is the process-wide table consulted by factories that are
// not given their own.
var DefaultOverrides = NewOverrides()

// RegisterOverride adds an entry to DefaultOverrides.
func RegisterOverride(commandID string, c Constructor) error {
	return DefaultOverrides.Register(commandID, c)
}

// Register installs c for commandID. Each identifier may be overridden once.
func (o *Overrides) Register(commandID string, c Constructor) error {
	if commandID == "" {
		return fmt.Errorf("dispatch: override needs a command identifier")
	}
	if c == nil {
		return fmt.Errorf("dispatch: nil constructor for %s", commandID)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.m[commandID]; ok {
		return fmt.Errorf("dispatch: override for %s already registered", commandID)
	}
	o.m[commandID] = c
	return nil
}

// MustRegister is Register that panics on error, for use in init blocks.
func (o *Overrides) MustRegister(commandID string, c Constructor) {
	if err := o.Register(commandID, c); err != nil {
		panic(err)
	}
}

// Lookup returns the override registered for commandID.
func (o *Overrides) Lookup(commandID string) (Constructor, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	c, ok := o.m[commandID]
	return c, ok
}

// Resolve returns the override for commandID, or the base session
// constructor named after it.
func (o *Overrides) Resolve(commandID string) (Constructor, bool) {
	if c, ok := o.Lookup(commandID); ok {
		return c, true
	}
	return session.New(commandID), false
}

// Names lists the overridden command identifiers in sorted order.
func (o *Overrides) Names() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	names := make([]string, 0, len(o.m))
	for name := range o.m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
