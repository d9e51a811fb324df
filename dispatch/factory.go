// Package dispatch builds mutation handlers from mutation names. Each
// handler resolves a command for its command identifier (an override or the
// base session), invokes one verb on it and reports the outcome as a Result
// envelope. Handlers never return errors to the transport.
package dispatch

import (
	"context"
	"fmt"
	"maps"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Protocol-Lattice/configql/executor"
	"github.com/Protocol-Lattice/configql/session"
	"github.com/Protocol-Lattice/configql/state"
	"github.com/Protocol-Lattice/configql/telemetry"
)

// Registrar is the mutation registry handlers are registered with.
type Registrar interface {
	RegisterMutationResolver(field string, resolver executor.ResolverFunc) error
}

// SessionFunc returns the session handle for one invocation.
type SessionFunc func() (session.Backend, error)

// Publisher receives an Event for every handled mutation.
type Publisher interface {
	Publish(v interface{})
}

// Factory builds and registers mutation handlers.
type Factory struct {
	registrar Registrar
	overrides *Overrides
	session   SessionFunc
	log       logrus.FieldLogger
	telemetry *telemetry.Recorder
	publisher Publisher
}

// Option configures a Factory.
type Option func(*Factory)

// WithOverrides sets the override table. Defaults to DefaultOverrides.
func WithOverrides(o *Overrides) Option {
	return func(f *Factory) { f.overrides = o }
}

// WithSessionFunc sets the session accessor. Defaults to state.Session.
func WithSessionFunc(fn SessionFunc) Option {
	return func(f *Factory) { f.session = fn }
}

// WithLogger sets the logger. Defaults to the logrus standard logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(f *Factory) { f.log = l }
}

// WithTelemetry records a span and metrics per invocation.
func WithTelemetry(r *telemetry.Recorder) Option {
	return func(f *Factory) { f.telemetry = r }
}

// WithPublisher publishes an Event per invocation.
func WithPublisher(p Publisher) Option {
	return func(f *Factory) { f.publisher = p }
}

// NewFactory returns a Factory registering handlers with r.
func NewFactory(r Registrar, opts ...Option) *Factory {
	f := &Factory{
		registrar: r,
		overrides: DefaultOverrides,
		session:   state.Session,
		log:       logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Handler executes one mutation. It is safe for concurrent use.
type Handler struct {
	Mutation  string // Schema field the handler is registered under
	CommandID string // Key for override lookup
	Verb      Verb   // Method invoked on the command
	Name      string // Debug name, resolve_<command_id in snake_case>

	f *Factory
}

// MakeMutationResolver builds the handler for mutation and registers it.
func (f *Factory) MakeMutationResolver(mutation, commandID string, verb Verb) (*Handler, error) {
	h := &Handler{
		Mutation:  mutation,
		CommandID: commandID,
		Verb:      verb,
		Name:      ResolverName(commandID),
		f:         f,
	}
	if err := f.registrar.RegisterMutationResolver(mutation, h.Resolve); err != nil {
		return nil, err
	}
	f.log.WithFields(logrus.Fields{
		"mutation": mutation,
		"command":  commandID,
		"verb":     verb,
		"resolver": h.Name,
	}).Debug("registered mutation resolver")
	return h, nil
}

// MakeConfigureResolver registers mutation as a configure command named
// after itself.
func (f *Factory) MakeConfigureResolver(mutation string) (*Handler, error) {
	return f.MakeMutationResolver(mutation, mutation, Configure)
}

// MakePrefixResolver registers mutation under the verb found by SplitPrefix.
// It fails with a *DispatchError when no prefix matches.
func (f *Factory) MakePrefixResolver(mutation string, prefixes ...Verb) (*Handler, error) {
	commandID, verb, err := SplitPrefix(mutation, prefixes)
	if err != nil {
		return nil, err
	}
	return f.MakeMutationResolver(mutation, commandID, verb)
}

// MakeConfigFileResolver handles save/load mutations such as saveConfigFile.
func (f *Factory) MakeConfigFileResolver(mutation string) (*Handler, error) {
	return f.MakePrefixResolver(mutation, ConfigFilePrefixes...)
}

// MakeImageResolver handles add/delete mutations such as addSystemImage.
func (f *Factory) MakeImageResolver(mutation string) (*Handler, error) {
	return f.MakePrefixResolver(mutation, ImagePrefixes...)
}

// Resolve is the executor.ResolverFunc registered for the mutation. The
// error is always nil; failures are reported inside the Result.
func (h *Handler) Resolve(ctx context.Context, _ executor.ResolveInfo, args map[string]interface{}) (interface{}, error) {
	return h.Invoke(ctx, args), nil
}

// Invoke runs the mutation with the given arguments.
func (h *Handler) Invoke(ctx context.Context, args map[string]interface{}) Result {
	raw, ok := args[DataKey]
	if !ok {
		return Failed(MissingData)
	}

	requestID := uuid.NewString()
	log := h.f.log.WithFields(logrus.Fields{
		"mutation":   h.Mutation,
		"command":    h.CommandID,
		"verb":       h.Verb,
		"request_id": requestID,
	})
	ctx, end := h.f.telemetry.Start(ctx, telemetry.Dispatch{
		Mutation:  h.Mutation,
		Command:   h.CommandID,
		Verb:      string(h.Verb),
		RequestID: requestID,
	})

	var res Result
	data, err := h.run(ctx, log, raw)
	if err != nil {
		log.WithError(err).Warn("mutation failed")
		res = Failed(err.Error())
		end(err.Error())
	} else {
		log.Debug("mutation applied")
		res = Succeeded(data)
		end("")
	}

	if h.f.publisher != nil {
		h.f.publisher.Publish(Event{
			RequestID: requestID,
			Mutation:  h.Mutation,
			Command:   h.CommandID,
			Verb:      h.Verb,
			Result:    res,
		})
	}
	return res
}

// run resolves, constructs and invokes the command. A panic anywhere in
// those steps is reported as an error.
func (h *Handler) run(ctx context.Context, log logrus.FieldLogger, raw interface{}) (data map[string]interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			data, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()

	data, ok := raw.(map[string]interface{})
	if !ok || data == nil {
		return nil, ErrDataNotObject
	}
	// the caller's map may be shared by other fields of the same request
	data = maps.Clone(data)
	backend, err := h.f.session()
	if err != nil {
		return nil, err
	}

	// resolved on every call so overrides registered after startup apply
	construct, overridden := h.f.overrides.Resolve(h.CommandID)
	log.WithFields(logrus.Fields{
		"module":     ModuleName(h.CommandID),
		"overridden": overridden,
	}).Debug("resolved command")

	cmd, err := construct(backend, data)
	if err != nil {
		return nil, err
	}
	method, err := h.Verb.method(h.CommandID, cmd)
	if err != nil {
		return nil, err
	}
	out, err := method(ctx)
	if err != nil {
		return nil, err
	}
	data[ResultKey] = out
	return data, nil
}
