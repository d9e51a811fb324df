// Package registry holds the process-wide executor that HTTP handlers serve
// and the dispatch factory that registers mutation handlers on it.
package registry

import (
	"github.com/Protocol-Lattice/configql/dispatch"
	"github.com/Protocol-Lattice/configql/executor"
	"github.com/Protocol-Lattice/configql/pubsub"
)

var (
	globalExecutor = executor.New()
	globalEvents   = pubsub.New(pubsub.DefaultBuffer)
	globalFactory  = dispatch.NewFactory(globalExecutor, dispatch.WithPublisher(globalEvents))
)

// ResolverFunc defines the function signature for all resolvers.
// This is re-exported for convenience.
type ResolverFunc = executor.ResolverFunc

// RegisterQueryResolver registers a resolver for a query field in the global executor.
func RegisterQueryResolver(field string, resolver ResolverFunc) {
	globalExecutor.RegisterQueryResolver(field, resolver)
}

// RegisterMutationResolver registers a resolver for a mutation field in the global executor.
func RegisterMutationResolver(field string, resolver ResolverFunc) error {
	return globalExecutor.RegisterMutationResolver(field, resolver)
}

// RegisterSubscriptionResolver registers a resolver for a subscription field in the global executor.
func RegisterSubscriptionResolver(field string, resolver ResolverFunc) {
	globalExecutor.RegisterSubscriptionResolver(field, resolver)
}

// MakeConfigureResolver registers a configure mutation on the global executor.
func MakeConfigureResolver(mutation string) (*dispatch.Handler, error) {
	return globalFactory.MakeConfigureResolver(mutation)
}

// MakeConfigFileResolver registers a save/load mutation on the global executor.
func MakeConfigFileResolver(mutation string) (*dispatch.Handler, error) {
	return globalFactory.MakeConfigFileResolver(mutation)
}

// MakeImageResolver registers an add/delete mutation on the global executor.
func MakeImageResolver(mutation string) (*dispatch.Handler, error) {
	return globalFactory.MakeImageResolver(mutation)
}

// MakePrefixResolver registers a mutation whose verb is one of prefixes.
func MakePrefixResolver(mutation string, prefixes ...dispatch.Verb) (*dispatch.Handler, error) {
	return globalFactory.MakePrefixResolver(mutation, prefixes...)
}

// GetGlobalExecutor returns the global executor instance.
func GetGlobalExecutor() *executor.Executor {
	return globalExecutor
}

// GetGlobalFactory returns the factory bound to the global executor, the
// process-wide session state and dispatch.DefaultOverrides.
func GetGlobalFactory() *dispatch.Factory {
	return globalFactory
}

// Events returns the bus that receives a dispatch.Event per handled mutation.
func Events() *pubsub.Bus {
	return globalEvents
}
