package dispatch

import (
	"errors"
	"fmt"
	"strings"
)

// MissingData is the only error reported when a request has no "data"
// argument.
const MissingData = "missing data"

// ErrDataNotObject is reported when "data" is present but is not an object.
var ErrDataNotObject = errors.New("data must be an object")

// DispatchError is returned at registration time when none of the verb
// prefixes occurs in the mutation name.
type DispatchError struct {
	Mutation string
	Prefixes []Verb
}

func (e *DispatchError) Error() string {
	names := make([]string, len(e.Prefixes))
	for i, p := range e.Prefixes {
		names[i] = string(p)
	}
	return fmt.Sprintf("dispatch: mutation %q matches none of the verb prefixes [%s]", e.Mutation, strings.Join(names, ", "))
}

// MethodError is reported when the resolved command lacks the verb's method.
type MethodError struct {
	Command string
	Verb    Verb
}

func (e *MethodError) Error() string {
	return fmt.Sprintf("%s has no method %s", e.Command, e.Verb)
}
